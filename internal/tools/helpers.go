package tools

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/BaeCheolHan/sari-sub000/internal/respenc"
)

// jsonResult serializes data as the tool result's sole text content. When
// the server's ResponseFormat is "pack" it renders via internal/respenc's
// generic PACK1 encoding instead of JSON, matching the original's
// mcp_response dispatch; the default (unset) format keeps the teacher's
// plain indented-JSON jsonResult behavior unchanged.
func jsonResult(data any) *mcp.CallToolResult {
	if responseFormat == respenc.FormatPack {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: respenc.Encode("result", respenc.FormatPack, responseCompact, data)}},
		}
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult(CodeInternal, "json marshal err="+err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
	}
}

// errResult returns a tool result indicating an error, with a parseable
// {"error":{"code","message"}} body so callers can recover the taxonomy
// code via the same JSON path a success payload's meta.stabilization
// lives at.
func errResult(code Code, message string) *mcp.CallToolResult {
	b, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"code":    string(code),
			"message": message,
		},
		"isError": true,
	})
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
		IsError: true,
	}
}

// toolErrorResult renders a *ToolError the same way errResult does.
func toolErrorResult(err *ToolError) *mcp.CallToolResult {
	return errResult(err.Code, err.Message)
}

// parseArgs unmarshals the raw JSON arguments into a map, matching the
// teacher's parseArgs.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

func getStringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func getIntArg(args map[string]any, key string, defaultVal int) int {
	v, ok := args[key]
	if !ok {
		return defaultVal
	}
	f, ok := v.(float64) // JSON numbers decode as float64
	if !ok {
		return defaultVal
	}
	return int(f)
}

func getBoolArg(args map[string]any, key string) bool {
	v, ok := args[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func getStringSliceArg(args map[string]any, key string) []string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func hasArg(args map[string]any, key string) bool {
	_, ok := args[key]
	return ok
}
