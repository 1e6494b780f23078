package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/BaeCheolHan/sari-sub000/internal/tools"
)

// hiddenToolNames are internal/diagnostic tools the original implementation
// registers with hidden=True (sari/mcp/tools/registry.py): present and
// callable always, but omitted from tools/list unless
// SARI_EXPOSE_INTERNAL_TOOLS is set.
var hiddenToolNames = map[string]bool{
	"status":     true,
	"rescan":     true,
	"scan_once":  true,
	"doctor":     true,
	"index_file": true,
}

// toolSet is the subset of *tools.Server the dispatcher needs; narrowed to
// an interface so dispatch_test.go can exercise it against a fake.
type toolSet interface {
	ToolDefs() []*mcp.Tool
	CallTool(ctx context.Context, name string, argsJSON json.RawMessage) (*mcp.CallToolResult, error)
}

// dispatcher holds everything handleRequest needs beyond the request itself.
type dispatcher struct {
	tools           toolSet
	roots           []string
	strictProtocol  bool
	exposeInternal  bool
}

func (d *dispatcher) listTools() []*mcp.Tool {
	defs := d.tools.ToolDefs()
	if d.exposeInternal {
		return defs
	}
	out := make([]*mcp.Tool, 0, len(defs))
	for _, t := range defs {
		if !hiddenToolNames[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

func (d *dispatcher) listRoots() []map[string]string {
	out := make([]map[string]string, 0, len(d.roots))
	for _, r := range d.roots {
		name := r
		if idx := lastPathSegment(r); idx != "" {
			name = idx
		}
		out = append(out, map[string]string{"uri": "file://" + r, "name": name})
	}
	return out
}

// handleRequest dispatches one JSON-RPC request against the method table
// spec.md §4.9 names, mirroring the original implementation's
// LocalSearchMCPServer.handle_request. Returns nil for notifications (no
// id), matching JSON-RPC's "no response" rule.
func (d *dispatcher) handleRequest(ctx context.Context, req rpcRequest) *rpcResponse {
	if req.isNotification() {
		// initialized / notifications/initialized and any other
		// notification: process side effects (none needed here) and send
		// nothing back.
		return nil
	}

	switch req.Method {
	case "initialize":
		version, negErr := negotiateProtocolVersion(req.Params, d.strictProtocol)
		if negErr != nil {
			return errorResponse(req.ID, negErr.Code, negErr.Message, negErr.Data)
		}
		return resultResponse(req.ID, map[string]any{
			"protocolVersion": version,
			"serverInfo":      map[string]any{"name": "sari-mcp", "version": tools.Version},
			"capabilities": map[string]any{
				"tools":     map[string]any{"listChanged": false},
				"prompts":   map[string]any{"listChanged": false},
				"resources": map[string]any{"subscribe": false, "listChanged": false},
				"roots":     map[string]any{"listChanged": false},
			},
		})

	case "tools/list":
		return resultResponse(req.ID, map[string]any{"tools": d.listTools()})

	case "tools/call":
		var p struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(req.ID, errCodeInvalidParams, "invalid tools/call params: "+err.Error(), nil)
		}
		result, err := d.tools.CallTool(ctx, p.Name, p.Arguments)
		if err != nil {
			return errorResponse(req.ID, errCodeInternal, err.Error(), nil)
		}
		return resultResponse(req.ID, result)

	case "prompts/list":
		return resultResponse(req.ID, map[string]any{"prompts": []any{}})

	case "resources/list":
		return resultResponse(req.ID, map[string]any{"resources": []any{}})

	case "resources/templates/list":
		return resultResponse(req.ID, map[string]any{"resourceTemplates": []any{}})

	case "roots/list":
		return resultResponse(req.ID, map[string]any{"roots": d.listRoots()})

	case "ping":
		return resultResponse(req.ID, map[string]any{})

	case "sari/identify":
		return resultResponse(req.ID, map[string]any{"name": "sari-mcp", "version": tools.Version})

	default:
		return errorResponse(req.ID, errCodeMethodNotFound, "Method not found: "+req.Method, nil)
	}
}

// lastPathSegment returns the final "/"-separated component of p, or "" if
// p has none (root "/" or empty).
func lastPathSegment(p string) string {
	i := len(p) - 1
	for i >= 0 && p[i] == '/' {
		i--
	}
	end := i + 1
	for i >= 0 && p[i] != '/' {
		i--
	}
	if i+1 >= end {
		return ""
	}
	return p[i+1 : end]
}
