package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/BaeCheolHan/sari-sub000/internal/store"
)

// registerKnowledgeTools wires the unified knowledge tool (save/recall/
// list/delete/relink) over contexts and snippets, grounded on the
// teacher's save_context/get_context/list_contexts family collapsed into
// one action-dispatched tool per spec.md §4.6.
func (s *Server) registerKnowledgeTools() {
	s.addTool(&mcp.Tool{
		Name:        "knowledge",
		Description: "Save, recall, list, delete, or relink domain knowledge (contexts) and saved code snippets.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"action": {"type": "string", "enum": ["save", "recall", "list", "delete", "relink"]},
				"kind": {"type": "string", "enum": ["context", "snippet"]},
				"topic": {"type": "string", "description": "context-only key."},
				"content": {"type": "string"},
				"tags": {"type": "array", "items": {"type": "string"}},
				"related_files": {"type": "array", "items": {"type": "string"}},
				"source": {"type": "string"},
				"deprecated": {"type": "boolean"},
				"include_deprecated": {"type": "boolean"},
				"tag": {"type": "string", "description": "snippet-only key."},
				"path": {"type": "string"},
				"start_line": {"type": "number", "multipleOf": 1},
				"end_line": {"type": "number", "multipleOf": 1},
				"note": {"type": "string"},
				"new_start_line": {"type": "number", "multipleOf": 1},
				"new_end_line": {"type": "number", "multipleOf": 1},
				"context_ref": {"type": "string", "description": "kind=context, action=save: required, must hash-match content, confirming the caller actually read it back."}
			},
			"required": ["action", "kind"]
		}`),
	}, s.handleKnowledge)
}

func (s *Server) handleKnowledge(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return toolErrorResult(invalidArgs(err.Error())), nil
	}
	action := getStringArg(args, "action")
	kind := getStringArg(args, "kind")

	switch kind {
	case "context":
		return s.handleContextAction(action, args)
	case "snippet":
		return s.handleSnippetAction(action, args)
	default:
		return toolErrorResult(invalidArgs("'kind' must be 'context' or 'snippet'")), nil
	}
}

func (s *Server) handleContextAction(action string, args map[string]any) (*mcp.CallToolResult, error) {
	switch action {
	case "save":
		topic := getStringArg(args, "topic")
		content := getStringArg(args, "content")
		if topic == "" || content == "" {
			return toolErrorResult(invalidArgs("context save requires 'topic' and 'content'")), nil
		}
		ref := getStringArg(args, "context_ref")
		if ref == "" {
			return toolErrorResult(invalidArgs("context save requires 'context_ref' (sha256(content)'s first 12 hex chars), confirming the caller read content back before saving")), nil
		}
		if ref != contentHashHex([]byte(content)) {
			return toolErrorResult(NewToolError(CodeVersionConflict, "context_ref does not match content's hash; re-read before saving")), nil
		}
		c := &store.Context{
			Topic:        topic,
			Content:      content,
			Tags:         getStringSliceArg(args, "tags"),
			RelatedFiles: getStringSliceArg(args, "related_files"),
			Source:       getStringArg(args, "source"),
			Deprecated:   getBoolArg(args, "deprecated"),
		}
		if err := s.tctx.Store.UpsertContext(c); err != nil {
			return toolErrorResult(NewToolError(CodeDBError, err.Error())), nil
		}
		return jsonResult(map[string]any{"saved": true, "topic": topic}), nil

	case "recall":
		topic := getStringArg(args, "topic")
		if topic == "" {
			return toolErrorResult(invalidArgs("context recall requires 'topic'")), nil
		}
		c, err := s.tctx.Store.GetContext(topic)
		if err != nil {
			return toolErrorResult(NewToolError(CodeDBError, err.Error())), nil
		}
		if c == nil {
			return toolErrorResult(NewToolError(CodeNoResults, fmt.Sprintf("no context topic %q", topic))), nil
		}
		return jsonResult(map[string]any{"context": c}), nil

	case "list":
		list, err := s.tctx.Store.ListContexts(getBoolArg(args, "include_deprecated"))
		if err != nil {
			return toolErrorResult(NewToolError(CodeDBError, err.Error())), nil
		}
		return jsonResult(map[string]any{"contexts": list}), nil

	case "delete":
		topic := getStringArg(args, "topic")
		if topic == "" {
			return toolErrorResult(invalidArgs("context delete requires 'topic'")), nil
		}
		if err := s.tctx.Store.DeleteContext(topic); err != nil {
			return toolErrorResult(NewToolError(CodeDBError, err.Error())), nil
		}
		return jsonResult(map[string]any{"deleted": true, "topic": topic}), nil

	default:
		return toolErrorResult(invalidArgs("context action must be one of: save, recall, list, delete")), nil
	}
}

func (s *Server) handleSnippetAction(action string, args map[string]any) (*mcp.CallToolResult, error) {
	switch action {
	case "save":
		tag := getStringArg(args, "tag")
		path := getStringArg(args, "path")
		content := getStringArg(args, "content")
		if tag == "" || path == "" || content == "" {
			return toolErrorResult(invalidArgs("snippet save requires 'tag', 'path', and 'content'")), nil
		}
		dbPath, _, tErr := s.tctx.resolvePath(path)
		if tErr != nil {
			return toolErrorResult(tErr), nil
		}
		sn := &store.Snippet{
			Tag:         tag,
			Path:        dbPath,
			StartLine:   intArgOrZero(args, "start_line"),
			EndLine:     intArgOrZero(args, "end_line"),
			Content:     content,
			ContentHash: contentHashHex([]byte(content)),
			Note:        getStringArg(args, "note"),
		}
		id, err := s.tctx.Store.UpsertSnippet(sn)
		if err != nil {
			return toolErrorResult(NewToolError(CodeDBError, err.Error())), nil
		}
		return jsonResult(map[string]any{"saved": true, "id": id, "tag": tag, "path": dbPath}), nil

	case "recall":
		tag := getStringArg(args, "tag")
		if tag == "" {
			return toolErrorResult(invalidArgs("snippet recall requires 'tag'")), nil
		}
		sn, err := s.tctx.Store.GetSnippet(tag, getStringArg(args, "path"))
		if err != nil {
			return toolErrorResult(NewToolError(CodeDBError, err.Error())), nil
		}
		if sn == nil && getStringArg(args, "path") == "" {
			if all, listErr := s.tctx.Store.ListSnippets(tag); listErr == nil && len(all) > 0 {
				sn = all[0]
			}
		}
		if sn == nil {
			return toolErrorResult(NewToolError(CodeNoResults, fmt.Sprintf("no snippet tagged %q", tag))), nil
		}
		return jsonResult(map[string]any{"snippet": sn}), nil

	case "list":
		list, err := s.tctx.Store.ListSnippets(getStringArg(args, "tag"))
		if err != nil {
			return toolErrorResult(NewToolError(CodeDBError, err.Error())), nil
		}
		return jsonResult(map[string]any{"snippets": list}), nil

	case "delete":
		tag := getStringArg(args, "tag")
		path := getStringArg(args, "path")
		if tag == "" || path == "" {
			return toolErrorResult(invalidArgs("snippet delete requires 'tag' and 'path'")), nil
		}
		if err := s.tctx.Store.DeleteSnippet(tag, path); err != nil {
			return toolErrorResult(NewToolError(CodeDBError, err.Error())), nil
		}
		return jsonResult(map[string]any{"deleted": true}), nil

	case "relink":
		tag := getStringArg(args, "tag")
		path := getStringArg(args, "path")
		if tag == "" || path == "" {
			return toolErrorResult(invalidArgs("snippet relink requires 'tag' and 'path'")), nil
		}
		newStart := intArgOrZero(args, "new_start_line")
		newEnd := intArgOrZero(args, "new_end_line")
		if err := s.tctx.Store.RelinkSnippet(tag, path, newStart, newEnd, "", ""); err != nil {
			return toolErrorResult(NewToolError(CodeDBError, err.Error())), nil
		}
		return jsonResult(map[string]any{"relinked": true, "start_line": newStart, "end_line": newEnd}), nil

	default:
		return toolErrorResult(invalidArgs("snippet action must be one of: save, recall, list, delete, relink")), nil
	}
}
