package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/BaeCheolHan/sari-sub000/internal/store"
)

// registerGraphTools wires get_callers/get_implementations/call_graph over
// the symbol_relations table, grounded on the teacher's graph-traversal
// tools (search_graph family) with the dependency-graph store swapped for
// internal/store's relation rows.
func (s *Server) registerGraphTools() {
	s.addTool(&mcp.Tool{
		Name:        "get_callers",
		Description: "Who calls the named symbol.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {"type": "string"},
				"rel_types": {"type": "array", "items": {"type": "string"}}
			},
			"required": ["name"]
		}`),
	}, s.handleGetCallers)

	s.addTool(&mcp.Tool{
		Name:        "get_implementations",
		Description: "Which symbols extend or implement the named interface/class.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {"name": {"type": "string"}},
			"required": ["name"]
		}`),
	}, s.handleGetImplementations)

	s.addTool(&mcp.Tool{
		Name:        "call_graph",
		Description: "Breadth-first call graph starting from a symbol, bounded by max_nodes/max_edges/max_depth/max_time_ms.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {"type": "string"},
				"max_nodes": {"type": "number", "multipleOf": 1},
				"max_edges": {"type": "number", "multipleOf": 1},
				"max_depth": {"type": "number", "multipleOf": 1},
				"max_time_ms": {"type": "number", "multipleOf": 1}
			},
			"required": ["name"]
		}`),
	}, s.handleCallGraph)
}

func (s *Server) handleGetCallers(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return toolErrorResult(invalidArgs(err.Error())), nil
	}
	name := getStringArg(args, "name")
	if name == "" {
		return toolErrorResult(invalidArgs("'name' is required")), nil
	}
	rels, err := s.tctx.Store.FindCallers(name, getStringSliceArg(args, "rel_types"))
	if err != nil {
		return toolErrorResult(NewToolError(CodeDBError, err.Error())), nil
	}
	return jsonResult(map[string]any{"callers": relationPayload(rels)}), nil
}

func (s *Server) handleGetImplementations(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return toolErrorResult(invalidArgs(err.Error())), nil
	}
	name := getStringArg(args, "name")
	if name == "" {
		return toolErrorResult(invalidArgs("'name' is required")), nil
	}
	rels, err := s.tctx.Store.FindImplementations(name)
	if err != nil {
		return toolErrorResult(NewToolError(CodeDBError, err.Error())), nil
	}
	return jsonResult(map[string]any{"implementations": relationPayload(rels)}), nil
}

const (
	defaultMaxNodes  = 200
	defaultMaxEdges  = 400
	defaultMaxDepth  = 4
	defaultMaxTimeMs = 2000
)

func (s *Server) handleCallGraph(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return toolErrorResult(invalidArgs(err.Error())), nil
	}
	root := getStringArg(args, "name")
	if root == "" {
		return toolErrorResult(invalidArgs("'name' is required")), nil
	}
	maxNodes := getIntArg(args, "max_nodes", defaultMaxNodes)
	maxEdges := getIntArg(args, "max_edges", defaultMaxEdges)
	maxDepth := getIntArg(args, "max_depth", defaultMaxDepth)
	maxTimeMs := getIntArg(args, "max_time_ms", defaultMaxTimeMs)
	deadline := time.Now().Add(time.Duration(maxTimeMs) * time.Millisecond)

	visited := map[string]bool{root: true}
	queue := []string{root}
	depth := map[string]int{root: 0}
	var edges []*store.RelationRow
	truncated := false

	for len(queue) > 0 {
		if time.Now().After(deadline) {
			truncated = true
			break
		}
		cur := queue[0]
		queue = queue[1:]
		if depth[cur] >= maxDepth {
			continue
		}
		rels, err := s.tctx.Store.FindCallers(cur, nil)
		if err != nil {
			return toolErrorResult(NewToolError(CodeDBError, err.Error())), nil
		}
		for _, r := range rels {
			if len(edges) >= maxEdges || len(visited) >= maxNodes {
				truncated = true
				break
			}
			edges = append(edges, r)
			if !visited[r.FromSymbol] {
				visited[r.FromSymbol] = true
				depth[r.FromSymbol] = depth[cur] + 1
				queue = append(queue, r.FromSymbol)
			}
		}
		if truncated {
			break
		}
	}

	nodes := make([]string, 0, len(visited))
	for n := range visited {
		nodes = append(nodes, n)
	}

	return jsonResult(map[string]any{
		"root":      root,
		"nodes":     nodes,
		"edges":     relationPayload(edges),
		"truncated": truncated,
	}), nil
}

func relationPayload(rels []*store.RelationRow) []map[string]any {
	out := make([]map[string]any, 0, len(rels))
	for _, r := range rels {
		out = append(out, map[string]any{
			"from_symbol": r.FromSymbol,
			"from_path":   r.FromPath,
			"to_symbol":   r.ToSymbol,
			"to_path":     r.ToPath,
			"rel_type":    r.RelType,
			"line":        r.Line,
		})
	}
	return out
}
