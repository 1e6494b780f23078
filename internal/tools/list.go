package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/BaeCheolHan/sari-sub000/internal/store"
)

const listFilesSummaryBudget = 2 * 1024

// registerListTools wires list_files (per-repo summary or, with repo set,
// a paginated per-file listing) and list_symbols (one file's symbol
// tree), grounded on the teacher's list_repos/list_nodes pair collapsed
// to the store's files/symbols tables.
func (s *Server) registerListTools() {
	s.addTool(&mcp.Tool{
		Name:        "list_files",
		Description: "Without 'repo': a per-repo file-count/size summary. With 'repo': a paginated listing of that repo's files.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"repo": {"type": "string"},
				"root_ids": {"type": "array", "items": {"type": "string"}},
				"limit": {"type": "number", "multipleOf": 1},
				"offset": {"type": "number", "multipleOf": 1}
			}
		}`),
	}, s.handleListFiles)

	s.addTool(&mcp.Tool{
		Name:        "list_symbols",
		Description: "A file's symbol tree in source order.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {"path": {"type": "string"}},
			"required": ["path"]
		}`),
	}, s.handleListSymbols)
}

func (s *Server) handleListFiles(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return toolErrorResult(invalidArgs(err.Error())), nil
	}
	repo := getStringArg(args, "repo")
	if repo == "" {
		stats, err := s.tctx.Store.GetRepoStats(getStringSliceArg(args, "root_ids"))
		if err != nil {
			return toolErrorResult(NewToolError(CodeDBError, err.Error())), nil
		}
		return jsonResult(map[string]any{"repos": fitRepoSummary(stats)}), nil
	}

	limit := getIntArg(args, "limit", 200)
	offset := getIntArg(args, "offset", 0)
	files, err := s.tctx.Store.ListFiles(store.ListFilesFilter{Repo: repo, Limit: limit, Offset: offset})
	if err != nil {
		return toolErrorResult(NewToolError(CodeDBError, err.Error())), nil
	}
	return jsonResult(map[string]any{"repo": repo, "files": files, "limit": limit, "offset": offset}), nil
}

// fitRepoSummary elides trailing repos once the serialized summary would
// exceed listFilesSummaryBudget, per spec.md's "~2KB bounded summary"
// instruction for the repo-absent form of list_files.
func fitRepoSummary(stats []store.RepoStat) []store.RepoStat {
	size := 0
	for i, r := range stats {
		size += len(r.Repo) + 24
		if size > listFilesSummaryBudget {
			return stats[:i]
		}
	}
	return stats
}

func (s *Server) handleListSymbols(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return toolErrorResult(invalidArgs(err.Error())), nil
	}
	path := getStringArg(args, "path")
	if path == "" {
		return toolErrorResult(invalidArgs("'path' is required")), nil
	}
	dbPath, _, tErr := s.tctx.resolvePath(path)
	if tErr != nil {
		return toolErrorResult(tErr), nil
	}
	symbols, err := s.tctx.Store.ListSymbolsByPath(dbPath)
	if err != nil {
		return toolErrorResult(NewToolError(CodeDBError, err.Error())), nil
	}
	return jsonResult(map[string]any{"path": dbPath, "symbols": symbols}), nil
}
