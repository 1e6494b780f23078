package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/BaeCheolHan/sari-sub000/internal/indexer"
)

// registerIndexerTools wires status/rescan/scan_once/index_file as thin
// wrappers over internal/indexer.Indexer, grounded on the teacher's
// indexStatus/checkForUpdate tools with the git-polling model replaced by
// the leader/follower/off scan lifecycle.
func (s *Server) registerIndexerTools() {
	s.addTool(&mcp.Tool{
		Name:        "status",
		Description: "Indexer health: ready state, last scan timestamp, scanned/indexed file counts, error count, mode.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleIndexerStatus)

	s.addTool(&mcp.Tool{
		Name:        "rescan",
		Description: "Requests a full rescan of every registered root on this process's next poll tick. Leader mode only.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleRescan)

	s.addTool(&mcp.Tool{
		Name:        "scan_once",
		Description: "Synchronously drains one scan pass across every registered root and returns counts. Leader mode only.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleScanOnce)

	s.addTool(&mcp.Tool{
		Name:        "index_file",
		Description: "Indexes a single file immediately (focus indexing), bypassing the scan queue. Leader mode only.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"root_id": {"type": "string"},
				"path": {"type": "string", "description": "Absolute on-disk path."}
			},
			"required": ["root_id", "path"]
		}`),
	}, s.handleIndexFile)
}

func (s *Server) handleIndexerStatus(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.tctx.Indexer == nil {
		return jsonResult(map[string]any{"index_ready": false, "state": "disabled"}), nil
	}
	st := s.tctx.Indexer.Status()
	return jsonResult(map[string]any{
		"index_ready":   st.IndexReady,
		"last_scan_ts":  st.LastScanTs,
		"scanned_files": st.ScannedFiles,
		"indexed_files": st.IndexedFiles,
		"errors":        st.Errors,
		"state":         st.State,
		"mode":          string(st.Mode),
	}), nil
}

func (s *Server) handleRescan(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.tctx.Indexer == nil {
		return toolErrorResult(NewToolError(CodeIndexerDisabled, "indexer is disabled on this process")), nil
	}
	if err := s.tctx.Indexer.Rescan(); err != nil {
		return toolErrorResult(indexerErrToToolError(err)), nil
	}
	return jsonResult(map[string]any{"requested": true}), nil
}

func (s *Server) handleScanOnce(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.tctx.Indexer == nil {
		return toolErrorResult(NewToolError(CodeIndexerDisabled, "indexer is disabled on this process")), nil
	}
	scanned, indexed, err := s.tctx.Indexer.ScanOnce(ctx)
	if err != nil {
		return toolErrorResult(indexerErrToToolError(err)), nil
	}
	return jsonResult(map[string]any{"scanned": scanned, "indexed": indexed}), nil
}

func (s *Server) handleIndexFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return toolErrorResult(invalidArgs(err.Error())), nil
	}
	rootID := getStringArg(args, "root_id")
	path := getStringArg(args, "path")
	if rootID == "" || path == "" {
		return toolErrorResult(invalidArgs("'root_id' and 'path' are required")), nil
	}
	if s.tctx.Indexer == nil {
		return toolErrorResult(NewToolError(CodeIndexerDisabled, "indexer is disabled on this process")), nil
	}
	if err := s.tctx.Indexer.IndexFile(rootID, path); err != nil {
		return toolErrorResult(indexerErrToToolError(err)), nil
	}
	return jsonResult(map[string]any{"indexed": true, "path": path}), nil
}

func indexerErrToToolError(err error) *ToolError {
	switch {
	case errors.Is(err, indexer.ErrIndexerFollower):
		return NewToolError(CodeIndexerFollower, err.Error())
	case errors.Is(err, indexer.ErrIndexerDisabled):
		return NewToolError(CodeIndexerDisabled, err.Error())
	default:
		return NewToolError(CodeInternal, err.Error())
	}
}
