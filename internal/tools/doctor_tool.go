package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/BaeCheolHan/sari-sub000/internal/doctor"
)

// registerDoctorTool wires the doctor tool, a thin pass-through to
// internal/doctor.Run.
func (s *Server) registerDoctorTool() {
	s.addTool(&mcp.Tool{
		Name:        "doctor",
		Description: "Runs read-only health checks: daemon state, DB access, disk space, tokenizer readiness, tree-sitter grammars, writer health.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleDoctor)
}

func (s *Server) handleDoctor(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep := doctor.Run(doctor.Deps{
		Store:    s.tctx.Store,
		Indexer:  s.tctx.Indexer,
		DiskPath: s.diskPath(),
	})
	return jsonResult(map[string]any{"results": rep.Results, "recommendations": rep.Recommendations}), nil
}

func (s *Server) diskPath() string {
	if len(s.tctx.AllowedRoots) > 0 {
		return s.tctx.AllowedRoots[0]
	}
	return "."
}
