package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/BaeCheolHan/sari-sub000/internal/respenc"
)

// Version is this server's reported release version.
const Version = "0.1.0"

// Server wraps the go-sdk mcp.Server with this module's tool handlers,
// matching the teacher's Server/addTool/CallTool/registerTools shape
// (internal/tools/tools.go) with the graph-store backing swapped for
// store/search/indexer/stabilization.
type Server struct {
	mcp      *mcp.Server
	handlers map[string]mcp.ToolHandler
	toolDefs []*mcp.Tool
	tctx     *Context
}

// responseFormat/responseCompact hold the process-wide encoding selection
// for jsonResult, set once at server construction. A package-level
// variable (rather than threading format through every handler's
// signature) keeps every existing jsonResult call site unchanged; empty
// Context.ResponseFormat preserves the original all-JSON behavior rather
// than respenc.ParseFormat's own "anything but json means pack" default.
var (
	responseFormat  = respenc.FormatJSON
	responseCompact = false
)

// NewServer builds a Server with every tool registered against tctx.
func NewServer(tctx *Context) *Server {
	if tctx.Logger == nil {
		tctx.Logger = slog.Default()
	}
	if tctx.ResponseFormat != "" {
		responseFormat = respenc.ParseFormat(tctx.ResponseFormat)
		responseCompact = tctx.ResponseCompact
	}
	srv := &Server{
		handlers: make(map[string]mcp.ToolHandler),
		tctx:     tctx,
	}
	srv.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "sari-mcp",
			Version: Version,
		},
		&mcp.ServerOptions{},
	)
	srv.registerTools()
	return srv
}

// MCPServer exposes the underlying go-sdk server for internal/mcpserver's
// transport loop to drive (tools/list, tools/call dispatch).
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

func (s *Server) addTool(tool *mcp.Tool, handler mcp.ToolHandler) {
	s.mcp.AddTool(tool, handler)
	s.handlers[tool.Name] = handler
	s.toolDefs = append(s.toolDefs, tool)
}

// ToolDefs returns every registered tool's definition (name, description,
// input schema), for the mcpserver transport's tools/list handler.
func (s *Server) ToolDefs() []*mcp.Tool { return s.toolDefs }

// CallTool invokes a tool handler directly by name, bypassing MCP
// transport — used by cmd/sari-mcp's CLI harness.
func (s *Server) CallTool(ctx context.Context, name string, argsJSON json.RawMessage) (*mcp.CallToolResult, error) {
	handler, ok := s.handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	if len(argsJSON) == 0 {
		argsJSON = json.RawMessage(`{}`)
	}
	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      name,
			Arguments: argsJSON,
		},
	}
	return handler(ctx, req)
}

// ToolNames returns every registered tool's name, for tools/list.
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	return names
}

func (s *Server) registerTools() {
	s.registerSearchTools()
	s.registerReadTools()
	s.registerGraphTools()
	s.registerKnowledgeTools()
	s.registerIndexerTools()
	s.registerDoctorTool()
	s.registerListTools()
}
