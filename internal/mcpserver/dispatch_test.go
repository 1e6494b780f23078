package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type fakeTools struct {
	defs       []*mcp.Tool
	calledName string
	calledArgs json.RawMessage
	result     *mcp.CallToolResult
	err        error
}

func (f *fakeTools) ToolDefs() []*mcp.Tool { return f.defs }

func (f *fakeTools) CallTool(ctx context.Context, name string, argsJSON json.RawMessage) (*mcp.CallToolResult, error) {
	f.calledName = name
	f.calledArgs = argsJSON
	return f.result, f.err
}

func newDispatcherForTest(exposeInternal bool) (*dispatcher, *fakeTools) {
	ft := &fakeTools{
		defs: []*mcp.Tool{
			{Name: "search", Description: "search"},
			{Name: "status", Description: "status"},
		},
		result: &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "{}"}}},
	}
	d := &dispatcher{tools: ft, roots: []string{"/work/myrepo"}}
	d.exposeInternal = exposeInternal
	return d, ft
}

func TestToolsListHidesInternalByDefault(t *testing.T) {
	d, _ := newDispatcherForTest(false)
	resp := d.handleRequest(context.Background(), rpcRequest{JSONRPC: "2.0", ID: json.RawMessage("1"), Method: "tools/list"})
	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("result type = %T", resp.Result)
	}
	toolsList := result["tools"].([]*mcp.Tool)
	if len(toolsList) != 1 || toolsList[0].Name != "search" {
		t.Fatalf("tools = %+v, want only [search]", toolsList)
	}
}

func TestToolsListExposesInternalWhenConfigured(t *testing.T) {
	d, _ := newDispatcherForTest(true)
	resp := d.handleRequest(context.Background(), rpcRequest{JSONRPC: "2.0", ID: json.RawMessage("1"), Method: "tools/list"})
	result := resp.Result.(map[string]any)
	toolsList := result["tools"].([]*mcp.Tool)
	if len(toolsList) != 2 {
		t.Fatalf("len(tools) = %d, want 2", len(toolsList))
	}
}

func TestToolsCallDelegatesToToolsServer(t *testing.T) {
	d, ft := newDispatcherForTest(false)
	params, _ := json.Marshal(map[string]any{"name": "search", "arguments": map[string]any{"query": "x"}})
	resp := d.handleRequest(context.Background(), rpcRequest{JSONRPC: "2.0", ID: json.RawMessage("7"), Method: "tools/call", Params: params})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if ft.calledName != "search" {
		t.Fatalf("calledName = %q, want search", ft.calledName)
	}
	if resp.Result != ft.result {
		t.Fatalf("result not passed through")
	}
}

func TestUnknownMethodReturnsMethodNotFound(t *testing.T) {
	d, _ := newDispatcherForTest(false)
	resp := d.handleRequest(context.Background(), rpcRequest{JSONRPC: "2.0", ID: json.RawMessage("9"), Method: "nonexistent/method"})
	if resp.Error == nil || resp.Error.Code != errCodeMethodNotFound {
		t.Fatalf("resp.Error = %+v, want code %d", resp.Error, errCodeMethodNotFound)
	}
}

func TestNotificationYieldsNoResponse(t *testing.T) {
	d, _ := newDispatcherForTest(false)
	resp := d.handleRequest(context.Background(), rpcRequest{JSONRPC: "2.0", Method: "notifications/initialized"})
	if resp != nil {
		t.Fatalf("resp = %+v, want nil for a notification", resp)
	}
}

func TestInitializeNegotiatesClientVersion(t *testing.T) {
	d, _ := newDispatcherForTest(false)
	params, _ := json.Marshal(map[string]any{"protocolVersion": "2025-06-18"})
	resp := d.handleRequest(context.Background(), rpcRequest{JSONRPC: "2.0", ID: json.RawMessage("1"), Method: "initialize", Params: params})
	result := resp.Result.(map[string]any)
	if result["protocolVersion"] != "2025-06-18" {
		t.Fatalf("protocolVersion = %v, want 2025-06-18", result["protocolVersion"])
	}
}

func TestInitializeFallsBackToDefaultVersion(t *testing.T) {
	d, _ := newDispatcherForTest(false)
	params, _ := json.Marshal(map[string]any{"protocolVersion": "1999-01-01"})
	resp := d.handleRequest(context.Background(), rpcRequest{JSONRPC: "2.0", ID: json.RawMessage("1"), Method: "initialize", Params: params})
	result := resp.Result.(map[string]any)
	if result["protocolVersion"] != protocolVersionDefault {
		t.Fatalf("protocolVersion = %v, want %s", result["protocolVersion"], protocolVersionDefault)
	}
}

func TestInitializeStrictRejectsUnsupportedVersion(t *testing.T) {
	d, _ := newDispatcherForTest(false)
	d.strictProtocol = true
	params, _ := json.Marshal(map[string]any{"protocolVersion": "1999-01-01"})
	resp := d.handleRequest(context.Background(), rpcRequest{JSONRPC: "2.0", ID: json.RawMessage("1"), Method: "initialize", Params: params})
	if resp.Error == nil || resp.Error.Code != errCodeInvalidParams {
		t.Fatalf("resp.Error = %+v, want code %d", resp.Error, errCodeInvalidParams)
	}
}

func TestRootsListDerivesNameFromPath(t *testing.T) {
	d, _ := newDispatcherForTest(false)
	resp := d.handleRequest(context.Background(), rpcRequest{JSONRPC: "2.0", ID: json.RawMessage("1"), Method: "roots/list"})
	result := resp.Result.(map[string]any)
	roots := result["roots"].([]map[string]string)
	if len(roots) != 1 || roots[0]["name"] != "myrepo" {
		t.Fatalf("roots = %+v, want name=myrepo", roots)
	}
}
