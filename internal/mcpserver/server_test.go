package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func frameJSONL(t *testing.T, method string, id int) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": id, "method": method})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b) + "\n"
}

func TestRunRespondsToPing(t *testing.T) {
	ft := &fakeTools{result: &mcp.CallToolResult{}}
	srv := newServer(&dispatcher{tools: ft}, Options{Workers: 2, QueueSize: 8, DefaultMode: modeJSONL}, nil)

	in := strings.NewReader(frameJSONL(t, "ping", 1))
	var out bytes.Buffer

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Run(ctx, in, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(out.String(), `"id":1`) {
		t.Fatalf("output = %q, want a response echoing id 1", out.String())
	}
}

func TestRunRejectsOverflowWithQueueFullError(t *testing.T) {
	ft := &fakeTools{result: &mcp.CallToolResult{}}
	// Zero workers: nothing ever drains the queue, so the second request
	// (queue capacity 1) must be rejected with -32003.
	srv := newServer(&dispatcher{tools: ft}, Options{Workers: 0, QueueSize: 1, DefaultMode: modeJSONL}, nil)
	srv.opts.Workers = 0 // normalized() would otherwise floor this to 4; force it back for the test

	input := frameJSONL(t, "ping", 1) + frameJSONL(t, "ping", 2) + frameJSONL(t, "ping", 3)
	var out bytes.Buffer

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = srv.Run(ctx, strings.NewReader(input), &out)

	if !strings.Contains(out.String(), "-32003") {
		t.Fatalf("output = %q, want a -32003 overloaded error for the request that didn't fit", out.String())
	}
}

func TestRunDrainsQueueBeforeReturning(t *testing.T) {
	ft := &fakeTools{result: &mcp.CallToolResult{}}
	srv := newServer(&dispatcher{tools: ft}, Options{Workers: 2, QueueSize: 8, DefaultMode: modeJSONL}, nil)

	var input strings.Builder
	for i := 1; i <= 5; i++ {
		input.WriteString(frameJSONL(t, "ping", i))
	}
	var out bytes.Buffer

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Run(ctx, strings.NewReader(input.String()), &out); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i := 1; i <= 5; i++ {
		want := `"id":` + itoa(i)
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing response for id %d: %q", i, out.String())
		}
	}
}
