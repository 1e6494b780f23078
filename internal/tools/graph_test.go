package tools

import "testing"

func TestHandleGetCallers(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "get_callers", map[string]any{"name": "hello"})
	if isErr {
		t.Fatalf("unexpected error: %v", out)
	}
	callers, _ := out["callers"].([]any)
	if len(callers) == 0 {
		t.Fatalf("expected caller() to show up as a caller of hello(), got %v", out)
	}
	entry, _ := callers[0].(map[string]any)
	if entry["from_symbol"] != "caller" {
		t.Fatalf("expected from_symbol=caller, got %v", entry)
	}
}

func TestHandleGetCallersRequiresName(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "get_callers", map[string]any{})
	if !isErr {
		t.Fatalf("expected error, got %v", out)
	}
	if errCode(out) != string(CodeInvalidArgs) {
		t.Fatalf("expected %s, got %v", CodeInvalidArgs, out)
	}
}

func TestHandleCallGraph(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "call_graph", map[string]any{"name": "hello", "max_depth": 3})
	if isErr {
		t.Fatalf("unexpected error: %v", out)
	}
	nodes, _ := out["nodes"].([]any)
	found := false
	for _, n := range nodes {
		if n == "caller" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected caller to appear in the call graph's nodes, got %v", out)
	}
}

func TestHandleGetImplementationsNoMatches(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "get_implementations", map[string]any{"name": "NoSuchInterface"})
	if isErr {
		t.Fatalf("unexpected error: %v", out)
	}
	impls, _ := out["implementations"].([]any)
	if len(impls) != 0 {
		t.Fatalf("expected no implementations, got %v", out)
	}
}
