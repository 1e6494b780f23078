package tools

import "testing"

func TestHandleSearchCode(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "search", map[string]any{"query": "hello", "search_type": "code"})
	if isErr {
		t.Fatalf("unexpected error: %v", out)
	}
	if out["resolved_type"] != "code" {
		t.Fatalf("expected resolved_type=code, got %v", out)
	}
	hits, _ := out["hits"].([]any)
	if len(hits) == 0 {
		t.Fatalf("expected at least one hit, got %v", out)
	}
}

func TestHandleSearchRequiresQuery(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "search", map[string]any{"query": ""})
	if !isErr {
		t.Fatalf("expected error, got %v", out)
	}
	if errCode(out) != string(CodeInvalidArgs) {
		t.Fatalf("expected %s, got %v", CodeInvalidArgs, out)
	}
}

func TestHandleSearchSymbol(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "search", map[string]any{"query": "hello", "search_type": "symbol"})
	if isErr {
		t.Fatalf("unexpected error: %v", out)
	}
	hits, _ := out["hits"].([]any)
	if len(hits) == 0 {
		t.Fatalf("expected at least one symbol hit, got %v", out)
	}
}
