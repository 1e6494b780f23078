package tools

import "testing"

func TestHandleListFilesSummary(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "list_files", map[string]any{})
	if isErr {
		t.Fatalf("unexpected error: %v", out)
	}
	repos, _ := out["repos"].([]any)
	if len(repos) == 0 {
		t.Fatalf("expected at least one repo summary, got %v", out)
	}
}

func TestHandleListFilesPaginated(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "list_files", map[string]any{"repo": "pkg", "limit": 10})
	if isErr {
		t.Fatalf("unexpected error: %v", out)
	}
	files, _ := out["files"].([]any)
	if len(files) == 0 {
		t.Fatalf("expected at least one file, got %v", out)
	}
}

func TestHandleListSymbols(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "list_symbols", map[string]any{"path": env.rootID + "/pkg/app.py"})
	if isErr {
		t.Fatalf("unexpected error: %v", out)
	}
	symbols, _ := out["symbols"].([]any)
	if len(symbols) < 2 {
		t.Fatalf("expected hello and caller symbols, got %v", out)
	}
}

func TestHandleListSymbolsRequiresPath(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "list_symbols", map[string]any{})
	if !isErr {
		t.Fatalf("expected error, got %v", out)
	}
	if errCode(out) != string(CodeInvalidArgs) {
		t.Fatalf("expected %s, got %v", CodeInvalidArgs, out)
	}
}
