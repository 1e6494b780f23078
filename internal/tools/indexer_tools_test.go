package tools

import "testing"

func TestHandleIndexerStatus(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "status", map[string]any{})
	if isErr {
		t.Fatalf("unexpected error: %v", out)
	}
	if out["mode"] != "leader" {
		t.Fatalf("expected mode=leader, got %v", out)
	}
	indexed, _ := out["indexed_files"].(float64)
	if indexed < 1 {
		t.Fatalf("expected at least one indexed file, got %v", out)
	}
}

func TestHandleScanOnce(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, env.dir, "pkg/more.py", "def extra():\n    pass\n")
	out, isErr := callTool(t, env.server, "scan_once", map[string]any{})
	if isErr {
		t.Fatalf("unexpected error: %v", out)
	}
	scanned, _ := out["scanned"].(float64)
	if scanned < 1 {
		t.Fatalf("expected at least one file scanned, got %v", out)
	}
}

func TestHandleRescan(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "rescan", map[string]any{})
	if isErr {
		t.Fatalf("unexpected error: %v", out)
	}
	if out["requested"] != true {
		t.Fatalf("expected requested=true, got %v", out)
	}
}

func TestHandleIndexFileRequiresArgs(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "index_file", map[string]any{})
	if !isErr {
		t.Fatalf("expected error, got %v", out)
	}
	if errCode(out) != string(CodeInvalidArgs) {
		t.Fatalf("expected %s, got %v", CodeInvalidArgs, out)
	}
}
