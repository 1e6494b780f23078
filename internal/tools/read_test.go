package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/BaeCheolHan/sari-sub000/internal/stabilization"
)

func TestHandleReadFileMode(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "read", map[string]any{
		"mode":   "file",
		"target": env.rootID + "/pkg/app.py",
	})
	if isErr {
		t.Fatalf("unexpected error: %v", out)
	}
	content, _ := out["content"].([]any)
	if len(content) != 1 {
		t.Fatalf("expected one content entry, got %v", out)
	}
}

// TestHandleReadFileModeSoftLimit exercises spec scenario S3: a requested
// limit above max_range_lines is auto-chunked down, reported as
// budget_state=SOFT_LIMIT with an auto-chunk warning.
func TestHandleReadFileModeSoftLimit(t *testing.T) {
	env := newTestEnv(t)
	var b strings.Builder
	for i := 0; i < 500; i++ {
		b.WriteString("x = 1\n")
	}
	writeFile(t, env.dir, "pkg/big.py", b.String())
	if _, _, err := env.ix.ScanOnce(context.Background()); err != nil {
		t.Fatalf("rescan: %v", err)
	}

	out, isErr := callTool(t, env.server, "read", map[string]any{
		"mode":   "file",
		"target": env.rootID + "/pkg/big.py",
		"limit":  1000,
	})
	if isErr {
		t.Fatalf("unexpected error: %v", out)
	}
	content, _ := out["content"].([]any)
	entry, _ := content[0].(map[string]any)
	text, _ := entry["text"].(string)
	lines := strings.Count(text, "\n") + 1
	if lines > 200 {
		t.Fatalf("expected content capped to <=200 lines, got %d", lines)
	}

	meta, _ := out["meta"].(map[string]any)
	stab, _ := meta["stabilization"].(map[string]any)
	if stab["budget_state"] != stabilization.BudgetSoftLimit {
		t.Fatalf("expected budget_state=%s, got %v", stabilization.BudgetSoftLimit, stab["budget_state"])
	}
	warnings, _ := stab["warnings"].([]any)
	found := false
	for _, w := range warnings {
		if s, ok := w.(string); ok && strings.Contains(s, "Auto-chunked") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an Auto-chunked warning, got %v", warnings)
	}
}

// TestHandleReadGateEnforceRejectsWithoutPriorSearch exercises spec
// scenario S2: in enforce mode, a read with no prior search in its
// session is rejected with SEARCH_FIRST_REQUIRED.
func TestHandleReadGateEnforceRejectsWithoutPriorSearch(t *testing.T) {
	cfg := stabilization.DefaultConfig()
	cfg.ReadGateMode = stabilization.GateEnforce
	env := newTestEnvWithConfig(t, cfg)

	out, isErr := callTool(t, env.server, "read", map[string]any{
		"mode":       "file",
		"target":     env.rootID + "/pkg/app.py",
		"session_id": "s1",
	})
	if !isErr {
		t.Fatalf("expected error, got %v", out)
	}
	if errCode(out) != string(CodeSearchFirstRequired) {
		t.Fatalf("expected %s, got %v", CodeSearchFirstRequired, out)
	}
}

// TestHandleReadGateEnforceAllowsAfterSearch confirms the same gate lets
// a read through once its session has a prior search on record.
func TestHandleReadGateEnforceAllowsAfterSearch(t *testing.T) {
	cfg := stabilization.DefaultConfig()
	cfg.ReadGateMode = stabilization.GateEnforce
	env := newTestEnvWithConfig(t, cfg)

	_, isErr := callTool(t, env.server, "search", map[string]any{"query": "hello", "session_id": "s1"})
	if isErr {
		t.Fatal("search itself must not error")
	}
	out, isErr := callTool(t, env.server, "read", map[string]any{
		"mode":       "file",
		"target":     env.rootID + "/pkg/app.py",
		"session_id": "s1",
	})
	if isErr {
		t.Fatalf("expected read to be allowed after a prior search, got %v", out)
	}
}

// TestHandleReadBudgetHardLimit exercises spec scenario S4: once a
// session's cumulative reads-since-search exceed max_reads_before_search,
// further reads are rejected with BUDGET_EXCEEDED.
func TestHandleReadBudgetHardLimit(t *testing.T) {
	cfg := stabilization.DefaultConfig()
	cfg.MaxReadsBeforeSearch = 2
	env := newTestEnvWithConfig(t, cfg)

	for i := 0; i < 2; i++ {
		_, isErr := callTool(t, env.server, "read", map[string]any{
			"mode": "file", "target": env.rootID + "/pkg/app.py", "session_id": "s1",
		})
		if isErr {
			t.Fatalf("read %d should not yet be rejected", i)
		}
	}
	out, isErr := callTool(t, env.server, "read", map[string]any{
		"mode": "file", "target": env.rootID + "/pkg/app.py", "session_id": "s1",
	})
	if !isErr {
		t.Fatalf("expected budget-exceeded error, got %v", out)
	}
	if errCode(out) != string(CodeBudgetExceeded) {
		t.Fatalf("expected %s, got %v", CodeBudgetExceeded, out)
	}
}

func TestHandleReadSymbolMode(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "read", map[string]any{
		"mode": "symbol",
		"path": env.rootID + "/pkg/app.py",
		"name": "hello",
	})
	if isErr {
		t.Fatalf("unexpected error: %v", out)
	}
	if out["qualname"] != "hello" {
		t.Fatalf("expected qualname=hello, got %v", out)
	}
}

func TestHandleReadRejectsUnknownMode(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "read", map[string]any{"mode": "bogus"})
	if !isErr {
		t.Fatalf("expected error, got %v", out)
	}
	if errCode(out) != string(CodeInvalidArgs) {
		t.Fatalf("expected %s, got %v", CodeInvalidArgs, out)
	}
}
