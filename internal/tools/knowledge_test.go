package tools

import "testing"

func TestHandleKnowledgeContextSaveRequiresContextRef(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "knowledge", map[string]any{
		"action": "save", "kind": "context", "topic": "auth-flow", "content": "uses JWT",
	})
	if !isErr {
		t.Fatalf("expected context save with no context_ref to be rejected, got %v", out)
	}
	if errCode(out) != string(CodeInvalidArgs) {
		t.Fatalf("expected %s, got %v", CodeInvalidArgs, out)
	}
}

func TestHandleKnowledgeContextSaveRejectsMismatchedRef(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "knowledge", map[string]any{
		"action": "save", "kind": "context", "topic": "auth-flow", "content": "uses JWT", "context_ref": "0000000000",
	})
	if !isErr {
		t.Fatalf("expected a hash mismatch to be rejected, got %v", out)
	}
	if errCode(out) != string(CodeVersionConflict) {
		t.Fatalf("expected %s, got %v", CodeVersionConflict, out)
	}
}

func TestHandleKnowledgeContextSaveAndRecall(t *testing.T) {
	env := newTestEnv(t)
	content := "uses JWT bearer tokens"
	ref := contentHashHex([]byte(content))

	out, isErr := callTool(t, env.server, "knowledge", map[string]any{
		"action": "save", "kind": "context", "topic": "auth-flow", "content": content, "context_ref": ref,
	})
	if isErr {
		t.Fatalf("unexpected error: %v", out)
	}
	if out["saved"] != true {
		t.Fatalf("expected saved=true, got %v", out)
	}

	out, isErr = callTool(t, env.server, "knowledge", map[string]any{
		"action": "recall", "kind": "context", "topic": "auth-flow",
	})
	if isErr {
		t.Fatalf("unexpected error on recall: %v", out)
	}
	ctx, _ := out["context"].(map[string]any)
	if ctx["Content"] != content && ctx["content"] != content {
		t.Fatalf("expected recalled content to round-trip, got %v", out)
	}
}

func TestHandleKnowledgeSnippetSaveAndRecall(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "knowledge", map[string]any{
		"action": "save", "kind": "snippet", "tag": "hello-impl",
		"path": env.rootID + "/pkg/app.py", "content": "def hello():\n    return 'hi'",
		"start_line": 1, "end_line": 2,
	})
	if isErr {
		t.Fatalf("unexpected error: %v", out)
	}
	if out["saved"] != true {
		t.Fatalf("expected saved=true, got %v", out)
	}

	out, isErr = callTool(t, env.server, "knowledge", map[string]any{
		"action": "recall", "kind": "snippet", "tag": "hello-impl",
	})
	if isErr {
		t.Fatalf("unexpected error on recall: %v", out)
	}
	if out["snippet"] == nil {
		t.Fatalf("expected a snippet back, got %v", out)
	}
}
