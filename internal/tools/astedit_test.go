package tools

import (
	"os"
	"testing"
)

// TestHandleReadASTEditVersionConflict exercises spec scenario S5: a
// mismatched expected_version_hash is rejected without touching the file.
func TestHandleReadASTEditVersionConflict(t *testing.T) {
	env := newTestEnv(t)
	out, isErr := callTool(t, env.server, "read", map[string]any{
		"mode":                  "ast_edit",
		"path":                  env.rootID + "/pkg/app.py",
		"expected_version_hash": "deadbeefcafe",
		"old_text":              "return 'hi'",
		"new_text":              "return 'bye'",
	})
	if !isErr {
		t.Fatalf("expected error, got %v", out)
	}
	if errCode(out) != string(CodeVersionConflict) {
		t.Fatalf("expected %s, got %v", CodeVersionConflict, out)
	}
}

// TestHandleReadASTEditOldTextReplace confirms a correctly hashed edit is
// applied and written back to disk.
func TestHandleReadASTEditOldTextReplace(t *testing.T) {
	env := newTestEnv(t)
	absPath := env.dir + "/pkg/app.py"
	content, err := os.ReadFile(absPath)
	if err != nil {
		t.Fatal(err)
	}
	hash := contentHashHex(content)

	out, isErr := callTool(t, env.server, "read", map[string]any{
		"mode":                  "ast_edit",
		"path":                  env.rootID + "/pkg/app.py",
		"expected_version_hash": hash,
		"old_text":              "return 'hi'",
		"new_text":              "return 'bye'",
	})
	if isErr {
		t.Fatalf("unexpected error: %v", out)
	}

	updated, err := os.ReadFile(absPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(updated); !contains(got, "return 'bye'") {
		t.Fatalf("expected file to contain the replacement, got %q", got)
	}
}

// TestHandleReadASTEditMalformedSyntaxLeavesFileUntouched exercises the
// §4.8 invariant: new_text that fails to parse for the target language
// must not be written to disk, leaving the file byte-identical.
func TestHandleReadASTEditMalformedSyntaxLeavesFileUntouched(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, env.dir, "pkg/broken.go", "package pkg\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n")
	absPath := env.dir + "/pkg/broken.go"
	original, err := os.ReadFile(absPath)
	if err != nil {
		t.Fatal(err)
	}
	hash := contentHashHex(original)

	out, isErr := callTool(t, env.server, "read", map[string]any{
		"mode":                  "ast_edit",
		"path":                  env.rootID + "/pkg/broken.go",
		"expected_version_hash": hash,
		"old_text":              "return \"hi\"",
		"new_text":              "return \"hi\" +++ )(",
	})
	if !isErr {
		t.Fatalf("expected a syntax-check error, got %v", out)
	}
	if errCode(out) != string(CodeInvalidArgs) {
		t.Fatalf("expected %s, got %v", CodeInvalidArgs, out)
	}

	after, err := os.ReadFile(absPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != string(original) {
		t.Fatalf("file must remain byte-identical after a failed syntax check")
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}
