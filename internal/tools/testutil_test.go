package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/BaeCheolHan/sari-sub000/internal/indexer"
	"github.com/BaeCheolHan/sari-sub000/internal/pathutil"
	"github.com/BaeCheolHan/sari-sub000/internal/scanner"
	"github.com/BaeCheolHan/sari-sub000/internal/search"
	"github.com/BaeCheolHan/sari-sub000/internal/stabilization"
	"github.com/BaeCheolHan/sari-sub000/internal/store"
)

// testEnv bundles a tiny on-disk workspace, fully scanned into an
// in-memory store, wired into a Server — everything a tool-handler test
// needs without touching the MCP transport.
type testEnv struct {
	dir    string
	rootID string
	store  *store.Store
	ix     *indexer.Indexer
	server *Server
}

func newTestEnvWithConfig(t *testing.T, stabCfg stabilization.Config) *testEnv {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "pkg/app.py", "def hello():\n    return 'hi'\n\n\ndef caller():\n    return hello()\n")

	st, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ix := indexer.New(st, indexer.Leader)
	normRoot, err := pathutil.NormalizeRoot(dir)
	if err != nil {
		t.Fatal(err)
	}
	rootID := pathutil.RootID(normRoot)
	if err := ix.AddRoot(indexer.Root{ID: rootID, Path: normRoot, Label: "ws", Config: scanner.Config{}}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ix.ScanOnce(context.Background()); err != nil {
		t.Fatalf("ScanOnce: %v", err)
	}

	srv := NewServer(&Context{
		Store:         st,
		Dispatcher:    search.New(st),
		Indexer:       ix,
		Stabilization: stabilization.New(stabCfg),
		AllowedRoots:  []string{normRoot},
	})
	return &testEnv{dir: dir, rootID: rootID, store: st, ix: ix, server: srv}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, stabilization.DefaultConfig())
}

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return full
}

// callTool invokes a registered tool by name and decodes its sole text
// content as JSON, regardless of success/error shape.
func callTool(t *testing.T, srv *Server, name string, args map[string]any) (map[string]any, bool) {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatal(err)
	}
	res, err := srv.CallTool(context.Background(), name, raw)
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	var text string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			text = tc.Text
		}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("unmarshal result for %s: %v (text=%s)", name, err, text)
	}
	return out, res.IsError
}

func errCode(out map[string]any) string {
	errObj, _ := out["error"].(map[string]any)
	code, _ := errObj["code"].(string)
	return code
}
