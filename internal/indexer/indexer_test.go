package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/BaeCheolHan/sari-sub000/internal/pathutil"
	"github.com/BaeCheolHan/sari-sub000/internal/scanner"
	"github.com/BaeCheolHan/sari-sub000/internal/store"
)

func newTestWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app.py"), []byte("def hello():\n    return 'hi'\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# hello project\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestScanOnceIndexesFiles(t *testing.T) {
	dir := newTestWorkspace(t)
	st, err := store.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	ix := New(st, Leader)
	normRoot, err := pathutil.NormalizeRoot(dir)
	if err != nil {
		t.Fatal(err)
	}
	rootID := pathutil.RootID(normRoot)
	if err := ix.AddRoot(Root{ID: rootID, Path: normRoot, Label: "ws", Config: scanner.Config{}}); err != nil {
		t.Fatal(err)
	}

	scanned, indexed, err := ix.ScanOnce(context.Background())
	if err != nil {
		t.Fatalf("ScanOnce: %v", err)
	}
	if scanned != 2 {
		t.Fatalf("expected 2 scanned files, got %d", scanned)
	}
	if indexed != 2 {
		t.Fatalf("expected 2 indexed files, got %d", indexed)
	}

	status := ix.Status()
	if !status.IndexReady {
		t.Fatal("expected index_ready=true after scan_once")
	}
}

func TestScanOnceRejectedInFollowerMode(t *testing.T) {
	st, err := store.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	ix := New(st, Follower)
	_, _, err = ix.ScanOnce(context.Background())
	if err != ErrIndexerFollower {
		t.Fatalf("expected ErrIndexerFollower, got %v", err)
	}
}

func TestRescanRejectedInOffMode(t *testing.T) {
	st, err := store.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	ix := New(st, Off)
	if err := ix.Rescan(); err != ErrIndexerDisabled {
		t.Fatalf("expected ErrIndexerDisabled, got %v", err)
	}
}

func TestRescanCoalescesWhilePending(t *testing.T) {
	st, err := store.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	ix := New(st, Leader)

	if err := ix.Rescan(); err != nil {
		t.Fatalf("Rescan: %v", err)
	}
	if err := ix.Rescan(); err != nil {
		t.Fatalf("second Rescan: %v", err)
	}
	if !ix.PopRescanRequest() {
		t.Fatal("expected a pending rescan request")
	}
	if ix.PopRescanRequest() {
		t.Fatal("expected the second rescan request to have been coalesced away")
	}
}

func TestIndexFileEnqueuesOnPriorityQueue(t *testing.T) {
	dir := newTestWorkspace(t)
	st, err := store.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	ix := New(st, Leader)
	normRoot, err := pathutil.NormalizeRoot(dir)
	if err != nil {
		t.Fatal(err)
	}
	rootID := pathutil.RootID(normRoot)
	if err := ix.AddRoot(Root{ID: rootID, Path: normRoot, Label: "ws"}); err != nil {
		t.Fatal(err)
	}

	if err := ix.IndexFile(rootID, filepath.Join(normRoot, "app.py")); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	_, priority := ix.QueueDepths()
	if priority != 1 {
		t.Fatalf("expected priority queue depth 1, got %d", priority)
	}
}

func TestIndexFileRejectedInFollowerMode(t *testing.T) {
	st, err := store.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	ix := New(st, Follower)
	if err := ix.IndexFile("root-x", "/tmp/x.go"); err != ErrIndexerFollower {
		t.Fatalf("expected ErrIndexerFollower, got %v", err)
	}
}
