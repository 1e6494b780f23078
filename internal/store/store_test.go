package store

import "testing"

func TestOpenMemory(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	s.Close()
}

func TestRootCRUD(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.UpsertRoot("root-abc", "/home/user/project", "project"); err != nil {
		t.Fatalf("UpsertRoot: %v", err)
	}
	r, err := s.GetRoot("root-abc")
	if err != nil {
		t.Fatal(err)
	}
	if r == nil || r.Path != "/home/user/project" {
		t.Fatalf("unexpected root: %+v", r)
	}

	roots, err := s.ListRoots()
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) != 1 {
		t.Fatalf("expected 1 root, got %d", len(roots))
	}
}

func TestUpsertFilesTurboStoresFileMeta(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.UpsertRoot("root-abc", "/w", "w"); err != nil {
		t.Fatal(err)
	}

	row := FileRow{
		DBPath: "root-abc/main.go", RootID: "root-abc", Repo: "w",
		Mtime: 100, Size: 20, ContentHash: "h1", FTSContent: "package main func hello",
		ParseStatus: "ok", ParseReason: "none", AstStatus: "ok", AstReason: "none", ScanTs: 1,
	}
	if err := s.UpsertFilesTurbo([]FileRow{row}); err != nil {
		t.Fatalf("UpsertFilesTurbo: %v", err)
	}

	meta, err := s.GetFileMeta("root-abc/main.go")
	if err != nil {
		t.Fatal(err)
	}
	if meta == nil || meta.ContentHash != "h1" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestSearchFindsMatchingFile(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.UpsertRoot("root-abc", "/w", "w"); err != nil {
		t.Fatal(err)
	}
	row := FileRow{
		DBPath: "root-abc/hello.go", RootID: "root-abc", Repo: "w",
		Mtime: 100, Size: 20, ContentHash: "h1", FTSContent: "func Hello prints a greeting to stdout",
		ParseStatus: "ok", ParseReason: "none", AstStatus: "ok", AstReason: "none", ScanTs: 1,
	}
	if err := s.UpsertFilesTurbo([]FileRow{row}); err != nil {
		t.Fatal(err)
	}

	hits, meta, err := s.Search(SearchOpts{Query: "greeting"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Path != "root-abc/hello.go" {
		t.Fatalf("expected one hit for hello.go, got %+v", hits)
	}
	if meta.Total != 1 {
		t.Fatalf("expected total 1, got %d", meta.Total)
	}
}

func TestSearchRespectsRepoFilter(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.UpsertRoot("root-abc", "/w", "w"); err != nil {
		t.Fatal(err)
	}
	rows := []FileRow{
		{DBPath: "root-abc/a/x.go", RootID: "root-abc", Repo: "a", FTSContent: "shared token alpha", ParseStatus: "ok", AstStatus: "ok", ScanTs: 1},
		{DBPath: "root-abc/b/y.go", RootID: "root-abc", Repo: "b", FTSContent: "shared token beta", ParseStatus: "ok", AstStatus: "ok", ScanTs: 1},
	}
	if err := s.UpsertFilesTurbo(rows); err != nil {
		t.Fatal(err)
	}
	hits, _, err := s.Search(SearchOpts{Query: "shared", Repo: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Repo != "a" {
		t.Fatalf("expected only repo a, got %+v", hits)
	}
}

func TestUpsertSymbolBatchDedupesByPathKindQualname(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.UpsertRoot("root-abc", "/w", "w"); err != nil {
		t.Fatal(err)
	}
	row := FileRow{DBPath: "root-abc/a.go", RootID: "root-abc", Repo: "w", ParseStatus: "ok", AstStatus: "ok", ScanTs: 1}
	if err := s.UpsertFilesTurbo([]FileRow{row}); err != nil {
		t.Fatal(err)
	}

	sym := SymbolRow{SymbolID: "sid1", Path: "root-abc/a.go", RootID: "root-abc", Name: "Foo", Qualname: "Foo", Kind: "function", Line: 1, EndLine: 3}
	if err := s.UpsertSymbolBatch([]SymbolRow{sym}); err != nil {
		t.Fatalf("UpsertSymbolBatch: %v", err)
	}
	sym.Line = 2 // re-extraction with a shifted line: should update, not duplicate
	if err := s.UpsertSymbolBatch([]SymbolRow{sym}); err != nil {
		t.Fatal(err)
	}

	symbols, err := s.ListSymbolsByPath("root-abc/a.go")
	if err != nil {
		t.Fatal(err)
	}
	if len(symbols) != 1 {
		t.Fatalf("expected exactly one symbol after re-upsert, got %d", len(symbols))
	}
	if symbols[0].Line != 2 {
		t.Fatalf("expected updated line 2, got %d", symbols[0].Line)
	}
}

func TestFindCallers(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	rel := RelationRow{FromSymbol: "Caller", FromPath: "a.go", ToSymbol: "Callee", RelType: "calls", Line: 5}
	if err := s.InsertRelationBatch([]RelationRow{rel}); err != nil {
		t.Fatal(err)
	}
	callers, err := s.FindCallers("Callee", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(callers) != 1 || callers[0].FromSymbol != "Caller" {
		t.Fatalf("expected Caller, got %+v", callers)
	}
}

func TestSnippetUpsertArchivesPriorVersion(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	sn := &Snippet{Tag: "important", Path: "a.go", StartLine: 1, EndLine: 5, Content: "v1", ContentHash: "h1"}
	if _, err := s.UpsertSnippet(sn); err != nil {
		t.Fatalf("UpsertSnippet: %v", err)
	}
	sn2 := &Snippet{Tag: "important", Path: "a.go", StartLine: 1, EndLine: 6, Content: "v2", ContentHash: "h2"}
	if _, err := s.UpsertSnippet(sn2); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetSnippet("important", "a.go")
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "v2" {
		t.Fatalf("expected latest content v2, got %q", got.Content)
	}
}

func TestContextCRUD(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	c := &Context{Topic: "auth-flow", Content: "uses OAuth2", Tags: []string{"auth", "security"}}
	if err := s.UpsertContext(c); err != nil {
		t.Fatalf("UpsertContext: %v", err)
	}
	got, err := s.GetContext("auth-flow")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Content != "uses OAuth2" {
		t.Fatalf("unexpected context: %+v", got)
	}
	if len(got.Tags) != 2 {
		t.Fatalf("expected 2 tags, got %v", got.Tags)
	}
}

func TestCountFailedTasks(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	id, err := s.EnqueueTask("reindex", "{}", 5)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.FailTask(id, "boom", 1, 1); err != nil {
		t.Fatal(err)
	}
	total, high, err := s.CountFailedTasks(1)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || high != 1 {
		t.Fatalf("expected (1,1), got (%d,%d)", total, high)
	}
}

func TestHasTableColumns(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ok, err := s.HasTableColumns("files", []string{"db_path", "content_hash"})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected files to have db_path and content_hash")
	}
	ok, err = s.HasTableColumns("files", []string{"nonexistent_column"})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected false for nonexistent column")
	}
}
