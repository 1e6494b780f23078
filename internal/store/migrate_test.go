package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func writeLegacyGraphDB(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open legacy db: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE nodes (id TEXT, project TEXT, label TEXT, name TEXT, qualified_name TEXT, file_path TEXT, start_line INT, end_line INT, properties TEXT)`,
		`CREATE TABLE edges (id TEXT, project TEXT, source_id TEXT, target_id TEXT, type TEXT, properties TEXT)`,
		`INSERT INTO nodes VALUES ('n1','demo','Function','helper','pkg.helper','pkg/helper.go',10,20,'{}')`,
		`INSERT INTO nodes VALUES ('n2','demo','Function','main','pkg.main','pkg/main.go',1,5,'{}')`,
		`INSERT INTO edges VALUES ('e1','demo','n2','n1','calls','{}')`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
}

func TestMigrateLegacyGraph(t *testing.T) {
	dir := t.TempDir()
	legacyPath := filepath.Join(dir, "legacy.db")
	writeLegacyGraphDB(t, legacyPath)

	s, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	symbols, relations, err := s.MigrateLegacyGraph(legacyPath, "demo", "root-xyz")
	if err != nil {
		t.Fatalf("MigrateLegacyGraph: %v", err)
	}
	if symbols != 2 {
		t.Fatalf("symbols = %d, want 2", symbols)
	}
	if relations != 1 {
		t.Fatalf("relations = %d, want 1", relations)
	}

	rows, err := s.ListSymbolsByPath("pkg/helper.go")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Qualname != "pkg.helper" {
		t.Fatalf("ListSymbolsByPath = %+v", rows)
	}
}

func TestMigrateLegacyGraphMissingFileErrors(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, _, err := s.MigrateLegacyGraph(filepath.Join(t.TempDir(), "nope.db"), "demo", "root-xyz"); err == nil {
		t.Fatalf("expected an error opening a nonexistent legacy db path")
	}
}
