// Package store is the persistent layer: files, symbols, relations,
// snippets, contexts, roots, a task retry queue, and an FTS5 index over
// normalized body text. Single designated writer identity; many readers.
//
// Grounded on the teacher's internal/store package: the Querier
// abstraction over *sql.DB/*sql.Tx, WithTransaction's transaction-scoped
// Store clone, Open/OpenPath/OpenMemory, and the idempotent
// migration-by-pragma_table_xinfo pattern — generalized from a
// single-project node/edge graph to the spec's multi-root file/symbol
// schema with a real FTS5 virtual table in place of Go-side LIKE scans.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Querier abstracts *sql.DB and *sql.Tx so store methods work in both
// contexts, exactly as in the teacher.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store wraps a SQLite connection for one workspace's index.
type Store struct {
	db     *sql.DB
	q      Querier // active querier: db or tx
	dbPath string
}

// cacheDir returns the default cache directory for per-workspace databases.
func cacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	dir := filepath.Join(home, ".cache", "sari-mcp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir cache: %w", err)
	}
	return dir, nil
}

// Open opens or creates the SQLite database for a named workspace under the
// default cache directory.
func Open(name string) (*Store, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, err
	}
	return OpenPath(filepath.Join(dir, name+".db"))
}

// OpenPath opens a SQLite database at the given path with WAL journaling
// and a busy-timeout tuned for a single writer / many readers workload.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &Store{db: db, dbPath: dbPath}
	s.q = s.db
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// OpenMemory opens an in-memory SQLite database, for tests.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	s := &Store{db: db, dbPath: ":memory:"}
	s.q = s.db
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// WithTransaction executes fn within a single SQLite transaction. The
// callback receives a transaction-scoped Store; all store methods called on
// txStore participate in the transaction. The receiver's q field is never
// mutated, so concurrent read-only handlers (using s.q == s.db) are
// unaffected.
func (s *Store) WithTransaction(fn func(txStore *Store) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txStore := &Store{db: s.db, q: tx, dbPath: s.dbPath}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// DBPath returns the path this store's database was opened from, ":memory:"
// for OpenMemory, matching the teacher's Store.DBPath accessor used by its
// CLI harness's human-readable summaries.
func (s *Store) DBPath() string { return s.dbPath }

// DB returns the underlying sql.DB for advanced/ad-hoc queries.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS roots (
		root_id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		label TEXT NOT NULL DEFAULT '',
		created_ts INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS files (
		db_path TEXT PRIMARY KEY,
		root_id TEXT NOT NULL REFERENCES roots(root_id) ON DELETE CASCADE,
		repo TEXT NOT NULL DEFAULT '',
		mtime INTEGER NOT NULL DEFAULT 0,
		size INTEGER NOT NULL DEFAULT 0,
		content_hash TEXT NOT NULL DEFAULT '',
		content BLOB,
		fts_content TEXT NOT NULL DEFAULT '',
		metadata_json TEXT NOT NULL DEFAULT '{}',
		parse_status TEXT NOT NULL DEFAULT 'ok',
		parse_reason TEXT NOT NULL DEFAULT 'none',
		ast_status TEXT NOT NULL DEFAULT 'ok',
		ast_reason TEXT NOT NULL DEFAULT 'none',
		is_binary INTEGER NOT NULL DEFAULT 0,
		is_minified INTEGER NOT NULL DEFAULT 0,
		scan_ts INTEGER NOT NULL DEFAULT 0,
		deleted_ts INTEGER,
		importance_score REAL NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_files_root ON files(root_id);
	CREATE INDEX IF NOT EXISTS idx_files_repo ON files(repo);
	CREATE INDEX IF NOT EXISTS idx_files_deleted ON files(deleted_ts);

	CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts5(
		db_path UNINDEXED, repo UNINDEXED, body,
		tokenize = 'unicode61 remove_diacritics 2'
	);

	CREATE TABLE IF NOT EXISTS symbols (
		symbol_id TEXT PRIMARY KEY,
		path TEXT NOT NULL REFERENCES files(db_path) ON DELETE CASCADE,
		root_id TEXT NOT NULL,
		name TEXT NOT NULL,
		qualname TEXT NOT NULL,
		kind TEXT NOT NULL,
		line INTEGER NOT NULL DEFAULT 0,
		end_line INTEGER NOT NULL DEFAULT 0,
		content TEXT NOT NULL DEFAULT '',
		parent_name TEXT NOT NULL DEFAULT '',
		meta_json TEXT NOT NULL DEFAULT '{}',
		doc_comment TEXT NOT NULL DEFAULT '',
		importance_score REAL NOT NULL DEFAULT 0,
		UNIQUE(path, kind, qualname)
	);

	CREATE INDEX IF NOT EXISTS idx_symbols_path ON symbols(path);
	CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
	CREATE INDEX IF NOT EXISTS idx_symbols_root ON symbols(root_id);

	CREATE TABLE IF NOT EXISTS symbol_relations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_symbol_id TEXT NOT NULL DEFAULT '',
		from_symbol TEXT NOT NULL DEFAULT '',
		from_path TEXT NOT NULL,
		to_symbol_id TEXT NOT NULL DEFAULT '',
		to_symbol TEXT NOT NULL DEFAULT '',
		to_path TEXT NOT NULL DEFAULT '',
		rel_type TEXT NOT NULL,
		line INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_relations_from ON symbol_relations(from_symbol_id, rel_type);
	CREATE INDEX IF NOT EXISTS idx_relations_to ON symbol_relations(to_symbol_id, rel_type);
	CREATE INDEX IF NOT EXISTS idx_relations_to_name ON symbol_relations(to_symbol, rel_type);
	CREATE INDEX IF NOT EXISTS idx_relations_from_path ON symbol_relations(from_path);

	CREATE TABLE IF NOT EXISTS snippets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tag TEXT NOT NULL,
		path TEXT NOT NULL,
		root_id TEXT NOT NULL DEFAULT '',
		start_line INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		content TEXT NOT NULL,
		content_hash TEXT NOT NULL DEFAULT '',
		anchor_before TEXT NOT NULL DEFAULT '',
		anchor_after TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		commit_sha TEXT NOT NULL DEFAULT '',
		created_ts INTEGER NOT NULL,
		updated_ts INTEGER NOT NULL,
		meta_json TEXT NOT NULL DEFAULT '{}',
		UNIQUE(tag, path)
	);

	CREATE TABLE IF NOT EXISTS snippet_versions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		snippet_id INTEGER NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		created_ts INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS contexts (
		topic TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		tags_json TEXT NOT NULL DEFAULT '[]',
		related_files_json TEXT NOT NULL DEFAULT '[]',
		source TEXT NOT NULL DEFAULT '',
		valid_from INTEGER,
		valid_until INTEGER,
		deprecated INTEGER NOT NULL DEFAULT 0,
		updated_ts INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		payload_json TEXT NOT NULL DEFAULT '{}',
		attempts INTEGER NOT NULL DEFAULT 0,
		state TEXT NOT NULL DEFAULT 'pending',
		priority INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		next_run_ts INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_state ON tasks(state, next_run_ts);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Idempotent migration, mirroring the teacher's pragma_table_xinfo
	// existence-check pattern: add importance_score to files if an older
	// schema predates it.
	var colCount int
	_ = s.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_xinfo('files') WHERE name='importance_score'`).Scan(&colCount)
	if colCount == 0 {
		if _, err := s.db.Exec(`ALTER TABLE files ADD COLUMN importance_score REAL NOT NULL DEFAULT 0`); err != nil {
			slog.Warn("schema.importance_score.skip", "err", err)
		}
	}

	return nil
}

// HasTableColumns reports whether every column in cols exists on table,
// per spec.md's "has_table_columns diagnostic" invariant: missing critical
// columns are a DB_ERROR condition for callers, not a silent crash.
func (s *Store) HasTableColumns(table string, cols []string) (bool, error) {
	rows, err := s.q.Query(`SELECT name FROM pragma_table_xinfo(?)`, table)
	if err != nil {
		return false, fmt.Errorf("has_table_columns: %w", err)
	}
	defer rows.Close()
	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		present[name] = true
	}
	for _, c := range cols {
		if !present[c] {
			return false, nil
		}
	}
	return true, nil
}

// HasLegacyPaths reports whether any stored db_path lacks the "root-"
// prefix, per the §6 "Legacy DB-paths are tolerated on read" contract.
func (s *Store) HasLegacyPaths() (bool, error) {
	var count int
	err := s.q.QueryRow(`SELECT COUNT(*) FROM files WHERE db_path NOT LIKE 'root-%' LIMIT 1`).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("has_legacy_paths: %w", err)
	}
	return count > 0, nil
}

// Now returns the current Unix timestamp, the storage layer's single
// source of "current time" so callers never call time.Now() directly.
func Now() int64 { return time.Now().Unix() }
