package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// SymbolRow mirrors extractor.Symbol, as persisted.
type SymbolRow struct {
	SymbolID   string
	Path       string
	RootID     string
	Name       string
	Qualname   string
	Kind       string
	Line       int
	EndLine    int
	Content    string
	Parent     string
	MetaJSON   string
	DocComment string
}

// RelationRow mirrors extractor.Relation, as persisted.
type RelationRow struct {
	FromSymbolID string
	FromSymbol   string
	FromPath     string
	ToSymbolID   string
	ToSymbol     string
	ToPath       string
	RelType      string
	Line         int
}

// Formula-derived batch sizes: SQLite's 999-bind-variable limit, following
// the teacher's numNodeCols/numEdgeCols convention.
const numSymbolCols = 12
const symbolsBatchSize = 999 / numSymbolCols // = 83

const numRelationCols = 8
const relationsBatchSize = 999 / numRelationCols // = 124

// UpsertSymbolBatch inserts or updates symbols, deduped by
// (path, kind, qualname) as the Symbol entity's invariant requires.
func (s *Store) UpsertSymbolBatch(rows []SymbolRow) error {
	if len(rows) == 0 {
		return nil
	}
	for i := 0; i < len(rows); i += symbolsBatchSize {
		end := i + symbolsBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.upsertSymbolChunk(rows[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertSymbolChunk(batch []SymbolRow) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO symbols (symbol_id, path, root_id, name, qualname, kind, line, end_line, content, parent_name, meta_json, doc_comment)
		VALUES `)
	args := make([]any, 0, len(batch)*12)
	for i, r := range batch {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?,?,?,?,?,?,?,?,?,?)")
		args = append(args, r.SymbolID, r.Path, r.RootID, r.Name, r.Qualname, r.Kind, r.Line, r.EndLine, r.Content, r.Parent, r.MetaJSON, r.DocComment)
	}
	sb.WriteString(` ON CONFLICT(path, kind, qualname) DO UPDATE SET
		symbol_id=excluded.symbol_id, name=excluded.name, line=excluded.line, end_line=excluded.end_line,
		content=excluded.content, parent_name=excluded.parent_name, meta_json=excluded.meta_json, doc_comment=excluded.doc_comment`)

	if _, err := s.q.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("upsert symbol batch: %w", err)
	}
	return nil
}

// DeleteSymbolsByPath removes all symbols (and, via cascade, nothing else —
// relations are not FK-owned since they may reference symbols outside this
// file) for one file, ahead of inserting its fresh extraction.
func (s *Store) DeleteSymbolsByPath(path string) error {
	_, err := s.q.Exec(`DELETE FROM symbols WHERE path=?`, path)
	return err
}

// InsertRelationBatch appends relation rows (relations are not deduplicated
// beyond their natural occurrence in one file's extraction; stale relations
// for a path are cleared first by the caller via DeleteRelationsByFromPath).
func (s *Store) InsertRelationBatch(rows []RelationRow) error {
	if len(rows) == 0 {
		return nil
	}
	for i := 0; i < len(rows); i += relationsBatchSize {
		end := i + relationsBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.insertRelationChunk(rows[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertRelationChunk(batch []RelationRow) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO symbol_relations (from_symbol_id, from_symbol, from_path, to_symbol_id, to_symbol, to_path, rel_type, line) VALUES `)
	args := make([]any, 0, len(batch)*8)
	for i, r := range batch {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?,?,?,?,?,?)")
		args = append(args, r.FromSymbolID, r.FromSymbol, r.FromPath, r.ToSymbolID, r.ToSymbol, r.ToPath, r.RelType, r.Line)
	}
	if _, err := s.q.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("insert relation batch: %w", err)
	}
	return nil
}

// DeleteRelationsByFromPath clears relations previously extracted from a
// file, so a re-extraction doesn't accumulate stale edges.
func (s *Store) DeleteRelationsByFromPath(path string) error {
	_, err := s.q.Exec(`DELETE FROM symbol_relations WHERE from_path=?`, path)
	return err
}

// ListSymbolsByPath returns a file's symbol tree in source order.
func (s *Store) ListSymbolsByPath(path string) ([]*SymbolRow, error) {
	rows, err := s.q.Query(`SELECT symbol_id, path, root_id, name, qualname, kind, line, end_line, content, parent_name, meta_json, doc_comment
		FROM symbols WHERE path=? ORDER BY line`, path)
	if err != nil {
		return nil, fmt.Errorf("list symbols by path: %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// FindSymbolsByName returns every symbol named exactly name, across files.
func (s *Store) FindSymbolsByName(name string) ([]*SymbolRow, error) {
	rows, err := s.q.Query(`SELECT symbol_id, path, root_id, name, qualname, kind, line, end_line, content, parent_name, meta_json, doc_comment
		FROM symbols WHERE name=?`, name)
	if err != nil {
		return nil, fmt.Errorf("find symbols by name: %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// GetSymbolBlock looks up one symbol's (line, end_line, content) by path
// and name, used as the AST-edit contract's DB fallback when tree-sitter
// cannot relocate a symbol's span.
func (s *Store) GetSymbolBlock(path, name string) (*SymbolRow, error) {
	row := s.q.QueryRow(`SELECT symbol_id, path, root_id, name, qualname, kind, line, end_line, content, parent_name, meta_json, doc_comment
		FROM symbols WHERE path=? AND name=? LIMIT 1`, path, name)
	var sym SymbolRow
	err := row.Scan(&sym.SymbolID, &sym.Path, &sym.RootID, &sym.Name, &sym.Qualname, &sym.Kind, &sym.Line, &sym.EndLine, &sym.Content, &sym.Parent, &sym.MetaJSON, &sym.DocComment)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get symbol block: %w", err)
	}
	return &sym, nil
}

// FindCallers returns relations where to_symbol (or to_symbol_id, when
// resolved) equals the given symbol, i.e. "who calls this".
func (s *Store) FindCallers(symbolName string, relTypes []string) ([]*RelationRow, error) {
	q := `SELECT from_symbol_id, from_symbol, from_path, to_symbol_id, to_symbol, to_path, rel_type, line
		FROM symbol_relations WHERE to_symbol=?`
	args := []any{symbolName}
	if len(relTypes) > 0 {
		placeholders := make([]string, len(relTypes))
		for i, t := range relTypes {
			placeholders[i] = "?"
			args = append(args, t)
		}
		q += ` AND rel_type IN (` + strings.Join(placeholders, ",") + `)`
	}
	rows, err := s.q.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("find callers: %w", err)
	}
	defer rows.Close()
	return scanRelations(rows)
}

// FindImplementations returns relations of type extends/implements whose
// to_symbol equals the given interface/class name.
func (s *Store) FindImplementations(symbolName string) ([]*RelationRow, error) {
	rows, err := s.q.Query(`SELECT from_symbol_id, from_symbol, from_path, to_symbol_id, to_symbol, to_path, rel_type, line
		FROM symbol_relations WHERE to_symbol=? AND rel_type IN ('extends','implements')`, symbolName)
	if err != nil {
		return nil, fmt.Errorf("find implementations: %w", err)
	}
	defer rows.Close()
	return scanRelations(rows)
}

func scanSymbols(rows *sql.Rows) ([]*SymbolRow, error) {
	var out []*SymbolRow
	for rows.Next() {
		var sym SymbolRow
		if err := rows.Scan(&sym.SymbolID, &sym.Path, &sym.RootID, &sym.Name, &sym.Qualname, &sym.Kind, &sym.Line, &sym.EndLine, &sym.Content, &sym.Parent, &sym.MetaJSON, &sym.DocComment); err != nil {
			return nil, err
		}
		out = append(out, &sym)
	}
	return out, rows.Err()
}

func scanRelations(rows *sql.Rows) ([]*RelationRow, error) {
	var out []*RelationRow
	for rows.Next() {
		var r RelationRow
		if err := rows.Scan(&r.FromSymbolID, &r.FromSymbol, &r.FromPath, &r.ToSymbolID, &r.ToSymbol, &r.ToPath, &r.RelType, &r.Line); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
