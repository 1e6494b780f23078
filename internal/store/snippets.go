package store

import (
	"database/sql"
	"fmt"
)

// Snippet is a tagged user save of a file range.
type Snippet struct {
	ID           int64
	Tag          string
	Path         string
	RootID       string
	StartLine    int
	EndLine      int
	Content      string
	ContentHash  string
	AnchorBefore string
	AnchorAfter  string
	Note         string
	Commit       string
	CreatedTs    int64
	UpdatedTs    int64
	MetaJSON     string
}

// UpsertSnippet creates or updates a (tag, path) snippet, appending the
// prior content (if any) to snippet_versions before overwriting.
func (s *Store) UpsertSnippet(sn *Snippet) (int64, error) {
	existing, err := s.GetSnippet(sn.Tag, sn.Path)
	if err != nil {
		return 0, err
	}
	now := Now()
	if existing != nil {
		if _, err := s.q.Exec(`INSERT INTO snippet_versions (snippet_id, content, content_hash, created_ts) VALUES (?,?,?,?)`,
			existing.ID, existing.Content, existing.ContentHash, existing.UpdatedTs); err != nil {
			return 0, fmt.Errorf("archive snippet version: %w", err)
		}
	}

	res, err := s.q.Exec(`
		INSERT INTO snippets (tag, path, root_id, start_line, end_line, content, content_hash, anchor_before, anchor_after, note, commit_sha, created_ts, updated_ts, meta_json)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(tag, path) DO UPDATE SET
			start_line=excluded.start_line, end_line=excluded.end_line, content=excluded.content,
			content_hash=excluded.content_hash, anchor_before=excluded.anchor_before, anchor_after=excluded.anchor_after,
			note=excluded.note, commit_sha=excluded.commit_sha, updated_ts=excluded.updated_ts, meta_json=excluded.meta_json`,
		sn.Tag, sn.Path, sn.RootID, sn.StartLine, sn.EndLine, sn.Content, sn.ContentHash, sn.AnchorBefore, sn.AnchorAfter,
		sn.Note, sn.Commit, now, now, sn.MetaJSON)
	if err != nil {
		return 0, fmt.Errorf("upsert snippet: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil || id == 0 {
		var realID int64
		if qerr := s.q.QueryRow(`SELECT id FROM snippets WHERE tag=? AND path=?`, sn.Tag, sn.Path).Scan(&realID); qerr != nil {
			return 0, fmt.Errorf("get snippet id: %w", qerr)
		}
		return realID, nil
	}
	return id, nil
}

// GetSnippet looks up a snippet by (tag, path).
func (s *Store) GetSnippet(tag, path string) (*Snippet, error) {
	row := s.q.QueryRow(`SELECT id, tag, path, root_id, start_line, end_line, content, content_hash, anchor_before, anchor_after, note, commit_sha, created_ts, updated_ts, meta_json
		FROM snippets WHERE tag=? AND path=?`, tag, path)
	return scanSnippet(row)
}

// ListSnippets returns every snippet tagged tag, or all snippets when tag
// is empty.
func (s *Store) ListSnippets(tag string) ([]*Snippet, error) {
	q := `SELECT id, tag, path, root_id, start_line, end_line, content, content_hash, anchor_before, anchor_after, note, commit_sha, created_ts, updated_ts, meta_json FROM snippets`
	var args []any
	if tag != "" {
		q += ` WHERE tag=?`
		args = append(args, tag)
	}
	q += ` ORDER BY updated_ts DESC`
	rows, err := s.q.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list snippets: %w", err)
	}
	defer rows.Close()
	var out []*Snippet
	for rows.Next() {
		sn, err := scanSnippet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

// DeleteSnippet removes a (tag, path) snippet and its version history.
func (s *Store) DeleteSnippet(tag, path string) error {
	sn, err := s.GetSnippet(tag, path)
	if err != nil {
		return err
	}
	if sn == nil {
		return nil
	}
	if _, err := s.q.Exec(`DELETE FROM snippet_versions WHERE snippet_id=?`, sn.ID); err != nil {
		return fmt.Errorf("delete snippet versions: %w", err)
	}
	_, err = s.q.Exec(`DELETE FROM snippets WHERE id=?`, sn.ID)
	return err
}

// RelinkSnippet rewrites a snippet's anchors after the underlying file has
// shifted, part of the knowledge tool's "relink" action.
func (s *Store) RelinkSnippet(tag, path string, newStart, newEnd int, newAnchorBefore, newAnchorAfter string) error {
	_, err := s.q.Exec(`UPDATE snippets SET start_line=?, end_line=?, anchor_before=?, anchor_after=?, updated_ts=? WHERE tag=? AND path=?`,
		newStart, newEnd, newAnchorBefore, newAnchorAfter, Now(), tag, path)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnippet(row rowScanner) (*Snippet, error) {
	var sn Snippet
	err := row.Scan(&sn.ID, &sn.Tag, &sn.Path, &sn.RootID, &sn.StartLine, &sn.EndLine, &sn.Content, &sn.ContentHash,
		&sn.AnchorBefore, &sn.AnchorAfter, &sn.Note, &sn.Commit, &sn.CreatedTs, &sn.UpdatedTs, &sn.MetaJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan snippet: %w", err)
	}
	return &sn, nil
}
