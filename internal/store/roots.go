package store

import (
	"database/sql"
	"fmt"
)

// Root is a registered workspace root.
type Root struct {
	RootID    string
	Path      string
	Label     string
	CreatedTs int64
}

// UpsertRoot registers a workspace root, matching on its absolute path.
func (s *Store) UpsertRoot(rootID, path, label string) error {
	_, err := s.q.Exec(`
		INSERT INTO roots (root_id, path, label, created_ts) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET label=excluded.label`,
		rootID, path, label, Now())
	if err != nil {
		return fmt.Errorf("upsert root: %w", err)
	}
	return nil
}

// GetRoot looks up a root by id.
func (s *Store) GetRoot(rootID string) (*Root, error) {
	row := s.q.QueryRow(`SELECT root_id, path, label, created_ts FROM roots WHERE root_id=?`, rootID)
	var r Root
	if err := row.Scan(&r.RootID, &r.Path, &r.Label, &r.CreatedTs); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// ListRoots returns every registered root.
func (s *Store) ListRoots() ([]*Root, error) {
	rows, err := s.q.Query(`SELECT root_id, path, label, created_ts FROM roots ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Root
	for rows.Next() {
		var r Root
		if err := rows.Scan(&r.RootID, &r.Path, &r.Label, &r.CreatedTs); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// DeleteRoot removes a root and (via ON DELETE CASCADE) everything scoped
// to it.
func (s *Store) DeleteRoot(rootID string) error {
	_, err := s.q.Exec(`DELETE FROM roots WHERE root_id=?`, rootID)
	return err
}
