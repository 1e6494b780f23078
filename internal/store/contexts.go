package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// Context is a free-form piece of domain knowledge keyed by topic.
type Context struct {
	Topic         string
	Content       string
	Tags          []string
	RelatedFiles  []string
	Source        string
	ValidFrom     *int64
	ValidUntil    *int64
	Deprecated    bool
	UpdatedTs     int64
}

// UpsertContext creates or overwrites a context by topic.
func (s *Store) UpsertContext(c *Context) error {
	tagsJSON, _ := json.Marshal(c.Tags)
	filesJSON, _ := json.Marshal(c.RelatedFiles)
	_, err := s.q.Exec(`
		INSERT INTO contexts (topic, content, tags_json, related_files_json, source, valid_from, valid_until, deprecated, updated_ts)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(topic) DO UPDATE SET
			content=excluded.content, tags_json=excluded.tags_json, related_files_json=excluded.related_files_json,
			source=excluded.source, valid_from=excluded.valid_from, valid_until=excluded.valid_until,
			deprecated=excluded.deprecated, updated_ts=excluded.updated_ts`,
		c.Topic, c.Content, string(tagsJSON), string(filesJSON), c.Source, c.ValidFrom, c.ValidUntil, boolToInt(c.Deprecated), Now())
	if err != nil {
		return fmt.Errorf("upsert context: %w", err)
	}
	return nil
}

// GetContext looks up one context by topic.
func (s *Store) GetContext(topic string) (*Context, error) {
	row := s.q.QueryRow(`SELECT topic, content, tags_json, related_files_json, source, valid_from, valid_until, deprecated, updated_ts
		FROM contexts WHERE topic=?`, topic)
	return scanContext(row)
}

// ListContexts returns every non-deprecated context unless includeDeprecated.
func (s *Store) ListContexts(includeDeprecated bool) ([]*Context, error) {
	q := `SELECT topic, content, tags_json, related_files_json, source, valid_from, valid_until, deprecated, updated_ts FROM contexts`
	if !includeDeprecated {
		q += ` WHERE deprecated=0`
	}
	q += ` ORDER BY topic`
	rows, err := s.q.Query(q)
	if err != nil {
		return nil, fmt.Errorf("list contexts: %w", err)
	}
	defer rows.Close()
	var out []*Context
	for rows.Next() {
		c, err := scanContext(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteContext removes a context by topic.
func (s *Store) DeleteContext(topic string) error {
	_, err := s.q.Exec(`DELETE FROM contexts WHERE topic=?`, topic)
	return err
}

func scanContext(row rowScanner) (*Context, error) {
	var c Context
	var tagsJSON, filesJSON string
	var deprecated int
	err := row.Scan(&c.Topic, &c.Content, &tagsJSON, &filesJSON, &c.Source, &c.ValidFrom, &c.ValidUntil, &deprecated, &c.UpdatedTs)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan context: %w", err)
	}
	_ = json.Unmarshal([]byte(tagsJSON), &c.Tags)
	_ = json.Unmarshal([]byte(filesJSON), &c.RelatedFiles)
	c.Deprecated = deprecated != 0
	return &c, nil
}
