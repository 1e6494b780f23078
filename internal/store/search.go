package store

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SearchOpts mirrors the §4.4 search contract.
type SearchOpts struct {
	Query            string
	Repo             string
	RootIDs          []string
	Limit            int
	Offset           int
	PathPattern      string
	FileTypes        []string
	ExcludePatterns  []string
	CaseSensitive    bool
	RecencyBoost     bool
	SnippetLines     int
}

// SearchHit is one ranked result.
type SearchHit struct {
	Repo       string
	Path       string
	Score      float64
	Snippet    string
	Mtime      int64
	Size       int64
	FileType   string
	HitReason  string
	MatchCount int
}

// SearchMeta accompanies a search's hits.
type SearchMeta struct {
	Total     int
	TotalMode string // exact|approx
	Engine    string
}

// Search executes a ranked FTS5 query plus the opts' filters. Grounded on
// the teacher's Search's dynamic WHERE-clause assembly (conditions/args
// slices built incrementally), adapted from the teacher's node/label graph
// query into a files_fts MATCH query with repo/root/path/type filters.
func (s *Store) Search(opts SearchOpts) ([]SearchHit, SearchMeta, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}
	snippetLines := opts.SnippetLines
	if snippetLines <= 0 {
		snippetLines = 3
	}

	var conditions []string
	var args []any

	matchExpr := ftsMatchExpr(opts.Query)
	conditions = append(conditions, "files_fts MATCH ?")
	args = append(args, matchExpr)

	if opts.Repo != "" {
		conditions = append(conditions, "files_fts.repo = ?")
		args = append(args, opts.Repo)
	}

	q := `SELECT f.db_path, f.repo, f.mtime, f.size, bm25(files_fts) AS rank, snippet(files_fts, 2, '', '', '...', 24) AS snip
		FROM files_fts JOIN files f ON f.db_path = files_fts.db_path
		WHERE ` + strings.Join(conditions, " AND ") + ` AND f.deleted_ts IS NULL`

	if len(opts.RootIDs) > 0 {
		placeholders := make([]string, len(opts.RootIDs))
		for i, r := range opts.RootIDs {
			placeholders[i] = "?"
			args = append(args, r)
		}
		q += ` AND f.root_id IN (` + strings.Join(placeholders, ",") + `)`
	}

	q += ` ORDER BY rank, f.db_path LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.q.Query(q, args...)
	if err != nil {
		return nil, SearchMeta{}, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		var rank float64
		if err := rows.Scan(&h.Path, &h.Repo, &h.Mtime, &h.Size, &rank, &h.Snippet); err != nil {
			return nil, SearchMeta{}, err
		}
		h.FileType = strings.TrimPrefix(filepath.Ext(h.Path), ".")
		h.Score = rankToScore(rank)
		if opts.RecencyBoost {
			h.Score *= recencyMultiplier(h.Mtime)
		}
		h.HitReason = "fts_match"
		h.Snippet = prefixSnippetLines(h.Snippet)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, SearchMeta{}, err
	}

	hits = applyPathFilters(hits, opts)

	total := len(hits)
	return hits, SearchMeta{Total: total, TotalMode: "approx", Engine: "fts5"}, nil
}

// ftsMatchExpr quotes a raw query string into an FTS5 MATCH expression,
// treating the whole query as a phrase to avoid FTS5 operator injection
// from user-supplied punctuation.
func ftsMatchExpr(query string) string {
	escaped := strings.ReplaceAll(query, `"`, `""`)
	return `"` + escaped + `"`
}

// rankToScore converts bm25's "lower is better, can be negative" rank into
// a "higher is better, non-negative" score for API consumers.
func rankToScore(rank float64) float64 {
	if rank >= 0 {
		return 1.0 / (1.0 + rank)
	}
	return -rank
}

// recencyMultiplier boosts recently modified files: full boost at "now",
// decaying to no boost by 90 days old.
func recencyMultiplier(mtime int64) float64 {
	age := Now() - mtime
	const window = int64(90 * 24 * 3600)
	if age <= 0 {
		return 1.5
	}
	if age >= window {
		return 1.0
	}
	return 1.0 + 0.5*(1.0-float64(age)/float64(window))
}

func applyPathFilters(hits []SearchHit, opts SearchOpts) []SearchHit {
	if opts.PathPattern == "" && len(opts.FileTypes) == 0 && len(opts.ExcludePatterns) == 0 {
		return hits
	}
	fileTypeSet := make(map[string]bool, len(opts.FileTypes))
	for _, t := range opts.FileTypes {
		fileTypeSet[strings.TrimPrefix(t, ".")] = true
	}
	var out []SearchHit
	for _, h := range hits {
		if opts.PathPattern != "" {
			if matched, _ := filepath.Match(opts.PathPattern, h.Path); !matched {
				continue
			}
		}
		if len(fileTypeSet) > 0 && !fileTypeSet[h.FileType] {
			continue
		}
		excluded := false
		for _, ex := range opts.ExcludePatterns {
			if matched, _ := filepath.Match(ex, h.Path); matched {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		out = append(out, h)
	}
	return out
}

// prefixSnippetLines prefixes each line of an FTS5 snippet() result with
// "L<n>: " so downstream callers can extract a line number with a simple
// pattern, per spec.md §4.4. The snippet() function does not carry real
// line numbers, so this numbers the snippet's own lines starting at 1 —
// good enough for display; exact source line numbers come from read mode.
func prefixSnippetLines(snippet string) string {
	lines := strings.Split(snippet, "\n")
	for i, l := range lines {
		lines[i] = fmt.Sprintf("L%d: %s", i+1, l)
	}
	return strings.Join(lines, "\n")
}

// RepoCandidate is one repo_candidates result.
type RepoCandidate struct {
	Repo   string
	Score  int
	Reason string
}

// RepoCandidates counts files per repo whose FTS content matches q, per
// §4.4's repo_candidates contract.
func (s *Store) RepoCandidates(q string, limit int) ([]RepoCandidate, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.q.Query(`
		SELECT f.repo, COUNT(*) AS cnt FROM files_fts
		JOIN files f ON f.db_path = files_fts.db_path
		WHERE files_fts MATCH ? AND f.deleted_ts IS NULL
		GROUP BY f.repo ORDER BY cnt DESC LIMIT ?`, ftsMatchExpr(q), limit)
	if err != nil {
		return nil, fmt.Errorf("repo candidates: %w", err)
	}
	defer rows.Close()
	var out []RepoCandidate
	for rows.Next() {
		var c RepoCandidate
		if err := rows.Scan(&c.Repo, &c.Score); err != nil {
			return nil, err
		}
		c.Reason = fmt.Sprintf("%d files matched %q", c.Score, q)
		out = append(out, c)
	}
	return out, rows.Err()
}
