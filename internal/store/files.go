package store

import (
	"bytes"
	"compress/zlib"
	"database/sql"
	"fmt"
	"io"
	"strings"
)

// FileMeta is the cheap (mtime, size, content_hash) triple used for delta
// detection before a full read, matching extractor.PriorFile's shape.
type FileMeta struct {
	Mtime       int64
	Size        int64
	ContentHash string
}

// FileRow is one durable file row plus its FTS projection, as produced by
// the extractor and written in a single upsert.
type FileRow struct {
	DBPath           string
	RootID           string
	Repo             string
	Mtime            int64
	Size             int64
	ContentHash      string
	Content          []byte
	FTSContent       string
	MetadataJSON     string
	ParseStatus      string
	ParseReason      string
	AstStatus        string
	AstReason        string
	IsBinary         bool
	IsMinified       bool
	ScanTs           int64
	ImportanceScore  float64
}

// GetFileMeta returns the stored (mtime, size, content_hash) for a db_path,
// or nil if the file is not known (equivalent to the teacher's
// get_file_meta returning a "not found" sentinel).
func (s *Store) GetFileMeta(dbPath string) (*FileMeta, error) {
	row := s.q.QueryRow(`SELECT mtime, size, content_hash FROM files WHERE db_path=? AND deleted_ts IS NULL`, dbPath)
	var m FileMeta
	if err := row.Scan(&m.Mtime, &m.Size, &m.ContentHash); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get file meta: %w", err)
	}
	return &m, nil
}

// UpsertFilesTurbo batch-writes file rows plus their FTS projections in one
// statement per batch of up to filesBatchSize rows, respecting SQLite's
// 999-bind-variable limit. Grounded on the teacher's UpsertNodeBatch
// multi-row-INSERT-with-ON-CONFLICT pattern, extended with a parallel FTS5
// write so each file's fts_content atomically replaces its prior index
// entry alongside the row update.
func (s *Store) UpsertFilesTurbo(rows []FileRow) error {
	if len(rows) == 0 {
		return nil
	}
	const numCols = 16
	const filesBatchSize = 999 / numCols // = 62

	for i := 0; i < len(rows); i += filesBatchSize {
		end := i + filesBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.upsertFilesChunk(rows[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertFilesChunk(batch []FileRow) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO files (db_path, root_id, repo, mtime, size, content_hash, content, fts_content,
		metadata_json, parse_status, parse_reason, ast_status, ast_reason, is_binary, is_minified, scan_ts, deleted_ts)
		VALUES `)
	args := make([]any, 0, len(batch)*17)
	for i, r := range batch {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,NULL)")
		args = append(args, r.DBPath, r.RootID, r.Repo, r.Mtime, r.Size, r.ContentHash, r.Content, r.FTSContent,
			r.MetadataJSON, r.ParseStatus, r.ParseReason, r.AstStatus, r.AstReason, boolToInt(r.IsBinary), boolToInt(r.IsMinified), r.ScanTs)
	}
	sb.WriteString(` ON CONFLICT(db_path) DO UPDATE SET
		repo=excluded.repo, mtime=excluded.mtime, size=excluded.size, content_hash=excluded.content_hash,
		content=excluded.content, fts_content=excluded.fts_content, metadata_json=excluded.metadata_json,
		parse_status=excluded.parse_status, parse_reason=excluded.parse_reason,
		ast_status=excluded.ast_status, ast_reason=excluded.ast_reason,
		is_binary=excluded.is_binary, is_minified=excluded.is_minified, scan_ts=excluded.scan_ts, deleted_ts=NULL`)

	if _, err := s.q.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("upsert files batch: %w", err)
	}

	// Replace each file's FTS row atomically with the row update: delete
	// any prior entry, then insert the fresh projection.
	for _, r := range batch {
		if _, err := s.q.Exec(`DELETE FROM files_fts WHERE db_path=?`, r.DBPath); err != nil {
			return fmt.Errorf("fts delete: %w", err)
		}
		if r.FTSContent != "" {
			if _, err := s.q.Exec(`INSERT INTO files_fts (db_path, repo, body) VALUES (?, ?, ?)`, r.DBPath, r.Repo, r.FTSContent); err != nil {
				return fmt.Errorf("fts insert: %w", err)
			}
		}
	}
	return nil
}

// FinalizeTurboBatch is a no-op commit point in the WithTransaction style:
// when called inside a transaction-scoped Store it simply signals the
// caller may now commit. Kept as an explicit method (matching the
// teacher's naming of phase boundaries) so indexer code reads as
// "finalize this batch", not as a bare transaction commit.
func (s *Store) FinalizeTurboBatch() error { return nil }

// ReadFile returns a file's decompressed stored content, or nil if the
// file is unknown or soft-deleted.
func (s *Store) ReadFile(dbPath string) ([]byte, error) {
	row := s.q.QueryRow(`SELECT content FROM files WHERE db_path=? AND deleted_ts IS NULL`, dbPath)
	var content []byte
	if err := row.Scan(&content); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	if bytes.HasPrefix(content, []byte("ZLIB\x00")) {
		r, err := zlib.NewReader(bytes.NewReader(content[len("ZLIB\x00"):]))
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	}
	return content, nil
}

// PruneStaleFiles soft-deletes files whose scan_ts predates beforeTs (they
// were not seen in the most recent scan of their root) and hard-purges
// files already soft-deleted before the grace period. Returns the number
// soft-deleted and the number hard-purged.
func (s *Store) PruneStaleFiles(rootID string, beforeTs int64, purgeGraceSeconds int64) (softDeleted, purged int64, err error) {
	res, err := s.q.Exec(`UPDATE files SET deleted_ts=? WHERE root_id=? AND scan_ts<? AND deleted_ts IS NULL`, Now(), rootID, beforeTs)
	if err != nil {
		return 0, 0, fmt.Errorf("soft delete stale files: %w", err)
	}
	softDeleted, _ = res.RowsAffected()

	cutoff := Now() - purgeGraceSeconds
	purgeRows, err := s.q.Query(`SELECT db_path FROM files WHERE root_id=? AND deleted_ts IS NOT NULL AND deleted_ts<?`, rootID, cutoff)
	if err != nil {
		return softDeleted, 0, fmt.Errorf("select purge candidates: %w", err)
	}
	var toPurge []string
	for purgeRows.Next() {
		var p string
		if err := purgeRows.Scan(&p); err != nil {
			purgeRows.Close()
			return softDeleted, 0, err
		}
		toPurge = append(toPurge, p)
	}
	purgeRows.Close()

	for _, p := range toPurge {
		if _, err := s.q.Exec(`DELETE FROM files_fts WHERE db_path=?`, p); err != nil {
			return softDeleted, purged, fmt.Errorf("purge fts: %w", err)
		}
		if _, err := s.q.Exec(`DELETE FROM files WHERE db_path=?`, p); err != nil {
			return softDeleted, purged, fmt.Errorf("purge file: %w", err)
		}
		purged++
	}
	return softDeleted, purged, nil
}

// ListFilesFilter filters ListFiles.
type ListFilesFilter struct {
	RootID string
	Repo   string // empty means all repos
	Limit  int
	Offset int
}

// FileSummary is one row of a list_files listing.
type FileSummary struct {
	DBPath string
	Repo   string
	Size   int64
	Mtime  int64
}

// ListFiles returns matching, non-deleted files ordered by path.
func (s *Store) ListFiles(f ListFilesFilter) ([]FileSummary, error) {
	q := `SELECT db_path, repo, size, mtime FROM files WHERE deleted_ts IS NULL`
	var args []any
	if f.RootID != "" {
		q += ` AND root_id=?`
		args = append(args, f.RootID)
	}
	if f.Repo != "" {
		q += ` AND repo=?`
		args = append(args, f.Repo)
	}
	q += ` ORDER BY db_path`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := s.q.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()
	var out []FileSummary
	for rows.Next() {
		var fs FileSummary
		if err := rows.Scan(&fs.DBPath, &fs.Repo, &fs.Size, &fs.Mtime); err != nil {
			return nil, err
		}
		out = append(out, fs)
	}
	return out, rows.Err()
}

// RepoStat is one repo's aggregate file count and total size.
type RepoStat struct {
	Repo      string
	FileCount int64
	TotalSize int64
}

// GetRepoStats aggregates per-repo file counts, optionally restricted to a
// set of root ids.
func (s *Store) GetRepoStats(rootIDs []string) ([]RepoStat, error) {
	q := `SELECT repo, COUNT(*), COALESCE(SUM(size),0) FROM files WHERE deleted_ts IS NULL`
	var args []any
	if len(rootIDs) > 0 {
		placeholders := make([]string, len(rootIDs))
		for i, id := range rootIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		q += ` AND root_id IN (` + strings.Join(placeholders, ",") + `)`
	}
	q += ` GROUP BY repo ORDER BY repo`
	rows, err := s.q.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("get repo stats: %w", err)
	}
	defer rows.Close()
	var out []RepoStat
	for rows.Next() {
		var r RepoStat
		if err := rows.Scan(&r.Repo, &r.FileCount, &r.TotalSize); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
