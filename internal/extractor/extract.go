package extractor

import (
	"os"
	"path/filepath"
	"strings"
)

// ResultType enumerates the possible outcomes of Extract.
type ResultType string

const (
	ResultUnchanged ResultType = "unchanged"
	ResultChanged   ResultType = "changed"
	ResultFailed    ResultType = "failed"
	ResultSkipped   ResultType = "skipped" // file vanished between stat and read
)

// ParseStatus/AstStatus values, per the File entity's parse_status/ast_status fields.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// PriorFile carries the previously-stored (mtime, size, content_hash) used
// for delta detection, or is the zero value when the file is new.
type PriorFile struct {
	Known       bool
	Mtime       int64
	Size        int64
	ContentHash string
}

// Config bounds extraction cost.
type Config struct {
	MaxParseBytes  int64 // files larger than this are skipped entirely
	MaxASTBytes    int64 // files larger than this get no AST pass
	FTSMaxBytes    int   // normalized FTS text is truncated to this many bytes
	RedactEnabled  bool
	CompressStored bool
}

// DefaultConfig mirrors the teacher/original's defaults.
func DefaultConfig() Config {
	return Config{
		MaxParseBytes:  20 * 1024 * 1024,
		MaxASTBytes:    4 * 1024 * 1024,
		FTSMaxBytes:    1_000_000,
		RedactEnabled:  true,
		CompressStored: true,
	}
}

// EngineDoc is the transient projection fed into the FTS index.
type EngineDoc struct {
	DocID   string
	Repo    string
	RelPath string
	RootID  string
	Body    string
	Mtime   int64
	Size    int64
}

// Result is the outcome of extracting one file.
type Result struct {
	Type ResultType

	DBPath string
	Repo   string
	Mtime  int64
	Size   int64

	StoredContent []byte // possibly zlib-compressed, see extractor.Compress
	ContentHash   string
	FTSContent    string
	MetadataJSON  string

	Symbols   []Symbol
	Relations []Relation

	ParseStatus string
	ParseReason string
	AstStatus   string
	AstReason   string

	IsBinary   bool
	IsMinified bool

	EngineDoc *EngineDoc

	Error error
}

// Extract implements the §4.2 extractor contract for one file: binary and
// minified detection, secret redaction, content hashing, optional
// compression, FTS normalization, and merged AST/regex symbol extraction.
//
// Grounded on the original worker's process_file_task pipeline (stat-short-
// circuit, then hash-short-circuit, then redact/normalize/AST), adapted to
// Go's explicit-error style in place of worker.py's best-effort try/except.
func Extract(root, absPath, dbPath, repo, rootID string, info os.FileInfo, scanTs int64, prior PriorFile, force bool, cfg Config) Result {
	mtime := info.ModTime().Unix()
	size := info.Size()

	if !force && prior.Known && mtime == prior.Mtime && size == prior.Size {
		return Result{Type: ResultUnchanged, DBPath: dbPath, Repo: repo}
	}

	if size > cfg.MaxParseBytes {
		return skipResult(dbPath, repo, mtime, size, "too_large")
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Type: ResultSkipped} // disappeared between stat and read: silent skip
		}
		return Result{
			Type: ResultFailed, DBPath: dbPath, Repo: repo,
			ParseStatus: StatusFailed, ParseReason: err.Error(),
			AstStatus: StatusFailed, AstReason: err.Error(),
			Error: err,
		}
	}
	content := string(raw)
	if content == "" {
		return skipResult(dbPath, repo, mtime, size, "empty")
	}

	if IsBinary(raw) {
		r := skipResult(dbPath, repo, mtime, size, "binary")
		r.IsBinary = true
		return r
	}

	isMini := IsMinified(absPath, content)
	hash := ContentHash(raw)
	if !force && prior.Known && prior.ContentHash == hash {
		return Result{Type: ResultUnchanged, DBPath: dbPath, Repo: repo}
	}

	if cfg.RedactEnabled {
		content = Redact(content)
	}

	var ftsContent, normalized string
	switch {
	case !isMini:
		normalized = NormalizeForFTS(content)
		ftsContent = truncateBytes(normalized, cfg.FTSMaxBytes)
	default:
		ftsContent = truncateBytes(content, 1024)
	}

	var symbols []Symbol
	var relations []Relation
	astStatus, astReason := StatusSkipped, "minified"
	if !isMini {
		astReason = "none"
	}

	if size <= cfg.MaxASTBytes && !isMini {
		lang := LanguageForPath(absPath)
		symbols, relations = ExtractSymbols(dbPath, rootID, lang, content)
		if lang != nil {
			astStatus, astReason = StatusOK, "none"
		} else {
			astStatus, astReason = StatusSkipped, "no_language"
		}
	}

	stored := []byte(content)
	metadataJSON := "{}"
	if cfg.CompressStored {
		orig := len(content)
		stored = Compress(stored)
		metadataJSON = `{"compressed":"zlib","orig_bytes":` + itoa(orig) + `}`
	}

	body := normalized
	if body == "" {
		body = content
	}
	body = truncateBytes(body, 50000)

	return Result{
		Type:          ResultChanged,
		DBPath:        dbPath,
		Repo:          repo,
		Mtime:         mtime,
		Size:          size,
		StoredContent: stored,
		ContentHash:   hash,
		FTSContent:    ftsContent,
		MetadataJSON:  metadataJSON,
		Symbols:       symbols,
		Relations:     relations,
		ParseStatus:   StatusOK,
		ParseReason:   "none",
		AstStatus:     astStatus,
		AstReason:     astReason,
		IsMinified:    isMini,
		EngineDoc: &EngineDoc{
			DocID:   dbPath,
			Repo:    repo,
			RelPath: strings.TrimPrefix(dbPath, rootID+"/"),
			RootID:  rootID,
			Body:    body,
			Mtime:   mtime,
			Size:    size,
		},
	}
}

func skipResult(dbPath, repo string, mtime, size int64, reason string) Result {
	return Result{
		Type: ResultChanged, DBPath: dbPath, Repo: repo, Mtime: mtime, Size: size,
		ParseStatus: StatusSkipped, ParseReason: reason,
		AstStatus: StatusSkipped, AstReason: reason,
	}
}

func truncateBytes(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}

// RepoLabel derives the repo label: the first path segment of rel, or the
// root's basename when rel has no separator.
func RepoLabel(root, relPosix string) string {
	if idx := strings.IndexByte(relPosix, '/'); idx >= 0 {
		return relPosix[:idx]
	}
	return filepath.Base(root)
}
