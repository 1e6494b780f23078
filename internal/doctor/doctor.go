// Package doctor runs read-only health probes over the daemon, storage,
// disk, tokenizer, and tree-sitter backends and turns the findings into a
// structured report a caller can surface directly.
//
// Grounded on the teacher's tools.go status fields (indexStatus,
// checkForUpdate's GitHub reachability probe) generalized from ad-hoc
// atomic.Value snapshots into a fixed battery of named checks, each
// producing an {name, status, detail} result plus an optional
// recommendation when it fails.
package doctor

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/BaeCheolHan/sari-sub000/internal/astlang"
	"github.com/BaeCheolHan/sari-sub000/internal/extractor"
	"github.com/BaeCheolHan/sari-sub000/internal/indexer"
	"github.com/BaeCheolHan/sari-sub000/internal/store"
)

// Status is one check's outcome.
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Result is one named health check's outcome.
type Result struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Report is doctor's full output: every check's result plus any
// recommendations derived from the failures among them.
type Report struct {
	Results         []Result `json:"results"`
	Recommendations []string `json:"recommendations"`
}

// Deps is what doctor needs read-only access to in order to probe health.
type Deps struct {
	Store      *store.Store
	Indexer    *indexer.Indexer
	DBPath     string
	DiskPath   string
}

// Run executes every check and assembles the report.
func Run(d Deps) Report {
	var rep Report
	rep.Results = append(rep.Results, daemonCheck(d.Indexer))
	rep.Results = append(rep.Results, dbCheck(d.Store))
	rep.Results = append(rep.Results, diskCheck(d.DiskPath))
	rep.Results = append(rep.Results, tokenizerCheck())
	rep.Results = append(rep.Results, treeSitterCheck())
	rep.Results = append(rep.Results, writerCheck(d.Store))

	for _, r := range rep.Results {
		if r.Status == StatusFail {
			rep.Recommendations = append(rep.Recommendations, recommendationFor(r.Name))
		}
	}
	return rep
}

func daemonCheck(ix *indexer.Indexer) Result {
	if ix == nil {
		return Result{Name: "Sari Daemon", Status: StatusFail, Detail: "indexer not wired"}
	}
	st := ix.Status()
	if st.Mode == indexer.Off {
		return Result{Name: "Sari Daemon", Status: StatusWarn, Detail: "indexing disabled (mode=off)"}
	}
	return Result{Name: "Sari Daemon", Status: StatusOK, Detail: fmt.Sprintf("state=%s mode=%s", st.State, st.Mode)}
}

func dbCheck(st *store.Store) Result {
	if st == nil {
		return Result{Name: "DB Access", Status: StatusFail, Detail: "store not wired"}
	}
	if err := st.DB().Ping(); err != nil {
		return Result{Name: "DB Access", Status: StatusFail, Detail: err.Error()}
	}
	if _, err := st.DB().Exec("CREATE TABLE IF NOT EXISTS _doctor_probe (id INTEGER)"); err != nil {
		return Result{Name: "DB Access", Status: StatusFail, Detail: err.Error()}
	}
	return Result{Name: "DB Access", Status: StatusOK}
}

// diskCheck reports free bytes on the filesystem backing path, using
// golang.org/x/sys/unix.Statfs (already an indirect dependency of the
// storage driver stack) rather than hand-rolling a syscall wrapper.
func diskCheck(path string) Result {
	if path == "" {
		path = "."
	}
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return Result{Name: "Disk Space", Status: StatusWarn, Detail: err.Error()}
	}
	freeBytes := fs.Bavail * uint64(fs.Bsize)
	const lowWaterBytes = 512 * 1024 * 1024
	if freeBytes < lowWaterBytes {
		return Result{Name: "Disk Space", Status: StatusFail, Detail: fmt.Sprintf("%d bytes free", freeBytes)}
	}
	return Result{Name: "Disk Space", Status: StatusOK, Detail: fmt.Sprintf("%d bytes free", freeBytes)}
}

func tokenizerCheck() Result {
	if extractor.TokenizerReady() {
		return Result{Name: "Tokenizer", Status: StatusOK}
	}
	return Result{Name: "Tokenizer", Status: StatusWarn, Detail: "CJK segmentation unavailable, degrading to byte-boundary tokenization"}
}

func treeSitterCheck() Result {
	langs := astlang.SupportedLanguages()
	if len(langs) == 0 {
		return Result{Name: "Tree-sitter", Status: StatusFail, Detail: "no grammars registered"}
	}
	return Result{Name: "Tree-sitter", Status: StatusOK, Detail: fmt.Sprintf("%d grammars registered", len(langs))}
}

func writerCheck(st *store.Store) Result {
	if st == nil {
		return Result{Name: "Writer Health", Status: StatusFail, Detail: "store not wired"}
	}
	var journalMode string
	if err := st.DB().QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return Result{Name: "Writer Health", Status: StatusWarn, Detail: err.Error()}
	}
	return Result{Name: "Writer Health", Status: StatusOK, Detail: "journal_mode=" + journalMode}
}

func recommendationFor(check string) string {
	switch check {
	case "Sari Daemon":
		return "start the indexer or switch its mode away from off"
	case "DB Access":
		return "check file permissions on the database directory and that no other process holds an incompatible lock"
	case "Disk Space":
		return "free up disk space on the volume backing the index database"
	case "Tree-sitter":
		return "rebuild with tree-sitter grammars available; symbol extraction will fall back to regex otherwise"
	default:
		return "investigate " + check
	}
}
