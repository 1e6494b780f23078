// Package indexer coordinates scanning, extraction, and storage: a
// {Idle→Scanning→Draining→Idle} state machine, fair and priority queues
// (there is no separate db-writer queue: processOne writes to the store
// directly), and a resource governor that scales worker concurrency. Grounded on the teacher's internal/watcher (poll-and-
// trigger loop, adaptive interval) and internal/pipeline's errgroup.Group/
// SetLimit worker-pool idiom sized off runtime.NumCPU, generalized from
// the teacher's single-project file-change poller into the spec's
// multi-root scan/drain/rescan/index-file model with leader/follower/off
// modes, with the fixed NumCPU limit replaced by the governor's adaptive
// one.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BaeCheolHan/sari-sub000/internal/extractor"
	"github.com/BaeCheolHan/sari-sub000/internal/pathutil"
	"github.com/BaeCheolHan/sari-sub000/internal/scanner"
	"github.com/BaeCheolHan/sari-sub000/internal/store"
)

// State is the indexer's lifecycle state.
type State int32

const (
	Idle State = iota
	Scanning
	Draining
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case Draining:
		return "draining"
	default:
		return "idle"
	}
}

// Mode governs whether this process may initiate scans.
type Mode string

const (
	Leader   Mode = "leader"
	Follower Mode = "follower"
	Off      Mode = "off"
)

// ErrIndexerFollower and ErrIndexerDisabled are the structured rejections
// a follower/off-mode indexer returns for rescan/scan_once/index_file,
// per spec.md §4.5.
var (
	ErrIndexerFollower = errors.New("ERR_INDEXER_FOLLOWER")
	ErrIndexerDisabled = errors.New("ERR_INDEXER_DISABLED")
)

// scanTimeout bounds one ScanOnce drain, per spec.md's "~8s wall-clock
// default" to avoid unbounded blocking.
const scanTimeout = 8 * time.Second

// Root is one registered workspace root the indexer scans.
type Root struct {
	ID     string
	Path   string
	Label  string
	Config scanner.Config
}

// Status mirrors the §4.5 status object.
type Status struct {
	IndexReady   bool
	LastScanTs   int64
	ScannedFiles int64
	IndexedFiles int64
	Errors       int64
	State        string
	Mode         Mode
}

// fsEvent is one synthesized or discovered filesystem event.
type fsEvent struct {
	RootID   string
	RootPath string
	AbsPath  string
	DBPath   string
	Repo     string
}

// Indexer coordinates the scan → extract → write pipeline across every
// registered root.
type Indexer struct {
	st  *store.Store
	cfg extractor.Config
	gov *governor

	mu    sync.Mutex
	roots map[string]*Root
	mode  Mode
	state atomic.Int32

	fairQueue     chan fsEvent
	priorityQueue chan fsEvent

	rescanRequested chan struct{}

	status   Status
	statusMu sync.Mutex
}

// New builds an Indexer bound to a store, starting in the given mode.
func New(st *store.Store, mode Mode) *Indexer {
	return &Indexer{
		st:              st,
		cfg:             extractor.DefaultConfig(),
		gov:             newGovernor(),
		roots:           make(map[string]*Root),
		mode:            mode,
		fairQueue:       make(chan fsEvent, 4096),
		priorityQueue:   make(chan fsEvent, 1024),
		rescanRequested: make(chan struct{}, 1),
	}
}

// AddRoot registers a workspace root to be scanned, persisting it to the
// store immediately so readers see it even before the first scan.
func (ix *Indexer) AddRoot(r Root) error {
	ix.mu.Lock()
	ix.roots[r.ID] = &r
	ix.mu.Unlock()
	return ix.st.UpsertRoot(r.ID, r.Path, r.Label)
}

// Mode returns the indexer's current mode.
func (ix *Indexer) Mode() Mode {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.mode
}

// SetMode changes the indexer's mode (e.g. on leader election).
func (ix *Indexer) SetMode(m Mode) {
	ix.mu.Lock()
	ix.mode = m
	ix.mu.Unlock()
}

// requireLeader returns the structured error a follower/off-mode indexer
// must surface for rescan/scan_once/index_file.
func (ix *Indexer) requireLeader() error {
	switch ix.Mode() {
	case Follower:
		return ErrIndexerFollower
	case Off:
		return ErrIndexerDisabled
	default:
		return nil
	}
}

// Status returns a snapshot of the indexer's current status object.
func (ix *Indexer) Status() Status {
	ix.statusMu.Lock()
	s := ix.status
	ix.statusMu.Unlock()
	s.State = State(ix.state.Load()).String()
	s.Mode = ix.Mode()
	return s
}

// ScanOnce runs one full scan across every registered root to completion,
// draining the fair and priority queues until three consecutive samples
// show zero depth. There is no writer queue and no flush step: each file's
// rows are written to the store as it is processed. Bounded to scanTimeout
// wall-clock by default.
func (ix *Indexer) ScanOnce(ctx context.Context) (scanned int, indexed int, err error) {
	if err := ix.requireLeader(); err != nil {
		return 0, 0, err
	}
	if _, cancelSet := ctx.Deadline(); !cancelSet {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, scanTimeout)
		defer cancel()
	}

	ix.state.Store(int32(Scanning))
	defer ix.state.Store(int32(Idle))

	ix.mu.Lock()
	roots := make([]*Root, 0, len(ix.roots))
	for _, r := range ix.roots {
		roots = append(roots, r)
	}
	ix.mu.Unlock()

	stopSampling := make(chan struct{})
	go ix.gov.runSampling(500*time.Millisecond, stopSampling)
	defer close(stopSampling)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.gov.workers())

	now := time.Now().Unix()
	for _, root := range roots {
		if gctx.Err() != nil {
			break
		}
		sc := scanner.New(root.Path, root.Config, siblingPaths(roots, root.ID))
		walkErr := sc.Scan(func(e scanner.Entry) bool {
			if gctx.Err() != nil {
				return false
			}
			if e.Excluded || e.Info.IsDir() {
				return true
			}
			mu.Lock()
			scanned++
			mu.Unlock()

			rootID, rootPath, absPath := root.ID, root.Path, e.AbsPath
			g.Go(func() error {
				relPosix, rpErr := pathutil.ToPosixRel(rootPath, absPath)
				if rpErr != nil {
					return nil
				}
				dbPath := pathutil.DBPath(rootID, relPosix)
				repo := extractor.RepoLabel(rootPath, relPosix)
				if n, indexErr := ix.processOne(rootID, rootPath, absPath, dbPath, repo, now, false); indexErr != nil {
					mu.Lock()
					ix.status.Errors++
					mu.Unlock()
					slog.Warn("indexer.scan_once.process", "path", dbPath, "err", indexErr)
				} else {
					mu.Lock()
					indexed += n
					mu.Unlock()
				}
				return nil
			})
			return true
		})
		if walkErr != nil {
			slog.Warn("indexer.scan_once.walk", "root", root.ID, "err", walkErr)
		}
	}
	_ = g.Wait()

	ix.drainQueues(ctx)

	for _, root := range roots {
		if _, _, pruneErr := ix.st.PruneStaleFiles(root.ID, now, int64(7*24*3600)); pruneErr != nil {
			slog.Warn("indexer.scan_once.prune", "root", root.ID, "err", pruneErr)
		}
	}

	ix.statusMu.Lock()
	ix.status.IndexReady = true
	ix.status.LastScanTs = now
	ix.status.ScannedFiles = int64(scanned)
	ix.status.IndexedFiles += int64(indexed)
	ix.statusMu.Unlock()

	return scanned, indexed, nil
}

// processOne extracts and persists one file, returning 1 if it produced a
// changed/written row, 0 if unchanged/skipped.
func (ix *Indexer) processOne(rootID, rootPath, absPath, dbPath, repo string, scanTs int64, force bool) (int, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return 0, err
	}
	prior := extractor.PriorFile{}
	if meta, merr := ix.st.GetFileMeta(dbPath); merr == nil && meta != nil {
		prior = extractor.PriorFile{Known: true, Mtime: meta.Mtime, Size: meta.Size, ContentHash: meta.ContentHash}
	}

	res := extractor.Extract(rootPath, absPath, dbPath, repo, rootID, info, scanTs, prior, force, ix.cfg)
	if res.Type == extractor.ResultUnchanged || res.Type == extractor.ResultFailed || res.Type == extractor.ResultSkipped {
		if res.Error != nil {
			return 0, res.Error
		}
		return 0, nil
	}

	row := store.FileRow{
		DBPath: dbPath, RootID: rootID, Repo: repo,
		Mtime: res.Mtime, Size: res.Size, ContentHash: res.ContentHash,
		Content: res.StoredContent, FTSContent: res.FTSContent, MetadataJSON: res.MetadataJSON,
		ParseStatus: res.ParseStatus, ParseReason: res.ParseReason,
		AstStatus: res.AstStatus, AstReason: res.AstReason,
		IsBinary: res.IsBinary, IsMinified: res.IsMinified, ScanTs: scanTs,
	}
	if err := ix.st.UpsertFilesTurbo([]store.FileRow{row}); err != nil {
		return 0, fmt.Errorf("write file row: %w", err)
	}

	if len(res.Symbols) > 0 || len(res.Relations) > 0 {
		if err := ix.st.DeleteSymbolsByPath(dbPath); err != nil {
			return 0, err
		}
		if err := ix.st.DeleteRelationsByFromPath(dbPath); err != nil {
			return 0, err
		}
		symRows := make([]store.SymbolRow, 0, len(res.Symbols))
		for _, sym := range res.Symbols {
			symRows = append(symRows, store.SymbolRow{
				SymbolID: sym.SymbolID, Path: dbPath, RootID: rootID, Name: sym.Name, Qualname: sym.Qualname,
				Kind: string(sym.Kind), Line: sym.Line, EndLine: sym.EndLine, Content: sym.Content,
				Parent: sym.Parent, DocComment: sym.DocComment,
			})
		}
		if err := ix.st.UpsertSymbolBatch(symRows); err != nil {
			return 0, err
		}
		relRows := make([]store.RelationRow, 0, len(res.Relations))
		for _, rel := range res.Relations {
			relRows = append(relRows, store.RelationRow{
				FromSymbol: rel.FromSymbol, FromPath: dbPath, ToSymbol: rel.ToSymbol, ToPath: rel.ToPath,
				RelType: rel.RelType, Line: rel.Line,
			})
		}
		if err := ix.st.InsertRelationBatch(relRows); err != nil {
			return 0, err
		}
	}

	return 1, nil
}

// drainQueues processes priority and fair queue events until three
// consecutive samples show zero combined depth, or ctx is done.
func (ix *Indexer) drainQueues(ctx context.Context) {
	ix.state.Store(int32(Draining))
	empty := 0
	for empty < 3 {
		select {
		case <-ctx.Done():
			return
		case ev := <-ix.priorityQueue:
			ix.handleEvent(ev)
			empty = 0
			continue
		default:
		}
		select {
		case <-ctx.Done():
			return
		case ev := <-ix.fairQueue:
			ix.handleEvent(ev)
			empty = 0
			continue
		default:
		}
		empty++
		time.Sleep(10 * time.Millisecond)
	}
}

func (ix *Indexer) handleEvent(ev fsEvent) {
	now := time.Now().Unix()
	if _, err := ix.processOne(ev.RootID, ev.RootPath, ev.AbsPath, ev.DBPath, ev.Repo, now, true); err != nil {
		ix.statusMu.Lock()
		ix.status.Errors++
		ix.statusMu.Unlock()
		slog.Warn("indexer.drain.process", "path", ev.DBPath, "err", err)
	}
}

// Rescan requests a non-blocking full rescan; requests are coalesced
// while a scan is already pending or in flight.
func (ix *Indexer) Rescan() error {
	if err := ix.requireLeader(); err != nil {
		return err
	}
	select {
	case ix.rescanRequested <- struct{}{}:
	default:
		// already a rescan pending: coalesce
	}
	return nil
}

// PopRescanRequest is consumed by a background driver loop (see Run) to
// learn a rescan was requested; returns false if none is pending.
func (ix *Indexer) PopRescanRequest() bool {
	select {
	case <-ix.rescanRequested:
		return true
	default:
		return false
	}
}

// Run drives the background rescan loop until ctx is cancelled, polling
// for coalesced rescan requests at the given interval.
func (ix *Indexer) Run(ctx context.Context, pollInterval time.Duration) {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if ix.PopRescanRequest() {
				if _, _, err := ix.ScanOnce(ctx); err != nil {
					slog.Warn("indexer.run.scan", "err", err)
				}
			}
		}
	}
}

// IndexFile enqueues a synthesized "modified" event on the priority queue
// for one file, returning immediately; the caller may poll Status's queue
// depths (via QueueDepths) to learn when the effect has landed.
func (ix *Indexer) IndexFile(rootID, absPath string) error {
	if err := ix.requireLeader(); err != nil {
		return err
	}
	ix.mu.Lock()
	root, ok := ix.roots[rootID]
	ix.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown root_id %q", rootID)
	}
	relPosix, err := pathutil.ToPosixRel(root.Path, absPath)
	if err != nil {
		return err
	}
	ev := fsEvent{
		RootID:   rootID,
		RootPath: root.Path,
		AbsPath:  absPath,
		DBPath:   pathutil.DBPath(rootID, relPosix),
		Repo:     extractor.RepoLabel(root.Path, relPosix),
	}
	select {
	case ix.priorityQueue <- ev:
	default:
		return fmt.Errorf("priority queue full")
	}
	return nil
}

// QueueDepths reports the current fair/priority queue lengths, for
// callers polling whether an index_file request has landed.
func (ix *Indexer) QueueDepths() (fair, priority int) {
	return len(ix.fairQueue), len(ix.priorityQueue)
}

func siblingPaths(roots []*Root, excludeID string) []string {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if r.ID != excludeID {
			out = append(out, r.Path)
		}
	}
	return out
}

