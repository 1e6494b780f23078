// Package stabilization bounds and instruments the tool layer's read/search
// surface: session-scoped metrics, a budget guard, a relevance guard, a
// read-first gate with candidate_id binding, and aggregation bundles for
// deduped reads. It generalizes the teacher's mutex-guarded, process-wide
// index-status fields (internal/tools/tools.go's indexMu/atomic.Value
// trio) into small, independently lockable, LRU-capped stores, one per
// concern, reified behind a single Stabilization value passed through the
// tool context rather than left as package-level globals.
package stabilization

import (
	"container/list"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"sync"
)

// Snapshot is the read-only metrics view attached to every tool response's
// meta.stabilization.metrics_snapshot.
type Snapshot struct {
	ReadsCount           int64
	ReadsLinesTotal       int64
	ReadsCharsTotal       int64
	SearchCount           int64
	ReadAfterSearchRatio  float64
	AvgReadSpan           float64
	MaxReadSpan           int64
	PreviewDegradedCount  int64
}

// SearchContext is the subset of a session's state a read needs to run the
// relevance guard and resolve candidate_id references.
type SearchContext struct {
	LastSearchQuery    string
	LastSearchTopPaths []string
	LastSearchCandidates map[string]string // candidate_id -> path
	LastBundleID       string
	SearchCount        int64
}

type sessionMetrics struct {
	readsCount          int64
	readsLinesTotal     int64
	readsCharsTotal     int64
	searchCount         int64
	readSpanSum         int64
	maxReadSpan         int64
	previewDegradedCount int64
	readsAfterSearch    int64
	readsSinceSearch    int64 // resets to 0 on every search; drives the budget guard's hard-limit

	lastSearchQuery      string
	lastSearchTopPaths   []string
	lastSearchCandidates map[string]string
	lastBundleID         string

	elem *list.Element // this session's node in the LRU eviction list
}

func (m *sessionMetrics) snapshot() Snapshot {
	var ratio, avgSpan float64
	if m.readsCount > 0 {
		ratio = float64(m.readsAfterSearch) / float64(m.readsCount)
		avgSpan = float64(m.readSpanSum) / float64(m.readsCount)
	}
	return Snapshot{
		ReadsCount:           m.readsCount,
		ReadsLinesTotal:      m.readsLinesTotal,
		ReadsCharsTotal:      m.readsCharsTotal,
		SearchCount:          m.searchCount,
		ReadAfterSearchRatio: ratio,
		AvgReadSpan:          avgSpan,
		MaxReadSpan:          m.maxReadSpan,
		PreviewDegradedCount: m.previewDegradedCount,
	}
}

// SearchRecord carries the facts a completed search wants recorded.
type SearchRecord struct {
	PreviewDegraded bool
	Query           string
	TopPaths        []string
	Candidates      map[string]string // candidate_id -> path
	BundleID        string
}

// ReadRecord carries the facts a completed read wants recorded.
type ReadRecord struct {
	Lines int64
	Chars int64
	Span  int64
}

// defaultMaxSessions is the LRU cap on concurrently tracked sessions,
// matching the ~32-session bound the spec's per-session metrics call for.
const defaultMaxSessions = 32

// sessionStore is a mutex-guarded, LRU-capped map from session key to
// metrics, generalizing the teacher's single global atomic.Value fields
// into one bounded store per session so an adversarial client minting
// unlimited connection_ids cannot grow memory without limit. No LRU
// library appears anywhere in the corpus, so this is built on stdlib
// container/list (the standard doubly-linked-list building block), not a
// third-party cache package.
type sessionStore struct {
	mu       sync.Mutex
	byKey    map[string]*sessionMetrics
	order    *list.List // front = most recently used
	capacity int
	seq      int64
}

func newSessionStore(capacity int) *sessionStore {
	if capacity <= 0 {
		capacity = defaultMaxSessions
	}
	return &sessionStore{
		byKey:    make(map[string]*sessionMetrics),
		order:    list.New(),
		capacity: capacity,
	}
}

func (s *sessionStore) nextSeq() int64 {
	s.seq++
	return s.seq
}

// get returns (creating if needed) the metrics for key, and marks it
// most-recently-used, evicting the least-recently-used session if the
// store is over capacity.
func (s *sessionStore) get(key string) *sessionMetrics {
	if m, ok := s.byKey[key]; ok {
		s.order.MoveToFront(m.elem)
		return m
	}
	m := &sessionMetrics{}
	m.elem = s.order.PushFront(key)
	s.byKey[key] = m
	if s.order.Len() > s.capacity {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.byKey, oldest.Value.(string))
		}
	}
	return m
}

func (s *sessionStore) recordSearch(key string, rec SearchRecord) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.get(key)
	m.searchCount++
	m.readsSinceSearch = 0
	s.nextSeq()
	m.lastSearchQuery = strings.TrimSpace(rec.Query)
	if len(rec.TopPaths) > 0 {
		m.lastSearchTopPaths = append([]string(nil), rec.TopPaths...)
	}
	if len(rec.Candidates) > 0 {
		m.lastSearchCandidates = rec.Candidates
	}
	if rec.BundleID != "" {
		m.lastBundleID = rec.BundleID
	}
	if rec.PreviewDegraded {
		m.previewDegradedCount++
	}
	return m.snapshot()
}

func (s *sessionStore) recordRead(key string, rec ReadRecord) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.get(key)
	m.readsCount++
	m.readsSinceSearch++
	s.nextSeq()
	if rec.Lines > 0 {
		m.readsLinesTotal += rec.Lines
	}
	if rec.Chars > 0 {
		m.readsCharsTotal += rec.Chars
	}
	span := rec.Span
	if span < 0 {
		span = 0
	}
	m.readSpanSum += span
	if span > m.maxReadSpan {
		m.maxReadSpan = span
	}
	if m.searchCount > 0 {
		m.readsAfterSearch++
	}
	return m.snapshot()
}

func (s *sessionStore) snapshot(key string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(key).snapshot()
}

func (s *sessionStore) searchContext(key string) SearchContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.get(key)
	candidates := make(map[string]string, len(m.lastSearchCandidates))
	for k, v := range m.lastSearchCandidates {
		candidates[k] = v
	}
	return SearchContext{
		LastSearchQuery:      m.lastSearchQuery,
		LastSearchTopPaths:   append([]string(nil), m.lastSearchTopPaths...),
		LastSearchCandidates: candidates,
		LastBundleID:         m.lastBundleID,
		SearchCount:          m.searchCount,
	}
}

// readsSinceSearch reports the hard-limit counter directly, for the budget
// guard; exported via a method rather than through Snapshot because it is
// a guard implementation detail, not a client-facing metric.
func (s *sessionStore) readsSinceSearchCount(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(key).readsSinceSearch
}

func (s *sessionStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey = make(map[string]*sessionMetrics)
	s.order = list.New()
	s.seq = 0
}

// SessionKey resolves a session's storage key: `ws:<hash(roots)>:(sid:<id>|
// conn:<id>|conn:unknown)`, session_id winning over connection_id.
func SessionKey(roots []string, sessionID, connectionID string) string {
	hash := WorkspaceHash(roots)
	sessionID = strings.TrimSpace(sessionID)
	if sessionID != "" {
		return "ws:" + hash + ":sid:" + sessionID
	}
	connectionID = strings.TrimSpace(connectionID)
	if connectionID != "" {
		return "ws:" + hash + ":conn:" + connectionID
	}
	return "ws:" + hash + ":conn:unknown"
}

// WorkspaceHash derives a stable, order-sensitive digest of a workspace's
// roots, used as the session key's namespace component so sessions from
// distinct workspaces never collide.
func WorkspaceHash(roots []string) string {
	h := sha1.New()
	for _, r := range roots {
		h.Write([]byte(r))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
