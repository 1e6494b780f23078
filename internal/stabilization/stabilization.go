package stabilization

// Reason codes attached to meta.stabilization.reason_codes, mirroring the
// original implementation's sari.mcp.stabilization.reason_codes.ReasonCode
// enum (tests/test_stabilization_reason_codes.py pins this exact ordering).
const (
	ReasonSearchFirstRequired  = "SEARCH_FIRST_REQUIRED"
	ReasonSearchRefRequired    = "SEARCH_REF_REQUIRED"
	ReasonCandidateRefRequired = "CANDIDATE_REF_REQUIRED"
	ReasonBudgetSoftLimit      = "BUDGET_SOFT_LIMIT"
	ReasonBudgetHardLimit      = "BUDGET_HARD_LIMIT"
	ReasonLowRelevance         = ReasonLowRelevanceOutsideTopK
	ReasonPreviewDegraded      = "PREVIEW_DEGRADED"
)

// EvidenceRef is one entry of meta.stabilization.evidence_refs, attached to
// every successful read (and omitted only for the distinguished NO_RESULTS
// case), per spec.md §4.7.
type EvidenceRef struct {
	Kind        string // one of: file, symbol, snippet, diff
	Path        string
	StartLine   int
	EndLine     int
	ContentHash string
	CandidateID string
}

// NextCallHint is one suggested follow-up invocation in
// meta.stabilization.next_calls, for an agent client to chain without
// guessing arguments.
type NextCallHint struct {
	Tool string
	Args map[string]any
}

// Config holds the tunables the spec exposes as SARI_* environment
// variables (centralized in internal/config, threaded in here at startup).
type Config struct {
	MaxRangeLines        int64
	MaxReadsBeforeSearch int64
	ReadGateMode         ReadGateMode
	StrictSessionID      bool
	MaxSessions          int
	MaxBundles           int
	MaxBundleItems       int
}

// DefaultConfig matches spec.md's stated defaults.
func DefaultConfig() Config {
	return Config{
		MaxRangeLines:        200,
		MaxReadsBeforeSearch: 25,
		ReadGateMode:         GateOff,
		StrictSessionID:      false,
		MaxSessions:          defaultMaxSessions,
		MaxBundles:           defaultMaxBundles,
		MaxBundleItems:       defaultMaxBundleItems,
	}
}

// Stabilization is the owned, per-process home for every session-scoped
// guard and store the tool layer needs. It replaces what the original
// implementation keeps as module-level globals (_SESSION_METRICS, _BUNDLES)
// with one value a server wires once and passes through its tool context,
// per spec.md §8's "reify global mutable singletons as owned state" note —
// tests construct a fresh Stabilization instead of calling a package-level
// reset function.
type Stabilization struct {
	cfg      Config
	sessions *sessionStore
	bundles  *bundleStore
	budget   BudgetGuard
}

// New builds a Stabilization from cfg.
func New(cfg Config) *Stabilization {
	return &Stabilization{
		cfg:      cfg,
		sessions: newSessionStore(cfg.MaxSessions),
		bundles:  newBundleStore(cfg.MaxBundles, cfg.MaxBundleItems),
		budget:   BudgetGuard{MaxRangeLines: cfg.MaxRangeLines, MaxReadsBeforeSearch: cfg.MaxReadsBeforeSearch},
	}
}

// SessionKey resolves the session key for one call's args against roots.
func (s *Stabilization) SessionKey(roots []string, sessionID, connectionID string) string {
	return SessionKey(roots, sessionID, connectionID)
}

// RequiresStrictSessionID reports whether a read missing session_id must be
// rejected with STRICT_SESSION_ID_REQUIRED under this configuration.
func (s *Stabilization) RequiresStrictSessionID(sessionID string) bool {
	if !s.cfg.StrictSessionID {
		return false
	}
	return sessionID == ""
}

// RecordSearch records a completed search's facts against key's session.
func (s *Stabilization) RecordSearch(key string, rec SearchRecord) Snapshot {
	return s.sessions.recordSearch(key, rec)
}

// RecordRead records a completed read's facts against key's session.
func (s *Stabilization) RecordRead(key string, rec ReadRecord) Snapshot {
	return s.sessions.recordRead(key, rec)
}

// MetricsSnapshot returns key's session metrics without mutating them.
func (s *Stabilization) MetricsSnapshot(key string) Snapshot {
	return s.sessions.snapshot(key)
}

// SearchContext returns key's session's most recent search context, used by
// the relevance guard and the read-first gate's candidate_id binding.
func (s *Stabilization) SearchContext(key string) SearchContext {
	return s.sessions.searchContext(key)
}

// EvaluateBudget reports the budget state for a pending read: HARD_LIMIT if
// the session's cumulative reads-since-search already exceeds the cap
// (callers must reject the read outright in this case), otherwise OK
// pending the per-call soft-limit check the caller applies separately via
// ApplySoftLimit.
func (s *Stabilization) EvaluateBudget(key string) (state string, reasonCodes []string) {
	if s.budget.EvaluateHardLimit(s.sessions.readsSinceSearchCount(key)) {
		return BudgetHardLimit, []string{ReasonBudgetHardLimit}
	}
	return BudgetOK, nil
}

// ApplySoftLimit caps a requested read line-limit per call.
func (s *Stabilization) ApplySoftLimit(requestedLimit int64) (cappedLimit int64, degraded bool, warnings []string, reasonCodes []string) {
	capped, deg, warn := s.budget.ApplySoftLimit(requestedLimit)
	if deg {
		return capped, deg, warn, []string{ReasonBudgetSoftLimit}
	}
	return capped, deg, warn, nil
}

// AssessRelevance flags a read target that fell outside the last search's
// top-K results.
func (s *Stabilization) AssessRelevance(target string, ctx SearchContext) (state string, warnings []string, alternatives []string, nextAction string, reasonCodes []string) {
	state, warnings, alternatives, nextAction = AssessRelevance(target, ctx)
	if state == RelevanceLow {
		reasonCodes = []string{ReasonLowRelevanceOutsideTopK}
	}
	return
}

// CheckReadGate enforces the read-first gate for a pending read.
func (s *Stabilization) CheckReadGate(ctx SearchContext, candidateID, target string) ([]string, error) {
	return s.cfg.ReadGateMode.Check(ctx, candidateID, target)
}

// AddReadToBundle dedupes a read into its session's aggregation bundle.
func (s *Stabilization) AddReadToBundle(sessionKey, mode, path, text string) BundleMeta {
	return s.bundles.AddRead(sessionKey, mode, path, text)
}

// Reset clears every session/bundle store; intended for test isolation
// only (construct a fresh *Stabilization in production code instead).
func (s *Stabilization) Reset() {
	s.sessions.reset()
	s.bundles.reset()
}
