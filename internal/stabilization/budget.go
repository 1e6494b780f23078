package stabilization

import "fmt"

// Budget states surfaced in meta.stabilization.budget_state.
const (
	BudgetOK        = "OK"
	BudgetSoftLimit = "SOFT_LIMIT"
	BudgetHardLimit = "HARD_LIMIT"
)

// BudgetGuard bounds per-call and cumulative read volume, grounded on the
// original implementation's budget_guard module (evaluate_budget_state /
// apply_soft_limits, reverse-engineered from
// tests/test_unified_read_budget_guard.py since the source file itself
// wasn't retrieved): a per-call soft cap that auto-chunks an oversized
// limit, and a cumulative hard cap that denies further reads once a
// session has read too many times since its last search.
type BudgetGuard struct {
	MaxRangeLines        int64 // per-read soft cap on requested lines (default 200)
	MaxReadsBeforeSearch int64 // cumulative hard cap on reads-since-last-search (default 25)
}

// DefaultBudgetGuard matches spec.md's stated defaults.
func DefaultBudgetGuard() BudgetGuard {
	return BudgetGuard{MaxRangeLines: 200, MaxReadsBeforeSearch: 25}
}

// EvaluateHardLimit reports whether a session has exceeded its cumulative
// read budget; callers must check this before doing any read work, since a
// HARD_LIMIT verdict rejects the call outright with BUDGET_EXCEEDED rather
// than degrading it.
func (g BudgetGuard) EvaluateHardLimit(readsSinceSearch int64) bool {
	max := g.MaxReadsBeforeSearch
	if max <= 0 {
		max = DefaultBudgetGuard().MaxReadsBeforeSearch
	}
	return readsSinceSearch >= max
}

// ApplySoftLimit caps a requested line limit to MaxRangeLines, returning the
// possibly-reduced limit, whether it degraded, and a warning to surface.
func (g BudgetGuard) ApplySoftLimit(requestedLimit int64) (cappedLimit int64, degraded bool, warnings []string) {
	max := g.MaxRangeLines
	if max <= 0 {
		max = DefaultBudgetGuard().MaxRangeLines
	}
	if requestedLimit <= 0 || requestedLimit <= max {
		return requestedLimit, false, nil
	}
	return max, true, []string{fmt.Sprintf("Auto-chunked read limit to max_range_lines=%d", max)}
}
