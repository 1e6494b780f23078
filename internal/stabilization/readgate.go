package stabilization

import "errors"

// ReadGateMode controls how strictly a read must be preceded by a search.
type ReadGateMode string

const (
	GateOff     ReadGateMode = "off"
	GateWarn    ReadGateMode = "warn"
	GateEnforce ReadGateMode = "enforce"
)

// ErrSearchFirstRequired and ErrCandidateRefRequired are the structured
// rejections an enforce-mode gate returns, matching spec.md §4.7/§7's
// SEARCH_FIRST_REQUIRED / CANDIDATE_REF_REQUIRED tool error codes.
var (
	ErrSearchFirstRequired  = errors.New("SEARCH_FIRST_REQUIRED")
	ErrCandidateRefRequired = errors.New("CANDIDATE_REF_REQUIRED")
)

// Check enforces the read-first gate: a read with no prior search in its
// session is rejected (enforce) or merely warned about (warn); an explicit
// candidate_id short-circuits both, but only if it actually binds to the
// target path under this session — a candidate_id from a different search
// or a different target is rejected outright regardless of gate mode, since
// it signals the caller is replaying a stale or mismatched reference.
func (mode ReadGateMode) Check(ctx SearchContext, candidateID, target string) (warnings []string, err error) {
	if candidateID != "" {
		bound, ok := ctx.LastSearchCandidates[candidateID]
		if !ok || bound != target {
			return nil, ErrCandidateRefRequired
		}
		return nil, nil
	}

	if ctx.SearchCount > 0 {
		return nil, nil
	}

	switch mode {
	case GateEnforce:
		return nil, ErrSearchFirstRequired
	case GateWarn:
		return []string{"No search preceded this read; results may be less relevant. Consider calling search first."}, nil
	default: // off
		return nil, nil
	}
}
