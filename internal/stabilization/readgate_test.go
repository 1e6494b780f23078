package stabilization

import "testing"

func TestReadGateEnforceRejectsReadWithoutPriorSearch(t *testing.T) {
	_, err := GateEnforce.Check(SearchContext{}, "", "a.py")
	if err != ErrSearchFirstRequired {
		t.Fatalf("expected ErrSearchFirstRequired, got %v", err)
	}
}

func TestReadGateEnforceAllowsReadAfterSearch(t *testing.T) {
	ctx := SearchContext{SearchCount: 1}
	_, err := GateEnforce.Check(ctx, "", "a.py")
	if err != nil {
		t.Fatalf("expected no error once a search has happened, got %v", err)
	}
}

func TestReadGateEnforceAllowsBoundCandidateWithoutPriorSearch(t *testing.T) {
	ctx := SearchContext{LastSearchCandidates: map[string]string{"cand-1": "a.py"}}
	_, err := GateEnforce.Check(ctx, "cand-1", "a.py")
	if err != nil {
		t.Fatalf("expected a bound candidate_id to authorize the read, got %v", err)
	}
}

func TestReadGateRejectsMismatchedCandidatePath(t *testing.T) {
	ctx := SearchContext{LastSearchCandidates: map[string]string{"cand-1": "a.py"}}
	_, err := GateEnforce.Check(ctx, "cand-1", "other.py")
	if err != ErrCandidateRefRequired {
		t.Fatalf("expected ErrCandidateRefRequired for a mismatched path, got %v", err)
	}
}

func TestReadGateWarnModeWarnsButDoesNotBlock(t *testing.T) {
	warnings, err := GateWarn.Check(SearchContext{}, "", "a.py")
	if err != nil {
		t.Fatalf("expected warn mode not to block, got %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
}

func TestReadGateOffModeNeverBlocks(t *testing.T) {
	_, err := GateOff.Check(SearchContext{}, "", "a.py")
	if err != nil {
		t.Fatalf("expected off mode never to block, got %v", err)
	}
}
