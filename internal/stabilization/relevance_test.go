package stabilization

import "testing"

func TestRelevanceGuardWarnsForUnrelatedTarget(t *testing.T) {
	ctx := SearchContext{SearchCount: 1, LastSearchTopPaths: []string{"a.py"}}
	state, warnings, alternatives, nextAction := AssessRelevance("other.py", ctx)
	if state != RelevanceLow {
		t.Fatalf("expected LOW_RELEVANCE, got %s", state)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
	if nextAction != "search" {
		t.Fatalf("expected suggested_next_action=search, got %q", nextAction)
	}
	if len(alternatives) != 1 || alternatives[0] != "a.py" {
		t.Fatalf("expected alternatives=[a.py], got %v", alternatives)
	}
}

func TestRelevanceGuardNoWarningForTopKTarget(t *testing.T) {
	ctx := SearchContext{SearchCount: 1, LastSearchTopPaths: []string{"a.py"}}
	state, warnings, _, _ := AssessRelevance("a.py", ctx)
	if state != RelevanceOK || warnings != nil {
		t.Fatalf("expected no warning for a top-K target, got state=%s warnings=%v", state, warnings)
	}
}

func TestRelevanceGuardNoWarningBeforeAnySearch(t *testing.T) {
	state, warnings, _, _ := AssessRelevance("whatever.py", SearchContext{})
	if state != RelevanceOK || warnings != nil {
		t.Fatalf("expected no warning when no search has happened yet, got state=%s warnings=%v", state, warnings)
	}
}
