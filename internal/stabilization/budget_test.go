package stabilization

import "testing"

func TestApplySoftLimitReducesOversizedRequest(t *testing.T) {
	g := DefaultBudgetGuard()
	capped, degraded, warnings := g.ApplySoftLimit(1000)
	if !degraded {
		t.Fatal("expected degraded=true for a request above max_range_lines")
	}
	if capped != 200 {
		t.Fatalf("expected capped limit 200, got %d", capped)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
}

func TestApplySoftLimitLeavesSmallRequestUntouched(t *testing.T) {
	g := DefaultBudgetGuard()
	capped, degraded, warnings := g.ApplySoftLimit(50)
	if degraded || capped != 50 || warnings != nil {
		t.Fatalf("expected no degradation for a request under the cap, got capped=%d degraded=%v warnings=%v", capped, degraded, warnings)
	}
}

func TestBudgetHardLimitBlocksAfterThreshold(t *testing.T) {
	s := New(DefaultConfig())
	key := s.SessionKey([]string{"/tmp/ws-hard"}, "s-hard", "")

	for i := 0; i < 25; i++ {
		if state, _ := s.EvaluateBudget(key); state != BudgetOK {
			t.Fatalf("read %d: expected OK before the 25th read, got %s", i, state)
		}
		s.RecordRead(key, ReadRecord{Lines: 1, Chars: 5, Span: 1})
	}

	state, reasons := s.EvaluateBudget(key)
	if state != BudgetHardLimit {
		t.Fatalf("expected HARD_LIMIT on the 26th read, got %s", state)
	}
	if len(reasons) != 1 || reasons[0] != ReasonBudgetHardLimit {
		t.Fatalf("expected BUDGET_HARD_LIMIT reason code, got %v", reasons)
	}
}

func TestBudgetHardLimitCounterResetsOnSearch(t *testing.T) {
	s := New(DefaultConfig())
	key := s.SessionKey([]string{"/tmp/ws-hard2"}, "s-hard2", "")

	for i := 0; i < 25; i++ {
		s.RecordRead(key, ReadRecord{Lines: 1, Chars: 5, Span: 1})
	}
	s.RecordSearch(key, SearchRecord{Query: "reset"})

	if state, _ := s.EvaluateBudget(key); state != BudgetOK {
		t.Fatalf("expected a search to reset the hard-limit counter, got %s", state)
	}
}
