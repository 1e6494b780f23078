package stabilization

// Relevance states, attached to a read's stabilization metadata.
const (
	RelevanceOK      = "OK"
	RelevanceLow     = "LOW_RELEVANCE"
	ReasonLowRelevanceOutsideTopK = "LOW_RELEVANCE_OUTSIDE_TOPK"
)

// maxAlternatives bounds how many of the last search's top paths are
// surfaced as alternatives on a low-relevance warning.
const maxAlternatives = 5

// AssessRelevance flags a read whose target fell outside the session's most
// recent search results, nudging the caller back toward search instead of
// guessing paths cold. Grounded on the original's relevance_guard module
// (reverse-engineered from tests/test_unified_read_relevance_guard.py: a
// target present in the last search's top-K paths gets no warning; any
// other target, once a search has happened in the session, gets a
// "this target seems unrelated" warning plus alternatives and
// suggested_next_action="search").
func AssessRelevance(target string, ctx SearchContext) (state string, warnings []string, alternatives []string, nextAction string) {
	if ctx.SearchCount == 0 || target == "" {
		return RelevanceOK, nil, nil, ""
	}
	for _, p := range ctx.LastSearchTopPaths {
		if p == target {
			return RelevanceOK, nil, nil, ""
		}
	}
	alts := ctx.LastSearchTopPaths
	if len(alts) > maxAlternatives {
		alts = alts[:maxAlternatives]
	}
	return RelevanceLow,
		[]string{"This target seems unrelated to recent search results."},
		append([]string(nil), alts...),
		"search"
}
