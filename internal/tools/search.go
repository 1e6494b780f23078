package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/BaeCheolHan/sari-sub000/internal/search"
	"github.com/BaeCheolHan/sari-sub000/internal/stabilization"
)

// previewBudgetBytes bounds the serialized search payload, per spec.md
// §4.6's "~10 KB global cap" instruction.
const previewBudgetBytes = 10 * 1024

func (s *Server) registerSearchTools() {
	s.addTool(&mcp.Tool{
		Name:        "search",
		Description: "Unified search over the indexed workspace. search_type selects code (full-text), symbol (by name/kind), api (route/handler lookup), repo (which repo matches), or auto (infer from the query shape).",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search text."},
				"search_type": {"type": "string", "enum": ["code", "symbol", "api", "repo", "auto"], "description": "Defaults to code."},
				"repo": {"type": "string"},
				"root_ids": {"type": "array", "items": {"type": "string"}},
				"limit": {"type": "number", "multipleOf": 1},
				"offset": {"type": "number", "multipleOf": 1},
				"path_pattern": {"type": "string"},
				"file_types": {"type": "array", "items": {"type": "string"}},
				"exclude_patterns": {"type": "array", "items": {"type": "string"}},
				"case_sensitive": {"type": "boolean"},
				"recency_boost": {"type": "boolean"},
				"kinds": {"type": "array", "items": {"type": "string"}, "description": "symbol-only: restrict to these symbol kinds."},
				"match_mode": {"type": "string", "enum": ["exact", "prefix", "contains"], "description": "symbol-only."},
				"method": {"type": "string", "description": "api-only: HTTP method filter."},
				"framework_hint": {"type": "string", "description": "api-only."},
				"session_id": {"type": "string"},
				"connection_id": {"type": "string"}
			},
			"required": ["query"]
		}`),
	}, s.handleSearch)
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return toolErrorResult(invalidArgs(err.Error())), nil
	}

	opts := search.Options{
		Query:           getStringArg(args, "query"),
		SearchType:      getStringArg(args, "search_type"),
		Repo:            getStringArg(args, "repo"),
		RootIDs:         getStringSliceArg(args, "root_ids"),
		Limit:           getIntArg(args, "limit", 20),
		Offset:          getIntArg(args, "offset", 0),
		PathPattern:     getStringArg(args, "path_pattern"),
		FileTypes:       getStringSliceArg(args, "file_types"),
		ExcludePatterns: getStringSliceArg(args, "exclude_patterns"),
		CaseSensitive:   getBoolArg(args, "case_sensitive"),
		RecencyBoost:    getBoolArg(args, "recency_boost"),
		Kinds:           getStringSliceArg(args, "kinds"),
		MatchMode:       getStringArg(args, "match_mode"),
		Method:          getStringArg(args, "method"),
		FrameworkHint:   getStringArg(args, "framework_hint"),
	}
	if opts.Query == "" {
		return toolErrorResult(invalidArgs("'query' is required")), nil
	}
	for _, p := range []string{"kinds", "match_mode"} {
		if hasArg(args, p) {
			opts.SetParam(p)
		}
	}
	for _, p := range []string{"method", "framework_hint"} {
		if hasArg(args, p) {
			opts.SetParam(p)
		}
	}

	result, err := s.tctx.Dispatcher.Dispatch(opts)
	if err != nil {
		return toolErrorResult(invalidArgs(err.Error())), nil
	}

	degraded, candidates, topPaths := fitPreviewBudget(result)

	payload := map[string]any{
		"resolved_type":  result.ResolvedType,
		"blocked_reason": result.BlockedReason,
		"fallback_used":  result.FallbackUsed,
		"total":          result.Total,
		"hits":           toHitPayload(result),
	}

	if s.tctx.Stabilization != nil {
		sessionKey := s.tctx.Stabilization.SessionKey(s.tctx.AllowedRoots, getStringArg(args, "session_id"), getStringArg(args, "connection_id"))
		snapshot := s.tctx.Stabilization.RecordSearch(sessionKey, stabilization.SearchRecord{
			PreviewDegraded: degraded,
			Query:           opts.Query,
			TopPaths:        topPaths,
			Candidates:      candidates,
		})
		stab := map[string]any{
			"warnings":               []string{},
			"suggested_next_action":  "read",
			"metrics_snapshot":       snapshot,
			"search_candidate_count": len(candidates),
		}
		if degraded {
			stab["preview_degraded"] = true
		}
		payload["meta"] = map[string]any{"stabilization": stab}
	}

	return jsonResult(payload), nil
}

func toHitPayload(result search.Result) []map[string]any {
	out := make([]map[string]any, 0, len(result.Hits))
	for i, h := range result.Hits {
		entry := map[string]any{
			"type":     h.Type,
			"path":     h.Path,
			"identity": h.Identity,
		}
		if h.Line > 0 {
			entry["line"] = h.Line
		}
		if h.Qualname != "" {
			entry["qualname"] = h.Qualname
		}
		if h.Snippet != "" {
			entry["snippet"] = h.Snippet
		}
		for k, v := range h.Extra {
			entry[k] = v
		}
		entry["candidate_id"] = candidateIDFor(i, h.Path)
		out = append(out, entry)
	}
	return out
}

// fitPreviewBudget truncates snippets (longest-first) until the
// serialized payload fits the global preview budget, reporting whether
// it had to degrade anything, plus the candidate_id -> path map and
// ordered top-K paths the stabilization layer needs for its relevance
// guard and candidate binding.
func fitPreviewBudget(result search.Result) (degraded bool, candidates map[string]string, topPaths []string) {
	candidates = make(map[string]string, len(result.Hits))
	topPaths = make([]string, 0, len(result.Hits))
	for i, h := range result.Hits {
		candidates[candidateIDFor(i, h.Path)] = h.Path
		topPaths = append(topPaths, h.Path)
	}

	size := estimatedSize(result.Hits)
	for size > previewBudgetBytes {
		longest := -1
		longestLen := 0
		for i, h := range result.Hits {
			if len(h.Snippet) > longestLen {
				longest = i
				longestLen = len(h.Snippet)
			}
		}
		if longest < 0 || longestLen == 0 {
			break
		}
		degraded = true
		trimmed := result.Hits[longest].Snippet
		if len(trimmed) > 80 {
			trimmed = trimmed[:80]
		} else {
			trimmed = ""
		}
		result.Hits[longest].Snippet = trimmed
		size = estimatedSize(result.Hits)
	}
	return degraded, candidates, topPaths
}

func estimatedSize(hits []search.Hit) int {
	total := 0
	for _, h := range hits {
		total += len(h.Path) + len(h.Snippet) + len(h.Identity) + 32
	}
	return total
}

func candidateIDFor(index int, path string) string {
	return "cand-" + itoa(index) + "-" + shortHash(path)
}
