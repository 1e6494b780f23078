// Package search is the unified dispatcher sitting above the storage
// layer: it resolves search_type="auto" to a concrete type, fans out to
// the right store query, and normalizes every type's results into one
// record shape so callers (the MCP tool layer) don't special-case per
// search_type. Grounded on the original implementation's
// sari.mcp.tools.search_dispatch / search_normalize modules, translated
// from Python's dict-shaped results into typed Go structs.
package search

import (
	"fmt"
	"strings"

	"github.com/BaeCheolHan/sari-sub000/internal/store"
)

var allowedTypes = map[string]bool{"code": true, "symbol": true, "api": true, "repo": true, "auto": true}

// symbolOnlyParams and apiOnlyParams gate mode-specific parameters, mirroring
// validate_search_args's per-type parameter rejection.
var symbolOnlyParams = []string{"kinds", "match_mode"}
var apiOnlyParams = []string{"method", "framework_hint"}

// Options mirrors spec.md §4.4's unified search contract plus the
// per-search_type extras the original dispatcher accepts.
type Options struct {
	Query           string
	SearchType      string // code|symbol|api|repo|auto
	Repo            string
	RootIDs         []string
	Limit           int
	Offset          int
	PathPattern     string
	FileTypes       []string
	ExcludePatterns []string
	CaseSensitive   bool
	RecencyBoost    bool
	SnippetLines    int

	// symbol-only
	Kinds     []string
	MatchMode string // exact|prefix|contains

	// api-only
	Method        string
	FrameworkHint string

	// mode-specific params the caller explicitly supplied (see SetParam)
	setParams map[string]bool
}

// SetParam records that a mode-specific parameter was explicitly supplied,
// so Validate can reject it when the active search_type doesn't own it.
func (o *Options) SetParam(name string) {
	if o.setParams == nil {
		o.setParams = make(map[string]bool)
	}
	o.setParams[name] = true
}

// Validate rejects unknown search_type values and mode-specific parameters
// supplied outside their owning mode, matching validate_search_args.
func (o *Options) Validate() error {
	t := strings.ToLower(o.SearchType)
	if t == "" {
		t = "code"
	}
	if !allowedTypes[t] {
		return fmt.Errorf("invalid search_type: %q", o.SearchType)
	}
	if t != "symbol" && t != "auto" {
		for _, p := range symbolOnlyParams {
			if o.setParams[p] {
				return fmt.Errorf("%q is only valid for search_type=symbol", p)
			}
		}
	}
	if t != "api" && t != "auto" {
		for _, p := range apiOnlyParams {
			if o.setParams[p] {
				return fmt.Errorf("%q is only valid for search_type=api", p)
			}
		}
	}
	if o.Limit < 0 || o.Limit > 100 {
		return fmt.Errorf("limit must be within [1,100]")
	}
	return nil
}

// Hit is the normalized record shape every search_type collapses into.
type Hit struct {
	Type     string         // code|symbol|api|repo
	Path     string
	Identity string
	Line     int
	Qualname string
	Snippet  string
	Extra    map[string]any
}

// Result is what Dispatch returns: the resolved type (which may differ
// from the requested type when search_type="auto" or a fallback fired),
// the hits, and bookkeeping the tool layer surfaces to the caller.
type Result struct {
	ResolvedType    string
	BlockedReason   string
	FallbackUsed    bool
	Hits            []Hit
	Total           int
	Meta            store.SearchMeta
}

// Dispatcher wraps a *store.Store with the search_type fan-out/normalize
// logic, per the original's dispatch_search.
type Dispatcher struct {
	st *store.Store
}

func New(st *store.Store) *Dispatcher {
	return &Dispatcher{st: st}
}

// Dispatch resolves and runs one search request. "auto" first infers a
// type from the query shape; if the inferred type is symbol/api and
// yields no hits, it falls back to a code search, matching the original
// dispatcher's "auto symbol/api inference with code fallback" contract.
func (d *Dispatcher) Dispatch(opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	requested := strings.ToLower(opts.SearchType)
	if requested == "" {
		requested = "code"
	}

	resolved := requested
	var blockedReason string
	if requested == "auto" {
		resolved, blockedReason = InferType(opts.Query)
	}

	res, err := d.runOnce(resolved, opts)
	if err != nil {
		return Result{}, err
	}

	fallbackUsed := false
	if requested == "auto" && (resolved == "symbol" || resolved == "api") && len(res.Hits) == 0 {
		fallbackUsed = true
		resolved = "code"
		res, err = d.runOnce("code", opts)
		if err != nil {
			return Result{}, err
		}
	}

	res.ResolvedType = resolved
	res.BlockedReason = blockedReason
	res.FallbackUsed = fallbackUsed
	return res, nil
}

func (d *Dispatcher) runOnce(resolvedType string, opts Options) (Result, error) {
	switch resolvedType {
	case "symbol":
		return d.searchSymbol(opts)
	case "api":
		return d.searchAPI(opts)
	case "repo":
		return d.searchRepo(opts)
	default:
		return d.searchCode(opts)
	}
}

func (d *Dispatcher) searchCode(opts Options) (Result, error) {
	hits, meta, err := d.st.Search(store.SearchOpts{
		Query:           opts.Query,
		Repo:            opts.Repo,
		RootIDs:         opts.RootIDs,
		Limit:           opts.Limit,
		Offset:          opts.Offset,
		PathPattern:     opts.PathPattern,
		FileTypes:       opts.FileTypes,
		ExcludePatterns: opts.ExcludePatterns,
		CaseSensitive:   opts.CaseSensitive,
		RecencyBoost:    opts.RecencyBoost,
		SnippetLines:    opts.SnippetLines,
	})
	if err != nil {
		return Result{}, err
	}
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		out = append(out, Hit{
			Type:     "code",
			Path:     h.Path,
			Identity: baseName(h.Path),
			Line:     extractFirstLineNumber(h.Snippet),
			Snippet:  h.Snippet,
			Extra:    map[string]any{"repo": h.Repo, "score": h.Score},
		})
	}
	return Result{Hits: out, Total: meta.Total, Meta: meta}, nil
}

func (d *Dispatcher) searchSymbol(opts Options) (Result, error) {
	symbols, err := d.st.FindSymbolsByName(opts.Query)
	if err != nil {
		return Result{}, err
	}
	kindSet := toSet(opts.Kinds)
	out := make([]Hit, 0, len(symbols))
	for _, sym := range symbols {
		if len(kindSet) > 0 && !kindSet[sym.Kind] {
			continue
		}
		out = append(out, Hit{
			Type:     "symbol",
			Path:     sym.Path,
			Identity: sym.Name,
			Line:     sym.Line,
			Qualname: sym.Qualname,
			Extra:    map[string]any{"kind": sym.Kind},
		})
	}
	return Result{Hits: applyLimitOffset(out, opts), Total: len(out)}, nil
}

// searchAPI treats the query as a route/handler name lookup over symbols
// tagged kind="route" or kind="endpoint"; qualnames are not inspected. The
// store has no dedicated endpoints table, so this reuses the symbol index,
// matching spec.md's instruction that unavailable specialized backends
// fall back to what the general index already has.
func (d *Dispatcher) searchAPI(opts Options) (Result, error) {
	path := opts.Query
	symbols, err := d.st.FindSymbolsByName(path)
	if err != nil {
		return Result{}, err
	}
	out := make([]Hit, 0, len(symbols))
	for _, sym := range symbols {
		if sym.Kind != "route" && sym.Kind != "endpoint" {
			continue
		}
		out = append(out, Hit{
			Type:     "api",
			Path:     sym.Path,
			Identity: sym.Qualname,
			Line:     sym.Line,
			Extra:    map[string]any{"method": opts.Method, "handler": sym.Name},
		})
	}
	return Result{Hits: applyLimitOffset(out, opts), Total: len(out)}, nil
}

func (d *Dispatcher) searchRepo(opts Options) (Result, error) {
	candidates, err := d.st.RepoCandidates(opts.Query, opts.Limit)
	if err != nil {
		return Result{}, err
	}
	out := make([]Hit, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Hit{
			Type:     "repo",
			Path:     c.Repo,
			Identity: c.Repo,
			Extra:    map[string]any{"score": c.Score, "reason": c.Reason},
		})
	}
	return Result{Hits: out, Total: len(out)}, nil
}

func applyLimitOffset(hits []Hit, opts Options) []Hit {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	start := opts.Offset
	if start > len(hits) {
		start = len(hits)
	}
	end := start + limit
	if end > len(hits) {
		end = len(hits)
	}
	return hits[start:end]
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[it] = true
	}
	return out
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// extractFirstLineNumber pulls the leading "L<n>:" line-number prefix a
// store snippet carries, matching the original normalizer's regex.
func extractFirstLineNumber(snippet string) int {
	if !strings.HasPrefix(snippet, "L") {
		idx := strings.Index(snippet, "\nL")
		if idx < 0 {
			return 0
		}
		snippet = snippet[idx+1:]
	}
	rest := strings.TrimPrefix(snippet, "L")
	colon := strings.IndexByte(rest, ':')
	if colon <= 0 {
		return 0
	}
	n := 0
	for _, c := range rest[:colon] {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
