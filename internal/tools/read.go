package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/BaeCheolHan/sari-sub000/internal/stabilization"
	"github.com/BaeCheolHan/sari-sub000/internal/store"
)

var readModes = map[string]bool{"file": true, "symbol": true, "snippet": true, "diff_preview": true, "ast_edit": true}
var diffBaselines = map[string]bool{"HEAD": true, "WORKTREE": true, "INDEX": true}

func (s *Server) registerReadTools() {
	s.addTool(&mcp.Tool{
		Name:        "read",
		Description: "Unified read over the indexed workspace. mode selects file (whole-file read), symbol (named block), snippet (a previously saved tag, remapped if the file has drifted), diff_preview (working-tree diff against a baseline), or ast_edit (structural in-place edit).",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"mode": {"type": "string", "enum": ["file", "symbol", "snippet", "diff_preview", "ast_edit"]},
				"target": {"type": "string", "description": "Path, symbol name, or snippet tag, depending on mode."},
				"path": {"type": "string", "description": "symbol/diff_preview/ast_edit-only: explicit file path."},
				"name": {"type": "string", "description": "symbol-only: symbol name."},
				"start_line": {"type": "number", "multipleOf": 1, "description": "snippet-only."},
				"end_line": {"type": "number", "multipleOf": 1, "description": "snippet-only."},
				"context_lines": {"type": "number", "multipleOf": 1, "description": "snippet-only."},
				"limit": {"type": "number", "multipleOf": 1, "description": "mode=file: soft cap on returned lines; requests over max_range_lines are auto-chunked down and reported via meta.stabilization."},
				"against": {"type": "string", "enum": ["HEAD", "WORKTREE", "INDEX"], "description": "diff_preview-only."},
				"tag": {"type": "string", "description": "snippet-only: saved snippet tag."},
				"expected_version_hash": {"type": "string", "description": "ast_edit-only: first 12 hex chars of sha256(current content)."},
				"old_text": {"type": "string", "description": "ast_edit-only."},
				"new_text": {"type": "string", "description": "ast_edit-only."},
				"symbol_kind": {"type": "string", "description": "ast_edit-only."},
				"symbol_qualname": {"type": "string", "description": "ast_edit-only."},
				"candidate_id": {"type": "string"},
				"session_id": {"type": "string"},
				"connection_id": {"type": "string"}
			},
			"required": ["mode"]
		}`),
	}, s.handleRead)
}

func (s *Server) handleRead(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return toolErrorResult(invalidArgs(err.Error())), nil
	}

	mode := getStringArg(args, "mode")
	if !readModes[mode] {
		return toolErrorResult(invalidArgs("'mode' must be one of: file, symbol, snippet, diff_preview, ast_edit")), nil
	}
	if tErr := rejectCrossModeParams(args, mode); tErr != nil {
		return toolErrorResult(tErr), nil
	}
	if against := getStringArg(args, "against"); hasArg(args, "against") && !diffBaselines[against] {
		return toolErrorResult(invalidArgs("'against' must be one of: HEAD, WORKTREE, INDEX")), nil
	}

	tctx := s.tctx
	sessionID := getStringArg(args, "session_id")
	target := strings.TrimSpace(getStringArg(args, "target"))
	var sessionKey string
	var searchCtx stabilization.SearchContext
	var budgetState string
	var relevanceWarnings, relevanceAlternatives []string
	var nextAction string
	limit := int64(getIntArg(args, "limit", 0))

	if tctx.Stabilization != nil {
		if tctx.Stabilization.RequiresStrictSessionID(sessionID) {
			return toolErrorResult(NewToolError(CodeStrictSessionRequired, "session_id is required in strict mode")), nil
		}
		sessionKey = tctx.Stabilization.SessionKey(tctx.AllowedRoots, sessionID, getStringArg(args, "connection_id"))

		if state, _ := tctx.Stabilization.EvaluateBudget(sessionKey); state == stabilization.BudgetHardLimit {
			return toolErrorResult(NewToolError(CodeBudgetExceeded, "read budget exceeded; run search before additional reads")), nil
		}

		searchCtx = tctx.Stabilization.SearchContext(sessionKey)
		gateWarnings, gateErr := tctx.Stabilization.CheckReadGate(searchCtx, getStringArg(args, "candidate_id"), target)
		if gateErr == stabilization.ErrSearchFirstRequired {
			return toolErrorResult(NewToolError(CodeSearchFirstRequired, "run search before reading; pass the search result's candidate_id to bypass")), nil
		}
		if gateErr == stabilization.ErrCandidateRefRequired {
			return toolErrorResult(NewToolError(CodeCandidateRefRequired, "candidate_id does not match this session's last search results for that path")), nil
		}
		relevanceWarnings = append(relevanceWarnings, gateWarnings...)

		relState, relWarnings, relAlts, relNext, _ := tctx.Stabilization.AssessRelevance(target, searchCtx)
		relevanceWarnings = append(relevanceWarnings, relWarnings...)
		relevanceAlternatives = relAlts
		nextAction = relNext
		if relState == stabilization.RelevanceLow {
			budgetState = stabilization.BudgetOK
		}

		cappedLimit, degraded, softWarnings, _ := tctx.Stabilization.ApplySoftLimit(limit)
		limit = cappedLimit
		if degraded {
			relevanceWarnings = append(relevanceWarnings, softWarnings...)
			budgetState = stabilization.BudgetSoftLimit
		}
	}

	var (
		result  map[string]any
		lines   int64
		chars   int64
		span    int64
		evPath  string
		toolErr *ToolError
	)

	switch mode {
	case "file":
		result, lines, chars, span, evPath, toolErr = s.readFile(args, target, limit)
	case "symbol":
		result, lines, chars, span, evPath, toolErr = s.readSymbol(args, target)
	case "snippet":
		result, lines, chars, span, evPath, toolErr = s.readSnippet(args, target)
	case "diff_preview":
		result, lines, chars, span, evPath, toolErr = s.readDiffPreview(args, target)
	case "ast_edit":
		result, lines, chars, span, evPath, toolErr = s.readASTEdit(ctx, args, target)
	}
	if toolErr != nil {
		return toolErrorResult(toolErr), nil
	}

	if tctx.Stabilization != nil {
		snapshot := tctx.Stabilization.RecordRead(sessionKey, stabilization.ReadRecord{Lines: lines, Chars: chars, Span: span})
		bundleMeta := tctx.Stabilization.AddReadToBundle(sessionKey, mode, evPath, fmt.Sprintf("%v", result["content"]))
		stab := map[string]any{
			"budget_state":            valueOr(budgetState, stabilization.BudgetOK),
			"warnings":                relevanceWarnings,
			"suggested_next_action":   valueOr(nextAction, "search"),
			"metrics_snapshot":        snapshot,
			"context_bundle_id":       bundleMeta.ContextBundleID,
			"bundle_items":            bundleMeta.BundleItems,
			"evidence_refs":           []EvidenceRefPayload{{Kind: mode, Path: evPath, StartLine: intArgOrZero(args, "start_line"), EndLine: intArgOrZero(args, "end_line"), ContentHash: contentHashHex([]byte(fmt.Sprintf("%v", result["content"])))}},
		}
		if len(relevanceAlternatives) > 0 {
			stab["alternatives"] = relevanceAlternatives
		}
		result["meta"] = map[string]any{"stabilization": stab}
	}

	return jsonResult(result), nil
}

// EvidenceRefPayload is meta.stabilization.evidence_refs's wire shape.
type EvidenceRefPayload struct {
	Kind        string `json:"kind"`
	Path        string `json:"path"`
	StartLine   int    `json:"start_line,omitempty"`
	EndLine     int    `json:"end_line,omitempty"`
	ContentHash string `json:"content_hash"`
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func intArgOrZero(args map[string]any, key string) int {
	return getIntArg(args, key, 0)
}

func contentHashHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:12]
}

func rejectCrossModeParams(args map[string]any, mode string) *ToolError {
	if mode != "diff_preview" {
		if hasArg(args, "against") {
			return invalidArgs("'against' is only valid for mode='diff_preview'")
		}
	}
	if mode != "snippet" {
		for _, k := range []string{"start_line", "end_line", "context_lines"} {
			if hasArg(args, k) {
				return invalidArgs(fmt.Sprintf("%q is only valid for mode='snippet'", k))
			}
		}
	}
	if mode != "symbol" && mode != "ast_edit" {
		for _, k := range []string{"name", "symbol_qualname", "symbol_kind"} {
			if hasArg(args, k) {
				return invalidArgs(fmt.Sprintf("%q is only valid for mode='symbol'/'ast_edit'", k))
			}
		}
	}
	return nil
}

func (s *Server) readFile(args map[string]any, target string, limit int64) (map[string]any, int64, int64, int64, string, *ToolError) {
	path := target
	if p := getStringArg(args, "path"); p != "" {
		path = p
	}
	dbPath, absPath, tErr := s.tctx.resolvePath(path)
	if tErr != nil {
		return nil, 0, 0, 0, "", tErr
	}
	content, err := readOnDisk(absPath)
	if err != nil {
		content, err = s.tctx.Store.ReadFile(dbPath)
		if err != nil {
			return nil, 0, 0, 0, "", NewToolError(CodeIOError, err.Error())
		}
	}
	if content == nil {
		return nil, 0, 0, 0, "", NewToolError(CodeNotIndexed, "file not found or not indexed: "+path)
	}
	text := string(content)
	lines := int64(strings.Count(text, "\n") + 1)
	truncated := false
	if limit > 0 && lines > limit {
		all := strings.Split(text, "\n")
		text = strings.Join(all[:limit], "\n")
		lines = limit
		truncated = true
	}
	result := map[string]any{
		"content": []map[string]any{{"text": text, "path": dbPath}},
	}
	if truncated {
		result["truncated"] = true
	}
	return result, lines, int64(len(text)), lines, dbPath, nil
}

func (s *Server) readSymbol(args map[string]any, target string) (map[string]any, int64, int64, int64, string, *ToolError) {
	path := getStringArg(args, "path")
	name := getStringArg(args, "name")
	if name == "" {
		name = target
	}
	if path == "" || name == "" {
		return nil, 0, 0, 0, "", invalidArgs("symbol mode requires 'path' and 'name' (or 'target' as the name)")
	}
	dbPath, _, tErr := s.tctx.resolvePath(path)
	if tErr != nil {
		return nil, 0, 0, 0, "", tErr
	}
	sym, err := s.tctx.Store.GetSymbolBlock(dbPath, name)
	if err != nil {
		return nil, 0, 0, 0, "", NewToolError(CodeDBError, err.Error())
	}
	if sym == nil {
		return nil, 0, 0, 0, "", NewToolError(CodeSymbolResolutionFail, fmt.Sprintf("symbol %q not found in %q", name, path))
	}
	span := int64(sym.EndLine - sym.Line + 1)
	if span < 0 {
		span = 0
	}
	return map[string]any{
		"content":    sym.Content,
		"start_line": sym.Line,
		"end_line":   sym.EndLine,
		"qualname":   sym.Qualname,
		"kind":       sym.Kind,
	}, int64(strings.Count(sym.Content, "\n") + 1), int64(len(sym.Content)), span, dbPath, nil
}

func (s *Server) readSnippet(args map[string]any, target string) (map[string]any, int64, int64, int64, string, *ToolError) {
	tag := getStringArg(args, "tag")
	if tag == "" {
		tag = target
	}
	if tag == "" {
		return nil, 0, 0, 0, "", invalidArgs("snippet mode requires 'tag' (or 'target' as the tag)")
	}
	path := getStringArg(args, "path")
	sn, err := s.tctx.Store.GetSnippet(tag, path)
	if err != nil {
		return nil, 0, 0, 0, "", NewToolError(CodeDBError, err.Error())
	}
	if sn == nil {
		if path == "" {
			all, listErr := s.tctx.Store.ListSnippets(tag)
			if listErr == nil && len(all) > 0 {
				sn = all[0]
			}
		}
	}
	if sn == nil {
		return nil, 0, 0, 0, "", NewToolError(CodeNoResults, fmt.Sprintf("no snippet tagged %q", tag))
	}

	content := sn.Content
	startLine, endLine := sn.StartLine, sn.EndLine
	remapped := false
	if _, absPath, tErr := s.tctx.resolvePath(sn.Path); tErr == nil {
		if onDisk, rErr := readOnDisk(absPath); rErr == nil {
			remappedStart, remappedEnd, remappedContent, didRemap := remapSnippet(string(onDisk), sn)
			if didRemap {
				startLine, endLine, content, remapped = remappedStart, remappedEnd, remappedContent, true
			}
		}
	}

	span := int64(endLine - startLine + 1)
	if span < 0 {
		span = 0
	}
	return map[string]any{
		"results": []map[string]any{{
			"tag": sn.Tag, "path": sn.Path, "content": content,
			"start_line": startLine, "end_line": endLine, "remapped": remapped, "note": sn.Note,
		}},
	}, int64(strings.Count(content, "\n") + 1), int64(len(content)), span, sn.Path, nil
}

// remapSnippet relocates a saved snippet's range when the underlying file
// has drifted: an exact range check first, then an exact-content scan.
// Grounded on get_snippet.py's _remap_snippet; the anchor-based fallback
// and background location-update side effects are not ported (those
// persist relocation back into storage from inside the read path, which
// this module's single-writer identity keeps out of a read-only tool).
func remapSnippet(onDisk string, sn *store.Snippet) (start, end int, content string, remapped bool) {
	lines := strings.Split(onDisk, "\n")
	if sn.StartLine > 0 && sn.EndLine >= sn.StartLine && sn.EndLine <= len(lines) {
		current := strings.Join(lines[sn.StartLine-1:sn.EndLine], "\n")
		if current == sn.Content {
			return sn.StartLine, sn.EndLine, current, false
		}
	}
	storedLines := strings.Split(sn.Content, "\n")
	if len(storedLines) == 0 || (len(storedLines) == 1 && storedLines[0] == "") {
		return sn.StartLine, sn.EndLine, sn.Content, false
	}
	for i := 0; i+len(storedLines) <= len(lines); i++ {
		if sliceEqual(lines[i:i+len(storedLines)], storedLines) {
			return i + 1, i + len(storedLines), strings.Join(storedLines, "\n"), true
		}
	}
	return sn.StartLine, sn.EndLine, sn.Content, false
}

func sliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *Server) readDiffPreview(args map[string]any, target string) (map[string]any, int64, int64, int64, string, *ToolError) {
	path := getStringArg(args, "path")
	if path == "" {
		path = target
	}
	if path == "" {
		return nil, 0, 0, 0, "", invalidArgs("diff_preview mode requires 'path' (or 'target' as the path)")
	}
	dbPath, absPath, tErr := s.tctx.resolvePath(path)
	if tErr != nil {
		return nil, 0, 0, 0, "", tErr
	}
	against := getStringArg(args, "against")
	if against == "" {
		against = "WORKTREE"
	}
	diffText, err := gitDiffFile(absPath, against)
	if err != nil {
		return nil, 0, 0, 0, "", NewToolError(CodeIOError, err.Error())
	}
	return map[string]any{"diff": diffText, "against": against}, int64(strings.Count(diffText, "\n") + 1), int64(len(diffText)), int64(strings.Count(diffText, "\n") + 1), dbPath, nil
}
