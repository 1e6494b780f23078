package tools

import (
	"log/slog"

	"github.com/BaeCheolHan/sari-sub000/internal/indexer"
	"github.com/BaeCheolHan/sari-sub000/internal/search"
	"github.com/BaeCheolHan/sari-sub000/internal/stabilization"
	"github.com/BaeCheolHan/sari-sub000/internal/store"
)

// Context is what every tool handler receives alongside its parsed
// arguments: storage, the search dispatcher, the indexer, the
// stabilization layer, the workspace roots this process may touch, a
// logger, and the server's reported version. Mirrors spec.md §4.6's
// "(args, context) -> ToolResult" contract.
type Context struct {
	Store          *store.Store
	Dispatcher     *search.Dispatcher
	Indexer        *indexer.Indexer
	Stabilization  *stabilization.Stabilization
	AllowedRoots   []string
	Logger         *slog.Logger
	ServerVersion  string

	// ResponseFormat selects "pack" or "json" tool-response encoding (see
	// internal/respenc); empty defaults to "json" for backward
	// compatibility with callers that don't set it explicitly.
	ResponseFormat  string
	ResponseCompact bool
}

// rootOutOfScope reports whether path does not fall under any allowed
// workspace root, the ERR_ROOT_OUT_OF_SCOPE guard spec.md §6 requires of
// every path-accepting tool.
func (c *Context) rootOutOfScope(path string) bool {
	if len(c.AllowedRoots) == 0 || path == "" {
		return false
	}
	for _, root := range c.AllowedRoots {
		if pathHasPrefix(path, root) {
			return false
		}
	}
	return true
}

func pathHasPrefix(path, root string) bool {
	if len(path) < len(root) {
		return false
	}
	if path[:len(root)] != root {
		return false
	}
	return len(path) == len(root) || path[len(root)] == '/' || path[len(root)] == '\\'
}
