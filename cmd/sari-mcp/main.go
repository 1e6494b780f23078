package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/BaeCheolHan/sari-sub000/internal/config"
	"github.com/BaeCheolHan/sari-sub000/internal/indexer"
	"github.com/BaeCheolHan/sari-sub000/internal/mcpserver"
	"github.com/BaeCheolHan/sari-sub000/internal/pathutil"
	"github.com/BaeCheolHan/sari-sub000/internal/search"
	"github.com/BaeCheolHan/sari-sub000/internal/stabilization"
	"github.com/BaeCheolHan/sari-sub000/internal/store"
	"github.com/BaeCheolHan/sari-sub000/internal/tools"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println("sari-mcp", version)
		os.Exit(0)
	}

	if len(os.Args) >= 3 && os.Args[1] == "cli" {
		os.Exit(runCLI(os.Args[2:]))
	}

	if len(os.Args) >= 4 && os.Args[1] == "migrate-legacy" {
		os.Exit(runMigrateLegacy(os.Args[2:]))
	}

	roots := workspaceRoots(os.Args[1:])
	s, err := store.Open("sari-mcp")
	if err != nil {
		log.Fatalf("store open err=%v", err)
	}

	ix := indexer.New(s, indexer.Leader)
	for _, r := range roots {
		if addErr := ix.AddRoot(r); addErr != nil {
			log.Fatalf("indexer add root %q err=%v", r.Path, addErr)
		}
	}

	srv := newToolsServer(s, ix, roots)

	ctx, cancel := context.WithCancel(context.Background())
	go ix.Run(ctx, 2*time.Second)

	cfg := config.Load()
	mcpSrv := mcpserver.New(srv, rootPaths(roots), mcpserver.Options{
		Workers:             cfg.MCPWorkers,
		QueueSize:           cfg.MCPQueueSize,
		DefaultMode:         cfg.DefaultTransportMode(),
		ForceContentLength:  cfg.ForceContentLength,
		StrictProtocol:      cfg.StrictProtocol,
		ExposeInternalTools: cfg.ExposeInternalTools,
	}, slog.Default())

	runErr := mcpSrv.Run(ctx, os.Stdin, os.Stdout)
	cancel()
	s.Close()
	if runErr != nil {
		log.Fatalf("server err=%v", runErr)
	}
}

// workspaceRoots resolves one or more workspace roots from positional CLI
// arguments (paths, not flags), falling back to the current working
// directory when none were given.
func workspaceRoots(args []string) []indexer.Root {
	var paths []string
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			paths = append(paths, a)
		}
	}
	if len(paths) == 0 {
		if cwd, err := os.Getwd(); err == nil {
			paths = []string{cwd}
		}
	}

	roots := make([]indexer.Root, 0, len(paths))
	for _, p := range paths {
		norm, err := pathutil.NormalizeRoot(p)
		if err != nil {
			log.Printf("skip root %q: %v", p, err)
			continue
		}
		roots = append(roots, indexer.Root{
			ID:    pathutil.RootID(norm),
			Path:  norm,
			Label: labelFor(norm),
		})
	}
	return roots
}

func labelFor(path string) string {
	segs := strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' })
	if len(segs) == 0 {
		return path
	}
	return segs[len(segs)-1]
}

func rootPaths(roots []indexer.Root) []string {
	out := make([]string, len(roots))
	for i, r := range roots {
		out[i] = r.Path
	}
	return out
}

func newToolsServer(s *store.Store, ix *indexer.Indexer, roots []indexer.Root) *tools.Server {
	cfg := config.Load()
	return tools.NewServer(&tools.Context{
		Store:           s,
		Dispatcher:      search.New(s),
		Indexer:         ix,
		Stabilization:   stabilization.New(cfg.StabilizationConfig()),
		AllowedRoots:    rootPaths(roots),
		Logger:          slog.Default(),
		ServerVersion:   tools.Version,
		ResponseFormat:  cfg.Format,
		ResponseCompact: cfg.ResponseCompact,
	})
}

// runCLI mirrors the teacher's dev harness: direct tool invocation against
// a running-process-free store, bypassing the MCP transport entirely.
func runCLI(args []string) int {
	raw := false
	var positional []string
	for _, a := range args {
		switch a {
		case "--raw":
			raw = true
		default:
			positional = append(positional, a)
		}
	}

	roots := workspaceRoots(nil)
	s, err := store.Open("sari-mcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer s.Close()

	ix := indexer.New(s, indexer.Leader)
	for _, r := range roots {
		_ = ix.AddRoot(r)
	}
	srv := newToolsServer(s, ix, roots)

	if len(positional) == 0 || positional[0] == "--help" || positional[0] == "-h" {
		fmt.Fprintf(os.Stderr, "Usage: sari-mcp cli [--raw] <tool_name> [json_args]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n  --raw    Print full JSON output (default: human-friendly summary)\n\n")
		fmt.Fprintf(os.Stderr, "Available tools:\n  %s\n", strings.Join(srv.ToolNames(), "\n  "))
		return 0
	}

	toolName := positional[0]
	var argsJSON json.RawMessage
	if len(positional) > 1 {
		argsJSON = json.RawMessage(positional[1])
	}

	result, err := srv.CallTool(context.Background(), toolName, argsJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	var text string
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			text = tc.Text
			break
		}
	}

	if result.IsError {
		fmt.Fprintf(os.Stderr, "error: %s\n", text)
		return 1
	}

	if raw {
		printRawJSON(text)
		return 0
	}
	printSummary(toolName, text, s.DBPath())
	return 0
}

// runMigrateLegacy imports one project's symbols/relations out of a
// legacy node/edge graph database into the current workspace's store,
// for operators upgrading from the graph-store predecessor.
// Usage: sari-mcp migrate-legacy <legacy-db-path> <project-name>
func runMigrateLegacy(args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: sari-mcp migrate-legacy <legacy-db-path> <project-name>")
		return 1
	}
	legacyPath, project := args[0], args[1]

	roots := workspaceRoots(nil)
	if len(roots) == 0 {
		fmt.Fprintln(os.Stderr, "error: no workspace root resolved")
		return 1
	}

	s, err := store.Open("sari-mcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer s.Close()

	symbols, relations, err := s.MigrateLegacyGraph(legacyPath, project, roots[0].ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Printf("migrated %d symbol(s), %d relation(s) from %s (project=%s) into root %s\n",
		symbols, relations, legacyPath, project, roots[0].ID)
	return 0
}

func printRawJSON(text string) {
	var buf json.RawMessage
	if json.Unmarshal([]byte(text), &buf) == nil {
		if pretty, err := json.MarshalIndent(buf, "", "  "); err == nil {
			fmt.Println(string(pretty))
			return
		}
	}
	fmt.Println(text)
}

// printSummary prints a short human-friendly line for the tools whose
// shape is worth summarizing; everything else falls back to pretty JSON.
func printSummary(toolName, text, dbPath string) {
	var data map[string]any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		fmt.Println(text)
		return
	}

	switch toolName {
	case "search":
		printSearchSummary(data)
	case "status":
		printStatusSummary(data, dbPath)
	case "list_files":
		printListFilesSummary(data)
	default:
		printRawJSON(text)
	}
}

func printSearchSummary(data map[string]any) {
	total := jsonInt(data["total"])
	hits, _ := data["hits"].([]any)
	fmt.Printf("%d result(s), showing %d\n", total, len(hits))
	for _, h := range hits {
		m, ok := h.(map[string]any)
		if !ok {
			continue
		}
		path, _ := m["path"].(string)
		line := jsonInt(m["line"])
		qualname, _ := m["qualname"].(string)
		fmt.Printf("  %s:%d  %s\n", path, line, qualname)
	}
}

func printStatusSummary(data map[string]any, dbPath string) {
	state, _ := data["state"].(string)
	mode, _ := data["mode"].(string)
	indexed := jsonInt(data["indexed_files"])
	scanned := jsonInt(data["scanned_files"])
	fmt.Printf("state=%s mode=%s indexed=%d scanned=%d\n", state, mode, indexed, scanned)
	fmt.Printf("  db: %s\n", dbPath)
}

func printListFilesSummary(data map[string]any) {
	if repos, ok := data["repos"].([]any); ok {
		fmt.Printf("%d repo(s):\n", len(repos))
		for _, r := range repos {
			m, ok := r.(map[string]any)
			if !ok {
				continue
			}
			repo, _ := m["Repo"].(string)
			count := jsonInt(m["FileCount"])
			fmt.Printf("  %-30s %d file(s)\n", repo, count)
		}
		return
	}
	files, _ := data["files"].([]any)
	fmt.Printf("%d file(s)\n", len(files))
}

func jsonInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
