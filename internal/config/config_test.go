package config

import (
	"os"
	"testing"

	"github.com/BaeCheolHan/sari-sub000/internal/stabilization"
)

func clearSariEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"SARI_FORMAT", "SARI_RESPONSE_COMPACT", "SARI_READ_GATE_MODE",
		"SARI_STRICT_SESSION_ID", "SARI_SCANNER_BACKEND", "SARI_EXPOSE_INTERNAL_TOOLS",
		"SARI_MCP_WORKERS", "SARI_MCP_QUEUE_SIZE", "SARI_FORCE_CONTENT_LENGTH",
		"SARI_DEV_JSONL", "SARI_STRICT_PROTOCOL", "SARI_CALLGRAPH_PLUGIN", "SARI_CONFIG_FILE",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearSariEnv(t)
	cfg := Load()
	if cfg.Format != "pack" {
		t.Fatalf("Format = %q, want pack", cfg.Format)
	}
	if cfg.ReadGateMode != stabilization.GateOff {
		t.Fatalf("ReadGateMode = %q, want off", cfg.ReadGateMode)
	}
	if cfg.MCPWorkers != 4 {
		t.Fatalf("MCPWorkers = %d, want 4", cfg.MCPWorkers)
	}
	if cfg.MCPQueueSize != 1000 {
		t.Fatalf("MCPQueueSize = %d, want 1000", cfg.MCPQueueSize)
	}
	if cfg.DefaultTransportMode() != "content-length" {
		t.Fatalf("DefaultTransportMode = %q, want content-length", cfg.DefaultTransportMode())
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearSariEnv(t)
	t.Setenv("SARI_FORMAT", "json")
	t.Setenv("SARI_READ_GATE_MODE", "enforce")
	t.Setenv("SARI_STRICT_SESSION_ID", "1")
	t.Setenv("SARI_MCP_WORKERS", "8")
	t.Setenv("SARI_CALLGRAPH_PLUGIN", "a, b ,c")

	cfg := Load()
	if cfg.Format != "json" {
		t.Fatalf("Format = %q, want json", cfg.Format)
	}
	if cfg.ReadGateMode != stabilization.GateEnforce {
		t.Fatalf("ReadGateMode = %q, want enforce", cfg.ReadGateMode)
	}
	if !cfg.StrictSessionID {
		t.Fatal("StrictSessionID = false, want true")
	}
	if cfg.MCPWorkers != 8 {
		t.Fatalf("MCPWorkers = %d, want 8", cfg.MCPWorkers)
	}
	want := []string{"a", "b", "c"}
	if len(cfg.CallgraphPlugins) != len(want) {
		t.Fatalf("CallgraphPlugins = %v, want %v", cfg.CallgraphPlugins, want)
	}
	for i, v := range want {
		if cfg.CallgraphPlugins[i] != v {
			t.Fatalf("CallgraphPlugins[%d] = %q, want %q", i, cfg.CallgraphPlugins[i], v)
		}
	}
	if cfg.DefaultTransportMode() != "jsonl" {
		t.Fatalf("DefaultTransportMode = %q, want jsonl", cfg.DefaultTransportMode())
	}
}

func TestForceContentLengthOverridesJSONL(t *testing.T) {
	clearSariEnv(t)
	t.Setenv("SARI_FORMAT", "json")
	t.Setenv("SARI_FORCE_CONTENT_LENGTH", "1")
	cfg := Load()
	if cfg.DefaultTransportMode() != "content-length" {
		t.Fatalf("DefaultTransportMode = %q, want content-length (force wins)", cfg.DefaultTransportMode())
	}
}

func TestYAMLOverride(t *testing.T) {
	clearSariEnv(t)
	dir := t.TempDir()
	path := dir + "/sari.yaml"
	contents := "format: json\nmcp_workers: 2\ncallgraph_plugins: [x, y]\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("SARI_CONFIG_FILE", path)

	cfg := Load()
	if cfg.Format != "json" {
		t.Fatalf("Format = %q, want json", cfg.Format)
	}
	if cfg.MCPWorkers != 2 {
		t.Fatalf("MCPWorkers = %d, want 2", cfg.MCPWorkers)
	}
	if len(cfg.CallgraphPlugins) != 2 || cfg.CallgraphPlugins[0] != "x" {
		t.Fatalf("CallgraphPlugins = %v, want [x y]", cfg.CallgraphPlugins)
	}
}

func TestYAMLOverrideMissingFileIgnored(t *testing.T) {
	clearSariEnv(t)
	t.Setenv("SARI_CONFIG_FILE", "/nonexistent/sari.yaml")
	cfg := Load()
	if cfg.Format != "pack" {
		t.Fatalf("Format = %q, want pack (missing override file ignored)", cfg.Format)
	}
}
