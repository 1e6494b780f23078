// Package config centralizes the SARI_* environment surface into one
// immutable Config read once at startup, replacing the teacher's pattern of
// scattered os.Getenv calls (internal/tools/tools.go's release-URL/
// version-check reads) with a single loader other packages are threaded.
package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/BaeCheolHan/sari-sub000/internal/stabilization"
)

// Config holds every tunable spec.md §6 exposes as an environment variable.
type Config struct {
	Format              string // "pack" | "json"
	ResponseCompact     bool
	ReadGateMode        stabilization.ReadGateMode
	StrictSessionID     bool
	ScannerBackend      string
	ExposeInternalTools bool
	MCPWorkers          int
	MCPQueueSize        int
	ForceContentLength  bool
	DevJSONL            bool
	StrictProtocol      bool
	CallgraphPlugins    []string
}

// Load reads the process environment into a Config, applying spec.md's
// stated defaults for anything unset or unparsable.
func Load() Config {
	cfg := Config{
		Format:              strings.ToLower(strings.TrimSpace(envOr("SARI_FORMAT", "pack"))),
		ResponseCompact:     envBool("SARI_RESPONSE_COMPACT", true),
		ReadGateMode:        readGateMode(envOr("SARI_READ_GATE_MODE", "off")),
		StrictSessionID:     envBool("SARI_STRICT_SESSION_ID", false),
		ScannerBackend:      strings.TrimSpace(os.Getenv("SARI_SCANNER_BACKEND")),
		ExposeInternalTools: envBool("SARI_EXPOSE_INTERNAL_TOOLS", false),
		MCPWorkers:          envInt("SARI_MCP_WORKERS", 4),
		MCPQueueSize:        envInt("SARI_MCP_QUEUE_SIZE", 1000),
		ForceContentLength:  envBool("SARI_FORCE_CONTENT_LENGTH", false),
		DevJSONL:            envBool("SARI_DEV_JSONL", false),
		StrictProtocol:      envBool("SARI_STRICT_PROTOCOL", false),
		CallgraphPlugins:    splitCSV(os.Getenv("SARI_CALLGRAPH_PLUGIN")),
	}
	if cfg.Format != "json" {
		cfg.Format = "pack"
	}
	if cfg.MCPWorkers <= 0 {
		cfg.MCPWorkers = 4
	}
	if cfg.MCPQueueSize <= 0 {
		cfg.MCPQueueSize = 1000
	}
	if path := strings.TrimSpace(os.Getenv("SARI_CONFIG_FILE")); path != "" {
		applyYAMLOverride(&cfg, path)
	}
	return cfg
}

// fileOverride is the optional on-disk override of the SARI_* environment
// surface; unset fields leave the environment-derived value untouched.
// Field names mirror the environment variables with the SARI_ prefix
// dropped and the rest lowercased, matching how a human would actually name
// a YAML key for these ("format", "response_compact", "read_gate_mode", ...).
type fileOverride struct {
	Format              *string  `yaml:"format"`
	ResponseCompact     *bool    `yaml:"response_compact"`
	ReadGateMode        *string  `yaml:"read_gate_mode"`
	StrictSessionID     *bool    `yaml:"strict_session_id"`
	ScannerBackend      *string  `yaml:"scanner_backend"`
	ExposeInternalTools *bool    `yaml:"expose_internal_tools"`
	MCPWorkers          *int     `yaml:"mcp_workers"`
	MCPQueueSize        *int     `yaml:"mcp_queue_size"`
	ForceContentLength  *bool    `yaml:"force_content_length"`
	DevJSONL            *bool    `yaml:"dev_jsonl"`
	StrictProtocol      *bool    `yaml:"strict_protocol"`
	CallgraphPlugins    []string `yaml:"callgraph_plugins"`
}

// applyYAMLOverride layers a SARI_CONFIG_FILE's contents over cfg; a
// missing or malformed file is silently ignored, since this override is a
// convenience on top of the authoritative environment surface, not a
// required input.
func applyYAMLOverride(cfg *Config, path string) {
	b, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var ov fileOverride
	if err := yaml.Unmarshal(b, &ov); err != nil {
		return
	}
	if ov.Format != nil {
		cfg.Format = strings.ToLower(strings.TrimSpace(*ov.Format))
	}
	if ov.ResponseCompact != nil {
		cfg.ResponseCompact = *ov.ResponseCompact
	}
	if ov.ReadGateMode != nil {
		cfg.ReadGateMode = readGateMode(*ov.ReadGateMode)
	}
	if ov.StrictSessionID != nil {
		cfg.StrictSessionID = *ov.StrictSessionID
	}
	if ov.ScannerBackend != nil {
		cfg.ScannerBackend = strings.TrimSpace(*ov.ScannerBackend)
	}
	if ov.ExposeInternalTools != nil {
		cfg.ExposeInternalTools = *ov.ExposeInternalTools
	}
	if ov.MCPWorkers != nil && *ov.MCPWorkers > 0 {
		cfg.MCPWorkers = *ov.MCPWorkers
	}
	if ov.MCPQueueSize != nil && *ov.MCPQueueSize > 0 {
		cfg.MCPQueueSize = *ov.MCPQueueSize
	}
	if ov.ForceContentLength != nil {
		cfg.ForceContentLength = *ov.ForceContentLength
	}
	if ov.DevJSONL != nil {
		cfg.DevJSONL = *ov.DevJSONL
	}
	if ov.StrictProtocol != nil {
		cfg.StrictProtocol = *ov.StrictProtocol
	}
	if len(ov.CallgraphPlugins) > 0 {
		cfg.CallgraphPlugins = ov.CallgraphPlugins
	}
}

// StabilizationConfig maps the environment-sourced fields onto
// stabilization.DefaultConfig(), leaving that package's own budget
// constants (MaxRangeLines, MaxReadsBeforeSearch, ...) untouched since
// spec.md doesn't expose them as environment variables.
func (c Config) StabilizationConfig() stabilization.Config {
	sc := stabilization.DefaultConfig()
	sc.ReadGateMode = c.ReadGateMode
	sc.StrictSessionID = c.StrictSessionID
	return sc
}

// DefaultTransportMode maps SARI_FORMAT plus the two framing overrides onto
// the wire's default output framing, per spec.md §6.3: "json" selects JSONL
// output, anything else defaults to Content-Length, and SARI_DEV_JSONL /
// SARI_FORCE_CONTENT_LENGTH override that default in either direction.
func (c Config) DefaultTransportMode() string {
	mode := "content-length"
	if c.Format == "json" {
		mode = "jsonl"
	}
	if c.DevJSONL {
		mode = "jsonl"
	}
	if c.ForceContentLength {
		mode = "content-length"
	}
	return mode
}

func readGateMode(v string) stabilization.ReadGateMode {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "warn":
		return stabilization.GateWarn
	case "enforce":
		return stabilization.GateEnforce
	default:
		return stabilization.GateOff
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
