package mcpserver

import "encoding/json"

// rpcRequest is one incoming JSON-RPC 2.0 message. ID is kept as raw JSON
// so it round-trips verbatim (string, number, or absent for a notification)
// instead of being forced into a single Go type.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (r rpcRequest) isNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

func errorResponse(id json.RawMessage, code int, message string, data any) *rpcResponse {
	return &rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message, Data: data}}
}

func resultResponse(id json.RawMessage, result any) *rpcResponse {
	return &rpcResponse{JSONRPC: "2.0", ID: id, Result: result}
}

// Standard JSON-RPC error codes this server emits.
const (
	errCodeParse          = -32700
	errCodeInvalidParams  = -32602
	errCodeMethodNotFound = -32601
	errCodeInternal       = -32000
	errCodeQueueFull      = -32003
)

// protocolVersionDefault is returned when a client advertises no version
// this server recognizes and SARI_STRICT_PROTOCOL is off.
const protocolVersionDefault = "2025-11-25"

// supportedProtocolVersions is the set this server will echo back verbatim
// when a client advertises one of them.
var supportedProtocolVersions = map[string]bool{
	"2024-11-05": true,
	"2025-03-26": true,
	"2025-06-18": true,
	"2025-11-25": true,
}

func sortedSupportedVersions() []string {
	out := make([]string, 0, len(supportedProtocolVersions))
	for v := range supportedProtocolVersions {
		out = append(out, v)
	}
	// simple insertion sort; the set is tiny and fixed
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

type initializeParams struct {
	ProtocolVersion           string          `json:"protocolVersion"`
	SupportedProtocolVersions []string        `json:"supportedProtocolVersions"`
	Capabilities              json.RawMessage `json:"capabilities"`
}

// clientProtocolVersions collects every version a client advertised, in the
// order it listed them, deduplicated — mirroring the original
// implementation's _iter_client_protocol_versions (protocolVersion field,
// then supportedProtocolVersions, then capabilities.protocolVersions).
func clientProtocolVersions(raw json.RawMessage) []string {
	var p struct {
		ProtocolVersion           string   `json:"protocolVersion"`
		SupportedProtocolVersions []string `json:"supportedProtocolVersions"`
		Capabilities              struct {
			ProtocolVersions []string `json:"protocolVersions"`
		} `json:"capabilities"`
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &p)
	}

	seen := map[string]bool{}
	var out []string
	add := func(v string) {
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
	}
	add(p.ProtocolVersion)
	for _, v := range p.SupportedProtocolVersions {
		add(v)
	}
	for _, v := range p.Capabilities.ProtocolVersions {
		add(v)
	}
	return out
}

// negotiateProtocolVersion picks the first client-advertised version this
// server supports, falling back to protocolVersionDefault. When strict is
// set and the client advertised at least one version but none matched, it
// returns an error instead, carrying the supported set as JSON-RPC error
// data — per the original implementation's SARI_STRICT_PROTOCOL behavior.
func negotiateProtocolVersion(params json.RawMessage, strict bool) (string, *rpcError) {
	versions := clientProtocolVersions(params)
	for _, v := range versions {
		if supportedProtocolVersions[v] {
			return v, nil
		}
	}
	if strict && len(versions) > 0 {
		return "", &rpcError{
			Code:    errCodeInvalidParams,
			Message: "Unsupported protocol version",
			Data:    map[string]any{"supported": sortedSupportedVersions()},
		}
	}
	return protocolVersionDefault, nil
}
