// Package mcpserver drives the MCP JSON-RPC wire loop over stdin/stdout:
// dual Content-Length/JSONL framing, protocol version negotiation, method
// dispatch, and a bounded worker pool over internal/tools.Server. Grounded
// on the original implementation's sari.mcp.transport.McpTransport (the
// read_message/write_message noise-tolerant framing this file ports) and
// the teacher's cmd/codebase-memory-mcp/main.go call site
// (srv.MCPServer().Run(ctx, &mcp.StdioTransport{})), which this module
// replaces with its own transport loop while keeping the teacher's
// mcp.Tool/mcp.CallToolRequest/mcp.CallToolResult type vocabulary.
package mcpserver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

const (
	modeContentLength = "content-length"
	modeJSONL         = "jsonl"

	// maxMessageSize is the Content-Length boundary spec.md §8 names:
	// a header claiming more than this is rejected without reading the body.
	maxMessageSize = 10 * 1024 * 1024
)

// Transport reads and writes JSON-RPC messages framed either as
// "Content-Length: N\r\n\r\n<body>" or as one JSON object per line,
// tolerating leading noise lines (blank lines, stray log output) on input.
// Writes are serialized through a single mutex so two goroutines responding
// concurrently can never interleave frames on the wire.
type Transport struct {
	r           *bufio.Reader
	w           io.Writer
	writeMu     sync.Mutex
	defaultMode string
}

// NewTransport wires r/w with the given default output framing mode
// ("content-length" or "jsonl"); any other value falls back to
// content-length, matching the teacher's wire_format-unrecognized handling.
func NewTransport(r io.Reader, w io.Writer, defaultMode string) *Transport {
	if defaultMode != modeJSONL {
		defaultMode = modeContentLength
	}
	return &Transport{r: bufio.NewReader(r), w: w, defaultMode: defaultMode}
}

// ReadMessage reads the next message, skipping noise lines until it finds
// either a JSON-object line (JSONL) or a valid Content-Length header. It
// returns io.EOF once the stream is exhausted, including when a
// Content-Length body is only partially received before EOF — that yields
// no message, per spec.md §8's boundary case.
func (t *Transport) ReadMessage() (json.RawMessage, string, error) {
	for {
		line, rerr := t.r.ReadString('\n')
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			if rerr != nil {
				return nil, "", io.EOF
			}
			continue
		}

		if strings.HasPrefix(trimmed, "{") {
			if json.Valid([]byte(trimmed)) {
				return json.RawMessage(trimmed), modeJSONL, nil
			}
			if rerr != nil {
				return nil, "", io.EOF
			}
			continue // not valid JSON; treat as noise and keep scanning
		}

		if length, isHeader := t.readContentLength(trimmed); isHeader {
			if length <= 0 || length > maxMessageSize {
				continue // invalid or oversized header; keep scanning
			}
			body := make([]byte, length)
			if _, ferr := io.ReadFull(t.r, body); ferr != nil {
				return nil, "", io.EOF
			}
			if !json.Valid(body) {
				continue
			}
			return json.RawMessage(body), modeContentLength, nil
		}

		if rerr != nil {
			return nil, "", io.EOF
		}
		// anything else (blank separators, stray log lines) is noise
	}
}

// readContentLength recognizes a "Content-Length: N" header line, draining
// any subsequent header lines up to the blank separator regardless of
// whether N parses, matching the original transport's header-block
// handling. The bool reports whether the line was a Content-Length header
// at all; the int is meaningless when it's false.
func (t *Transport) readContentLength(firstLine string) (int, bool) {
	idx := strings.IndexByte(firstLine, ':')
	if idx < 0 || !strings.EqualFold(strings.TrimSpace(firstLine[:idx]), "content-length") {
		return 0, false
	}
	value := strings.TrimSpace(firstLine[idx+1:])
	for {
		l, err := t.r.ReadString('\n')
		if strings.TrimSpace(l) == "" || err != nil {
			break
		}
	}
	length, convErr := strconv.Atoi(value)
	if convErr != nil {
		return 0, true
	}
	return length, true
}

// WriteMessage serializes msg and writes it framed per mode ("" uses the
// transport's default).
func (t *Transport) WriteMessage(msg any, mode string) error {
	if mode != modeJSONL && mode != modeContentLength {
		mode = t.defaultMode
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mcpserver: marshal message: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if mode == modeJSONL {
		_, err = t.w.Write(append(body, '\n'))
		return err
	}
	if _, err = fmt.Fprintf(t.w, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
		return err
	}
	_, err = t.w.Write(body)
	return err
}
