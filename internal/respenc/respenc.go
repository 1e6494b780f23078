// Package respenc implements the PACK1 response encoding: a compact,
// line-oriented text format tool responses can use in place of JSON, plus
// the format-selection dispatch between the two. Grounded on the original
// implementation's sari/mcp/tools/_util.py (pack_header/pack_line/
// pack_error/pack_truncated/mcp_response), ported field-for-field.
package respenc

import (
	"encoding/json"
	"net/url"
	"sort"
	"strings"
)

// Format selects which encoding a tool response uses.
type Format string

const (
	FormatPack Format = "pack"
	FormatJSON Format = "json"
)

// ParseFormat maps an arbitrary SARI_FORMAT value onto a Format, defaulting
// to FormatPack the way the original's _get_format does (anything other
// than the literal "json" falls back to "pack").
func ParseFormat(v string) Format {
	if strings.EqualFold(strings.TrimSpace(v), "json") {
		return FormatJSON
	}
	return FormatPack
}

// EncodeText applies PACK1's ENC_TEXT profile (percent-encode everything),
// used for free-form text fields: snippet, msg, reason, detail, hint.
func EncodeText(v any) string {
	return url.QueryEscape(stringify(v))
}

// EncodeID applies PACK1's ENC_ID profile, which leaves identifier-safe
// punctuation (/._-:@) unescaped, used for path/repo/name fields.
func EncodeID(v any) string {
	return encodeWithSafe(stringify(v), "/._-:@")
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// encodeWithSafe percent-encodes s the way Python's urllib.parse.quote
// does with a custom safe set: url.QueryEscape escapes more than PACK1's
// ENC_ID profile allows (it also escapes '/', ':', '@'), so each rune that
// is neither in safe nor an ASCII letter or digit is escaped on its own and
// every other rune is written through unchanged.
func encodeWithSafe(s, safe string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(safe, r) || isUnreserved(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteString(url.QueryEscape(string(r)))
	}
	return b.String()
}

func isUnreserved(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// Header builds a PACK1 header line:
// PACK1 tool=<tool> ok=true k=v ... [returned=N] [total_mode=mode] [total=M]
func Header(tool string, kv map[string]string, returned, total *int, totalMode string) string {
	parts := []string{"PACK1", "tool=" + tool, "ok=true"}
	for _, k := range sortedKeys(kv) {
		parts = append(parts, k+"="+kv[k])
	}
	if returned != nil {
		parts = append(parts, "returned="+itoa(*returned))
	}
	if totalMode != "" {
		parts = append(parts, "total_mode="+totalMode)
	}
	if total != nil && totalMode != "none" {
		parts = append(parts, "total="+itoa(*total))
	}
	return strings.Join(parts, " ")
}

// Line builds a PACK1 record line: "<kind>:<value>" when singleValue is
// set, or "<kind>:k=v k2=v2 ..." when kv is set, or a bare "<kind>:"
// otherwise.
func Line(kind string, kv map[string]string, singleValue string, hasSingleValue bool) string {
	if hasSingleValue {
		return kind + ":" + singleValue
	}
	if len(kv) > 0 {
		fields := make([]string, 0, len(kv))
		for _, k := range sortedKeys(kv) {
			fields = append(fields, k+"="+kv[k])
		}
		return kind + ":" + strings.Join(fields, " ")
	}
	return kind + ":"
}

// LineOrdered is Line but with caller-controlled field order, for callers
// that need a specific (non-alphabetical) field sequence.
func LineOrdered(kind string, orderedKV []KV) string {
	if len(orderedKV) == 0 {
		return kind + ":"
	}
	fields := make([]string, 0, len(orderedKV))
	for _, p := range orderedKV {
		fields = append(fields, p.Key+"="+p.Value)
	}
	return kind + ":" + strings.Join(fields, " ")
}

// KV is one ordered key/value pair for LineOrdered/HeaderOrdered.
type KV struct {
	Key   string
	Value string
}

// Error builds a PACK1 error response line:
// PACK1 tool=<tool> ok=false code=<CODE> msg=<ENC> [hint=<ENC>] [trace=<ENC>] [k=v ...]
func Error(tool, code, msg string, hints []string, trace string, fields map[string]string) string {
	parts := []string{"PACK1", "tool=" + tool, "ok=false", "code=" + code, "msg=" + EncodeText(msg)}
	if len(hints) > 0 {
		parts = append(parts, "hint="+EncodeText(strings.Join(hints, " | ")))
	}
	if trace != "" {
		parts = append(parts, "trace="+EncodeText(trace))
	}
	for _, k := range sortedKeys(fields) {
		parts = append(parts, k+"="+EncodeText(fields[k]))
	}
	return strings.Join(parts, " ")
}

// Truncated builds the standard "more data available" trailer line:
// m:truncated=true|maybe next=use_offset offset=<nextOffset> limit=<limit>
func Truncated(nextOffset, limit int, truncatedState string) string {
	return "m:truncated=" + truncatedState + " next=use_offset offset=" + itoa(nextOffset) + " limit=" + itoa(limit)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
