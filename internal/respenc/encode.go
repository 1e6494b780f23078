package respenc

import (
	"encoding/json"
	"sort"
)

// Encode renders data as either a PACK1 text payload or JSON text,
// mirroring the original's mcp_response dispatch. data is whatever a tool
// handler already builds as its JSON-friendly payload (a map, slice, or
// scalar); compact selects JSON's separators when format is FormatJSON
// (PACK1 has no compact/pretty distinction).
//
// PACK1 rendering is generic rather than per-tool: any top-level slice
// field becomes one Line per element (kind = the field's singular name,
// falling back to "item"), and any top-level scalar field becomes a
// Header kv pair. This reproduces PACK1's header+lines shape without the
// original's per-tool custom field layouts, which would require touching
// every tool handler individually.
func Encode(tool string, format Format, compact bool, data any) string {
	if format == FormatJSON {
		return encodeJSON(data, compact)
	}
	return encodePack(tool, data)
}

func encodeJSON(data any, compact bool) string {
	var (
		b   []byte
		err error
	)
	if compact {
		b, err = json.Marshal(data)
	} else {
		b, err = json.MarshalIndent(data, "", "  ")
	}
	if err != nil {
		return "{}"
	}
	return string(b)
}

func encodePack(tool string, data any) string {
	// Normalize typed payloads (structs, typed slices, Go ints) to the
	// generic JSON shapes the switch below handles.
	if b, err := json.Marshal(data); err == nil {
		var norm any
		if json.Unmarshal(b, &norm) == nil {
			data = norm
		}
	}
	m, ok := data.(map[string]any)
	if !ok {
		// Not a map (a bare slice/scalar result): fall back to one line
		// per element, or a single header-only line for a scalar.
		if items, ok := data.([]any); ok {
			n := len(items)
			out := Header(tool, nil, &n, nil, "")
			for _, l := range packLines(tool, "item", items) {
				out += "\n" + l
			}
			return out
		}
		return Header(tool, map[string]string{"value": EncodeText(data)}, nil, nil, "")
	}

	kv := map[string]string{}
	var lineBlocks []string
	var returned *int

	for _, k := range sortedAnyKeys(m) {
		v := m[k]
		switch t := v.(type) {
		case []any:
			n := len(t)
			returned = &n
			lineBlocks = append(lineBlocks, packLines(tool, singularize(k), t)...)
		case map[string]any:
			lineBlocks = append(lineBlocks, packLines(tool, singularize(k), []any{t})[0])
		default:
			kv[k] = EncodeText(v)
		}
	}

	var total *int
	if tv, ok := m["total"]; ok {
		if f, ok := tv.(float64); ok {
			n := int(f)
			total = &n
			delete(kv, "total")
		}
	}

	header := Header(tool, kv, returned, total, "")
	out := header
	for _, block := range lineBlocks {
		out += "\n" + block
	}
	return out
}

func packLines(tool, kind string, items []any) []string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case map[string]any:
			fields := make(map[string]string, len(t))
			for k, v := range t {
				fields[k] = EncodeText(v)
			}
			lines = append(lines, Line(kind, fields, "", false))
		default:
			lines = append(lines, Line(kind, nil, EncodeText(t), true))
		}
	}
	return lines
}

func singularize(field string) string {
	if len(field) > 1 && field[len(field)-1] == 's' {
		return field[:len(field)-1]
	}
	return field
}

func sortedAnyKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
