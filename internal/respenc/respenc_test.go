package respenc

import "testing"

func TestParseFormatDefaultsToPack(t *testing.T) {
	if ParseFormat("") != FormatPack {
		t.Fatalf("empty format should default to pack")
	}
	if ParseFormat("bogus") != FormatPack {
		t.Fatalf("unrecognized format should default to pack")
	}
	if ParseFormat("JSON") != FormatJSON {
		t.Fatalf("json (any case) should select FormatJSON")
	}
}

func TestEncodeIDKeepsSafeCharacters(t *testing.T) {
	got := EncodeID("root-abc123/src/main.go")
	want := "root-abc123/src/main.go"
	if got != want {
		t.Fatalf("EncodeID = %q, want %q", got, want)
	}
}

func TestEncodeIDEscapesSpaces(t *testing.T) {
	got := EncodeID("a path/with space.go")
	if got == "a path/with space.go" {
		t.Fatalf("EncodeID should escape spaces: got %q", got)
	}
}

func TestEncodeTextEscapesEverythingUnsafe(t *testing.T) {
	got := EncodeText("a:b c")
	if got == "a:b c" {
		t.Fatalf("EncodeText should escape colon and space: got %q", got)
	}
}

func TestHeaderBasic(t *testing.T) {
	returned, total := 3, 10
	got := Header("search", map[string]string{"query": "foo"}, &returned, &total, "")
	want := "PACK1 tool=search ok=true query=foo returned=3 total=10"
	if got != want {
		t.Fatalf("Header = %q, want %q", got, want)
	}
}

func TestHeaderOmitsTotalWhenModeNone(t *testing.T) {
	total := 10
	got := Header("search", nil, nil, &total, "none")
	want := "PACK1 tool=search ok=true total_mode=none"
	if got != want {
		t.Fatalf("Header = %q, want %q", got, want)
	}
}

func TestLineSingleValue(t *testing.T) {
	got := Line("m", nil, "hello", true)
	if got != "m:hello" {
		t.Fatalf("Line = %q, want m:hello", got)
	}
}

func TestLineKV(t *testing.T) {
	got := Line("hit", map[string]string{"path": "a.go", "line": "5"}, "", false)
	want := "hit:line=5 path=a.go"
	if got != want {
		t.Fatalf("Line = %q, want %q", got, want)
	}
}

func TestErrorLine(t *testing.T) {
	got := Error("search", "INVALID_ARGS", "bad query", []string{"try again"}, "", nil)
	if got == "" {
		t.Fatalf("Error returned empty string")
	}
	if got[:5] != "PACK1" {
		t.Fatalf("Error = %q, want PACK1 prefix", got)
	}
}

func TestTruncated(t *testing.T) {
	got := Truncated(42, 50, "true")
	want := "m:truncated=true next=use_offset offset=42 limit=50"
	if got != want {
		t.Fatalf("Truncated = %q, want %q", got, want)
	}
}

func TestEncodeJSONCompact(t *testing.T) {
	out := Encode("search", FormatJSON, true, map[string]any{"total": 1.0})
	if out != `{"total":1}` {
		t.Fatalf("Encode json compact = %q", out)
	}
}

func TestEncodePackWithHitsList(t *testing.T) {
	data := map[string]any{
		"total": 2.0,
		"hits": []any{
			map[string]any{"path": "a.go", "line": 1.0},
			map[string]any{"path": "b.go", "line": 2.0},
		},
	}
	out := Encode("search", FormatPack, false, data)
	if out == "" {
		t.Fatalf("Encode pack returned empty string")
	}
	if out[:5] != "PACK1" {
		t.Fatalf("Encode pack = %q, want PACK1-prefixed header", out)
	}
}
