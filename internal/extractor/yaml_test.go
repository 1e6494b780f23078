package extractor

import "testing"

func TestExtractYAMLKeysTopLevelMapping(t *testing.T) {
	content := "name: sari-mcp\nversion: 1\nfeatures:\n  - search\n  - read\n"
	symbols := extractYAMLKeys("root-abc/config.yaml", "root-abc", content)

	if len(symbols) != 3 {
		t.Fatalf("len(symbols) = %d, want 3: %+v", len(symbols), symbols)
	}
	names := map[string]bool{}
	for _, s := range symbols {
		names[s.Name] = true
		if s.Kind != KindVariable {
			t.Fatalf("symbol %q kind = %q, want variable", s.Name, s.Kind)
		}
	}
	for _, want := range []string{"name", "version", "features"} {
		if !names[want] {
			t.Fatalf("missing symbol %q in %+v", want, symbols)
		}
	}
}

func TestExtractYAMLKeysNonMappingRootYieldsNothing(t *testing.T) {
	content := "- a\n- b\n- c\n"
	symbols := extractYAMLKeys("root-abc/list.yaml", "root-abc", content)
	if symbols != nil {
		t.Fatalf("expected nil for a sequence-rooted document, got %+v", symbols)
	}
}

func TestExtractYAMLKeysMalformedYAMLYieldsNothing(t *testing.T) {
	content := "key: [unterminated\n"
	symbols := extractYAMLKeys("root-abc/bad.yaml", "root-abc", content)
	if symbols != nil {
		t.Fatalf("expected nil for malformed YAML, got %+v", symbols)
	}
}
