package extractor

import (
	"gopkg.in/yaml.v3"

	"github.com/BaeCheolHan/sari-sub000/internal/astlang"
)

// extractYAMLKeys is the structured-format symbol fallback for YAML: the
// tree-sitter-yaml grammar has no registered function/class node kinds
// (astlang.ForLanguage(YAML) carries an empty FunctionNodeTypes/
// ClassNodeTypes set), so extractAST alone never produces a symbol for a
// YAML file. Each top-level mapping key becomes a KindVariable symbol,
// named and line-numbered from yaml.v3's own Node positions rather than
// re-deriving them from the tree-sitter parse.
func extractYAMLKeys(path, rootID, content string) []Symbol {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil
	}

	symbols := make([]Symbol, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode := root.Content[i]
		valNode := root.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode || keyNode.Value == "" {
			continue
		}
		name := keyNode.Value
		endLine := valNode.Line
		if endLine < keyNode.Line {
			endLine = keyNode.Line
		}
		symbols = append(symbols, Symbol{
			SymbolID: SymbolID(path, KindVariable, name),
			Path:     path,
			RootID:   rootID,
			Name:     name,
			Qualname: name,
			Kind:     KindVariable,
			Line:     keyNode.Line,
			EndLine:  endLine,
		})
	}
	return symbols
}

// yamlLanguageSymbols reports whether lang is YAML, so ExtractSymbols can
// route to the yaml.v3 key fallback instead of relying solely on the
// (symbol-less) tree-sitter grammar.
func yamlLanguageSymbols(lang *astlang.Language) bool {
	return lang != nil && *lang == astlang.YAML
}
