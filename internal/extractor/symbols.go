package extractor

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/BaeCheolHan/sari-sub000/internal/astlang"
)

// SymbolKind enumerates the kinds a Symbol row may carry.
type SymbolKind string

const (
	KindFunction SymbolKind = "function"
	KindMethod   SymbolKind = "method"
	KindClass    SymbolKind = "class"
	KindInterface SymbolKind = "interface"
	KindStruct   SymbolKind = "struct"
	KindTrait    SymbolKind = "trait"
	KindEnum     SymbolKind = "enum"
	KindModule   SymbolKind = "module"
	KindVariable SymbolKind = "variable"
)

// Symbol is one extracted symbol tuple, per the AST extractor contract.
type Symbol struct {
	SymbolID   string
	Path       string
	RootID     string
	Name       string
	Qualname   string
	Kind       SymbolKind
	Line       int
	EndLine    int
	Content    string
	Parent     string
	MetaJSON   string
	DocComment string
}

// Relation is a directed edge from one symbol to another, resolved by id
// when known or by name+path otherwise.
type Relation struct {
	FromSymbolID string
	FromSymbol   string
	FromPath     string
	ToSymbolID   string
	ToSymbol     string
	ToPath       string
	RelType      string // calls, extends, implements, uses
	Line         int
}

// SymbolID derives a stable id from (path, kind, qualname), matching the
// invariant that this triple uniquely determines the id.
func SymbolID(path string, kind SymbolKind, qualname string) string {
	h := sha1.Sum([]byte(path + "|" + string(kind) + "|" + qualname))
	return hex.EncodeToString(h[:])
}

// ExtractSymbols returns the merged AST+regex-fallback symbol set for one
// file. lang is nil when the extension has no known language mapping, in
// which case only the regex fallback runs.
func ExtractSymbols(path, rootID string, lang *astlang.Language, content string) ([]Symbol, []Relation) {
	var astSymbols []Symbol
	var relations []Relation

	if lang != nil && astlang.Recognized(*lang) {
		if s, r, err := extractAST(path, rootID, *lang, content); err == nil {
			astSymbols, relations = s, r
		}
	}

	if yamlLanguageSymbols(lang) {
		astSymbols = append(astSymbols, extractYAMLKeys(path, rootID, content)...)
	}

	fallback := extractRegexFallback(path, rootID, content)
	merged := mergeSymbols(astSymbols, fallback)
	return merged, relations
}

// extractAST parses content with the pooled tree-sitter parser for lang and
// walks the tree collecting function/class-family nodes per the language's
// registered node-kind spec.
func extractAST(path, rootID string, lang astlang.Language, content string) ([]Symbol, []Relation, error) {
	spec := astlang.ForLanguage(lang)
	if spec == nil {
		return nil, nil, nil
	}
	tree, err := astlang.Parse(lang, []byte(content))
	if err != nil {
		return nil, nil, err
	}
	defer tree.Close()

	src := []byte(content)
	var symbols []Symbol
	var relations []Relation
	var stack []string // enclosing names, for parent/qualname tracking

	funcKinds := toSet(spec.FunctionNodeTypes)
	classKinds := toSet(spec.ClassNodeTypes)
	callKinds := toSet(spec.CallNodeTypes)

	var visit astlang.WalkFunc
	// walkScoped visits node's children with name pushed on the stack, then
	// pops it, so siblings after node are not treated as nested in it.
	walkScoped := func(node *tree_sitter.Node, name string) bool {
		stack = append(stack, name)
		for i := uint(0); i < node.ChildCount(); i++ {
			astlang.Walk(node.Child(i), visit)
		}
		stack = stack[:len(stack)-1]
		return false
	}
	visit = func(node *tree_sitter.Node) bool {
		kindStr := node.Kind()
		switch {
		case classKinds[kindStr]:
			name := firstIdentifierChild(node, src)
			if name == "" {
				return true
			}
			parent := currentParent(stack)
			qual := qualify(stack, name)
			sym := buildSymbol(path, rootID, name, qual, classKindFor(kindStr), node, src, parent)
			symbols = append(symbols, sym)
			return walkScoped(node, name)
		case funcKinds[kindStr]:
			name := firstIdentifierChild(node, src)
			if name == "" {
				return true
			}
			parent := currentParent(stack)
			qual := qualify(stack, name)
			kind := KindFunction
			if parent != "" {
				kind = KindMethod
			}
			sym := buildSymbol(path, rootID, name, qual, kind, node, src, parent)
			symbols = append(symbols, sym)
			return walkScoped(node, name)
		case callKinds[kindStr]:
			callee := firstIdentifierChild(node, src)
			if callee != "" && len(stack) > 0 {
				from := qualify(stack[:len(stack)-1], stack[len(stack)-1])
				relations = append(relations, Relation{
					FromSymbol: from,
					FromPath:   path,
					ToSymbol:   callee,
					RelType:    "calls",
					Line:       int(node.StartPosition().Row) + 1,
				})
			}
			return true
		}
		return true
	}
	astlang.Walk(tree.RootNode(), visit)

	return symbols, relations, nil
}

func classKindFor(nodeKind string) SymbolKind {
	switch {
	case strings.Contains(nodeKind, "interface"):
		return KindInterface
	case strings.Contains(nodeKind, "struct"):
		return KindStruct
	case strings.Contains(nodeKind, "trait"):
		return KindTrait
	case strings.Contains(nodeKind, "enum"):
		return KindEnum
	default:
		return KindClass
	}
}

func buildSymbol(path, rootID, name, qualname string, kind SymbolKind, node *tree_sitter.Node, src []byte, parent string) Symbol {
	startLine := int(node.StartPosition().Row) + 1
	endLine := int(node.EndPosition().Row) + 1
	return Symbol{
		SymbolID: SymbolID(path, kind, qualname),
		Path:     path,
		RootID:   rootID,
		Name:     name,
		Qualname: qualname,
		Kind:     kind,
		Line:     startLine,
		EndLine:  endLine,
		Content:  astlang.NodeText(node, src),
		Parent:   parent,
	}
}

func currentParent(stack []string) string {
	if len(stack) == 0 {
		return ""
	}
	return stack[len(stack)-1]
}

func qualify(stack []string, name string) string {
	if len(stack) == 0 {
		return name
	}
	return strings.Join(stack, ".") + "." + name
}

// firstIdentifierChild returns the text of the first direct child node whose
// kind contains "identifier" or "name" — a language-agnostic approximation
// good enough for function/class name extraction across grammars that don't
// share a single canonical "name" field.
func firstIdentifierChild(node *tree_sitter.Node, src []byte) string {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		k := child.Kind()
		if strings.Contains(k, "identifier") || k == "name" || k == "property_identifier" {
			return astlang.NodeText(child, src)
		}
	}
	return ""
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, i := range items {
		s[i] = true
	}
	return s
}

// Regex-fallback symbolizer: used when no grammar backend is registered for
// a language, or to supplement AST results for sparse grammars. Grounded on
// the teacher's internal/lang extension dispatch combined with the spec's
// "regex fallback supplies symbols" contract.
var (
	reFunc = regexp.MustCompile(`(?m)^\s*(?:export\s+|public\s+|private\s+|static\s+|async\s+)*(?:func|function|def|fn)\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	reClass = regexp.MustCompile(`(?m)^\s*(?:export\s+|public\s+|abstract\s+)*(?:class|struct|interface|trait|enum)\s+([A-Za-z_][A-Za-z0-9_]*)`)
)

func extractRegexFallback(path, rootID, content string) []Symbol {
	var symbols []Symbol
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		if m := reFunc.FindStringSubmatch(line); m != nil {
			name := m[1]
			symbols = append(symbols, Symbol{
				SymbolID: SymbolID(path, KindFunction, name),
				Path:     path,
				RootID:   rootID,
				Name:     name,
				Qualname: name,
				Kind:     KindFunction,
				Line:     i + 1,
				EndLine:  i + 1,
				Content:  line,
			})
			continue
		}
		if m := reClass.FindStringSubmatch(line); m != nil {
			name := m[1]
			symbols = append(symbols, Symbol{
				SymbolID: SymbolID(path, KindClass, name),
				Path:     path,
				RootID:   rootID,
				Name:     name,
				Qualname: name,
				Kind:     KindClass,
				Line:     i + 1,
				EndLine:  i + 1,
				Content:  line,
			})
		}
	}
	return symbols
}

// mergeSymbols combines AST and regex-fallback symbols, deduplicating on
// (name, kind, line, end_line) with AST results taking precedence.
func mergeSymbols(ast, fallback []Symbol) []Symbol {
	seen := make(map[string]bool, len(ast))
	key := func(s Symbol) string {
		return s.Name + "|" + string(s.Kind) + "|" + itoa(s.Line) + "|" + itoa(s.EndLine)
	}
	merged := make([]Symbol, 0, len(ast)+len(fallback))
	for _, s := range ast {
		merged = append(merged, s)
		seen[key(s)] = true
	}
	for _, s := range fallback {
		if !seen[key(s)] {
			merged = append(merged, s)
			seen[key(s)] = true
		}
	}
	return merged
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

// LanguageForPath maps a path's extension (or bare Dockerfile name) to an
// astlang.Language, mirroring the teacher's internal/lang.LanguageForExtension.
func LanguageForPath(path string) *astlang.Language {
	base := filepath.Base(path)
	if astlang.DockerfileByName(base) {
		l := astlang.Dockerfile
		return &l
	}
	ext := strings.ToLower(filepath.Ext(path))
	spec := astlang.ForExtension(ext)
	if spec == nil {
		return nil
	}
	l := spec.Language
	return &l
}
