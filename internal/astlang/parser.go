package astlang

import (
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	tree_sitter_bash "github.com/tree-sitter/tree-sitter-bash/bindings/go"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_c_sharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_dockerfile "github.com/camdencheek/tree-sitter-dockerfile/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_hcl "github.com/tree-sitter-grammars/tree-sitter-hcl/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_kotlin "github.com/tree-sitter-grammars/tree-sitter-kotlin/bindings/go"
	tree_sitter_lua "github.com/tree-sitter-grammars/tree-sitter-lua/bindings/go"
	tree_sitter_objc "github.com/tree-sitter-grammars/tree-sitter-objc/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_r "github.com/r-lib/tree-sitter-r/bindings/go"
	tree_sitter_ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_scala "github.com/tree-sitter/tree-sitter-scala/bindings/go"
	tree_sitter_scss "github.com/tree-sitter-grammars/tree-sitter-scss/bindings/go"
	tree_sitter_swift "github.com/alex-pinkus/tree-sitter-swift/bindings/go"
	tree_sitter_toml "github.com/tree-sitter-grammars/tree-sitter-toml/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
	tree_sitter_yaml "github.com/tree-sitter-grammars/tree-sitter-yaml/bindings/go"
	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
)

var (
	languagesOnce sync.Once
	languages     map[Language]*tree_sitter.Language
	parserPools   map[Language]*sync.Pool
)

// initLanguages builds the language table and per-language parser pools
// exactly once. Grounded on the teacher's internal/parser.initLanguages,
// expanded to the full grammar set the go.mod carries.
func initLanguages() {
	languagesOnce.Do(func() {
		languages = map[Language]*tree_sitter.Language{
			Python:     tree_sitter.NewLanguage(tree_sitter_python.Language()),
			JavaScript: tree_sitter.NewLanguage(tree_sitter_javascript.Language()),
			TypeScript: tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
			TSX:        tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
			Go:         tree_sitter.NewLanguage(tree_sitter_go.Language()),
			Rust:       tree_sitter.NewLanguage(tree_sitter_rust.Language()),
			Java:       tree_sitter.NewLanguage(tree_sitter_java.Language()),
			CPP:        tree_sitter.NewLanguage(tree_sitter_cpp.Language()),
			C:          tree_sitter.NewLanguage(tree_sitter_c.Language()),
			CSharp:     tree_sitter.NewLanguage(tree_sitter_c_sharp.Language()),
			PHP:        tree_sitter.NewLanguage(tree_sitter_php.LanguagePHPOnly()),
			Lua:        tree_sitter.NewLanguage(tree_sitter_lua.Language()),
			Scala:      tree_sitter.NewLanguage(tree_sitter_scala.Language()),
			Kotlin:     tree_sitter.NewLanguage(tree_sitter_kotlin.Language()),
			Swift:      tree_sitter.NewLanguage(tree_sitter_swift.Language()),
			Objc:       tree_sitter.NewLanguage(tree_sitter_objc.Language()),
			Ruby:       tree_sitter.NewLanguage(tree_sitter_ruby.Language()),
			HTML:       tree_sitter.NewLanguage(tree_sitter_html.Language()),
			CSS:        tree_sitter.NewLanguage(tree_sitter_css.Language()),
			SCSS:       tree_sitter.NewLanguage(tree_sitter_scss.Language()),
			TOML:       tree_sitter.NewLanguage(tree_sitter_toml.Language()),
			YAML:       tree_sitter.NewLanguage(tree_sitter_yaml.Language()),
			HCL:        tree_sitter.NewLanguage(tree_sitter_hcl.Language()),
			Zig:        tree_sitter.NewLanguage(tree_sitter_zig.Language()),
			Bash:       tree_sitter.NewLanguage(tree_sitter_bash.Language()),
			Dockerfile: tree_sitter.NewLanguage(tree_sitter_dockerfile.Language()),
			R:          tree_sitter.NewLanguage(tree_sitter_r.Language()),
		}

		parserPools = make(map[Language]*sync.Pool, len(languages))
		for l, tsLang := range languages {
			tsLang := tsLang
			parserPools[l] = &sync.Pool{
				New: func() any {
					p := tree_sitter.NewParser()
					if err := p.SetLanguage(tsLang); err != nil {
						panic(fmt.Sprintf("set language: %v", err))
					}
					return p
				},
			}
		}
	})
}

// GetLanguage returns the tree-sitter Language for l, or an error if no
// grammar backend is registered (the factory-returns-nil contract of the
// spec's §6 is surfaced one level up, in Extract).
func GetLanguage(l Language) (*tree_sitter.Language, error) {
	initLanguages()
	tsLang, ok := languages[l]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", l)
	}
	return tsLang, nil
}

// Parse parses source into a tree-sitter AST Tree using a pooled parser for
// the language. The caller must call tree.Close() when done.
func Parse(l Language, source []byte) (*tree_sitter.Tree, error) {
	initLanguages()
	pool, ok := parserPools[l]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", l)
	}
	p, _ := pool.Get().(*tree_sitter.Parser)
	if p == nil {
		return nil, fmt.Errorf("failed to get parser for language %s", l)
	}
	tree := p.Parse(source, nil)
	pool.Put(p)
	if tree == nil {
		return nil, fmt.Errorf("parse failed for language %s", l)
	}
	return tree, nil
}

// WalkFunc is called for each node during AST traversal; return false to
// skip children.
type WalkFunc func(node *tree_sitter.Node) bool

// Walk traverses the AST depth-first.
func Walk(node *tree_sitter.Node, fn WalkFunc) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil {
			Walk(child, fn)
		}
	}
}

// NodeText returns the source text spanned by node.
func NodeText(node *tree_sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
