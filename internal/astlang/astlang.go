// Package astlang is the language registry and tree-sitter parsing layer
// behind the AST extractor: it maps file extensions to languages and
// node-kind families and parses source into trees; the symbol and relation
// extraction itself lives in internal/extractor. Grounded on the teacher's
// internal/lang (extension registry)
// and internal/parser (pooled tree-sitter parsers), generalized to the
// language set the spec requires and the grammar set the teacher's go.mod
// already carries.
package astlang

// Language identifies a supported programming or structured-data language.
type Language string

const (
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	Java       Language = "java"
	Kotlin     Language = "kotlin"
	Go         Language = "go"
	Rust       Language = "rust"
	C          Language = "c"
	CPP        Language = "cpp"
	CSharp     Language = "c-sharp"
	Swift      Language = "swift"
	Objc       Language = "objc"
	Ruby       Language = "ruby"
	PHP        Language = "php"
	Scala      Language = "scala"
	Lua        Language = "lua"
	SCSS       Language = "scss"
	TOML       Language = "toml"
	YAML       Language = "yaml"
	HCL        Language = "hcl"
	Zig        Language = "zig"
	Bash       Language = "bash"
	Dockerfile Language = "dockerfile"
	SQL        Language = "sql"
	HTML       Language = "html"
	CSS        Language = "css"
	R          Language = "r"
)

// Spec describes the file extensions and tree-sitter node-kind families for
// one language. Regex-fallback symbolization uses FunctionNodeTypes-free
// heuristics and never consults this struct.
type Spec struct {
	Language          Language
	FileExtensions    []string
	FunctionNodeTypes []string
	ClassNodeTypes    []string
	ImportNodeTypes   []string
	CallNodeTypes     []string
}

var registry = map[string]*Spec{}
var byLanguage = map[Language]*Spec{}

func register(spec *Spec) {
	byLanguage[spec.Language] = spec
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

func init() {
	register(&Spec{Language: Python, FileExtensions: []string{".py", ".pyi"},
		FunctionNodeTypes: []string{"function_definition"}, ClassNodeTypes: []string{"class_definition"},
		ImportNodeTypes: []string{"import_statement", "import_from_statement"}, CallNodeTypes: []string{"call"}})
	register(&Spec{Language: JavaScript, FileExtensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		FunctionNodeTypes: []string{"function_declaration", "method_definition", "arrow_function"},
		ClassNodeTypes:     []string{"class_declaration"}, ImportNodeTypes: []string{"import_statement"},
		CallNodeTypes: []string{"call_expression"}})
	register(&Spec{Language: TypeScript, FileExtensions: []string{".ts"},
		FunctionNodeTypes: []string{"function_declaration", "method_definition", "arrow_function"},
		ClassNodeTypes:     []string{"class_declaration", "interface_declaration"}, ImportNodeTypes: []string{"import_statement"},
		CallNodeTypes: []string{"call_expression"}})
	register(&Spec{Language: TSX, FileExtensions: []string{".tsx"},
		FunctionNodeTypes: []string{"function_declaration", "method_definition", "arrow_function"},
		ClassNodeTypes:     []string{"class_declaration", "interface_declaration"}, ImportNodeTypes: []string{"import_statement"},
		CallNodeTypes: []string{"call_expression"}})
	register(&Spec{Language: Java, FileExtensions: []string{".java"},
		FunctionNodeTypes: []string{"method_declaration", "constructor_declaration"},
		ClassNodeTypes:     []string{"class_declaration", "interface_declaration", "enum_declaration"},
		ImportNodeTypes:    []string{"import_declaration"}, CallNodeTypes: []string{"method_invocation"}})
	register(&Spec{Language: Kotlin, FileExtensions: []string{".kt", ".kts"},
		FunctionNodeTypes: []string{"function_declaration"}, ClassNodeTypes: []string{"class_declaration"},
		ImportNodeTypes: []string{"import_header"}, CallNodeTypes: []string{"call_expression"}})
	register(&Spec{Language: Go, FileExtensions: []string{".go"},
		FunctionNodeTypes: []string{"function_declaration", "method_declaration"},
		ClassNodeTypes:     []string{"type_declaration"}, ImportNodeTypes: []string{"import_declaration"},
		CallNodeTypes: []string{"call_expression"}})
	register(&Spec{Language: Rust, FileExtensions: []string{".rs"},
		FunctionNodeTypes: []string{"function_item"}, ClassNodeTypes: []string{"struct_item", "trait_item", "enum_item"},
		ImportNodeTypes: []string{"use_declaration"}, CallNodeTypes: []string{"call_expression"}})
	register(&Spec{Language: C, FileExtensions: []string{".c", ".h"},
		FunctionNodeTypes: []string{"function_definition"}, ClassNodeTypes: []string{"struct_specifier"},
		ImportNodeTypes: []string{"preproc_include"}, CallNodeTypes: []string{"call_expression"}})
	register(&Spec{Language: CPP, FileExtensions: []string{".cpp", ".cc", ".hpp", ".hh", ".cxx"},
		FunctionNodeTypes: []string{"function_definition"}, ClassNodeTypes: []string{"class_specifier", "struct_specifier"},
		ImportNodeTypes: []string{"preproc_include"}, CallNodeTypes: []string{"call_expression"}})
	register(&Spec{Language: CSharp, FileExtensions: []string{".cs"},
		FunctionNodeTypes: []string{"method_declaration", "constructor_declaration"},
		ClassNodeTypes:     []string{"class_declaration", "interface_declaration", "struct_declaration"},
		ImportNodeTypes:    []string{"using_directive"}, CallNodeTypes: []string{"invocation_expression"}})
	register(&Spec{Language: Swift, FileExtensions: []string{".swift"},
		FunctionNodeTypes: []string{"function_declaration"}, ClassNodeTypes: []string{"class_declaration", "protocol_declaration"},
		ImportNodeTypes: []string{"import_declaration"}, CallNodeTypes: []string{"call_expression"}})
	register(&Spec{Language: Objc, FileExtensions: []string{".m", ".mm"},
		FunctionNodeTypes: []string{"method_definition", "function_definition"},
		ClassNodeTypes:     []string{"class_implementation", "class_interface", "protocol_declaration"},
		ImportNodeTypes:    []string{"preproc_include"}, CallNodeTypes: []string{"message_expression", "call_expression"}})
	register(&Spec{Language: Ruby, FileExtensions: []string{".rb"},
		FunctionNodeTypes: []string{"method"}, ClassNodeTypes: []string{"class", "module"},
		ImportNodeTypes: []string{"call"}, CallNodeTypes: []string{"call"}})
	register(&Spec{Language: PHP, FileExtensions: []string{".php"},
		FunctionNodeTypes: []string{"function_definition", "method_declaration"},
		ClassNodeTypes:     []string{"class_declaration", "interface_declaration"},
		ImportNodeTypes:    []string{"namespace_use_declaration"}, CallNodeTypes: []string{"function_call_expression"}})
	register(&Spec{Language: Scala, FileExtensions: []string{".scala"},
		FunctionNodeTypes: []string{"function_definition"}, ClassNodeTypes: []string{"class_definition", "object_definition", "trait_definition"},
		ImportNodeTypes: []string{"import_declaration"}, CallNodeTypes: []string{"call_expression"}})
	register(&Spec{Language: Lua, FileExtensions: []string{".lua"},
		FunctionNodeTypes: []string{"function_declaration"}, ClassNodeTypes: nil,
		ImportNodeTypes: []string{"function_call"}, CallNodeTypes: []string{"function_call"}})
	register(&Spec{Language: SCSS, FileExtensions: []string{".scss"}})
	register(&Spec{Language: TOML, FileExtensions: []string{".toml"}})
	register(&Spec{Language: YAML, FileExtensions: []string{".yaml", ".yml"}})
	register(&Spec{Language: HCL, FileExtensions: []string{".tf", ".hcl"}})
	register(&Spec{Language: Zig, FileExtensions: []string{".zig"}})
	register(&Spec{Language: Bash, FileExtensions: []string{".sh", ".bash"}})
	register(&Spec{Language: Dockerfile, FileExtensions: []string{".dockerfile"}})
	register(&Spec{Language: SQL, FileExtensions: []string{".sql"}})
	register(&Spec{Language: HTML, FileExtensions: []string{".html", ".htm"}})
	register(&Spec{Language: CSS, FileExtensions: []string{".css"}})
	register(&Spec{Language: R, FileExtensions: []string{".r", ".R"}})
}

// ForExtension returns the Spec registered for a file extension, or nil.
func ForExtension(ext string) *Spec { return registry[ext] }

// ForLanguage returns the Spec for a language, or nil.
func ForLanguage(l Language) *Spec { return byLanguage[l] }

// DockerfileByName recognizes the bare "Dockerfile" filename, which carries
// no extension.
func DockerfileByName(base string) bool {
	return base == "Dockerfile" || base == "dockerfile"
}

// SupportedLanguages returns every language with a registered Spec, for
// doctor's tree-sitter health probe. This includes SQL, which has a Spec
// but no grammar in parser.go, so Parse fails for it.
func SupportedLanguages() []Language {
	out := make([]Language, 0, len(byLanguage))
	for l := range byLanguage {
		out = append(out, l)
	}
	return out
}

// Recognized reports whether a language has a registered Spec. It is true
// for SQL as well, although SQL has no grammar and Parse fails for it.
func Recognized(l Language) bool {
	_, ok := byLanguage[l]
	return ok
}
