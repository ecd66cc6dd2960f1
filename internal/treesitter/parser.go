package treesitter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Import the language bindings explicitly to ensure proper linking.
var _ = tree_sitter_typescript.LanguageTypescript
var _ = tree_sitter_python.Language
var _ = tree_sitter_java.Language

// LanguageParser wraps a tree-sitter parser with a language-specific grammar.
// Always call Close() to prevent memory leaks (CGO requirement).
type LanguageParser struct {
	parser   *sitter.Parser
	language *sitter.Language
	langName string
}

// NewLanguageParser creates a parser for the specified language. Supported
// languages, per spec.md §4.2: javascript, typescript, python, java.
func NewLanguageParser(lang string) (*LanguageParser, error) {
	parser := sitter.NewParser()
	if parser == nil {
		return nil, fmt.Errorf("failed to create tree-sitter parser")
	}

	var language *sitter.Language
	switch lang {
	case "javascript", "jsx":
		language = sitter.NewLanguage(tree_sitter_javascript.Language())
	case "typescript", "tsx":
		language = sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	case "python":
		language = sitter.NewLanguage(tree_sitter_python.Language())
	case "java":
		language = sitter.NewLanguage(tree_sitter_java.Language())
	default:
		parser.Close()
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}

	if err := parser.SetLanguage(language); err != nil {
		parser.Close()
		return nil, fmt.Errorf("failed to set language %s: %w", lang, err)
	}

	return &LanguageParser{
		parser:   parser,
		language: language,
		langName: lang,
	}, nil
}

// Close releases parser resources (required - CGO memory management).
func (lp *LanguageParser) Close() {
	if lp.parser != nil {
		lp.parser.Close()
	}
}

// Parse parses source code and returns the syntax tree. Caller must call
// tree.Close() when done.
func (lp *LanguageParser) Parse(code []byte) (*sitter.Tree, error) {
	tree := lp.parser.Parse(code, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse code")
	}
	return tree, nil
}

// ParseFile reads filePath from disk and extracts code entities.
func ParseFile(filePath string) (*ParseResult, error) {
	code, err := os.ReadFile(filePath)
	if err != nil {
		return &ParseResult{
			FilePath: filePath,
			Error:    fmt.Errorf("failed to read file: %w", err),
		}, nil
	}
	return ParseBytes(filePath, code)
}

// ParseBytes extracts code entities from in-memory source, given a path used
// only to detect language and report positions. Separated from ParseFile so
// tests and billy-backed filesystems can supply content directly (spec §4.2:
// parsing is embarrassingly parallel per file, no shared mutable state).
func ParseBytes(filePath string, code []byte) (*ParseResult, error) {
	lang := DetectLanguage(filePath, code)
	if lang == "" {
		return &ParseResult{
			FilePath: filePath,
			Error:    fmt.Errorf("unsupported file type: %s", filePath),
		}, nil
	}

	lp, err := NewLanguageParser(lang)
	if err != nil {
		return &ParseResult{
			FilePath: filePath,
			Error:    fmt.Errorf("failed to create parser: %w", err),
		}, nil
	}
	defer lp.Close()

	tree, err := lp.Parse(code)
	if err != nil {
		return &ParseResult{
			FilePath: filePath,
			Error:    fmt.Errorf("failed to parse: %w", err),
		}, nil
	}
	defer tree.Close()

	var entities []CodeEntity
	root := tree.RootNode()

	switch lang {
	case "javascript", "jsx":
		entities, err = extractJavaScriptEntities(filePath, root, code)
	case "typescript", "tsx":
		entities, err = extractTypeScriptEntities(filePath, root, code)
	case "python":
		entities, err = extractPythonEntities(filePath, root, code)
	case "java":
		entities, err = extractJavaEntities(filePath, root, code)
	default:
		return &ParseResult{
			FilePath: filePath,
			Error:    fmt.Errorf("no extractor for language: %s", lang),
		}, nil
	}

	if err != nil {
		return &ParseResult{
			FilePath: filePath,
			Language: lang,
			Error:    err,
		}, nil
	}

	return &ParseResult{
		FilePath: filePath,
		Language: lang,
		Entities: entities,
	}, nil
}

// extensionLangMap maps file extensions to language identifiers.
var extensionLangMap = map[string]string{
	".js":  "javascript",
	".jsx": "jsx",
	".ts":  "typescript",
	".tsx": "tsx",
	".mjs": "javascript",
	".cjs": "javascript",
	".mts": "typescript",
	".cts": "typescript",
	".py":  "python",
	".pyi": "python",
	".pyw": "python",
	".java": "java",
}

// DetectLanguage returns the language identifier for filePath. Detection is
// by extension first; on miss, by shebang and content heuristics (spec §4.2).
// code may be nil when only the extension is available.
func DetectLanguage(filePath string, code []byte) string {
	ext := filepath.Ext(filePath)
	if lang, ok := extensionLangMap[ext]; ok {
		return lang
	}
	if len(code) == 0 {
		return ""
	}
	return detectLanguageByContent(code)
}

// detectLanguageByContent applies shebang and keyword heuristics to files
// whose extension did not match (spec §4.2: "package … class …" → java,
// "function " / "const " → javascript).
func detectLanguageByContent(code []byte) string {
	firstLine := code
	if idx := bytes.IndexByte(code, '\n'); idx >= 0 {
		firstLine = code[:idx]
	}

	if bytes.HasPrefix(firstLine, []byte("#!")) {
		switch {
		case bytes.Contains(firstLine, []byte("python")):
			return "python"
		case bytes.Contains(firstLine, []byte("node")):
			return "javascript"
		}
	}

	text := string(code)
	switch {
	case strings.Contains(text, "package ") && strings.Contains(text, "class "):
		return "java"
	case strings.Contains(text, "def ") && strings.Contains(text, ":"):
		return "python"
	case strings.Contains(text, "function ") || strings.Contains(text, "const "):
		return "javascript"
	}

	return ""
}
