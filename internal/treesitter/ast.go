package treesitter

import sitter "github.com/tree-sitter/go-tree-sitter"

// ToASTNode serializes a tree-sitter node into the uniform ASTNode shape
// (spec §4.2). Leaf nodes (no children) carry their source text; interior
// nodes carry an ordered list of serialized children instead. Rows/columns
// are 0-based, matching tree-sitter's own positions.
func ToASTNode(node *sitter.Node, code []byte) *ASTNode {
	if node == nil {
		return nil
	}

	out := &ASTNode{
		Type:      node.Kind(),
		StartByte: node.StartByte(),
		EndByte:   node.EndByte(),
		StartPoint: Point{
			Row:    node.StartPosition().Row,
			Column: node.StartPosition().Column,
		},
		EndPoint: Point{
			Row:    node.EndPosition().Row,
			Column: node.EndPosition().Column,
		},
	}

	childCount := node.ChildCount()
	if childCount == 0 {
		out.Text = getNodeText(node, code)
		return out
	}

	out.Children = make([]*ASTNode, 0, childCount)
	for i := uint(0); i < childCount; i++ {
		out.Children = append(out.Children, ToASTNode(node.Child(i), code))
	}
	return out
}

// ParseAST parses filePath and returns its uniform AST root alongside the
// detected language. Distinct from ParseFile/ParseBytes, which extract the
// flattened CodeEntity records the GraphWriter consumes; this path exists
// for the parser_output.json AST artifact and round-trip testing (spec §8:
// Parser.extract(Parser.serialize(tree)) = tree, modulo byte-exact text).
func ParseAST(filePath string, code []byte) (*ASTNode, string, error) {
	lang := DetectLanguage(filePath, code)
	if lang == "" {
		return nil, "", nil
	}

	lp, err := NewLanguageParser(lang)
	if err != nil {
		return nil, lang, err
	}
	defer lp.Close()

	tree, err := lp.Parse(code)
	if err != nil {
		return nil, lang, err
	}
	defer tree.Close()

	return ToASTNode(tree.RootNode(), code), lang, nil
}
