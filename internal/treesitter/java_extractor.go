package treesitter

import (
	"fmt"
	"path/filepath"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// extractJavaEntities extracts entities from Java AST. Java has no teacher
// precedent in this codebase; the walk mirrors extractPythonEntities and
// extractJavaScriptEntities, adapted to the tree-sitter-java grammar's node
// and field names (class_declaration, method_declaration, method_invocation).
func extractJavaEntities(filePath string, root *sitter.Node, code []byte) ([]CodeEntity, error) {
	entities := []CodeEntity{}

	entities = append(entities, CodeEntity{
		Type:     "file",
		Name:     filepath.Base(filePath),
		FilePath: filePath,
		Language: "java",
	})

	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}

		switch node.Kind() {
		case "class_declaration", "interface_declaration", "enum_declaration":
			extractJavaTypeDeclaration(node, code, filePath, &entities)

		case "method_declaration", "constructor_declaration":
			extractJavaMethodDeclaration(node, code, filePath, &entities)

		case "import_declaration":
			extractJavaImportDeclaration(node, code, filePath, &entities)

		case "method_invocation":
			extractJavaMethodInvocation(node, code, filePath, &entities)
		}

		for i := uint(0); i < node.ChildCount(); i++ {
			walk(node.Child(i))
		}
	}

	walk(root)
	return entities, nil
}

func extractJavaTypeDeclaration(node *sitter.Node, code []byte, filePath string, entities *[]CodeEntity) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	className := getNodeText(nameNode, code)

	var bases []string
	if superclass := node.ChildByFieldName("superclass"); superclass != nil {
		bases = append(bases, getNodeText(superclass, code))
	}
	if interfaces := node.ChildByFieldName("interfaces"); interfaces != nil {
		bases = append(bases, getNodeText(interfaces, code))
	}

	*entities = append(*entities, CodeEntity{
		Type:      "class",
		Name:      className,
		FilePath:  filePath,
		StartLine: int(node.StartPosition().Row) + 1,
		EndLine:   int(node.EndPosition().Row) + 1,
		StartCol:  int(node.StartPosition().Column),
		EndCol:    int(node.EndPosition().Column),
		StartByte: node.StartByte(),
		EndByte:   node.EndByte(),
		Language:  "java",
		Signature: fmt.Sprintf("class %s", className),
		Bases:     bases,
	})
}

func extractJavaMethodDeclaration(node *sitter.Node, code []byte, filePath string, entities *[]CodeEntity) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	methodName := getNodeText(nameNode, code)

	paramsNode := node.ChildByFieldName("parameters")
	params := ""
	var paramNames []string
	if paramsNode != nil {
		params = getNodeText(paramsNode, code)
		paramNames = javaParamNames(paramsNode, code)
	}

	returnTypeNode := node.ChildByFieldName("type")
	signature := fmt.Sprintf("%s%s", methodName, params)
	if returnTypeNode != nil {
		signature = getNodeText(returnTypeNode, code) + " " + signature
	}

	className := findJavaParentTypeName(node, code)

	*entities = append(*entities, CodeEntity{
		Type:       "function",
		Name:       methodName,
		FilePath:   filePath,
		StartLine:  int(node.StartPosition().Row) + 1,
		EndLine:    int(node.EndPosition().Row) + 1,
		StartCol:   int(node.StartPosition().Column),
		EndCol:     int(node.EndPosition().Column),
		StartByte:  node.StartByte(),
		EndByte:    node.EndByte(),
		Language:   "java",
		Signature:  signature,
		Params:     paramNames,
		IsMethod:   true,
		ParentName: className,
	})
}

// javaParamNames collects parameter identifiers from a formal_parameters node.
func javaParamNames(paramsNode *sitter.Node, code []byte) []string {
	var names []string
	for i := uint(0); i < paramsNode.ChildCount(); i++ {
		child := paramsNode.Child(i)
		if child.Kind() != "formal_parameter" && child.Kind() != "spread_parameter" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		names = append(names, getNodeText(nameNode, code))
	}
	return names
}

func extractJavaImportDeclaration(node *sitter.Node, code []byte, filePath string, entities *[]CodeEntity) {
	var importPath string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "scoped_identifier" || child.Kind() == "identifier" {
			importPath = getNodeText(child, code)
			break
		}
	}
	if importPath == "" {
		return
	}

	*entities = append(*entities, CodeEntity{
		Type:       "import",
		Name:       importPath,
		FilePath:   filePath,
		Language:   "java",
		ImportPath: importPath,
		StartLine:  int(node.StartPosition().Row) + 1,
		EndLine:    int(node.EndPosition().Row) + 1,
	})
}

// extractJavaMethodInvocation emits a call-site placeholder for `f(...)` and
// `obj.method(...)` invocations (spec §4.2/§4.4).
func extractJavaMethodInvocation(node *sitter.Node, code []byte, filePath string, entities *[]CodeEntity) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	callName := getNodeText(nameNode, code)

	var callModule string
	isAttribute := false
	if objNode := node.ChildByFieldName("object"); objNode != nil {
		callModule = getNodeText(objNode, code)
		isAttribute = true
	}

	*entities = append(*entities, CodeEntity{
		Type:            "call",
		Name:            callName,
		FilePath:        filePath,
		Language:        "java",
		StartLine:       int(node.StartPosition().Row) + 1,
		EndLine:         int(node.EndPosition().Row) + 1,
		StartCol:        int(node.StartPosition().Column),
		EndCol:          int(node.EndPosition().Column),
		StartByte:       node.StartByte(),
		EndByte:         node.EndByte(),
		CallModule:      callModule,
		IsAttributeCall: isAttribute,
		ParentName:      findJavaParentTypeName(node, code),
	})
}

func findJavaParentTypeName(node *sitter.Node, code []byte) string {
	current := node.Parent()
	for current != nil {
		switch current.Kind() {
		case "class_declaration", "interface_declaration", "enum_declaration":
			if nameNode := current.ChildByFieldName("name"); nameNode != nil {
				return getNodeText(nameNode, code)
			}
		}
		current = current.Parent()
	}
	return ""
}
