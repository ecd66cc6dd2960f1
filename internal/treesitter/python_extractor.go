package treesitter

import (
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// extractPythonEntities extracts entities from Python AST
func extractPythonEntities(filePath string, root *sitter.Node, code []byte) ([]CodeEntity, error) {
	entities := []CodeEntity{}

	entities = append(entities, CodeEntity{
		Type:     "file",
		Name:     filepath.Base(filePath),
		FilePath: filePath,
		Language: "python",
	})

	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}

		switch node.Kind() {
		case "function_definition":
			extractPythonFunctionDefinition(node, code, filePath, &entities)

		case "class_definition":
			extractPythonClassDefinition(node, code, filePath, &entities)

		case "import_statement", "import_from_statement":
			extractPythonImportStatement(node, code, filePath, &entities)

		case "call":
			extractPythonCall(node, code, filePath, &entities)
		}

		for i := uint(0); i < node.ChildCount(); i++ {
			walk(node.Child(i))
		}
	}

	walk(root)
	return entities, nil
}

func extractPythonFunctionDefinition(node *sitter.Node, code []byte, filePath string, entities *[]CodeEntity) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	funcName := getNodeText(nameNode, code)
	paramsNode := node.ChildByFieldName("parameters")
	returnTypeNode := node.ChildByFieldName("return_type")

	params := ""
	var paramNames []string
	if paramsNode != nil {
		params = getNodeText(paramsNode, code)
		paramNames = pythonParamNames(paramsNode, code)
	}

	signature := fmt.Sprintf("def %s%s", funcName, params)
	if returnTypeNode != nil {
		signature += " -> " + getNodeText(returnTypeNode, code)
	}

	className := findPythonParentClassName(node, code)

	*entities = append(*entities, CodeEntity{
		Type:       "function",
		Name:       funcName,
		FilePath:   filePath,
		StartLine:  int(node.StartPosition().Row) + 1,
		EndLine:    int(node.EndPosition().Row) + 1,
		StartCol:   int(node.StartPosition().Column),
		EndCol:     int(node.EndPosition().Column),
		StartByte:  node.StartByte(),
		EndByte:    node.EndByte(),
		Language:   "python",
		Signature:  signature,
		Params:     paramNames,
		Docstring:  pythonDocstring(node, code),
		IsMethod:   className != "",
		ParentName: className,
	})
}

// pythonParamNames collects bare parameter identifiers, skipping "self"/"cls".
func pythonParamNames(paramsNode *sitter.Node, code []byte) []string {
	var names []string
	for i := uint(0); i < paramsNode.ChildCount(); i++ {
		child := paramsNode.Child(i)
		var nameNode *sitter.Node
		switch child.Kind() {
		case "identifier":
			nameNode = child
		case "typed_parameter", "default_parameter", "typed_default_parameter":
			nameNode = child.ChildByFieldName("name")
			if nameNode == nil && child.ChildCount() > 0 {
				nameNode = child.Child(0)
			}
		default:
			continue
		}
		if nameNode == nil {
			continue
		}
		name := getNodeText(nameNode, code)
		if name == "self" || name == "cls" || name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}

// pythonDocstring returns the function/class's leading string-literal
// docstring text, if its body starts with one.
func pythonDocstring(node *sitter.Node, code []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first.Kind() != "expression_statement" || first.ChildCount() == 0 {
		return ""
	}
	lit := first.Child(0)
	if lit.Kind() != "string" {
		return ""
	}
	return strings.Trim(getNodeText(lit, code), "\"' \t\n")
}

func extractPythonClassDefinition(node *sitter.Node, code []byte, filePath string, entities *[]CodeEntity) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	className := getNodeText(nameNode, code)

	superclassesNode := node.ChildByFieldName("superclasses")
	var signature string
	var bases []string
	if superclassesNode != nil {
		signature = fmt.Sprintf("class %s%s", className, getNodeText(superclassesNode, code))
		for i := uint(0); i < superclassesNode.ChildCount(); i++ {
			child := superclassesNode.Child(i)
			if child.Kind() == "identifier" || child.Kind() == "attribute" {
				bases = append(bases, getNodeText(child, code))
			}
		}
	} else {
		signature = fmt.Sprintf("class %s", className)
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
		Language:  "python",
		Signature: signature,
		Bases:     bases,
		Docstring: pythonDocstring(node, code),
	})
}

func extractPythonImportStatement(node *sitter.Node, code []byte, filePath string, entities *[]CodeEntity) {
	nodeType := node.Kind()

	if nodeType == "import_statement" {
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			switch child.Kind() {
			case "dotted_name", "identifier":
				importPath := getNodeText(child, code)
				*entities = append(*entities, CodeEntity{
					Type:       "import",
					Name:       importPath,
					FilePath:   filePath,
					Language:   "python",
					ImportPath: importPath,
					StartLine:  int(node.StartPosition().Row) + 1,
					EndLine:    int(node.EndPosition().Row) + 1,
				})
			case "aliased_import":
				nameNode := child.ChildByFieldName("name")
				aliasNode := child.ChildByFieldName("alias")
				if nameNode == nil {
					continue
				}
				importPath := getNodeText(nameNode, code)
				alias := ""
				if aliasNode != nil {
					alias = getNodeText(aliasNode, code)
				}
				*entities = append(*entities, CodeEntity{
					Type:       "import",
					Name:       importPath,
					FilePath:   filePath,
					Language:   "python",
					ImportPath: importPath,
					Alias:      alias,
					StartLine:  int(node.StartPosition().Row) + 1,
					EndLine:    int(node.EndPosition().Row) + 1,
				})
			}
		}
	} else if nodeType == "import_from_statement" {
		moduleNode := node.ChildByFieldName("module_name")
		if moduleNode == nil {
			return
		}
		modulePath := getNodeText(moduleNode, code)

		imported := false
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child == moduleNode {
				continue
			}
			switch child.Kind() {
			case "dotted_name", "identifier":
				imported = true
				name := getNodeText(child, code)
				*entities = append(*entities, CodeEntity{
					Type:         "import",
					Name:         name,
					FilePath:     filePath,
					Language:     "python",
					ImportPath:   modulePath,
					IsFromImport: true,
					StartLine:    int(node.StartPosition().Row) + 1,
					EndLine:      int(node.EndPosition().Row) + 1,
				})
			case "aliased_import":
				imported = true
				nameNode := child.ChildByFieldName("name")
				aliasNode := child.ChildByFieldName("alias")
				if nameNode == nil {
					continue
				}
				alias := ""
				if aliasNode != nil {
					alias = getNodeText(aliasNode, code)
				}
				*entities = append(*entities, CodeEntity{
					Type:         "import",
					Name:         getNodeText(nameNode, code),
					FilePath:     filePath,
					Language:     "python",
					ImportPath:   modulePath,
					Alias:        alias,
					IsFromImport: true,
					StartLine:    int(node.StartPosition().Row) + 1,
					EndLine:      int(node.EndPosition().Row) + 1,
				})
			}
		}
		if !imported {
			*entities = append(*entities, CodeEntity{
				Type:         "import",
				Name:         modulePath,
				FilePath:     filePath,
				Language:     "python",
				ImportPath:   modulePath,
				IsFromImport: true,
				StartLine:    int(node.StartPosition().Row) + 1,
				EndLine:      int(node.EndPosition().Row) + 1,
			})
		}
	}
}

// extractPythonCall emits a call-site placeholder for every call expression
// (spec §4.2/§4.4): `f(...)` is a direct call, `obj.method(...)` an attribute
// call whose receiver expression is carried in CallModule for later scoring.
func extractPythonCall(node *sitter.Node, code []byte, filePath string, entities *[]CodeEntity) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}

	var callName, callModule string
	isAttribute := false

	switch fnNode.Kind() {
	case "identifier":
		callName = getNodeText(fnNode, code)
	case "attribute":
		attrNode := fnNode.ChildByFieldName("attribute")
		objNode := fnNode.ChildByFieldName("object")
		if attrNode == nil {
			return
		}
		callName = getNodeText(attrNode, code)
		if objNode != nil {
			callModule = getNodeText(objNode, code)
		}
		isAttribute = true
	default:
		return
	}

	*entities = append(*entities, CodeEntity{
		Type:            "call",
		Name:            callName,
		FilePath:        filePath,
		Language:        "python",
		StartLine:       int(node.StartPosition().Row) + 1,
		EndLine:         int(node.EndPosition().Row) + 1,
		StartCol:        int(node.StartPosition().Column),
		EndCol:          int(node.EndPosition().Column),
		StartByte:       node.StartByte(),
		EndByte:         node.EndByte(),
		CallModule:      callModule,
		IsAttributeCall: isAttribute,
		ParentName:      findPythonParentClassName(node, code),
	})
}

func findPythonParentClassName(node *sitter.Node, code []byte) string {
	current := node.Parent()
	for current != nil {
		if current.Kind() == "class_definition" {
			nameNode := current.ChildByFieldName("name")
			if nameNode != nil {
				return getNodeText(nameNode, code)
			}
		}
		current = current.Parent()
	}
	return ""
}
