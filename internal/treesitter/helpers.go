package treesitter

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// getNodeText extracts text from a node using byte offsets
func getNodeText(node *sitter.Node, code []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if int(end) > len(code) {
		end = uint(len(code))
	}
	return string(code[start:end])
}

// findParentClassName traverses up to find the containing class name
func findParentClassName(node *sitter.Node, code []byte) string {
	current := node.Parent()
	for current != nil {
		if current.Kind() == "class_declaration" {
			nameNode := current.ChildByFieldName("name")
			if nameNode != nil {
				return getNodeText(nameNode, code)
			}
		}
		current = current.Parent()
	}
	return ""
}

// jsParamNames collects bare parameter identifiers from a JS/TS
// formal_parameters node, looking through default/typed/rest wrappers.
func jsParamNames(paramsNode *sitter.Node, code []byte) []string {
	var names []string
	for i := uint(0); i < paramsNode.ChildCount(); i++ {
		child := paramsNode.Child(i)
		nameNode := child
		switch child.Kind() {
		case "identifier":
			// bare
		case "required_parameter", "optional_parameter":
			if n := child.ChildByFieldName("pattern"); n != nil {
				nameNode = n
			}
		case "assignment_pattern":
			if n := child.ChildByFieldName("left"); n != nil {
				nameNode = n
			}
		case "rest_pattern":
			if child.ChildCount() > 0 {
				nameNode = child.Child(child.ChildCount() - 1)
			}
		default:
			continue
		}
		if nameNode == nil || nameNode.Kind() != "identifier" {
			continue
		}
		names = append(names, getNodeText(nameNode, code))
	}
	return names
}

// extractJSCallExpression emits a call-site placeholder for a JS/TS
// call_expression (spec §4.2/§4.4): `f(...)` is direct, `obj.method(...)`
// an attribute call carrying the receiver expression in CallModule.
func extractJSCallExpression(node *sitter.Node, code []byte, filePath, lang string, entities *[]CodeEntity) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}

	var callName, callModule string
	isAttribute := false

	switch fnNode.Kind() {
	case "identifier":
		callName = getNodeText(fnNode, code)
	case "member_expression":
		propNode := fnNode.ChildByFieldName("property")
		objNode := fnNode.ChildByFieldName("object")
		if propNode == nil {
			return
		}
		callName = getNodeText(propNode, code)
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
		Language:        lang,
		StartLine:       int(node.StartPosition().Row) + 1,
		EndLine:         int(node.EndPosition().Row) + 1,
		StartCol:        int(node.StartPosition().Column),
		EndCol:          int(node.EndPosition().Column),
		StartByte:       node.StartByte(),
		EndByte:         node.EndByte(),
		CallModule:      callModule,
		IsAttributeCall: isAttribute,
		ParentName:      findParentClassName(node, code),
	})
}
