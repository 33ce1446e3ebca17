package langs

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sourcegrid/codeindex/internal/types"
)

// identifierKinds are the grammar node kinds across the ten supported
// languages whose text is a bare identifier reference — the set a
// rename/reference/definition lookup walks looking for name matches.
var identifierKinds = map[string]bool{
	"identifier":         true,
	"type_identifier":    true,
	"field_identifier":   true,
	"property_identifier": true,
	"shorthand_property_identifier": true,
}

// walkIdentifiers visits every identifier-shaped node in the tree
// whose text equals name, invoking visit for each.
func walkIdentifiers(root tree_sitter.Node, content []byte, name string, visit func(tree_sitter.Node)) {
	if name == "" {
		return
	}
	var walk func(n tree_sitter.Node)
	walk = func(n tree_sitter.Node) {
		if identifierKinds[n.Kind()] && nodeText(content, n) == name {
			visit(n)
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			if child := n.Child(i); child != nil {
				walk(*child)
			}
		}
	}
	walk(root)
}

// identifierAt returns the text of the identifier-shaped node at pos,
// or "" if none is found.
func identifierAt(root tree_sitter.Node, content []byte, pos types.Position) string {
	row := uint(pos.Line - 1)
	col := uint(pos.Column - 1)

	var found string
	var walk func(n tree_sitter.Node)
	walk = func(n tree_sitter.Node) {
		start := n.StartPosition()
		end := n.EndPosition()
		if (row < start.Row) || (row == start.Row && col < start.Column) {
			return
		}
		if (row > end.Row) || (row == end.Row && col > end.Column) {
			return
		}
		if identifierKinds[n.Kind()] {
			found = nodeText(content, n)
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			if child := n.Child(i); child != nil {
				walk(*child)
			}
		}
	}
	walk(root)
	return found
}

// smallestEnclosingNode returns the smallest named node whose span
// fully contains r, used to snap an ExtractFunction request to a real
// AST boundary instead of an arbitrary text range.
func smallestEnclosingNode(root tree_sitter.Node, r types.Range) *tree_sitter.Node {
	var best *tree_sitter.Node
	var bestSpan uint = ^uint(0)

	var walk func(n tree_sitter.Node)
	walk = func(n tree_sitter.Node) {
		start := n.StartPosition()
		end := n.EndPosition()
		nodeStart := types.Position{Line: int(start.Row) + 1, Column: int(start.Column) + 1}
		nodeEnd := types.Position{Line: int(end.Row) + 1, Column: int(end.Column) + 1}
		if !positionLE(nodeStart, r.Start) || !positionLE(r.End, nodeEnd) {
			return
		}
		span := n.EndByte() - n.StartByte()
		if span < bestSpan {
			nCopy := n
			best = &nCopy
			bestSpan = span
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			if child := n.Child(i); child != nil {
				walk(*child)
			}
		}
	}
	walk(root)
	return best
}

func positionLE(a, b types.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Column <= b.Column
}

func locationOf(filePath string, n tree_sitter.Node) types.Location {
	start := n.StartPosition()
	end := n.EndPosition()
	return types.Location{
		FilePath: filePath,
		Range: types.Range{
			Start: types.Position{Line: int(start.Row) + 1, Column: int(start.Column) + 1},
			End:   types.Position{Line: int(end.Row) + 1, Column: int(end.Column) + 1},
		},
	}
}

// isAssignmentTarget reports whether n sits in the "left-hand side"
// position of an assignment-shaped parent, a heuristic shared across
// grammars that name that field "left" or "name".
func isAssignmentTarget(n tree_sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	kind := parent.Kind()
	if !strings.Contains(kind, "assignment") && !strings.Contains(kind, "declarator") {
		return false
	}
	if left := parent.ChildByFieldName("left"); left != nil && sameNode(*left, n) {
		return true
	}
	if nm := parent.ChildByFieldName("name"); nm != nil && sameNode(*nm, n) {
		return true
	}
	return false
}

func sameNode(a, b tree_sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}

// usageKind classifies an identifier reference by its immediate
// syntactic context.
func usageKind(n tree_sitter.Node) string {
	parent := n.Parent()
	if parent == nil {
		return "read"
	}
	kind := parent.Kind()
	switch {
	case strings.Contains(kind, "call"):
		return "call"
	case strings.Contains(kind, "new_expression") || strings.Contains(kind, "object_creation"):
		return "instantiate"
	default:
		return "read"
	}
}
