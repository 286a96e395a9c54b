//go:build cgo

package syntax

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/kotlin"
)

// ASTAvailable reports whether the tree-sitter adapter is compiled in.
func ASTAvailable() bool {
	return true
}

// astAdapter walks the tree-sitter Kotlin grammar.
type astAdapter struct {
	parser *sitter.Parser
}

func newASTAdapter() Adapter {
	p := sitter.NewParser()
	p.SetLanguage(kotlin.GetLanguage())
	return &astAdapter{parser: p}
}

func (a *astAdapter) Mode() Mode { return ModeAST }

// Parse parses src. Any ERROR or MISSING node fails the whole file.
func (a *astAdapter) Parse(ctx context.Context, src []byte) (*ParseResult, error) {
	tree, err := a.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("parse error: %v", err)}
	}
	defer tree.Close()
	root := tree.RootNode()

	if root.HasError() {
		return nil, firstSyntaxError(root, src)
	}

	result := &ParseResult{Package: UnknownPackage}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_header":
			if pkg := packageName(child, src); pkg != "" {
				result.Package = pkg
			}
		case "class_declaration", "object_declaration":
			result.Declarations = append(result.Declarations, declaration(child, src))
		case "function_declaration":
			result.TopLevel = append(result.TopLevel, function(child, src))
		}
	}
	return result, nil
}

// firstSyntaxError finds the first ERROR or MISSING node in document order.
func firstSyntaxError(root *sitter.Node, src []byte) *ParseError {
	var found *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if found != nil || n == nil {
			return
		}
		if n.Type() == "ERROR" || n.IsMissing() {
			found = n
			return
		}
		if !n.HasError() {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	if found == nil {
		return &ParseError{Message: "syntax error"}
	}

	pos := found.StartPoint()
	msg := "syntax error"
	if found.IsMissing() {
		msg = "missing " + found.Type()
	} else if text := strings.TrimSpace(found.Content(src)); text != "" {
		if len(text) > 40 {
			text = text[:40] + "..."
		}
		msg = fmt.Sprintf("syntax error near %q", text)
	}
	return &ParseError{Line: int(pos.Row) + 1, Column: int(pos.Column) + 1, Message: msg}
}

func packageName(n *sitter.Node, src []byte) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "identifier" {
			return strings.Join(strings.Fields(child.Content(src)), "")
		}
	}
	return ""
}

func declaration(n *sitter.Node, src []byte) Declaration {
	decl := Declaration{
		Kind: KindClass,
		Line: int(n.StartPoint().Row) + 1,
	}

	var ctorProps []Member
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "interface":
			if !child.IsNamed() {
				decl.Kind = KindInterface
			}
		case "type_identifier", "simple_identifier":
			if decl.Name == "" {
				decl.Name = strings.Trim(child.Content(src), "`")
			}
		case "primary_constructor":
			ctorProps = constructorProperties(child, src)
			decl.CtorParams = countClassParameters(child)
		case "delegation_specifier":
			decl.Supertypes = appendSupertype(decl.Supertypes, child.Content(src))
		case "delegation_specifiers":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				decl.Supertypes = appendSupertype(decl.Supertypes, child.NamedChild(j).Content(src))
			}
		case "class_body", "enum_class_body":
			decl.Body = &Body{Members: append(ctorProps, bodyMembers(child, src)...)}
		}
	}
	return decl
}

func appendSupertype(list []string, ref string) []string {
	if name := SimpleName(ref); name != "" {
		return append(list, name)
	}
	return list
}

func constructorProperties(n *sitter.Node, src []byte) []Member {
	var props []Member
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			switch child.Type() {
			case "class_parameter":
				if m, ok := classParameter(child, src); ok {
					props = append(props, m)
				}
			case "class_parameters":
				walk(child)
			}
		}
	}
	walk(n)
	return props
}

func countClassParameters(n *sitter.Node) int {
	count := 0
	for i := 0; i < int(n.NamedChildCount()); i++ {
		switch child := n.NamedChild(i); child.Type() {
		case "class_parameter":
			count++
		case "class_parameters":
			count += countClassParameters(child)
		}
	}
	return count
}

func classParameter(n *sitter.Node, src []byte) (Member, bool) {
	binding := false
	name := ""
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "val", "var":
			binding = true
		case "binding_pattern_kind":
			binding = true
		case "simple_identifier":
			if name == "" {
				name = strings.Trim(child.Content(src), "`")
			}
		}
	}
	if !binding || name == "" {
		return Member{}, false
	}
	return Member{
		Kind:        MemberProperty,
		Name:        name,
		Line:        int(n.StartPoint().Row) + 1,
		Constructor: true,
	}, true
}

func bodyMembers(body *sitter.Node, src []byte) []Member {
	var members []Member
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		switch child.Type() {
		case "function_declaration":
			members = append(members, function(child, src))
		case "property_declaration":
			if m, ok := property(child, src); ok {
				members = append(members, m)
			}
		}
	}
	return members
}

func function(n *sitter.Node, src []byte) Member {
	m := Member{Kind: MemberFunction, Line: int(n.StartPoint().Row) + 1}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "simple_identifier":
			if m.Name == "" {
				m.Name = strings.Trim(child.Content(src), "`")
			}
		case "function_body":
			m.HasBody = true
			m.Body = functionBody(child.Content(src))
		}
	}
	return m
}

func functionBody(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "=") {
		return strings.TrimSpace(text[1:])
	}
	return BlockBody(text)
}

func property(n *sitter.Node, src []byte) (Member, bool) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() != "variable_declaration" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			id := child.NamedChild(j)
			if id.Type() == "simple_identifier" {
				return Member{
					Kind: MemberProperty,
					Name: strings.Trim(id.Content(src), "`"),
					Line: int(n.StartPoint().Row) + 1,
				}, true
			}
		}
	}
	return Member{}, false
}
