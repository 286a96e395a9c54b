// Package syntax turns Kotlin source text into the declaration model the
// metrics engine consumes. Two adapters exist: a tree-sitter AST adapter
// (cgo builds only) and a text adapter that works on masked raw text.
package syntax

import (
	"context"
	"fmt"
	"strings"

	"kmetrics/internal/errors"
)

// Mode selects an adapter implementation.
type Mode string

const (
	ModeAuto Mode = "auto"
	ModeAST  Mode = "ast"
	ModeText Mode = "text"
)

// Package names used when a file has no package header.
const (
	UnknownPackage = "Unknown"
	DefaultPackage = "default"
)

// Kind is the closed set of top-level declaration kinds.
type Kind int

const (
	KindClass Kind = iota
	KindInterface
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MemberKind distinguishes functions from properties.
type MemberKind int

const (
	MemberFunction MemberKind = iota
	MemberProperty
)

// Member is a function or property declared directly in a declaration body.
type Member struct {
	Kind MemberKind
	Name string
	// Body is the source slice of a function body. Block bodies keep their
	// braces, expression bodies are the text after '='.
	Body    string
	HasBody bool
	Line    int
	// Constructor marks properties declared as primary-constructor parameters.
	Constructor bool
}

// IsFunction reports whether m is a function member.
func (m Member) IsFunction() bool { return m.Kind == MemberFunction }

// Declaration is a top-level class or interface.
type Declaration struct {
	Name       string
	Kind       Kind
	Supertypes []string
	Line       int
	// CtorParams is the parameter count of the primary constructor.
	CtorParams int
	Body       *Body
}

// Body holds the members of a declaration body in source order.
type Body struct {
	Members []Member
}

// HasBody reports whether the declaration has a body block.
func (d *Declaration) HasBody() bool { return d != nil && d.Body != nil }

// Members returns all members; nil for body-less declarations.
func (d *Declaration) Members() []Member {
	if !d.HasBody() {
		return nil
	}
	return d.Body.Members
}

// Functions returns the function members in source order.
func (d *Declaration) Functions() []Member {
	return filterMembers(d.Members(), MemberFunction)
}

// Properties returns the property members, including constructor properties.
func (d *Declaration) Properties() []Member {
	return filterMembers(d.Members(), MemberProperty)
}

func filterMembers(members []Member, kind MemberKind) []Member {
	var out []Member
	for _, m := range members {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// ParseResult is the adapter output for one file.
type ParseResult struct {
	Package      string
	Declarations []Declaration
	// TopLevel holds functions declared outside any class.
	TopLevel []Member
}

// ParseError reports malformed input.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
	}
	return e.Message
}

// Adapter parses one file at a time. Implementations are not safe for
// concurrent use; create one adapter per goroutine.
type Adapter interface {
	Parse(ctx context.Context, src []byte) (*ParseResult, error)
	Mode() Mode
}

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAuto, ModeAST, ModeText:
		return m, nil
	case "":
		return ModeAuto, nil
	default:
		return "", errors.New(errors.ConfigInvalid, "unknown parser mode "+s, nil)
	}
}

// Resolve maps auto to the concrete mode this build supports.
func Resolve(mode Mode) (Mode, error) {
	switch mode {
	case ModeAuto, "":
		if ASTAvailable() {
			return ModeAST, nil
		}
		return ModeText, nil
	case ModeAST:
		if !ASTAvailable() {
			return "", errors.New(errors.ModeUnavailable, "AST mode requires a cgo build", nil)
		}
		return ModeAST, nil
	case ModeText:
		return ModeText, nil
	default:
		return "", errors.New(errors.ConfigInvalid, "unknown parser mode "+string(mode), nil)
	}
}

// New returns a fresh adapter for mode.
func New(mode Mode) (Adapter, error) {
	resolved, err := Resolve(mode)
	if err != nil {
		return nil, err
	}
	if resolved == ModeAST {
		return newASTAdapter(), nil
	}
	return NewTextAdapter(), nil
}

// BlockBody normalises a braced function body so that the opening and
// closing braces sit on their own lines. "{ if (x) { f() } }" becomes
// "{\n if (x) { f() }\n}". Empty blocks and expression bodies are returned
// unchanged.
func BlockBody(body string) string {
	if len(body) < 2 || body[0] != '{' || body[len(body)-1] != '}' {
		return body
	}
	inner := body[1 : len(body)-1]
	if strings.TrimSpace(inner) == "" {
		return body
	}
	if first, _, _ := strings.Cut(inner, "\n"); strings.TrimSpace(first) != "" {
		inner = "\n" + inner
	}
	if last := inner[strings.LastIndexByte(inner, '\n')+1:]; strings.TrimSpace(last) != "" {
		inner += "\n"
	}
	return "{" + inner + "}"
}

// SimpleName reduces a supertype reference to its simple identifier:
// qualified names keep their last segment, type arguments, constructor
// arguments and delegation clauses are dropped.
func SimpleName(ref string) string {
	s := strings.TrimSpace(ref)
	if i := strings.Index(s, " by "); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexAny(s, "<("); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "?")
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
