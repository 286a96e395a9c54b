// Package metrics computes per-method and per-class source metrics from
// method body text. The heuristics are line-oriented approximations and
// must stay stable: reports are compared across runs and tools.
package metrics

import (
	"strings"

	"kmetrics/internal/syntax"
)

// Keywords that add one to CC when a trimmed line starts with them.
var complexityKeywords = []string{"if", "for", "while", "when", "catch", "case"}

// Short-circuit operators that add one per occurrence anywhere in a line.
var shortCircuitOperators = []string{"&&", "||"}

// Line prefixes that open a nesting level.
var nestingKeywords = []string{"if", "try", "for", "catch", "else", "when"}

// Name prefixes of accessor and mutator candidates.
var accessorPrefixes = []string{"get", "set", "is", "has"}

// Method holds the metrics of one function member. Accessor is set only
// for confirmed accessors and mutators.
type Method struct {
	Name       string `json:"name"`
	HasBody    bool   `json:"hasBody"`
	LOC        int    `json:"loc"`
	MaxNesting int    `json:"maxNesting"`
	CC         int    `json:"cc"`
	NOLV       int    `json:"nolv"`
	Accessor   bool   `json:"accessor"`
}

// ComputeMethod measures m. properties are the property names of the
// enclosing declaration, used to confirm accessors. A body-less method has
// all counts at zero.
func ComputeMethod(m syntax.Member, properties []string) Method {
	out := Method{Name: m.Name, HasBody: m.HasBody}
	if !m.HasBody {
		return out
	}
	out.LOC = LinesOfCode(m.Body)
	out.MaxNesting = MaxNesting(m.Body)
	out.CC = CyclomaticComplexity(m.Body)
	out.NOLV = LocalVariables(m.Body)
	out.Accessor = IsConfirmedAccessor(m.Name, m.Body, properties)
	return out
}

// CyclomaticComplexity starts at 1, adds 1 for every control keyword a
// trimmed line starts with, and 1 for every && or || anywhere.
func CyclomaticComplexity(body string) int {
	cc := 1
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		for _, kw := range complexityKeywords {
			if strings.HasPrefix(trimmed, kw) {
				cc++
			}
		}
		for _, op := range shortCircuitOperators {
			cc += strings.Count(trimmed, op)
		}
	}
	return cc
}

// MaxNesting pushes on lines starting with a nesting keyword and pops on
// lines that are exactly "}". Braces are not matched, so a closing brace of
// an unrelated block also pops.
func MaxNesting(body string) int {
	depth, deepest := 0, 0
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case hasAnyPrefix(trimmed, nestingKeywords):
			depth++
			if depth > deepest {
				deepest = depth
			}
		case trimmed == "}":
			if depth > 0 {
				depth--
			}
		}
	}
	return deepest
}

// LinesOfCode is the newline count plus one.
func LinesOfCode(body string) int {
	return strings.Count(body, "\n") + 1
}

// LocalVariables counts distinct names declared by lines starting with val
// or var that contain '='. The name is the last word before the first '='.
func LocalVariables(body string) int {
	seen := make(map[string]struct{})
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "val") && !strings.HasPrefix(trimmed, "var") {
			continue
		}
		lhs, _, found := strings.Cut(trimmed, "=")
		if !found {
			continue
		}
		words := strings.Fields(lhs)
		if len(words) == 0 {
			continue
		}
		seen[words[len(words)-1]] = struct{}{}
	}
	return len(seen)
}

// AccessorCandidate reports whether name starts with get, set, is or has,
// and returns the remainder after the prefix.
func AccessorCandidate(name string) (string, bool) {
	for _, p := range accessorPrefixes {
		if strings.HasPrefix(name, p) {
			return name[len(p):], true
		}
	}
	return "", false
}

// IsConfirmedAccessor reports whether a candidate name refers to one of
// properties and its body is a short return or assignment.
func IsConfirmedAccessor(name, body string, properties []string) bool {
	rest, ok := AccessorCandidate(name)
	if !ok || rest == "" {
		return false
	}
	rest = strings.ToLower(rest)

	matched := false
	for _, p := range properties {
		if strings.EqualFold(rest, p) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	if LinesOfCode(body) > 3 {
		return false
	}
	return strings.Contains(body, "return") || hasAssignment(body)
}

// hasAssignment looks for an '=' that is not part of ==, !=, <= or >=.
func hasAssignment(body string) bool {
	for i := 0; i < len(body); i++ {
		if body[i] != '=' {
			continue
		}
		if i+1 < len(body) && body[i+1] == '=' {
			i++
			continue
		}
		if i > 0 && strings.IndexByte("=!<>", body[i-1]) >= 0 {
			continue
		}
		return true
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
