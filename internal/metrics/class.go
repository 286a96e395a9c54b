package metrics

import (
	"strings"

	"kmetrics/internal/syntax"
)

// Tokens ignored when comparing method bodies for cohesion. Tokens of two
// characters or fewer are dropped separately.
var cohesionStopList = map[string]struct{}{
	"val": {}, "var": {}, "fun": {}, "return": {}, "else": {}, "for": {},
	"while": {}, "when": {}, "try": {}, "catch": {}, "finally": {},
	"throw": {}, "break": {}, "continue": {}, "this": {}, "super": {},
	"null": {}, "true": {}, "false": {}, "object": {}, "class": {},
	"interface": {}, "override": {}, "private": {}, "public": {},
	"protected": {}, "internal": {}, "open": {}, "abstract": {},
	"suspend": {}, "inline": {}, "lateinit": {}, "const": {}, "init": {},
	"where": {}, "===": {}, "!==": {}, "...": {}, "{}": {}, "()": {},
}

// Class aggregates the metrics of one declaration's functions. WOC is
// aligned with Methods.
type Class struct {
	Name    string    `json:"name"`
	Methods []Method  `json:"methods"`
	WOC     []float64 `json:"woc"`
	WMC     int       `json:"wmc"`
	WMCNAMM int       `json:"wmcNamm"`
	AMW     float64   `json:"amw"`
	LCOM5   float64   `json:"lcom5"`
}

// ComputeClass measures every function member of decl in declaration order.
func ComputeClass(decl *syntax.Declaration) Class {
	var props []string
	for _, p := range decl.Properties() {
		props = append(props, p.Name)
	}

	funcs := decl.Functions()
	c := Class{Name: decl.Name, Methods: make([]Method, 0, len(funcs))}
	var bodies []string
	for _, f := range funcs {
		m := ComputeMethod(f, props)
		c.Methods = append(c.Methods, m)
		if m.HasBody {
			bodies = append(bodies, f.Body)
		}
	}

	c.WMC = WMC(c.Methods)
	c.WMCNAMM = WMCNAMM(c.Methods)
	c.AMW = AMW(c.Methods)
	c.WOC = WOC(c.Methods)
	c.LCOM5 = LCOM5(bodies)
	return c
}

// WMC sums CC over methods with a body.
func WMC(methods []Method) int {
	total := 0
	for _, m := range methods {
		if m.HasBody {
			total += m.CC
		}
	}
	return total
}

// WMCNAMM sums CC over methods that are not confirmed accessors.
func WMCNAMM(methods []Method) int {
	total := 0
	for _, m := range methods {
		if m.HasBody && !m.Accessor {
			total += m.CC
		}
	}
	return total
}

// AMW is the mean CC over methods with a body, 0 when there are none.
func AMW(methods []Method) float64 {
	n, total := 0, 0
	for _, m := range methods {
		if m.HasBody {
			n++
			total += m.CC
		}
	}
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

// WOC returns each method's share of the class CC total. All shares are 0
// when the total is 0.
func WOC(methods []Method) []float64 {
	total := 0
	for _, m := range methods {
		total += m.CC
	}
	out := make([]float64, len(methods))
	if total == 0 {
		return out
	}
	for i, m := range methods {
		out[i] = float64(m.CC) / float64(total)
	}
	return out
}

// LCOM5 is 1 - cohesive/total over all distinct pairs of bodies, where a
// pair is cohesive when the bodies share a meaningful token. Fewer than two
// bodies give 0.
func LCOM5(bodies []string) float64 {
	if len(bodies) < 2 {
		return 0
	}

	tokens := make([]map[string]struct{}, len(bodies))
	for i, b := range bodies {
		tokens[i] = meaningfulTokens(b)
	}

	total, cohesive := 0, 0
	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			total++
			if intersects(tokens[i], tokens[j]) {
				cohesive++
			}
		}
	}

	lcom := 1 - float64(cohesive)/float64(total)
	switch {
	case lcom < 0:
		return 0
	case lcom > 1:
		return 1
	}
	return lcom
}

func meaningfulTokens(body string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(body) {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := cohesionStopList[tok]; stop {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

func intersects(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for tok := range a {
		if _, ok := b[tok]; ok {
			return true
		}
	}
	return false
}
