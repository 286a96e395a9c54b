package syntax

import (
	"bytes"
	"context"
	"regexp"
	"strings"
)

var (
	textPackageRe  = regexp.MustCompile(`(?m)^\s*package\s+([\w.]+)`)
	textDeclRe     = regexp.MustCompile(`\b(fun\s+interface|interface|class|object)\s+(\w+|` + "`[^`\n]+`" + `)`)
	textFunRe      = regexp.MustCompile(`\bfun\b`)
	textPropRe     = regexp.MustCompile(`\b(?:val|var)\b`)
	textPropNameRe = regexp.MustCompile(`^(?:val|var)\s+(?:<[^>]*>\s*)?(?:[\w.?<>]+\.)?(\w+|` + "`[^`\n]+`" + `)`)
	textFunNameRe  = regexp.MustCompile(`(\w+|` + "`[^`\n]+`" + `)\s*$`)
	textCtorPropRe = regexp.MustCompile(`\b(?:val|var)\s+(\w+)`)
	textFunIfaceRe = regexp.MustCompile(`^fun\s+interface\b`)
)

// TextAdapter recognises declarations on raw text. Comments and string
// literals are masked first so braces inside them never count.
type TextAdapter struct{}

// NewTextAdapter returns the text-mode adapter.
func NewTextAdapter() *TextAdapter {
	return &TextAdapter{}
}

func (a *TextAdapter) Mode() Mode { return ModeText }

// Parse fails only when braces do not balance.
func (a *TextAdapter) Parse(ctx context.Context, src []byte) (*ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t := &textFile{src: src, masked: mask(src)}
	if err := t.matchBraces(); err != nil {
		return nil, err
	}

	result := &ParseResult{Package: DefaultPackage}
	if m := textPackageRe.FindSubmatch(t.masked); m != nil {
		result.Package = string(m[1])
	}

	flat := flatten(t.masked, 0, len(t.masked))

	declStarts := textDeclRe.FindAllSubmatchIndex(flat, -1)
	for _, loc := range declStarts {
		result.Declarations = append(result.Declarations, t.declaration(flat, loc))
	}

	for _, loc := range textFunRe.FindAllIndex(flat, -1) {
		if textFunIfaceRe.Match(flat[loc[0]:]) {
			continue
		}
		if m, ok := t.function(loc[0], len(t.masked)); ok {
			result.TopLevel = append(result.TopLevel, m)
		}
	}
	return result, nil
}

type textFile struct {
	src    []byte
	masked []byte
	// closing maps the offset of every '{' to its matching '}'.
	closing map[int]int
}

func (t *textFile) matchBraces() error {
	t.closing = make(map[int]int)
	var stack []int
	for i, c := range t.masked {
		switch c {
		case '{':
			stack = append(stack, i)
		case '}':
			if len(stack) == 0 {
				line, col := t.position(i)
				return &ParseError{Line: line, Column: col, Message: "unexpected '}'"}
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			t.closing[open] = i
		}
	}
	if len(stack) > 0 {
		line, col := t.position(stack[len(stack)-1])
		return &ParseError{Line: line, Column: col, Message: "unclosed '{'"}
	}
	return nil
}

func (t *textFile) position(offset int) (int, int) {
	before := t.masked[:offset]
	line := bytes.Count(before, []byte{'\n'}) + 1
	col := offset - bytes.LastIndexByte(before, '\n')
	return line, col
}

func (t *textFile) line(offset int) int {
	l, _ := t.position(offset)
	return l
}

// declaration reads the header that follows a class/interface/object
// keyword: primary constructor, supertypes and optional body.
func (t *textFile) declaration(flat []byte, loc []int) Declaration {
	keyword := string(flat[loc[2]:loc[3]])
	decl := Declaration{
		Name: strings.Trim(string(t.src[loc[4]:loc[5]]), "`"),
		Kind: KindClass,
		Line: t.line(loc[0]),
	}
	if strings.Contains(keyword, "interface") {
		decl.Kind = KindInterface
	}

	var (
		ctorProps  []Member
		supers     []string
		current    strings.Builder
		collecting bool
		inWhere    bool
		angles     int
		sawCtor    bool
	)
	flush := func() {
		if name := SimpleName(current.String()); name != "" {
			supers = append(supers, name)
		}
		current.Reset()
	}

	m := t.masked
	i := loc[5]
loop:
	for i < len(m) {
		c := m[i]
		switch {
		case c == '(':
			end := t.closeParen(i)
			if !collecting && !sawCtor && angles == 0 {
				sawCtor = true
				ctorProps = t.constructorProperties(i+1, end, loc[0])
				decl.CtorParams = countParams(t.masked[i+1 : end])
			}
			if collecting {
				current.Write(m[i : end+1])
			}
			i = end + 1
			continue
		case c == '<':
			angles++
		case c == '>' && angles > 0 && !(i > 0 && m[i-1] == '-'):
			angles--
		case c == '{' && angles == 0:
			if collecting {
				flush()
			}
			decl.Body = &Body{Members: append(ctorProps, t.members(i+1, t.closing[i])...)}
			break loop
		case c == ';' && angles == 0:
			break loop
		case angles == 0 && !inWhere && isWordAt(m, i, "where"):
			if collecting {
				flush()
			}
			collecting = false
			inWhere = true
			i += len("where")
			continue
		case c == ':' && angles == 0 && !inWhere:
			if collecting {
				flush()
			}
			collecting = true
			i++
			continue
		case c == ',' && angles == 0 && collecting:
			flush()
			i++
			continue
		case c == '\n' && angles == 0:
			if !t.headerContinues(i) {
				break loop
			}
		}
		if collecting {
			current.WriteByte(c)
		}
		i++
	}
	if collecting {
		flush()
	}
	decl.Supertypes = supers
	return decl
}

// headerContinues decides whether a newline inside a declaration header
// or function signature is a line continuation.
func (t *textFile) headerContinues(nl int) bool {
	prev := prevNonSpace(t.masked, nl)
	if prev >= 0 && strings.IndexByte(":,(<=", t.masked[prev]) >= 0 {
		return true
	}
	if prev >= 1 && t.masked[prev] == '>' && t.masked[prev-1] == '-' {
		return true
	}
	next := nextNonSpace(t.masked, nl)
	if next < 0 {
		return false
	}
	if strings.IndexByte(":,{(<=.", t.masked[next]) >= 0 {
		return true
	}
	return isWordAt(t.masked, next, "where") || isWordAt(t.masked, next, "by")
}

func (t *textFile) closeParen(open int) int {
	depth := 0
	for i := open; i < len(t.masked); i++ {
		switch t.masked[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		case '{':
			if end, ok := t.closing[i]; ok {
				i = end
			}
		}
	}
	return len(t.masked) - 1
}

func (t *textFile) constructorProperties(start, end, declStart int) []Member {
	var props []Member
	for _, param := range splitTopLevel(t.masked[start:end]) {
		if m := textCtorPropRe.FindSubmatch(param); m != nil {
			props = append(props, Member{
				Kind:        MemberProperty,
				Name:        string(m[1]),
				Line:        t.line(declStart),
				Constructor: true,
			})
		}
	}
	return props
}

// members collects functions and properties declared directly in the body
// spanning masked[start:end].
func (t *textFile) members(start, end int) []Member {
	flat := flatten(t.masked, start, end)

	type hit struct {
		at  int
		fun bool
	}
	var hits []hit
	for _, loc := range textFunRe.FindAllIndex(flat, -1) {
		if textFunIfaceRe.Match(flat[loc[0]:]) {
			continue
		}
		hits = append(hits, hit{at: start + loc[0], fun: true})
	}
	for _, loc := range textPropRe.FindAllIndex(flat, -1) {
		hits = append(hits, hit{at: start + loc[0]})
	}
	// Restore source order across both kinds.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].at < hits[j-1].at; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	var out []Member
	for _, h := range hits {
		if h.fun {
			if m, ok := t.function(h.at, end); ok {
				out = append(out, m)
			}
			continue
		}
		if nm := textPropNameRe.FindSubmatch(t.masked[h.at:]); nm != nil {
			out = append(out, Member{
				Kind: MemberProperty,
				Name: strings.Trim(string(nm[1]), "`"),
				Line: t.line(h.at),
			})
		}
	}
	return out
}

// function reads a function declaration whose 'fun' keyword sits at offset
// at; limit bounds the enclosing scope.
func (t *textFile) function(at, limit int) (Member, bool) {
	open := -1
	for i := at + len("fun"); i < limit; i++ {
		c := t.masked[i]
		if c == '(' {
			open = i
			break
		}
		if c == '{' || c == '=' || c == ';' {
			return Member{}, false
		}
	}
	if open < 0 {
		return Member{}, false
	}
	nm := textFunNameRe.FindSubmatch(t.masked[at+len("fun") : open])
	if nm == nil {
		return Member{}, false
	}

	m := Member{
		Kind: MemberFunction,
		Name: strings.Trim(string(nm[1]), "`"),
		Line: t.line(at),
	}

	close := t.closeParen(open)
	angles := 0
	for i := close + 1; i < limit; i++ {
		c := t.masked[i]
		switch {
		case c == '(':
			i = t.closeParen(i)
		case c == '<':
			angles++
		case c == '>' && angles > 0 && t.masked[i-1] != '-':
			angles--
		case c == '{' && angles == 0:
			end := t.closing[i]
			m.HasBody = true
			m.Body = BlockBody(string(t.src[i : end+1]))
			return m, true
		case c == '=' && angles == 0 && isAssign(t.masked, i):
			m.HasBody = true
			m.Body = strings.TrimSpace(string(t.src[i+1 : t.expressionEnd(i+1, limit)]))
			return m, true
		case c == ';' || c == '}':
			return m, true
		case c == '\n' && angles == 0:
			if !t.headerContinues(i) {
				return m, true
			}
		}
	}
	return m, true
}

// expressionEnd finds where an expression body starting at start ends.
func (t *textFile) expressionEnd(start, limit int) int {
	depth := 0
	for i := start; i < limit; i++ {
		switch c := t.masked[i]; c {
		case '(', '[':
			depth++
		case ')', ']':
			if depth == 0 {
				return i
			}
			depth--
		case '{':
			if end, ok := t.closing[i]; ok {
				i = end
			}
		case '}', ';':
			if depth == 0 {
				return i
			}
		case '\n':
			if depth == 0 && !t.expressionContinues(i) {
				return i
			}
		}
	}
	return limit
}

func (t *textFile) expressionContinues(nl int) bool {
	if prev := prevNonSpace(t.masked, nl); prev >= 0 && strings.IndexByte("=+-*/%&|,.(<>:!?", t.masked[prev]) >= 0 {
		return true
	}
	next := nextNonSpace(t.masked, nl)
	if next < 0 {
		return false
	}
	if strings.IndexByte(".?:+-*/%&|=<>", t.masked[next]) >= 0 {
		return true
	}
	for _, w := range []string{"else", "catch", "finally", "as", "is", "in", "to", "and", "or"} {
		if isWordAt(t.masked, next, w) {
			return true
		}
	}
	return false
}

// isAssign reports whether the '=' at i is a plain assignment.
func isAssign(b []byte, i int) bool {
	if i+1 < len(b) && (b[i+1] == '=' || b[i+1] == '>') {
		return false
	}
	if i > 0 && strings.IndexByte("=!<>", b[i-1]) >= 0 {
		return false
	}
	return true
}

func isWordAt(b []byte, i int, word string) bool {
	if !bytes.HasPrefix(b[i:], []byte(word)) {
		return false
	}
	if i > 0 && isIdent(b[i-1]) {
		return false
	}
	end := i + len(word)
	return end >= len(b) || !isIdent(b[end])
}

func isIdent(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func prevNonSpace(b []byte, i int) int {
	for j := i - 1; j >= 0; j-- {
		switch b[j] {
		case ' ', '\t', '\r', '\n':
		default:
			return j
		}
	}
	return -1
}

func nextNonSpace(b []byte, i int) int {
	for j := i + 1; j < len(b); j++ {
		switch b[j] {
		case ' ', '\t', '\r', '\n':
		default:
			return j
		}
	}
	return -1
}

// splitTopLevel splits on commas outside brackets.
func countParams(b []byte) int {
	n := 0
	for _, param := range splitTopLevel(b) {
		if len(bytes.TrimSpace(param)) > 0 {
			n++
		}
	}
	return n
}

func splitTopLevel(b []byte) [][]byte {
	var parts [][]byte
	depth, last := 0, 0
	for i, c := range b {
		switch c {
		case '(', '[', '<', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '>':
			if i > 0 && b[i-1] != '-' {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, b[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, b[last:])
}

// flatten returns masked[start:end] as a full-length copy in which
// everything nested inside braces or parentheses is blanked. The outermost
// delimiters survive so callers can still see where blocks begin.
func flatten(masked []byte, start, end int) []byte {
	out := bytes.Repeat([]byte{' '}, len(masked))
	depth := 0
	for i := start; i < end; i++ {
		c := masked[i]
		switch c {
		case '{', '(':
			if depth == 0 {
				out[i] = c
			}
			depth++
		case '}', ')':
			if depth > 0 {
				depth--
			}
			if depth == 0 {
				out[i] = c
			}
		default:
			if depth == 0 || c == '\n' {
				out[i] = c
			}
		}
	}
	return out[start:end]
}

// mask blanks comments with spaces and fills string and character
// literals with quotes, keeping newlines so offsets and line numbers stay
// aligned with the source. Literals stay visible as tokens.
func mask(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)

	fill := func(from, to int, c byte) {
		for k := from; k < to && k < len(out); k++ {
			if out[k] != '\n' {
				out[k] = c
			}
		}
	}

	for i := 0; i < len(src); {
		switch {
		case bytes.HasPrefix(src[i:], []byte("//")):
			end := bytes.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src) - i
			}
			fill(i, i+end, ' ')
			i += end
		case bytes.HasPrefix(src[i:], []byte("/*")):
			end := skipBlockComment(src, i)
			fill(i, end, ' ')
			i = end
		case src[i] == '"':
			end := skipString(src, i)
			fill(i, end, '"')
			i = end
		case src[i] == '\'':
			end := skipChar(src, i)
			fill(i, end, '\'')
			i = end
		default:
			i++
		}
	}
	return out
}

// skipBlockComment handles nested block comments.
func skipBlockComment(b []byte, i int) int {
	depth := 0
	for i < len(b) {
		switch {
		case bytes.HasPrefix(b[i:], []byte("/*")):
			depth++
			i += 2
		case bytes.HasPrefix(b[i:], []byte("*/")):
			depth--
			i += 2
			if depth == 0 {
				return i
			}
		default:
			i++
		}
	}
	return len(b)
}

// skipString returns the offset just past the string literal at i,
// including any ${...} templates it contains.
func skipString(b []byte, i int) int {
	raw := bytes.HasPrefix(b[i:], []byte(`"""`))
	if raw {
		i += 3
	} else {
		i++
	}
	for i < len(b) {
		switch {
		case raw && bytes.HasPrefix(b[i:], []byte(`"""`)):
			i += 3
			for i < len(b) && b[i] == '"' {
				i++
			}
			return i
		case !raw && b[i] == '\\':
			i += 2
		case !raw && b[i] == '"':
			return i + 1
		case !raw && b[i] == '\n':
			return i
		case b[i] == '$' && i+1 < len(b) && b[i+1] == '{':
			i = skipTemplate(b, i+2)
		default:
			i++
		}
	}
	return len(b)
}

func skipTemplate(b []byte, i int) int {
	depth := 1
	for i < len(b) {
		switch b[i] {
		case '"':
			i = skipString(b, i)
		case '{':
			depth++
			i++
		case '}':
			depth--
			i++
			if depth == 0 {
				return i
			}
		default:
			i++
		}
	}
	return len(b)
}

func skipChar(b []byte, i int) int {
	i++
	for i < len(b) && b[i] != '\'' && b[i] != '\n' {
		if b[i] == '\\' {
			i++
		}
		i++
	}
	if i < len(b) && b[i] == '\'' {
		return i + 1
	}
	return i
}
