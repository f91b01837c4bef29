package plugin

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// parseRON decodes the subset of RON used by pop-launcher plugin manifests
// into plain Go values: structs and maps become map[string]any, lists become
// []any, and enum variants such as Name("x") become a one-key map keyed by
// the lowercased variant name. Unit variants decode to their identifier.
func parseRON(data []byte) (any, error) {
	p := &ronParser{src: string(data)}
	p.skipSpace()
	for strings.HasPrefix(p.src[p.pos:], "#![") {
		if err := p.skipAttribute(); err != nil {
			return nil, err
		}
		p.skipSpace()
	}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected trailing input")
	}
	return v, nil
}

type ronParser struct {
	src string
	pos int
}

func (p *ronParser) errorf(format string, args ...any) error {
	line := 1 + strings.Count(p.src[:p.pos], "\n")
	return fmt.Errorf("ron: line %d: %s", line, fmt.Sprintf(format, args...))
}

func (p *ronParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *ronParser) skipSpace() {
	for p.pos < len(p.src) {
		rest := p.src[p.pos:]
		switch {
		case rest[0] == ' ' || rest[0] == '\t' || rest[0] == '\n' || rest[0] == '\r':
			p.pos++
		case strings.HasPrefix(rest, "//"):
			if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
				p.pos += nl + 1
			} else {
				p.pos = len(p.src)
			}
		case strings.HasPrefix(rest, "/*"):
			if end := strings.Index(rest[2:], "*/"); end >= 0 {
				p.pos += end + 4
			} else {
				p.pos = len(p.src)
			}
		default:
			return
		}
	}
}

func (p *ronParser) skipAttribute() error {
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return p.errorf("unterminated attribute")
	}
	p.pos += end + 1
	return nil
}

func (p *ronParser) value() (any, error) {
	p.skipSpace()
	c := p.peek()
	switch {
	case c == 0:
		return nil, p.errorf("unexpected end of input")
	case c == '(':
		return p.structBody()
	case c == '[':
		return p.list()
	case c == '{':
		return p.mapBody()
	case c == '"':
		return p.str()
	case c == 'r' && (strings.HasPrefix(p.src[p.pos:], "r\"") || strings.HasPrefix(p.src[p.pos:], "r#")):
		return p.rawStr()
	case c == '\'':
		return p.char()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	case isIdentStart(c):
		return p.identValue()
	}
	return nil, p.errorf("unexpected character %q", c)
}

// identValue handles booleans, Some/None, unit variants, named structs and
// tuple variants.
func (p *ronParser) identValue() (any, error) {
	ident := p.ident()
	switch ident {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "None":
		return nil, nil
	}

	p.skipSpace()
	if p.peek() != '(' {
		return ident, nil
	}

	if ident == "Some" {
		items, err := p.tuple()
		if err != nil {
			return nil, err
		}
		if len(items) != 1 {
			return nil, p.errorf("Some takes one value, got %d", len(items))
		}
		return items[0], nil
	}

	if p.looksLikeStruct() {
		// a named struct keeps only its fields
		return p.structBody()
	}

	items, err := p.tuple()
	if err != nil {
		return nil, err
	}
	var inner any = items
	if len(items) == 1 {
		inner = items[0]
	}
	return map[string]any{strings.ToLower(ident): inner}, nil
}

// looksLikeStruct reports whether the parenthesised body at pos opens with
// "ident:" rather than a positional value.
func (p *ronParser) looksLikeStruct() bool {
	save := p.pos
	defer func() { p.pos = save }()

	p.pos++
	p.skipSpace()
	if p.peek() == ')' {
		return true
	}
	if !isIdentStart(p.peek()) {
		return false
	}
	p.ident()
	p.skipSpace()
	return p.peek() == ':'
}

func (p *ronParser) structBody() (any, error) {
	if !p.looksLikeStruct() {
		items, err := p.tuple()
		if err != nil {
			return nil, err
		}
		return items, nil
	}

	p.pos++
	fields := make(map[string]any)
	for {
		p.skipSpace()
		if p.peek() == ')' {
			p.pos++
			return fields, nil
		}
		if !isIdentStart(p.peek()) {
			return nil, p.errorf("expected field name")
		}
		key := p.ident()
		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errorf("expected ':' after %s", key)
		}
		p.pos++
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		fields[key] = v
		if err := p.separator(')'); err != nil {
			return nil, err
		}
	}
}

func (p *ronParser) tuple() ([]any, error) {
	return p.sequence('(', ')')
}

func (p *ronParser) list() ([]any, error) {
	return p.sequence('[', ']')
}

func (p *ronParser) sequence(open, end byte) ([]any, error) {
	if p.peek() != open {
		return nil, p.errorf("expected %q", open)
	}
	p.pos++
	items := []any{}
	for {
		p.skipSpace()
		if p.peek() == end {
			p.pos++
			return items, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		if err := p.separator(end); err != nil {
			return nil, err
		}
	}
}

func (p *ronParser) mapBody() (any, error) {
	p.pos++
	m := make(map[string]any)
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return m, nil
		}
		k, err := p.value()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errorf("expected ':' in map")
		}
		p.pos++
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		m[fmt.Sprint(k)] = v
		if err := p.separator('}'); err != nil {
			return nil, err
		}
	}
}

// separator consumes a comma, or leaves the closing delimiter for the caller.
func (p *ronParser) separator(end byte) error {
	p.skipSpace()
	switch p.peek() {
	case ',':
		p.pos++
		return nil
	case end:
		return nil
	}
	return p.errorf("expected ',' or %q", end)
}

func (p *ronParser) ident() string {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *ronParser) str() (string, error) {
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '"':
			p.pos++
			return b.String(), nil
		case '\\':
			r, err := p.escape()
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *ronParser) escape() (rune, error) {
	p.pos++
	if p.pos >= len(p.src) {
		return 0, p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case '0':
		return 0, nil
	case '\\', '"', '\'':
		return rune(c), nil
	case 'u':
		if p.peek() != '{' {
			return 0, p.errorf("expected '{' after \\u")
		}
		end := strings.IndexByte(p.src[p.pos:], '}')
		if end < 0 {
			return 0, p.errorf("unterminated unicode escape")
		}
		code, err := strconv.ParseUint(p.src[p.pos+1:p.pos+end], 16, 32)
		if err != nil {
			return 0, p.errorf("bad unicode escape: %v", err)
		}
		p.pos += end + 1
		return rune(code), nil
	case 'x':
		if p.pos+2 > len(p.src) {
			return 0, p.errorf("short \\x escape")
		}
		code, err := strconv.ParseUint(p.src[p.pos:p.pos+2], 16, 8)
		if err != nil {
			return 0, p.errorf("bad \\x escape: %v", err)
		}
		p.pos += 2
		return rune(code), nil
	}
	return 0, p.errorf("unknown escape \\%c", c)
}

func (p *ronParser) rawStr() (string, error) {
	p.pos++
	hashes := 0
	for p.peek() == '#' {
		hashes++
		p.pos++
	}
	if p.peek() != '"' {
		return "", p.errorf("expected '\"' in raw string")
	}
	p.pos++
	closing := "\"" + strings.Repeat("#", hashes)
	end := strings.Index(p.src[p.pos:], closing)
	if end < 0 {
		return "", p.errorf("unterminated raw string")
	}
	s := p.src[p.pos : p.pos+end]
	p.pos += end + len(closing)
	return s, nil
}

func (p *ronParser) char() (string, error) {
	p.pos++
	var r rune
	if p.peek() == '\\' {
		var err error
		if r, err = p.escape(); err != nil {
			return "", err
		}
	} else {
		var size int
		r, size = utf8.DecodeRuneInString(p.src[p.pos:])
		p.pos += size
	}
	if p.peek() != '\'' {
		return "", p.errorf("unterminated char")
	}
	p.pos++
	return string(r), nil
}

func (p *ronParser) number() (any, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ',' || c == ')' || c == ']' || c == '}' || unicode.IsSpace(rune(c)) {
			break
		}
		p.pos++
	}
	lit := strings.ReplaceAll(p.src[start:p.pos], "_", "")
	if i, err := strconv.ParseInt(lit, 0, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		return f, nil
	}
	return nil, p.errorf("bad number %q", lit)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
