package unitfile

import (
	"strings"

	"gopkg.in/yaml.v3"

	"keel/internal/ast"
)

// Pattern text reuses the type notation scanner:
//
//	_  x  None  Some(x)  Ok(Some(_))  Err(e)  0  true  "text"
//
// A bare lower-case name binds; a capitalised name is a constructor.
func parsePatternText(p *typeParser) (ast.Pattern, error) {
	pat, err := p.parsePattern()
	if err != nil {
		return ast.Pattern{}, err
	}
	p.skipSpace()
	if p.pos < len(p.text) {
		return ast.Pattern{}, p.errorf("unexpected %q after pattern", p.text[p.pos:])
	}
	return pat, nil
}

func (p *typeParser) parsePattern() (ast.Pattern, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxTypeNesting {
		return ast.Pattern{}, p.errorf("pattern is nested too deeply")
	}
	p.skipSpace()
	start := p.pos
	if p.pos >= len(p.text) {
		return ast.Pattern{}, p.errorf("expected a pattern")
	}
	switch c := p.text[p.pos]; {
	case c == '"':
		end := strings.IndexByte(p.text[p.pos+1:], '"')
		if end < 0 {
			return ast.Pattern{}, p.errorf("unterminated string pattern")
		}
		value := p.text[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
		return p.literal(start, ast.LitStr, value), nil
	case c == '-' || (c >= '0' && c <= '9'):
		p.pos++
		for p.pos < len(p.text) && p.text[p.pos] >= '0' && p.text[p.pos] <= '9' {
			p.pos++
		}
		return p.literal(start, ast.LitInt, p.text[start:p.pos]), nil
	}
	name, err := p.ident()
	if err != nil {
		return ast.Pattern{}, p.errorf("expected a pattern")
	}
	switch {
	case name == "_":
		return ast.Pattern{Kind: ast.PatWildcard, Span: p.span(start)}, nil
	case name == "true" || name == "false":
		return p.literal(start, ast.LitBool, name), nil
	case !isConstructorName(name):
		if p.accept("(") {
			return ast.Pattern{}, p.errorf("constructor %q must be capitalised", name)
		}
		return ast.Pattern{Kind: ast.PatBind, Span: p.span(start), Name: p.unit.Strings.Intern(name)}, nil
	}
	pat := ast.Pattern{Kind: ast.PatCtor, Name: p.unit.Strings.Intern(name)}
	if p.accept("(") && !p.accept(")") {
		for {
			arg, err := p.parsePattern()
			if err != nil {
				return ast.Pattern{}, err
			}
			pat.Args = append(pat.Args, arg)
			if p.accept(")") {
				break
			}
			if err := p.expect(","); err != nil {
				return ast.Pattern{}, err
			}
		}
	}
	pat.Span = p.span(start)
	return pat, nil
}

func (p *typeParser) literal(start int, kind ast.LitKind, value string) ast.Pattern {
	return ast.Pattern{Kind: ast.PatLit, Span: p.span(start), Lit: kind, Value: p.unit.Strings.Intern(value)}
}

func isConstructorName(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}

// parseCase reads a `case:` node. Quoting only protects the pattern text
// from YAML; a string literal pattern carries its own double quotes.
func (l *loader) parseCase(n *yaml.Node) (ast.Pattern, bool) {
	if n == nil || n.Kind != yaml.ScalarNode {
		if n != nil {
			l.errorf(n, "pattern must be written as text")
		}
		return ast.Pattern{}, false
	}
	if n.ShortTag() == "!!null" {
		l.errorf(n, "empty pattern; use _ to match anything")
		return ast.Pattern{}, false
	}
	p := &typeParser{text: n.Value, base: l.textStart(n), file: l.fileID, unit: l.unit}
	pat, err := parsePatternText(p)
	if err != nil {
		l.reportSyntax(n, "pattern", err)
		return ast.Pattern{}, false
	}
	return pat, true
}
