package unitfile

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"keel/internal/ast"
	"keel/internal/source"
)

// typeParser reads the type notation used inside unit files:
//
//	int  Point  Option<T>  Map<str, [int]>  [T]  (int, str)  fn(int, T) -> bool
//	Self  Self.Item  T.Item  <T as Iterator>.Item  _
type typeParser struct {
	text  string
	pos   int
	base  uint32
	file  source.FileID
	unit  *ast.Unit
	depth int
}

type typeSyntaxError struct {
	off uint32
	msg string
}

func (e *typeSyntaxError) Error() string { return e.msg }

const maxTypeNesting = 64

func parseTypeText(unit *ast.Unit, file source.FileID, base uint32, text string) (ast.TypeExprID, error) {
	p := &typeParser{text: text, base: base, file: file, unit: unit}
	id, err := p.parseType()
	if err != nil {
		return ast.NoTypeExprID, err
	}
	p.skipSpace()
	if p.pos < len(p.text) {
		return ast.NoTypeExprID, p.errorf("unexpected %q after type", p.text[p.pos:])
	}
	return id, nil
}

func (p *typeParser) errorf(format string, args ...any) error {
	return &typeSyntaxError{off: p.offset(p.pos), msg: fmt.Sprintf(format, args...)}
}

func (p *typeParser) offset(i int) uint32 {
	return p.base + uint32(i) // #nosec G115 -- scalar lengths are far below 4GiB
}

func (p *typeParser) span(start int) source.Span {
	return source.Span{File: p.file, Start: p.offset(start), End: p.offset(p.pos)}
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.text) && (p.text[p.pos] == ' ' || p.text[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeParser) accept(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.text[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *typeParser) expect(tok string) error {
	if !p.accept(tok) {
		return p.errorf("expected %q", tok)
	}
	return nil
}

func (p *typeParser) ident() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.text) {
		r, size := utf8.DecodeRuneInString(p.text[p.pos:])
		if r != '_' && !unicode.IsLetter(r) && !(p.pos > start && unicode.IsDigit(r)) {
			break
		}
		p.pos += size
	}
	if start == p.pos {
		return "", p.errorf("expected a type name")
	}
	return p.text[start:p.pos], nil
}

func (p *typeParser) parseType() (ast.TypeExprID, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxTypeNesting {
		return ast.NoTypeExprID, p.errorf("type is nested too deeply")
	}

	p.skipSpace()
	start := p.pos
	var base ast.TypeExprID
	var err error
	switch {
	case p.accept("["):
		elem, err := p.parseType()
		if err != nil {
			return ast.NoTypeExprID, err
		}
		if err := p.expect("]"); err != nil {
			return ast.NoTypeExprID, err
		}
		base = p.unit.Types.NewList(p.span(start), elem)
	case p.accept("("):
		elems, err := p.parseList(")")
		if err != nil {
			return ast.NoTypeExprID, err
		}
		base = p.unit.Types.NewTuple(p.span(start), elems...)
	case p.accept("<"):
		base, err = p.parseQualified(start)
	case strings.HasPrefix(p.text[p.pos:], "fn(") || strings.HasPrefix(p.text[p.pos:], "fn ("):
		base, err = p.parseFn(start)
	default:
		base, err = p.parsePath(start)
	}
	if err != nil {
		return ast.NoTypeExprID, err
	}
	return p.parseProjections(start, base, source.NoStringID)
}

func (p *typeParser) parseList(closing string) ([]ast.TypeExprID, error) {
	var out []ast.TypeExprID
	if p.accept(closing) {
		return out, nil
	}
	for {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if p.accept(closing) {
			return out, nil
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
	}
}

func (p *typeParser) parseFn(start int) (ast.TypeExprID, error) {
	p.accept("fn")
	if err := p.expect("("); err != nil {
		return ast.NoTypeExprID, err
	}
	params, err := p.parseList(")")
	if err != nil {
		return ast.NoTypeExprID, err
	}
	result := ast.NoTypeExprID
	if p.accept("->") {
		if result, err = p.parseType(); err != nil {
			return ast.NoTypeExprID, err
		}
	}
	return p.unit.Types.NewFn(p.span(start), params, result), nil
}

func (p *typeParser) parsePath(start int) (ast.TypeExprID, error) {
	name, err := p.ident()
	if err != nil {
		return ast.NoTypeExprID, err
	}
	if name == "_" {
		return p.unit.Types.NewInfer(p.span(start)), nil
	}
	var args []ast.TypeExprID
	if p.accept("<") {
		if args, err = p.parseList(">"); err != nil {
			return ast.NoTypeExprID, err
		}
	}
	return p.unit.Types.NewPath(p.span(start), p.unit.Strings.Intern(name), args...), nil
}

// parseQualified reads <Base as Trait>.Assoc after the opening '<'.
func (p *typeParser) parseQualified(start int) (ast.TypeExprID, error) {
	base, err := p.parseType()
	if err != nil {
		return ast.NoTypeExprID, err
	}
	if err := p.expect("as"); err != nil {
		return ast.NoTypeExprID, err
	}
	trait, err := p.ident()
	if err != nil {
		return ast.NoTypeExprID, err
	}
	if err := p.expect(">"); err != nil {
		return ast.NoTypeExprID, err
	}
	if err := p.expect("."); err != nil {
		return ast.NoTypeExprID, err
	}
	assoc, err := p.ident()
	if err != nil {
		return ast.NoTypeExprID, err
	}
	proj := p.unit.Types.NewProjection(p.span(start), base, p.unit.Strings.Intern(assoc), p.unit.Strings.Intern(trait))
	return p.parseProjections(start, proj, source.NoStringID)
}

func (p *typeParser) parseProjections(start int, base ast.TypeExprID, trait source.StringID) (ast.TypeExprID, error) {
	for p.accept(".") {
		assoc, err := p.ident()
		if err != nil {
			return ast.NoTypeExprID, err
		}
		base = p.unit.Types.NewProjection(p.span(start), base, p.unit.Strings.Intern(assoc), trait)
	}
	return base, nil
}
