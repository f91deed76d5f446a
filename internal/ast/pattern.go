package ast

import (
	"keel/internal/source"
)

// PatternKind enumerates match pattern forms.
type PatternKind uint8

const (
	PatWildcard PatternKind = iota
	// PatBind binds the scrutinee to Name.
	PatBind
	// PatCtor is Name(Args...); a constructor without parentheses has no Args.
	PatCtor
	PatLit
)

// Pattern is a match arm pattern. Patterns are small trees owned by their
// arm and are not arena allocated.
type Pattern struct {
	Kind  PatternKind
	Span  source.Span
	Name  source.StringID
	Lit   LitKind
	Value source.StringID
	Args  []Pattern
}

// Irrefutable reports whether p matches every value.
func (p *Pattern) Irrefutable() bool {
	return p.Kind == PatWildcard || p.Kind == PatBind
}

// Binders calls fn for every name p binds, left to right.
func (p *Pattern) Binders(fn func(name source.StringID, span source.Span)) {
	switch p.Kind {
	case PatBind:
		fn(p.Name, p.Span)
	case PatCtor:
		for i := range p.Args {
			p.Args[i].Binders(fn)
		}
	}
}
