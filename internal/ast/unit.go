package ast

import (
	"slices"

	"keel/internal/source"
)

type Hints struct{ Decls, Exprs, Types uint }

// Unit is one compilation unit: every declaration visible to it, in
// declaration order, plus the set of modules it owns.
type Unit struct {
	Strings *source.Interner
	Decls   *Decls
	Exprs   *Exprs
	Types   *TypeExprs
	// Items lists top-level declarations in order; methods hang off their owners.
	Items []DeclID
	Local []source.StringID
	// Files holds the text the unit was read from; nil for units built in
	// memory.
	Files *source.FileSet
}

func NewUnit(hints Hints) *Unit {
	if hints.Types == 0 {
		hints.Types = 1 << 7
	}
	return &Unit{
		Strings: source.NewInterner(),
		Decls:   NewDecls(hints.Decls),
		Exprs:   NewExprs(hints.Exprs),
		Types:   NewTypeExprs(hints.Types),
	}
}

// Push appends a top-level declaration.
func (u *Unit) Push(id DeclID) {
	u.Items = append(u.Items, id)
}

// Name resolves an interned string; NoStringID yields "".
func (u *Unit) Name(id source.StringID) string {
	s, _ := u.Strings.Lookup(id)
	return s
}

// OwnsModule reports whether module belongs to this unit.
func (u *Unit) OwnsModule(module source.StringID) bool {
	return slices.Contains(u.Local, module)
}

// Functions returns top-level function declarations in order.
func (u *Unit) Functions() []DeclID {
	return u.itemsOf(DeclFn)
}

func (u *Unit) itemsOf(kind DeclKind) []DeclID {
	var out []DeclID
	for _, id := range u.Items {
		if d := u.Decls.Get(id); d != nil && d.Kind == kind {
			out = append(out, id)
		}
	}
	return out
}

// Text returns the source text under sp, if the unit has it.
func (u *Unit) Text(sp source.Span) (string, bool) {
	if u.Files == nil {
		return "", false
	}
	f := u.Files.Get(sp.File)
	if f == nil || sp.End < sp.Start || int(sp.End) > len(f.Content) {
		return "", false
	}
	return string(f.Content[sp.Start:sp.End]), true
}
