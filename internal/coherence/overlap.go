package coherence

import (
	"fmt"

	"keel/internal/diag"
	"keel/internal/scheme"
	"keel/internal/traits"
	"keel/internal/types"
)

// overlaps reports whether some type matches both targets: a fresh copy of
// a is matched against b's pattern, bounds included.
func (c *checker) overlaps(a types.Type, ag []traits.Generic, b types.Type, bg []traits.Generic) bool {
	if a.IsError() || b.IsError() {
		return false
	}
	fresh := scheme.NewFresh(c.reg.VarCeiling())
	mapping := make(map[types.VarID]types.Type, len(ag))
	for _, g := range ag {
		mapping[g.Var] = fresh.Var()
	}
	inst := scheme.Substitute(a, mapping)
	if _, ok := c.reg.MatchTarget(b, bg, inst, nil); !ok {
		return false
	}
	// bounds of a must hold for whatever b's pattern pins down
	inst2 := make(map[types.VarID]types.Type, len(bg))
	for _, g := range bg {
		inst2[g.Var] = fresh.Var()
	}
	_, ok := c.reg.MatchTarget(a, ag, scheme.Substitute(b, inst2), nil)
	return ok
}

func sameBucket(a, b string) bool {
	return a == b || a == "" || b == ""
}

// checkUniqueness reports pairs of impls of one trait with the same rank
// whose targets overlap. The later impl carries the error.
func (c *checker) checkUniqueness() {
	impls := c.reg.Impls()
	for i := range impls {
		a := &impls[i]
		if a.Inherent() || !a.Trait.IsValid() {
			continue
		}
		for j := range i {
			b := &impls[j]
			if b.Trait != a.Trait || b.Rank != a.Rank || !sameBucket(a.Head, b.Head) {
				continue
			}
			if !c.overlaps(a.Target, a.Generics, b.Target, b.Generics) {
				continue
			}
			c.errorf(diag.ConflictingImplementation, a.NameSpan,
				"conflicting implementations of trait `%s` for type `%s`", a.TraitName, a.Target).
				WithNote(b.NameSpan, fmt.Sprintf("first implementation here (for `%s`)", b.Target)).
				Emit()
			break
		}
	}
}

// checkInherentOverlap reports methods defined by two inherent impls whose
// targets overlap.
func (c *checker) checkInherentOverlap() {
	impls := c.reg.Impls()
	for i := range impls {
		a := &impls[i]
		if !a.Inherent() {
			continue
		}
		for j := range i {
			b := &impls[j]
			if !b.Inherent() || !sameBucket(a.Head, b.Head) {
				continue
			}
			shared := sharedMethods(a.Methods, b.Methods)
			if len(shared) == 0 || !c.overlaps(a.Target, a.Generics, b.Target, b.Generics) {
				continue
			}
			for _, pair := range shared {
				c.errorf(diag.ConflictingImplementation, pair[0].NameSpan,
					"duplicate definitions with name `%s` for type `%s`", pair[0].Name, a.Target).
					WithNote(pair[1].NameSpan, fmt.Sprintf("other definition for `%s`", b.Target)).
					WithNote(b.NameSpan, "first impl block here").
					Emit()
			}
		}
	}
}

// checkExtensions reports extension methods of one name on overlapping
// targets, and names repeated inside one extend block.
func (c *checker) checkExtensions() {
	exts := c.reg.Extensions()
	for i := range exts {
		a := &exts[i]
		c.checkBounds(a.Generics)
		seen := make(map[string]*traits.MethodSig, len(a.Methods))
		for k := range a.Methods {
			m := &a.Methods[k]
			if prev, ok := seen[m.Name]; ok {
				c.errorf(diag.ConflictingExtension, m.NameSpan, "extension method `%s` is defined twice for `%s`", m.Name, a.Target).
					WithNote(prev.NameSpan, "previous definition here").
					Emit()
			}
			seen[m.Name] = m
			c.checkBounds(m.Generics)
		}
		for j := range i {
			b := &exts[j]
			if !sameBucket(a.Head, b.Head) {
				continue
			}
			shared := sharedMethods(a.Methods, b.Methods)
			if len(shared) == 0 || !c.overlaps(a.Target, a.Generics, b.Target, b.Generics) {
				continue
			}
			for _, pair := range shared {
				c.errorf(diag.ConflictingExtension, pair[0].NameSpan,
					"conflicting extension methods `%s` for `%s` and `%s`", pair[0].Name, a.Target, b.Target).
					WithNote(pair[1].NameSpan, "other extension method here").
					Emit()
			}
		}
	}
}

// sharedMethods pairs methods of a with same-named methods of b, in a's order.
func sharedMethods(a, b []traits.MethodSig) [][2]*traits.MethodSig {
	var out [][2]*traits.MethodSig
	for i := range a {
		for j := range b {
			if a[i].Name == b[j].Name {
				out = append(out, [2]*traits.MethodSig{&a[i], &b[j]})
				break
			}
		}
	}
	return out
}
