package coherence

import (
	"fmt"

	"keel/internal/diag"
	"keel/internal/source"
	"keel/internal/traits"
)

func (c *checker) checkImpl(impl *traits.ImplEntry) {
	c.checkBounds(impl.Generics)
	c.checkOrphan(impl)
	seen := make(map[string]*traits.MethodSig, len(impl.Methods))
	for i := range impl.Methods {
		m := &impl.Methods[i]
		if prev, ok := seen[m.Name]; ok {
			c.errorf(diag.ConflictingImplementation, m.NameSpan, "duplicate definitions with name `%s`", m.Name).
				WithNote(prev.NameSpan, "previous definition here").
				Emit()
			continue
		}
		seen[m.Name] = m
		c.checkBounds(m.Generics)
	}
	if impl.Inherent() {
		return
	}
	def := c.reg.TraitByID(impl.Trait)
	if def == nil {
		c.errorf(diag.UnknownTrait, impl.NameSpan, "cannot find trait `%s` in this scope", impl.TraitName).Emit()
		return
	}
	if def.Cyclic {
		return
	}
	for i := range impl.Methods {
		m := &impl.Methods[i]
		want, ok := def.Method(m.Name)
		if !ok {
			c.errorf(diag.UnknownImplMethod, m.NameSpan, "method `%s` is not a member of trait `%s`", m.Name, def.Name).
				WithNote(def.NameSpan, "trait declared here").
				Emit()
			continue
		}
		if got, exp := len(m.Fn().Args), len(want.Fn().Args); got != exp {
			c.errorf(diag.ArgCountMismatch, m.NameSpan,
				"method `%s` has %d parameter(s) but the declaration in trait `%s` has %d", m.Name, got, def.Name, exp).
				WithNote(want.NameSpan, "trait method declared here").
				Emit()
		}
	}
	var missing []string
	for i := range def.Methods {
		m := &def.Methods[i]
		if _, ok := seen[m.Name]; !ok && !m.HasDefault {
			missing = append(missing, "`"+m.Name+"`")
		}
	}
	if len(missing) > 0 {
		c.errorf(diag.MissingMethod, impl.NameSpan, "not all trait items implemented, missing: %s", joinNames(missing)).
			WithNote(def.NameSpan, "trait declared here").
			Emit()
	}
	c.checkAssoc(impl, def)
	c.checkSupertraitImpls(impl, def)
}

func (c *checker) checkAssoc(impl *traits.ImplEntry, def *traits.TraitDef) {
	bound := make(map[string]bool, len(impl.Assoc))
	for _, a := range impl.Assoc {
		if bound[a.Name] {
			c.errorf(diag.DuplicateDefinition, a.Span, "associated type `%s` is bound twice", a.Name).Emit()
		}
		bound[a.Name] = true
		if !def.HasAssoc(a.Name) {
			c.errorf(diag.UnknownAssociatedType, a.Span, "associated type `%s` is not a member of trait `%s`", a.Name, def.Name).Emit()
		}
	}
	var missing []string
	for _, a := range def.Assoc {
		if !bound[a.Name] {
			missing = append(missing, "`"+a.Name+"`")
		}
	}
	if len(missing) > 0 {
		c.errorf(diag.MissingAssociatedType, impl.NameSpan,
			"impl of `%s` for `%s` is missing associated type(s) %s", def.Name, impl.Target, joinNames(missing)).
			WithNote(def.NameSpan, "trait declared here").
			Emit()
	}
}

// checkSupertraitImpls requires the target to implement every direct
// supertrait, given the impl's own bounds.
func (c *checker) checkSupertraitImpls(impl *traits.ImplEntry, def *traits.TraitDef) {
	if impl.Target.IsError() {
		return
	}
	target, env := paramTarget(impl.Target, impl.Generics)
	for _, s := range def.Supers {
		if !s.ID.IsValid() || c.reg.Implements(target, s.Name, env) {
			continue
		}
		c.errorf(diag.MissingTraitBound, impl.NameSpan,
			"the trait bound `%s: %s` is not satisfied", target, s.Name).
			WithNote(s.Span, fmt.Sprintf("required by the supertrait `%s` of `%s`", s.Name, def.Name)).
			Emit()
	}
}

// checkOrphan applies the orphan rule to impls declared in the unit's own
// modules: the unit must own the trait or the target type.
func (c *checker) checkOrphan(impl *traits.ImplEntry) {
	if !c.reg.Owns(impl.Module) || impl.Target.IsError() {
		return
	}
	typeOwned, typeLabel := c.ownsTarget(impl)
	if impl.Inherent() {
		if typeOwned {
			return
		}
		keyword := source.Span{File: impl.Span.File, Start: impl.Span.Start, End: impl.Span.Start + uint32(len("impl"))}
		c.errorf(diag.OrphanImplementation, impl.TargetSpan,
			"cannot define inherent impl for %s outside the module that declares it", typeLabel).
			WithFix("declare the methods in an `extend` block", diag.FixEdit{Span: keyword, NewText: "extend"}).
			Emit()
		return
	}
	def := c.reg.TraitByID(impl.Trait)
	if def == nil || typeOwned || c.reg.Owns(def.Module) {
		return
	}
	c.errorf(diag.OrphanImplementation, impl.NameSpan,
		"only traits defined in the current unit can be implemented for types defined outside of it").
		WithNote(def.NameSpan, fmt.Sprintf("`%s` is declared in module `%s`", def.Name, def.Module)).
		WithNote(impl.TargetSpan, fmt.Sprintf("%s is not declared in this unit", typeLabel)).
		Emit()
}

// ownsTarget reports whether the unit declares the head type of the impl.
// Primitive, function and tuple heads belong to no unit; a bare generic is
// never owned.
func (c *checker) ownsTarget(impl *traits.ImplEntry) (bool, string) {
	if impl.Head == "" {
		return false, fmt.Sprintf("the uncovered type parameter `%s`", impl.Target)
	}
	info, ok := c.reg.Type(impl.Head)
	if !ok {
		return false, fmt.Sprintf("the builtin type `%s`", impl.Target)
	}
	return c.reg.Owns(info.Module), fmt.Sprintf("type `%s`", impl.Target)
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	out := names[0]
	for _, n := range names[1 : len(names)-1] {
		out += ", " + n
	}
	return out + " and " + names[len(names)-1]
}

