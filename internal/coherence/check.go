// Package coherence validates a frozen trait registry: uniqueness of impls,
// the orphan rule, impl completeness, extension conflicts and supertrait
// structure. Every problem is reported and checking continues.
package coherence

import (
	"fmt"
	"strings"

	"keel/internal/diag"
	"keel/internal/scheme"
	"keel/internal/source"
	"keel/internal/traits"
	"keel/internal/types"
)

// Result summarizes a coherence run.
type Result struct {
	// Fatal is set when the supertrait graph has a cycle.
	Fatal  bool
	Errors int
}

type checker struct {
	reg      *traits.Registry
	reporter *diag.CountingReporter
	fatal    bool
}

// Check runs every rule over reg and reports into r.
func Check(reg *traits.Registry, r diag.Reporter) Result {
	c := &checker{reg: reg, reporter: &diag.CountingReporter{Next: r}}
	c.checkCycles()
	c.checkTraits()
	for i := range reg.Impls() {
		c.checkImpl(&reg.Impls()[i])
	}
	c.checkUniqueness()
	c.checkInherentOverlap()
	c.checkExtensions()
	return Result{Fatal: c.fatal, Errors: c.reporter.Errors}
}

func (c *checker) errorf(code diag.Code, span source.Span, format string, args ...any) *diag.ReportBuilder {
	return diag.ReportError(c.reporter, code, span, fmt.Sprintf(format, args...))
}

func (c *checker) checkCycles() {
	for _, cycle := range c.reg.Cycles() {
		c.fatal = true
		names := make([]string, 0, len(cycle)+1)
		for _, id := range cycle {
			names = append(names, c.reg.TraitByID(id).Name)
		}
		names = append(names, names[0])
		first := c.reg.TraitByID(cycle[0])
		b := c.errorf(diag.CyclicSupertraits, first.NameSpan,
			"cycle detected in the supertraits of `%s`: %s", first.Name, strings.Join(names, " -> "))
		for _, id := range cycle[1:] {
			def := c.reg.TraitByID(id)
			b = b.WithNote(def.NameSpan, fmt.Sprintf("`%s` is part of the cycle", def.Name))
		}
		b.Emit()
	}
}

func (c *checker) checkTraits() {
	for i := range c.reg.Traits() {
		def := &c.reg.Traits()[i]
		for _, s := range def.Supers {
			if !s.ID.IsValid() {
				c.errorf(diag.UnknownSupertrait, s.Span, "cannot find trait `%s` named as a supertrait of `%s`", s.Name, def.Name).Emit()
			}
		}
		seen := make(map[string]bool, len(def.Methods))
		for j := range def.Methods {
			m := &def.Methods[j]
			if seen[m.Name] {
				c.errorf(diag.DuplicateDefinition, m.NameSpan, "method `%s` is declared twice in trait `%s`", m.Name, def.Name).Emit()
			}
			seen[m.Name] = true
			c.checkBounds(m.Generics)
		}
		if !def.Cyclic {
			c.checkDiamond(def)
		}
	}
}

// checkBounds reports generic bounds naming undeclared traits.
func (c *checker) checkBounds(generics []traits.Generic) {
	for _, g := range generics {
		for i, name := range g.Bounds {
			if _, ok := c.reg.Trait(name); !ok {
				c.errorf(diag.UnknownTrait, g.BoundSpans[i], "cannot find trait `%s` in this scope", name).Emit()
			}
		}
	}
}

// paramTarget replaces the generic variables of a target by rigid parameters
// carrying their bounds, so bound checks can reason about them.
func paramTarget(target types.Type, generics []traits.Generic) (types.Type, traits.ParamEnv) {
	mapping := make(map[types.VarID]types.Type, len(generics))
	env := make(traits.ParamEnv, len(generics))
	for _, g := range generics {
		mapping[g.Var] = types.MakeParam(g.Name)
		env[g.Name] = g.Bounds
	}
	return scheme.Substitute(target, mapping), env
}
