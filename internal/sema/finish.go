package sema

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-set/v3"

	"keel/internal/diag"
	"keel/internal/source"
	"keel/internal/types"
	"keel/internal/unify"
)

// reportUnify maps a unification failure to its diagnostic.
func (tc *typeChecker) reportUnify(err error, sp source.Span) {
	var ue *unify.Error
	if !errors.As(err, &ue) {
		tc.report(diag.TypeMismatch, sp, "%s", err.Error())
		return
	}
	expected, found := tc.label(ue.Expected), tc.label(ue.Found)
	switch ue.Kind {
	case unify.ShapeMismatch:
		tc.report(diag.ShapeMismatch, sp, "mismatched type shapes: expected `%s`, found `%s`", expected, found)
	case unify.OccursCheck:
		tc.report(diag.OccursCheck, sp, "%s", ue.Error())
	case unify.NoAssocBinding:
		tc.report(diag.NoAssociatedBinding, sp, "`%s` has no associated type `%s`", found, ue.Assoc)
	case unify.DepthExceeded:
		tc.report(diag.RecursionLimit, sp, "recursion limit of %d reached while unifying `%s` with `%s`", tc.maxDepth, expected, found)
	default:
		tc.report(diag.TypeMismatch, sp, "mismatched types: expected `%s`, found `%s`", expected, found)
	}
}

// finish retries deferred projections, checks obligations, reports what
// stayed unknown and writes the closed expression types.
func (tc *typeChecker) finish() {
	if !tc.halted {
		for _, f := range tc.unifier.Solve() {
			tc.reportUnify(f.Err, f.Origin)
		}
		tc.reportPending()
		tc.checkObligations()
		tc.reportResidual()
	}
	tc.closeTypes()

	tc.bag.Sort()
	tc.bag.Dedup()
	tc.result.Diags = append(tc.result.Diags[:0], tc.bag.Items()...)
}

func (tc *typeChecker) reportPending() {
	for _, d := range tc.unifier.Pending() {
		p := tc.subst.Apply(d.Projection)
		tc.report(diag.AmbiguousAssociatedType, d.Origin,
			"cannot determine the associated type `%s` of `%s`", p.Name, tc.placeholders(tc.unifier.Normalize(p.Receiver())))
		tc.poison(p.Receiver())
	}
}

func (tc *typeChecker) checkObligations() {
	type key struct {
		t, trait string
		sp       source.Span
	}
	seen := make(map[key]bool)
	for _, ob := range tc.obligations {
		t := tc.unifier.Normalize(ob.Type)
		if types.Contains(t, types.KindVar) {
			continue
		}
		if _, known := tc.reg.Trait(ob.Trait); !known {
			continue
		}
		if tc.reg.Implements(t, ob.Trait, tc.paramEnv) {
			continue
		}
		k := key{t.String(), ob.Trait, ob.Span}
		if seen[k] {
			continue
		}
		seen[k] = true
		b := diag.ReportError(tc.reporter, diag.MissingTraitBound, ob.Span,
			fmt.Sprintf("the trait bound `%s: %s` is not satisfied", t, ob.Trait))
		if t.Kind == types.KindParam {
			if edit, ok := tc.boundEdit(t.Name, ob.Trait); ok {
				b.WithFix("add the bound `"+t.Name+": "+ob.Trait+"`", edit)
			}
		}
		b.Emit()
	}
}

// reportResidual reports each variable that is neither solved nor
// generalized once, at the first expression whose type mentions it.
func (tc *typeChecker) reportResidual() {
	seen := set.New[types.VarID](0)
	for _, id := range tc.visited {
		t := tc.unifier.Normalize(tc.result.ExprTypes[id])
		fresh := false
		for v := range types.FreeVars(t).Items() {
			if tc.generalized.Contains(v) || seen.Contains(v) {
				continue
			}
			seen.Insert(v)
			fresh = true
		}
		if !fresh {
			continue
		}
		tc.report(diag.TypeAnnotationsNeeded, tc.exprSpan(id),
			"type annotations needed: cannot infer `%s`", tc.placeholders(t))
	}
	for v := range seen.Items() {
		tc.subst.Bind(v, types.Error)
	}
}

// placeholders shows unknown parts of t as `_`.
func (tc *typeChecker) placeholders(t types.Type) string {
	return types.Rewrite(t, func(n types.Type) (types.Type, bool) {
		if n.Kind == types.KindVar && !tc.generalized.Contains(n.Var) {
			return types.MakeNamed("_"), true
		}
		return n, false
	}).String()
}

// closeTypes applies the final substitution. Generalized variables become
// named parameters; anything else still open becomes the error type.
func (tc *typeChecker) closeTypes() {
	names := make(map[types.VarID]types.Type)
	for _, v := range types.SortedVars(tc.generalized) {
		names[v] = types.MakeParam(paramName(len(names)))
	}
	for _, id := range tc.visited {
		t := tc.unifier.Normalize(tc.result.ExprTypes[id])
		tc.result.ExprTypes[id] = types.Rewrite(t, func(n types.Type) (types.Type, bool) {
			if n.Kind != types.KindVar {
				return n, false
			}
			if p, ok := names[n.Var]; ok {
				return p, true
			}
			return types.Error, true
		})
	}
}

func paramName(i int) string {
	if i < 26 {
		return string(rune('a' + i))
	}
	return fmt.Sprintf("t%d", i)
}
