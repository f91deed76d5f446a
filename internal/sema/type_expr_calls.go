package sema

import (
	"fmt"
	"slices"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/source"
	"keel/internal/types"
)

// callee describes what is being called, for argument binding and messages.
type callee struct {
	label string
	// names are the declared parameter names; nil when the callee is a
	// value whose parameters are anonymous.
	names []string
}

func (tc *typeChecker) typeCall(sp source.Span, call *ast.ExprCallData, want types.Type) types.Type {
	target := callee{label: "this function"}
	if ident, ok := tc.unit.Exprs.Ident(call.Callee); ok {
		name := tc.unit.Name(ident.Name)
		target.label = "`" + name + "`"
		if _, local := tc.env.Lookup(name); !local {
			if glob, ok := tc.globals.Lookup(name); ok {
				target.names = glob.ParamNames
			}
		}
	}

	calleeType := tc.typeExpr(call.Callee, noType)
	fn := tc.unifier.Normalize(calleeType)
	switch fn.Kind {
	case types.KindFn:
	case types.KindError:
		tc.typeArgsLoose(call.Args)
		return types.Error
	case types.KindVar:
		params := make([]types.Type, 0, len(call.Args))
		for range call.Args {
			params = append(params, tc.fresh.Var())
		}
		fn = types.MakeFn(params, tc.fresh.Var())
		tc.unifier.Origin = sp
		if err := tc.unifier.Unify(calleeType, fn); err != nil {
			tc.reportUnify(err, tc.exprSpan(call.Callee))
			tc.typeArgsLoose(call.Args)
			return types.Error
		}
	default:
		tc.report(diag.NotCallable, tc.exprSpan(call.Callee), "%s of type `%s` is not callable", target.label, tc.label(fn))
		tc.typeArgsLoose(call.Args)
		return types.Error
	}
	return tc.applyCall(sp, target, fn, call.Args, want)
}

// applyCall binds args to the parameters of fn and checks them left to
// right. After the first argument that fails, the remaining ones are still
// inferred but no longer checked against their parameters.
func (tc *typeChecker) applyCall(sp source.Span, target callee, fn types.Type, args []ast.CallArg, want types.Type) types.Type {
	slots, ok := tc.bindArgs(sp, target, len(fn.Args), args)
	if !ok {
		tc.typeArgsLoose(args)
		return types.Error
	}

	result := fn.Ret()
	if hasWant(want) && !tc.subst.Resolve(result).IsNever() {
		// return-type-driven inference; a conflict is reported by the caller
		snap := tc.unifier.Snapshot()
		if err := tc.unifier.Unify(want, result); err != nil {
			tc.unifier.Rollback(snap)
		}
	}

	failed := false
	for i, arg := range slots {
		if failed {
			tc.typeExpr(arg, noType)
			continue
		}
		if tc.typeExpr(arg, fn.Args[i]).IsError() {
			failed = true
		}
	}
	return result
}

// bindArgs maps positional and named arguments to parameter slots.
func (tc *typeChecker) bindArgs(sp source.Span, target callee, arity int, args []ast.CallArg) ([]ast.ExprID, bool) {
	slots := make([]ast.ExprID, arity)
	ok := true
	next, supplied := 0, 0
	for _, a := range args {
		supplied++
		if a.Name == source.NoStringID {
			for next < arity && slots[next].IsValid() {
				next++
			}
			if next < arity {
				slots[next] = a.Value
				next++
			}
			continue
		}
		name := tc.unit.Name(a.Name)
		if target.names == nil {
			tc.report(diag.BadNamedArgument, a.Span, "%s does not take named arguments", target.label)
			ok = false
			continue
		}
		idx := slices.Index(target.names, name)
		if idx < 0 || idx >= arity {
			tc.report(diag.BadNamedArgument, a.Span, "%s has no parameter named `%s`", target.label, name)
			ok = false
			continue
		}
		if slots[idx].IsValid() {
			tc.report(diag.BadNamedArgument, a.Span, "argument `%s` is given more than once", name)
			ok = false
			continue
		}
		slots[idx] = a.Value
	}
	if supplied != arity || slices.ContainsFunc(slots, func(id ast.ExprID) bool { return !id.IsValid() }) {
		if ok {
			tc.report(diag.ArgCountMismatch, sp, "%s takes %s but %s supplied",
				target.label, plural(arity, "argument"), wasWere(supplied))
		}
		ok = false
	}
	return slots, ok
}

// typeArgsLoose infers arguments that cannot be checked against anything.
func (tc *typeChecker) typeArgsLoose(args []ast.CallArg) {
	for _, a := range args {
		tc.typeExpr(a.Value, noType)
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func wasWere(n int) string {
	if n == 1 {
		return "1 was"
	}
	return fmt.Sprintf("%d were", n)
}
