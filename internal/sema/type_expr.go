package sema

import (
	"github.com/hashicorp/go-set/v3"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/scheme"
	"keel/internal/source"
	"keel/internal/trace"
	"keel/internal/types"
)

// noType marks the absence of an expected type.
var noType = types.Type{}

func hasWant(t types.Type) bool { return t.Kind != types.KindInvalid }

// typeExpr infers id, using want as a hint where the expression form can
// use one, and checks the result against want. A failing expression is
// recorded as the error type and its siblings carry on.
func (tc *typeChecker) typeExpr(id ast.ExprID, want types.Type) types.Type {
	if !id.IsValid() {
		return types.Unit
	}
	expr := tc.unit.Exprs.Get(id)
	if expr == nil {
		return types.Error
	}
	if tc.stopped() {
		return tc.record(id, types.Error)
	}

	tc.exprDepth++
	defer func() { tc.exprDepth-- }()
	if tc.exprDepth > tc.maxDepth {
		if tc.exprDepth == tc.maxDepth+1 {
			tc.report(diag.RecursionLimit, expr.Span, "expression nests deeper than %d levels", tc.maxDepth)
		}
		return tc.record(id, types.Error)
	}

	var span *trace.Span
	if tc.tracer.Level() >= trace.LevelDebug && tc.exprDepth <= 20 {
		span = trace.Begin(tc.tracer, trace.ScopeNode, "type_expr", 0)
		span.WithExtra("kind", expr.Kind.String())
	}

	var ty types.Type
	switch expr.Kind {
	case ast.ExprLit:
		lit, _ := tc.unit.Exprs.Literal(id)
		ty = tc.typeLiteral(expr.Span, lit)
	case ast.ExprIdent:
		ident, _ := tc.unit.Exprs.Ident(id)
		ty = tc.typeIdent(tc.unit.Name(ident.Name), expr.Span)
	case ast.ExprCall:
		call, _ := tc.unit.Exprs.Call(id)
		ty = tc.typeCall(expr.Span, call, want)
	case ast.ExprMethod:
		m, _ := tc.unit.Exprs.Method(id)
		ty = tc.typeMethodCall(id, expr.Span, m, want)
	case ast.ExprQualified:
		q, _ := tc.unit.Exprs.Qualified(id)
		ty = tc.typeQualified(id, expr.Span, q, want)
	case ast.ExprLet:
		let, _ := tc.unit.Exprs.Let(id)
		saved := tc.env
		tc.bindLet(let)
		ty = types.Unit
		if let.Body.IsValid() {
			ty = tc.typeExpr(let.Body, want)
		}
		tc.env = saved
	case ast.ExprBlock:
		block, _ := tc.unit.Exprs.Block(id)
		ty = tc.typeBlock(block, want)
	case ast.ExprList:
		list, _ := tc.unit.Exprs.List(id)
		ty = tc.typeList(list, want)
	case ast.ExprTuple:
		tuple, _ := tc.unit.Exprs.Tuple(id)
		ty = tc.typeTuple(tuple, want)
	case ast.ExprLambda:
		lambda, _ := tc.unit.Exprs.Lambda(id)
		ty = tc.typeLambda(lambda, want)
	case ast.ExprIf:
		data, _ := tc.unit.Exprs.If(id)
		ty = tc.typeIf(data, want)
	case ast.ExprBinary:
		data, _ := tc.unit.Exprs.Binary(id)
		ty = tc.typeBinary(expr.Span, data)
	case ast.ExprUnary:
		data, _ := tc.unit.Exprs.Unary(id)
		ty = tc.typeUnary(expr.Span, data)
	case ast.ExprStruct:
		data, _ := tc.unit.Exprs.Struct(id)
		ty = tc.typeStruct(expr.Span, data, want)
	case ast.ExprField:
		data, _ := tc.unit.Exprs.Field(id)
		ty = tc.typeField(data)
	case ast.ExprMatch:
		data, _ := tc.unit.Exprs.Match(id)
		ty = tc.typeMatch(expr.Span, data, want)
	default:
		ty = types.Error
	}
	ty = tc.expect(want, ty, expr.Span)

	if span != nil {
		span.WithExtra("result", tc.label(ty))
		span.End("")
	}
	return tc.record(id, ty)
}

// expect unifies got with want and reports a failure at sp. Never is
// accepted wherever a value is expected.
func (tc *typeChecker) expect(want, got types.Type, sp source.Span) types.Type {
	if !hasWant(want) || got.IsError() {
		return got
	}
	if tc.subst.Resolve(got).IsNever() {
		return got
	}
	tc.unifier.Origin = sp
	if err := tc.unifier.Unify(want, got); err != nil {
		tc.reportUnify(err, sp)
		return types.Error
	}
	return got
}

func (tc *typeChecker) typeIdent(name string, sp source.Span) types.Type {
	if s, ok := tc.env.Lookup(name); ok {
		return tc.instantiate(s, sp)
	}
	if glob, ok := tc.globals.Lookup(name); ok {
		return tc.instantiate(glob.Scheme, sp)
	}
	tc.report(diag.UnboundIdentifier, sp, "cannot find value `%s` in this scope", name)
	return types.Error
}

// bindLet infers the bound value and extends the environment with its
// generalized scheme.
func (tc *typeChecker) bindLet(let *ast.ExprLetData) {
	want := noType
	if let.Type.IsValid() {
		want = tc.scope.Type(let.Type)
	}
	t := tc.typeExpr(let.Value, want)
	if t.IsError() && hasWant(want) {
		t = want
	}
	tc.env = tc.env.Extend(tc.unit.Name(let.Name), tc.generalize(t))
}

// generalize quantifies the variables of t that are not free in the
// environment. Variables still tied to a deferred projection or to a
// structured obligation stay monomorphic; a bare obligation on a
// quantified variable becomes a bound of the scheme.
func (tc *typeChecker) generalize(t types.Type) scheme.Scheme {
	t = tc.unifier.Normalize(t)
	fixed := tc.env.FreeVars(tc.subst)
	for _, d := range tc.unifier.Pending() {
		types.AddFreeVars(fixed, tc.subst.Apply(d.Projection))
		types.AddFreeVars(fixed, tc.subst.Apply(d.Other))
	}
	for _, ob := range tc.obligations {
		if ot := tc.subst.Apply(ob.Type); ot.Kind != types.KindVar {
			types.AddFreeVars(fixed, ot)
		}
	}

	free := set.New[types.VarID](0)
	for v := range types.FreeVars(t).Items() {
		if !fixed.Contains(v) {
			free.Insert(v)
		}
	}
	if free.Empty() {
		return scheme.Mono(t)
	}

	var bounds []scheme.Bound
	kept := tc.obligations[:0]
	for _, ob := range tc.obligations {
		ot := tc.subst.Apply(ob.Type)
		if ot.Kind == types.KindVar && free.Contains(ot.Var) {
			bounds = append(bounds, scheme.Bound{Var: ot.Var, Trait: ob.Trait})
			continue
		}
		kept = append(kept, ob)
	}
	tc.obligations = kept
	for v := range free.Items() {
		tc.generalized.Insert(v)
	}
	return scheme.Generalize(t, fixed, bounds...)
}

// typeBlock checks items in order. A let without a body scopes over the
// rest of the block; the block's type is that of its last item.
func (tc *typeChecker) typeBlock(block *ast.ExprBlockData, want types.Type) types.Type {
	saved := tc.env
	defer func() { tc.env = saved }()

	result := types.Unit
	for i, item := range block.Items {
		last := i == len(block.Items)-1
		if let, ok := tc.unit.Exprs.Let(item); ok && !let.Body.IsValid() {
			tc.bindLet(let)
			tc.record(item, types.Unit)
			result = types.Unit
			continue
		}
		if last {
			result = tc.typeExpr(item, want)
		} else {
			tc.typeExpr(item, noType)
		}
	}
	return result
}

func (tc *typeChecker) typeList(list *ast.ExprListData, want types.Type) types.Type {
	elem := noType
	if w := tc.unifier.Normalize(want); w.Kind == types.KindApplied && w.Name == types.ListName && len(w.Args) == 1 {
		elem = w.Args[0]
	}
	if !hasWant(elem) {
		elem = tc.fresh.Var()
	}
	for _, e := range list.Elems {
		tc.typeExpr(e, elem)
	}
	return types.List(elem)
}

func (tc *typeChecker) typeTuple(tuple *ast.ExprTupleData, want types.Type) types.Type {
	w := tc.unifier.Normalize(want)
	hint := w.Kind == types.KindTuple && len(w.Args) == len(tuple.Elems)
	elems := make([]types.Type, len(tuple.Elems))
	for i, e := range tuple.Elems {
		ew := noType
		if hint {
			ew = w.Args[i]
		}
		elems[i] = tc.typeExpr(e, ew)
	}
	return types.MakeTuple(elems...)
}

// typeLambda takes unannotated parameter types from an expected function
// type when one of the right arity is known.
func (tc *typeChecker) typeLambda(lambda *ast.ExprLambdaData, want types.Type) types.Type {
	w := tc.unifier.Normalize(want)
	hint := w.Kind == types.KindFn && len(w.Args) == len(lambda.Params)

	saved := tc.env
	defer func() { tc.env = saved }()

	params := make([]types.Type, len(lambda.Params))
	for i, p := range lambda.Params {
		var pt types.Type
		switch {
		case p.Type.IsValid():
			pt = tc.scope.Type(p.Type)
			if hint {
				tc.expect(w.Args[i], pt, p.Span)
			}
		case hint:
			pt = w.Args[i]
		default:
			pt = tc.fresh.Var()
		}
		params[i] = pt
		tc.env = tc.env.Extend(tc.unit.Name(p.Name), scheme.Mono(pt))
	}

	bodyWant := noType
	if hint {
		bodyWant = w.Ret()
	}
	if lambda.Result.IsValid() {
		declared := tc.scope.Type(lambda.Result)
		if hint {
			tc.expect(bodyWant, declared, tc.exprSpan(lambda.Body))
		}
		bodyWant = declared
	}
	result := tc.typeExpr(lambda.Body, bodyWant)
	if hasWant(bodyWant) && (result.IsError() || tc.subst.Resolve(result).IsNever()) {
		result = bodyWant
	}
	return types.MakeFn(params, result)
}

// typeIf takes the type of the branch that can complete; a branch of type
// Never adopts the other one.
func (tc *typeChecker) typeIf(data *ast.ExprIfData, want types.Type) types.Type {
	tc.typeExpr(data.Cond, types.Bool)
	if !data.Else.IsValid() {
		tc.typeExpr(data.Then, types.Unit)
		return types.Unit
	}
	thenT := tc.typeExpr(data.Then, want)
	elseWant := want
	if !hasWant(elseWant) && !thenT.IsError() && !tc.subst.Resolve(thenT).IsNever() {
		elseWant = thenT
	}
	elseT := tc.typeExpr(data.Else, elseWant)
	switch {
	case thenT.IsError(), tc.subst.Resolve(thenT).IsNever():
		return elseT
	case elseT.IsError() && hasWant(want):
		return want
	}
	return thenT
}
