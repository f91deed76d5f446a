package sema

import (
	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/source"
	"keel/internal/types"
)

// typeBinary types operators over primitives. Both operands must agree,
// except that a duration or size may be scaled by an int.
func (tc *typeChecker) typeBinary(sp source.Span, data *ast.ExprBinaryData) types.Type {
	if data.Op.IsLogical() {
		tc.typeExpr(data.Left, types.Bool)
		tc.typeExpr(data.Right, types.Bool)
		return types.Bool
	}

	left := tc.typeExpr(data.Left, noType)
	rightWant := noType
	if !left.IsError() && !tc.scalable(data.Op, left) {
		rightWant = left
	}
	right := tc.typeExpr(data.Right, rightWant)
	if left.IsError() || right.IsError() {
		if data.Op.IsComparison() {
			return types.Bool
		}
		return types.Error
	}

	lt, rt := tc.unifier.Normalize(left), tc.unifier.Normalize(right)
	switch {
	case data.Op.IsComparison():
		if data.Op == ast.BinaryEq || data.Op == ast.BinaryNotEq || lt.Kind == types.KindVar || ordered(lt) {
			return types.Bool
		}
		tc.report(diag.InvalidOperands, sp, "cannot compare values of type `%s` with `%s`", lt, data.Op)
		return types.Bool
	case lt.Kind == types.KindVar:
		return lt
	case scaled(data.Op, lt, rt):
		return lt
	case !types.Equal(lt, rt):
		tc.report(diag.InvalidOperands, sp, "cannot apply `%s` to `%s` and `%s`", data.Op, lt, rt)
		return types.Error
	case lt.Kind == types.KindPrim && lt.Prim.Numeric():
		return lt
	case data.Op == ast.BinaryAdd && types.Equal(lt, types.Str):
		return lt
	}
	tc.report(diag.InvalidOperands, sp, "cannot apply `%s` to `%s` and `%s`", data.Op, lt, rt)
	return types.Error
}

// scalable reports whether t may take an int on the right of op, in which
// case the right operand is not forced to match the left.
func (tc *typeChecker) scalable(op ast.BinaryOp, t types.Type) bool {
	t = tc.unifier.Normalize(t)
	return (op == ast.BinaryMul || op == ast.BinaryDiv) && t.Kind == types.KindPrim &&
		(t.Prim == types.PrimDuration || t.Prim == types.PrimSize)
}

func scaled(op ast.BinaryOp, l, r types.Type) bool {
	if op != ast.BinaryMul && op != ast.BinaryDiv || l.Kind != types.KindPrim {
		return false
	}
	if l.Prim != types.PrimDuration && l.Prim != types.PrimSize {
		return false
	}
	return types.Equal(r, types.Int)
}

func ordered(t types.Type) bool {
	if t.Kind != types.KindPrim {
		return false
	}
	return t.Prim.Numeric() || t.Prim == types.PrimStr || t.Prim == types.PrimChar
}

func (tc *typeChecker) typeUnary(sp source.Span, data *ast.ExprUnaryData) types.Type {
	if data.Op == ast.UnaryNot {
		tc.typeExpr(data.Operand, types.Bool)
		return types.Bool
	}
	t := tc.typeExpr(data.Operand, noType)
	if t.IsError() {
		return types.Error
	}
	nt := tc.unifier.Normalize(t)
	switch {
	case nt.Kind == types.KindVar:
		return nt
	case nt.Kind == types.KindPrim && (nt.Prim == types.PrimInt || nt.Prim == types.PrimFloat || nt.Prim == types.PrimDuration):
		return nt
	}
	tc.report(diag.InvalidOperands, sp, "cannot negate a value of type `%s`", nt)
	return types.Error
}
