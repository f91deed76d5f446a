// Package lower turns written type expressions into types.Type.
package lower

import (
	"fmt"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/source"
	"keel/internal/types"
)

// TypeTable answers whether a nominal type exists and how many arguments it
// takes.
type TypeTable interface {
	TypeArity(name string) (int, bool)
}

// Scope is the naming context of one lowering: the generic parameters in
// scope (bound to variables for signatures or to rigid parameters for
// bodies), the meaning of Self, and where errors go.
type Scope struct {
	Unit     *ast.Unit
	Types    TypeTable
	Generics map[string]types.Type
	// Self is nil outside traits, impls and extensions.
	Self *types.Type
	// SelfTrait qualifies Self.Assoc projections written inside a trait.
	SelfTrait string
	// Infer supplies a variable for `_`; nil rejects the placeholder.
	Infer    func() types.Type
	Reporter diag.Reporter
	MaxDepth int
}

// Type lowers id. Failures are reported and yield types.Error, so callers
// never see a partially lowered type.
func (s *Scope) Type(id ast.TypeExprID) types.Type {
	if !id.IsValid() {
		return types.Unit
	}
	return s.lower(id, 0)
}

// Optional lowers id, or returns def when the annotation is absent.
func (s *Scope) Optional(id ast.TypeExprID, def types.Type) types.Type {
	if !id.IsValid() {
		return def
	}
	return s.lower(id, 0)
}

// With returns a copy of s with extra generics layered over the current ones.
func (s *Scope) With(generics map[string]types.Type) *Scope {
	out := *s
	out.Generics = make(map[string]types.Type, len(s.Generics)+len(generics))
	for k, v := range s.Generics {
		out.Generics[k] = v
	}
	for k, v := range generics {
		out.Generics[k] = v
	}
	return &out
}

func (s *Scope) maxDepth() int {
	if s.MaxDepth <= 0 {
		return 1000
	}
	return s.MaxDepth
}

func (s *Scope) errorf(code diag.Code, sp source.Span, format string, args ...any) types.Type {
	diag.ReportError(s.Reporter, code, sp, fmt.Sprintf(format, args...)).Emit()
	return types.Error
}

func (s *Scope) lower(id ast.TypeExprID, depth int) types.Type {
	te := s.Unit.Types.Get(id)
	if te == nil {
		return types.Error
	}
	if depth > s.maxDepth() {
		return s.errorf(diag.RecursionLimit, te.Span, "type expression nests deeper than %d levels", s.maxDepth())
	}
	switch te.Kind {
	case ast.TypeExprPath:
		return s.lowerPath(te, depth)
	case ast.TypeExprList:
		return types.List(s.lower(te.Args[0], depth+1))
	case ast.TypeExprFn:
		return types.MakeFn(s.lowerAll(te.Args, depth), s.Type(te.Result))
	case ast.TypeExprTuple:
		return types.MakeTuple(s.lowerAll(te.Args, depth)...)
	case ast.TypeExprProjection:
		return s.lowerProjection(te, depth)
	case ast.TypeExprInfer:
		if s.Infer == nil {
			return s.errorf(diag.TypeAnnotationsNeeded, te.Span, "the placeholder `_` is not allowed in signatures")
		}
		return s.Infer()
	}
	return s.errorf(diag.UnknownType, te.Span, "unsupported type expression")
}

func (s *Scope) lowerAll(ids []ast.TypeExprID, depth int) []types.Type {
	out := make([]types.Type, len(ids))
	for i, a := range ids {
		out[i] = s.lower(a, depth+1)
	}
	return out
}

func (s *Scope) lowerPath(te *ast.TypeExpr, depth int) types.Type {
	name := s.Unit.Name(te.Name)
	if g, ok := s.Generics[name]; ok {
		if len(te.Args) > 0 {
			return s.errorf(diag.WrongTypeArity, te.Span, "generic parameter %s takes no type arguments", name)
		}
		return g
	}
	if name == "Self" {
		if s.Self == nil {
			return s.errorf(diag.UnknownType, te.Span, "`Self` is only valid inside a trait, impl or extend block")
		}
		return *s.Self
	}
	if p, ok := types.PrimByName(name); ok {
		if len(te.Args) > 0 {
			return s.errorf(diag.WrongTypeArity, te.Span, "primitive type %s takes no type arguments", name)
		}
		return types.MakePrim(p)
	}
	arity, ok := s.Types.TypeArity(name)
	if !ok {
		return s.errorf(diag.UnknownType, te.Span, "cannot find type `%s` in this scope", name)
	}
	if arity != len(te.Args) {
		return s.errorf(diag.WrongTypeArity, te.Span, "type %s expects %d type argument(s), found %d", name, arity, len(te.Args))
	}
	return types.MakeApplied(name, s.lowerAll(te.Args, depth)...)
}

func (s *Scope) lowerProjection(te *ast.TypeExpr, depth int) types.Type {
	base := s.lower(te.Base, depth+1)
	if base.IsError() {
		return types.Error
	}
	trait := s.Unit.Name(te.Trait)
	if trait == "" && s.Self != nil && s.SelfTrait != "" && types.Equal(base, *s.Self) {
		trait = s.SelfTrait
	}
	return types.MakeProjection(base, s.Unit.Name(te.Name), trait)
}
