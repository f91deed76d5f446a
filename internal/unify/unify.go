package unify

import (
	"keel/internal/source"
	"keel/internal/types"
)

// DefaultMaxDepth is the recursion ceiling used when none is configured.
const DefaultMaxDepth = 1000

// AssocResolver finds the binding of an associated type once the receiver is
// concrete. trait is empty for unqualified projections.
type AssocResolver interface {
	LookupAssoc(receiver types.Type, assoc, trait string) (types.Type, bool)
}

// Deferred is a projection constraint waiting for its receiver.
type Deferred struct {
	Projection types.Type
	Other      types.Type
	Origin     source.Span
}

// Failure is a deferred constraint that failed when it was retried.
type Failure struct {
	Origin source.Span
	Err    *Error
}

// Unifier solves equations into Subst. It is not safe for concurrent use;
// each inference context owns one.
type Unifier struct {
	Subst    *types.Subst
	Assoc    AssocResolver
	MaxDepth int
	// Origin tags constraints deferred by the next Unify call.
	Origin source.Span

	deferred []Deferred
	depth    int
}

func New(subst *types.Subst, assoc AssocResolver, maxDepth int) *Unifier {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if subst == nil {
		subst = types.NewSubst()
	}
	return &Unifier{Subst: subst, Assoc: assoc, MaxDepth: maxDepth}
}

// Unify solves a = b in s without associated-type resolution. On failure s
// keeps the bindings made before the failing step.
func Unify(a, b types.Type, s *types.Subst) error {
	return New(s, nil, DefaultMaxDepth).Unify(a, b)
}

// Unify solves expected = found. The returned error is always *Error.
func (u *Unifier) Unify(expected, found types.Type) error {
	u.depth = 0
	if err := u.unify(expected, found); err != nil {
		return err
	}
	return nil
}

func (u *Unifier) unify(a, b types.Type) *Error {
	u.depth++
	defer func() { u.depth-- }()
	if u.depth > u.MaxDepth {
		return mismatch(DepthExceeded, u.Subst.Apply(a), u.Subst.Apply(b))
	}

	a = u.Subst.Resolve(a)
	b = u.Subst.Resolve(b)

	switch {
	case a.Kind == types.KindError || b.Kind == types.KindError:
		return nil
	case a.Kind == types.KindVar && b.Kind == types.KindVar && a.Var == b.Var:
		return nil
	case a.Kind == types.KindProjection:
		return u.unifyProjection(a, b, false)
	case b.Kind == types.KindProjection:
		return u.unifyProjection(b, a, true)
	case a.Kind == types.KindVar:
		return u.bind(a.Var, b, false)
	case b.Kind == types.KindVar:
		return u.bind(b.Var, a, true)
	case a.Kind != b.Kind:
		return mismatch(Mismatch, u.Subst.Apply(a), u.Subst.Apply(b))
	}

	switch a.Kind {
	case types.KindPrim:
		if a.Prim != b.Prim {
			return mismatch(Mismatch, a, b)
		}
		return nil
	case types.KindNamed, types.KindParam:
		if a.Name != b.Name {
			return mismatch(Mismatch, a, b)
		}
		return nil
	case types.KindApplied:
		if a.Name != b.Name {
			return mismatch(Mismatch, u.Subst.Apply(a), u.Subst.Apply(b))
		}
		return u.unifyLists(a, b)
	case types.KindTuple:
		return u.unifyLists(a, b)
	case types.KindFn:
		if err := u.unifyLists(a, b); err != nil {
			return err
		}
		return u.unify(a.Ret(), b.Ret())
	}
	return mismatch(Mismatch, a, b)
}

func (u *Unifier) unifyLists(a, b types.Type) *Error {
	if len(a.Args) != len(b.Args) {
		return mismatch(ShapeMismatch, u.Subst.Apply(a), u.Subst.Apply(b))
	}
	for i := range a.Args {
		if err := u.unify(a.Args[i], b.Args[i]); err != nil {
			return err
		}
	}
	return nil
}

// bind performs v := t after the occurs check. flipped keeps the error's
// expected/found orientation when v came from the found side.
func (u *Unifier) bind(v types.VarID, t types.Type, flipped bool) *Error {
	applied := u.Subst.Apply(t)
	if applied.Kind == types.KindVar && applied.Var == v {
		return nil
	}
	if types.Occurs(v, applied) {
		err := &Error{Kind: OccursCheck, Var: v, Expected: types.MakeVar(v), Found: applied}
		if flipped {
			err.Expected, err.Found = applied, types.MakeVar(v)
		}
		return err
	}
	u.Subst.Bind(v, applied)
	return nil
}
