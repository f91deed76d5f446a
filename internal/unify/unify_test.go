package unify

import (
	"errors"
	"testing"

	"keel/internal/types"
)

func v(id types.VarID) types.Type { return types.MakeVar(id) }

func TestUnifyListOfVarWithListOfInt(t *testing.T) {
	s := types.NewSubst()
	if err := Unify(types.List(v(0)), types.List(types.Int), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := s.Lookup(0)
	if !ok || !types.Equal(got, types.Int) || s.Len() != 1 {
		t.Fatalf("substitution = %s", s)
	}
}

func TestUnifyOccursCheck(t *testing.T) {
	s := types.NewSubst()
	err := Unify(v(0), types.List(v(0)), s)
	var uerr *Error
	if !errors.As(err, &uerr) || uerr.Kind != OccursCheck {
		t.Fatalf("expected occurs check, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("failed occurs check must not bind: %s", s)
	}

	// indirect: ?1 := [?0], then ?0 = ?1
	s = types.NewSubst()
	if err := Unify(v(1), types.List(v(0)), s); err != nil {
		t.Fatalf("setup: %v", err)
	}
	err = Unify(v(0), v(1), s)
	if !errors.As(err, &uerr) || uerr.Kind != OccursCheck {
		t.Fatalf("expected transitive occurs check, got %v", err)
	}
}

func TestUnifyShapesAndMismatch(t *testing.T) {
	cases := []struct {
		name string
		a, b types.Type
		kind ErrorKind
	}{
		{"prims", types.Int, types.Float, Mismatch},
		{"applied names", types.List(types.Int), types.Option(types.Int), Mismatch},
		{"applied arity", types.MakeApplied("Map", types.Int, types.Int), types.MakeApplied("Map", types.Int), ShapeMismatch},
		{"fn arity", types.MakeFn([]types.Type{types.Int}, types.Unit), types.MakeFn(nil, types.Unit), ShapeMismatch},
		{"tuple arity", types.MakeTuple(types.Int, types.Int), types.MakeTuple(types.Int, types.Int, types.Int), ShapeMismatch},
		{"kinds", types.MakeNamed("Point"), types.MakeTuple(types.Int, types.Int), Mismatch},
		{"params", types.MakeParam("T"), types.MakeParam("U"), Mismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Unify(tc.a, tc.b, types.NewSubst())
			var uerr *Error
			if !errors.As(err, &uerr) || uerr.Kind != tc.kind {
				t.Fatalf("got %v, want %s", err, tc.kind)
			}
		})
	}
}

func TestMismatchOrientation(t *testing.T) {
	err := Unify(types.Int, types.Str, types.NewSubst())
	var uerr *Error
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if !types.Equal(uerr.Expected, types.Int) || !types.Equal(uerr.Found, types.Str) {
		t.Fatalf("orientation lost: expected %s found %s", uerr.Expected, uerr.Found)
	}
	if uerr.Error() != "mismatched types: expected int, found str" {
		t.Fatalf("message = %q", uerr.Error())
	}
}

func TestUnifySoundness(t *testing.T) {
	pairs := [][2]types.Type{
		{types.MakeFn([]types.Type{v(0), v(1)}, v(2)), types.MakeFn([]types.Type{types.Int, types.List(v(0))}, types.Option(v(1)))},
		{types.MakeTuple(v(0), v(0)), types.MakeTuple(v(1), types.Bool)},
		{types.MakeApplied("Map", v(3), types.List(v(4))), types.MakeApplied("Map", types.Str, v(5))},
		{v(0), v(0)},
		{types.Error, types.List(types.Int)},
	}
	for i, p := range pairs {
		s := types.NewSubst()
		if err := Unify(p[0], p[1], s); err != nil {
			t.Fatalf("pair %d: %v", i, err)
		}
		a, b := s.Apply(p[0]), s.Apply(p[1])
		if p[0].Kind == types.KindError {
			continue
		}
		if !types.Equal(a, b) {
			t.Fatalf("pair %d: apply(s, a) = %s, apply(s, b) = %s", i, a, b)
		}
		if !types.Equal(s.Apply(a), a) {
			t.Fatalf("pair %d: substitution not idempotent", i)
		}
	}
}

func TestErrorSentinelAbsorbs(t *testing.T) {
	s := types.NewSubst()
	if err := Unify(types.MakeFn([]types.Type{types.Error}, types.Int), types.MakeFn([]types.Type{types.Str}, v(0)), s); err != nil {
		t.Fatalf("error type must unify with anything: %v", err)
	}
	if got := s.Apply(v(0)); !types.Equal(got, types.Int) {
		t.Fatalf("later components still solved: %s", got)
	}
}

func TestDepthCeiling(t *testing.T) {
	deep := func(leaf types.Type) types.Type {
		out := leaf
		for range 50 {
			out = types.List(out)
		}
		return out
	}
	u := New(types.NewSubst(), nil, 20)
	err := u.Unify(deep(types.Int), deep(v(0)))
	var uerr *Error
	if !errors.As(err, &uerr) || uerr.Kind != DepthExceeded {
		t.Fatalf("expected depth error, got %v", err)
	}
	if err := New(types.NewSubst(), nil, 0).Unify(deep(types.Int), deep(v(0))); err != nil {
		t.Fatalf("default ceiling too low: %v", err)
	}
}

type assocTable map[string]types.Type

func (a assocTable) LookupAssoc(recv types.Type, assoc, _ string) (types.Type, bool) {
	t, ok := a[types.Head(recv)+"."+assoc]
	return t, ok
}

func TestProjectionResolvesWhenReceiverIsConcrete(t *testing.T) {
	u := New(types.NewSubst(), assocTable{"Range.Item": types.Int}, 0)
	proj := types.MakeProjection(types.MakeNamed("Range"), "Item", "")
	if err := u.Unify(proj, v(0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := u.Subst.Apply(v(0)); !types.Equal(got, types.Int) {
		t.Fatalf("?0 = %s", got)
	}
	err := u.Unify(types.MakeProjection(types.MakeNamed("Range"), "Missing", ""), types.Int)
	var uerr *Error
	if !errors.As(err, &uerr) || uerr.Kind != NoAssocBinding {
		t.Fatalf("expected NoAssocBinding, got %v", err)
	}
}

func TestProjectionDeferredUntilReceiverKnown(t *testing.T) {
	u := New(types.NewSubst(), assocTable{"Range.Item": types.Int}, 0)
	proj := types.MakeProjection(v(0), "Item", "")
	if err := u.Unify(proj, v(1)); err != nil {
		t.Fatalf("deferral must not fail: %v", err)
	}
	if len(u.Pending()) != 1 {
		t.Fatalf("expected one deferred constraint, got %d", len(u.Pending()))
	}
	if failures := u.Solve(); len(failures) != 0 || len(u.Pending()) != 1 {
		t.Fatalf("unresolved receiver must stay pending")
	}
	if err := u.Unify(v(0), types.MakeNamed("Range")); err != nil {
		t.Fatalf("bind receiver: %v", err)
	}
	if failures := u.Solve(); len(failures) != 0 {
		t.Fatalf("retry failed: %v", failures[0].Err)
	}
	if len(u.Pending()) != 0 {
		t.Fatalf("constraint still pending")
	}
	if got := u.Subst.Apply(v(1)); !types.Equal(got, types.Int) {
		t.Fatalf("?1 = %s", got)
	}
	if got := u.Normalize(proj); !types.Equal(got, types.Int) {
		t.Fatalf("Normalize = %s", got)
	}
}

func TestRigidProjection(t *testing.T) {
	u := New(types.NewSubst(), assocTable{}, 0)
	p := types.MakeProjection(types.MakeParam("I"), "Item", "")
	if err := u.Unify(p, p); err != nil {
		t.Fatalf("identical rigid projections must unify: %v", err)
	}
	if err := u.Unify(p, types.Int); err == nil {
		t.Fatalf("rigid projection unified with int")
	}
}
