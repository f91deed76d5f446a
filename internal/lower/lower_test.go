package lower_test

import (
	"testing"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/lower"
	"keel/internal/testkit"
	"keel/internal/types"
)

type arities map[string]int

func (a arities) TypeArity(name string) (int, bool) {
	n, ok := a[name]
	return n, ok
}

// signature loads `fn f(x: <text>)` and returns the unit and the param type id.
func signature(t *testing.T, text string) (*ast.Unit, ast.TypeExprID) {
	t.Helper()
	unit, _ := testkit.Unit(t, `
		modules:
		  - name: m
		    decls:
		      - fn: f
		        params: ["x: `+text+`"]
	`)
	fn, _ := unit.Decls.Fn(testkit.Find(t, unit, "f"))
	return unit, fn.Params[0].Type
}

func TestLowerShapes(t *testing.T) {
	table := arities{"List": 1, "Option": 1, "Map": 2, "Point": 0}
	cases := []struct {
		text string
		want string
	}{
		{"int", "int"},
		{"[T]", "[T]"},
		{"Option<[int]>", "Option<[int]>"},
		{"Map<str, T>", "Map<str, T>"},
		{"fn(int, T) -> bool", "fn(int, T) -> bool"},
		{"(int, Point)", "(int, Point)"},
		{"()", "void"},
		{"T.Item", "T.Item"},
		{"<T as Seq>.Item", "<T as Seq>.Item"},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			unit, id := signature(t, tc.text)
			bag := diag.NewBag(0)
			scope := &lower.Scope{
				Unit:     unit,
				Types:    table,
				Generics: map[string]types.Type{"T": types.MakeParam("T")},
				Reporter: diag.BagReporter{Bag: bag},
			}
			got := scope.Type(id)
			if bag.Len() != 0 {
				t.Fatalf("unexpected diagnostics: %v", bag.Items())
			}
			if got.String() != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestLowerErrors(t *testing.T) {
	table := arities{"List": 1, "Point": 0}
	cases := []struct {
		text string
		code diag.Code
	}{
		{"Missing", diag.UnknownType},
		{"Point<int>", diag.WrongTypeArity},
		{"List", diag.WrongTypeArity},
		{"int<str>", diag.WrongTypeArity},
		{"Self", diag.UnknownType},
		{"_", diag.TypeAnnotationsNeeded},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			unit, id := signature(t, tc.text)
			bag := diag.NewBag(0)
			scope := &lower.Scope{Unit: unit, Types: table, Reporter: diag.BagReporter{Bag: bag}}
			if got := scope.Type(id); !got.IsError() {
				t.Fatalf("expected the error type, got %s", got)
			}
			if bag.Len() != 1 || bag.Items()[0].Code != tc.code {
				t.Fatalf("expected one %v, got %v", tc.code, bag.Items())
			}
		})
	}
}

func TestSelfProjectionTakesTraitName(t *testing.T) {
	unit, id := signature(t, "Self.Item")
	self := types.MakeVar(1)
	scope := &lower.Scope{Unit: unit, Types: arities{}, Self: &self, SelfTrait: "Seq"}
	got := scope.Type(id)
	if got.Kind != types.KindProjection || got.Trait != "Seq" || got.Name != "Item" {
		t.Fatalf("unexpected projection %+v", got)
	}
	if !types.Equal(got.Receiver(), self) {
		t.Fatalf("receiver should be Self")
	}
}

func TestInferPlaceholderUsesSupplier(t *testing.T) {
	unit, id := signature(t, "[_]")
	next := types.VarID(40)
	scope := &lower.Scope{Unit: unit, Types: arities{"List": 1}, Infer: func() types.Type {
		next++
		return types.MakeVar(next)
	}}
	if got := scope.Type(id); got.String() != "[?41]" {
		t.Fatalf("expected [?41], got %s", got)
	}
}

func TestWithLayersGenerics(t *testing.T) {
	base := &lower.Scope{Generics: map[string]types.Type{"T": types.MakeVar(1)}}
	inner := base.With(map[string]types.Type{"U": types.MakeVar(2)})
	if len(inner.Generics) != 2 || len(base.Generics) != 1 {
		t.Fatalf("With must not mutate the parent scope")
	}
}
