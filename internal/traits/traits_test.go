package traits_test

import (
	"testing"

	"keel/internal/diag"
	"keel/internal/testkit"
	"keel/internal/traits"
	"keel/internal/types"
)

const shapes = `
modules:
  - name: geo
    decls:
      - type: Circle
      - type: Square
      - type: Boxed
        generics: [T]
      - trait: Shape
        methods:
          - fn: area
            params: [self]
            returns: float
      - trait: Describable
        methods:
          - fn: describe
            params: [self]
            returns: str
      - trait: Seq
        assoc: [Item]
        methods:
          - fn: first
            params: [self]
            returns: Self.Item
      - impl: Shape
        for: Circle
        methods:
          - fn: area
            params: [self]
            returns: float
            body: 3.14
      - impl: Describable
        generics: ["T: Shape"]
        for: T
        methods:
          - fn: describe
            params: [self]
            returns: str
            body: "shape"
      - impl: Describable
        for: Circle
        methods:
          - fn: describe
            params: [self]
            returns: str
            body: "circle"
      - impl: Seq
        generics: [T]
        for: Boxed<T>
        assoc: {Item: T}
        methods:
          - fn: first
            params: [self]
            returns: T
`

func build(t *testing.T, text string) (*traits.Registry, *diag.Bag) {
	t.Helper()
	unit, _ := testkit.Unit(t, text)
	bag := diag.NewBag(0)
	b := traits.NewBuilder(unit, diag.BagReporter{Bag: bag}, traits.Options{})
	b.Register()
	return b.Freeze(), bag
}

func TestRanksAndHeads(t *testing.T) {
	reg, bag := build(t, shapes)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	want := []struct {
		trait string
		head  string
		rank  traits.Rank
	}{
		{"Shape", "Circle", traits.RankConcrete},
		{"Describable", "", traits.RankBounded},
		{"Describable", "Circle", traits.RankConcrete},
		{"Seq", "Boxed", traits.RankBlanket},
	}
	impls := reg.Impls()
	if len(impls) != len(want) {
		t.Fatalf("expected %d impls, got %d", len(want), len(impls))
	}
	for i, w := range want {
		if impls[i].TraitName != w.trait || impls[i].Head != w.head || impls[i].Rank != w.rank {
			t.Fatalf("impl %d: got %s/%q/%s", i, impls[i].TraitName, impls[i].Head, impls[i].Rank)
		}
	}
}

func TestApplicableImplsPreferConcrete(t *testing.T) {
	reg, _ := build(t, shapes)
	desc, _ := reg.Trait("Describable")
	ids := reg.ApplicableImpls(desc.ID, types.MakeNamed("Circle"), nil)
	if len(ids) != 2 {
		t.Fatalf("expected the blanket and the concrete impl, got %v", ids)
	}
	if reg.Impl(ids[0]).Rank != traits.RankConcrete {
		t.Fatalf("concrete impl must sort first")
	}
	// Square has no Shape impl, so the bounded blanket impl does not apply
	if ids := reg.ApplicableImpls(desc.ID, types.MakeNamed("Square"), nil); len(ids) != 0 {
		t.Fatalf("expected no impl for Square, got %v", ids)
	}
}

func TestImplements(t *testing.T) {
	reg, _ := build(t, shapes)
	circle := types.MakeNamed("Circle")
	if !reg.Implements(circle, "Shape", nil) || !reg.Implements(circle, "Describable", nil) {
		t.Fatalf("Circle should implement Shape and Describable")
	}
	if reg.Implements(types.MakeNamed("Square"), "Shape", nil) {
		t.Fatalf("Square does not implement Shape")
	}
	if !reg.Implements(types.MakeParam("T"), "Shape", traits.ParamEnv{"T": {"Shape"}}) {
		t.Fatalf("a parameter bounded by Shape implements Shape")
	}
	if reg.Implements(types.MakeVar(999), "Shape", nil) {
		t.Fatalf("an unsolved variable implements nothing yet")
	}
	if !reg.Implements(types.Error, "Shape", nil) {
		t.Fatalf("the error type satisfies every bound")
	}
}

func TestAssocTypeThroughGenericImpl(t *testing.T) {
	reg, _ := build(t, shapes)
	boxed := types.MakeApplied("Boxed", types.Int)
	got, ok := reg.AssocType(boxed, "Item", "Seq", nil)
	if !ok || !types.Equal(got, types.Int) {
		t.Fatalf("expected int, got %s (%v)", got, ok)
	}
	if got, ok := reg.AssocType(boxed, "Item", "", nil); !ok || !types.Equal(got, types.Int) {
		t.Fatalf("unqualified lookup: expected int, got %s (%v)", got, ok)
	}
	if _, ok := reg.AssocType(types.MakeNamed("Circle"), "Item", "Seq", nil); ok {
		t.Fatalf("Circle has no Seq impl")
	}
}

func TestTraitMethodSignatureUsesSelf(t *testing.T) {
	reg, _ := build(t, shapes)
	seq, _ := reg.Trait("Seq")
	m, ok := seq.Method("first")
	if !ok || !m.HasSelf || m.HasDefault {
		t.Fatalf("unexpected method %+v", m)
	}
	if m.Scheme.Vars[0] != seq.Self {
		t.Fatalf("Self must be the first quantified variable")
	}
	ret := m.Fn().Ret()
	if ret.Kind != types.KindProjection || ret.Trait != "Seq" {
		t.Fatalf("expected a Seq projection, got %s", ret)
	}
	if reg.VarCeiling() <= seq.Self {
		t.Fatalf("ceiling must be above registry variables")
	}
}

func TestDuplicateTraitAndType(t *testing.T) {
	_, bag := build(t, `
		modules:
		  - name: m
		    decls:
		      - trait: Show
		      - trait: Show
		      - type: Point
		      - type: Point
	`)
	codes := map[diag.Code]int{}
	for _, d := range bag.Items() {
		codes[d.Code]++
		if len(d.Notes) != 1 {
			t.Fatalf("%v should point at the first declaration", d.Code)
		}
	}
	if codes[diag.DuplicateTrait] != 1 || codes[diag.DuplicateDefinition] != 1 {
		t.Fatalf("unexpected diagnostics %v", codes)
	}
}

func TestCyclesAndSupertraits(t *testing.T) {
	reg, _ := build(t, `
		modules:
		  - name: m
		    decls:
		      - trait: A
		        supers: [B]
		      - trait: B
		        supers: [C]
		      - trait: C
		        supers: [A]
		      - trait: Base
		      - trait: Mid
		        supers: [Base]
		      - trait: Top
		        supers: [Mid, Base]
	`)
	for _, name := range []string{"A", "B", "C"} {
		if def, _ := reg.Trait(name); !def.Cyclic {
			t.Fatalf("%s should be marked cyclic", name)
		}
	}
	cycles := reg.Cycles()
	if len(cycles) != 1 || len(cycles[0]) != 3 {
		t.Fatalf("expected one cycle of three, got %v", cycles)
	}
	top, _ := reg.Trait("Top")
	if top.Cyclic {
		t.Fatalf("Top is not on a cycle")
	}
	supers := reg.Supertraits(top.ID)
	if len(supers) != 2 {
		t.Fatalf("expected Mid and Base once each, got %v", supers)
	}
	mid, _ := reg.Trait("Mid")
	base, _ := reg.Trait("Base")
	if !reg.IsSubtrait(top.ID, base.ID) || reg.IsSubtrait(base.ID, mid.ID) {
		t.Fatalf("subtrait relation is wrong")
	}
}

func TestHashIsStable(t *testing.T) {
	a, _ := build(t, shapes)
	b, _ := build(t, shapes)
	if a.Hash() != b.Hash() {
		t.Fatalf("identical units must hash identically")
	}
	c, _ := build(t, shapes+"      - type: Extra\n")
	if a.Hash() == c.Hash() {
		t.Fatalf("a new declaration must change the hash")
	}
}

func TestPreludeTypes(t *testing.T) {
	reg, _ := build(t, shapes)
	info, ok := reg.Type("Option")
	if !ok || info.Module != traits.StdModule || info.Arity != 1 {
		t.Fatalf("unexpected prelude entry %+v", info)
	}
	if reg.Owns(traits.StdModule) || !reg.Owns("geo") {
		t.Fatalf("ownership is wrong")
	}
}

func TestStructFields(t *testing.T) {
	reg, bag := build(t, `
		modules:
		  - name: m
		    decls:
		      - type: Pair
		        generics: [A, B]
		        fields: ["left: A", "right: B", "count: int", "left: str"]
		      - type: Wrapper
		        fields: ["inner: Pair<int, Later>"]
		      - type: Later
	`)
	if bag.Len() != 1 || bag.Items()[0].Code != diag.DuplicateDefinition {
		t.Fatalf("expected one duplicate field, got %v", bag.Items())
	}
	pair, _ := reg.Type("Pair")
	if !pair.Struct || len(pair.Vars) != 2 || len(pair.Fields) != 3 {
		t.Fatalf("unexpected pair entry %+v", pair)
	}
	left, ok := pair.Field("left")
	if !ok || !types.Equal(left.Type, types.MakeVar(pair.Vars[0])) {
		t.Fatalf("left should have the first parameter's type, got %s", left.Type)
	}
	if count, _ := pair.Field("count"); !types.Equal(count.Type, types.Int) {
		t.Fatalf("count = %s", count.Type)
	}
	wrapper, _ := reg.Type("Wrapper")
	inner, _ := wrapper.Field("inner")
	if inner.Type.IsError() || types.Head(inner.Type) != "Pair" {
		t.Fatalf("fields may name types declared later, got %s", inner.Type)
	}
	if later, _ := reg.Type("Later"); later.Struct {
		t.Fatalf("a type without fields is opaque")
	}

	plain, _ := build(t, `
		modules:
		  - name: m
		    decls:
		      - type: Pair
		        generics: [A, B]
		        fields: ["left: A", "right: B"]
	`)
	swapped, _ := build(t, `
		modules:
		  - name: m
		    decls:
		      - type: Pair
		        generics: [A, B]
		        fields: ["left: B", "right: A"]
	`)
	if plain.Hash() == swapped.Hash() {
		t.Fatalf("field types must change the hash")
	}
}
