package coherence_test

import (
	"strings"
	"testing"

	"keel/internal/coherence"
	"keel/internal/diag"
	"keel/internal/testkit"
	"keel/internal/traits"
)

func check(t *testing.T, text string) (coherence.Result, []diag.Diagnostic) {
	t.Helper()
	unit, _ := testkit.Unit(t, text)
	bag := diag.NewBag(0)
	b := traits.NewBuilder(unit, diag.BagReporter{Bag: bag}, traits.Options{})
	b.Register()
	reg := b.Freeze()
	if bag.Len() != 0 {
		t.Fatalf("registration reported %v", bag.Items())
	}
	res := coherence.Check(reg, diag.BagReporter{Bag: bag})
	bag.Sort()
	return res, bag.Items()
}

func codes(diags []diag.Diagnostic) []diag.Code {
	out := make([]diag.Code, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

func expectCodes(t *testing.T, diags []diag.Diagnostic, want ...diag.Code) {
	t.Helper()
	got := codes(diags)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v (%v)", want, got, diags)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v (%v)", want, got, diags)
		}
	}
}

func TestDuplicateImplConflicts(t *testing.T) {
	res, diags := check(t, `
		modules:
		  - name: m
		    decls:
		      - type: Point
		      - trait: Printable
		      - impl: Printable
		        for: Point
		      - impl: Printable
		        for: Point
	`)
	expectCodes(t, diags, diag.ConflictingImplementation)
	if len(diags[0].Notes) != 1 || res.Errors != 1 {
		t.Fatalf("conflict must name the first impl: %+v", diags[0])
	}
}

func TestDifferentRanksDoNotConflict(t *testing.T) {
	_, diags := check(t, `
		modules:
		  - name: m
		    decls:
		      - type: Circle
		      - trait: Shape
		      - trait: Describable
		      - impl: Shape
		        for: Circle
		      - impl: Describable
		        generics: ["T: Shape"]
		        for: T
		      - impl: Describable
		        for: Circle
	`)
	expectCodes(t, diags)
}

func TestDisjointTargetsDoNotConflict(t *testing.T) {
	_, diags := check(t, `
		modules:
		  - name: m
		    decls:
		      - trait: Show
		      - impl: Show
		        for: "[int]"
		      - impl: Show
		        for: "[str]"
	`)
	expectCodes(t, diags)
}

func TestOrphanRule(t *testing.T) {
	_, diags := check(t, `
		local: [app]
		modules:
		  - name: lib
		    decls:
		      - type: Foreign
		      - trait: ForeignTrait
		  - name: app
		    decls:
		      - type: Mine
		      - trait: MyTrait
		      - impl: ForeignTrait
		        for: Foreign
		      - impl: ForeignTrait
		        for: Mine
		      - impl: MyTrait
		        for: Foreign
		      - impl: ForeignTrait
		        for: int
	`)
	expectCodes(t, diags, diag.OrphanImplementation, diag.OrphanImplementation)
}

func TestInherentImplOnForeignTypeSuggestsExtend(t *testing.T) {
	unitText := `
		local: [app]
		modules:
		  - name: lib
		    decls:
		      - type: Foreign
		  - name: app
		    decls:
		      - impl: Foreign
		        methods:
		          - fn: helper
		            params: [self]
	`
	unit, fs := testkit.Unit(t, unitText)
	bag := diag.NewBag(0)
	b := traits.NewBuilder(unit, diag.BagReporter{Bag: bag}, traits.Options{})
	b.Register()
	coherence.Check(b.Freeze(), diag.BagReporter{Bag: bag})
	expectCodes(t, bag.Items(), diag.OrphanImplementation)
	d := bag.Items()[0]
	if len(d.Fixes) != 1 || len(d.Fixes[0].Edits) != 1 {
		t.Fatalf("expected one machine-applicable fix, got %+v", d.Fixes)
	}
	edit := d.Fixes[0].Edits[0]
	content := fs.Get(0).Content
	if got := string(content[edit.Span.Start:edit.Span.End]); got != "impl" || edit.NewText != "extend" {
		t.Fatalf("fix replaces %q with %q", got, edit.NewText)
	}
}

func TestInherentMethodClash(t *testing.T) {
	_, diags := check(t, `
		modules:
		  - name: m
		    decls:
		      - type: Point
		      - impl: Point
		        methods:
		          - fn: distance
		            params: [self]
		            returns: float
		      - impl: Point
		        methods:
		          - fn: distance
		            params: [self]
		            returns: float
		          - fn: norm
		            params: [self]
		            returns: float
	`)
	expectCodes(t, diags, diag.ConflictingImplementation)
	if len(diags[0].Notes) != 2 || !strings.Contains(diags[0].Message, "distance") {
		t.Fatalf("clash must name both sites: %+v", diags[0])
	}
}

func TestExtensionConflicts(t *testing.T) {
	_, diags := check(t, `
		modules:
		  - name: m
		    decls:
		      - extend: "[T]"
		        generics: [T]
		        methods:
		          - fn: sum
		            params: [self]
		            returns: int
		      - extend: "[int]"
		        methods:
		          - fn: sum
		            params: [self]
		            returns: int
		      - extend: "[str]"
		        methods:
		          - fn: joined
		            params: [self]
		            returns: str
	`)
	expectCodes(t, diags, diag.ConflictingExtension)
}

func TestImplCompleteness(t *testing.T) {
	_, diags := check(t, `
		modules:
		  - name: m
		    decls:
		      - type: Bag
		      - trait: Container
		        assoc: [Item]
		        methods:
		          - fn: size
		            params: [self]
		            returns: int
		          - fn: empty
		            params: [self]
		            returns: bool
		            body: false
		      - impl: Container
		        for: Bag
		        assoc: {Elem: int}
		        methods:
		          - fn: extra
		            params: [self]
		      - impl: Missing
		        for: Bag
	`)
	expectCodes(t, diags,
		diag.MissingAssociatedType,
		diag.MissingMethod,
		diag.UnknownAssociatedType,
		diag.UnknownImplMethod,
		diag.UnknownTrait,
	)
}

func TestSupertraitsMustBeImplemented(t *testing.T) {
	_, diags := check(t, `
		modules:
		  - name: m
		    decls:
		      - type: Circle
		      - trait: Shape
		      - trait: Solid
		        supers: [Shape, Ghost]
		      - impl: Solid
		        for: Circle
		      - impl: Solid
		        generics: ["T: Shape"]
		        for: "[T]"
	`)
	// T: Shape says nothing about [T]
	expectCodes(t, diags, diag.UnknownSupertrait, diag.MissingTraitBound, diag.MissingTraitBound)
}

func TestCyclicSupertraitsAreFatal(t *testing.T) {
	res, diags := check(t, `
		modules:
		  - name: m
		    decls:
		      - trait: A
		        supers: [B]
		      - trait: B
		        supers: [A]
	`)
	expectCodes(t, diags, diag.CyclicSupertraits)
	if !res.Fatal {
		t.Fatalf("a supertrait cycle must be fatal")
	}
	if !strings.Contains(diags[0].Message, "A -> B -> A") {
		t.Fatalf("message should trace the cycle: %s", diags[0].Message)
	}
}

func TestDiamondDefaults(t *testing.T) {
	_, diags := check(t, `
		modules:
		  - name: m
		    decls:
		      - trait: Left
		        methods:
		          - fn: greet
		            params: [self]
		            returns: str
		            body: "left"
		      - trait: Right
		        methods:
		          - fn: greet
		            params: [self]
		            returns: str
		            body: "right"
		      - trait: Both
		        supers: [Left, Right]
		      - trait: Resolved
		        supers: [Left, Right]
		        methods:
		          - fn: greet
		            params: [self]
		            returns: str
		            body: "mine"
		      - trait: Chain
		        supers: [Left]
		        methods:
		          - fn: greet
		            params: [self]
		            returns: str
		            body: "chain"
		      - trait: Over
		        supers: [Chain, Left]
	`)
	expectCodes(t, diags, diag.ConflictingDefault)
	d := diags[0]
	if !strings.Contains(d.Message, "`Left` and `Right`") || len(d.Notes) != 2 {
		t.Fatalf("diamond must name both sources: %+v", d)
	}
}

func TestDiamondFixInsertsOverride(t *testing.T) {
	const providers = `
		modules:
		  - name: m
		    decls:
		      - trait: Left
		        methods:
		          - fn: greet
		            params: [self]
		            returns: str
		            body: "left"
		      - trait: Right
		        methods:
		          - fn: greet
		            params: [self]
		            returns: str
		            body: "right"
	`
	cases := map[string]string{
		"no methods": `
		      - trait: Both
		        supers: [Left, Right]
		`,
		"after last method": `
		      - trait: Both
		        supers: [Left, Right]
		        methods:
		          - fn: wave
		            params: [self]
		`,
	}
	for name, both := range cases {
		t.Run(name, func(t *testing.T) {
			text := testkit.Dedent(providers) + "\n" + indentLike(testkit.Dedent(both), "      ")
			unit, fs := testkit.Unit(t, text)
			bag := diag.NewBag(0)
			b := traits.NewBuilder(unit, diag.BagReporter{Bag: bag}, traits.Options{})
			b.Register()
			coherence.Check(b.Freeze(), diag.BagReporter{Bag: bag})
			expectCodes(t, bag.Items(), diag.ConflictingDefault)
			fixes := bag.Items()[0].Fixes
			if len(fixes) != 1 || len(fixes[0].Edits) != 1 {
				t.Fatalf("expected one override edit, got %+v", fixes)
			}
			edit := fixes[0].Edits[0]
			if edit.Span.Start != edit.Span.End || !strings.Contains(edit.NewText, "- fn: greet") {
				t.Fatalf("edit should insert the method: %+v", edit)
			}
			content := string(fs.Get(0).Content)
			fixed := content[:edit.Span.Start] + edit.NewText + content[edit.Span.End:]
			if _, diags := check(t, fixed); len(diags) != 0 {
				t.Fatalf("fixed unit still reports %v\n%s", codes(diags), fixed)
			}
		})
	}
}

func indentLike(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
