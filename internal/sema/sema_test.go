package sema_test

import (
	"context"
	"strings"
	"testing"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/resolve"
	"keel/internal/sema"
	"keel/internal/testkit"
	"keel/internal/traits"
	"keel/internal/types"
)

type checked struct {
	unit    *ast.Unit
	reg     *traits.Registry
	globals *sema.Globals
	content []byte
}

func load(t *testing.T, text string) checked {
	t.Helper()
	unit, fs := testkit.Unit(t, text)
	bag := diag.NewBag(0)
	b := traits.NewBuilder(unit, diag.BagReporter{Bag: bag}, traits.Options{})
	b.Register()
	reg := b.Freeze()
	globals := sema.BuildGlobals(reg, diag.BagReporter{Bag: bag})
	if bag.Len() != 0 {
		t.Fatalf("setup reported %v", bag.Items())
	}
	return checked{unit: unit, reg: reg, globals: globals, content: fs.Get(0).Content}
}

func (c checked) body(t *testing.T, name string, opts sema.Options) *sema.BodyResult {
	t.Helper()
	for _, b := range c.globals.Bodies() {
		if b.Name != name {
			continue
		}
		res, err := sema.CheckBody(context.Background(), c.reg, c.globals, b.Decl, opts)
		if err != nil {
			t.Fatalf("check %s: %v", name, err)
		}
		return res
	}
	t.Fatalf("no body named %q", name)
	return nil
}

// typeOf returns the type of the first expression of the given kind.
func (c checked) typeOf(t *testing.T, res *sema.BodyResult, kind ast.ExprKind) types.Type {
	t.Helper()
	for i := uint32(1); i <= c.unit.Exprs.Len(); i++ {
		id := ast.ExprID(i)
		if c.unit.Exprs.Get(id).Kind != kind {
			continue
		}
		if ty, ok := res.ExprTypes[id]; ok {
			return ty
		}
	}
	t.Fatalf("no %v expression was typed", kind)
	return types.Type{}
}

func codes(diags []diag.Diagnostic) []diag.Code {
	out := make([]diag.Code, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

func expectCodes(t *testing.T, res *sema.BodyResult, want ...diag.Code) {
	t.Helper()
	got := codes(res.Diags)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v (%v)", want, got, res.Diags)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v (%v)", want, got, res.Diags)
		}
	}
}

func TestReturnTypeFromGenericCall(t *testing.T) {
	c := load(t, `
		modules:
		  - name: main
		    decls:
		      - fn: first
		        generics: [T]
		        params: ["items: [T]"]
		        returns: Option<T>
		      - fn: main
		        body:
		          - {let: head, value: {call: first, named: {items: {list: [1, 2, 3]}}}}
		          - ~
	`)
	res := c.body(t, "main", sema.Options{})
	expectCodes(t, res)
	if got := c.typeOf(t, res, ast.ExprCall); got.String() != "Option<int>" {
		t.Fatalf("expected Option<int>, got %s", got)
	}
	if got := c.typeOf(t, res, ast.ExprList); got.String() != "[int]" {
		t.Fatalf("expected a list of int, got %s", got)
	}
}

func TestLetPolymorphism(t *testing.T) {
	c := load(t, `
		modules:
		  - name: main
		    decls:
		      - fn: main
		        returns: (int, str)
		        body:
		          let: id
		          value: {lambda: [x], body: x}
		          in: {tuple: [{call: id, args: [1]}, {call: id, args: ["a"]}]}
	`)
	res := c.body(t, "main", sema.Options{})
	expectCodes(t, res)
	lambda := c.typeOf(t, res, ast.ExprLambda)
	if lambda.Kind != types.KindFn || lambda.Args[0].Kind != types.KindParam || !types.Equal(lambda.Args[0], lambda.Ret()) {
		t.Fatalf("expected the lambda to be generalized, got %s", lambda)
	}
	if got := c.typeOf(t, res, ast.ExprTuple); got.String() != "(int, str)" {
		t.Fatalf("expected (int, str), got %s", got)
	}
}

func TestErrorsStayLocal(t *testing.T) {
	c := load(t, `
		modules:
		  - name: main
		    decls:
		      - fn: take
		        params: ["n: int"]
		        returns: int
		      - fn: main
		        body:
		          - {call: take, args: ["one"]}
		          - {call: missing, args: [1]}
		          - {op: "+", args: [1, 2]}
		          - {call: take, args: [true]}
		          - ~
	`)
	res := c.body(t, "main", sema.Options{})
	expectCodes(t, res, diag.TypeMismatch, diag.UnboundIdentifier, diag.TypeMismatch)
	if got := c.typeOf(t, res, ast.ExprBinary); !types.Equal(got, types.Int) {
		t.Fatalf("the sum between two failures should still be int, got %s", got)
	}
	if !res.HasErrors() {
		t.Fatalf("expected HasErrors")
	}
}

func TestFailFastStopsAtFirstError(t *testing.T) {
	c := load(t, `
		modules:
		  - name: main
		    decls:
		      - fn: main
		        body:
		          - {call: missing}
		          - {call: other}
	`)
	res := c.body(t, "main", sema.Options{FailFast: true})
	expectCodes(t, res, diag.UnboundIdentifier)
}

const shapes = `
modules:
  - name: main
    decls:
      - type: Circle
      - trait: Show
        methods:
          - fn: show
            params: [self]
            returns: str
      - trait: Describe
        methods:
          - fn: show
            params: [self]
            returns: str
      - impl: Show
        for: Circle
        methods:
          - fn: show
            params: [self]
            returns: str
            body: "circle"
      - impl: Show
        for: int
        methods:
          - fn: show
            params: [self]
            returns: str
            body: "int"
      - impl: Describe
        for: Circle
        methods:
          - fn: show
            params: [self]
            returns: str
            body: "a circle"
      - fn: circle
        returns: Circle
      - fn: one
        returns: str
        body: {method: show, recv: 1}
      - fn: two
        returns: str
        body: {method: show, recv: {call: circle}}
      - fn: three
        returns: str
        body: {qualified: Describe.show, args: [{call: circle}]}
      - fn: render
        generics: [T]
        params: ["x: T"]
        returns: str
        body: {method: show, recv: x}
      - fn: bounded
        generics: ["T: Show"]
        params: ["x: T"]
        returns: str
        body: {method: show, recv: x}
`

func TestMethodCallSelectsImpl(t *testing.T) {
	c := load(t, shapes)
	res := c.body(t, "one", sema.Options{})
	expectCodes(t, res)
	if len(res.Methods) != 1 {
		t.Fatalf("expected one selection, got %v", res.Methods)
	}
	for _, sel := range res.Methods {
		impl := c.reg.Impl(sel.Impl)
		if impl == nil || impl.Target.String() != "int" || sel.Method != "show" {
			t.Fatalf("unexpected selection %+v", sel)
		}
	}

	res = c.body(t, "bounded", sema.Options{})
	expectCodes(t, res)
	for _, sel := range res.Methods {
		if sel.Kind != resolve.KindBound {
			t.Fatalf("expected dispatch through the bound, got %v", sel.Kind)
		}
	}
}

func TestAmbiguousMethodSuggestsQualifiedCalls(t *testing.T) {
	c := load(t, shapes)
	res := c.body(t, "two", sema.Options{})
	expectCodes(t, res, diag.AmbiguousMethod)
	d := res.Diags[0]
	if len(d.Notes) != 2 {
		t.Fatalf("expected a note per candidate, got %v", d.Notes)
	}
	var titles []string
	for _, f := range d.Fixes {
		titles = append(titles, f.Title)
	}
	joined := strings.Join(titles, "\n")
	if !strings.Contains(joined, "Show.show(") || !strings.Contains(joined, "Describe.show(") {
		t.Fatalf("expected qualified suggestions, got %q", joined)
	}
	for _, f := range d.Fixes {
		if len(f.Edits) != 1 {
			t.Fatalf("fix %q should carry an edit", f.Title)
		}
	}
	edit := d.Fixes[0].Edits[0]
	if got := string(c.content[edit.Span.Start:edit.Span.End]); got != "{method: show, recv: {call: circle}}" {
		t.Fatalf("the edit should replace the call, covers %q", got)
	}
	if !strings.HasPrefix(edit.NewText, "{qualified: ") || !strings.HasSuffix(edit.NewText, ".show, args: [{call: circle}]}") {
		t.Fatalf("unexpected replacement %q", edit.NewText)
	}
	text := string(c.content)
	fixed := load(t, text[:edit.Span.Start]+edit.NewText+text[edit.Span.End:])
	expectCodes(t, fixed.body(t, "two", sema.Options{}))

	res = c.body(t, "three", sema.Options{})
	expectCodes(t, res)
}

func TestMissingBoundOffersFix(t *testing.T) {
	c := load(t, shapes)
	res := c.body(t, "render", sema.Options{})
	expectCodes(t, res, diag.MissingTraitBound)
	d := res.Diags[0]
	if !strings.Contains(d.Message, "`T: Show`") || !strings.Contains(d.Message, "`T: Describe`") {
		t.Fatalf("message should name every declaring trait: %s", d.Message)
	}
	if len(d.Fixes) != 2 || len(d.Notes) != 2 {
		t.Fatalf("expected a fix and a note per trait, got %+v / %+v", d.Fixes, d.Notes)
	}
	var bounds []string
	for _, f := range d.Fixes {
		if len(f.Edits) != 1 {
			t.Fatalf("expected a bound edit in %+v", f)
		}
		edit := f.Edits[0]
		if got := string(c.content[edit.Span.Start-1 : edit.Span.Start]); got != "T" {
			t.Fatalf("the bound should be inserted after the parameter name, found %q", got)
		}
		bounds = append(bounds, edit.NewText)
	}
	if strings.Join(bounds, " ") != ": Show : Describe" {
		t.Fatalf("unexpected bounds %q", bounds)
	}
}

func TestUnresolvedTypeNeedsAnnotation(t *testing.T) {
	c := load(t, `
		modules:
		  - name: main
		    decls:
		      - fn: main
		        body:
		          - {let: f, value: {lambda: [x], body: x}}
		          - {call: {lambda: [x], body: 1}, args: [{list: []}]}
		          - ~
	`)
	res := c.body(t, "main", sema.Options{})
	expectCodes(t, res, diag.TypeAnnotationsNeeded)
	if !strings.Contains(res.Diags[0].Message, "_") {
		t.Fatalf("expected placeholders in %q", res.Diags[0].Message)
	}
	for id, ty := range res.ExprTypes {
		if types.Contains(ty, types.KindVar) {
			t.Fatalf("expression %d kept an open type %s", id, ty)
		}
	}
}

func TestArgumentBinding(t *testing.T) {
	c := load(t, `
		modules:
		  - name: main
		    decls:
		      - fn: area
		        params: ["width: int", "height: int"]
		        returns: int
		      - fn: good
		        returns: int
		        body: {call: area, args: [2], named: {height: 3}}
		      - fn: short
		        returns: int
		        body: {call: area, args: [2]}
		      - fn: unknown
		        returns: int
		        body: {call: area, args: [2], named: {depth: 3}}
		      - fn: twice
		        returns: int
		        body: {call: area, args: [2, 3], named: {width: 3}}
		      - fn: value
		        body: {call: 1}
	`)
	expectCodes(t, c.body(t, "good", sema.Options{}))
	expectCodes(t, c.body(t, "short", sema.Options{}), diag.ArgCountMismatch)
	expectCodes(t, c.body(t, "unknown", sema.Options{}), diag.BadNamedArgument)
	expectCodes(t, c.body(t, "twice", sema.Options{}), diag.BadNamedArgument)
	expectCodes(t, c.body(t, "value", sema.Options{}), diag.NotCallable)
}

func TestLiteralsAndOperators(t *testing.T) {
	c := load(t, `
		modules:
		  - name: main
		    decls:
		      - fn: timeout
		        returns: Duration
		        body: {op: "*", args: [{duration: 30s}, 2]}
		      - fn: bad_duration
		        body: {duration: 30x}
		      - fn: bad_byte
		        body: {byte: "300"}
		      - fn: wide_char
		        body: {char: "ab"}
		      - fn: mixed
		        body: {op: "+", args: [1, "a"]}
		      - fn: strings
		        returns: str
		        body: {op: "+", args: ["a", "b"]}
		      - fn: compare
		        returns: bool
		        body: {op: "<", args: [true, false]}
		      - fn: negate
		        body: {op: "-", arg: "a"}
	`)
	expectCodes(t, c.body(t, "timeout", sema.Options{}))
	expectCodes(t, c.body(t, "bad_duration", sema.Options{}), diag.InvalidLiteral)
	expectCodes(t, c.body(t, "bad_byte", sema.Options{}), diag.InvalidLiteral)
	expectCodes(t, c.body(t, "wide_char", sema.Options{}), diag.InvalidLiteral)
	expectCodes(t, c.body(t, "mixed", sema.Options{}), diag.TypeMismatch)
	expectCodes(t, c.body(t, "strings", sema.Options{}))
	expectCodes(t, c.body(t, "compare", sema.Options{}), diag.InvalidOperands)
	expectCodes(t, c.body(t, "negate", sema.Options{}), diag.InvalidOperands)
}

func TestNeverBranchAdoptsOther(t *testing.T) {
	c := load(t, `
		modules:
		  - name: main
		    decls:
		      - fn: fail
		        params: ["msg: str"]
		        returns: Never
		      - fn: main
		        params: ["ok: bool"]
		        returns: int
		        body: {if: ok, then: {call: fail, args: ["no"]}, else: 1}
	`)
	res := c.body(t, "main", sema.Options{})
	expectCodes(t, res)
	if got := c.typeOf(t, res, ast.ExprIf); !types.Equal(got, types.Int) {
		t.Fatalf("expected int, got %s", got)
	}
}

func TestCancelledContext(t *testing.T) {
	c := load(t, `
		modules:
		  - name: main
		    decls:
		      - fn: main
		        body: {call: missing}
	`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var decl ast.DeclID
	for _, b := range c.globals.Bodies() {
		decl = b.Decl
	}
	res, err := sema.CheckBody(ctx, c.reg, c.globals, decl, sema.Options{})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.Cancelled || len(res.Diags) != 0 {
		t.Fatalf("expected a silent cancelled result, got %+v", res)
	}
}

func TestDuplicateFunction(t *testing.T) {
	unit, _ := testkit.Unit(t, `
		modules:
		  - name: main
		    decls:
		      - fn: f
		        body: 1
		      - fn: f
		        body: 2
	`)
	bag := diag.NewBag(0)
	b := traits.NewBuilder(unit, diag.BagReporter{Bag: bag}, traits.Options{})
	b.Register()
	globals := sema.BuildGlobals(b.Freeze(), diag.BagReporter{Bag: bag})
	if bag.Len() != 1 || bag.Items()[0].Code != diag.DuplicateDefinition {
		t.Fatalf("expected one E0428, got %v", bag.Items())
	}
	if len(globals.Bodies()) != 1 {
		t.Fatalf("expected the duplicate body to be dropped, got %d", len(globals.Bodies()))
	}
	if _, ok := globals.Lookup("Some"); !ok {
		t.Fatalf("prelude should be installed")
	}
}

func TestInherentMethodBesideCyclicTrait(t *testing.T) {
	c := load(t, `
		modules:
		  - name: main
		    decls:
		      - type: P
		      - impl: P
		        methods:
		          - fn: go
		            params: [self]
		            returns: int
		            body: 1
		      - trait: A
		        supers: [B]
		        methods:
		          - fn: go
		            params: [self]
		            returns: int
		      - trait: B
		        supers: [A]
		      - fn: main
		        params: ["p: P"]
		        returns: int
		        body: {method: go, recv: p}
	`)
	res := c.body(t, "main", sema.Options{})
	expectCodes(t, res)
	if got := c.typeOf(t, res, ast.ExprMethod); !types.Equal(got, types.Int) {
		t.Fatalf("expected the inherent method to type as int, got %s", got)
	}
	for _, sel := range res.Methods {
		if sel.Kind != resolve.KindInherent {
			t.Fatalf("expected inherent dispatch, got %v", sel.Kind)
		}
	}
}

func TestPendingProjectionIsAmbiguous(t *testing.T) {
	c := load(t, `
		modules:
		  - name: main
		    decls:
		      - trait: Seq
		        assoc: [Item]
		      - fn: pick
		        generics: ["T: Seq"]
		        params: ["x: T.Item"]
		      - fn: main
		        body: {call: pick, args: [1]}
	`)
	res := c.body(t, "main", sema.Options{})
	expectCodes(t, res, diag.AmbiguousAssociatedType)
	msg := res.Diags[0].Message
	if !strings.Contains(msg, "`Item` of `_`") || strings.Contains(msg, "?") {
		t.Fatalf("unknown receivers should render as placeholders: %s", msg)
	}
}

func TestExpressionDepthCeiling(t *testing.T) {
	c := load(t, `
		modules:
		  - name: main
		    decls:
		      - fn: main
		        returns: int
		        body: {op: "-", arg: {op: "-", arg: {op: "-", arg: {op: "-", arg: {op: "-", arg: 1}}}}}
	`)
	res := c.body(t, "main", sema.Options{MaxDepth: 3})
	expectCodes(t, res, diag.RecursionLimit)
	if !strings.Contains(res.Diags[0].Message, "deeper than 3") {
		t.Fatalf("unexpected message %q", res.Diags[0].Message)
	}
	expectCodes(t, c.body(t, "main", sema.Options{}))
}

const records = `
modules:
  - name: main
    decls:
      - type: Point
        fields: ["x: int", "y: int"]
      - type: Pair
        generics: [A, B]
        fields: ["left: A", "right: B"]
      - type: Handle
      - fn: get_x
        params: ["p: Point"]
        returns: int
        body: {field: x, recv: {new: Point, fields: {x: 0, y: 0}}}
      - fn: right
        returns: str
        body: {field: right, recv: {new: Pair, fields: {left: 1, right: "r"}}}
      - fn: extra
        returns: Point
        body: {new: Point, fields: {x: 0, y: 0, z: 0}}
      - fn: short
        returns: Point
        body: {new: Point, fields: {x: 0}}
      - fn: opaque
        body: {new: Handle}
      - fn: read_z
        params: ["p: Point"]
        body: {field: z, recv: p}
      - fn: read_int
        body: {field: x, recv: 1}
      - fn: mistyped
        returns: Point
        body: {new: Point, fields: {x: "a", y: 0}}
`

func TestStructLiteralsAndFields(t *testing.T) {
	c := load(t, records)

	res := c.body(t, "get_x", sema.Options{})
	expectCodes(t, res)
	if got := c.typeOf(t, res, ast.ExprStruct); got.String() != "Point" {
		t.Fatalf("expected Point, got %s", got)
	}

	res = c.body(t, "right", sema.Options{})
	expectCodes(t, res)
	if got := c.typeOf(t, res, ast.ExprStruct); got.String() != "Pair<int, str>" {
		t.Fatalf("expected the field values to solve the type arguments, got %s", got)
	}
	if got := c.typeOf(t, res, ast.ExprField); !types.Equal(got, types.Str) {
		t.Fatalf("expected str, got %s", got)
	}

	res = c.body(t, "extra", sema.Options{})
	expectCodes(t, res, diag.UnknownField)
	if len(res.Diags[0].Notes) != 1 || !strings.Contains(res.Diags[0].Notes[0].Msg, "`x`, `y`") {
		t.Fatalf("expected the available fields in a note, got %+v", res.Diags[0].Notes)
	}

	res = c.body(t, "short", sema.Options{})
	expectCodes(t, res, diag.MissingField)
	if !strings.Contains(res.Diags[0].Message, "missing field `y`") {
		t.Fatalf("unexpected message %q", res.Diags[0].Message)
	}

	expectCodes(t, c.body(t, "opaque", sema.Options{}), diag.NotAStruct)
	expectCodes(t, c.body(t, "read_z", sema.Options{}), diag.UnknownField)
	expectCodes(t, c.body(t, "read_int", sema.Options{}), diag.NotAStruct)
	expectCodes(t, c.body(t, "mistyped", sema.Options{}), diag.TypeMismatch)
}

const options = `
modules:
  - name: main
    decls:
      - fn: unwrap_or
        params: ["o: Option<int>", "d: int"]
        returns: int
        body:
          match: o
          arms:
            - {case: "Some(n)", then: n}
            - {case: None, then: d}
      - fn: partial
        params: ["o: Option<int>"]
        returns: int
        body: {match: o, arms: [{case: "Some(n)", then: n}]}
      - fn: nested
        params: ["r: Result<Option<int>, str>"]
        returns: int
        body:
          match: r
          arms:
            - {case: "Ok(Some(n))", then: n}
            - {case: "Err(_)", then: 0}
      - fn: flags
        params: ["b: bool"]
        returns: int
        body: {match: b, arms: [{case: true, then: 1}, {case: false, then: 0}]}
      - fn: half
        params: ["b: bool"]
        returns: int
        body: {match: b, arms: [{case: true, then: 1}]}
      - fn: wrong_type
        params: ["n: int"]
        returns: int
        body: {match: n, arms: [{case: "Some(m)", then: m}, {case: _, then: 0}]}
      - fn: unknown_ctor
        params: ["o: Option<int>"]
        returns: int
        body: {match: o, arms: [{case: "Point(x)", then: 0}, {case: _, then: 1}]}
      - fn: arity
        params: ["o: Option<int>"]
        returns: int
        body: {match: o, arms: [{case: "None(x)", then: 0}, {case: _, then: 1}]}
`

func TestMatchOverPreludeVariants(t *testing.T) {
	c := load(t, options)

	res := c.body(t, "unwrap_or", sema.Options{})
	expectCodes(t, res)
	if got := c.typeOf(t, res, ast.ExprMatch); !types.Equal(got, types.Int) {
		t.Fatalf("expected int, got %s", got)
	}
	expectCodes(t, c.body(t, "flags", sema.Options{}))

	witnesses := map[string]string{
		"partial": "`None` not covered",
		"nested":  "`Ok(None)` not covered",
		"half":    "`false` not covered",
	}
	for name, want := range witnesses {
		res := c.body(t, name, sema.Options{})
		expectCodes(t, res, diag.NonExhaustiveMatch)
		if !strings.Contains(res.Diags[0].Message, want) {
			t.Fatalf("%s: expected %q in %q", name, want, res.Diags[0].Message)
		}
	}

	for _, name := range []string{"wrong_type", "unknown_ctor", "arity"} {
		expectCodes(t, c.body(t, name, sema.Options{}), diag.BadPattern)
	}
}
