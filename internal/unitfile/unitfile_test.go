package unitfile_test

import (
	"strings"
	"testing"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/source"
	"keel/internal/testkit"
	"keel/internal/unitfile"
)

const shapes = `
local: [geo]
modules:
  - name: geo
    decls:
      - trait: Shape
        assoc: [Unit]
        methods:
          - fn: area
            params: [self]
            returns: float
      - type: Circle
      - impl: Shape
        for: Circle
        assoc: {Unit: float}
        methods:
          - fn: area
            params: [self]
            returns: float
            body: 3.14
      - fn: total
        generics: ["T: Shape + Show"]
        params: ["xs: [T]"]
        returns: float
        body:
          let: s
          value: {method: area, recv: {call: first, args: [xs]}}
          in: s
  - name: std
    decls:
      - type: List
        generics: [T]
`

func TestParseDeclarations(t *testing.T) {
	unit, fs := testkit.Unit(t, shapes)
	if len(unit.Items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(unit.Items))
	}
	if err := testkit.CheckSpanInvariants(unit, fs.Get(0)); err != nil {
		t.Fatalf("span invariants: %v", err)
	}
	if !unit.OwnsModule(unit.Strings.Intern("geo")) || unit.OwnsModule(unit.Strings.Intern("std")) {
		t.Fatalf("local modules = %v", unit.Local)
	}

	traitID := testkit.Find(t, unit, "Shape")
	trait, ok := unit.Decls.Trait(traitID)
	if !ok || len(trait.Methods) != 1 || len(trait.Assoc) != 1 {
		t.Fatalf("unexpected trait payload %+v", trait)
	}
	if m, _ := unit.Decls.Fn(trait.Methods[0]); m.Body.IsValid() {
		t.Fatalf("required trait method should have no body")
	}

	implID := testkit.Find(t, unit, "Shape")
	for _, id := range unit.Items {
		if unit.Decls.Get(id).Kind == ast.DeclImpl {
			implID = id
		}
	}
	impl, ok := unit.Decls.Impl(implID)
	if !ok || len(impl.Assoc) != 1 || !impl.Target.IsValid() {
		t.Fatalf("unexpected impl payload %+v", impl)
	}

	fn, _ := unit.Decls.Fn(testkit.Find(t, unit, "total"))
	if len(fn.Generics) != 1 || len(fn.Generics[0].Bounds) != 2 {
		t.Fatalf("generics = %+v", fn.Generics)
	}
	content := fs.Get(0).Content
	b := fn.Generics[0].Bounds[1].Span
	if got := string(content[b.Start:b.End]); got != "Show" {
		t.Fatalf("bound span covers %q", got)
	}
	p := fn.Params[0].Span
	if got := string(content[p.Start:p.End]); got != "xs" {
		t.Fatalf("param span covers %q", got)
	}
	if te := unit.Types.Get(fn.Params[0].Type); te.Kind != ast.TypeExprList {
		t.Fatalf("param type kind = %v", te.Kind)
	}
	if _, ok := unit.Exprs.Let(fn.Body); !ok {
		t.Fatalf("body should be a let")
	}
}

func TestParseExpressions(t *testing.T) {
	unit, fs := testkit.Unit(t, `
		modules:
		  - name: main
		    decls:
		      - fn: main
		        body:
		          - 1
		          - 2.5
		          - true
		          - "hi"
		          - ~
		          - {char: "x"}
		          - {op: "+", args: [1, 2]}
		          - {op: "!", arg: false}
		          - {qualified: Show.show, args: [1]}
		          - {lambda: ["x: int", y], body: x}
		          - {if: true, then: 1, else: 2}
		          - {call: f, named: {width: 3}}
	`)
	fn, _ := unit.Decls.Fn(testkit.Find(t, unit, "main"))
	block, ok := unit.Exprs.Block(fn.Body)
	if !ok {
		t.Fatalf("body should be a block")
	}
	want := []ast.ExprKind{
		ast.ExprLit, ast.ExprLit, ast.ExprLit, ast.ExprLit, ast.ExprLit, ast.ExprLit,
		ast.ExprBinary, ast.ExprUnary, ast.ExprQualified, ast.ExprLambda, ast.ExprIf, ast.ExprCall,
	}
	if len(block.Items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(block.Items))
	}
	for i, id := range block.Items {
		if got := unit.Exprs.Get(id).Kind; got != want[i] {
			t.Fatalf("item %d: expected %v, got %v", i, want[i], got)
		}
	}
	lits := []ast.LitKind{ast.LitInt, ast.LitFloat, ast.LitBool, ast.LitStr, ast.LitUnit, ast.LitChar}
	for i, kind := range lits {
		lit, _ := unit.Exprs.Literal(block.Items[i])
		if lit.Kind != kind {
			t.Fatalf("literal %d: expected %v, got %v", i, kind, lit.Kind)
		}
	}
	q, _ := unit.Exprs.Qualified(block.Items[8])
	if unit.Name(q.Trait) != "Show" || unit.Name(q.Method) != "show" {
		t.Fatalf("qualified call = %s.%s", unit.Name(q.Trait), unit.Name(q.Method))
	}
	content := fs.Get(0).Content
	if got := string(content[q.MethodSpan.Start:q.MethodSpan.End]); got != "show" {
		t.Fatalf("method span covers %q", got)
	}
	call, _ := unit.Exprs.Call(block.Items[11])
	if len(call.Args) != 1 || unit.Name(call.Args[0].Name) != "width" {
		t.Fatalf("named args = %+v", call.Args)
	}
}

func TestMalformedUnitsReportDiagnostics(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"not a mapping", "- 1\n", "mapping"},
		{"unknown decl", "modules:\n  - name: m\n    decls:\n      - struct: X\n", "unknown declaration kind"},
		{"bad type", "modules:\n  - name: m\n    decls:\n      - fn: f\n        returns: \"[int\"\n", "invalid type"},
		{"param without type", "modules:\n  - name: m\n    decls:\n      - fn: f\n        params: [x]\n", "needs a type"},
		{"bad operator", "modules:\n  - name: m\n    decls:\n      - fn: f\n        body: {op: \"**\", args: [1, 2]}\n", "unknown operator"},
		{"syntax", "modules: [\n", "yaml:"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fs := source.NewFileSet()
			bag := diag.NewBag(0)
			unit := unitfile.ParseBytes(fs, "bad.yaml", []byte(tc.text), diag.BagReporter{Bag: bag})
			if unit == nil {
				t.Fatalf("expected a unit even on failure")
			}
			if bag.Len() == 0 {
				t.Fatalf("expected a diagnostic")
			}
			d := bag.Items()[0]
			if d.Code != diag.UnitMalformed {
				t.Fatalf("expected %v, got %v", diag.UnitMalformed, d.Code)
			}
			if !strings.Contains(d.Message, tc.want) {
				t.Fatalf("message %q does not mention %q", d.Message, tc.want)
			}
		})
	}
}

func TestLocalDefaultsToEveryModule(t *testing.T) {
	unit, _ := testkit.Unit(t, `
		modules:
		  - name: a
		  - name: b
	`)
	if len(unit.Local) != 2 {
		t.Fatalf("expected both modules local, got %d", len(unit.Local))
	}
}

func TestParseStructsFieldsAndMatches(t *testing.T) {
	unit, fs := testkit.Unit(t, `
		modules:
		  - name: main
		    decls:
		      - type: Point
		        fields: ["x: int", "y: int"]
		      - type: Unit
		        fields: []
		      - fn: main
		        params: ["o: Option<Point>"]
		        body:
		          match: o
		          arms:
		            - {case: "Some(Point)", then: {new: Point, fields: {x: 1, y: 2}}}
		            - {case: "Some(p)", then: {field: x, recv: p}}
		            - {case: 0, then: 0}
		            - {case: _, then: 0}
	`)
	if err := testkit.CheckSpanInvariants(unit, fs.Get(0)); err != nil {
		t.Fatalf("span invariants: %v", err)
	}
	point, _ := unit.Decls.Type(testkit.Find(t, unit, "Point"))
	if !point.Struct || len(point.Fields) != 2 || unit.Name(point.Fields[1].Name) != "y" {
		t.Fatalf("point fields = %+v", point.Fields)
	}
	empty, _ := unit.Decls.Type(testkit.Find(t, unit, "Unit"))
	if !empty.Struct || len(empty.Fields) != 0 {
		t.Fatalf("an empty field list still declares a struct: %+v", empty)
	}

	fn, _ := unit.Decls.Fn(testkit.Find(t, unit, "main"))
	m, ok := unit.Exprs.Match(fn.Body)
	if !ok || len(m.Arms) != 4 {
		t.Fatalf("body should be a four-arm match")
	}
	kinds := []ast.PatternKind{ast.PatCtor, ast.PatCtor, ast.PatLit, ast.PatWildcard}
	for i, arm := range m.Arms {
		if arm.Pattern.Kind != kinds[i] {
			t.Fatalf("arm %d: expected pattern kind %d, got %d", i, kinds[i], arm.Pattern.Kind)
		}
	}
	some := m.Arms[1].Pattern
	if len(some.Args) != 1 || some.Args[0].Kind != ast.PatBind || unit.Name(some.Args[0].Name) != "p" {
		t.Fatalf("Some(p) args = %+v", some.Args)
	}
	content := fs.Get(0).Content
	if got := string(content[some.Span.Start:some.Span.End]); got != "Some(p)" {
		t.Fatalf("pattern span covers %q", got)
	}
	if got := m.Arms[0].Pattern.Args[0]; got.Kind != ast.PatCtor || len(got.Args) != 0 {
		t.Fatalf("a capitalised name is a constructor: %+v", got)
	}

	lit, ok := unit.Exprs.Struct(m.Arms[0].Body)
	if !ok || unit.Name(lit.Type) != "Point" || len(lit.Fields) != 2 {
		t.Fatalf("struct literal = %+v", lit)
	}
	field, ok := unit.Exprs.Field(m.Arms[1].Body)
	if !ok || unit.Name(field.Name) != "x" {
		t.Fatalf("field access = %+v", field)
	}
}

func TestFlowSpansIncludeClosingBracket(t *testing.T) {
	unit, fs := testkit.Unit(t, `
		modules:
		  - name: main
		    decls:
		      - fn: main
		        body: {method: show, recv: {list: [1, 2]}, args: []}
	`)
	fn, _ := unit.Decls.Fn(testkit.Find(t, unit, "main"))
	content := fs.Get(0).Content
	sp := unit.Exprs.Get(fn.Body).Span
	if got := string(content[sp.Start:sp.End]); got != "{method: show, recv: {list: [1, 2]}, args: []}" {
		t.Fatalf("method call span covers %q", got)
	}
	m, _ := unit.Exprs.Method(fn.Body)
	if got, ok := unit.Text(unit.Exprs.Get(m.Receiver).Span); !ok || got != "{list: [1, 2]}" {
		t.Fatalf("receiver text = %q, %v", got, ok)
	}
}

func TestMalformedPatternsReportDiagnostics(t *testing.T) {
	fs := source.NewFileSet()
	bag := diag.NewBag(0)
	text := "modules:\n  - name: m\n    decls:\n      - fn: f\n        body: {match: 1, arms: [{case: \"Some(x\", then: 1}]}\n"
	unitfile.ParseBytes(fs, "bad.yaml", []byte(text), diag.BagReporter{Bag: bag})
	if bag.Len() == 0 {
		t.Fatalf("expected a diagnostic")
	}
	if d := bag.Items()[0]; d.Code != diag.UnitMalformed || !strings.Contains(d.Message, "invalid pattern") {
		t.Fatalf("unexpected diagnostic %v: %s", d.Code, d.Message)
	}
}
