package sema

import (
	"fmt"
	"strings"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/scheme"
	"keel/internal/source"
	"keel/internal/types"
)

// constructor is a prelude variant usable in patterns. payload picks the
// argument of the owning type carried by the variant; -1 means none.
type constructor struct {
	owner   string
	arity   int
	payload int
}

func (c constructor) fields() int {
	if c.payload < 0 {
		return 0
	}
	return 1
}

var constructors = map[string]constructor{
	"Some": {owner: types.OptionName, arity: 1, payload: 0},
	"None": {owner: types.OptionName, arity: 1, payload: -1},
	"Ok":   {owner: types.ResultName, arity: 2, payload: 0},
	"Err":  {owner: types.ResultName, arity: 2, payload: 1},
}

// typeMatch checks every arm against the scrutinee and joins the arm types
// the way typeIf joins branches: arms of type Never adopt the others.
func (tc *typeChecker) typeMatch(sp source.Span, data *ast.ExprMatchData, want types.Type) types.Type {
	scrutinee := tc.typeExpr(data.Scrutinee, noType)

	armWant := want
	result := noType
	for _, arm := range data.Arms {
		saved := tc.env
		tc.bindPattern(&arm.Pattern, scrutinee)
		t := tc.typeExpr(arm.Body, armWant)
		tc.env = saved
		if t.IsError() || tc.subst.Resolve(t).IsNever() {
			continue
		}
		if !hasWant(result) {
			result = t
		}
		if !hasWant(armWant) {
			armWant = t
		}
	}

	if s := tc.unifier.Normalize(scrutinee); !s.IsError() {
		pats := make([]*ast.Pattern, len(data.Arms))
		for i := range data.Arms {
			pats[i] = &data.Arms[i].Pattern
		}
		if missing := tc.uncovered(pats, s, 0); missing != "" {
			tc.report(diag.NonExhaustiveMatch, tc.exprSpan(data.Scrutinee),
				"non-exhaustive patterns: `%s` not covered", missing)
		}
	}

	switch {
	case hasWant(result):
		return result
	case hasWant(want):
		return want
	}
	for _, arm := range data.Arms {
		if !tc.subst.Resolve(tc.result.ExprTypes[arm.Body]).IsNever() {
			return types.Error
		}
	}
	return types.Never
}

// bindPattern checks p against t and extends the environment with the
// names p binds. A pattern that does not fit binds its names to the error
// type so the arm body is still checked.
func (tc *typeChecker) bindPattern(p *ast.Pattern, t types.Type) {
	switch p.Kind {
	case ast.PatWildcard:
	case ast.PatBind:
		tc.env = tc.env.Extend(tc.unit.Name(p.Name), scheme.Mono(t))
	case ast.PatLit:
		lit := tc.typeLiteral(p.Span, &ast.ExprLitData{Kind: p.Lit, Value: p.Value})
		if !lit.IsError() {
			tc.fitPattern(p, t, lit)
		}
	case ast.PatCtor:
		name := tc.unit.Name(p.Name)
		ctor, ok := constructors[name]
		switch {
		case !ok:
			tc.report(diag.BadPattern, p.Span, "cannot find constructor `%s` for a pattern", name)
			tc.poisonBinders(p)
			return
		case len(p.Args) != ctor.fields():
			tc.report(diag.BadPattern, p.Span, "`%s` takes %d argument(s) in a pattern, found %d", name, ctor.fields(), len(p.Args))
			tc.poisonBinders(p)
			return
		}
		args := make([]types.Type, ctor.arity)
		for i := range args {
			args[i] = tc.fresh.Var()
		}
		if !tc.fitPattern(p, t, types.MakeApplied(ctor.owner, args...)) {
			tc.poisonBinders(p)
			return
		}
		if ctor.payload >= 0 {
			tc.bindPattern(&p.Args[0], args[ctor.payload])
		}
	}
}

func (tc *typeChecker) fitPattern(p *ast.Pattern, scrutinee, pattern types.Type) bool {
	tc.unifier.Origin = p.Span
	if err := tc.unifier.Unify(scrutinee, pattern); err != nil {
		tc.report(diag.BadPattern, p.Span, "pattern `%s` cannot match a value of type `%s`",
			tc.patternText(p), tc.label(scrutinee))
		return false
	}
	return true
}

func (tc *typeChecker) poisonBinders(p *ast.Pattern) {
	p.Binders(func(name source.StringID, _ source.Span) {
		tc.env = tc.env.Extend(tc.unit.Name(name), scheme.Mono(types.Error))
	})
}

// uncovered returns a value shape none of pats matches, or "" when pats are
// exhaustive for t. Every prelude constructor carries at most one payload,
// so coverage splits per constructor without a full usefulness matrix.
func (tc *typeChecker) uncovered(pats []*ast.Pattern, t types.Type, depth int) string {
	for _, p := range pats {
		if p.Irrefutable() {
			return ""
		}
	}
	if depth > tc.maxDepth {
		return ""
	}
	t = tc.unifier.Normalize(t)
	switch {
	case types.Equal(t, types.Bool):
		for _, want := range []string{"true", "false"} {
			if !tc.hasLiteral(pats, want) {
				return want
			}
		}
		return ""
	case t.Kind == types.KindApplied && (t.Name == types.OptionName || t.Name == types.ResultName):
		variants := []string{"Some", "None"}
		if t.Name == types.ResultName {
			variants = []string{"Ok", "Err"}
		}
		for _, v := range variants {
			ctor := constructors[v]
			var sub []*ast.Pattern
			seen := false
			for _, p := range pats {
				if p.Kind == ast.PatCtor && tc.unit.Name(p.Name) == v {
					seen = true
					if len(p.Args) == 1 {
						sub = append(sub, &p.Args[0])
					}
				}
			}
			if ctor.payload < 0 {
				if !seen {
					return v
				}
				continue
			}
			if ctor.payload >= len(t.Args) {
				continue
			}
			if w := tc.uncovered(sub, t.Args[ctor.payload], depth+1); w != "" {
				return v + "(" + w + ")"
			}
		}
		return ""
	}
	return "_"
}

func (tc *typeChecker) hasLiteral(pats []*ast.Pattern, value string) bool {
	for _, p := range pats {
		if p.Kind == ast.PatLit && p.Lit == ast.LitBool && tc.unit.Name(p.Value) == value {
			return true
		}
	}
	return false
}

func (tc *typeChecker) patternText(p *ast.Pattern) string {
	switch p.Kind {
	case ast.PatWildcard:
		return "_"
	case ast.PatBind:
		return tc.unit.Name(p.Name)
	case ast.PatLit:
		if p.Lit == ast.LitStr {
			return fmt.Sprintf("%q", tc.unit.Name(p.Value))
		}
		return tc.unit.Name(p.Value)
	}
	if len(p.Args) == 0 {
		return tc.unit.Name(p.Name)
	}
	args := make([]string, len(p.Args))
	for i := range p.Args {
		args[i] = tc.patternText(&p.Args[i])
	}
	return tc.unit.Name(p.Name) + "(" + strings.Join(args, ", ") + ")"
}
