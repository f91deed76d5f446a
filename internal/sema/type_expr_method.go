package sema

import (
	"errors"
	"fmt"
	"strings"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/resolve"
	"keel/internal/source"
	"keel/internal/types"
)

func selectionOf(c resolve.Candidate) Selection {
	s := Selection{Kind: c.Kind, Impl: c.Impl, Trait: c.Trait, Ext: c.Ext}
	if c.Method != nil {
		s.Method = c.Method.Name
	}
	return s
}

// typeMethodCall resolves recv.method through the registry, then checks the
// call against the chosen signature with the receiver bound to self.
func (tc *typeChecker) typeMethodCall(id ast.ExprID, sp source.Span, m *ast.ExprMethodData, want types.Type) types.Type {
	recv := tc.unifier.Normalize(tc.typeExpr(m.Receiver, noType))
	name := tc.unit.Name(m.Method)
	if recv.IsError() {
		tc.typeArgsLoose(m.Args)
		return types.Error
	}
	cand, err := tc.resolver.Lookup(recv, name)
	if err != nil {
		tc.reportResolve(err, m.MethodSpan, m.Receiver, id)
		tc.typeArgsLoose(m.Args)
		return types.Error
	}
	tc.result.Methods[id] = selectionOf(cand)
	if !cand.Method.HasSelf {
		tc.report(diag.UnknownMethod, m.MethodSpan, "`%s` is an associated function of `%s`, not a method", name, tc.label(recv))
		tc.typeArgsLoose(m.Args)
		return types.Error
	}
	fn := tc.instantiate(cand.Method.Scheme, sp)
	return tc.applyMethod(sp, name, fn, cand.Method.ParamNames, recv, tc.exprSpan(m.Receiver), m.Args, want)
}

// typeQualified checks Trait.method(recv, args...). The trait's signature
// types the call even while the receiver is unknown; the Self bound stays
// an obligation until the end of the body.
func (tc *typeChecker) typeQualified(id ast.ExprID, sp source.Span, q *ast.ExprQualifiedData, want types.Type) types.Type {
	traitName, name := tc.unit.Name(q.Trait), tc.unit.Name(q.Method)
	if len(q.Args) == 0 {
		tc.report(diag.ArgCountMismatch, sp, "`%s.%s` needs the receiver as its first argument", traitName, name)
		return types.Error
	}
	first := q.Args[0]
	recv := tc.unifier.Normalize(tc.typeExpr(first.Value, noType))
	cand, err := tc.resolver.ImplFor(traitName, name, recv)
	if err != nil {
		tc.reportResolve(err, q.MethodSpan, first.Value, ast.NoExprID)
		tc.typeArgsLoose(q.Args[1:])
		return types.Error
	}
	tc.result.Methods[id] = selectionOf(cand)
	fn := tc.instantiate(cand.Method.Scheme, sp)
	return tc.applyMethod(sp, traitName+"."+name, fn, cand.Method.ParamNames, recv, first.Span, q.Args[1:], want)
}

// applyMethod unifies the first parameter with the receiver and checks the
// remaining arguments like an ordinary call.
func (tc *typeChecker) applyMethod(sp source.Span, label string, fn types.Type, names []string, recv types.Type, recvSpan source.Span, args []ast.CallArg, want types.Type) types.Type {
	if len(fn.Args) == 0 {
		tc.report(diag.ArgCountMismatch, sp, "`%s` takes no receiver", label)
		tc.typeArgsLoose(args)
		return types.Error
	}
	if tc.expect(fn.Args[0], recv, recvSpan).IsError() && !recv.IsError() {
		tc.typeArgsLoose(args)
		return types.Error
	}
	rest := types.MakeFn(fn.Args[1:], fn.Ret())
	target := callee{label: "`" + label + "`"}
	if len(names) > 0 {
		target.names = names[1:]
	}
	return tc.applyCall(sp, target, rest, args, want)
}

// reportResolve maps a resolution failure to its diagnostic. Lookups that
// hinge on a cyclic trait were reported with the cycle and stay silent here.
// call is the method call expression when there is one to rewrite.
func (tc *typeChecker) reportResolve(err error, sp source.Span, recvExpr, call ast.ExprID) {
	if errors.Is(err, resolve.ErrCyclic) {
		return
	}
	var (
		unresolved *resolve.UnresolvedReceiverError
		ambiguous  *resolve.AmbiguousError
		missing    *resolve.MissingBoundError
		unknown    *resolve.UnknownMethodError
		noTrait    *resolve.UnknownTraitError
	)
	switch {
	case errors.As(err, &unresolved):
		tc.report(diag.TypeAnnotationsNeeded, tc.exprSpan(recvExpr), "%s", err.Error())
		tc.poison(unresolved.Receiver)
	case errors.As(err, &ambiguous):
		b := diag.ReportError(tc.reporter, diag.AmbiguousMethod, sp, err.Error())
		for _, c := range ambiguous.Candidates {
			if at, what := tc.candidateSite(c); what != "" {
				b.WithNote(at, what)
			}
		}
		traitNames := ambiguous.QualifiedTraits()
		for i, s := range ambiguous.Suggestions(tc.receiverText(recvExpr)) {
			title := "use fully-qualified syntax: " + s
			if edit, ok := tc.qualifiedEdit(call, traitNames[i]); ok {
				b.WithFix(title, edit)
			} else {
				b.WithFix(title)
			}
		}
		b.Emit()
	case errors.As(err, &missing):
		b := diag.ReportError(tc.reporter, diag.MissingTraitBound, sp, err.Error())
		for _, trait := range missing.Traits {
			if def, ok := tc.reg.Trait(trait); ok {
				b.WithNote(def.NameSpan, "`"+missing.Method+"` is declared by trait `"+trait+"`")
			}
			if missing.Param == "" {
				continue
			}
			if edit, ok := tc.boundEdit(missing.Param, trait); ok {
				b.WithFix("add the bound `"+missing.Param+": "+trait+"`", edit)
			}
		}
		b.Emit()
	case errors.As(err, &unknown):
		tc.report(diag.UnknownMethod, sp, "%s", err.Error())
	case errors.As(err, &noTrait):
		tc.report(diag.UnknownTrait, sp, "%s", err.Error())
	default:
		tc.report(diag.UnknownMethod, sp, "%s", err.Error())
	}
}

func (tc *typeChecker) candidateSite(c resolve.Candidate) (source.Span, string) {
	switch {
	case c.Impl.IsValid():
		impl := tc.reg.Impl(c.Impl)
		if impl.Inherent() {
			return impl.NameSpan, "candidate in the inherent impl of `" + impl.Target.String() + "`"
		}
		return impl.NameSpan, "candidate from `impl " + impl.TraitName + " for " + impl.Target.String() + "`"
	case c.Ext.IsValid():
		ext := tc.reg.Extension(c.Ext)
		return ext.Span, "candidate in `extend " + ext.Target.String() + "`"
	case c.Trait.IsValid():
		def := tc.reg.TraitByID(c.Trait)
		return def.NameSpan, "candidate from trait `" + def.Name + "`"
	}
	return source.Span{}, ""
}

func (tc *typeChecker) receiverText(id ast.ExprID) string {
	if ident, ok := tc.unit.Exprs.Ident(id); ok {
		return tc.unit.Name(ident.Name)
	}
	if text, ok := tc.inlineText(id); ok {
		return text
	}
	return "receiver"
}

// inlineText is the unit text of id when it fits on one line.
func (tc *typeChecker) inlineText(id ast.ExprID) (string, bool) {
	text, ok := tc.unit.Text(tc.exprSpan(id))
	if !ok || text == "" || strings.ContainsAny(text, "\r\n") {
		return "", false
	}
	return text, true
}

// qualifiedEdit rewrites the method call expression call into the
// qualified form naming trait, reusing the written receiver and arguments.
func (tc *typeChecker) qualifiedEdit(call ast.ExprID, trait string) (diag.FixEdit, bool) {
	m, ok := tc.unit.Exprs.Method(call)
	if !ok {
		return diag.FixEdit{}, false
	}
	recv, ok := tc.inlineText(m.Receiver)
	if !ok {
		return diag.FixEdit{}, false
	}
	positional := []string{recv}
	var named []string
	for _, a := range m.Args {
		text, ok := tc.inlineText(a.Value)
		if !ok {
			return diag.FixEdit{}, false
		}
		if a.Name != source.NoStringID {
			named = append(named, tc.unit.Name(a.Name)+": "+text)
		} else {
			positional = append(positional, text)
		}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "{qualified: %s.%s, args: [%s]", trait, tc.unit.Name(m.Method), strings.Join(positional, ", "))
	if len(named) > 0 {
		fmt.Fprintf(&sb, ", named: {%s}", strings.Join(named, ", "))
	}
	sb.WriteString("}")
	return diag.FixEdit{Span: tc.exprSpan(call), NewText: sb.String()}, true
}

// boundEdit inserts trait into the bound list of the generic parameter
// param of the body being checked.
func (tc *typeChecker) boundEdit(param, trait string) (diag.FixEdit, bool) {
	g, ok := tc.generics[param]
	if !ok || param == "Self" {
		return diag.FixEdit{}, false
	}
	if n := len(g.BoundSpans); n > 0 {
		end := g.BoundSpans[n-1].End
		return diag.FixEdit{Span: source.Span{File: g.Span.File, Start: end, End: end}, NewText: " + " + trait}, true
	}
	end := g.Span.End
	return diag.FixEdit{Span: source.Span{File: g.Span.File, Start: end, End: end}, NewText: ": " + trait}, true
}
