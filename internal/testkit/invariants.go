package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"keel/internal/ast"
	"keel/internal/source"
)

// CheckSpanInvariants runs a minimal set of span invariants on a loaded unit:
// 1) every declaration span is non-empty and within the file content
// 2) every method span lies inside the span of the declaration owning it
// 3) every expression span is within the file content
func CheckSpanInvariants(unit *ast.Unit, sf *source.File) error {
	if unit == nil || sf == nil {
		return fmt.Errorf("nil unit or file")
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	inFile := func(sp source.Span) error {
		if sp.File != sf.ID {
			return fmt.Errorf("span points to different file id: got=%d want=%d", sp.File, sf.ID)
		}
		if sp.End < sp.Start || sp.End > lenContent {
			return fmt.Errorf("span out of bounds: %v (content %d)", sp, lenContent)
		}
		return nil
	}

	for _, id := range unit.Items {
		d := unit.Decls.Get(id)
		if d == nil {
			return fmt.Errorf("nil decl for id=%d", id)
		}
		if d.Span.End <= d.Span.Start {
			return fmt.Errorf("empty decl span: %v", d.Span)
		}
		if err := inFile(d.Span); err != nil {
			return fmt.Errorf("decl %d: %w", id, err)
		}
		for _, m := range methodsOf(unit, id) {
			md := unit.Decls.Get(m)
			if md.Span.Start < d.Span.Start || md.Span.End > d.Span.End {
				return fmt.Errorf("method span %v escapes owner %v", md.Span, d.Span)
			}
		}
	}

	for i := uint32(1); i <= unit.Exprs.Len(); i++ {
		e := unit.Exprs.Get(ast.ExprID(i))
		if err := inFile(e.Span); err != nil {
			return fmt.Errorf("expr %d (%s): %w", i, e.Kind, err)
		}
		for _, c := range unit.Exprs.Children(ast.ExprID(i)) {
			cs := unit.Exprs.Get(c).Span
			if cs.Start < e.Span.Start || cs.End > e.Span.End {
				return fmt.Errorf("expr %d (%s) span %v escapes parent %v", c, unit.Exprs.Get(c).Kind, cs, e.Span)
			}
		}
	}
	return nil
}

func methodsOf(unit *ast.Unit, id ast.DeclID) []ast.DeclID {
	if t, ok := unit.Decls.Trait(id); ok {
		return t.Methods
	}
	if impl, ok := unit.Decls.Impl(id); ok {
		return impl.Methods
	}
	if ext, ok := unit.Decls.Extend(id); ok {
		return ext.Methods
	}
	return nil
}
