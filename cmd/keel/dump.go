package main

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"keel/internal/ast"
	"keel/internal/driver"
	"keel/internal/sema"
)

// writeTypes prints one line per body and, when exprs is set, the type of
// every expression of the body ordered by position.
func writeTypes(w io.Writer, res *driver.Result, exprs bool) {
	if res.Globals == nil {
		return
	}
	for i, body := range res.Globals.Bodies() {
		if i >= len(res.Bodies) || res.Bodies[i] == nil {
			fmt.Fprintf(w, "%s: <not checked>\n", body.Name)
			continue
		}
		br := res.Bodies[i]
		fmt.Fprintf(w, "%s: %s\n", body.Name, br.Type)
		if exprs {
			for _, line := range exprLines(res, br) {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}
}

func exprLines(res *driver.Result, br *sema.BodyResult) []string {
	ids := slices.Collect(maps.Keys(br.ExprTypes))
	slices.SortFunc(ids, func(a, b ast.ExprID) int {
		if c := res.Unit.Exprs.Get(a).Span.Compare(res.Unit.Exprs.Get(b).Span); c != 0 {
			return c
		}
		return int(a) - int(b)
	})
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		e := res.Unit.Exprs.Get(id)
		start, _ := res.FileSet.Resolve(e.Span)
		line := fmt.Sprintf("%d:%d %s: %s", start.Line, start.Col, e.Kind, br.ExprTypes[id])
		if sel, ok := br.Methods[id]; ok {
			line += fmt.Sprintf(" [%s via %s]", sel.Method, sel.Kind)
		}
		lines = append(lines, line)
	}
	return lines
}
