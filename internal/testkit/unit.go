// Package testkit holds helpers shared by package tests.
package testkit

import (
	"strings"
	"testing"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/source"
	"keel/internal/unitfile"
)

// Unit parses a YAML unit and fails the test on any load diagnostic.
// Leading tabs are not valid YAML indentation, so they are stripped.
func Unit(t testing.TB, text string) (*ast.Unit, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	bag := diag.NewBag(0)
	unit := unitfile.ParseBytes(fs, "unit.yaml", []byte(Dedent(text)), diag.BagReporter{Bag: bag})
	if bag.Len() > 0 {
		t.Fatalf("unit did not load:\n%s", diag.FormatGolden(bag.Items(), fs, false))
	}
	return unit, fs
}

// Dedent removes the common leading whitespace of the non-empty lines.
func Dedent(text string) string {
	lines := strings.Split(strings.Trim(text, "\n"), "\n")
	prefix := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first || strings.HasPrefix(prefix, indent) {
			prefix = indent
			first = false
			continue
		}
		for !strings.HasPrefix(indent, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, "\n") + "\n"
}

// Find returns the first top-level declaration named name.
func Find(t testing.TB, unit *ast.Unit, name string) ast.DeclID {
	t.Helper()
	for _, id := range unit.Items {
		if unit.Name(unit.Decls.Get(id).Name) == name {
			return id
		}
	}
	t.Fatalf("no declaration named %q", name)
	return ast.NoDeclID
}
