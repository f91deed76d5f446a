package diag

import (
	"testing"

	"keel/internal/source"
)

func TestCodeIDs(t *testing.T) {
	cases := map[Code]string{
		ConflictingImplementation: "E0600",
		OrphanImplementation:      "E0601",
		AmbiguousMethod:           "E0602",
		ConflictingExtension:      "E0603",
		TypeMismatch:              "E0308",
	}
	for code, want := range cases {
		if got := code.ID(); got != want {
			t.Fatalf("%d.ID() = %s, want %s", code, got, want)
		}
	}
	if c, ok := ParseCode("e602"); !ok || c != AmbiguousMethod {
		t.Fatalf("ParseCode(e602) = %v, %v", c, ok)
	}
	if _, ok := ParseCode("E9999"); ok {
		t.Fatalf("unknown code parsed")
	}
	if OrphanImplementation.Family() != "traits" || UnboundIdentifier.Family() != "names" || OccursCheck.Family() != "types" {
		t.Fatalf("unexpected families")
	}
}

func TestBagSortIsDeterministic(t *testing.T) {
	bag := NewBag(0)
	r := BagReporter{Bag: bag}
	ReportError(r, TypeMismatch, source.Span{File: 0, Start: 10, End: 12}, "b").Emit()
	ReportWarning(r, TypeMismatch, source.Span{File: 0, Start: 2, End: 3}, "a").Emit()
	ReportError(r, OccursCheck, source.Span{File: 0, Start: 2, End: 3}, "c").Emit()
	bag.Sort()

	items := bag.Items()
	if items[0].Code != OccursCheck || items[1].Severity != SevWarning || items[2].Message != "b" {
		t.Fatalf("unexpected order: %+v", items)
	}
	if bag.ErrorCount() != 2 {
		t.Fatalf("ErrorCount = %d", bag.ErrorCount())
	}
}

func TestBagLimitAndMerge(t *testing.T) {
	a := NewBag(1)
	if !a.Add(NewError(TypeMismatch, source.Span{}, "x")) || a.Add(NewError(TypeMismatch, source.Span{}, "y")) {
		t.Fatalf("limit not enforced")
	}
	b := NewBag(0)
	b.Add(NewError(OccursCheck, source.Span{}, "z"))
	b.Add(NewError(OccursCheck, source.Span{}, "z"))
	a.Merge(b)
	if a.Len() != 3 {
		t.Fatalf("merge lost items: %d", a.Len())
	}
	a.Dedup()
	if a.Len() != 2 {
		t.Fatalf("dedup left %d items", a.Len())
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	bag := NewBag(0)
	b := ReportError(BagReporter{Bag: bag}, AmbiguousMethod, source.Span{Start: 1, End: 2}, "ambiguous").
		WithNote(source.Span{Start: 5, End: 6}, "candidate").
		WithFix("qualify", FixEdit{Span: source.Span{Start: 1, End: 2}, NewText: "Show.show(x)"})
	b.Emit()
	b.Emit()
	if bag.Len() != 1 {
		t.Fatalf("emitted %d times", bag.Len())
	}
	d := bag.Items()[0]
	if len(d.Notes) != 1 || len(d.Fixes) != 1 || d.Fixes[0].Edits[0].NewText != "Show.show(x)" {
		t.Fatalf("builder lost details: %+v", d)
	}
}

func TestFormatGolden(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.AddVirtual("unit.yaml", []byte("a\nb\n"))
	diags := []Diagnostic{
		NewError(ConflictingImplementation, source.Span{File: file, Start: 2, End: 3}, "conflicting\nimpl").
			WithNote(source.Span{File: file, Start: 0, End: 1}, "first here"),
	}
	want := "note E0600 unit.yaml:1:1 first here\n" +
		"error E0600 unit.yaml:2:1 conflicting impl"
	if got := FormatGolden(diags, fs, true); got != want {
		t.Fatalf("golden mismatch:\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestWithNoteDoesNotAlias(t *testing.T) {
	base := NewError(TypeMismatch, source.Span{}, "x").WithNote(source.Span{}, "one")
	a := base.WithNote(source.Span{}, "a")
	b := base.WithNote(source.Span{}, "b")
	if a.Notes[1].Msg != "a" || b.Notes[1].Msg != "b" || len(base.Notes) != 1 {
		t.Fatalf("copies share notes: %v / %v / %v", a.Notes, b.Notes, base.Notes)
	}
}
