package source

import "testing"

func TestInternerNormalizesIdentifiers(t *testing.T) {
	in := NewInterner()
	composed := in.Intern("caf\u00e9")
	decomposed := in.Intern("cafe\u0301")
	if composed != decomposed {
		t.Fatalf("NFC variants got different ids: %d vs %d", composed, decomposed)
	}
	if s := in.MustLookup(composed); s != "caf\u00e9" {
		t.Fatalf("lookup = %q", s)
	}
	if in.Intern("") != NoStringID {
		t.Fatalf("empty string must map to NoStringID")
	}
	if _, ok := in.Lookup(StringID(99)); ok {
		t.Fatalf("unknown id resolved")
	}
	if in.Len() != 2 {
		t.Fatalf("Len = %d, want 2", in.Len())
	}
}

func TestSpanCoverAndCompare(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 8}
	b := Span{File: 1, Start: 2, End: 6}
	if got := a.Cover(b); got != (Span{File: 1, Start: 2, End: 8}) {
		t.Fatalf("Cover = %v", got)
	}
	if a.Cover(Span{File: 2, Start: 0, End: 1}) != a {
		t.Fatalf("cross-file cover must be a no-op")
	}
	if b.Compare(a) >= 0 || a.Compare(b) <= 0 || a.Compare(a) != 0 {
		t.Fatalf("Compare ordering broken")
	}
}
