package source

import (
	"testing"
)

func TestFileSetResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("unit.yaml", []byte("first\r\nsecond\nthird"))

	f := fs.Get(id)
	if f == nil {
		t.Fatalf("expected file %d", id)
	}
	if got := string(f.Content); got != "first\nsecond\nthird" {
		t.Fatalf("CRLF not folded: %q", got)
	}

	start, end := fs.Resolve(Span{File: id, Start: 6, End: 12})
	if start != (LineCol{Line: 2, Col: 1}) {
		t.Fatalf("start = %+v", start)
	}
	if end != (LineCol{Line: 2, Col: 7}) {
		t.Fatalf("end = %+v", end)
	}
	if line := f.GetLine(3); line != "third" {
		t.Fatalf("GetLine(3) = %q", line)
	}
	if line := f.GetLine(9); line != "" {
		t.Fatalf("GetLine(9) = %q", line)
	}
}

func TestOffsetRoundTrip(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("u.yaml", []byte("ab\ncde\n\nfg"))
	f := fs.Get(id)
	for off := uint32(0); off < uint32(len(f.Content)); off++ {
		pos, _ := fs.Resolve(Span{File: id, Start: off, End: off})
		if back := f.Offset(pos); back != off {
			t.Fatalf("offset %d -> %+v -> %d", off, pos, back)
		}
	}
}

func TestFileSetLatestVersion(t *testing.T) {
	fs := NewFileSet()
	first := fs.Add("a/../unit.yaml", []byte("x"), 0)
	second := fs.Add("unit.yaml", []byte("y"), 0)
	latest, ok := fs.GetLatest("unit.yaml")
	if !ok || latest != second || first == second {
		t.Fatalf("latest=%d ok=%v first=%d second=%d", latest, ok, first, second)
	}
	if fs.Get(FileID(7)) != nil {
		t.Fatalf("unknown id must yield nil")
	}
}
