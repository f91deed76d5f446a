package diagfmt

import (
	"bytes"
	"errors"
	"strings"

	"keel/internal/diag"
	"keel/internal/source"
)

var errEditOutOfRange = errors.New("edit span is outside its file")

// editedText returns the file bytes under sp, or nil when sp does not fit.
// An empty span inside the file yields an empty, non-nil slice.
func editedText(fs *source.FileSet, sp source.Span) []byte {
	f := fs.Get(sp.File)
	if f == nil || f.Content == nil || sp.Start > sp.End || int(sp.End) > len(f.Content) {
		return nil
	}
	return f.Content[sp.Start:sp.End]
}

func oldText(fs *source.FileSet, sp source.Span) string {
	return string(editedText(fs, sp))
}

// previewEdit widens the edit to the full lines it touches and returns
// those lines as written and as they read once the edit is applied.
func previewEdit(fs *source.FileSet, edit diag.FixEdit) (before, after []string, err error) {
	if fs == nil || editedText(fs, edit.Span) == nil {
		return nil, nil, errEditOutOfRange
	}
	content := fs.Get(edit.Span.File).Content
	from := bytes.LastIndexByte(content[:edit.Span.Start], '\n') + 1
	to := len(content)
	if i := bytes.IndexByte(content[edit.Span.End:], '\n'); i >= 0 {
		to = int(edit.Span.End) + i
	}

	var patched strings.Builder
	patched.Write(content[from:edit.Span.Start])
	patched.WriteString(edit.NewText)
	patched.Write(content[edit.Span.End:to])
	return previewLines(string(content[from:to])), previewLines(patched.String()), nil
}

func previewLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
