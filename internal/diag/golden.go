package diag

import (
	"fmt"
	"slices"
	"strings"

	"keel/internal/source"
)

type goldenLine struct {
	sev  string
	code string
	path string
	line uint32
	col  uint32
	msg  string
}

// FormatGolden renders one line per diagnostic (and per note when includeNotes
// is set) as "severity CODE path:line:col message", sorted, for golden files
// and the short CLI format.
func FormatGolden(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if fs == nil || len(diags) == 0 {
		return ""
	}
	lines := make([]goldenLine, 0, len(diags))
	for i := range diags {
		d := &diags[i]
		lines = append(lines, goldenAt(fs, d.Primary, d.Severity.Label(), d.Code, d.Message))
		if includeNotes {
			for _, n := range d.Notes {
				lines = append(lines, goldenAt(fs, n.Span, "note", d.Code, n.Msg))
			}
		}
	}
	slices.SortStableFunc(lines, func(a, b goldenLine) int {
		switch {
		case a.path != b.path:
			return strings.Compare(a.path, b.path)
		case a.line != b.line:
			return int(a.line) - int(b.line)
		case a.col != b.col:
			return int(a.col) - int(b.col)
		case a.code != b.code:
			return strings.Compare(a.code, b.code)
		}
		return strings.Compare(a.msg, b.msg)
	})

	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %s %s:%d:%d %s", l.sev, l.code, l.path, l.line, l.col, l.msg)
	}
	return b.String()
}

func goldenAt(fs *source.FileSet, span source.Span, sev string, code Code, msg string) goldenLine {
	path := "<unknown>"
	if f := fs.Get(span.File); f != nil {
		path = f.Path
	}
	start, _ := fs.Resolve(span)
	return goldenLine{
		sev:  sev,
		code: code.ID(),
		path: path,
		line: start.Line,
		col:  start.Col,
		msg:  sanitizeMessage(msg),
	}
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
