package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"keel/internal/diag"
	"keel/internal/source"
)

type palette struct {
	err, warn, info, note, code, gutter, caret, added, removed *color.Color
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		err:     mk(color.FgRed, color.Bold),
		warn:    mk(color.FgYellow, color.Bold),
		info:    mk(color.FgCyan, color.Bold),
		note:    mk(color.FgCyan),
		code:    mk(color.Bold),
		gutter:  mk(color.FgBlue),
		caret:   mk(color.FgRed),
		added:   mk(color.FgGreen),
		removed: mk(color.FgRed),
	}
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty renders every diagnostic of bag, in bag order, as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//
// followed by the source lines under the primary span with a ^~~~
// underline, then notes and fixes when enabled. Call bag.Sort first.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	items := bag.Items()
	for i := range items {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, &items[i], fs, opts, p)
	}
	if n := bag.ErrorCount(); n > 0 {
		fmt.Fprintln(w)
		plural := "s"
		if n == 1 {
			plural = ""
		}
		fmt.Fprintf(w, "%s\n", p.err.Sprintf("%d error%s", n, plural))
	}
}

func prettyOne(w io.Writer, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p palette) {
	f := fs.Get(d.Primary.File)
	start, _ := fs.Resolve(d.Primary)
	fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n",
		displayPath(f, opts.PathMode, opts.BaseDir), start.Line, start.Col,
		p.severity(d.Severity).Sprint(d.Severity.String()),
		p.code.Sprint(d.Code.ID()),
		d.Message)
	if f != nil {
		writeSnippet(w, f, fs, d.Primary, int(opts.Context), p)
	}

	if opts.ShowNotes {
		for _, n := range d.Notes {
			nf := fs.Get(n.Span.File)
			ns, _ := fs.Resolve(n.Span)
			fmt.Fprintf(w, "  %s %s:%d:%d: %s\n", p.note.Sprint("note:"),
				displayPath(nf, opts.PathMode, opts.BaseDir), ns.Line, ns.Col, n.Msg)
			if nf != nil {
				writeSnippet(w, nf, fs, n.Span, 0, p)
			}
		}
	}
	if opts.ShowFixes {
		for _, fix := range d.Fixes {
			fmt.Fprintf(w, "  %s %s\n", p.note.Sprint("help:"), fix.Title)
			if !opts.ShowPreview {
				continue
			}
			for _, edit := range fix.Edits {
				before, after, err := previewEdit(fs, edit)
				if err != nil {
					continue
				}
				for _, line := range before {
					fmt.Fprintf(w, "    %s\n", p.removed.Sprint("- "+line))
				}
				for _, line := range after {
					fmt.Fprintf(w, "    %s\n", p.added.Sprint("+ "+line))
				}
			}
		}
	}
	if opts.ShowExplain {
		fmt.Fprintf(w, "  %s %s\n", p.note.Sprint("= explain:"), d.Code.Explain())
	}
}

// writeSnippet prints the lines of span with context lines around them and
// underlines the span on its first line.
func writeSnippet(w io.Writer, f *source.File, fs *source.FileSet, span source.Span, context int, p palette) {
	start, end := fs.Resolve(span)
	first := int(start.Line) - context
	if first < 1 {
		first = 1
	}
	last := int(end.Line) + context
	if end.Line > start.Line && end.Col == 1 {
		last--
	}
	if last < int(start.Line) {
		last = int(start.Line)
	}
	lineCount := len(f.LineIdx) + 1
	if last > lineCount {
		last = lineCount
	}
	width := len(strconv.Itoa(last))
	pad := strings.Repeat(" ", width)

	fmt.Fprintf(w, "%s %s\n", pad, p.gutter.Sprint("|"))
	for n := first; n <= last; n++ {
		text := strings.TrimRight(f.GetLine(uint32(n)), "\r") // #nosec G115 -- bounded by line count
		fmt.Fprintf(w, "%s %s %s\n", p.gutter.Sprintf("%*d", width, n), p.gutter.Sprint("|"), text)
		if n != int(start.Line) {
			continue
		}
		lead, mark := underline(text, start, end)
		fmt.Fprintf(w, "%s %s %s%s\n", pad, p.gutter.Sprint("|"), lead, p.caret.Sprint(mark))
	}
}

// underline returns the blank lead up to the span start and the ^~~ mark
// covering the span on this line. Widths follow the display width of the
// text so wide characters stay aligned; tabs are kept as tabs.
func underline(text string, start, end source.LineCol) (string, string) {
	col := int(start.Col) - 1
	if col > len(text) {
		col = len(text)
	}
	var lead strings.Builder
	for _, r := range text[:col] {
		if r == '\t' {
			lead.WriteByte('\t')
			continue
		}
		lead.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	stop := len(text)
	if end.Line == start.Line && int(end.Col)-1 <= len(text) {
		stop = int(end.Col) - 1
	}
	span := 1
	if stop > col {
		span = runewidth.StringWidth(text[col:stop])
	}
	if span < 1 {
		span = 1
	}
	return lead.String(), "^" + strings.Repeat("~", span-1)
}
