package diag

import (
	"slices"

	"keel/internal/source"
)

// Note is a secondary span with its own message.
type Note struct {
	Span source.Span `msgpack:"span" json:"span"`
	Msg  string      `msgpack:"msg" json:"msg"`
}

// FixEdit replaces the text under Span with NewText.
type FixEdit struct {
	Span    source.Span `msgpack:"span" json:"span"`
	NewText string      `msgpack:"new" json:"new_text"`
}

type Fix struct {
	Title string    `msgpack:"title" json:"title"`
	Edits []FixEdit `msgpack:"edits" json:"edits"`
}

type Diagnostic struct {
	Severity Severity    `msgpack:"sev" json:"severity"`
	Code     Code        `msgpack:"code" json:"code"`
	Message  string      `msgpack:"msg" json:"message"`
	Primary  source.Span `msgpack:"primary" json:"primary"`
	Notes    []Note      `msgpack:"notes,omitempty" json:"notes,omitempty"`
	Fixes    []Fix       `msgpack:"fixes,omitempty" json:"fixes,omitempty"`
}

// NewError builds an error diagnostic. WithNote and WithFix return extended
// copies and never share backing arrays with the receiver.
func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{Severity: SevError, Code: code, Primary: primary, Message: msg}
}

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(slices.Clip(d.Notes), Note{Span: sp, Msg: msg})
	return d
}

func (d Diagnostic) WithFix(title string, edits ...FixEdit) Diagnostic {
	d.Fixes = append(slices.Clip(d.Fixes), Fix{Title: title, Edits: slices.Clone(edits)})
	return d
}
