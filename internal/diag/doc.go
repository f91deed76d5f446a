// Package diag defines the diagnostic model shared by every checking phase.
//
// A Diagnostic carries a Severity, a stable Code (rendered as E0600 and so
// on), a message, a primary span, secondary spans (Notes) and optional
// machine-applicable fixes. A fix is a title plus text edits in source
// coordinates; the core never applies them.
//
// Phases report through a Reporter, usually with ReportBuilder:
//
//	diag.ReportError(r, diag.AmbiguousMethod, call.Span, msg).
//		WithNote(first.Span, "candidate declared here").
//		WithFix("call through the trait", diag.FixEdit{Span: call.Span, NewText: text}).
//		Emit()
//
// BagReporter stores into a Bag. Every worker fills its own Bag; the driver
// merges them after the join and calls Bag.Sort, which makes output
// independent of scheduling.
//
// Rendering lives in internal/diagfmt; this package does no IO.
package diag
