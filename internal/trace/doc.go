// Package trace records where the checker spends its time.
//
// Spans are opened per run, per pass and per inferred body; at debug level
// individual expressions are traced too. Events go to a stream (text,
// NDJSON or Chrome trace JSON), to an in-memory ring dumped on failure, or
// to both.
//
//	tr, err := trace.New(trace.Config{Level: trace.LevelDetail, Mode: trace.ModeStream, OutputPath: "-"})
//	ctx = trace.WithTracer(ctx, tr)
//
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "coherence", trace.CurrentSpan(ctx).SpanID)
//	defer span.End("")
//
// Every event carries the session id of the process so traces of parallel
// runs can be merged.
package trace
