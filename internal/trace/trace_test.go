package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelScopes(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeBody, false},
		{LevelDetail, ScopeBody, true},
		{LevelDetail, ScopeNode, false},
		{LevelDebug, ScopeNode, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.scope); got != tc.want {
			t.Fatalf("%s.ShouldEmit(%s) = %v, want %v", tc.level, tc.scope, got, tc.want)
		}
	}
	if l, err := ParseLevel("DETAIL"); err != nil || l != LevelDetail {
		t.Fatalf("ParseLevel = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected an error for an unknown level")
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatNDJSON)
	root := Begin(tr, ScopePass, "infer", 0)
	Begin(tr, ScopeBody, "infer:main", root.ID()).WithExtra("exprs", "3").End("")
	Begin(tr, ScopeNode, "type_expr", root.ID()).End("")
	root.End("done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 events, got %d:\n%s", len(lines), buf.String())
	}
	var ev jsonEvent
	if err := json.Unmarshal([]byte(lines[2]), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Name != "infer:main" || ev.Kind != "end" || ev.Extra["exprs"] != "3" || ev.ParentID != root.ID() {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Session == "" || ev.Session != Session() {
		t.Fatalf("session = %q", ev.Session)
	}
}

func TestChromeOutputIsOneDocument(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatChrome)
	Begin(tr, ScopePass, "coherence", 0).End("")
	Point(tr, ScopeDriver, "cache", "hit", 0)
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	var doc struct {
		TraceEvents []chromeEvent `json:"traceEvents"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if len(doc.TraceEvents) != 3 || doc.TraceEvents[0].Phase != "B" || doc.TraceEvents[2].Phase != "i" {
		t.Fatalf("unexpected events %+v", doc.TraceEvents)
	}
}

func TestRingWrapsAndMultiCopies(t *testing.T) {
	ring := NewRingTracer(2, LevelPhase)
	var buf bytes.Buffer
	multi := NewMultiTracer(LevelPhase, NewStreamTracer(&buf, LevelPhase, FormatText), ring)
	for _, name := range []string{"a", "b", "c"} {
		Point(multi, ScopePass, name, "", 0)
	}
	got := ring.Snapshot()
	if len(got) != 2 || got[0].Name != "b" || got[1].Name != "c" {
		t.Fatalf("snapshot = %+v", got)
	}
	if r, ok := Ring(multi); !ok || r != ring {
		t.Fatalf("Ring should find the buffer behind the multi tracer")
	}
	if strings.Count(buf.String(), "\n") != 3 {
		t.Fatalf("stream saw %q", buf.String())
	}
}

func TestDisabledTracerIsInert(t *testing.T) {
	ctx := context.Background()
	tr := FromContext(ctx)
	if tr != Nop {
		t.Fatalf("expected Nop without a tracer")
	}
	s := Begin(tr, ScopeDriver, "run", 0)
	if s.ID() != 0 || s.WithExtra("k", "v").End("") != 0 {
		t.Fatalf("nop span should be inert")
	}
	ctx = WithSpan(ctx, s)
	if CurrentSpan(ctx).SpanID != 0 {
		t.Fatalf("unexpected span id")
	}
	if h := StartHeartbeat(tr, 0); h != nil {
		t.Fatalf("heartbeat should not start")
	}
}

func TestAutoFormat(t *testing.T) {
	cases := map[string]Format{
		"-":               FormatText,
		"run.ndjson":      FormatNDJSON,
		"run.json":        FormatChrome,
		"run.chrome.json": FormatChrome,
		"trace.log":       FormatText,
	}
	for path, want := range cases {
		if got := formatFor(FormatAuto, path); got != want {
			t.Fatalf("%s: got %s, want %s", path, got, want)
		}
	}
}
