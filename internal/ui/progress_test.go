package ui

import (
	"strings"
	"testing"

	"keel/internal/pipeline"
)

func TestProgressTracksStagesAndBodies(t *testing.T) {
	events := make(chan pipeline.Event)
	m := NewProgressModel("check unit.yaml", events).(*progressModel)

	feed := []pipeline.Event{
		{Stage: pipeline.StageLoad, Status: pipeline.StatusDone},
		{Stage: pipeline.StageRegister, Status: pipeline.StatusDone},
		{Stage: pipeline.StageCoherence, Status: pipeline.StatusDone},
		{Stage: pipeline.StageInfer, Status: pipeline.StatusWorking},
		{Body: "main", Stage: pipeline.StageInfer, Status: pipeline.StatusWorking},
		{Body: "helper", Stage: pipeline.StageInfer, Status: pipeline.StatusCached},
	}
	for _, ev := range feed {
		m.Update(eventMsg(ev))
	}
	if got := m.percent(); got != 0.875 {
		t.Fatalf("percent = %v, want 0.875", got)
	}
	m.Update(eventMsg{Body: "main", Stage: pipeline.StageInfer, Status: pipeline.StatusError})
	m.Update(eventMsg{Stage: pipeline.StageInfer, Status: pipeline.StatusDone})
	if got := m.percent(); got != 1 {
		t.Fatalf("percent = %v, want 1", got)
	}

	view := m.View()
	for _, want := range []string{"check unit.yaml (infer)", "main", "helper", "cached", "error"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view is missing %q:\n%s", want, view)
		}
	}
	if len(m.bodies) != 2 {
		t.Fatalf("expected two body rows, got %d", len(m.bodies))
	}
}

func TestProgressQuitsWhenEventsClose(t *testing.T) {
	events := make(chan pipeline.Event)
	close(events)
	m := NewProgressModel("check", events).(*progressModel)
	msg := m.listenForEvent()()
	if _, ok := msg.(doneMsg); !ok {
		t.Fatalf("expected doneMsg, got %T", msg)
	}
	m.Update(msg)
	if !m.done || !strings.HasPrefix(stripANSI(m.View()), "done: check") {
		t.Fatalf("model did not finish:\n%s", m.View())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abc", 6); got != "abc" {
		t.Fatalf("truncate = %q", got)
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	skip := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			skip = true
		case skip && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			skip = false
		case !skip:
			b.WriteRune(r)
		}
	}
	return b.String()
}
