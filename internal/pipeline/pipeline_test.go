package pipeline

import (
	"testing"
	"time"
)

func TestTimingsSum(t *testing.T) {
	var tm Timings
	if tm.Has(StageInfer) || tm.Sum() != 0 {
		t.Fatalf("zero timings should be empty")
	}
	tm.Set(StageRegister, 2*time.Millisecond)
	tm.Set(StageInfer, 5*time.Millisecond)
	if got := tm.Sum(); got != 7*time.Millisecond {
		t.Fatalf("Sum() = %v", got)
	}
	if got := tm.Sum(StageInfer, StageLoad); got != 5*time.Millisecond {
		t.Fatalf("Sum(infer, load) = %v", got)
	}
}

func TestSinks(t *testing.T) {
	ch := make(chan Event, 1)
	Emit(ChannelSink{Ch: ch}, Event{Stage: StageLoad, Status: StatusDone})
	if evt := <-ch; evt.Stage != StageLoad {
		t.Fatalf("unexpected event %+v", evt)
	}

	var rec Recorder
	Emit(&rec, Event{Body: "main", Stage: StageInfer, Status: StatusWorking})
	Emit(nil, Event{})
	if got := rec.Events(); len(got) != 1 || got[0].Body != "main" {
		t.Fatalf("recorded %+v", got)
	}

	n := 0
	Emit(FuncSink(func(Event) { n++ }), Event{})
	if n != 1 {
		t.Fatalf("func sink called %d times", n)
	}
}
