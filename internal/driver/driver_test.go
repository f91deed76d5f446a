package driver_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"keel/internal/diag"
	"keel/internal/driver"
	"keel/internal/pipeline"
	"keel/internal/testkit"
)

const threeBodies = `
modules:
  - name: main
    decls:
      - fn: take
        params: ["n: int"]
        returns: int
      - fn: sum
        returns: int
        body:
          - {op: "+", args: [1, 2]}
      - fn: wrong
        body:
          - {call: take, args: ["one"]}
          - ~
      - fn: unbound
        body:
          - {call: missing, args: [1]}
          - ~
`

func writeUnit(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "unit.yaml")
	if err := os.WriteFile(path, []byte(testkit.Dedent(text)), 0o644); err != nil {
		t.Fatalf("write unit: %v", err)
	}
	return path
}

func codes(bag *diag.Bag) []diag.Code {
	items := bag.Items()
	out := make([]diag.Code, len(items))
	for i := range items {
		out[i] = items[i].Code
	}
	return out
}

func expectCodes(t *testing.T, res *driver.Result, want ...diag.Code) {
	t.Helper()
	got := codes(res.Bag)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestCollectAllReportsEveryBody(t *testing.T) {
	path := writeUnit(t, threeBodies)
	for _, jobs := range []int{1, 4} {
		res, err := driver.CheckFile(context.Background(), path, driver.Options{Jobs: jobs})
		if err != nil {
			t.Fatalf("jobs=%d: %v", jobs, err)
		}
		expectCodes(t, res, diag.TypeMismatch, diag.UnboundIdentifier)
		if len(res.Bodies) != 3 {
			t.Fatalf("jobs=%d: expected 3 bodies, got %d", jobs, len(res.Bodies))
		}
		for i, b := range res.Bodies {
			if b == nil {
				t.Fatalf("jobs=%d: body %d was not checked", jobs, i)
			}
		}
		if res.Stats.Checked != 3 || res.Stats.Failed != 2 {
			t.Fatalf("jobs=%d: unexpected stats %s", jobs, res.Stats)
		}
		if got := res.Bodies[0].Type.String(); got != "fn() -> int" {
			t.Fatalf("sum has type %s", got)
		}
	}
}

func TestFailFastKeepsFirstError(t *testing.T) {
	path := writeUnit(t, threeBodies)
	res, err := driver.CheckFile(context.Background(), path, driver.Options{Mode: driver.FailFast, Jobs: 1})
	if err != nil {
		t.Fatal(err)
	}
	expectCodes(t, res, diag.TypeMismatch)
	if res.Bodies[2] != nil {
		t.Fatalf("the body after the first failure should not be checked")
	}
	if res.Stats.Cancelled == 0 {
		t.Fatalf("expected a cancelled body, got %s", res.Stats)
	}
}

func TestFailFastSkipsInferenceAfterRegistrationErrors(t *testing.T) {
	path := writeUnit(t, `
		modules:
		  - name: main
		    decls:
		      - impl: Missing
		        for: int
		      - fn: main
		        body:
		          - {call: missing}
	`)
	res, err := driver.CheckFile(context.Background(), path, driver.Options{Mode: driver.FailFast})
	if err != nil {
		t.Fatal(err)
	}
	expectCodes(t, res, diag.UnknownTrait)
	if res.Bodies != nil {
		t.Fatalf("inference should not run")
	}
	if res.Timings.Has(pipeline.StageInfer) {
		t.Fatalf("infer stage should have no timing")
	}
}

func TestLocalOverride(t *testing.T) {
	path := writeUnit(t, `
		local: [app]
		modules:
		  - name: lib
		    decls:
		      - trait: Show
		        methods:
		          - fn: show
		            params: [self]
		            returns: str
		  - name: app
		    decls:
		      - impl: Show
		        for: int
		        methods:
		          - fn: show
		            params: [self]
		            returns: str
		            body: ["int"]
	`)
	res, err := driver.CheckFile(context.Background(), path, driver.Options{})
	if err != nil {
		t.Fatal(err)
	}
	expectCodes(t, res, diag.OrphanImplementation)

	res, err = driver.CheckFile(context.Background(), path, driver.Options{Local: []string{"app", "lib"}})
	if err != nil {
		t.Fatal(err)
	}
	expectCodes(t, res)
}

func TestCacheServesUnchangedBodies(t *testing.T) {
	path := writeUnit(t, threeBodies)
	cache, err := driver.NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	opts := driver.Options{Cache: cache}

	first, err := driver.CheckFile(context.Background(), path, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.Stats.Cached != 0 {
		t.Fatalf("cold cache served %d bodies", first.Stats.Cached)
	}
	second, err := driver.CheckFile(context.Background(), path, opts)
	if err != nil {
		t.Fatal(err)
	}
	if second.Stats.Cached != 3 || second.Stats.Checked != 0 {
		t.Fatalf("warm run: %s", second.Stats)
	}
	expectCodes(t, second, diag.TypeMismatch, diag.UnboundIdentifier)
	if a, b := first.Bag.Items()[0].Primary, second.Bag.Items()[0].Primary; a != b {
		t.Fatalf("cached span %v differs from %v", b, a)
	}

	if err := cache.DropAll(); err != nil {
		t.Fatal(err)
	}
	third, err := driver.CheckFile(context.Background(), path, opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.Stats.Cached != 0 {
		t.Fatalf("dropped cache still served %d bodies", third.Stats.Cached)
	}
}

func TestProgressEvents(t *testing.T) {
	path := writeUnit(t, threeBodies)
	rec := &pipeline.Recorder{}
	if _, err := driver.CheckFile(context.Background(), path, driver.Options{Progress: rec, EnableTimings: true}); err != nil {
		t.Fatal(err)
	}
	done := make(map[string]bool)
	stages := make(map[pipeline.Stage]bool)
	for _, evt := range rec.Events() {
		if evt.Body == "" && evt.Status == pipeline.StatusDone {
			stages[evt.Stage] = true
		}
		if evt.Stage == pipeline.StageInfer && evt.Body != "" && evt.Status != pipeline.StatusWorking {
			done[evt.Body] = true
		}
	}
	for _, stage := range pipeline.Stages {
		if !stages[stage] {
			t.Fatalf("stage %s never finished", stage)
		}
	}
	for _, name := range []string{"sum", "wrong", "unbound"} {
		if !done[name] {
			t.Fatalf("no final event for %s", name)
		}
	}
}

func TestTimingsReport(t *testing.T) {
	path := writeUnit(t, threeBodies)
	res, err := driver.CheckFile(context.Background(), path, driver.Options{EnableTimings: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Timing == nil || len(res.Timing.Phases) != 3 {
		t.Fatalf("expected three timed passes, got %+v", res.Timing)
	}
	if !res.Timings.Has(pipeline.StageLoad) {
		t.Fatalf("load stage has no timing")
	}
}

func TestCancelledRun(t *testing.T) {
	path := writeUnit(t, threeBodies)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := driver.CheckFile(ctx, path, driver.Options{})
	if err == nil {
		t.Fatalf("expected a cancellation error")
	}
}

func TestMissingFile(t *testing.T) {
	_, err := driver.CheckFile(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"), driver.Options{})
	if err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestParseMode(t *testing.T) {
	if m, err := driver.ParseMode("fail-fast"); err != nil || m != driver.FailFast {
		t.Fatalf("ParseMode(fail-fast) = %v, %v", m, err)
	}
	if _, err := driver.ParseMode("sometimes"); err == nil {
		t.Fatalf("expected an error")
	}
}
