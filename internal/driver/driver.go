// Package driver runs a check over one unit: registration, coherence and
// freezing on the calling goroutine, then inference of every body in
// parallel against the frozen registry.
package driver

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"keel/internal/ast"
	"keel/internal/coherence"
	"keel/internal/diag"
	"keel/internal/observ"
	"keel/internal/pipeline"
	"keel/internal/sema"
	"keel/internal/source"
	"keel/internal/trace"
	"keel/internal/traits"
	"keel/internal/unitfile"
)

// Mode selects how a run reacts to the first error.
type Mode uint8

const (
	// CollectAll checks every body and reports everything.
	CollectAll Mode = iota
	// FailFast stops at the first error and cancels the remaining bodies.
	FailFast
)

func (m Mode) String() string {
	if m == FailFast {
		return "fail-fast"
	}
	return "collect-all"
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "collect-all":
		return CollectAll, nil
	case "fail-fast":
		return FailFast, nil
	}
	return CollectAll, fmt.Errorf("invalid mode %q (expected: collect-all|fail-fast)", s)
}

type Options struct {
	Mode Mode
	// Jobs bounds the inference workers; 0 uses GOMAXPROCS.
	Jobs int
	// MaxDepth is the recursion ceiling; 0 uses 1000.
	MaxDepth       int
	MaxDiagnostics int
	// Cache, when set, skips bodies whose inputs are unchanged.
	Cache         *DiskCache
	Progress      pipeline.ProgressSink
	EnableTimings bool
	// Local, when set, replaces the modules the unit declares as its own.
	Local []string
}

func (o Options) jobs() int {
	if o.Jobs > 0 {
		return o.Jobs
	}
	return runtime.GOMAXPROCS(0)
}

// Result is everything a run produced. Bodies are in the order of
// Globals.Bodies; a body skipped by fail-fast is nil.
type Result struct {
	FileSet   *source.FileSet
	FileID    source.FileID
	Unit      *ast.Unit
	Registry  *traits.Registry
	Globals   *sema.Globals
	Coherence coherence.Result
	Bodies    []*sema.BodyResult
	Bag       *diag.Bag
	Timings   pipeline.Timings
	Timing    *observ.Report
	Stats     Stats
}

// HasErrors reports whether the run produced any error diagnostic.
func (r *Result) HasErrors() bool {
	return r.Bag != nil && r.Bag.HasErrors()
}

// CheckFile loads the unit at path and checks it. Only IO and internal
// failures are errors; everything wrong with the unit is in Result.Bag.
func CheckFile(ctx context.Context, path string, opts Options) (*Result, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "check", trace.CurrentSpan(ctx).SpanID)
	defer span.End("")
	ctx = trace.WithSpan(ctx, span)

	fs := source.NewFileSet()
	bag := diag.NewBag(opts.MaxDiagnostics)

	started := time.Now()
	pipeline.Emit(opts.Progress, pipeline.Event{Stage: pipeline.StageLoad, Status: pipeline.StatusWorking})
	loadSpan := trace.Begin(tracer, trace.ScopePass, "load", span.ID())
	unit, fileID, err := unitfile.Load(fs, path, diag.BagReporter{Bag: bag})
	loadSpan.End(path)
	if err != nil {
		pipeline.Emit(opts.Progress, pipeline.Event{Stage: pipeline.StageLoad, Status: pipeline.StatusError, Err: err})
		return nil, err
	}
	loadTime := time.Since(started)
	pipeline.Emit(opts.Progress, pipeline.Event{Stage: pipeline.StageLoad, Status: pipeline.StatusDone, Elapsed: loadTime})

	if bag.HasErrors() {
		res := &Result{FileSet: fs, FileID: fileID, Unit: unit, Bag: bag}
		res.Timings.Set(pipeline.StageLoad, loadTime)
		bag.Sort()
		return res, nil
	}
	res, err := check(ctx, fs, unit, bag, opts)
	if res != nil {
		res.FileID = fileID
		res.Timings.Set(pipeline.StageLoad, loadTime)
	}
	return res, err
}

// Check runs every pass over an already loaded unit.
func Check(ctx context.Context, fs *source.FileSet, unit *ast.Unit, opts Options) (*Result, error) {
	return check(ctx, fs, unit, diag.NewBag(opts.MaxDiagnostics), opts)
}

func check(ctx context.Context, fs *source.FileSet, unit *ast.Unit, bag *diag.Bag, opts Options) (*Result, error) {
	var timer *observ.Timer
	if opts.EnableTimings {
		timer = observ.NewTimer()
	}
	tracer := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx).SpanID
	reporter := diag.BagReporter{Bag: bag}
	res := &Result{FileSet: fs, Unit: unit, Bag: bag}
	if len(opts.Local) > 0 {
		unit.Local = unit.Local[:0]
		for _, name := range opts.Local {
			unit.Local = append(unit.Local, unit.Strings.Intern(name))
		}
	}

	pass := func(stage pipeline.Stage, run func() string) {
		pipeline.Emit(opts.Progress, pipeline.Event{Stage: stage, Status: pipeline.StatusWorking})
		span := trace.Begin(tracer, trace.ScopePass, string(stage), parent)
		idx := timer.Begin(string(stage))
		started := time.Now()
		note := run()
		elapsed := time.Since(started)
		timer.End(idx, note)
		span.End(note)
		res.Timings.Set(stage, elapsed)
		pipeline.Emit(opts.Progress, pipeline.Event{Stage: stage, Status: pipeline.StatusDone, Elapsed: elapsed})
	}

	pass(pipeline.StageRegister, func() string {
		b := traits.NewBuilder(unit, reporter, traits.Options{MaxDepth: opts.MaxDepth})
		b.Register()
		res.Registry = b.Freeze()
		res.Globals = sema.BuildGlobals(res.Registry, reporter)
		return fmt.Sprintf("%d traits, %d impls, %d bodies",
			len(res.Registry.Traits()), len(res.Registry.Impls()), len(res.Globals.Bodies()))
	})
	pass(pipeline.StageCoherence, func() string {
		res.Coherence = coherence.Check(res.Registry, reporter)
		return strconv.Itoa(res.Coherence.Errors) + " errors"
	})

	stop := opts.Mode == FailFast && bag.HasErrors()
	if !stop {
		var inferErr error
		pass(pipeline.StageInfer, func() string {
			inferErr = infer(ctx, res, opts)
			return res.Stats.String()
		})
		if inferErr != nil {
			return nil, inferErr
		}
	}

	for _, body := range res.Bodies {
		if body != nil {
			bag.MergeItems(body.Diags)
		}
	}
	bag.Sort()
	bag.Dedup()
	if opts.Mode == FailFast {
		bag.Truncate(firstError(bag.Items()) + 1)
	}
	if opts.MaxDiagnostics > 0 {
		bag.Truncate(opts.MaxDiagnostics)
	}
	if timer != nil {
		report := timer.Report()
		res.Timing = &report
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("check cancelled: %w", err)
	}
	return res, nil
}

// firstError returns the index of the first error in items, or the last
// index when there is none.
func firstError(items []diag.Diagnostic) int {
	for i := range items {
		if items[i].Severity >= diag.SevError {
			return i
		}
	}
	return len(items) - 1
}
