package driver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"keel/internal/pipeline"
	"keel/internal/project"
	"keel/internal/sema"
	"keel/internal/trace"
)

// errStopped cancels the group once a fail-fast body reports an error.
var errStopped = errors.New("stopped at first error")

// Stats counts what the inference pass did.
type Stats struct {
	Bodies    int
	Checked   int64
	Cached    int64
	Failed    int64
	Cancelled int64
	CacheErrs int64
}

func (s Stats) String() string {
	return fmt.Sprintf("%d bodies: %d checked, %d cached, %d with errors, %d cancelled",
		s.Bodies, s.Checked, s.Cached, s.Failed, s.Cancelled)
}

type inferStats struct {
	checked, cached, failed, cancelled, cacheErrs atomic.Int64
}

// infer checks every body on its own goroutine. Each task owns its
// substitution, variable counter and diagnostics, and writes only its own
// slot of res.Bodies; the registry and globals are shared read-only.
func infer(ctx context.Context, res *Result, opts Options) error {
	bodies := res.Globals.Bodies()
	res.Bodies = make([]*sema.BodyResult, len(bodies))
	res.Stats.Bodies = len(bodies)

	var keys []project.Digest
	if opts.Cache != nil {
		keys = bodyKeys(res, opts)
	}

	tracer := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx).SpanID
	semaOpts := sema.Options{
		MaxDepth:       opts.MaxDepth,
		FailFast:       opts.Mode == FailFast,
		MaxDiagnostics: opts.MaxDiagnostics,
	}

	var stats inferStats
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.jobs())
	for i := range bodies {
		body := &bodies[i]
		g.Go(func() error {
			if gctx.Err() != nil {
				stats.cancelled.Add(1)
				return nil
			}
			started := time.Now()
			pipeline.Emit(opts.Progress, pipeline.Event{Body: body.Name, Stage: pipeline.StageInfer, Status: pipeline.StatusWorking})

			if keys != nil {
				cached, ok, err := opts.Cache.Get(keys[i])
				if err != nil {
					stats.cacheErrs.Add(1)
				}
				if ok && cached.Decl == body.Decl {
					res.Bodies[i] = cached
					stats.cached.Add(1)
					trace.Point(tracer, trace.ScopeBody, "cache:"+body.Name, "hit", parent)
					pipeline.Emit(opts.Progress, pipeline.Event{Body: body.Name, Stage: pipeline.StageInfer, Status: pipeline.StatusCached, Elapsed: time.Since(started)})
					return failFast(opts, cached)
				}
			}

			br, err := sema.CheckBody(trace.WithSpanContext(gctx, trace.SpanContext{SpanID: parent}), res.Registry, res.Globals, body.Decl, semaOpts)
			if err != nil {
				return fmt.Errorf("infer %s: %w", body.Name, err)
			}
			if br.Cancelled {
				stats.cancelled.Add(1)
				return nil
			}
			res.Bodies[i] = br
			stats.checked.Add(1)

			status := pipeline.StatusDone
			if br.HasErrors() {
				stats.failed.Add(1)
				status = pipeline.StatusError
			}
			if keys != nil {
				if err := opts.Cache.Put(keys[i], br); err != nil {
					stats.cacheErrs.Add(1)
				}
			}
			pipeline.Emit(opts.Progress, pipeline.Event{Body: body.Name, Stage: pipeline.StageInfer, Status: status, Elapsed: time.Since(started)})
			return failFast(opts, br)
		})
	}
	err := g.Wait()

	res.Stats.Checked = stats.checked.Load()
	res.Stats.Cached = stats.cached.Load()
	res.Stats.Failed = stats.failed.Load()
	res.Stats.Cancelled = stats.cancelled.Load()
	res.Stats.CacheErrs = stats.cacheErrs.Load()
	if errors.Is(err, errStopped) {
		return nil
	}
	return err
}

func failFast(opts Options, br *sema.BodyResult) error {
	if opts.Mode == FailFast && br.HasErrors() {
		return errStopped
	}
	return nil
}
