package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/acquiremock/acquiremock-backend/pkg/logger"
	"github.com/acquiremock/acquiremock-backend/pkg/metrics"
)

// Job is one recurring sweep. Each job runs on its own cadence.
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

type entry struct {
	job  Job
	lock Lock
}

// Worker drives registered jobs until its context is canceled. Every job gets
// its own goroutine and ticker; a slow sweep never delays the other.
type Worker struct {
	logg    *logger.Logger
	metrics *metrics.JobMetrics
	entries []entry
}

// NewWorker builds an empty worker.
func NewWorker(logg *logger.Logger, jobMetrics *metrics.JobMetrics) (*Worker, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Worker{logg: logg, metrics: jobMetrics}, nil
}

// Register adds a job. A nil lock means the job runs without cross-instance
// coordination, which is what tests want.
func (w *Worker) Register(job Job, lock Lock) error {
	if job == nil {
		return fmt.Errorf("job required")
	}
	if job.Interval() <= 0 {
		return fmt.Errorf("job %q has no interval", job.Name())
	}
	w.entries = append(w.entries, entry{job: job, lock: lock})
	return nil
}

// Run blocks until the context is canceled and all job loops have drained.
func (w *Worker) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(w.entries) == 0 {
		return fmt.Errorf("no jobs registered")
	}

	var wg sync.WaitGroup
	for _, e := range w.entries {
		wg.Add(1)
		go func(e entry) {
			defer wg.Done()
			w.loop(ctx, e)
		}(e)
	}
	wg.Wait()
	w.logg.Info(ctx, "reconciler stopped")
	return ctx.Err()
}

func (w *Worker) loop(ctx context.Context, e entry) {
	jobCtx := w.logg.WithJob(ctx, e.job.Name())
	w.logg.Info(w.logg.WithField(jobCtx, "interval", e.job.Interval().String()), "sweep loop starting")

	w.runOnce(jobCtx, e)
	ticker := time.NewTicker(e.job.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logg.Info(jobCtx, "sweep loop canceled")
			return
		case <-ticker.C:
			w.runOnce(jobCtx, e)
		}
	}
}

// runOnce executes a single sweep behind the lock. Failures are logged and
// counted; the loop itself keeps going.
func (w *Worker) runOnce(ctx context.Context, e entry) {
	if e.lock != nil {
		locked, err := e.lock.Acquire(ctx)
		if err != nil {
			w.logg.Error(ctx, "lock acquire failed", err)
			return
		}
		if !locked {
			w.logg.Info(ctx, "another instance holds the lock; skipping sweep")
			return
		}
		defer func() {
			if relErr := e.lock.Release(ctx); relErr != nil {
				w.logg.Error(ctx, "lock release failed", relErr)
			}
		}()
	}

	start := time.Now()
	err := e.job.Run(ctx)
	duration := time.Since(start)
	w.metrics.ObserveDuration(e.job.Name(), duration)

	ctx = w.logg.WithField(ctx, "duration_ms", duration.Milliseconds())
	if err != nil {
		w.metrics.IncFailure(e.job.Name())
		w.logg.Error(ctx, "sweep failed", err)
		return
	}
	w.metrics.IncSuccess(e.job.Name())
	w.logg.Info(ctx, "sweep completed")
}
