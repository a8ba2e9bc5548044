package river

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
)

// EventWorker processes signup event jobs from the River queue.
type EventWorker struct {
	river.WorkerDefaults[SignupEventJobArgs]
}

// Work processes a single event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[SignupEventJobArgs]) error {
	slog.InfoContext(ctx, "processing signup event",
		"event", job.Args.Event,
		"session_id", job.Args.SessionID,
		"state", job.Args.State,
		"result", job.Args.ResultKind,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}

// SweepJobArgs triggers removal of idle signup sessions.
type SweepJobArgs struct{}

// Kind returns the unique job type identifier used by River's job routing.
func (SweepJobArgs) Kind() string { return "signup.sweep" }

// StaleDeleter removes sessions last touched before a cutoff.
type StaleDeleter interface {
	DeleteStale(ctx context.Context, before time.Time) (int, error)
}

// SweepWorker deletes sessions idle for longer than TTL.
type SweepWorker struct {
	river.WorkerDefaults[SweepJobArgs]

	Store StaleDeleter
	TTL   time.Duration
}

// Work runs one sweep. A non-positive TTL would delete every session, so the
// job is cancelled instead of retried.
func (w *SweepWorker) Work(ctx context.Context, job *river.Job[SweepJobArgs]) error {
	if w.TTL <= 0 {
		return river.JobCancel(fmt.Errorf("sweep ttl must be positive, got %s", w.TTL))
	}
	n, err := w.Store.DeleteStale(ctx, time.Now().UTC().Add(-w.TTL))
	if err != nil {
		return fmt.Errorf("sweeping idle sessions: %w", err)
	}
	slog.InfoContext(ctx, "swept idle signup sessions",
		"deleted", n,
		"ttl", w.TTL,
		"job_id", job.ID,
	)
	return nil
}
