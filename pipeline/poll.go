package pipeline

import (
	"bankops/bank"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// cache-or-create-and-poll: some backends do not store a document until explicitly
// asked. the download first scans for an already-generated match; only on a miss does
// it issue a create call and poll the job until the backend reports it ready.

// Clock abstracts the poll delay so tests run the state machine without real sleeps.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func RealClock() Clock { return realClock{} }

// DefaultPollInterval matches the observed backend behavior: a fixed delay between
// status checks, no backoff.
const DefaultPollInterval = time.Second

type JobState string

const (
	JobPending  JobState = "PENDING"
	JobReady    JobState = "READY"
	JobFetched  JobState = "FETCHED"
	JobTimedOut JobState = "TIMED_OUT"
)

// PollConfig bounds the poll loop. MaxAttempts has no default: the ceiling must be
// an explicit, adapter-chosen value so an unresponsive backend can never spin the
// loop forever.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
	Clock       Clock
}

func (c PollConfig) normalize() (PollConfig, error) {
	if c.MaxAttempts <= 0 {
		return c, fmt.Errorf("poll ceiling must be explicit and positive, got %d", c.MaxAttempts)
	}
	if c.Interval <= 0 {
		c.Interval = DefaultPollInterval
	}
	if c.Clock == nil {
		c.Clock = RealClock()
	}
	return c, nil
}

// Materializer wires one backend's document workflow into the shared state machine.
// Refresh and Create are mutually exclusive paths to a handle; Status and Fetch are
// the dependent, strictly sequential tail.
type Materializer struct {
	// Refresh scans the backend's document list for an existing match by title/date.
	// found=true means the handle is immediately downloadable.
	Refresh func(ctx context.Context) (handle string, found bool, err error)
	// Create requests generation. pending=true means the handle is an asynchronous
	// job reference that must be polled; pending=false means it is ready now.
	Create func(ctx context.Context) (handle string, pending bool, err error)
	// Status reports whether an asynchronous job reached its terminal ready signal.
	Status func(ctx context.Context, handle string) (ready bool, err error)
	// Fetch downloads the materialized document.
	Fetch func(ctx context.Context, handle string) (bank.Document, error)

	Poll PollConfig
}

// Download drives the state machine Pending -> Ready -> Fetched, or Pending ->
// TimedOut when the poll ceiling is exhausted. a refresh hit goes straight to Ready
// with zero create and zero poll calls.
func (m Materializer) Download(ctx context.Context) (bank.Document, error) {
	handle, found, err := m.Refresh(ctx)
	if err != nil {
		return bank.Document{}, fmt.Errorf("refresh document list: %w", err)
	}

	state := JobPending
	if found {
		state = JobReady
		slog.InfoContext(ctx, "document already materialized by backend", "handle", handle)
	} else {
		handle, state, err = m.create(ctx)
		if err != nil {
			return bank.Document{}, err
		}
	}

	if state == JobPending {
		state, err = m.poll(ctx, handle)
		if err != nil {
			return bank.Document{}, err
		}
	}
	if state == JobTimedOut {
		return bank.Document{}, &bank.DownloadTimeoutError{Attempts: m.Poll.MaxAttempts}
	}

	doc, err := m.Fetch(ctx, handle)
	if err != nil {
		return bank.Document{}, fmt.Errorf("fetch materialized document %s: %w", handle, err)
	}

	slog.InfoContext(ctx, "materialized document", "handle", handle, "state", JobFetched, "bytes", len(doc.Data))
	return doc, nil
}

func (m Materializer) create(ctx context.Context) (string, JobState, error) {
	handle, pending, err := m.Create(ctx)
	if err != nil {
		return "", JobPending, fmt.Errorf("create document: %w", err)
	}
	if pending {
		slog.InfoContext(ctx, "created asynchronous document job", "handle", handle)
		return handle, JobPending, nil
	}
	return handle, JobReady, nil
}

func (m Materializer) poll(ctx context.Context, handle string) (JobState, error) {
	cfg, err := m.Poll.normalize()
	if err != nil {
		return JobPending, err
	}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := cfg.Clock.Sleep(ctx, cfg.Interval); err != nil {
			return JobPending, fmt.Errorf("poll cancelled on attempt %d: %w", attempt, err)
		}

		ready, err := m.Status(ctx, handle)
		if err != nil {
			return JobPending, fmt.Errorf("poll document status attempt %d: %w", attempt, err)
		}
		slog.InfoContext(ctx, "polled document job", "handle", handle, "attempt", attempt, "ready", ready)
		if ready {
			return JobReady, nil
		}
	}
	return JobTimedOut, nil
}
