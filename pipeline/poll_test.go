package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"bankops/bank"
	"bankops/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type materializerCalls struct {
	refresh, create, status, fetch int
}

func TestMaterializer_RefreshHitSkipsCreateAndPoll(t *testing.T) {
	var calls materializerCalls
	clock := testutil.MakeFakeClock()

	m := Materializer{
		Refresh: func(ctx context.Context) (string, bool, error) {
			calls.refresh++
			return "doc-cached", true, nil
		},
		Create: func(ctx context.Context) (string, bool, error) {
			calls.create++
			return "", false, errors.New("must not be called")
		},
		Status: func(ctx context.Context, handle string) (bool, error) {
			calls.status++
			return false, errors.New("must not be called")
		},
		Fetch: func(ctx context.Context, handle string) (bank.Document, error) {
			calls.fetch++
			assert.Equal(t, "doc-cached", handle)
			return bank.Document{Data: testutil.SeedPDF(64), ContentType: "application/pdf"}, nil
		},
		Poll: PollConfig{MaxAttempts: 30, Clock: clock},
	}

	doc, err := m.Download(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Data)

	assert.Equal(t, materializerCalls{refresh: 1, fetch: 1}, calls)
	assert.Empty(t, clock.Sleeps)
}

func TestMaterializer_CreateThenPollUntilReady(t *testing.T) {
	var calls materializerCalls
	clock := testutil.MakeFakeClock()

	m := Materializer{
		Refresh: func(ctx context.Context) (string, bool, error) {
			calls.refresh++
			return "", false, nil
		},
		Create: func(ctx context.Context) (string, bool, error) {
			calls.create++
			return "job-17", true, nil
		},
		Status: func(ctx context.Context, handle string) (bool, error) {
			calls.status++
			return calls.status >= 3, nil
		},
		Fetch: func(ctx context.Context, handle string) (bank.Document, error) {
			calls.fetch++
			assert.Equal(t, "job-17", handle)
			return bank.Document{Data: testutil.SeedPDF(64), ContentType: "application/pdf"}, nil
		},
		Poll: PollConfig{Interval: 250 * time.Millisecond, MaxAttempts: 30, Clock: clock},
	}

	_, err := m.Download(context.Background())
	require.NoError(t, err)

	assert.Equal(t, materializerCalls{refresh: 1, create: 1, status: 3, fetch: 1}, calls)
	// the loop sleeps before each status check, never after the last.
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond}, clock.Sleeps)
}

func TestMaterializer_SynchronousCreateSkipsPoll(t *testing.T) {
	var calls materializerCalls
	clock := testutil.MakeFakeClock()

	m := Materializer{
		Refresh: func(ctx context.Context) (string, bool, error) { return "", false, nil },
		Create:  func(ctx context.Context) (string, bool, error) { return "doc-now", false, nil },
		Status: func(ctx context.Context, handle string) (bool, error) {
			calls.status++
			return false, errors.New("must not be called")
		},
		Fetch: func(ctx context.Context, handle string) (bank.Document, error) {
			return bank.Document{Data: testutil.SeedPDF(64)}, nil
		},
		Poll: PollConfig{MaxAttempts: 30, Clock: clock},
	}

	_, err := m.Download(context.Background())
	require.NoError(t, err)
	assert.Zero(t, calls.status)
	assert.Empty(t, clock.Sleeps)
}

func TestMaterializer_PollCeilingTimesOut(t *testing.T) {
	var calls materializerCalls
	clock := testutil.MakeFakeClock()

	m := Materializer{
		Refresh: func(ctx context.Context) (string, bool, error) { return "", false, nil },
		Create:  func(ctx context.Context) (string, bool, error) { return "job-17", true, nil },
		Status: func(ctx context.Context, handle string) (bool, error) {
			calls.status++
			return false, nil
		},
		Fetch: func(ctx context.Context, handle string) (bank.Document, error) {
			calls.fetch++
			return bank.Document{}, nil
		},
		Poll: PollConfig{MaxAttempts: 5, Clock: clock},
	}

	_, err := m.Download(context.Background())

	var timeoutErr *bank.DownloadTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 5, timeoutErr.Attempts)
	assert.Equal(t, 5, calls.status)
	assert.Zero(t, calls.fetch)
}

func TestMaterializer_MissingPollCeilingIsAnError(t *testing.T) {
	m := Materializer{
		Refresh: func(ctx context.Context) (string, bool, error) { return "", false, nil },
		Create:  func(ctx context.Context) (string, bool, error) { return "job-17", true, nil },
	}

	_, err := m.Download(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll ceiling")
}

func TestMaterializer_CancelledContextStopsPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := Materializer{
		Refresh: func(ctx context.Context) (string, bool, error) { return "", false, nil },
		Create:  func(ctx context.Context) (string, bool, error) { return "job-17", true, nil },
		Status:  func(ctx context.Context, handle string) (bool, error) { return false, nil },
		Poll:    PollConfig{MaxAttempts: 30, Clock: testutil.MakeFakeClock()},
	}

	_, err := m.Download(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
