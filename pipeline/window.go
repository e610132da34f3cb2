package pipeline

import (
	"bankops/bank"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// windowed pagination: the backend only answers "statements in period P", so listing
// means iterating a bounded set of periods, one request per period, and continuing
// past any single-period failure rather than aborting the whole listing.

type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) String() string {
	return fmt.Sprintf("%s..%s", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

type WindowUnit string

const (
	ByMonth WindowUnit = "month"
	ByYear  WindowUnit = "year"
)

// lookback bounds observed per institution. kept as named constants rather than
// inline numbers so each adapter states its policy explicitly.
const (
	TrailingTwelveMonths = 12
	TrailingSevenYears   = 7
)

// WindowPolicy is the iteration bound for one adapter's listing. Trailing caps the
// number of periods; OpenedAt, when known, tightens the bound further so we never
// query before the account existed.
type WindowPolicy struct {
	Unit     WindowUnit
	Trailing int
	OpenedAt time.Time
}

// Windows materializes the policy into concrete periods, newest first.
func (p WindowPolicy) Windows(now time.Time) []Window {
	var windows []Window
	for i := range p.Trailing {
		var window Window
		switch p.Unit {
		case ByYear:
			year := now.Year() - i
			window = Window{
				Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-time.Second),
			}
		default:
			start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
			window = Window{
				Start: start,
				End:   start.AddDate(0, 1, 0).Add(-time.Second),
			}
		}

		if !p.OpenedAt.IsZero() && window.End.Before(p.OpenedAt) {
			// whichever bound constrains tighter wins. periods entirely before the
			// account open date cannot contain statements.
			break
		}
		windows = append(windows, window)
	}
	return windows
}

type WindowResult struct {
	Window     Window
	Statements []bank.Statement
	Err        error
}

// CollectWindows issues one listing call per window concurrently (the calls are
// independent), accumulates all results and skips failed periods: one bad month must
// not fail the whole listing. the merged list is sorted descending by statement date
// regardless of what the source guarantees.
func CollectWindows(ctx context.Context, windows []Window, list func(ctx context.Context, w Window) ([]bank.Statement, error)) []bank.Statement {
	start := time.Now()
	results := make([]WindowResult, len(windows))

	var wg sync.WaitGroup
	for i, window := range windows {
		wg.Add(1)
		go func() {
			defer wg.Done()
			statements, err := list(ctx, window)
			results[i] = WindowResult{Window: window, Statements: statements, Err: err}
		}()
	}
	wg.Wait()

	var statements []bank.Statement
	var skipped int
	for _, result := range results {
		if result.Err != nil {
			skipped++
			slog.ErrorContext(ctx, "skipping failed statement window", "window", result.Window.String(), "err", result.Err)
			continue
		}
		statements = append(statements, result.Statements...)
	}

	SortStatements(statements)

	slog.InfoContext(ctx, "collected statement windows", "windows", len(windows), "skipped", skipped, "statements", len(statements), "elapsed", time.Since(start))
	return statements
}

// SortStatements orders statements descending by date. ISO-8601 dates compare
// correctly as strings.
func SortStatements(statements []bank.Statement) {
	slices.SortFunc(statements, func(left, right bank.Statement) int {
		if c := cmpString(right.Date, left.Date); c != 0 {
			return c
		}
		// stable tiebreak for equal dates so listings are deterministic.
		return cmpString(left.StatementID, right.StatementID)
	})
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
