package pipeline

import (
	"bankops/bank"
	"context"
	"fmt"
	"log/slog"

	"bankops/fetch"
	"bankops/scrape"
)

// multi-step token chaining: some backends require an intermediate CSRF or
// document-key token resolved from a prior page before the download call is valid.
// modeled as a named pre-step so it composes with windowing and materialization
// instead of living inline in adapter download code.

type TokenStep struct {
	Name    string
	Request fetch.Request
	Pattern scrape.Pattern
}

// Resolve fetches the token page and extracts the decoded token value. the dependent
// request must not be issued until this returns.
func (s TokenStep) Resolve(ctx context.Context, fetcher fetch.Fetcher) (string, error) {
	resp, err := fetcher.Fetch(ctx, s.Request)
	if err != nil {
		return "", fmt.Errorf("token step %s: %w", s.Name, err)
	}
	if !resp.OK() {
		return "", fmt.Errorf("token step %s: %w", s.Name, &bank.DownloadError{Status: resp.Status, StatusText: resp.StatusText})
	}

	token, err := s.Pattern.Extract(string(resp.Body))
	if err != nil {
		return "", fmt.Errorf("token step %s: %w", s.Name, err)
	}

	slog.InfoContext(ctx, "resolved chained token", "step", s.Name, "url", s.Request.URL)
	return token, nil
}
