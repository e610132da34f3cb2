package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the direct Fetcher for same-origin calls.
type Client struct {
	HTTP Doer
	// Header entries are applied to every request, typically the session header and
	// a stable user agent the institution expects.
	Header http.Header
}

func MakeClient(doer Doer, header http.Header) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{HTTP: doer, Header: header}
}

func (c *Client) Fetch(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return Response{}, fmt.Errorf("build request %s %s: %w", req.Method, req.URL, err)
	}
	for name, values := range c.Header {
		for _, value := range values {
			httpReq.Header.Add(name, value)
		}
	}
	for name, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(name, value)
		}
	}
	for _, cookie := range req.Cookies {
		httpReq.AddCookie(cookie)
	}

	httpResp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("fetch %s %s: %w", req.Method, req.URL, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response body for %s: %w", req.URL, err)
	}

	slog.InfoContext(ctx, "fetched url", "method", req.Method, "url", req.URL, "status", httpResp.StatusCode, "bytes", len(respBody), "elapsed", time.Since(start))

	return Response{
		Status:     httpResp.StatusCode,
		StatusText: http.StatusText(httpResp.StatusCode),
		Header:     httpResp.Header,
		Body:       respBody,
	}, nil
}
