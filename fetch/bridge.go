package fetch

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Bridge relays a fetch to a privileged context when a download is blocked by CORS.
// the wire contract mirrors the extension's requestFetch message action.
type Bridge interface {
	RequestFetch(ctx context.Context, req BridgeRequest) (BridgeResponse, error)
}

type BridgeRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
	Cookie  string            `json:"cookie,omitempty"`
}

type BridgeResponse struct {
	OK         bool              `json:"ok"`
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	// Body is either a plain string or a base64 data URL for binary payloads.
	Body string `json:"body"`
}

// BridgeClient adapts a Bridge into a Fetcher so cross-origin adapters compose with
// the same pipeline as direct ones.
type BridgeClient struct {
	Bridge Bridge
}

func (c *BridgeClient) Fetch(ctx context.Context, req Request) (Response, error) {
	bridgeReq := BridgeRequest{
		Method:  req.Method,
		URL:     req.URL,
		Headers: flattenHeader(req.Header),
	}
	if len(req.Body) > 0 {
		bridgeReq.Body = string(req.Body)
	}
	var cookiePairs []string
	for _, cookie := range req.Cookies {
		cookiePairs = append(cookiePairs, cookie.Name+"="+cookie.Value)
	}
	bridgeReq.Cookie = strings.Join(cookiePairs, "; ")

	bridgeResp, err := c.Bridge.RequestFetch(ctx, bridgeReq)
	if err != nil {
		return Response{}, fmt.Errorf("bridge fetch %s %s: %w", req.Method, req.URL, err)
	}

	body, err := decodeBridgeBody(bridgeResp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("decode bridge body for %s: %w", req.URL, err)
	}

	header := make(http.Header, len(bridgeResp.Headers))
	for name, value := range bridgeResp.Headers {
		header.Set(name, value)
	}

	slog.InfoContext(ctx, "fetched url through bridge", "method", req.Method, "url", req.URL, "status", bridgeResp.Status, "bytes", len(body))

	return Response{
		Status:     bridgeResp.Status,
		StatusText: bridgeResp.StatusText,
		Header:     header,
		Body:       body,
	}, nil
}

// decodeBridgeBody handles the two body encodings the bridge emits: a data URL with a
// base64 payload for binaries, and a plain string for everything else.
func decodeBridgeBody(body string) ([]byte, error) {
	if data, found := strings.CutPrefix(body, "data:"); found {
		meta, payload, ok := strings.Cut(data, ",")
		if !ok {
			return nil, fmt.Errorf("data url has no payload separator")
		}
		if strings.HasSuffix(meta, ";base64") {
			decoded, err := base64.StdEncoding.DecodeString(payload)
			if err != nil {
				return nil, fmt.Errorf("decode base64 payload: %w", err)
			}
			return decoded, nil
		}
		return []byte(payload), nil
	}
	return []byte(body), nil
}

func flattenHeader(header http.Header) map[string]string {
	if len(header) == 0 {
		return nil
	}
	flat := make(map[string]string, len(header))
	for name := range header {
		flat[name] = header.Get(name)
	}
	return flat
}
