package fetch

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBridge struct {
	gotReq BridgeRequest
	resp   BridgeResponse
	err    error
}

func (b *fakeBridge) RequestFetch(ctx context.Context, req BridgeRequest) (BridgeResponse, error) {
	b.gotReq = req
	return b.resp, b.err
}

func TestBridgeClientFetch(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake body")
	bridge := &fakeBridge{resp: BridgeResponse{
		OK:         true,
		Status:     200,
		StatusText: "OK",
		Headers:    map[string]string{"content-type": "application/pdf"},
		Body:       "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf),
	}}
	client := &BridgeClient{Bridge: bridge}

	resp, err := client.Fetch(context.Background(), Request{
		Method: http.MethodGet,
		URL:    "https://docs.example.com/render/pdf?sequence=17",
		Header: http.Header{"X-Doc-Key": {"k/2025/09"}},
		Cookies: []*http.Cookie{
			{Name: "affinity", Value: "node-3"},
			{Name: "session", Value: "s-1"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "application/pdf", resp.ContentType())
	assert.Equal(t, pdf, resp.Body)

	assert.Equal(t, "k/2025/09", bridge.gotReq.Headers["X-Doc-Key"])
	assert.Equal(t, "affinity=node-3; session=s-1", bridge.gotReq.Cookie)
}

func TestDecodeBridgeBody(t *testing.T) {
	for _, test := range []struct {
		name  string
		body  string
		want  []byte
		isErr bool
	}{
		{name: "plain string", body: `{"ok":true}`, want: []byte(`{"ok":true}`)},
		{name: "base64 data url", body: "data:application/pdf;base64,JVBERi0=", want: []byte("%PDF-")},
		{name: "non-base64 data url", body: "data:text/plain,hello", want: []byte("hello")},
		{name: "data url without payload", body: "data:application/pdf;base64", isErr: true},
		{name: "corrupt base64", body: "data:application/pdf;base64,!!!", isErr: true},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := decodeBridgeBody(test.body)
			if test.isErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}
