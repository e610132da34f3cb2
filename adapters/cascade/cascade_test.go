package cascade

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"bankops/bank"
	"bankops/fetch"
	"bankops/session"
	"bankops/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)

type gqlCall struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// backend is a scripted GraphQL server: it dispatches on the query text the same way
// the real schema dispatches on the operation.
type backend struct {
	*httptest.Server
	renderCalls atomic.Int32
	statusCalls atomic.Int32
	// statusReadyAfter is how many status polls report PENDING before READY.
	statusReadyAfter int32
	renderedDocs     string
	contentPath      atomic.Value
}

func makeCascadeBackend(t *testing.T) *backend {
	b := &backend{renderedDocs: `[]`}
	mux := http.NewServeMux()

	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-local" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		var call gqlCall
		require.NoError(t, json.NewDecoder(r.Body).Decode(&call))

		switch {
		case strings.Contains(call.Query, "memberId firstName"):
			fmt.Fprint(w, `{"data":{"viewer":{"memberId":"m-7","firstName":"Sam","lastName":"Rivera"}}}`)
		case strings.Contains(call.Query, "accounts { id"):
			fmt.Fprint(w, `{"data":{"viewer":{"accounts":[
				{"id":"sh-1","name":"Regular Share","maskedNumber":"xx8821","productCode":"SHARE"},
				{"id":"dd-1","name":"Draft Chequing","maskedNumber":"xx8822","productCode":"DDA"}
			]}}}`)
		case strings.Contains(call.Query, "statements(accountId"):
			if call.Variables["from"] == "2025-01-01" {
				fmt.Fprint(w, `{"data":{"statements":[
					{"documentId":"st-2025-09","periodEnd":"2025-09-30","description":"September 2025 Statement"}
				]}}`)
			} else {
				fmt.Fprint(w, `{"data":{"statements":[]}}`)
			}
		case strings.Contains(call.Query, "documents(accountId"):
			fmt.Fprintf(w, `{"data":{"documents":%s}}`, b.renderedDocs)
		case strings.Contains(call.Query, "renderDocument"):
			b.renderCalls.Add(1)
			fmt.Fprint(w, `{"data":{"renderDocument":{"jobId":"job-1","status":"PENDING"}}}`)
		case strings.Contains(call.Query, "renderJob"):
			n := b.statusCalls.Add(1)
			if n > b.statusReadyAfter {
				fmt.Fprint(w, `{"data":{"renderJob":{"status":"READY","documentId":"st-2025-09"}}}`)
			} else {
				fmt.Fprint(w, `{"data":{"renderJob":{"status":"PENDING","documentId":"st-2025-09"}}}`)
			}
		default:
			t.Fatalf("unexpected graphql query: %s", call.Query)
		}
	})
	mux.HandleFunc("/documents/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-local" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		b.contentPath.Store(r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(testutil.SeedPDF(16 * 1024))
	})

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func makeAdapter(b *backend) *Adapter {
	store := &session.SnapshotStore{LocalStorage: map[string]string{"cascade.auth.token": "tok-local"}}
	adapter := Make(b.URL, fetch.MakeClient(b.Client(), nil), store)
	adapter.Clock = testutil.MakeFakeClock()
	adapter.now = func() time.Time { return testNow }
	return adapter
}

func TestSessionID_FallbackChain(t *testing.T) {
	for _, test := range []struct {
		name  string
		store session.SnapshotStore
		want  string
	}{
		{
			name: "localStorage token preferred",
			store: session.SnapshotStore{
				LocalStorage:   map[string]string{"cascade.auth.token": "tok-local"},
				SessionStorage: map[string]string{"cascade:session": "tok-session"},
			},
			want: "tok-local",
		},
		{
			name:  "sessionStorage fallback",
			store: session.SnapshotStore{SessionStorage: map[string]string{"cascade:session": "tok-session"}},
			want:  "tok-session",
		},
		{
			name:  "legacy key last",
			store: session.SnapshotStore{SessionStorage: map[string]string{"ccu-token": "tok-legacy"}},
			want:  "tok-legacy",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			adapter := Make("http://unused", nil, &test.store)
			sessionID, err := adapter.SessionID()
			require.NoError(t, err)
			assert.Equal(t, test.want, sessionID)
		})
	}

	adapter := Make("http://unused", nil, &session.SnapshotStore{})
	_, err := adapter.SessionID()
	assert.ErrorIs(t, err, bank.ErrSessionNotFound)
}

func TestProfileAndAccounts(t *testing.T) {
	ctx := context.Background()
	adapter := makeAdapter(makeCascadeBackend(t))

	profile, err := adapter.Profile(ctx, "tok-local")
	require.NoError(t, err)
	assert.Equal(t, bank.Profile{SessionID: "tok-local", ProfileID: "m-7", ProfileName: "Sam Rivera"}, profile)

	accounts, err := adapter.Accounts(ctx, profile)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, bank.Savings, accounts[0].Type)
	assert.Equal(t, "8821", accounts[0].AccountMask)
	assert.Equal(t, bank.Checking, accounts[1].Type)
}

func TestStatements_YearlyWindows(t *testing.T) {
	adapter := makeAdapter(makeCascadeBackend(t))
	account := bank.Account{Profile: bank.Profile{SessionID: "tok-local"}, AccountID: "sh-1"}

	statements, err := adapter.Statements(context.Background(), account)
	require.NoError(t, err)

	require.Len(t, statements, 1)
	assert.Equal(t, "2025-09-30", statements[0].Date)

	ref, err := bank.ParseStatementRef(statements[0].StatementID)
	require.NoError(t, err)
	assert.Equal(t, "st-2025-09", ref.DocumentID)
	assert.Equal(t, "September 2025 Statement", ref.Code)
	assert.Equal(t, "2025-09-30", ref.ToDate)
}

func statementFixture(account bank.Account) bank.Statement {
	return bank.Statement{
		Account: account,
		StatementID: bank.StatementRef{
			DocumentID: "st-2025-09",
			Code:       "September 2025 Statement",
			ToDate:     "2025-09-30",
		}.String(),
		Date: "2025-09-30",
	}
}

func TestDownload_CachedDocumentSkipsRender(t *testing.T) {
	b := makeCascadeBackend(t)
	b.renderedDocs = `[{"id":"content-77","title":"September 2025 Statement","date":"2025-09-30"}]`
	adapter := makeAdapter(b)
	account := bank.Account{Profile: bank.Profile{SessionID: "tok-local"}, AccountID: "sh-1"}

	doc, err := adapter.Download(context.Background(), statementFixture(account))
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Data)

	// a cache hit must not touch the render pipeline at all, and the fetch uses
	// the listed content handle.
	assert.Zero(t, b.renderCalls.Load())
	assert.Zero(t, b.statusCalls.Load())
	assert.Equal(t, "/documents/content-77/content", b.contentPath.Load())
}

func TestDownload_RendersAndPolls(t *testing.T) {
	b := makeCascadeBackend(t)
	b.statusReadyAfter = 2
	adapter := makeAdapter(b)
	account := bank.Account{Profile: bank.Profile{SessionID: "tok-local"}, AccountID: "sh-1"}

	doc, err := adapter.Download(context.Background(), statementFixture(account))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)

	assert.Equal(t, int32(1), b.renderCalls.Load())
	assert.Equal(t, int32(3), b.statusCalls.Load())
	// the content fetch uses the document id the ready job reports, not the job id.
	assert.Equal(t, "/documents/st-2025-09/content", b.contentPath.Load())
}

func TestDownload_PollCeiling(t *testing.T) {
	b := makeCascadeBackend(t)
	b.statusReadyAfter = 1000
	adapter := makeAdapter(b)
	account := bank.Account{Profile: bank.Profile{SessionID: "tok-local"}, AccountID: "sh-1"}

	_, err := adapter.Download(context.Background(), statementFixture(account))

	var timeoutErr *bank.DownloadTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, renderPollCeiling, timeoutErr.Attempts)
	assert.Equal(t, int32(renderPollCeiling), b.statusCalls.Load())
}

func TestQuery_GraphQLErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":null,"errors":[{"message":"member not entitled to documents"}]}`)
	}))
	t.Cleanup(server.Close)

	adapter := Make(server.URL, fetch.MakeClient(server.Client(), nil), &session.SnapshotStore{})

	_, err := adapter.Profile(context.Background(), "tok-local")
	var malformedErr *bank.MalformedResponseError
	require.ErrorAs(t, err, &malformedErr)
	assert.Equal(t, "member not entitled to documents", malformedErr.Detail)
}
