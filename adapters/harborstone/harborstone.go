// Package harborstone retrieves statements from Harborstone Trust, the most hostile
// backend in the set: the session token is stored encrypted, profile and account
// data only exist as JSON embedded in served HTML, and downloads require a chained
// CSRF document key plus a cross-origin fetch through the extension bridge with a
// short-lived affinity cookie.
package harborstone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"bankops/bank"
	"bankops/fetch"
	"bankops/normalize"
	"bankops/pipeline"
	"bankops/scrape"
	"bankops/session"
)

const (
	BankID   = "harborstone"
	BankName = "Harborstone Trust"

	encryptedTokenKey = "hst.vault.session"
	vaultKeyCookie    = "hst_vault_key"

	affinityCookie = "hst_doc_affinity"
)

// the token page prints the document key as a unicode-escaped JS string literal.
var docKeyPattern = scrape.Pattern{
	Name:           "documentKey",
	Regexp:         regexp.MustCompile(`"documentKey"\s*:\s*"((?:\\u[0-9a-fA-F]{4}|[^"\\])+)"`),
	UnicodeEscaped: true,
}

type Adapter struct {
	BaseURL string
	DocsURL string
	// Fetcher serves same-origin page loads; Bridge serves the cross-origin
	// document host the page's CORS policy blocks.
	Fetcher  fetch.Fetcher
	Bridge   fetch.Fetcher
	Store    session.Store
	resolver session.EncryptedResolver
	now      func() time.Time
}

func Make(baseURL string, docsURL string, fetcher fetch.Fetcher, bridge fetch.Fetcher, store session.Store) *Adapter {
	return &Adapter{
		BaseURL: baseURL,
		DocsURL: docsURL,
		Fetcher: fetcher,
		Bridge:  bridge,
		Store:   store,
		resolver: session.EncryptedResolver{
			TokenSource: session.Source{Kind: session.FromSessionStorage, Key: encryptedTokenKey},
			KeySource:   session.Source{Kind: session.FromCookie, Key: vaultKeyCookie},
		},
		now: time.Now,
	}
}

func (a *Adapter) BankID() string   { return BankID }
func (a *Adapter) BankName() string { return BankName }

func (a *Adapter) SessionID() (string, error) {
	return a.resolver.SessionID(a.Store)
}

func (a *Adapter) getPage(ctx context.Context, sessionID string, path string) (string, error) {
	resp, err := a.Fetcher.Fetch(ctx, fetch.Request{
		Method: http.MethodGet,
		URL:    a.BaseURL + path,
		Header: http.Header{"Authorization": []string{"Bearer " + sessionID}},
	})
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", &bank.AuthError{Status: resp.Status, StatusText: resp.StatusText}
	}
	return string(resp.Body), nil
}

// accountMeta is the composite identifier embedded into AccountID: the opening date
// rides along so the statement window policy never has to re-fetch the account list.
type accountMeta struct {
	Number string `json:"number"`
	Opened string `json:"opened"`
}

func (m accountMeta) String() string {
	b, _ := json.Marshal(m)
	return string(b)
}

func parseAccountMeta(accountID string) (accountMeta, error) {
	var meta accountMeta
	if err := json.Unmarshal([]byte(accountID), &meta); err != nil {
		return meta, fmt.Errorf("parse account meta %q: %w", accountID, err)
	}
	return meta, nil
}

// Profile scrapes the dashboard page. the institution has no identity endpoint, so
// the profile id is the member number lifted from the embedded page state.
func (a *Adapter) Profile(ctx context.Context, sessionID string) (bank.Profile, error) {
	page, err := a.getPage(ctx, sessionID, "/online/dashboard")
	if err != nil {
		return bank.Profile{}, err
	}

	raw, err := scrape.EmbeddedJSON(page, "window.__APP_STATE__")
	if err != nil {
		return bank.Profile{}, err
	}
	state, err := normalize.ParseObject([]byte(raw))
	if err != nil {
		return bank.Profile{}, err
	}
	member, err := state.Obj("member")
	if err != nil {
		return bank.Profile{}, err
	}
	memberNumber, err := member.Str("memberNumber")
	if err != nil {
		return bank.Profile{}, err
	}

	return bank.Profile{
		SessionID: sessionID,
		ProfileID: memberNumber,
		ProfileName: normalize.HolderName(
			member.StrOr("displayName", ""),
			member.StrOr("givenName", ""),
			member.StrOr("familyName", ""),
			memberNumber,
		),
	}, nil
}

func (a *Adapter) Accounts(ctx context.Context, profile bank.Profile) ([]bank.Account, error) {
	page, err := a.getPage(ctx, profile.SessionID, "/online/accounts")
	if err != nil {
		return nil, err
	}

	raw, err := scrape.EmbeddedJSON(page, "window.__APP_STATE__")
	if err != nil {
		return nil, err
	}
	state, err := normalize.ParseObject([]byte(raw))
	if err != nil {
		return nil, err
	}
	items, err := state.Arr("accounts")
	if err != nil {
		return nil, err
	}

	accounts := make([]bank.Account, 0, len(items))
	for _, item := range items {
		number, err := item.Str("accountNumber")
		if err != nil {
			return nil, err
		}
		opened, err := normalize.Date(item.StrOr("openedDate", ""))
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, bank.Account{
			Profile:     profile,
			AccountID:   accountMeta{Number: number, Opened: opened}.String(),
			AccountName: item.StrOr("displayName", number),
			AccountMask: normalize.Mask(number),
			Type:        bank.MapAccountType(item.StrOr("kind", ""), bank.Checking),
		})
	}
	accounts = bank.DedupAccounts(accounts)

	if len(accounts) == 0 {
		return nil, &bank.NoDataError{Subject: "accounts"}
	}
	return accounts, nil
}

func (a *Adapter) Statements(ctx context.Context, account bank.Account) ([]bank.Statement, error) {
	meta, err := parseAccountMeta(account.AccountID)
	if err != nil {
		return nil, err
	}
	opened, err := time.Parse(normalize.ISODate, meta.Opened)
	if err != nil {
		return nil, fmt.Errorf("parse account open date %q: %w", meta.Opened, err)
	}

	// months since the account opened, still capped at the archive's trailing seven
	// years; the open date usually constrains far tighter.
	policy := pipeline.WindowPolicy{
		Unit:     pipeline.ByMonth,
		Trailing: pipeline.TrailingSevenYears * 12,
		OpenedAt: opened,
	}

	statements := pipeline.CollectWindows(ctx, policy.Windows(a.now()), func(ctx context.Context, w pipeline.Window) ([]bank.Statement, error) {
		query := url.Values{
			"account": []string{meta.Number},
			"period":  []string{w.Start.Format("200601")},
		}
		resp, err := a.Fetcher.Fetch(ctx, fetch.Request{
			Method: http.MethodGet,
			URL:    a.BaseURL + "/online/api/statements?" + query.Encode(),
			Header: http.Header{"Authorization": []string{"Bearer " + account.Profile.SessionID}},
		})
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return nil, fmt.Errorf("list statements period %s: status=%d %s", w.Start.Format("200601"), resp.Status, resp.StatusText)
		}

		outer, err := normalize.ParseObject(resp.Body)
		if err != nil {
			return nil, err
		}
		items, err := outer.Arr("items")
		if err != nil {
			return nil, err
		}

		statements := make([]bank.Statement, 0, len(items))
		for _, item := range items {
			seq, err := item.Str("sequence")
			if err != nil {
				return nil, err
			}
			date, err := normalize.Date(item.StrOr("cycleDate", ""))
			if err != nil {
				return nil, err
			}
			statements = append(statements, bank.Statement{
				Account: account,
				StatementID: bank.StatementRef{
					DocumentID: meta.Number,
					Sequence:   seq,
					FromDate:   w.Start.Format(normalize.ISODate),
					ToDate:     w.End.Format(normalize.ISODate),
				}.String(),
				Date: date,
			})
		}
		return statements, nil
	})

	if len(statements) == 0 {
		return nil, &bank.NoDataError{Subject: "statements"}
	}
	return statements, nil
}

// Download chains two dependent steps: resolve the one-shot document key from the
// statements page, then fetch the pdf from the cross-origin document host through
// the bridge, carrying the key and a scoped affinity cookie on that single request.
func (a *Adapter) Download(ctx context.Context, statement bank.Statement) (bank.Document, error) {
	ref, err := bank.ParseStatementRef(statement.StatementID)
	if err != nil {
		return bank.Document{}, err
	}
	sessionID := statement.Account.Profile.SessionID

	tokenStep := pipeline.TokenStep{
		Name: "harborstone document key",
		Request: fetch.Request{
			Method: http.MethodGet,
			URL:    a.BaseURL + "/online/statements/view?seq=" + url.QueryEscape(ref.Sequence),
			Header: http.Header{"Authorization": []string{"Bearer " + sessionID}},
		},
		Pattern: docKeyPattern,
	}
	docKey, err := tokenStep.Resolve(ctx, a.Fetcher)
	if err != nil {
		return bank.Document{}, err
	}

	query := url.Values{
		"account":  []string{ref.DocumentID},
		"sequence": []string{ref.Sequence},
		"key":      []string{docKey},
	}
	resp, err := a.Bridge.Fetch(ctx, fetch.Request{
		Method: http.MethodGet,
		URL:    a.DocsURL + "/render/pdf?" + query.Encode(),
		Header: http.Header{"Authorization": []string{"Bearer " + sessionID}},
		// the document host routes by this cookie. it is attached to this single
		// request only and never written back to shared browser state.
		Cookies: []*http.Cookie{{Name: affinityCookie, Value: docKey}},
	})
	if err != nil {
		return bank.Document{}, err
	}
	if !resp.OK() {
		return bank.Document{}, &bank.DownloadError{Status: resp.Status, StatusText: resp.StatusText}
	}

	doc := bank.Document{Data: resp.Body, ContentType: resp.ContentType()}
	if err := normalize.ValidateDocument(doc); err != nil {
		return bank.Document{}, err
	}
	return doc, nil
}
