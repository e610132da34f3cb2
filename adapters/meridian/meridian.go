// Package meridian retrieves statements from Meridian Bank's private web API: a
// cookie-authenticated REST backend that wraps every payload in a {"data": ...}
// envelope and lists statements per calendar month.
package meridian

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"bankops/bank"
	"bankops/fetch"
	"bankops/normalize"
	"bankops/pipeline"
	"bankops/session"

	"golang.org/x/sync/errgroup"
)

const (
	BankID   = "meridian"
	BankName = "Meridian Bank"

	sessionCookie = "XSRF-TOKEN"
	csrfHeader    = "X-XSRF-TOKEN"
)

// statements are only listed per month and the backend keeps a trailing year online.
var windowPolicy = pipeline.WindowPolicy{Unit: pipeline.ByMonth, Trailing: pipeline.TrailingTwelveMonths}

type Adapter struct {
	BaseURL  string
	Fetcher  fetch.Fetcher
	Store    session.Store
	resolver session.ChainResolver
	now      func() time.Time
}

func Make(baseURL string, fetcher fetch.Fetcher, store session.Store) *Adapter {
	return &Adapter{
		BaseURL:  baseURL,
		Fetcher:  fetcher,
		Store:    store,
		resolver: session.CookieResolver(sessionCookie),
		now:      time.Now,
	}
}

func (a *Adapter) BankID() string   { return BankID }
func (a *Adapter) BankName() string { return BankName }

func (a *Adapter) SessionID() (string, error) {
	return a.resolver.SessionID(a.Store)
}

func (a *Adapter) get(ctx context.Context, sessionID string, path string) (fetch.Response, error) {
	return a.Fetcher.Fetch(ctx, fetch.Request{
		Method: http.MethodGet,
		URL:    a.BaseURL + path,
		Header: http.Header{csrfHeader: []string{sessionID}},
	})
}

func (a *Adapter) Profile(ctx context.Context, sessionID string) (bank.Profile, error) {
	resp, err := a.get(ctx, sessionID, "/api/v2/profile")
	if err != nil {
		return bank.Profile{}, err
	}
	if !resp.OK() {
		return bank.Profile{}, &bank.AuthError{Status: resp.Status, StatusText: resp.StatusText}
	}

	data, err := normalize.Unwrap(resp.Body, "data")
	if err != nil {
		return bank.Profile{}, err
	}
	customerID, err := data.Str("customerId")
	if err != nil {
		return bank.Profile{}, err
	}

	return bank.Profile{
		SessionID: sessionID,
		ProfileID: customerID,
		ProfileName: normalize.HolderName(
			data.StrOr("fullName", ""),
			data.StrOr("firstName", ""),
			data.StrOr("lastName", ""),
			customerID,
		),
	}, nil
}

// Accounts merges the two account collections the backend splits across endpoints.
// deposit products and card products are independent requests, so they run
// concurrently; cards that also show up under deposits are deduplicated.
func (a *Adapter) Accounts(ctx context.Context, profile bank.Profile) ([]bank.Account, error) {
	endpoints := []struct {
		path     string
		fallback bank.AccountType
	}{
		{path: "/api/v2/accounts/deposits", fallback: bank.Checking},
		{path: "/api/v2/accounts/cards", fallback: bank.CreditCard},
	}
	collections := make([][]bank.Account, len(endpoints))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, endpoint := range endpoints {
		eg.Go(func() error {
			accounts, err := a.listAccounts(egCtx, profile, endpoint.path, endpoint.fallback)
			if err != nil {
				return fmt.Errorf("list accounts from %s: %w", endpoint.path, err)
			}
			collections[i] = accounts
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var merged []bank.Account
	for _, collection := range collections {
		merged = append(merged, collection...)
	}
	merged = bank.DedupAccounts(merged)

	if len(merged) == 0 {
		return nil, &bank.NoDataError{Subject: "accounts"}
	}
	return merged, nil
}

func (a *Adapter) listAccounts(ctx context.Context, profile bank.Profile, path string, fallback bank.AccountType) ([]bank.Account, error) {
	resp, err := a.get(ctx, profile.SessionID, path)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &bank.AuthError{Status: resp.Status, StatusText: resp.StatusText}
	}

	data, err := normalize.Unwrap(resp.Body, "data")
	if err != nil {
		return nil, err
	}
	items, err := data.Arr("accounts")
	if err != nil {
		return nil, err
	}

	accounts := make([]bank.Account, 0, len(items))
	for _, item := range items {
		accountID, err := item.Str("accountId")
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, bank.Account{
			Profile:     profile,
			AccountID:   accountID,
			AccountName: item.StrOr("nickname", item.StrOr("productName", accountID)),
			AccountMask: normalize.Mask(item.StrOr("maskedNumber", "")),
			Type:        bank.MapAccountType(item.StrOr("productType", ""), fallback),
		})
	}
	return accounts, nil
}

func (a *Adapter) Statements(ctx context.Context, account bank.Account) ([]bank.Statement, error) {
	windows := windowPolicy.Windows(a.now())

	statements := pipeline.CollectWindows(ctx, windows, func(ctx context.Context, w pipeline.Window) ([]bank.Statement, error) {
		query := url.Values{
			"accountId": []string{account.AccountID},
			"from":      []string{w.Start.Format(normalize.ISODate)},
			"to":        []string{w.End.Format(normalize.ISODate)},
		}
		resp, err := a.get(ctx, account.Profile.SessionID, "/api/v2/statements?"+query.Encode())
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return nil, fmt.Errorf("list statements window %s: status=%d %s", w, resp.Status, resp.StatusText)
		}

		data, err := normalize.Unwrap(resp.Body, "data")
		if err != nil {
			return nil, err
		}
		items, err := data.Arr("statements")
		if err != nil {
			return nil, err
		}

		statements := make([]bank.Statement, 0, len(items))
		for _, item := range items {
			documentID, err := item.Str("documentId")
			if err != nil {
				return nil, err
			}
			date, err := normalize.Date(item.StrOr("statementDate", ""))
			if err != nil {
				return nil, err
			}
			statements = append(statements, bank.Statement{
				Account:     account,
				StatementID: bank.StatementRef{DocumentID: documentID}.String(),
				Date:        date,
			})
		}
		return statements, nil
	})

	if len(statements) == 0 {
		return nil, &bank.NoDataError{Subject: "statements"}
	}
	return statements, nil
}

func (a *Adapter) Download(ctx context.Context, statement bank.Statement) (bank.Document, error) {
	ref, err := bank.ParseStatementRef(statement.StatementID)
	if err != nil {
		return bank.Document{}, err
	}

	resp, err := a.get(ctx, statement.Account.Profile.SessionID, "/api/v2/statements/"+url.PathEscape(ref.DocumentID)+"/pdf")
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
