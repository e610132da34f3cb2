package svc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bankops/adapter"
	"bankops/bank"
	"bankops/infra"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RunRetrieval drives one adapter through the full flow: session -> profile ->
// accounts -> per-account statements -> per-statement downloads. statement listings
// for separate accounts are independent and run concurrently; downloads within an
// account are sequential against the backend. a failed download is recorded and
// skipped, a failed session/profile/accounts stage aborts the run.
func (app *App) RunRetrieval(ctx context.Context, a adapter.Adapter, sink Sink) (RetrievalResult, error) {
	start := time.Now()
	ctx = context.WithValue(ctx, "trace", uuid.NewString())
	appCtx := AppContext{Context: ctx, App: app}

	var result RetrievalResult

	sessionID, err := a.SessionID()
	if err != nil {
		app.produceEvent(appCtx, a, RetrievalEvent{Stage: infra.StageSession, ErrMsg: err.Error()})
		return result, fmt.Errorf("resolve session for %s: %w", a.BankID(), err)
	}
	app.produceEvent(appCtx, a, RetrievalEvent{Stage: infra.StageSession})

	profile, err := a.Profile(ctx, sessionID)
	if err != nil {
		app.produceEvent(appCtx, a, RetrievalEvent{Stage: infra.StageProfile, ErrMsg: err.Error()})
		return result, fmt.Errorf("get profile for %s: %w", a.BankID(), err)
	}
	result.Profile = profile
	app.produceEvent(appCtx, a, RetrievalEvent{Stage: infra.StageProfile, ProfileID: profile.ProfileID})
	slog.InfoContext(ctx, "resolved profile", "bankId", a.BankID(), "profileId", profile.ProfileID, "profileName", profile.ProfileName)

	accounts, err := a.Accounts(ctx, profile)
	if err != nil {
		app.produceEvent(appCtx, a, RetrievalEvent{Stage: infra.StageAccounts, ProfileID: profile.ProfileID, ErrMsg: err.Error()})
		return result, fmt.Errorf("list accounts for %s: %w", a.BankID(), err)
	}
	app.produceEvent(appCtx, a, RetrievalEvent{Stage: infra.StageAccounts, ProfileID: profile.ProfileID})
	slog.InfoContext(ctx, "listed accounts", "bankId", a.BankID(), "count", len(accounts))

	listings := make([]AccountStatements, len(accounts))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, account := range accounts {
		eg.Go(func() error {
			statements, err := a.Statements(egCtx, account)
			var noDataErr *bank.NoDataError
			if errors.As(err, &noDataErr) {
				// zero statements is a valid outcome for one account, not a reason
				// to abort the siblings.
				slog.InfoContext(egCtx, "account has no statements", "bankId", a.BankID(), "accountId", account.AccountID)
				listings[i] = AccountStatements{Account: account}
				return nil
			}
			if err != nil {
				return fmt.Errorf("list statements for account index=%d: %w", i, err)
			}
			listings[i] = AccountStatements{Account: account, Statements: statements}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		app.produceEvent(appCtx, a, RetrievalEvent{Stage: infra.StageStatements, ProfileID: profile.ProfileID, ErrMsg: err.Error()})
		return result, err
	}
	result.Accounts = listings
	app.produceEvent(appCtx, a, RetrievalEvent{Stage: infra.StageStatements, ProfileID: profile.ProfileID})

	if sink != nil {
		app.downloadAll(appCtx, a, listings, sink, &result)
	}

	slog.InfoContext(ctx, "finished retrieval", "bankId", a.BankID(), "accounts", len(result.Accounts), "downloaded", result.Downloaded, "skipped", len(result.Skipped), "elapsed", time.Since(start))
	return result, nil
}

// downloadAll walks every listed statement. download failures are caught, recorded
// and skipped: one bad document must not fail the rest of the haul. accounts run
// concurrently, statements within an account sequentially.
func (app *App) downloadAll(ctx AppContext, a adapter.Adapter, listings []AccountStatements, sink Sink, result *RetrievalResult) {
	var lock sync.Mutex
	var wg sync.WaitGroup

	for _, listing := range listings {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, statement := range listing.Statements {
				doc, err := a.Download(ctx, statement)
				if err == nil {
					err = sink(statement, doc)
				}

				event := RetrievalEvent{
					Stage:       infra.StageDownload,
					ProfileID:   statement.Account.Profile.ProfileID,
					AccountID:   statement.Account.AccountID,
					StatementID: statement.StatementID,
					Bytes:       len(doc.Data),
				}

				lock.Lock()
				if err != nil {
					slog.ErrorContext(ctx, "skipping failed statement download", "bankId", a.BankID(), "statementDate", statement.Date, "err", err)
					result.Skipped = append(result.Skipped, SkippedStatement{Statement: statement, ErrMsg: err.Error()})
					event.ErrMsg = err.Error()
				} else {
					result.Downloaded++
				}
				lock.Unlock()

				app.produceEvent(ctx, a, event)
			}
		}()
	}
	wg.Wait()
}

// RunAll retrieves from every registered adapter, continuing past per-bank failures.
func (app *App) RunAll(ctx context.Context, sink Sink) map[string]error {
	failures := make(map[string]error)
	for _, a := range app.Registry.All() {
		if _, err := app.RunRetrieval(ctx, a, sink); err != nil {
			slog.ErrorContext(ctx, "retrieval failed for bank", "bankId", a.BankID(), "fatal", bank.IsFatal(err), "err", err)
			failures[a.BankID()] = err
		}
	}
	return failures
}
