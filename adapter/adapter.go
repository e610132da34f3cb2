package adapter

import (
	"bankops/bank"
	"context"
	"fmt"
	"sync"
)

// Adapter is the one stable boundary between the orchestrator and a bank plugin:
// five operations plus two identity constants. callers depend on this interface
// only, never on bank-specific internals.
type Adapter interface {
	// BankID is a non-empty identifier, unique across the registered adapter set.
	BankID() string
	// BankName is a non-empty display name, unique across the registered adapter set.
	BankName() string

	// SessionID locates the session credential in ambient browser storage. it is
	// synchronous, makes no network calls, and fails with bank.ErrSessionNotFound
	// when no usable credential exists.
	SessionID() (string, error)

	// Profile resolves the customer identity for a session.
	Profile(ctx context.Context, sessionID string) (bank.Profile, error)

	// Accounts lists the profile's accounts, deduplicated by account id with
	// first-seen order preserved.
	Accounts(ctx context.Context, profile bank.Profile) ([]bank.Account, error)

	// Statements lists an account's statements, descending by date.
	Statements(ctx context.Context, account bank.Account) ([]bank.Statement, error)

	// Download retrieves one statement pdf. the statement argument carries
	// everything needed, there is no hidden out-of-band state.
	Download(ctx context.Context, statement bank.Statement) (bank.Document, error)
}

// Registry holds the loaded adapter set and enforces identity uniqueness and
// structural conformance at registration time.
type Registry struct {
	lock     sync.Mutex
	adapters []Adapter
}

func (r *Registry) Register(adapters ...Adapter) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, a := range adapters {
		if err := CheckAdapter(a); err != nil {
			return fmt.Errorf("register adapter: %w", err)
		}
		for _, existing := range r.adapters {
			if existing.BankID() == a.BankID() {
				return fmt.Errorf("register adapter: duplicate bank id %q", a.BankID())
			}
			if existing.BankName() == a.BankName() {
				return fmt.Errorf("register adapter: duplicate bank name %q", a.BankName())
			}
		}
		r.adapters = append(r.adapters, a)
	}
	return nil
}

// All returns adapters in registration order.
func (r *Registry) All() []Adapter {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]Adapter{}, r.adapters...)
}

func (r *Registry) Lookup(bankID string) (Adapter, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, a := range r.adapters {
		if a.BankID() == bankID {
			return a, true
		}
	}
	return nil, false
}
