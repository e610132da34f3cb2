package session

import (
	"bankops/bank"
	"fmt"
)

// Store is the injected capability over ambient browser state. resolution only ever
// reads through it, so tests can substitute a fake deterministically.
type Store interface {
	// Cookie returns the value of a named cookie, or "" when absent.
	Cookie(name string) string
	// LocalItem returns localStorage.getItem(key), or "" when absent.
	LocalItem(key string) string
	// SessionItem returns sessionStorage.getItem(key), or "" when absent.
	SessionItem(key string) string
}

// Resolver locates the session credential for one adapter. resolution is total and
// synchronous: no network calls, and a typed failure instead of an empty value.
type Resolver interface {
	SessionID(store Store) (string, error)
}

// Source is one storage location a credential may live in. when several locations
// could hold it, the resolver tries them in declaration order and returns the first
// match; that order is part of the adapter's contract.
type Source struct {
	Kind SourceKind
	Key  string
}

type SourceKind string

const (
	FromCookie         SourceKind = "cookie"
	FromLocalStorage   SourceKind = "localStorage"
	FromSessionStorage SourceKind = "sessionStorage"
)

func (s Source) read(store Store) string {
	switch s.Kind {
	case FromCookie:
		return store.Cookie(s.Key)
	case FromLocalStorage:
		return store.LocalItem(s.Key)
	case FromSessionStorage:
		return store.SessionItem(s.Key)
	}
	return ""
}

// ChainResolver reads an ordered fallback chain of storage locations.
type ChainResolver struct {
	Sources []Source
}

func Chain(sources ...Source) ChainResolver {
	return ChainResolver{Sources: sources}
}

func (r ChainResolver) SessionID(store Store) (string, error) {
	for _, source := range r.Sources {
		if value := source.read(store); value != "" {
			return value, nil
		}
	}
	return "", fmt.Errorf("tried %d storage locations: %w", len(r.Sources), bank.ErrSessionNotFound)
}

// CookieResolver is the single-cookie shorthand for the common case.
func CookieResolver(name string) ChainResolver {
	return Chain(Source{Kind: FromCookie, Key: name})
}
