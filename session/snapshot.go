package session

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// SnapshotStore is a Store over a browser-state snapshot: the privileged extension
// host exports cookies and web storage as one JSON document, and retrieval runs
// against that frozen view. the pipeline itself never mutates it.
type SnapshotStore struct {
	Cookies        map[string]string `json:"cookies"`
	LocalStorage   map[string]string `json:"localStorage"`
	SessionStorage map[string]string `json:"sessionStorage"`
}

func (s *SnapshotStore) Cookie(name string) string     { return s.Cookies[name] }
func (s *SnapshotStore) LocalItem(key string) string   { return s.LocalStorage[key] }
func (s *SnapshotStore) SessionItem(key string) string { return s.SessionStorage[key] }

func LoadSnapshot(path string) (*SnapshotStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read storage snapshot: %w", err)
	}
	var store SnapshotStore
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("parse storage snapshot %s: %w", path, err)
	}
	return &store, nil
}

// ParseCookieHeader expands a document.cookie string ("a=b; c=d") into a name/value
// map for snapshots captured as a raw header.
func ParseCookieHeader(header string) map[string]string {
	cookies := make(map[string]string)
	for _, pair := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			continue
		}
		cookies[name] = value
	}
	return cookies
}
