// Package session persists the opaque auth token across restarts.
//
// The persistence capability is a plain key-value Store; Tokens layers the
// well-known token key and a local expiry check on top of it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// Store is an opaque string key-value persistence capability.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ErrTokenExpired is returned by Tokens.Load when the persisted token carries
// an exp claim in the past.
var ErrTokenExpired = errors.New("session token expired")

// Tokens reads and writes the auth token under model.TokenKey.
type Tokens struct {
	store Store
	now   func() time.Time
}

// NewTokens wraps store. now may be nil.
func NewTokens(store Store, now func() time.Time) *Tokens {
	if now == nil {
		now = time.Now
	}
	return &Tokens{store: store, now: now}
}

// Token returns the persisted token, or "" when none is stored or the store
// fails. It suits callers that only attach the token to a request.
func (t *Tokens) Token(ctx context.Context) string {
	tok, ok, err := t.store.Get(ctx, model.TokenKey)
	if err != nil || !ok {
		return ""
	}
	return tok
}

// Load returns the persisted token. When the token is a JWT whose exp claim
// has passed, Load returns ErrTokenExpired alongside it. Tokens that are not
// JWTs are opaque and never expire locally.
func (t *Tokens) Load(ctx context.Context) (string, bool, error) {
	tok, ok, err := t.store.Get(ctx, model.TokenKey)
	if err != nil {
		return "", false, fmt.Errorf("load token: %w", err)
	}
	if !ok || tok == "" {
		return "", false, nil
	}
	if exp, found := expiry(tok); found && !t.now().Before(exp) {
		return tok, true, ErrTokenExpired
	}
	return tok, true, nil
}

// Save persists tok.
func (t *Tokens) Save(ctx context.Context, tok string) error {
	if err := t.store.Set(ctx, model.TokenKey, tok); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Clear removes the persisted token.
func (t *Tokens) Clear(ctx context.Context) error {
	if err := t.store.Delete(ctx, model.TokenKey); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// expiry reads the exp claim without verifying the signature; the client has
// no key and the backend stays the authority on validity.
func expiry(tok string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// MemoryStore keeps values for the life of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
