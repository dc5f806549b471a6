package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/eventhub/internal/config"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, ok, err := s.Get(ctx, model.TokenKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, model.TokenKey, "first"))
	require.NoError(t, s.Set(ctx, model.TokenKey, "second"))
	v, ok, err := s.Get(ctx, model.TokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", v)

	require.NoError(t, s.Delete(ctx, model.TokenKey))
	_, ok, err = s.Get(ctx, model.TokenKey)
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting a missing key is not an error.
	require.NoError(t, s.Delete(ctx, model.TokenKey))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	s, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, model.TokenKey, "persisted"))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get(ctx, model.TokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", v)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("EVENTHUB_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("EVENTHUB_TEST_PG_DSN not set")
	}
	s, err := Open(context.Background(), config.SessionConfig{Driver: "postgres", DSN: dsn}, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.SessionConfig{Driver: "redis"}, zap.NewNop())
	assert.Error(t, err)
}

func TestTokensLoad(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ctx := context.Background()

	tests := []struct {
		name        string
		stored      string
		wantOK      bool
		wantExpired bool
	}{
		{"nothing stored", "", false, false},
		{"opaque token", "opaque-abc", true, false},
		{"live jwt", signed(t, now.Add(time.Hour)), true, false},
		{"expired jwt", signed(t, now.Add(-time.Minute)), true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			if tt.stored != "" {
				require.NoError(t, store.Set(ctx, model.TokenKey, tt.stored))
			}
			tokens := NewTokens(store, clock)

			tok, ok, err := tokens.Load(ctx)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantExpired {
				assert.ErrorIs(t, err, ErrTokenExpired)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantOK {
				assert.Equal(t, tt.stored, tok)
				assert.Equal(t, tt.stored, tokens.Token(ctx))
			}
		})
	}
}

func TestTokensSaveClear(t *testing.T) {
	ctx := context.Background()
	tokens := NewTokens(NewMemoryStore(), nil)

	require.NoError(t, tokens.Save(ctx, "abc"))
	assert.Equal(t, "abc", tokens.Token(ctx))

	require.NoError(t, tokens.Clear(ctx))
	assert.Equal(t, "", tokens.Token(ctx))
}
