package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrbadge/api/internal/auth"
	"qrbadge/api/internal/store/memory"
	"qrbadge/api/internal/validation"
)

var ceiling = time.Date(2025, 6, 16, 14, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	badges   *Badges
	accesses *Accesses
	users    *Users
	now      time.Time
}

func (f *fixture) clock() time.Time { return f.now }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore(),
		now:   time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC),
	}
	opts := []Option{WithClock(f.clock), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
	tokens := auth.NewTokens("test-secret", time.Hour).WithClock(f.clock)

	f.badges = NewBadges(f.store, validation.NewExpirationPolicy(ceiling), opts...)
	f.accesses = NewAccesses(f.store, opts...)
	f.users = NewUsers(f.store, tokens, opts...)
	return f
}

func requireKind(t *testing.T, err error, kind Kind, msg string) {
	t.Helper()
	e, ok := AsError(err)
	require.True(t, ok, "expected classified error, got %v", err)
	assert.Equal(t, kind, e.Kind)
	if msg != "" {
		assert.Equal(t, msg, e.Message)
	}
}

func strp(s string) *string { return &s }
