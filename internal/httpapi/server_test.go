package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"qrbadge/api/internal/auth"
	"qrbadge/api/internal/config"
	"qrbadge/api/internal/realtime"
	"qrbadge/api/internal/service"
	"qrbadge/api/internal/store"
	"qrbadge/api/internal/store/memory"
	"qrbadge/api/internal/validation"
)

const testSecret = "test-secret"

var testCeiling = time.Date(2025, 6, 16, 14, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testAPI struct {
	srv    *Server
	store  *memory.Store
	users  *service.Users
	tokens *auth.Tokens
	hub    *realtime.Hub
	now    time.Time
}

func (a *testAPI) clock() time.Time { return a.now }

type apiOption func(*config.Config)

func newTestAPI(t *testing.T, opts ...apiOption) *testAPI {
	t.Helper()
	return newTestAPIWithStore(t, memory.NewStore(), opts...)
}

func newTestAPIWithStore(t *testing.T, st store.Store, opts ...apiOption) *testAPI {
	t.Helper()
	a := &testAPI{now: time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC), hub: realtime.NewHub()}
	if ms, ok := st.(*memory.Store); ok {
		a.store = ms
	}

	cfg := config.Config{
		Env:             config.EnvDevelopment,
		CORSOrigins:     []string{"*"},
		JWTSecret:       testSecret,
		EventExpiration: testCeiling,
	}
	for _, o := range opts {
		o(&cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svcOpts := []service.Option{service.WithClock(a.clock), service.WithLogger(logger)}
	a.tokens = auth.NewTokens(testSecret, auth.DefaultTokenTTL).WithClock(a.clock)
	a.users = service.NewUsers(st, a.tokens, svcOpts...)

	srv, err := NewServer(cfg, Deps{
		Store:    st,
		Badges:   service.NewBadges(st, validation.NewExpirationPolicy(testCeiling), svcOpts...),
		Accesses: service.NewAccesses(st, svcOpts...),
		Users:    a.users,
		Tokens:   a.tokens,
		Hub:      a.hub,
		Logger:   logger,
	})
	require.NoError(t, err)
	a.srv = srv
	return a
}

func (a *testAPI) adminToken(t *testing.T) string {
	t.Helper()
	tok, err := a.tokens.Issue("3f2a0c1e-9d1b-4c55-8e0a-1b2c3d4e5f60", "admin")
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, method, path string, body any, token string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeInto[T any](t *testing.T, rec *httptest.ResponseRecorder, key string) T {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw), rec.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(raw[key], &out))
	return out
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
}

func requireErrorBody(t *testing.T, rec *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	requireStatus(t, rec, status)
	require.Equal(t, msg, decode(t, rec)["error"])
}

