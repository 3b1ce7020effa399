package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ajanottaja/identity-bridge/internal/auth/constants"
	"github.com/ajanottaja/identity-bridge/internal/bridge"
	"github.com/ajanottaja/identity-bridge/internal/config"
	"github.com/ajanottaja/identity-bridge/internal/requester"
	"github.com/ajanottaja/identity-bridge/internal/server/handler"
	"github.com/ajanottaja/identity-bridge/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hookSecret = "hook-secret"

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *telemetry.Metrics) {
	t.Helper()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"acct-1"}`))
	}))
	t.Cleanup(api.Close)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:          "127.0.0.1",
			Port:          0,
			HookSecret:    hookSecret,
			ValidateHooks: true,
		},
		Downstream: config.DownstreamConfig{
			BaseURL:  api.URL,
			Token:    "token",
			AuthType: config.AuthTypeStatic,
			Timeout:  time.Second,
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	r := requester.NewHTTPRequester(requester.HTTPRequesterParams{
		ServiceConfig: &cfg.Downstream,
		AuthManager:   requester.NewHTTPAuthManager(&cfg.Downstream),
	})
	metrics := telemetry.NewMetrics()
	svc := bridge.NewService(bridge.NewHTTPAccountClient(&cfg.Downstream, r, metrics))

	srv, err := NewServer(Params{Config: cfg, Bridge: svc, Metrics: metrics})
	require.NoError(t, err)
	return srv, metrics
}

func do(t *testing.T, h http.Handler, method, path, body, secret string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(Params{})
	assert.Error(t, err)

	_, err = NewServer(Params{Config: &config.Config{}})
	assert.Error(t, err)
}

func TestHandler_Routes(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		secret     string
		wantStatus int
	}{
		{"health is public", http.MethodGet, "/healthz", "", "", http.StatusOK},
		{"metrics is public", http.MethodGet, "/metrics", "", "", http.StatusOK},
		{"hook without secret", http.MethodPost, handler.LoginPath, `{"user":{"user_id":"a"}}`, "", http.StatusUnauthorized},
		{"hook with wrong secret", http.MethodPost, handler.LoginPath, `{"user":{"user_id":"a"}}`, "nope", http.StatusUnauthorized},
		{"hook with secret", http.MethodPost, handler.LoginPath, `{"user":{"user_id":"a"}}`, hookSecret, http.StatusOK},
		{"hook fails validation", http.MethodPost, handler.RegistrationPath, `{"user":{}}`, hookSecret, http.StatusBadRequest},
		{"hooks only accept POST", http.MethodGet, handler.LoginPath, "", hookSecret, http.StatusMethodNotAllowed},
		{"mcp disabled", http.MethodPost, MCPPath, `{}`, hookSecret, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body, tt.secret)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_RequestID(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/healthz", "", "")
	assert.NotEmpty(t, rec.Header().Get(constants.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(constants.RequestIDHeader, "req-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(constants.RequestIDHeader))
}

func TestHandler_MetricsExposeHookCounts(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, handler.RegistrationPath, `{"user":{"user_id":"auth0|1"}}`, hookSecret)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `identity_bridge_hook_requests_total{hook="post-user-registration",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), `identity_bridge_downstream_requests_total{operation="create-account",outcome="ok"} 1`)
}

func TestHandler_MCPRequiresSecret(t *testing.T) {
	srv, _ := newTestServer(t, func(c *config.Config) { c.Server.MCPEnabled = true })
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, MCPPath, `{}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	initReq := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`
	rec = do(t, h, http.MethodPost, MCPPath, initReq, hookSecret)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "identity-bridge")
}

func TestServer_StartStop(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	require.NoError(t, srv.Start(context.Background()))

	addr := srv.listenAddr()
	require.NotEmpty(t, addr)

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", addr))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"ok":true`)

	require.NoError(t, srv.Stop(context.Background()))
	_, err = http.Get(fmt.Sprintf("http://%s/healthz", addr))
	assert.Error(t, err)
}
