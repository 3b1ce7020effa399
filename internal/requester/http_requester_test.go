package requester_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ajanottaja/identity-bridge/internal/config"
	"github.com/ajanottaja/identity-bridge/internal/requester"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockAuthManager implements the AuthManager interface for testing
type MockAuthManager struct {
	err error
}

func (m *MockAuthManager) ApplyAuth(ctx context.Context, req *http.Request) error {
	if m.err != nil {
		return m.err
	}
	req.Header.Set("Authorization", "mock-secret")
	return nil
}

func TestHTTPRequester(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		path           string
		body           any
		timeout        time.Duration
		serverResponse func(t *testing.T, w http.ResponseWriter, r *http.Request)
		checkResponse  func(t *testing.T, response *requester.Response, err error)
	}{
		{
			name:    "Simple GET Request",
			method:  http.MethodGet,
			path:    "/auth-zero/get-account/abc",
			timeout: 5 * time.Second,
			serverResponse: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/auth-zero/get-account/abc", r.URL.Path)
				assert.Equal(t, "mock-secret", r.Header.Get("Authorization"))
				assert.Empty(t, r.Header.Get("Content-Type"))
				w.WriteHeader(http.StatusOK)
				_ = json.NewEncoder(w).Encode(map[string]string{"id": "acct-1"})
			},
			checkResponse: func(t *testing.T, response *requester.Response, err error) {
				require.NoError(t, err)
				assert.True(t, response.Success())

				var body struct{ ID string }
				require.NoError(t, response.DecodeJSON(&body))
				assert.Equal(t, "acct-1", body.ID)
			},
		},
		{
			name:    "POST Request with Body",
			method:  http.MethodPost,
			path:    "/auth-zero/create-account",
			body:    map[string]string{"authZeroId": "auth0|1", "email": "a@b.com"},
			timeout: 5 * time.Second,
			serverResponse: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var body map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "auth0|1", body["authZeroId"])
				assert.Equal(t, "a@b.com", body["email"])

				w.WriteHeader(http.StatusCreated)
				_ = json.NewEncoder(w).Encode(map[string]string{"id": "acct-2"})
			},
			checkResponse: func(t *testing.T, response *requester.Response, err error) {
				require.NoError(t, err)
				assert.Equal(t, http.StatusCreated, response.StatusCode)
				assert.True(t, response.Success())
			},
		},
		{
			name:    "Non-2xx is returned, not an error",
			method:  http.MethodGet,
			path:    "/missing",
			timeout: 5 * time.Second,
			serverResponse: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusNotFound)
			},
			checkResponse: func(t *testing.T, response *requester.Response, err error) {
				require.NoError(t, err)
				assert.Equal(t, http.StatusNotFound, response.StatusCode)
				assert.False(t, response.Success())
			},
		},
		{
			name:    "Request Timeout",
			method:  http.MethodGet,
			path:    "/timeout",
			timeout: 100 * time.Millisecond,
			serverResponse: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(500 * time.Millisecond):
				case <-r.Context().Done():
				}
				w.WriteHeader(http.StatusOK)
			},
			checkResponse: func(t *testing.T, response *requester.Response, err error) {
				require.Error(t, err)
				assert.Nil(t, response)
				var netErr net.Error
				require.True(t, errors.As(err, &netErr))
				assert.True(t, netErr.Timeout())
			},
		},
		{
			name:    "Oversized body",
			method:  http.MethodGet,
			path:    "/big",
			timeout: 5 * time.Second,
			serverResponse: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(strings.Repeat("x", requester.MaxResponseBytes+10)))
			},
			checkResponse: func(t *testing.T, response *requester.Response, err error) {
				assert.ErrorIs(t, err, requester.ErrResponseTooLarge)
				assert.Nil(t, response)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.serverResponse(t, w, r)
			}))
			defer server.Close()

			cfg := &config.DownstreamConfig{BaseURL: server.URL, Timeout: tt.timeout}
			r := requester.NewHTTPRequester(requester.HTTPRequesterParams{
				ServiceConfig: cfg,
				AuthManager:   &MockAuthManager{},
			})

			resp, err := r.Do(context.Background(), tt.method, cfg.URL(tt.path), tt.body)
			tt.checkResponse(t, resp, err)
		})
	}
}

func TestHTTPRequester_AuthFailureSkipsCall(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	r := requester.NewHTTPRequester(requester.HTTPRequesterParams{
		ServiceConfig: &config.DownstreamConfig{BaseURL: server.URL, Timeout: time.Second},
		AuthManager:   &MockAuthManager{err: requester.ErrMissingCredential},
	})

	_, err := r.Do(context.Background(), http.MethodGet, server.URL+"/x", nil)
	assert.ErrorIs(t, err, requester.ErrMissingCredential)
	assert.False(t, called)
}

func TestHTTPRequester_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	r := requester.NewHTTPRequester(requester.HTTPRequesterParams{
		ServiceConfig: &config.DownstreamConfig{BaseURL: server.URL, Timeout: 5 * time.Second},
		AuthManager:   &MockAuthManager{},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.Do(ctx, http.MethodGet, server.URL+"/slow", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
