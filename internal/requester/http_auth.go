package requester

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ajanottaja/identity-bridge/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// AuthManager handles request authentication
type AuthManager interface {
	ApplyAuth(ctx context.Context, req *http.Request) error
}

// HTTPAuthManager implements the AuthManager interface
type HTTPAuthManager struct {
	authType config.AuthType
	token    string
	source   oauth2.TokenSource
}

// NewHTTPAuthManager creates a new HTTPAuthManager. For the oauth2 auth type
// the returned manager fetches and caches client-credentials tokens.
func NewHTTPAuthManager(cfg *config.DownstreamConfig) *HTTPAuthManager {
	m := &HTTPAuthManager{
		authType: cfg.AuthType,
		token:    cfg.Token,
	}
	if cfg.AuthType == config.AuthTypeOAuth2 {
		cc := &clientcredentials.Config{
			ClientID:     cfg.OAuth2.ClientID,
			ClientSecret: cfg.OAuth2.ClientSecret,
			TokenURL:     cfg.OAuth2.TokenURL,
			Scopes:       cfg.OAuth2.Scopes,
		}
		if cfg.OAuth2.Audience != "" {
			cc.EndpointParams = url.Values{"audience": {cfg.OAuth2.Audience}}
		}
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: cfg.Timeout})
		m.source = cc.TokenSource(tokenCtx)
	}
	return m
}

// ApplyAuth adds authentication to the request
func (a *HTTPAuthManager) ApplyAuth(ctx context.Context, req *http.Request) error {
	switch a.authType {
	case config.AuthTypeNone:
		return nil
	case config.AuthTypeStatic, "":
		// The account API expects the shared secret verbatim, without a scheme.
		if a.token == "" {
			return ErrMissingCredential
		}
		req.Header.Set("Authorization", a.token)
	case config.AuthTypeBearer:
		if a.token == "" {
			return ErrMissingCredential
		}
		req.Header.Set("Authorization", "Bearer "+a.token)
	case config.AuthTypeOAuth2:
		if a.source == nil {
			return ErrMissingCredential
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		tok, err := a.source.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCredentialFetch, err)
		}
		tok.SetAuthHeader(req)
	default:
		return fmt.Errorf("unsupported auth type: %s", a.authType)
	}
	return nil
}
