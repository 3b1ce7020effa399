package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/ajanottaja/identity-bridge/internal/config"
	"github.com/ajanottaja/identity-bridge/internal/requester"
	"github.com/ajanottaja/identity-bridge/internal/telemetry"
)

const (
	opCreateAccount = "create-account"
	opGetAccount    = "get-account"

	createAccountPath = "/auth-zero/create-account"
	getAccountPath    = "/auth-zero/get-account/"
)

// AccountClient talks to the downstream account-management API.
type AccountClient interface {
	CreateAccount(ctx context.Context, externalID ExternalID, email string) (*Account, error)
	GetAccount(ctx context.Context, externalID ExternalID) (*Account, error)
}

// Doer executes one authenticated HTTP call; *requester.HTTPRequester satisfies it.
type Doer interface {
	Do(ctx context.Context, method, url string, body any) (*requester.Response, error)
}

type createAccountRequest struct {
	AuthZeroID string `json:"authZeroId"`
	Email      string `json:"email"`
}

// HTTPAccountClient implements AccountClient over HTTP.
type HTTPAccountClient struct {
	cfg     *config.DownstreamConfig
	doer    Doer
	metrics *telemetry.Metrics
}

// NewHTTPAccountClient creates an account client. metrics may be nil.
func NewHTTPAccountClient(cfg *config.DownstreamConfig, doer Doer, metrics *telemetry.Metrics) *HTTPAccountClient {
	return &HTTPAccountClient{cfg: cfg, doer: doer, metrics: metrics}
}

// CreateAccount issues POST /auth-zero/create-account.
func (c *HTTPAccountClient) CreateAccount(ctx context.Context, externalID ExternalID, email string) (*Account, error) {
	body := createAccountRequest{AuthZeroID: externalID.String(), Email: email}
	return c.call(ctx, opCreateAccount, http.MethodPost, c.cfg.URL(createAccountPath), body)
}

// GetAccount issues GET /auth-zero/get-account/<externalID>.
func (c *HTTPAccountClient) GetAccount(ctx context.Context, externalID ExternalID) (*Account, error) {
	target := c.cfg.URL(getAccountPath + url.PathEscape(externalID.String()))
	return c.call(ctx, opGetAccount, http.MethodGet, target, nil)
}

func (c *HTTPAccountClient) call(ctx context.Context, op, method, target string, body any) (*Account, error) {
	if !c.cfg.HasCredential() {
		c.metrics.ObserveDownstream(op, Code(ErrConfigMissing), 0)
		return nil, &Error{Op: op, Kind: ErrConfigMissing}
	}

	start := time.Now()
	acct, err := c.exchange(ctx, op, method, target, body)
	c.metrics.ObserveDownstream(op, Code(err), time.Since(start))
	return acct, err
}

func (c *HTTPAccountClient) exchange(ctx context.Context, op, method, target string, body any) (*Account, error) {
	resp, err := c.doer.Do(ctx, method, target, body)
	if err != nil {
		return nil, classifyTransportError(op, err)
	}
	if !resp.Success() {
		return nil, &Error{Op: op, Kind: ErrUpstreamRejected, StatusCode: resp.StatusCode}
	}

	var out struct {
		ID json.RawMessage `json:"id"`
	}
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, &Error{Op: op, Kind: ErrMalformedResponse, Err: err}
	}
	id, err := decodeStringOrNumber(out.ID)
	if err != nil {
		return nil, &Error{Op: op, Kind: ErrMalformedResponse, Err: err}
	}
	if id == "" {
		return nil, &Error{Op: op, Kind: ErrMalformedResponse, Err: errors.New(`response has no "id"`)}
	}
	return &Account{ID: id}, nil
}

func classifyTransportError(op string, err error) error {
	switch {
	case errors.Is(err, requester.ErrMissingCredential):
		return &Error{Op: op, Kind: ErrConfigMissing, Err: err}
	case errors.Is(err, requester.ErrResponseTooLarge):
		return &Error{Op: op, Kind: ErrMalformedResponse, Err: err}
	}

	e := &Error{Op: op, Kind: ErrUpstreamUnavailable, Err: err}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		e.Timeout = true
	}
	return e
}
