package requester

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ajanottaja/identity-bridge/internal/config"
	"github.com/ajanottaja/identity-bridge/internal/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Second

// HTTPRequester handles both request building and execution
type HTTPRequester struct {
	client  *http.Client
	builder *HTTPRequestBuilder
}

type HTTPRequesterParams struct {
	fx.In

	ServiceConfig *config.DownstreamConfig
	AuthManager   AuthManager
}

// NewHTTPRequester creates a new HTTPRequester. Outbound calls are traced
// through otelhttp and bounded by the configured timeout.
func NewHTTPRequester(params HTTPRequesterParams) *HTTPRequester {
	timeout := defaultTimeout
	if params.ServiceConfig != nil && params.ServiceConfig.Timeout > 0 {
		timeout = params.ServiceConfig.Timeout
	}
	return &HTTPRequester{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		builder: NewHTTPRequestBuilder(HTTPRequestBuilderParams{AuthManager: params.AuthManager}),
	}
}

// SetTimeout sets the timeout for the HTTP client
func (r *HTTPRequester) SetTimeout(timeout time.Duration) {
	r.client.Timeout = timeout
}

// Do builds an authenticated request for method and url and executes it.
// Non-2xx responses are returned, not treated as errors.
func (r *HTTPRequester) Do(ctx context.Context, method, url string, body any) (*Response, error) {
	req, err := r.builder.BuildRequest(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	logger.Debug("downstream request", zap.String("method", method), zap.String("url", req.URL))

	resp, err := r.execute(req)
	if err != nil {
		logger.Warn("downstream request failed", zap.String("method", method), zap.String("url", req.URL), zap.Error(err))
		return nil, err
	}
	return resp, nil
}

// execute performs the actual HTTP request execution
func (r *HTTPRequester) execute(req *Request) (resp *Response, err error) {
	httpResp, err := r.client.Do(req.HttpRequest)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, httpResp.Body)
		if closeErr := httpResp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	bodyBytes, err := io.ReadAll(io.LimitReader(httpResp.Body, MaxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(bodyBytes) > MaxResponseBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, MaxResponseBytes)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       bodyBytes,
		Headers:    httpResp.Header,
	}, nil
}
