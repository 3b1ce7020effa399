package requester

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/fx"
)

// HTTPRequestBuilderParams holds the parameters for creating an HTTPRequestBuilder
type HTTPRequestBuilderParams struct {
	fx.In
	AuthManager AuthManager
}

// HTTPRequestBuilder turns a method, URL and optional JSON body into an
// authenticated *http.Request.
type HTTPRequestBuilder struct {
	authMgr AuthManager
}

// NewHTTPRequestBuilder creates a new HTTPRequestBuilder
func NewHTTPRequestBuilder(params HTTPRequestBuilderParams) *HTTPRequestBuilder {
	return &HTTPRequestBuilder{
		authMgr: params.AuthManager,
	}
}

// BuildRequest builds a request. A nil body sends no payload; anything else
// is encoded as JSON.
func (b *HTTPRequestBuilder) BuildRequest(ctx context.Context, method, url string, body any) (*Request, error) {
	reader, contentType, err := b.createRequestBody(body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	headers := map[string]string{"Accept": "application/json"}
	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if b.authMgr != nil {
		if err := b.authMgr.ApplyAuth(ctx, httpReq); err != nil {
			return nil, fmt.Errorf("failed to apply authentication: %w", err)
		}
	}

	return &Request{
		URL:         url,
		Method:      method,
		Body:        reader,
		Headers:     headers,
		ContentType: contentType,
		HttpRequest: httpReq,
	}, nil
}

func (b *HTTPRequestBuilder) createRequestBody(body any) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
	}
	return bytes.NewReader(jsonData), "application/json", nil
}
