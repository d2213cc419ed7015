package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/mediactl/internal/shared"
)

// APIService performs raw HTTP requests against the media API without decoding
// or status checks.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a raw API service. Pass [Client.HTTPClient] to reuse the
// authenticated transport.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// HTTPClient returns the client used for API requests, including its auth transport.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// APIResponse is an undecoded reply. JSONData holds the generic decoding when the body parses as JSON.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports whether the status is 2xx.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get is Do with GET.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodGet, path, nil)
}

// Post is Do with POST.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPost, path, data)
}

// Do sends method to path with data as the JSON body, if any. Any status is
// returned as a response; only transport and read failures are errors.
func (a *APIService) Do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", shared.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	out := &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header}
	if out.Body, err = io.ReadAll(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if len(out.Body) > 0 && json.Valid(out.Body) {
		out.IsJSON = json.Unmarshal(out.Body, &out.JSONData) == nil
	}
	return out, nil
}
