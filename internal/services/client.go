package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/mediactl/internal/metrics"
	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/shared"
)

const defaultBaseURL = "http://localhost:8000"

// ClientOpts configures [NewClient]. Zero values fall back to defaults.
type ClientOpts struct {
	BaseURL string
	// Token is sent as a bearer token on API requests when set.
	Token string
	// Timeout applies to API requests only; transfers are bounded by their context.
	Timeout        time.Duration
	HTTPClient     *http.Client
	TransferClient *http.Client
	Logger         *log.Logger
	Metrics        *metrics.Metrics
}

// Client talks to the media API.
type Client struct {
	baseURL        string
	origin         string
	httpClient     *http.Client
	plainClient    *http.Client
	transferClient *http.Client
	logger         *log.Logger
	metrics        *metrics.Metrics
}

// NewClient creates a [Client].
func NewClient(opts ClientOpts) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: opts.Timeout}
	}

	httpClient := base
	if opts.Token != "" {
		transport := base.Transport
		if transport == nil {
			transport = http.DefaultTransport
		}
		httpClient = &http.Client{
			Timeout:       base.Timeout,
			CheckRedirect: base.CheckRedirect,
			Jar:           base.Jar,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"}),
				Base:   transport,
			},
		}
	}

	transferClient := opts.TransferClient
	if transferClient == nil {
		transferClient = &http.Client{Transport: base.Transport}
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	return &Client{
		baseURL:        baseURL,
		origin:         originOf(baseURL),
		httpClient:     httpClient,
		plainClient:    base,
		transferClient: transferClient,
		logger:         logger,
		metrics:        opts.Metrics,
	}
}

// BaseURL returns the API root the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) resolve(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.baseURL + endpoint
}

// isTimeout reports whether err is a client or dial timeout.
func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &t) && t.Timeout())
}

// originOf returns scheme://host of rawURL, or "" when it does not parse.
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

// clientFor picks the authenticated client for the API's own origin and the
// plain one for anything else, such as manifests served from a CDN.
func (c *Client) clientFor(apiURL string) *http.Client {
	if originOf(apiURL) == c.origin {
		return c.httpClient
	}
	return c.plainClient
}

// doRequest sends a JSON request and decodes a JSON response into result.
//
// endpoint is either a path relative to the base URL or an absolute URL.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	apiURL := c.resolve(endpoint)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("request", "method", method, "url", apiURL)

	resp, err := c.clientFor(apiURL).Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, 0)
		if isTimeout(err) {
			return fmt.Errorf("%w: %w: %s %s: %w", shared.ErrTransport, shared.ErrTimeout, method, apiURL, err)
		}
		return fmt.Errorf("%w: %s %s: %w", shared.ErrTransport, method, apiURL, err)
	}
	defer resp.Body.Close()

	c.metrics.ObserveRequest(method, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", shared.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Method: method, URL: apiURL, StatusCode: resp.StatusCode, Body: data}
	}

	if result == nil || method == http.MethodDelete || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: %s %s", shared.ErrEmptyResponse, method, apiURL)
	}

	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func withQuery(path string, values url.Values) string {
	if len(values) == 0 {
		return path
	}
	return path + "?" + values.Encode()
}

// GetProfile returns the profile of the token holder.
func (c *Client) GetProfile(ctx context.Context) (*models.Profile, error) {
	var profile models.Profile
	if err := c.doRequest(ctx, http.MethodGet, "/api/profile", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
