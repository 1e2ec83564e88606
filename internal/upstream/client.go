// Package upstream talks to the team logo metadata API.
package upstream

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

	"golang.org/x/time/rate"

	"github.com/muandane/special-stack/teamlogos/internal/logo"
)

const (
	defaultTimeout  = 5 * time.Second
	maxResponseSize = 1 << 20
)

// Client fetches logo metadata over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the http.Client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithRateLimit caps outbound requests at rps with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// LogoURL returns the metadata URL for req.
func (c *Client) LogoURL(req logo.Request) string {
	u := *c.baseURL
	u.RawPath = strings.TrimRight(c.baseURL.EscapedPath(), "/") + "/teams/" + url.PathEscape(req.TeamID) + "/logo"
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/teams/" + req.TeamID + "/logo"
	q := url.Values{}
	q.Set("size", string(req.Size))
	if req.Format != "" && req.Format != logo.FormatPNG {
		q.Set("format", string(req.Format))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchLogo implements logo.Fetcher. Failures are returned as *logo.FetchError.
// A call refused by the local rate limiter is logo.KindThrottled.
func (c *Client) FetchLogo(ctx context.Context, req logo.Request) (*logo.Metadata, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &logo.FetchError{Kind: logo.KindThrottled, Err: fmt.Errorf("rate limit: %w", err)}
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.LogoURL(req), nil)
	if err != nil {
		return nil, &logo.FetchError{Kind: logo.KindClient, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &logo.FetchError{Kind: logo.KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &logo.FetchError{Kind: logo.KindServer, StatusCode: resp.StatusCode}
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, &logo.FetchError{Kind: logo.KindClient, StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusNoContent, resp.StatusCode == http.StatusResetContent:
		return nil, &logo.FetchError{Kind: logo.KindEmpty, StatusCode: resp.StatusCode}
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		// Redirects are followed by http.Client; anything left is unusable.
		return nil, &logo.FetchError{Kind: logo.KindServer, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, &logo.FetchError{Kind: logo.KindNetwork, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(body) > maxResponseSize {
		return nil, &logo.FetchError{Kind: logo.KindServer, Err: errors.New("response exceeds size limit")}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &logo.FetchError{Kind: logo.KindEmpty, StatusCode: resp.StatusCode}
	}

	var md logo.Metadata
	if err := json.Unmarshal(body, &md); err != nil {
		return nil, &logo.FetchError{Kind: logo.KindServer, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
	}
	if strings.TrimSpace(md.URL) == "" {
		return nil, &logo.FetchError{Kind: logo.KindEmpty}
	}
	return &md, nil
}

var _ logo.Fetcher = (*Client)(nil)
