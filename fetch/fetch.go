// Package fetch performs the bots' outbound GET requests: a fixed
// User-Agent, a body size limit and status checking.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultMaxContentSize bounds a response body.
const DefaultMaxContentSize = 5 * 1024 * 1024

// StatusError is a non-200 reply. URL has its query removed.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Fetcher fetches documents from public APIs.
type Fetcher struct {
	client         *http.Client
	userAgent      string
	maxContentSize int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithMaxContentSize overrides DefaultMaxContentSize.
func WithMaxContentSize(n int64) Option {
	return func(f *Fetcher) {
		f.maxContentSize = n
	}
}

// New creates a fetcher. Wikipedia and OpenWeatherMap both ask callers to
// identify themselves, so userAgent should carry a contact address.
func New(timeout time.Duration, userAgent string, opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				return nil
			},
		},
		userAgent:      userAgent,
		maxContentSize: DefaultMaxContentSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get retrieves the body at urlStr.
func (f *Fetcher) Get(ctx context.Context, urlStr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = withoutQuery(uerr.URL)
		}
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: withoutQuery(urlStr), StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxContentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxContentSize {
		return nil, fmt.Errorf("content too large (exceeds %d bytes)", f.maxContentSize)
	}
	return body, nil
}

// GetJSON retrieves urlStr and decodes the body into out.
func (f *Fetcher) GetJSON(ctx context.Context, urlStr string, out any) error {
	body, err := f.Get(ctx, urlStr)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", withoutQuery(urlStr), err)
	}
	return nil
}

// withoutQuery drops the query string, which may carry API keys, so the URL
// can go into errors and logs.
func withoutQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.User = nil
	return u.String()
}
