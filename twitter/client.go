// Package twitter posts tweets through the X API v2 with OAuth 1.0a user
// context.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dghubble/oauth1"
)

// DefaultBaseURL is the X API host.
const DefaultBaseURL = "https://api.x.com"

// maxErrorBody bounds the API error text kept in APIError.
const maxErrorBody = 300

// truncateBody cuts an error body to maxErrorBody bytes without splitting a
// rune.
func truncateBody(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	n := maxErrorBody
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// Credentials are the app and user tokens of the posting account.
type Credentials struct {
	AppKey       string
	AppSecret    string
	AccessToken  string
	AccessSecret string
}

// Validate reports which credentials are missing.
func (c Credentials) Validate() error {
	var missing []string
	if c.AppKey == "" {
		missing = append(missing, "app key")
	}
	if c.AppSecret == "" {
		missing = append(missing, "app secret")
	}
	if c.AccessToken == "" {
		missing = append(missing, "access token")
	}
	if c.AccessSecret == "" {
		missing = append(missing, "access secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing X credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

// APIError is a rejected tweet.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("X API error (status %d): %s", e.StatusCode, e.Body)
}

// IsAPIError reports whether err carries an APIError with the given status.
func IsAPIError(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Client posts tweets.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL string
	base    *http.Client
	logger  *slog.Logger
}

// WithBaseURL points the client at another API host.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithHTTPClient sets the client the OAuth1 transport wraps.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.base = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// New creates a client that signs every request with creds.
func New(creds Credentials, opts ...Option) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	o := clientOptions{
		baseURL: DefaultBaseURL,
		base:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	config := oauth1.NewConfig(creds.AppKey, creds.AppSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, o.base)

	return &Client{
		baseURL:    strings.TrimRight(o.baseURL, "/"),
		httpClient: config.Client(ctx, token),
		logger:     o.logger,
	}, nil
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Reply *replyField `json:"reply,omitempty"`
}

type replyField struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// Post publishes a standalone tweet and returns its id.
func (c *Client) Post(ctx context.Context, text string) (string, error) {
	return c.create(ctx, tweetRequest{Text: text})
}

// Reply publishes text in reply to inReplyToID and returns the new id.
func (c *Client) Reply(ctx context.Context, text, inReplyToID string) (string, error) {
	if inReplyToID == "" {
		return "", fmt.Errorf("reply requires a tweet id")
	}
	return c.create(ctx, tweetRequest{
		Text:  text,
		Reply: &replyField{InReplyToTweetID: inReplyToID},
	})
}

func (c *Client) create(ctx context.Context, tr tweetRequest) (string, error) {
	if strings.TrimSpace(tr.Text) == "" {
		return "", fmt.Errorf("tweet text is empty")
	}

	body, err := json.Marshal(tr)
	if err != nil {
		return "", fmt.Errorf("marshal tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post tweet: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: truncateBody(string(respBody))}
	}

	var tweet tweetResponse
	if err := json.Unmarshal(respBody, &tweet); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if tweet.Data.ID == "" {
		return "", fmt.Errorf("X API returned no tweet id")
	}

	c.logger.Debug("Tweet created", "id", tweet.Data.ID, "reply", tr.Reply != nil)
	return tweet.Data.ID, nil
}
