// Package llm provides a provider-agnostic chat completion client with retry
// and fallback support. Models are chosen through model.Registry by
// capability, so bots never name a hosted model directly.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hk-410/hakyng-bots/metrics"
	"github.com/hk-410/hakyng-bots/model"
)

// maxResponseSize limits the LLM response body.
const maxResponseSize = 4 * 1024 * 1024

// ResponseFormatJSON asks the provider for a single JSON object.
const ResponseFormatJSON = "json_object"

// Completer is implemented by anything that can answer a chat request.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Client is a provider-agnostic LLM client with retry and fallback support.
type Client struct {
	registry    *model.Registry
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// SystemMessage returns a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage returns a user-role message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// Request defines an LLM completion request.
type Request struct {
	// Capability is resolved by the registry to a chain of endpoints.
	Capability string

	Messages []Message

	// Temperature controls randomness. nil uses the endpoint default.
	Temperature *float64

	// MaxTokens limits response length. 0 uses the endpoint default.
	MaxTokens int

	// ResponseFormat is empty for free text or ResponseFormatJSON.
	ResponseFormat string
}

// TokenUsage represents token consumption for one call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response contains the LLM completion result.
type Response struct {
	// RequestID identifies this Complete call in logs.
	RequestID string

	Content string

	// Model is the model that actually answered.
	Model string

	Usage TokenUsage

	FinishReason string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRetryConfig sets the retry configuration. Every endpoint is tried at
// least once.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(client *Client) {
		cfg.MaxAttempts = max(cfg.MaxAttempts, 1)
		client.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithMetrics records every Complete call in m.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(client *Client) {
		client.metrics = m
	}
}

// NewClient creates a new LLM client with the given model registry.
func NewClient(registry *model.Registry, opts ...ClientOption) *Client {
	c := &Client{
		registry:    registry,
		retryConfig: DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Complete sends a completion request, walking the capability's fallback
// chain and retrying transient failures on each endpoint.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.Capability == "" {
		return nil, fmt.Errorf("capability is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}

	requestID := uuid.New().String()
	logger := c.logger.With("request_id", requestID, "capability", req.Capability)

	capVal := model.ParseCapability(req.Capability)
	if capVal == "" {
		capVal = model.Capability(req.Capability)
	}
	chain := c.registry.GetAvailableFallbackChain(capVal)

	var lastErr error
	for _, modelName := range chain {
		endpoint := c.registry.GetEndpoint(modelName)
		if endpoint == nil {
			logger.Debug("No endpoint for model, skipping", "model", modelName)
			continue
		}

		started := time.Now()
		resp, err := c.tryEndpoint(ctx, logger, endpoint, modelName, req)
		if err == nil {
			resp.RequestID = requestID
			logger.Debug("LLM call completed",
				"model", resp.Model,
				"duration", time.Since(started),
				"total_tokens", resp.Usage.TotalTokens)
			c.metrics.LLMRequest(req.Capability, nil)
			return resp, nil
		}

		lastErr = err
		logger.Warn("Endpoint failed, trying fallback",
			"model", modelName,
			"provider", endpoint.Provider,
			"error", err)

		if IsFatal(err) || ctx.Err() != nil {
			c.metrics.LLMRequest(req.Capability, err)
			return nil, err
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no usable endpoint in chain %v", chain)
	}
	err := fmt.Errorf("all endpoints failed for capability %s: %w", req.Capability, lastErr)
	c.metrics.LLMRequest(req.Capability, err)
	return nil, err
}

// tryEndpoint attempts a request against one endpoint with retries.
func (c *Client) tryEndpoint(ctx context.Context, logger *slog.Logger, ep *model.EndpointConfig, modelName string, req Request) (*Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.retryConfig.MaxAttempts; attempt++ {
		resp, err := c.doRequest(ctx, ep, req)
		if err == nil {
			c.registry.MarkEndpointSuccess(modelName)
			return resp, nil
		}
		lastErr = err

		// Auth and bad-request failures say nothing about endpoint health.
		if IsFatal(err) {
			return nil, err
		}

		if attempt < c.retryConfig.MaxAttempts {
			backoff := c.retryConfig.Backoff(attempt)
			logger.Debug("Request failed, retrying",
				"model", modelName,
				"attempt", attempt,
				"backoff", backoff,
				"error", err)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	c.registry.MarkEndpointFailure(modelName)
	return nil, lastErr
}

// doRequest executes a single HTTP request to the LLM endpoint.
func (c *Client) doRequest(ctx context.Context, ep *model.EndpointConfig, req Request) (*Response, error) {
	provider := GetProvider(ep.Provider)
	if provider == nil {
		return nil, NewFatalError(fmt.Errorf("unknown provider: %s", ep.Provider))
	}

	url := provider.BuildURL(ep.URL)

	body, err := provider.BuildRequestBody(ep.Model, req)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	provider.SetHeaders(httpReq)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}

	resp, err := provider.ParseResponse(respBody)
	if err != nil {
		return nil, NewTransientError(err)
	}
	if resp.Model == "" {
		resp.Model = ep.Model
	}
	return resp, nil
}
