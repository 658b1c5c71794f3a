package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/hk-410/hakyng-bots/llm"
	_ "github.com/hk-410/hakyng-bots/llm/providers" // Register providers
	"github.com/hk-410/hakyng-bots/metrics"
	"github.com/hk-410/hakyng-bots/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCompletion(w http.ResponseWriter, model, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":    "chatcmpl-123",
		"model": model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 8, "total_tokens": 18},
	})
}

func registryFor(urls map[string]string, preferred ...string) *model.Registry {
	endpoints := make(map[string]*model.EndpointConfig, len(urls))
	for name, url := range urls {
		endpoints[name] = &model.EndpointConfig{Provider: "groq", URL: url, Model: name}
	}
	return model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityWriting: {Preferred: preferred[:1], Fallback: preferred[1:]},
		},
		endpoints,
	)
}

func fastRetry() llm.ClientOption {
	return llm.WithRetryConfig(llm.RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       5 * time.Millisecond,
		BackoffMultiplier: 1.5,
		MaxBackoff:        20 * time.Millisecond,
	})
}

func writingRequest() llm.Request {
	temp := 0.75
	return llm.Request{
		Capability:  "writing",
		Messages:    []llm.Message{llm.SystemMessage("너는 나날 봇이야"), llm.UserMessage("Today is November 10.")},
		Temperature: &temp,
	}
}

func TestClient_Complete_Success(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_test")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "primary", body["model"])
		assert.Equal(t, 0.75, body["temperature"])

		writeCompletion(w, "primary", "11월 10일, 오늘은...")
	}))
	defer server.Close()

	m := metrics.New()
	client := llm.NewClient(registryFor(map[string]string{"primary": server.URL}, "primary"), llm.WithMetrics(m))

	resp, err := client.Complete(context.Background(), writingRequest())
	require.NoError(t, err)
	assert.Equal(t, "11월 10일, 오늘은...", resp.Content)
	assert.Equal(t, "primary", resp.Model)
	assert.Equal(t, 18, resp.Usage.TotalTokens)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMRequests().WithLabelValues("writing", "success")))
}

func TestClient_Complete_RetryOnTransientError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("over capacity"))
			return
		}
		writeCompletion(w, "primary", "Success after retries")
	}))
	defer server.Close()

	registry := registryFor(map[string]string{"primary": server.URL}, "primary")
	client := llm.NewClient(registry, fastRetry())

	resp, err := client.Complete(context.Background(), writingRequest())
	require.NoError(t, err)
	assert.Equal(t, "Success after retries", resp.Content)
	assert.Equal(t, int32(3), attempts.Load())
	assert.True(t, registry.IsEndpointAvailable("primary"))
}

func TestClient_Complete_ZeroMaxAttempts(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeCompletion(w, "primary", "unreachable")
	}))
	defer server.Close()

	registry := registryFor(map[string]string{"primary": server.URL}, "primary")
	client := llm.NewClient(registry, llm.WithRetryConfig(llm.RetryConfig{}))

	_, err := client.Complete(context.Background(), writingRequest())
	require.Error(t, err)
	assert.True(t, llm.IsTransient(err))
	assert.Equal(t, int32(1), attempts.Load())

	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "primary", "single shot")
	}))
	defer ok.Close()

	client = llm.NewClient(registryFor(map[string]string{"primary": ok.URL}, "primary"),
		llm.WithRetryConfig(llm.RetryConfig{MaxAttempts: -2}))
	resp, err := client.Complete(context.Background(), writingRequest())
	require.NoError(t, err)
	assert.Equal(t, "single shot", resp.Content)
}

func TestClient_Complete_ErrorBodyKeepsValidUTF8(t *testing.T) {
	body := "x" + strings.Repeat("가", 100)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	client := llm.NewClient(registryFor(map[string]string{"primary": server.URL}, "primary"), fastRetry())
	_, err := client.Complete(context.Background(), writingRequest())

	var statusErr *llm.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.True(t, utf8.ValidString(statusErr.Body), "body %q", statusErr.Body)
	assert.True(t, strings.HasSuffix(statusErr.Body, "..."))
	assert.True(t, strings.HasPrefix(body, strings.TrimSuffix(statusErr.Body, "...")))
}

func TestClient_Complete_NoRetryOnFatalError(t *testing.T) {
	var attempts atomic.Int32
	var fallbackHits atomic.Int32

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "invalid api key"}`))
	}))
	defer primary.Close()
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackHits.Add(1)
		writeCompletion(w, "fallback", "should not be reached")
	}))
	defer fallback.Close()

	client := llm.NewClient(registryFor(map[string]string{
		"primary":  primary.URL,
		"fallback": fallback.URL,
	}, "primary", "fallback"), fastRetry())

	_, err := client.Complete(context.Background(), writingRequest())
	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))

	var statusErr *llm.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, int32(0), fallbackHits.Load())
}

func TestClient_Complete_Fallback(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer primary.Close()
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "fallback", "from fallback")
	}))
	defer fallback.Close()

	registry := registryFor(map[string]string{
		"primary":  primary.URL,
		"fallback": fallback.URL,
	}, "primary", "fallback")
	registry.SetHealthConfig(model.HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour})
	client := llm.NewClient(registry, fastRetry())

	resp, err := client.Complete(context.Background(), writingRequest())
	require.NoError(t, err)
	assert.Equal(t, "from fallback", resp.Content)
	assert.Equal(t, "fallback", resp.Model)
	assert.False(t, registry.IsEndpointAvailable("primary"))
}

func TestClient_Complete_AllEndpointsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	m := metrics.New()
	client := llm.NewClient(registryFor(map[string]string{"primary": server.URL}, "primary"), fastRetry(), llm.WithMetrics(m))

	_, err := client.Complete(context.Background(), writingRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all endpoints failed")
	assert.True(t, llm.IsTransient(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMRequests().WithLabelValues("writing", "error")))
}

func TestClient_Complete_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := llm.NewClient(registryFor(map[string]string{"primary": server.URL}, "primary"),
		llm.WithRetryConfig(llm.RetryConfig{
			MaxAttempts:       5,
			BackoffBase:       time.Second,
			BackoffMultiplier: 2,
			MaxBackoff:        5 * time.Second,
		}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Complete(ctx, writingRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_Complete_ValidationErrors(t *testing.T) {
	client := llm.NewClient(model.NewDefaultRegistry())

	_, err := client.Complete(context.Background(), llm.Request{Messages: []llm.Message{llm.UserMessage("hi")}})
	assert.ErrorContains(t, err, "capability is required")

	_, err = client.Complete(context.Background(), llm.Request{Capability: "writing"})
	assert.ErrorContains(t, err, "at least one message")
}

func TestClient_Complete_UnknownProvider(t *testing.T) {
	registry := model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityWriting: {Preferred: []string{"m"}},
		},
		map[string]*model.EndpointConfig{"m": {Provider: "carrier-pigeon", Model: "m"}},
	)

	_, err := llm.NewClient(registry).Complete(context.Background(), writingRequest())
	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestRetryConfig_Backoff(t *testing.T) {
	cfg := llm.RetryConfig{BackoffBase: 100 * time.Millisecond, BackoffMultiplier: 2, MaxBackoff: 300 * time.Millisecond}

	first := cfg.Backoff(1)
	assert.GreaterOrEqual(t, first, 75*time.Millisecond)
	assert.LessOrEqual(t, first, 125*time.Millisecond)

	capped := cfg.Backoff(5)
	assert.LessOrEqual(t, capped, 375*time.Millisecond)
	assert.GreaterOrEqual(t, capped, 225*time.Millisecond)
}
