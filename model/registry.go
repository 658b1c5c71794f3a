package model

import (
	"sort"
	"sync"
	"time"
)

// Registry resolves capabilities to model endpoints and tracks endpoint
// health.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[Capability]*CapabilityConfig
	endpoints    map[string]*EndpointConfig
	defaults     *DefaultsConfig

	health *healthTracker
}

// CapabilityConfig defines model preferences for a capability.
type CapabilityConfig struct {
	Description string `json:"description"`

	// Preferred lists models in order of preference.
	Preferred []string `json:"preferred"`

	// Fallback lists backup models tried after every preferred one.
	Fallback []string `json:"fallback"`
}

// EndpointConfig defines a hosted model endpoint.
type EndpointConfig struct {
	// Provider names a registered llm provider ("groq", "openai").
	Provider string `json:"provider"`

	// URL overrides the provider's base URL. Empty uses the provider default.
	URL string `json:"url,omitempty"`

	// Model is the identifier sent to the provider.
	Model string `json:"model"`

	// MaxTokens is the context window size.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// DefaultsConfig holds default model settings.
type DefaultsConfig struct {
	// Model is used when no capability matches.
	Model string `json:"model"`
}

// NewRegistry creates a registry with the given capabilities and endpoints.
func NewRegistry(caps map[Capability]*CapabilityConfig, endpoints map[string]*EndpointConfig) *Registry {
	if caps == nil {
		caps = make(map[Capability]*CapabilityConfig)
	}
	if endpoints == nil {
		endpoints = make(map[string]*EndpointConfig)
	}
	return &Registry{
		capabilities: caps,
		endpoints:    endpoints,
		defaults:     &DefaultsConfig{Model: "default"},
		health:       newHealthTracker(DefaultHealthConfig(), time.Now),
	}
}

// NewDefaultRegistry returns the Groq-hosted setup the bots run on.
func NewDefaultRegistry() *Registry {
	r := NewRegistry(
		map[Capability]*CapabilityConfig{
			CapabilityRanking: {
				Description: "Daily fortune ranking as strict JSON",
				Preferred:   []string{"gpt-oss-120b"},
				Fallback:    []string{"llama-3.3-70b"},
			},
			CapabilityWriting: {
				Description: "One witty Korean tweet",
				Preferred:   []string{"gpt-oss-120b"},
				Fallback:    []string{"llama-3.3-70b"},
			},
			CapabilityFast: {
				Description: "Quick, cheap responses",
				Preferred:   []string{"llama-3.1-8b"},
				Fallback:    []string{"llama-3.3-70b"},
			},
		},
		map[string]*EndpointConfig{
			"gpt-oss-120b": {
				Provider:  "groq",
				Model:     "openai/gpt-oss-120b",
				MaxTokens: 131072,
			},
			"llama-3.3-70b": {
				Provider:  "groq",
				Model:     "llama-3.3-70b-versatile",
				MaxTokens: 131072,
			},
			"llama-3.1-8b": {
				Provider:  "groq",
				Model:     "llama-3.1-8b-instant",
				MaxTokens: 131072,
			},
		},
	)
	r.defaults.Model = "gpt-oss-120b"
	return r
}

// Resolve returns the first preferred model for a capability, or the default
// model.
func (r *Registry) Resolve(c Capability) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.capabilities[c]; ok && len(cfg.Preferred) > 0 {
		return cfg.Preferred[0]
	}
	return r.defaults.Model
}

// GetFallbackChain returns every model for a capability, preferred first.
func (r *Registry) GetFallbackChain(c Capability) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.capabilities[c]
	if !ok {
		return []string{r.defaults.Model}
	}
	chain := make([]string, 0, len(cfg.Preferred)+len(cfg.Fallback))
	chain = append(chain, cfg.Preferred...)
	return append(chain, cfg.Fallback...)
}

// GetAvailableFallbackChain is GetFallbackChain without endpoints whose
// circuit is open. When every endpoint is down the full chain is returned.
func (r *Registry) GetAvailableFallbackChain(c Capability) []string {
	chain := r.GetFallbackChain(c)
	available := make([]string, 0, len(chain))
	for _, name := range chain {
		if r.IsEndpointAvailable(name) {
			available = append(available, name)
		}
	}
	if len(available) == 0 {
		return chain
	}
	return available
}

// GetEndpoint returns the endpoint for a model name, or nil.
func (r *Registry) GetEndpoint(name string) *EndpointConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.endpoints[name]
}

// SetCapability adds or replaces a capability.
func (r *Registry) SetCapability(c Capability, cfg *CapabilityConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities[c] = cfg
}

// SetEndpoint adds or replaces an endpoint.
func (r *Registry) SetEndpoint(name string, cfg *EndpointConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[name] = cfg
}

// SetDefault sets the model used for unknown capabilities.
func (r *Registry) SetDefault(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults.Model = name
}

// ListEndpoints returns endpoint names, sorted.
func (r *Registry) ListEndpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.endpoints))
	for name := range r.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
