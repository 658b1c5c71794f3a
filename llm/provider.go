package llm

import (
	"net/http"
	"sort"
	"sync"
)

// Provider adapts the client to one vendor's wire format.
type Provider interface {
	// Name returns the identifier used in model.EndpointConfig.Provider.
	Name() string

	// BuildURL returns the completion URL for a configured base URL. An
	// empty base selects the provider default.
	BuildURL(baseURL string) string

	// SetHeaders adds authentication and vendor headers.
	SetHeaders(req *http.Request)

	// BuildRequestBody encodes req for the given model.
	BuildRequestBody(model string, req Request) ([]byte, error)

	// ParseResponse decodes a 200 reply.
	ParseResponse(body []byte) (*Response, error)
}

var (
	providerRegistry = make(map[string]Provider)
	providerMu       sync.RWMutex
)

// RegisterProvider adds a provider to the registry.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a provider by name.
func GetProvider(name string) Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[name]
}

// ListProviders returns all registered provider names, sorted.
func ListProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()

	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
