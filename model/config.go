package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// RegistryConfig is the JSON form of a registry. A file may hold it directly
// or under a "model_registry" key.
type RegistryConfig struct {
	Capabilities map[string]*CapabilityConfig `json:"capabilities"`
	Endpoints    map[string]*EndpointConfig   `json:"endpoints"`
	Defaults     *DefaultsConfig              `json:"defaults,omitempty"`
}

// LoadFromFile loads a registry from a JSON file.
func LoadFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model registry: %w", err)
	}
	return LoadFromJSON(data)
}

// LoadFromJSON loads a registry from JSON data.
func LoadFromJSON(data []byte) (*Registry, error) {
	var wrapped struct {
		ModelRegistry *RegistryConfig `json:"model_registry"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.ModelRegistry != nil {
		return registryFromConfig(wrapped.ModelRegistry)
	}

	var cfg RegistryConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse model registry: %w", err)
	}
	return registryFromConfig(&cfg)
}

func registryFromConfig(cfg *RegistryConfig) (*Registry, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("model registry has no endpoints")
	}

	caps := make(map[Capability]*CapabilityConfig, len(cfg.Capabilities))
	for k, v := range cfg.Capabilities {
		caps[Capability(k)] = v
	}

	r := NewRegistry(caps, cfg.Endpoints)
	if cfg.Defaults != nil && cfg.Defaults.Model != "" {
		r.defaults.Model = cfg.Defaults.Model
	}

	for c, capCfg := range caps {
		for _, name := range append(append([]string{}, capCfg.Preferred...), capCfg.Fallback...) {
			if _, ok := cfg.Endpoints[name]; !ok {
				return nil, fmt.Errorf("capability %s references unknown endpoint %q", c, name)
			}
		}
	}
	return r, nil
}
