package model

import (
	"sync"
	"time"
)

// EndpointHealth is a snapshot of one endpoint's circuit breaker.
type EndpointHealth struct {
	LastSuccess     time.Time `json:"last_success,omitempty"`
	LastFailure     time.Time `json:"last_failure,omitempty"`
	FailureCount    int       `json:"failure_count"`
	CircuitOpen     bool      `json:"circuit_open"`
	CircuitOpenedAt time.Time `json:"circuit_opened_at,omitempty"`
}

// HealthConfig configures the circuit breaker.
type HealthConfig struct {
	// FailureThreshold is the number of consecutive failed calls (after
	// retries) that opens the circuit.
	FailureThreshold int

	// RecoveryTimeout is how long an open circuit stays closed to traffic
	// before one trial request is let through.
	RecoveryTimeout time.Duration
}

// DefaultHealthConfig returns the breaker settings used in production.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
	}
}

type healthTracker struct {
	mu       sync.Mutex
	cfg      HealthConfig
	now      func() time.Time
	statuses map[string]*EndpointHealth
}

func newHealthTracker(cfg HealthConfig, now func() time.Time) *healthTracker {
	return &healthTracker{
		cfg:      cfg,
		now:      now,
		statuses: make(map[string]*EndpointHealth),
	}
}

func (h *healthTracker) status(name string) *EndpointHealth {
	s, ok := h.statuses[name]
	if !ok {
		s = &EndpointHealth{}
		h.statuses[name] = s
	}
	return s
}

// MarkEndpointSuccess closes the endpoint's circuit.
func (r *Registry) MarkEndpointSuccess(name string) {
	h := r.health
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.status(name)
	s.LastSuccess = h.now()
	s.FailureCount = 0
	s.CircuitOpen = false
}

// MarkEndpointFailure records a failure and opens the circuit once the
// threshold is reached.
func (r *Registry) MarkEndpointFailure(name string) {
	h := r.health
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.status(name)
	s.LastFailure = h.now()
	s.FailureCount++
	if s.FailureCount >= h.cfg.FailureThreshold && !s.CircuitOpen {
		s.CircuitOpen = true
		s.CircuitOpenedAt = s.LastFailure
	}
}

// IsEndpointAvailable reports whether requests may be sent to the endpoint.
// An open circuit becomes available again (half-open) after the recovery
// timeout.
func (r *Registry) IsEndpointAvailable(name string) bool {
	h := r.health
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.statuses[name]
	if !ok || !s.CircuitOpen {
		return true
	}
	return h.now().Sub(s.CircuitOpenedAt) > h.cfg.RecoveryTimeout
}

// GetEndpointHealth returns a copy of the endpoint's health, or nil if it
// has never been called.
func (r *Registry) GetEndpointHealth(name string) *EndpointHealth {
	h := r.health
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.statuses[name]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

// SetHealthConfig replaces the breaker settings.
func (r *Registry) SetHealthConfig(cfg HealthConfig) {
	r.health.mu.Lock()
	defer r.health.mu.Unlock()
	r.health.cfg = cfg
}

// ResetEndpointHealth forgets everything known about an endpoint.
func (r *Registry) ResetEndpointHealth(name string) {
	r.health.mu.Lock()
	defer r.health.mu.Unlock()
	delete(r.health.statuses, name)
}
