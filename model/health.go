package model

import (
	"sync"
	"time"
)

// EndpointHealth tracks the health status of a model endpoint.
type EndpointHealth struct {
	// Available indicates if the endpoint is currently usable.
	Available bool `json:"available"`

	// LastSuccess is the time of the last successful request.
	LastSuccess time.Time `json:"last_success,omitempty"`

	// LastFailure is the time of the last failed request.
	LastFailure time.Time `json:"last_failure,omitempty"`

	// FailureCount is the number of consecutive failures.
	FailureCount int `json:"failure_count"`

	// CircuitOpen indicates if the circuit breaker has tripped.
	CircuitOpen bool `json:"circuit_open"`

	// CircuitOpenedAt is when the circuit was opened.
	CircuitOpenedAt time.Time `json:"circuit_opened_at,omitempty"`
}

// HealthConfig configures health tracking behavior.
type HealthConfig struct {
	// FailureThreshold is the number of consecutive failures before
	// opening the circuit.
	FailureThreshold int

	// RecoveryTimeout is how long to wait before allowing a test request
	// to a tripped endpoint.
	RecoveryTimeout time.Duration
}

// DefaultHealthConfig returns sensible defaults for health tracking.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
	}
}

type healthState struct {
	mu       sync.RWMutex
	config   HealthConfig
	statuses map[string]*EndpointHealth
}

func newHealthState(cfg HealthConfig) *healthState {
	return &healthState{
		config:   cfg,
		statuses: make(map[string]*EndpointHealth),
	}
}

func (h *healthState) getOrCreate(name string) *EndpointHealth {
	h.mu.Lock()
	defer h.mu.Unlock()

	if status, ok := h.statuses[name]; ok {
		return status
	}

	status := &EndpointHealth{Available: true}
	h.statuses[name] = status
	return status
}

func (r *Registry) ensureHealth() *healthState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.health == nil {
		r.health = newHealthState(DefaultHealthConfig())
	}
	return r.health
}

// MarkEndpointSuccess records a successful request to an endpoint and
// closes its circuit.
func (r *Registry) MarkEndpointSuccess(name string) {
	h := r.ensureHealth()
	status := h.getOrCreate(name)

	h.mu.Lock()
	defer h.mu.Unlock()

	status.LastSuccess = time.Now()
	status.FailureCount = 0
	status.Available = true
	status.CircuitOpen = false
}

// MarkEndpointFailure records a failed request to an endpoint, opening the
// circuit once the consecutive-failure threshold is reached.
func (r *Registry) MarkEndpointFailure(name string) {
	h := r.ensureHealth()
	status := h.getOrCreate(name)

	h.mu.Lock()
	defer h.mu.Unlock()

	status.LastFailure = time.Now()
	status.FailureCount++

	if status.FailureCount >= h.config.FailureThreshold {
		status.CircuitOpen = true
		status.CircuitOpenedAt = time.Now()
		status.Available = false
	}
}

// IsEndpointAvailable checks if an endpoint is available for requests.
// Returns false while the circuit breaker is open and the recovery timeout
// has not yet passed; after the timeout one test request is allowed.
func (r *Registry) IsEndpointAvailable(name string) bool {
	r.mu.RLock()
	h := r.health
	r.mu.RUnlock()
	if h == nil {
		return true
	}

	h.mu.RLock()
	status, ok := h.statuses[name]
	if !ok {
		h.mu.RUnlock()
		return true
	}
	circuitOpen := status.CircuitOpen
	circuitOpenedAt := status.CircuitOpenedAt
	recoveryTimeout := h.config.RecoveryTimeout
	h.mu.RUnlock()

	if !circuitOpen {
		return true
	}

	// Half-open: allow a test request once the recovery timeout passes.
	return time.Since(circuitOpenedAt) > recoveryTimeout
}

// GetEndpointHealth returns a copy of the health status for an endpoint,
// or nil if no health information has been recorded.
func (r *Registry) GetEndpointHealth(name string) *EndpointHealth {
	r.mu.RLock()
	h := r.health
	r.mu.RUnlock()
	if h == nil {
		return nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if status, ok := h.statuses[name]; ok {
		snapshot := *status
		return &snapshot
	}
	return nil
}
