package model

import (
	"testing"
	"time"
)

func TestRegistry_ResolveAndChain(t *testing.T) {
	r := NewRegistry(
		map[Role]*RoleConfig{
			RoleWriter: {Preferred: []string{"big", "medium"}, Fallback: []string{"small"}},
		},
		map[string]*EndpointConfig{
			"big": {Provider: "gemini", Model: "gemini-2.5-pro"},
		},
	)
	r.SetDefault("small")

	if got := r.Resolve(RoleWriter); got != "big" {
		t.Errorf("Resolve = %q, want big", got)
	}

	chain := r.Chain(RoleWriter)
	want := []string{"big", "medium", "small"}
	if len(chain) != len(want) {
		t.Fatalf("chain = %v", chain)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Errorf("chain[%d] = %q, want %q", i, chain[i], want[i])
		}
	}

	// Unconfigured roles fall back to the default model.
	if got := r.Resolve(RoleCaptioner); got != "small" {
		t.Errorf("Resolve(captioner) = %q, want small", got)
	}
	chain = r.Chain(RoleCaptioner)
	if len(chain) != 1 || chain[0] != "small" {
		t.Errorf("Chain(captioner) = %v", chain)
	}
}

func TestDefaultRegistry_CoversAllRoles(t *testing.T) {
	r := NewDefaultRegistry()
	for _, role := range AllRoles {
		name := r.Resolve(role)
		if name == "" {
			t.Errorf("role %s resolves to nothing", role)
			continue
		}
		if r.GetEndpoint(name) == nil {
			t.Errorf("role %s resolves to unconfigured endpoint %q", role, name)
		}
	}
}

func TestParseRole(t *testing.T) {
	if ParseRole("writer") != RoleWriter {
		t.Error("known role should parse")
	}
	if ParseRole("nonsense") != "" {
		t.Error("unknown role should parse to empty")
	}
}

func TestEndpointHealth_CircuitBreaker(t *testing.T) {
	r := NewDefaultRegistry()
	const name = "gemini-flash"

	if !r.IsEndpointAvailable(name) {
		t.Fatal("endpoint should start available")
	}

	r.MarkEndpointFailure(name)
	r.MarkEndpointFailure(name)
	if !r.IsEndpointAvailable(name) {
		t.Error("two failures should not open the circuit")
	}

	r.MarkEndpointFailure(name)
	if r.IsEndpointAvailable(name) {
		t.Error("third consecutive failure should open the circuit")
	}

	health := r.GetEndpointHealth(name)
	if health == nil || !health.CircuitOpen || health.FailureCount != 3 {
		t.Errorf("health = %+v", health)
	}

	// Success closes the circuit and resets the failure count.
	r.MarkEndpointSuccess(name)
	if !r.IsEndpointAvailable(name) {
		t.Error("success should close the circuit")
	}
	health = r.GetEndpointHealth(name)
	if health.FailureCount != 0 || health.CircuitOpen {
		t.Errorf("health after success = %+v", health)
	}
}

func TestEndpointHealth_HalfOpenAfterRecoveryTimeout(t *testing.T) {
	r := NewDefaultRegistry()
	const name = "gemini-pro"

	for i := 0; i < 3; i++ {
		r.MarkEndpointFailure(name)
	}
	if r.IsEndpointAvailable(name) {
		t.Fatal("circuit should be open")
	}

	// Backdate the trip time past the recovery timeout; a test request is
	// then allowed through.
	h := r.ensureHealth()
	h.mu.Lock()
	h.statuses[name].CircuitOpenedAt = time.Now().Add(-time.Hour)
	h.mu.Unlock()

	if !r.IsEndpointAvailable(name) {
		t.Error("half-open circuit should allow a test request")
	}
}
