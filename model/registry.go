package model

import "sync"

// Registry manages model selection based on agent roles.
// It maps roles to preferred models with fallback chains and tracks
// per-endpoint health.
type Registry struct {
	mu        sync.RWMutex
	roles     map[Role]*RoleConfig
	endpoints map[string]*EndpointConfig
	defaults  *DefaultsConfig
	health    *healthState
}

// RoleConfig defines model preferences for an agent role.
type RoleConfig struct {
	// Description explains what this role is for.
	Description string `json:"description" yaml:"description"`

	// Preferred lists models in order of preference.
	Preferred []string `json:"preferred" yaml:"preferred"`

	// Fallback lists backup models if all preferred are unavailable.
	Fallback []string `json:"fallback" yaml:"fallback"`
}

// EndpointConfig defines an available model endpoint.
type EndpointConfig struct {
	// Provider is the model provider (gemini, openai, ollama).
	Provider string `json:"provider" yaml:"provider"`

	// URL is the API base URL. Empty uses the provider default.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Model is the actual model identifier sent to the provider.
	Model string `json:"model" yaml:"model"`

	// MaxTokens is the context window size.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// DefaultsConfig holds default model settings.
type DefaultsConfig struct {
	// Model is the default model when no role matches.
	Model string `json:"model" yaml:"model"`
}

// NewRegistry creates a model registry with the given configuration.
func NewRegistry(roles map[Role]*RoleConfig, endpoints map[string]*EndpointConfig) *Registry {
	return &Registry{
		roles:     roles,
		endpoints: endpoints,
		defaults:  &DefaultsConfig{Model: "default"},
	}
}

// NewDefaultRegistry creates a registry with sensible defaults,
// used when no configuration file is provided.
func NewDefaultRegistry() *Registry {
	return &Registry{
		roles: map[Role]*RoleConfig{
			RolePlanner: {
				Description: "Visualization planning, stage orchestration decisions",
				Preferred:   []string{"gemini-pro"},
				Fallback:    []string{"gemini-flash"},
			},
			RoleBuilder: {
				Description: "Structured chart payload generation",
				Preferred:   []string{"gemini-flash"},
				Fallback:    []string{"gemini-pro"},
			},
			RoleSummarizer: {
				Description: "Stage output condensation",
				Preferred:   []string{"gemini-flash"},
			},
			RoleWriter: {
				Description: "Section prose for publication assembly",
				Preferred:   []string{"gemini-pro"},
				Fallback:    []string{"gemini-flash"},
			},
			RoleEditor: {
				Description: "Final document assembly over large input",
				Preferred:   []string{"gemini-pro"},
			},
			RoleCaptioner: {
				Description: "Figure captions for chart artifacts",
				Preferred:   []string{"gemini-flash"},
			},
			RoleReviewer: {
				Description: "Peer-review simulation across prior stages",
				Preferred:   []string{"gemini-pro"},
				Fallback:    []string{"gemini-flash"},
			},
			RoleBibliographer: {
				Description: "Citation reformatting",
				Preferred:   []string{"gemini-flash"},
			},
			RoleFast: {
				Description: "Quick responses, simple single-call stages",
				Preferred:   []string{"gemini-flash"},
			},
		},
		endpoints: map[string]*EndpointConfig{
			"gemini-pro": {
				Provider:  "gemini",
				Model:     "gemini-2.5-pro",
				MaxTokens: 1048576,
			},
			"gemini-flash": {
				Provider:  "gemini",
				Model:     "gemini-2.5-flash",
				MaxTokens: 1048576,
			},
		},
		defaults: &DefaultsConfig{Model: "gemini-flash"},
	}
}

// Resolve returns the preferred model for a role.
func (r *Registry) Resolve(role Role) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.roles[role]; ok && len(cfg.Preferred) > 0 {
		return cfg.Preferred[0]
	}
	return r.defaults.Model
}

// Chain returns all models for a role in order of preference.
func (r *Registry) Chain(role Role) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.roles[role]; ok {
		chain := make([]string, 0, len(cfg.Preferred)+len(cfg.Fallback))
		chain = append(chain, cfg.Preferred...)
		chain = append(chain, cfg.Fallback...)
		if len(chain) > 0 {
			return chain
		}
	}
	return []string{r.defaults.Model}
}

// GetEndpoint returns the endpoint configuration for a model name,
// or nil if the model is not configured.
func (r *Registry) GetEndpoint(modelName string) *EndpointConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.endpoints[modelName]
}

// SetRole updates or adds a role configuration.
func (r *Registry) SetRole(role Role, cfg *RoleConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.roles == nil {
		r.roles = make(map[Role]*RoleConfig)
	}
	r.roles[role] = cfg
}

// SetEndpoint updates or adds an endpoint configuration.
func (r *Registry) SetEndpoint(name string, cfg *EndpointConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.endpoints == nil {
		r.endpoints = make(map[string]*EndpointConfig)
	}
	r.endpoints[name] = cfg
}

// SetDefault sets the default model.
func (r *Registry) SetDefault(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.defaults == nil {
		r.defaults = &DefaultsConfig{}
	}
	r.defaults.Model = model
}

// ListEndpoints returns all configured endpoint names.
func (r *Registry) ListEndpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.endpoints))
	for name := range r.endpoints {
		names = append(names, name)
	}
	return names
}
