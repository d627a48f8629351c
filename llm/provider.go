package llm

import (
	"net/http"
	"sync"
)

// Provider defines the interface for hosted LLM service adapters.
type Provider interface {
	// Name returns the provider identifier (e.g., "gemini", "openai").
	Name() string

	// BuildURL constructs the full completion endpoint URL.
	BuildURL(baseURL, model string) string

	// StreamURL constructs the streaming endpoint URL.
	StreamURL(baseURL, model string) string

	// SetHeaders adds provider-specific headers (auth, API version).
	SetHeaders(req *http.Request)

	// BuildRequestBody creates the JSON request body for the provider.
	// stream is true for streaming calls, for providers that toggle
	// streaming in the body rather than the URL.
	BuildRequestBody(model string, req Request, stream bool) ([]byte, error)

	// ParseResponse extracts the completion from provider-specific JSON.
	ParseResponse(body []byte, model string) (*Response, error)

	// ParseStreamEvent extracts the text delta from one streaming event.
	// done is true when the event signals end of generation.
	ParseStreamEvent(data []byte) (text string, done bool, err error)
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

// GetProvider retrieves a provider by name, or nil if unregistered.
func GetProvider(name string) Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[name]
}

// ListProviders returns all registered provider names.
func ListProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()

	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	return names
}
