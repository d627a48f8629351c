package providers

import (
	"net/http"
	"strings"

	"github.com/mosaicsci/inquiry/llm"
)

// OllamaProvider implements local Ollama inference via its OpenAI-compatible
// endpoint. No authentication is required.
type OllamaProvider struct {
	openai OpenAIProvider
}

func init() {
	llm.RegisterProvider(&OllamaProvider{})
}

// Name returns the provider identifier.
func (o *OllamaProvider) Name() string {
	return "ollama"
}

// BuildURL constructs the chat completions endpoint.
func (o *OllamaProvider) BuildURL(baseURL, model string) string {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	return strings.TrimSuffix(baseURL, "/") + "/chat/completions"
}

// StreamURL is the same endpoint; streaming is toggled in the body.
func (o *OllamaProvider) StreamURL(baseURL, model string) string {
	return o.BuildURL(baseURL, model)
}

// SetHeaders is a no-op; local Ollama needs no credentials.
func (o *OllamaProvider) SetHeaders(_ *http.Request) {}

// BuildRequestBody delegates to the OpenAI-compatible format.
func (o *OllamaProvider) BuildRequestBody(model string, req llm.Request, stream bool) ([]byte, error) {
	return o.openai.BuildRequestBody(model, req, stream)
}

// ParseResponse delegates to the OpenAI-compatible format.
func (o *OllamaProvider) ParseResponse(body []byte, model string) (*llm.Response, error) {
	return o.openai.ParseResponse(body, model)
}

// ParseStreamEvent delegates to the OpenAI-compatible format.
func (o *OllamaProvider) ParseStreamEvent(data []byte) (string, bool, error) {
	return o.openai.ParseStreamEvent(data)
}
