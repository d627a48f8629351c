package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/mosaicsci/inquiry/llm"
)

// OpenAIProvider implements the OpenAI chat completions API.
type OpenAIProvider struct{}

func init() {
	llm.RegisterProvider(&OpenAIProvider{})
}

// Name returns the provider identifier.
func (o *OpenAIProvider) Name() string {
	return "openai"
}

// BuildURL constructs the chat completions endpoint.
func (o *OpenAIProvider) BuildURL(baseURL, _ string) string {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return strings.TrimSuffix(baseURL, "/") + "/chat/completions"
}

// StreamURL is the same endpoint; streaming is toggled in the body.
func (o *OpenAIProvider) StreamURL(baseURL, model string) string {
	return o.BuildURL(baseURL, model)
}

// SetHeaders adds the bearer token.
func (o *OpenAIProvider) SetHeaders(req *http.Request) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    *float64              `json:"temperature,omitempty"`
	TopP           *float64              `json:"top_p,omitempty"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
	Stream         bool                  `json:"stream,omitempty"`
}

// BuildRequestBody creates the chat completions request body.
// TopK and web search are not supported by this API and are ignored.
func (o *OpenAIProvider) BuildRequestBody(model string, req llm.Request, stream bool) ([]byte, error) {
	messages := make([]openAIMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openAIMessage{Role: msg.Role, Content: msg.Content})
	}

	body := openAIRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
	if req.ResponseMIMEType == "application/json" {
		body.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	return json.Marshal(body)
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// ParseResponse extracts the completion from an OpenAI response.
func (o *OpenAIProvider) ParseResponse(body []byte, model string) (*llm.Response, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse openai response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai response contains no choices")
	}

	respModel := resp.Model
	if respModel == "" {
		respModel = model
	}

	return &llm.Response{
		Content: resp.Choices[0].Message.Content,
		Model:   respModel,
		Usage: llm.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		FinishReason: resp.Choices[0].FinishReason,
	}, nil
}

// ParseStreamEvent extracts the text delta from one SSE chunk.
func (o *OpenAIProvider) ParseStreamEvent(data []byte) (string, bool, error) {
	var resp openAIResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", false, fmt.Errorf("parse openai stream event: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", false, nil
	}
	choice := resp.Choices[0]
	return choice.Delta.Content, choice.FinishReason != "", nil
}
