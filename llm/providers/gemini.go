// Package providers implements hosted LLM service adapters.
package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/mosaicsci/inquiry/llm"
)

// GeminiProvider implements the Google Gemini API.
type GeminiProvider struct{}

func init() {
	llm.RegisterProvider(&GeminiProvider{})
}

// Name returns the provider identifier.
func (g *GeminiProvider) Name() string {
	return "gemini"
}

// BuildURL constructs the generateContent endpoint for the model.
func (g *GeminiProvider) BuildURL(baseURL, model string) string {
	return geminiBase(baseURL) + "/v1beta/models/" + model + ":generateContent"
}

// StreamURL constructs the SSE streaming endpoint for the model.
func (g *GeminiProvider) StreamURL(baseURL, model string) string {
	return geminiBase(baseURL) + "/v1beta/models/" + model + ":streamGenerateContent?alt=sse"
}

func geminiBase(baseURL string) string {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	return strings.TrimSuffix(baseURL, "/")
}

// SetHeaders adds the Gemini API key header.
func (g *GeminiProvider) SetHeaders(req *http.Request) {
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		req.Header.Set("x-goog-api-key", apiKey)
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      *float64       `json:"temperature,omitempty"`
	TopP             *float64       `json:"topP,omitempty"`
	TopK             *int           `json:"topK,omitempty"`
	MaxOutputTokens  int            `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiTool struct {
	GoogleSearch struct{} `json:"google_search"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
	Tools             []geminiTool            `json:"tools,omitempty"`
}

// BuildRequestBody creates the Gemini generateContent request body.
// A leading "system" message becomes the systemInstruction; "assistant"
// messages map to the "model" role. Streaming is selected by URL, so the
// stream flag is ignored.
func (g *GeminiProvider) BuildRequestBody(model string, req llm.Request, _ bool) ([]byte, error) {
	var system *geminiContent
	var contents []geminiContent

	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			system = &geminiContent{Parts: []geminiPart{{Text: msg.Content}}}
		case "assistant":
			contents = append(contents, geminiContent{
				Role:  "model",
				Parts: []geminiPart{{Text: msg.Content}},
			})
		default:
			contents = append(contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: msg.Content}},
			})
		}
	}

	body := geminiRequest{
		Contents:          contents,
		SystemInstruction: system,
	}

	if req.Temperature != nil || req.TopP != nil || req.TopK != nil ||
		req.MaxTokens > 0 || req.ResponseMIMEType != "" || req.ResponseSchema != nil {
		body.GenerationConfig = &geminiGenerationConfig{
			Temperature:      req.Temperature,
			TopP:             req.TopP,
			TopK:             req.TopK,
			MaxOutputTokens:  req.MaxTokens,
			ResponseMIMEType: req.ResponseMIMEType,
			ResponseSchema:   req.ResponseSchema,
		}
	}

	if req.WebSearch {
		body.Tools = []geminiTool{{}}
	}

	return json.Marshal(body)
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

// ParseResponse extracts the completion from a Gemini response.
func (g *GeminiProvider) ParseResponse(body []byte, model string) (*llm.Response, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini response contains no candidates")
	}

	var content strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		content.WriteString(part.Text)
	}

	respModel := resp.ModelVersion
	if respModel == "" {
		respModel = model
	}

	return &llm.Response{
		Content: content.String(),
		Model:   respModel,
		Usage: llm.TokenUsage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
		FinishReason: resp.Candidates[0].FinishReason,
	}, nil
}

// ParseStreamEvent extracts the text delta from one SSE chunk. Gemini sends
// full candidate objects per chunk; a populated finishReason marks the end.
func (g *GeminiProvider) ParseStreamEvent(data []byte) (string, bool, error) {
	var resp geminiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", false, fmt.Errorf("parse gemini stream event: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", false, nil
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	done := resp.Candidates[0].FinishReason != ""
	return text.String(), done, nil
}
