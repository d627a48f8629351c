// Package llm provides the model gateway: a thin, provider-agnostic wrapper
// around hosted LLM calls that enforces per-call timeouts and classifies
// failures into a uniform error shape. Retry policy lives in the retry
// package; the gateway itself makes exactly one attempt per call.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mosaicsci/inquiry/model"
)

// maxResponseSize limits the response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// DefaultTimeout is the wall-clock budget for a standard gateway call.
// Large aggregate calls (final editing) extend this via Request.Timeout.
const DefaultTimeout = 60 * time.Second

// Client is the model gateway. It resolves a semantic role to a concrete
// endpoint through the model registry and performs a single HTTP call.
type Client struct {
	registry   *model.Registry
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`    // "system", "user", or "assistant"
	Content string `json:"content"` // Message content
}

// Request defines a gateway call.
type Request struct {
	// Role is the semantic agent role ("planner", "writer", "editor", ...).
	// The registry resolves this to a configured endpoint.
	Role string

	// Messages is the chat history. A leading "system" message becomes the
	// provider's system instruction.
	Messages []Message

	// Temperature controls randomness. nil uses the service default.
	Temperature *float64

	// TopP nucleus sampling parameter. nil uses the service default.
	TopP *float64

	// TopK sampling parameter. nil uses the service default.
	TopK *int

	// MaxTokens limits response length. 0 uses the service default.
	MaxTokens int

	// ResponseMIMEType requests a structured response format
	// ("application/json") when set.
	ResponseMIMEType string

	// ResponseSchema is an optional schema forwarded to providers that
	// support constrained decoding.
	ResponseSchema map[string]any

	// WebSearch enables the provider's web search tool when supported.
	WebSearch bool

	// Timeout overrides the client's default per-call timeout when > 0.
	Timeout time.Duration
}

// TokenUsage reports token consumption for a call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response contains the completion result.
type Response struct {
	// RequestID uniquely identifies this call for provenance correlation.
	RequestID string

	// Content is the generated text.
	Content string

	// Model is the actual model that served the call.
	Model string

	// Usage contains token consumption metrics when the provider reports them.
	Usage TokenUsage

	// FinishReason indicates why generation stopped.
	FinishReason string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the default per-call timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		client.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates a gateway client backed by the given model registry.
func NewClient(registry *model.Registry, opts ...ClientOption) *Client {
	c := &Client{
		registry: registry,
		timeout:  DefaultTimeout,
		httpClient: &http.Client{
			// No transport-level timeout; each call carries its own deadline.
			Timeout: 0,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Complete performs a single gateway call. It does not retry; wrap calls
// with retry.Do for resilience.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	endpoint, modelName, err := c.resolve(req)
	if err != nil {
		return nil, err
	}

	provider := GetProvider(endpoint.Provider)
	if provider == nil {
		return nil, NewError(ErrUnknown, fmt.Errorf("unknown provider: %s", endpoint.Provider))
	}

	timeout := c.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	resp, err := c.doRequest(callCtx, provider, endpoint, req, provider.BuildURL(endpoint.URL, endpoint.Model))
	observeRequest(endpoint.Provider, endpoint.Model, err, time.Since(started))

	if err != nil {
		c.registry.MarkEndpointFailure(modelName)
		return nil, err
	}

	c.registry.MarkEndpointSuccess(modelName)
	resp.RequestID = uuid.New().String()
	return resp, nil
}

// resolve maps the request's role to a healthy configured endpoint.
func (c *Client) resolve(req Request) (*model.EndpointConfig, string, error) {
	if req.Role == "" {
		return nil, "", NewError(ErrUnknown, errors.New("role is required"))
	}
	if len(req.Messages) == 0 {
		return nil, "", NewError(ErrUnknown, errors.New("at least one message is required"))
	}

	role := model.ParseRole(req.Role)
	if role == "" {
		role = model.RoleFast
	}

	for _, name := range c.registry.Chain(role) {
		endpoint := c.registry.GetEndpoint(name)
		if endpoint == nil {
			c.logger.Debug("no endpoint for model, skipping", "model", name)
			continue
		}
		if !c.registry.IsEndpointAvailable(name) {
			c.logger.Debug("endpoint circuit open, skipping", "model", name)
			continue
		}
		return endpoint, name, nil
	}

	return nil, "", NewError(ErrUnknown, fmt.Errorf("no available model for role %s", req.Role))
}

// doRequest executes a single HTTP request against the provider endpoint.
func (c *Client) doRequest(ctx context.Context, provider Provider, ep *model.EndpointConfig, req Request, url string) (*Response, error) {
	body, err := provider.BuildRequestBody(ep.Model, req, false)
	if err != nil {
		return nil, NewError(ErrUnknown, fmt.Errorf("build request body: %w", err))
	}

	c.logger.Debug("sending model request",
		"provider", provider.Name(),
		"model", ep.Model,
		"role", req.Role,
		"messages", len(req.Messages))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewError(ErrUnknown, fmt.Errorf("create HTTP request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	provider.SetHeaders(httpReq)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(httpResp.StatusCode, httpResp.Header, respBody)
	}

	resp, err := provider.ParseResponse(respBody, ep.Model)
	if err != nil {
		return nil, NewError(ErrUnknown, err)
	}
	return resp, nil
}

// classifyTransportError maps transport failures onto the gateway taxonomy.
// A deadline expiry is a Timeout; everything else at this layer is a
// network failure.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: ErrTimeout, err: err}
	}
	if errors.Is(err, context.Canceled) {
		// Caller cancellation is not a gateway fault; pass it through so the
		// orchestrator can distinguish a stop request from a flaky network.
		return err
	}
	return &Error{Kind: ErrNetwork, err: err}
}

// classifyHTTPError maps HTTP error statuses onto the gateway taxonomy,
// extracting a server-suggested retry delay when present.
func classifyHTTPError(statusCode int, header http.Header, body []byte) error {
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}

	e := &Error{
		StatusCode: statusCode,
		Message:    msg,
		err:        fmt.Errorf("model API error (status %d)", statusCode),
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		e.Kind = ErrRateLimited
		e.RetryAfter = parseRetryAfter(header, body)
	case statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusGatewayTimeout:
		e.Kind = ErrTimeout
	case statusCode >= 500:
		e.Kind = ErrServer
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusForbidden:
		e.Kind = ErrAuth
	default:
		e.Kind = ErrUnknown
	}

	return e
}

// retryInfoBody is the structured error envelope some services attach to
// 429 responses, carrying a RetryInfo detail with a suggested delay.
type retryInfoBody struct {
	Error struct {
		Details []struct {
			Type       string `json:"@type"`
			RetryDelay string `json:"retryDelay"`
		} `json:"details"`
	} `json:"error"`
}

// parseRetryAfter extracts a server-suggested retry delay from the
// Retry-After header or from structured error details. Returns 0 when the
// server gave no usable hint.
func parseRetryAfter(header http.Header, body []byte) time.Duration {
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}

	var envelope retryInfoBody
	if err := json.Unmarshal(body, &envelope); err != nil {
		return 0
	}
	for _, d := range envelope.Error.Details {
		if !strings.HasSuffix(d.Type, "RetryInfo") || d.RetryDelay == "" {
			continue
		}
		if dur, err := time.ParseDuration(d.RetryDelay); err == nil && dur > 0 {
			return dur
		}
	}
	return 0
}
