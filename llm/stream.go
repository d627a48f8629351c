package llm

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Stream is a lazy, finite, non-restartable sequence of text chunks from a
// streaming completion. Recv returns io.EOF after the final chunk; any other
// error carries the usual gateway classification.
type Stream struct {
	resp     *http.Response
	scanner  *bufio.Scanner
	provider Provider
	cancel   context.CancelFunc
	done     bool
}

// maxStreamLineSize bounds a single streaming event line.
const maxStreamLineSize = 1024 * 1024

// Stream opens a streaming completion. The caller must drain the stream or
// call Close; abandoning it leaks the underlying connection.
func (c *Client) Stream(ctx context.Context, req Request) (*Stream, error) {
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

	body, err := provider.BuildRequestBody(endpoint.Model, req, true)
	if err != nil {
		cancel()
		return nil, NewError(ErrUnknown, fmt.Errorf("build request body: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost,
		provider.StreamURL(endpoint.URL, endpoint.Model), bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, NewError(ErrUnknown, fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	provider.SetHeaders(httpReq)

	started := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		cancel()
		c.registry.MarkEndpointFailure(modelName)
		observeRequest(endpoint.Provider, endpoint.Model, err, time.Since(started))
		return nil, classifyTransportError(err)
	}

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
		httpResp.Body.Close()
		cancel()
		c.registry.MarkEndpointFailure(modelName)
		classified := classifyHTTPError(httpResp.StatusCode, httpResp.Header, respBody)
		observeRequest(endpoint.Provider, endpoint.Model, classified, time.Since(started))
		return nil, classified
	}

	c.registry.MarkEndpointSuccess(modelName)
	observeRequest(endpoint.Provider, endpoint.Model, nil, time.Since(started))

	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLineSize)

	return &Stream{
		resp:     httpResp,
		scanner:  scanner,
		provider: provider,
		cancel:   cancel,
	}, nil
}

// Recv returns the next text chunk. It skips empty keep-alive events and
// returns io.EOF once the provider signals completion.
func (s *Stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			s.finish()
			return "", io.EOF
		}

		text, done, err := s.provider.ParseStreamEvent([]byte(data))
		if err != nil {
			s.finish()
			return "", NewError(ErrUnknown, err)
		}
		if done {
			s.finish()
			if text != "" {
				return text, nil
			}
			return "", io.EOF
		}
		if text == "" {
			continue
		}
		return text, nil
	}

	s.finish()
	if err := s.scanner.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &Error{Kind: ErrTimeout, err: err}
		}
		return "", &Error{Kind: ErrNetwork, err: err}
	}
	return "", io.EOF
}

// Close releases the underlying connection. Safe to call multiple times.
func (s *Stream) Close() error {
	s.finish()
	return nil
}

func (s *Stream) finish() {
	if s.done {
		return
	}
	s.done = true
	s.resp.Body.Close()
	s.cancel()
}
