// Package provider implements the completion client against an OpenAI
// Responses API compatible endpoint. The SDKs that cover the chat
// completions surface do not model the Responses continuation protocol
// (previous_response_id, function_call_output items, item-level streaming
// events), so this client speaks the wire format directly over net/http.
package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oakenlabs/agentrelay/internal/orchestrator"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client calls the Responses API. It implements
// orchestrator.CompletionClient and is safe for concurrent use; each
// Stream call owns an independent response body and goroutine.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	// maxRetries bounds attempts for the initial request. Applies to
	// rate limits (429), server errors (5xx), and timeouts. Streams are
	// never retried once a body has been opened.
	maxRetries int

	// retryDelay is the base delay; the actual wait is
	// retryDelay * attempt (linear backoff).
	retryDelay time.Duration
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL points the client at a non-default endpoint, for proxies
// and compatible self-hosted backends. Trailing slashes are stripped.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRetry overrides the retry attempt count and base delay.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryDelay = delay
	}
}

// New creates a Responses API client. An empty API key is allowed for
// delayed configuration; calls fail until one is set.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		http:       &http.Client{},
		logger:     slog.Default(),
		maxRetries: 3,
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stream opens a streaming completion call. The returned channel closes
// when the provider stream ends; mid-stream transport failures arrive as a
// final event with Err set.
func (c *Client) Stream(ctx context.Context, req *orchestrator.Request) (<-chan *orchestrator.StreamEvent, error) {
	req.Stream = true
	resp, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}

	events := make(chan *orchestrator.StreamEvent)
	go c.readStream(ctx, resp.Body, events)
	return events, nil
}

// Create performs a non-streaming completion call.
func (c *Client) Create(ctx context.Context, req *orchestrator.Request) (*orchestrator.Response, error) {
	req.Stream = false
	resp, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return orchestrator.DecodeResponse(body)
}

// post sends the request with linear backoff retries and returns the open
// HTTP response on a 2xx status. Non-2xx bodies are drained into the error.
func (c *Client) post(ctx context.Context, req *orchestrator.Request) (*http.Response, error) {
	if c.apiKey == "" {
		return nil, errors.New("api key not configured")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
			c.logger.Debug("retrying completion request", "attempt", attempt)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")
		if req.Stream {
			httpReq.Header.Set("Accept", "text/event-stream")
		}

		resp, err := c.http.Do(httpReq)
		if err != nil {
			lastErr = err
			if !isRetryableError(err) {
				return nil, fmt.Errorf("non-retryable error: %w", err)
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		lastErr = apiError(resp)
		resp.Body.Close()
		if !retryableStatus(resp.StatusCode) {
			return nil, fmt.Errorf("non-retryable error: %w", lastErr)
		}
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// readStream decodes server-sent events from the body until EOF. Lines of
// the form "data: <json>" carry events; everything else (event: names,
// comments, blank separators) is framing and is skipped. "data: [DONE]"
// terminates the stream.
func (c *Client) readStream(ctx context.Context, body io.ReadCloser, events chan<- *orchestrator.StreamEvent) {
	defer close(events)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if !bytes.HasPrefix(line, []byte("data: ")) {
			continue
		}
		data := bytes.TrimSpace(line[len("data: "):])
		if len(data) == 0 || bytes.Equal(data, []byte("[DONE]")) {
			if bytes.Equal(data, []byte("[DONE]")) {
				return
			}
			continue
		}

		// Delivery races ctx so an abandoned consumer never strands
		// this reader mid-send.
		select {
		case events <- orchestrator.DecodeEvent(data):
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case events <- &orchestrator.StreamEvent{Err: fmt.Errorf("read stream: %w", err)}:
		case <-ctx.Done():
		}
	}
}

// apiError extracts the provider's error message from a non-2xx response.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return fmt.Errorf("provider error (status %d, %s): %s", resp.StatusCode, envelope.Error.Type, envelope.Error.Message)
	}
	return fmt.Errorf("provider error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// isRetryableError classifies transport errors. Rate limits, server
// errors, and timeouts retry; everything else fails fast.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"):
		return true
	case strings.Contains(msg, "500"), strings.Contains(msg, "502"),
		strings.Contains(msg, "503"), strings.Contains(msg, "504"):
		return true
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"):
		return true
	}
	return false
}
