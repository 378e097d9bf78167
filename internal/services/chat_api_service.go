package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chatbox/internal/logger"
	"chatbox/internal/version"
	"chatbox/pkg/chattypes"
)

// DefaultRequestTimeout bounds a single remote chat call.
const DefaultRequestTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// ErrMalformedResponse is returned when the remote body carries no usable reply.
var ErrMalformedResponse = errors.New("malformed chat response")

// StatusError reports a non-2xx answer from the remote chat API.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error: %s", e.Status)
}

// ChatAPIService posts messages to the remote chat endpoint at {base_url}/chat.
type ChatAPIService struct {
	initialized bool
	baseURL     string
	timeout     time.Duration
	client      *http.Client
	transport   *DebugTransportService
}

// NewChatAPIService creates a client for baseURL. transport may be nil.
func NewChatAPIService(baseURL string, transport *DebugTransportService) *ChatAPIService {
	return &ChatAPIService{
		initialized: false,
		baseURL:     strings.TrimRight(baseURL, "/"),
		timeout:     DefaultRequestTimeout,
		transport:   transport,
	}
}

// Name returns the service name "chat_api" for registration.
func (c *ChatAPIService) Name() string {
	return "chat_api"
}

// Initialize builds the HTTP client. The debug transport, when present, must be initialized first.
func (c *ChatAPIService) Initialize() error {
	if c.baseURL == "" {
		return fmt.Errorf("chat api base URL is required")
	}

	var roundTripper http.RoundTripper = http.DefaultTransport
	if c.transport != nil {
		roundTripper = c.transport.Wrap(http.DefaultTransport)
	}

	c.client = &http.Client{
		Timeout:   c.timeout,
		Transport: roundTripper,
	}
	c.initialized = true
	logger.Debug("ChatAPIService initialized", "base_url", c.baseURL, "timeout", c.timeout.String())
	return nil
}

// SetTimeout configures the request timeout.
func (c *ChatAPIService) SetTimeout(timeout time.Duration) {
	oldTimeout := c.timeout
	c.timeout = timeout
	if c.client != nil {
		c.client.Timeout = timeout
	}
	logger.Debug("Chat API timeout updated", "old_timeout", oldTimeout.String(), "new_timeout", timeout.String())
}

// BaseURL returns the configured API root without a trailing slash.
func (c *ChatAPIService) BaseURL() string {
	return c.baseURL
}

// SendChat posts req and returns the reply text.
// Transport failures, non-2xx statuses (*StatusError) and bodies without a
// non-blank reply or message field (ErrMalformedResponse) are returned as errors.
func (c *ChatAPIService) SendChat(ctx context.Context, req chattypes.ChatRequest) (string, error) {
	if !c.initialized {
		return "", fmt.Errorf("chat api service not initialized")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	endpoint := c.baseURL + "/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())

	logger.Debug("Sending chat request",
		"url", endpoint,
		"history", len(req.History),
		"reply", req.ReplyTo != nil)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to reach chat api: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error on close
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return "", &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}

	var chatResp chattypes.ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	reply := chatResp.Text()
	if strings.TrimSpace(reply) == "" {
		return "", fmt.Errorf("%w: no reply or message field", ErrMalformedResponse)
	}

	logger.Debug("Chat response received", "status_code", resp.StatusCode, "reply_length", len(reply))
	return reply, nil
}
