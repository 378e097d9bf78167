package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"chatbox/internal/logger"
	"chatbox/pkg/chattypes"
)

// systemPrompt frames the OpenAI provider as the widget assistant.
const systemPrompt = "You are a friendly assistant embedded in a small chat widget. Keep answers short."

// ReplyProvider produces the reply for one chat request.
type ReplyProvider interface {
	Name() string
	Reply(ctx context.Context, req chattypes.ChatRequest) (string, error)
}

// MockResponder is the subset of the mock response service used by MockProvider.
type MockResponder interface {
	Respond(text string, reply *chattypes.ReplySnapshot) (string, error)
}

// MockProvider answers from the canned rule table, the same one the client falls back to.
type MockProvider struct {
	responder MockResponder
}

// NewMockProvider wraps an initialized mock responder.
func NewMockProvider(responder MockResponder) *MockProvider {
	return &MockProvider{responder: responder}
}

// Name returns "mock".
func (p *MockProvider) Name() string {
	return "mock"
}

// Reply answers req from the rule table.
func (p *MockProvider) Reply(_ context.Context, req chattypes.ChatRequest) (string, error) {
	return p.responder.Respond(req.Message, replySnapshot(req.ReplyTo))
}

// replySnapshot rebuilds a snapshot from the wire form. Browser widgets send "ai" for the assistant.
func replySnapshot(ctx *chattypes.ReplyContext) *chattypes.ReplySnapshot {
	if ctx == nil {
		return nil
	}
	sender := ctx.Sender
	if strings.EqualFold(string(sender), "ai") {
		sender = chattypes.SenderAssistant
	}
	return &chattypes.ReplySnapshot{
		Text:      ctx.Text,
		Sender:    sender,
		Timestamp: ctx.Timestamp,
	}
}

// OpenAIConfig holds the OpenAI provider settings.
type OpenAIConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	Transport http.RoundTripper
}

// OpenAIProvider answers with OpenAI chat completions.
type OpenAIProvider struct {
	model  string
	client openai.Client
}

// NewOpenAIProvider creates a provider. The API key is required.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("OpenAI model not configured")
	}

	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Transport != nil {
		options = append(options, option.WithHTTPClient(&http.Client{Transport: cfg.Transport}))
	}

	logger.Debug("OpenAI provider initialized", "model", cfg.Model, "custom_base_url", cfg.BaseURL != "")
	return &OpenAIProvider{
		model:  cfg.Model,
		client: openai.NewClient(options...),
	}, nil
}

// Name returns "openai".
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Reply sends the history, the reply context and the new message as one completion request.
func (p *OpenAIProvider) Reply(ctx context.Context, req chattypes.ChatRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: buildMessages(req),
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	content := completion.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("empty response content")
	}
	return content, nil
}

func buildMessages(req chattypes.ChatRequest) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+3)
	messages = append(messages, openai.SystemMessage(systemPrompt))

	for _, entry := range req.History {
		if entry.Role == chattypes.RoleUser {
			messages = append(messages, openai.UserMessage(entry.Content))
		} else {
			messages = append(messages, openai.AssistantMessage(entry.Content))
		}
	}

	if req.ReplyTo != nil {
		messages = append(messages, openai.SystemMessage(
			fmt.Sprintf("The user is replying to this earlier %s message: %q", req.ReplyTo.Sender, req.ReplyTo.Text)))
	}
	messages = append(messages, openai.UserMessage(req.Message))
	return messages
}
