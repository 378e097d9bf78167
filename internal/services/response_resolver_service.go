package services

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"chatbox/internal/logger"
	"chatbox/pkg/chattypes"
)

// ChatSender sends one chat request to a remote endpoint.
type ChatSender interface {
	SendChat(ctx context.Context, req chattypes.ChatRequest) (string, error)
}

// MockResponder produces a local reply without any network access.
type MockResponder interface {
	Respond(text string, reply *chattypes.ReplySnapshot) (string, error)
}

// ResponseResolverService turns an outgoing message into assistant text.
// It asks the remote chat API first and answers from the mock responder when the
// remote call fails for any reason, so ordinary remote failures never reach the caller.
type ResponseResolverService struct {
	initialized bool
	remote      ChatSender
	mock        MockResponder
	offline     bool
	log         *log.Logger
}

// NewResponseResolverService creates a resolver. remote may be nil, which behaves like offline mode.
func NewResponseResolverService(remote ChatSender, mock MockResponder) *ResponseResolverService {
	return &ResponseResolverService{
		initialized: false,
		remote:      remote,
		mock:        mock,
	}
}

// Name returns the service name "response_resolver" for registration.
func (r *ResponseResolverService) Name() string {
	return "response_resolver"
}

// Initialize checks the collaborators and sets up the component logger.
func (r *ResponseResolverService) Initialize() error {
	if r.mock == nil {
		return fmt.Errorf("response resolver requires a mock responder")
	}
	r.log = logger.NewStyledLogger("Resolver")
	r.initialized = true
	logger.Debug("ResponseResolverService initialized", "remote", r.remote != nil, "offline", r.offline)
	return nil
}

// SetOffline skips the remote attempt when enabled.
func (r *ResponseResolverService) SetOffline(offline bool) {
	r.offline = offline
}

// Resolve returns the assistant reply for req.
// An error is returned only when the mock responder itself cannot answer.
func (r *ResponseResolverService) Resolve(ctx context.Context, req chattypes.ResolveRequest) (string, error) {
	if !r.initialized {
		return "", fmt.Errorf("response resolver service not initialized")
	}

	if !r.offline && r.remote != nil {
		reply, err := r.remote.SendChat(ctx, chattypes.ChatRequest{
			Message: req.Text,
			History: req.History,
			ReplyTo: chattypes.NewReplyContext(req.ReplyTo),
		})
		if err == nil {
			r.log.Debug("Remote reply", "source", "remote", "length", len(reply))
			return reply, nil
		}
		r.log.Warn("Remote chat failed, using mock reply", "error", err)
	}

	reply, err := r.mock.Respond(req.Text, req.ReplyTo)
	if err != nil {
		return "", fmt.Errorf("mock fallback failed: %w", err)
	}
	r.log.Debug("Mock reply", "source", "mock", "length", len(reply))
	return reply, nil
}
