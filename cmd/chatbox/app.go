package main

import (
	"context"
	"fmt"

	"chatbox/internal/config"
	"chatbox/internal/conversation"
	"chatbox/internal/server"
	"chatbox/internal/services"
	"chatbox/internal/testutils"
	"chatbox/pkg/chattypes"
)

// app holds the initialized services shared by the subcommands.
type app struct {
	registry *services.Registry
	resolver *services.ResponseResolverService
	mock     *services.MockResponseService
	markdown *services.MarkdownService
	testMode bool
	window   int
}

// newApp registers and initializes the services in dependency order.
func newApp(cfg *config.Config) (*app, error) {
	mockOpts := []services.MockOption{services.WithSeed(cfg.Seed)}
	if cfg.TestMode {
		mockOpts = append(mockOpts, services.WithMockClock(testutils.Clock(true)))
	}

	debug := services.NewDebugTransportService()
	chatAPI := services.NewChatAPIService(cfg.APIURL, debug)
	mock := services.NewMockResponseService(mockOpts...)
	resolver := services.NewResponseResolverService(chatAPI, mock)
	markdown := services.NewMarkdownService(cfg.RenderStyle)

	registry := services.NewRegistry()
	for _, service := range []services.Service{debug, chatAPI, mock, resolver, markdown} {
		if err := registry.RegisterService(service); err != nil {
			return nil, err
		}
	}
	if err := registry.InitializeAll(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	chatAPI.SetTimeout(cfg.RequestTimeout)
	resolver.SetOffline(cfg.Offline)

	return &app{
		registry: registry,
		resolver: resolver,
		mock:     mock,
		markdown: markdown,
		testMode: cfg.TestMode,
		window:   cfg.HistoryWindow,
	}, nil
}

// newStore creates a conversation backed by the resolver.
func (a *app) newStore() *conversation.Store {
	return conversation.New(a.resolver,
		conversation.WithIDSource(testutils.IDSource(a.testMode)),
		conversation.WithClock(testutils.Clock(a.testMode)),
		conversation.WithHistoryWindow(a.window),
	)
}

// ask sends text through a fresh conversation and waits for the assistant reply.
func (a *app) ask(ctx context.Context, text string) (chattypes.Message, error) {
	store := a.newStore()
	store.SetDraft(text)
	cycle, ok := store.Send(ctx)
	if !ok {
		return chattypes.Message{}, fmt.Errorf("nothing to send")
	}
	return cycle.Wait(ctx)
}

// newProvider picks the development backend reply provider.
func (a *app) newProvider(cfg *config.Config) (server.ReplyProvider, error) {
	if cfg.Serve.Provider == config.ProviderOpenAI {
		debug, err := services.Lookup[*services.DebugTransportService](a.registry, "debug_transport")
		if err != nil {
			return nil, err
		}
		return server.NewOpenAIProvider(server.OpenAIConfig{
			APIKey:    cfg.OpenAI.APIKey,
			Model:     cfg.OpenAI.Model,
			BaseURL:   cfg.OpenAI.BaseURL,
			Transport: debug.Wrap(nil),
		})
	}
	return server.NewMockProvider(a.mock), nil
}
