// Package server implements the development chat backend served by `chatbox serve`.
// It speaks the same POST /api/chat contract the client expects.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"chatbox/internal/logger"
	"chatbox/internal/version"
	"chatbox/pkg/chattypes"
)

// maxHistory mirrors the client history window.
const maxHistory = 10

const shutdownTimeout = 5 * time.Second

// Options configures the development server.
type Options struct {
	Addr           string
	AllowedOrigins []string
}

// Server is the gin-based development backend.
type Server struct {
	opts     Options
	provider ReplyProvider
	engine   *gin.Engine
}

// New builds the router. gin's mode is left to the caller.
func New(opts Options, provider ReplyProvider) *Server {
	s := &Server{
		opts:     opts,
		provider: provider,
		engine:   gin.New(),
	}
	s.engine.Use(gin.Recovery(), requestLogger())
	s.engine.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	s.registerRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Chat backend listening", "addr", s.opts.Addr, "provider", s.provider.Name())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("chat backend stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down chat backend: %w", err)
	}
	logger.Info("Chat backend stopped")
	return nil
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.health)
	api.POST("/chat", s.chat)
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{"status": "ok", "provider": s.provider.Name()}
	if info, err := version.GetInfo(); err == nil {
		body["version"] = info.Version
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) chat(c *gin.Context) {
	var req chattypes.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if len(req.History) > maxHistory {
		req.History = req.History[len(req.History)-maxHistory:]
	}

	reply, err := s.provider.Reply(c.Request.Context(), req)
	if err != nil {
		logger.Warn("Provider failed", "provider", s.provider.Name(), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "provider failed to reply"})
		return
	}

	c.JSON(http.StatusOK, chattypes.ChatResponse{Reply: reply})
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	allowAll := len(origins) == 0
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// requestLogger logs each request through the chatbox logger instead of gin's writer.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
