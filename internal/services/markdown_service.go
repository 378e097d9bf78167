package services

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"chatbox/internal/logger"
)

// DefaultWordWrap is the wrap width used until SetWordWrap is called.
const DefaultWordWrap = 80

// MarkdownService renders assistant replies for the terminal using Glamour.
type MarkdownService struct {
	initialized bool
	style       string
	wordWrap    int
	renderer    *glamour.TermRenderer
}

// NewMarkdownService creates a MarkdownService for the given glamour style.
// An empty style means "auto".
func NewMarkdownService(style string) *MarkdownService {
	return &MarkdownService{
		initialized: false,
		style:       normalizeStyle(style),
		wordWrap:    DefaultWordWrap,
	}
}

// Name returns the service name "markdown" for registration.
func (m *MarkdownService) Name() string {
	return "markdown"
}

// Initialize builds the renderer for the configured style.
func (m *MarkdownService) Initialize() error {
	renderer, err := m.newRenderer(m.style, m.wordWrap)
	if err != nil {
		return err
	}

	m.renderer = renderer
	m.initialized = true

	logger.Debug("MarkdownService initialized", "style", m.style, "word_wrap", m.wordWrap)
	return nil
}

// Render renders markdown to ANSI terminal output.
func (m *MarkdownService) Render(markdown string) (string, error) {
	if !m.initialized {
		return "", fmt.Errorf("markdown service not initialized")
	}

	if strings.TrimSpace(markdown) == "" {
		return "", fmt.Errorf("markdown content cannot be empty")
	}

	rendered, err := m.renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}

	return rendered, nil
}

// RenderOrPlain renders markdown and returns the input unchanged when rendering fails.
func (m *MarkdownService) RenderOrPlain(markdown string) string {
	rendered, err := m.Render(markdown)
	if err != nil {
		logger.Debug("Markdown rendering skipped", "error", err)
		return markdown
	}
	return strings.TrimSpace(rendered)
}

// SetWordWrap rebuilds the renderer for a new wrap width, e.g. after a terminal resize.
func (m *MarkdownService) SetWordWrap(width int) error {
	if !m.initialized {
		return fmt.Errorf("markdown service not initialized")
	}

	if width <= 0 {
		return fmt.Errorf("word wrap width must be positive, got %d", width)
	}
	if width == m.wordWrap {
		return nil
	}

	renderer, err := m.newRenderer(m.style, width)
	if err != nil {
		return err
	}

	m.renderer = renderer
	m.wordWrap = width
	logger.Debug("MarkdownService word wrap updated", "width", width)
	return nil
}

// Style returns the active glamour style name.
func (m *MarkdownService) Style() string {
	return m.style
}

func (m *MarkdownService) newRenderer(style string, width int) (*glamour.TermRenderer, error) {
	styleOption := glamour.WithStylePath(style)
	if style == "auto" {
		styleOption = glamour.WithAutoStyle()
	}

	renderer, err := glamour.NewTermRenderer(
		styleOption,
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer with style '%s': %w", style, err)
	}
	return renderer, nil
}

// AvailableStyles lists the built-in glamour styles accepted by render_style.
func AvailableStyles() []string {
	return []string{"auto", "dark", "light", "notty", "ascii", "dracula", "pink", "tokyo-night"}
}

func normalizeStyle(style string) string {
	style = strings.ToLower(strings.TrimSpace(style))
	switch style {
	case "":
		return "auto"
	case "plain":
		return "notty"
	default:
		return style
	}
}
