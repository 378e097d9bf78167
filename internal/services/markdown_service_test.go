package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownService_Lifecycle(t *testing.T) {
	service := NewMarkdownService("notty")
	assert.Equal(t, "markdown", service.Name())
	assert.Equal(t, "notty", service.Style())

	_, err := service.Render("**bold**")
	assert.EqualError(t, err, "markdown service not initialized")
	assert.Error(t, service.SetWordWrap(40))

	require.NoError(t, service.Initialize())
	rendered, err := service.Render("**bold** text")
	require.NoError(t, err)
	assert.Contains(t, rendered, "bold")
	assert.Contains(t, rendered, "text")
}

func TestMarkdownService_EmptyContent(t *testing.T) {
	service := NewMarkdownService("notty")
	require.NoError(t, service.Initialize())

	_, err := service.Render("   ")
	assert.EqualError(t, err, "markdown content cannot be empty")
	assert.Equal(t, "   ", service.RenderOrPlain("   "))
}

func TestMarkdownService_RenderOrPlainTrims(t *testing.T) {
	service := NewMarkdownService("ascii")
	require.NoError(t, service.Initialize())

	out := service.RenderOrPlain("The answer is 4!")
	assert.Contains(t, out, "The answer is 4!")
	assert.Equal(t, strings.TrimSpace(out), out)
}

func TestMarkdownService_SetWordWrap(t *testing.T) {
	service := NewMarkdownService("notty")
	require.NoError(t, service.Initialize())

	assert.Error(t, service.SetWordWrap(0))
	require.NoError(t, service.SetWordWrap(40))
	assert.Equal(t, 40, service.wordWrap)
}

func TestMarkdownService_StyleNormalization(t *testing.T) {
	assert.Equal(t, "auto", NewMarkdownService("").Style())
	assert.Equal(t, "notty", NewMarkdownService("Plain").Style())
	assert.Equal(t, "dark", NewMarkdownService(" DARK ").Style())
	assert.Contains(t, AvailableStyles(), "dark")
}

func TestMarkdownService_UnknownStyle(t *testing.T) {
	service := NewMarkdownService("no-such-style")
	assert.Error(t, service.Initialize())
}
