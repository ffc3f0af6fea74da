package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMarkdownAndHTML(t *testing.T) {
	root := t.TempDir()
	res, err := NewWriter(root, true).Write("Topic_X", "# Findings\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "Topic_X", MarkdownFile), res.Markdown)
	md, err := os.ReadFile(res.Markdown)
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Findings")

	page, err := os.ReadFile(res.HTML)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>Topic X</title>")
	assert.Contains(t, string(page), "<h1>Findings</h1>")
	assert.Contains(t, string(page), "<table>")
}

func TestWriteMarkdownOnly(t *testing.T) {
	res, err := NewWriter(t.TempDir(), false).Write("T", "body")
	require.NoError(t, err)
	assert.Empty(t, res.HTML)
	assert.FileExists(t, res.Markdown)
}

func TestWriteEmpty(t *testing.T) {
	_, err := NewWriter(t.TempDir(), true).Write("T", "  \n")
	assert.ErrorIs(t, err, ErrEmptyReport)
}

func TestRenderEscapesTitle(t *testing.T) {
	page, err := NewWriter("", true).Render("<b>", "text")
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>&lt;b&gt;</title>")
	assert.Contains(t, string(page), "<p>text</p>")
}

func TestRenderSanitizesLinks(t *testing.T) {
	page, err := NewWriter("", true).Render("T", "[click](javascript:alert(1)) and [site](https://example.com)")
	require.NoError(t, err)
	assert.NotContains(t, string(page), "javascript:")
	assert.Contains(t, string(page), `href="https://example.com"`)
}
