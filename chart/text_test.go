package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown("Share of **GDP** per capita")
	assert.Contains(t, out, "<strong>GDP</strong>")
	assert.Contains(t, out, "<p>")

	link := RenderMarkdown("[Source](https://example.org/data)")
	assert.Contains(t, link, `href="https://example.org/data"`)

	unsafe := RenderMarkdown("hello <script>alert(1)</script>")
	assert.NotContains(t, unsafe, "<script")
	assert.Contains(t, unsafe, "hello")

	assert.Equal(t, "", RenderMarkdown("   "))
}

func TestPlainText(t *testing.T) {
	text, err := PlainText("<p>GDP <strong>per</strong>\n   capita</p>")
	require.NoError(t, err)
	assert.Equal(t, "GDP per capita", text)

	text, err = PlainText("")
	require.NoError(t, err)
	assert.Equal(t, "", text)

	text, err = PlainText(RenderMarkdown("Life *expectancy*"))
	require.NoError(t, err)
	assert.Equal(t, "Life expectancy", text)
}
