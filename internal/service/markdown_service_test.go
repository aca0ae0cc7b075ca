package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownService_Render(t *testing.T) {
	md := NewMarkdownService()

	out, err := md.Render("# Welcome\n\nLearn **Go** today.")
	require.NoError(t, err)
	assert.Contains(t, out, `<h1 id="welcome">Welcome</h1>`)
	assert.Contains(t, out, "<strong>Go</strong>")
}

func TestMarkdownService_StripsScripts(t *testing.T) {
	md := NewMarkdownService()

	out, err := md.Render("hello <script>alert(1)</script> [x](javascript:alert(1))")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "javascript:")
}

func TestMarkdownService_Empty(t *testing.T) {
	out, err := NewMarkdownService().Render("")
	require.NoError(t, err)
	assert.Empty(t, out)
}
