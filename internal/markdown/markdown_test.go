package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tp := New()

	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "normal text",
			input:    "hello world",
			contains: []string{"<p>hello world</p>"},
		},
		{
			name:     "bold",
			input:    "**hello**",
			contains: []string{"<strong>hello</strong>"},
		},
		{
			name:     "italic",
			input:    "*hello*",
			contains: []string{"<em>hello</em>"},
		},
		{
			name:     "strikethrough",
			input:    "~~hello~~",
			contains: []string{"<del>hello</del>"},
		},
		{
			name:     "inline code",
			input:    "run `make build`",
			contains: []string{"<code>make build</code>"},
		},
		{
			name:     "code block keeps markup literal",
			input:    "```\n<b>x</b>\n```",
			contains: []string{"<pre><code>", "&lt;b&gt;x&lt;/b&gt;"},
		},
		{
			name:     "line breaks",
			input:    "first\nsecond",
			contains: []string{"first<br", "second"},
		},
		{
			name:     "bare url becomes a link",
			input:    "see https://example.com/shoot",
			contains: []string{`href="https://example.com/shoot"`},
		},
		{
			name:     "script is neutralised",
			input:    "<script>alert(1)</script>",
			excludes: []string{"<script"},
		},
		{
			name:     "javascript links are dropped",
			input:    "[click](javascript:alert(1))",
			excludes: []string{"javascript:"},
		},
		{
			name:     "headings are plain text",
			input:    "# not a heading",
			excludes: []string{"<h1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tp.Render(tt.input)
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, got, s)
			}
		})
	}
}

func TestRender_Blank(t *testing.T) {
	tp := New()
	assert.Empty(t, tp.Render(""))
	assert.Empty(t, tp.Render(" \n\t "))
}

func TestPlain(t *testing.T) {
	tp := New()

	assert.Equal(t, "hello world", tp.Plain("**hello** *world*", 0))
	assert.Equal(t, "first second", tp.Plain("first\nsecond", 0))
	assert.Equal(t, "a < b & c", tp.Plain("a < b & c", 0))
	assert.Equal(t, "", tp.Plain("", 10))

	long := strings.Repeat("word ", 20)
	got := tp.Plain(long, 12)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, len([]rune(got)), 13)
}
