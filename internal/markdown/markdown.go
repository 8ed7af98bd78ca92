// Package markdown renders message bodies into safe HTML for the surfaces.
package markdown

import (
	"bytes"
	stdhtml "html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

type TextProcessor struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func New() *TextProcessor {
	// Chat messages get inline formatting, code and links; headings, lists
	// or raw html blocks have no place in a chat bubble.
	p := parser.NewParser(
		parser.WithBlockParsers(
			util.Prioritized(parser.NewFencedCodeBlockParser(), 700),
			util.Prioritized(parser.NewParagraphParser(), 1000),
		),
		parser.WithInlineParsers(
			util.Prioritized(parser.NewCodeSpanParser(), 100),
			util.Prioritized(parser.NewLinkParser(), 200),
			util.Prioritized(parser.NewAutoLinkParser(), 300),
			util.Prioritized(parser.NewEmphasisParser(), 500),
		),
		parser.WithParagraphTransformers(
			util.Prioritized(parser.LinkReferenceParagraphTransformer, 100),
		),
	)

	md := goldmark.New(
		goldmark.WithParser(p),
		goldmark.WithRendererOptions(html.WithHardWraps()),
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
	)

	policy := bluemonday.UGCPolicy()
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	return &TextProcessor{md: md, policy: policy}
}

// Render converts a message body to sanitized HTML. A blank body renders
// as an empty string.
func (tp *TextProcessor) Render(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := tp.md.Convert([]byte(body), &buf); err != nil {
		return tp.policy.Sanitize(stdhtml.EscapeString(body))
	}
	return strings.TrimSpace(tp.policy.Sanitize(buf.String()))
}

// Plain strips formatting, for one-line previews such as chat list snippets.
func (tp *TextProcessor) Plain(body string, limit int) string {
	text := bluemonday.StrictPolicy().Sanitize(tp.Render(body))
	text = strings.Join(strings.Fields(stdhtml.UnescapeString(text)), " ")
	if limit > 0 {
		if r := []rune(text); len(r) > limit {
			return strings.TrimSpace(string(r[:limit])) + "…"
		}
	}
	return text
}
