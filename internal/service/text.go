package service

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	plainTextPolicy = bluemonday.StrictPolicy()
	markdownPolicy  = bluemonday.UGCPolicy()
	markdownEngine  = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps(), gmhtml.WithXHTML()),
	)

	// Only the escapes the policy adds for plain characters are undone, so
	// escaped markup such as "&lt;b&gt;" never turns back into a tag.
	plainTextUnescaper = strings.NewReplacer("&amp;", "&", "&#39;", "'", "&#34;", `"`)
)

// sanitizeText strips markup from user input and trims it.
func sanitizeText(value string) string {
	return strings.TrimSpace(plainTextUnescaper.Replace(plainTextPolicy.Sanitize(value)))
}

// renderMarkdown converts markdown to sanitised HTML.
func renderMarkdown(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return template.HTML(markdownPolicy.SanitizeBytes(buf.Bytes())), nil
}
