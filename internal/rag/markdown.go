package rag

import (
	"regexp"
	"strings"
)

var markdownReplacements = []struct {
	re   *regexp.Regexp
	repl string
}{
	// Fenced code blocks go first so inline-code stripping never
	// mangles a fence.
	{regexp.MustCompile("(?s)```.*?```"), ""},
	{regexp.MustCompile(`(?m)^#{1,6}\s+`), ""},
	{regexp.MustCompile(`\*\*(.+?)\*\*`), "$1"},
	{regexp.MustCompile(`\*(.+?)\*`), "$1"},
	{regexp.MustCompile(`__(.+?)__`), "$1"},
	{regexp.MustCompile(`_(.+?)_`), "$1"},
	{regexp.MustCompile(`~~(.+?)~~`), "$1"},
	{regexp.MustCompile("`(.+?)`"), "$1"},
	// Images before links, or the link rule eats the image syntax.
	{regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`), ""},
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), "$1"},
	{regexp.MustCompile(`(?m)^\s*[-*+]\s+`), ""},
	{regexp.MustCompile(`(?m)^\s*\d+\.\s+`), ""},
	{regexp.MustCompile(`(?m)^\s*>\s+`), ""},
	{regexp.MustCompile(`\n{3,}`), "\n\n"},
}

// ExtractTextFromMarkdown strips markdown syntax, leaving plain text
// suitable for chunking and embedding.
func ExtractTextFromMarkdown(markdown string) string {
	text := markdown
	for _, r := range markdownReplacements {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return strings.TrimSpace(text)
}
