package console

import (
	"regexp"
	"strings"
)

var (
	mdBold    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	mdCode    = regexp.MustCompile("`([^`]+)`")
	mdHeading = regexp.MustCompile(`(?m)^(#{1,6})\s*(.+)$`)
	mdBullet  = regexp.MustCompile(`(?m)^\s*[-*]\s+`)
)

// FormatMarkdown applies minimal ANSI styling to markdown text. Input that
// already carries escape sequences passes through untouched.
func FormatMarkdown(text string) string {
	if text == "" || strings.HasPrefix(strings.TrimLeft(text, " \t"), "\x1b") {
		return text
	}

	out := mdBold.ReplaceAllStringFunc(text, func(m string) string {
		return headingStyle.Render(mdBold.FindStringSubmatch(m)[1])
	})
	out = mdCode.ReplaceAllStringFunc(out, func(m string) string {
		return codeStyle.Render(mdCode.FindStringSubmatch(m)[1])
	})
	out = mdHeading.ReplaceAllStringFunc(out, func(m string) string {
		return headingStyle.Render(mdHeading.FindStringSubmatch(m)[2])
	})
	out = mdBullet.ReplaceAllString(out, "• ")
	return out
}
