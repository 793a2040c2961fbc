// Package textutil holds small text helpers shared by tools and rendering.
package textutil

import "fmt"

// Clamp truncates text to at most limit characters, appending a marker with
// the number of characters that were dropped. A non-positive limit disables
// clamping.
func Clamp(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	remaining := len(runes) - limit
	return string(runes[:limit]) + fmt.Sprintf("\n\n...<truncated %d chars>", remaining)
}
