package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/zlgo/testgen-agent/pkg/event"
)

// maxResultLines bounds the tool output echoed under each call line.
const maxResultLines = 6

// argPreviewKeys are tried in order when picking the argument shown on a
// tool call line.
var argPreviewKeys = []string{"path", "command", "function_name", "output_format", "action", "name"}

// Renderer draws agent progress events.
type Renderer struct {
	Out io.Writer
}

// Handle draws one event.
func (r *Renderer) Handle(evt event.Event) {
	switch data := evt.Data.(type) {
	case event.ProgressData:
		if data.Text != "" {
			fmt.Fprintln(r.Out, FormatMarkdown(data.Text))
		}
	case event.ToolCallData:
		fmt.Fprintln(r.Out, toolStyle.Render("⏺ "+toolCallTitle(data.Name, data.Arguments)))
	case event.ToolResultData:
		r.subLines(data.Output, data.IsError)
	case event.ErrorData:
		fmt.Fprintln(r.Out, errorStyle.Render("✖ "+data.Message))
	case event.CompletionData:
		// the REPL prints a divider after the turn
	}
}

func (r *Renderer) subLines(output string, isError bool) {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	shown := lines
	if len(shown) > maxResultLines {
		shown = shown[:maxResultLines]
	}
	for _, line := range shown {
		if isError {
			fmt.Fprintln(r.Out, "  ⎿ "+errorStyle.Render(line))
			continue
		}
		fmt.Fprintln(r.Out, "  ⎿ "+FormatMarkdown(line))
	}
	if rest := len(lines) - len(shown); rest > 0 {
		fmt.Fprintln(r.Out, mutedStyle.Render(fmt.Sprintf("  ⎿ … %d more lines", rest)))
	}
}

func toolCallTitle(name string, args map[string]any) string {
	if preview := previewArg(args); preview != "" {
		return fmt.Sprintf("%s(%s)…", name, preview)
	}
	return name + "…"
}

func previewArg(args map[string]any) string {
	for _, key := range argPreviewKeys {
		if v, ok := args[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return truncateArg(s)
			}
		}
	}
	return ""
}

func truncateArg(s string) string {
	const limit = 60
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
