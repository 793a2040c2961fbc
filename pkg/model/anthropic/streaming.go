package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	modelpkg "github.com/zlgo/testgen-agent/pkg/model"
)

// consumeSSE parses a Server-Sent Events stream, invoking fn for each event.
func consumeSSE(ctx context.Context, r io.Reader, fn func(event, data string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var eventName string
	var dataBuf strings.Builder
	flush := func() error {
		if dataBuf.Len() == 0 {
			eventName = ""
			return nil
		}
		payload := dataBuf.String()
		dataBuf.Reset()
		return fn(eventName, payload)
	}

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := scanner.Text()
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			eventName = ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "event:") {
			eventName = strings.TrimSpace(line[6:])
			continue
		}
		if strings.HasPrefix(line, "data:") {
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(strings.TrimSpace(line[5:]))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}

// streamAccumulator assembles a full assistant message from SSE events,
// including tool_use blocks whose input arrives as partial JSON.
type streamAccumulator struct {
	text       strings.Builder
	toolCalls  []modelpkg.ToolCall
	stopReason string

	blockOpen   bool
	blockType   string
	pendingID   string
	pendingName string
	inputJSON   strings.Builder
}

func newStreamAccumulator() *streamAccumulator {
	return &streamAccumulator{}
}

func (a *streamAccumulator) startBlock(evt ContentBlockStartEvent) {
	a.blockOpen = true
	a.blockType = evt.ContentBlock.Type
	if evt.ContentBlock.Type == "tool_use" {
		a.pendingID = evt.ContentBlock.ID
		a.pendingName = evt.ContentBlock.Name
		a.inputJSON.Reset()
	}
}

// applyDelta returns printable text for text deltas and accumulates JSON for
// tool_use deltas.
func (a *streamAccumulator) applyDelta(evt ContentBlockDeltaEvent) string {
	switch evt.Delta.Type {
	case "text_delta":
		a.text.WriteString(evt.Delta.Text)
		return evt.Delta.Text
	case "input_json_delta":
		a.inputJSON.WriteString(evt.Delta.PartialJSON)
		return ""
	default:
		return ""
	}
}

func (a *streamAccumulator) stopBlock() error {
	defer func() {
		a.blockOpen = false
		a.blockType = ""
		a.pendingID = ""
		a.pendingName = ""
		a.inputJSON.Reset()
	}()

	if a.blockType != "tool_use" {
		return nil
	}
	args := map[string]any{}
	if raw := strings.TrimSpace(a.inputJSON.String()); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return fmt.Errorf("decode streamed tool input for %s: %w", a.pendingName, err)
		}
	}
	a.toolCalls = append(a.toolCalls, modelpkg.ToolCall{
		ID:        a.pendingID,
		Name:      a.pendingName,
		Arguments: args,
	})
	return nil
}

func (a *streamAccumulator) message() modelpkg.Message {
	return modelpkg.Message{
		Role:       "assistant",
		Content:    a.text.String(),
		ToolCalls:  a.toolCalls,
		StopReason: a.stopReason,
	}
}
