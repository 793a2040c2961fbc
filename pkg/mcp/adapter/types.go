// Package adapter bridges external MCP servers into the tool registry.
package adapter

import (
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDescriptor is the transport-independent view of a remote tool.
type ToolDescriptor struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// ToolCallResult is the normalized outcome of one remote invocation.
type ToolCallResult struct {
	Content json.RawMessage
	Text    string
	IsError bool
}

// Error is an adapter-level failure with an optional payload.
type Error struct {
	Code    int64
	Message string
	Data    json.RawMessage
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Data) > 0 {
		return fmt.Sprintf("mcp error %d: %s (%s)", e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

func convertError(err error) error {
	if err == nil {
		return nil
	}
	var adapterErr *Error
	if errors.As(err, &adapterErr) {
		return adapterErr
	}
	return err
}

func toToolDescriptor(t *mcpsdk.Tool) ToolDescriptor {
	if t == nil {
		return ToolDescriptor{}
	}
	desc := ToolDescriptor{Name: t.Name, Description: t.Description}
	if t.InputSchema != nil {
		if raw, err := json.Marshal(t.InputSchema); err == nil {
			desc.Schema = raw
		}
	}
	return desc
}

func toToolCallResult(res *mcpsdk.CallToolResult) *ToolCallResult {
	if res == nil {
		return &ToolCallResult{}
	}
	out := &ToolCallResult{IsError: res.IsError}
	if raw, err := json.Marshal(res.Content); err == nil {
		out.Content = raw
	}
	for _, block := range res.Content {
		if text, ok := block.(*mcpsdk.TextContent); ok {
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += text.Text
		}
	}
	return out
}
