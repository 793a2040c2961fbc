package model

// Message represents a single conversational turn exchanged with a model.
type Message struct {
	Role        string
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
	StopReason  string
}

// ToolCall captures a tool invocation emitted by assistant messages.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolResult carries the outcome of one tool invocation back to the model.
type ToolResult struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// ToolDefinition advertises a callable tool to the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema any
}

// Request bundles everything a single model call needs.
type Request struct {
	System    string
	Messages  []Message
	Tools     []ToolDefinition
	MaxTokens int
}

// HasToolCalls reports whether the message asks for tool execution.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}
