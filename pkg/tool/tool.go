package tool

import "context"

// Tool is a callable capability exposed to the model. Implementations must be
// safe for concurrent use; the agent loop may execute several calls from one
// assistant turn.
type Tool interface {
	Name() string
	Description() string
	Schema() *JSONSchema
	Execute(ctx context.Context, params map[string]interface{}) (*ToolResult, error)
}
