package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zlgo/testgen-agent/pkg/tool"
)

// remoteTool exposes one MCP server tool through the local tool interface.
type remoteTool struct {
	client *Client
	desc   ToolDescriptor
	schema *tool.JSONSchema
}

var _ tool.Tool = (*remoteTool)(nil)

func (t *remoteTool) Name() string        { return t.desc.Name }
func (t *remoteTool) Description() string { return t.desc.Description }

func (t *remoteTool) Schema() *tool.JSONSchema { return t.schema }

func (t *remoteTool) Execute(ctx context.Context, params map[string]interface{}) (*tool.ToolResult, error) {
	res, err := t.client.InvokeTool(ctx, t.desc.Name, params)
	if err != nil {
		return nil, fmt.Errorf("invoke mcp tool %s: %w", t.desc.Name, err)
	}
	output := res.Text
	if output == "" && len(res.Content) > 0 {
		output = string(res.Content)
	}
	if res.IsError {
		return &tool.ToolResult{Success: false, Output: output}, nil
	}
	return tool.Text(output), nil
}

func parseSchema(raw json.RawMessage) *tool.JSONSchema {
	if len(raw) == 0 {
		return nil
	}
	var schema tool.JSONSchema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil
	}
	if schema.Type == "" {
		return nil
	}
	return &schema
}

// ParseServerSpecs splits a comma-separated transport spec list.
func ParseServerSpecs(raw string) []string {
	var specs []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			specs = append(specs, part)
		}
	}
	return specs
}

// RegisterServers connects to each server spec and registers its tools.
// Returned clients stay open for the lifetime of the registry; the caller
// owns closing them.
func RegisterServers(ctx context.Context, reg *tool.Registry, specs []string) ([]*Client, error) {
	var clients []*Client
	for _, spec := range specs {
		client := NewClient(spec)
		descs, err := client.ListTools(ctx)
		if err != nil {
			for _, c := range clients {
				_ = c.Close()
			}
			_ = client.Close()
			return nil, fmt.Errorf("list tools for %s: %w", spec, err)
		}
		for _, desc := range descs {
			rt := &remoteTool{client: client, desc: desc, schema: parseSchema(desc.Schema)}
			if err := reg.Register(rt); err != nil {
				return clients, fmt.Errorf("register mcp tool %s: %w", desc.Name, err)
			}
		}
		clients = append(clients, client)
	}
	return clients, nil
}
