package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zlgo/testgen-agent/pkg/tool"
)

func TestTypeMappings(t *testing.T) {
	descriptor := toToolDescriptor(&mcpsdk.Tool{
		Name:        "echo",
		Description: "Echo tool",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{"text": map[string]any{"type": "string"}}},
	})
	if descriptor.Name != "echo" || descriptor.Description != "Echo tool" {
		t.Fatalf("unexpected descriptor: %+v", descriptor)
	}
	var schema map[string]any
	if err := json.Unmarshal(descriptor.Schema, &schema); err != nil {
		t.Fatalf("schema should be valid JSON: %v", err)
	}
	if schema["type"] != "object" {
		t.Fatalf("unexpected schema: %+v", schema)
	}

	result := toToolCallResult(&mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: "hello"},
			&mcpsdk.TextContent{Text: "world"},
		},
	})
	if result.Text != "hello\nworld" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
	if result.IsError {
		t.Fatal("result should not be an error")
	}

	if desc := toToolDescriptor(nil); desc.Name != "" || len(desc.Schema) != 0 {
		t.Fatalf("nil tool should return zero descriptor, got %+v", desc)
	}
	if res := toToolCallResult(nil); res == nil || res.Text != "" {
		t.Fatalf("nil CallToolResult should return empty result, got %#v", res)
	}
}

func TestAdapterError(t *testing.T) {
	if got := (&Error{Code: -1, Message: "boom"}).Error(); got != "mcp error -1: boom" {
		t.Fatalf("unexpected error string: %s", got)
	}
	if got := (&Error{Code: 1, Message: "boom", Data: json.RawMessage(`"extra"`)}).Error(); got != "mcp error 1: boom (\"extra\")" {
		t.Fatalf("unexpected error string with data: %s", got)
	}
	var nilErr *Error
	if nilErr.Error() != "<nil>" {
		t.Fatal("nil error should print <nil>")
	}
	if convertError(nil) != nil {
		t.Fatal("convertError should return nil for nil input")
	}
	custom := &Error{Code: 42, Message: "custom"}
	if convertError(fmt.Errorf("wrapped: %w", custom)) != custom {
		t.Fatal("convertError should unwrap adapter errors")
	}
}

func TestClientListToolsAndInvoke(t *testing.T) {
	var builderCalls atomic.Int32
	client, cleanup := setupTestClient(t, &builderCalls)
	defer cleanup()

	tools, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	if builderCalls.Load() != 1 {
		t.Fatalf("expected single connect, got %d", builderCalls.Load())
	}
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}

	// repeated calls must not reconnect
	if _, err := client.ListTools(context.Background()); err != nil {
		t.Fatalf("ListTools second call failed: %v", err)
	}
	if builderCalls.Load() != 1 {
		t.Fatalf("expected lazy connect, got %d connects", builderCalls.Load())
	}

	res, err := client.InvokeTool(context.Background(), "echo", map[string]interface{}{"text": "hi"})
	if err != nil {
		t.Fatalf("InvokeTool failed: %v", err)
	}
	if res.Text != "echo:hi" {
		t.Fatalf("unexpected payload: %+v", res)
	}
}

func TestClientEnsureConnectedError(t *testing.T) {
	originalBuilder := transportBuilder
	defer func() { transportBuilder = originalBuilder }()

	var calls atomic.Int32
	transportBuilder = func(context.Context, string) (mcpsdk.Transport, error) {
		calls.Add(1)
		return nil, fmt.Errorf("boom")
	}

	client := NewClient("bad://spec")

	if _, err := client.ListTools(context.Background()); err == nil {
		t.Fatal("expected connection error")
	}
	if _, err := client.InvokeTool(context.Background(), "echo", nil); err == nil {
		t.Fatal("expected cached connection error")
	}
	if calls.Load() != 1 {
		t.Fatalf("ensureConnected should only execute once, got %d", calls.Load())
	}
}

func TestClientCloseSafe(t *testing.T) {
	client := NewClient("noop")
	if err := client.Close(); err != nil {
		t.Fatalf("Close without session should be nil: %v", err)
	}
}

func TestParseServerSpecs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "single", raw: "stdio://python server.py", want: []string{"stdio://python server.py"}},
		{name: "multiple with spaces", raw: " http://a/mcp , sse://b/mcp ,", want: []string{"http://a/mcp", "sse://b/mcp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseServerSpecs(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("specs = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("spec[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRegisterServersBridgesTools(t *testing.T) {
	_, cleanup := setupTestClient(t, nil)
	defer cleanup()

	reg := tool.NewRegistry()
	clients, err := RegisterServers(context.Background(), reg, []string{"inmemory"})
	if err != nil {
		t.Fatalf("RegisterServers failed: %v", err)
	}
	defer func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}()

	echo, err := reg.Get("echo")
	if err != nil {
		t.Fatalf("echo tool not registered: %v", err)
	}
	if schema := echo.Schema(); schema == nil || schema.Type != "object" {
		t.Fatalf("schema = %+v", echo.Schema())
	}

	res, err := reg.Execute(context.Background(), "echo", map[string]interface{}{"text": "hi"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !res.Success || !strings.Contains(res.Output, "echo:hi") {
		t.Fatalf("result = %+v", res)
	}
}

func setupTestClient(t *testing.T, callCounter *atomic.Int32) (*Client, func()) {
	t.Helper()
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "test-server", Version: "test"}, nil)
	registerTestTools(server)

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		session, err := server.Connect(ctx, serverTransport, nil)
		if err != nil {
			ready <- err
			return
		}
		ready <- nil
		<-ctx.Done()
		_ = session.Close()
	}()

	originalBuilder := transportBuilder
	transportBuilder = func(ctx context.Context, spec string) (mcpsdk.Transport, error) {
		if callCounter != nil {
			callCounter.Add(1)
		}
		return clientTransport, nil
	}
	t.Cleanup(func() { transportBuilder = originalBuilder })

	client := NewClient("inmemory")
	cleanup := func() {
		_ = client.Close()
		cancel()
		<-done
		if err := <-ready; err != nil {
			t.Fatalf("server connect failed: %v", err)
		}
	}
	return client, cleanup
}

func registerTestTools(server *mcpsdk.Server) {
	server.AddTool(&mcpsdk.Tool{
		Name:        "echo",
		Description: "Echo input",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []any{"text"},
		},
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var payload map[string]string
		if err := json.Unmarshal(req.Params.Arguments, &payload); err != nil {
			return nil, err
		}
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "echo:" + payload["text"]}},
		}, nil
	})

	server.AddTool(&mcpsdk.Tool{
		Name:        "ping",
		Description: "Health check",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "pong"}},
		}, nil
	})
}
