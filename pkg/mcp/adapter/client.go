package adapter

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// transportBuilder is overridden in tests to stub the transport factory.
var transportBuilder = buildTransport

// Client connects to one MCP server and exposes its tools. Connection is
// lazy and happens at most once.
type Client struct {
	implClient    *mcpsdk.Client
	session       *mcpsdk.ClientSession
	transportSpec string
	once          sync.Once
	connectErr    error
}

// NewClient constructs a client for the given transport specification.
func NewClient(spec string) *Client {
	impl := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "testgen-agent", Version: "dev"}, nil)
	return &Client{implClient: impl, transportSpec: spec}
}

func (c *Client) ensureConnected(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.once.Do(func() {
		if c.implClient == nil {
			c.connectErr = fmt.Errorf("mcp adapter: nil client implementation")
			return
		}
		transport, err := transportBuilder(ctx, c.transportSpec)
		if err != nil {
			c.connectErr = fmt.Errorf("build transport: %w", err)
			return
		}
		session, err := c.implClient.Connect(ctx, transport, nil)
		if err != nil {
			c.connectErr = err
			return
		}
		c.session = session
	})
	return convertError(c.connectErr)
}

// ListTools fetches the full tool list of the remote server.
func (c *Client) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	var tools []ToolDescriptor
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, convertError(err)
		}
		tools = append(tools, toToolDescriptor(tool))
	}
	return tools, nil
}

// InvokeTool calls a remote tool and returns the normalized result.
func (c *Client) InvokeTool(ctx context.Context, name string, args map[string]interface{}) (*ToolCallResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	result, err := c.session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, convertError(err)
	}
	return toToolCallResult(result), nil
}

// Close shuts down the underlying session, if any.
func (c *Client) Close() error {
	if c == nil || c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

// buildTransport maps a server spec onto an SDK transport. Recognized forms:
//
//	stdio://CMD ARGS...        subprocess over stdio
//	sse://HOST/PATH            SSE, https assumed when no scheme given
//	http(s)://...              SSE
//	http(s)+sse://...          SSE
//	http(s)+stream://...       streamable HTTP (also: streamable, http, json)
//	CMD ARGS...                subprocess over stdio
func buildTransport(ctx context.Context, spec string) (mcpsdk.Transport, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("mcp adapter: transport spec is empty")
	}

	rawScheme, rest, hasScheme := strings.Cut(spec, "://")
	if !hasScheme {
		return commandTransport(ctx, spec)
	}

	switch scheme := strings.ToLower(rawScheme); scheme {
	case "stdio":
		return commandTransport(ctx, rest)
	case "sse":
		endpoint, err := httpEndpoint(rest, true)
		if err != nil {
			return nil, fmt.Errorf("mcp adapter: invalid sse endpoint: %w", err)
		}
		return &mcpsdk.SSEClientTransport{Endpoint: endpoint}, nil
	case "http", "https":
		endpoint, err := httpEndpoint(scheme+"://"+rest, false)
		if err != nil {
			return nil, fmt.Errorf("mcp adapter: invalid sse endpoint: %w", err)
		}
		return &mcpsdk.SSEClientTransport{Endpoint: endpoint}, nil
	default:
		base, hint, hasHint := strings.Cut(scheme, "+")
		if !hasHint || (base != "http" && base != "https") {
			// unknown scheme, let stdio try it as a command line
			return commandTransport(ctx, spec)
		}
		hint, _, _ = strings.Cut(hint, "+")
		endpoint, err := httpEndpoint(base+"://"+rest, false)
		if err != nil {
			return nil, fmt.Errorf("mcp adapter: invalid %s endpoint: %w", hint, err)
		}
		switch hint {
		case "sse":
			return &mcpsdk.SSEClientTransport{Endpoint: endpoint}, nil
		case "stream", "streamable", "http", "json":
			return &mcpsdk.StreamableClientTransport{Endpoint: endpoint}, nil
		default:
			return nil, fmt.Errorf("mcp adapter: unsupported HTTP transport hint %q", hint)
		}
	}
}

func commandTransport(ctx context.Context, cmdSpec string) (mcpsdk.Transport, error) {
	parts := strings.Fields(strings.TrimSpace(cmdSpec))
	if len(parts) == 0 {
		return nil, fmt.Errorf("mcp adapter: stdio command is empty")
	}
	// #nosec G204 -- the command line comes from the operator's server config
	cmd := exec.CommandContext(nonNilContext(ctx), parts[0], parts[1:]...)
	return &mcpsdk.CommandTransport{Command: cmd}, nil
}

// httpEndpoint validates and canonicalizes an HTTP(S) URL. With guessScheme
// set, a scheme-less value gets https prepended.
func httpEndpoint(raw string, guessScheme bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("endpoint is empty")
	}
	if guessScheme && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	u.Scheme = scheme
	return u.String(), nil
}

func nonNilContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
