package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/zlgo/testgen-agent/pkg/agent"
	"github.com/zlgo/testgen-agent/pkg/config"
	"github.com/zlgo/testgen-agent/pkg/mcp/adapter"
	"github.com/zlgo/testgen-agent/pkg/model"
	"github.com/zlgo/testgen-agent/pkg/model/anthropic"
	"github.com/zlgo/testgen-agent/pkg/prompts"
	"github.com/zlgo/testgen-agent/pkg/session"
	"github.com/zlgo/testgen-agent/pkg/todo"
	"github.com/zlgo/testgen-agent/pkg/tool"
	toolbuiltin "github.com/zlgo/testgen-agent/pkg/tool/builtin"
	"github.com/zlgo/testgen-agent/pkg/workspace"
)

// sessionDir is created under the workspace to keep transcripts.
const sessionDir = ".agent_sessions"

type app struct {
	settings   *config.Settings
	agent      agent.Agent
	sess       *session.MemorySession
	backend    session.Backend
	mcpClients []*adapter.Client
}

func newApp(ctx context.Context) (*app, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	ws, err := workspace.New(settings.Workspace)
	if err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}

	factory := model.NewFactory(anthropic.NewProvider(nil))
	mdl, err := factory.NewModel(ctx, model.ModelConfig{
		Provider: "anthropic",
		Model:    settings.AgentModel,
		BaseURL:  settings.AnthropicBaseURL,
		APIKey:   settings.AnthropicAPIKey,
		Extra:    map[string]any{"max_tokens": settings.MaxTokens},
	})
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}

	reg := tool.NewRegistry()
	bashTimeout := time.Duration(settings.BashTimeoutMS) * time.Millisecond
	tools := []tool.Tool{
		toolbuiltin.NewBashTool(ws, bashTimeout, settings.MaxToolResultChars),
		toolbuiltin.NewReadFileTool(ws),
		toolbuiltin.NewWriteFileTool(ws),
		toolbuiltin.NewEditTextTool(ws),
		toolbuiltin.NewTodoWriteTool(todo.NewBoard()),
	}
	tools = append(tools, toolbuiltin.NewTestGenSuite(ws, mdl, settings.MaxTokens).Tools()...)
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return nil, fmt.Errorf("register tool: %w", err)
		}
	}

	mcpClients, err := adapter.RegisterServers(ctx, reg, settings.MCPServers)
	if err != nil {
		return nil, fmt.Errorf("connect mcp servers: %w", err)
	}

	sess, err := session.NewMemorySession(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}

	backend, err := session.NewDirBackend(filepath.Join(settings.Workspace, sessionDir))
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}

	ag, err := agent.New(agent.Config{
		Name:         "testgen-agent",
		Description:  "todo-driven test case generation agent",
		Model:        mdl,
		Tools:        reg,
		Session:      sess,
		SystemPrompt: prompts.System(settings.Workspace),
		DefaultContext: agent.RunContext{
			SessionID:     sess.ID(),
			WorkDir:       settings.Workspace,
			MaxIterations: settings.RecursionLimit,
			MaxTokens:     settings.MaxTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build agent: %w", err)
	}

	return &app{
		settings:   settings,
		agent:      ag,
		sess:       sess,
		backend:    backend,
		mcpClients: mcpClients,
	}, nil
}

// shutdown persists the transcript and releases remote tool connections.
func (a *app) shutdown() {
	if a.sess != nil && a.backend != nil {
		_ = session.Persist(a.sess, a.backend)
	}
	for _, c := range a.mcpClients {
		_ = c.Close()
	}
}
