package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every recognised environment variable.
const EnvPrefix = "LANGGRAPH_AGENT_"

// ConfigFileName is looked up inside the workspace when no explicit path is given.
const ConfigFileName = "testgen-agent.yaml"

const (
	defaultBaseURL            = "https://api.anthropic.com"
	defaultModel              = "claude-3-5-sonnet-20241022"
	defaultMaxToolResultChars = 100_000
	defaultMaxTokens          = 160_000
	defaultRecursionLimit     = 150
	defaultBashTimeoutMS      = 30_000
)

// TodoStatuses enumerates the statuses a todo item may carry, in lifecycle order.
var TodoStatuses = [3]string{"pending", "in_progress", "completed"}

// Settings is the immutable runtime configuration, populated once at startup.
type Settings struct {
	AnthropicBaseURL   string `yaml:"anthropic_base_url"`
	AnthropicAPIKey    string `yaml:"anthropic_api_key"`
	AgentModel         string `yaml:"agent_model"`
	Workspace          string `yaml:"workspace"`
	MaxToolResultChars int    `yaml:"max_tool_result_chars"`
	MaxTokens          int    `yaml:"max_tokens"`
	RecursionLimit     int    `yaml:"recursion_limit"`
	BashTimeoutMS      int    `yaml:"bash_timeout_ms"`
	// MCPServers holds transport specs (stdio command, sse:// or http URL)
	// for external MCP tool servers, comma separated in the environment.
	MCPServers []string `yaml:"mcp_servers"`
}

// Load assembles Settings from, in ascending precedence: built-in defaults,
// an optional YAML file in the workspace, a .env file, and the process
// environment. The .env file never overrides variables already exported.
func Load() (*Settings, error) {
	// Errors from a missing .env are not interesting; an unreadable one is.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	s := defaults()
	// The config file lives in the workspace, so the workspace override has
	// to be known before the file is read.
	if ws, ok := lookup("WORKSPACE"); ok {
		s.Workspace = ws
	}
	if err := s.applyFile(filepath.Join(s.Workspace, ConfigFileName)); err != nil {
		return nil, err
	}
	if err := s.applyEnv(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func defaults() *Settings {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return &Settings{
		AnthropicBaseURL:   defaultBaseURL,
		AgentModel:         defaultModel,
		Workspace:          wd,
		MaxToolResultChars: defaultMaxToolResultChars,
		MaxTokens:          defaultMaxTokens,
		RecursionLimit:     defaultRecursionLimit,
		BashTimeoutMS:      defaultBashTimeoutMS,
	}
}

func (s *Settings) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Settings) applyEnv() error {
	if v, ok := lookup("ANTHROPIC_BASE_URL"); ok {
		s.AnthropicBaseURL = v
	}
	if v, ok := lookup("ANTHROPIC_API_KEY"); ok {
		s.AnthropicAPIKey = v
	}
	if v, ok := lookup("AGENT_MODEL"); ok {
		s.AgentModel = v
	}
	if v, ok := lookup("WORKSPACE"); ok {
		s.Workspace = v
	}
	if v, ok := lookup("MCP_SERVERS"); ok {
		s.MCPServers = splitList(v)
	}
	for _, field := range []struct {
		key string
		dst *int
	}{
		{"MAX_TOOL_RESULT_CHARS", &s.MaxToolResultChars},
		{"MAX_TOKENS", &s.MaxTokens},
		{"RECURSION_LIMIT", &s.RecursionLimit},
		{"BASH_TIMEOUT_MS", &s.BashTimeoutMS},
	} {
		raw, ok := lookup(field.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, field.key, err)
		}
		*field.dst = n
	}
	return nil
}

// Validate enforces minimal structural guarantees before the agent starts.
func (s *Settings) Validate() error {
	if s == nil {
		return errors.New("settings is nil")
	}
	if strings.TrimSpace(s.AgentModel) == "" {
		return errors.New("agent model is required")
	}
	if strings.TrimSpace(s.AnthropicBaseURL) == "" {
		return errors.New("anthropic base url is required")
	}
	abs, err := filepath.Abs(s.Workspace)
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("workspace %s: %w", abs, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace %s is not a directory", abs)
	}
	s.Workspace = abs
	for _, check := range []struct {
		name  string
		value int
	}{
		{"max_tool_result_chars", s.MaxToolResultChars},
		{"max_tokens", s.MaxTokens},
		{"recursion_limit", s.RecursionLimit},
		{"bash_timeout_ms", s.BashTimeoutMS},
	} {
		if check.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", check.name, check.value)
		}
	}
	return nil
}

// ValidStatus reports whether value is one of the allowed todo statuses.
func ValidStatus(value string) bool {
	for _, status := range TodoStatuses {
		if value == status {
			return true
		}
	}
	return false
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
