package agent

import (
	"errors"
	"strings"

	"github.com/zlgo/testgen-agent/pkg/model"
	"github.com/zlgo/testgen-agent/pkg/session"
	"github.com/zlgo/testgen-agent/pkg/tool"
)

const defaultStreamBuffer = 16

// Config stores the coarse grained runtime settings for an Agent instance.
type Config struct {
	Name           string
	Description    string
	Model          model.Model
	Tools          *tool.Registry
	Session        session.Session
	SystemPrompt   string
	DefaultContext RunContext
	StreamBuffer   int
}

// Validate enforces minimal structural guarantees.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("config name is required")
	}
	if c.Model == nil {
		return errors.New("config model is required")
	}
	if c.StreamBuffer < 0 {
		return errors.New("stream buffer cannot be negative")
	}
	c.DefaultContext = c.DefaultContext.Normalize()
	return nil
}

// ResolveContext merges the configuration defaults with a caller override.
func (c Config) ResolveContext(override RunContext) RunContext {
	return c.DefaultContext.Merge(override)
}

func (c Config) streamBuffer() int {
	if c.StreamBuffer <= 0 {
		return defaultStreamBuffer
	}
	return c.StreamBuffer
}
