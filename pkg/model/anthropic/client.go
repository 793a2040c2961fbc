package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	modelpkg "github.com/zlgo/testgen-agent/pkg/model"
)

var _ modelpkg.Provider = (*AnthropicProvider)(nil)

// AnthropicProvider builds Messages-API models. Anthropic-compatible
// gateways are reached by overriding BaseURL.
type AnthropicProvider struct {
	HTTPClient *http.Client
}

// NewProvider wraps client; pass nil for a default client with a request
// timeout of defaultHTTPTimeout seconds.
func NewProvider(client *http.Client) *AnthropicProvider {
	return &AnthropicProvider{HTTPClient: client}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// NewModel materializes an AnthropicModel from cfg. The API key and a model
// name (cfg.Model, falling back to cfg.Name) are mandatory.
func (p *AnthropicProvider) NewModel(ctx context.Context, cfg modelpkg.ModelConfig) (modelpkg.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}
	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		modelName = strings.TrimSpace(cfg.Name)
	}
	if modelName == "" {
		return nil, errors.New("anthropic model name is required")
	}

	headers := map[string]string{
		"X-API-Key":         apiKey,
		"Anthropic-Version": anthropicVersion,
		"Content-Type":      "application/json",
		"User-Agent":        userAgent,
	}
	for k, v := range cfg.Headers {
		if strings.TrimSpace(k) != "" && v != "" {
			headers[k] = v
		}
	}

	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout * time.Second}
	}

	return &AnthropicModel{
		client:  client,
		baseURL: normalizeBaseURL(cfg.BaseURL),
		model:   modelName,
		headers: headers,
		opts:    parseModelOptions(cfg.Extra),
	}, nil
}

// normalizeBaseURL trims trailing slashes and falls back to the public
// endpoint when empty.
func normalizeBaseURL(base string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(base), "/")
	if trimmed == "" {
		return defaultBaseURL
	}
	return trimmed
}
