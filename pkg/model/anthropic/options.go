package anthropic

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// modelOptions are the per-model knobs read from ModelConfig.Extra. Keys are
// matched case-insensitively; unknown keys are ignored.
type modelOptions struct {
	MaxTokens   int
	Temperature *float64
	TopP        *float64
	TopK        *int
	System      string
	Metadata    map[string]any
}

func parseModelOptions(extra map[string]any) modelOptions {
	opts := modelOptions{MaxTokens: defaultMaxTokens}
	for key, val := range extra {
		switch strings.ToLower(key) {
		case "max_tokens":
			if n, ok := asInt(val); ok {
				opts.MaxTokens = n
			}
		case "temperature":
			if f, ok := asFloat(val); ok {
				opts.Temperature = &f
			}
		case "top_p":
			if f, ok := asFloat(val); ok {
				opts.TopP = &f
			}
		case "top_k":
			if n, ok := asInt(val); ok {
				opts.TopK = &n
			}
		case "system":
			opts.System = fmt.Sprint(val)
		case "metadata":
			if m, ok := val.(map[string]any); ok && len(m) > 0 {
				opts.Metadata = maps.Clone(m)
			}
		}
	}
	return opts
}

// asInt widens the numeric types json decoding and callers commonly hand in.
func asInt(val any) (int, bool) {
	switch v := val.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}

func asFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}
