package toolbuiltin

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// coerceString accepts the string-ish shapes JSON decoding produces.
func coerceString(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case json.Number:
		return v.String(), nil
	case nil:
		return "", errors.New("value is nil")
	default:
		return "", fmt.Errorf("unexpected type %T", raw)
	}
}

func requiredString(params map[string]interface{}, key string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	value, err := coerceString(raw)
	if err != nil {
		return "", fmt.Errorf("%s must be string: %w", key, err)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s cannot be empty", key)
	}
	return value, nil
}

func optionalString(params map[string]interface{}, key, fallback string) (string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	value, err := coerceString(raw)
	if err != nil {
		return "", fmt.Errorf("%s must be string: %w", key, err)
	}
	return value, nil
}

// optionalInt reads a parameter that models deliver as float64 after JSON
// decoding. The second return reports presence.
func optionalInt(params map[string]interface{}, key string) (int, bool, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		if math.Trunc(v) != v {
			return 0, false, fmt.Errorf("%s must be an integer", key)
		}
		return int(v), true, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false, fmt.Errorf("%s must be an integer: %w", key, err)
		}
		return int(n), true, nil
	default:
		return 0, false, fmt.Errorf("%s must be an integer, got %T", key, raw)
	}
}
