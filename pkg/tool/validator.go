package tool

import (
	"encoding/json"
	"fmt"
	"math"
)

// Validator checks tool parameters against a schema before execution.
type Validator interface {
	Validate(params map[string]interface{}, schema *JSONSchema) error
}

// DefaultValidator covers required fields and primitive type checks, which
// is enough to reject malformed model output before a tool sees it.
type DefaultValidator struct{}

func (DefaultValidator) Validate(params map[string]interface{}, schema *JSONSchema) error {
	if schema == nil {
		return nil
	}
	for _, field := range schema.Required {
		if _, ok := params[field]; !ok {
			return fmt.Errorf("missing required field: %s", field)
		}
	}
	for key, value := range params {
		want := propertyType(schema.Properties[key])
		if want == "" {
			continue
		}
		if err := matchType(value, want); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
	}
	return nil
}

// propertyType reads the "type" of a property, which may be a raw map or a
// nested *JSONSchema depending on how the tool declared it.
func propertyType(def interface{}) string {
	switch d := def.(type) {
	case map[string]interface{}:
		s, _ := d["type"].(string)
		return s
	case *JSONSchema:
		return d.Type
	}
	return ""
}

func matchType(value interface{}, want string) error {
	ok := false
	switch want {
	case "string":
		_, ok = value.(string)
	case "boolean":
		_, ok = value.(bool)
	case "object":
		_, ok = value.(map[string]interface{})
	case "array":
		_, ok = value.([]interface{})
	case "null":
		ok = value == nil
	case "number":
		ok = numericKind(value) != kindNone
	case "integer":
		ok = numericKind(value) == kindInt
	default:
		return fmt.Errorf("unsupported schema type %q", want)
	}
	if !ok {
		return fmt.Errorf("expected %s but got %T", want, value)
	}
	return nil
}

type numKind int

const (
	kindNone numKind = iota
	kindInt
	kindFloat
)

// numericKind classifies value as integral, fractional, or non-numeric.
// JSON decoding hands integers over as float64, so whole floats count as
// integral.
func numericKind(value interface{}) numKind {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return kindInt
	case float32:
		if math.Trunc(float64(v)) == float64(v) {
			return kindInt
		}
		return kindFloat
	case float64:
		if math.Trunc(v) == v {
			return kindInt
		}
		return kindFloat
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return kindInt
		}
		if _, err := v.Float64(); err == nil {
			return kindFloat
		}
	}
	return kindNone
}
