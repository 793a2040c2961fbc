package tool

// JSONSchema captures the subset of JSON Schema we require for tool
// validation and for advertising tool inputs to the model.
type JSONSchema struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Required   []string               `json:"required,omitempty"`
}

// ObjectSchema is a shorthand for the common object-with-properties case.
func ObjectSchema(properties map[string]interface{}, required ...string) *JSONSchema {
	return &JSONSchema{Type: "object", Properties: properties, Required: required}
}
