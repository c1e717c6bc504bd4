package mcp

import (
	"maps"

	"github.com/google/jsonschema-go/jsonschema"
)

// ProfileArgument is the optional argument that selects the AWS profile for a
// call. It is stripped before the arguments are validated.
const ProfileArgument = "profile"

var errorKinds = []any{
	string(KindNotFound),
	string(KindInvalidInput),
	string(KindAuthFailure),
	string(KindProviderError),
	string(KindInternal),
}

// advertisedInputSchema adds the profile selector to a tool's input schema
// without touching the compiled original.
func advertisedInputSchema(schema *jsonschema.Schema) *jsonschema.Schema {
	if schema == nil {
		schema = &jsonschema.Schema{Type: "object"}
	}
	if _, ok := schema.Properties[ProfileArgument]; ok {
		return schema
	}
	out := *schema
	out.Properties = maps.Clone(schema.Properties)
	if out.Properties == nil {
		out.Properties = map[string]*jsonschema.Schema{}
	}
	out.Properties[ProfileArgument] = &jsonschema.Schema{
		Type:        "string",
		Description: "AWS profile to use for this call. Defaults to the active profile.",
	}
	return &out
}

// envelopeSchema describes the response envelope around a tool result.
func envelopeSchema(result *jsonschema.Schema) *jsonschema.Schema {
	if result == nil {
		result = &jsonschema.Schema{}
	}
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"status":    {Type: "string", Enum: []any{statusSuccess, statusError}},
			"result":    result,
			"errorKind": {Type: "string", Enum: errorKinds},
			"message":   {Type: "string"},
			"code":      {Type: "string"},
			"retryable": {Type: "boolean"},
		},
		Required: []string{"status"},
	}
}

// Schema helpers for toolsets.

func ObjectSchema(properties map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	if properties == nil {
		properties = map[string]*jsonschema.Schema{}
	}
	return &jsonschema.Schema{Type: "object", Properties: properties, Required: required}
}

func StringProperty(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func NonEmptyStringProperty(description string) *jsonschema.Schema {
	minLength := 1
	return &jsonschema.Schema{Type: "string", Description: description, MinLength: &minLength}
}

func IntegerProperty(description string, minimum float64) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description, Minimum: &minimum}
}

// BoundedIntegerProperty is an integer within [minimum, maximum].
func BoundedIntegerProperty(description string, minimum, maximum float64) *jsonschema.Schema {
	schema := IntegerProperty(description, minimum)
	schema.Maximum = &maximum
	return schema
}

func BoolProperty(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: description}
}

func EnumProperty(description string, values ...string) *jsonschema.Schema {
	enum := make([]any, 0, len(values))
	for _, value := range values {
		enum = append(enum, value)
	}
	return &jsonschema.Schema{Type: "string", Description: description, Enum: enum}
}

func ArrayProperty(description string, items *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Description: description, Items: items}
}

func StringMapProperty(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Description: description, AdditionalProperties: &jsonschema.Schema{Type: "string"}}
}
