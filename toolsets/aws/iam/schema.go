package awsiam

import (
	"github.com/google/jsonschema-go/jsonschema"

	"awsdev/internal/mcp"
)

func schemaGetRole() *jsonschema.Schema {
	return mcp.ObjectSchema(map[string]*jsonschema.Schema{
		"role_name":        mcp.NonEmptyStringProperty("IAM role name."),
		"include_policies": mcp.BoolProperty("Include attached and inline policy names (default true)."),
	}, "role_name")
}
