package awsec2

import (
	"github.com/google/jsonschema-go/jsonschema"

	"awsdev/internal/mcp"
)

func schemaListInstances() *jsonschema.Schema {
	return mcp.ObjectSchema(map[string]*jsonschema.Schema{
		"region": mcp.StringProperty("AWS region override."),
		"state":  mcp.EnumProperty("Only instances in this state.", instanceStates...),
		"limit":  mcp.IntegerProperty("Maximum instances to return (default 100).", 1),
	})
}
