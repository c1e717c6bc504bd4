package awsecr

import (
	"github.com/google/jsonschema-go/jsonschema"

	"awsdev/internal/mcp"
)

func schemaListRepositories() *jsonschema.Schema {
	return mcp.ObjectSchema(map[string]*jsonschema.Schema{
		"region": mcp.StringProperty("AWS region override."),
		"limit":  mcp.IntegerProperty("Maximum repositories to return (default 100).", 1),
	})
}
