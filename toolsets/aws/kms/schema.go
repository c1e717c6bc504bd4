package awskms

import (
	"github.com/google/jsonschema-go/jsonschema"

	"awsdev/internal/mcp"
)

func schemaDescribeKey() *jsonschema.Schema {
	return mcp.ObjectSchema(map[string]*jsonschema.Schema{
		"key_id": mcp.NonEmptyStringProperty("Key id, key ARN, alias name or alias ARN."),
		"region": mcp.StringProperty("AWS region override."),
	}, "key_id")
}
