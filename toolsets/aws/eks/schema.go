package awseks

import (
	"github.com/google/jsonschema-go/jsonschema"

	"awsdev/internal/mcp"
)

func schemaListClusters() *jsonschema.Schema {
	return mcp.ObjectSchema(map[string]*jsonschema.Schema{
		"region": mcp.StringProperty("AWS region override."),
		"limit":  mcp.IntegerProperty("Maximum clusters to return (default 100).", 1),
	})
}

func schemaListClustersOutput() *jsonschema.Schema {
	return mcp.ObjectSchema(map[string]*jsonschema.Schema{
		"region":   mcp.StringProperty("Region used."),
		"clusters": mcp.ArrayProperty("Cluster names.", &jsonschema.Schema{Type: "string"}),
		"count":    mcp.IntegerProperty("Number of clusters returned.", 0),
	}, "clusters", "count")
}
