package awsdynamodb

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"awsdev/internal/config"
	"awsdev/internal/mcp"
)

func formatProperty() *jsonschema.Schema {
	return mcp.EnumProperty("Output format of the schema (default json).", formatJSON, formatYAML)
}

func schemaListTables() *jsonschema.Schema {
	return mcp.ObjectSchema(map[string]*jsonschema.Schema{
		"region": mcp.StringProperty("AWS region override."),
		"limit":  mcp.IntegerProperty("Maximum tables to return (default 100).", 1),
	})
}

func schemaGetTableSchema(maxRecords int) *jsonschema.Schema {
	return mcp.ObjectSchema(map[string]*jsonschema.Schema{
		"table_name":  mcp.NonEmptyStringProperty("DynamoDB table name."),
		"num_records": mcp.BoundedIntegerProperty(fmt.Sprintf("Maximum items to sample (default 1000, at most %d).", maxRecords), 1, float64(maxRecords)),
		"page_size":   mcp.BoundedIntegerProperty("Items per scan page (default 100).", 1, config.MaxScanPageSize),
		"format":      formatProperty(),
		"region":      mcp.StringProperty("AWS region override."),
	}, "table_name")
}

func schemaInferSchema() *jsonschema.Schema {
	return mcp.ObjectSchema(map[string]*jsonschema.Schema{
		"records": mcp.ArrayProperty("Sample records.", &jsonschema.Schema{Type: "object"}),
		"format":  formatProperty(),
	}, "records")
}
