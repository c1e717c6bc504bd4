package awsknowledgebase

import (
	"github.com/google/jsonschema-go/jsonschema"

	"awsdev/internal/mcp"
)

func schemaQuery() *jsonschema.Schema {
	return mcp.ObjectSchema(map[string]*jsonschema.Schema{
		"knowledge_base_id": mcp.NonEmptyStringProperty("Knowledge base id, see aws_dev_list_knowledge_bases."),
		"query":             mcp.NonEmptyStringProperty("Question to ask."),
	}, "knowledge_base_id", "query")
}

func schemaListOutput() *jsonschema.Schema {
	entry := mcp.ObjectSchema(map[string]*jsonschema.Schema{
		"aws_profile":         mcp.StringProperty("Profile that owns the knowledge base."),
		"knowledge_base_id":   mcp.StringProperty("Knowledge base id."),
		"knowledge_base_name": mcp.StringProperty("Knowledge base name."),
	}, "aws_profile", "knowledge_base_id", "knowledge_base_name")
	return mcp.ObjectSchema(map[string]*jsonschema.Schema{
		"knowledge_bases": mcp.ArrayProperty("Configured knowledge bases.", entry),
	}, "knowledge_bases")
}

func schemaQueryOutput() *jsonschema.Schema {
	return mcp.ObjectSchema(map[string]*jsonschema.Schema{
		"answer":    mcp.StringProperty("Generated answer."),
		"citations": mcp.ArrayProperty("Sources used for the answer.", &jsonschema.Schema{Type: "object"}),
	}, "answer", "citations")
}
