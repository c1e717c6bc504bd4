package awssts

import (
	"github.com/google/jsonschema-go/jsonschema"

	"awsdev/internal/mcp"
)

func schemaGetCallerIdentity() *jsonschema.Schema {
	return mcp.ObjectSchema(map[string]*jsonschema.Schema{
		"region": mcp.StringProperty("AWS region override."),
	})
}

func schemaCallerIdentityOutput() *jsonschema.Schema {
	return mcp.ObjectSchema(map[string]*jsonschema.Schema{
		"profile": mcp.StringProperty("Profile the call ran under."),
		"region":  mcp.StringProperty("Region used."),
		"arn":     mcp.StringProperty("Caller ARN."),
		"account": mcp.StringProperty("Account id."),
		"userId":  mcp.StringProperty("Caller user id."),
	}, "arn", "account")
}

func schemaAssumeRole() *jsonschema.Schema {
	return mcp.ObjectSchema(map[string]*jsonschema.Schema{
		"roleArn":         mcp.NonEmptyStringProperty("ARN of the role to assume."),
		"sessionName":     mcp.NonEmptyStringProperty("Role session name."),
		"durationSeconds": mcp.IntegerProperty("Session duration in seconds.", 900),
		"externalId":      mcp.StringProperty("External id required by the role trust policy."),
		"policy":          mcp.StringProperty("Inline session policy JSON."),
		"confirm":         mcp.BoolProperty("Must be true."),
		"region":          mcp.StringProperty("AWS region override."),
	}, "roleArn", "sessionName", "confirm")
}
