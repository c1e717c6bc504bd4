package awssts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"

	"awsdev/internal/mcp"
	"awsdev/internal/session"
)

// ClientFunc returns an STS client for the session, optionally pinned to a
// region, and the region actually used.
type ClientFunc func(context.Context, *session.Session, string) (*sts.Client, string, error)

type Service struct {
	ctx       mcp.ToolsetContext
	stsClient ClientFunc
	toolsetID string
}

func ToolSpecs(ctx mcp.ToolsetContext, toolsetID string, stsClient ClientFunc) []mcp.ToolSpec {
	svc := &Service{ctx: ctx, stsClient: stsClient, toolsetID: toolsetID}
	return []mcp.ToolSpec{
		{
			Name:         "aws_dev_get_caller_identity",
			Description:  "Get the AWS account and caller identity of the active profile.",
			ToolsetID:    toolsetID,
			InputSchema:  schemaGetCallerIdentity(),
			OutputSchema: schemaCallerIdentityOutput(),
			Safety:       mcp.SafetyReadOnly,
			Handler:      svc.handleGetCallerIdentity,
		},
		{
			Name:        "aws_dev_assume_role",
			Description: "Assume an IAM role and return temporary credentials (confirm required).",
			ToolsetID:   toolsetID,
			InputSchema: schemaAssumeRole(),
			Safety:      mcp.SafetyRiskyWrite,
			Handler:     svc.handleAssumeRole,
		},
	}
}

func (s *Service) handleGetCallerIdentity(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	region := toString(req.Arguments["region"])
	client, usedRegion, err := s.stsClient(ctx, req.Session, region)
	if err != nil {
		return mcp.ToolResult{}, err
	}
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return mcp.ToolResult{}, err
	}
	arn := aws.ToString(out.Arn)
	return mcp.ToolResult{
		Data: s.ctx.Redactor.RedactValue(map[string]any{
			"profile": req.Profile,
			"region":  usedRegion,
			"arn":     arn,
			"account": aws.ToString(out.Account),
			"userId":  aws.ToString(out.UserId),
		}),
		Metadata: mcp.ToolMetadata{Resources: []string{arn}},
	}, nil
}

func (s *Service) handleAssumeRole(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	if err := requireConfirm(req.Arguments); err != nil {
		return mcp.ToolResult{}, err
	}
	roleArn := strings.TrimSpace(toString(req.Arguments["roleArn"]))
	if !strings.HasPrefix(roleArn, "arn:") {
		return mcp.ToolResult{}, mcp.NewInvalidInputError("roleArn must be an IAM role ARN, got %q", roleArn)
	}
	sessionName := strings.TrimSpace(toString(req.Arguments["sessionName"]))
	if sessionName == "" {
		return mcp.ToolResult{}, mcp.NewInvalidInputError("sessionName is required")
	}
	region := toString(req.Arguments["region"])
	duration := toInt(req.Arguments["durationSeconds"], 0)
	externalID := strings.TrimSpace(toString(req.Arguments["externalId"]))
	policy := strings.TrimSpace(toString(req.Arguments["policy"]))
	client, usedRegion, err := s.stsClient(ctx, req.Session, region)
	if err != nil {
		return mcp.ToolResult{}, err
	}
	input := &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleArn),
		RoleSessionName: aws.String(sessionName),
	}
	if duration > 0 {
		input.DurationSeconds = aws.Int32(int32(duration))
	}
	if externalID != "" {
		input.ExternalId = aws.String(externalID)
	}
	if policy != "" {
		input.Policy = aws.String(policy)
	}
	out, err := client.AssumeRole(ctx, input)
	if err != nil {
		return mcp.ToolResult{}, err
	}
	return mcp.ToolResult{
		Data: s.ctx.Redactor.RedactValue(map[string]any{
			"region":           usedRegion,
			"assumedRoleUser":  summarizeAssumedRoleUser(out.AssumedRoleUser),
			"credentials":      summarizeCredentials(out.Credentials),
			"sourceIdentity":   aws.ToString(out.SourceIdentity),
			"packedPolicySize": aws.ToInt32(out.PackedPolicySize),
		}),
		Metadata: mcp.ToolMetadata{Resources: []string{roleArn}},
	}, nil
}

func summarizeAssumedRoleUser(user *ststypes.AssumedRoleUser) map[string]any {
	if user == nil {
		return nil
	}
	return map[string]any{
		"arn":           aws.ToString(user.Arn),
		"assumedRoleId": aws.ToString(user.AssumedRoleId),
	}
}

// summarizeCredentials keeps the key id and expiry. Secrets are never
// returned to the caller.
func summarizeCredentials(creds *ststypes.Credentials) map[string]any {
	if creds == nil {
		return nil
	}
	return map[string]any{
		"accessKeyId": aws.ToString(creds.AccessKeyId),
		"expiration":  aws.ToTime(creds.Expiration),
	}
}

// AccountID resolves the caller's account for the given client.
func AccountID(ctx context.Context, client *sts.Client) (string, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", err
	}
	account := aws.ToString(out.Account)
	if account == "" {
		return "", fmt.Errorf("caller identity returned no account")
	}
	return account, nil
}

func toString(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func toInt(value any, fallback int) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if parsed, err := v.Int64(); err == nil {
			return int(parsed)
		}
	}
	return fallback
}

func requireConfirm(args map[string]any) error {
	if val, ok := args["confirm"].(bool); ok && val {
		return nil
	}
	return mcp.NewInvalidInputError("confirmation required: set confirm=true to proceed")
}
