package awsiam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"awsdev/internal/mcp"
	"awsdev/internal/session"
)

type ClientFunc func(context.Context, *session.Session, string) (*iam.Client, string, error)

type Service struct {
	ctx       mcp.ToolsetContext
	iamClient ClientFunc
	toolsetID string
}

func ToolSpecs(ctx mcp.ToolsetContext, toolsetID string, iamClient ClientFunc) []mcp.ToolSpec {
	svc := &Service{ctx: ctx, iamClient: iamClient, toolsetID: toolsetID}
	return []mcp.ToolSpec{
		{
			Name:        "aws_dev_get_iam_role",
			Description: "Get an IAM role with its trust policy, attached and inline policies.",
			ToolsetID:   toolsetID,
			InputSchema: schemaGetRole(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleGetRole,
		},
	}
}

func (s *Service) handleGetRole(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	roleName := strings.TrimSpace(toString(req.Arguments["role_name"]))
	if roleName == "" {
		return mcp.ToolResult{}, mcp.NewInvalidInputError("role_name is required")
	}
	includePolicies := toBool(req.Arguments["include_policies"], true)
	client, _, err := s.iamClient(ctx, req.Session, "")
	if err != nil {
		return mcp.ToolResult{}, err
	}
	out, err := client.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(roleName)})
	if err != nil {
		return mcp.ToolResult{}, err
	}
	if out.Role == nil {
		return mcp.ToolResult{}, mcp.NewProviderError("NoSuchEntity", "role %s not found", roleName)
	}
	role := out.Role
	result := map[string]any{
		"role": summarizeRole(*role),
	}
	assumeDoc := decodePolicyDocument(aws.ToString(role.AssumeRolePolicyDocument))
	if strings.TrimSpace(assumeDoc) != "" {
		result["assumeRolePolicy"] = parseJSONOrString(assumeDoc)
	}
	if includePolicies {
		attached, err := listAttachedRolePolicies(ctx, client, roleName)
		if err != nil {
			return mcp.ToolResult{}, err
		}
		inline, err := listInlineRolePolicies(ctx, client, roleName)
		if err != nil {
			return mcp.ToolResult{}, err
		}
		result["attachedPolicies"] = attached
		result["inlinePolicies"] = inline
	}
	return mcp.ToolResult{
		Data:     s.ctx.Redactor.RedactValue(result),
		Metadata: mcp.ToolMetadata{Resources: []string{aws.ToString(role.Arn)}},
	}, nil
}

func listAttachedRolePolicies(ctx context.Context, client *iam.Client, roleName string) ([]map[string]any, error) {
	paginator := iam.NewListAttachedRolePoliciesPaginator(client, &iam.ListAttachedRolePoliciesInput{
		RoleName: aws.String(roleName),
	})
	out := []map[string]any{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, policy := range page.AttachedPolicies {
			out = append(out, map[string]any{"name": aws.ToString(policy.PolicyName), "arn": aws.ToString(policy.PolicyArn)})
		}
	}
	return out, nil
}

func listInlineRolePolicies(ctx context.Context, client *iam.Client, roleName string) ([]string, error) {
	paginator := iam.NewListRolePoliciesPaginator(client, &iam.ListRolePoliciesInput{RoleName: aws.String(roleName)})
	out := []string{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, page.PolicyNames...)
	}
	sort.Strings(out)
	return out, nil
}

func summarizeRole(role iamtypes.Role) map[string]any {
	return map[string]any{
		"name":        aws.ToString(role.RoleName),
		"arn":         aws.ToString(role.Arn),
		"path":        aws.ToString(role.Path),
		"id":          aws.ToString(role.RoleId),
		"description": aws.ToString(role.Description),
		"createDate":  aws.ToTime(role.CreateDate),
		"maxSession":  aws.ToInt32(role.MaxSessionDuration),
	}
}

func parseJSONOrString(value string) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return value
	}
	var out any
	if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
		return out
	}
	return value
}

// IAM returns policy documents URL-encoded.
func decodePolicyDocument(value string) string {
	if value == "" {
		return ""
	}
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return value
	}
	return decoded
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

func toBool(value any, fallback bool) bool {
	if v, ok := value.(bool); ok {
		return v
	}
	return fallback
}
