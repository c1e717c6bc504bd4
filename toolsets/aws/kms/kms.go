package awskms

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"

	"awsdev/internal/mcp"
	"awsdev/internal/session"
)

type ClientFunc func(context.Context, *session.Session, string) (*kms.Client, string, error)

type Service struct {
	ctx       mcp.ToolsetContext
	kmsClient ClientFunc
	toolsetID string
}

func ToolSpecs(ctx mcp.ToolsetContext, toolsetID string, kmsClient ClientFunc) []mcp.ToolSpec {
	svc := &Service{ctx: ctx, kmsClient: kmsClient, toolsetID: toolsetID}
	return []mcp.ToolSpec{
		{
			Name:        "aws_dev_describe_kms_key",
			Description: "Describe a KMS key by id, ARN or alias.",
			ToolsetID:   toolsetID,
			InputSchema: schemaDescribeKey(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleDescribeKey,
		},
	}
}

func (s *Service) handleDescribeKey(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	keyID := strings.TrimSpace(toString(req.Arguments["key_id"]))
	if keyID == "" {
		return mcp.ToolResult{}, mcp.NewInvalidInputError("key_id is required")
	}
	region := toString(req.Arguments["region"])
	client, usedRegion, err := s.kmsClient(ctx, req.Session, region)
	if err != nil {
		return mcp.ToolResult{}, err
	}
	out, err := client.DescribeKey(ctx, &kms.DescribeKeyInput{KeyId: aws.String(keyID)})
	if err != nil {
		return mcp.ToolResult{}, err
	}
	key := summarizeKeyMetadata(out.KeyMetadata)
	var resources []string
	if out.KeyMetadata != nil {
		resources = append(resources, aws.ToString(out.KeyMetadata.Arn))
	}
	return mcp.ToolResult{
		Data: s.ctx.Redactor.RedactValue(map[string]any{
			"region": usedRegion,
			"key":    key,
		}),
		Metadata: mcp.ToolMetadata{Resources: resources},
	}, nil
}

func summarizeKeyMetadata(meta *kmstypes.KeyMetadata) map[string]any {
	if meta == nil {
		return nil
	}
	return map[string]any{
		"keyId":        aws.ToString(meta.KeyId),
		"arn":          aws.ToString(meta.Arn),
		"awsAccountId": aws.ToString(meta.AWSAccountId),
		"description":  aws.ToString(meta.Description),
		"keyState":     string(meta.KeyState),
		"keyUsage":     string(meta.KeyUsage),
		"keySpec":      string(meta.KeySpec),
		"origin":       string(meta.Origin),
		"keyManager":   string(meta.KeyManager),
		"multiRegion":  aws.ToBool(meta.MultiRegion),
		"creationDate": aws.ToTime(meta.CreationDate),
		"enabled":      meta.Enabled,
	}
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
