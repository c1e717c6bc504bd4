package awsecr

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"

	"awsdev/internal/mcp"
	"awsdev/internal/session"
)

const defaultLimit = 100

type ClientFunc func(context.Context, *session.Session, string) (*ecr.Client, string, error)

type Service struct {
	ctx       mcp.ToolsetContext
	ecrClient ClientFunc
	toolsetID string
}

func ToolSpecs(ctx mcp.ToolsetContext, toolsetID string, ecrClient ClientFunc) []mcp.ToolSpec {
	svc := &Service{ctx: ctx, ecrClient: ecrClient, toolsetID: toolsetID}
	return []mcp.ToolSpec{
		{
			Name:        "aws_dev_list_ecr_repositories",
			Description: "List ECR repositories.",
			ToolsetID:   toolsetID,
			InputSchema: schemaListRepositories(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleListRepositories,
		},
	}
}

func (s *Service) handleListRepositories(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	region := toString(req.Arguments["region"])
	limit := toInt(req.Arguments["limit"], defaultLimit)
	client, usedRegion, err := s.ecrClient(ctx, req.Session, region)
	if err != nil {
		return mcp.ToolResult{}, err
	}
	input := &ecr.DescribeRepositoriesInput{}
	if limit > 0 && limit <= 1000 {
		input.MaxResults = aws.Int32(int32(limit))
	}
	paginator := ecr.NewDescribeRepositoriesPaginator(client, input)
	repos := []map[string]any{}
	truncated := false
pages:
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return mcp.ToolResult{}, err
		}
		for _, repo := range out.Repositories {
			if limit > 0 && len(repos) >= limit {
				truncated = true
				break pages
			}
			repos = append(repos, summarizeRepository(repo))
		}
	}
	return mcp.ToolResult{Data: s.ctx.Redactor.RedactValue(map[string]any{
		"region":       usedRegion,
		"repositories": repos,
		"count":        len(repos),
		"truncated":    truncated,
	})}, nil
}

func summarizeRepository(repo ecrtypes.Repository) map[string]any {
	out := map[string]any{
		"repositoryName": aws.ToString(repo.RepositoryName),
		"repositoryArn":  aws.ToString(repo.RepositoryArn),
		"registryId":     aws.ToString(repo.RegistryId),
		"repositoryUri":  aws.ToString(repo.RepositoryUri),
		"createdAt":      aws.ToTime(repo.CreatedAt),
	}
	if repo.ImageTagMutability != "" {
		out["imageTagMutability"] = string(repo.ImageTagMutability)
	}
	if repo.ImageScanningConfiguration != nil {
		out["scanOnPush"] = repo.ImageScanningConfiguration.ScanOnPush
	}
	return out
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
