package awseks

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eks"

	"awsdev/internal/mcp"
	"awsdev/internal/session"
)

type ClientFunc func(context.Context, *session.Session, string) (*eks.Client, string, error)

type Service struct {
	ctx       mcp.ToolsetContext
	eksClient ClientFunc
	toolsetID string
}

func ToolSpecs(ctx mcp.ToolsetContext, toolsetID string, eksClient ClientFunc) []mcp.ToolSpec {
	svc := &Service{ctx: ctx, eksClient: eksClient, toolsetID: toolsetID}
	return []mcp.ToolSpec{
		{
			Name:         "aws_dev_list_eks_clusters",
			Description:  "List EKS clusters.",
			ToolsetID:    toolsetID,
			InputSchema:  schemaListClusters(),
			OutputSchema: schemaListClustersOutput(),
			Safety:       mcp.SafetyReadOnly,
			Handler:      svc.handleListClusters,
		},
	}
}

func (s *Service) handleListClusters(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	region := toString(req.Arguments["region"])
	limit := toInt(req.Arguments["limit"], 100)
	client, usedRegion, err := s.eksClient(ctx, req.Session, region)
	if err != nil {
		return mcp.ToolResult{}, err
	}
	input := &eks.ListClustersInput{}
	if limit > 0 && limit <= 100 {
		input.MaxResults = aws.Int32(int32(limit))
	}
	clusters := []string{}
	for {
		out, err := client.ListClusters(ctx, input)
		if err != nil {
			return mcp.ToolResult{}, err
		}
		clusters = append(clusters, out.Clusters...)
		if limit > 0 && len(clusters) >= limit {
			clusters = clusters[:limit]
			break
		}
		if aws.ToString(out.NextToken) == "" {
			break
		}
		input.NextToken = out.NextToken
	}
	sort.Strings(clusters)
	return mcp.ToolResult{Data: s.ctx.Redactor.RedactValue(map[string]any{
		"region":   usedRegion,
		"clusters": clusters,
		"count":    len(clusters),
	})}, nil
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
