package awsknowledgebase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	bedrocktypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/aws/smithy-go"

	"awsdev/internal/mcp"
	"awsdev/internal/session"
)

const defaultModelID = "eu.anthropic.claude-3-7-sonnet-20250219-v1:0"

// API is the subset of the Bedrock agent runtime client the tools call.
type API interface {
	RetrieveAndGenerate(context.Context, *bedrockagentruntime.RetrieveAndGenerateInput, ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

type ClientFunc func(context.Context, *session.Session, string) (API, string, error)

// AccountFunc resolves the account id behind a session.
type AccountFunc func(context.Context, *session.Session) (string, error)

type Service struct {
	ctx           mcp.ToolsetContext
	bedrockClient ClientFunc
	accountID     AccountFunc
	toolsetID     string
}

func ToolSpecs(ctx mcp.ToolsetContext, toolsetID string, bedrockClient ClientFunc, accountID AccountFunc) []mcp.ToolSpec {
	svc := &Service{ctx: ctx, bedrockClient: bedrockClient, accountID: accountID, toolsetID: toolsetID}
	return []mcp.ToolSpec{
		{
			Name:         "aws_dev_list_knowledge_bases",
			Description:  "List the configured Bedrock knowledge bases and the profile each belongs to.",
			ToolsetID:    toolsetID,
			InputSchema:  mcp.ObjectSchema(nil),
			OutputSchema: schemaListOutput(),
			Safety:       mcp.SafetyReadOnly,
			Offline:      true,
			Handler:      svc.handleList,
		},
		{
			Name:         "aws_dev_query_knowledge_base",
			Description:  "Ask a Bedrock knowledge base a question and return the generated answer with citations.",
			ToolsetID:    toolsetID,
			InputSchema:  schemaQuery(),
			OutputSchema: schemaQueryOutput(),
			Safety:       mcp.SafetyReadOnly,
			Handler:      svc.handleQuery,
		},
	}
}

func (s *Service) handleList(context.Context, mcp.ToolRequest) (mcp.ToolResult, error) {
	bases, err := Configured(s.ctx.Config)
	if err != nil {
		return mcp.ToolResult{}, &mcp.ToolError{Kind: mcp.KindInternal, Err: err}
	}
	return mcp.ToolResult{Data: map[string]any{"knowledge_bases": bases}}, nil
}

func (s *Service) handleQuery(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	kbID := strings.TrimSpace(toString(req.Arguments["knowledge_base_id"]))
	if kbID == "" {
		return mcp.ToolResult{}, mcp.NewInvalidInputError("knowledge_base_id is required")
	}
	query := strings.TrimSpace(toString(req.Arguments["query"]))
	if query == "" {
		return mcp.ToolResult{}, mcp.NewInvalidInputError("query is required")
	}
	client, usedRegion, err := s.bedrockClient(ctx, req.Session, "")
	if err != nil {
		return mcp.ToolResult{}, err
	}
	modelArn, err := s.modelArn(ctx, req.Session, usedRegion)
	if err != nil {
		return mcp.ToolResult{}, err
	}
	out, err := client.RetrieveAndGenerate(ctx, &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &bedrocktypes.RetrieveAndGenerateInput{Text: aws.String(query)},
		RetrieveAndGenerateConfiguration: &bedrocktypes.RetrieveAndGenerateConfiguration{
			Type: bedrocktypes.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &bedrocktypes.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId: aws.String(kbID),
				ModelArn:        aws.String(modelArn),
			},
		},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException" {
			return mcp.ToolResult{}, mcp.NewProviderError("ResourceNotFoundException", "Knowledge base with ID %s not found", kbID)
		}
		return mcp.ToolResult{}, err
	}
	answer := ""
	if out.Output != nil {
		answer = aws.ToString(out.Output.Text)
	}
	citations := make([]any, 0, len(out.Citations))
	for _, citation := range out.Citations {
		citations = append(citations, summarizeCitation(citation))
	}
	return mcp.ToolResult{
		Data: s.ctx.Redactor.RedactValue(map[string]any{
			"answer":    answer,
			"citations": citations,
		}),
		Metadata: mcp.ToolMetadata{Resources: []string{"bedrock/knowledge-base/" + kbID}},
	}, nil
}

// modelArn prefers the configured ARN. Otherwise it builds the inference
// profile ARN for the session's region and account.
func (s *Service) modelArn(ctx context.Context, sess *session.Session, region string) (string, error) {
	modelID := defaultModelID
	if cfg := s.ctx.Config; cfg != nil {
		if arn := strings.TrimSpace(cfg.KnowledgeBases.ModelARN); arn != "" {
			return arn, nil
		}
		if id := strings.TrimSpace(cfg.KnowledgeBases.ModelID); id != "" {
			modelID = id
		}
	}
	if s.accountID == nil {
		return "", fmt.Errorf("account lookup not configured")
	}
	account, err := s.accountID(ctx, sess)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("arn:aws:bedrock:%s:%s:inference-profile/%s", region, account, modelID), nil
}

func summarizeCitation(citation bedrocktypes.Citation) map[string]any {
	out := map[string]any{}
	if part := citation.GeneratedResponsePart; part != nil && part.TextResponsePart != nil {
		out["generatedText"] = aws.ToString(part.TextResponsePart.Text)
	}
	refs := make([]any, 0, len(citation.RetrievedReferences))
	for _, ref := range citation.RetrievedReferences {
		entry := map[string]any{}
		if ref.Content != nil {
			entry["content"] = aws.ToString(ref.Content.Text)
		}
		if loc := ref.Location; loc != nil {
			location := map[string]any{"type": string(loc.Type)}
			if loc.S3Location != nil {
				location["uri"] = aws.ToString(loc.S3Location.Uri)
			}
			if loc.WebLocation != nil {
				location["url"] = aws.ToString(loc.WebLocation.Url)
			}
			entry["location"] = location
		}
		refs = append(refs, entry)
	}
	out["references"] = refs
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
