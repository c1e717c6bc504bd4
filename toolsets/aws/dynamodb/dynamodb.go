package awsdynamodb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"sigs.k8s.io/yaml"

	"awsdev/internal/config"
	"awsdev/internal/mcp"
	"awsdev/internal/schema"
	"awsdev/internal/session"
)

const (
	defaultSampleRecords = 1000
	defaultMaxRecords    = 1000
	defaultPageSize      = 100

	formatJSON = "json"
	formatYAML = "yaml"
)

// API is the subset of the DynamoDB client the tools call.
type API interface {
	dynamodb.ListTablesAPIClient
	dynamodb.ScanAPIClient
}

type ClientFunc func(context.Context, *session.Session, string) (API, string, error)

type Service struct {
	ctx       mcp.ToolsetContext
	ddbClient ClientFunc
	toolsetID string
}

func ToolSpecs(ctx mcp.ToolsetContext, toolsetID string, ddbClient ClientFunc) []mcp.ToolSpec {
	svc := &Service{ctx: ctx, ddbClient: ddbClient, toolsetID: toolsetID}
	return []mcp.ToolSpec{
		{
			Name:        "aws_dev_list_dynamodb_tables",
			Description: "List DynamoDB tables.",
			ToolsetID:   toolsetID,
			InputSchema: schemaListTables(),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleListTables,
		},
		{
			Name:        "aws_dev_get_dynamodb_schema",
			Description: "Infer a JSON Schema for a DynamoDB table by sampling its items.",
			ToolsetID:   toolsetID,
			InputSchema: schemaGetTableSchema(svc.maxRecords()),
			Safety:      mcp.SafetyReadOnly,
			Handler:     svc.handleGetTableSchema,
		},
		{
			Name:        "aws_dev_infer_schema",
			Description: "Infer a JSON Schema (Draft-07) from sample records.",
			ToolsetID:   toolsetID,
			InputSchema: schemaInferSchema(),
			Safety:      mcp.SafetyReadOnly,
			Offline:     true,
			Handler:     svc.handleInferSchema,
		},
	}
}

func (s *Service) handleListTables(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	region := toString(req.Arguments["region"])
	limit := toInt(req.Arguments["limit"], 100)
	client, usedRegion, err := s.ddbClient(ctx, req.Session, region)
	if err != nil {
		return mcp.ToolResult{}, err
	}
	input := &dynamodb.ListTablesInput{}
	if limit > 0 && limit <= 100 {
		input.Limit = aws.Int32(int32(limit))
	}
	paginator := dynamodb.NewListTablesPaginator(client, input)
	tables := []string{}
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return mcp.ToolResult{}, err
		}
		tables = append(tables, out.TableNames...)
		if limit > 0 && len(tables) >= limit {
			tables = tables[:limit]
			break
		}
	}
	return mcp.ToolResult{Data: s.ctx.Redactor.RedactValue(map[string]any{
		"region": usedRegion,
		"tables": tables,
		"count":  len(tables),
	})}, nil
}

func (s *Service) handleGetTableSchema(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	tableName := strings.TrimSpace(toString(req.Arguments["table_name"]))
	if tableName == "" {
		return mcp.ToolResult{}, mcp.NewInvalidInputError("table_name is required")
	}
	format, err := outputFormat(req.Arguments)
	if err != nil {
		return mcp.ToolResult{}, err
	}
	numRecords, pageSize := s.sampleLimits(req.Arguments)
	client, usedRegion, err := s.ddbClient(ctx, req.Session, toString(req.Arguments["region"]))
	if err != nil {
		return mcp.ToolResult{}, err
	}

	builder := schema.NewBuilder()
	err = SampleItems(ctx, client, tableName, numRecords, pageSize, func(item map[string]any) error {
		return builder.Add(item)
	})
	if err != nil {
		return mcp.ToolResult{}, err
	}
	doc, err := builder.Schema(schema.Draft07)
	if err != nil {
		return mcp.ToolResult{}, err
	}
	rendered, err := render(doc, format)
	if err != nil {
		return mcp.ToolResult{}, err
	}
	return mcp.ToolResult{
		Data: map[string]any{
			"region":         usedRegion,
			"tableName":      tableName,
			"sampledRecords": builder.Samples(),
			"format":         format,
			"schema":         rendered,
		},
		Metadata: mcp.ToolMetadata{Resources: []string{"dynamodb/table/" + tableName}},
	}, nil
}

func (s *Service) handleInferSchema(_ context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	format, err := outputFormat(req.Arguments)
	if err != nil {
		return mcp.ToolResult{}, err
	}
	records, _ := req.Arguments["records"].([]any)
	builder := schema.NewBuilder()
	for i, record := range records {
		if err := builder.Add(record); err != nil {
			return mcp.ToolResult{}, mcp.NewInvalidInputError("record %d: %v", i, err)
		}
	}
	doc, err := builder.Schema(schema.Draft07)
	if err != nil {
		return mcp.ToolResult{}, err
	}
	rendered, err := render(doc, format)
	if err != nil {
		return mcp.ToolResult{}, err
	}
	return mcp.ToolResult{Data: map[string]any{
		"sampledRecords": builder.Samples(),
		"format":         format,
		"schema":         rendered,
	}}, nil
}

func (s *Service) maxRecords() int {
	if cfg := s.ctx.Config; cfg != nil && cfg.DynamoDB.MaxRecords > 0 {
		return cfg.DynamoDB.MaxRecords
	}
	return defaultMaxRecords
}

// sampleLimits returns num_records and page_size clamped to the configured
// record cap and the Scan page limit.
func (s *Service) sampleLimits(args map[string]any) (int, int) {
	numRecords, pageSize := defaultSampleRecords, defaultPageSize
	if cfg := s.ctx.Config; cfg != nil {
		if cfg.DynamoDB.SampleRecords > 0 {
			numRecords = cfg.DynamoDB.SampleRecords
		}
		if cfg.DynamoDB.PageSize > 0 {
			pageSize = cfg.DynamoDB.PageSize
		}
	}
	numRecords = min(toInt(args["num_records"], numRecords), s.maxRecords())
	pageSize = min(toInt(args["page_size"], pageSize), config.MaxScanPageSize)
	return numRecords, pageSize
}

// SampleItems scans tableName page by page and hands at most numRecords
// decoded items to fn.
func SampleItems(ctx context.Context, client dynamodb.ScanAPIClient, tableName string, numRecords, pageSize int, fn func(map[string]any) error) error {
	input := &dynamodb.ScanInput{TableName: aws.String(tableName)}
	if pageSize > 0 {
		input.Limit = aws.Int32(int32(min(pageSize, config.MaxScanPageSize)))
	}
	paginator := dynamodb.NewScanPaginator(client, input)
	seen := 0
	for paginator.HasMorePages() && seen < numRecords {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, item := range page.Items {
			if seen >= numRecords {
				return nil
			}
			if err := fn(decodeItem(item)); err != nil {
				return err
			}
			seen++
		}
	}
	return nil
}

func decodeItem(item map[string]ddbtypes.AttributeValue) map[string]any {
	out := make(map[string]any, len(item))
	for key, value := range item {
		out[key] = decodeAttribute(value)
	}
	return out
}

// decodeAttribute keeps numbers as json.Number so integers stay integers.
func decodeAttribute(value ddbtypes.AttributeValue) any {
	switch v := value.(type) {
	case *ddbtypes.AttributeValueMemberS:
		return v.Value
	case *ddbtypes.AttributeValueMemberN:
		return json.Number(v.Value)
	case *ddbtypes.AttributeValueMemberBOOL:
		return v.Value
	case *ddbtypes.AttributeValueMemberNULL:
		return nil
	case *ddbtypes.AttributeValueMemberB:
		return base64.StdEncoding.EncodeToString(v.Value)
	case *ddbtypes.AttributeValueMemberM:
		return decodeItem(v.Value)
	case *ddbtypes.AttributeValueMemberL:
		out := make([]any, 0, len(v.Value))
		for _, elem := range v.Value {
			out = append(out, decodeAttribute(elem))
		}
		return out
	case *ddbtypes.AttributeValueMemberSS:
		out := make([]any, 0, len(v.Value))
		for _, elem := range v.Value {
			out = append(out, elem)
		}
		return out
	case *ddbtypes.AttributeValueMemberNS:
		out := make([]any, 0, len(v.Value))
		for _, elem := range v.Value {
			out = append(out, json.Number(elem))
		}
		return out
	case *ddbtypes.AttributeValueMemberBS:
		out := make([]any, 0, len(v.Value))
		for _, elem := range v.Value {
			out = append(out, base64.StdEncoding.EncodeToString(elem))
		}
		return out
	default:
		return nil
	}
}

func outputFormat(args map[string]any) (string, error) {
	format := strings.ToLower(strings.TrimSpace(toString(args["format"])))
	switch format {
	case "", formatJSON:
		return formatJSON, nil
	case formatYAML:
		return formatYAML, nil
	default:
		return "", mcp.NewInvalidInputError("unsupported format %q", format)
	}
}

// render returns the schema document itself for json and a YAML string for
// yaml.
func render(doc map[string]any, format string) (any, error) {
	if format != formatYAML {
		return doc, nil
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("render schema as yaml: %w", err)
	}
	return string(out), nil
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
