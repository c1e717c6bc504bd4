package mcp

import (
	"context"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"

	"awsdev/internal/audit"
	"awsdev/internal/cache"
	"awsdev/internal/config"
	"awsdev/internal/policy"
	"awsdev/internal/redact"
	"awsdev/internal/session"
)

type ToolSafety string

const (
	SafetyReadOnly    ToolSafety = "read_only"
	SafetyWrite       ToolSafety = "write"
	SafetyRiskyWrite  ToolSafety = "risky_write"
	SafetyDestructive ToolSafety = "destructive"
)

type ToolHandler func(ctx context.Context, req ToolRequest) (ToolResult, error)

// ToolSpec describes one tool. A nil InputSchema accepts any object; a nil
// OutputSchema skips output validation. Offline tools run without a session.
type ToolSpec struct {
	Name         string
	Description  string
	ToolsetID    string
	InputSchema  *jsonschema.Schema
	OutputSchema *jsonschema.Schema
	Safety       ToolSafety
	Offline      bool
	Handler      ToolHandler
}

type ToolInfo struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Toolset      string             `json:"toolset"`
	Safety       ToolSafety         `json:"safety"`
	InputSchema  *jsonschema.Schema `json:"inputSchema"`
	OutputSchema *jsonschema.Schema `json:"outputSchema,omitempty"`
}

type ToolRequest struct {
	InvocationID string
	Arguments    map[string]any
	// Profile is the resolved profile for the call, set for offline tools too.
	Profile string
	// Session is nil for offline tools.
	Session *session.Session
	Context ToolContext
}

type ToolResult struct {
	Data     any
	Metadata ToolMetadata
}

type ToolMetadata struct {
	Resources []string `json:"resources,omitempty"`
}

type ToolContext struct {
	Config   *config.Config
	Sessions *session.Cache
	Profiles *session.ProfileSelector
	Policy   *policy.Authorizer
	Redactor *redact.Redactor
	Audit    *audit.Logger
	Cache    *cache.Store
	Logger   *slog.Logger
	Registry Registry
}

type ToolsetContext = ToolContext
