// Package sdk is the public surface for out-of-tree toolsets.
package sdk

import (
	"github.com/google/jsonschema-go/jsonschema"

	"awsdev/internal/mcp"
	"awsdev/internal/redact"
	"awsdev/internal/session"
)

// Core toolset interfaces and types.
type Toolset = mcp.Toolset

type ToolsetContext = mcp.ToolsetContext

type ToolSpec = mcp.ToolSpec

type ToolHandler = mcp.ToolHandler

type ToolSafety = mcp.ToolSafety

type ToolRequest = mcp.ToolRequest

type ToolResult = mcp.ToolResult

type ToolMetadata = mcp.ToolMetadata

type Registry = mcp.Registry

const (
	SafetyReadOnly    = mcp.SafetyReadOnly
	SafetyWrite       = mcp.SafetyWrite
	SafetyRiskyWrite  = mcp.SafetyRiskyWrite
	SafetyDestructive = mcp.SafetyDestructive
)

// Toolset registration for plugin discovery.
func RegisterToolset(id string, factory mcp.ToolsetFactory) error {
	return mcp.RegisterToolset(id, factory)
}

func MustRegisterToolset(id string, factory mcp.ToolsetFactory) {
	mcp.MustRegisterToolset(id, factory)
}

func RegisteredToolsets() []string {
	return mcp.RegisteredToolsets()
}

// Sessions.
type Session = session.Session

type Redactor = redact.Redactor

// Errors.
type ErrorKind = mcp.ErrorKind

type ToolError = mcp.ToolError

const (
	KindNotFound      = mcp.KindNotFound
	KindInvalidInput  = mcp.KindInvalidInput
	KindAuthFailure   = mcp.KindAuthFailure
	KindProviderError = mcp.KindProviderError
	KindInternal      = mcp.KindInternal
)

func NewInvalidInputError(format string, args ...any) error {
	return mcp.NewInvalidInputError(format, args...)
}

func NewProviderError(code, format string, args ...any) error {
	return mcp.NewProviderError(code, format, args...)
}

func NewInternalError(format string, args ...any) error {
	return mcp.NewInternalError(format, args...)
}

// Schema helpers.
func ObjectSchema(properties map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return mcp.ObjectSchema(properties, required...)
}

func StringProperty(description string) *jsonschema.Schema {
	return mcp.StringProperty(description)
}

func IntegerProperty(description string, minimum float64) *jsonschema.Schema {
	return mcp.IntegerProperty(description, minimum)
}

func BoolProperty(description string) *jsonschema.Schema {
	return mcp.BoolProperty(description)
}
