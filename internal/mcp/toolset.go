package mcp

// Toolset groups related tools. Init receives the shared runtime context
// before Register is called.
type Toolset interface {
	ID() string
	Version() string
	Init(ctx ToolsetContext) error
	Register(reg Registry) error
}
