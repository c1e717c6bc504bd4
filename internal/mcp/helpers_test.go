package mcp

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"

	"awsdev/internal/audit"
	"awsdev/internal/config"
	"awsdev/internal/policy"
	"awsdev/internal/redact"
	"awsdev/internal/session"
)

type testRuntime struct {
	cfg        config.Config
	reg        *ToolRegistry
	dispatcher *Dispatcher
	audit      *bytes.Buffer
	builds     *atomic.Int32
}

func newTestRuntime(t *testing.T, factory session.Factory, specs ...ToolSpec) *testRuntime {
	t.Helper()
	builds := &atomic.Int32{}
	if factory == nil {
		factory = func(ctx context.Context, profile string) (sdkaws.Config, error) {
			builds.Add(1)
			return sdkaws.Config{Region: "us-east-1"}, nil
		}
	}
	cfg := config.DefaultConfig()
	reg := NewRegistry(&cfg)
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			t.Fatalf("register %s: %v", spec.Name, err)
		}
	}
	reg.Seal()
	auditBuf := &bytes.Buffer{}
	toolCtx := ToolContext{
		Config:   &cfg,
		Sessions: session.NewCache(factory, session.Options{TTL: cfg.SessionTTL()}),
		Profiles: session.NewProfileSelector("default"),
		Policy:   policy.NewAuthorizer(),
		Redactor: redact.New(),
		Audit:    audit.NewLogger(auditBuf),
	}
	return &testRuntime{cfg: cfg, reg: reg, dispatcher: NewDispatcher(reg, toolCtx), audit: auditBuf, builds: builds}
}

func staticHandler(data any) ToolHandler {
	return func(ctx context.Context, req ToolRequest) (ToolResult, error) {
		return ToolResult{Data: data}, nil
	}
}
