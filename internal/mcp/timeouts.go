package mcp

import (
	"context"
	"time"

	"awsdev/internal/config"
)

func withToolTimeout(ctx context.Context, cfg *config.Config, spec ToolSpec) (context.Context, context.CancelFunc) {
	timeout := toolTimeout(cfg, spec.Name)
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// toolTimeout resolves the per-tool override, then the default, capped by
// the configured maximum.
func toolTimeout(cfg *config.Config, toolName string) time.Duration {
	if cfg == nil {
		return 0
	}
	timeout := time.Duration(cfg.Timeouts.DefaultSeconds) * time.Second
	if override, ok := cfg.Timeouts.PerTool[toolName]; ok && override > 0 {
		timeout = time.Duration(override) * time.Second
	}
	max := time.Duration(cfg.Timeouts.MaxSeconds) * time.Second
	if max > 0 && (timeout <= 0 || timeout > max) {
		return max
	}
	if timeout < 0 {
		return 0
	}
	return timeout
}
