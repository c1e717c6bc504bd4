package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"awsdev/internal/cache"
	"awsdev/internal/logging"
	"awsdev/internal/mcp"
)

// Toolset exposes the active profile and the session cache. Its tools resolve
// sessions themselves, so they are registered as offline and apply the
// profile policy explicitly.
type Toolset struct {
	ctx mcp.ToolsetContext
}

func New() *Toolset {
	return &Toolset{}
}

func init() {
	mcp.MustRegisterToolset("profile", func() mcp.Toolset {
		return New()
	})
}

func (t *Toolset) ID() string {
	return "profile"
}

func (t *Toolset) Version() string {
	return "0.1.0"
}

func (t *Toolset) Init(ctx mcp.ToolsetContext) error {
	if ctx.Profiles == nil {
		return errors.New("missing profile selector")
	}
	if ctx.Sessions == nil {
		return errors.New("missing session cache")
	}
	ctx.Logger = logging.OrDiscard(ctx.Logger)
	t.ctx = ctx
	return nil
}

func (t *Toolset) Register(reg mcp.Registry) error {
	tools := []mcp.ToolSpec{
		{
			Name:        "aws_dev_get_profile",
			Description: "Get the active AWS profile.",
			ToolsetID:   t.ID(),
			InputSchema: mcp.ObjectSchema(nil),
			OutputSchema: mcp.ObjectSchema(map[string]*jsonschema.Schema{
				"profile": mcp.StringProperty("Active profile name."),
			}, "profile"),
			Safety:  mcp.SafetyReadOnly,
			Offline: true,
			Handler: t.handleGetProfile,
		},
		{
			Name:        "aws_dev_change_profile",
			Description: "Switch the active AWS profile. The profile's credentials are checked before the switch.",
			ToolsetID:   t.ID(),
			InputSchema: mcp.ObjectSchema(map[string]*jsonschema.Schema{
				"profile_name": mcp.NonEmptyStringProperty("Shared-config profile to make active."),
			}, "profile_name"),
			Safety:  mcp.SafetyWrite,
			Offline: true,
			Handler: t.handleChangeProfile,
		},
		{
			Name:        "aws_dev_refresh_session",
			Description: "Drop the cached session and cached list results for a profile and build a fresh session.",
			ToolsetID:   t.ID(),
			InputSchema: mcp.ObjectSchema(map[string]*jsonschema.Schema{
				"profile_name": mcp.StringProperty("Profile to refresh. Defaults to the active profile."),
			}),
			Safety:  mcp.SafetyWrite,
			Offline: true,
			Handler: t.handleRefreshSession,
		},
	}
	for _, tool := range tools {
		if err := reg.Register(tool); err != nil {
			return fmt.Errorf("register %s: %w", tool.Name, err)
		}
	}
	return nil
}

func (t *Toolset) handleGetProfile(_ context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	return mcp.ToolResult{Data: map[string]any{"profile": t.ctx.Profiles.Current()}}, nil
}

func (t *Toolset) handleChangeProfile(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	name := strings.TrimSpace(toString(req.Arguments["profile_name"]))
	if name == "" {
		return mcp.ToolResult{}, mcp.NewInvalidInputError("profile_name is required")
	}
	if err := t.ctx.Policy.AuthorizeProfile(name); err != nil {
		return mcp.ToolResult{}, err
	}
	sess, err := t.ctx.Sessions.Get(ctx, name)
	if err != nil {
		return mcp.ToolResult{}, err
	}
	previous := t.ctx.Profiles.Set(name)
	t.ctx.Logger.Info("active profile changed", "from", previous, "to", name)
	return mcp.ToolResult{Data: map[string]any{
		"profile":  name,
		"previous": previous,
		"region":   sess.Region(),
	}}, nil
}

func (t *Toolset) handleRefreshSession(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	name := strings.TrimSpace(toString(req.Arguments["profile_name"]))
	if name == "" {
		name = req.Profile
	}
	if name == "" {
		name = t.ctx.Profiles.Current()
	}
	if err := t.ctx.Policy.AuthorizeProfile(name); err != nil {
		return mcp.ToolResult{}, err
	}
	t.ctx.Sessions.Invalidate(name)
	cleared := t.ctx.Cache.DeletePrefix(cache.ProfileScope(name))
	sess, err := t.ctx.Sessions.Get(ctx, name)
	if err != nil {
		return mcp.ToolResult{}, err
	}
	data := map[string]any{
		"profile":        name,
		"region":         sess.Region(),
		"clearedEntries": cleared,
	}
	if expires := sess.ExpiresAt(); !expires.IsZero() {
		data["expiresAt"] = expires.UTC().Format(time.RFC3339)
	}
	return mcp.ToolResult{Data: data}, nil
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
