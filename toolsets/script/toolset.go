// Package script runs caller supplied Python scripts in a container with the
// profile's credentials.
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/google/jsonschema-go/jsonschema"

	"awsdev/internal/logging"
	"awsdev/internal/mcp"
	"awsdev/internal/sandbox"
	awssts "awsdev/toolsets/aws/sts"
)

// credentialEnv are set from the session and cannot be overridden by the caller.
var credentialEnv = []string{
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"AWS_SESSION_TOKEN",
	"AWS_REGION",
	"AWS_DEFAULT_REGION",
	"AWS_ACCOUNT_ID",
}

type Toolset struct {
	ctx       mcp.ToolsetContext
	runner    sandbox.Runner
	newRunner func(image string, logger *slog.Logger) (sandbox.Runner, error)
}

func New() *Toolset {
	return &Toolset{newRunner: func(image string, logger *slog.Logger) (sandbox.Runner, error) {
		return sandbox.NewDockerRunner(image, logger)
	}}
}

// NewWithRunner uses runner instead of a Docker daemon.
func NewWithRunner(runner sandbox.Runner) *Toolset {
	return &Toolset{runner: runner}
}

func init() {
	mcp.MustRegisterToolset("script", func() mcp.Toolset {
		return New()
	})
}

func (t *Toolset) ID() string {
	return "script"
}

func (t *Toolset) Version() string {
	return "0.1.0"
}

func (t *Toolset) Init(ctx mcp.ToolsetContext) error {
	ctx.Logger = logging.OrDiscard(ctx.Logger)
	t.ctx = ctx
	if !t.enabled() || t.runner != nil {
		return nil
	}
	runner, err := t.newRunner(ctx.Config.Script.Image, ctx.Logger)
	if err != nil {
		return fmt.Errorf("script sandbox: %w", err)
	}
	t.runner = runner
	return nil
}

func (t *Toolset) enabled() bool {
	return t.ctx.Config != nil && t.ctx.Config.Script.Enabled
}

// Register adds aws_dev_run_script only when scripts are enabled in config.
func (t *Toolset) Register(reg mcp.Registry) error {
	if !t.enabled() {
		t.ctx.Logger.Debug("script toolset disabled")
		return nil
	}
	return reg.Register(mcp.ToolSpec{
		Name:        "aws_dev_run_script",
		Description: "Run a Python script in an isolated container with the profile's AWS credentials. The script can only see its own work directory.",
		ToolsetID:   t.ID(),
		InputSchema: mcp.ObjectSchema(map[string]*jsonschema.Schema{
			"script": mcp.NonEmptyStringProperty("Python source to execute."),
			"env":    mcp.StringMapProperty("Extra environment variables for the script."),
		}, "script"),
		OutputSchema: mcp.ObjectSchema(map[string]*jsonschema.Schema{
			"stdout":   mcp.StringProperty("Standard output."),
			"stderr":   mcp.StringProperty("Standard error."),
			"exitCode": {Type: "integer"},
		}, "stdout", "stderr", "exitCode"),
		Safety:  mcp.SafetyRiskyWrite,
		Handler: t.handleRunScript,
	})
}

func (t *Toolset) handleRunScript(ctx context.Context, req mcp.ToolRequest) (mcp.ToolResult, error) {
	script, _ := req.Arguments["script"].(string)
	if strings.TrimSpace(script) == "" {
		return mcp.ToolResult{}, mcp.NewInvalidInputError("script is required")
	}
	if req.Session == nil {
		return mcp.ToolResult{}, errors.New("no session for script execution")
	}
	cfg := req.Session.Config()
	if cfg.Credentials == nil {
		return mcp.ToolResult{}, &mcp.ToolError{Kind: mcp.KindAuthFailure, Err: fmt.Errorf("profile %s has no credentials", req.Profile)}
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return mcp.ToolResult{}, &mcp.ToolError{Kind: mcp.KindAuthFailure, Err: fmt.Errorf("retrieve credentials: %w", err)}
	}

	env := map[string]string{}
	for key, value := range toStringMap(req.Arguments["env"]) {
		env[key] = value
	}
	for _, key := range credentialEnv {
		delete(env, key)
	}
	env["AWS_ACCESS_KEY_ID"] = creds.AccessKeyID
	env["AWS_SECRET_ACCESS_KEY"] = creds.SecretAccessKey
	if creds.SessionToken != "" {
		env["AWS_SESSION_TOKEN"] = creds.SessionToken
	}
	if cfg.Region != "" {
		env["AWS_REGION"] = cfg.Region
		env["AWS_DEFAULT_REGION"] = cfg.Region
	}
	account := creds.AccountID
	if account == "" {
		account, err = awssts.AccountID(ctx, sts.NewFromConfig(cfg))
		if err != nil {
			t.ctx.Logger.Warn("resolve account id for script", "profile", req.Profile, "err", err)
		}
	}
	if account != "" {
		env["AWS_ACCOUNT_ID"] = account
	}

	workDir, cleanup, err := sandbox.PrepareWorkDir(t.ctx.Config.Script.WorkRoot)
	if err != nil {
		return mcp.ToolResult{}, fmt.Errorf("prepare work directory: %w", err)
	}
	defer cleanup()

	if seconds := t.ctx.Config.Script.TimeoutSeconds; seconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
		defer cancel()
	}
	out, err := t.runner.Run(ctx, sandbox.Job{Script: script, Env: env, WorkDir: workDir})
	if err != nil {
		if errors.Is(err, sandbox.ErrImageMissing) {
			return mcp.ToolResult{}, &mcp.ToolError{Kind: mcp.KindInternal, Err: err}
		}
		return mcp.ToolResult{}, err
	}

	redactor := t.ctx.Redactor.WithValues(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken)
	return mcp.ToolResult{Data: map[string]any{
		"stdout":   redactor.RedactString(out.Stdout),
		"stderr":   redactor.RedactString(out.Stderr),
		"exitCode": out.ExitCode,
	}}, nil
}

func toStringMap(value any) map[string]string {
	out := map[string]string{}
	switch typed := value.(type) {
	case map[string]string:
		for key, val := range typed {
			out[key] = val
		}
	case map[string]any:
		for key, val := range typed {
			if s, ok := val.(string); ok {
				out[key] = s
			}
		}
	}
	return out
}
