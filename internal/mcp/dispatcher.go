package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"awsdev/internal/audit"
	awsinternal "awsdev/internal/aws"
	"awsdev/internal/logging"
)

// Request is one inbound tool call. An empty Profile selects the active
// default profile.
type Request struct {
	ToolName  string
	Profile   string
	Arguments map[string]any
}

// Dispatcher runs tool calls against the registry: lookup, input validation,
// profile policy, session resolution, the handler under its timeout, and
// output validation. Every outcome is an InvocationResult; nothing panics or
// escapes as a provider error type.
type Dispatcher struct {
	registry *ToolRegistry
	toolCtx  ToolContext
	now      func() time.Time
	newID    func() string
}

func NewDispatcher(reg *ToolRegistry, toolCtx ToolContext) *Dispatcher {
	if toolCtx.Registry == nil && reg != nil {
		toolCtx.Registry = reg
	}
	toolCtx.Logger = logging.OrDiscard(toolCtx.Logger)
	return &Dispatcher{
		registry: reg,
		toolCtx:  toolCtx,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (d *Dispatcher) Context() ToolContext { return d.toolCtx }

func (d *Dispatcher) Invoke(ctx context.Context, req Request) InvocationResult {
	started := d.now()
	inv := invocation{id: d.newID(), tool: req.ToolName}
	result := d.invoke(ctx, req, &inv)
	d.record(inv, result, d.now().Sub(started))
	return result
}

type invocation struct {
	id      string
	tool    string
	toolset string
	profile string
}

func (d *Dispatcher) invoke(ctx context.Context, req Request, inv *invocation) InvocationResult {
	if d.registry == nil {
		return Fail(Failure{Kind: KindInternal, Message: "tool registry not available"})
	}
	tool, err := d.registry.lookup(req.ToolName)
	if err != nil {
		return Fail(Classify(err))
	}
	spec := tool.spec
	inv.toolset = spec.ToolsetID

	args := req.Arguments
	if args == nil {
		args = map[string]any{}
	}
	if err := tool.input.Validate(args); err != nil {
		return Fail(Failure{Kind: KindInvalidInput, Message: fmt.Sprintf("invalid arguments for %s: %v", spec.Name, err)})
	}

	profile := d.resolveProfile(req.Profile)
	inv.profile = profile
	toolReq := ToolRequest{
		InvocationID: inv.id,
		Arguments:    args,
		Profile:      profile,
		Context:      d.toolCtx,
	}
	if !spec.Offline {
		if err := d.toolCtx.Policy.AuthorizeProfile(profile); err != nil {
			return Fail(d.failure(err))
		}
		if d.toolCtx.Sessions == nil {
			return Fail(Failure{Kind: KindInternal, Message: "session cache not available"})
		}
		sess, err := d.toolCtx.Sessions.Get(ctx, profile)
		if err != nil {
			return Fail(d.failure(err))
		}
		toolReq.Session = sess
	}

	execCtx, cancel := withToolTimeout(ctx, d.toolCtx.Config, spec)
	out, err := d.call(execCtx, spec, toolReq)
	cancel()
	if err != nil {
		return Fail(d.failure(err)).withMetadata(out.Metadata)
	}

	value, err := normalize(out.Data)
	if err != nil {
		d.toolCtx.Logger.Error("tool returned unencodable output", "tool", spec.Name, "invocationId", inv.id, "err", err)
		return Fail(Failure{Kind: KindInternal, Message: unencodableMessage})
	}
	if tool.output != nil {
		if err := tool.output.Validate(value); err != nil {
			d.toolCtx.Logger.Error("tool output failed schema validation", "tool", spec.Name, "invocationId", inv.id, "err", err)
			return Fail(Failure{Kind: KindInternal, Message: fmt.Sprintf("tool %s returned output that does not match its schema", spec.Name)})
		}
	}
	return Success(value).withMetadata(out.Metadata)
}

func (d *Dispatcher) resolveProfile(requested string) string {
	if profile := strings.TrimSpace(requested); profile != "" {
		return profile
	}
	if profile := d.toolCtx.Profiles.Current(); profile != "" {
		return profile
	}
	return awsinternal.DefaultProfile
}

// call runs the handler, turning a panic into an error.
func (d *Dispatcher) call(ctx context.Context, spec ToolSpec, req ToolRequest) (result ToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.toolCtx.Logger.Error("tool handler panicked", "tool", spec.Name, "invocationId", req.InvocationID, "panic", r, "stack", string(debug.Stack()))
			result = ToolResult{}
			err = &ToolError{Kind: KindInternal, Err: fmt.Errorf("tool %s failed unexpectedly", spec.Name)}
		}
	}()
	return spec.Handler(ctx, req)
}

func (d *Dispatcher) failure(err error) Failure {
	failure := Classify(err)
	failure.Message = d.toolCtx.Redactor.RedactString(failure.Message)
	return failure
}

// normalize converts a handler value to its JSON form so that output
// validation and encoding see the same data.
func normalize(data any) (any, error) {
	if data == nil {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return value, nil
}

func (d *Dispatcher) record(inv invocation, result InvocationResult, elapsed time.Duration) {
	event := audit.Event{
		Timestamp:    d.now().UTC(),
		InvocationID: inv.id,
		Tool:         inv.tool,
		Toolset:      inv.toolset,
		Profile:      inv.profile,
		Resources:    result.Metadata().Resources,
		Outcome:      "success",
		DurationMS:   elapsed.Milliseconds(),
	}
	attrs := []any{"invocationId", inv.id, "tool", inv.tool, "profile", inv.profile, "duration", elapsed}
	level := slog.LevelInfo
	if failure, ok := result.Failure(); ok {
		event.Outcome = "error"
		event.ErrorKind = string(failure.Kind)
		event.Error = failure.Message
		attrs = append(attrs, "errorKind", failure.Kind, "err", failure.Message)
		level = slog.LevelWarn
	}
	d.toolCtx.Audit.Log(event)
	d.toolCtx.Logger.Log(context.Background(), level, "tool call", attrs...)
}
