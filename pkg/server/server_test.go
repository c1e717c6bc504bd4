package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	sdkjsonrpc "github.com/modelcontextprotocol/go-sdk/jsonrpc"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"awsdev/internal/cache"
	"awsdev/internal/config"
	"awsdev/internal/mcp"

	_ "awsdev/toolsets/aws"
	_ "awsdev/toolsets/profile"
)

func fakeFactory(ctx context.Context, profile string) (sdkaws.Config, error) {
	if profile == "broken" {
		return sdkaws.Config{}, errors.New("no credentials")
	}
	return sdkaws.Config{Region: "eu-west-1"}, nil
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewRuntimeMinimalConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Toolsets = []string{}

	rt, err := NewRuntime(cfg, io.Discard, fakeFactory)
	if err != nil {
		t.Fatalf("NewRuntime failed: %v", err)
	}
	if rt.Sessions == nil || rt.Dispatcher == nil {
		t.Fatalf("expected wired runtime")
	}
	if len(rt.Registry.Names()) != 0 {
		t.Fatalf("expected no tools registered")
	}
}

func TestNewRuntimeDefaultProfile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DefaultProfile = "dev"
	cfg.Toolsets = []string{"profile"}
	rt, err := NewRuntime(cfg, io.Discard, fakeFactory)
	if err != nil {
		t.Fatalf("NewRuntime failed: %v", err)
	}
	if got := rt.Profiles.Current(); got != "dev" {
		t.Fatalf("active profile = %s", got)
	}
	result := rt.Dispatcher.Invoke(context.Background(), mcp.Request{ToolName: "aws_dev_get_profile"})
	if !result.IsSuccess() || result.Value().(map[string]any)["profile"] != "dev" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestNewRuntimeAllowedProfiles(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Toolsets = []string{"aws"}
	cfg.Session.AllowedProfiles = []string{"dev"}
	rt, err := NewRuntime(cfg, io.Discard, fakeFactory)
	if err != nil {
		t.Fatalf("NewRuntime failed: %v", err)
	}
	result := rt.Dispatcher.Invoke(context.Background(), mcp.Request{ToolName: "aws_dev_list_ec2_instances", Profile: "prod"})
	failure, ok := result.Failure()
	if !ok || failure.Kind != mcp.KindAuthFailure {
		t.Fatalf("expected auth failure, got %#v", result)
	}
}

func TestNewRuntimeUnknownToolset(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Toolsets = []string{"missing"}
	if _, err := NewRuntime(cfg, io.Discard, fakeFactory); !errors.Is(err, mcp.ErrUnknownToolset) {
		t.Fatalf("expected unknown toolset error, got %v", err)
	}
}

func TestRuntimeFlush(t *testing.T) {
	cfg := config.DefaultConfig()
	zero := 0
	cfg.Session.TTLSeconds = &zero
	cfg.Toolsets = []string{}
	rt, err := NewRuntime(cfg, io.Discard, fakeFactory)
	if err != nil {
		t.Fatalf("NewRuntime failed: %v", err)
	}
	if _, err := rt.Sessions.Get(context.Background(), "dev"); err != nil {
		t.Fatalf("session: %v", err)
	}
	rt.Cache.Set(cache.ProfileScope("dev")+"awslist:x", 1, time.Minute)
	sessions, results := rt.Flush()
	if sessions != 1 || results != 1 {
		t.Fatalf("flush = %d sessions, %d results", sessions, results)
	}
	if rt.Cache.Len() != 0 || len(rt.Sessions.Profiles()) != 0 {
		t.Fatalf("caches not empty after flush")
	}
}

func TestToolsListsWithoutAWS(t *testing.T) {
	infos, err := Tools(Options{ConfigPath: writeConfig(t, `toolsets = ["profile", "aws"]`), Stderr: io.Discard})
	if err != nil {
		t.Fatalf("tools: %v", err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
		if _, ok := info.InputSchema.Properties[mcp.ProfileArgument]; !ok {
			t.Fatalf("%s does not advertise the profile argument", info.Name)
		}
	}
	for _, want := range []string{"aws_dev_get_profile", "aws_dev_change_profile", "aws_dev_get_caller_identity", "aws_dev_assume_role"} {
		if !slices.Contains(names, want) {
			t.Fatalf("missing %s in %v", want, names)
		}
	}
	if slices.Contains(names, "aws_dev_run_script") {
		t.Fatalf("script tool listed while disabled")
	}
}

func TestToolsReadOnly(t *testing.T) {
	infos, err := Tools(Options{ConfigPath: writeConfig(t, `toolsets = ["profile", "aws"]`), ReadOnly: true, Stderr: io.Discard})
	if err != nil {
		t.Fatalf("tools: %v", err)
	}
	for _, info := range infos {
		if info.Safety != mcp.SafetyReadOnly {
			t.Fatalf("%s (%s) listed in read-only mode", info.Name, info.Safety)
		}
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	ttl := 0
	cfg, err := LoadConfig(Options{
		ConfigPath:         writeConfig(t, "default_profile = \"file\"\nregion = \"ap-south-1\"\n"),
		Profile:            "flag",
		Toolsets:           []string{"profile"},
		DisableDestructive: true,
		LogLevel:           "debug",
		SessionTTLSeconds:  &ttl,
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultProfile != "flag" || cfg.Region != "ap-south-1" {
		t.Fatalf("unexpected profile/region: %s %s", cfg.DefaultProfile, cfg.Region)
	}
	if !cfg.DisableDestructive || cfg.LogLevel != "debug" || cfg.SessionTTL() != 0 {
		t.Fatalf("overrides not applied: %#v", cfg)
	}
	if len(cfg.Toolsets) != 1 || cfg.Toolsets[0] != "profile" {
		t.Fatalf("toolsets = %v", cfg.Toolsets)
	}
}

func TestRunConfigLoadError(t *testing.T) {
	t.Setenv(envConfig, "")
	err := Run(context.Background(), Options{
		ConfigPath: filepath.Join(t.TempDir(), "missing.toml"),
		Version:    "test",
		Stderr:     io.Discard,
		Transport:  fakeTransport{},
	})
	if err == nil {
		t.Fatalf("expected error for config load failure")
	}
}

func TestRunUsesEnvConfig(t *testing.T) {
	t.Setenv(envConfig, writeConfig(t, `toolsets = ["profile"]`))
	err := Run(context.Background(), Options{
		Version:        "test",
		Stderr:         io.Discard,
		Transport:      fakeTransport{},
		SessionFactory: fakeFactory,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunTransportError(t *testing.T) {
	err := Run(context.Background(), Options{
		ConfigPath:     writeConfig(t, `toolsets = ["profile"]`),
		Version:        "test",
		Stderr:         io.Discard,
		Transport:      errorTransport{},
		SessionFactory: fakeFactory,
	})
	if err == nil {
		t.Fatalf("expected server error")
	}
}

func TestRunInitError(t *testing.T) {
	err := Run(context.Background(), Options{
		ConfigPath: writeConfig(t, `toolsets = ["missing"]`),
		Version:    "test",
		Stderr:     io.Discard,
		Transport:  fakeTransport{},
	})
	if err == nil {
		t.Fatalf("expected init error")
	}
}

func TestRunWithInMemoryTransport(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()

	runErr := make(chan error, 1)
	go func() {
		runErr <- Run(ctx, Options{
			ConfigPath:     writeConfig(t, `toolsets = ["profile"]`),
			Version:        "test",
			Stderr:         io.Discard,
			Transport:      serverTransport,
			SessionFactory: fakeFactory,
		})
	}()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	tools, err := cs.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(tools.Tools) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(tools.Tools))
	}

	res, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "aws_dev_change_profile",
		Arguments: map[string]any{"profile_name": "broken"},
	})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	envelope := decodeEnvelope(t, res)
	if !res.IsError || envelope["errorKind"] != string(mcp.KindAuthFailure) {
		t.Fatalf("expected auth failure envelope, got %#v", envelope)
	}

	res, err = cs.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "aws_dev_change_profile",
		Arguments: map[string]any{"profile_name": "dev"},
	})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	envelope = decodeEnvelope(t, res)
	if res.IsError || envelope["status"] != "success" {
		t.Fatalf("expected success, got %#v", envelope)
	}
	result := envelope["result"].(map[string]any)
	if result["profile"] != "dev" || result["region"] != "eu-west-1" {
		t.Fatalf("unexpected result: %#v", result)
	}

	_ = cs.Close()
	cancel()
	select {
	case <-runErr:
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not stop")
	}
}

func decodeEnvelope(t *testing.T, res *sdkmcp.CallToolResult) map[string]any {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content block, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	var envelope map[string]any
	if err := json.Unmarshal([]byte(text.Text), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return envelope
}

type errorToolset struct {
	id string
}

func (t errorToolset) ID() string {
	return t.id
}

func (t errorToolset) Version() string {
	return "0.0.0"
}

func (t errorToolset) Init(mcp.ToolsetContext) error {
	return fmt.Errorf("init error")
}

func (t errorToolset) Register(mcp.Registry) error {
	return nil
}

type registerErrorToolset struct {
	id string
}

func (t registerErrorToolset) ID() string {
	return t.id
}

func (t registerErrorToolset) Version() string {
	return "0.0.0"
}

func (t registerErrorToolset) Init(mcp.ToolsetContext) error {
	return nil
}

func (t registerErrorToolset) Register(mcp.Registry) error {
	return fmt.Errorf("register error")
}

func TestNewRuntimeToolsetInitError(t *testing.T) {
	id := fmt.Sprintf("test-init-%d", time.Now().UnixNano())
	if err := mcp.RegisterToolset(id, func() mcp.Toolset { return errorToolset{id: id} }); err != nil {
		t.Fatalf("register toolset: %v", err)
	}
	cfg := config.DefaultConfig()
	cfg.Toolsets = []string{id}
	if _, err := NewRuntime(cfg, io.Discard, fakeFactory); err == nil {
		t.Fatalf("expected init error")
	}
}

func TestNewRuntimeToolsetRegisterError(t *testing.T) {
	id := fmt.Sprintf("test-register-%d", time.Now().UnixNano())
	if err := mcp.RegisterToolset(id, func() mcp.Toolset { return registerErrorToolset{id: id} }); err != nil {
		t.Fatalf("register toolset: %v", err)
	}
	cfg := config.DefaultConfig()
	cfg.Toolsets = []string{id}
	if _, err := NewRuntime(cfg, io.Discard, fakeFactory); err == nil {
		t.Fatalf("expected register error")
	}
}

type fakeTransport struct{}

func (fakeTransport) Connect(context.Context) (sdkmcp.Connection, error) {
	return &fakeConn{}, nil
}

type fakeConn struct{}

func (c *fakeConn) Read(context.Context) (sdkjsonrpc.Message, error) {
	return nil, io.EOF
}

func (c *fakeConn) Write(context.Context, sdkjsonrpc.Message) error {
	return nil
}

func (c *fakeConn) Close() error {
	return nil
}

func (c *fakeConn) SessionID() string {
	return "test"
}

type errorTransport struct{}

func (errorTransport) Connect(context.Context) (sdkmcp.Connection, error) {
	return nil, fmt.Errorf("connect error")
}
