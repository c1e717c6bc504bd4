package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"awsdev/internal/audit"
	awsinternal "awsdev/internal/aws"
	"awsdev/internal/cache"
	"awsdev/internal/config"
	"awsdev/internal/logging"
	"awsdev/internal/mcp"
	"awsdev/internal/policy"
	"awsdev/internal/redact"
	"awsdev/internal/session"
)

const (
	envConfig    = "AWSDEV_CONFIG"
	envConfigDir = "AWSDEV_CONFIG_DIR"
)

type Options struct {
	ConfigPath         string
	ConfigDir          string
	Profile            string
	Region             string
	Toolsets           []string
	ReadOnly           bool
	DisableDestructive bool
	LogLevel           string
	// SessionTTLSeconds overrides session.ttl_seconds when set.
	SessionTTLSeconds *int
	Version           string
	Stderr            io.Writer
	// Transport defaults to stdio.
	Transport sdkmcp.Transport
	// SessionFactory replaces the shared-config loader, mainly for tests.
	SessionFactory session.Factory
}

// Runtime is the wired tool-invocation core shared by the server and the CLI.
type Runtime struct {
	Config     config.Config
	Logger     *slog.Logger
	Sessions   *session.Cache
	Profiles   *session.ProfileSelector
	Cache      *cache.Store
	Registry   *mcp.ToolRegistry
	Dispatcher *mcp.Dispatcher
	Codec      *mcp.ResultCodec
}

func Run(ctx context.Context, opts Options) error {
	errOut := stderr(opts)
	cfg, err := LoadConfig(opts)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	rt, err := NewRuntime(cfg, errOut, opts.SessionFactory)
	if err != nil {
		return fmt.Errorf("init failed: %w", err)
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "awsdev", Version: opts.Version}, nil)
	toolNames, err := mcp.RegisterSDKTools(server, rt.Dispatcher, rt.Codec)
	if err != nil {
		return fmt.Errorf("tool registration failed: %w", err)
	}
	rt.Logger.Info("serving tools", "count", len(toolNames), "profile", rt.Profiles.Current(), "version", opts.Version)

	stopFlush := rt.flushOnSignal()
	defer stopFlush()

	transport := opts.Transport
	if transport == nil {
		transport = &sdkmcp.StdioTransport{}
	}
	if err := server.Run(ctx, transport); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Tools lists the advertised tools without contacting AWS.
func Tools(opts Options) ([]mcp.ToolInfo, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	factory := func(context.Context, string) (sdkaws.Config, error) {
		return sdkaws.Config{}, fmt.Errorf("sessions are not available while listing tools")
	}
	rt, err := NewRuntime(cfg, stderr(opts), factory)
	if err != nil {
		return nil, fmt.Errorf("init failed: %w", err)
	}
	rt.Registry.Seal()
	return rt.Registry.Infos(), nil
}

// LoadConfig layers the config file, drop-in directory and option overrides.
func LoadConfig(opts Options) (config.Config, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = os.Getenv(envConfig)
	}
	configDir := opts.ConfigDir
	if configDir == "" {
		configDir = os.Getenv(envConfigDir)
	}
	overrides := config.Overrides{SessionTTLSeconds: opts.SessionTTLSeconds}
	if opts.Profile != "" {
		overrides.DefaultProfile = &opts.Profile
	}
	if opts.Region != "" {
		overrides.Region = &opts.Region
	}
	if len(opts.Toolsets) > 0 {
		overrides.Toolsets = &opts.Toolsets
	}
	if opts.ReadOnly {
		overrides.ReadOnly = &opts.ReadOnly
	}
	if opts.DisableDestructive {
		overrides.DisableDestructive = &opts.DisableDestructive
	}
	if opts.LogLevel != "" {
		overrides.LogLevel = &opts.LogLevel
	}
	return config.Load(configPath, configDir, overrides)
}

// NewRuntime wires config, logging, the session cache, policy, the tool
// registry and the configured toolsets. A nil factory loads sessions from
// the shared AWS config.
func NewRuntime(cfg config.Config, errOut io.Writer, factory session.Factory) (*Runtime, error) {
	logger := logging.New(errOut, cfg.LogLevel, cfg.LogFormat)
	if factory == nil {
		validate := !cfg.Session.SkipCredentialCheck
		factory = func(ctx context.Context, profile string) (sdkaws.Config, error) {
			return awsinternal.LoadSession(ctx, profile, cfg.Region, validate)
		}
	}
	sessions := session.NewCache(factory, session.Options{
		TTL:              cfg.SessionTTL(),
		ConstructTimeout: time.Duration(cfg.Session.ConstructTimeoutSeconds) * time.Second,
		Logger:           logger,
	})
	profiles := session.NewProfileSelector(awsinternal.ResolveProfile(cfg.DefaultProfile))
	store := cache.NewStore()
	reg := mcp.NewRegistry(&cfg)

	toolCtx := mcp.ToolContext{
		Config:   &cfg,
		Sessions: sessions,
		Profiles: profiles,
		Policy:   policy.NewAuthorizer(cfg.Session.AllowedProfiles...),
		Redactor: redact.New(),
		Audit:    audit.NewLogger(errOut),
		Cache:    store,
		Logger:   logger,
		Registry: reg,
	}

	toolsets, err := mcp.BuildToolsets(cfg.Toolsets)
	if err != nil {
		return nil, err
	}
	for _, toolset := range toolsets {
		if err := toolset.Init(toolCtx); err != nil {
			return nil, fmt.Errorf("toolset %s: %w", toolset.ID(), err)
		}
		if err := toolset.Register(reg); err != nil {
			return nil, fmt.Errorf("toolset %s: %w", toolset.ID(), err)
		}
		logger.Debug("toolset registered", "toolset", toolset.ID(), "version", toolset.Version())
	}

	return &Runtime{
		Config:     cfg,
		Logger:     logger,
		Sessions:   sessions,
		Profiles:   profiles,
		Cache:      store,
		Registry:   reg,
		Dispatcher: mcp.NewDispatcher(reg, toolCtx),
		Codec:      mcp.NewResultCodec(logger),
	}, nil
}

// Flush drops expired sessions and every cached result.
func (rt *Runtime) Flush() (sessions int, results int) {
	sessions = rt.Sessions.Purge()
	results = rt.Cache.DeletePrefix("")
	rt.Logger.Info("caches flushed", "sessions", sessions, "results", results)
	return sessions, results
}

// flushOnSignal calls Flush on each reload signal until the returned func runs.
func (rt *Runtime) flushOnSignal() func() {
	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})
	if !notifyReload(sigCh) {
		return func() {}
	}
	go func() {
		for {
			select {
			case <-sigCh:
				rt.Flush()
			case <-done:
				return
			}
		}
	}()
	return func() {
		stopReload(sigCh)
		close(done)
	}
}

func stderr(opts Options) io.Writer {
	if opts.Stderr != nil {
		return opts.Stderr
	}
	return os.Stderr
}
