package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultSessionTTL       = time.Hour
	defaultConstructTimeout = 30
	defaultScriptImage      = "python:3.12-slim"
	defaultKnowledgeModelID = "eu.anthropic.claude-3-7-sonnet-20250219-v1:0"
)

type Config struct {
	DefaultProfile     string              `toml:"default_profile"`
	Region             string              `toml:"region"`
	Toolsets           []string            `toml:"toolsets"`
	ReadOnly           bool                `toml:"read_only"`
	DisableDestructive bool                `toml:"disable_destructive"`
	LogLevel           string              `toml:"log_level"`
	LogFormat          string              `toml:"log_format"`
	Safety             SafetyConfig        `toml:"safety"`
	Session            SessionConfig       `toml:"session"`
	Timeouts           TimeoutConfig       `toml:"timeouts"`
	Cache              CacheConfig         `toml:"cache"`
	KnowledgeBases     KnowledgeBaseConfig `toml:"knowledge_bases"`
	DynamoDB           DynamoDBConfig      `toml:"dynamodb"`
	Script             ScriptConfig        `toml:"script"`
}

type SafetyConfig struct {
	AllowDestructiveTools []string `toml:"allow_destructive_tools"`
}

// SessionConfig controls the per-profile session cache. TTLSeconds is a
// pointer so that an explicit zero (never cache) survives merging.
type SessionConfig struct {
	TTLSeconds              *int     `toml:"ttl_seconds"`
	AllowedProfiles         []string `toml:"allowed_profiles"`
	ConstructTimeoutSeconds int      `toml:"construct_timeout_seconds"`
	SkipCredentialCheck     bool     `toml:"skip_credential_check"`
}

type TimeoutConfig struct {
	DefaultSeconds int            `toml:"default_seconds"`
	MaxSeconds     int            `toml:"max_seconds"`
	PerTool        map[string]int `toml:"per_tool"`
}

type CacheConfig struct {
	ListTTLSeconds int `toml:"list_ttl_seconds"`
}

type KnowledgeBaseConfig struct {
	Entries  []string `toml:"entries"`
	ModelID  string   `toml:"model_id"`
	ModelARN string   `toml:"model_arn"`
}

// MaxScanPageSize is the largest Limit DynamoDB accepts on a single Scan page.
const MaxScanPageSize = 1000

type DynamoDBConfig struct {
	SampleRecords int `toml:"sample_records"`
	PageSize      int `toml:"page_size"`
	// MaxRecords caps num_records for a single schema sample.
	MaxRecords int `toml:"max_records"`
}

type ScriptConfig struct {
	Enabled        bool   `toml:"enabled"`
	Image          string `toml:"image"`
	WorkRoot       string `toml:"work_root"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type Overrides struct {
	DefaultProfile     *string
	Region             *string
	Toolsets           *[]string
	ReadOnly           *bool
	DisableDestructive *bool
	LogLevel           *string
	SessionTTLSeconds  *int
}

func DefaultConfig() Config {
	ttl := int(DefaultSessionTTL / time.Second)
	return Config{
		Toolsets:  []string{"profile", "aws", "script"},
		LogLevel:  "info",
		LogFormat: "text",
		Session: SessionConfig{
			TTLSeconds:              &ttl,
			ConstructTimeoutSeconds: defaultConstructTimeout,
		},
		Timeouts: TimeoutConfig{DefaultSeconds: 60, MaxSeconds: 300},
		Cache:    CacheConfig{ListTTLSeconds: 30},
		KnowledgeBases: KnowledgeBaseConfig{
			ModelID: defaultKnowledgeModelID,
		},
		DynamoDB: DynamoDBConfig{SampleRecords: 1000, PageSize: 100, MaxRecords: 1000},
		Script: ScriptConfig{
			Image:          defaultScriptImage,
			TimeoutSeconds: 120,
		},
	}
}

func Load(path string, dir string, overrides Overrides) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			return cfg, err
		}
		merge(&cfg, fileCfg)
	}

	if dir != "" {
		files, err := dropInFiles(dir)
		if err != nil {
			return cfg, err
		}
		for _, file := range files {
			fileCfg, err := readFile(file)
			if err != nil {
				return cfg, err
			}
			merge(&cfg, fileCfg)
		}
	}

	applyOverrides(&cfg, overrides)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SessionTTL returns the configured cache lifetime; zero disables reuse.
func (c Config) SessionTTL() time.Duration {
	if c.Session.TTLSeconds == nil {
		return DefaultSessionTTL
	}
	return time.Duration(*c.Session.TTLSeconds) * time.Second
}

func (c Config) Validate() error {
	if c.Session.TTLSeconds != nil && *c.Session.TTLSeconds < 0 {
		return fmt.Errorf("session.ttl_seconds must not be negative, got %d", *c.Session.TTLSeconds)
	}
	if c.Session.ConstructTimeoutSeconds < 0 {
		return fmt.Errorf("session.construct_timeout_seconds must not be negative")
	}
	if c.Cache.ListTTLSeconds < 0 {
		return fmt.Errorf("cache.list_ttl_seconds must not be negative")
	}
	if c.DynamoDB.SampleRecords < 0 || c.DynamoDB.MaxRecords < 0 {
		return fmt.Errorf("dynamodb.sample_records and dynamodb.max_records must not be negative")
	}
	if c.DynamoDB.PageSize < 0 || c.DynamoDB.PageSize > MaxScanPageSize {
		return fmt.Errorf("dynamodb.page_size must be between 0 and %d, got %d", MaxScanPageSize, c.DynamoDB.PageSize)
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}

func readFile(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err != nil {
		return cfg, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

func dropInFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func merge(dst *Config, src Config) {
	if src.DefaultProfile != "" {
		dst.DefaultProfile = src.DefaultProfile
	}
	if src.Region != "" {
		dst.Region = src.Region
	}
	if len(src.Toolsets) > 0 {
		dst.Toolsets = append([]string{}, src.Toolsets...)
	}
	if src.ReadOnly {
		dst.ReadOnly = src.ReadOnly
	}
	if src.DisableDestructive {
		dst.DisableDestructive = src.DisableDestructive
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.LogFormat != "" {
		dst.LogFormat = src.LogFormat
	}
	if len(src.Safety.AllowDestructiveTools) > 0 {
		dst.Safety.AllowDestructiveTools = append([]string{}, src.Safety.AllowDestructiveTools...)
	}
	mergeSession(&dst.Session, src.Session)
	mergeTimeouts(&dst.Timeouts, src.Timeouts)
	if src.Cache.ListTTLSeconds != 0 {
		dst.Cache.ListTTLSeconds = src.Cache.ListTTLSeconds
	}
	if len(src.KnowledgeBases.Entries) > 0 {
		dst.KnowledgeBases.Entries = append([]string{}, src.KnowledgeBases.Entries...)
	}
	if src.KnowledgeBases.ModelID != "" {
		dst.KnowledgeBases.ModelID = src.KnowledgeBases.ModelID
	}
	if src.KnowledgeBases.ModelARN != "" {
		dst.KnowledgeBases.ModelARN = src.KnowledgeBases.ModelARN
	}
	if src.DynamoDB.SampleRecords > 0 {
		dst.DynamoDB.SampleRecords = src.DynamoDB.SampleRecords
	}
	if src.DynamoDB.PageSize > 0 {
		dst.DynamoDB.PageSize = src.DynamoDB.PageSize
	}
	if src.DynamoDB.MaxRecords > 0 {
		dst.DynamoDB.MaxRecords = src.DynamoDB.MaxRecords
	}
	if src.Script.Enabled {
		dst.Script.Enabled = src.Script.Enabled
	}
	if src.Script.Image != "" {
		dst.Script.Image = src.Script.Image
	}
	if src.Script.WorkRoot != "" {
		dst.Script.WorkRoot = src.Script.WorkRoot
	}
	if src.Script.TimeoutSeconds > 0 {
		dst.Script.TimeoutSeconds = src.Script.TimeoutSeconds
	}
}

func mergeSession(dst *SessionConfig, src SessionConfig) {
	if src.TTLSeconds != nil {
		ttl := *src.TTLSeconds
		dst.TTLSeconds = &ttl
	}
	if len(src.AllowedProfiles) > 0 {
		dst.AllowedProfiles = append([]string{}, src.AllowedProfiles...)
	}
	if src.ConstructTimeoutSeconds > 0 {
		dst.ConstructTimeoutSeconds = src.ConstructTimeoutSeconds
	}
	if src.SkipCredentialCheck {
		dst.SkipCredentialCheck = src.SkipCredentialCheck
	}
}

func mergeTimeouts(dst *TimeoutConfig, src TimeoutConfig) {
	if src.DefaultSeconds > 0 {
		dst.DefaultSeconds = src.DefaultSeconds
	}
	if src.MaxSeconds > 0 {
		dst.MaxSeconds = src.MaxSeconds
	}
	if len(src.PerTool) > 0 {
		if dst.PerTool == nil {
			dst.PerTool = map[string]int{}
		}
		for name, seconds := range src.PerTool {
			dst.PerTool[name] = seconds
		}
	}
}

func applyOverrides(cfg *Config, overrides Overrides) {
	if overrides.DefaultProfile != nil {
		cfg.DefaultProfile = *overrides.DefaultProfile
	}
	if overrides.Region != nil {
		cfg.Region = *overrides.Region
	}
	if overrides.Toolsets != nil {
		cfg.Toolsets = append([]string{}, (*overrides.Toolsets)...)
	}
	if overrides.ReadOnly != nil {
		cfg.ReadOnly = *overrides.ReadOnly
	}
	if overrides.DisableDestructive != nil {
		cfg.DisableDestructive = *overrides.DisableDestructive
	}
	if overrides.LogLevel != nil {
		cfg.LogLevel = *overrides.LogLevel
	}
	if overrides.SessionTTLSeconds != nil {
		ttl := *overrides.SessionTTLSeconds
		cfg.Session.TTLSeconds = &ttl
	}
}
