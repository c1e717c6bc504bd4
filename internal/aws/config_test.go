package aws

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeSharedFiles(t *testing.T, credentials, config string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "credentials"), []byte(credentials), 0600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config"), []byte(config), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	t.Setenv("AWS_SESSION_TOKEN", "")
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
}

func TestResolveRegion(t *testing.T) {
	t.Setenv("AWS_REGION", "us-west-2")
	if region := ResolveRegion(""); region != "us-west-2" {
		t.Fatalf("expected env region, got %q", region)
	}
	if region := ResolveRegion("eu-central-1"); region != "eu-central-1" {
		t.Fatalf("expected explicit region, got %q", region)
	}
}

func TestResolveProfile(t *testing.T) {
	t.Setenv("AWS_PROFILE", "dev")
	if profile := ResolveProfile(""); profile != "dev" {
		t.Fatalf("expected env profile, got %q", profile)
	}
	if profile := ResolveProfile("ops"); profile != "ops" {
		t.Fatalf("expected explicit profile, got %q", profile)
	}
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_DEFAULT_PROFILE", "")
	if profile := ResolveProfile(""); profile != DefaultProfile {
		t.Fatalf("expected default profile, got %q", profile)
	}
}

func TestLoadConfigDefaultRegion(t *testing.T) {
	writeSharedFiles(t, "[default]\naws_access_key_id = test\naws_secret_access_key = secret\n", "[default]\n")
	cfg, err := LoadConfig(context.Background(), "", "")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Region != defaultRegion {
		t.Fatalf("expected default region, got %q", cfg.Region)
	}
}

func TestLoadConfigProfileRegion(t *testing.T) {
	writeSharedFiles(t,
		"[dev]\naws_access_key_id = devkey\naws_secret_access_key = devsecret\n",
		"[profile dev]\nregion = eu-west-1\n",
	)
	cfg, err := LoadConfig(context.Background(), "dev", "")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Region != "eu-west-1" {
		t.Fatalf("expected profile region, got %q", cfg.Region)
	}
	cfg, err = LoadConfig(context.Background(), "dev", "ap-south-1")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Region != "ap-south-1" {
		t.Fatalf("expected explicit region, got %q", cfg.Region)
	}
}

func TestLoadSessionValidatesCredentials(t *testing.T) {
	writeSharedFiles(t,
		"[dev]\naws_access_key_id = devkey\naws_secret_access_key = devsecret\n",
		"[profile dev]\nregion = eu-west-1\n",
	)
	cfg, err := LoadSession(context.Background(), "dev", "", true)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	creds, err := cfg.Credentials.Retrieve(context.Background())
	if err != nil || creds.AccessKeyID != "devkey" {
		t.Fatalf("unexpected credentials: %#v %v", creds, err)
	}
}

func TestLoadSessionUnknownProfile(t *testing.T) {
	writeSharedFiles(t, "[default]\naws_access_key_id = test\naws_secret_access_key = secret\n", "[default]\n")
	if _, err := LoadSession(context.Background(), "missing", "", false); err == nil {
		t.Fatalf("expected error for unknown profile")
	}
}
