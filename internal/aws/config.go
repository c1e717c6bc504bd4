package aws

import (
	"context"
	"fmt"
	"os"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	sdkconfig "github.com/aws/aws-sdk-go-v2/config"
)

const (
	defaultRegion  = "us-east-1"
	DefaultProfile = "default"
)

func ResolveRegion(region string) string {
	region = strings.TrimSpace(region)
	if region == "" {
		region = strings.TrimSpace(os.Getenv("AWS_REGION"))
	}
	if region == "" {
		region = strings.TrimSpace(os.Getenv("AWS_DEFAULT_REGION"))
	}
	return region
}

// ResolveProfile picks the startup default profile: explicit value, then the
// AWS_PROFILE/AWS_DEFAULT_PROFILE env vars, then "default".
func ResolveProfile(profile string) string {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = strings.TrimSpace(os.Getenv("AWS_PROFILE"))
	}
	if profile == "" {
		profile = strings.TrimSpace(os.Getenv("AWS_DEFAULT_PROFILE"))
	}
	if profile == "" {
		profile = DefaultProfile
	}
	return profile
}

// LoadConfig builds an SDK config for the named shared-config profile.
func LoadConfig(ctx context.Context, profile, region string, extra ...func(*sdkconfig.LoadOptions) error) (sdkaws.Config, error) {
	loadOpts := []func(*sdkconfig.LoadOptions) error{}
	if profile = strings.TrimSpace(profile); profile != "" {
		loadOpts = append(loadOpts, sdkconfig.WithSharedConfigProfile(profile))
	}
	if region = ResolveRegion(region); region != "" {
		loadOpts = append(loadOpts, sdkconfig.WithRegion(region))
	}
	loadOpts = append(loadOpts, extra...)
	cfg, err := sdkconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return cfg, err
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = defaultRegion
	}
	return cfg, nil
}

// LoadSession loads the profile config and, when validate is set, retrieves
// credentials once so that a broken profile fails here rather than on the
// first AWS call.
func LoadSession(ctx context.Context, profile, region string, validate bool, extra ...func(*sdkconfig.LoadOptions) error) (sdkaws.Config, error) {
	cfg, err := LoadConfig(ctx, profile, region, extra...)
	if err != nil {
		return cfg, fmt.Errorf("load profile %q: %w", profile, err)
	}
	if !validate {
		return cfg, nil
	}
	if cfg.Credentials == nil {
		return cfg, fmt.Errorf("profile %q has no credentials provider", profile)
	}
	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return cfg, fmt.Errorf("retrieve credentials for profile %q: %w", profile, err)
	}
	return cfg, nil
}
