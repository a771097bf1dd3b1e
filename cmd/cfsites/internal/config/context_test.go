package config_test

import (
	"context"
	"testing"

	"github.com/advdv/cfsites/cmd/cfsites/internal/config"
)

func TestContext(t *testing.T) {
	t.Parallel()

	t.Run("WithContext and FromContext", func(t *testing.T) {
		t.Parallel()
		cfg := config.Config{
			Inner:      config.Default("mysites", "us-east-1"),
			ProjectDir: "/test/dir",
		}

		ctx := config.WithContext(context.Background(), cfg)
		got, ok := config.FromContext(ctx)

		if !ok {
			t.Fatal("expected config to be found")
		}
		if got != cfg {
			t.Errorf("expected %+v, got %+v", cfg, got)
		}
	})

	t.Run("FromContext returns false when not set", func(t *testing.T) {
		t.Parallel()

		if _, ok := config.FromContext(context.Background()); ok {
			t.Error("expected config to not be found")
		}
	})

	t.Run("Ensure returns existing config from context", func(t *testing.T) {
		t.Parallel()
		cfg := config.Config{
			Inner:      config.Default("mysites", "us-east-1"),
			ProjectDir: "/test/dir",
		}

		ctx := config.WithContext(context.Background(), cfg)
		newCtx, got, err := config.Ensure(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.ProjectDir != cfg.ProjectDir {
			t.Errorf("expected projectDir %q, got %q", cfg.ProjectDir, got.ProjectDir)
		}
		if newCtx != ctx {
			t.Error("expected same context when config already present")
		}
	})
}

func TestPaths(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Inner:      config.Default("mysites", "us-east-1"),
		ProjectDir: "/work/sites",
	}
	if got := cfg.CDKJSONPath(); got != "/work/sites/cdk.json" {
		t.Errorf("unexpected cdk.json path %q", got)
	}
	if got := cfg.ManifestPath(); got != "/work/sites/sites.yml" {
		t.Errorf("unexpected manifest path %q", got)
	}

	cfg.Inner.CDKDir = "infra"
	cfg.Inner.Manifest = "/etc/sites.yml"
	if got := cfg.CDKDir(); got != "/work/sites/infra" {
		t.Errorf("unexpected cdk dir %q", got)
	}
	if got := cfg.ManifestPath(); got != "/etc/sites.yml" {
		t.Errorf("unexpected manifest path %q", got)
	}
}
