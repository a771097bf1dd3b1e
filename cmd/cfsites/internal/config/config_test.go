package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/advdv/cfsites/cmd/cfsites/internal/config"
)

const validConfig = `version: "1"
qualifier: mysites
region: us-east-1
manifest: sites.yml
cdkDir: .
`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, config.FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoader(t *testing.T) {
	t.Parallel()

	t.Run("loads valid config", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, t.TempDir(), validConfig)

		cfg, err := config.NewLoader().Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Version != "1" {
			t.Errorf("expected version '1', got %q", cfg.Version)
		}
		if cfg.Qualifier != "mysites" || cfg.Region != "us-east-1" {
			t.Errorf("unexpected config %+v", cfg)
		}
	})

	t.Run("returns error for invalid yaml", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, t.TempDir(), "invalid: yaml: content:")

		if _, err := config.NewLoader().Load(path); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("returns error for invalid version", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, t.TempDir(), strings.Replace(validConfig, `"1"`, `"2"`, 1))

		if _, err := config.NewLoader().Load(path); err == nil {
			t.Fatal("expected error for invalid version, got nil")
		}
	})

	t.Run("returns error for long qualifier", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, t.TempDir(), strings.Replace(validConfig, "mysites", "mysitesandmore", 1))

		if _, err := config.NewLoader().Load(path); err == nil {
			t.Fatal("expected error for long qualifier, got nil")
		}
	})

	t.Run("returns error for missing fields", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, t.TempDir(), "version: \"1\"\n")

		if _, err := config.NewLoader().Load(path); err == nil {
			t.Fatal("expected error for missing fields, got nil")
		}
	})

	t.Run("strict mode rejects unknown fields", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, t.TempDir(), validConfig+"unknown_field: value\n")

		if _, err := config.NewLoader().Load(path); err == nil {
			t.Fatal("expected error for unknown field, got nil")
		}
	})
}

func TestWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := config.NewWriter().Write(&buf, config.Default("mysites", "us-east-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "qualifier: mysites") {
		t.Errorf("expected qualifier in output, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "profile") {
		t.Errorf("expected empty profile to be omitted, got %q", buf.String())
	}
}

func TestFinder(t *testing.T) {
	t.Parallel()

	t.Run("finds config in current directory", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeConfig(t, dir, validConfig)

		cfg, projectDir, err := config.NewFinder(config.NewLoader()).Find(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if projectDir != dir {
			t.Errorf("expected projectDir %q, got %q", dir, projectDir)
		}
		if cfg.Version != "1" {
			t.Errorf("expected version '1', got %q", cfg.Version)
		}
	})

	t.Run("finds config in parent directory", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		subDir := filepath.Join(root, "sub", "deep")
		if err := os.MkdirAll(subDir, 0o755); err != nil {
			t.Fatal(err)
		}
		writeConfig(t, root, validConfig)

		_, projectDir, err := config.NewFinder(config.NewLoader()).Find(subDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if projectDir != root {
			t.Errorf("expected projectDir %q, got %q", root, projectDir)
		}
	})

	t.Run("returns error when config not found", func(t *testing.T) {
		t.Parallel()

		_, _, err := config.NewFinder(config.NewLoader()).Find(t.TempDir())
		if err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}

func TestWriteToFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := config.Default("mysites", "eu-west-1")

	if err := config.WriteToFile(dir, cfg, config.NewWriter()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	readCfg, _, err := config.NewFinder(config.NewLoader()).Find(dir)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	if readCfg != cfg {
		t.Errorf("expected %+v, got %+v", cfg, readCfg)
	}
}
