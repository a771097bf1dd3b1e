package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/advdv/cfsites/cfsmanifest"
	"github.com/advdv/cfsites/cmd/cfsites/internal/config"
	"github.com/advdv/cfsites/cmd/cfsites/internal/initwizard"
)

func TestEnsureEmptyDir(t *testing.T) {
	t.Parallel()

	t.Run("creates new directory", func(t *testing.T) {
		t.Parallel()
		targetDir := filepath.Join(t.TempDir(), "a", "b", "newproject")

		if err := ensureEmptyDir(targetDir); err != nil {
			t.Fatalf("ensureEmptyDir failed: %v", err)
		}

		info, err := os.Stat(targetDir)
		if err != nil {
			t.Fatalf("directory was not created: %v", err)
		}
		if !info.IsDir() {
			t.Fatal("expected a directory to be created")
		}
	})

	t.Run("succeeds if directory exists but is empty", func(t *testing.T) {
		t.Parallel()
		if err := ensureEmptyDir(t.TempDir()); err != nil {
			t.Fatalf("ensureEmptyDir failed on empty existing directory: %v", err)
		}
	})

	t.Run("fails if directory is not empty", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		if err := os.WriteFile(filepath.Join(tmpDir, "file.txt"), []byte("content"), 0o644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		if err := ensureEmptyDir(tmpDir); err == nil {
			t.Fatal("expected error when directory is not empty")
		}
	})

	t.Run("fails if path is a file", func(t *testing.T) {
		t.Parallel()
		filePath := filepath.Join(t.TempDir(), "file.txt")
		if err := os.WriteFile(filePath, []byte("content"), 0o644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		if err := ensureEmptyDir(filePath); err == nil {
			t.Fatal("expected error when path is a file")
		}
	})
}

func TestDoInit(t *testing.T) {
	t.Parallel()

	answers := initwizard.DefaultResult("mysites")
	answers.Region = "eu-west-1"
	answers.Site = "Docs"

	t.Run("writes a deployable project", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "sites")
		var out strings.Builder

		err := doInit(t.Context(), InitOptions{
			Dir:        dir,
			Answers:    answers,
			MiseConfig: DefaultMiseConfig(),
			AppCommand: appCommand("v1.2.0"),
			Output:     &out,
		})
		if err != nil {
			t.Fatalf("doInit() error = %v", err)
		}

		inner, projectDir, err := config.NewFinder(config.NewLoader()).Find(dir)
		if err != nil {
			t.Fatalf("failed to find config: %v", err)
		}
		if projectDir != dir || inner.Qualifier != "mysites" || inner.Region != "eu-west-1" {
			t.Errorf("unexpected config %+v in %s", inner, projectDir)
		}

		data, err := os.ReadFile(filepath.Join(dir, "cdk.json"))
		if err != nil {
			t.Fatalf("failed to read cdk.json: %v", err)
		}
		var cdk struct {
			App     string            `json:"app"`
			Context map[string]string `json:"context"`
		}
		if err := json.Unmarshal(data, &cdk); err != nil {
			t.Fatalf("failed to parse cdk.json: %v", err)
		}
		if cdk.App != "go run github.com/advdv/cfsites/cmd/cfsites-cdk@v1.2.0" {
			t.Errorf("unexpected app command %q", cdk.App)
		}
		if cdk.Context["cfsites-region-ident"] != "euw1" || cdk.Context["cfsites-deployment-env"] != "dev" {
			t.Errorf("unexpected context %v", cdk.Context)
		}

		m, err := cfsmanifest.Load(filepath.Join(dir, "sites.yml"))
		if err != nil {
			t.Fatalf("failed to load manifest: %v", err)
		}
		site := m.Projects[0].Sites[0]
		if m.Projects[0].Name != "web" || site.Name != "Docs" || site.Domain != nil {
			t.Errorf("unexpected manifest %+v", m)
		}
		if !m.Common.DisableWebACL {
			t.Error("expected the web ACL to be disabled outside us-east-1")
		}
		if site.ContentDir != filepath.Join(dir, "site") {
			t.Errorf("unexpected content dir %q", site.ContentDir)
		}

		for _, name := range []string{"site/index.html", "mise.toml", ".gitignore"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
				t.Errorf("expected %s to be written: %v", name, err)
			}
		}
		if !strings.Contains(out.String(), "cfsites deploy web") {
			t.Errorf("expected next steps in output, got %q", out.String())
		}
	})

	t.Run("writes the domain", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		withDomain := answers
		withDomain.Region = "us-east-1"
		withDomain.Domain = "example.com"
		withDomain.HostedZoneID = "Z123"

		if err := doInit(t.Context(), InitOptions{Dir: dir, Answers: withDomain, AppCommand: appCommand("")}); err != nil {
			t.Fatalf("doInit() error = %v", err)
		}

		m, err := cfsmanifest.Load(filepath.Join(dir, "sites.yml"))
		if err != nil {
			t.Fatalf("failed to load manifest: %v", err)
		}
		domain := m.Projects[0].Sites[0].Domain
		if domain == nil || domain.Name != "example.com" || domain.HostedZoneID != "Z123" {
			t.Errorf("unexpected domain %+v", domain)
		}
		if m.Common.DisableWebACL {
			t.Error("expected the web ACL in us-east-1")
		}
	})

	t.Run("refuses a non-empty directory", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "README.md"), nil, 0o644); err != nil {
			t.Fatal(err)
		}

		if err := doInit(t.Context(), InitOptions{Dir: dir, Answers: answers}); err == nil {
			t.Fatal("expected error for non-empty directory")
		}
	})
}

func TestDefaultQualifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dir      string
		expected string
	}{
		{"/work/mysites", "mysites"},
		{"/work/My-Sites_2", "mysites2"},
		{"/work/averyverylongname", "averyveryl"},
		{"/work/---", "sites"},
	}

	for _, tt := range tests {
		if got := defaultQualifier(tt.dir); got != tt.expected {
			t.Errorf("defaultQualifier(%q) = %q, want %q", tt.dir, got, tt.expected)
		}
	}
}

func TestAppCommand(t *testing.T) {
	t.Parallel()

	if got := appCommand("dev"); !strings.HasSuffix(got, "@latest") {
		t.Errorf("expected dev builds to use latest, got %q", got)
	}
	if got := appCommand("v0.3.1"); !strings.HasSuffix(got, "cfsites-cdk@v0.3.1") {
		t.Errorf("expected pinned version, got %q", got)
	}
}
