package cfscdkutil_test

import (
	"strings"
	"testing"

	"github.com/advdv/cfsites/cfscdkutil"
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/cockroachdb/errors"
)

func newApp(ctx map[string]any) awscdk.App {
	return awscdk.NewApp(&awscdk.AppProps{Context: &ctx})
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	t.Run("reads context with defaults", func(t *testing.T) {
		t.Parallel()
		app := newApp(map[string]any{
			"cfsites-qualifier":    "sites",
			"cfsites-region":       "us-east-1",
			"cfsites-region-ident": "use1",
		})

		cfg, err := cfscdkutil.NewConfig(app, cfscdkutil.AppConfig{Prefix: "cfsites-"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.DeploymentEnv != "dev" {
			t.Errorf("expected default env dev, got %q", cfg.DeploymentEnv)
		}
		if cfg.Manifest != "sites.yml" {
			t.Errorf("expected default manifest sites.yml, got %q", cfg.Manifest)
		}
		if cfg.Projects != nil {
			t.Errorf("expected no project selection, got %v", cfg.Projects)
		}
	})

	t.Run("collects all read errors", func(t *testing.T) {
		t.Parallel()
		app := newApp(map[string]any{
			"cfsites-region": 42,
		})

		_, err := cfscdkutil.NewConfig(app, cfscdkutil.AppConfig{Prefix: "cfsites-"})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		for _, want := range []string{
			`"cfsites-qualifier" is not set`,
			`"cfsites-region" must be a string`,
			`"cfsites-region-ident" is not set`,
		} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error %q should contain %q", err, want)
			}
		}
	})

	t.Run("parses project selection", func(t *testing.T) {
		t.Parallel()
		app := newApp(map[string]any{
			"cfsites-qualifier":      "sites",
			"cfsites-region":         "us-east-1",
			"cfsites-region-ident":   "use1",
			"cfsites-deployment-env": "prod",
			"cfsites-projects":       "gp un",
		})

		cfg, err := cfscdkutil.NewConfig(app, cfscdkutil.AppConfig{
			Prefix:      "cfsites-",
			AllowedEnvs: []string{"dev", "prod"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.DeploymentEnv != "prod" {
			t.Errorf("expected prod env, got %q", cfg.DeploymentEnv)
		}
		if strings.Join(cfg.Projects, ",") != "gp,un" {
			t.Errorf("expected projects [gp un], got %v", cfg.Projects)
		}
	})
}

func TestSetupApp(t *testing.T) {
	t.Parallel()

	cfg := &cfscdkutil.Config{
		Prefix:        "cfsites-",
		Qualifier:     "sites",
		Region:        "us-east-1",
		RegionIdent:   "use1",
		DeploymentEnv: "dev",
		Manifest:      "sites.yml",
	}
	env := cfscdkutil.Environment{Account: "123456789012"}

	t.Run("creates common and project stacks", func(t *testing.T) {
		t.Parallel()
		app := awscdk.NewApp(nil)

		var got []string
		err := cfscdkutil.SetupApp(app, cfg, env, []string{"gp", "un"},
			func(stack awscdk.Stack) (string, error) { return *stack.StackName(), nil },
			func(stack awscdk.Stack, common string, project string) error {
				got = append(got, common+"->"+*stack.StackName())
				return nil
			})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := "sitesUse1DevCommon->sitesUse1DevGp,sitesUse1DevCommon->sitesUse1DevUn"
		if strings.Join(got, ",") != want {
			t.Errorf("expected %s, got %s", want, strings.Join(got, ","))
		}

		stack := awscdk.Stack_Of(app.Node().FindChild(jsii.String("sitesUse1DevGp")))
		if len(*stack.Dependencies()) != 1 {
			t.Errorf("expected project stack to depend on the common stack")
		}
		if cfscdkutil.ConfigFromScope(stack).Qualifier != "sites" {
			t.Errorf("expected config to be stored in the construct tree")
		}
	})

	t.Run("combines project errors", func(t *testing.T) {
		t.Parallel()
		app := awscdk.NewApp(nil)

		err := cfscdkutil.SetupApp(app, cfg, env, []string{"gp", "un"},
			func(awscdk.Stack) (int, error) { return 0, nil },
			func(_ awscdk.Stack, _ int, project string) error {
				return errors.Newf("broken %s", project)
			})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "broken gp") {
			t.Errorf("expected first project error, got %v", err)
		}
	})
}

func TestStackNamesPerEnv(t *testing.T) {
	t.Parallel()

	dev := &cfscdkutil.Config{Qualifier: "sites", RegionIdent: "use1", DeploymentEnv: "dev"}
	prod := &cfscdkutil.Config{Qualifier: "sites", RegionIdent: "use1", DeploymentEnv: "prod"}

	if got := cfscdkutil.StackName(dev, "web"); got != "sitesUse1DevWeb" {
		t.Errorf("dev stack name = %q", got)
	}
	if got := cfscdkutil.StackName(prod, "web"); got != "sitesUse1ProdWeb" {
		t.Errorf("prod stack name = %q", got)
	}
	if dev.Namespace() != "sites-dev" || prod.Namespace() != "sites-prod" {
		t.Errorf("unexpected namespaces %q and %q", dev.Namespace(), prod.Namespace())
	}
}

func TestEnvironmentFrom(t *testing.T) {
	t.Parallel()

	env, err := cfscdkutil.EnvironmentFrom(map[string]string{
		"CDK_DEFAULT_ACCOUNT": "123456789012",
		"CDK_DEFAULT_REGION":  "eu-west-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *env.AccountPtr() != "123456789012" || env.Region != "eu-west-1" {
		t.Errorf("unexpected environment %+v", env)
	}

	empty, err := cfscdkutil.EnvironmentFrom(map[string]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty.AccountPtr() != nil {
		t.Error("expected nil account pointer for unknown account")
	}
}
