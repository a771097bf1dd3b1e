// Command cfsites-cdk is the CDK app that synthesizes the stacks of a site manifest.
package main

import (
	"fmt"
	"os"

	"github.com/advdv/cfsites/cfscdk/cfscdkcommon"
	"github.com/advdv/cfsites/cfscdk/cfscdksite"
	"github.com/advdv/cfsites/cfscdkutil"
	"github.com/advdv/cfsites/cfsmanifest"
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/cockroachdb/errors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	defer jsii.Close()

	app := awscdk.NewApp(nil)

	env, err := cfscdkutil.LoadEnvironment()
	if err != nil {
		return err
	}

	if err := setup(app, env); err != nil {
		return err
	}

	app.Synth(nil)
	return nil
}

func setup(app awscdk.App, env cfscdkutil.Environment) error {
	cfg, err := cfscdkutil.NewConfig(app, cfscdkutil.AppConfig{Prefix: "cfsites-"})
	if err != nil {
		return err
	}

	manifest, err := cfsmanifest.Load(cfg.Manifest)
	if err != nil {
		return err
	}

	return cfscdkutil.SetupApp(app, cfg, env, manifest.ProjectNames(),
		func(stack awscdk.Stack) (cfscdkcommon.Common, error) {
			return cfscdkcommon.New(stack, manifest.Common.Props(cfg.Namespace()))
		},
		func(stack awscdk.Stack, common cfscdkcommon.Common, name string) error {
			project, err := manifest.Project(name)
			if err != nil {
				return err
			}

			var errs error
			for _, site := range project.Sites {
				if _, err := cfscdksite.New(stack, site.Props(common, cfg.DeploymentEnv)); err != nil {
					errs = errors.CombineErrors(errs, err)
				}
			}
			return errs
		},
	)
}
