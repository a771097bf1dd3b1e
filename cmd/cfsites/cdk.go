package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/advdv/cfsites/cfscdkutil"
	"github.com/advdv/cfsites/cfsmanifest"
	"github.com/advdv/cfsites/cmd/cfsites/internal/cmdexec"
	"github.com/advdv/cfsites/cmd/cfsites/internal/config"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v3"
)

// contextPrefix is the prefix of every CDK context key the CDK app reads.
const contextPrefix = "cfsites-"

type cdkCommandOptions struct {
	Project string
	Env     string
	Hotswap bool
	Force   bool
	Output  io.Writer
}

func (o cdkCommandOptions) env() string {
	if o.Env == "" {
		return cfscdkutil.DefaultDeploymentEnv
	}
	return o.Env
}

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "Deployment environment, sites of the dev environment are disposable",
		Value: cfscdkutil.DefaultDeploymentEnv,
	}
}

func cdkOptions(cmd *cli.Command) cdkCommandOptions {
	return cdkCommandOptions{
		Project: cmd.Args().First(),
		Env:     cmd.String("env"),
		Hotswap: cmd.Bool("hotswap"),
		Force:   cmd.Bool("force"),
	}
}

type cdkContext struct {
	cfg         config.Config
	manifest    *cfsmanifest.Manifest
	regionIdent string
}

func loadCDKContext(cfg config.Config) (cdkContext, error) {
	regionIdent := cfscdkutil.RegionIdentFor(cfg.Inner.Region)
	if regionIdent == "" {
		return cdkContext{}, errors.Newf("unsupported region %q, use one of: %s",
			cfg.Inner.Region, strings.Join(cfscdkutil.KnownRegions(), ", "))
	}

	manifest, err := cfsmanifest.Load(cfg.ManifestPath())
	if err != nil {
		return cdkContext{}, err
	}

	return cdkContext{cfg: cfg, manifest: manifest, regionIdent: regionIdent}, nil
}

// stackName returns the name the CDK app gives the stack of a project in a
// deployment environment.
func (c cdkContext) stackName(name, deploymentEnv string) string {
	return cfscdkutil.StackName(&cfscdkutil.Config{
		Qualifier:     c.cfg.Inner.Qualifier,
		RegionIdent:   c.regionIdent,
		DeploymentEnv: deploymentEnv,
	}, name)
}

// args returns the context flags for the CDK app, followed by the stack selectors.
func (c cdkContext) args(opts cdkCommandOptions) ([]string, error) {
	if opts.Project != "" {
		if _, err := c.manifest.Project(opts.Project); err != nil {
			return nil, err
		}
	}

	args := []string{
		"-c", contextPrefix + "qualifier=" + c.cfg.Inner.Qualifier,
		"-c", contextPrefix + "region=" + c.cfg.Inner.Region,
		"-c", contextPrefix + "region-ident=" + c.regionIdent,
		"-c", contextPrefix + "deployment-env=" + opts.env(),
		"-c", contextPrefix + "manifest=" + c.cfg.ManifestPath(),
	}
	if opts.Project != "" {
		args = append(args, "-c", contextPrefix+"projects="+opts.Project)
	}
	if c.cfg.Inner.Profile != "" {
		args = append(args, "--profile", c.cfg.Inner.Profile)
	}

	if opts.Project == "" {
		return append(args, "--all"), nil
	}
	return append(args,
		c.stackName(cfscdkutil.CommonStackName, opts.env()),
		c.stackName(opts.Project, opts.env())), nil
}

// runCDK runs a cdk subcommand for the selected project, or for all projects.
func runCDK(
	ctx context.Context, cfg config.Config, exec cmdexec.Executor,
	subcommand string, opts cdkCommandOptions, extra ...string,
) error {
	cdk, err := loadCDKContext(cfg)
	if err != nil {
		return err
	}

	args, err := cdk.args(opts)
	if err != nil {
		return err
	}

	target := "all projects"
	if opts.Project != "" {
		target = "project " + opts.Project
	}
	writeOutputf(opts.Output, "Running cdk %s for %s (env: %s)...\n", subcommand, target, opts.env())

	full := make([]string, 0, 1+len(args)+len(extra))
	full = append(full, subcommand)
	full = append(full, args...)
	full = append(full, extra...)

	return exec.Tool(ctx, "cdk", full...)
}

func writeOutputf(w io.Writer, format string, args ...any) {
	if w != nil {
		_, _ = fmt.Fprintf(w, format, args...)
	}
}
