package main

import (
	"context"
	"os"

	"github.com/advdv/cfsites/cmd/cfsites/internal/cmdexec"
	"github.com/advdv/cfsites/cmd/cfsites/internal/config"
	"github.com/urfave/cli/v3"
)

func deployCmd() *cli.Command {
	return &cli.Command{
		Name:      "deploy",
		Usage:     "Deploy the stacks of a project, or of all projects",
		ArgsUsage: "[project]",
		Flags: []cli.Flag{
			envFlag(),
			&cli.BoolFlag{
				Name:  "hotswap",
				Usage: "Enable CDK hotswap for faster iterations",
			},
		},
		Action: config.RunWithConfig(runDeploy),
	}
}

func runDeploy(ctx context.Context, cmd *cli.Command, cfg config.Config) error {
	opts := cdkOptions(cmd)
	opts.Output = os.Stdout
	return doDeploy(ctx, cfg, cmdexec.New(cfg).WithOutput(os.Stdout, os.Stderr), opts)
}

func doDeploy(ctx context.Context, cfg config.Config, exec cmdexec.Executor, opts cdkCommandOptions) error {
	extra := []string{"--require-approval", "never"}
	if opts.Hotswap {
		extra = append(extra, "--hotswap")
	}
	return runCDK(ctx, cfg, exec, "deploy", opts, extra...)
}
