package main

import (
	"context"
	"os"

	"github.com/advdv/cfsites/cmd/cfsites/internal/cmdexec"
	"github.com/advdv/cfsites/cmd/cfsites/internal/config"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v3"
)

func destroyCmd() *cli.Command {
	return &cli.Command{
		Name:      "destroy",
		Usage:     "Destroy the stacks of a project, or of all projects",
		ArgsUsage: "[project]",
		Flags: []cli.Flag{
			envFlag(),
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Confirm the destruction, required",
			},
		},
		Action: config.RunWithConfig(runDestroy),
	}
}

func runDestroy(ctx context.Context, cmd *cli.Command, cfg config.Config) error {
	opts := cdkOptions(cmd)
	opts.Output = os.Stdout
	return doDestroy(ctx, cfg, cmdexec.New(cfg).WithOutput(os.Stdout, os.Stderr), opts)
}

func doDestroy(ctx context.Context, cfg config.Config, exec cmdexec.Executor, opts cdkCommandOptions) error {
	if !opts.Force {
		return errors.New("destroy deletes the distributions of every selected site, confirm with --force")
	}
	return runCDK(ctx, cfg, exec, "destroy", opts, "--force")
}
