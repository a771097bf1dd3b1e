package main

import (
	"context"
	"os"

	"github.com/advdv/cfsites/cmd/cfsites/internal/cmdexec"
	"github.com/advdv/cfsites/cmd/cfsites/internal/config"
	"github.com/urfave/cli/v3"
)

func diffCmd() *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "Show CDK stack differences",
		ArgsUsage: "[project]",
		Flags:     []cli.Flag{envFlag()},
		Action:    config.RunWithConfig(runDiff),
	}
}

func runDiff(ctx context.Context, cmd *cli.Command, cfg config.Config) error {
	opts := cdkOptions(cmd)
	opts.Output = os.Stdout
	return doDiff(ctx, cfg, cmdexec.New(cfg).WithOutput(os.Stdout, os.Stderr), opts)
}

func doDiff(ctx context.Context, cfg config.Config, exec cmdexec.Executor, opts cdkCommandOptions) error {
	return runCDK(ctx, cfg, exec, "diff", opts)
}
