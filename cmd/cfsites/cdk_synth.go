package main

import (
	"context"
	"os"

	"github.com/advdv/cfsites/cmd/cfsites/internal/cmdexec"
	"github.com/advdv/cfsites/cmd/cfsites/internal/config"
	"github.com/urfave/cli/v3"
)

func synthCmd() *cli.Command {
	return &cli.Command{
		Name:      "synth",
		Usage:     "Synthesize the CloudFormation templates",
		ArgsUsage: "[project]",
		Flags:     []cli.Flag{envFlag()},
		Action:    config.RunWithConfig(runSynth),
	}
}

func runSynth(ctx context.Context, cmd *cli.Command, cfg config.Config) error {
	opts := cdkOptions(cmd)
	opts.Output = os.Stderr
	return doSynth(ctx, cfg, cmdexec.New(cfg).WithOutput(os.Stdout, os.Stderr), opts)
}

func doSynth(ctx context.Context, cfg config.Config, exec cmdexec.Executor, opts cdkCommandOptions) error {
	return runCDK(ctx, cfg, exec, "synth", opts)
}
