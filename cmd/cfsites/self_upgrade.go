package main

import (
	"context"
	"io"
	"os"

	"github.com/advdv/cfsites/cmd/cfsites/internal/cmdexec"
	"github.com/urfave/cli/v3"
)

const cliPackage = "github.com/advdv/cfsites/cmd/cfsites"

func selfUpgradeCmd() *cli.Command {
	return &cli.Command{
		Name:  "self-upgrade",
		Usage: "Upgrade the cfsites CLI to the latest version",
		Action: func(ctx context.Context, _ *cli.Command) error {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			return doSelfUpgrade(ctx, cmdexec.NewWithDir(dir), os.Stdout)
		},
	}
}

func doSelfUpgrade(ctx context.Context, exec cmdexec.Executor, w io.Writer) error {
	writeOutputf(w, "Installing %s@latest...\n", cliPackage)
	return exec.WithOutput(w, w).Run(ctx, "go", "install", cliPackage+"@latest")
}
