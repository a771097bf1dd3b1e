// Command cfsites manages the CloudFront sites of a project.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// Version is set via ldflags at build time.
var Version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "cfsites",
		Usage:   "Deploy static sites behind CloudFront",
		Version: Version,
		Commands: []*cli.Command{
			initCmd(),
			validateCmd(),
			synthCmd(),
			diffCmd(),
			deployCmd(),
			destroyCmd(),
			hashCmd(),
			invalidateCmd(),
			zoneLookupCmd(),
			selfUpgradeCmd(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
