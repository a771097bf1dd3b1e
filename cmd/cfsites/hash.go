package main

import (
	"context"
	"io"
	"os"

	"github.com/advdv/cfsites/internal/dirhash"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func hashCmd() *cli.Command {
	return &cli.Command{
		Name:      "hash",
		Usage:     "Print the content hash of a site directory",
		ArgsUsage: "<dir>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log every included and skipped path",
			},
			&cli.IntFlag{
				Name:  "length",
				Usage: "Length of the printed hash, 0 prints the full hash",
				Value: dirhash.DefaultLength,
			},
		},
		Action: runHash,
	}
}

type hashOptions struct {
	Dir    string
	Length int
	Logs   *zap.Logger
	Output io.Writer
}

func runHash(_ context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		return errors.New("directory argument is required")
	}

	logs := zap.NewNop()
	if cmd.Bool("verbose") {
		var err error
		if logs, err = zap.NewDevelopment(); err != nil {
			return errors.Wrap(err, "failed to create logger")
		}
		defer logs.Sync() //nolint:errcheck
	}

	return doHash(hashOptions{
		Dir:    dir,
		Length: cmd.Int("length"),
		Logs:   logs,
		Output: os.Stdout,
	})
}

func doHash(opts hashOptions) error {
	hasher := dirhash.New(
		dirhash.WithLogger(opts.Logs),
		dirhash.WithLength(opts.Length),
	)

	sum, err := hasher.Hash(opts.Dir)
	if err != nil {
		return errors.Wrapf(err, "failed to hash %s", opts.Dir)
	}

	writeOutputf(opts.Output, "%s\n", sum)
	return nil
}
