package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/advdv/cfsites/cfscdk/cfscdksite"
	"github.com/advdv/cfsites/cmd/cfsites/internal/config"
	"github.com/advdv/cfsites/internal/invalidation"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func invalidateCmd() *cli.Command {
	return &cli.Command{
		Name:      "invalidate",
		Usage:     "Invalidate the CloudFront cache of a deployed site",
		ArgsUsage: "<project> <site> [paths...]",
		Flags:     []cli.Flag{envFlag()},
		Action:    config.RunWithConfig(runInvalidate),
	}
}

type invalidateOptions struct {
	Project string
	Site    string
	Env     string
	Paths   []string
	Output  io.Writer
}

// exportLookup returns the value of a CloudFormation export, or an empty string
// when no export has that name.
type exportLookup func(ctx context.Context, name string) (string, error)

// exportLister is the part of the CloudFormation client used to look up exports.
type exportLister interface {
	ListExports(
		ctx context.Context, params *cloudformation.ListExportsInput, optFns ...func(*cloudformation.Options),
	) (*cloudformation.ListExportsOutput, error)
}

func runInvalidate(ctx context.Context, cmd *cli.Command, cfg config.Config) error {
	args := cmd.Args().Slice()
	if len(args) < 2 {
		return errors.New("project and site arguments are required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Inner.Region)}
	if cfg.Inner.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Inner.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return errors.Wrap(err, "failed to load AWS configuration")
	}

	logs, err := zap.NewDevelopment()
	if err != nil {
		return errors.Wrap(err, "failed to create logger")
	}
	defer logs.Sync() //nolint:errcheck

	return doInvalidate(ctx, cfg,
		listExports(cloudformation.NewFromConfig(awsCfg)),
		invalidation.New(cloudfront.NewFromConfig(awsCfg), logs),
		invalidateOptions{
			Project: args[0],
			Site:    args[1],
			Env:     cmd.String("env"),
			Paths:   args[2:],
			Output:  os.Stdout,
		})
}

func doInvalidate(
	ctx context.Context, cfg config.Config, lookup exportLookup,
	invalidator *invalidation.Invalidator, opts invalidateOptions,
) error {
	cdk, err := loadCDKContext(cfg)
	if err != nil {
		return err
	}

	project, err := cdk.manifest.Project(opts.Project)
	if err != nil {
		return err
	}
	if _, err := project.Site(opts.Site); err != nil {
		return err
	}

	paths := opts.Paths
	if len(paths) == 0 {
		paths = invalidation.AllPaths
	}
	for _, p := range paths {
		if !strings.HasPrefix(p, "/") {
			return errors.Newf("invalid path %q: paths must start with a slash", p)
		}
	}

	env := cdkCommandOptions{Env: opts.Env}.env()
	exportName := cfscdksite.Name(opts.Site, env, "DistributionId")
	distributionID, err := lookup(ctx, exportName)
	if err != nil {
		return err
	}
	if distributionID == "" {
		return errors.Newf("export %q not found, is site %s deployed to %s?", exportName, opts.Site, env)
	}

	id, err := invalidator.Invalidate(ctx, distributionID, paths, "")
	if err != nil {
		return err
	}

	writeOutputf(opts.Output, "Created invalidation %s of distribution %s\n", id, distributionID)
	return nil
}

// listExports pages through the exports of the region. The site outputs are exported
// from nested stacks, so they are looked up by export name instead of by stack.
func listExports(client exportLister) exportLookup {
	return func(ctx context.Context, name string) (string, error) {
		pages := cloudformation.NewListExportsPaginator(client, &cloudformation.ListExportsInput{})
		for pages.HasMorePages() {
			page, err := pages.NextPage(ctx)
			if err != nil {
				return "", errors.Wrap(err, "failed to list CloudFormation exports")
			}
			for _, export := range page.Exports {
				if aws.ToString(export.Name) == name {
					return aws.ToString(export.Value), nil
				}
			}
		}
		return "", nil
	}
}
