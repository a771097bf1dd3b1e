package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/advdv/cfsites/cfsmanifest"
	"github.com/advdv/cfsites/cmd/cfsites/internal/config"
	"github.com/urfave/cli/v3"
)

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:   "validate",
		Usage:  "Validate the site manifest and print the resulting behaviors",
		Flags:  []cli.Flag{envFlag()},
		Action: config.RunWithConfig(runValidate),
	}
}

func runValidate(_ context.Context, cmd *cli.Command, cfg config.Config) error {
	return doValidate(cfg, cmd.String("env"), os.Stdout)
}

func doValidate(cfg config.Config, env string, w io.Writer) error {
	cdk, err := loadCDKContext(cfg)
	if err != nil {
		return err
	}

	writeOutputf(w, "Manifest %s is valid\n", cfg.ManifestPath())
	for _, project := range cdk.manifest.Projects {
		writeOutputf(w, "\nProject %s (stack %s)\n", project.Name, cdk.stackName(project.Name, env))
		for _, site := range project.Sites {
			describeSite(w, site, env)
		}
	}

	return nil
}

func describeSite(w io.Writer, site cfsmanifest.Site, env string) {
	props := site.Props(nil, env)

	url := "https://<distribution>.cloudfront.net"
	if props.Domain != nil {
		url = "https://" + props.FQDN()
	}

	writeOutputf(w, "  Site %s\n", site.Name)
	writeOutputf(w, "    url:           %s\n", url)
	writeOutputf(w, "    origin access: %s\n", site.OriginAccessMode())
	if props.Dev {
		writeOutputf(w, "    dev:           buckets are destroyed with the stack\n")
	}
	writeOutputf(w, "    behaviors:\n")
	writeOutputf(w, "      %-20s -> content bucket\n", "/*")
	for _, pattern := range props.Patterns() {
		writeOutputf(w, "      %-20s -> %s\n", pattern, props.Origins[pattern])
		if !props.DisableBareRedirect {
			bare := strings.TrimSuffix(pattern, "/*")
			writeOutputf(w, "      %-20s -> redirect to %s/\n", bare, bare)
		}
	}
}
