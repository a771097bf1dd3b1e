package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/advdv/cfsites/cfscdkutil"
	"github.com/advdv/cfsites/cfsmanifest"
	"github.com/advdv/cfsites/cmd/cfsites/internal/cmdexec"
	"github.com/advdv/cfsites/cmd/cfsites/internal/config"
	"github.com/advdv/cfsites/cmd/cfsites/internal/initwizard"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v3"
)

const contentDir = "site"

func initCmd() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "Initialize a new sites project",
		ArgsUsage: "[directory]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "defaults",
				Usage: "Accept the default answers without prompting",
			},
			&cli.BoolFlag{
				Name:  "accessible",
				Usage: "Prompt without the terminal UI",
			},
			&cli.BoolFlag{
				Name:  "install",
				Usage: "Trust the mise config and install the pinned tools",
			},
		},
		Action: runInit,
	}
}

type InitOptions struct {
	Dir        string
	Answers    initwizard.Result
	MiseConfig MiseConfig
	AppCommand string
	RunInstall bool
	Output     io.Writer
}

func runInit(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return errors.Wrap(err, "failed to get current working directory")
		}
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return errors.Wrap(err, "failed to get absolute path")
	}

	var runner initwizard.FormRunner = initwizard.NewInteractiveRunner()
	switch {
	case cmd.Bool("defaults"):
		runner = initwizard.DefaultsRunner{}
	case cmd.Bool("accessible"):
		runner = initwizard.NewAccessibleRunner(os.Stdout, os.Stdin)
	}

	answers, err := initwizard.New(initwizard.NewFormBuilder(), runner).Run(defaultQualifier(absDir))
	if err != nil {
		return err
	}

	return doInit(ctx, InitOptions{
		Dir:        absDir,
		Answers:    answers,
		MiseConfig: DefaultMiseConfig(),
		AppCommand: appCommand(Version),
		RunInstall: cmd.Bool("install"),
		Output:     os.Stdout,
	})
}

// defaultQualifier derives a qualifier from the directory name.
func defaultQualifier(dir string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(filepath.Base(dir)) {
		if initwizard.IsValidQualifierChar(c) && b.Len() < 10 {
			b.WriteRune(c)
		}
	}
	if b.Len() == 0 {
		return "sites"
	}
	return b.String()
}

func doInit(ctx context.Context, opts InitOptions) error {
	if err := ensureEmptyDir(opts.Dir); err != nil {
		return err
	}

	inner := config.Default(opts.Answers.Qualifier, opts.Answers.Region)
	if err := config.WriteToFile(opts.Dir, inner, config.NewWriter()); err != nil {
		return err
	}

	data, err := cdkJSON(opts.AppCommand, inner)
	if err != nil {
		return err
	}
	if err := writeFile(opts.Dir, "cdk.json", data); err != nil {
		return err
	}

	if err := writeManifest(opts.Dir, inner.Manifest, opts.Answers); err != nil {
		return err
	}

	if err := writeTemplate(opts.Dir, filepath.Join(contentDir, "index.html"),
		indexHTMLTemplate, opts.Answers.Site); err != nil {
		return err
	}
	if err := writeTemplate(opts.Dir, cmdexec.MiseFileName, miseTomlTemplate, opts.MiseConfig); err != nil {
		return err
	}
	if err := writeTemplate(opts.Dir, ".gitignore", gitignoreTemplate, nil); err != nil {
		return err
	}

	if opts.RunInstall {
		exec := cmdexec.NewWithDir(opts.Dir).WithOutput(opts.Output, opts.Output)
		if err := exec.Run(ctx, "mise", "trust"); err != nil {
			return err
		}
		if err := exec.Run(ctx, "mise", "install"); err != nil {
			return err
		}
	}

	writeOutputf(opts.Output, "Initialized sites project in %s\n", opts.Dir)
	writeOutputf(opts.Output, "  Validate the manifest: cfsites validate\n")
	writeOutputf(opts.Output, "  Deploy the dev sites:  cfsites deploy %s\n", opts.Answers.Project)
	return nil
}

// writeManifest writes a starter manifest and loads it back, so a project is never
// initialized with a manifest the CDK app would reject.
func writeManifest(dir, name string, answers initwizard.Result) error {
	site := cfsmanifest.Site{
		Name:       answers.Site,
		ContentDir: contentDir,
	}
	if answers.Domain != "" {
		site.Domain = &cfsmanifest.Domain{
			Name:         answers.Domain,
			HostedZoneID: answers.HostedZoneID,
		}
	}

	m := cfsmanifest.Manifest{
		Version: "1",
		// CLOUDFRONT scoped web ACLs only exist in us-east-1
		Common: cfsmanifest.Common{DisableWebACL: answers.Region != cfscdkutil.CloudFrontRegion},
		Projects: []cfsmanifest.Project{{
			Name:  answers.Project,
			Sites: []cfsmanifest.Site{site},
		}},
	}

	var buf bytes.Buffer
	if err := m.Write(&buf); err != nil {
		return err
	}
	if err := writeFile(dir, name, buf.Bytes()); err != nil {
		return err
	}

	if _, err := cfsmanifest.Load(filepath.Join(dir, name)); err != nil {
		return errors.Wrap(err, "generated manifest is invalid")
	}
	return nil
}

func ensureEmptyDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.Newf("%q is not a directory", dir)
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			return errors.Wrap(err, "failed to read directory")
		}
		if len(entries) > 0 {
			return errors.Newf("directory %q is not empty", dir)
		}

		return nil
	} else if !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to check directory")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}

	return nil
}
