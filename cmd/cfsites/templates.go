package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"text/template"

	"github.com/advdv/cfsites/cfscdkutil"
	"github.com/advdv/cfsites/cmd/cfsites/internal/config"
	"github.com/cockroachdb/errors"
)

var miseTomlTemplate = template.Must(template.New("mise.toml").Parse(`[tools]
go = "{{.GoVersion}}"
node = "{{.NodeVersion}}"
"npm:aws-cdk" = "{{.AwsCdkVersion}}"
aws-cli = "{{.AwsCliVersion}}"
`))

var gitignoreTemplate = template.Must(template.New(".gitignore").Parse(`cdk.out/
cdk.context.json
`))

var indexHTMLTemplate = template.Must(template.New("index.html").Parse(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8">
    <title>{{.}}</title>
  </head>
  <body>
    <h1>{{.}}</h1>
  </body>
</html>
`))

type MiseConfig struct {
	GoVersion     string
	NodeVersion   string
	AwsCdkVersion string
	AwsCliVersion string
}

func DefaultMiseConfig() MiseConfig {
	return MiseConfig{
		GoVersion:     "latest",
		NodeVersion:   "22",
		AwsCdkVersion: "latest",
		AwsCliVersion: "latest",
	}
}

// appCommand is the cdk.json app command, pinned to the version of this CLI.
func appCommand(version string) string {
	if version == "" || version == "dev" {
		version = "latest"
	}
	return "go run github.com/advdv/cfsites/cmd/cfsites-cdk@" + version
}

// cdkJSON renders a cdk.json that synthesizes the dev environment by default.
func cdkJSON(app string, cfg config.InnerConfig) ([]byte, error) {
	doc := map[string]any{
		"app": app,
		"context": map[string]any{
			contextPrefix + "qualifier":      cfg.Qualifier,
			contextPrefix + "region":         cfg.Region,
			contextPrefix + "region-ident":   cfscdkutil.RegionIdentFor(cfg.Region),
			contextPrefix + "deployment-env": cfscdkutil.DefaultDeploymentEnv,
			contextPrefix + "manifest":       cfg.Manifest,
		},
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal cdk.json")
	}
	return append(data, '\n'), nil
}

func writeTemplate(dir, name string, tmpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return errors.Wrapf(err, "failed to execute %s template", tmpl.Name())
	}
	return writeFile(dir, name, buf.Bytes())
}

func writeFile(dir, name string, data []byte) error {
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", name)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // project files need to be readable
		return errors.Wrapf(err, "failed to write %s", name)
	}
	return nil
}
