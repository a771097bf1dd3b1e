package cfscdkutil

import (
	"github.com/aws/jsii-runtime-go"
	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
)

// Environment holds the process environment the CDK CLI provides to the app.
type Environment struct {
	Account string `env:"CDK_DEFAULT_ACCOUNT"`
	Region  string `env:"CDK_DEFAULT_REGION"`
}

// AccountPtr returns the account as a jsii string pointer, nil when unknown so that
// stacks stay environment-agnostic for the account.
func (e Environment) AccountPtr() *string {
	if e.Account == "" {
		return nil
	}
	return jsii.String(e.Account)
}

// LoadEnvironment parses the CDK environment variables.
func LoadEnvironment() (Environment, error) {
	var e Environment
	if err := env.Parse(&e); err != nil {
		return Environment{}, errors.Wrap(err, "failed to parse CDK environment")
	}
	return e, nil
}

// EnvironmentFrom parses the CDK environment variables from the given map, for tests.
func EnvironmentFrom(vars map[string]string) (Environment, error) {
	var e Environment
	if err := env.ParseWithOptions(&e, env.Options{Environment: vars}); err != nil {
		return Environment{}, errors.Wrap(err, "failed to parse CDK environment")
	}
	return e, nil
}
