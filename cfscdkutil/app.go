package cfscdkutil

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/cockroachdb/errors"
)

// CommonStackName is the name of the stack holding the resources shared by all projects.
const CommonStackName = "Common"

// CommonConstructor creates the common infrastructure in a given stack.
// It returns the common construct that will be passed to project constructors.
type CommonConstructor[C any] func(stack awscdk.Stack) (C, error)

// ProjectConstructor creates the infrastructure of one project in a given stack.
// It receives the common construct and the project name.
type ProjectConstructor[C any] func(stack awscdk.Stack, common C, project string) error

// AppConfig configures the CDK app setup.
type AppConfig struct {
	// Prefix for context keys (e.g., "cfsites-" for "cfsites-qualifier", "cfsites-region", etc.)
	Prefix string
	// AllowedEnvs restricts the deployment-env context value. Empty allows any value.
	AllowedEnvs []string
}

// SetupApp configures a CDK app with one common stack and one stack per project.
//
// It creates:
//  1. The common stack using the CommonConstructor
//  2. A stack for each selected project, depending on the common stack
//
// Errors of all constructors are collected and returned together. The type parameter
// C represents the common construct type returned by CommonConstructor.
func SetupApp[C any](
	app awscdk.App,
	cfg *Config,
	env Environment,
	projects []string,
	newCommon CommonConstructor[C],
	newProject ProjectConstructor[C],
) error {
	StoreConfig(app, cfg)

	selected, err := cfg.SelectedProjects(projects)
	if err != nil {
		return err
	}

	commonStack := NewStackFromConfig(app, cfg, env, CommonStackName)
	common, err := newCommon(commonStack)
	if err != nil {
		return errors.Wrap(err, "failed to create common resources")
	}

	var errs error
	for _, project := range selected {
		projectStack := NewStackFromConfig(app, cfg, env, project)
		projectStack.AddDependency(commonStack, jsii.String("Common resources must deploy first"))

		if err := newProject(projectStack, common, project); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "project %q", project))
		}
	}

	return errs
}
