package cfscdkutil

import (
	"fmt"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/iancoleman/strcase"
)

// StackName returns the qualified name for a stack, e.g. "mysitesUse1DevCommon".
func StackName(cfg *Config, name string) string {
	return StackPrefix(cfg.Qualifier, cfg.RegionIdent, cfg.DeploymentEnv) + strcase.ToCamel(name)
}

// StackPrefix returns the part of every stack name that is shared across the app.
// Each deployment environment gets its own set of stacks.
func StackPrefix(qualifier, regionIdent, deploymentEnv string) string {
	return strcase.ToLowerCamel(fmt.Sprintf("%s-%s-%s", qualifier, regionIdent, deploymentEnv))
}

// Namespace returns the prefix of names that must be unique per account, such as
// the shared bucket and origin access control names.
func (c *Config) Namespace() string {
	return strings.ToLower(c.Qualifier + "-" + c.DeploymentEnv)
}

// NewStackFromConfig creates a new CDK Stack using a validated Config. The name is
// converted to CamelCase and must not be empty.
func NewStackFromConfig(scope constructs.Construct, cfg *Config, env Environment, name string) awscdk.Stack {
	if strings.TrimSpace(name) == "" {
		panic("stack name must not be empty")
	}

	stackName := StackName(cfg, name)
	description := fmt.Sprintf("%s (region: %s, env: %s)",
		stackName, cfg.Region, cfg.DeploymentEnv)

	stack := awscdk.NewStack(scope, jsii.String(stackName), &awscdk.StackProps{
		Env: &awscdk.Environment{
			Account: env.AccountPtr(),
			Region:  jsii.String(cfg.Region),
		},
		Description: jsii.String(description),
		Synthesizer: awscdk.NewDefaultStackSynthesizer(&awscdk.DefaultStackSynthesizerProps{
			Qualifier: jsii.String(cfg.Qualifier),
		}),
		Tags: &map[string]*string{
			"cfsites:env": jsii.String(cfg.DeploymentEnv),
		},
	})

	awscdk.Annotations_Of(stack).AcknowledgeWarning(
		jsii.String("@aws-cdk/aws-lambda-go-alpha:goBuildFlagsSecurityWarning"),
		jsii.String("Build flags are controlled by cfscdkutil.ReproducibleGoBundling and are safe"),
	)

	return stack
}
