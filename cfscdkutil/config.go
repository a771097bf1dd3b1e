package cfscdkutil

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// DefaultDeploymentEnv is used when the deployment-env context key is absent.
const DefaultDeploymentEnv = "dev"

// DefaultManifest is used when the manifest context key is absent.
const DefaultManifest = "sites.yml"

// Config holds all CDK context values validated upfront.
type Config struct {
	Prefix        string `validate:"required"`
	Qualifier     string `validate:"required,max=10"`
	Region        string `validate:"required"`
	RegionIdent   string `validate:"required,alphanum,lowercase"`
	DeploymentEnv string `validate:"required,max=8,alphanum,lowercase"`
	Manifest      string `validate:"required"`
	Projects      []string
}

// configContextKey is the well-known key used to store validated Config in the construct tree.
const configContextKey = "__cfscdkutil_config"

// StoreConfig stores a validated Config in the app's context so it can be retrieved
// anywhere in the construct tree via ConfigFromScope.
func StoreConfig(app awscdk.App, cfg *Config) {
	app.Node().SetContext(jsii.String(configContextKey), cfg)
}

// ConfigFromScope retrieves the validated Config from the construct tree.
// It panics if Config was not stored (i.e., SetupApp was not called).
func ConfigFromScope(scope constructs.Construct) *Config {
	val := scope.Node().TryGetContext(jsii.String(configContextKey))
	if val == nil {
		panic("cfscdkutil.Config not found in construct tree - was SetupApp or StoreConfig called?")
	}
	cfg, ok := val.(*Config)
	if !ok {
		panic(fmt.Sprintf("cfscdkutil.Config has unexpected type %T", val))
	}
	return cfg
}

// NewConfig reads and validates all CDK context values.
// Returns an error if any required value is missing or invalid.
func NewConfig(scope constructs.Construct, cfg AppConfig) (*Config, error) {
	var readErrs []string

	c := &Config{Prefix: cfg.Prefix}

	c.Qualifier, readErrs = readContextString(scope, cfg.Prefix+"qualifier", readErrs)
	c.Region, readErrs = readContextString(scope, cfg.Prefix+"region", readErrs)
	c.RegionIdent, readErrs = readContextString(scope, cfg.Prefix+"region-ident", readErrs)
	c.DeploymentEnv, readErrs = readOptionalContextString(scope, cfg.Prefix+"deployment-env", DefaultDeploymentEnv, readErrs)
	c.Manifest, readErrs = readOptionalContextString(scope, cfg.Prefix+"manifest", DefaultManifest, readErrs)
	c.Projects = readOptionalFields(scope, cfg.Prefix+"projects")

	if len(readErrs) > 0 {
		return nil, errors.Newf("CDK context read errors:\n  - %s", strings.Join(readErrs, "\n  - "))
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterStructValidation(validateConfigEnv(cfg.AllowedEnvs), Config{})

	if err := validate.Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			msgs := make([]string, 0, len(validationErrs))
			for _, e := range validationErrs {
				msgs = append(msgs, formatValidationError(e))
			}
			return nil, errors.Newf("CDK context validation errors:\n  - %s", strings.Join(msgs, "\n  - "))
		}
		return nil, errors.Wrap(err, "CDK context validation failed")
	}

	return c, nil
}

// validateConfigEnv restricts DeploymentEnv to the allowed set, when one is given.
func validateConfigEnv(allowed []string) validator.StructLevelFunc {
	return func(sl validator.StructLevel) {
		cfg := sl.Current().Interface().(Config)
		if len(allowed) == 0 || cfg.DeploymentEnv == "" {
			return
		}
		if !slices.Contains(allowed, cfg.DeploymentEnv) {
			sl.ReportError(cfg.DeploymentEnv, "DeploymentEnv", "DeploymentEnv",
				"allowed_env", strings.Join(allowed, " "))
		}
	}
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "max":
		return fmt.Sprintf("%s exceeds maximum length of %s (got %q)", e.Field(), e.Param(), e.Value())
	case "alphanum", "lowercase":
		return fmt.Sprintf("%s must be lowercase alphanumeric (got %q)", e.Field(), e.Value())
	case "allowed_env":
		return fmt.Sprintf("%s must be one of [%s] (got %q)", e.Field(), e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed validation %q", e.Field(), e.Tag())
	}
}

func readContextString(scope constructs.Construct, key string, errs []string) (string, []string) {
	val := scope.Node().TryGetContext(jsii.String(key))
	if val == nil {
		return "", append(errs, fmt.Sprintf("context key %q is not set", key))
	}
	s, ok := val.(string)
	if !ok {
		return "", append(errs, fmt.Sprintf("context key %q must be a string, got %T", key, val))
	}
	return s, errs
}

func readOptionalContextString(scope constructs.Construct, key, def string, errs []string) (string, []string) {
	if scope.Node().TryGetContext(jsii.String(key)) == nil {
		return def, errs
	}
	return readContextString(scope, key, errs)
}
