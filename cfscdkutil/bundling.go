package cfscdkutil

import (
	"github.com/aws/aws-cdk-go/awscdklambdagoalpha/v2"
	"github.com/aws/jsii-runtime-go"
)

// ReproducibleGoBundling returns bundling options that produce byte-identical Lambda
// binaries for identical sources.
func ReproducibleGoBundling() *awscdklambdagoalpha.BundlingOptions {
	return &awscdklambdagoalpha.BundlingOptions{
		GoBuildFlags: jsii.Strings(
			"-trimpath",
			`-ldflags "-s -w -buildid="`,
		),
		Environment: &map[string]*string{
			"CGO_ENABLED": jsii.String("0"),
			"GOFLAGS":     jsii.String("-mod=readonly"),
		},
	}
}
