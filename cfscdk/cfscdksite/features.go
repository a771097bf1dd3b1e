package cfscdksite

import (
	"github.com/advdv/cfsites/cfscdkutil"
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53targets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3assets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3deployment"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3notifications"
	"github.com/aws/aws-cdk-go/awscdklambdagoalpha/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/iancoleman/strcase"
)

// newAliasRecords points the custom domain at the distribution, for IPv4 and IPv6.
func (s *site) newAliasRecords() {
	if s.cert == nil || s.cert.HostedZone() == nil {
		return
	}

	target := awsroute53.RecordTarget_FromAlias(awsroute53targets.NewCloudFrontTarget(s.dist))
	awsroute53.NewARecord(s.stack, jsii.String("AliasRecord"), &awsroute53.ARecordProps{
		Zone:       s.cert.HostedZone(),
		RecordName: jsii.String(s.cert.DomainName()),
		Target:     target,
	})
	awsroute53.NewAaaaRecord(s.stack, jsii.String("AliasRecordIPv6"), &awsroute53.AaaaRecordProps{
		Zone:       s.cert.HostedZone(),
		RecordName: jsii.String(s.cert.DomainName()),
		Target:     target,
	})
}

// newContentDeployment uploads ContentDir into the content bucket. The asset is
// keyed by the directory hash so unchanged content is not uploaded again.
func (s *site) newContentDeployment(hash string, excludes []string) {
	awss3deployment.NewBucketDeployment(s.stack, jsii.String("ContentDeployment"),
		&awss3deployment.BucketDeploymentProps{
			Sources: &[]awss3deployment.ISource{
				awss3deployment.Source_Asset(jsii.String(s.props.ContentDir), &awss3assets.AssetOptions{
					AssetHash:     jsii.String(hash),
					AssetHashType: awscdk.AssetHashType_CUSTOM,
					Exclude:       jsii.Strings(excludes...),
				}),
			},
			DestinationBucket: s.content,
			Distribution:      s.dist,
			DistributionPaths: jsii.Strings("/*"),
			Prune:             jsii.Bool(true),
			RetainOnDelete:    jsii.Bool(!s.props.Dev),
		})

	cfscdkutil.LogInfo(s.stack, "ContentDeployment", "uploading %s to the content bucket of %s (hash %s)",
		s.props.ContentDir, s.props.SiteName, hash)
}

// newUploadInvalidator subscribes a Go Lambda to uploads into any site bucket. It
// invalidates the uploaded paths, prefixed by the behavior the bucket serves.
func (s *site) newUploadInvalidator() {
	var prefixes []map[string]*string
	for _, bucket := range s.buckets() {
		prefixes = append(prefixes, map[string]*string{
			"bucket": bucket.BucketName(),
			"prefix": jsii.String(s.prefixes()[bucket]),
		})
	}

	fn := awscdklambdagoalpha.NewGoFunction(s.stack, jsii.String("UploadInvalidator"),
		&awscdklambdagoalpha.GoFunctionProps{
			Entry:        jsii.String(s.props.invalidatorEntry()),
			Runtime:      awslambda.Runtime_PROVIDED_AL2023(),
			Architecture: awslambda.Architecture_ARM_64(),
			Bundling:     cfscdkutil.ReproducibleGoBundling(),
			MemorySize:   jsii.Number(128),
			Timeout:      awscdk.Duration_Seconds(jsii.Number(30)),
			Description:  jsii.String("Invalidates " + s.props.SiteName + " when content is uploaded"),
			Environment: &map[string]*string{
				"DISTRIBUTION_ID": s.dist.DistributionId(),
				"PATH_PREFIXES":   s.stack.ToJsonString(prefixes, nil),
			},
		})

	s.dist.GrantCreateInvalidation(fn)
	for _, bucket := range s.buckets() {
		bucket.AddEventNotification(awss3.EventType_OBJECT_CREATED, awss3notifications.NewLambdaDestination(fn))
	}
}

func (s *site) output(id string, value *string, description string) {
	awscdk.NewCfnOutput(s.stack, jsii.String(id+"Output"), &awscdk.CfnOutputProps{
		Value:       value,
		Description: jsii.String(s.props.SiteName + " " + description),
		ExportName:  s.name(id),
	})
}

func (s *site) newOutputs() {
	s.output("CloudFrontURL", s.url, "CloudFront URL")
	s.output("DistributionId", s.dist.DistributionId(), "distribution id")
	s.output("LoggingBucket", s.accessLog.BucketArn(), "Logging bucket")
	s.output("SiteBucket", s.content.BucketArn(), "Site bucket")
	s.output("DeployerRole", s.deployer.RoleArn(), "deployer role")

	for _, pattern := range s.props.Patterns() {
		sub := strcase.ToCamel(s.props.Origins[pattern])
		s.output(sub+"Bucket", s.origins[pattern].BucketArn(), sub+" bucket")
	}
}
