package cfscdkcommon

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// NewAccessLogBucket creates a bucket that CloudFront can deliver access logs to.
// Objects always expire after AccessLogRetentionDays. When destroy is true the bucket
// and its objects are removed together with the stack, otherwise the bucket is retained.
func NewAccessLogBucket(scope constructs.Construct, id string, bucketName *string, destroy bool) awss3.Bucket {
	removal := awscdk.RemovalPolicy_RETAIN
	if destroy {
		removal = awscdk.RemovalPolicy_DESTROY
	}

	return awss3.NewBucket(scope, jsii.String(id), &awss3.BucketProps{
		BucketName:        bucketName,
		RemovalPolicy:     removal,
		AutoDeleteObjects: jsii.Bool(destroy),
		AccessControl:     awss3.BucketAccessControl_LOG_DELIVERY_WRITE,
		ObjectOwnership:   awss3.ObjectOwnership_OBJECT_WRITER,
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		EnforceSSL:        jsii.Bool(true),
		LifecycleRules: &[]*awss3.LifecycleRule{{
			Id:         jsii.String("rule"),
			Enabled:    jsii.Bool(true),
			Expiration: awscdk.Duration_Days(jsii.Number(AccessLogRetentionDays)),
		}},
	})
}
