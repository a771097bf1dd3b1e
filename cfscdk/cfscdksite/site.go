// Package cfscdksite provides the Site construct: a nested stack holding the buckets,
// the CloudFront distribution and the supporting resources of one static site.
//
// A site serves its content bucket on the default behavior and one extra bucket per
// origin mapping ("/sub-site/*" -> "subsite"). Buckets are only readable by the
// distribution, either through the shared origin access control or the legacy
// origin access identity of the common resources.
package cfscdksite

import (
	"strconv"

	"github.com/advdv/cfsites/cfscdk/cfscdkcert"
	"github.com/advdv/cfsites/cfscdk/cfscdkcommon"
	"github.com/advdv/cfsites/cfscdk/cfscdkrewrite"
	"github.com/advdv/cfsites/cfscdkutil"
	"github.com/advdv/cfsites/internal/dirhash"
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/cockroachdb/errors"
	"github.com/iancoleman/strcase"
)

// Site provides access to the resources of a site.
type Site interface {
	// Stack returns the nested stack holding the site.
	Stack() awscdk.NestedStack
	// Distribution returns the CloudFront distribution.
	Distribution() awscloudfront.Distribution
	// ContentBucket returns the bucket behind the default behavior.
	ContentBucket() awss3.Bucket
	// OriginBucket returns the bucket of a path pattern, or nil.
	OriginBucket(pattern string) awss3.Bucket
	// AccessLogBucket returns the bucket receiving the access logs of the site.
	AccessLogBucket() awss3.IBucket
	// DeployerRole returns the role allowed to upload content and invalidate the distribution.
	DeployerRole() awsiam.Role
	// Certificate returns the certificate of the custom domain, or nil.
	Certificate() cfscdkcert.Certificate
	// URL returns the https URL the site is served on.
	URL() *string
}

type site struct {
	props     Props
	stack     awscdk.NestedStack
	account   *string
	dist      awscloudfront.Distribution
	content   awss3.Bucket
	origins   map[string]awss3.Bucket
	accessLog awss3.IBucket
	deployer  awsiam.Role
	cert      cfscdkcert.Certificate
	url       *string

	// number of origins bound to the distribution, in binding order
	numOrigins int
}

// New creates a Site. Props are validated first: nothing is added to scope when
// they are invalid, including a custom domain that has neither a hosted zone nor
// a certificate ARN, or whose certificate cannot live in us-east-1.
func New(scope constructs.Construct, props Props) (Site, error) {
	if err := props.validate(); err != nil {
		return nil, err
	}
	if props.Domain != nil {
		if err := props.certProps().CheckRegion(scope); err != nil {
			return nil, err
		}
	}

	var contentHash string
	var contentExcludes []string
	if props.ContentDir != "" {
		var err error
		hasher := dirhash.New()
		if contentHash, err = hasher.Hash(props.ContentDir); err != nil {
			return nil, errors.Wrapf(err, "failed to hash content of site %q", props.SiteName)
		}
		if contentExcludes, err = hasher.Patterns(props.ContentDir); err != nil {
			return nil, errors.Wrapf(err, "failed to read ignore patterns of site %q", props.SiteName)
		}
	}

	parent := awscdk.Stack_Of(scope)
	con := &site{
		props:   props,
		account: parent.Account(),
		origins: map[string]awss3.Bucket{},
	}

	con.stack = awscdk.NewNestedStack(scope, jsii.String(props.SiteName+"-Site"), &awscdk.NestedStackProps{
		Description: jsii.String("Static site " + props.SiteName),
	})

	con.deployer = awsiam.NewRole(con.stack, jsii.String("DeployerRole"), &awsiam.RoleProps{
		RoleName:    con.name("deployerrole"),
		AssumedBy:   awsiam.NewAccountRootPrincipal(),
		Description: jsii.String("Uploads content and invalidates the distribution of " + props.SiteName),
	})

	con.content = con.newBucket("WebContentBucket", "webcontent-bucket")
	for _, pattern := range props.Patterns() {
		sub := props.Origins[pattern]
		con.origins[pattern] = con.newBucket(strcase.ToCamel(sub)+"Bucket", sub+"-bucket")
	}

	if props.SeparateAccessLog {
		con.accessLog = cfscdkcommon.NewAccessLogBucket(con.stack, "AccessLogBucket",
			con.regionName("accesslog-bucket"), props.Dev)
	} else {
		con.accessLog = props.Common.AccessLogBucket()
	}

	if props.Domain != nil {
		var err error
		if con.cert, err = cfscdkcert.New(con.stack, props.certProps()); err != nil {
			return nil, err // checked during validation
		}
	} else if props.URLPrefix != "" {
		cfscdkutil.LogWarning(con.stack, "Site", "url prefix %q of site %s has no effect without a domain",
			props.URLPrefix, props.SiteName)
	}

	if err := con.newDistribution(); err != nil {
		return nil, err
	}

	con.grantDistributionRead()
	if props.originAccess() == OriginAccessControl {
		con.swapToOriginAccessControl()
	} else {
		cfscdkutil.LogWarning(con.stack, "Site",
			"site %s uses the legacy origin access identity, consider origin access control", props.SiteName)
	}

	con.grantDeployer()
	con.newAliasRecords()

	if props.ContentDir != "" {
		con.newContentDeployment(contentHash, contentExcludes)
	}
	if props.InvalidateOnUpload {
		con.newUploadInvalidator()
	}

	con.newOutputs()

	return con, nil
}

// name returns the lowercase name of a site resource.
func (s *site) name(resource string) *string {
	return jsii.String(Name(s.props.SiteName, s.props.deploymentEnv(), resource))
}

// regionName returns a site resource name that is unique across accounts. Only the
// name part is lowercased, the account may be a token.
func (s *site) regionName(resource string) *string {
	return jsii.String(Name(s.props.SiteName, s.props.deploymentEnv(), resource) + "-" + *s.account)
}

func (s *site) removal() (awscdk.RemovalPolicy, bool) {
	if s.props.Dev {
		return awscdk.RemovalPolicy_DESTROY, true
	}
	return awscdk.RemovalPolicy_RETAIN, false
}

func (s *site) newBucket(id, resource string) awss3.Bucket {
	policy, autoDelete := s.removal()

	return awss3.NewBucket(s.stack, jsii.String(id), &awss3.BucketProps{
		BucketName:        s.regionName(resource),
		Versioned:         jsii.Bool(true),
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		EnforceSSL:        jsii.Bool(true),
		RemovalPolicy:     policy,
		AutoDeleteObjects: jsii.Bool(autoDelete),
		LifecycleRules: &[]*awss3.LifecycleRule{{
			Id:      jsii.String("noncurrent-to-glacier"),
			Enabled: jsii.Bool(true),
			NoncurrentVersionTransitions: &[]*awss3.NoncurrentVersionTransition{{
				StorageClass:    awss3.StorageClass_GLACIER(),
				TransitionAfter: awscdk.Duration_Days(jsii.Number(90)),
			}},
		}},
	})
}

// distributionArn returns the ARN bucket policies and grants are conditioned on.
func (s *site) distributionArn() *string {
	return jsii.String("arn:" + *awscdk.Aws_PARTITION() + ":cloudfront::" + *s.account +
		":distribution/" + *s.dist.DistributionId())
}

// buckets returns the content bucket followed by the origin buckets in behavior order.
func (s *site) buckets() []awss3.Bucket {
	buckets := []awss3.Bucket{s.content}
	for _, pattern := range s.props.Patterns() {
		buckets = append(buckets, s.origins[pattern])
	}
	return buckets
}

// grantDistributionRead allows the CloudFront service to read every site bucket on
// behalf of this distribution only.
func (s *site) grantDistributionRead() {
	for _, bucket := range s.buckets() {
		bucket.AddToResourcePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
			Sid:        jsii.String("AllowCloudFrontServicePrincipalReadOnly"),
			Effect:     awsiam.Effect_ALLOW,
			Actions:    jsii.Strings("s3:GetObject"),
			Principals: &[]awsiam.IPrincipal{awsiam.NewServicePrincipal(jsii.String("cloudfront.amazonaws.com"), nil)},
			Resources:  jsii.Strings(*bucket.ArnForObjects(jsii.String("*"))),
			Conditions: &map[string]any{
				"StringEquals": map[string]any{"AWS:SourceArn": s.distributionArn()},
			},
		}))
	}
}

// swapToOriginAccessControl patches every origin of the distribution to sign its
// requests with the common origin access control instead of an identity.
func (s *site) swapToOriginAccessControl() {
	cfn := s.dist.Node().DefaultChild().(awscloudfront.CfnDistribution)
	oacID := s.props.Common.OriginAccessControl().AttrId()

	for i := range s.numOrigins {
		path := "DistributionConfig.Origins." + strconv.Itoa(i)
		cfn.AddPropertyOverride(jsii.String(path+".S3OriginConfig.OriginAccessIdentity"), jsii.String(""))
		cfn.AddPropertyOverride(jsii.String(path+".OriginAccessControlId"), oacID)
	}
}

func (s *site) grantDeployer() {
	for _, bucket := range s.buckets() {
		bucket.GrantReadWrite(s.deployer, nil)
	}
	s.dist.GrantCreateInvalidation(s.deployer)
}

// prefixes returns the viewer path prefix of every site bucket.
func (s *site) prefixes() map[awss3.Bucket]string {
	prefixes := map[awss3.Bucket]string{s.content: ""}
	for pattern, bucket := range s.origins {
		prefix, _ := cfscdkrewrite.ParsePathPattern(pattern) // validated
		prefixes[bucket] = prefix
	}
	return prefixes
}

func (s *site) Stack() awscdk.NestedStack { return s.stack }
func (s *site) Distribution() awscloudfront.Distribution { return s.dist }
func (s *site) ContentBucket() awss3.Bucket { return s.content }
func (s *site) OriginBucket(pattern string) awss3.Bucket { return s.origins[pattern] }
func (s *site) AccessLogBucket() awss3.IBucket { return s.accessLog }
func (s *site) DeployerRole() awsiam.Role { return s.deployer }
func (s *site) Certificate() cfscdkcert.Certificate { return s.cert }
func (s *site) URL() *string { return s.url }
