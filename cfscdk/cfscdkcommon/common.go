// Package cfscdkcommon provides the resources shared by every site: the origin
// access control (and the legacy origin access identity), the CloudFront access-log
// bucket and an optional WAF web ACL.
//
// Create it once, in the common stack, and hand it to each site.
package cfscdkcommon

import (
	"strings"

	"github.com/advdv/cfsites/cfscdkutil"
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awswafv2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// AccessLogRetentionDays is how long access logs are kept before they expire.
const AccessLogRetentionDays = 90

// Web ACL scopes.
const (
	ScopeCloudFront = "CLOUDFRONT"
	ScopeRegional   = "REGIONAL"
)

// DefaultOriginAccessControlName is used when Props.OriginAccessControlName is empty.
// It is prefixed with the namespace.
const DefaultOriginAccessControlName = "S3AccessControl"

// ErrWebACLRegion is returned when a CLOUDFRONT scoped web ACL is requested outside
// of us-east-1. CloudFront only accepts web ACLs from that region.
var ErrWebACLRegion = errors.New("CLOUDFRONT scoped web ACLs can only be created in " + cfscdkutil.CloudFrontRegion)

// ManagedRuleGroup references a managed WAF rule group.
type ManagedRuleGroup struct {
	// Name of the rule group, e.g. "AWSManagedRulesCommonRuleSet".
	Name string `validate:"required,alphanum"`
	// Vendor of the rule group, e.g. "AWS".
	Vendor string `validate:"required"`
	// MetricSuffix names the rule and its metric. Derived from Name when empty.
	MetricSuffix string `validate:"omitempty,alphanum"`
}

// CommonRuleSet is the managed rule group attached when none are configured.
var CommonRuleSet = ManagedRuleGroup{
	Name:         "AWSManagedRulesCommonRuleSet",
	Vendor:       "AWS",
	MetricSuffix: "CRS",
}

// Common provides access to the shared resources.
type Common interface {
	// OriginAccessControl returns the signed-request access control for S3 origins.
	OriginAccessControl() awscloudfront.CfnOriginAccessControl
	// OriginAccessIdentity returns the legacy identity for S3 origins.
	OriginAccessIdentity() awscloudfront.IOriginAccessIdentity
	// AccessLogBucket returns the bucket receiving CloudFront access logs.
	AccessLogBucket() awss3.IBucket
	// WebACL returns the web ACL, or nil when it is disabled.
	WebACL() awswafv2.CfnWebACL
	// WebACLArn returns the ARN of the web ACL, or nil when it is disabled.
	WebACLArn() *string
}

// Props configures the common resources.
type Props struct {
	// Namespace prefixes the names that must be unique in the account, such as
	// "sites-prod". Every deployment environment uses its own namespace.
	Namespace string `validate:"omitempty,max=24"`
	// DisableWebACL skips creating the web ACL.
	DisableWebACL bool
	// WebACLScope is CLOUDFRONT (default) or REGIONAL.
	WebACLScope string `validate:"omitempty,oneof=CLOUDFRONT REGIONAL"`
	// ManagedRuleGroups attached to the web ACL in order. Defaults to CommonRuleSet.
	ManagedRuleGroups []ManagedRuleGroup `validate:"dive"`
	// OriginAccessControlName must be unique in the account. Defaults to DefaultOriginAccessControlName.
	OriginAccessControlName string `validate:"omitempty,max=64"`
}

type common struct {
	oac       awscloudfront.CfnOriginAccessControl
	oai       awscloudfront.OriginAccessIdentity
	accessLog awss3.Bucket
	webACL    awswafv2.CfnWebACL
}

// New creates the common resources. Props are validated before any construct is created.
func New(scope constructs.Construct, props Props) (Common, error) {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(props); err != nil {
		return nil, errors.Wrap(err, "invalid common resources props")
	}
	if props.WebACLScope == "" {
		props.WebACLScope = ScopeCloudFront
	}
	if len(props.ManagedRuleGroups) == 0 {
		props.ManagedRuleGroups = []ManagedRuleGroup{CommonRuleSet}
	}
	if props.OriginAccessControlName == "" {
		props.OriginAccessControlName = props.name(DefaultOriginAccessControlName)
	}

	stack := awscdk.Stack_Of(scope)
	if !props.DisableWebACL && props.WebACLScope == ScopeCloudFront &&
		!cfscdkutil.InRegion(stack, cfscdkutil.CloudFrontRegion) {
		return nil, errors.Wrapf(ErrWebACLRegion,
			"stack region is %s, disable the web ACL or use the REGIONAL scope", *stack.Region())
	}

	scope = constructs.NewConstruct(scope, jsii.String("Common"))
	con := &common{}

	con.oac = awscloudfront.NewCfnOriginAccessControl(scope, jsii.String("S3AccessControl"),
		&awscloudfront.CfnOriginAccessControlProps{
			OriginAccessControlConfig: &awscloudfront.CfnOriginAccessControl_OriginAccessControlConfigProperty{
				Name:                          jsii.String(props.OriginAccessControlName),
				OriginAccessControlOriginType: jsii.String("s3"),
				SigningBehavior:               jsii.String("always"),
				SigningProtocol:               jsii.String("sigv4"),
				Description:                   jsii.String("Allow cloudfront access to S3 buckets using Bucket Policies"),
			},
		})

	con.oai = awscloudfront.NewOriginAccessIdentity(scope, jsii.String("S3AccessIdentity"),
		&awscloudfront.OriginAccessIdentityProps{
			Comment: jsii.String("Legacy access to S3 buckets for sites not using origin access control"),
		})

	con.accessLog = NewAccessLogBucket(scope, "AccessLog",
		jsii.String(strings.ToLower(props.name("cloudfront-accesslog"))+"-"+*stack.Account()), true)

	if !props.DisableWebACL {
		con.webACL = newWebACL(scope, props)
	}

	return con, nil
}

// name prefixes name with the namespace, when one is set.
func (p Props) name(name string) string {
	if p.Namespace == "" {
		return name
	}
	return p.Namespace + "-" + name
}

func newWebACL(scope constructs.Construct, props Props) awswafv2.CfnWebACL {
	rules := make([]*awswafv2.CfnWebACL_RuleProperty, 0, len(props.ManagedRuleGroups))
	for i, group := range props.ManagedRuleGroups {
		suffix := group.MetricSuffix
		if suffix == "" {
			suffix = metricSuffix(group.Name)
		}

		rules = append(rules, &awswafv2.CfnWebACL_RuleProperty{
			Name:     jsii.String(suffix + "Rule"),
			Priority: jsii.Number(float64(i)),
			Statement: &awswafv2.CfnWebACL_StatementProperty{
				ManagedRuleGroupStatement: &awswafv2.CfnWebACL_ManagedRuleGroupStatementProperty{
					Name:       jsii.String(group.Name),
					VendorName: jsii.String(group.Vendor),
				},
			},
			OverrideAction: &awswafv2.CfnWebACL_OverrideActionProperty{
				None: map[string]any{},
			},
			VisibilityConfig: &awswafv2.CfnWebACL_VisibilityConfigProperty{
				CloudWatchMetricsEnabled: jsii.Bool(true),
				MetricName:               jsii.String("MetricForWebACLCDK-" + suffix),
				SampledRequestsEnabled:   jsii.Bool(true),
			},
		})
	}

	return awswafv2.NewCfnWebACL(scope, jsii.String("acl-1"), &awswafv2.CfnWebACLProps{
		DefaultAction: &awswafv2.CfnWebACL_DefaultActionProperty{
			Allow: &awswafv2.CfnWebACL_AllowActionProperty{},
		},
		Scope: jsii.String(props.WebACLScope),
		Rules: &rules,
		VisibilityConfig: &awswafv2.CfnWebACL_VisibilityConfigProperty{
			CloudWatchMetricsEnabled: jsii.Bool(true),
			MetricName:               jsii.String("MetricForWebACLCDK"),
			SampledRequestsEnabled:   jsii.Bool(true),
		},
	})
}

// metricSuffix shortens a managed rule group name: "AWSManagedRulesKnownBadInputsRuleSet"
// becomes "KnownBadInputs".
func metricSuffix(name string) string {
	s := strings.TrimPrefix(name, "AWSManagedRules")
	s = strings.TrimSuffix(s, "RuleSet")
	if s == "" {
		return name
	}
	return s
}

func (c *common) OriginAccessControl() awscloudfront.CfnOriginAccessControl {
	return c.oac
}

func (c *common) OriginAccessIdentity() awscloudfront.IOriginAccessIdentity {
	return c.oai
}

func (c *common) AccessLogBucket() awss3.IBucket {
	return c.accessLog
}

func (c *common) WebACL() awswafv2.CfnWebACL {
	return c.webACL
}

func (c *common) WebACLArn() *string {
	if c.webACL == nil {
		return nil
	}
	return c.webACL.AttrArn()
}
