package cfscdksite

import (
	"maps"
	"slices"
	"strings"

	"github.com/advdv/cfsites/cfscdk/cfscdkcommon"
	"github.com/advdv/cfsites/cfscdkutil"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
)

// OriginAccess selects how CloudFront authenticates against the site buckets.
type OriginAccess string

const (
	// OriginAccessControl signs origin requests with the shared origin access control.
	OriginAccessControl OriginAccess = "control"
	// OriginAccessIdentity uses the shared legacy origin access identity.
	OriginAccessIdentity OriginAccess = "identity"
)

// DefaultInvalidatorEntry is the Go package built for the upload invalidator, relative
// to the directory the CDK app runs in.
const DefaultInvalidatorEntry = "../cmd/cfsinvalidate"

// Domain configures a custom domain for the distribution.
type Domain struct {
	// Name is the domain served by the site, the URL prefix is prepended to it.
	Name string `validate:"required,fqdn"`
	// HostedZoneID of the zone containing Name.
	HostedZoneID string
	// HostedZoneName is the apex of the zone, defaults to Name.
	HostedZoneName string `validate:"omitempty,fqdn"`
	// CertificateARN of an existing us-east-1 certificate.
	CertificateARN string
}

// Props configures a Site.
type Props struct {
	// SiteName prefixes every named resource of the site.
	SiteName string `validate:"required,max=20,sitename"`
	// Common holds the shared resources created in the common stack.
	Common cfscdkcommon.Common `validate:"required"`
	// Origins maps a path pattern such as "/sub-site/*" to a sub-site name. Every
	// sub-site gets its own bucket and behavior.
	Origins map[string]string `validate:"dive,keys,pathpattern,endkeys,required,max=10,sitename"`
	// DeploymentEnv is part of every resource and export name, so the environments of
	// one account do not collide. Defaults to cfscdkutil.DefaultDeploymentEnv.
	DeploymentEnv string `validate:"omitempty,max=8,alphanum,lowercase"`

	// Dev destroys buckets with the stack and disables caching.
	Dev bool
	// DisableCache uses the CACHING_DISABLED policy for all behaviors.
	DisableCache bool
	// OriginAccess defaults to OriginAccessControl.
	OriginAccess OriginAccess `validate:"omitempty,oneof=control identity"`
	// DisableWebACL does not attach the common web ACL.
	DisableWebACL bool
	// PriceClass is 100 (default), 200 or All.
	PriceClass string `validate:"omitempty,oneof=100 200 All"`

	// SPA rewrites extension-less URIs to index.html.
	SPA bool
	// SPARootSegment serves "/<first segment>/index.html" instead of "/index.html" for
	// SPA fallbacks, for apps that are deployed in one folder per route.
	SPARootSegment bool
	// SPAOriginResponse adds Lambda@Edge functions that answer 403/404 with the index
	// of the behavior they are attached to.
	SPAOriginResponse bool
	// DisableBareRedirect skips the redirect of "/sub-site" to "/sub-site/".
	DisableBareRedirect bool

	// SeparateAccessLog writes access logs to a bucket owned by the site.
	SeparateAccessLog bool

	// URLPrefix is prepended to the domain name, e.g. "www".
	URLPrefix string `validate:"omitempty,dnslabel"`
	// Domain is optional. Without it the site is served from the cloudfront.net name.
	Domain *Domain

	// ContentDir is uploaded to the content bucket on deploy.
	ContentDir string `validate:"omitempty,dir"`
	// InvalidateOnUpload invalidates the distribution when objects are uploaded to any site bucket.
	InvalidateOnUpload bool
	// InvalidatorEntry overwrites DefaultInvalidatorEntry.
	InvalidatorEntry string
}

// FQDN returns the domain served by the site, or an empty string without a domain.
func (p Props) FQDN() string {
	if p.Domain == nil {
		return ""
	}
	if p.URLPrefix == "" {
		return p.Domain.Name
	}
	return p.URLPrefix + "." + p.Domain.Name
}

// Patterns returns the origin path patterns in the order their behaviors are added.
func (p Props) Patterns() []string {
	return slices.Sorted(maps.Keys(p.Origins))
}

// Name returns the lowercase name of a site resource in a deployment environment,
// e.g. "docs-prod-distributionid".
func Name(siteName, deploymentEnv, resource string) string {
	return strings.ToLower(siteName + "-" + deploymentEnv + "-" + resource)
}

func (p Props) deploymentEnv() string {
	if p.DeploymentEnv == "" {
		return cfscdkutil.DefaultDeploymentEnv
	}
	return p.DeploymentEnv
}

func (p Props) originAccess() OriginAccess {
	if p.OriginAccess == "" {
		return OriginAccessControl
	}
	return p.OriginAccess
}

func (p Props) priceClass() awscloudfront.PriceClass {
	switch p.PriceClass {
	case "200":
		return awscloudfront.PriceClass_PRICE_CLASS_200
	case "All":
		return awscloudfront.PriceClass_PRICE_CLASS_ALL
	default:
		return awscloudfront.PriceClass_PRICE_CLASS_100
	}
}

func (p Props) invalidatorEntry() string {
	if p.InvalidatorEntry == "" {
		return DefaultInvalidatorEntry
	}
	return p.InvalidatorEntry
}
