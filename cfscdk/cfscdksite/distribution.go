package cfscdksite

import (
	"github.com/advdv/cfsites/cfscdk/cfscdkrewrite"
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront/experimental"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfrontorigins"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/jsii-runtime-go"
	"github.com/cockroachdb/errors"
	"github.com/iancoleman/strcase"
)

// ContentSecurityPolicy is sent with every response of a site.
const ContentSecurityPolicy = "default-src https:; default-src 'none'; script-src 'self'; connect-src 'self'; " +
	"img-src 'self' data; style-src 'self'; frame-ancestors 'self'; form-action 'self';"

func (s *site) newResponseHeadersPolicy() awscloudfront.ResponseHeadersPolicy {
	name := s.name("ResponseHeadersPolicy")

	return awscloudfront.NewResponseHeadersPolicy(s.stack, jsii.String("ResponseHeadersPolicy"),
		&awscloudfront.ResponseHeadersPolicyProps{
			ResponseHeadersPolicyName: name,
			Comment:                   jsii.String("A policy for " + *name),
			SecurityHeadersBehavior: &awscloudfront.ResponseSecurityHeadersBehavior{
				ContentSecurityPolicy: &awscloudfront.ResponseHeadersContentSecurityPolicy{
					ContentSecurityPolicy: jsii.String(ContentSecurityPolicy),
					Override:              jsii.Bool(true),
				},
				ContentTypeOptions: &awscloudfront.ResponseHeadersContentTypeOptions{
					Override: jsii.Bool(true),
				},
				FrameOptions: &awscloudfront.ResponseHeadersFrameOptions{
					FrameOption: awscloudfront.HeadersFrameOption_DENY,
					Override:    jsii.Bool(true),
				},
				ReferrerPolicy: &awscloudfront.ResponseHeadersReferrerPolicy{
					ReferrerPolicy: awscloudfront.HeadersReferrerPolicy_NO_REFERRER,
					Override:       jsii.Bool(true),
				},
				StrictTransportSecurity: &awscloudfront.ResponseHeadersStrictTransportSecurity{
					AccessControlMaxAge: awscdk.Duration_Seconds(jsii.Number(600)),
					IncludeSubdomains:   jsii.Bool(true),
					Override:            jsii.Bool(true),
				},
				XssProtection: &awscloudfront.ResponseHeadersXSSProtection{
					Protection: jsii.Bool(true),
					ModeBlock:  jsii.Bool(true),
					Override:   jsii.Bool(true),
				},
			},
			RemoveHeaders:            jsii.Strings("Server"),
			ServerTimingSamplingRate: jsii.Number(50),
		})
}

func (s *site) cachePolicy() awscloudfront.ICachePolicy {
	if s.props.DisableCache || s.props.Dev {
		return awscloudfront.CachePolicy_CACHING_DISABLED()
	}
	return awscloudfront.CachePolicy_CACHING_OPTIMIZED()
}

// newOrigin binds a bucket as an origin. With origin access control the origin is
// created with bucket defaults, which carry no identity, and the access control id
// is patched in after all origins are bound.
func (s *site) newOrigin(bucket awss3.Bucket) awscloudfront.IOrigin {
	s.numOrigins++
	if s.props.originAccess() == OriginAccessIdentity {
		return awscloudfrontorigins.S3BucketOrigin_WithOriginAccessIdentity(bucket,
			&awscloudfrontorigins.S3BucketOriginWithOAIProps{
				OriginAccessIdentity: s.props.Common.OriginAccessIdentity(),
			})
	}
	return awscloudfrontorigins.S3BucketOrigin_WithBucketDefaults(bucket, nil)
}

func (s *site) newFunction(id, comment string, opts cfscdkrewrite.Options) (awscloudfront.Function, error) {
	code, err := cfscdkrewrite.ViewerRequest(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to render %s function", id)
	}

	return awscloudfront.NewFunction(s.stack, jsii.String(id), &awscloudfront.FunctionProps{
		Code:    awscloudfront.FunctionCode_FromInline(jsii.String(code)),
		Runtime: awscloudfront.FunctionRuntime_JS_2_0(),
		Comment: jsii.String(comment),
	}), nil
}

func viewerRequest(fn awscloudfront.Function) *[]*awscloudfront.FunctionAssociation {
	if fn == nil {
		return nil
	}
	return &[]*awscloudfront.FunctionAssociation{{
		EventType: awscloudfront.FunctionEventType_VIEWER_REQUEST,
		Function:  fn,
	}}
}

func (s *site) newDistribution() error {
	headers := s.newResponseHeadersPolicy()
	cache := s.cachePolicy()
	edge, err := s.newOriginResponseEdgeLambdas("SPAOriginResponse", "")
	if err != nil {
		return err
	}

	var rootFn awscloudfront.Function
	if s.props.SPA {
		if rootFn, err = s.newFunction("SPAFallback", "SPA fallback of "+s.props.SiteName,
			cfscdkrewrite.Options{SPAFallback: true, SPARootSegment: s.props.SPARootSegment}); err != nil {
			return err
		}
	}

	props := &awscloudfront.DistributionProps{
		Comment: jsii.String(s.props.SiteName),
		DefaultBehavior: &awscloudfront.BehaviorOptions{
			Origin:                s.newOrigin(s.content),
			CachePolicy:           cache,
			ResponseHeadersPolicy: headers,
			ViewerProtocolPolicy:  awscloudfront.ViewerProtocolPolicy_REDIRECT_TO_HTTPS,
			FunctionAssociations:  viewerRequest(rootFn),
			EdgeLambdas:           edge,
		},
		DefaultRootObject: jsii.String(cfscdkrewrite.DefaultIndex),
		EnableIpv6:        jsii.Bool(true),
		Enabled:           jsii.Bool(true),
		EnableLogging:     jsii.Bool(true),
		LogBucket:         s.accessLog,
		LogFilePrefix:     jsii.String("accessLog/" + s.props.SiteName),
		PriceClass:        s.props.priceClass(),
	}
	if !s.props.DisableWebACL {
		props.WebAclId = s.props.Common.WebACLArn()
	}
	if s.cert != nil {
		props.DomainNames = jsii.Strings(s.cert.DomainName())
		props.Certificate = s.cert.Certificate()
	}

	s.dist = awscloudfront.NewDistribution(s.stack, jsii.String("CloudFront"), props)
	if s.cert != nil {
		s.url = jsii.String("https://" + s.cert.DomainName())
	} else {
		s.url = jsii.String("https://" + *s.dist.DistributionDomainName())
	}

	for _, pattern := range s.props.Patterns() {
		if err := s.addOriginBehaviors(pattern, cache, headers); err != nil {
			return err
		}
	}

	return nil
}

// addOriginBehaviors routes pattern to its bucket with the prefix stripped. Unless
// disabled, the bare prefix gets its own behavior that redirects to the directory.
func (s *site) addOriginBehaviors(
	pattern string,
	cache awscloudfront.ICachePolicy,
	headers awscloudfront.IResponseHeadersPolicy,
) error {
	prefix, err := cfscdkrewrite.ParsePathPattern(pattern)
	if err != nil {
		return err
	}

	id := strcase.ToCamel(s.props.Origins[pattern])
	origin := s.newOrigin(s.origins[pattern])

	rewrite, err := s.newFunction(id+"Rewrite", "Rewrite of "+pattern, cfscdkrewrite.Options{
		Prefix:         prefix,
		StripPrefix:    true,
		SPAFallback:    s.props.SPA,
		SPARootSegment: s.props.SPARootSegment,
	})
	if err != nil {
		return err
	}

	edge, err := s.newOriginResponseEdgeLambdas(id+"OriginResponse", prefix)
	if err != nil {
		return err
	}

	s.dist.AddBehavior(jsii.String(pattern), origin, &awscloudfront.AddBehaviorOptions{
		CachePolicy:           cache,
		ResponseHeadersPolicy: headers,
		ViewerProtocolPolicy:  awscloudfront.ViewerProtocolPolicy_REDIRECT_TO_HTTPS,
		FunctionAssociations:  viewerRequest(rewrite),
		EdgeLambdas:           edge,
	})

	if s.props.DisableBareRedirect {
		return nil
	}

	redirect, err := s.newFunction(id+"Redirect", "Redirect of "+prefix, cfscdkrewrite.Options{
		Prefix:       prefix,
		RedirectBare: true,
	})
	if err != nil {
		return err
	}

	s.dist.AddBehavior(jsii.String(prefix), origin, &awscloudfront.AddBehaviorOptions{
		CachePolicy:          awscloudfront.CachePolicy_CACHING_DISABLED(),
		ViewerProtocolPolicy: awscloudfront.ViewerProtocolPolicy_REDIRECT_TO_HTTPS,
		FunctionAssociations: viewerRequest(redirect),
	})

	return nil
}

// newOriginResponseEdgeLambdas returns the Lambda@Edge association that answers 403
// and 404 of single page apps with their index, or nil when it is disabled. Every
// behavior gets its own function since the index lives below the behavior prefix.
func (s *site) newOriginResponseEdgeLambdas(id, prefix string) (*[]*awscloudfront.EdgeLambda, error) {
	if !s.props.SPAOriginResponse {
		return nil, nil
	}

	code, err := cfscdkrewrite.OriginResponse(cfscdkrewrite.ResponseOptions{
		Prefix:      prefix,
		RootSegment: s.props.SPARootSegment,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to render %s function", id)
	}

	description := "Serves the index of " + s.props.SiteName + " for missing paths"
	if prefix != "" {
		description += " below " + prefix
	}

	fn := experimental.NewEdgeFunction(s.stack, jsii.String(id), &experimental.EdgeFunctionProps{
		Runtime:     awslambda.Runtime_NODEJS_20_X(),
		Handler:     jsii.String(cfscdkrewrite.OriginResponseHandler),
		Code:        awslambda.Code_FromInline(jsii.String(code)),
		Description: jsii.String(description),
	})

	return &[]*awscloudfront.EdgeLambda{{
		EventType:       awscloudfront.LambdaEdgeEventType_ORIGIN_RESPONSE,
		FunctionVersion: fn.CurrentVersion(),
	}}, nil
}
