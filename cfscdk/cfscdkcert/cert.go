// Package cfscdkcert resolves the viewer certificate of a site's custom domain.
//
// A domain either references an existing certificate by ARN or names the Route53
// hosted zone in which a new, DNS-validated certificate is issued. One of the two
// is required; New fails before creating anything otherwise.
package cfscdkcert

import (
	"strings"

	"github.com/advdv/cfsites/cfscdkutil"
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/cockroachdb/errors"
)

// ErrDomainUnresolvable is returned when a domain has neither a hosted zone id nor a certificate ARN.
var ErrDomainUnresolvable = errors.New("domain requires either a hosted zone id or a certificate ARN")

// ErrCertificateRegion is returned for certificates CloudFront cannot use: imported
// certificates and DNS issued ones must both live in us-east-1.
var ErrCertificateRegion = errors.New("certificates of CloudFront distributions must be in " +
	cfscdkutil.CloudFrontRegion)

// Certificate provides access to the certificate of a custom domain.
type Certificate interface {
	// Certificate returns the ACM certificate for the domain. Use this for CloudFront.
	Certificate() awscertificatemanager.ICertificate
	// HostedZone returns the hosted zone of the domain, or nil when only a certificate ARN was given.
	HostedZone() awsroute53.IHostedZone
	// DomainName returns the fully qualified domain name the certificate covers.
	DomainName() string
}

// Props configures the Cert construct.
type Props struct {
	// DomainName is the fully qualified domain name served by the site. Required.
	DomainName string
	// HostedZoneID of the zone the domain lives in. Used for DNS validation and alias records.
	HostedZoneID string
	// HostedZoneName is the apex of the hosted zone. Defaults to DomainName.
	HostedZoneName string
	// CertificateARN of an existing certificate. When set no certificate is issued.
	CertificateARN string
}

// Check returns an error if the props cannot be resolved into a certificate.
func (p Props) Check() error {
	if p.DomainName == "" {
		return errors.New("domain name is required")
	}
	if p.HostedZoneID == "" && p.CertificateARN == "" {
		return errors.Wrapf(ErrDomainUnresolvable, "domain %q", p.DomainName)
	}
	if p.CertificateARN != "" {
		// arn:partition:acm:region:account:certificate/id
		parts := strings.Split(p.CertificateARN, ":")
		if len(parts) < 6 || parts[2] != "acm" {
			return errors.Newf("certificate ARN %q of domain %q is not an ACM certificate ARN",
				p.CertificateARN, p.DomainName)
		}
		if parts[3] != cfscdkutil.CloudFrontRegion {
			return errors.Wrapf(ErrCertificateRegion, "certificate of domain %q is in %s", p.DomainName, parts[3])
		}
	}
	return nil
}

// CheckRegion returns ErrCertificateRegion when a certificate would be issued in a
// stack outside us-east-1. Imported certificates are checked by Check.
func (p Props) CheckRegion(scope constructs.Construct) error {
	if p.CertificateARN != "" || cfscdkutil.InRegion(scope, cfscdkutil.CloudFrontRegion) {
		return nil
	}
	return errors.Wrapf(ErrCertificateRegion,
		"certificate of domain %q cannot be issued in a stack in %s, reference a us-east-1 certificate ARN instead",
		p.DomainName, *awscdk.Stack_Of(scope).Region())
}

type cert struct {
	certificate awscertificatemanager.ICertificate
	zone        awsroute53.IHostedZone
	domainName  string
}

// New creates a Certificate construct.
//
// With a CertificateARN the certificate is imported. With only a HostedZoneID a new
// certificate is issued for the domain and validated through the zone. CloudFront
// only accepts certificates from us-east-1, New fails for other regions.
func New(scope constructs.Construct, props Props) (Certificate, error) {
	if err := props.Check(); err != nil {
		return nil, err
	}
	if err := props.CheckRegion(scope); err != nil {
		return nil, err
	}

	scope = constructs.NewConstruct(scope, jsii.String("Cert"))
	con := &cert{domainName: props.DomainName}

	if props.HostedZoneID != "" {
		zoneName := props.HostedZoneName
		if zoneName == "" {
			zoneName = props.DomainName
		}
		con.zone = awsroute53.HostedZone_FromHostedZoneAttributes(scope, jsii.String("Zone"),
			&awsroute53.HostedZoneAttributes{
				HostedZoneId: jsii.String(props.HostedZoneID),
				ZoneName:     jsii.String(zoneName),
			})
	}

	if props.CertificateARN != "" {
		con.certificate = awscertificatemanager.Certificate_FromCertificateArn(scope,
			jsii.String("Certificate"), jsii.String(props.CertificateARN))

		return con, nil
	}

	con.certificate = awscertificatemanager.NewCertificate(scope, jsii.String("Certificate"),
		&awscertificatemanager.CertificateProps{
			DomainName: jsii.String(props.DomainName),
			Validation: awscertificatemanager.CertificateValidation_FromDns(con.zone),
		})

	cfscdkutil.LogInfo(scope, "Cert", "issuing DNS validated certificate for %s in zone %s",
		props.DomainName, props.HostedZoneID)

	return con, nil
}

func (c *cert) Certificate() awscertificatemanager.ICertificate {
	return c.certificate
}

func (c *cert) HostedZone() awsroute53.IHostedZone {
	return c.zone
}

func (c *cert) DomainName() string {
	return c.domainName
}
