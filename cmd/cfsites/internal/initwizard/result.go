package initwizard

import (
	"github.com/advdv/cfsites/cfscdkutil"
	"github.com/cockroachdb/errors"
)

// Result holds the answers of the init wizard.
type Result struct {
	Qualifier    string
	Region       string
	Project      string
	Site         string
	Domain       string
	HostedZoneID string
}

func DefaultResult(defaultIdent string) Result {
	return Result{
		Qualifier: defaultIdent,
		Region:    "us-east-1",
		Project:   "web",
		Site:      "Main",
	}
}

// Validate checks the answers that depend on each other.
func (r Result) Validate() error {
	if r.Domain != "" && r.HostedZoneID == "" {
		return errors.Newf("a hosted zone id is required for domain %q, find it with 'cfsites zone-lookup %s'",
			r.Domain, r.Domain)
	}
	if r.Domain != "" && r.Region != cfscdkutil.CloudFrontRegion {
		return errors.Newf("a certificate for domain %q can only be issued in %s, choose that region "+
			"or add the domain later with the certificateArn of an existing %s certificate",
			r.Domain, cfscdkutil.CloudFrontRegion, cfscdkutil.CloudFrontRegion)
	}
	return nil
}
