package initwizard

import (
	"github.com/advdv/cfsites/cfscdk/cfscdksite"
	"github.com/advdv/cfsites/cfscdkutil"
	"github.com/charmbracelet/huh"
	"github.com/cockroachdb/errors"
)

type FormBuilder interface {
	Build(defaultIdent string, result *Result) *huh.Form
}

type formBuilder struct{}

func NewFormBuilder() FormBuilder {
	return &formBuilder{}
}

func (b *formBuilder) Build(defaultIdent string, result *Result) *huh.Form {
	*result = DefaultResult(defaultIdent)
	return huh.NewForm(
		huh.NewGroup(
			b.qualifierInput(&result.Qualifier),
			b.regionSelect(&result.Region),
			b.projectInput(&result.Project),
			b.siteInput(&result.Site),
		),
		huh.NewGroup(
			b.domainInput(&result.Domain),
			b.hostedZoneInput(&result.HostedZoneID),
		).Title("Custom domain").Description("Leave empty to serve the site on its CloudFront domain"),
	)
}

func (b *formBuilder) qualifierInput(value *string) *huh.Input {
	return huh.NewInput().
		Title("Qualifier").
		Description("CDK qualifier, also the prefix of every stack name").
		Value(value).
		Validate(ValidateQualifier)
}

func (b *formBuilder) regionSelect(value *string) *huh.Select[string] {
	return huh.NewSelect[string]().
		Title("AWS region").
		Description("Region of the stacks, certificates and WAF ACLs always live in " + cfscdkutil.CloudFrontRegion).
		Options(huh.NewOptions(cfscdkutil.KnownRegions()...)...).
		Value(value)
}

func (b *formBuilder) projectInput(value *string) *huh.Input {
	return huh.NewInput().
		Title("Project").
		Description("Sites of a project are deployed together in one stack").
		Value(value).
		Validate(ValidateName)
}

func (b *formBuilder) siteInput(value *string) *huh.Input {
	return huh.NewInput().
		Title("First site").
		Description("Name of the first site, e.g. 'Docs'").
		Value(value).
		Validate(ValidateName)
}

func (b *formBuilder) domainInput(value *string) *huh.Input {
	return huh.NewInput().
		Title("Domain").
		Description("Apex domain of the site (optional)").
		Value(value).
		Validate(ValidateDomain)
}

func (b *formBuilder) hostedZoneInput(value *string) *huh.Input {
	return huh.NewInput().
		Title("Hosted zone id").
		Description("Route53 hosted zone of the domain (optional without a domain)").
		Value(value)
}

var validate = cfscdksite.NewValidator()

func ValidateQualifier(s string) error {
	if s == "" {
		return errors.New("qualifier is required")
	}
	if len(s) > 10 {
		return errors.New("qualifier must be 10 characters or less")
	}
	for _, c := range s {
		if !IsValidQualifierChar(c) {
			return errors.Newf("invalid character %q: use lowercase letters and numbers only", c)
		}
	}
	return nil
}

func IsValidQualifierChar(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// ValidateName checks project and site names.
func ValidateName(s string) error {
	if err := validate.Var(s, "required,max=20,sitename"); err != nil {
		return errors.Newf("invalid name %q: use up to 20 letters, numbers and inner hyphens, starting with a letter", s)
	}
	return nil
}

func ValidateDomain(s string) error {
	if err := validate.Var(s, "omitempty,fqdn"); err != nil {
		return errors.Newf("invalid domain %q", s)
	}
	return nil
}
