package cfscdksite

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/advdv/cfsites/cfscdk/cfscdkcert"
	"github.com/advdv/cfsites/cfscdk/cfscdkrewrite"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

var (
	siteNameRegex = regexp.MustCompile(`^[A-Za-z]([A-Za-z0-9-]*[A-Za-z0-9])?$`)
	dnsLabelRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
)

// NewValidator returns the validator used for Props. It knows the custom tags
// "sitename", "pathpattern" and "dnslabel" so callers can reuse them.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("sitename", func(fl validator.FieldLevel) bool {
		return siteNameRegex.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("pathpattern", func(fl validator.FieldLevel) bool {
		_, err := cfscdkrewrite.ParsePathPattern(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("dnslabel", func(fl validator.FieldLevel) bool {
		return dnsLabelRegex.MatchString(fl.Field().String())
	})
	validate.RegisterStructValidation(validateOriginNames, Props{})
	return validate
}

// validateOriginNames ensures no two path patterns share a sub-site, they would share a bucket name.
func validateOriginNames(sl validator.StructLevel) {
	props := sl.Current().Interface().(Props)
	if name, patterns := SharedOrigin(props.Origins); len(patterns) > 0 {
		sl.ReportError(props.Origins, "Origins", "Origins", "unique_origin",
			name+" "+strings.Join(patterns, " "))
	}
}

// SharedOrigin returns the first sub-site, in lowercase, that more than one path
// pattern maps to. Patterns is empty when every sub-site is unique.
func SharedOrigin(origins map[string]string) (name string, patterns []string) {
	byName := map[string][]string{}
	for _, pattern := range slices.Sorted(maps.Keys(origins)) {
		key := strings.ToLower(origins[pattern])
		byName[key] = append(byName[key], pattern)
	}
	for _, key := range slices.Sorted(maps.Keys(byName)) {
		if len(byName[key]) > 1 {
			return key, byName[key]
		}
	}
	return "", nil
}

func (p Props) validate() error {
	if p.Domain != nil {
		if err := p.certProps().Check(); err != nil {
			return err
		}
	}

	if err := NewValidator().Struct(p); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			msgs := make([]string, 0, len(validationErrs))
			for _, e := range validationErrs {
				msgs = append(msgs, FormatValidationError(e))
			}
			return errors.Newf("invalid site %q:\n  - %s", p.SiteName, strings.Join(msgs, "\n  - "))
		}
		return errors.Wrapf(err, "invalid site %q", p.SiteName)
	}

	return nil
}

// FormatValidationError renders a validation error of Props in a human readable way.
func FormatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Namespace())
	case "max":
		return fmt.Sprintf("%s exceeds maximum length of %s (got %q)", e.Namespace(), e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got %q)", e.Namespace(), e.Param(), e.Value())
	case "sitename":
		return fmt.Sprintf("%s must start with a letter and contain only letters, digits and hyphens (got %q)",
			e.Namespace(), e.Value())
	case "pathpattern":
		return fmt.Sprintf("%s must be a path pattern like /segment/* (got %q)", e.Namespace(), e.Value())
	case "dnslabel":
		return fmt.Sprintf("%s must be a lowercase DNS label (got %q)", e.Namespace(), e.Value())
	case "alphanum", "lowercase":
		return fmt.Sprintf("%s must be lowercase alphanumeric (got %q)", e.Namespace(), e.Value())
	case "fqdn":
		return fmt.Sprintf("%s must be a valid domain name (got %q)", e.Namespace(), e.Value())
	case "unique_origin":
		return fmt.Sprintf("%s maps several path patterns to the same sub-site: %s", e.Namespace(), e.Param())
	default:
		return fmt.Sprintf("%s failed validation %q", e.Namespace(), e.Tag())
	}
}

func (p Props) certProps() cfscdkcert.Props {
	zoneName := p.Domain.HostedZoneName
	if zoneName == "" {
		zoneName = p.Domain.Name
	}
	return cfscdkcert.Props{
		DomainName:     p.FQDN(),
		HostedZoneID:   p.Domain.HostedZoneID,
		HostedZoneName: zoneName,
		CertificateARN: p.Domain.CertificateARN,
	}
}
