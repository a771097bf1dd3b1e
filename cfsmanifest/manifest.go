// Package cfsmanifest reads the site manifest: a YAML file describing the common
// resources and, per project, the sites that are deployed together in one stack.
package cfsmanifest

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/advdv/cfsites/cfscdk/cfscdkcommon"
	"github.com/advdv/cfsites/cfscdk/cfscdksite"
	"github.com/advdv/cfsites/cfscdkutil"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

// Manifest is the root of the site manifest.
type Manifest struct {
	Version  string    `yaml:"version" validate:"required,oneof=1"`
	Common   Common    `yaml:"common"`
	Projects []Project `yaml:"projects" validate:"required,min=1,unique=Name,dive"`
}

// Common configures the resources shared by all sites.
type Common struct {
	DisableWebACL           bool        `yaml:"disableWebAcl,omitempty"`
	WebACLScope             string      `yaml:"webAclScope,omitempty" validate:"omitempty,oneof=CLOUDFRONT REGIONAL"`
	ManagedRuleGroups       []RuleGroup `yaml:"managedRuleGroups,omitempty" validate:"dive"`
	OriginAccessControlName string      `yaml:"originAccessControlName,omitempty" validate:"omitempty,max=64"`
}

// RuleGroup references a managed WAF rule group.
type RuleGroup struct {
	Name         string `yaml:"name" validate:"required,alphanum"`
	Vendor       string `yaml:"vendor" validate:"required"`
	MetricSuffix string `yaml:"metricSuffix,omitempty" validate:"omitempty,alphanum"`
}

// Project groups the sites deployed in one stack.
type Project struct {
	Name  string `yaml:"name" validate:"required,max=32,sitename"`
	Sites []Site `yaml:"sites" validate:"required,min=1,unique=Name,dive"`
}

// Site describes one static site.
type Site struct {
	Name               string            `yaml:"name" validate:"required,max=20,sitename"`
	Origins            map[string]string `yaml:"origins,omitempty" validate:"dive,keys,pathpattern,endkeys,required,max=10,sitename"`
	Dev                bool              `yaml:"dev,omitempty"`
	URLPrefix          string            `yaml:"urlPrefix,omitempty" validate:"omitempty,dnslabel"`
	DisableCache       bool              `yaml:"disableCache,omitempty"`
	OriginAccess       string            `yaml:"originAccess,omitempty" validate:"omitempty,oneof=control identity"`
	DisableWebACL      bool              `yaml:"disableWebAcl,omitempty"`
	PriceClass         string            `yaml:"priceClass,omitempty" validate:"omitempty,oneof=100 200 All"`
	SPA                bool              `yaml:"spa,omitempty"`
	SPARootSegment     bool              `yaml:"spaRootSegment,omitempty"`
	SPAOriginResponse  bool              `yaml:"spaOriginResponse,omitempty"`
	RedirectBarePaths  *bool             `yaml:"redirectBarePaths,omitempty"`
	SeparateAccessLog  bool              `yaml:"separateAccessLog,omitempty"`
	ContentDir         string            `yaml:"contentDir,omitempty"`
	InvalidateOnUpload bool              `yaml:"invalidateOnUpload,omitempty"`
	InvalidatorEntry   string            `yaml:"invalidatorEntry,omitempty"`
	Domain             *Domain           `yaml:"domain,omitempty"`
}

// Domain configures the custom domain of a site.
type Domain struct {
	Name           string `yaml:"name" validate:"required,fqdn"`
	HostedZoneID   string `yaml:"hostedZoneId,omitempty"`
	HostedZoneName string `yaml:"hostedZoneName,omitempty" validate:"omitempty,fqdn"`
	CertificateARN string `yaml:"certificateArn,omitempty" validate:"omitempty,startswith=arn:"`
}

// NewValidator returns the validator for the manifest. It extends the site validator
// with rules that span several fields.
func NewValidator() *validator.Validate {
	validate := cfscdksite.NewValidator()
	validate.RegisterStructValidation(validateDomain, Domain{})
	validate.RegisterStructValidation(validateSite, Site{})
	validate.RegisterStructValidation(validateSiteNames, Manifest{})
	return validate
}

// validateSiteNames rejects site names that are used in more than one project. Site
// names are part of every resource and export name, so they must be unique per manifest.
func validateSiteNames(sl validator.StructLevel) {
	m := sl.Current().Interface().(Manifest)
	seen := map[string]string{}
	for _, project := range m.Projects {
		for _, site := range project.Sites {
			key := strings.ToLower(site.Name)
			if other, ok := seen[key]; ok && other != project.Name {
				sl.ReportError(m.Projects, "Projects", "Projects", "unique_site",
					site.Name+" "+other+" "+project.Name)
				return
			}
			seen[key] = project.Name
		}
	}
}

func validateDomain(sl validator.StructLevel) {
	domain := sl.Current().Interface().(Domain)
	if domain.HostedZoneID == "" && domain.CertificateARN == "" {
		sl.ReportError(domain.HostedZoneID, "HostedZoneID", "HostedZoneID", "required_without_certificate", "")
	}
}

func validateSite(sl validator.StructLevel) {
	site := sl.Current().Interface().(Site)
	if name, patterns := cfscdksite.SharedOrigin(site.Origins); len(patterns) > 0 {
		sl.ReportError(site.Origins, "Origins", "Origins", "unique_origin",
			name+" "+strings.Join(patterns, " "))
	}
}

// Decode reads a manifest from r.
func Decode(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r,
		yaml.Validator(NewValidator()),
		yaml.Strict(),
	)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(err, "failed to parse manifest")
	}

	return &m, nil
}

// Load reads the manifest at path. Content directories are resolved relative to
// the directory of the manifest.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read manifest")
	}

	m, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}

	m.resolve(filepath.Dir(path))
	return m, nil
}

func (m *Manifest) resolve(dir string) {
	for i := range m.Projects {
		for j := range m.Projects[i].Sites {
			site := &m.Projects[i].Sites[j]
			if site.ContentDir != "" && !filepath.IsAbs(site.ContentDir) {
				site.ContentDir = filepath.Join(dir, site.ContentDir)
			}
		}
	}
}

// Write encodes the manifest as YAML.
func (m *Manifest) Write(w io.Writer) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "failed to marshal manifest")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "failed to write manifest")
	}
	return nil
}

// ProjectNames returns the project names in manifest order.
func (m *Manifest) ProjectNames() []string {
	names := make([]string, 0, len(m.Projects))
	for _, p := range m.Projects {
		names = append(names, p.Name)
	}
	return names
}

// Project returns the project with the given name.
func (m *Manifest) Project(name string) (Project, error) {
	idx := slices.IndexFunc(m.Projects, func(p Project) bool { return p.Name == name })
	if idx < 0 {
		return Project{}, errors.Newf("project %q not found in manifest, available: %s",
			name, strings.Join(m.ProjectNames(), ", "))
	}
	return m.Projects[idx], nil
}

// Site returns the site with the given name.
func (p Project) Site(name string) (Site, error) {
	idx := slices.IndexFunc(p.Sites, func(s Site) bool { return s.Name == name })
	if idx < 0 {
		return Site{}, errors.Newf("site %q not found in project %q", name, p.Name)
	}
	return p.Sites[idx], nil
}

// Props converts the common section into construct props. The namespace keeps the
// account wide names of several deployment environments apart.
func (c Common) Props(namespace string) cfscdkcommon.Props {
	props := cfscdkcommon.Props{
		Namespace:               namespace,
		DisableWebACL:           c.DisableWebACL,
		WebACLScope:             c.WebACLScope,
		OriginAccessControlName: c.OriginAccessControlName,
	}
	for _, g := range c.ManagedRuleGroups {
		props.ManagedRuleGroups = append(props.ManagedRuleGroups, cfscdkcommon.ManagedRuleGroup{
			Name:         g.Name,
			Vendor:       g.Vendor,
			MetricSuffix: g.MetricSuffix,
		})
	}
	return props
}

// Props converts the site into construct props. Every site of the dev deployment
// environment is a dev site.
func (s Site) Props(common cfscdkcommon.Common, deploymentEnv string) cfscdksite.Props {
	props := cfscdksite.Props{
		SiteName:            s.Name,
		Common:              common,
		DeploymentEnv:       deploymentEnv,
		Origins:             s.Origins,
		Dev:                 s.Dev || deploymentEnv == cfscdkutil.DefaultDeploymentEnv,
		DisableCache:        s.DisableCache,
		OriginAccess:        cfscdksite.OriginAccess(s.OriginAccess),
		DisableWebACL:       s.DisableWebACL,
		PriceClass:          s.PriceClass,
		SPA:                 s.SPA,
		SPARootSegment:      s.SPARootSegment,
		SPAOriginResponse:   s.SPAOriginResponse,
		DisableBareRedirect: s.RedirectBarePaths != nil && !*s.RedirectBarePaths,
		SeparateAccessLog:   s.SeparateAccessLog,
		URLPrefix:           s.URLPrefix,
		ContentDir:          s.ContentDir,
		InvalidateOnUpload:  s.InvalidateOnUpload,
		InvalidatorEntry:    s.InvalidatorEntry,
	}
	if s.Domain != nil {
		props.Domain = &cfscdksite.Domain{
			Name:           s.Domain.Name,
			HostedZoneID:   s.Domain.HostedZoneID,
			HostedZoneName: s.Domain.HostedZoneName,
			CertificateARN: s.Domain.CertificateARN,
		}
	}
	return props
}

// OriginAccessMode returns the origin access of the site with the default applied.
func (s Site) OriginAccessMode() cfscdksite.OriginAccess {
	if s.OriginAccess == "" {
		return cfscdksite.OriginAccessControl
	}
	return cfscdksite.OriginAccess(s.OriginAccess)
}
