// Package cfscdkrewrite renders the small edge functions that sit in front of the
// site buckets: a CloudFront Function for viewer requests and a Lambda@Edge
// handler for origin responses.
//
// The generated code is plain configuration. Each function does one fixed set of
// rewrites selected through Options, there is no rule language.
package cfscdkrewrite

import (
	"bytes"
	"regexp"
	"strings"
	"text/template"

	"github.com/cockroachdb/errors"
)

// MaxFunctionSize is the maximum size of CloudFront Function code in bytes.
const MaxFunctionSize = 10 * 1024

// DefaultIndex is the document served for directory and SPA requests.
const DefaultIndex = "index.html"

var (
	prefixRegex = regexp.MustCompile(`^/[A-Za-z0-9._-]+(/[A-Za-z0-9._-]+)*$`)
	indexRegex  = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// ErrNoRewrite is returned when Options enable no rewrite at all.
var ErrNoRewrite = errors.New("no rewrite enabled")

// ParsePathPattern turns a behavior path pattern like "/sub-site/*" into the prefix
// it routes ("/sub-site"). Only literal path segments followed by "/*" are accepted.
func ParsePathPattern(pattern string) (string, error) {
	prefix, ok := strings.CutSuffix(pattern, "/*")
	if !ok {
		return "", errors.Newf("path pattern %q must end with \"/*\"", pattern)
	}
	if err := ValidatePrefix(prefix); err != nil {
		return "", errors.Wrapf(err, "path pattern %q", pattern)
	}
	return prefix, nil
}

// ValidatePrefix checks that prefix is one or more literal path segments with a leading slash.
func ValidatePrefix(prefix string) error {
	if !prefixRegex.MatchString(prefix) {
		return errors.Newf("invalid path prefix %q: must look like /segment[/segment...] "+
			"using letters, digits, '.', '_' or '-'", prefix)
	}
	return nil
}

// Options selects the rewrites of a viewer request function. They are applied in
// field order: redirect, strip, SPA fallback.
type Options struct {
	// Prefix is the path prefix the function handles, e.g. "/sub-site".
	Prefix string
	// RedirectBare answers a request for exactly Prefix with a 301 to Prefix + "/".
	RedirectBare bool
	// StripPrefix removes Prefix from the URI before it is forwarded to the origin.
	StripPrefix bool
	// SPAFallback serves Index for URIs ending in "/" and for URIs without a file extension.
	SPAFallback bool
	// SPARootSegment makes the SPA fallback serve "/<first segment>/<Index>" instead of "/<Index>".
	SPARootSegment bool
	// Index is the document name used by the SPA fallback, DefaultIndex if empty.
	Index string
}

func (o Options) validate() error {
	if !o.RedirectBare && !o.StripPrefix && !o.SPAFallback {
		return ErrNoRewrite
	}
	if o.RedirectBare || o.StripPrefix {
		if err := ValidatePrefix(o.Prefix); err != nil {
			return err
		}
	}
	if o.Index != "" && !indexRegex.MatchString(o.Index) {
		return errors.Newf("invalid index document %q", o.Index)
	}
	return nil
}

type viewerRequestData struct {
	Options
	PrefixRegex string
}

var viewerRequestTemplate = template.Must(template.New("viewer-request.js").Parse(
	`function handler(event) {
  var request = event.request;
  var uri = request.uri;
{{- if .RedirectBare}}

  if (uri === "{{.Prefix}}") {
    var qs = [];
    for (var key in request.querystring) {
      var param = request.querystring[key];
      if (param.multiValue) {
        param.multiValue.forEach(function (mv) { qs.push(key + "=" + mv.value); });
      } else {
        qs.push(key + "=" + param.value);
      }
    }
    return {
      statusCode: 301,
      statusDescription: "Moved Permanently",
      headers: { location: { value: "{{.Prefix}}/" + (qs.length > 0 ? "?" + qs.join("&") : "") } }
    };
  }
{{- end}}
{{- if .StripPrefix}}

  uri = uri.replace(/^{{.PrefixRegex}}\//, "/");
{{- end}}
{{- if .SPAFallback}}

  if (uri.endsWith("/")) {
    uri += "{{.Index}}";
  } else if (uri.split("/").pop().indexOf(".") === -1) {
{{- if .SPARootSegment}}
    var segment = uri.split("/")[1];
    uri = "/" + segment + "/{{.Index}}";
{{- else}}
    uri = "/{{.Index}}";
{{- end}}
  }
{{- end}}

  request.uri = uri;
  return request;
}
`))

// ViewerRequest renders the code of a CloudFront Function (cloudfront-js-2.0)
// for a viewer-request event.
func ViewerRequest(opts Options) (string, error) {
	if err := opts.validate(); err != nil {
		return "", err
	}
	if opts.Index == "" {
		opts.Index = DefaultIndex
	}

	data := viewerRequestData{
		Options:     opts,
		PrefixRegex: jsRegexEscape(opts.Prefix),
	}

	var buf bytes.Buffer
	if err := viewerRequestTemplate.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "failed to render viewer request function")
	}

	if buf.Len() > MaxFunctionSize {
		return "", errors.Newf("viewer request function is %d bytes, exceeds limit of %d",
			buf.Len(), MaxFunctionSize)
	}

	return buf.String(), nil
}

// jsRegexEscape escapes a validated prefix for use inside a JavaScript regex literal.
func jsRegexEscape(prefix string) string {
	return strings.ReplaceAll(regexp.QuoteMeta(prefix), "/", `\/`)
}
