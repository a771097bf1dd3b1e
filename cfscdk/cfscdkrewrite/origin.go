package cfscdkrewrite

import (
	"bytes"
	"text/template"

	"github.com/cockroachdb/errors"
)

// OriginResponseHandler is the handler name of the code returned by OriginResponse.
const OriginResponseHandler = "index.handler"

// ForwardedHeaders are the headers copied from the fetched index document onto the
// generated response. Lambda@Edge rejects responses that set read-only headers such
// as Transfer-Encoding, so only this subset is passed along.
var ForwardedHeaders = []string{
	"content-type",
	"content-encoding",
	"last-modified",
	"date",
	"etag",
}

// ResponseOptions configures the origin-response handler of one behavior.
type ResponseOptions struct {
	// Prefix of the behavior, e.g. "/sub-site". Requests of a prefixed behavior reach
	// the origin with the prefix stripped, the index is fetched below the prefix.
	Prefix string
	// RootSegment serves "/<first segment>/<Index>" instead of "/<Index>".
	RootSegment bool
	// Index is the document served for missing paths, DefaultIndex if empty.
	Index string
}

type originResponseData struct {
	ResponseOptions
	Headers []string
}

var originResponseTemplate = template.Must(template.New("origin-response.js").Parse(
	`'use strict';
const https = require('https');

const forwardedHeaders = [{{range $i, $h := .Headers}}{{if $i}}, {{end}}'{{$h}}'{{end}}];

function fetchPage(url) {
  return new Promise((resolve, reject) => {
    https.get(url, (res) => {
      const chunks = [];
      res.on('data', (chunk) => chunks.push(chunk));
      res.on('end', () => resolve({
        status: res.statusCode,
        headers: res.headers,
        body: Buffer.concat(chunks).toString('utf8'),
      }));
    }).on('error', reject);
  });
}

const fetchPrefix = '{{.Prefix}}';

function indexPath(uri) {
{{- if .RootSegment}}
  const segment = uri.split('/')[1] || '';
  if (segment === '' || segment.indexOf('.') !== -1) {
    return '/{{.Index}}';
  }
  return '/' + segment + '/{{.Index}}';
{{- else}}
  return '/{{.Index}}';
{{- end}}
}

exports.handler = async (event) => {
  const cf = event.Records[0].cf;
  const request = cf.request;
  const response = cf.response;
  const status = parseInt(response.status, 10);

  if (request.method !== 'GET' || (status !== 403 && status !== 404)) {
    return response;
  }

  const path = indexPath(request.uri);
  if (request.uri === path) {
    return response;
  }

  try {
    const page = await fetchPage('https://' + cf.config.distributionDomainName + fetchPrefix + path);
    const headers = {};
    for (const name of forwardedHeaders) {
      if (page.headers[name] !== undefined) {
        headers[name] = [{ key: name, value: String(page.headers[name]) }];
      }
    }
    return {
      status: String(page.status),
      statusDescription: page.status === 200 ? 'OK' : 'Not Found',
      headers: headers,
      body: page.body,
    };
  } catch (err) {
    console.log('failed to fetch ' + fetchPrefix + path + ': ' + err);
    return {
      status: '500',
      statusDescription: 'Internal Server Error',
      headers: { 'content-type': [{ key: 'Content-Type', value: 'text/plain' }] },
      body: 'An error occurred loading the page',
    };
  }
};
`))

// OriginResponse renders a Node.js Lambda@Edge handler for the origin-response event.
// GET requests answered with 403 or 404 get the index document instead, fetched
// through the distribution itself. The request URI seen by the handler is the one
// forwarded to the origin, so it never carries the behavior prefix.
func OriginResponse(opts ResponseOptions) (string, error) {
	if opts.Index == "" {
		opts.Index = DefaultIndex
	}
	if !indexRegex.MatchString(opts.Index) {
		return "", errors.Newf("invalid index document %q", opts.Index)
	}
	if opts.Prefix != "" {
		if err := ValidatePrefix(opts.Prefix); err != nil {
			return "", err
		}
	}

	var buf bytes.Buffer
	if err := originResponseTemplate.Execute(&buf, originResponseData{
		ResponseOptions: opts,
		Headers:         ForwardedHeaders,
	}); err != nil {
		return "", errors.Wrap(err, "failed to render origin response handler")
	}

	return buf.String(), nil
}
