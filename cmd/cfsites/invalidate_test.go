package main

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/advdv/cfsites/internal/invalidation"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/cockroachdb/errors"
)

type fakeCloudFront struct {
	input *cloudfront.CreateInvalidationInput
}

func (c *fakeCloudFront) CreateInvalidation(
	_ context.Context, in *cloudfront.CreateInvalidationInput, _ ...func(*cloudfront.Options),
) (*cloudfront.CreateInvalidationOutput, error) {
	c.input = in
	return &cloudfront.CreateInvalidationOutput{Invalidation: &types.Invalidation{Id: aws.String("I1")}}, nil
}

func staticExports(exports map[string]string) exportLookup {
	return func(_ context.Context, name string) (string, error) {
		return exports[name], nil
	}
}

func TestDoInvalidate(t *testing.T) {
	t.Parallel()

	exports := staticExports(map[string]string{
		"vuejs-dev-distributionid":  "E123",
		"vuejs-prod-distributionid": "E456",
	})

	t.Run("invalidates everything by default", func(t *testing.T) {
		t.Parallel()
		client := &fakeCloudFront{}
		var out strings.Builder

		err := doInvalidate(t.Context(), newTestConfig(t), exports, invalidation.New(client, nil),
			invalidateOptions{Project: "web", Site: "VueJS", Output: &out})
		if err != nil {
			t.Fatalf("doInvalidate() error = %v", err)
		}

		if aws.ToString(client.input.DistributionId) != "E123" {
			t.Errorf("unexpected distribution %q", aws.ToString(client.input.DistributionId))
		}
		if !slices.Equal(client.input.InvalidationBatch.Paths.Items, []string{"/*"}) {
			t.Errorf("unexpected paths %v", client.input.InvalidationBatch.Paths.Items)
		}
		if !strings.Contains(out.String(), "Created invalidation I1 of distribution E123") {
			t.Errorf("unexpected output %q", out.String())
		}
	})

	t.Run("invalidates the given paths", func(t *testing.T) {
		t.Parallel()
		client := &fakeCloudFront{}

		err := doInvalidate(t.Context(), newTestConfig(t), exports, invalidation.New(client, nil),
			invalidateOptions{Project: "web", Site: "VueJS", Paths: []string{"/index.html", "/sub-site/*"}})
		if err != nil {
			t.Fatalf("doInvalidate() error = %v", err)
		}
		if len(client.input.InvalidationBatch.Paths.Items) != 2 {
			t.Errorf("unexpected paths %v", client.input.InvalidationBatch.Paths.Items)
		}
	})

	t.Run("looks up the distribution of the environment", func(t *testing.T) {
		t.Parallel()
		client := &fakeCloudFront{}

		err := doInvalidate(t.Context(), newTestConfig(t), exports, invalidation.New(client, nil),
			invalidateOptions{Project: "web", Site: "VueJS", Env: "prod"})
		if err != nil {
			t.Fatalf("doInvalidate() error = %v", err)
		}
		if aws.ToString(client.input.DistributionId) != "E456" {
			t.Errorf("unexpected distribution %q", aws.ToString(client.input.DistributionId))
		}
	})

	tests := []struct {
		name   string
		opts   invalidateOptions
		expect string
	}{
		{"unknown project", invalidateOptions{Project: "api", Site: "VueJS"}, `project "api" not found`},
		{"unknown site", invalidateOptions{Project: "admin", Site: "VueJS"}, `site "VueJS" not found in project "admin"`},
		{"relative path", invalidateOptions{Project: "web", Site: "VueJS", Paths: []string{"index.html"}}, "must start with a slash"},
		{"not deployed", invalidateOptions{Project: "web", Site: "Docs"}, `export "docs-dev-distributionid" not found`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := &fakeCloudFront{}

			err := doInvalidate(t.Context(), newTestConfig(t), exports, invalidation.New(client, nil), tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.expect) {
				t.Fatalf("expected error containing %q, got %v", tt.expect, err)
			}
			if client.input != nil {
				t.Error("expected no invalidation to be created")
			}
		})
	}
}

// fakeExports serves exports in pages of one.
type fakeExports struct {
	exports []cfntypes.Export
	calls   int
	err     error
}

func (f *fakeExports) ListExports(
	_ context.Context, in *cloudformation.ListExportsInput, _ ...func(*cloudformation.Options),
) (*cloudformation.ListExportsOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	idx := 0
	if in.NextToken != nil {
		idx = len(aws.ToString(in.NextToken))
	}
	out := &cloudformation.ListExportsOutput{}
	if idx < len(f.exports) {
		out.Exports = f.exports[idx : idx+1]
	}
	if idx+1 < len(f.exports) {
		out.NextToken = aws.String(strings.Repeat("n", idx+1))
	}
	return out, nil
}

func TestListExports(t *testing.T) {
	t.Parallel()

	exports := []cfntypes.Export{
		{Name: aws.String("other-dev-distributionid"), Value: aws.String("E999")},
		{Name: aws.String("vuejs-dev-sitebucket"), Value: aws.String("bucket")},
		{Name: aws.String("vuejs-dev-distributionid"), Value: aws.String("E123")},
	}

	t.Run("finds the export on a later page", func(t *testing.T) {
		t.Parallel()
		client := &fakeExports{exports: exports}

		got, err := listExports(client)(t.Context(), "vuejs-dev-distributionid")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "E123" {
			t.Errorf("expected E123, got %q", got)
		}
		if client.calls != 3 {
			t.Errorf("expected 3 pages to be read, got %d", client.calls)
		}
	})

	t.Run("missing export", func(t *testing.T) {
		t.Parallel()
		client := &fakeExports{exports: exports}

		got, err := listExports(client)(t.Context(), "docs-dev-distributionid")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "" {
			t.Errorf("expected empty value, got %q", got)
		}
	})

	t.Run("wraps client errors", func(t *testing.T) {
		t.Parallel()
		client := &fakeExports{err: errors.New("access denied")}

		_, err := listExports(client)(t.Context(), "vuejs-dev-distributionid")
		if err == nil || !strings.Contains(err.Error(), "failed to list CloudFormation exports") {
			t.Fatalf("expected wrapped error, got %v", err)
		}
	})
}
