package invalidation_test

import (
	"context"
	"testing"

	"github.com/advdv/cfsites/internal/invalidation"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var prefixes = map[string]string{
	"site-bucket": "",
	"sub-bucket":  "/sub-site",
}

func TestPlan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		objects  []invalidation.Object
		maxPaths int
		expect   []string
	}{
		{
			name:    "content bucket",
			objects: []invalidation.Object{{Bucket: "site-bucket", Key: "assets/app.js"}},
			expect:  []string{"/assets/app.js"},
		},
		{
			name:    "sub-site prefix",
			objects: []invalidation.Object{{Bucket: "sub-bucket", Key: "app.js"}},
			expect:  []string{"/sub-site/app.js"},
		},
		{
			name: "index documents invalidate their directory",
			objects: []invalidation.Object{
				{Bucket: "site-bucket", Key: "index.html"},
				{Bucket: "sub-bucket", Key: "docs/index.html"},
			},
			expect: []string{"/", "/index.html", "/sub-site/docs/", "/sub-site/docs/index.html"},
		},
		{
			name: "keys are decoded and paths escaped",
			objects: []invalidation.Object{
				{Bucket: "site-bucket", Key: "my+file%281%29.txt"},
			},
			expect: []string{"/my%20file%281%29.txt"},
		},
		{
			name: "duplicates and unknown buckets",
			objects: []invalidation.Object{
				{Bucket: "site-bucket", Key: "a.js"},
				{Bucket: "site-bucket", Key: "a.js"},
				{Bucket: "other-bucket", Key: "b.js"},
			},
			expect: []string{"/a.js"},
		},
		{
			name: "collapses into wildcards",
			objects: []invalidation.Object{
				{Bucket: "site-bucket", Key: "a.js"},
				{Bucket: "site-bucket", Key: "b.js"},
				{Bucket: "sub-bucket", Key: "c.js"},
			},
			maxPaths: 2,
			expect:   []string{"/*", "/sub-site/*"},
		},
		{
			name:    "nothing uploaded",
			objects: nil,
			expect:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expect, invalidation.Plan(tt.objects, prefixes, tt.maxPaths))
		})
	}
}

func TestParsePrefixes(t *testing.T) {
	t.Parallel()

	got, err := invalidation.ParsePrefixes(`[{"bucket":"a","prefix":""},{"bucket":"b","prefix":"/docs/"}]`)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "", "b": "/docs"}, got)

	_, err = invalidation.ParsePrefixes(`{}`)
	require.ErrorContains(t, err, "failed to decode path prefixes")

	_, err = invalidation.ParsePrefixes(`[{"prefix":"/x"}]`)
	require.ErrorContains(t, err, "path prefix without bucket")
}

type fakeClient struct {
	input *cloudfront.CreateInvalidationInput
	err   error
}

func (c *fakeClient) CreateInvalidation(
	_ context.Context, in *cloudfront.CreateInvalidationInput, _ ...func(*cloudfront.Options),
) (*cloudfront.CreateInvalidationOutput, error) {
	c.input = in
	if c.err != nil {
		return nil, c.err
	}
	return &cloudfront.CreateInvalidationOutput{
		Invalidation: &types.Invalidation{Id: aws.String("I123")},
	}, nil
}

func TestInvalidate(t *testing.T) {
	t.Parallel()

	t.Run("submits the paths", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{}
		core, logs := observer.New(zap.InfoLevel)

		id, err := invalidation.New(client, zap.New(core)).
			Invalidate(t.Context(), "E123", []string{"/a", "/b"}, "req-1")
		require.NoError(t, err)
		assert.Equal(t, "I123", id)

		require.NotNil(t, client.input)
		assert.Equal(t, "E123", aws.ToString(client.input.DistributionId))
		assert.Equal(t, "req-1", aws.ToString(client.input.InvalidationBatch.CallerReference))
		assert.Equal(t, int32(2), aws.ToInt32(client.input.InvalidationBatch.Paths.Quantity))
		assert.Equal(t, []string{"/a", "/b"}, client.input.InvalidationBatch.Paths.Items)
		assert.Equal(t, 1, logs.FilterMessage("created invalidation").Len())
	})

	t.Run("generates a caller reference", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{}

		_, err := invalidation.New(client, nil).Invalidate(t.Context(), "E123", invalidation.AllPaths, "")
		require.NoError(t, err)
		assert.Contains(t, aws.ToString(client.input.InvalidationBatch.CallerReference), "cfsites-")
	})

	t.Run("empty plan is a no-op", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{}

		id, err := invalidation.New(client, nil).Invalidate(t.Context(), "E123", nil, "req-1")
		require.NoError(t, err)
		assert.Empty(t, id)
		assert.Nil(t, client.input)
	})

	t.Run("wraps client errors", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{err: errors.New("throttled")}

		_, err := invalidation.New(client, nil).Invalidate(t.Context(), "E123", []string{"/a"}, "req-1")
		require.ErrorContains(t, err, "failed to invalidate distribution E123: throttled")
	})
}
