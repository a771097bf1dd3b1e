package main

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingClient struct {
	inputs []*cloudfront.CreateInvalidationInput
}

func (c *recordingClient) CreateInvalidation(
	_ context.Context, in *cloudfront.CreateInvalidationInput, _ ...func(*cloudfront.Options),
) (*cloudfront.CreateInvalidationOutput, error) {
	c.inputs = append(c.inputs, in)
	return &cloudfront.CreateInvalidationOutput{Invalidation: &types.Invalidation{Id: aws.String("I1")}}, nil
}

func record(bucket, key string) events.S3EventRecord {
	var rec events.S3EventRecord
	rec.S3.Bucket.Name = bucket
	rec.S3.Object.Key = key
	return rec
}

func TestHandle(t *testing.T) {
	t.Parallel()

	client := &recordingClient{}
	h, err := NewHandler(Config{
		DistributionID: "E123",
		PathPrefixes:   `[{"bucket":"site","prefix":""},{"bucket":"sub","prefix":"/sub-site"}]`,
		MaxPaths:       100,
	}, client, zap.NewNop())
	require.NoError(t, err)

	ctx := lambdacontext.NewContext(t.Context(), &lambdacontext.LambdaContext{AwsRequestID: "req-1"})
	require.NoError(t, h.Handle(ctx, events.S3Event{Records: []events.S3EventRecord{
		record("site", "index.html"),
		record("sub", "app+v2.js"),
	}}))

	require.Len(t, client.inputs, 1)
	batch := client.inputs[0].InvalidationBatch
	assert.Equal(t, "req-1", aws.ToString(batch.CallerReference))
	assert.Equal(t, []string{"/", "/index.html", "/sub-site/app%20v2.js"}, batch.Paths.Items)
}

func TestHandleUnknownBucket(t *testing.T) {
	t.Parallel()

	client := &recordingClient{}
	h, err := NewHandler(Config{DistributionID: "E123", PathPrefixes: `[{"bucket":"site"}]`}, client, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, h.Handle(t.Context(), events.S3Event{Records: []events.S3EventRecord{
		record("elsewhere", "index.html"),
	}}))
	assert.Empty(t, client.inputs)
}

func TestNewHandlerInvalidPrefixes(t *testing.T) {
	t.Parallel()

	_, err := NewHandler(Config{DistributionID: "E123", PathPrefixes: "nope"}, &recordingClient{}, zap.NewNop())
	require.Error(t, err)
}
