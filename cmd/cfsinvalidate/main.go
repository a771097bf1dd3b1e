// Command cfsinvalidate is a Lambda handler that invalidates the CloudFront paths
// of objects uploaded into the buckets of a site.
package main

import (
	"context"

	"github.com/advdv/cfsites/internal/invalidation"
	"github.com/alexflint/go-arg"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Config is read from the environment of the function.
type Config struct {
	DistributionID string `arg:"env:DISTRIBUTION_ID,required" help:"id of the distribution to invalidate"`
	PathPrefixes   string `arg:"env:PATH_PREFIXES,required" help:"JSON list of bucket and path prefix pairs"`
	MaxPaths       int    `arg:"env:MAX_PATHS" default:"100" help:"paths above which prefixes are invalidated as a whole"`
}

// Handler handles S3 object created events.
type Handler struct {
	cfg         Config
	prefixes    map[string]string
	invalidator *invalidation.Invalidator
	logs        *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(cfg Config, client invalidation.Client, logs *zap.Logger) (*Handler, error) {
	prefixes, err := invalidation.ParsePrefixes(cfg.PathPrefixes)
	if err != nil {
		return nil, err
	}

	return &Handler{
		cfg:         cfg,
		prefixes:    prefixes,
		invalidator: invalidation.New(client, logs),
		logs:        logs,
	}, nil
}

// Handle plans and submits one invalidation per event.
func (h *Handler) Handle(ctx context.Context, event events.S3Event) error {
	objects := make([]invalidation.Object, 0, len(event.Records))
	for _, rec := range event.Records {
		objects = append(objects, invalidation.Object{
			Bucket: rec.S3.Bucket.Name,
			Key:    rec.S3.Object.Key,
		})
	}

	paths := invalidation.Plan(objects, h.prefixes, h.cfg.MaxPaths)
	h.logs.Debug("planned invalidation", zap.Int("records", len(event.Records)), zap.Strings("paths", paths))

	var ref string
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		ref = lc.AwsRequestID
	}

	if _, err := h.invalidator.Invalidate(ctx, h.cfg.DistributionID, paths, ref); err != nil {
		h.logs.Error("failed to invalidate", zap.Error(err))
		return err
	}

	return nil
}

func run(ctx context.Context, logs *zap.Logger) (*Handler, error) {
	var cfg Config
	if err := arg.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS configuration")
	}

	return NewHandler(cfg, cloudfront.NewFromConfig(awsCfg), logs)
}

func main() {
	logs, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logs.Sync() //nolint:errcheck

	handler, err := run(context.Background(), logs)
	if err != nil {
		logs.Fatal("failed to initialize", zap.Error(err))
	}

	lambda.Start(handler.Handle)
}
