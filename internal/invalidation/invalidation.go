// Package invalidation turns uploaded S3 objects into CloudFront invalidation paths
// and submits them.
package invalidation

import (
	"context"
	"encoding/json"
	"net/url"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// DefaultMaxPaths is the number of paths above which a plan collapses into wildcards.
const DefaultMaxPaths = 100

// AllPaths invalidates everything a distribution serves.
var AllPaths = []string{"/*"}

const indexDocument = "index.html"

// PathPrefix binds a bucket to the viewer path prefix its behavior serves. The
// content bucket has an empty prefix.
type PathPrefix struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
}

// ParsePrefixes decodes a JSON list of PathPrefix into a bucket to prefix map.
func ParsePrefixes(data string) (map[string]string, error) {
	var list []PathPrefix
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return nil, errors.Wrap(err, "failed to decode path prefixes")
	}

	prefixes := make(map[string]string, len(list))
	for _, p := range list {
		if p.Bucket == "" {
			return nil, errors.New("path prefix without bucket")
		}
		prefixes[p.Bucket] = strings.TrimSuffix(p.Prefix, "/")
	}
	return prefixes, nil
}

// Object identifies an uploaded object. Key is URL-encoded as in S3 event notifications.
type Object struct {
	Bucket string
	Key    string
}

// Plan returns the sorted viewer paths to invalidate for the uploaded objects.
// Objects of unknown buckets are ignored. An index document also invalidates its
// directory. With more than maxPaths paths (and maxPaths > 0) every touched prefix
// is invalidated with a wildcard instead.
func Plan(objects []Object, prefixes map[string]string, maxPaths int) []string {
	paths := map[string]bool{}
	touched := map[string]bool{}

	for _, obj := range objects {
		prefix, ok := prefixes[obj.Bucket]
		if !ok {
			continue
		}

		key, err := url.QueryUnescape(obj.Key)
		if err != nil {
			key = obj.Key
		}
		key = strings.TrimPrefix(key, "/")

		touched[prefix] = true
		paths[escape(prefix+"/"+key)] = true
		if path.Base(key) == indexDocument {
			dir := strings.TrimSuffix(key, indexDocument)
			paths[escape(prefix+"/"+dir)] = true
		}
	}

	if maxPaths > 0 && len(paths) > maxPaths {
		paths = map[string]bool{}
		for prefix := range touched {
			paths[prefix+"/*"] = true
		}
	}

	plan := make([]string, 0, len(paths))
	for p := range paths {
		plan = append(plan, p)
	}
	slices.Sort(plan)
	return plan
}

func escape(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}

// Client is the part of the CloudFront API the Invalidator uses.
type Client interface {
	CreateInvalidation(
		ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options),
	) (*cloudfront.CreateInvalidationOutput, error)
}

// Invalidator submits invalidations.
type Invalidator struct {
	client Client
	logs   *zap.Logger
	now    func() time.Time
}

// New creates an Invalidator. A nil logger discards all logs.
func New(client Client, logs *zap.Logger) *Invalidator {
	if logs == nil {
		logs = zap.NewNop()
	}
	return &Invalidator{client: client, logs: logs, now: time.Now}
}

// Invalidate creates an invalidation of paths and returns its id. The caller
// reference makes retries idempotent, it is derived from the clock when empty.
// Nothing is submitted for an empty plan and the returned id is empty.
func (i *Invalidator) Invalidate(ctx context.Context, distributionID string, paths []string, ref string) (string, error) {
	if len(paths) == 0 {
		i.logs.Info("nothing to invalidate", zap.String("distribution", distributionID))
		return "", nil
	}
	if ref == "" {
		ref = "cfsites-" + strconv.FormatInt(i.now().UnixNano(), 10)
	}

	out, err := i.client.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(distributionID),
		InvalidationBatch: &types.InvalidationBatch{
			CallerReference: aws.String(ref),
			Paths: &types.Paths{
				Quantity: aws.Int32(int32(len(paths))), //nolint:gosec // bounded by the plan
				Items:    paths,
			},
		},
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to invalidate distribution %s", distributionID)
	}

	var id string
	if out.Invalidation != nil {
		id = aws.ToString(out.Invalidation.Id)
	}
	i.logs.Info("created invalidation",
		zap.String("distribution", distributionID),
		zap.String("invalidation", id),
		zap.Strings("paths", paths))

	return id, nil
}
