package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tweetbinder/report-analyzer/internal/logger"
	"github.com/tweetbinder/report-analyzer/internal/report"
)

// DefaultS3Region is the region of the public stats bucket.
const DefaultS3Region = "eu-west-1"

// S3Config holds S3/MinIO configuration.
// Empty credentials mean anonymous, unsigned requests.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// ObjectLocation is a path-style S3 URL split into its parts.
type ObjectLocation struct {
	Endpoint string
	Secure   bool
	Bucket   string
	Key      string
}

// ParseObjectURL splits a path-style URL such as
// https://s3.eu-west-1.amazonaws.com/stats.tweetbinder.com/abc/stats.json.
func ParseObjectURL(raw string) (ObjectLocation, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ObjectLocation{}, fmt.Errorf("invalid storage URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ObjectLocation{}, fmt.Errorf("invalid storage URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return ObjectLocation{}, fmt.Errorf("invalid storage URL %q: missing host", raw)
	}

	bucket, key, ok := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if !ok || bucket == "" || key == "" {
		return ObjectLocation{}, fmt.Errorf("invalid storage URL %q: expected /<bucket>/<key>", raw)
	}

	return ObjectLocation{
		Endpoint: u.Host,
		Secure:   u.Scheme == "https",
		Bucket:   bucket,
		Key:      key,
	}, nil
}

// S3Fetcher retrieves stats documents through the S3 API.
// One client is kept per endpoint.
type S3Fetcher struct {
	config S3Config

	mu      sync.Mutex
	clients map[string]*minio.Client
}

// NewS3Fetcher creates an S3 fetcher. Region defaults to DefaultS3Region.
func NewS3Fetcher(config S3Config) *S3Fetcher {
	if config.Region == "" {
		config.Region = DefaultS3Region
	}
	return &S3Fetcher{
		config:  config,
		clients: make(map[string]*minio.Client),
	}
}

func (f *S3Fetcher) client(loc ObjectLocation) (*minio.Client, error) {
	cacheKey := fmt.Sprintf("%t|%s", loc.Secure, loc.Endpoint)

	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[cacheKey]; ok {
		return c, nil
	}
	c, err := minio.New(loc.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(f.config.AccessKeyID, f.config.SecretAccessKey, ""),
		Secure:       loc.Secure,
		Region:       f.config.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	f.clients[cacheKey] = c
	return c, nil
}

// Fetch downloads and parses the object addressed by storageURL.
// Any failure, including an object that is not JSON, is a *NetworkError.
func (f *S3Fetcher) Fetch(ctx context.Context, storageURL string) (*report.StatsDocument, error) {
	ctx, span := tracer.Start(ctx, "storage.fetch_stats",
		trace.WithAttributes(
			attribute.String("storage.backend", BackendS3),
			attribute.String("storage.url", storageURL),
		))
	defer span.End()

	fail := func(err error) (*report.StatsDocument, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &NetworkError{URL: storageURL, Err: err}
	}

	loc, err := ParseObjectURL(storageURL)
	if err != nil {
		return fail(err)
	}
	span.SetAttributes(
		attribute.String("storage.bucket", loc.Bucket),
		attribute.String("storage.key", loc.Key),
	)

	c, err := f.client(loc)
	if err != nil {
		return fail(err)
	}

	object, err := c.GetObject(ctx, loc.Bucket, loc.Key, minio.GetObjectOptions{})
	if err != nil {
		return fail(classifyStorageError(err, "download"))
	}
	defer object.Close()

	data, err := io.ReadAll(io.LimitReader(object, MaxDocumentBytes+1))
	if err != nil {
		return fail(classifyStorageError(err, "download"))
	}
	if len(data) > MaxDocumentBytes {
		return fail(ErrDocumentTooLarge)
	}

	doc, err := report.ParseStatsDocument(data)
	if err != nil {
		return fail(err)
	}

	span.SetAttributes(attribute.Int("file.size", len(data)))
	logger.Ctx(ctx).Debug("fetched stats document",
		"url", storageURL,
		"backend", BackendS3,
		"size", humanize.Bytes(uint64(len(data))))
	return doc, nil
}
