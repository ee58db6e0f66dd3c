package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tweetbinder/report-analyzer/internal/logger"
	"github.com/tweetbinder/report-analyzer/internal/report"
)

// HTTPFetcher retrieves stats documents with a plain HTTP GET.
type HTTPFetcher struct {
	httpClient *http.Client
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient replaces the HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		f.httpClient = c
	}
}

// NewHTTPFetcher creates a fetcher using an instrumented client with no timeout
// of its own; callers bound the request through the context.
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads and parses the document at storageURL.
// Any failure, including a body that is not JSON, is a *NetworkError.
func (f *HTTPFetcher) Fetch(ctx context.Context, storageURL string) (*report.StatsDocument, error) {
	ctx, span := tracer.Start(ctx, "storage.fetch_stats",
		trace.WithAttributes(
			attribute.String("storage.backend", BackendHTTP),
			attribute.String("storage.url", storageURL),
		))
	defer span.End()

	fail := func(status int, err error) (*report.StatsDocument, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &NetworkError{URL: storageURL, StatusCode: status, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, storageURL, nil)
	if err != nil {
		return fail(0, fmt.Errorf("invalid storage URL: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fail(0, classifyStorageError(err, "fetch"))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fail(resp.StatusCode, classifyStatus(resp.StatusCode, "fetch"))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentBytes+1))
	if err != nil {
		return fail(0, classifyStorageError(err, "read"))
	}
	if len(data) > MaxDocumentBytes {
		return fail(0, ErrDocumentTooLarge)
	}

	doc, err := report.ParseStatsDocument(data)
	if err != nil {
		return fail(0, err)
	}

	span.SetAttributes(attribute.Int("file.size", len(data)))
	logger.Ctx(ctx).Debug("fetched stats document",
		"url", storageURL,
		"backend", BackendHTTP,
		"size", humanize.Bytes(uint64(len(data))))
	return doc, nil
}
