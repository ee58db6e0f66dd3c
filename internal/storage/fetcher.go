// Package storage retrieves report statistics documents from object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"go.opentelemetry.io/otel"

	"github.com/tweetbinder/report-analyzer/internal/report"
)

var tracer = otel.Tracer("tb-analyzer/storage")

// Sentinel errors for storage operations
var (
	// ErrObjectNotFound indicates the requested object does not exist
	ErrObjectNotFound = errors.New("object not found")

	// ErrAccessDenied indicates insufficient permissions for the operation
	ErrAccessDenied = errors.New("access denied")

	// ErrNetworkError indicates a network connectivity issue
	ErrNetworkError = errors.New("network error")

	// ErrDocumentTooLarge indicates the object exceeded MaxDocumentBytes
	ErrDocumentTooLarge = errors.New("document too large")
)

// MaxDocumentBytes caps how much of a stats object is read into memory.
const MaxDocumentBytes = 64 << 20

// Backend names accepted by NewFetcher.
const (
	BackendHTTP = "http"
	BackendS3   = "s3"
)

// Fetcher downloads the stats document at a storage URL.
// Every call performs a fresh retrieval.
type Fetcher interface {
	Fetch(ctx context.Context, storageURL string) (*report.StatsDocument, error)
}

// NetworkError is returned when a stats document cannot be retrieved or is not JSON.
type NetworkError struct {
	URL string
	// StatusCode is the HTTP status received, or 0 when no response arrived.
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch report data (HTTP %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("failed to fetch report data: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewFetcher builds the fetcher for backend. An empty backend means BackendHTTP.
func NewFetcher(backend string, s3Config S3Config) (Fetcher, error) {
	switch strings.ToLower(backend) {
	case "", BackendHTTP:
		return NewHTTPFetcher(), nil
	case BackendS3:
		return NewS3Fetcher(s3Config), nil
	default:
		return nil, fmt.Errorf("unknown stats backend %q (expected %q or %q)", backend, BackendHTTP, BackendS3)
	}
}

// classifyStorageError examines a storage error and returns an appropriate sentinel error
func classifyStorageError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", operation, err)
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		switch minioErr.Code {
		case "NoSuchKey", "NoSuchBucket":
			return fmt.Errorf("%s: %w", operation, ErrObjectNotFound)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%s: %w", operation, ErrAccessDenied)
		}
		if minioErr.StatusCode != 0 {
			return classifyStatus(minioErr.StatusCode, operation)
		}
	}

	if containsAny(err.Error(), []string{"connection", "timeout", "network", "dial", "refused", "no such host"}) {
		return fmt.Errorf("%s network issue: %w", operation, ErrNetworkError)
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}

// classifyStatus maps an unsuccessful HTTP status onto the storage sentinels.
func classifyStatus(status int, operation string) error {
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", operation, ErrObjectNotFound)
	case http.StatusForbidden, http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", operation, ErrAccessDenied)
	default:
		return fmt.Errorf("%s: unexpected status %d: %w", operation, status, ErrNetworkError)
	}
}

func containsAny(s string, substrs []string) bool {
	for _, substr := range substrs {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
