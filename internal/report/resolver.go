// Package report turns a Tweet Binder report reference into a storage location
// and reduces the fetched statistics document to the fields the analyst needs.
package report

import (
	"errors"
	"strings"
)

const (
	// DefaultStorageBaseURL is the public bucket holding every report's statistics.
	DefaultStorageBaseURL = "https://s3.eu-west-1.amazonaws.com/stats.tweetbinder.com"

	// StatsFileName is the object name under each report identifier.
	StatsFileName = "stats.json"
)

// ErrEmptyReference is returned when no report URL was supplied.
var ErrEmptyReference = errors.New("a report URL is required")

// Resolver maps user-supplied report URLs onto stats document URLs.
type Resolver struct {
	baseURL string
}

// NewResolver creates a resolver rooted at baseURL, or DefaultStorageBaseURL when empty.
func NewResolver(baseURL string) *Resolver {
	if baseURL == "" {
		baseURL = DefaultStorageBaseURL
	}
	return &Resolver{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// BaseURL returns the storage root used for every resolved URL.
func (r *Resolver) BaseURL() string {
	return r.baseURL
}

// Resolve returns the storage URL of the stats document for ref.
// The report identifier is everything after the last "/" in ref, taken as-is:
// no trimming, no encoding, no validation. A ref without "/" is used whole and
// a ref ending in "/" yields an empty identifier.
func (r *Resolver) Resolve(ref string) string {
	return r.baseURL + "/" + ReportID(ref) + "/" + StatsFileName
}

// ReportID extracts the final path segment of ref.
func ReportID(ref string) string {
	return ref[strings.LastIndex(ref, "/")+1:]
}

// ValidateReference rejects empty or whitespace-only references.
func ValidateReference(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return ErrEmptyReference
	}
	return nil
}
