package testutil

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
)

// Credentials of the MinIO test container.
const (
	MinioAccessKey = "minioadmin"
	MinioSecretKey = "minioadmin"
)

// MinioEnvironment is a running MinIO container with an admin client.
type MinioEnvironment struct {
	Container *tcminio.MinioContainer
	Endpoint  string // host:port
	Client    *minio.Client
	Ctx       context.Context
}

// SetupMinio starts a MinIO container for S3 integration tests.
// The test is skipped with -short. The container is terminated on cleanup.
func SetupMinio(t *testing.T) *MinioEnvironment {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	ctx := context.Background()

	t.Log("Starting MinIO container...")
	container, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername(MinioAccessKey),
		tcminio.WithPassword(MinioSecretKey),
	)
	if err != nil {
		t.Skipf("MinIO container unavailable (is Docker running?): %v", err)
	}

	env := &MinioEnvironment{Container: container, Ctx: ctx}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Warning: failed to terminate minio container: %v", err)
		}
	})

	env.Endpoint, err = container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get minio endpoint: %v", err)
	}

	env.Client, err = minio.New(env.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(MinioAccessKey, MinioSecretKey, ""),
		Secure: false,
	})
	if err != nil {
		t.Fatalf("Failed to create minio client: %v", err)
	}

	// MinIO needs a moment after the port opens
	maxRetries := 10
	for i := 0; i < maxRetries; i++ {
		_, err = env.Client.ListBuckets(ctx)
		if err == nil {
			break
		}
		if i == maxRetries-1 {
			t.Fatalf("MinIO not ready after %d retries: %v", maxRetries, err)
		}
		t.Logf("MinIO not ready yet, retrying... (%d/%d)", i+1, maxRetries)
		time.Sleep(500 * time.Millisecond)
	}

	return env
}

// CreateBucket creates a bucket, failing the test on error.
func (e *MinioEnvironment) CreateBucket(t *testing.T, bucket string) {
	t.Helper()
	if err := e.Client.MakeBucket(e.Ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		t.Fatalf("Failed to create bucket %s: %v", bucket, err)
	}
}

// PutObject uploads body and returns the object's path-style URL.
func (e *MinioEnvironment) PutObject(t *testing.T, bucket, key string, body []byte) string {
	t.Helper()
	_, err := e.Client.PutObject(e.Ctx, bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("Failed to upload %s/%s: %v", bucket, key, err)
	}
	return e.ObjectURL(bucket, key)
}

// ObjectURL is the path-style URL of an object in the container.
func (e *MinioEnvironment) ObjectURL(bucket, key string) string {
	return fmt.Sprintf("http://%s/%s/%s", e.Endpoint, bucket, key)
}

// BucketURL is the path-style URL of a bucket, usable as a stats base URL.
func (e *MinioEnvironment) BucketURL(bucket string) string {
	return fmt.Sprintf("http://%s/%s", e.Endpoint, bucket)
}
