package gcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
// An existing object is not a failure: results are keyed by entry id and never rewritten.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName, content string) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)

	if _, err := io.Copy(writer, strings.NewReader(content)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			slog.Info("Object already exists. Skipping.", "gcsObject", objectName)
			return nil
		}
		slog.Error("Failed to copy content to GCS object", "gcsObject", objectName, "error", err)
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("Object already exists. Skipping.", "gcsObject", objectName)
			return nil
		}
		slog.Error("Failed to close GCS writer", "gcsObject", objectName, "error", err)
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// ReadObject downloads a whole object into memory.
func ReadObject(ctx context.Context, client *storage.Client, bucket, object string) ([]byte, error) {
	reader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", bucket, object, err)
	}
	return data, nil
}

func isPreconditionFailed(err error) bool {
	gerr, ok := err.(*googleapi.Error)
	return ok && gerr.Code == 412
}

// GCSObjects reads and archives objects through one storage client.
type GCSObjects struct {
	client *storage.Client
}

// NewGCSObjects creates a storage client using application default credentials.
func NewGCSObjects(ctx context.Context) (*GCSObjects, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &GCSObjects{client: client}, nil
}

// Read downloads gs://bucket/object.
func (g *GCSObjects) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	return ReadObject(ctx, g.client, bucket, object)
}

// Save writes content once; an existing object is left untouched.
func (g *GCSObjects) Save(ctx context.Context, bucket, object, content string) error {
	return SaveToGCSAtomically(ctx, g.client.Bucket(bucket), object, content)
}

// Close closes the storage client.
func (g *GCSObjects) Close() error {
	return g.client.Close()
}
