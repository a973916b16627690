// Package backup exports aggregate snapshots to Google Cloud Storage on
// demand, one timestamped JSON object per snapshot.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/finanai/internal/domain"
)

// Uploader writes snapshots into a fixed bucket. It assumes Application
// Default Credentials are configured.
type Uploader struct {
	bucket string
}

// NewUploader targets the given bucket.
func NewUploader(bucket string) *Uploader {
	return &Uploader{bucket: bucket}
}

// Snapshot serializes the aggregate and uploads it under
// backups/<identityKey>/<timestamp>.json, returning the object's GCS URI.
func (u *Uploader) Snapshot(ctx context.Context, identityKey string, data domain.FinancialData) (string, error) {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("backup: encode aggregate: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("backup: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	objectName := fmt.Sprintf("backups/%s/%s.json", identityKey, time.Now().UTC().Format("20060102T150405Z"))
	w := client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(encoded); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("backup: write snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("backup: finalize snapshot: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", u.bucket, objectName), nil
}
