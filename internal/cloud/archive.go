package cloud

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
)

// Archiver streams a rendered output file to a GCS bucket. It is optional:
// the job pipeline only calls it when Storage.ArchiveBucket is configured,
// and a nil *storage.Client (no bucket configured) is never wrapped in one.
type Archiver struct {
	client *storage.Client
	bucket string
}

// NewArchiver returns nil if client is nil, so callers can unconditionally
// check `archiver != nil` rather than threading a separate "archiving
// enabled" flag alongside it.
func NewArchiver(client *storage.Client, bucket string) *Archiver {
	if client == nil || bucket == "" {
		return nil
	}
	return &Archiver{client: client, bucket: bucket}
}

// Upload streams localPath to objectName in the configured bucket and
// returns the gs:// URL of the archived object.
func (a *Archiver) Upload(ctx context.Context, localPath, objectName string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s for archival: %w", localPath, err)
	}
	defer f.Close()

	obj := a.client.Bucket(a.bucket).Object(objectName)
	writer := obj.NewWriter(ctx)

	if _, err := io.Copy(writer, f); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("upload %s to gs://%s/%s: %w", localPath, a.bucket, objectName, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize upload to gs://%s/%s: %w", a.bucket, objectName, err)
	}

	return fmt.Sprintf("gs://%s/%s", a.bucket, objectName), nil
}
