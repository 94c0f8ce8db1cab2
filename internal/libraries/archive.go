package libraries

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
)

// GCSArchive writes plan snapshots and thumbnails to a Cloud Storage bucket.
type GCSArchive struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

func NewGCSArchive(client *storage.Client, bucket string) *GCSArchive {
	return &GCSArchive{client: client, bucket: bucket, now: time.Now}
}

// ArchivePlan stores payload under plans/<project>/<plan>/<timestamp>.json
// and returns its gs:// URL.
func (a *GCSArchive) ArchivePlan(ctx context.Context, projectID, planID string, payload []byte) (string, error) {
	name := fmt.Sprintf("plans/%s/%s/%d.json", projectID, planID, a.now().UnixMilli())
	if err := a.put(ctx, name, "application/json", bytes.NewReader(payload)); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", a.bucket, name), nil
}

// SaveThumbnail stores a PNG preview of the plan.
func (a *GCSArchive) SaveThumbnail(ctx context.Context, planID string, r io.Reader) (string, error) {
	name := fmt.Sprintf("thumbnails/%s.png", planID)
	if err := a.put(ctx, name, "image/png", r); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", a.bucket, name), nil
}

func (a *GCSArchive) put(ctx context.Context, name, contentType string, r io.Reader) error {
	w := a.client.Bucket(a.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", name, err)
	}
	return nil
}

// LocalArchive is the on-disk fallback used when no bucket is configured.
type LocalArchive struct {
	dir string
	now func() time.Time
}

func NewLocalArchive(dir string) *LocalArchive {
	return &LocalArchive{dir: dir, now: time.Now}
}

func (a *LocalArchive) ArchivePlan(ctx context.Context, projectID, planID string, payload []byte) (string, error) {
	path := filepath.Join(a.dir, "plans", projectID, planID, fmt.Sprintf("%d.json", a.now().UnixMilli()))
	if err := a.write(path, bytes.NewReader(payload)); err != nil {
		return "", err
	}
	return path, nil
}

func (a *LocalArchive) SaveThumbnail(ctx context.Context, planID string, r io.Reader) (string, error) {
	path := filepath.Join(a.dir, "thumbnails", planID+".png")
	if err := a.write(path, r); err != nil {
		return "", err
	}
	return path, nil
}

func (a *LocalArchive) write(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
