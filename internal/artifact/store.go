// Package artifact provides the blob store client: downloading source
// media to local scratch paths and uploading results to durable storage.
// It defines the Store port and implementations for HTTP download plus S3
// upload. The store never deletes local files; scratch lifecycle belongs
// to the pipeline.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Static errors for artifact operations.
var (
	// ErrUploadNotConfigured is returned when uploads are attempted without
	// a configured durable backend.
	ErrUploadNotConfigured = errors.New("artifact upload is not configured")
	// ErrBadStatus is returned when a download responds with a non-2xx code.
	ErrBadStatus = errors.New("unexpected download status")
)

// Store is the blob store contract the pipeline depends on.
type Store interface {
	// Download fetches the blob at url and writes it to dstPath.
	Download(ctx context.Context, url, dstPath string) error

	// Upload persists a local file under the given folder and returns its
	// public URL. Images keep their original extension; video output is
	// normalized to .mp4.
	Upload(ctx context.Context, localPath, folder string, isImage bool) (string, error)
}

// Downloader fetches blobs over HTTP with a bounded timeout.
type Downloader struct {
	client *http.Client
}

// NewDownloader creates a Downloader. A zero timeout disables the bound.
func NewDownloader(timeout time.Duration) *Downloader {
	return &Downloader{client: &http.Client{Timeout: timeout}}
}

// Download fetches url and streams the body to dstPath.
func (d *Downloader) Download(ctx context.Context, url, dstPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %d from %s", ErrBadStatus, resp.StatusCode, url)
	}

	f, err := os.Create(dstPath) // #nosec G304 - dstPath is scratch-allocated
	if err != nil {
		return fmt.Errorf("create download target: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(dstPath)
		return fmt.Errorf("write download target: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dstPath)
		return fmt.Errorf("close download target: %w", err)
	}
	return nil
}

// contentTypeByExt maps the extensions this engine produces to MIME types.
func contentTypeByExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".mp4":
		return "video/mp4"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".ass":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// uploadExt picks the stored extension: images preserve their container,
// video normalizes to mp4.
func uploadExt(localPath string, isImage bool) string {
	if isImage {
		if ext := filepath.Ext(localPath); ext != "" {
			return ext
		}
		return ".png"
	}
	return ".mp4"
}
