package tryon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Storage is an interface for persisting generated images.
// Implementations can wrap cloud storage clients (GCS, S3, etc.).
type Storage interface {
	// SaveFile saves image data and returns where it can be accessed.
	// The contentType is the image's MIME type (e.g., "image/png").
	SaveFile(ctx context.Context, data []byte, path string, contentType string) (string, error)
}

// StorageResult contains information about a saved image.
type StorageResult struct {
	// URL is where the image can be accessed
	URL string

	// Path is the storage path/key where the image was saved
	Path string

	// Size is the number of bytes saved
	Size int
}

// SaveDataURI decodes a data URI and saves it as {basePath}.{extension}.
func SaveDataURI(ctx context.Context, storage Storage, dataURI, basePath string) (*StorageResult, error) {
	if storage == nil {
		return nil, ErrStorageNotConfigured
	}

	img, err := ParseDataURI(dataURI)
	if err != nil {
		return nil, err
	}

	path := basePath + "." + extensionFromMIME(img.MIMEType)
	url, err := storage.SaveFile(ctx, img.Data, path, img.MIMEType)
	if err != nil {
		return nil, err
	}

	return &StorageResult{
		URL:  url,
		Path: path,
		Size: len(img.Data),
	}, nil
}

// FileStorage writes images below a local directory.
type FileStorage struct {
	Dir string
}

var _ Storage = (*FileStorage)(nil)

// SaveFile implements Storage. The returned URL is the file path.
func (s *FileStorage) SaveFile(ctx context.Context, data []byte, path string, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	full := filepath.Join(s.Dir, filepath.Clean("/"+path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", full, err)
	}
	return full, nil
}

// extensionFromMIME returns a file extension for common image MIME types.
func extensionFromMIME(mime string) string {
	switch mime {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}
