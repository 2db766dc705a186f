package tryon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ErrImageNotFound is returned when a local asset does not exist.
var ErrImageNotFound = errors.New("image not found")

// FetchImage loads an image by URL. Paths beginning with "/" are local assets
// resolved against assetsDir; anything else is fetched with client.
func FetchImage(ctx context.Context, client *http.Client, assetsDir, url string) (InputImage, error) {
	if strings.HasPrefix(url, "/") {
		return readLocalImage(assetsDir, url)
	}
	return fetchRemoteImage(ctx, client, url)
}

func readLocalImage(assetsDir, url string) (InputImage, error) {
	// Clean against "/" first so the path cannot climb out of assetsDir.
	rel := filepath.FromSlash(filepath.Clean("/" + strings.TrimPrefix(url, "/")))
	path := filepath.Join(assetsDir, rel)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return InputImage{}, fmt.Errorf("%w: could not find the file at local path %q; make sure it exists under %q",
				ErrImageNotFound, url, assetsDir)
		}
		return InputImage{}, fmt.Errorf("could not load the image from local path %q: %w", url, err)
	}

	img := NewInputImage(data, "", path)
	img.URI = url
	if err := ValidateInputImage(img); err != nil {
		return InputImage{}, fmt.Errorf("local image %q: %w", url, err)
	}
	return img, nil
}

func fetchRemoteImage(ctx context.Context, client *http.Client, url string) (InputImage, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return InputImage{}, fmt.Errorf("invalid image URL %q: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return InputImage{}, fmt.Errorf("could not load the image from external URL %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return InputImage{}, fmt.Errorf("failed to fetch image: %d %s from %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageSize+1))
	if err != nil {
		return InputImage{}, fmt.Errorf("failed to read image from %s: %w", url, err)
	}

	img := NewInputImage(data, resp.Header.Get("Content-Type"), url)
	if err := ValidateInputImage(img); err != nil {
		return InputImage{}, fmt.Errorf("image from %s: %w", url, err)
	}
	return img, nil
}
