package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// fetchTimeout bounds every remote image fetch.
const fetchTimeout = 5 * time.Second

// maxImageBytes caps a single fetched image.
const maxImageBytes = 8 << 20

// ImageFetcher resolves an image reference to raw bytes. Implementations
// return an error on failure; callers decide whether that aborts the render
// or degrades to a placeholder.
type ImageFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// FileHTTPFetcher tries the local filesystem first, then HTTP(S) with a
// bounded timeout. Relative paths resolve against the configured asset
// directory.
type FileHTTPFetcher struct {
	assetDir string
	client   *http.Client
	logger   *zap.Logger
}

// NewImageFetcher creates the default local-then-HTTP fetcher.
func NewImageFetcher(assetDir string, logger *zap.Logger) *FileHTTPFetcher {
	return &FileHTTPFetcher{
		assetDir: assetDir,
		client:   &http.Client{Timeout: fetchTimeout},
		logger:   logger,
	}
}

// Fetch returns the image bytes for a local path or URL.
func (f *FileHTTPFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty image reference")
	}

	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		path := ref
		if f.assetDir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(f.assetDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image %s: %w", ref, err)
		}
		return data, nil
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("Image fetch failed", zap.String("url", ref), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	return data, nil
}

// sniffImageType detects the format gofpdf needs for registration.
func sniffImageType(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return "PNG", nil
	case bytes.HasPrefix(data, []byte("\xff\xd8")):
		return "JPG", nil
	case bytes.HasPrefix(data, []byte("GIF8")):
		return "GIF", nil
	default:
		return "", fmt.Errorf("unsupported image format")
	}
}
