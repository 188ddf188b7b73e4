package storage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
)

// Storage keeps uploaded images on local disk, addressed by a relative path
// and served back as fetchable URLs under the public mount.
type Storage struct {
	baseDir     string
	publicPath  string
	baseURL     string
	thumbnailPx uint
}

func New(baseDir, publicPath, baseURL string, thumbnailPx uint) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", baseDir, err)
	}
	return &Storage{
		baseDir:     baseDir,
		publicPath:  strings.TrimSuffix(publicPath, "/"),
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		thumbnailPx: thumbnailPx,
	}, nil
}

// Dir returns the on-disk root, for the static file mount.
func (s *Storage) Dir() string {
	return s.baseDir
}

// URL maps a stored path to its fetchable URL.
func (s *Storage) URL(path string) string {
	return s.baseURL + s.publicPath + "/" + strings.TrimPrefix(path, "/")
}

// SaveBytes writes a blob under the given relative path and returns its URL.
func (s *Storage) SaveBytes(path string, data []byte) (string, error) {
	full := filepath.Join(s.baseDir, filepath.Clean("/"+path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return s.URL(path), nil
}

// SaveDataURL stores a base64 data URL (or bare base64 payload) and returns
// its URL. The extension is derived from the declared MIME type.
func (s *Storage) SaveDataURL(dataURL, path string) (string, error) {
	mimeType, payload := SplitDataURL(dataURL)

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("invalid base64 payload: %w", err)
	}

	if filepath.Ext(path) == "" {
		path += extensionFor(mimeType)
	}
	return s.SaveBytes(path, data)
}

// Thumbnail decodes a stored image and writes a resized copy next to it,
// returning the thumbnail URL.
func (s *Storage) Thumbnail(path string) (string, error) {
	full := filepath.Join(s.baseDir, filepath.Clean("/"+path))
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", path, err)
	}

	thumb := resize.Resize(s.thumbnailPx, 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, thumb)
	default:
		err = jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode thumbnail for %s: %w", path, err)
	}

	ext := filepath.Ext(path)
	thumbPath := strings.TrimSuffix(path, ext) + "_thumb" + ext
	return s.SaveBytes(thumbPath, buf.Bytes())
}

// SplitDataURL separates a data URL into MIME type and base64 payload. A bare
// base64 string is treated as image/jpeg.
func SplitDataURL(dataURL string) (mimeType, payload string) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "image/jpeg", dataURL
	}
	rest := strings.TrimPrefix(dataURL, "data:")
	parts := strings.SplitN(rest, ",", 2)
	if len(parts) != 2 {
		return "image/jpeg", rest
	}
	mimeType = strings.TrimSuffix(parts[0], ";base64")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return mimeType, parts[1]
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
