package storage

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(t.TempDir(), "/uploads", "http://localhost:8080", 32)
	require.NoError(t, err)
	return s
}

func TestSplitDataURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantMIME string
		wantData string
	}{
		{
			name:     "png data URL",
			input:    "data:image/png;base64,aGVsbG8=",
			wantMIME: "image/png",
			wantData: "aGVsbG8=",
		},
		{
			name:     "jpeg data URL",
			input:    "data:image/jpeg;base64,Zm9v",
			wantMIME: "image/jpeg",
			wantData: "Zm9v",
		},
		{
			name:     "bare base64 defaults to jpeg",
			input:    "Zm9v",
			wantMIME: "image/jpeg",
			wantData: "Zm9v",
		},
		{
			name:     "data prefix without comma",
			input:    "data:Zm9v",
			wantMIME: "image/jpeg",
			wantData: "Zm9v",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, payload := SplitDataURL(tt.input)
			assert.Equal(t, tt.wantMIME, mime)
			assert.Equal(t, tt.wantData, payload)
		})
	}
}

func TestSaveBytesAndURL(t *testing.T) {
	s := newTestStorage(t)

	url, err := s.SaveBytes("leads/l1/photo.jpg", []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/leads/l1/photo.jpg", url)

	data, err := os.ReadFile(filepath.Join(s.Dir(), "leads", "l1", "photo.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)
}

func TestSaveBytesRejectsTraversal(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.SaveBytes("../escape.jpg", []byte("x"))
	require.NoError(t, err)

	// The path is cleaned so the write stays inside the base dir.
	_, statErr := os.Stat(filepath.Join(s.Dir(), "escape.jpg"))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(filepath.Dir(s.Dir()), "escape.jpg"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSaveDataURLAppendsExtension(t *testing.T) {
	s := newTestStorage(t)

	payload := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	url, err := s.SaveDataURL("data:image/png;base64,"+payload, "designs/sketch")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/designs/sketch.png", url)
}

func TestSaveDataURLInvalidBase64(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.SaveDataURL("data:image/png;base64,!!!not-base64!!!", "x")
	assert.Error(t, err)
}

func TestThumbnail(t *testing.T) {
	s := newTestStorage(t)

	// 64x64 source, thumbnail width configured at 32.
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	_, err := s.SaveBytes("leads/l1/site.png", buf.Bytes())
	require.NoError(t, err)

	url, err := s.Thumbnail("leads/l1/site.png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/leads/l1/site_thumb.png", url)

	f, err := os.Open(filepath.Join(s.Dir(), "leads", "l1", "site_thumb.png"))
	require.NoError(t, err)
	defer f.Close()

	thumb, format, err := image.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 32, thumb.Bounds().Dx())
}

func TestThumbnailMissingFile(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Thumbnail("leads/none.png")
	assert.Error(t, err)
}
