package storage

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, width, height int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func TestSave_ReencodesAndReturnsURL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewImageStore(dir, "/uploads/", 100, 80)
	require.NoError(t, err)

	url, err := store.Save(testPNG(t, 300, 150))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".jpg"))

	// The stored file exists and decodes as a bounded JPEG.
	name := strings.TrimPrefix(url, "/uploads/")
	f, err := os.Open(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	img, format, err := image.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	b := img.Bounds()
	assert.LessOrEqual(t, b.Dx(), 100)
	assert.LessOrEqual(t, b.Dy(), 100)
}

func TestSave_UniqueNames(t *testing.T) {
	store, err := NewImageStore(t.TempDir(), "/uploads", 0, 80)
	require.NoError(t, err)

	a, err := store.Save(testPNG(t, 10, 10))
	require.NoError(t, err)
	b, err := store.Save(testPNG(t, 10, 10))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSave_RejectsNonImage(t *testing.T) {
	store, err := NewImageStore(t.TempDir(), "/uploads", 100, 80)
	require.NoError(t, err)

	_, err = store.Save(bytes.NewBufferString("definitely not an image"))
	assert.True(t, errors.Is(err, ErrImageDecode))
}

func TestNewImageStore_Validation(t *testing.T) {
	_, err := NewImageStore("  ", "/uploads", 100, 80)
	assert.Error(t, err)
}
