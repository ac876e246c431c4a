// Package storage persists uploaded watch photos on local disk. Images are
// decoded, resized to a bounded longest edge, and re-encoded as JPEG before
// being written under a random unique name; callers only ever see the public
// URL of a completed upload.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ErrImageDecode is returned when the payload is not a decodable image.
var ErrImageDecode = errors.New("could not decode image")

// ErrImageEncode is returned when re-encoding or writing the image fails.
var ErrImageEncode = errors.New("could not store image")

// ImageStore writes normalized JPEGs to a base directory and maps them to
// public URLs under a configured prefix.
type ImageStore struct {
	basePath  string
	publicURL string
	maxDim    int
	quality   int
}

// NewImageStore creates the base directory if needed and returns a store.
func NewImageStore(basePath, publicURL string, maxDim, quality int) (*ImageStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, errors.New("base path cannot be empty")
	}
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, err
	}
	return &ImageStore{
		basePath:  absPath,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxDim:    maxDim,
		quality:   quality,
	}, nil
}

// BasePath returns the absolute directory images are written to. The HTTP
// layer serves this directory under the public URL prefix.
func (s *ImageStore) BasePath() string { return s.basePath }

// Save decodes the uploaded image, bounds its longest edge to the configured
// maximum, re-encodes it as JPEG, and writes it under a fresh random name.
// The returned URL is the only reference clients may store on a record.
func (s *ImageStore) Save(r io.Reader) (string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	// Fit preserves aspect ratio and never upscales.
	if s.maxDim > 0 {
		img = imaging.Fit(img, s.maxDim, s.maxDim, imaging.Lanczos)
	}

	filename := uuid.NewString() + ".jpg"
	absolutePath := filepath.Join(s.basePath, filename)

	// The name is generated, not user-supplied, but keep the invariant
	// explicit: nothing is ever written outside the base directory.
	if !strings.HasPrefix(absolutePath, s.basePath) {
		return "", ErrImageEncode
	}

	f, err := os.OpenFile(absolutePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrImageEncode, err)
	}
	defer f.Close()

	if err := imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(s.quality)); err != nil {
		os.Remove(absolutePath)
		return "", fmt.Errorf("%w: %v", ErrImageEncode, err)
	}

	return s.publicURL + "/" + filename, nil
}
