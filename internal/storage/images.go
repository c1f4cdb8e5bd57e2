// Package storage keeps uploaded files on local disk and hands out stable
// references to them.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// Defaults for profile pictures
const (
	DefaultMaxDimension = 512
	DefaultMaxBytes     = 5 << 20
	DefaultJPEGQuality  = 85
	ProfilePicturesDir  = "profile_pics"
)

var (
	// ErrUnsupportedImage is returned when the upload is not a JPEG, PNG or GIF
	ErrUnsupportedImage = errors.New("file content is not a supported image")
	// ErrTooLarge is returned when the upload exceeds the size limit
	ErrTooLarge = errors.New("file is too large")
	// ErrInvalidReference is returned for references outside the store
	ErrInvalidReference = errors.New("invalid file reference")
)

// Magic byte signatures for accepted image formats
var magicBytes = [][]byte{
	{0xFF, 0xD8, 0xFF}, // JPEG
	{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, // PNG
	{0x47, 0x49, 0x46, 0x38, 0x37, 0x61},             // GIF87a
	{0x47, 0x49, 0x46, 0x38, 0x39, 0x61},             // GIF89a
}

// ImageStore persists uploaded images
type ImageStore interface {
	// SaveImage validates, normalises and stores an image, returning its reference
	SaveImage(ctx context.Context, r io.Reader) (string, error)
	// Load returns the bytes of a stored image
	Load(ctx context.Context, ref string) ([]byte, error)
	// Delete removes a previously stored image
	Delete(ctx context.Context, ref string) error
}

// LocalImageStore stores images below a root directory. References are
// paths relative to the root, e.g. "profile_pics/<uuid>.jpg".
type LocalImageStore struct {
	root         string
	maxBytes     int64
	maxDimension int
	quality      int
}

// NewLocalImageStore creates the profile picture directory below root
func NewLocalImageStore(root string) (*LocalImageStore, error) {
	if err := os.MkdirAll(filepath.Join(root, ProfilePicturesDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &LocalImageStore{
		root:         root,
		maxBytes:     DefaultMaxBytes,
		maxDimension: DefaultMaxDimension,
		quality:      DefaultJPEGQuality,
	}, nil
}

// Root returns the directory files are served from
func (s *LocalImageStore) Root() string {
	return s.root
}

// SaveImage checks the magic bytes, downsizes the image to fit within the
// maximum dimension and stores it re-encoded as JPEG
func (s *LocalImageStore) SaveImage(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}
	if !hasImageMagic(data) {
		return "", ErrUnsupportedImage
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	encoded, err := normalize(data, s.maxDimension, s.quality)
	if err != nil {
		return "", err
	}

	ref := ProfilePicturesDir + "/" + uuid.New().String() + ".jpg"
	if err := os.WriteFile(filepath.Join(s.root, filepath.FromSlash(ref)), encoded, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	log.Debug().Str("ref", ref).Int("bytes", len(encoded)).Msg("Stored image")
	return ref, nil
}

// Load reads a stored image back
func (s *LocalImageStore) Load(ctx context.Context, ref string) ([]byte, error) {
	path, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", ref, err)
	}
	return data, nil
}

// Delete removes a stored image. Missing files are not an error.
func (s *LocalImageStore) Delete(_ context.Context, ref string) error {
	path, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// path resolves a reference, rejecting anything that escapes the root
func (s *LocalImageStore) path(ref string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(ref))
	if ref == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrInvalidReference
	}
	return filepath.Join(s.root, clean), nil
}

func hasImageMagic(data []byte) bool {
	for _, sig := range magicBytes {
		if bytes.HasPrefix(data, sig) {
			return true
		}
	}
	return false
}

// normalize decodes an image, scales it to fit within maxDimension keeping
// the aspect ratio, flattens transparency onto white and encodes JPEG
func normalize(data []byte, maxDimension, quality int) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image (format: %s): %v", ErrUnsupportedImage, format, err)
	}

	bounds := img.Bounds()
	width, height := fitWithin(bounds.Dx(), bounds.Dy(), maxDimension)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// fitWithin returns dimensions no larger than max on either side
func fitWithin(width, height, max int) (int, int) {
	if width <= max && height <= max {
		return width, height
	}
	if width >= height {
		h := int(float64(height) * float64(max) / float64(width))
		if h < 1 {
			h = 1
		}
		return max, h
	}
	w := int(float64(width) * float64(max) / float64(height))
	if w < 1 {
		w = 1
	}
	return w, max
}
