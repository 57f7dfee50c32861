package symbol

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	// Photographs and screenshots of symbols arrive in any of these formats.
	_ "image/gif"
	_ "image/jpeg"
)

// ErrImageRead is returned when an image file cannot be opened or decoded.
var ErrImageRead = errors.New("failed to read image")

// WritePNG writes img to path, creating parent directories as needed.
func WritePNG(path string, img image.Image) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return f.Close()
}

// ReadImage opens and decodes a PNG, JPEG or GIF file.
func ReadImage(path string) (image.Image, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrImageRead)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageRead, err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrImageRead, path, err)
	}
	return img, nil
}

// DecodeFile reads the image at path and decodes the symbol in it.
func DecodeFile(c Codec, path string) (string, error) {
	img, err := ReadImage(path)
	if err != nil {
		return "", err
	}
	return c.Decode(img)
}
