// Package imageio reads input images and writes output masks for the CLI.
package imageio

import (
	"image"
	_ "image/jpeg" // register JPEG decoding
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp" // register BMP decoding
	"golang.org/x/image/tiff"

	"declump/internal/models"
)

// LoadImage decodes a PNG, JPEG, TIFF or BMP file
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening image")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return img, nil
}

// SaveMask writes m as an 8-bit gray image with foreground 255.
// The format follows the extension: .png, .tif or .tiff.
func SaveMask(path string, m models.Mask) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".png" && ext != ".tif" && ext != ".tiff" {
		return errors.Errorf("unsupported mask format %q", ext)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "creating output directory")
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating mask file")
	}
	defer f.Close()

	img := m.ToGray()
	if ext == ".png" {
		err = png.Encode(f, img)
	} else {
		err = tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	}
	if err != nil {
		return errors.Wrapf(err, "encoding %s", path)
	}
	return f.Close()
}
