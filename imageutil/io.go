package imageutil

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// grayLoader reads an image file as grayscale. Builds tagged gocv replace
// it with an OpenCV reader.
var grayLoader = loadGrayStd

// LoadGray loads the image at path and converts it to grayscale.
// Supports PNG, JPEG, GIF, BMP, TIFF and WebP.
func LoadGray(path string) (*GrayImage, error) {
	return grayLoader(path)
}

func loadGrayStd(path string) (*GrayImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	return DecodeGray(f)
}

// DecodeGray decodes an image in any registered format and converts it to
// grayscale.
func DecodeGray(r io.Reader) (*GrayImage, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return ToGrayscale(img), nil
}

// SaveImage saves an image to the specified path.
// Format is determined by file extension (png, jpg/jpeg, gif).
func SaveImage(img image.Image, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	return saveWith(path, func(w io.Writer) error {
		switch ext {
		case ".jpg", ".jpeg":
			return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
		case ".gif":
			return gif.Encode(w, img, nil)
		default:
			return png.Encode(w, img)
		}
	})
}

// SavePNG saves an image as PNG to the specified path, whatever its
// extension.
func SavePNG(img image.Image, path string) error {
	return saveWith(path, func(w io.Writer) error {
		return png.Encode(w, img)
	})
}

func saveWith(path string, encode func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := encode(f); err != nil {
		return err
	}
	return f.Close()
}
