// Package imageutil provides the grayscale image plumbing around tile
// extraction: loading maps, converting them to 8-bit luminance, scaling
// and saving.
package imageutil

import (
	"image"
	"image/color"
)

// RGBAImage wraps image.RGBA with convenience methods for pixel access.
type RGBAImage struct {
	*image.RGBA
}

// NewRGBAImage creates a new RGBAImage with the specified dimensions.
func NewRGBAImage(width, height int) *RGBAImage {
	return &RGBAImage{
		RGBA: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// Width returns the image width.
func (img *RGBAImage) Width() int {
	return img.Bounds().Dx()
}

// Height returns the image height.
func (img *RGBAImage) Height() int {
	return img.Bounds().Dy()
}

// FillRect paints the rectangle r with c.
func (img *RGBAImage) FillRect(r image.Rectangle, c color.Color) {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, rgba)
		}
	}
}

// GrayImage wraps image.Gray for 8-bit luminance maps.
type GrayImage struct {
	*image.Gray
}

// NewGrayImage creates a new GrayImage with the specified dimensions.
func NewGrayImage(width, height int) *GrayImage {
	return &GrayImage{
		Gray: image.NewGray(image.Rect(0, 0, width, height)),
	}
}

// Width returns the image width.
func (img *GrayImage) Width() int {
	return img.Bounds().Dx()
}

// Height returns the image height.
func (img *GrayImage) Height() int {
	return img.Bounds().Dy()
}

// GetGray returns the grayscale value at (x, y).
func (img *GrayImage) GetGray(x, y int) uint8 {
	return img.GrayAt(x, y).Y
}

// SetGrayValue sets the grayscale value at (x, y).
func (img *GrayImage) SetGrayValue(x, y int, v uint8) {
	img.Gray.SetGray(x, y, color.Gray{Y: v})
}

// Clone creates a deep copy of the image.
func (img *GrayImage) Clone() *GrayImage {
	clone := NewGrayImage(img.Width(), img.Height())
	for y := 0; y < img.Height(); y++ {
		src := img.PixOffset(img.Bounds().Min.X, img.Bounds().Min.Y+y)
		copy(clone.Pix[y*clone.Stride:y*clone.Stride+img.Width()], img.Pix[src:src+img.Width()])
	}
	return clone
}

// Paste copies src onto img with its top-left corner at (x, y).
func (img *GrayImage) Paste(src *image.Gray, x, y int) {
	sb := src.Bounds()
	for sy := 0; sy < sb.Dy(); sy++ {
		for sx := 0; sx < sb.Dx(); sx++ {
			img.SetGray(x+sx, y+sy, src.GrayAt(sb.Min.X+sx, sb.Min.Y+sy))
		}
	}
}
