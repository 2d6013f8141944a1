package imageutil

import (
	"image"
	"image/color"
)

// ToGrayscale converts any image to 8-bit grayscale using the BT.601
// luminance formula Y = 0.299*R + 0.587*G + 0.114*B, the same weighting
// OpenCV and PIL use. Gray inputs are copied unchanged.
func ToGrayscale(img image.Image) *GrayImage {
	if g, ok := img.(*image.Gray); ok {
		return (&GrayImage{Gray: g}).Clone()
	}

	bounds := img.Bounds()
	gray := NewGrayImage(bounds.Dx(), bounds.Dy())

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// Integer math on 8-bit channels, rounded
			lum := (299*int(r>>8) + 587*int(g>>8) + 114*int(b>>8) + 500) / 1000
			if lum > 255 {
				lum = 255
			}
			gray.Gray.SetGray(x-bounds.Min.X, y-bounds.Min.Y, color.Gray{Y: uint8(lum)})
		}
	}

	return gray
}
