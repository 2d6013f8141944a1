package imageutil

import (
	"image"

	"golang.org/x/image/draw"
)

// Interpolation specifies the interpolation method for resizing.
type Interpolation int

const (
	// InterpolationNearest keeps hard pixel edges; use it for tiles.
	InterpolationNearest Interpolation = iota

	// InterpolationLinear uses bilinear interpolation.
	InterpolationLinear

	// InterpolationArea uses Catmull-Rom for smooth downscaling.
	InterpolationArea
)

func scalerFor(interp Interpolation) draw.Scaler {
	switch interp {
	case InterpolationLinear:
		return draw.BiLinear
	case InterpolationArea:
		return draw.CatmullRom
	default:
		return draw.NearestNeighbor
	}
}

// ResizeGray resizes a grayscale image to the specified dimensions.
func ResizeGray(img *image.Gray, width, height int, interp Interpolation) *GrayImage {
	dst := NewGrayImage(width, height)
	scalerFor(interp).Scale(dst.Gray, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// ScaleGray enlarges a grayscale image by an integer factor with
// nearest-neighbour sampling, so every source pixel becomes a
// factor x factor block.
func ScaleGray(img *image.Gray, factor int) *GrayImage {
	if factor < 1 {
		factor = 1
	}
	b := img.Bounds()
	return ResizeGray(img, b.Dx()*factor, b.Dy()*factor, InterpolationNearest)
}

// DrawGray composites a grayscale image onto an RGBA canvas at (x, y).
func DrawGray(dst *RGBAImage, src *image.Gray, x, y int) {
	r := image.Rect(x, y, x+src.Bounds().Dx(), y+src.Bounds().Dy())
	draw.Draw(dst.RGBA, r, src, src.Bounds().Min, draw.Src)
}
