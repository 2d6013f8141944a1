//go:build gocv

package imageutil

import (
	"fmt"

	"gocv.io/x/gocv"
)

func init() {
	grayLoader = loadGrayOpenCV
}

// loadGrayOpenCV reads the image with OpenCV's own grayscale conversion,
// which also covers formats the Go decoders lack.
func loadGrayOpenCV(path string) (*GrayImage, error) {
	mat := gocv.IMRead(path, gocv.IMReadGrayScale)
	if mat.Empty() {
		return nil, fmt.Errorf("could not read image from %s", path)
	}
	defer mat.Close()

	height, width := mat.Rows(), mat.Cols()
	img := NewGrayImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Gray.Pix[y*img.Stride+x] = mat.GetUCharAt(y, x)
		}
	}
	return img, nil
}
