package imageutil

import (
	"image"
)

// CreateSolidGray creates a grayscale image filled with v.
func CreateSolidGray(width, height int, v uint8) *GrayImage {
	img := NewGrayImage(width, height)
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// CreatePatternTile creates a size x size tile whose pixels are a
// function of id, so distinct ids give distinct, asymmetric tiles.
func CreatePatternTile(size, id int) *image.Gray {
	tile := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			tile.Pix[y*tile.Stride+x] = uint8((id*37 + x*3 + y*11 + x*y) % 256)
		}
	}
	return tile
}

// CreateTiledMap lays out pattern tiles according to layout, indexed
// [row][column] with values used as CreatePatternTile ids. The map is
// shifted right and down by pad, leaving a zero band on the top and left.
func CreateTiledMap(layout [][]int, tileSize int, pad image.Point) *GrayImage {
	rows := len(layout)
	cols := 0
	if rows > 0 {
		cols = len(layout[0])
	}
	img := NewGrayImage(cols*tileSize+pad.X, rows*tileSize+pad.Y)
	for r, row := range layout {
		for c, id := range row {
			img.Paste(CreatePatternTile(tileSize, id), pad.X+c*tileSize, pad.Y+r*tileSize)
		}
	}
	return img
}

// CreateCheckerboardGray creates a checkerboard of lo and hi squares.
func CreateCheckerboardGray(width, height, squareSize int, lo, hi uint8) *GrayImage {
	img := NewGrayImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := hi
			if ((x/squareSize)+(y/squareSize))%2 == 1 {
				v = lo
			}
			img.Pix[y*img.Stride+x] = v
		}
	}
	return img
}

// CalculateMaxDiffGray returns the largest absolute pixel difference
// between two grayscale images, or 256 when their sizes differ.
func CalculateMaxDiffGray(img1, img2 *GrayImage) int {
	if img1.Width() != img2.Width() || img1.Height() != img2.Height() {
		return 256
	}
	maxDiff := 0
	for y := 0; y < img1.Height(); y++ {
		for x := 0; x < img1.Width(); x++ {
			d := int(img1.GetGray(x, y)) - int(img2.GetGray(x, y))
			if d < 0 {
				d = -d
			}
			maxDiff = max(maxDiff, d)
		}
	}
	return maxDiff
}
