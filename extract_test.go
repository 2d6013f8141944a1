package tilecluster

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/wbrown/tilecluster/imageutil"
)

// uniformMap is a 4x4 layout of one pattern tile, shifted by (1,2) pixels.
func uniformMap() *image.Gray {
	layout := [][]int{{7, 7, 7, 7}, {7, 7, 7, 7}, {7, 7, 7, 7}, {7, 7, 7, 7}}
	return imageutil.CreateTiledMap(layout, 4, image.Pt(1, 2)).Gray
}

func TestSplitIntoTilesTruncates(t *testing.T) {
	img := imageutil.CreateCheckerboardGray(35, 20, 3, 10, 200)
	e := NewExtractor(WithTileSize(8))

	grid, err := e.SplitIntoTiles(img.Gray, image.Point{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if grid.Rows() != 2 || grid.Cols() != 4 {
		t.Fatalf("Expected 2x4 grid, got %dx%d", grid.Rows(), grid.Cols())
	}
	want := TileFromGray(img.Gray, 16, 8, 8)
	if !grid[1][2].Equal(want) {
		t.Error("Tile (1,2) should be the 8x8 block at (16,8)")
	}

	grid, err = e.SplitIntoTiles(img.Gray, image.Pt(3, 5))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if grid.Rows() != 1 || grid.Cols() != 4 {
		t.Fatalf("Expected 1x4 grid at offset, got %dx%d", grid.Rows(), grid.Cols())
	}
	if want := TileFromGray(img.Gray, 3, 5, 8); !grid[0][0].Equal(want) {
		t.Error("First tile should start at the offset")
	}
}

func TestSplitIntoTilesErrors(t *testing.T) {
	img := imageutil.CreateSolidGray(10, 10, 0).Gray
	tests := []struct {
		name   string
		e      *Extractor
		img    *image.Gray
		offset image.Point
		want   error
	}{
		{"zero tile size", NewExtractor(WithTileSize(0)), img, image.Point{}, ErrFormat},
		{"negative offset", NewExtractor(WithTileSize(4)), img, image.Pt(-1, 0), ErrFormat},
		{"too small", NewExtractor(WithTileSize(16)), img, image.Point{}, ErrFormat},
		{"empty image", NewExtractor(WithTileSize(4)), image.NewGray(image.Rect(0, 0, 0, 0)), image.Point{}, ErrFormat},
		{"bad border", NewExtractor(WithTileSize(4), WithBorder(1, 0, 2)), img, image.Point{}, ErrConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.e.SplitIntoTiles(tt.img, tt.offset)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSplitIntoTilesBorder(t *testing.T) {
	// Windows of 2x1 tiles of 2px separated by a 1px border: border
	// columns recur every 5px and border rows every 3px.
	img := imageutil.NewGrayImage(10, 6)
	for y := 0; y < 6; y++ {
		for x := 0; x < 10; x++ {
			v := uint8(x + 10*y)
			if x%5 == 4 || y%3 == 2 {
				v = 255
			}
			img.SetGrayValue(x, y, v)
		}
	}
	e := NewExtractor(WithTileSize(2), WithBorder(1, 2, 1))
	grid, err := e.SplitIntoTiles(img.Gray, image.Point{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if grid.Rows() != 2 || grid.Cols() != 4 {
		t.Fatalf("Expected 2x4 grid, got %dx%d", grid.Rows(), grid.Cols())
	}
	for r, row := range grid {
		for c, tile := range row {
			for _, v := range tile.Pix {
				if v == 255 {
					t.Errorf("Tile (%d,%d) contains border pixels: %v", r, c, tile.Pix)
				}
			}
		}
	}
	// Second window column, second window row starts at pixel (5,3)
	if diff := cmp.Diff([]uint8{35, 36, 45, 46}, grid[1][2].Pix); diff != "" {
		t.Errorf("Tile (1,2) mismatch (-want +got):\n%s", diff)
	}
}

func TestFindBestOffset(t *testing.T) {
	for _, workers := range []int{1, 3, 16} {
		var last int
		e := NewExtractor(WithTileSize(4), WithCutoff(5), WithWorkers(workers),
			WithProgress(func(done, total int) { last = max(last, done) }))
		res, err := e.FindBestOffset(context.Background(), uniformMap())
		if err != nil {
			t.Fatalf("workers %d: unexpected error: %v", workers, err)
		}
		if res.Offset != image.Pt(1, 2) {
			t.Errorf("workers %d: expected offset (1,2), got %v", workers, res.Offset)
		}
		if res.DropPct != 0 {
			t.Errorf("workers %d: expected drop 0, got %v", workers, res.DropPct)
		}
		if res.Grid.Rows() != 4 || res.Grid.Cols() != 4 || res.Table.Len() != 1 {
			t.Errorf("workers %d: unexpected grid %dx%d with %d distinct tiles",
				workers, res.Grid.Rows(), res.Grid.Cols(), res.Table.Len())
		}
		if last != 16 {
			t.Errorf("workers %d: expected final progress 16, got %d", workers, last)
		}
	}
}

func TestFindBestOffsetEarlyExit(t *testing.T) {
	// Offset (1,0) drops the padded top row (25%) and is the first offset
	// below 30%, so it wins over the lossless (1,2).
	e := NewExtractor(WithTileSize(4), WithCutoff(5), WithEarlyExit(30))
	res, err := e.FindBestOffset(context.Background(), uniformMap())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Offset != image.Pt(1, 0) {
		t.Errorf("Expected offset (1,0), got %v", res.Offset)
	}
	if res.DropPct != 25 {
		t.Errorf("Expected drop 25, got %v", res.DropPct)
	}
}

func TestFindBestOffsetMinimum(t *testing.T) {
	// No offset drops less than a negative threshold, so the first
	// minimum wins.
	e := NewExtractor(WithTileSize(4), WithCutoff(5), WithEarlyExit(-1))
	res, err := e.FindBestOffset(context.Background(), uniformMap())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Offset != image.Pt(1, 2) {
		t.Errorf("Expected offset (1,2), got %v", res.Offset)
	}
}

func TestFindBestOffsetErrors(t *testing.T) {
	e := NewExtractor(WithTileSize(4))
	_, err := e.FindBestOffset(context.Background(), imageutil.CreateSolidGray(3, 3, 0).Gray)
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.FindBestOffset(ctx, uniformMap())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestExtract(t *testing.T) {
	e := NewExtractor(WithTileSize(4), WithCutoff(5))
	ex, err := e.Extract(context.Background(), uniformMap(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ex.Tileset.Len() != 1 {
		t.Fatalf("Expected 1 tile, got %d", ex.Tileset.Len())
	}
	want := IndexGrid{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}}
	if diff := cmp.Diff(want, ex.IndexGrid); diff != "" {
		t.Errorf("Index grid mismatch (-want +got):\n%s", diff)
	}

	// At a fixed offset the padded edge tiles fall below the cutoff
	origin := image.Point{}
	ex, err = e.Extract(context.Background(), uniformMap(), &origin)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ex.Offset != origin || ex.DropPct <= 0 {
		t.Errorf("Expected a lossy extraction at the origin, got drop %v", ex.DropPct)
	}
	if ex.IndexGrid[0][0] != Unknown {
		t.Errorf("Corner cell should be unknown, got %d", ex.IndexGrid[0][0])
	}
}
