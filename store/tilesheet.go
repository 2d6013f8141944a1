package store

import (
	"fmt"
	"image"
	"math"

	"github.com/wbrown/tilecluster"
	"github.com/wbrown/tilecluster/imageutil"
)

// SheetLayout returns the near-square grid a tilesheet of n tiles uses:
// ceil(sqrt(n)) columns and as many rows as needed.
func SheetLayout(n int) (cols, rows int) {
	if n <= 0 {
		return 0, 0
	}
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	rows = (n + cols - 1) / cols
	return cols, rows
}

// TileSheet lays the tiles of ts out row-major in index order. Cells past
// the last tile stay blank (0).
func TileSheet(ts *tilecluster.Tileset) (*imageutil.GrayImage, error) {
	if ts.Len() == 0 {
		return nil, fmt.Errorf("empty tileset: %w", tilecluster.ErrFormat)
	}
	tiles, err := ts.Tiles()
	if err != nil {
		return nil, err
	}
	size := ts.TileSize()
	cols, rows := SheetLayout(len(tiles))
	sheet := imageutil.NewGrayImage(cols*size, rows*size)
	for i, t := range tiles {
		sheet.Paste(t.Gray(), (i%cols)*size, (i/cols)*size)
	}
	return sheet, nil
}

// TilesetFromSheet reads count tiles of the given size from a tilesheet,
// row-major, and rebuilds the tileset with the same indices.
func TilesetFromSheet(img *image.Gray, tileSize, count int) (*tilecluster.Tileset, error) {
	if tileSize <= 0 || count <= 0 {
		return nil, fmt.Errorf("tilesheet of %d tiles of %dpx: %w", count, tileSize, tilecluster.ErrFormat)
	}
	cols, rows := SheetLayout(count)
	b := img.Bounds()
	if b.Dx() < cols*tileSize || b.Dy() < rows*tileSize {
		return nil, fmt.Errorf("tilesheet %dx%d cannot hold %d tiles of %dpx: %w",
			b.Dx(), b.Dy(), count, tileSize, tilecluster.ErrIO)
	}
	keys := make([]tilecluster.Key, count)
	for i := range keys {
		keys[i] = tilecluster.TileFromGray(img, (i%cols)*tileSize, (i/cols)*tileSize, tileSize).Key()
	}
	ts, err := tilecluster.NewTileset(keys)
	if err != nil {
		return nil, fmt.Errorf("tilesheet: %w: %w", tilecluster.ErrIO, err)
	}
	return ts, nil
}

// ExportTileSheet writes the tilesheet of ts as a PNG.
func ExportTileSheet(path string, ts *tilecluster.Tileset) error {
	sheet, err := TileSheet(ts)
	if err != nil {
		return err
	}
	if err := imageutil.SavePNG(sheet, path); err != nil {
		return ioErr("write tilesheet", path, err)
	}
	return nil
}

// ImportTileSheet loads a tilesheet written by ExportTileSheet. The tile
// size and count are not recoverable from the image alone; take them from
// the run manifest.
func ImportTileSheet(path string, tileSize, count int) (*tilecluster.Tileset, error) {
	img, err := imageutil.LoadGray(path)
	if err != nil {
		return nil, ioErr("read tilesheet", path, err)
	}
	return TilesetFromSheet(img.Gray, tileSize, count)
}
