package tilecluster

import "fmt"

// Unknown marks an index grid cell whose tile was dropped from the tileset.
const Unknown = -1

// IndexGrid is a map rendered as tileset indices, indexed [row][column].
// Cells whose tile is not in the tileset hold Unknown.
type IndexGrid [][]int

// Rows returns the number of rows.
func (g IndexGrid) Rows() int {
	return len(g)
}

// Cols returns the number of columns.
func (g IndexGrid) Cols() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// EncodeMap replaces every tile of the grid with its tileset index, or
// Unknown when the tile was not retained.
func EncodeMap(ts *Tileset, grid RawTileGrid) IndexGrid {
	out := make(IndexGrid, len(grid))
	for r, row := range grid {
		out[r] = make([]int, len(row))
		for c, t := range row {
			if i, ok := ts.Index(EncodeTile(t)); ok {
				out[r][c] = i
			} else {
				out[r][c] = Unknown
			}
		}
	}
	return out
}

// Window is a Height x Width block of an IndexGrid, indexed [row][column].
type Window [][]int

// Contains reports whether idx occurs anywhere in the window.
func (w Window) Contains(idx int) bool {
	return w.Count(idx) > 0
}

// Count returns how many cells of the window hold idx.
func (w Window) Count(idx int) int {
	n := 0
	for _, row := range w {
		for _, v := range row {
			if v == idx {
				n++
			}
		}
	}
	return n
}

// Equal reports whether two windows hold the same cells.
func (w Window) Equal(o Window) bool {
	if len(w) != len(o) {
		return false
	}
	for r := range w {
		if len(w[r]) != len(o[r]) {
			return false
		}
		for c := range w[r] {
			if w[r][c] != o[r][c] {
				return false
			}
		}
	}
	return true
}

// WindowGrid is the non-overlapping tiling of an IndexGrid into windows,
// indexed [row][column].
type WindowGrid struct {
	Width   int
	Height  int
	Windows [][]Window
}

// Rows returns the number of window rows.
func (wg WindowGrid) Rows() int {
	return len(wg.Windows)
}

// Cols returns the number of window columns.
func (wg WindowGrid) Cols() int {
	if len(wg.Windows) == 0 {
		return 0
	}
	return len(wg.Windows[0])
}

// Len returns the total number of windows.
func (wg WindowGrid) Len() int {
	return wg.Rows() * wg.Cols()
}

// Flatten returns the windows in row-major order.
func (wg WindowGrid) Flatten() []Window {
	out := make([]Window, 0, wg.Len())
	for _, row := range wg.Windows {
		out = append(out, row...)
	}
	return out
}

// Assemble stitches the windows back into the index grid area they cover.
func (wg WindowGrid) Assemble() IndexGrid {
	out := make(IndexGrid, wg.Rows()*wg.Height)
	for r := range out {
		out[r] = make([]int, wg.Cols()*wg.Width)
	}
	for wr, row := range wg.Windows {
		for wc, w := range row {
			for y, cells := range w {
				copy(out[wr*wg.Height+y][wc*wg.Width:], cells)
			}
		}
	}
	return out
}

// PartitionWindows slices the grid into width x height windows in
// row-major order. The window grid measures floor(cols/width) by
// floor(rows/height); remainder rows and columns are dropped.
func PartitionWindows(grid IndexGrid, width, height int) (WindowGrid, error) {
	if width <= 0 || height <= 0 {
		return WindowGrid{}, fmt.Errorf("window size %dx%d: %w", width, height, ErrFormat)
	}
	nRows, nCols := grid.Rows()/height, grid.Cols()/width
	wg := WindowGrid{Width: width, Height: height, Windows: make([][]Window, nRows)}
	for wr := 0; wr < nRows; wr++ {
		wg.Windows[wr] = make([]Window, nCols)
		for wc := 0; wc < nCols; wc++ {
			oy, ox := wr*height, wc*width
			w := make(Window, height)
			for y := 0; y < height; y++ {
				w[y] = append([]int(nil), grid[oy+y][ox:ox+width]...)
			}
			wg.Windows[wr][wc] = w
		}
	}
	return wg, nil
}
