package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/wbrown/tilecluster"
)

// windowFile is the JSON form of a window grid. Identical windows share an
// id; Map holds the window id of every window grid cell.
type windowFile struct {
	Windows map[string][][]int `json:"windows"`
	Map     [][]int            `json:"map"`
}

// WriteWindowGrid writes wg as {"windows": {id: cells}, "map": ids}. Ids
// are assigned in row-major order of first appearance; unknown cells are
// written as -1.
func WriteWindowGrid(w io.Writer, wg tilecluster.WindowGrid) error {
	wf := windowFile{
		Windows: make(map[string][][]int),
		Map:     make([][]int, wg.Rows()),
	}
	var unique []tilecluster.Window
	for r, row := range wg.Windows {
		wf.Map[r] = make([]int, len(row))
		for c, win := range row {
			id := -1
			for i, u := range unique {
				if u.Equal(win) {
					id = i
					break
				}
			}
			if id < 0 {
				id = len(unique)
				unique = append(unique, win)
				wf.Windows[strconv.Itoa(id)] = win
			}
			wf.Map[r][c] = id
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(wf)
}

// ReadWindowGrid expands a document written by WriteWindowGrid back into a
// full window grid. Every window must have the same shape and every map
// id must be defined.
func ReadWindowGrid(r io.Reader) (tilecluster.WindowGrid, error) {
	var wf windowFile
	if err := json.NewDecoder(r).Decode(&wf); err != nil {
		return tilecluster.WindowGrid{}, fmt.Errorf("window grid: %w: %w", tilecluster.ErrIO, err)
	}
	wg := tilecluster.WindowGrid{Windows: make([][]tilecluster.Window, len(wf.Map))}
	for r, row := range wf.Map {
		wg.Windows[r] = make([]tilecluster.Window, len(row))
		for c, id := range row {
			cells, ok := wf.Windows[strconv.Itoa(id)]
			if !ok {
				return tilecluster.WindowGrid{}, fmt.Errorf("window grid cell (%d,%d) references undefined window %d: %w",
					r, c, id, tilecluster.ErrIO)
			}
			height, width := len(cells), 0
			if height > 0 {
				width = len(cells[0])
			}
			if r == 0 && c == 0 {
				wg.Width, wg.Height = width, height
			}
			if width != wg.Width || height != wg.Height || !rectangular(cells) {
				return tilecluster.WindowGrid{}, fmt.Errorf("window %d is not %dx%d: %w",
					id, wg.Width, wg.Height, tilecluster.ErrIO)
			}
			win := make(tilecluster.Window, height)
			for y := range cells {
				win[y] = append([]int(nil), cells[y]...)
			}
			wg.Windows[r][c] = win
		}
	}
	return wg, nil
}

func rectangular(cells [][]int) bool {
	for _, row := range cells {
		if len(row) != len(cells[0]) {
			return false
		}
	}
	return true
}

// ExportWindowGrid writes wg to a JSON file.
func ExportWindowGrid(path string, wg tilecluster.WindowGrid) error {
	return create(path, func(f *os.File) error {
		if err := WriteWindowGrid(f, wg); err != nil {
			return ioErr("write window grid", path, err)
		}
		return nil
	})
}

// ImportWindowGrid reads a JSON file written by ExportWindowGrid.
func ImportWindowGrid(path string) (tilecluster.WindowGrid, error) {
	var wg tilecluster.WindowGrid
	err := open(path, func(f *os.File) error {
		var err error
		wg, err = ReadWindowGrid(f)
		return err
	})
	return wg, err
}
