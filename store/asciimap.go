package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/wbrown/tilecluster"
)

// unknownCell marks a cell whose tile is not in the tileset.
const unknownCell = "x"

// WriteIndexGrid writes the grid as comma separated rows of tileset
// indices, with "x" for unknown cells.
func WriteIndexGrid(w io.Writer, grid tilecluster.IndexGrid) error {
	cw := csv.NewWriter(w)
	record := make([]string, grid.Cols())
	for _, row := range grid {
		record = record[:0]
		for _, v := range row {
			if v == tilecluster.Unknown {
				record = append(record, unknownCell)
			} else {
				record = append(record, strconv.Itoa(v))
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadIndexGrid parses a grid written by WriteIndexGrid. Rows of unequal
// length and cells that are neither "x" nor a non-negative integer are
// rejected.
func ReadIndexGrid(r io.Reader) (tilecluster.IndexGrid, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("index grid: %w: %w", tilecluster.ErrIO, err)
	}
	grid := make(tilecluster.IndexGrid, len(records))
	for y, rec := range records {
		grid[y] = make([]int, len(rec))
		for x, cell := range rec {
			if cell == unknownCell {
				grid[y][x] = tilecluster.Unknown
				continue
			}
			v, err := strconv.Atoi(cell)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("index grid cell (%d,%d) %q: %w", y, x, cell, tilecluster.ErrIO)
			}
			grid[y][x] = v
		}
	}
	return grid, nil
}

// ExportIndexGrid writes the grid to a CSV file.
func ExportIndexGrid(path string, grid tilecluster.IndexGrid) error {
	return create(path, func(f *os.File) error {
		if err := WriteIndexGrid(f, grid); err != nil {
			return ioErr("write index grid", path, err)
		}
		return nil
	})
}

// ImportIndexGrid reads a CSV file written by ExportIndexGrid.
func ImportIndexGrid(path string) (tilecluster.IndexGrid, error) {
	var grid tilecluster.IndexGrid
	err := open(path, func(f *os.File) error {
		var err error
		grid, err = ReadIndexGrid(f)
		return err
	})
	return grid, err
}
