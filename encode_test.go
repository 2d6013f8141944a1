package tilecluster

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeMap(t *testing.T) {
	// 1 occurs three times, 2 twice, 3 once
	grid := RawTileGrid{
		gridOf(1, 1, 2, 3)[0],
		gridOf(1, 1, 2, 1)[0],
	}
	ts := BuildTileset(CountOccurrences(grid), 2)
	want := IndexGrid{
		{0, 1, Unknown},
		{0, 1, 0},
	}
	if diff := cmp.Diff(want, EncodeMap(ts, grid)); diff != "" {
		t.Errorf("Index grid mismatch (-want +got):\n%s", diff)
	}
}

// seqGrid returns a rows x cols grid numbered row-major from 0.
func seqGrid(rows, cols int) IndexGrid {
	g := make(IndexGrid, rows)
	for r := range g {
		g[r] = make([]int, cols)
		for c := range g[r] {
			g[r][c] = r*cols + c
		}
	}
	return g
}

func TestPartitionWindows(t *testing.T) {
	grid := seqGrid(4, 6)
	wg, err := PartitionWindows(grid, 3, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if wg.Rows() != 2 || wg.Cols() != 2 || wg.Len() != 4 {
		t.Fatalf("Expected 2x2 windows, got %dx%d", wg.Rows(), wg.Cols())
	}
	want := Window{{15, 16, 17}, {21, 22, 23}}
	if diff := cmp.Diff(want, wg.Windows[1][1]); diff != "" {
		t.Errorf("Window (1,1) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(grid, wg.Assemble()); diff != "" {
		t.Errorf("Assembled grid mismatch (-want +got):\n%s", diff)
	}
	flat := wg.Flatten()
	if len(flat) != 4 || flat[1][0][0] != 3 || flat[2][0][0] != 12 {
		t.Errorf("Flatten should be row-major, got %v", flat)
	}
}

func TestPartitionWindowsTruncates(t *testing.T) {
	for _, tt := range []struct {
		rows, cols, w, h int
	}{
		{5, 7, 3, 2},
		{9, 10, 10, 9},
		{3, 3, 4, 1},
		{1, 1, 1, 1},
		{0, 0, 2, 2},
	} {
		grid := seqGrid(tt.rows, tt.cols)
		wg, err := PartitionWindows(grid, tt.w, tt.h)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", tt, err)
		}
		if wg.Rows() != tt.rows/tt.h || wg.Cols() != tt.cols/tt.w {
			t.Errorf("%v: expected %dx%d windows, got %dx%d",
				tt, tt.rows/tt.h, tt.cols/tt.w, wg.Rows(), wg.Cols())
		}
		// Every window lies inside the grid and matches it cell for cell
		for wr, row := range wg.Windows {
			for wc, w := range row {
				if len(w) != tt.h {
					t.Fatalf("%v: window height %d", tt, len(w))
				}
				for y, cells := range w {
					if len(cells) != tt.w {
						t.Fatalf("%v: window width %d", tt, len(cells))
					}
					for x, v := range cells {
						if v != grid[wr*tt.h+y][wc*tt.w+x] {
							t.Errorf("%v: window (%d,%d) cell (%d,%d) = %d", tt, wr, wc, y, x, v)
						}
					}
				}
			}
		}
	}
}

func TestPartitionWindowsErrors(t *testing.T) {
	for _, dims := range [][2]int{{0, 1}, {1, 0}, {-1, 2}} {
		if _, err := PartitionWindows(seqGrid(4, 4), dims[0], dims[1]); !errors.Is(err, ErrFormat) {
			t.Errorf("%v: expected ErrFormat, got %v", dims, err)
		}
	}
}

func TestWindowCount(t *testing.T) {
	w := Window{{1, 2}, {1, Unknown}}
	if w.Count(1) != 2 || w.Count(Unknown) != 1 || w.Count(5) != 0 {
		t.Errorf("Unexpected counts for %v", w)
	}
	if !w.Contains(2) || w.Contains(3) {
		t.Errorf("Unexpected Contains for %v", w)
	}
	if !w.Equal(Window{{1, 2}, {1, Unknown}}) || w.Equal(Window{{1, 2}}) {
		t.Error("Unexpected Equal result")
	}
}
