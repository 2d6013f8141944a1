package tilecluster

import (
	"fmt"
	"log/slog"
	"math"
)

// Direction is a unit step between neighbouring index grid cells.
type Direction int

const (
	North Direction = iota
	South
	East
	West
)

// Offset returns the row and column delta of one step in d.
func (d Direction) Offset() (dRow, dCol int) {
	switch d {
	case North:
		return -1, 0
	case South:
		return 1, 0
	case East:
		return 0, 1
	case West:
		return 0, -1
	}
	return 0, 0
}

func (d Direction) String() string {
	switch d {
	case North:
		return "n"
	case South:
		return "s"
	case East:
		return "e"
	case West:
		return "w"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Mirror classes returned by MirrorClass.
const (
	MirrorNone  = 0 // no flip of the tile resembles any tile
	MirrorOther = 1 // a flip resembles another tile of the set
	MirrorSelf  = 2 // the tile is (nearly) symmetric
)

// FeatureConfig controls feature extraction.
type FeatureConfig struct {
	// Directions lists the adjacency directions, in column order.
	Directions []Direction
	// MirrorThreshold is the fraction of key characters that must agree
	// for a flip to count as a partial match.
	MirrorThreshold float64
	// WindowCounts records per-window occurrence counts instead of
	// presence bits.
	WindowCounts bool
}

// DefaultFeatureConfig returns north, south, east, west adjacency and a 0.7
// mirror threshold with window presence bits.
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		Directions:      []Direction{North, South, East, West},
		MirrorThreshold: 0.7,
	}
}

// FeatureVectors holds the per-tile features, each slice indexed by
// tileset index.
type FeatureVectors struct {
	Adjacency [][]float64
	Windows   [][]float64
	Mirror    []int
	Pixels    [][]float64
}

// Len returns the number of tiles described.
func (fv *FeatureVectors) Len() int {
	return len(fv.Mirror)
}

// FeatureBuilder derives FeatureVectors from a tileset and its windows.
type FeatureBuilder struct {
	Config FeatureConfig
	logger *slog.Logger
}

// NewFeatureBuilder returns a builder for cfg. A nil logger discards.
func NewFeatureBuilder(cfg FeatureConfig, logger *slog.Logger) *FeatureBuilder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FeatureBuilder{Config: cfg, logger: logger}
}

// Build computes all four feature vectors for every tile of ts.
func (fb *FeatureBuilder) Build(ts *Tileset, wg WindowGrid) (*FeatureVectors, error) {
	if fb.Config.MirrorThreshold < 0 || fb.Config.MirrorThreshold > 1 {
		return nil, fmt.Errorf("mirror threshold %v outside [0,1]: %w",
			fb.Config.MirrorThreshold, ErrConfig)
	}
	tiles, err := ts.Tiles()
	if err != nil {
		return nil, err
	}
	keys := ts.Keys()
	n := len(tiles)
	fv := &FeatureVectors{
		Adjacency: make([][]float64, n),
		Windows:   make([][]float64, n),
		Mirror:    make([]int, n),
		Pixels:    make([][]float64, n),
	}
	for i, t := range tiles {
		adj := make([]float64, len(fb.Config.Directions))
		for j, d := range fb.Config.Directions {
			adj[j] = AdjacencySimilarity(i, d, wg)
		}
		fv.Adjacency[i] = adj

		if fb.Config.WindowCounts {
			fv.Windows[i] = WindowCounts(i, wg)
		} else {
			fv.Windows[i] = WindowPresence(i, wg)
		}

		m, err := MirrorClass(i, keys, fb.Config.MirrorThreshold)
		if err != nil {
			return nil, fmt.Errorf("tile %d: %w", i, err)
		}
		fv.Mirror[i] = m

		fv.Pixels[i] = PixelFeature(t)
	}
	fb.logger.Debug("tilecluster: features built", "tiles", n, "windows", wg.Len())
	return fv, nil
}

// AdjacencySimilarity returns the share of idx's occurrences, over all
// windows, whose neighbour one step in dir (inside the same window) is
// also idx. The ratio is rounded to 7 decimal places; a tile that never
// occurs scores 0.
func AdjacencySimilarity(idx int, dir Direction, wg WindowGrid) float64 {
	dRow, dCol := dir.Offset()
	total, same := 0, 0
	for _, row := range wg.Windows {
		for _, w := range row {
			for r, cells := range w {
				for c, v := range cells {
					if v != idx {
						continue
					}
					total++
					nr, nc := r+dRow, c+dCol
					if nr >= 0 && nr < len(w) && nc >= 0 && nc < len(w[nr]) && w[nr][nc] == idx {
						same++
					}
				}
			}
		}
	}
	if total == 0 {
		return 0
	}
	return math.Round(float64(same)/float64(total)*1e7) / 1e7
}

// WindowPresence returns one value per window, row-major: 1 if idx occurs
// in the window, else 0.
func WindowPresence(idx int, wg WindowGrid) []float64 {
	out := make([]float64, 0, wg.Len())
	for _, w := range wg.Flatten() {
		if w.Contains(idx) {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	}
	return out
}

// WindowCounts returns the number of cells holding idx in each window,
// row-major.
func WindowCounts(idx int, wg WindowGrid) []float64 {
	out := make([]float64, 0, wg.Len())
	for _, w := range wg.Flatten() {
		out = append(out, float64(w.Count(idx)))
	}
	return out
}

// PartialMatch scans two tile keys character by character and reports
// whether at least a fraction p of the characters agree. It stops as soon
// as the outcome is decided: true once matches reach p*n, false once
// mismatches exceed (1-p)*n, where n is the key length. Keys of different
// lengths never match.
func PartialMatch(a, b Key, p float64) bool {
	if len(a) != len(b) {
		return false
	}
	n := float64(len(a))
	need, allow := n*p, n*(1.0-p)
	matches, misses := 0, 0
	for i := 0; i < len(a); i++ {
		if a[i] == b[i] {
			matches++
		} else {
			misses++
		}
		if float64(matches) >= need {
			return true
		}
		if float64(misses) > allow {
			return false
		}
	}
	return false
}

// MirrorClass classifies keys[idx] by mirror symmetry. The tile is decoded,
// flipped by rows, by columns and both ways, and each flip re-encoded. If a
// flip's key equals the tile's own key it is MirrorSelf. Otherwise
// candidates are scanned in index order, each against the three flips in
// that order, and the first candidate partially matched decides:
// MirrorSelf if it is the tile itself, MirrorOther if not. With no partial
// match the result is MirrorNone. The scan order is part of the contract.
// Keys of a different tile size are an ErrConfig.
func MirrorClass(idx int, keys []Key, p float64) (int, error) {
	key := keys[idx]
	size := keyTileSize(key)
	for i, cand := range keys {
		if n := keyTileSize(cand); n != size {
			return MirrorNone, fmt.Errorf("comparing %dpx tile %d with %dpx tile %d: %w",
				size, idx, n, i, ErrConfig)
		}
	}
	t, err := DecodeTile(key, size)
	if err != nil {
		return MirrorNone, err
	}
	flips := [3]Key{t.FlipRows().Key(), t.FlipCols().Key(), t.FlipBoth().Key()}
	for _, f := range flips {
		if f == key {
			return MirrorSelf, nil
		}
	}
	for i, cand := range keys {
		for _, f := range flips {
			if PartialMatch(f, cand, p) {
				if i == idx {
					return MirrorSelf, nil
				}
				return MirrorOther, nil
			}
		}
	}
	return MirrorNone, nil
}

// PixelFeature flattens the tile and scales each intensity by 1/256.
func PixelFeature(t Tile) []float64 {
	out := make([]float64, len(t.Pix))
	for i, v := range t.Pix {
		out[i] = float64(v) / 256
	}
	return out
}
