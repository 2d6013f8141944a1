package tilecluster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// RawTileGrid is a map sliced into tiles, indexed [row][column].
type RawTileGrid [][]Tile

// Rows returns the number of tile rows.
func (g RawTileGrid) Rows() int {
	return len(g)
}

// Cols returns the number of tile columns.
func (g RawTileGrid) Cols() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// Border describes grid lines drawn between the screens of a map capture.
// A band of Thickness pixels follows every WindowWidth (WindowHeight) tiles
// horizontally (vertically), so border columns recur every
// WindowWidth*tileSize+Thickness pixels.
type Border struct {
	Thickness    int
	WindowWidth  int
	WindowHeight int
}

// Extractor slices a grayscale map into tiles and builds its tileset.
// Configure it with ExtractorOptions; the zero value is not usable.
type Extractor struct {
	TileSize  int
	Cutoff    int
	Border    *Border
	EarlyExit float64
	Workers   int

	logger   *slog.Logger
	progress func(done, total int)
	mu       sync.Mutex
}

// ExtractorOption is a functional option for configuring an Extractor.
type ExtractorOption func(*Extractor)

// NewExtractor creates an Extractor. Defaults: 16 pixel tiles, cutoff 5,
// early exit below 5% dropped, one worker per CPU, no border, no logging.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		TileSize:  16,
		Cutoff:    5,
		EarlyExit: 5.0,
		Workers:   runtime.GOMAXPROCS(0),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithTileSize sets the tile side length in pixels.
func WithTileSize(size int) ExtractorOption {
	return func(e *Extractor) { e.TileSize = size }
}

// WithCutoff sets the minimum occurrence count for a tile to be kept.
func WithCutoff(cutoff int) ExtractorOption {
	return func(e *Extractor) { e.Cutoff = cutoff }
}

// WithBorder enables periodic border removal before tiling.
func WithBorder(thickness, windowWidth, windowHeight int) ExtractorOption {
	return func(e *Extractor) {
		e.Border = &Border{
			Thickness:    thickness,
			WindowWidth:  windowWidth,
			WindowHeight: windowHeight,
		}
	}
}

// WithEarlyExit sets the drop percentage below which the offset search
// stops at the first qualifying offset.
func WithEarlyExit(pct float64) ExtractorOption {
	return func(e *Extractor) { e.EarlyExit = pct }
}

// WithWorkers bounds the number of offsets scanned concurrently.
func WithWorkers(n int) ExtractorOption {
	return func(e *Extractor) { e.Workers = n }
}

// WithLogger sets the logger used for pipeline diagnostics.
func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = logger }
}

// WithProgress registers a callback invoked after each scanned offset of
// FindBestOffset.
func WithProgress(f func(done, total int)) ExtractorOption {
	return func(e *Extractor) { e.progress = f }
}

func (e *Extractor) validate() error {
	if e.TileSize <= 0 {
		return fmt.Errorf("tile size %d: %w", e.TileSize, ErrFormat)
	}
	if b := e.Border; b != nil && b.Thickness > 0 {
		if b.WindowWidth <= 0 || b.WindowHeight <= 0 {
			return fmt.Errorf("border window %dx%d: %w",
				b.WindowWidth, b.WindowHeight, ErrConfig)
		}
	}
	return nil
}

// keptLines lists the pixel lines, counted from start, that survive border
// removal along one axis of length n.
func (e *Extractor) keptLines(start, n, windowDim int) []int {
	lines := make([]int, 0, n-start)
	period, inner := 0, 0
	if e.Border != nil && e.Border.Thickness > 0 {
		inner = windowDim * e.TileSize
		period = inner + e.Border.Thickness
	}
	for p := start; p < n; p++ {
		if period > 0 && (p-start)%period >= inner {
			continue
		}
		lines = append(lines, p)
	}
	return lines
}

// SplitIntoTiles shifts the map by offset (X columns, Y rows), strips the
// border if one is configured, and slices the rest into a row-major grid of
// TileSize x TileSize tiles. Pixels past the last full tile are discarded.
// A map too small to hold a single tile is an ErrFormat.
func (e *Extractor) SplitIntoTiles(img *image.Gray, offset image.Point) (RawTileGrid, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("image %dx%d: %w", b.Dx(), b.Dy(), ErrFormat)
	}
	if offset.X < 0 || offset.Y < 0 {
		return nil, fmt.Errorf("negative offset %v: %w", offset, ErrFormat)
	}

	var windowW, windowH int
	if e.Border != nil {
		windowW, windowH = e.Border.WindowWidth, e.Border.WindowHeight
	}
	rows := e.keptLines(offset.Y, b.Dy(), windowH)
	cols := e.keptLines(offset.X, b.Dx(), windowW)

	ts := e.TileSize
	tileRows, tileCols := len(rows)/ts, len(cols)/ts
	if tileRows == 0 || tileCols == 0 {
		return nil, fmt.Errorf("image %dx%d at offset %v holds no %dpx tile: %w",
			b.Dx(), b.Dy(), offset, ts, ErrFormat)
	}

	grid := make(RawTileGrid, tileRows)
	for r := range grid {
		grid[r] = make([]Tile, tileCols)
		for c := range grid[r] {
			t := NewTile(ts)
			for ty := 0; ty < ts; ty++ {
				rowOff := img.PixOffset(b.Min.X, b.Min.Y+rows[r*ts+ty])
				for tx := 0; tx < ts; tx++ {
					t.Pix[ty*ts+tx] = img.Pix[rowOff+cols[c*ts+tx]]
				}
			}
			grid[r][c] = t
		}
	}
	return grid, nil
}

// OffsetResult is the outcome of an offset search.
type OffsetResult struct {
	Offset  image.Point
	DropPct float64
	Grid    RawTileGrid
	Table   *OccurrenceTable
}

// FindBestOffset tries every offset in [0,TileSize) x [0,TileSize) and
// keeps the one that drops the smallest share of the map. Offsets are
// ranked in scan order (Y outer, X inner): the first offset whose drop
// percentage is below EarlyExit wins outright, otherwise the first offset
// with the minimum drop percentage. Offsets are scanned concurrently;
// offsets that come after an already-found early winner are skipped.
func (e *Extractor) FindBestOffset(ctx context.Context, img *image.Gray) (OffsetResult, error) {
	if err := e.validate(); err != nil {
		return OffsetResult{}, err
	}
	ts := e.TileSize
	total := ts * ts

	drops := make([]float64, total)
	valid := make([]bool, total)
	var early atomic.Int64
	early.Store(int64(total))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, e.Workers))
	for i := 0; i < total; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer func() { e.reportProgress(int(done.Add(1)), total) }()
			if int64(i) > early.Load() {
				return nil
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			off := image.Pt(i%ts, i/ts)
			grid, err := e.SplitIntoTiles(img, off)
			if errors.Is(err, ErrFormat) {
				e.logger.Debug("tilecluster: offset skipped", "offset", off, "err", err)
				return nil
			}
			if err != nil {
				return err
			}
			drop := DropFraction(CountOccurrences(grid), e.Cutoff)
			drops[i], valid[i] = drop, true
			e.logger.Debug("tilecluster: offset scanned", "offset", off, "drop", drop)
			if drop < e.EarlyExit {
				for {
					cur := early.Load()
					if int64(i) >= cur || early.CompareAndSwap(cur, int64(i)) {
						break
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return OffsetResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return OffsetResult{}, err
	}

	best := int(early.Load())
	if best == total {
		best = -1
		for i := 0; i < total; i++ {
			if valid[i] && (best < 0 || drops[i] < drops[best]) {
				best = i
			}
		}
	}
	if best < 0 {
		b := img.Bounds()
		return OffsetResult{}, fmt.Errorf("image %dx%d holds no %dpx tile at any offset: %w",
			b.Dx(), b.Dy(), ts, ErrFormat)
	}

	off := image.Pt(best%ts, best/ts)
	grid, err := e.SplitIntoTiles(img, off)
	if err != nil {
		return OffsetResult{}, err
	}
	table := CountOccurrences(grid)
	e.logger.Info("tilecluster: best offset", "offset", off, "drop", drops[best])
	return OffsetResult{Offset: off, DropPct: drops[best], Grid: grid, Table: table}, nil
}

func (e *Extractor) reportProgress(done, total int) {
	if e.progress == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress(done, total)
}

// Extraction bundles every artifact of a tile extraction run.
type Extraction struct {
	Offset    image.Point
	DropPct   float64
	Grid      RawTileGrid
	Table     *OccurrenceTable
	Tileset   *Tileset
	IndexGrid IndexGrid
}

// Extract runs the full pipeline: tiling at the given offset (or the best
// offset found by FindBestOffset when offset is nil), occurrence counting,
// tileset construction and map encoding.
func (e *Extractor) Extract(ctx context.Context, img *image.Gray, offset *image.Point) (*Extraction, error) {
	var res OffsetResult
	if offset == nil {
		var err error
		res, err = e.FindBestOffset(ctx, img)
		if err != nil {
			return nil, err
		}
	} else {
		grid, err := e.SplitIntoTiles(img, *offset)
		if err != nil {
			return nil, err
		}
		res.Offset, res.Grid = *offset, grid
		res.Table = CountOccurrences(grid)
		res.DropPct = DropFraction(res.Table, e.Cutoff)
	}

	tileset := BuildTileset(res.Table, e.Cutoff)
	e.logger.Info("tilecluster: tileset built",
		"grid", fmt.Sprintf("%dx%d", res.Grid.Cols(), res.Grid.Rows()),
		"distinct", res.Table.Len(),
		"kept", tileset.Len(),
		"cutoff", e.Cutoff,
		"drop", res.DropPct)

	return &Extraction{
		Offset:    res.Offset,
		DropPct:   res.DropPct,
		Grid:      res.Grid,
		Table:     res.Table,
		Tileset:   tileset,
		IndexGrid: EncodeMap(tileset, res.Grid),
	}, nil
}
