package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
	"github.com/wbrown/tilecluster"
	"github.com/wbrown/tilecluster/imageutil"
	"github.com/wbrown/tilecluster/store"
)

type extractCmd struct {
	logFlags
	inputPath   string
	outputDir   string
	tileSize    int
	cutoff      int
	offset      string
	window      string
	border      int
	earlyExit   float64
	workers     int
	writeBundle bool
}

func (c *extractCmd) Name() string     { return "extract" }
func (c *extractCmd) Synopsis() string { return "extract tileset, index map and windows from a map image" }
func (c *extractCmd) Usage() string {
	return "tileclust extract -i <map image> -o <dir> [-tile 16 -cutoff 5 -offset x,y -window 10x8 -border 0]\n"
}
func (c *extractCmd) SetFlags(f *flag.FlagSet) {
	c.logFlags.setFlags(f)
	f.StringVar(&c.inputPath, "i", "", "Input map image path")
	f.StringVar(&c.outputDir, "o", "", "Output run directory")
	f.IntVar(&c.tileSize, "tile", 16, "Tile size in pixels")
	f.IntVar(&c.cutoff, "cutoff", 5, "Minimum occurrences for a tile to be kept")
	f.StringVar(&c.offset, "offset", "", "Pixel offset x,y (searched when empty)")
	f.StringVar(&c.window, "window", "10x8", "Window size in tiles, WIDTHxHEIGHT")
	f.IntVar(&c.border, "border", 0, "Border thickness in pixels between windows")
	f.Float64Var(&c.earlyExit, "early", 5.0, "Stop the offset search below this drop percentage")
	f.IntVar(&c.workers, "workers", runtime.GOMAXPROCS(0), "Concurrent offset scans")
	f.BoolVar(&c.writeBundle, "bundle", false, "Also write an SQLite bundle of the run")
}

func parsePair(s, sep string) (int, int, error) {
	a, b, ok := strings.Cut(s, sep)
	if !ok {
		return 0, 0, fmt.Errorf("%q is not of the form A%sB: %w", s, sep, tilecluster.ErrConfig)
	}
	x, err1 := strconv.Atoi(strings.TrimSpace(a))
	y, err2 := strconv.Atoi(strings.TrimSpace(b))
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("%q is not a pair of integers: %w", s, tilecluster.ErrConfig)
	}
	return x, y, nil
}

func (c *extractCmd) run(ctx context.Context) error {
	logger := c.logger()
	winW, winH, err := parsePair(c.window, "x")
	if err != nil {
		return err
	}
	var offset *image.Point
	if c.offset != "" {
		x, y, err := parsePair(c.offset, ",")
		if err != nil {
			return err
		}
		offset = &image.Point{X: x, Y: y}
	}

	img, err := imageutil.LoadGray(c.inputPath)
	if err != nil {
		return err
	}
	logger.Info("loaded map", "path", c.inputPath, "width", img.Width(), "height", img.Height())

	bar := progressbar.NewOptions(c.tileSize*c.tileSize,
		progressbar.OptionSetDescription("offsets"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr))
	opts := []tilecluster.ExtractorOption{
		tilecluster.WithTileSize(c.tileSize),
		tilecluster.WithCutoff(c.cutoff),
		tilecluster.WithEarlyExit(c.earlyExit),
		tilecluster.WithWorkers(c.workers),
		tilecluster.WithLogger(logger),
		tilecluster.WithProgress(func(done, total int) { bar.Set(done) }),
	}
	var border *tilecluster.Border
	if c.border > 0 {
		border = &tilecluster.Border{Thickness: c.border, WindowWidth: winW, WindowHeight: winH}
		opts = append(opts, tilecluster.WithBorder(c.border, winW, winH))
	}

	ex, err := tilecluster.NewExtractor(opts...).Extract(ctx, img.Gray, offset)
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	wg, err := tilecluster.PartitionWindows(ex.IndexGrid, winW, winH)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return err
	}
	out := func(name string) string { return filepath.Join(c.outputDir, name) }
	if ex.Tileset.Len() > 0 {
		if err := store.ExportTileSheet(out(tilesetFile), ex.Tileset); err != nil {
			return err
		}
	}
	if err := store.ExportIndexGrid(out(mapFile), ex.IndexGrid); err != nil {
		return err
	}
	if err := store.ExportWindowGrid(out(windowsFile), wg); err != nil {
		return err
	}
	m := store.NewManifest(filepath.Base(c.inputPath), ex, c.cutoff, winW, winH, border)
	m.TileSize = c.tileSize
	if err := store.WriteManifest(out(manifestFile), m); err != nil {
		return err
	}

	if c.writeBundle {
		w, err := store.NewBundleWriter(out(bundleFile),
			store.WithLogger(logger),
			store.WithMetadata(map[string]string{
				"map":       m.Map,
				"tile_size": strconv.Itoa(m.TileSize),
				"offset":    fmt.Sprintf("%d,%d", m.OffsetX, m.OffsetY),
			}))
		if err != nil {
			return err
		}
		err = errors.Join(w.WriteTileset(ex.Tileset), w.WriteIndexGrid(ex.IndexGrid), w.Close())
		if err != nil {
			return err
		}
		logger.Info("bundle written", "path", out(bundleFile), "run", w.RunID())
	}

	logger.Info("extraction done",
		"offset", ex.Offset, "drop", ex.DropPct, "tiles", ex.Tileset.Len(),
		"windows", wg.Len(), "dir", c.outputDir)
	return nil
}

func (c *extractCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.inputPath == "" || c.outputDir == "" {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	if err := c.run(ctx); err != nil {
		c.logger().Error("extract failed", "err", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
