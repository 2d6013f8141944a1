package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/wbrown/tilecluster"
	"github.com/wbrown/tilecluster/store"
)

// Artifact names inside a run directory.
const (
	manifestFile = "manifest.json"
	tilesetFile  = "tileset.png"
	mapFile      = "map.csv"
	windowsFile  = "windows.json"
	featuresFile = "features.csv"
	labelsFile   = "labels.csv"
	clustersFile = "clusters.png"
	bundleFile   = "run.db"
)

// logFlags adds the shared -v flag.
type logFlags struct {
	verbose bool
}

func (l *logFlags) setFlags(f *flag.FlagSet) {
	f.BoolVar(&l.verbose, "v", false, "Verbose (debug) logging")
}

func (l *logFlags) logger() *slog.Logger {
	level := slog.LevelInfo
	if l.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// run is the persisted output of the extract command.
type run struct {
	manifest store.Manifest
	tileset  *tilecluster.Tileset
	windows  tilecluster.WindowGrid
}

func loadRun(dir string) (*run, error) {
	m, err := store.ReadManifest(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}
	if m.TileCount == 0 {
		return nil, fmt.Errorf("run %s has an empty tileset: %w", dir, tilecluster.ErrConfig)
	}
	ts, err := store.ImportTileSheet(filepath.Join(dir, tilesetFile), m.TileSize, m.TileCount)
	if err != nil {
		return nil, err
	}
	wg, err := store.ImportWindowGrid(filepath.Join(dir, windowsFile))
	if err != nil {
		return nil, err
	}
	return &run{manifest: m, tileset: ts, windows: wg}, nil
}
