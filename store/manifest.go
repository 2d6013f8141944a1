package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/wbrown/tilecluster"
)

// Manifest records the parameters of an extraction run, including the
// tile size and count needed to read the tilesheet back.
type Manifest struct {
	Map          string              `json:"map"`
	TileSize     int                 `json:"tile_size"`
	TileCount    int                 `json:"tile_count"`
	OffsetX      int                 `json:"offset_x"`
	OffsetY      int                 `json:"offset_y"`
	Cutoff       int                 `json:"cutoff"`
	DropPct      float64             `json:"drop_pct"`
	WindowWidth  int                 `json:"window_width"`
	WindowHeight int                 `json:"window_height"`
	Border       *tilecluster.Border `json:"border,omitempty"`
}

// NewManifest summarises an extraction and its window size.
func NewManifest(mapName string, ex *tilecluster.Extraction, cutoff, windowWidth, windowHeight int, border *tilecluster.Border) Manifest {
	return Manifest{
		Map:          mapName,
		TileSize:     ex.Tileset.TileSize(),
		TileCount:    ex.Tileset.Len(),
		OffsetX:      ex.Offset.X,
		OffsetY:      ex.Offset.Y,
		Cutoff:       cutoff,
		DropPct:      ex.DropPct,
		WindowWidth:  windowWidth,
		WindowHeight: windowHeight,
		Border:       border,
	}
}

// WriteManifest writes m as indented JSON.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return ioErr("write manifest", path, err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, ioErr("read manifest", path, err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, ioErr("parse manifest", path, err)
	}
	if m.TileSize <= 0 || m.TileCount < 0 {
		return m, fmt.Errorf("manifest %s: tile size %d, count %d: %w",
			path, m.TileSize, m.TileCount, tilecluster.ErrIO)
	}
	return m, nil
}
