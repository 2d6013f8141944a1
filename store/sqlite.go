package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/wbrown/tilecluster"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const bundleSchema = `
	CREATE TABLE metadata (name TEXT PRIMARY KEY, value TEXT);
	CREATE TABLE tiles (tile_index INTEGER PRIMARY KEY, tile_key TEXT NOT NULL);
	CREATE TABLE cells (
		cell_row INTEGER,
		cell_col INTEGER,
		tile_index INTEGER,
		PRIMARY KEY (cell_row, cell_col)
	);
	CREATE TABLE labels (tile_index INTEGER PRIMARY KEY, label INTEGER NOT NULL);
`

// Metadata keys maintained by the bundle itself.
const (
	metaRunID    = "run_id"
	metaGridRows = "grid_rows"
	metaGridCols = "grid_cols"
)

// BundleWriter stores a run's tileset, index grid and labels in a single
// SQLite file.
type BundleWriter struct {
	db     *sql.DB
	runID  uuid.UUID
	logger *slog.Logger
}

type bundleConfig struct {
	Metadata map[string]string
	RunID    uuid.UUID
	Logger   *slog.Logger
}

// BundleOption configures a BundleWriter.
type BundleOption func(*bundleConfig)

// WithMetadata stores extra name/value pairs in the bundle.
func WithMetadata(metadata map[string]string) BundleOption {
	return func(c *bundleConfig) { c.Metadata = metadata }
}

// WithRunID sets the run id instead of generating a random one.
func WithRunID(id uuid.UUID) BundleOption {
	return func(c *bundleConfig) { c.RunID = id }
}

// WithLogger sets the logger for bundle diagnostics.
func WithLogger(logger *slog.Logger) BundleOption {
	return func(c *bundleConfig) { c.Logger = logger }
}

// NewBundleWriter creates a bundle at path, replacing any existing file.
func NewBundleWriter(path string, opts ...BundleOption) (*BundleWriter, error) {
	config := bundleConfig{
		RunID:  uuid.New(),
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, ioErr("replace bundle", path, err)
	}

	var err error
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ioErr("open bundle", path, err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	if _, err = db.Exec(bundleSchema); err != nil {
		return nil, ioErr("create bundle", path, err)
	}
	w := &BundleWriter{db: db, runID: config.RunID, logger: config.Logger}
	meta := map[string]string{metaRunID: config.RunID.String()}
	for k, v := range config.Metadata {
		meta[k] = v
	}
	if err = w.putMetadata(meta); err != nil {
		return nil, err
	}
	w.logger.Debug("tilecluster: bundle created", "path", path, "run", config.RunID)
	return w, nil
}

// OpenBundleWriter opens an existing bundle for further writes, such as
// adding labels to a bundle written before clustering. The run id is
// read back from the bundle; WithRunID is ignored.
func OpenBundleWriter(path string, opts ...BundleOption) (*BundleWriter, error) {
	config := bundleConfig{Logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&config)
	}
	r, err := OpenBundle(path)
	if err != nil {
		return nil, err
	}
	id, err := r.RunID()
	if err := errors.Join(err, r.Close()); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ioErr("open bundle", path, err)
	}
	w := &BundleWriter{db: db, runID: id, logger: config.Logger}
	if len(config.Metadata) > 0 {
		if err := w.putMetadata(config.Metadata); err != nil {
			db.Close()
			return nil, err
		}
	}
	return w, nil
}

// RunID returns the id recorded in the bundle.
func (w *BundleWriter) RunID() uuid.UUID {
	return w.runID
}

func (w *BundleWriter) Close() error {
	return w.db.Close()
}

// insert runs stmt once per row produced by each inside one transaction.
func (w *BundleWriter) insert(query string, each func(exec func(args ...any) error) error) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		return errors.Join(err, tx.Rollback())
	}
	err = each(func(args ...any) error {
		_, err := stmt.Exec(args...)
		return err
	})
	if err != nil {
		return errors.Join(err, stmt.Close(), tx.Rollback())
	}
	if err := stmt.Close(); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

func (w *BundleWriter) putMetadata(meta map[string]string) error {
	return w.insert("INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?)", func(exec func(...any) error) error {
		for k, v := range meta {
			if err := exec(k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteTileset stores every tile key under its index.
func (w *BundleWriter) WriteTileset(ts *tilecluster.Tileset) error {
	w.logger.Debug("tilecluster: writing tiles", "count", ts.Len())
	return w.insert("INSERT INTO tiles (tile_index, tile_key) VALUES (?, ?)", func(exec func(...any) error) error {
		for i, k := range ts.Keys() {
			if err := exec(i, string(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteIndexGrid stores the grid cells and its dimensions.
func (w *BundleWriter) WriteIndexGrid(grid tilecluster.IndexGrid) error {
	w.logger.Debug("tilecluster: writing index grid", "rows", grid.Rows(), "cols", grid.Cols())
	err := w.insert("INSERT INTO cells (cell_row, cell_col, tile_index) VALUES (?, ?, ?)", func(exec func(...any) error) error {
		for r, row := range grid {
			for c, v := range row {
				if err := exec(r, c, v); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return w.putMetadata(map[string]string{
		metaGridRows: strconv.Itoa(grid.Rows()),
		metaGridCols: strconv.Itoa(grid.Cols()),
	})
}

// WriteLabels stores the cluster label of every tile, replacing any
// labels already in the bundle.
func (w *BundleWriter) WriteLabels(labels tilecluster.Labeling) error {
	w.logger.Debug("tilecluster: writing labels", "count", len(labels))
	if _, err := w.db.Exec("DELETE FROM labels"); err != nil {
		return err
	}
	return w.insert("INSERT INTO labels (tile_index, label) VALUES (?, ?)", func(exec func(...any) error) error {
		for i, label := range labels {
			if err := exec(i, label); err != nil {
				return err
			}
		}
		return nil
	})
}

// BundleReader reads a bundle written by BundleWriter.
//
// The returned BundleReader must be closed after use to release database
// resources.
type BundleReader struct {
	db *sql.DB
}

// OpenBundle opens an existing bundle read-only.
func OpenBundle(path string) (*BundleReader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, ioErr("open bundle", path, err)
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, ioErr("open bundle", path, err)
	}
	return &BundleReader{db: db}, nil
}

func (r *BundleReader) Close() error {
	return r.db.Close()
}

func (r *BundleReader) ReadMetadata() (map[string]string, error) {
	metadata := make(map[string]string)

	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, bundleErr(err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, bundleErr(err)
		}
		metadata[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, bundleErr(err)
	}
	return metadata, nil
}

// RunID returns the run id recorded when the bundle was written.
func (r *BundleReader) RunID() (uuid.UUID, error) {
	meta, err := r.ReadMetadata()
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(meta[metaRunID])
	if err != nil {
		return uuid.Nil, bundleErr(err)
	}
	return id, nil
}

// ReadTileset rebuilds the tileset with its original indices.
func (r *BundleReader) ReadTileset() (*tilecluster.Tileset, error) {
	rows, err := r.db.Query("SELECT tile_index, tile_key FROM tiles ORDER BY tile_index")
	if err != nil {
		return nil, bundleErr(err)
	}
	defer rows.Close()

	var keys []tilecluster.Key
	for rows.Next() {
		var i int
		var key string
		if err := rows.Scan(&i, &key); err != nil {
			return nil, bundleErr(err)
		}
		if i != len(keys) {
			return nil, fmt.Errorf("bundle tiles skip index %d: %w", len(keys), tilecluster.ErrIO)
		}
		keys = append(keys, tilecluster.Key(key))
	}
	if err := rows.Err(); err != nil {
		return nil, bundleErr(err)
	}
	ts, err := tilecluster.NewTileset(keys)
	if err != nil {
		return nil, bundleErr(err)
	}
	return ts, nil
}

// ReadIndexGrid rebuilds the stored index grid.
func (r *BundleReader) ReadIndexGrid() (tilecluster.IndexGrid, error) {
	meta, err := r.ReadMetadata()
	if err != nil {
		return nil, err
	}
	nRows, err1 := strconv.Atoi(meta[metaGridRows])
	nCols, err2 := strconv.Atoi(meta[metaGridCols])
	if err := errors.Join(err1, err2); err != nil {
		return nil, bundleErr(err)
	}
	grid := make(tilecluster.IndexGrid, nRows)
	for i := range grid {
		grid[i] = make([]int, nCols)
	}

	rows, err := r.db.Query("SELECT cell_row, cell_col, tile_index FROM cells")
	if err != nil {
		return nil, bundleErr(err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var y, x, v int
		if err := rows.Scan(&y, &x, &v); err != nil {
			return nil, bundleErr(err)
		}
		if y < 0 || y >= nRows || x < 0 || x >= nCols {
			return nil, fmt.Errorf("bundle cell (%d,%d) outside %dx%d grid: %w",
				y, x, nCols, nRows, tilecluster.ErrIO)
		}
		grid[y][x] = v
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, bundleErr(err)
	}
	if n != nRows*nCols {
		return nil, fmt.Errorf("bundle holds %d of %d grid cells: %w", n, nRows*nCols, tilecluster.ErrIO)
	}
	return grid, nil
}

// ReadLabels returns the stored labels in tile index order.
func (r *BundleReader) ReadLabels() (tilecluster.Labeling, error) {
	rows, err := r.db.Query("SELECT tile_index, label FROM labels ORDER BY tile_index")
	if err != nil {
		return nil, bundleErr(err)
	}
	defer rows.Close()

	var labels tilecluster.Labeling
	for rows.Next() {
		var i, label int
		if err := rows.Scan(&i, &label); err != nil {
			return nil, bundleErr(err)
		}
		if i != len(labels) {
			return nil, fmt.Errorf("bundle labels skip index %d: %w", len(labels), tilecluster.ErrIO)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, bundleErr(err)
	}
	return labels, nil
}

func bundleErr(err error) error {
	return fmt.Errorf("bundle: %w: %w", tilecluster.ErrIO, err)
}
