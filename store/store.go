// Package store persists the artifacts of a tile extraction and
// clustering run: the tilesheet image, the index grid and window grid
// exports, cluster labels, a run manifest and an SQLite bundle holding
// all of them.
//
// Failures to read or parse a persisted artifact are reported as
// tilecluster.ErrIO.
package store

import (
	"fmt"
	"os"

	"github.com/wbrown/tilecluster"
)

func ioErr(op, path string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", op, path, tilecluster.ErrIO, err)
}

// create opens path for writing and calls write. The file is removed if
// write fails.
func create(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return ioErr("create", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return ioErr("close", path, err)
	}
	return nil
}

func open(path string, read func(f *os.File) error) error {
	f, err := os.Open(path)
	if err != nil {
		return ioErr("open", path, err)
	}
	defer f.Close()
	return read(f)
}
