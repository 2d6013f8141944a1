package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/wbrown/tilecluster"
)

// WriteLabels writes one "index,label" row per tile in index order.
func WriteLabels(w io.Writer, labels tilecluster.Labeling) error {
	cw := csv.NewWriter(w)
	for i, label := range labels {
		if err := cw.Write([]string{strconv.Itoa(i), strconv.Itoa(label)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadLabels parses rows written by WriteLabels. Rows may come in any
// order but must cover every index from 0 exactly once.
func ReadLabels(r io.Reader) (tilecluster.Labeling, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("labels: %w: %w", tilecluster.ErrIO, err)
	}
	labels := make(tilecluster.Labeling, len(records))
	seen := make([]bool, len(records))
	for n, rec := range records {
		i, err1 := strconv.Atoi(rec[0])
		label, err2 := strconv.Atoi(rec[1])
		if err1 != nil || err2 != nil || i < 0 || i >= len(records) || seen[i] {
			return nil, fmt.Errorf("labels row %d %q: %w", n, rec, tilecluster.ErrIO)
		}
		labels[i], seen[i] = label, true
	}
	return labels, nil
}

// ExportLabels writes the labels to a CSV file.
func ExportLabels(path string, labels tilecluster.Labeling) error {
	return create(path, func(f *os.File) error {
		if err := WriteLabels(f, labels); err != nil {
			return ioErr("write labels", path, err)
		}
		return nil
	})
}

// ImportLabels reads a CSV file written by ExportLabels.
func ImportLabels(path string) (tilecluster.Labeling, error) {
	var labels tilecluster.Labeling
	err := open(path, func(f *os.File) error {
		var err error
		labels, err = ReadLabels(f)
		return err
	})
	return labels, err
}
