package tilecluster

// OccurrenceTable counts how often each distinct tile occurs in a map. It
// remembers the order in which keys were first encountered so that ties
// can be broken deterministically. A table is built once by
// CountOccurrences and not modified afterwards.
type OccurrenceTable struct {
	keys   []Key
	counts map[Key]int
	total  int
}

func newOccurrenceTable() *OccurrenceTable {
	return &OccurrenceTable{
		keys:   make([]Key, 0),
		counts: make(map[Key]int),
	}
}

// add increments the count for key, recording it on first sight.
func (ot *OccurrenceTable) add(key Key) {
	if _, exists := ot.counts[key]; !exists {
		ot.keys = append(ot.keys, key)
	}
	ot.counts[key]++
	ot.total++
}

// Count returns the occurrence count of key, or 0 if it never occurred.
func (ot *OccurrenceTable) Count(key Key) int {
	return ot.counts[key]
}

// Keys returns the distinct keys in first-encountered order.
func (ot *OccurrenceTable) Keys() []Key {
	return append([]Key{}, ot.keys...)
}

// Iterate calls f for each key and its count in first-encountered order.
func (ot *OccurrenceTable) Iterate(f func(key Key, count int)) {
	for _, k := range ot.keys {
		f(k, ot.counts[k])
	}
}

// Len returns the number of distinct tiles.
func (ot *OccurrenceTable) Len() int {
	return len(ot.keys)
}

// Total returns the number of tile instances counted.
func (ot *OccurrenceTable) Total() int {
	return ot.total
}

// CountOccurrences encodes every tile of the grid, in row-major order, and
// tallies key -> count.
func CountOccurrences(grid RawTileGrid) *OccurrenceTable {
	ot := newOccurrenceTable()
	for _, row := range grid {
		for _, t := range row {
			ot.add(EncodeTile(t))
		}
	}
	return ot
}

// DropFraction returns the percentage (0-100) of tile instances whose
// tile occurs strictly fewer than cutoff times. An empty table drops
// nothing.
func DropFraction(ot *OccurrenceTable, cutoff int) float64 {
	if ot.total == 0 {
		return 0
	}
	dropped := 0
	for _, k := range ot.keys {
		if c := ot.counts[k]; c < cutoff {
			dropped += c
		}
	}
	return float64(dropped) / float64(ot.total) * 100
}
