package tilecluster

import (
	"fmt"
	"sort"
)

// Tileset assigns a dense zero-based index to every retained tile. Index 0
// is the most frequent tile; ties keep first-encountered order. A Tileset
// is immutable once built.
type Tileset struct {
	size  int
	keys  []Key
	index map[Key]int
}

// BuildTileset drops every key occurring fewer than cutoff times, orders
// the rest by descending count (stable, so ties keep encounter order) and
// assigns indices in that order.
func BuildTileset(ot *OccurrenceTable, cutoff int) *Tileset {
	kept := make([]Key, 0, ot.Len())
	ot.Iterate(func(key Key, count int) {
		if count >= cutoff {
			kept = append(kept, key)
		}
	})
	sort.SliceStable(kept, func(i, j int) bool {
		return ot.Count(kept[i]) > ot.Count(kept[j])
	})
	ts := &Tileset{keys: kept, index: make(map[Key]int, len(kept))}
	for i, k := range kept {
		ts.index[k] = i
	}
	if len(kept) > 0 {
		ts.size = keyTileSize(kept[0])
	}
	return ts
}

// NewTileset builds a tileset from keys already in index order, as read
// back from a tilesheet. Duplicate keys are rejected with ErrFormat.
func NewTileset(keys []Key) (*Tileset, error) {
	ts := &Tileset{
		keys:  append([]Key{}, keys...),
		index: make(map[Key]int, len(keys)),
	}
	for i, k := range ts.keys {
		if prev, dup := ts.index[k]; dup {
			return nil, fmt.Errorf("tiles %d and %d are identical: %w", prev, i, ErrFormat)
		}
		ts.index[k] = i
	}
	if len(keys) > 0 {
		ts.size = keyTileSize(keys[0])
	}
	return ts, nil
}

// keyTileSize recovers the side length from a key's token count.
func keyTileSize(k Key) int {
	tokens := 1
	for i := 0; i < len(k); i++ {
		if k[i] == keySeparator[0] {
			tokens++
		}
	}
	n := 0
	for n*n < tokens {
		n++
	}
	return n
}

// Len returns the number of tiles in the set.
func (ts *Tileset) Len() int {
	return len(ts.keys)
}

// TileSize returns the side length of the tiles, or 0 for an empty set.
func (ts *Tileset) TileSize() int {
	return ts.size
}

// Index returns the index assigned to key.
func (ts *Tileset) Index(key Key) (int, bool) {
	i, ok := ts.index[key]
	return i, ok
}

// Key returns the key at index i.
func (ts *Tileset) Key(i int) Key {
	return ts.keys[i]
}

// Keys returns all keys in index order.
func (ts *Tileset) Keys() []Key {
	return append([]Key{}, ts.keys...)
}

// Tile decodes the tile at index i.
func (ts *Tileset) Tile(i int) (Tile, error) {
	return DecodeTile(ts.keys[i], ts.size)
}

// Tiles decodes every tile in index order.
func (ts *Tileset) Tiles() ([]Tile, error) {
	tiles := make([]Tile, len(ts.keys))
	for i := range ts.keys {
		t, err := ts.Tile(i)
		if err != nil {
			return nil, fmt.Errorf("tile %d: %w", i, err)
		}
		tiles[i] = t
	}
	return tiles, nil
}
