package tilecluster

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func tileOf(size int, pix ...uint8) Tile {
	return Tile{Size: size, Pix: pix}
}

func TestEncodeTileFormat(t *testing.T) {
	tile := tileOf(2, 0, 255, 16, 1)
	want := Key("0x0,0xff,0x10,0x1")
	if got := EncodeTile(tile); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if tile.Key() != want {
		t.Error("Key should match EncodeTile")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for size := 1; size <= 16; size++ {
		tile := NewTile(size)
		for i := range tile.Pix {
			tile.Pix[i] = uint8(rng.Intn(256))
		}
		got, err := DecodeTile(EncodeTile(tile), size)
		if err != nil {
			t.Fatalf("size %d: unexpected error: %v", size, err)
		}
		if diff := cmp.Diff(tile, got); diff != "" {
			t.Errorf("size %d: round trip mismatch (-want +got):\n%s", size, diff)
		}
	}
}

func TestDecodeTileWithoutPrefix(t *testing.T) {
	got, err := DecodeTile("ff,0x0,A,10", 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff := cmp.Diff([]uint8{255, 0, 10, 16}, got.Pix); diff != "" {
		t.Errorf("Pixel mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeTileErrors(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		size int
	}{
		{"too few tokens", "0x1,0x2,0x3", 2},
		{"too many tokens", "0x1,0x2,0x3,0x4,0x5", 2},
		{"not hex", "0x1,0x2,0xzz,0x4", 2},
		{"out of range", "0x1,0x2,0x100,0x4", 2},
		{"negative", "0x1,-1,0x3,0x4", 2},
		{"empty token", "0x1,,0x3,0x4", 2},
		{"bare prefix", "0x1,0x,0x3,0x4", 2},
		{"zero size", "0x1", 0},
		{"negative size", "0x1", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTile(tt.key, tt.size)
			if !errors.Is(err, ErrFormat) {
				t.Errorf("Expected ErrFormat, got %v", err)
			}
		})
	}
}

func TestTileFlips(t *testing.T) {
	// 1 2
	// 3 4
	tile := tileOf(2, 1, 2, 3, 4)

	if diff := cmp.Diff([]uint8{3, 4, 1, 2}, tile.FlipRows().Pix); diff != "" {
		t.Errorf("FlipRows mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint8{2, 1, 4, 3}, tile.FlipCols().Pix); diff != "" {
		t.Errorf("FlipCols mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint8{4, 3, 2, 1}, tile.FlipBoth().Pix); diff != "" {
		t.Errorf("FlipBoth mismatch (-want +got):\n%s", diff)
	}
	if !tile.FlipRows().FlipRows().Equal(tile) {
		t.Error("Flipping twice should restore the tile")
	}
}

func TestTileGrayRoundTrip(t *testing.T) {
	tile := tileOf(3, 1, 2, 3, 4, 5, 6, 7, 8, 9)
	got := TileFromGray(tile.Gray(), 0, 0, 3)
	if !got.Equal(tile) {
		t.Errorf("Expected %v, got %v", tile.Pix, got.Pix)
	}
	if tile.At(2, 1) != 6 {
		t.Errorf("Expected At(2,1) = 6, got %d", tile.At(2, 1))
	}
}

func TestTileEqual(t *testing.T) {
	a := tileOf(2, 1, 2, 3, 4)
	if a.Equal(tileOf(2, 1, 2, 3, 5)) {
		t.Error("Tiles with different pixels should differ")
	}
	if a.Equal(tileOf(1, 1)) {
		t.Error("Tiles with different sizes should differ")
	}
}
