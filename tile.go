package tilecluster

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/disintegration/gift"
)

// keySeparator joins the hex tokens of a tile key.
const keySeparator = ","

// Key is the canonical, lossless text encoding of a Tile: every intensity in
// row-major order rendered as a 0x-prefixed hexadecimal token, joined by
// commas. Two tiles are identical iff their keys are equal, so Key is used
// directly as the map key for tile identity.
type Key string

// Tile is a square block of 8-bit grayscale intensities. Pix holds
// Size*Size values in row-major order.
type Tile struct {
	Size int
	Pix  []uint8
}

// NewTile returns a zeroed tile of the given side length.
func NewTile(size int) Tile {
	return Tile{Size: size, Pix: make([]uint8, size*size)}
}

// At returns the intensity at column x, row y.
func (t Tile) At(x, y int) uint8 {
	return t.Pix[y*t.Size+x]
}

// Set stores v at column x, row y.
func (t Tile) Set(x, y int, v uint8) {
	t.Pix[y*t.Size+x] = v
}

// Key returns the canonical encoding of the tile.
func (t Tile) Key() Key {
	return EncodeTile(t)
}

// Equal reports whether two tiles have the same size and pixels.
func (t Tile) Equal(o Tile) bool {
	if t.Size != o.Size || len(t.Pix) != len(o.Pix) {
		return false
	}
	for i := range t.Pix {
		if t.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// EncodeTile flattens the tile in row-major order and renders each value as
// a hexadecimal token. The result is total and injective over tiles of a
// fixed size.
func EncodeTile(t Tile) Key {
	var sb strings.Builder
	// "0xff," is the longest token
	sb.Grow(len(t.Pix) * 5)
	buf := make([]byte, 0, 4)
	for i, v := range t.Pix {
		if i > 0 {
			sb.WriteString(keySeparator)
		}
		buf = append(buf[:0], '0', 'x')
		buf = strconv.AppendUint(buf, uint64(v), 16)
		sb.Write(buf)
	}
	return Key(sb.String())
}

// DecodeTile is the inverse of EncodeTile. It fails with ErrFormat when the
// token count differs from size*size or a token is not a hexadecimal value
// in [0, 255]. Tokens may omit the 0x prefix.
func DecodeTile(key Key, size int) (Tile, error) {
	if size <= 0 {
		return Tile{}, fmt.Errorf("tile size %d: %w", size, ErrFormat)
	}
	tokens := strings.Split(string(key), keySeparator)
	if len(tokens) != size*size {
		return Tile{}, fmt.Errorf("tile key has %d tokens, want %d: %w",
			len(tokens), size*size, ErrFormat)
	}
	t := NewTile(size)
	for i, tok := range tokens {
		digits := strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
		if digits == "" {
			return Tile{}, fmt.Errorf("tile key token %d is empty: %w", i, ErrFormat)
		}
		v, err := strconv.ParseUint(digits, 16, 8)
		if err != nil {
			return Tile{}, fmt.Errorf("tile key token %d (%q): %w", i, tok, ErrFormat)
		}
		t.Pix[i] = uint8(v)
	}
	return t, nil
}

// Gray returns the tile as a standalone grayscale image.
func (t Tile) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, t.Size, t.Size))
	for y := 0; y < t.Size; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+t.Size], t.Pix[y*t.Size:(y+1)*t.Size])
	}
	return img
}

// TileFromGray copies the size x size block of img whose top-left corner is
// (x0, y0), relative to the image bounds.
func TileFromGray(img *image.Gray, x0, y0, size int) Tile {
	t := NewTile(size)
	b := img.Bounds()
	for y := 0; y < size; y++ {
		off := img.PixOffset(b.Min.X+x0, b.Min.Y+y0+y)
		copy(t.Pix[y*size:(y+1)*size], img.Pix[off:off+size])
	}
	return t
}

// FlipRows mirrors the tile top to bottom.
func (t Tile) FlipRows() Tile {
	return t.filter(gift.FlipVertical())
}

// FlipCols mirrors the tile left to right.
func (t Tile) FlipCols() Tile {
	return t.filter(gift.FlipHorizontal())
}

// FlipBoth mirrors the tile along both axes.
func (t Tile) FlipBoth() Tile {
	return t.filter(gift.Rotate180())
}

func (t Tile) filter(filters ...gift.Filter) Tile {
	src := t.Gray()
	g := gift.New(filters...)
	dst := image.NewGray(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return TileFromGray(dst, 0, 0, t.Size)
}
