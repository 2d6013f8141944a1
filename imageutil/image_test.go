package imageutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestNewGrayImage(t *testing.T) {
	img := NewGrayImage(100, 50)
	if img.Width() != 100 {
		t.Errorf("Expected width 100, got %d", img.Width())
	}
	if img.Height() != 50 {
		t.Errorf("Expected height 50, got %d", img.Height())
	}
}

func TestGrayImageClone(t *testing.T) {
	img := NewGrayImage(10, 10)
	img.SetGrayValue(5, 5, 200)

	clone := img.Clone()
	if clone.GetGray(5, 5) != 200 {
		t.Error("Clone should have same pixel values")
	}

	// Modify clone, original should be unchanged
	clone.SetGrayValue(5, 5, 10)
	if img.GetGray(5, 5) != 200 {
		t.Error("Modifying clone should not affect original")
	}
}

func TestGrayImageCloneSubImage(t *testing.T) {
	img := CreateCheckerboardGray(8, 8, 2, 0, 255)
	sub := &GrayImage{Gray: img.SubImage(image.Rect(2, 2, 6, 6)).(*image.Gray)}

	clone := sub.Clone()
	if clone.Width() != 4 || clone.Height() != 4 {
		t.Fatalf("Expected 4x4, got %dx%d", clone.Width(), clone.Height())
	}
	if clone.Bounds().Min != (image.Point{}) {
		t.Errorf("Clone should start at origin, got %v", clone.Bounds().Min)
	}
	if got, want := clone.GetGray(0, 0), img.GetGray(2, 2); got != want {
		t.Errorf("Expected %d, got %d", want, got)
	}
}

func TestPaste(t *testing.T) {
	img := CreateSolidGray(8, 8, 0)
	img.Paste(CreateSolidGray(2, 2, 9).Gray, 3, 4)

	if img.GetGray(3, 4) != 9 || img.GetGray(4, 5) != 9 {
		t.Error("Pasted block should be 9")
	}
	if img.GetGray(2, 4) != 0 || img.GetGray(5, 4) != 0 {
		t.Error("Pixels outside the pasted block should be untouched")
	}
}

func TestToGrayscale(t *testing.T) {
	img := NewRGBAImage(1, 1)

	// White
	img.SetRGBA(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	if v := ToGrayscale(img).GetGray(0, 0); v != 255 {
		t.Errorf("White pixel should convert to 255, got %d", v)
	}

	// Black
	img.SetRGBA(0, 0, color.RGBA{A: 255})
	if v := ToGrayscale(img).GetGray(0, 0); v != 0 {
		t.Errorf("Black pixel should convert to 0, got %d", v)
	}

	// Red (0.299 * 255 = 76.245)
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	if v := ToGrayscale(img).GetGray(0, 0); v != 76 {
		t.Errorf("Red pixel should convert to 76, got %d", v)
	}
}

func TestToGrayscaleCopiesGray(t *testing.T) {
	src := CreateSolidGray(4, 4, 42)
	gray := ToGrayscale(src.Gray)
	gray.SetGrayValue(0, 0, 1)
	if src.GetGray(0, 0) != 42 {
		t.Error("ToGrayscale should not alias a gray input")
	}
}

func imageFormat(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("Failed to decode %s: %v", path, err)
	}
	return format
}

func TestSaveImageByExtension(t *testing.T) {
	src := CreateCheckerboardGray(8, 8, 2, 0, 255)
	dir := t.TempDir()
	tests := []struct {
		name string
		want string
	}{
		{"out.png", "png"},
		{"out.jpg", "jpeg"},
		{"out.JPEG", "jpeg"},
		{"out.gif", "gif"},
		{"out", "png"},
	}
	for _, tt := range tests {
		path := filepath.Join(dir, tt.name)
		if err := SaveImage(src, path); err != nil {
			t.Fatalf("SaveImage(%s) failed: %v", tt.name, err)
		}
		if got := imageFormat(t, path); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}
}

func TestSavePNGIgnoresExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.jpg")
	if err := SavePNG(CreateSolidGray(4, 4, 9), path); err != nil {
		t.Fatalf("SavePNG failed: %v", err)
	}
	if got := imageFormat(t, path); got != "png" {
		t.Errorf("Expected png, got %s", got)
	}
}

func TestResizeGray(t *testing.T) {
	img := CreateCheckerboardGray(100, 100, 10, 0, 255)

	// Downscale
	resized := ResizeGray(img.Gray, 50, 50, InterpolationArea)
	if resized.Width() != 50 || resized.Height() != 50 {
		t.Errorf("Expected 50x50, got %dx%d", resized.Width(), resized.Height())
	}

	// Upscale
	resized = ResizeGray(img.Gray, 200, 200, InterpolationLinear)
	if resized.Width() != 200 || resized.Height() != 200 {
		t.Errorf("Expected 200x200, got %dx%d", resized.Width(), resized.Height())
	}
}

func TestScaleGrayKeepsBlocks(t *testing.T) {
	tile := CreatePatternTile(4, 3)
	scaled := ScaleGray(tile, 3)
	if scaled.Width() != 12 || scaled.Height() != 12 {
		t.Fatalf("Expected 12x12, got %dx%d", scaled.Width(), scaled.Height())
	}
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			want := tile.GrayAt(x/3, y/3).Y
			if got := scaled.GetGray(x, y); got != want {
				t.Fatalf("Pixel (%d,%d): expected %d, got %d", x, y, want, got)
			}
		}
	}
}

func TestDrawGray(t *testing.T) {
	canvas := NewRGBAImage(10, 10)
	canvas.FillRect(canvas.Bounds(), color.White)
	DrawGray(canvas, CreateSolidGray(2, 2, 0).Gray, 4, 4)

	if got := canvas.RGBAAt(4, 4); got != (color.RGBA{A: 255}) {
		t.Errorf("Expected black at (4,4), got %v", got)
	}
	if got := canvas.RGBAAt(6, 6); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("Expected white at (6,6), got %v", got)
	}
}

func TestCreateTiledMap(t *testing.T) {
	layout := [][]int{{0, 1}, {1, 0}}
	img := CreateTiledMap(layout, 4, image.Pt(3, 2))
	if img.Width() != 11 || img.Height() != 10 {
		t.Fatalf("Expected 11x10, got %dx%d", img.Width(), img.Height())
	}
	if img.GetGray(0, 0) != 0 {
		t.Error("Padding should be zero")
	}
	want := CreatePatternTile(4, 1).GrayAt(0, 0).Y
	if got := img.GetGray(3+4, 2); got != want {
		t.Errorf("Expected tile 1 at (7,2): want %d, got %d", want, got)
	}
}

func TestSaveAndLoadGray(t *testing.T) {
	src := CreateCheckerboardGray(12, 12, 3, 10, 240)
	path := filepath.Join(t.TempDir(), "map.png")
	if err := SavePNG(src, path); err != nil {
		t.Fatalf("SavePNG failed: %v", err)
	}

	loaded, err := LoadGray(path)
	if err != nil {
		t.Fatalf("LoadGray failed: %v", err)
	}
	if d := CalculateMaxDiffGray(src, loaded); d != 0 {
		t.Errorf("Loaded image differs, max diff %d", d)
	}
}

func TestDecodeGrayInvalid(t *testing.T) {
	if _, err := DecodeGray(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("Expected error decoding garbage")
	}
}

func TestDecodeGrayPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, CreateSolidGray(3, 3, 77)); err != nil {
		t.Fatal(err)
	}
	img, err := DecodeGray(&buf)
	if err != nil {
		t.Fatalf("DecodeGray failed: %v", err)
	}
	if img.GetGray(1, 1) != 77 {
		t.Errorf("Expected 77, got %d", img.GetGray(1, 1))
	}
}
