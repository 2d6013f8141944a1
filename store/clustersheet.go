package store

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/wbrown/tilecluster"
	"github.com/wbrown/tilecluster/imageutil"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Cluster sheet geometry, in output pixels.
const (
	captionHeight = 20
	captionSize   = 12
	sheetPadding  = 4
)

var (
	captionOnce sync.Once
	captionFont *truetype.Font
	captionErr  error
)

func loadCaptionFont() (*truetype.Font, error) {
	captionOnce.Do(func() {
		captionFont, captionErr = freetype.ParseFont(goregular.TTF)
	})
	return captionFont, captionErr
}

// ClusterSheetOptions controls cluster sheet rendering.
type ClusterSheetOptions struct {
	// Scale enlarges every tile by an integer factor.
	Scale int
	// Columns is the number of tiles per panel row.
	Columns int
}

// DefaultClusterSheetOptions returns 4x scaling with 8 tiles per row.
func DefaultClusterSheetOptions() ClusterSheetOptions {
	return ClusterSheetOptions{Scale: 4, Columns: 8}
}

// ClusterSheet renders one captioned panel per cluster label, stacked
// top to bottom in ascending label order. Each panel shows its member
// tiles in index order under a band coloured by the label.
func ClusterSheet(ts *tilecluster.Tileset, labels tilecluster.Labeling, opts ClusterSheetOptions) (*imageutil.RGBAImage, error) {
	if len(labels) != ts.Len() {
		return nil, fmt.Errorf("%d labels for %d tiles: %w", len(labels), ts.Len(), tilecluster.ErrConfig)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no tiles to render: %w", tilecluster.ErrConfig)
	}
	opts.Scale = max(1, opts.Scale)
	opts.Columns = max(1, opts.Columns)
	f, err := loadCaptionFont()
	if err != nil {
		return nil, err
	}
	tiles, err := ts.Tiles()
	if err != nil {
		return nil, err
	}

	ids, groups := labels.Groups()
	cell := ts.TileSize()*opts.Scale + sheetPadding
	width := opts.Columns*cell + sheetPadding
	height := 0
	for _, id := range ids {
		height += panelHeight(len(groups[id]), opts.Columns, cell)
	}

	sheet := imageutil.NewRGBAImage(width, height)
	sheet.FillRect(sheet.Bounds(), color.White)

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(f)
	ctx.SetFontSize(captionSize)
	ctx.SetClip(sheet.Bounds())
	ctx.SetDst(sheet.RGBA)
	ctx.SetSrc(image.Black)
	ctx.SetHinting(font.HintingFull)

	y := 0
	for n, id := range ids {
		members := groups[id]
		band := colorful.Hsv(360*float64(n)/float64(len(ids)), 0.45, 0.95)
		sheet.FillRect(image.Rect(0, y, width, y+captionHeight), band)
		caption := fmt.Sprintf("Cluster %d (%d tiles)", id, len(members))
		if _, err := ctx.DrawString(caption, freetype.Pt(sheetPadding, y+captionHeight-5)); err != nil {
			return nil, err
		}
		for j, idx := range members {
			x0 := sheetPadding + (j%opts.Columns)*cell
			y0 := y + captionHeight + sheetPadding + (j/opts.Columns)*cell
			imageutil.DrawGray(sheet, imageutil.ScaleGray(tiles[idx].Gray(), opts.Scale).Gray, x0, y0)
		}
		y += panelHeight(len(members), opts.Columns, cell)
	}
	return sheet, nil
}

func panelHeight(members, columns, cell int) int {
	rows := (members + columns - 1) / columns
	return captionHeight + sheetPadding + rows*cell
}

// ExportClusterSheet renders the cluster sheet and saves it in the format
// named by the path's extension (PNG when unrecognised).
func ExportClusterSheet(path string, ts *tilecluster.Tileset, labels tilecluster.Labeling, opts ClusterSheetOptions) error {
	sheet, err := ClusterSheet(ts, labels, opts)
	if err != nil {
		return err
	}
	if err := imageutil.SaveImage(sheet, path); err != nil {
		return ioErr("write cluster sheet", path, err)
	}
	return nil
}
