// Package ggrenderer implements ports.Renderer with the gg drawing library.
package ggrenderer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strconv"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/user/hwang/pkg/ports"
)

// ErrNoFrames is returned when a contact sheet is requested for no frames.
var ErrNoFrames = errors.New("ggrenderer: no frames")

// Contact sheet layout in pixels.
const (
	sheetPadding = 4
	labelHeight  = 16
)

var (
	sheetBackground = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
	labelColor      = color.White
)

// Renderer implements ports.Renderer.
type Renderer struct{}

// New creates a new Renderer.
func New() *Renderer {
	return &Renderer{}
}

// DecodeImage decodes data in format, or auto-detects the format when it
// is neither JPEG nor PNG.
func (r *Renderer) DecodeImage(data []byte, format ports.ImageFormat) (image.Image, error) {
	reader := bytes.NewReader(data)
	switch format {
	case ports.FormatJPEG:
		return jpeg.Decode(reader)
	case ports.FormatPNG:
		return png.Decode(reader)
	default:
		img, _, err := image.Decode(reader)
		return img, err
	}
}

// EncodeImage encodes img; quality applies to JPEG only.
func (r *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case ports.FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode JPEG: %w", err)
		}
	case ports.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %d", format)
	}
	return buf.Bytes(), nil
}

// ResizeImage scales img to width x height. A zero height keeps the aspect
// ratio.
func (r *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if height <= 0 && b.Dx() > 0 {
		height = max(1, b.Dy()*width/b.Dx())
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// ContactSheet draws frames left to right, top to bottom, each scaled to
// cellWidth and labelled with its frame number. Cell height follows the
// aspect ratio of the first frame.
func (r *Renderer) ContactSheet(frames []ports.Frame, columns, cellWidth int) (image.Image, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	if columns <= 0 || cellWidth <= 0 {
		return nil, fmt.Errorf("ggrenderer: invalid layout %d columns of %d px", columns, cellWidth)
	}
	columns = min(columns, len(frames))
	rows := (len(frames) + columns - 1) / columns

	first := frames[0].Image.Bounds()
	cellHeight := cellWidth
	if first.Dx() > 0 {
		cellHeight = max(1, first.Dy()*cellWidth/first.Dx())
	}
	stepX := cellWidth + sheetPadding
	stepY := cellHeight + labelHeight + sheetPadding

	dc := gg.NewContext(columns*stepX+sheetPadding, rows*stepY+sheetPadding)
	dc.SetColor(sheetBackground)
	dc.Clear()

	for i, f := range frames {
		x := sheetPadding + (i%columns)*stepX
		y := sheetPadding + (i/columns)*stepY
		dc.DrawImage(r.ResizeImage(f.Image, cellWidth, cellHeight), x, y)

		dc.SetColor(labelColor)
		dc.DrawStringAnchored(strconv.FormatUint(f.Number, 10), float64(x+cellWidth/2), float64(y+cellHeight+labelHeight/2), 0.5, 0.5)
	}
	return dc.Image(), nil
}

var _ ports.Renderer = (*Renderer)(nil)
