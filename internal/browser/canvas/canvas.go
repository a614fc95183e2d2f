// internal/browser/canvas/canvas.go
package canvas

import (
	"errors"
	"image"
	"image/color"
	"image/draw"

	"go.uber.org/zap"

	"github.com/xkilldash9x/farbler/internal/farbling"
)

// ErrInvalidSize is returned by New for a zero or negative width or height.
var ErrInvalidSize = errors.New("canvas dimensions must be positive")

// ImageData is a readback of canvas pixels in RGBA order.
type ImageData struct {
	Width  int
	Height int
	Data   []byte
}

// Canvas is a 2D drawing surface owned by one browsing context.
type Canvas struct {
	ctx    farbling.Context
	img    *image.RGBA
	logger *zap.Logger
}

// New creates a transparent canvas of the given size.
func New(ctx farbling.Context, width, height int, logger *zap.Logger) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Canvas{
		ctx:    ctx,
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		logger: logger.Named("canvas"),
	}, nil
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.img.Rect.Dx() }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.img.Rect.Dy() }

// FillRect paints a rectangle, clipped to the canvas.
func (c *Canvas) FillRect(x, y, w, h int, fill color.Color) {
	r := image.Rect(x, y, x+w, y+h).Intersect(c.img.Rect)
	draw.Draw(c.img, r, image.NewUniform(fill), image.Point{}, draw.Src)
}

// GetImageData returns a copy of the pixels in the given rectangle, farbled
// for the owning context. The backing surface is never modified.
func (c *Canvas) GetImageData(x, y, w, h int) ImageData {
	r := image.Rect(x, y, x+w, y+h)
	out := ImageData{Width: r.Dx(), Height: r.Dy(), Data: make([]byte, r.Dx()*r.Dy()*4)}
	for row := 0; row < out.Height; row++ {
		for col := 0; col < out.Width; col++ {
			p := image.Pt(r.Min.X+col, r.Min.Y+row)
			if !p.In(c.img.Rect) {
				continue
			}
			src := c.img.PixOffset(p.X, p.Y)
			dst := (row*out.Width + col) * 4
			copy(out.Data[dst:dst+4], c.img.Pix[src:src+4])
		}
	}

	level, cache := farbling.Resolve(c.ctx, c.logger)
	farbling.FarbleImageData(level, cache, out.Data, c.logger)
	return out
}
