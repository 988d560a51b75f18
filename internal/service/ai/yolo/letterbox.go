package yolo

import (
	"image"
	"math"
)

// PadValue is the grey level ultralytics uses for letterbox borders.
const PadValue = 114

// Letterbox describes how a source image is scaled and padded into a square
// network input while keeping its aspect ratio.
type Letterbox struct {
	SrcWidth, SrcHeight int
	Size                int
	Scale               float64
	Width, Height       int // scaled image size before padding
	PadX, PadY          int // left and top border
}

// NewLetterbox computes the geometry for a srcWidth x srcHeight image.
func NewLetterbox(srcWidth, srcHeight, size int) Letterbox {
	scale := math.Min(float64(size)/float64(srcWidth), float64(size)/float64(srcHeight))
	w := int(math.Round(float64(srcWidth) * scale))
	h := int(math.Round(float64(srcHeight) * scale))

	return Letterbox{
		SrcWidth:  srcWidth,
		SrcHeight: srcHeight,
		Size:      size,
		Scale:     scale,
		Width:     w,
		Height:    h,
		PadX:      (size - w) / 2,
		PadY:      (size - h) / 2,
	}
}

// Unscale maps a box from network pixels back to source pixels, clamped to
// the source image.
func (l Letterbox) Unscale(b Box) image.Rectangle {
	x1 := (float64(b.X1) - float64(l.PadX)) / l.Scale
	y1 := (float64(b.Y1) - float64(l.PadY)) / l.Scale
	x2 := (float64(b.X2) - float64(l.PadX)) / l.Scale
	y2 := (float64(b.Y2) - float64(l.PadY)) / l.Scale

	return image.Rect(
		clamp(x1, l.SrcWidth),
		clamp(y1, l.SrcHeight),
		clamp(x2, l.SrcWidth),
		clamp(y2, l.SrcHeight),
	)
}

func clamp(v float64, limit int) int {
	i := int(math.Round(v))
	if i < 0 {
		return 0
	}
	if i > limit {
		return limit
	}
	return i
}
