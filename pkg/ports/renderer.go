package ports

import (
	"image"
)

// ImageFormat specifies image encoding format.
type ImageFormat int

const (
	FormatPNG ImageFormat = iota
	FormatJPEG
)

// Extension returns the file extension for the format, without the dot.
func (f ImageFormat) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}

// Frame is a decoded frame surfaced to the caller.
type Frame struct {
	// Number is the frame's position in the stream (decode order).
	Number uint64
	Image  image.Image
}

// Renderer abstracts image encoding, scaling and frame composition.
type Renderer interface {
	// DecodeImage decodes image data into an image.Image.
	DecodeImage(data []byte, format ImageFormat) (image.Image, error)

	// EncodeImage encodes an image to the specified format.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)

	// ResizeImage resizes an image to the specified dimensions.
	ResizeImage(img image.Image, width, height int) image.Image

	// ContactSheet lays frames out in a labelled grid of the given column
	// count, each cell cellWidth pixels wide.
	ContactSheet(frames []Frame, columns, cellWidth int) (image.Image, error)
}
