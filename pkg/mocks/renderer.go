package mocks

import (
	"image"

	"github.com/user/hwang/pkg/ports"
)

// Renderer is a mock implementation of ports.Renderer.
type Renderer struct {
	DecodeImageFunc  func(data []byte, format ports.ImageFormat) (image.Image, error)
	EncodeImageFunc  func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)
	ResizeImageFunc  func(img image.Image, width, height int) image.Image
	ContactSheetFunc func(frames []ports.Frame, columns, cellWidth int) (image.Image, error)

	ContactSheetCalls int
}

func (m *Renderer) DecodeImage(data []byte, format ports.ImageFormat) (image.Image, error) {
	if m.DecodeImageFunc != nil {
		return m.DecodeImageFunc(data, format)
	}
	return image.NewRGBA(image.Rect(0, 0, 100, 100)), nil
}

func (m *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	return []byte{}, nil
}

func (m *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	if m.ResizeImageFunc != nil {
		return m.ResizeImageFunc(img, width, height)
	}
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

func (m *Renderer) ContactSheet(frames []ports.Frame, columns, cellWidth int) (image.Image, error) {
	m.ContactSheetCalls++
	if m.ContactSheetFunc != nil {
		return m.ContactSheetFunc(frames, columns, cellWidth)
	}
	return image.NewRGBA(image.Rect(0, 0, columns*cellWidth, cellWidth)), nil
}

var _ ports.Renderer = (*Renderer)(nil)
