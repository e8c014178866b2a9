package ports

import "image"

// FrameSink receives frames produced by an extraction.
type FrameSink interface {
	// SaveFrame stores one decoded frame and returns where it went.
	SaveFrame(frame Frame) (string, error)

	// SaveImage stores an auxiliary image (such as a contact sheet) under name.
	SaveImage(name string, img image.Image) (string, error)
}
