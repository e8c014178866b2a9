// Package framesink writes extracted frames to image files.
package framesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/user/hwang/pkg/ports"
)

// Options configures a Sink.
type Options struct {
	// Format of the written files. Defaults to PNG.
	Format ports.ImageFormat

	// Quality for JPEG output. Defaults to 90.
	Quality int

	// ThumbWidth downscales frames wider than this to this width, keeping
	// the aspect ratio. Zero writes frames at full size.
	ThumbWidth int
}

// Sink saves frames as numbered image files under a directory.
type Sink struct {
	dir      string
	fs       ports.FileSystem
	renderer ports.Renderer
	opts     Options
}

// New creates a Sink writing into dir.
func New(dir string, fs ports.FileSystem, renderer ports.Renderer, opts Options) *Sink {
	if opts.Quality <= 0 {
		opts.Quality = 90
	}
	return &Sink{
		dir:      dir,
		fs:       fs,
		renderer: renderer,
		opts:     opts,
	}
}

// FrameName returns the file name used for frame number n.
func (s *Sink) FrameName(n uint64) string {
	return fmt.Sprintf("frame-%06d.%s", n, s.opts.Format.Extension())
}

// SaveFrame encodes frame and writes it as frame-NNNNNN.<ext>.
func (s *Sink) SaveFrame(frame ports.Frame) (string, error) {
	img := frame.Image
	if s.opts.ThumbWidth > 0 && img.Bounds().Dx() > s.opts.ThumbWidth {
		img = s.renderer.ResizeImage(img, s.opts.ThumbWidth, 0)
	}
	path, err := s.write(s.FrameName(frame.Number), img)
	if err != nil {
		return "", fmt.Errorf("save frame %d: %w", frame.Number, err)
	}
	return path, nil
}

// SaveImage writes img under name, adding the format's extension.
func (s *Sink) SaveImage(name string, img image.Image) (string, error) {
	return s.write(name+"."+s.opts.Format.Extension(), img)
}

func (s *Sink) write(name string, img image.Image) (string, error) {
	if err := s.fs.MkdirAll(s.dir); err != nil {
		return "", err
	}
	data, err := s.renderer.EncodeImage(img, s.opts.Format, s.opts.Quality)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	if err := s.fs.WriteFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

var _ ports.FrameSink = (*Sink)(nil)
