package mocks

import (
	"fmt"
	"image"
	"sync"

	"github.com/user/hwang/pkg/ports"
)

// FrameSink is a mock implementation of ports.FrameSink that keeps
// everything in memory.
type FrameSink struct {
	mu sync.Mutex

	SaveFrameFunc func(frame ports.Frame) (string, error)

	Frames []ports.Frame
	Images map[string]image.Image
}

// NewFrameSink creates a new mock FrameSink.
func NewFrameSink() *FrameSink {
	return &FrameSink{Images: make(map[string]image.Image)}
}

func (m *FrameSink) SaveFrame(frame ports.Frame) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveFrameFunc != nil {
		if _, err := m.SaveFrameFunc(frame); err != nil {
			return "", err
		}
	}
	m.Frames = append(m.Frames, frame)
	return fmt.Sprintf("frame-%06d.png", frame.Number), nil
}

func (m *FrameSink) SaveImage(name string, img image.Image) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Images == nil {
		m.Images = make(map[string]image.Image)
	}
	m.Images[name] = img
	return name, nil
}

// Numbers returns the numbers of the saved frames in save order.
func (m *FrameSink) Numbers() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	nums := make([]uint64, len(m.Frames))
	for i, f := range m.Frames {
		nums[i] = f.Number
	}
	return nums
}

var _ ports.FrameSink = (*FrameSink)(nil)
