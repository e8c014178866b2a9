package mp4index

import (
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/avc"

	"github.com/user/hwang/pkg/videoindex"
)

// SampleReader reads indexed samples from the video file. Length-prefixed
// H.264 and HEVC samples are returned as Annex B byte streams.
type SampleReader struct {
	r      io.ReaderAt
	index  *videoindex.Index
	annexB bool
}

// NewSampleReader creates a reader over r using the offsets in index.
func NewSampleReader(r io.ReaderAt, index *videoindex.Index, info Info) *SampleReader {
	return &SampleReader{
		r:      r,
		index:  index,
		annexB: info.LengthPrefixed,
	}
}

// ReadSample returns the bytes of sample i.
func (s *SampleReader) ReadSample(i uint64) ([]byte, error) {
	offset, size, err := s.index.Sample(i)
	if err != nil {
		return nil, err
	}
	data := make([]byte, size)
	if n, err := s.r.ReadAt(data, int64(offset)); n < len(data) {
		return nil, fmt.Errorf("read sample %d at %d: %w", i, offset, err)
	}
	if s.annexB {
		data = avc.ConvertSampleToByteStream(data)
	}
	return data, nil
}

