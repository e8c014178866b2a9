// Package videoindex provides the per-stream random-access index and the
// interval slicer that turns a sparse frame request into a decode plan.
package videoindex

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

var (
	// ErrCorruptIndex is returned when a serialized index cannot be decoded.
	ErrCorruptIndex = errors.New("videoindex: corrupt index")

	// ErrInvalidFrameIndex is returned when a frame number lies outside [0, Frames()).
	ErrInvalidFrameIndex = errors.New("videoindex: invalid frame index")

	// ErrInconsistentIndex is returned by Validate when the fields disagree.
	ErrInconsistentIndex = errors.New("videoindex: inconsistent index")
)

// Index is the immutable random-access metadata of one video stream.
//
// Frame i is stored as the compressed sample at SampleOffsets()[i] with
// length SampleSizes()[i]. Decoding frame i requires feeding the decoder
// every sample from the covering keyframe up to i, in order.
type Index struct {
	numFrames       uint64
	numNonRefFrames uint64
	metadata        []byte
	sampleOffsets   []uint64
	sampleSizes     []uint64
	keyframes       []uint64
}

// New creates an index from demuxed stream metadata.
// Inputs are copied. Offsets and sizes are not validated.
func New(numFrames uint64, metadata []byte, sampleOffsets, sampleSizes, keyframeIndices []uint64) *Index {
	return NewWithNonRef(numFrames, 0, metadata, sampleOffsets, sampleSizes, keyframeIndices)
}

// NewWithNonRef is like New but also records the number of frames that are
// never used as a prediction reference.
func NewWithNonRef(numFrames, numNonRefFrames uint64, metadata []byte, sampleOffsets, sampleSizes, keyframeIndices []uint64) *Index {
	return &Index{
		numFrames:       numFrames,
		numNonRefFrames: numNonRefFrames,
		metadata:        slices.Clone(metadata),
		sampleOffsets:   slices.Clone(sampleOffsets),
		sampleSizes:     slices.Clone(sampleSizes),
		keyframes:       slices.Clone(keyframeIndices),
	}
}

// Frames returns the total number of frames in the stream.
func (x *Index) Frames() uint64 { return x.numFrames }

// NumNonRefFrames returns the number of non-reference frames, 0 when not computed.
func (x *Index) NumNonRefFrames() uint64 { return x.numNonRefFrames }

// MetadataBytes returns a copy of the codec configuration bytes.
func (x *Index) MetadataBytes() []byte { return slices.Clone(x.metadata) }

// SampleOffsets returns a copy of the per-frame sample byte offsets.
func (x *Index) SampleOffsets() []uint64 { return slices.Clone(x.sampleOffsets) }

// SampleSizes returns a copy of the per-frame sample byte lengths.
func (x *Index) SampleSizes() []uint64 { return slices.Clone(x.sampleSizes) }

// KeyframeIndices returns a copy of the sorted keyframe positions.
func (x *Index) KeyframeIndices() []uint64 { return slices.Clone(x.keyframes) }

// NumKeyframes returns the number of keyframes.
func (x *Index) NumKeyframes() int { return len(x.keyframes) }

// Sample returns the byte offset and size of frame i's sample.
func (x *Index) Sample(i uint64) (offset, size uint64, err error) {
	if i >= x.numFrames || i >= uint64(len(x.sampleOffsets)) || i >= uint64(len(x.sampleSizes)) {
		return 0, 0, fmt.Errorf("%w: frame %d outside [0, %d)", ErrInvalidFrameIndex, i, x.numFrames)
	}
	return x.sampleOffsets[i], x.sampleSizes[i], nil
}

// CoveringKeyframe returns the greatest keyframe index not after frame.
func (x *Index) CoveringKeyframe(frame uint64) (uint64, error) {
	if frame >= x.numFrames {
		return 0, fmt.Errorf("%w: frame %d outside [0, %d)", ErrInvalidFrameIndex, frame, x.numFrames)
	}
	return x.coveringKeyframe(frame), nil
}

// coveringKeyframe assumes frame is in range. A frame preceding every
// keyframe is anchored at sample 0.
func (x *Index) coveringKeyframe(frame uint64) uint64 {
	n := sort.Search(len(x.keyframes), func(i int) bool { return x.keyframes[i] > frame })
	if n == 0 {
		return 0
	}
	return x.keyframes[n-1]
}

// IsKeyframe reports whether frame is independently decodable.
func (x *Index) IsKeyframe(frame uint64) bool {
	_, found := slices.BinarySearch(x.keyframes, frame)
	return found
}

// Equal reports whether two indexes hold the same fields.
// Nil and empty slices compare equal.
func (x *Index) Equal(o *Index) bool {
	if x == nil || o == nil {
		return x == o
	}
	return x.numFrames == o.numFrames &&
		x.numNonRefFrames == o.numNonRefFrames &&
		slices.Equal(x.metadata, o.metadata) &&
		slices.Equal(x.sampleOffsets, o.sampleOffsets) &&
		slices.Equal(x.sampleSizes, o.sampleSizes) &&
		slices.Equal(x.keyframes, o.keyframes)
}

// Validate checks the structural invariants a producer is expected to uphold.
// It is never called implicitly.
func (x *Index) Validate() error {
	if uint64(len(x.sampleOffsets)) != x.numFrames {
		return fmt.Errorf("%w: %d offsets for %d frames", ErrInconsistentIndex, len(x.sampleOffsets), x.numFrames)
	}
	if uint64(len(x.sampleSizes)) != x.numFrames {
		return fmt.Errorf("%w: %d sizes for %d frames", ErrInconsistentIndex, len(x.sampleSizes), x.numFrames)
	}
	if x.numFrames > 0 && (len(x.keyframes) == 0 || x.keyframes[0] != 0) {
		return fmt.Errorf("%w: frame 0 is not a keyframe", ErrInconsistentIndex)
	}
	for i, k := range x.keyframes {
		if k >= x.numFrames {
			return fmt.Errorf("%w: keyframe %d outside [0, %d)", ErrInconsistentIndex, k, x.numFrames)
		}
		if i > 0 && k <= x.keyframes[i-1] {
			return fmt.Errorf("%w: keyframes not strictly increasing at position %d", ErrInconsistentIndex, i)
		}
	}
	for i := 1; i < len(x.sampleOffsets); i++ {
		if x.sampleOffsets[i] < x.sampleOffsets[i-1] {
			return fmt.Errorf("%w: sample offsets decrease at frame %d", ErrInconsistentIndex, i)
		}
	}
	return nil
}
