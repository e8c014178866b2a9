package videoindex

import (
	"bytes"
	"fmt"

	"github.com/Eyevinn/mp4ff/bits"
)

// FormatVersion is the version written by Serialize.
const FormatVersion uint32 = 1

var formatMagic = []byte("HWIX")

// headerSize covers magic, version, frame count, non-ref count and the four
// length prefixes.
const headerSize = 4 + 4 + 8 + 8 + 4*8

// Serialize encodes the index as a flat, self-describing byte buffer.
// Deserialize(x.Serialize()) is equal to x.
func (x *Index) Serialize() []byte {
	size := headerSize + len(x.metadata) + 8*(len(x.sampleOffsets)+len(x.sampleSizes)+len(x.keyframes))
	sw := bits.NewFixedSliceWriter(size)

	sw.WriteBytes(formatMagic)
	sw.WriteUint32(FormatVersion)
	sw.WriteUint64(x.numFrames)
	sw.WriteUint64(x.numNonRefFrames)

	sw.WriteUint64(uint64(len(x.metadata)))
	sw.WriteBytes(x.metadata)

	writeUint64s(sw, x.sampleOffsets)
	writeUint64s(sw, x.sampleSizes)
	writeUint64s(sw, x.keyframes)

	// The buffer is sized exactly, so an accumulated error is a programming error.
	if err := sw.AccError(); err != nil {
		panic(fmt.Sprintf("videoindex: serialize: %v", err))
	}
	return sw.Bytes()
}

func writeUint64s(sw *bits.FixedSliceWriter, values []uint64) {
	sw.WriteUint64(uint64(len(values)))
	for _, v := range values {
		sw.WriteUint64(v)
	}
}

// Deserialize decodes a buffer produced by Serialize.
// Any structural problem yields an error wrapping ErrCorruptIndex and no index.
func Deserialize(data []byte) (*Index, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: buffer of %d bytes shorter than header", ErrCorruptIndex, len(data))
	}
	sr := bits.NewFixedSliceReader(data)

	magic := sr.ReadBytes(len(formatMagic))
	if !bytes.Equal(magic, formatMagic) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptIndex, magic)
	}
	version := sr.ReadUint32()
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorruptIndex, version)
	}

	x := &Index{}
	x.numFrames = sr.ReadUint64()
	x.numNonRefFrames = sr.ReadUint64()

	metaLen := sr.ReadUint64()
	if err := sr.AccError(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	if metaLen > uint64(sr.NrRemainingBytes()) {
		return nil, fmt.Errorf("%w: metadata length %d exceeds remaining %d bytes", ErrCorruptIndex, metaLen, sr.NrRemainingBytes())
	}
	x.metadata = bytes.Clone(sr.ReadBytes(int(metaLen)))

	var err error
	if x.sampleOffsets, err = readUint64s(sr, "sample offsets"); err != nil {
		return nil, err
	}
	if x.sampleSizes, err = readUint64s(sr, "sample sizes"); err != nil {
		return nil, err
	}
	if x.keyframes, err = readUint64s(sr, "keyframe indices"); err != nil {
		return nil, err
	}

	if err := sr.AccError(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	if n := sr.NrRemainingBytes(); n != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptIndex, n)
	}
	if uint64(len(x.sampleOffsets)) != x.numFrames || uint64(len(x.sampleSizes)) != x.numFrames {
		return nil, fmt.Errorf("%w: %d frames declared but %d offsets and %d sizes stored",
			ErrCorruptIndex, x.numFrames, len(x.sampleOffsets), len(x.sampleSizes))
	}
	return x, nil
}

func readUint64s(sr *bits.FixedSliceReader, what string) ([]uint64, error) {
	n := sr.ReadUint64()
	if err := sr.AccError(); err != nil {
		return nil, fmt.Errorf("%w: reading %s length: %v", ErrCorruptIndex, what, err)
	}
	if n > uint64(sr.NrRemainingBytes())/8 {
		return nil, fmt.Errorf("%w: %s length %d exceeds remaining %d bytes", ErrCorruptIndex, what, n, sr.NrRemainingBytes())
	}
	values := make([]uint64, n)
	for i := range values {
		values[i] = sr.ReadUint64()
	}
	return values, nil
}
