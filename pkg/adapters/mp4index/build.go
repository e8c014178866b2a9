package mp4index

import (
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/hwang/pkg/adapters/logger"
	"github.com/user/hwang/pkg/ports"
	"github.com/user/hwang/pkg/videoindex"
)

// Sample flag bits (ISO/IEC 14496-12 8.8.3.1).
const (
	sampleIsNonSync      = 0x00010000
	isDependedOnShift    = 22
	isDependedOnMask     = 0x3
	notDependedOn uint32 = 2
)

// Info describes the indexed video track.
type Info struct {
	Codec      ports.Codec
	TrackID    uint32
	Timescale  uint32
	Width      uint16
	Height     uint16
	Fragmented bool

	// LengthPrefixed is set when samples carry 4-byte NAL unit lengths
	// rather than Annex B start codes.
	LengthPrefixed bool

	// PresentationTimes holds each sample's composition time in track
	// timescale units, in decode order. Decoders emit frames sorted by
	// these values.
	PresentationTimes []int64
}

// track accumulates the per-sample tables while walking a file.
type track struct {
	offsets   []uint64
	sizes     []uint64
	keyframes []uint64
	pts       []int64
	nonRef    uint64
}

func (t *track) add(offset, size uint64, sync bool, pts int64) {
	if sync {
		t.keyframes = append(t.keyframes, uint64(len(t.offsets)))
	}
	t.offsets = append(t.offsets, offset)
	t.sizes = append(t.sizes, size)
	t.pts = append(t.pts, pts)
}

// BuildFromFile opens path and indexes its first video track.
func BuildFromFile(path string, log ports.Logger) (*videoindex.Index, Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Info{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return Build(f, log)
}

// Build indexes the first video track of the MP4 read from r. Both
// progressive and fragmented files are supported. A nil log discards
// messages.
func Build(r io.ReadSeeker, log ports.Logger) (*videoindex.Index, Info, error) {
	if log == nil {
		log = logger.NewNoop()
	}

	f, err := decode(r)
	if err != nil {
		return nil, Info{}, err
	}
	vse, info, t, err := scan(f)
	if err != nil {
		return nil, Info{}, err
	}

	if len(t.offsets) > 0 && (len(t.keyframes) == 0 || t.keyframes[0] != 0) {
		log.Warn("First sample is not a keyframe; treating it as one")
		t.keyframes = append([]uint64{0}, t.keyframes...)
	}

	idx := videoindex.NewWithNonRef(uint64(len(t.offsets)), t.nonRef, codecMetadata(vse, info.Codec), t.offsets, t.sizes, t.keyframes)
	log.Debug("Indexed %d samples, %d keyframes (%s)", idx.Frames(), idx.NumKeyframes(), info.Codec)
	return idx, info, nil
}

// Probe reads the track description and sample timing of the first video
// track without building an index.
func Probe(r io.ReadSeeker) (Info, error) {
	f, err := decode(r)
	if err != nil {
		return Info{}, err
	}
	_, info, _, err := scan(f)
	return info, err
}

// scan locates the video track and walks its sample tables.
func scan(f *mp4.File) (*mp4.VisualSampleEntryBox, Info, *track, error) {
	trak, vse, info, err := videoTrackInfo(f)
	if err != nil {
		return nil, Info{}, nil, err
	}
	var t *track
	if info.Fragmented {
		t, err = fragmentedSamples(f, initMoov(f), info.TrackID)
	} else {
		t, err = progressiveSamples(trak.Mdia.Minf.Stbl)
	}
	if err != nil {
		return nil, Info{}, nil, err
	}
	info.PresentationTimes = t.pts
	return vse, info, t, nil
}

// ProbeFile opens path and probes it.
func ProbeFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return Probe(f)
}

// decode parses the box structure; mdat payloads are not loaded.
func decode(r io.ReadSeeker) (*mp4.File, error) {
	f, err := mp4.DecodeFile(r, mp4.WithDecodeMode(mp4.DecModeLazyMdat))
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}
	return f, nil
}

func initMoov(f *mp4.File) *mp4.MoovBox {
	if f.IsFragmented() && f.Init != nil {
		return f.Init.Moov
	}
	return f.Moov
}

func videoTrackInfo(f *mp4.File) (*mp4.TrakBox, *mp4.VisualSampleEntryBox, Info, error) {
	trak := findVideoTrack(initMoov(f))
	if trak == nil {
		return nil, nil, Info{}, ErrNoVideoTrack
	}

	vse, fourcc := sampleEntry(trak)
	codec := codecFromEntry(fourcc)
	if vse == nil || codec == ports.CodecUnknown {
		return nil, nil, Info{}, fmt.Errorf("%w: sample entry %q", ErrUnsupportedCodec, fourcc)
	}

	info := Info{
		Codec:          codec,
		TrackID:        trak.Tkhd.TrackID,
		Width:          vse.Width,
		Height:         vse.Height,
		Fragmented:     f.IsFragmented(),
		LengthPrefixed: codec == ports.CodecH264 || codec == ports.CodecHEVC,
	}
	if trak.Mdia.Mdhd != nil {
		info.Timescale = trak.Mdia.Mdhd.Timescale
	}
	return trak, vse, info, nil
}

// progressiveSamples walks stsz/stsc/stco|co64/stss/stts/ctts. Sample
// numbers in the tables are 1-based; a missing stss marks every sample as
// sync.
func progressiveSamples(stbl *mp4.StblBox) (*track, error) {
	if stbl == nil || stbl.Stsz == nil || stbl.Stsc == nil || (stbl.Stco == nil && stbl.Co64 == nil) {
		return nil, ErrNoSampleTable
	}

	n := int(stbl.Stsz.SampleNumber)
	sync := make(map[uint32]bool)
	if stbl.Stss != nil {
		for _, nr := range stbl.Stss.SampleNumber {
			sync[nr] = true
		}
	}

	t := &track{
		offsets: make([]uint64, 0, n),
		sizes:   make([]uint64, 0, n),
		pts:     make([]int64, 0, n),
	}
	dts := decodeTimes(stbl.Stts, n)
	prevChunk := -1
	var pos uint64
	for nr := 1; nr <= n; nr++ {
		chunkNr, _, err := stbl.Stsc.ChunkNrFromSampleNr(nr)
		if err != nil {
			return nil, fmt.Errorf("sample %d: chunk lookup: %w", nr, err)
		}
		if chunkNr != prevChunk {
			pos, err = chunkOffset(stbl, chunkNr)
			if err != nil {
				return nil, fmt.Errorf("sample %d: %w", nr, err)
			}
			prevChunk = chunkNr
		}
		size := uint64(stbl.Stsz.GetSampleSize(nr))
		t.add(pos, size, stbl.Stss == nil || sync[uint32(nr)], dts[nr-1]+compositionOffset(stbl.Ctts, nr))
		pos += size
	}
	return t, nil
}

// decodeTimes expands stts into n decode times. Samples past the table, or
// all of them when it is missing, advance by one tick.
func decodeTimes(stts *mp4.SttsBox, n int) []int64 {
	out := make([]int64, 0, n)
	var t int64
	if stts != nil {
		for i, count := range stts.SampleCount {
			delta := int64(stts.SampleTimeDelta[i])
			for c := uint32(0); c < count && len(out) < n; c++ {
				out = append(out, t)
				t += delta
			}
		}
	}
	for len(out) < n {
		out = append(out, t)
		t++
	}
	return out
}

func compositionOffset(ctts *mp4.CttsBox, nr int) int64 {
	if ctts == nil || len(ctts.SampleOffset) == 0 || uint32(nr) > ctts.EndSampleNr[len(ctts.EndSampleNr)-1] {
		return 0
	}
	return int64(ctts.GetCompositionTimeOffset(uint32(nr)))
}

func chunkOffset(stbl *mp4.StblBox, chunkNr int) (uint64, error) {
	if stbl.Stco != nil {
		off, err := stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return 0, fmt.Errorf("chunk offset: %w", err)
		}
		return off, nil
	}
	if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
		return 0, fmt.Errorf("chunk %d out of range", chunkNr)
	}
	return stbl.Co64.ChunkOffset[chunkNr-1], nil
}

// fragmentedSamples walks every moof/traf/trun of trackID in file order.
func fragmentedSamples(f *mp4.File, moov *mp4.MoovBox, trackID uint32) (*track, error) {
	var trex *mp4.TrexBox
	if moov.Mvex != nil {
		for _, tx := range moov.Mvex.Trexs {
			if tx.TrackID == trackID {
				trex = tx
				break
			}
		}
	}
	if trex == nil {
		trex = &mp4.TrexBox{TrackID: trackID}
	}

	t := &track{}
	var dts int64
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			moof := frag.Moof
			if moof == nil {
				continue
			}
			// Data of a traf without an explicit base follows the previous
			// traf's data, or starts at the moof for the first one.
			prevEnd := moof.StartPos
			for _, traf := range moof.Trafs {
				if traf.Tfhd == nil {
					continue
				}
				tfhd := traf.Tfhd
				base := prevEnd
				switch {
				case tfhd.HasBaseDataOffset():
					base = tfhd.BaseDataOffset
				case tfhd.DefaultBaseIfMoof():
					base = moof.StartPos
				}

				if traf.Tfdt != nil && tfhd.TrackID == trackID {
					dts = int64(traf.Tfdt.BaseMediaDecodeTime())
				}

				pos := base
				for _, trun := range traf.Truns {
					trun.AddSampleDefaultValues(tfhd, trex)
					if trun.HasDataOffset() {
						pos = uint64(int64(base) + int64(trun.DataOffset))
					}
					for _, s := range trun.Samples {
						if tfhd.TrackID == trackID {
							t.add(pos, uint64(s.Size), s.Flags&sampleIsNonSync == 0, dts+int64(s.CompositionTimeOffset))
							if (s.Flags>>isDependedOnShift)&isDependedOnMask == notDependedOn {
								t.nonRef++
							}
							dts += int64(s.Dur)
						}
						pos += uint64(s.Size)
					}
				}
				prevEnd = pos
			}
		}
	}
	return t, nil
}
