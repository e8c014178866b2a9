// Package mp4index builds videoindex.Index values from MP4 files and reads
// the indexed samples back.
package mp4index

import (
	"errors"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/hwang/pkg/ports"
)

var (
	// ErrNoVideoTrack is returned when the file has no video track.
	ErrNoVideoTrack = errors.New("mp4index: no video track found")

	// ErrNoSampleTable is returned when a progressive video track lacks the
	// boxes needed to locate its samples.
	ErrNoSampleTable = errors.New("mp4index: no sample table found")

	// ErrUnsupportedCodec is returned for sample entries other than
	// avc1/avc3, hvc1/hev1 and av01.
	ErrUnsupportedCodec = errors.New("mp4index: unsupported codec")
)

// codecFromEntry maps a sample entry four-cc to a codec.
func codecFromEntry(fourcc string) ports.Codec {
	switch fourcc {
	case "avc1", "avc3":
		return ports.CodecH264
	case "hvc1", "hev1":
		return ports.CodecHEVC
	case "av01":
		return ports.CodecAV1
	default:
		return ports.CodecUnknown
	}
}

// findVideoTrack returns the first track with a "vide" handler.
func findVideoTrack(moov *mp4.MoovBox) *mp4.TrakBox {
	if moov == nil {
		return nil
	}
	for _, trak := range moov.Traks {
		if trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide" {
			return trak
		}
	}
	return nil
}

// sampleEntry returns the first visual sample entry of trak and its four-cc.
func sampleEntry(trak *mp4.TrakBox) (*mp4.VisualSampleEntryBox, string) {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return nil, ""
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		if vse, ok := child.(*mp4.VisualSampleEntryBox); ok {
			return vse, child.Type()
		}
	}
	return nil, ""
}

// codecMetadata returns the configuration bytes a decoder needs ahead of the
// first sample: Annex B parameter sets for H.264 and HEVC, the configOBUs
// for AV1.
func codecMetadata(vse *mp4.VisualSampleEntryBox, codec ports.Codec) []byte {
	var meta []byte
	startCode := []byte{0, 0, 0, 1}

	switch codec {
	case ports.CodecH264:
		if vse.AvcC == nil {
			return nil
		}
		for _, sps := range vse.AvcC.SPSnalus {
			meta = append(meta, startCode...)
			meta = append(meta, sps...)
		}
		for _, pps := range vse.AvcC.PPSnalus {
			meta = append(meta, startCode...)
			meta = append(meta, pps...)
		}
	case ports.CodecHEVC:
		for _, child := range vse.Children {
			hvcC, ok := child.(*mp4.HvcCBox)
			if !ok {
				continue
			}
			for _, arr := range hvcC.DecConfRec.NaluArrays {
				for _, nalu := range arr.Nalus {
					meta = append(meta, startCode...)
					meta = append(meta, nalu...)
				}
			}
		}
	case ports.CodecAV1:
		for _, child := range vse.Children {
			if av1C, ok := child.(*mp4.Av1CBox); ok {
				meta = append(meta, av1C.CodecConfRec.ConfigOBUs...)
			}
		}
	}
	return meta
}
