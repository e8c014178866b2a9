package videoindex

import (
	"fmt"
	"slices"
)

// Interval is an inclusive range [Start, End] of sample indices to decode.
type Interval struct {
	Start uint64
	End   uint64
}

// Len returns the number of samples in the interval.
func (iv Interval) Len() uint64 { return iv.End - iv.Start + 1 }

// Contains reports whether sample i lies in the interval.
func (iv Interval) Contains(i uint64) bool { return i >= iv.Start && i <= iv.End }

// VideoIntervals is a decode plan. SampleIndexIntervals are sorted and
// separated by at least one undecoded sample; ValidFrames[i] lists, in
// increasing order, the requested frames that fall in SampleIndexIntervals[i].
// Every other frame in an interval is decoded only as a dependency.
type VideoIntervals struct {
	SampleIndexIntervals []Interval
	ValidFrames          [][]uint64
}

// Len returns the number of intervals.
func (v VideoIntervals) Len() int { return len(v.SampleIndexIntervals) }

// DecodedFrames returns the total number of samples the plan decodes.
func (v VideoIntervals) DecodedFrames() uint64 {
	var n uint64
	for _, iv := range v.SampleIndexIntervals {
		n += iv.Len()
	}
	return n
}

// RequestedFrames returns the number of distinct frames the plan surfaces.
func (v VideoIntervals) RequestedFrames() int {
	n := 0
	for _, f := range v.ValidFrames {
		n += len(f)
	}
	return n
}

// SliceIntoVideoIntervals computes the minimal keyframe-anchored decode
// plan covering rows. Rows may be unsorted and contain duplicates; any row
// outside [0, index.Frames()) fails with ErrInvalidFrameIndex.
//
// Consecutive requested frames share an interval when the next frame's
// covering keyframe falls inside, or immediately after, the interval being
// built, so a decode pass is never restarted while it can simply continue.
//
// The function does not modify index and may be called concurrently.
func SliceIntoVideoIntervals(index *Index, rows []uint64) (VideoIntervals, error) {
	out := VideoIntervals{
		SampleIndexIntervals: []Interval{},
		ValidFrames:          [][]uint64{},
	}
	for _, r := range rows {
		if r >= index.numFrames {
			return VideoIntervals{}, fmt.Errorf("%w: frame %d outside [0, %d)", ErrInvalidFrameIndex, r, index.numFrames)
		}
	}
	if len(rows) == 0 {
		return out, nil
	}

	sorted := slices.Clone(rows)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	cur := Interval{Start: index.coveringKeyframe(sorted[0]), End: sorted[0]}
	valid := []uint64{sorted[0]}

	for _, r := range sorted[1:] {
		k := index.coveringKeyframe(r)
		if k <= cur.End+1 {
			cur.End = r
			valid = append(valid, r)
			continue
		}
		out.SampleIndexIntervals = append(out.SampleIndexIntervals, cur)
		out.ValidFrames = append(out.ValidFrames, valid)
		cur = Interval{Start: k, End: r}
		valid = []uint64{r}
	}
	out.SampleIndexIntervals = append(out.SampleIndexIntervals, cur)
	out.ValidFrames = append(out.ValidFrames, valid)

	return out, nil
}
