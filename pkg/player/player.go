// Package player decodes the frames requested from a video by planning
// keyframe-anchored decode passes and driving a decoder through them.
package player

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/user/hwang/pkg/adapters/logger"
	"github.com/user/hwang/pkg/ports"
	"github.com/user/hwang/pkg/videoindex"
)

// ErrMissingFrame is returned when a decode pass yields fewer frames than
// needed to reach a requested frame.
var ErrMissingFrame = errors.New("player: decoder did not produce a requested frame")

// ErrTimingMismatch is returned when the presentation times do not cover
// every indexed sample.
var ErrTimingMismatch = errors.New("player: presentation times do not match the index")

// SampleSource returns the compressed bytes of one indexed sample.
type SampleSource interface {
	ReadSample(i uint64) ([]byte, error)
}

// Options configures a Player.
type Options struct {
	// Codec of the indexed stream, passed to the decoder.
	Codec ports.Codec

	// Logger receives per-interval progress. Defaults to a no-op logger.
	Logger ports.Logger

	// AllowMissing skips requested frames the decoder did not produce
	// instead of failing.
	AllowMissing bool

	// PresentationTimes holds one composition time per indexed sample in
	// decode order. Decoders emit frames in presentation order, so output
	// frames are matched to samples by sorting each pass on these values.
	// Nil means presentation order equals decode order.
	PresentationTimes []int64
}

// Player surfaces decoded frames for arbitrary frame requests. A Player
// owns no resources; the caller closes the decoder.
type Player struct {
	index   *videoindex.Index
	source  SampleSource
	decoder ports.VideoDecoder
	opts    Options
	logger  ports.Logger
}

// New creates a player over index, reading samples from source and decoding
// with dec.
func New(index *videoindex.Index, source SampleSource, dec ports.VideoDecoder, opts Options) *Player {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}
	return &Player{
		index:   index,
		source:  source,
		decoder: dec,
		opts:    opts,
		logger:  log.WithComponent("player"),
	}
}

// Plan returns the decode plan for rows without decoding anything.
func (p *Player) Plan(rows []uint64) (videoindex.VideoIntervals, error) {
	return videoindex.SliceIntoVideoIntervals(p.index, rows)
}

// Each decodes the frames in rows and calls fn for each distinct one in
// increasing frame order. The context is checked between decode passes.
func (p *Player) Each(ctx context.Context, rows []uint64, fn func(ports.Frame) error) error {
	if pts := p.opts.PresentationTimes; pts != nil && uint64(len(pts)) != p.index.Frames() {
		return fmt.Errorf("%w: %d times for %d samples", ErrTimingMismatch, len(pts), p.index.Frames())
	}
	plan, err := p.Plan(rows)
	if err != nil {
		return err
	}
	p.logger.Info("Decoding %d frames in %d passes (%d samples)", plan.RequestedFrames(), plan.Len(), plan.DecodedFrames())

	for i, iv := range plan.SampleIndexIntervals {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.logger.Debug("Pass %d/%d: samples %d-%d, %d requested", i+1, plan.Len(), iv.Start, iv.End, len(plan.ValidFrames[i]))
		if err := p.decodeInterval(iv, plan.ValidFrames[i], fn); err != nil {
			return fmt.Errorf("interval [%d, %d]: %w", iv.Start, iv.End, err)
		}
	}
	return nil
}

// Frames decodes and returns the frames in rows, sorted by frame number
// with duplicates removed.
func (p *Player) Frames(ctx context.Context, rows []uint64) ([]ports.Frame, error) {
	var frames []ports.Frame
	err := p.Each(ctx, rows, func(f ports.Frame) error {
		frames = append(frames, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return frames, nil
}

// decodeInterval runs one decode pass from iv.Start through iv.End. Output
// frame k of the pass is the sample with the k-th smallest presentation
// time in the pass.
func (p *Player) decodeInterval(iv videoindex.Interval, valid []uint64, fn func(ports.Frame) error) error {
	cfg := ports.StreamConfig{Codec: p.opts.Codec, Metadata: p.index.MetadataBytes()}
	if err := p.decoder.Configure(cfg); err != nil {
		return fmt.Errorf("configure decoder: %w", err)
	}
	for s := iv.Start; s <= iv.End; s++ {
		data, err := p.source.ReadSample(s)
		if err != nil {
			return fmt.Errorf("read sample %d: %w", s, err)
		}
		if err := p.decoder.Submit(data); err != nil {
			return fmt.Errorf("submit sample %d: %w", s, err)
		}
	}
	if err := p.decoder.Flush(); err != nil {
		return fmt.Errorf("flush decoder: %w", err)
	}

	wanted := make(map[uint64]image.Image, len(valid))
	for _, n := range valid {
		wanted[n] = nil
	}
	found := 0
	for _, n := range p.outputOrder(iv) {
		if found == len(valid) {
			break
		}
		img, err := p.decoder.Retrieve()
		if errors.Is(err, ports.ErrNoFrame) {
			break
		}
		if err != nil {
			return fmt.Errorf("retrieve frame %d: %w", n, err)
		}
		if _, ok := wanted[n]; ok {
			wanted[n] = img
			found++
		}
	}

	if found < len(valid) {
		if !p.opts.AllowMissing {
			for _, n := range valid {
				if wanted[n] == nil {
					return fmt.Errorf("%w: frame %d", ErrMissingFrame, n)
				}
			}
		}
		p.logger.Warn("Decoder returned no frame for %d requested frames", len(valid)-found)
	}
	for _, n := range valid {
		img := wanted[n]
		if img == nil {
			continue
		}
		if err := fn(ports.Frame{Number: n, Image: img}); err != nil {
			return err
		}
	}
	return nil
}

// outputOrder lists the samples of iv in the order a decoder emits them.
func (p *Player) outputOrder(iv videoindex.Interval) []uint64 {
	order := make([]uint64, 0, iv.Len())
	for s := iv.Start; s <= iv.End; s++ {
		order = append(order, s)
	}
	if pts := p.opts.PresentationTimes; pts != nil {
		sort.SliceStable(order, func(i, j int) bool { return pts[order[i]] < pts[order[j]] })
	}
	return order
}
