package player

import (
	"context"
	"errors"
	"image"
	"reflect"
	"sort"
	"testing"

	"github.com/user/hwang/pkg/mocks"
	"github.com/user/hwang/pkg/ports"
	"github.com/user/hwang/pkg/videoindex"
)

// markerSource returns a one-byte sample holding the frame number.
type markerSource struct {
	reads []uint64
	err   error
}

func (s *markerSource) ReadSample(i uint64) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.reads = append(s.reads, i)
	return []byte{byte(i)}, nil
}

// lossyDecoder yields at most limit frames per pass.
type lossyDecoder struct {
	*mocks.Decoder
	limit int
	got   int
}

func (d *lossyDecoder) Configure(cfg ports.StreamConfig) error {
	d.got = 0
	return d.Decoder.Configure(cfg)
}

func (d *lossyDecoder) Retrieve() (image.Image, error) {
	if d.got >= d.limit {
		return nil, ports.ErrNoFrame
	}
	d.got++
	return d.Decoder.Retrieve()
}

// reorderDecoder emits each pass in presentation order, like a decoder
// handling B-frames. Samples carry their frame number as the marker byte.
type reorderDecoder struct {
	*mocks.Decoder
	pts []int64
	out []image.Image
}

func (d *reorderDecoder) Flush() error {
	if err := d.Decoder.Flush(); err != nil {
		return err
	}
	d.out = nil
	for {
		img, err := d.Decoder.Retrieve()
		if err != nil {
			break
		}
		d.out = append(d.out, img)
	}
	sort.SliceStable(d.out, func(i, j int) bool {
		return d.pts[mocks.Marker(d.out[i])] < d.pts[mocks.Marker(d.out[j])]
	})
	return nil
}

func (d *reorderDecoder) Retrieve() (image.Image, error) {
	if len(d.out) == 0 {
		return nil, ports.ErrNoFrame
	}
	img := d.out[0]
	d.out = d.out[1:]
	return img, nil
}

// bFramePTS is an I P B B pattern: samples 1 and 5 are shown after the two
// samples that follow them.
var bFramePTS = []int64{0, 3, 1, 2, 4, 7, 5, 6, 8, 9}

func newTestIndex() *videoindex.Index {
	offsets := make([]uint64, 10)
	sizes := make([]uint64, 10)
	for i := range offsets {
		offsets[i] = uint64(i)
		sizes[i] = 1
	}
	return videoindex.New(10, []byte{0xaa, 0xbb}, offsets, sizes, []uint64{0, 4, 8})
}

func frameNumbers(frames []ports.Frame) []uint64 {
	nums := make([]uint64, len(frames))
	for i, f := range frames {
		nums[i] = f.Number
	}
	return nums
}

func TestPlayerFrames(t *testing.T) {
	dec := &mocks.Decoder{}
	src := &markerSource{}
	p := New(newTestIndex(), src, dec, Options{Codec: ports.CodecAV1})

	frames, err := p.Frames(context.Background(), []uint64{5, 1, 1, 7})
	if err != nil {
		t.Fatalf("Frames() error = %v", err)
	}

	if got, want := frameNumbers(frames), []uint64{1, 5, 7}; !reflect.DeepEqual(got, want) {
		t.Errorf("frame numbers = %v, want %v", got, want)
	}
	for _, f := range frames {
		if m := mocks.Marker(f.Image); uint64(m) != f.Number {
			t.Errorf("frame %d carries image of sample %d", f.Number, m)
		}
	}

	// Two passes: [0, 1] and [4, 7].
	if got, want := src.reads, []uint64{0, 1, 4, 5, 6, 7}; !reflect.DeepEqual(got, want) {
		t.Errorf("samples read = %v, want %v", got, want)
	}
	if len(dec.Configs) != 2 || dec.Flushes != 2 {
		t.Fatalf("configures = %d, flushes = %d, want 2 and 2", len(dec.Configs), dec.Flushes)
	}
	for _, cfg := range dec.Configs {
		if cfg.Codec != ports.CodecAV1 || !reflect.DeepEqual(cfg.Metadata, []byte{0xaa, 0xbb}) {
			t.Errorf("config = %+v", cfg)
		}
	}
	if dec.Closes != 0 {
		t.Error("player closed the caller's decoder")
	}
}

func TestPlayerEmptyRequest(t *testing.T) {
	dec := &mocks.Decoder{}
	p := New(newTestIndex(), &markerSource{}, dec, Options{})

	frames, err := p.Frames(context.Background(), nil)
	if err != nil {
		t.Fatalf("Frames() error = %v", err)
	}
	if len(frames) != 0 || len(dec.Configs) != 0 {
		t.Errorf("frames = %d, configures = %d, want 0 and 0", len(frames), len(dec.Configs))
	}
}

func TestPlayerInvalidRow(t *testing.T) {
	dec := &mocks.Decoder{}
	p := New(newTestIndex(), &markerSource{}, dec, Options{})

	_, err := p.Frames(context.Background(), []uint64{3, 10})
	if !errors.Is(err, videoindex.ErrInvalidFrameIndex) {
		t.Errorf("Frames() error = %v, want ErrInvalidFrameIndex", err)
	}
	if len(dec.Configs) != 0 {
		t.Error("decoder used despite invalid request")
	}
}

func TestPlayerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dec := &mocks.Decoder{}
	p := New(newTestIndex(), &markerSource{}, dec, Options{})
	if _, err := p.Frames(ctx, []uint64{1}); !errors.Is(err, context.Canceled) {
		t.Errorf("Frames() error = %v, want context.Canceled", err)
	}
}

func TestPlayerMissingFrame(t *testing.T) {
	dec := &lossyDecoder{Decoder: &mocks.Decoder{}, limit: 2}
	p := New(newTestIndex(), &markerSource{}, dec, Options{})

	_, err := p.Frames(context.Background(), []uint64{1, 6})
	if !errors.Is(err, ErrMissingFrame) {
		t.Fatalf("Frames() error = %v, want ErrMissingFrame", err)
	}

	log := &mocks.Logger{}
	dec = &lossyDecoder{Decoder: &mocks.Decoder{}, limit: 2}
	p = New(newTestIndex(), &markerSource{}, dec, Options{AllowMissing: true, Logger: log})
	frames, err := p.Frames(context.Background(), []uint64{1, 6})
	if err != nil {
		t.Fatalf("Frames() with AllowMissing error = %v", err)
	}
	if got, want := frameNumbers(frames), []uint64{1}; !reflect.DeepEqual(got, want) {
		t.Errorf("frame numbers = %v, want %v", got, want)
	}
	if len(log.Entries(ports.LevelWarn)) != 1 {
		t.Errorf("warnings = %v, want one", log.Entries(ports.LevelWarn))
	}
}

func TestPlayerPropagatesErrors(t *testing.T) {
	submitErr := errors.New("device lost")
	readErr := errors.New("short read")

	tests := []struct {
		name string
		dec  *mocks.Decoder
		src  *markerSource
		want error
	}{
		{"submit", &mocks.Decoder{SubmitFunc: func([]byte) error { return submitErr }}, &markerSource{}, submitErr},
		{"flush", &mocks.Decoder{FlushFunc: func() error { return submitErr }}, &markerSource{}, submitErr},
		{"configure", &mocks.Decoder{ConfigureFunc: func(ports.StreamConfig) error { return submitErr }}, &markerSource{}, submitErr},
		{"read", &mocks.Decoder{}, &markerSource{err: readErr}, readErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(newTestIndex(), tt.src, tt.dec, Options{})
			if _, err := p.Frames(context.Background(), []uint64{2}); !errors.Is(err, tt.want) {
				t.Errorf("Frames() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPlayerEachStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	dec := &mocks.Decoder{}
	p := New(newTestIndex(), &markerSource{}, dec, Options{})

	calls := 0
	err := p.Each(context.Background(), []uint64{1, 2, 9}, func(ports.Frame) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("Each() error = %v, want %v", err, stop)
	}
	if calls != 1 || len(dec.Configs) != 1 {
		t.Errorf("calls = %d, configures = %d, want 1 and 1", calls, len(dec.Configs))
	}
}

func TestPlayerPresentationOrder(t *testing.T) {
	tests := []struct {
		name string
		rows []uint64
	}{
		{"reordered pair", []uint64{2}},
		{"anchor after b-frames", []uint64{1}},
		{"across passes", []uint64{1, 2, 3, 6, 7}},
		{"whole stream", []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := &reorderDecoder{Decoder: &mocks.Decoder{}, pts: bFramePTS}
			p := New(newTestIndex(), &markerSource{}, dec, Options{PresentationTimes: bFramePTS})

			frames, err := p.Frames(context.Background(), tt.rows)
			if err != nil {
				t.Fatalf("Frames() error = %v", err)
			}
			if got := frameNumbers(frames); !reflect.DeepEqual(got, tt.rows) {
				t.Errorf("frame numbers = %v, want %v", got, tt.rows)
			}
			for _, f := range frames {
				if m := mocks.Marker(f.Image); uint64(m) != f.Number {
					t.Errorf("frame %d carries image of sample %d", f.Number, m)
				}
			}
		})
	}
}

func TestPlayerTimingMismatch(t *testing.T) {
	dec := &mocks.Decoder{}
	p := New(newTestIndex(), &markerSource{}, dec, Options{PresentationTimes: []int64{0, 1, 2}})

	if _, err := p.Frames(context.Background(), []uint64{1}); !errors.Is(err, ErrTimingMismatch) {
		t.Errorf("Frames() error = %v, want ErrTimingMismatch", err)
	}
	if len(dec.Configs) != 0 {
		t.Error("decoder used despite mismatched timing")
	}
}
