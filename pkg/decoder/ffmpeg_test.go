package decoder

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/user/hwang/pkg/adapters/mp4index"
	"github.com/user/hwang/pkg/player"
	"github.com/user/hwang/pkg/ports"
)

// fakeRun writes frames PNGs into the output directory named by the last
// argument and records what it was given.
type fakeRun struct {
	frames int
	err    error
	calls  int
	args   []string
	stdin  []byte
}

func (f *fakeRun) run(_ context.Context, _ string, args []string, stdin []byte) error {
	f.calls++
	f.args = args
	f.stdin = bytes.Clone(stdin)
	if f.err != nil {
		return f.err
	}
	dir := filepath.Dir(args[len(args)-1])
	for i := 1; i <= f.frames; i++ {
		img := image.NewGray(image.Rect(0, 0, 2, 2))
		img.SetGray(0, 0, color.Gray{Y: uint8(i)})
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return err
		}
		name := filepath.Join(dir, fmt.Sprintf("frame-%06d.png", i))
		if err := os.WriteFile(name, buf.Bytes(), 0644); err != nil {
			return err
		}
	}
	return nil
}

func newTestDecoder(fr *fakeRun, hwArgs ...string) *ffmpegDecoder {
	d := newFFmpegDecoder(Software, "/usr/bin/ffmpeg", hwArgs, BackendConfig{NumDevices: 1})
	d.run = fr.run
	return d
}

func TestFFmpegDecoderQueuesFramesInOrder(t *testing.T) {
	fr := &fakeRun{frames: 3}
	d := newTestDecoder(fr)
	defer d.Close()

	err := d.Configure(ports.StreamConfig{Codec: ports.CodecH264, Metadata: []byte{0, 0, 0, 1, 0x67}})
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	for _, s := range [][]byte{{1, 2}, {3}, {4, 5, 6}} {
		if err := d.Submit(s); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	if _, err := d.Retrieve(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Retrieve() before Flush error = %v, want ErrNoFrame", err)
	}
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	wantStdin := []byte{0, 0, 0, 1, 0x67, 1, 2, 3, 4, 5, 6}
	if !bytes.Equal(fr.stdin, wantStdin) {
		t.Errorf("stdin = %v, want %v", fr.stdin, wantStdin)
	}

	for i := 1; i <= 3; i++ {
		img, err := d.Retrieve()
		if err != nil {
			t.Fatalf("Retrieve() %d error = %v", i, err)
		}
		if got := color.GrayModel.Convert(img.At(0, 0)).(color.Gray).Y; got != uint8(i) {
			t.Errorf("frame %d marker = %d, want %d", i, got, i)
		}
	}
	if _, err := d.Retrieve(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Retrieve() after drain error = %v, want ErrNoFrame", err)
	}
}

func TestFFmpegDecoderFlushWithoutSamples(t *testing.T) {
	fr := &fakeRun{frames: 1}
	d := newTestDecoder(fr)
	if err := d.Configure(ports.StreamConfig{Codec: ports.CodecAV1}); err != nil {
		t.Fatal(err)
	}
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if fr.calls != 0 {
		t.Errorf("ffmpeg ran %d times, want 0", fr.calls)
	}
}

func TestFFmpegDecoderNotConfigured(t *testing.T) {
	d := newTestDecoder(&fakeRun{})
	if err := d.Submit([]byte{1}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Submit() error = %v, want ErrNotConfigured", err)
	}
	if err := d.Flush(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Flush() error = %v, want ErrNotConfigured", err)
	}
}

func TestFFmpegDecoderUnknownCodec(t *testing.T) {
	d := newTestDecoder(&fakeRun{})
	if err := d.Configure(ports.StreamConfig{Codec: ports.CodecUnknown}); !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("Configure() error = %v, want ErrDecodeFailed", err)
	}
}

func TestFFmpegDecoderRunFailure(t *testing.T) {
	fr := &fakeRun{err: errors.New("exit status 1")}
	d := newTestDecoder(fr)
	if err := d.Configure(ports.StreamConfig{Codec: ports.CodecHEVC}); err != nil {
		t.Fatal(err)
	}
	if err := d.Submit([]byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := d.Flush(); !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("Flush() error = %v, want ErrDecodeFailed", err)
	}
}

func TestFFmpegDecoderFrameCountMismatch(t *testing.T) {
	tests := []struct {
		name    string
		frames  int
		samples int
	}{
		{"dropped", 2, 3},
		{"duplicated", 4, 3},
		{"none", 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDecoder(&fakeRun{frames: tt.frames})
			if err := d.Configure(ports.StreamConfig{Codec: ports.CodecH264}); err != nil {
				t.Fatal(err)
			}
			for i := 0; i < tt.samples; i++ {
				d.Submit([]byte{byte(i)})
			}
			if err := d.Flush(); !errors.Is(err, ErrDecodeFailed) {
				t.Errorf("Flush() error = %v, want ErrDecodeFailed", err)
			}
			if _, err := d.Retrieve(); !errors.Is(err, ErrNoFrame) {
				t.Errorf("Retrieve() after failed Flush error = %v, want ErrNoFrame", err)
			}
		})
	}
}

func TestFFmpegDecoderConfigureResets(t *testing.T) {
	fr := &fakeRun{frames: 1}
	d := newTestDecoder(fr)
	if err := d.Configure(ports.StreamConfig{Codec: ports.CodecH264}); err != nil {
		t.Fatal(err)
	}
	d.Submit([]byte{1})
	d.Flush()

	if err := d.Configure(ports.StreamConfig{Codec: ports.CodecH264}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Retrieve(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Retrieve() after reconfigure error = %v, want ErrNoFrame", err)
	}
}

func TestFFmpegDecoderCloseReleasesOnce(t *testing.T) {
	released := 0
	d := newTestDecoder(&fakeRun{})
	d.release = func() error {
		released++
		return nil
	}

	for i := 0; i < 3; i++ {
		if err := d.Close(); err != nil {
			t.Fatalf("Close() %d error = %v", i, err)
		}
	}
	if released != 1 {
		t.Errorf("release called %d times, want 1", released)
	}
	if err := d.Configure(ports.StreamConfig{Codec: ports.CodecH264}); !errors.Is(err, ErrClosed) {
		t.Errorf("Configure() after Close error = %v, want ErrClosed", err)
	}
	if _, err := d.Retrieve(); !errors.Is(err, ErrClosed) {
		t.Errorf("Retrieve() after Close error = %v, want ErrClosed", err)
	}
}

func TestFFmpegDecoderArgs(t *testing.T) {
	d := newTestDecoder(&fakeRun{}, "-hwaccel", "cuda", "-hwaccel_device", "1")
	if err := d.Configure(ports.StreamConfig{Codec: ports.CodecAV1}); err != nil {
		t.Fatal(err)
	}
	got := strings.Join(d.args("/tmp/out"), " ")
	want := "-hide_banner -loglevel error -nostdin -hwaccel cuda -hwaccel_device 1 -threads 1 -f obu -i pipe:0 -vsync passthrough -f image2 " +
		filepath.Join("/tmp/out", "frame-%06d.png")
	if got != want {
		t.Errorf("args =\n%s\nwant\n%s", got, want)
	}
}

func TestFFmpegNotFoundCustomPath(t *testing.T) {
	_, err := findFFmpeg("/nonexistent/ffmpeg")
	if !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("findFFmpeg() error = %v, want ErrFFmpegNotFound", err)
	}
	if IsFFmpegAvailable("/nonexistent/ffmpeg") {
		t.Error("IsFFmpegAvailable() = true for missing path")
	}
}

// meanLuma averages the gray level of img.
func meanLuma(img image.Image) float64 {
	b := img.Bounds()
	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum += float64(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
		}
	}
	return sum / float64(b.Dx()*b.Dy())
}

func TestFFmpegCandidates(t *testing.T) {
	if got := ffmpegCandidates("/opt/ffmpeg/bin/ffmpeg"); !slices.Equal(got, []string{"/opt/ffmpeg/bin/ffmpeg"}) {
		t.Errorf("ffmpegCandidates(custom) = %v", got)
	}
	got := ffmpegCandidates("")
	if len(got) == 0 || got[0] != "ffmpeg" {
		t.Errorf("ffmpegCandidates(\"\") = %v, want PATH lookup first", got)
	}
}

func TestSoftwareDecoderDecodesBFrames(t *testing.T) {
	path, err := findFFmpeg("")
	if err != nil {
		t.Skip("ffmpeg not available")
	}

	// Brightness rises with display order, so each decoded frame shows
	// which sample it came from.
	clip := filepath.Join(t.TempDir(), "ramp.mp4")
	cmd := exec.Command(path, "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "color=c=black:s=64x48:r=10:d=1",
		"-vf", "format=yuv420p,geq=lum=40+15*N:cb=128:cr=128",
		"-c:v", "libx264", "-bf", "2", "-x264-params", "b-adapt=0:scenecut=0",
		"-g", "10", "-pix_fmt", "yuv420p", clip)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("cannot encode test clip: %v: %s", err, out)
	}

	idx, info, err := mp4index.BuildFromFile(clip, nil)
	if err != nil {
		t.Fatalf("BuildFromFile() error = %v", err)
	}
	if slices.IsSorted(info.PresentationTimes) {
		t.Skip("encoder produced no reordered frames")
	}

	f, err := os.Open(clip)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	dec, err := newSoftwareDecoder(BackendConfig{Device: CPUDevice, NumDevices: 1})
	if err != nil {
		t.Fatalf("newSoftwareDecoder() error = %v", err)
	}
	defer dec.Close()

	rows := make([]uint64, idx.Frames())
	for i := range rows {
		rows[i] = uint64(i)
	}
	p := player.New(idx, mp4index.NewSampleReader(f, idx, info), dec, player.Options{
		Codec:             info.Codec,
		PresentationTimes: info.PresentationTimes,
	})
	frames, err := p.Frames(context.Background(), rows)
	if err != nil {
		t.Fatalf("Frames() error = %v", err)
	}
	if len(frames) != len(rows) {
		t.Fatalf("decoded %d frames, want %d", len(frames), len(rows))
	}

	byDisplay := slices.Clone(frames)
	slices.SortStableFunc(byDisplay, func(a, b ports.Frame) int {
		return cmp.Compare(info.PresentationTimes[a.Number], info.PresentationTimes[b.Number])
	})
	for i, fr := range byDisplay {
		if b := fr.Image.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
			t.Errorf("frame %d size = %v, want 64x48", fr.Number, b)
		}
		if i > 0 && meanLuma(fr.Image) <= meanLuma(byDisplay[i-1].Image) {
			t.Errorf("frame %d (luma %.1f) is not brighter than frame %d (luma %.1f) shown before it",
				fr.Number, meanLuma(fr.Image), byDisplay[i-1].Number, meanLuma(byDisplay[i-1].Image))
		}
	}
}
