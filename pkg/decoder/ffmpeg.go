package decoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/user/hwang/pkg/adapters/logger"
	"github.com/user/hwang/pkg/ports"
)

// ffmpegSearchPaths lists install locations tried after PATH, per GOOS.
var ffmpegSearchPaths = map[string][]string{
	"windows": {`C:\ffmpeg\bin\ffmpeg.exe`, `C:\Program Files\ffmpeg\bin\ffmpeg.exe`},
	"darwin":  {"/opt/homebrew/bin/ffmpeg", "/usr/local/bin/ffmpeg"},
	"linux":   {"/usr/bin/ffmpeg", "/usr/local/bin/ffmpeg", "/snap/bin/ffmpeg"},
}

// ffmpegCandidates returns the names to resolve, in order. A configured
// path is the only candidate.
func ffmpegCandidates(customPath string) []string {
	if customPath != "" {
		return []string{customPath}
	}
	return append([]string{"ffmpeg"}, ffmpegSearchPaths[runtime.GOOS]...)
}

// findFFmpeg resolves the first executable candidate.
func findFFmpeg(customPath string) (string, error) {
	for _, c := range ffmpegCandidates(customPath) {
		if path, err := exec.LookPath(c); err == nil {
			return path, nil
		}
	}
	if customPath != "" {
		return "", fmt.Errorf("%w: %s", ErrFFmpegNotFound, customPath)
	}
	return "", ErrFFmpegNotFound
}

// IsFFmpegAvailable reports whether an ffmpeg binary can be located.
func IsFFmpegAvailable(customPath string) bool {
	_, err := findFFmpeg(customPath)
	return err == nil
}

// demuxerFormat maps a codec to the ffmpeg elementary stream demuxer.
func demuxerFormat(c ports.Codec) (string, error) {
	switch c {
	case ports.CodecH264:
		return "h264", nil
	case ports.CodecHEVC:
		return "hevc", nil
	case ports.CodecAV1:
		return "obu", nil
	default:
		return "", fmt.Errorf("%w: codec %s", ErrDecodeFailed, c)
	}
}

// runFunc executes ffmpeg with args, feeding stdin.
type runFunc func(ctx context.Context, path string, args []string, stdin []byte) error

func runFFmpeg(ctx context.Context, path string, args []string, stdin []byte) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w\nstderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// ffmpegDecoder drives an ffmpeg process per decode pass. Hardware backends
// add hwaccel input options and own a device context released on Close.
type ffmpegDecoder struct {
	backend    Type
	ffmpegPath string
	hwArgs     []string
	threads    int
	logger     ports.Logger
	run        runFunc

	// release tears down the device context acquired at construction.
	release func() error

	cfg        ports.StreamConfig
	format     string
	configured bool
	closed     bool
	pending    bytes.Buffer
	submitted  int
	frames     []image.Image
}

func newFFmpegDecoder(backend Type, ffmpegPath string, hwArgs []string, cfg BackendConfig) *ffmpegDecoder {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNoop()
	}
	return &ffmpegDecoder{
		backend:    backend,
		ffmpegPath: ffmpegPath,
		hwArgs:     hwArgs,
		threads:    int(cfg.NumDevices),
		logger:     log,
		run:        runFFmpeg,
	}
}

func (d *ffmpegDecoder) Configure(cfg ports.StreamConfig) error {
	if d.closed {
		return ErrClosed
	}
	format, err := demuxerFormat(cfg.Codec)
	if err != nil {
		return err
	}
	d.cfg = ports.StreamConfig{Codec: cfg.Codec, Metadata: bytes.Clone(cfg.Metadata)}
	d.format = format
	d.configured = true
	d.pending.Reset()
	d.submitted = 0
	d.frames = nil
	return nil
}

func (d *ffmpegDecoder) Submit(sample []byte) error {
	if d.closed {
		return ErrClosed
	}
	if !d.configured {
		return ErrNotConfigured
	}
	d.pending.Write(sample)
	d.submitted++
	return nil
}

// args builds the ffmpeg command line writing numbered PNGs into outDir.
func (d *ffmpegDecoder) args(outDir string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	args = append(args, d.hwArgs...)
	if d.threads > 0 {
		args = append(args, "-threads", strconv.Itoa(d.threads))
	}
	args = append(args,
		"-f", d.format,
		"-i", "pipe:0",
		"-vsync", "passthrough",
		"-f", "image2",
		filepath.Join(outDir, "frame-%06d.png"),
	)
	return args
}

// Flush feeds the metadata followed by every pending sample to one ffmpeg
// run and queues the resulting frames in presentation order. It fails
// unless ffmpeg emits exactly one frame per submitted sample.
func (d *ffmpegDecoder) Flush() error {
	if d.closed {
		return ErrClosed
	}
	if !d.configured {
		return ErrNotConfigured
	}
	if d.submitted == 0 {
		return nil
	}

	outDir, err := os.MkdirTemp("", "hwang-decode-*")
	if err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	input := make([]byte, 0, len(d.cfg.Metadata)+d.pending.Len())
	input = append(input, d.cfg.Metadata...)
	input = append(input, d.pending.Bytes()...)

	d.logger.Debug("Decoding %d samples (%d bytes)", d.submitted, len(input))
	if err := d.run(context.Background(), d.ffmpegPath, d.args(outDir), input); err != nil {
		return fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	d.pending.Reset()
	submitted := d.submitted
	d.submitted = 0

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return fmt.Errorf("read output dir: %w", err)
	}
	frames := make([]image.Image, 0, submitted)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".png" {
			continue
		}
		img, err := decodePNG(filepath.Join(outDir, e.Name()))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDecodeFailed, err)
		}
		frames = append(frames, img)
	}
	// Output position k stands for the k-th sample in presentation order.
	if len(frames) != submitted {
		return fmt.Errorf("%w: %d frames for %d samples", ErrDecodeFailed, len(frames), submitted)
	}
	d.frames = append(d.frames, frames...)
	return nil
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open decoded frame: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return img, nil
}

func (d *ffmpegDecoder) Retrieve() (image.Image, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if len(d.frames) == 0 {
		return nil, ErrNoFrame
	}
	img := d.frames[0]
	d.frames[0] = nil
	d.frames = d.frames[1:]
	return img, nil
}

func (d *ffmpegDecoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.pending.Reset()
	d.frames = nil
	if d.release != nil {
		release := d.release
		d.release = nil
		if err := release(); err != nil {
			return fmt.Errorf("release %s device context: %w", d.backend, err)
		}
	}
	return nil
}

var _ ports.VideoDecoder = (*ffmpegDecoder)(nil)
