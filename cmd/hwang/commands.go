package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"gopkg.in/yaml.v3"

	"github.com/user/hwang/pkg/adapters/framesink"
	"github.com/user/hwang/pkg/adapters/ggrenderer"
	"github.com/user/hwang/pkg/adapters/mp4index"
	"github.com/user/hwang/pkg/decoder"
	"github.com/user/hwang/pkg/player"
	"github.com/user/hwang/pkg/ports"
	"github.com/user/hwang/pkg/summarizer"
	"github.com/user/hwang/pkg/videoindex"
)

// IndexCmd builds and saves the sidecar index.
type IndexCmd struct {
	Video string `arg:"" type:"existingfile" help:"MP4 file to index."`
	Force bool   `short:"f" help:"Rebuild even when a valid sidecar exists."`
}

// InspectCmd prints index statistics.
type InspectCmd struct {
	Video  string `arg:"" type:"existingfile" help:"MP4 file to inspect."`
	Format string `default:"text" enum:"text,yaml" help:"Output format (text or yaml)."`
}

// SliceCmd prints the decode intervals for a set of frames.
type SliceCmd struct {
	Video  string   `arg:"" type:"existingfile" help:"MP4 file to plan against."`
	Frames []string `arg:"" help:"Frames to decode: N, A-B or A-B/S, comma separated."`
	Format string   `default:"text" enum:"text,yaml" help:"Output format (text or yaml)."`
}

// ExtractCmd decodes frames and writes them as images.
type ExtractCmd struct {
	Video   string   `arg:"" type:"existingfile" help:"MP4 file to decode."`
	Frames  []string `arg:"" help:"Frames to decode: N, A-B or A-B/S, comma separated."`
	Output  string   `short:"o" default:"" help:"Output directory (default: ./frames)."`
	Decoder string   `short:"d" help:"Decoder backend (nvidia, intel or software); overrides the config file."`

	ContactSheet bool `help:"Also write a contact sheet of all decoded frames."`
	Summary      bool `help:"Also write summary.md describing the run."`
	ThumbWidth   *int `help:"Downscale frames wider than this many pixels."`
}

// DecodersCmd lists the supported decoder backends.
type DecodersCmd struct{}

// VersionCmd shows version information.
type VersionCmd struct{}

// Run executes the index command.
func (cmd *IndexCmd) Run(g *Globals) error {
	e, err := g.setup()
	if err != nil {
		return err
	}
	idx, info, err := e.loadIndex(cmd.Video, cmd.Force)
	if err != nil {
		return err
	}
	e.log.Info("Indexed %d samples, %d keyframes (%s)", idx.Frames(), idx.NumKeyframes(), info.Codec)
	e.log.Info("Saved index to %s", e.store.Path(cmd.Video))
	return nil
}

// indexReport is the inspect output.
type indexReport struct {
	Video           string  `yaml:"video"`
	Codec           string  `yaml:"codec"`
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	Fragmented      bool    `yaml:"fragmented"`
	Frames          uint64  `yaml:"frames"`
	Keyframes       int     `yaml:"keyframes"`
	NonRefFrames    uint64  `yaml:"non_ref_frames"`
	MetadataBytes   int     `yaml:"metadata_bytes"`
	MaxGOP          uint64  `yaml:"max_gop"`
	MeanGOP         float64 `yaml:"mean_gop"`
	TotalSampleSize uint64  `yaml:"total_sample_bytes"`
}

// gopStats returns the longest and mean distance between keyframes.
func gopStats(idx *videoindex.Index) (maxGOP uint64, mean float64) {
	keys := idx.KeyframeIndices()
	if len(keys) == 0 {
		return 0, 0
	}
	for i, k := range keys {
		end := idx.Frames()
		if i+1 < len(keys) {
			end = keys[i+1]
		}
		maxGOP = max(maxGOP, end-k)
	}
	return maxGOP, float64(idx.Frames()-keys[0]) / float64(len(keys))
}

// Run executes the inspect command.
func (cmd *InspectCmd) Run(g *Globals) error {
	e, err := g.setup()
	if err != nil {
		return err
	}
	idx, info, err := e.loadIndex(cmd.Video, false)
	if err != nil {
		return err
	}

	v := newVideoInfo(cmd.Video, idx, info)
	maxGOP, meanGOP := gopStats(idx)
	r := indexReport{
		Video:           v.Path,
		Codec:           v.Codec,
		Width:           v.Width,
		Height:          v.Height,
		Fragmented:      v.Fragmented,
		Frames:          v.Frames,
		Keyframes:       v.Keyframes,
		NonRefFrames:    v.NonRefFrames,
		MetadataBytes:   len(idx.MetadataBytes()),
		MaxGOP:          maxGOP,
		MeanGOP:         meanGOP,
		TotalSampleSize: v.SampleBytes,
	}

	if cmd.Format == "yaml" {
		return printYAML(r)
	}
	fmt.Println(l10n.F("Video: %s", r.Video))
	fmt.Println(l10n.F("Codec: %s (%dx%d)", r.Codec, r.Width, r.Height))
	fmt.Println(l10n.F("Fragmented: %v", r.Fragmented))
	fmt.Println(l10n.F("Frames: %d", r.Frames))
	fmt.Println(l10n.F("Keyframes: %d", r.Keyframes))
	fmt.Println(l10n.F("Non-reference frames: %d", r.NonRefFrames))
	fmt.Println(l10n.F("Metadata: %d bytes", r.MetadataBytes))
	fmt.Println(l10n.F("GOP: max %d, mean %.1f", r.MaxGOP, r.MeanGOP))
	fmt.Println(l10n.F("Sample data: %s", summarizer.FormatBytes(r.TotalSampleSize)))
	return nil
}

// planReport is the slice output.
type planReport struct {
	Frames    uint64           `yaml:"frames"`
	Requested int              `yaml:"requested"`
	Decoded   uint64           `yaml:"decoded"`
	Intervals []intervalReport `yaml:"intervals"`
}

type intervalReport struct {
	Start  uint64   `yaml:"start"`
	End    uint64   `yaml:"end"`
	Frames []uint64 `yaml:"frames,flow"`
}

func newPlanReport(idx *videoindex.Index, plan videoindex.VideoIntervals) planReport {
	r := planReport{
		Frames:    idx.Frames(),
		Requested: plan.RequestedFrames(),
		Decoded:   plan.DecodedFrames(),
	}
	for i, iv := range plan.SampleIndexIntervals {
		r.Intervals = append(r.Intervals, intervalReport{
			Start:  iv.Start,
			End:    iv.End,
			Frames: plan.ValidFrames[i],
		})
	}
	return r
}

// Run executes the slice command.
func (cmd *SliceCmd) Run(g *Globals) error {
	rows, err := parseFrames(cmd.Frames)
	if err != nil {
		return err
	}
	e, err := g.setup()
	if err != nil {
		return err
	}
	idx, _, err := e.loadIndex(cmd.Video, false)
	if err != nil {
		return err
	}
	plan, err := videoindex.SliceIntoVideoIntervals(idx, rows)
	if err != nil {
		return err
	}

	r := newPlanReport(idx, plan)
	if cmd.Format == "yaml" {
		return printYAML(r)
	}
	fmt.Println(l10n.F("%d frames requested, %d samples to decode in %d passes", r.Requested, r.Decoded, len(r.Intervals)))
	for _, iv := range r.Intervals {
		fmt.Printf("  [%d-%d] %s\n", iv.Start, iv.End, joinFrames(iv.Frames))
	}
	return nil
}

func joinFrames(frames []uint64) string {
	parts := make([]string, len(frames))
	for i, f := range frames {
		parts[i] = fmt.Sprint(f)
	}
	return strings.Join(parts, ",")
}

func printYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Run executes the decoders command.
func (cmd *DecodersCmd) Run(g *Globals) error {
	e, err := g.setup()
	if err != nil {
		return err
	}
	factory := decoder.NewFactory(e.cfg.FactoryOptions(e.log)...)

	for _, t := range factory.GetSupportedDecoderTypes() {
		fmt.Println(t)
	}
	prefs, _ := e.cfg.DecoderPreference()
	if t, err := factory.Select(prefs...); err == nil {
		fmt.Println(l10n.F("Selected: %s", t))
	} else {
		fmt.Println(l10n.F("Selected: none (%v)", err))
	}
	if decoder.IsFFmpegAvailable(e.cfg.FFmpegPath) {
		fmt.Println(l10n.T("ffmpeg: available"))
	} else {
		fmt.Println(l10n.T("ffmpeg: not found"))
	}
	return nil
}

// Run executes the version command.
func (cmd *VersionCmd) Run() error {
	fmt.Println(l10n.F("hwang version %s", version))
	return nil
}

// Run executes the extract command.
func (cmd *ExtractCmd) Run(g *Globals) error {
	rows, err := parseFrames(cmd.Frames)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.New(l10n.T("no frames requested"))
	}

	e, err := g.setup()
	if err != nil {
		return err
	}
	log := e.log
	if cmd.ContactSheet {
		e.cfg.Output.ContactSheet = true
	}
	if cmd.Summary {
		e.cfg.Output.Summary = true
	}
	if cmd.ThumbWidth != nil {
		e.cfg.Output.ThumbWidth = *cmd.ThumbWidth
	}
	if cmd.Output != "" {
		e.cfg.Output.Dir = cmd.Output
	}
	if cmd.Decoder != "" {
		e.cfg.Decoders = []string{cmd.Decoder}
	}
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	idx, info, err := e.loadIndex(cmd.Video, false)
	if err != nil {
		return err
	}

	dec, t, err := openDecoder(e)
	if err != nil {
		return err
	}
	defer dec.Close()

	f, err := e.fs.Open(cmd.Video)
	if err != nil {
		return err
	}
	defer f.Close()

	p := player.New(idx, mp4index.NewSampleReader(f, idx, info), dec,
		e.cfg.ToPlayerOptions(info.Codec, info.PresentationTimes, log))

	renderer := ggrenderer.New()
	sink := framesink.New(e.cfg.Output.Dir, e.fs, renderer, e.cfg.ToSinkOptions())

	plan, err := p.Plan(rows)
	if err != nil {
		return err
	}
	started := time.Now()
	log.Info("Extracting %d frames from %s with the %s decoder", len(rows), filepath.Base(cmd.Video), t)

	cellWidth := 0
	if e.cfg.Output.ContactSheet {
		cellWidth = e.cfg.Output.ContactCellWidth
	}
	written, sheet, err := saveFrames(ctx, p, rows, sink, renderer, cellWidth, log)
	if err != nil {
		return err
	}

	elapsed := time.Since(started)

	var sheetPath string
	if e.cfg.Output.ContactSheet && len(sheet) > 0 {
		img, err := renderer.ContactSheet(sheet, e.cfg.Output.ContactColumns, e.cfg.Output.ContactCellWidth)
		if err != nil {
			return err
		}
		if sheetPath, err = sink.SaveImage("contact", img); err != nil {
			return err
		}
		log.Info("Contact sheet saved to %s", sheetPath)
	}

	log.Info("Wrote %d frames to %s", written, e.cfg.Output.Dir)

	if e.cfg.Output.Summary {
		s := summarizer.NewBuilder().
			WithVideo(newVideoInfo(cmd.Video, idx, info)).
			WithDecode(summarizer.DecodeInfo{
				Backend:         string(t),
				Passes:          plan.Len(),
				RequestedFrames: plan.RequestedFrames(),
				DecodedSamples:  plan.DecodedFrames(),
				WrittenFrames:   written,
				DurationMs:      int(elapsed.Milliseconds()),
			}).
			WithOutput(summarizer.OutputInfo{
				Dir:          e.cfg.Output.Dir,
				Format:       e.cfg.Output.Format,
				ContactSheet: sheetPath,
			}).
			Build()
		path := filepath.Join(e.cfg.Output.Dir, "summary.md")
		if err := summarizer.NewWriter(summarizer.NewMarkdownFormatter(), e.fs).Write(path, s); err != nil {
			return err
		}
		log.Info("Summary saved to %s", path)
	}
	return nil
}

func newVideoInfo(path string, idx *videoindex.Index, info mp4index.Info) summarizer.VideoInfo {
	var total uint64
	for _, s := range idx.SampleSizes() {
		total += s
	}
	return summarizer.VideoInfo{
		Path:         path,
		Codec:        string(info.Codec),
		Width:        int(info.Width),
		Height:       int(info.Height),
		Fragmented:   info.Fragmented,
		Frames:       idx.Frames(),
		Keyframes:    idx.NumKeyframes(),
		NonRefFrames: idx.NumNonRefFrames(),
		SampleBytes:  total,
	}
}

// saveFrames decodes rows through p and saves each frame to sink. When
// cellWidth is positive a thumbnail of every frame is returned for the
// contact sheet.
func saveFrames(ctx context.Context, p *player.Player, rows []uint64, sink ports.FrameSink, r ports.Renderer, cellWidth int, log ports.Logger) (int, []ports.Frame, error) {
	var thumbs []ports.Frame
	written := 0
	err := p.Each(ctx, rows, func(frame ports.Frame) error {
		path, err := sink.SaveFrame(frame)
		if err != nil {
			return err
		}
		log.Debug("Wrote %s", path)
		written++
		if cellWidth > 0 {
			thumbs = append(thumbs, ports.Frame{
				Number: frame.Number,
				Image:  r.ResizeImage(frame.Image, cellWidth, 0),
			})
		}
		return nil
	})
	return written, thumbs, err
}

// openDecoder constructs the first backend in the configured preference
// that initializes. Software runs on the CPU device.
func openDecoder(e *env) (ports.VideoDecoder, decoder.Type, error) {
	factory := decoder.NewFactory(e.cfg.FactoryOptions(e.log)...)
	prefs, err := e.cfg.DecoderPreference()
	if err != nil {
		return nil, "", err
	}
	if len(prefs) == 0 {
		prefs = factory.GetSupportedDecoderTypes()
	}
	gpu, err := e.cfg.DeviceHandle()
	if err != nil {
		return nil, "", err
	}

	var errs []error
	for _, t := range prefs {
		if !factory.HasDecoderType(t) {
			continue
		}
		device := gpu
		if t == decoder.Software {
			device = decoder.CPUDevice
		}
		dec, err := factory.MakeFromConfig(device, e.cfg.NumDevices, t)
		if err != nil {
			e.log.Warn("Decoder %s unavailable: %v", t, err)
			errs = append(errs, err)
			continue
		}
		if dec != nil {
			return dec, t, nil
		}
	}
	if len(errs) > 0 {
		return nil, "", errors.Join(errs...)
	}
	return nil, "", fmt.Errorf("%w: %v", decoder.ErrUnsupportedDecoderType, prefs)
}
