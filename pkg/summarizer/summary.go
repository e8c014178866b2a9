// Package summarizer builds and writes reports of frame extraction runs.
package summarizer

import "time"

// Summary contains all data collected during an extraction run.
type Summary struct {
	GeneratedAt time.Time

	Video  VideoInfo
	Decode DecodeInfo
	Output OutputInfo
}

// VideoInfo describes the source video.
type VideoInfo struct {
	Path         string
	Codec        string
	Width        int
	Height       int
	Fragmented   bool
	Frames       uint64
	Keyframes    int
	NonRefFrames uint64
	SampleBytes  uint64
}

// DecodeInfo describes the decode plan and its execution.
type DecodeInfo struct {
	Backend         string
	Passes          int
	RequestedFrames int
	DecodedSamples  uint64
	WrittenFrames   int
	DurationMs      int
}

// OutputInfo describes what was written.
type OutputInfo struct {
	Dir          string
	Format       string
	ContactSheet string // path, empty when none was written
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithVideo sets source video information.
func (b *Builder) WithVideo(video VideoInfo) *Builder {
	b.summary.Video = video
	return b
}

// WithDecode sets decode information.
func (b *Builder) WithDecode(decode DecodeInfo) *Builder {
	b.summary.Decode = decode
	return b
}

// WithOutput sets output information.
func (b *Builder) WithOutput(output OutputInfo) *Builder {
	b.summary.Output = output
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
