package summarizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/ideamans/go-l10n"
)

// Formatter defines the interface for formatting a Summary.
type Formatter interface {
	// Format converts a Summary to a formatted string.
	Format(summary *Summary) string
}

// FormatFunc is a function adapter for the Formatter interface.
type FormatFunc func(summary *Summary) string

// Format implements the Formatter interface.
func (f FormatFunc) Format(summary *Summary) string {
	return f(summary)
}

// MarkdownFormatter renders a Summary as Markdown tables.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format implements the Formatter interface.
func (m *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", l10n.T("Extraction Summary"))
	fmt.Fprintf(&b, "%s %s\n", l10n.T("Generated at"), s.GeneratedAt.Format(time.RFC3339))

	section(&b, l10n.T("Video"), [][2]string{
		{l10n.T("File"), s.Video.Path},
		{l10n.T("Codec"), s.Video.Codec},
		{l10n.T("Resolution"), fmt.Sprintf("%dx%d", s.Video.Width, s.Video.Height)},
		{l10n.T("Fragmented"), yesNo(s.Video.Fragmented)},
		{l10n.T("Frames"), fmt.Sprint(s.Video.Frames)},
		{l10n.T("Keyframes"), fmt.Sprint(s.Video.Keyframes)},
		{l10n.T("Non-reference Frames"), fmt.Sprint(s.Video.NonRefFrames)},
		{l10n.T("Sample Data"), FormatBytes(s.Video.SampleBytes)},
	})

	section(&b, l10n.T("Decode"), [][2]string{
		{l10n.T("Backend"), s.Decode.Backend},
		{l10n.T("Passes"), fmt.Sprint(s.Decode.Passes)},
		{l10n.T("Requested Frames"), fmt.Sprint(s.Decode.RequestedFrames)},
		{l10n.T("Decoded Samples"), fmt.Sprint(s.Decode.DecodedSamples)},
		{l10n.T("Decode Overhead"), overhead(s.Decode)},
		{l10n.T("Written Frames"), fmt.Sprint(s.Decode.WrittenFrames)},
		{l10n.T("Duration"), fmt.Sprintf("%d ms", s.Decode.DurationMs)},
	})

	rows := [][2]string{
		{l10n.T("Directory"), s.Output.Dir},
		{l10n.T("Format"), s.Output.Format},
	}
	if s.Output.ContactSheet != "" {
		rows = append(rows, [2]string{l10n.T("Contact Sheet"), s.Output.ContactSheet})
	}
	section(&b, l10n.T("Output"), rows)

	return b.String()
}

func section(b *strings.Builder, title string, rows [][2]string) {
	fmt.Fprintf(b, "\n## %s\n\n", title)
	fmt.Fprintf(b, "| %s | %s |\n|---|---|\n", l10n.T("Item"), l10n.T("Value"))
	for _, r := range rows {
		fmt.Fprintf(b, "| %s | %s |\n", r[0], strings.ReplaceAll(r[1], "|", `\|`))
	}
}

func yesNo(v bool) string {
	if v {
		return l10n.T("Yes")
	}
	return l10n.T("No")
}

// overhead is the ratio of decoded samples to requested frames.
func overhead(d DecodeInfo) string {
	if d.RequestedFrames == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2fx", float64(d.DecodedSamples)/float64(d.RequestedFrames))
}

// FormatBytes formats n as B, KB, MB or GB with two decimals above bytes.
func FormatBytes(n uint64) string {
	const unit = 1024
	switch {
	case n < unit:
		return fmt.Sprintf("%d B", n)
	case n < unit*unit:
		return fmt.Sprintf("%.2f KB", float64(n)/unit)
	case n < unit*unit*unit:
		return fmt.Sprintf("%.2f MB", float64(n)/(unit*unit))
	default:
		return fmt.Sprintf("%.2f GB", float64(n)/(unit*unit*unit))
	}
}
