package summarizer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/user/hwang/pkg/mocks"
)

func testSummary() *Summary {
	s := NewBuilder().
		WithVideo(VideoInfo{
			Path:        "clip.mp4",
			Codec:       "av1",
			Width:       1920,
			Height:      1080,
			Frames:      300,
			Keyframes:   10,
			SampleBytes: 3 * 1024 * 1024,
		}).
		WithDecode(DecodeInfo{
			Backend:         "software",
			Passes:          2,
			RequestedFrames: 4,
			DecodedSamples:  10,
			WrittenFrames:   4,
			DurationMs:      1234,
		}).
		WithOutput(OutputInfo{Dir: "out", Format: "png"}).
		Build()
	s.GeneratedAt = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	return s
}

func TestBuilder(t *testing.T) {
	s := testSummary()

	if s.Video.Codec != "av1" || s.Decode.Passes != 2 || s.Output.Dir != "out" {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestMarkdownFormatter_Format(t *testing.T) {
	result := NewMarkdownFormatter().Format(testSummary())

	checks := []string{
		"# Extraction Summary",
		"2024-01-15T10:30:00Z",
		"| Codec | av1 |",
		"| Resolution | 1920x1080 |",
		"| Sample Data | 3.00 MB |",
		"| Passes | 2 |",
		"| Decode Overhead | 2.50x |",
		"| Duration | 1234 ms |",
		"| Format | png |",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected output to contain %q\n%s", check, result)
		}
	}
	if strings.Contains(result, "Contact Sheet") {
		t.Error("contact sheet row should be omitted when none was written")
	}
}

func TestMarkdownFormatter_ContactSheet(t *testing.T) {
	s := testSummary()
	s.Output.ContactSheet = "out/contact.png"

	if result := NewMarkdownFormatter().Format(s); !strings.Contains(result, "| Contact Sheet | out/contact.png |") {
		t.Errorf("missing contact sheet row:\n%s", result)
	}
}

func TestMarkdownFormatter_EscapesPipes(t *testing.T) {
	s := testSummary()
	s.Video.Path = "a|b.mp4"

	if result := NewMarkdownFormatter().Format(s); !strings.Contains(result, `a\|b.mp4`) {
		t.Errorf("pipe not escaped:\n%s", result)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
		{5 * 1024 * 1024 * 1024, "5.00 GB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := NewWriter(FormatFunc(func(s *Summary) string { return "report " + s.Video.Codec }), fs)

	if err := w.Write("out/summary.md", testSummary()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	data, ok := fs.GetFile("out/summary.md")
	if !ok || string(data) != "report av1" {
		t.Errorf("file = %q, %v", data, ok)
	}
	if ok, _ := fs.Exists("out"); !ok {
		t.Error("parent directory was not created")
	}
}

func TestWriter_WriteError(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFileFunc = func(string, []byte) error { return errors.New("disk full") }
	w := NewWriter(NewMarkdownFormatter(), fs)

	if err := w.Write("summary.md", testSummary()); err == nil {
		t.Error("expected error")
	}
}
