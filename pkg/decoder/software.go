package decoder

import (
	"github.com/user/hwang/pkg/ports"
)

// newSoftwareDecoder decodes on the CPU with ffmpeg, using NumDevices as
// the thread count.
func newSoftwareDecoder(cfg BackendConfig) (ports.VideoDecoder, error) {
	path, err := findFFmpeg(cfg.FFmpegPath)
	if err != nil {
		return nil, err
	}
	return newFFmpegDecoder(Software, path, nil, cfg), nil
}
