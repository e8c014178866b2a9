//go:build intel && linux

package decoder

import (
	"fmt"
	"os"

	"github.com/user/hwang/pkg/ports"
)

const driDir = "/dev/dri"

// vaapiDriver checks once per process that the DRM subsystem is present.
var vaapiDriver = newDriverInit(func() error {
	info, err := os.Stat(driDir)
	if err != nil {
		return fmt.Errorf("vaapi: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vaapi: %s is not a directory", driDir)
	}
	return nil
})

// renderNode returns the DRM render node of device id.
func renderNode(id int) string {
	return fmt.Sprintf("%s/renderD%d", driDir, 128+id)
}

func intelBackend() Constructor {
	return newIntelDecoder
}

// newIntelDecoder opens the device's render node and keeps it open for the
// lifetime of the decoder.
func newIntelDecoder(cfg BackendConfig) (ports.VideoDecoder, error) {
	if err := vaapiDriver.do(); err != nil {
		return nil, err
	}

	node := renderNode(cfg.Device.ID)
	f, err := os.OpenFile(node, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open render node: %w", err)
	}

	path, err := findFFmpeg(cfg.FFmpegPath)
	if err != nil {
		f.Close()
		return nil, err
	}

	d := newFFmpegDecoder(Intel, path, []string{
		"-hwaccel", "vaapi",
		"-hwaccel_device", node,
	}, cfg)
	d.release = f.Close
	return d, nil
}
