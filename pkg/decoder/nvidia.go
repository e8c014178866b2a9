//go:build nvidia && cgo

package decoder

/*
#cgo LDFLAGS: -lcuda
#include <cuda.h>

static int hwCudaInit() {
    return (int)cuInit(0);
}

// Retain the primary context of device ordinal. The context is shared with
// every other user of the primary context on that device.
static int hwCudaRetain(int ordinal, CUcontext *ctx) {
    CUdevice dev;
    CUresult r = cuDeviceGet(&dev, ordinal);
    if (r != CUDA_SUCCESS) return (int)r;
    return (int)cuDevicePrimaryCtxRetain(ctx, dev);
}

static int hwCudaRelease(int ordinal) {
    CUdevice dev;
    CUresult r = cuDeviceGet(&dev, ordinal);
    if (r != CUDA_SUCCESS) return (int)r;
    return (int)cuDevicePrimaryCtxRelease(dev);
}

static const char* hwCudaErrorName(int code) {
    const char *name = NULL;
    if (cuGetErrorName((CUresult)code, &name) != CUDA_SUCCESS || name == NULL) {
        return "CUDA_ERROR_UNKNOWN";
    }
    return name;
}
*/
import "C"

import (
	"fmt"
	"strconv"

	"github.com/user/hwang/pkg/ports"
)

// cudaDriver runs cuInit once per process.
var cudaDriver = newDriverInit(func() error {
	if r := C.hwCudaInit(); r != 0 {
		return fmt.Errorf("cuInit: %s", cudaError(r))
	}
	return nil
})

func cudaError(code C.int) string {
	return C.GoString(C.hwCudaErrorName(code))
}

func nvidiaBackend() Constructor {
	return newNVIDIADecoder
}

// newNVIDIADecoder retains the primary CUDA context of the device; the
// returned decoder releases it on Close.
func newNVIDIADecoder(cfg BackendConfig) (ports.VideoDecoder, error) {
	if err := cudaDriver.do(); err != nil {
		return nil, err
	}

	ordinal := C.int(cfg.Device.ID)
	var cuCtx C.CUcontext
	if r := C.hwCudaRetain(ordinal, &cuCtx); r != 0 {
		return nil, fmt.Errorf("cuDevicePrimaryCtxRetain(%d): %s", cfg.Device.ID, cudaError(r))
	}
	release := func() error {
		if r := C.hwCudaRelease(ordinal); r != 0 {
			return fmt.Errorf("cuDevicePrimaryCtxRelease(%d): %s", cfg.Device.ID, cudaError(r))
		}
		return nil
	}

	path, err := findFFmpeg(cfg.FFmpegPath)
	if err != nil {
		_ = release()
		return nil, err
	}

	d := newFFmpegDecoder(NVIDIA, path, []string{
		"-hwaccel", "cuda",
		"-hwaccel_device", strconv.Itoa(cfg.Device.ID),
	}, cfg)
	d.release = release
	return d, nil
}
