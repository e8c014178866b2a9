//go:build !(nvidia && cgo)

package decoder

// nvidiaBackend returns nil when the binary is built without NVIDIA support.
func nvidiaBackend() Constructor {
	return nil
}
