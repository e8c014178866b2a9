//go:build !(intel && linux)

package decoder

// intelBackend returns nil when the binary is built without Intel support.
func intelBackend() Constructor {
	return nil
}
