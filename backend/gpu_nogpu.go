//go:build nogpu

package backend

// newGPU is a stub for builds without GPU support.
func newGPU() (Backend, bool) { return nil, false }
