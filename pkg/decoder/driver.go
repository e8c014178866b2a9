package decoder

import "sync"

// driverInit is process-wide, run-once driver initialization.
//
// The first call to do runs fn; every call, including concurrent first
// calls, blocks until it finishes and returns the same result. A failed
// initialization is not retried.
type driverInit struct {
	once sync.Once
	fn   func() error
	err  error
}

func newDriverInit(fn func() error) *driverInit {
	return &driverInit{fn: fn}
}

func (d *driverInit) do() error {
	d.once.Do(func() {
		d.err = d.fn()
	})
	return d.err
}
