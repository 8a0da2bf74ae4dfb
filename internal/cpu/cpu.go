// Package cpu binds pool workers to operating system threads.
package cpu

import (
	"errors"
	"runtime"
)

// ErrPinUnsupported is returned by Bind on platforms without thread affinity.
// The goroutine is still locked to its OS thread in that case.
var ErrPinUnsupported = errors.New("cpu pinning not supported on this platform")

// Bind locks the calling goroutine to its OS thread and pins that thread to
// CPU workerID modulo the number of logical CPUs. The returned release func
// unlocks the thread and must be called from the same goroutine.
//
// A non-nil error means the thread is locked but not pinned.
func Bind(workerID int) (release func(), err error) {
	runtime.LockOSThread()
	err = pin(Core(workerID))
	return runtime.UnlockOSThread, err
}

// Core maps a worker id onto a logical CPU index.
func Core(workerID int) int {
	n := runtime.NumCPU()
	c := workerID % n
	if c < 0 {
		c += n
	}
	return c
}
