//go:build linux

package cpu

import "golang.org/x/sys/unix"

// pin restricts the current thread to a single CPU. Must run after
// runtime.LockOSThread.
func pin(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	return unix.SchedSetaffinity(0, &set) // 0 = calling thread
}
