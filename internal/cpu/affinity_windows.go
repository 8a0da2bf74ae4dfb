//go:build windows

package cpu

import "syscall"

var (
	kernel32              = syscall.NewLazyDLL("kernel32.dll")
	setThreadAffinityMask = kernel32.NewProc("SetThreadAffinityMask")
	getCurrentThread      = kernel32.NewProc("GetCurrentThread")
)

func pin(core int) error {
	if core >= 64 {
		return ErrPinUnsupported
	}
	thread, _, _ := getCurrentThread.Call()
	prev, _, err := setThreadAffinityMask.Call(thread, uintptr(1)<<uint(core))
	if prev == 0 {
		return err
	}
	return nil
}
