//go:build !linux && !windows

package cpu

func pin(int) error {
	return ErrPinUnsupported
}
