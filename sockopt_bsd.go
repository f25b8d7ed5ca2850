//go:build darwin || ios || freebsd || openbsd || netbsd || dragonfly

package onvif

import "syscall"

func setsockoptInt(fd uintptr, level, opt int, value int) error {
	// BSD needs SO_REUSEPORT next to SO_REUSEADDR for several listeners
	// on one port
	if opt == syscall.SO_REUSEADDR {
		if err := syscall.SetsockoptInt(int(fd), level, opt, value); err != nil {
			return err
		}
		opt = syscall.SO_REUSEPORT
	}
	return syscall.SetsockoptInt(int(fd), level, opt, value)
}
