//go:build windows

package onvif

import "syscall"

func setsockoptInt(fd uintptr, level, opt int, value int) error {
	return syscall.SetsockoptInt(syscall.Handle(fd), level, opt, value)
}
