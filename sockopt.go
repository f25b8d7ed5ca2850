//go:build !(darwin || ios || freebsd || openbsd || netbsd || dragonfly || windows)

package onvif

import "syscall"

func setsockoptInt(fd uintptr, level, opt int, value int) error {
	return syscall.SetsockoptInt(int(fd), level, opt, value)
}
