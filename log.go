package onvif

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

var logger atomic.Pointer[zerolog.Logger]

func init() {
	nop := zerolog.Nop()
	logger.Store(&nop)
}

// SetLogger sets the module logger. The library is silent until a logger
// is set.
func SetLogger(l zerolog.Logger) {
	l = l.With().Str("module", "onvif").Logger()
	logger.Store(&l)
}

// GetLogger returns the module logger
func GetLogger() *zerolog.Logger {
	return logger.Load()
}

func pickLogger(l *zerolog.Logger) *zerolog.Logger {
	if l != nil {
		return l
	}
	return GetLogger()
}
