package kv

import (
	"sync"

	"github.com/rs/zerolog"
)

var (
	loggerMu sync.RWMutex

	// Logger is the kv package logger. It discards output until SetLogger is called.
	Logger = zerolog.Nop()
)

// SetLogger installs l, tagged with component: kv.
func SetLogger(l *zerolog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	Logger = l.With().Str("component", "kv").Logger()
}

func logger() zerolog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return Logger
}
