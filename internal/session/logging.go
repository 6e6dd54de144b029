package session

import (
	"sync"

	"github.com/rs/zerolog"
)

var (
	loggerMu sync.RWMutex

	// Logger receives background and persistence events from the session layers.
	// It discards everything until SetLogger is called.
	Logger = zerolog.Nop()
)

// SetLogger installs l as the session logger, tagged with component: session.
func SetLogger(l *zerolog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	Logger = l.With().Str("component", "session").Logger()
}

func logger() *zerolog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	l := Logger
	return &l
}
