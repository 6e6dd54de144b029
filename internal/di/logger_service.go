package di

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/omarluq/authgate/internal/config"
	"github.com/omarluq/authgate/internal/kv"
	"github.com/omarluq/authgate/internal/server"
	"github.com/omarluq/authgate/internal/session"
)

// LoggerService wraps the zerolog logger for DI.
type LoggerService struct {
	Logger *zerolog.Logger
	closer io.Closer
}

// NewLogger creates the logger from configuration and installs it as the
// global and package loggers. The level is applied globally so a config
// reload can change it.
func NewLogger(i do.Injector) (*LoggerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	cfg := cfgSvc.Get()

	logger, closer, err := server.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger = logger.Level(zerolog.TraceLevel)
	zerolog.SetGlobalLevel(cfg.Logging.ParseLevel())

	log.Logger = logger
	zerolog.DefaultContextLogger = &logger
	session.SetLogger(&logger)
	kv.SetLogger(&logger)

	cfgSvc.onReload(func(newCfg *config.Config) error {
		level := newCfg.Logging.ParseLevel()
		if level != zerolog.GlobalLevel() {
			zerolog.SetGlobalLevel(level)
			log.Info().Str("level", level.String()).Msg("log level updated via hot-reload")
		}
		return nil
	})

	return &LoggerService{Logger: &logger, closer: closer}, nil
}

// Shutdown implements do.Shutdowner, releasing a log file if one is open.
func (l *LoggerService) Shutdown() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
