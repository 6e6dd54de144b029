package di

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/omarluq/authgate/internal/server"
)

// ServerService wraps the HTTP server.
type ServerService struct {
	Server *server.Server
}

// NewHTTPServer creates the HTTP server.
func NewHTTPServer(i do.Injector) (*ServerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	handlerSvc := do.MustInvoke[*HandlerService](i)
	cfg := cfgSvc.Get()

	srv := server.NewServer(
		cfg.Server.Listen,
		handlerSvc.Handler,
		cfg.Server.EnableHTTP2,
		cfg.Server.GetTimeoutOption().OrEmpty(),
	)
	return &ServerService{Server: srv}, nil
}

// Shutdown implements do.Shutdowner for graceful server shutdown.
func (s *ServerService) Shutdown() error {
	if s.Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.Server.Shutdown(ctx)
	}
	return nil
}
