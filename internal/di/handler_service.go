package di

import (
	"fmt"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/omarluq/authgate/internal/server"
)

// HandlerService wraps the HTTP handler.
type HandlerService struct {
	Handler http.Handler
}

// NewHandler creates the HTTP handler with all middleware.
func NewHandler(i do.Injector) (*HandlerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)
	authSvc := do.MustInvoke[*AuthService](i)
	usersSvc := do.MustInvoke[*UsersService](i)
	sessionSvc := do.MustInvoke[*SessionService](i)
	limiterSvc := do.MustInvoke[*LimiterService](i)
	checkerSvc := do.MustInvoke[*CheckerService](i)

	handler, err := server.NewHandler(server.Options{
		Strategy:   authSvc.Strategy,
		Users:      usersSvc.Directory,
		Runtime:    cfgSvc.Runtime(),
		Sessions:   sessionSvc.Counter,
		Limiter:    limiterSvc.Limiter,
		Health:     checkerSvc.Reporter(),
		Logger:     *loggerSvc.Logger,
		CookieName: cfgSvc.Get().Auth.GetSessionName(),
		SessionTTL: sessionSvc.Lifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup handler: %w", err)
	}

	return &HandlerService{Handler: handler}, nil
}
