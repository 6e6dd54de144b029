package di

import "github.com/samber/do/v2"

// RegisterSingletons registers all service providers as singletons.
// Services are registered in dependency order:
// 1. Config (no dependencies)
// 2. Logger (depends on Config)
// 3. Repository (depends on Config, Logger) - session_db_auth only
// 4. Checker (depends on Repository, Config, Logger)
// 5. Sessions (depends on Config, Repository)
// 6. Users (depends on Config)
// 7. Auth (depends on Config, Sessions, Users)
// 8. Limiter (depends on Config)
// 9. Handler (depends on all above services)
// 10. Server (depends on Handler, Config).
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
	do.Provide(i, NewRepository)
	do.Provide(i, NewChecker)
	do.Provide(i, NewSessions)
	do.Provide(i, NewUsers)
	do.Provide(i, NewAuth)
	do.Provide(i, NewLimiter)
	do.Provide(i, NewHandler)
	do.Provide(i, NewHTTPServer)
}
