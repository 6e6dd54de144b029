package health

import "errors"

var (
	// ErrCircuitOpen is returned when the breaker is rejecting calls.
	ErrCircuitOpen = errors.New("health: circuit breaker is open")

	// ErrNoProbe is reported by a Checker whose backend cannot be pinged.
	ErrNoProbe = errors.New("health: backend does not support ping")
)
