package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/omarluq/authgate/internal/auth"
)

var validAuthTypes = map[auth.Type]bool{
	auth.TypeNone:       true,
	auth.TypeBasic:      true,
	auth.TypeSession:    true,
	auth.TypeSessionExp: true,
	auth.TypeSessionDB:  true,
	auth.TypeChain:      true,
}

var validLogLevels = map[string]bool{
	"":         true,
	LevelDebug: true,
	LevelInfo:  true,
	LevelWarn:  true,
	LevelError: true,
}

var validLogFormats = map[string]bool{
	"":        true,
	"json":    true,
	"console": true,
	"text":    true,
	"pretty":  true,
}

// Validate checks the whole configuration and returns a *ValidationError
// listing every problem, or nil.
func (c *Config) Validate() error {
	errs := &ValidationError{}

	validateServer(c, errs)
	validateAuth(c, errs)
	validateSession(c, errs)
	validateUsers(c, errs)
	validateLogging(c, errs)

	return errs.ToError()
}

func validateServer(c *Config, errs *ValidationError) {
	if c.Server.Listen == "" {
		errs.Add("server.listen is required")
	} else if _, port, err := net.SplitHostPort(c.Server.Listen); err != nil {
		errs.Addf("server.listen must be in host:port format (got %q)", c.Server.Listen)
	} else if port == "" {
		errs.Add("server.listen port is required")
	}

	if c.Server.TimeoutMS < 0 {
		errs.Add("server.timeout_ms must be >= 0")
	}
}

func validateAuth(c *Config, errs *ValidationError) {
	t := c.Auth.GetType()
	if !validAuthTypes[t] {
		errs.Addf("auth.type is invalid (got %q, valid: none, basic_auth, session_auth, "+
			"session_exp_auth, session_db_auth, chain)", c.Auth.Type)
	}

	if t == auth.TypeChain {
		validateChain(c.Auth.GetChain(), errs)
	} else if len(c.Auth.Chain) > 0 {
		errs.Add("auth.chain is only used when auth.type is chain")
	}

	for i, p := range c.Auth.ExemptPaths {
		if !strings.HasPrefix(p, "/") {
			errs.Addf("auth.exempt_paths[%d] must start with / (got %q)", i, p)
		}
	}

	if strings.ContainsAny(c.Auth.SessionName, " ;,=\t") {
		errs.Addf("auth.session_name contains invalid characters (got %q)", c.Auth.SessionName)
	}
}

func validateChain(chain []auth.Type, errs *ValidationError) {
	if len(chain) == 0 {
		errs.Add("auth.chain must not be empty when auth.type is chain")
		return
	}
	sessions := 0
	for i, member := range chain {
		switch {
		case member == auth.TypeChain:
			errs.Addf("auth.chain[%d] cannot be a chain", i)
		case !validAuthTypes[member]:
			errs.Addf("auth.chain[%d] is invalid (got %q)", i, member)
		case member.IsSession():
			sessions++
		}
	}
	if sessions > 1 {
		errs.Add("auth.chain may contain at most one session strategy")
	}
}

func validateSession(c *Config, errs *ValidationError) {
	if c.Session.ExpirySweepSeconds < 0 {
		errs.Add("session.expiry_sweep_interval must be >= 0")
	}

	t, ok := c.Auth.SessionType().Get()
	if !ok || t != auth.TypeSessionDB {
		return
	}
	if err := c.Session.Repository.Validate(); err != nil {
		errs.Addf("session.%s", strings.TrimPrefix(err.Error(), "repository: "))
	}
}

func validateUsers(c *Config, errs *ValidationError) {
	seen := make(map[string]bool, len(c.Users))
	for i, u := range c.Users {
		prefix := fmt.Sprintf("users[%d]", i)
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if email == "" {
			errs.Addf("%s.email is required", prefix)
		} else if seen[email] {
			errs.Addf("duplicate user email: %s", email)
		}
		seen[email] = true

		if !strings.HasPrefix(u.PasswordHash, "$2") {
			errs.Addf("%s.password_hash must be a bcrypt hash (see authgate passwd)", prefix)
		}
	}
}

func validateLogging(c *Config, errs *ValidationError) {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs.Addf("logging.level is invalid (got %q, valid: debug, info, warn, error)", c.Logging.Level)
	}
	if !validLogFormats[c.Logging.Format] {
		errs.Addf("logging.format is invalid (got %q, valid: json, console, text, pretty)", c.Logging.Format)
	}
}
