package di_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/authgate/internal/di"
)

func reloadConfig(hash, exempt string, rpm int) string {
	return fmt.Sprintf(`
server:
  listen: "127.0.0.1:0"
logging:
  level: error
  output: stderr
auth:
  type: basic_auth
  exempt_paths: [%s]
  login_rate:
    requests_per_minute: %d
users:
  - id: u-1
    email: bob@example.com
    password_hash: '%s'
`, exempt, rpm, hash)
}

func TestHotReload_ExemptPathsAndLoginRate(t *testing.T) {
	hash := testHash(t)
	container, _ := newContainer(t, reloadConfig(hash, `"/api/v1/status/"`, 10))

	cfgSvc := di.MustInvoke[*di.ConfigService](container)
	authSvc := di.MustInvoke[*di.AuthService](container)
	limiterSvc := di.MustInvoke[*di.LimiterService](container)
	require.NotNil(t, cfgSvc.GetWatcher())

	assert.True(t, authSvc.Guard.IsProtected("/api/v1/stats"))
	assert.Equal(t, 10, limiterSvc.Limiter.GetUsage().RequestsPerMinute)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	cfgSvc.StartWatching(ctx)

	// Give fsnotify a moment before writing.
	time.Sleep(50 * time.Millisecond)
	updated := reloadConfig(hash, `"/api/v1/status/", "/api/v1/stats/"`, 20)
	require.NoError(t, os.WriteFile(cfgSvc.Path(), []byte(updated), 0o600))

	assert.Eventually(t, func() bool {
		return !authSvc.Guard.IsProtected("/api/v1/stats")
	}, 3*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool {
		return limiterSvc.Limiter.GetUsage().RequestsPerMinute == 20
	}, 3*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool {
		return len(cfgSvc.Get().Auth.ExemptPaths) == 2
	}, 3*time.Second, 20*time.Millisecond)
}

func TestHotReload_InvalidConfigIsIgnored(t *testing.T) {
	hash := testHash(t)
	container, _ := newContainer(t, reloadConfig(hash, `"/api/v1/status/"`, 10))

	cfgSvc := di.MustInvoke[*di.ConfigService](container)
	authSvc := di.MustInvoke[*di.AuthService](container)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	cfgSvc.StartWatching(ctx)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(cfgSvc.Path(), []byte(reloadConfig(hash, `"no-slash"`, 10)), 0o600))

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, []string{"/api/v1/status/"}, authSvc.Guard.Exemptions())
	assert.Equal(t, []string{"/api/v1/status/"}, cfgSvc.Get().Auth.ExemptPaths)
}
