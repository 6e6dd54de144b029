package server_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/authgate/internal/config"
	"github.com/omarluq/authgate/internal/server"
)

func TestNewLogger_FileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "authgate.log")
	logger, closer, err := server.NewLogger(config.LoggingConfig{Level: "warn", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info().Msg("dropped")
	logger.Warn().Msg("kept")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kept")
	assert.NotContains(t, string(data), "dropped")
}

func TestNewLogger_BadPath(t *testing.T) {
	t.Parallel()

	_, _, err := server.NewLogger(config.LoggingConfig{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}

func TestNewLogger_StdoutCloserIsNoop(t *testing.T) {
	t.Parallel()

	_, closer, err := server.NewLogger(config.LoggingConfig{Output: "stdout"})
	require.NoError(t, err)
	assert.NoError(t, closer.Close())
}

func TestAddRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	ctx = server.AddRequestID(ctx, "req-1")
	assert.Equal(t, "req-1", server.GetRequestID(ctx))

	zerolog.Ctx(ctx).Info().Msg("hello")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)

	generated := server.AddRequestID(context.Background(), "")
	assert.Len(t, server.GetRequestID(generated), 36)
}
