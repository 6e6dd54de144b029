package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/omarluq/authgate/internal/config"
)

type ctxKey string

// RequestIDKey is the context key for request IDs.
const RequestIDKey ctxKey = "request_id"

// NewLogger builds a logger from cfg. The returned closer releases a log
// file when output is a path; it is a no-op for stdout and stderr.
func NewLogger(cfg config.LoggingConfig) (zerolog.Logger, io.Closer, error) {
	output, file, err := selectOutput(cfg.Output)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}

	var closer io.Closer = nopCloser{}
	if file != os.Stdout && file != os.Stderr {
		closer = file
	}

	if shouldUsePretty(cfg, file) {
		output = buildConsoleWriter(output)
	}

	logger := zerolog.New(output).
		Level(cfg.ParseLevel()).
		With().
		Timestamp().
		Logger()
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func selectOutput(output string) (io.Writer, *os.File, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, os.Stdout, nil
	case "stderr":
		return os.Stderr, os.Stderr, nil
	default:
		f, err := os.OpenFile(filepath.Clean(output), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return f, f, nil
	}
}

func shouldUsePretty(cfg config.LoggingConfig, file *os.File) bool {
	if cfg.Pretty {
		return true
	}
	switch cfg.Format {
	case "pretty":
		return true
	case "json", "":
		return false
	default:
		return file != nil && isatty.IsTerminal(file.Fd())
	}
}

func buildConsoleWriter(output io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: "15:04:05",
		FormatLevel: func(i any) string {
			level, _ := i.(string)
			if colored, ok := levelColors[level]; ok {
				return colored
			}
			return level
		},
		FormatMessage: func(i any) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("-> %s", i)
		},
		FormatFieldName: func(i any) string {
			return fmt.Sprintf("\033[2m%s=\033[0m", i)
		},
	}
}

var levelColors = map[string]string{
	"debug": "\033[36mDBG\033[0m",
	"info":  "\033[32mINF\033[0m",
	"warn":  "\033[33mWRN\033[0m",
	"error": "\033[31mERR\033[0m",
	"fatal": "\033[35mFTL\033[0m",
	"panic": "\033[35mPNC\033[0m",
}

// AddRequestID stores requestID, or a new UUID when empty, in ctx and in the
// context logger.
func AddRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	logger := zerolog.Ctx(ctx).With().Str("request_id", requestID).Logger()
	return logger.WithContext(ctx)
}

// GetRequestID returns the request ID stored by AddRequestID.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
