package logger

import (
	"log/slog"
	"os"

	"github.com/vocalix-payment-gateway/internal/config"
)

// NewLogger builds the process-wide JSON logger. The gateway and the relay
// log to the same stream in production, so entries carry the service name
// and environment.
func NewLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})

	logger := slog.New(handler)
	if cfg.Application.Name != "" {
		logger = logger.With("service", cfg.Application.Name)
	}
	if cfg.Application.Env != "" {
		logger = logger.With("env", cfg.Application.Env)
	}

	logger.Info("Logger initialized", "level", level.String())
	return logger
}
