package app

import (
	"fmt"
	"log/slog"
	"os"

	"service-dispatch/internal/config"
	"service-dispatch/internal/logx"
)

// NewLogger builds the process logger: JSON slog by default, zap when LOG_BACKEND=zap.
func NewLogger(cfg *config.Config) (logx.Logger, error) {
	if cfg.Log.Backend == "zap" {
		return logx.NewZapProduction(cfg.Log.Level)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	base := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	return logx.NewSlogAdapter(base), nil
}
