package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide slog.Logger. Production always emits
// JSON regardless of LOG_FORMAT so log shippers get structured records;
// elsewhere the format follows the config, defaulting to text.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && (cfg.LogFormat == "json" || cfg.IsProduction()) {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
