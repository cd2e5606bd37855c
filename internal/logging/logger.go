package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/drfailover/internal/config"
)

// NewLogger creates a structured zerolog.Logger writing to stdout, tagged with
// the service and region from the config.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return New(os.Stdout, cfg)
}

// New is NewLogger with an explicit writer.
func New(w io.Writer, cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(w).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if cfg.RegionID != "" {
		ctx = ctx.Str("region", cfg.RegionID)
	}
	if cfg.AWSRegion != "" {
		ctx = ctx.Str("aws_region", cfg.AWSRegion)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
