// Package logging builds the process logger.
package logging

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the log level and encoding
type Config struct {
	Level string `toml:"level" env:"LEVEL"`
	// Format is "console" or "json"
	Format string `toml:"format" env:"FORMAT"`
}

// DefaultConfig logs info and above to the console
func DefaultConfig() Config {
	return Config{Level: "info", Format: "console"}
}

// Validate checks the level and format
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return errors.Wrapf(err, "logging level %q", c.Level)
	}
	switch c.Format {
	case "console", "json":
		return nil
	default:
		return errors.Newf("logging format must be console or json, got %q", c.Format)
	}
}

// New builds a logger writing to stderr
func New(cfg Config) (*zap.SugaredLogger, error) {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter builds a logger writing to w
func NewWithWriter(cfg Config, w io.Writer) (*zap.SugaredLogger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := zapcore.ParseLevel(cfg.Level)

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zap.NewAtomicLevelAt(level))
	return zap.New(core).Sugar(), nil
}

// Bootstrap builds a logger from cfg, falling back to zap's example logger
// if cfg is invalid. It never returns nil.
func Bootstrap(cfg Config) *zap.SugaredLogger {
	logger, err := New(cfg)
	if err != nil {
		fallback := zap.NewExample().Sugar()
		fallback.Warnw("invalid logging config, using fallback logger", "error", err)
		return fallback
	}
	return logger
}
