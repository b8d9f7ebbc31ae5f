package stats

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Config defines configuration for the stats collector
type Config struct {
	Enabled bool `toml:"enabled" env:"ENABLED"`

	// Inbox configuration
	InboxBufferSize  int           `toml:"inbox_buffer_size" env:"INBOX_BUFFER_SIZE"`
	InboxSendTimeout time.Duration `toml:"inbox_send_timeout" env:"INBOX_SEND_TIMEOUT"`

	// Length of one stats period; each period is written once when it ends
	PeriodDuration time.Duration `toml:"period_duration" env:"PERIOD_DURATION"`

	// Periods older than this are pruned after each write. Zero keeps everything.
	Retention time.Duration `toml:"retention" env:"RETENTION"`
}

// DefaultConfig returns default stats collector configuration
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		InboxBufferSize:  256,
		InboxSendTimeout: 5 * time.Millisecond,
		PeriodDuration:   5 * time.Minute,
		Retention:        7 * 24 * time.Hour,
	}
}

// Validate checks the collector settings
func (c Config) Validate() error {
	if c.InboxBufferSize <= 0 {
		return errors.Newf("stats inbox_buffer_size must be positive, got %d", c.InboxBufferSize)
	}
	if c.InboxSendTimeout <= 0 {
		return errors.Newf("stats inbox_send_timeout must be positive, got %v", c.InboxSendTimeout)
	}
	if c.PeriodDuration <= 0 {
		return errors.Newf("stats period_duration must be positive, got %v", c.PeriodDuration)
	}
	if c.Retention < 0 {
		return errors.Newf("stats retention must not be negative, got %v", c.Retention)
	}
	if c.Retention > 0 && c.Retention < c.PeriodDuration {
		return errors.Newf("stats retention (%v) must be at least one period (%v)", c.Retention, c.PeriodDuration)
	}
	return nil
}
