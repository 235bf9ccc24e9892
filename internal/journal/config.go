package journal

import (
	"fmt"
	"time"
)

const (
	defaultSegmentMaxBytes int64 = 1 << 30
	defaultMaxPayloadSize        = 1 << 20
)

// Config controls journal writer behavior.
type Config struct {
	SegmentMaxBytes int64
	Origin          uint16
	MaxPayloadSize  int

	// Clock overrides the receive-time source. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultConfig returns a baseline configuration for the journal writer.
func DefaultConfig() Config {
	return Config{
		SegmentMaxBytes: defaultSegmentMaxBytes,
		MaxPayloadSize:  defaultMaxPayloadSize,
	}
}

func (c Config) withDefaults() Config {
	if c.SegmentMaxBytes == 0 {
		c.SegmentMaxBytes = defaultSegmentMaxBytes
	}
	if c.MaxPayloadSize == 0 {
		c.MaxPayloadSize = defaultMaxPayloadSize
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.SegmentMaxBytes <= 0 {
		return fmt.Errorf("invalid journal config: SegmentMaxBytes must be > 0")
	}
	if c.MaxPayloadSize <= 0 {
		return fmt.Errorf("invalid journal config: MaxPayloadSize must be > 0")
	}
	return nil
}

// ReaderOptions controls frame decoding.
type ReaderOptions struct {
	DisableChecksum bool
	MaxPayloadSize  int
}
