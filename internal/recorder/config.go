package recorder

import (
	"time"

	"autotrader/pkg/exception"

	"github.com/yanun0323/errors"
)

const (
	defaultSegmentMaxBytes int64 = 64 << 20
	defaultQueueSize             = 8192
	defaultBufferSize            = 64 * 1024
	defaultFilePrefix            = "wal"
	defaultFlushInterval         = 100 * time.Millisecond
)

var defaultSegmentMaxDuration = 15 * time.Minute

// Config controls WAL writer behavior.
type Config struct {
	Dir                string
	FilePrefix         string
	SegmentMaxBytes    int64
	SegmentMaxDuration time.Duration
	QueueSize          int
	BufferSize         int
	FlushInterval      time.Duration
	SyncInterval       time.Duration
}

// DefaultConfig returns a baseline configuration for the WAL writer.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:                dir,
		FilePrefix:         defaultFilePrefix,
		SegmentMaxBytes:    defaultSegmentMaxBytes,
		SegmentMaxDuration: defaultSegmentMaxDuration,
		QueueSize:          defaultQueueSize,
		BufferSize:         defaultBufferSize,
		FlushInterval:      defaultFlushInterval,
	}
}

func (c Config) withDefaults() Config {
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	if c.SegmentMaxBytes == 0 {
		c.SegmentMaxBytes = defaultSegmentMaxBytes
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.BufferSize == 0 {
		c.BufferSize = defaultBufferSize
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	switch {
	case c.Dir == "":
		return errors.Wrap(exception.ErrConfigInvalid, "recorder dir is empty")
	case c.FilePrefix == "":
		return errors.Wrap(exception.ErrConfigInvalid, "recorder file prefix is empty")
	case c.SegmentMaxBytes <= 0:
		return errors.Wrap(exception.ErrConfigInvalid, "recorder segment size must be positive").With("segmentMaxBytes", c.SegmentMaxBytes)
	case c.QueueSize <= 0:
		return errors.Wrap(exception.ErrConfigInvalid, "recorder queue size must be positive").With("queueSize", c.QueueSize)
	case c.BufferSize <= 0:
		return errors.Wrap(exception.ErrConfigInvalid, "recorder buffer size must be positive").With("bufferSize", c.BufferSize)
	case c.FlushInterval < 0 || c.SyncInterval < 0 || c.SegmentMaxDuration < 0:
		return errors.Wrap(exception.ErrConfigInvalid, "recorder intervals must not be negative")
	}
	return nil
}

// PlaybackConfig controls WAL playback behavior.
type PlaybackConfig struct {
	Dir             string
	FilePrefix      string
	Speed           float64
	UseRecvTime     bool
	DisableChecksum bool
	MaxPayloadSize  int
}

func (c PlaybackConfig) withDefaults() PlaybackConfig {
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	return c
}

// Validate checks if the config is usable.
func (c PlaybackConfig) Validate() error {
	switch {
	case c.Dir == "":
		return errors.Wrap(exception.ErrConfigInvalid, "playback dir is empty")
	case c.Speed < 0:
		return errors.Wrap(exception.ErrConfigInvalid, "playback speed must not be negative")
	case c.MaxPayloadSize < 0:
		return errors.Wrap(exception.ErrConfigInvalid, "playback max payload must not be negative")
	}
	return nil
}
