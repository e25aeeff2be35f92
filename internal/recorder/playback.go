package recorder

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"autotrader/pkg/exception"

	"github.com/yanun0323/errors"
)

// Clock allows deterministic playback pacing.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Playback replays WAL segments of a directory in name order.
type Playback struct {
	cfg   PlaybackConfig
	clock Clock
	last  int64
}

// NewPlayback validates the config and creates a playback.
func NewPlayback(cfg PlaybackConfig) (*Playback, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Playback{cfg: cfg, clock: realClock{}}, nil
}

// WithClock swaps the clock implementation.
func (p *Playback) WithClock(clock Clock) *Playback {
	if clock != nil {
		p.clock = clock
	}
	return p
}

// Run calls handler for every record. A handler error stops playback.
func (p *Playback) Run(ctx context.Context, handler func(Record) error) error {
	if handler == nil {
		return errors.Wrap(exception.ErrNilInstance, "playback handler is nil")
	}
	files, err := p.Segments()
	if err != nil {
		return err
	}
	p.last = 0
	for _, path := range files {
		if err := p.play(ctx, path, handler); err != nil {
			return err
		}
	}
	return nil
}

// Segments lists the WAL segment files of the directory in replay order.
func (p *Playback) Segments() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "read wal dir").With("dir", p.cfg.Dir)
	}
	prefix := p.cfg.FilePrefix + "-"
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".wal") {
			continue
		}
		files = append(files, filepath.Join(p.cfg.Dir, name))
	}
	slices.Sort(files)
	return files, nil
}

func (p *Playback) play(ctx context.Context, path string, handler func(Record) error) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open wal segment").With("segment", path)
	}
	defer file.Close()

	reader := NewReader(file, ReaderOptions{
		DisableChecksum: p.cfg.DisableChecksum,
		MaxPayloadSize:  p.cfg.MaxPayloadSize,
	})
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read wal segment").With("segment", path)
		}
		if err := p.pace(ctx, rec); err != nil {
			return err
		}
		if err := handler(rec); err != nil {
			return err
		}
	}
}

func (p *Playback) pace(ctx context.Context, rec Record) error {
	if p.cfg.Speed <= 0 {
		return nil
	}
	current := rec.Header.TsEvent
	if p.cfg.UseRecvTime {
		current = rec.Header.TsRecv
	}
	if current <= 0 {
		return nil
	}
	if p.last > 0 && current > p.last {
		if err := p.clock.Sleep(ctx, time.Duration(float64(current-p.last)/p.cfg.Speed)); err != nil {
			return err
		}
	}
	p.last = current
	return nil
}
