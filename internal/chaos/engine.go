package chaos

import (
	"math/rand/v2"
	"time"

	"autotrader/internal/recorder"
	"autotrader/internal/schema"
	"autotrader/pkg/exception"

	"github.com/yanun0323/errors"
)

// Config controls chaos injection behavior.
type Config struct {
	Seed          uint64
	DropRate      float64
	DuplicateRate float64
	ReorderWindow int
	MaxDelay      time.Duration
}

// Validate ensures the config is within supported ranges.
func (c Config) Validate() error {
	switch {
	case c.DropRate < 0 || c.DropRate > 1:
		return errors.Wrap(exception.ErrConfigInvalid, "drop rate must be between 0 and 1").With("dropRate", c.DropRate)
	case c.DuplicateRate < 0 || c.DuplicateRate > 1:
		return errors.Wrap(exception.ErrConfigInvalid, "duplicate rate must be between 0 and 1").With("duplicateRate", c.DuplicateRate)
	case c.ReorderWindow <= 0:
		return errors.Wrap(exception.ErrConfigInvalid, "reorder window must be positive").With("reorderWindow", c.ReorderWindow)
	case c.MaxDelay < 0:
		return errors.Wrap(exception.ErrConfigInvalid, "max delay must not be negative")
	}
	return nil
}

// Engine perturbs a stream of recorded venue events. A disconnect is never
// dropped, delayed or reordered: it flushes the window and stays last.
type Engine struct {
	cfg     Config
	rng     *rand.Rand
	pending []recorder.Record
	seq     uint64
}

// NewEngine creates a chaos engine. A zero seed is replaced by the clock.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.ReorderWindow == 0 {
		cfg.ReorderWindow = 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UTC().UnixNano())
	}
	return &Engine{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed>>1|1)),
	}, nil
}

// Process takes one record and returns the records to emit now. Intents are
// discarded since a perturbed stream no longer matches them. Output records
// are renumbered and own their payloads.
func (e *Engine) Process(rec recorder.Record) []recorder.Record {
	if rec.Outbound() {
		return nil
	}
	rec.Payload = append([]byte(nil), rec.Payload...)
	if rec.Header.Type == schema.EventDisconnect {
		return append(e.Flush(), e.number(rec))
	}
	if e.drop() {
		return nil
	}
	rec = e.delay(rec)
	if e.cfg.ReorderWindow <= 1 {
		return e.duplicate(rec)
	}
	e.pending = append(e.pending, rec)
	if len(e.pending) < e.cfg.ReorderWindow {
		return nil
	}
	return e.duplicate(e.take())
}

// Flush returns any buffered records after processing completes.
func (e *Engine) Flush() []recorder.Record {
	var out []recorder.Record
	for len(e.pending) > 0 {
		out = append(out, e.duplicate(e.take())...)
	}
	return out
}

func (e *Engine) take() recorder.Record {
	idx := e.rng.IntN(len(e.pending))
	rec := e.pending[idx]
	e.pending = append(e.pending[:idx], e.pending[idx+1:]...)
	return rec
}

func (e *Engine) drop() bool {
	return e.cfg.DropRate > 0 && e.rng.Float64() < e.cfg.DropRate
}

func (e *Engine) duplicate(rec recorder.Record) []recorder.Record {
	out := []recorder.Record{e.number(rec)}
	if e.cfg.DuplicateRate > 0 && e.rng.Float64() < e.cfg.DuplicateRate {
		out = append(out, e.number(rec))
	}
	return out
}

func (e *Engine) number(rec recorder.Record) recorder.Record {
	e.seq++
	rec.Header.Seq = e.seq
	return rec
}

// delay pushes the receive time back, which only matters for paced playback.
func (e *Engine) delay(rec recorder.Record) recorder.Record {
	if e.cfg.MaxDelay <= 0 {
		return rec
	}
	d := e.rng.Int64N(e.cfg.MaxDelay.Nanoseconds() + 1)
	if d == 0 {
		return rec
	}
	switch {
	case rec.Header.TsRecv > 0:
		rec.Header.TsRecv += d
	case rec.Header.TsEvent > 0:
		rec.Header.TsRecv = rec.Header.TsEvent + d
	}
	return rec
}
