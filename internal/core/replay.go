package core

import (
	"context"

	"autotrader/internal/obs"
	"autotrader/internal/og"
	"autotrader/internal/recorder"
	"autotrader/internal/schema"
	"autotrader/internal/state"
	"autotrader/pkg/exception"

	"github.com/yanun0323/errors"
	"go.uber.org/zap"
)

// ReplayOptions controls a replay run.
type ReplayOptions struct {
	// Verify compares regenerated intents with the recorded ones.
	Verify bool
}

// ReplayResult summarizes a replay run.
type ReplayResult struct {
	Events      uint64
	Skipped     uint64
	Recorded    uint64
	Regenerated uint64
	Snapshot    state.Snapshot
}

// Replay re-drives a fresh engine with the inbound records of a WAL. The
// invariants are checked after every event. Events after a disconnect are
// skipped.
func Replay(ctx context.Context, cfg Config, pb *recorder.Playback, opts ReplayOptions, logger *zap.Logger, metrics *obs.Metrics) (ReplayResult, error) {
	if pb == nil {
		return ReplayResult{}, exception.ErrNilInstance
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	out := &og.Collector{}
	engine, err := NewEngine(cfg, out, logger, metrics)
	if err != nil {
		return ReplayResult{}, err
	}

	var (
		res      ReplayResult
		produced []schema.Intent
		matched  int
	)
	err = pb.Run(ctx, func(rec recorder.Record) error {
		if rec.Outbound() {
			res.Recorded++
			if !opts.Verify {
				return nil
			}
			want, err := rec.Intent()
			if err != nil {
				return errors.Wrap(err, "decode recorded intent").With("seq", rec.Header.Seq)
			}
			if matched >= len(produced) || produced[matched] != want {
				return errors.Wrap(exception.ErrReplayDiverged, "recorded intent was not regenerated").
					With("seq", rec.Header.Seq).
					With("type", want.Type.String()).
					With("orderId", want.OrderID)
			}
			matched++
			return nil
		}

		ev, err := rec.Event()
		if err != nil {
			return errors.Wrap(err, "decode recorded event").With("seq", rec.Header.Seq)
		}
		if err := engine.Handle(ev); err != nil {
			if errors.Is(err, exception.ErrSessionClosed) {
				res.Skipped++
				return nil
			}
			return errors.Wrap(err, "handle recorded event").With("seq", rec.Header.Seq)
		}
		res.Events++
		if err := engine.CheckInvariants(); err != nil {
			return errors.Wrap(err, "invariants broken during replay").With("seq", rec.Header.Seq)
		}

		intents := out.Reset()
		res.Regenerated += uint64(len(intents))
		if opts.Verify {
			produced = append(produced, intents...)
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	if opts.Verify && matched != len(produced) {
		return res, errors.Wrap(exception.ErrReplayDiverged, "regenerated intents were not recorded").
			With("recorded", matched).
			With("regenerated", len(produced))
	}

	res.Snapshot = engine.Snapshot()
	logger.Info("replay finished",
		zap.Uint64("events", res.Events),
		zap.Uint64("skipped", res.Skipped),
		zap.Uint64("recorded", res.Recorded),
		zap.Uint64("regenerated", res.Regenerated),
	)
	return res, nil
}
