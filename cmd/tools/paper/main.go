package main

import (
	"context"
	"flag"
	"log"
	"math/rand/v2"
	"path/filepath"

	"autotrader/internal/codec"
	"autotrader/internal/core"
	"autotrader/internal/obs"
	"autotrader/internal/og"
	"autotrader/internal/ops"
	"autotrader/internal/recorder"
	"autotrader/internal/schema"
	"autotrader/internal/sim"
	"autotrader/internal/state"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config (default: built-in risk limits)")
	outputDir := flag.String("output-dir", "testdata/wal_paper", "Output WAL directory")
	snapshotPath := flag.String("snapshot-path", "", "Snapshot output (default: <output-dir>/snapshot.json)")
	seed := flag.Uint64("seed", 1, "Market and venue seed")
	steps := flag.Int("steps", 1000, "Number of Future/ETF book pairs to generate")
	makerFee := flag.Int64("maker-fee-bps", 0, "Maker fee in basis points (negative=rebate)")
	cancelRate := flag.Float64("cancel-rate", 0.02, "Probability per step that the venue cancels a resting quote")
	rejectRate := flag.Float64("reject-rate", 0.01, "Probability per step that the venue rejects an untouched quote")
	failHedgeRate := flag.Float64("fail-hedge-rate", 0, "Probability per step that the next hedge reports no execution")
	disconnect := flag.Bool("disconnect", false, "End the session with a venue disconnect")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	if *steps <= 0 {
		log.Fatalf("steps must be > 0")
	}
	cfg := ops.Default()
	if *configPath != "" {
		loaded, err := ops.Load(*configPath, "")
		if err != nil {
			log.Fatalf("config load failed: %v", err)
		}
		cfg = loaded
	}
	logger, err := obs.NewLogger(*logLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	outCfg := recorder.DefaultConfig(*outputDir)
	writer, err := recorder.NewWriter(outCfg)
	if err != nil {
		log.Fatalf("writer init failed: %v", err)
	}
	ctx := context.Background()
	if err := writer.Start(ctx); err != nil {
		log.Fatalf("writer start failed: %v", err)
	}

	metrics := obs.NewMetrics()
	venue := sim.NewVenue(sim.VenueConfig{MakerFeeBps: *makerFee})
	var ts int64
	recordIntent := og.SinkFunc(func(in schema.Intent) error {
		frame, err := codec.AppendIntent(nil, in)
		if err != nil {
			return err
		}
		return writer.Append(ctx, schema.NewHeader(in.Type, 0, ts, ts), frame)
	})
	engine, err := core.NewEngine(core.Config{Risk: cfg.Risk, FirstOrderID: 1}, og.Tee(recordIntent, venue), logger, metrics)
	if err != nil {
		log.Fatalf("engine init failed: %v", err)
	}

	market := sim.NewMarket(sim.DefaultMarketConfig(*seed))
	rng := rand.New(rand.NewPCG(*seed, *seed+1))

	deliver := func() error {
		for venue.Pending() {
			for _, ev := range venue.Drain() {
				if engine.Session() == core.SessionDisconnected {
					continue
				}
				ts++
				frame, err := codec.MarshalPayload(nil, ev)
				if err != nil {
					return err
				}
				if err := writer.Append(ctx, schema.NewHeader(ev.Type, 0, ts, ts), frame); err != nil {
					return err
				}
				if err := engine.Handle(ev); err != nil {
					return err
				}
				if err := engine.CheckInvariants(); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for i := 0; i < *steps && engine.Session() == core.SessionConnected; i++ {
		future, etf := market.Next()
		venue.ApplyBook(future)
		venue.ApplyBook(etf)
		if resting := venue.Resting(); len(resting) > 0 {
			o := resting[rng.IntN(len(resting))]
			switch {
			case rng.Float64() < *cancelRate:
				venue.Cancel(o.ID)
			case rng.Float64() < *rejectRate:
				venue.Reject(o.ID, "order rejected by venue")
			}
		}
		if rng.Float64() < *failHedgeRate {
			venue.FailHedges(1)
		}
		if err := deliver(); err != nil {
			log.Fatalf("paper session failed at step %d: %v", i, err)
		}
	}
	if *disconnect {
		venue.Disconnect()
		if err := deliver(); err != nil {
			log.Fatalf("paper disconnect failed: %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		log.Fatalf("writer close failed: %v", err)
	}
	if *snapshotPath == "" {
		*snapshotPath = filepath.Join(*outputDir, "snapshot.json")
	}
	snap := engine.Snapshot()
	if err := state.WriteSnapshot(*snapshotPath, snap); err != nil {
		log.Fatalf("snapshot write failed: %v", err)
	}

	logger.Info("paper completed",
		zap.Int("steps", *steps),
		zap.Int64("position", int64(snap.Position)),
		zap.Int64("hedgePosition", int64(snap.HedgePosition)),
		zap.Int("resting", len(venue.Resting())),
		zap.String("snapshot", *snapshotPath),
		zap.Object("metrics", metrics.Snapshot()),
	)
}
