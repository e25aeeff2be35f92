package main

import (
	"context"
	"flag"
	"log"

	"autotrader/internal/chaos"
	"autotrader/internal/core"
	"autotrader/internal/obs"
	"autotrader/internal/ops"
	"autotrader/internal/recorder"

	"go.uber.org/zap"
)

func main() {
	inputDir := flag.String("input-dir", "testdata/wal_paper", "Input WAL directory")
	inputPrefix := flag.String("input-prefix", "", "Input WAL file prefix (default: wal)")
	outputDir := flag.String("output-dir", "testdata/wal_chaos", "Output WAL directory")
	outputPrefix := flag.String("output-prefix", "chaos", "Output WAL file prefix")
	configPath := flag.String("config", "", "Path to JSON config used for the robustness replay")
	seed := flag.Uint64("seed", 0, "RNG seed (0=now)")
	dropRate := flag.Float64("drop-rate", 0, "Drop probability [0-1]")
	dupRate := flag.Float64("dup-rate", 0, "Duplicate probability [0-1]")
	reorderWindow := flag.Int("reorder-window", 1, "Reorder window (>=1)")
	maxDelay := flag.Duration("max-delay", 0, "Max receive delay")
	noChecksum := flag.Bool("no-checksum", false, "Disable checksum validation")
	replay := flag.Bool("replay", true, "Re-drive the engine with the perturbed WAL and check its invariants")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	logger, err := obs.NewLogger(*logLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pb, err := recorder.NewPlayback(recorder.PlaybackConfig{
		Dir:             *inputDir,
		FilePrefix:      *inputPrefix,
		DisableChecksum: *noChecksum,
	})
	if err != nil {
		log.Fatalf("playback init failed: %v", err)
	}

	engine, err := chaos.NewEngine(chaos.Config{
		Seed:          *seed,
		DropRate:      *dropRate,
		DuplicateRate: *dupRate,
		ReorderWindow: *reorderWindow,
		MaxDelay:      *maxDelay,
	})
	if err != nil {
		log.Fatalf("chaos config invalid: %v", err)
	}

	outCfg := recorder.DefaultConfig(*outputDir)
	outCfg.FilePrefix = *outputPrefix
	writer, err := recorder.NewWriter(outCfg)
	if err != nil {
		log.Fatalf("writer init failed: %v", err)
	}
	ctx := context.Background()
	if err := writer.Start(ctx); err != nil {
		log.Fatalf("writer start failed: %v", err)
	}

	var in, out int
	write := func(records []recorder.Record) error {
		for _, rec := range records {
			if err := writer.Append(ctx, rec.Header, rec.Payload); err != nil {
				return err
			}
			out++
		}
		return nil
	}
	err = pb.Run(ctx, func(rec recorder.Record) error {
		in++
		return write(engine.Process(rec))
	})
	if err == nil {
		err = write(engine.Flush())
	}
	if err != nil {
		log.Fatalf("chaos failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		log.Fatalf("writer close failed: %v", err)
	}
	logger.Info("chaos completed", zap.Int("in", in), zap.Int("out", out), zap.String("output", *outputDir))

	if !*replay {
		return
	}
	cfg := ops.Default()
	if *configPath != "" {
		if cfg, err = ops.Load(*configPath, ""); err != nil {
			log.Fatalf("config load failed: %v", err)
		}
	}
	perturbed, err := recorder.NewPlayback(recorder.PlaybackConfig{Dir: *outputDir, FilePrefix: *outputPrefix})
	if err != nil {
		log.Fatalf("playback init failed: %v", err)
	}
	res, err := core.Replay(ctx, core.Config{Risk: cfg.Risk, FirstOrderID: 1}, perturbed, core.ReplayOptions{}, logger, nil)
	if err != nil {
		log.Fatalf("perturbed replay failed: %v", err)
	}
	logger.Info("perturbed replay held invariants",
		zap.Uint64("events", res.Events),
		zap.Int64("position", int64(res.Snapshot.Position)),
		zap.Int64("hedgePosition", int64(res.Snapshot.HedgePosition)),
	)
}
