package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"autotrader/internal/bus"
	"autotrader/internal/core"
	"autotrader/internal/journal"
	"autotrader/internal/obs"
	"autotrader/internal/og"
	"autotrader/internal/ops"
	"autotrader/internal/recorder"
	"autotrader/internal/schema"
	"autotrader/internal/state"
	"autotrader/internal/transport"
	"autotrader/pkg/conn"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"go.uber.org/zap"
)

const queueSize = 4096

var errSessionEnded = errors.New("session ended")

func main() {
	configPath := flag.String("config", "autotrader.json", "Path to JSON config")
	envPath := flag.String("env", "", "Path to .env file (default: ./.env when present)")
	logFile := flag.String("log-file", "", "Also write logs to this file")
	snapshotPath := flag.String("snapshot-path", "", "Snapshot output (default: <wal-dir>/snapshot.json)")
	pyroscopeAddr := flag.String("pyroscope-addr", "", "Pyroscope server address (empty=disabled)")
	runtimeReport := flag.Duration("runtime-report", 0, "Log runtime memory stats at this interval (0=disabled)")

	replayDir := flag.String("replay-dir", "", "Replay a recorded WAL directory instead of trading")
	replayPrefix := flag.String("replay-prefix", "", "WAL file prefix (default: wal)")
	replaySpeed := flag.Float64("replay-speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	replayNoChecksum := flag.Bool("replay-no-checksum", false, "Disable checksum validation")
	replayVerify := flag.Bool("replay-verify", true, "Fail when regenerated intents differ from the recording")
	replaySnapshot := flag.String("replay-snapshot", "", "Snapshot to compare after replay (default: <replay-dir>/snapshot.json when present)")
	flag.Parse()

	if *pyroscopeAddr != "" {
		profiler, err := startProfiler(*pyroscopeAddr)
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	cfg, err := loadConfig(*configPath, *envPath, *replayDir != "")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	logger, err := newLogger(cfg.LogLevel, *logFile)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-sys.Shutdown():
			logs.Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	if *runtimeReport > 0 {
		var stats obs.RuntimeStats
		go stats.RunReportSchedule(ctx, *runtimeReport, logger)
	}

	if *replayDir != "" {
		pbCfg := recorder.PlaybackConfig{
			Dir:             *replayDir,
			FilePrefix:      *replayPrefix,
			Speed:           *replaySpeed,
			DisableChecksum: *replayNoChecksum,
		}
		if err := runReplay(ctx, cfg, pbCfg, *replayVerify, *replaySnapshot, logger); err != nil {
			log.Fatalf("replay failed: %v", err)
		}
		return
	}

	logs.Info("autotrader starting, team: " + cfg.TeamName + ", exec: " + cfg.Execution.Addr() + ", info: " + cfg.Information.Name)
	snapshotOut := *snapshotPath
	if snapshotOut == "" {
		snapshotOut = filepath.Join(cfg.Recorder.Dir, "snapshot.json")
	}
	if err := runLive(ctx, cfg, snapshotOut, logger); err != nil {
		log.Fatalf("autotrader failed: %v", err)
	}
	logs.Info("autotrader stopped")
}

func loadConfig(path, envPath string, replay bool) (ops.Config, error) {
	if replay {
		if _, err := os.Stat(path); err != nil {
			return ops.Default(), nil
		}
	}
	return ops.Load(path, envPath)
}

func newLogger(level, file string) (*zap.Logger, error) {
	if file != "" {
		return obs.NewLoggerWithFile(level, file)
	}
	return obs.NewLogger(level)
}

func startProfiler(addr string) (*pyroscope.Profiler, error) {
	return pyroscope.Start(pyroscope.Config{
		ApplicationName: "autotrader",
		ServerAddress:   addr,
		Tags: map[string]string{
			"env": "local",
		},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
}

func runLive(ctx context.Context, cfg ops.Config, snapshotPath string, logger *zap.Logger) error {
	metrics := obs.NewMetrics()
	queue := bus.NewQueue(queueSize)

	exec, err := transport.DialExec(ctx, cfg.Execution.Addr(), logger, metrics)
	if err != nil {
		return err
	}
	defer exec.Close()
	info, err := transport.ListenInfo(ctx, cfg.Information.Name, logger, metrics)
	if err != nil {
		return err
	}
	defer info.Close()

	var (
		sink   og.Sink = exec
		writer *recorder.Writer
	)
	if cfg.Recorder.Enabled {
		writer, err = recorder.NewWriter(recorder.DefaultConfig(cfg.Recorder.Dir))
		if err != nil {
			return err
		}
		// the writer outlives ctx so the shutdown records are flushed on Close
		if err := writer.Start(context.Background()); err != nil {
			return err
		}
		recorded := og.BestEffort(writer, func(in schema.Intent, err error) {
			metrics.IncRecordDrop()
			logger.Warn("record intent failed", zap.Stringer("type", in.Type), zap.Uint32("orderId", uint32(in.OrderID)), zap.Error(err))
		})
		sink = og.Tee(recorded, exec)
	}

	engine, err := core.NewEngine(core.Config{Risk: cfg.Risk, FirstOrderID: 1}, sink, logger, metrics)
	if err != nil {
		return err
	}
	if err := exec.Login(cfg.TeamName, cfg.Secret); err != nil {
		return err
	}

	ioCtx, stopIO := context.WithCancel(ctx)
	var (
		wg      sync.WaitGroup
		ioErr   error
		ioErrMu sync.Mutex
	)
	runIO := func(name string, run func(context.Context, *bus.Queue) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ioCtx, queue); err != nil {
				logger.Error("transport stopped", zap.String("transport", name), zap.Error(err))
				ioErrMu.Lock()
				if ioErr == nil {
					ioErr = errors.Wrap(err, "transport").With("transport", name)
				}
				ioErrMu.Unlock()
				_ = queue.Publish(ioCtx, bus.Envelope{Event: schema.NewDisconnect(), TsRecv: time.Now().UnixNano()})
			}
		}()
	}
	runIO("exec", exec.Run)
	runIO("info", info.Run)

	err = queue.Run(ctx, func(env bus.Envelope) error {
		if writer != nil {
			if err := writer.AppendEvent(env.Event, env.TsRecv, env.TsRecv); err != nil {
				metrics.IncRecordDrop()
				logger.Warn("record event failed", zap.Stringer("type", env.Event.Type), zap.Error(err))
			}
		}
		if err := engine.Handle(env.Event); err != nil {
			return err
		}
		if engine.Session() == core.SessionDisconnected {
			return errSessionEnded
		}
		return nil
	})
	stopIO()
	queue.Close()
	wg.Wait()

	if errors.Is(err, errSessionEnded) || errors.Is(err, context.Canceled) {
		err = nil
	}
	if err == nil {
		err = ioErr
	}
	if writer != nil {
		if cerr := writer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	snap := engine.Snapshot()
	if serr := persist(cfg, snapshotPath, snap, logger); serr != nil && err == nil {
		err = serr
	}
	logger.Info("session summary",
		zap.Int64("position", int64(snap.Position)),
		zap.Int64("hedgePosition", int64(snap.HedgePosition)),
		zap.Int("openOrders", len(snap.Orders)),
		zap.Int("openHedges", len(snap.Hedges)),
		zap.Object("metrics", metrics.Snapshot()),
	)
	return err
}

func persist(cfg ops.Config, snapshotPath string, snap state.Snapshot, logger *zap.Logger) error {
	if snapshotPath != "" {
		if err := state.WriteSnapshot(snapshotPath, snap); err != nil {
			return err
		}
		logger.Info("snapshot written", zap.String("path", snapshotPath))
	}
	if cfg.Journal.DSN == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := conn.New(ctx, conn.Option{ConnString: cfg.Journal.DSN})
	if err != nil {
		return err
	}
	defer client.Close()
	j, err := journal.Open(ctx, client.DB())
	if err != nil {
		return err
	}
	id, err := j.Save(ctx, cfg.TeamName, snap)
	if err != nil {
		return err
	}
	logger.Info("session journaled", zap.Uint("id", id))
	return nil
}

func runReplay(ctx context.Context, cfg ops.Config, pbCfg recorder.PlaybackConfig, verify bool, snapshotPath string, logger *zap.Logger) error {
	pb, err := recorder.NewPlayback(pbCfg)
	if err != nil {
		return err
	}
	metrics := obs.NewMetrics()
	res, err := core.Replay(ctx, core.Config{Risk: cfg.Risk, FirstOrderID: 1}, pb, core.ReplayOptions{Verify: verify}, logger, metrics)
	if err != nil {
		return err
	}

	explicit := snapshotPath != ""
	if !explicit {
		snapshotPath = filepath.Join(pbCfg.Dir, "snapshot.json")
	}
	expected, err := state.ReadSnapshot(snapshotPath)
	switch {
	case err == nil:
		if err := state.CompareSnapshots(expected, res.Snapshot); err != nil {
			return err
		}
		logs.Info("snapshot verified: " + snapshotPath)
	case explicit:
		return err
	}
	logger.Info("replay metrics", zap.Object("metrics", metrics.Snapshot()))
	return nil
}
