package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gridsim/engine/internal/clock"
	"github.com/gridsim/engine/internal/config"
	coresys "github.com/gridsim/engine/internal/core/system"
	"github.com/gridsim/engine/internal/grid"
	"github.com/gridsim/engine/internal/observe"
	"github.com/gridsim/engine/internal/persist"
	"github.com/gridsim/engine/internal/routine"
	"github.com/gridsim/engine/internal/scripting"
	"github.com/gridsim/engine/internal/system"
	"github.com/gridsim/engine/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Map
	m, err := loadMap(cfg.World)
	if err != nil {
		return fmt.Errorf("map: %w", err)
	}
	log.Info("map loaded",
		zap.String("name", m.Name()),
		zap.Int32("width", m.Width()),
		zap.Int32("height", m.Height()),
		zap.Int("passable", m.PassableCount()))

	// 4. World state
	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	start := clock.New(cfg.Sim.StartMinutes, cfg.Sim.TimeSpeed)
	ws := world.NewState(m, start, seed, world.TuningFrom(cfg.Movement), log)
	log.Info("run started", zap.String("run_id", ws.RunID), zap.Int64("seed", seed))

	// 5. Persistence. Restore the side table before populating so spawned
	// furniture lands on top of what the last run left.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var store *persist.Store
	if cfg.Database.Driver != "" {
		store, err = persist.Open(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer store.Close()

		rows, err := store.LoadCells(ctx)
		if err != nil {
			return fmt.Errorf("load cells: %w", err)
		}
		system.RestoreCells(ws.Cells, rows)
		log.Info("cell table restored", zap.Int("entries", len(rows)))
	}

	// 6. Scripting
	var scripter routine.Scripter
	if cfg.Scripting.Dir != "" {
		engine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer engine.Close()
		if !engine.HasFunction(scripting.DefaultRoutine) {
			log.Warn("no routine function in scripts, scripted agents will wander",
				zap.String("dir", cfg.Scripting.Dir))
		}
		scripter = engine
	}

	if err := ws.Populate(cfg.World, cfg.Movement, scripter); err != nil {
		return fmt.Errorf("populate: %w", err)
	}

	// 7. Observer
	obsCtx, stopObs := context.WithCancel(context.Background())
	defer stopObs()

	var pubs []system.Publisher
	if cfg.Observer.BindAddress != "" {
		hub := observe.NewHub(log)
		go func() {
			if err := hub.Serve(obsCtx, cfg.Observer.BindAddress); err != nil {
				log.Error("observer stopped", zap.Error(err))
			}
		}()
		pubs = append(pubs, hub)
	}
	if cfg.Observer.RecordDir != "" {
		rec, err := observe.NewRecorder(cfg.Observer.RecordDir, ws.RunID)
		if err != nil {
			return fmt.Errorf("recorder: %w", err)
		}
		defer func() {
			if err := rec.Close(); err != nil {
				log.Error("close recording", zap.Error(err))
			}
		}()
		pubs = append(pubs, rec)
	}

	// 8. Create systems and register with runner
	runner := coresys.NewRunner()
	runner.Register(system.NewClockSystem(ws))
	runner.Register(system.NewThinkSystem(ws, cfg.Sim.Workers))
	runner.Register(system.NewStepSystem(ws))
	runner.Register(system.NewCarrierSystem(ws))
	runner.Register(system.NewVisibilitySystem(ws, cfg.Vision.Limit, cfg.Vision.Interval, log))
	runner.Register(system.NewCleanupSystem(ws, cfg.World.RespawnConsumed, log))
	if len(pubs) > 0 {
		runner.Register(system.NewObserverSystem(ws, cfg.Observer.Interval, log, pubs...))
	}
	var persistSys *system.PersistenceSystem
	if store != nil {
		persistSys = system.NewPersistenceSystem(ws, store, log, cfg.Database.SaveInterval)
		runner.Register(persistSys)
	}

	// 9. Start sim loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Sim.TickRate)
	defer ticker.Stop()

	log.Info("simulation running",
		zap.String("name", cfg.Sim.Name),
		zap.Duration("tick", cfg.Sim.TickRate),
		zap.Int("systems", runner.Len()),
		zap.Int("agents", ws.AgentCount()))

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Sim.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			if persistSys != nil {
				if err := persistSys.SaveAll(); err != nil {
					log.Error("final save failed", zap.Error(err))
				}
			}
			log.Info("simulation stopped",
				zap.Uint64("tick", ws.Tick()),
				zap.Int64("successes", ws.Stats.Successes.Load()),
				zap.Int64("failures", ws.Stats.Failures.Load()),
				zap.Int64("consumed", ws.Stats.Consumed.Load()))
			return nil
		}
	}
}

func loadMap(cfg config.WorldConfig) (*grid.Map, error) {
	if cfg.MapName == "" {
		return grid.NewOpenMap(cfg.Width, cfg.Height), nil
	}
	return grid.LoadMap(cfg.MapList, cfg.TileDir, cfg.MapName)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
