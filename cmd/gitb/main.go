package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gitbgo/server/internal/arena"
	"github.com/gitbgo/server/internal/command"
	"github.com/gitbgo/server/internal/config"
	"github.com/gitbgo/server/internal/console"
	"github.com/gitbgo/server/internal/core/entity"
	"github.com/gitbgo/server/internal/core/event"
	"github.com/gitbgo/server/internal/core/sched"
	coresys "github.com/gitbgo/server/internal/core/system"
	"github.com/gitbgo/server/internal/data"
	"github.com/gitbgo/server/internal/persist"
	"github.com/gitbgo/server/internal/scripting"
	"github.com/gitbgo/server/internal/system"
	"github.com/gitbgo/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m          Games In The Box  v0.1.0         \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m          minigame arena coordinator       \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mServer:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config; a missing file means built-in defaults.
	cfgPath := "config/server.toml"
	if p := os.Getenv("GITB_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Storage
	printSection("Storage")
	deps := arena.Deps{Log: log, Players: arena.NewPlayers()}
	var (
		board     command.Leaderboard
		rewardLog command.RewardLog
	)

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	db, err := persist.Open(openCtx, cfg.Database, log)
	switch {
	case errors.Is(err, persist.ErrDisabled):
		printOK("persistence disabled")
	case err != nil:
		return fmt.Errorf("database: %w", err)
	default:
		defer db.Close()
		printOK(fmt.Sprintf("%s connected", db.Dialect()))
		if err := persist.RunMigrations(openCtx, db); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")
		rounds, rewards := persist.NewRoundRepo(db), persist.NewRewardRepo(db)
		deps.Rounds, deps.Rewards = rounds, rewards
		board, rewardLog = rounds, rewards
	}
	fmt.Println()

	// 4. Data and scripts
	printSection("Data")
	table, err := data.LoadArenaTable(cfg.Game.ArenasFile)
	if err != nil {
		return fmt.Errorf("load arenas: %w", err)
	}
	printStat("Arenas", table.Count())
	printStat("Planners", len(table.Planners()))

	scripts, err := scripting.NewEngine(cfg.Game.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer scripts.Close()
	printOK("Lua engine ready")
	fmt.Println()

	// 5. World and region workers
	printSection("World")
	worldState := world.NewState(cfg.Scheduler.RegionSize, log)
	scheduler := sched.NewRegionScheduler(cfg.Scheduler.RegionSize, cfg.Scheduler.QueueCapacity, log)
	if cfg.Game.PreloadRegions {
		preloadRegions(worldState, table, log)
	}
	printStat("Loaded regions", worldState.LoadedRegionCount())

	bus := event.NewBus()
	subscribeLogging(bus, log)

	deps.World = worldState
	deps.Bridge = scheduler
	deps.Scripts = scripts
	deps.Bus = bus
	manager, err := arena.NewManager(table, deps)
	if err != nil {
		scheduler.Close()
		return err
	}
	fmt.Println()

	// 6. Console and systems
	cons := console.New(32, log)
	dispatcher := command.NewDispatcher(manager, worldState, board, rewardLog, log)

	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(ctx, cons.Requests(), dispatcher, 16, log))
	runner.Register(system.NewEventDispatchSystem(bus))
	manager.Register(runner)
	runner.Register(system.NewStatusSystem(worldState, scheduler, cfg.Game.StatusInterval, log))

	g, gctx := errgroup.WithContext(ctx)

	printSection("Ready")
	if cfg.Console.BindAddress != "" {
		srv, err := console.NewServer(cfg.Console.BindAddress, cons, log)
		if err != nil {
			scheduler.Close()
			return err
		}
		g.Go(func() error { return srv.Serve(gctx) })
		printReady(fmt.Sprintf("console listening on %s", srv.Addr()))
	}
	if cfg.Console.Stdin {
		// Not part of the group: a read from stdin cannot be interrupted.
		go func() {
			if err := cons.ServeReader(gctx, "stdin", os.Stdin, os.Stdout); err != nil {
				log.Warn("stdin console stopped", zap.Error(err))
			}
		}()
		printReady("console reading stdin")
	}
	g.Go(func() error { return gameLoop(gctx, runner, cfg.Game.TickRate) })
	printReady(fmt.Sprintf("game loop running (tick: %s)", cfg.Game.TickRate))
	fmt.Println()

	err = g.Wait()
	log.Info("shutting down")

	// 7. The game loop has stopped, so arenas can be touched from here.
	shutdown(manager, scheduler, cfg.Game.ClearTimeout, log)
	log.Info("server stopped")
	return err
}

func gameLoop(ctx context.Context, runner *coresys.Runner, tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runner.Tick(tick)
		case <-ctx.Done():
			return nil
		}
	}
}

// shutdown gives running clears a bounded time on the region workers, then
// forces whatever is left.
func shutdown(manager *arena.Manager, scheduler *sched.RegionScheduler, timeout time.Duration, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := manager.ClearAll().Wait(ctx); err != nil {
		log.Warn("graceful clear incomplete, forcing", zap.Error(err))
	}
	manager.Shutdown()
	scheduler.Close()
}

// preloadRegions loads every region an arena spawns into or shows a
// hologram in.
func preloadRegions(ws *world.State, table *data.ArenaTable, log *zap.Logger) {
	for _, a := range table.Arenas() {
		for _, loc := range a.SpawnPoints {
			ws.LoadRegion(loc)
		}
		for _, h := range a.Hologram {
			loc, err := entity.ParseLocation(h.Location)
			if err != nil {
				log.Warn("bad hologram location", zap.String("arena", a.Name), zap.Error(err))
				continue
			}
			ws.LoadRegion(loc)
		}
	}
}

func subscribeLogging(bus *event.Bus, log *zap.Logger) {
	event.Subscribe(bus, func(e event.RoundStarted) {
		log.Debug("round started event", zap.String("arena", e.Arena), zap.Stringer("round", e.RoundID))
	})
	event.Subscribe(bus, func(e event.RoundEnded) {
		log.Info("round results", zap.String("arena", e.Arena), zap.Stringer("round", e.RoundID), zap.Int("ranked", len(e.Winners)))
	})
	event.Subscribe(bus, func(e event.EntitySpawned) {
		log.Debug("entity spawned", zap.String("arena", e.Arena), zap.Uint64("entity", uint64(e.EntityID)), zap.Stringer("location", e.Location))
	})
	event.Subscribe(bus, func(e event.PointChanged) {
		log.Debug("points changed", zap.String("arena", e.Arena), zap.Stringer("player", e.Player), zap.Int("delta", e.Delta), zap.Int("total", e.Total))
	})
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

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
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
