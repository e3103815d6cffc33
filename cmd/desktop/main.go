package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/sirupsen/logrus"

	"tileworld/internal/app"
	"tileworld/internal/config"
	"tileworld/internal/diag"
	"tileworld/internal/game"
	"tileworld/internal/host/ebitenhost"
	"tileworld/internal/logger"
	"tileworld/internal/maps"
	"tileworld/internal/nav"
	"tileworld/internal/render"
)

const (
	windowW = 1280
	windowH = 800
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	scene := flag.String("scene", "", "scene to open instead of the configured default")
	player := flag.String("player", os.Getenv("USER"), "player name used for the saved session")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if *scene != "" {
		cfg.DefaultScene = *scene
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog := app.Catalog(cfg, log)
	sheet := app.Sheet(cfg, log)
	loader, st, err := app.Loader(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Scene store unavailable")
	}
	if st != nil {
		defer st.Close()
	}

	rec := render.NewRecorder()
	var eng *game.Engine
	pathfinder := nav.New(func() *maps.OccupancyGrid { return eng.World().Grid }, game.WalkSpeed, log)
	opts := []game.Option{
		game.WithCompositor(rec),
		game.WithLighting(rec, rec),
		game.WithPathfinder(pathfinder),
	}
	if st != nil && *player != "" {
		opts = append(opts, game.WithSession(st.Session(*player)))
	}
	if cfg.Diag.Addr != "" {
		hub := diag.NewHub(log)
		go func() {
			if err := hub.ListenAndServe(ctx, cfg.Diag.Addr); err != nil {
				log.WithError(err).Error("Diagnostics listener stopped")
			}
		}()
		opts = append(opts, game.WithDiagnostics(hub))
	}

	eng = game.NewEngine(game.EngineConfig{
		Session:         uuid.NewString(),
		Player:          *player,
		Catalog:         catalog,
		Loader:          loader,
		Sheet:           sheet,
		ScreenW:         windowW,
		ScreenH:         windowH,
		Zoom:            cfg.Sim.Zoom * 2,
		StartHour:       12,
		ClockMultiplier: cfg.Sim.ClockMultiplier,
		Log:             log,
	}, opts...)
	defer eng.Close()
	eng.Boot(ctx, cfg.DefaultScene)

	loop := game.NewLoop(eng, game.LoopConfig{
		Step:         cfg.Sim.Step(),
		Stall:        cfg.Sim.Stall(),
		DiagInterval: cfg.Sim.DiagInterval(),
	}, log)
	host := ebitenhost.New(eng, loop, rec, sheet, log)

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowTitle("tileworld")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	// keep Update running in the background so the host sees focus loss
	ebiten.SetRunnableOnUnfocused(true)

	log.WithField("scene", eng.World().SceneID()).Info("Starting desktop host")
	if err := ebiten.RunGame(host); err != nil {
		log.WithError(err).Fatal("Desktop host stopped")
	}
}
