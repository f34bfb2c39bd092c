package main

import (
	"context"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/logger"
	"github.com/joho/godotenv"

	"github.com/Ashenafi-pixel/raffle-wheel/config"
	"github.com/Ashenafi-pixel/raffle-wheel/kiosk"
	"github.com/Ashenafi-pixel/raffle-wheel/ledger"
	"github.com/Ashenafi-pixel/raffle-wheel/server"
	"github.com/Ashenafi-pixel/raffle-wheel/sound"
	"github.com/Ashenafi-pixel/raffle-wheel/wheel"
)

const janitorInterval = 10 * time.Minute

func main() {
	// Load .env so DATABASE_URL and BACKEND_* are set: cwd .env or project root .env/.env.local
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	_ = godotenv.Load("../.env.local")

	defer logger.Init("raffle", true, false, io.Discard).Close()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := wheel.LoadCatalog(cfg.TiersFile)
	if err != nil {
		logger.Fatalf("load tiers: %v", err)
	}
	if _, err := catalog.Get(cfg.DefaultTier); err != nil {
		logger.Fatalf("default tier: %v", err)
	}

	l, rec, err := ledger.Open(ctx, cfg, catalog)
	if err != nil {
		logger.Fatalf("open ledger: %v", err)
	}

	sounds := sound.NewCache(sound.Config{Volume: cfg.SoundVolume})
	if err := sounds.Preload(); err != nil {
		logger.Fatalf("render sounds: %v", err)
	}

	kiosks := kiosk.NewManager(catalog, kiosk.NewStateStore(cfg.DataDir), kiosk.Config{
		DefaultTier:   cfg.DefaultTier,
		Duration:      cfg.SpinDuration,
		FullRotations: cfg.FullRotations,
		Recorder:      rec,
	})
	defer kiosks.Close()
	go janitor(ctx, kiosks, cfg.IdleTimeout)

	srv := server.New(cfg, server.Deps{
		Catalog: catalog,
		Kiosks:  kiosks,
		Ledger:  l,
		Sounds:  sounds,
	})
	if err := srv.Run(ctx); err != nil {
		logger.Fatal(err)
	}
	logger.Info("raffle stopped")
}

// janitor closes kiosks that have been idle longer than maxIdle.
func janitor(ctx context.Context, kiosks *kiosk.Manager, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	t := time.NewTicker(janitorInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := kiosks.CleanUpInactive(maxIdle); n > 0 {
				logger.Infof("closed %d idle kiosks", n)
			}
		}
	}
}
