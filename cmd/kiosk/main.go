// Command kiosk runs one branch's prize wheel in a terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/google/logger"
	"github.com/joho/godotenv"

	"github.com/Ashenafi-pixel/raffle-wheel/config"
	"github.com/Ashenafi-pixel/raffle-wheel/kiosk"
	"github.com/Ashenafi-pixel/raffle-wheel/ledger"
	"github.com/Ashenafi-pixel/raffle-wheel/sound"
	"github.com/Ashenafi-pixel/raffle-wheel/spin"
	"github.com/Ashenafi-pixel/raffle-wheel/wheel"
)

const frameInterval = 33 * time.Millisecond

type app struct {
	screen tcell.Screen
	kiosks *kiosk.Manager
	branch string
	tiers  []wheel.Tier
	cues   chan sound.Cue
	view   view
}

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "data dir: %v\n", err)
		os.Exit(1)
	}
	// The terminal belongs to the wheel, so logs go to a file only.
	logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "kiosk.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	defer logger.Init("raffle-kiosk", false, false, logFile).Close()

	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kiosk: %v\n", err)
		os.Exit(1)
	}
	defer a.cleanup()
	a.run()
}

func newApp(cfg *config.Config) (*app, error) {
	catalog, err := wheel.LoadCatalog(cfg.TiersFile)
	if err != nil {
		return nil, err
	}
	_, rec, err := ledger.Open(context.Background(), cfg, catalog)
	if err != nil {
		return nil, err
	}
	a := &app{
		branch: cfg.Branch,
		tiers:  catalog.List(),
		cues:   make(chan sound.Cue, 16),
	}
	a.kiosks = kiosk.NewManager(catalog, kiosk.NewStateStore(cfg.DataDir), kiosk.Config{
		DefaultTier:   cfg.DefaultTier,
		Duration:      cfg.SpinDuration,
		FullRotations: cfg.FullRotations,
		Recorder:      rec,
		Notifier:      spin.NotifierFunc(a.notify),
	})
	if _, err := a.kiosks.Open(a.branch); err != nil {
		a.kiosks.Close()
		return nil, err
	}

	a.screen, err = tcell.NewScreen()
	if err != nil {
		a.kiosks.Close()
		return nil, err
	}
	if err := a.screen.Init(); err != nil {
		a.kiosks.Close()
		return nil, err
	}
	return a, nil
}

// notify runs on timer goroutines; the main loop owns the screen.
func (a *app) notify(c sound.Cue) {
	select {
	case a.cues <- c:
	default:
	}
}

func (a *app) run() {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !a.handleInput(ev) {
				return
			}
		case c := <-a.cues:
			a.onCue(c)
		case <-ticker.C:
			a.redraw(a.screen, time.Now())
			a.screen.Show()
		}
	}
}

func (a *app) onCue(c sound.Cue) {
	switch c {
	case sound.CueWin, sound.CueJackpot:
		a.screen.Beep()
		a.view.flash = 30
	case sound.CueMiss:
		a.view.flash = 0
	}
}

func (a *app) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		switch {
		case ev.Key() == tcell.KeyEnter:
			a.spin()
		case ev.Key() == tcell.KeyRune:
			a.handleRune(ev.Rune())
		}
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *app) handleRune(r rune) {
	switch {
	case r == ' ':
		a.spin()
	case r == 'r' || r == 'R':
		_, err := a.kiosks.Reset(a.branch)
		a.setMessage(err)
	case r >= '1' && r <= '9':
		a.selectTier(int(r - '1'))
	}
}

func (a *app) spin() {
	_, err := a.kiosks.Spin(a.branch)
	a.setMessage(err)
}

func (a *app) selectTier(i int) {
	if i >= len(a.tiers) {
		return
	}
	_, err := a.kiosks.SelectTier(a.branch, a.tiers[i].ID)
	a.setMessage(err)
}

func (a *app) redraw(c canvas, now time.Time) {
	snap, rot, err := a.kiosks.Snapshot(a.branch, now)
	if err != nil {
		a.setMessage(err)
		return
	}
	a.view.draw(c, a.tiers, snap, rot)
}

func (a *app) setMessage(err error) {
	if err != nil {
		a.view.message = err.Error()
		return
	}
	a.view.message = ""
}

func (a *app) cleanup() {
	a.kiosks.Close()
	a.screen.Fini()
}
