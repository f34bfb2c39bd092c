package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/logger"

	"github.com/Ashenafi-pixel/raffle-wheel/config"
	"github.com/Ashenafi-pixel/raffle-wheel/kiosk"
	"github.com/Ashenafi-pixel/raffle-wheel/round"
	"github.com/Ashenafi-pixel/raffle-wheel/sound"
	"github.com/Ashenafi-pixel/raffle-wheel/wheel"
)

// Deps are the collaborators the HTTP layer serves.
type Deps struct {
	Catalog *wheel.Catalog
	Kiosks  *kiosk.Manager
	Ledger  round.Ledger
	Sounds  *sound.Cache
	Now     func() time.Time
}

type Server struct {
	cfg     *config.Config
	catalog *wheel.Catalog
	kiosks  *kiosk.Manager
	ledger  round.Ledger
	sounds  *sound.Cache
	now     func() time.Time
}

func New(cfg *config.Config, deps Deps) *Server {
	if deps.Ledger == nil {
		deps.Ledger = round.Discard{}
	}
	if deps.Sounds == nil {
		deps.Sounds = sound.NewCache(sound.Config{Volume: cfg.SoundVolume})
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Server{
		cfg:     cfg,
		catalog: deps.Catalog,
		kiosks:  deps.Kiosks,
		ledger:  deps.Ledger,
		sounds:  deps.Sounds,
		now:     deps.Now,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           60 * 15,
	}))
	r.Use(requestLogger)

	r.Get("/health", s.health)
	r.Route("/raffle", func(rr chi.Router) {
		rr.Get("/tiers", s.listTiers)
		rr.Get("/sounds/{cue}.wav", s.soundCue)

		rr.Route("/kiosks", func(k chi.Router) {
			k.Get("/", s.listKiosks)
			k.Get("/{branch}", s.getKiosk)
			k.Post("/{branch}/tier", s.selectTier)
			k.Post("/{branch}/spin", s.spin)
			k.Post("/{branch}/reset", s.reset)
		})

		rr.Route("/admin", func(a chi.Router) {
			a.Put("/tiers/{tierID}", s.putTier)
			a.Get("/wins", s.listWins)
			a.Get("/summary", s.summary)
		})
	})
	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	port := s.cfg.Port
	if port <= 0 {
		port = 8081
	}
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("raffle listening on %s (recorder: %s)", srv.Addr, s.cfg.Recorder)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestLogger logs method and path for each request (no body or secrets).
func requestLogger(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Infof("raffle %s %s", r.Method, r.URL.Path)
		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "raffle"})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
