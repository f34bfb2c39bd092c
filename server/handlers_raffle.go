package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/logger"

	"github.com/Ashenafi-pixel/raffle-wheel/round"
	"github.com/Ashenafi-pixel/raffle-wheel/sound"
	"github.com/Ashenafi-pixel/raffle-wheel/spin"
	"github.com/Ashenafi-pixel/raffle-wheel/wheel"
)

const (
	defaultWinsLimit = 200
	maxWinsLimit     = 1000
)

// tierView adds each prize's odds to the tier.
type tierView struct {
	wheel.Tier
	Odds []float64 `json:"odds"`
}

func (s *Server) listTiers(w http.ResponseWriter, r *http.Request) {
	tiers := s.catalog.List()
	out := make([]tierView, 0, len(tiers))
	for i := range tiers {
		out = append(out, tierView{Tier: tiers[i], Odds: tiers[i].Probability()})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tiers": out})
}

// putTier registers or replaces a tier. The URL id wins over the body's.
func (s *Server) putTier(w http.ResponseWriter, r *http.Request) {
	var t wheel.Tier
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "bad_request")
		return
	}
	id := chi.URLParam(r, "tierID")
	if t.ID != "" && t.ID != id {
		writeError(w, http.StatusBadRequest, "tier id does not match URL", "bad_request")
		return
	}
	t.ID = id
	if err := s.catalog.Register(t); err != nil {
		writeRaffleError(w, err)
		return
	}
	logger.Infof("tier %s registered with %d prizes", t.ID, len(t.Prizes))
	writeJSON(w, http.StatusOK, tierView{Tier: t, Odds: t.Probability()})
}

func (s *Server) listKiosks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"branches": s.kiosks.Branches()})
}

type kioskResponse struct {
	spin.Snapshot
	DisplayRotation float64 `json:"displayRotation"`
}

func (s *Server) getKiosk(w http.ResponseWriter, r *http.Request) {
	snap, rot, err := s.kiosks.Snapshot(chi.URLParam(r, "branch"), s.now())
	if err != nil {
		writeRaffleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, kioskResponse{Snapshot: snap, DisplayRotation: rot})
}

type selectTierRequest struct {
	TierID string `json:"tierId"`
}

func (s *Server) selectTier(w http.ResponseWriter, r *http.Request) {
	var req selectTierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.TierID) == "" {
		writeError(w, http.StatusBadRequest, "tierId required", "bad_request")
		return
	}
	snap, err := s.kiosks.SelectTier(chi.URLParam(r, "branch"), req.TierID)
	if err != nil {
		writeRaffleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) spin(w http.ResponseWriter, r *http.Request) {
	plan, err := s.kiosks.Spin(chi.URLParam(r, "branch"))
	if err != nil {
		writeRaffleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	snap, err := s.kiosks.Reset(chi.URLParam(r, "branch"))
	if err != nil {
		writeRaffleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) listWins(w http.ResponseWriter, r *http.Request) {
	q := round.Query{
		Branch: r.URL.Query().Get("branch"),
		Tier:   r.URL.Query().Get("tier"),
		Limit:  defaultWinsLimit,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", "bad_request")
			return
		}
		q.Limit = min(n, maxWinsLimit)
	}
	wins, err := s.ledger.List(r.Context(), q)
	if err != nil {
		logger.Errorf("list wins: %v", err)
		writeError(w, http.StatusBadGateway, "win ledger unavailable", "ledger_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"wins": wins})
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	wins, err := s.ledger.List(r.Context(), round.Query{Branch: r.URL.Query().Get("branch")})
	if err != nil {
		logger.Errorf("summary: %v", err)
		writeError(w, http.StatusBadGateway, "win ledger unavailable", "ledger_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, round.Summarize(wins))
}

func (s *Server) soundCue(w http.ResponseWriter, r *http.Request) {
	data, err := s.sounds.WAV(sound.Cue(chi.URLParam(r, "cue")))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown sound", "not_found")
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
