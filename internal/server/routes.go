package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lazypower/warmth/internal/engine"
	"github.com/lazypower/warmth/internal/warmth"
)

func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID           string   `json:"id"`
		DisplayName  string   `json:"display_name"`
		Mode         string   `json:"mode"`
		InitialScore *float64 `json:"initial_score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	p, err := s.engine.Provision(r.Context(), engine.ProvisionRequest{
		ID:           req.ID,
		DisplayName:  req.DisplayName,
		Mode:         req.Mode,
		InitialScore: req.InitialScore,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           p.Contact.ID,
		"display_name": p.Contact.DisplayName,
		"created_at":   p.Contact.CreatedAt,
		"mode":         p.Anchor.Mode,
		"score":        p.Anchor.Score,
		"band":         warmth.Classify(p.Anchor.Score),
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Delete(r.Context(), chi.URLParam(r, "contactID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	reading, err := s.engine.Current(r.Context(), chi.URLParam(r, "contactID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"contact_id": reading.ContactID,
		"score":      reading.Score,
		"band":       reading.Band,
		"mode":       reading.Mode,
		"cached_at":  reading.ComputedAt,
		"cached":     reading.Cached,
	})
}

func (s *Server) handleSwitchMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	res, err := s.engine.SwitchMode(r.Context(), chi.URLParam(r, "contactID"), req.Mode)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mode_before":  res.ModeBefore,
		"mode_after":   res.ModeAfter,
		"score_before": res.ScoreBefore,
		"score_after":  res.ScoreAfter,
		"band_after":   res.BandAfter,
		"changed":      res.Changed,
		"at":           res.At,
	})
}

func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind   string  `json:"kind"`
		Points float64 `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	interaction, err := warmth.ParseInteraction(req.Kind, req.Points)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.engine.Absorb(r.Context(), chi.URLParam(r, "contactID"), interaction)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mode":         res.Mode,
		"score_before": res.ScoreBefore,
		"score_after":  res.ScoreAfter,
		"band_after":   res.BandAfter,
		"anchor_at":    res.At,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window := q.Get("window")
	if window == "" && q.Get("start") == "" {
		window = "30d"
	}

	win, err := engine.ParseWindow(window, q.Get("start"), q.Get("end"), q.Get("step"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	snaps, err := s.engine.History(r.Context(), chi.URLParam(r, "contactID"), win)
	if err != nil {
		writeError(w, r, err)
		return
	}

	points := make([]map[string]any, 0, len(snaps))
	for _, sn := range snaps {
		points = append(points, map[string]any{
			"timestamp": sn.At.Format(time.RFC3339Nano),
			"score":     sn.Score,
			"band":      sn.Band(),
			"mode":      sn.Mode,
			"source":    sn.Source,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contact_id": chi.URLParam(r, "contactID"),
		"points":     points,
	})
}
