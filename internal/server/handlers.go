package server

import (
	"net/http"

	"gramfix/internal/platform/bind"
)

type correctRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Grammar + Spell Correction API is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCorrect serves both the legacy /spellcheck route and /api/v1/correct.
func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	req, err := bind.ParseJSON[correctRequest](r, bind.JSONOptions{MaxBytes: s.opt.MaxBodyBytes})
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.corrector.Correct(r.Context(), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
