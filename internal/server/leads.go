package server

import (
	"encoding/json"
	"net/http"

	"github.com/hrtaj/hrtaj-cli/internal/lead"
)

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid request body.")
		return false
	}
	return true
}

func (s *Server) scoreLead(w http.ResponseWriter, r *http.Request) {
	var req lead.ScoreRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.svc.Leads.Score(r.Context(), req)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeOK(w, res)
}

func (s *Server) routeLead(w http.ResponseWriter, r *http.Request) {
	req := lead.RouteRequest{WindowHours: 24}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.LeadID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "lead_id is required.")
		return
	}
	res, err := s.svc.Leads.Route(r.Context(), req)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeOK(w, res)
}

func (s *Server) slaBreached(w http.ResponseWriter, r *http.Request) {
	minutes, ok := queryInt(w, r, "minutes", 90)
	if !ok {
		return
	}
	breached, err := s.svc.Leads.SLABreached(r.Context(), minutes)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"breached": breached, "minutes": minutes})
}
