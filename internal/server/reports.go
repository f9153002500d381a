package server

import "net/http"

func (s *Server) dailyReport(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(w, r, "days", 7)
	if !ok {
		return
	}
	daily, err := s.svc.Reports.Daily(r.Context(), days)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeOK(w, daily)
}

func (s *Server) pipelineReport(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(w, r, "days", 30)
	if !ok {
		return
	}
	pipeline, err := s.svc.Reports.Pipeline(r.Context(), days)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeOK(w, pipeline)
}
