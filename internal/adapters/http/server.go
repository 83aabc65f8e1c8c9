package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"inquest/internal/domain"
	"inquest/internal/ports"
	investsvc "inquest/internal/services/investigation"
)

type Server struct {
	invest *investsvc.Service
	ti     ports.Correlator
	benign ports.BenignChecker
	log    zerolog.Logger
}

func New(invest *investsvc.Service, ti ports.Correlator, benign ports.BenignChecker, log zerolog.Logger) *Server {
	return &Server{invest: invest, ti: ti, benign: benign, log: log.With().Str("component", "http").Logger()}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.getHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/investigations", s.postInvestigation)
	r.Get("/jobs/{id}", s.getJob)
	r.Delete("/jobs/{id}", s.deleteJob)

	r.Get("/benign/{hash}", s.getBenign)
	r.Post("/benign/refresh", s.postBenignRefresh)

	r.Post("/ti/hashes", s.postHashes)
	r.Post("/ti/ips", s.postIPs)
	r.Post("/ti/techniques", s.postTechniques)
	r.Post("/ti/cves", s.postCves)
	return r
}

func (s *Server) getHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type investigateRequest struct {
	IncidentID string `json:"incident_id"`
	Force      bool   `json:"force"`
}

// postInvestigation runs the pipeline. ?wait=true blocks and returns the
// record; otherwise a job is submitted and 202 returns its id.
func (s *Server) postInvestigation(w http.ResponseWriter, r *http.Request) {
	var req investigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		rec, err := s.invest.Investigate(r.Context(), req.IncidentID, req.Force)
		if err != nil {
			s.writeInvestigateError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}

	jobID, err := s.invest.Submit(req.IncidentID, req.Force)
	if err != nil {
		s.writeInvestigateError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) writeInvestigateError(w http.ResponseWriter, err error) {
	if errors.Is(err, investsvc.ErrMissingIncidentID) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.invest.JobStatus(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	err := s.invest.Cancel(chi.URLParam(r, "id"))
	var cc *investsvc.CannotCancelError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
	case errors.As(err, &cc):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusNotFound, err.Error())
	}
}

func (s *Server) getBenign(w http.ResponseWriter, r *http.Request) {
	res := s.benign.Check(r.Context(), chi.URLParam(r, "hash"))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) postBenignRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.benign.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

type batchRequest struct {
	Hashes     []string `json:"hashes,omitempty"`
	IPs        []string `json:"ips,omitempty"`
	Techniques []string `json:"techniques,omitempty"`
	Cves       []string `json:"cves,omitempty"`
}

func decodeBatch(w http.ResponseWriter, r *http.Request) (batchRequest, bool) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

func (s *Server) postHashes(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBatch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.IndicatorMatch{
		"matches": s.ti.CheckHashes(r.Context(), req.Hashes),
	})
}

func (s *Server) postIPs(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBatch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.IndicatorMatch{
		"matches": s.ti.CheckIPs(r.Context(), req.IPs),
	})
}

func (s *Server) postTechniques(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBatch(w, r)
	if !ok {
		return
	}
	techniques := s.ti.GetTechniques(r.Context(), req.Techniques)
	if techniques == nil {
		techniques = []domain.TechniqueInfo{}
	}
	writeJSON(w, http.StatusOK, map[string][]domain.TechniqueInfo{"techniques": techniques})
}

func (s *Server) postCves(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBatch(w, r)
	if !ok {
		return
	}
	cves := s.ti.GetCves(r.Context(), req.Cves)
	if cves == nil {
		cves = []domain.CveInfo{}
	}
	writeJSON(w, http.StatusOK, map[string][]domain.CveInfo{"cves": cves})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
