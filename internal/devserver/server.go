// Package devserver is an in-process implementation of the trial-matching
// service backed by SQLite. Extraction, ranking and answers are keyword
// heuristics over the trial catalog.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rcliao/trialscout/internal/model"
	"github.com/rcliao/trialscout/internal/store"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// Options configures a Server.
type Options struct {
	Logger   *slog.Logger
	Registry *prometheus.Registry
}

// Server serves the trial-matching API.
type Server struct {
	store    store.Store
	logger   *slog.Logger
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	mux      *http.ServeMux
}

// New creates a server over st.
func New(st store.Store, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		store:    st,
		logger:   logger,
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trialscout",
			Subsystem: "devserver",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "trialscout",
			Subsystem: "devserver",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		mux: http.NewServeMux(),
	}
	reg.MustRegister(s.requests, s.duration)

	s.mux.HandleFunc("GET /{$}", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/transcripts", s.handleUpload)
	s.mux.HandleFunc("GET /api/v1/transcripts/{id}", s.handleGetNotes)
	s.mux.HandleFunc("GET /api/v1/transcripts/{id}/trials/ranking", s.handleRanking)
	s.mux.HandleFunc("GET /api/v1/trials/saved", s.handleListSaved)
	s.mux.HandleFunc("POST /api/v1/trials/ask_ai", s.handleAsk)
	s.mux.HandleFunc("GET /api/v1/trials/{nct_id}", s.handleDetail)
	s.mux.HandleFunc("POST /api/v1/trials/{nct_id}/save", s.handleSave)
	s.mux.HandleFunc("DELETE /api/v1/trials/{nct_id}/save", s.handleRemove)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return s
}

// Handler returns the server's HTTP handler with logging and metrics.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.mux.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.duration.WithLabelValues(route).Observe(elapsed.Seconds())
		s.logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", elapsed))
	})
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("dev server listening", slog.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req model.TranscriptRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		writeError(w, http.StatusBadRequest, "transcript is required")
		return
	}

	ctx := r.Context()
	catalog, err := s.store.ListTrials(ctx)
	if err != nil {
		s.internal(w, "list trials", err)
		return
	}
	patient := extract(req.Transcript, newVocabulary(catalog))

	trials, err := s.store.SearchTrials(ctx, store.SearchParams{
		Terms: append(append([]string{}, patient.Conditions...), patient.Interventions...),
	})
	if err != nil {
		s.internal(w, "search trials", err)
		return
	}
	ids := make([]string, len(trials))
	for i, t := range trials {
		ids[i] = t.NCTID
	}

	notes, err := s.store.PutNotes(ctx, store.PutNotesParams{
		Transcript: req.Transcript,
		Patient:    patient,
		TrialIDs:   ids,
	})
	if err != nil {
		s.internal(w, "store notes", err)
		return
	}
	s.logger.Debug("transcript uploaded",
		slog.String("clinical_notes_id", notes.ID),
		slog.Int("trials", len(ids)))
	writeJSON(w, http.StatusCreated, clinicalNotes(notes, trials))
}

func (s *Server) handleGetNotes(w http.ResponseWriter, r *http.Request) {
	notes, trials, ok := s.loadNotes(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, clinicalNotes(notes, trials))
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	notes, trials, ok := s.loadNotes(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, model.RankingResponse{Trials: rank(notes.Patient, trials)})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	d, ok := s.loadTrial(w, r, r.PathValue("nct_id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req model.AskRequest
	if !decode(w, r, &req) {
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	notes, _, ok := s.loadNotes(w, r, req.ClinicalNotesID)
	if !ok {
		return
	}
	d, ok := s.loadTrial(w, r, req.NCTID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, model.AIAnswer{
		NCTID:  d.NCTID,
		Query:  query,
		Answer: answer(*d, notes.Patient, query),
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	d, ok := s.loadTrial(w, r, r.PathValue("nct_id"))
	if !ok {
		return
	}
	created, err := s.store.SaveTrial(r.Context(), *d)
	if err != nil {
		s.internal(w, "save trial", err)
		return
	}
	msg := "Trial saved"
	if !created {
		msg = "Trial already saved"
	}
	writeJSON(w, http.StatusOK, model.SaveResponse{Message: msg, NCTID: d.NCTID})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("nct_id")
	err := s.store.RemoveSaved(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Trial "+id+" is not saved")
		return
	}
	if err != nil {
		s.internal(w, "remove saved trial", err)
		return
	}
	writeJSON(w, http.StatusOK, model.SaveResponse{Message: "Trial removed", NCTID: id})
}

func (s *Server) handleListSaved(w http.ResponseWriter, r *http.Request) {
	saved, err := s.store.ListSaved(r.Context())
	if err != nil {
		s.internal(w, "list saved trials", err)
		return
	}
	trials := make([]model.TrialDetail, len(saved))
	for i, st := range saved {
		trials[i] = st.Detail
	}
	writeJSON(w, http.StatusOK, model.SavedTrialsResponse{Trials: trials})
}

// loadNotes fetches notes and their catalog trials, writing a 404 or 500
// when it fails. Trials dropped from the catalog since upload are skipped.
func (s *Server) loadNotes(w http.ResponseWriter, r *http.Request, id string) (*store.Notes, []model.TrialDetail, bool) {
	notes, err := s.store.GetNotes(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Clinical notes "+id+" not found")
		return nil, nil, false
	}
	if err != nil {
		s.internal(w, "get clinical notes", err)
		return nil, nil, false
	}
	trials := make([]model.TrialDetail, 0, len(notes.TrialIDs))
	for _, tid := range notes.TrialIDs {
		d, err := s.store.GetTrial(r.Context(), tid)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			s.internal(w, "get trial", err)
			return nil, nil, false
		}
		trials = append(trials, *d)
	}
	return notes, trials, true
}

func (s *Server) loadTrial(w http.ResponseWriter, r *http.Request, id string) (*model.TrialDetail, bool) {
	d, err := s.store.GetTrial(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Trial "+id+" not found")
		return nil, false
	}
	if err != nil {
		s.internal(w, "get trial", err)
		return nil, false
	}
	return d, true
}

func (s *Server) internal(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op, slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, op+" failed")
}

func clinicalNotes(n *store.Notes, trials []model.TrialDetail) model.ClinicalNotes {
	records := make([]model.TrialRecord, len(trials))
	for i, t := range trials {
		records[i] = t.Record()
	}
	return model.ClinicalNotes{
		ClinicalNotesID:  n.ID,
		PatientData:      n.Patient,
		Trials:           records,
		CreatedAt:        n.CreatedAt.Format(time.RFC3339),
		TotalTrialsFound: len(records),
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a FastAPI-style {"detail": "..."} body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
