// Package httpapi exposes ingestion, search, accounts and alerts over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/newsradar/newsradar/internal/ingest"
	"github.com/newsradar/newsradar/internal/monitor"
	"github.com/newsradar/newsradar/internal/search"
	"github.com/newsradar/newsradar/internal/user"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

type ingester interface {
	Run(ctx context.Context, limitPerFeed int) (*ingest.Run, error)
}

type searcher interface {
	Search(ctx context.Context, req search.Request) search.Response
}

type accounts interface {
	NormalizeEmail(email string) (string, error)
	Login(ctx context.Context, email string) (user.User, bool, error)
	SetWatchlist(ctx context.Context, email string, topics []string) ([]string, error)
}

type alertLister interface {
	ListAlerts(ctx context.Context, email string, limit int) ([]monitor.Alert, error)
}

type Server struct {
	ingest   ingester
	search   searcher
	accounts accounts
	alerts   alertLister
	logger   *log.Logger
}

func New(ing ingester, srch searcher, acc accounts, alerts alertLister, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		ingest:   ing,
		search:   srch,
		accounts: acc,
		alerts:   alerts,
		logger:   logger,
	}
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/ingest/run", s.handleIngestRun).Methods(http.MethodPost)
	r.HandleFunc("/articles/search", s.handleSearch).Methods(http.MethodGet)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/user/watchlist", s.handleWatchlist).Methods(http.MethodPost)
	r.HandleFunc("/alerts", s.handleAlerts).Methods(http.MethodGet)
	return r
}

// NewHTTPServer wraps the router with sane timeouts. Ingestion runs can be
// long, so the write timeout is left to the run timeout.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Printf("http: %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleIngestRun(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit_per_feed"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit_per_feed must be a non-negative integer")
			return
		}
		limit = n
	}

	run, err := s.ingest.Run(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "ingestion cancelled")
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := search.ParseRequest(r.URL.Query())
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, search.Response{Results: []search.ArticleView{}, Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, s.search.Search(r.Context(), req))
}

type userView struct {
	Email     string   `json:"email"`
	Watchlist []string `json:"watchlist"`
}

type loginRequest struct {
	Email string `json:"email"`
}

type loginResponse struct {
	Status string   `json:"status"`
	User   userView `json:"user"`
	New    bool     `json:"new"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !s.decode(w, r, &body) {
		return
	}

	u, created, err := s.accounts.Login(r.Context(), body.Email)
	if err != nil {
		s.writeUserError(w, err)
		return
	}

	watchlist := u.Watchlist
	if watchlist == nil {
		watchlist = []string{}
	}
	s.writeJSON(w, http.StatusOK, loginResponse{
		Status: "success",
		User:   userView{Email: u.Email, Watchlist: watchlist},
		New:    created,
	})
}

type watchlistRequest struct {
	Email     string   `json:"email"`
	Watchlist []string `json:"watchlist"`
}

type watchlistResponse struct {
	Status    string   `json:"status"`
	Watchlist []string `json:"watchlist"`
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	var body watchlistRequest
	if !s.decode(w, r, &body) {
		return
	}

	topics, err := s.accounts.SetWatchlist(r.Context(), body.Email, body.Watchlist)
	if err != nil {
		s.writeUserError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, watchlistResponse{Status: "updated", Watchlist: topics})
}

type alertsResponse struct {
	Count  int             `json:"count"`
	Alerts []monitor.Alert `json:"alerts"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	email, err := s.accounts.NormalizeEmail(q.Get("email"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 20
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	alerts, err := s.alerts.ListAlerts(r.Context(), email, limit)
	if err != nil {
		s.logger.Printf("http: list alerts for %s: %v", email, err)
		s.writeError(w, http.StatusInternalServerError, "alerts temporarily unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, alertsResponse{Count: len(alerts), Alerts: alerts})
}

func (s *Server) writeUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrInvalidEmail), errors.Is(err, user.ErrInvalidWatchlist):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Printf("http: %v", err)
		s.writeError(w, http.StatusInternalServerError, "user store unavailable")
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("http: encode response: %v", err)
	}
}
