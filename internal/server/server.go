// Package server receives URLs shared from other apps and exposes the
// pending-share inbox over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"news-reread/internal/model"
	"news-reread/internal/repository"
	"news-reread/internal/share"
	"news-reread/internal/store"
)

const maxShareBody = 64 << 10

// Shares is the inbox the server fronts.
type Shares interface {
	Receive(ctx context.Context, text string) (*model.PendingShare, error)
	Pending(ctx context.Context, limit int) ([]model.PendingShare, error)
	Confirm(ctx context.Context, id uuid.UUID) (model.Article, error)
	Discard(ctx context.Context, id uuid.UUID) error
}

type Server struct {
	shares Shares
	logger *zap.Logger
	router *mux.Router
	server *http.Server
}

// NewServer serves metrics from gatherer when it is not nil.
func NewServer(shares Shares, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	s := &Server{
		shares: shares,
		logger: logger,
		router: mux.NewRouter(),
	}
	s.routes(gatherer)
	return s
}

func (s *Server) routes(gatherer prometheus.Gatherer) {
	s.router.HandleFunc("/share", s.handleShare).Methods("POST")
	s.router.HandleFunc("/pending", s.handlePending).Methods("GET")
	s.router.HandleFunc("/pending/{id}/confirm", s.handleConfirm).Methods("POST")
	s.router.HandleFunc("/pending/{id}", s.handleDiscard).Methods("DELETE")
	if gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start launches the HTTP server and blocks until it stops.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info("Share server listening", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type shareRequest struct {
	Text string `json:"text"`
}

// handleShare accepts a JSON body {"text": ...} or a "text" form field.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxShareBody)

	var text string
	if r.Header.Get("Content-Type") == "application/json" {
		var req shareRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		text = req.Text
	} else {
		text = r.FormValue("text")
	}

	sh, err := s.shares.Receive(r.Context(), text)
	if errors.Is(err, share.ErrNoURL) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	} else if err != nil {
		s.logger.Error("Failed to receive share", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store share")
		return
	}
	writeJSON(w, http.StatusCreated, sh)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	shares, err := s.shares.Pending(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list shares", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list shares")
		return
	}
	if shares == nil {
		shares = []model.PendingShare{}
	}
	writeJSON(w, http.StatusOK, shares)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	a, err := s.shares.Confirm(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, a)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrUnsupportedInLocalMode):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("Failed to confirm share", zap.String("share_id", id.String()), zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to save article")
	}
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	err := s.shares.Discard(r.Context(), id)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("Failed to discard share", zap.String("share_id", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to discard share")
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ID")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
