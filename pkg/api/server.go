// Package api serves a read-only HTTP view of alerts, price history and
// notifications.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ticket-hunter/pkg/logger"
	"ticket-hunter/pkg/models"
	"ticket-hunter/pkg/store"

	scalargo "github.com/bdpiprava/scalar-go"
)

const (
	defaultHistoryDays = 30
	maxHistoryDays     = 365
)

// Reader is the storage the views read from.
type Reader interface {
	AlertSummaries(ctx context.Context) ([]store.AlertSummary, error)
	Alert(ctx context.Context, id int64) (models.Alert, error)
	PriceHistory(ctx context.Context, alertID int64, since time.Time) ([]models.PriceObservation, error)
	Notifications(ctx context.Context, alertID int64) ([]models.NotificationRecord, error)
}

type Options struct {
	// DocsDir holds the OpenAPI document rendered on "/".
	DocsDir string
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
	// Status reports the scheduler state on /status when set.
	Status func() any
}

type Server struct {
	reader Reader
	opts   Options
	log    logger.Logger
	now    func() time.Time
}

func NewServer(r Reader, opts Options, log logger.Logger) *Server {
	if opts.DocsDir == "" {
		opts.DocsDir = "./docs"
	}
	return &Server{reader: r, opts: opts, log: log, now: time.Now}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /alerts", s.listAlerts)
	mux.HandleFunc("GET /alerts/{id}", s.getAlert)
	mux.HandleFunc("GET /alerts/{id}/prices", s.priceHistory)
	mux.HandleFunc("GET /alerts/{id}/notifications", s.notifications)
	if s.opts.Status != nil {
		mux.HandleFunc("GET /status", s.status)
	}
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics)
	}
	mux.HandleFunc("/", s.rootHandler)
	return mux
}

// rootHandler serves the API docs on "/" and problem details elsewhere.
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteNotFound(w, "Unknown path. See / for the API reference.", r.URL.Path)
		return
	}

	html, err := scalargo.NewV2(
		scalargo.WithSpecDir(s.opts.DocsDir),
		scalargo.WithMetaDataOpts(
			scalargo.WithTitle("Ticket Hunter API"),
		),
	)
	if err != nil {
		WriteInternalServerError(w, err, r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	sums, err := s.reader.AlertSummaries(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if sums == nil {
		sums = []store.AlertSummary{}
	}
	s.respond(w, r, map[string]any{"alerts": sums})
}

func (s *Server) getAlert(w http.ResponseWriter, r *http.Request) {
	a, ok := s.alert(w, r)
	if !ok {
		return
	}
	s.respond(w, r, a)
}

func (s *Server) priceHistory(w http.ResponseWriter, r *http.Request) {
	days := defaultHistoryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryDays {
			WriteBadRequest(w, fmt.Sprintf("Invalid days: %q. Must be between 1 and %d.", raw, maxHistoryDays), r.URL.Path)
			return
		}
		days = n
	}

	a, ok := s.alert(w, r)
	if !ok {
		return
	}

	since := s.now().AddDate(0, 0, -days)
	prices, err := s.reader.PriceHistory(r.Context(), a.ID, since)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if prices == nil {
		prices = []models.PriceObservation{}
	}
	s.respond(w, r, map[string]any{"alert": a, "days": days, "prices": prices})
}

func (s *Server) notifications(w http.ResponseWriter, r *http.Request) {
	a, ok := s.alert(w, r)
	if !ok {
		return
	}

	recs, err := s.reader.Notifications(r.Context(), a.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if recs == nil {
		recs = []models.NotificationRecord{}
	}
	s.respond(w, r, map[string]any{"alert": a, "notifications": recs})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.opts.Status())
}

// alert resolves the {id} path value, writing the error response itself
// when it cannot.
func (s *Server) alert(w http.ResponseWriter, r *http.Request) (models.Alert, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		WriteBadRequest(w, fmt.Sprintf("Invalid alert ID: %s. Must be a positive integer.", raw), r.URL.Path)
		return models.Alert{}, false
	}

	a, err := s.reader.Alert(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return models.Alert{}, false
	}
	return a, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		WriteNotFound(w, "Alert not found", r.URL.Path)
		return
	}
	s.log.Error("Request failed", logger.String("path", r.URL.Path), logger.Error(err))
	WriteInternalServerError(w, errors.New("failed to read from storage"), r.URL.Path)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any) {
	if err := writeJSON(w, v); err != nil {
		s.log.Error("Error encoding response", logger.String("path", r.URL.Path), logger.Error(err))
	}
}
