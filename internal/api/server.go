// Package api exposes the scan control surface over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
	apperrors "github.com/leadscan/telegram-lead-scanner/internal/core/errors"
	"github.com/leadscan/telegram-lead-scanner/internal/ingest/telegram"
	"github.com/leadscan/telegram-lead-scanner/internal/platform/config"
	"github.com/leadscan/telegram-lead-scanner/internal/scan/scanner"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// ScanService is the orchestrator surface the API needs.
type ScanService interface {
	Start(ctx context.Context, req scanner.Request) (domain.ScanRun, error)
	Status(id string) (domain.ScanRun, error)
	Stop(id string) error
	History() []domain.ScanRun
}

// LeadService manages persisted leads.
type LeadService interface {
	MarkContacted(ctx context.Context, leadID string, contacted bool, at time.Time) error
}

// Server is the HTTP control surface.
type Server struct {
	cfg    *config.Config
	scans  ScanService
	leads  LeadService
	source telegram.Source
	logger *zerolog.Logger
	server *http.Server
}

// NewServer creates the API server.
func NewServer(cfg *config.Config, scans ScanService, leads LeadService, source telegram.Source, logger *zerolog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		scans:  scans,
		leads:  leads,
		source: source,
		logger: logger,
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           s.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/scan/start", s.handleStartScan)
		r.Get("/scan/status/{id}", s.handleScanStatus)
		r.Post("/scan/stop/{id}", s.handleStopScan)
		r.Get("/scan/history", s.handleScanHistory)

		r.Patch("/leads/{id}/contact", s.handleMarkContacted)
	})

	return r
}

// Start runs the API server until it fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("API server listening")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown stops the API server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// inlineMessage is a message supplied directly in a start request.
// Timestamps may be epoch milliseconds or any parseable datetime string.
type inlineMessage struct {
	ID           string          `json:"id"`
	ChatID       string          `json:"chatId"`
	ChannelTitle string          `json:"channelTitle"`
	Author       string          `json:"author"`
	Text         string          `json:"text"`
	Timestamp    json.RawMessage `json:"timestamp"`
}

type startScanRequest struct {
	// Messages overrides source fetching when present.
	Messages []inlineMessage `json:"messages,omitempty"`

	Criteria           domain.LeadCriteria    `json:"criteria"`
	Credentials        domain.ScanCredentials `json:"credentials"`
	AssumeNoPriorLeads bool                   `json:"assumeNoPriorLeads,omitempty"`
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	var req startScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))

		return
	}

	var (
		messages []domain.RawMessage
		err      error
	)

	if len(req.Messages) > 0 {
		messages, err = convertInlineMessages(req.Messages)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())

			return
		}
	} else {
		since := time.Now().Add(-s.cfg.ScanWindow)

		messages, err = s.source.FetchMessages(r.Context(), s.cfg.ScanChatIDs, since)
		if err != nil {
			s.logger.Error().Err(err).Msg("message fetch failed")
			s.writeError(w, http.StatusBadGateway, "failed to fetch messages")

			return
		}
	}

	run, err := s.scans.Start(r.Context(), scanner.Request{
		Messages:           messages,
		Criteria:           req.Criteria,
		Credentials:        req.Credentials,
		AssumeNoPriorLeads: req.AssumeNoPriorLeads,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrScanInProgress):
			s.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, apperrors.ErrTemplateMissingPlaceholder):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error().Err(err).Msg("scan start failed")
			s.writeError(w, http.StatusInternalServerError, "scan start failed")
		}

		return
	}

	s.writeJSON(w, http.StatusAccepted, run)
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	run, err := s.scans.Status(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())

		return
	}

	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleStopScan(w http.ResponseWriter, r *http.Request) {
	if err := s.scans.Stop(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScanHistory(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.scans.History())
}

type markContactedRequest struct {
	Contacted bool `json:"contacted"`
}

func (s *Server) handleMarkContacted(w http.ResponseWriter, r *http.Request) {
	var req markContactedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))

		return
	}

	err := s.leads.MarkContacted(r.Context(), chi.URLParam(r, "id"), req.Contacted, time.Now())
	if err != nil {
		if errors.Is(err, apperrors.ErrLeadNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())

			return
		}

		s.logger.Error().Err(err).Msg("mark contacted failed")
		s.writeError(w, http.StatusInternalServerError, "mark contacted failed")

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func convertInlineMessages(in []inlineMessage) ([]domain.RawMessage, error) {
	out := make([]domain.RawMessage, 0, len(in))

	for i, m := range in {
		if m.ID == "" {
			return nil, fmt.Errorf("message %d: missing id", i)
		}

		ts, err := parseTimestamp(m.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}

		out = append(out, domain.RawMessage{
			ID:           m.ID,
			ChatID:       m.ChatID,
			ChannelTitle: m.ChannelTitle,
			Author:       m.Author,
			Text:         m.Text,
			Timestamp:    ts,
		})
	}

	return out, nil
}

// parseTimestamp accepts epoch milliseconds as a JSON number or any
// parseable datetime string.
func parseTimestamp(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, errors.New("missing timestamp")
	}

	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil {
		return millis, nil
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, fmt.Errorf("unparseable timestamp %s", raw)
	}

	t, err := dateparse.ParseAny(str)
	if err != nil {
		return 0, fmt.Errorf("unparseable timestamp %q: %w", str, err)
	}

	return t.UnixMilli(), nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("encode response failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
