package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"salonvox/internal/config"
	"salonvox/internal/dialog"
	"salonvox/internal/domain"
	"salonvox/internal/handoff"
	"salonvox/internal/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HTTPServer exposes the voice-gateway webhooks, the web confirmation pages
// and a small read-only admin API.
type HTTPServer struct {
	cfg      *config.Config
	engine   *dialog.Engine
	handoff  *handoff.Controller
	bookings domain.BookingLog
	logger   *zerolog.Logger
	limiter  *rateLimiter
	server   *http.Server
}

func NewHTTPServer(
	cfg *config.Config,
	engine *dialog.Engine,
	handoffCtl *handoff.Controller,
	bookings domain.BookingLog,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		engine:   engine,
		handoff:  handoffCtl,
		bookings: bookings,
		logger:   logger,
		limiter:  newRateLimiter(&cfg.API),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/voice", srv.handleCallStart)
	mux.HandleFunc("/voice/turn", srv.handleTurn)
	mux.HandleFunc("/confirm/", srv.handleConfirm)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/export", srv.handleBookingsExport)
	mux.HandleFunc("/healthz", srv.handleHealth)
	if cfg.Monitoring.PrometheusEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           srv.loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handleCallStart answers the gateway's "new call" webhook with the greeting.
func (s *HTTPServer) handleCallStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("voice")

	in, ok := s.turnInput(w, r)
	if !ok {
		return
	}
	in.CallStarted = true

	writeJSON(w, http.StatusOK, s.engine.HandleTurn(r.Context(), in))
}

// handleTurn answers one speech or keypad webhook of an ongoing call.
func (s *HTTPServer) handleTurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("voice_turn")

	in, ok := s.turnInput(w, r)
	if !ok {
		return
	}
	in.SpeechText = strings.TrimSpace(r.PostFormValue("SpeechResult"))
	in.Digits = strings.TrimSpace(r.PostFormValue("Digits"))

	writeJSON(w, http.StatusOK, s.engine.HandleTurn(r.Context(), in))
}

// turnInput reads the gateway's common form fields and applies the per-caller
// rate limit. The limiter keys on the calling number so one flooding caller
// cannot starve the rest.
func (s *HTTPServer) turnInput(w http.ResponseWriter, r *http.Request) (dialog.TurnInput, bool) {
	callSID := strings.TrimSpace(r.PostFormValue("CallSid"))
	if callSID == "" {
		writeError(w, http.StatusBadRequest, "CallSid is required")
		return dialog.TurnInput{}, false
	}

	from := strings.TrimSpace(r.PostFormValue("From"))
	key := from
	if key == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			key = host
		} else {
			key = "unknown"
		}
	}
	if !s.limiter.getLimiter(key).Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return dialog.TurnInput{}, false
	}

	return dialog.TurnInput{CallSID: callSID, From: from}, true
}

func (s *HTTPServer) handleConfirm(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("confirm")

	token := strings.TrimPrefix(r.URL.Path, "/confirm/")
	if token == "" || strings.Contains(token, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handoff.HandleForm(w, r, token)
	case http.MethodPost:
		s.handoff.HandleSubmit(w, r, token)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("bookings")

	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bookings, err := s.bookings.ListBookings(r.Context(), from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list bookings")
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleBookingsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("bookings_export")

	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bookings, err := s.bookings.ListBookings(r.Context(), from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list bookings")
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}

	filePath, err := exportBookings(bookings, s.cfg.Exports.Path, from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to export bookings")
		writeError(w, http.StatusInternalServerError, "failed to export bookings")
		return
	}
	s.logger.Info().Str("file_path", filePath).Msg("Excel file created")

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(filePath)))
	http.ServeFile(w, r, filePath)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseRange reads the optional from/to query parameters; the default window
// is the coming month.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -1)
	to := now.AddDate(0, 1, 0)

	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date; expected YYYY-MM-DD")
		}
		from = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date; expected YYYY-MM-DD")
		}
		to = parsed
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("to must be after from")
	}
	return from, to, nil
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.New().String()

		l := s.logger.With().Str("request_id", requestID).Logger()
		r = r.WithContext(l.WithContext(r.Context()))

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		l.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
