package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"fitstudio/internal/config"
	"fitstudio/internal/database"
	"fitstudio/internal/export"
	"fitstudio/internal/models"
	"fitstudio/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the booking API over JSON/HTTP.
type HTTPServer struct {
	cfg      *config.Config
	bookings *service.BookingService
	queries  *service.QueryService
	ledger   bookingLister
	server   *http.Server
	logger   *zerolog.Logger
}

type bookingLister interface {
	ListBookings(ctx context.Context) ([]models.Booking, error)
	PingContext(ctx context.Context) error
}

func NewHTTPServer(cfg *config.Config, bookings *service.BookingService, queries *service.QueryService, ledger bookingLister, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:      cfg,
		bookings: bookings,
		queries:  queries,
		ledger:   ledger,
		logger:   logger,
	}

	mux.HandleFunc("/classes", srv.handleClasses)
	mux.HandleFunc("/book", srv.handleBook)
	mux.HandleFunc("/bookings", srv.handleBookings)
	mux.HandleFunc("/export/bookings", srv.handleExport)
	mux.HandleFunc("/healthz", srv.handleHealth)

	limiter := newRateLimiter(cfg.Server.RateLimit)
	handler := loggingMiddleware(logger, metricsMiddleware(limiter.Wrap(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
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
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

func (s *HTTPServer) handleClasses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	tz := r.URL.Query().Get("tz")
	if tz == "" {
		tz = s.cfg.Studio.DefaultQueryTimezone
	}

	views, err := s.queries.ListClasses(r.Context(), tz)
	if err != nil {
		if errors.Is(err, service.ErrUnknownTimezone) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown timezone: %s", tz))
			return
		}
		s.logger.Error().Err(err).Str("tz", tz).Msg("class listing failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if views == nil {
		views = []models.ClassView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, "Empty or missing JSON body")
		return
	}

	entries, err := decodeEntries(body)
	if err != nil {
		s.logger.Warn().Err(err).Msg("malformed booking payload")
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Malformed JSON : %s", err))
		return
	}

	results, err := s.bookings.Book(r.Context(), entries)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": ve.Errors,
				"entry": ve.Entry,
			})
			return
		}
		s.logger.Error().Err(err).Msg("booking batch failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, results)
}

// decodeEntries accepts either a single booking object or an array of them
// and normalizes to a slice.
func decodeEntries(body []byte) ([]models.Entry, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []models.Entry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}

	var entry models.Entry
	if err := json.Unmarshal(trimmed, &entry); err != nil {
		return nil, err
	}
	return []models.Entry{entry}, nil
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	email := r.URL.Query().Get("email")
	bookings, err := s.queries.BookingsByEmail(r.Context(), email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailRequired):
			writeError(w, http.StatusBadRequest, "Email parameter is required")
		case errors.Is(err, service.ErrInvalidEmail):
			writeError(w, http.StatusBadRequest, "Invalid email format")
		case errors.Is(err, database.ErrNoBookings):
			writeError(w, http.StatusNotFound, fmt.Sprintf("No bookings found for the provided email: %s", email))
		default:
			s.logger.Error().Err(err).Msg("bookings lookup failed")
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	out := make([]map[string]any, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, map[string]any{
			"class_id":     b.ClassID,
			"class_name":   b.ClassName,
			"client_name":  b.ClientName,
			"client_email": b.ClientEmail,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	bookings, err := s.ledger.ListBookings(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("export listing failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	workbook, err := export.BookingsWorkbook(bookings)
	if err != nil {
		s.logger.Error().Err(err).Msg("export workbook failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer workbook.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.xlsx"`)
	if err := workbook.Write(w); err != nil {
		s.logger.Error().Err(err).Msg("export write failed")
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
