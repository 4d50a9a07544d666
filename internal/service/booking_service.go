package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fitstudio/internal/database"
	"fitstudio/internal/domain"
	"fitstudio/internal/events"
	"fitstudio/internal/metrics"
	"fitstudio/internal/models"

	"github.com/rs/zerolog"
)

// ValidationError aborts a whole booking batch: one bad entry rejects every
// entry before any state is touched.
type ValidationError struct {
	Entry  models.Entry
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking entry rejected: %s", strings.Join(e.Errors, "; "))
}

// BookingService drives the booking state machine over the ledger.
type BookingService struct {
	ledger   domain.Ledger
	cache    domain.ClassCache
	eventBus domain.EventPublisher
	worker   domain.SyncWorker
	logger   *zerolog.Logger
}

func NewBookingService(ledger domain.Ledger, cache domain.ClassCache, eventBus domain.EventPublisher, worker domain.SyncWorker, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		ledger:   ledger,
		cache:    cache,
		eventBus: eventBus,
		worker:   worker,
		logger:   logger,
	}
}

// Book processes a batch of booking entries and returns one result per entry,
// in input order. Validation is all-or-nothing: the first entry with errors
// fails the batch with *ValidationError and no side effects. After the gate,
// entries are booked one at a time; a not-found or exhausted class yields an
// inline error for that entry only and never rolls back committed siblings.
func (s *BookingService) Book(ctx context.Context, entries []models.Entry) ([]models.BookingResult, error) {
	requests := make([]models.BookingRequest, 0, len(entries))
	for _, entry := range entries {
		req, errs := ValidateEntry(entry)
		if len(errs) > 0 {
			s.logger.Warn().Strs("errors", errs).Msg("booking batch rejected by validation")
			return nil, &ValidationError{Entry: entry, Errors: errs}
		}
		requests = append(requests, *req)
	}

	results := make([]models.BookingResult, 0, len(requests))
	booked := 0
	for _, req := range requests {
		booking, err := s.ledger.BookSlot(ctx, req)

		var noSlots *database.NoSlotsError
		switch {
		case errors.Is(err, database.ErrClassNotFound):
			metrics.IncBooking("class_not_found")
			s.publishRejected(req, "class_not_found")
			results = append(results, models.BookingResult{
				Error: fmt.Sprintf("Class ID %d not found", req.ClassID),
			})
			continue
		case errors.As(err, &noSlots):
			metrics.IncBooking("no_slots")
			s.publishRejected(req, "no_slots")
			results = append(results, models.BookingResult{
				Error: fmt.Sprintf("No slots available for the class: %s", noSlots.ClassName),
			})
			continue
		case err != nil:
			// Persistence failure aborts the batch; committed entries stand.
			return nil, fmt.Errorf("failed to book class %d: %w", req.ClassID, err)
		}

		booked++
		metrics.IncBooking("confirmed")
		s.logger.Info().
			Int64("booking_id", booking.ID).
			Int64("class_id", booking.ClassID).
			Str("class_name", booking.ClassName).
			Str("client_email", booking.ClientEmail).
			Msg("booking confirmed")

		s.publishConfirmed(booking)
		s.enqueueSync(ctx, booking)

		results = append(results, models.BookingResult{
			Message:     "Booking confirmed",
			ClassID:     booking.ClassID,
			ClassName:   booking.ClassName,
			ClientName:  booking.ClientName,
			ClientEmail: booking.ClientEmail,
		})
	}

	if booked > 0 && s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("class cache invalidation failed")
		}
	}

	return results, nil
}

func (s *BookingService) publishConfirmed(booking *models.Booking) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		ClassID:     booking.ClassID,
		ClassName:   booking.ClassName,
		ClientName:  booking.ClientName,
		ClientEmail: booking.ClientEmail,
		CreatedAt:   booking.CreatedAt,
	}
	if err := s.eventBus.PublishJSON(events.EventBookingConfirmed, payload); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish booking event")
	}
}

func (s *BookingService) publishRejected(req models.BookingRequest, reason string) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingRejectedPayload{
		ClassID:     req.ClassID,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		Reason:      reason,
	}
	if err := s.eventBus.PublishJSON(events.EventBookingRejected, payload); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish booking event")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, booking *models.Booking) {
	if s.worker == nil {
		return
	}
	if err := s.worker.EnqueueBooking(ctx, booking); err != nil {
		s.logger.Warn().Err(err).Int64("booking_id", booking.ID).Msg("failed to enqueue booking sync")
	}
}
