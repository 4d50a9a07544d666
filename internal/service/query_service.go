package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitstudio/internal/database"
	"fitstudio/internal/domain"
	"fitstudio/internal/models"

	"github.com/rs/zerolog"
)

var (
	// ErrUnknownTimezone marks an unrecognized IANA timezone identifier.
	ErrUnknownTimezone = errors.New("unknown timezone")

	// ErrEmailRequired marks a bookings lookup with no email parameter.
	ErrEmailRequired = errors.New("email parameter is required")

	// ErrInvalidEmail marks a bookings lookup with a malformed email.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrMalformedSchedule marks a stored class time that does not parse;
	// it fails the whole listing rather than returning a partial one.
	ErrMalformedSchedule = errors.New("invalid datetime format in class data")
)

// QueryService answers read-only lookups: class listings with timezone
// conversion and booking lookups by email.
type QueryService struct {
	catalog domain.Catalog
	ledger  domain.Ledger
	cache   domain.ClassCache
	refZone *time.Location
	logger  *zerolog.Logger
}

func NewQueryService(catalog domain.Catalog, ledger domain.Ledger, cache domain.ClassCache, referenceTZ string, logger *zerolog.Logger) (*QueryService, error) {
	refZone, err := time.LoadLocation(referenceTZ)
	if err != nil {
		return nil, fmt.Errorf("load reference timezone %q: %w", referenceTZ, err)
	}
	return &QueryService{
		catalog: catalog,
		ledger:  ledger,
		cache:   cache,
		refZone: refZone,
		logger:  logger,
	}, nil
}

// ListClasses renders every class with its schedule converted from the studio
// reference timezone to tz, preserving storage order. A malformed stored time
// fails the whole listing rather than returning a partial one.
func (s *QueryService) ListClasses(ctx context.Context, tz string) ([]models.ClassView, error) {
	target, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTimezone, tz)
	}

	if s.cache != nil {
		views, ok, err := s.cache.Get(ctx, tz)
		if err != nil {
			s.logger.Warn().Err(err).Str("tz", tz).Msg("class cache read failed")
		} else if ok {
			return views, nil
		}
	}

	classes, err := s.catalog.ListClasses(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]models.ClassView, 0, len(classes))
	for _, class := range classes {
		stored, err := time.ParseInLocation(models.ScheduleLayout, class.ScheduledAt, s.refZone)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSchedule, err)
		}
		views = append(views, models.ClassView{
			ID:             class.ID,
			Name:           class.Name,
			Datetime:       stored.In(target).Format("2006-01-02 15:04 MST"),
			Instructor:     class.Instructor,
			AvailableSlots: class.AvailableSlots,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, tz, views); err != nil {
			s.logger.Warn().Err(err).Str("tz", tz).Msg("class cache write failed")
		}
	}

	return views, nil
}

// BookingsByEmail validates the email before querying; an empty result is a
// distinct not-found condition, not an empty success.
func (s *QueryService) BookingsByEmail(ctx context.Context, email string) ([]models.Booking, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	bookings, err := s.ledger.BookingsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, database.ErrNoBookings
	}
	return bookings, nil
}
