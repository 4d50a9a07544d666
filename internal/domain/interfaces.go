package domain

import (
	"context"

	"fitstudio/internal/models"
)

// Catalog is read access to the class table.
type Catalog interface {
	GetClass(ctx context.Context, id int64) (*models.FitnessClass, error)
	ListClasses(ctx context.Context) ([]models.FitnessClass, error)
}

// Ledger records and reads confirmed bookings. BookSlot is the only mutation:
// it decrements the class slot pool and inserts the booking in one transaction.
type Ledger interface {
	BookSlot(ctx context.Context, req models.BookingRequest) (*models.Booking, error)
	BookingsByEmail(ctx context.Context, email string) ([]models.Booking, error)
	ListBookings(ctx context.Context) ([]models.Booking, error)
}

// ClassCache holds rendered class listings keyed by timezone.
type ClassCache interface {
	Get(ctx context.Context, tz string) ([]models.ClassView, bool, error)
	Set(ctx context.Context, tz string, views []models.ClassView) error
	Invalidate(ctx context.Context) error
}

// EventPublisher fans booking events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SyncWorker accepts bookings for asynchronous mirroring.
type SyncWorker interface {
	EnqueueBooking(ctx context.Context, booking *models.Booking) error
}
