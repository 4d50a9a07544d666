package service

import (
	"context"
	"errors"
	"testing"

	"fitstudio/internal/database"
	"fitstudio/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	classes []models.FitnessClass
	listErr error
}

func (f *fakeCatalog) GetClass(_ context.Context, id int64) (*models.FitnessClass, error) {
	for i := range f.classes {
		if f.classes[i].ID == id {
			return &f.classes[i], nil
		}
	}
	return nil, database.ErrClassNotFound
}

func (f *fakeCatalog) ListClasses(_ context.Context) ([]models.FitnessClass, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.classes, nil
}

func newTestQueryService(t *testing.T, catalog *fakeCatalog, ledger *fakeLedger, cache *fakeCache) *QueryService {
	t.Helper()
	logger := zerolog.Nop()
	if ledger == nil {
		ledger = newFakeLedger()
	}
	var svc *QueryService
	var err error
	if cache == nil {
		svc, err = NewQueryService(catalog, ledger, nil, "Asia/Kolkata", &logger)
	} else {
		svc, err = NewQueryService(catalog, ledger, cache, "Asia/Kolkata", &logger)
	}
	require.NoError(t, err)
	return svc
}

func TestNewQueryService_BadReferenceTimezone(t *testing.T) {
	logger := zerolog.Nop()
	_, err := NewQueryService(&fakeCatalog{}, newFakeLedger(), nil, "Mars/Olympus", &logger)
	assert.Error(t, err)
}

func TestListClasses_TimezoneConversion(t *testing.T) {
	catalog := &fakeCatalog{classes: []models.FitnessClass{
		{ID: 1, Name: "Yoga", ScheduledAt: "2026-09-10 07:00", Instructor: "Asha Menon", AvailableSlots: 10},
		{ID: 3, Name: "HIIT", ScheduledAt: "2026-09-10 18:30", Instructor: "Dev Kapoor", AvailableSlots: 8},
	}}
	svc := newTestQueryService(t, catalog, nil, nil)

	// Asia/Kolkata is UTC+05:30 with no DST, so conversions are fixed.
	views, err := svc.ListClasses(context.Background(), "UTC")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "2026-09-10 01:30 UTC", views[0].Datetime)
	assert.Equal(t, "2026-09-10 13:00 UTC", views[1].Datetime)
	assert.Equal(t, int64(1), views[0].ID)
	assert.Equal(t, "Yoga", views[0].Name)
	assert.Equal(t, int64(10), views[0].AvailableSlots)
}

func TestListClasses_ReferenceTimezoneIdentity(t *testing.T) {
	catalog := &fakeCatalog{classes: []models.FitnessClass{
		{ID: 1, Name: "Yoga", ScheduledAt: "2026-09-10 07:00", Instructor: "Asha Menon", AvailableSlots: 10},
	}}
	svc := newTestQueryService(t, catalog, nil, nil)

	views, err := svc.ListClasses(context.Background(), "Asia/Kolkata")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "2026-09-10 07:00 IST", views[0].Datetime)
}

func TestListClasses_UnknownTimezone(t *testing.T) {
	svc := newTestQueryService(t, &fakeCatalog{}, nil, nil)

	_, err := svc.ListClasses(context.Background(), "Not/AZone")
	assert.ErrorIs(t, err, ErrUnknownTimezone)
	assert.ErrorContains(t, err, "Not/AZone")
}

func TestListClasses_MalformedStoredTimeFailsListing(t *testing.T) {
	catalog := &fakeCatalog{classes: []models.FitnessClass{
		{ID: 1, Name: "Yoga", ScheduledAt: "2026-09-10 07:00", Instructor: "Asha Menon", AvailableSlots: 10},
		{ID: 2, Name: "Zumba", ScheduledAt: "not a timestamp", Instructor: "Carlos Rivera", AvailableSlots: 15},
	}}
	svc := newTestQueryService(t, catalog, nil, nil)

	views, err := svc.ListClasses(context.Background(), "UTC")
	assert.Nil(t, views)
	assert.ErrorIs(t, err, ErrMalformedSchedule)
}

func TestListClasses_CacheHitSkipsCatalog(t *testing.T) {
	cached := []models.ClassView{{ID: 9, Name: "Cached", Datetime: "2026-09-10 01:30 UTC"}}
	cache := newFakeCache()
	cache.store["UTC"] = cached
	catalog := &fakeCatalog{listErr: errors.New("catalog must not be queried")}
	svc := newTestQueryService(t, catalog, nil, cache)

	views, err := svc.ListClasses(context.Background(), "UTC")
	require.NoError(t, err)
	assert.Equal(t, cached, views)
}

func TestListClasses_CacheMissPopulatesCache(t *testing.T) {
	cache := newFakeCache()
	catalog := &fakeCatalog{classes: []models.FitnessClass{
		{ID: 1, Name: "Yoga", ScheduledAt: "2026-09-10 07:00", Instructor: "Asha Menon", AvailableSlots: 10},
	}}
	svc := newTestQueryService(t, catalog, nil, cache)

	views, err := svc.ListClasses(context.Background(), "UTC")
	require.NoError(t, err)
	assert.Equal(t, views, cache.store["UTC"])
}

func TestBookingsByEmail_Validation(t *testing.T) {
	svc := newTestQueryService(t, &fakeCatalog{}, nil, nil)

	_, err := svc.BookingsByEmail(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmailRequired)

	_, err = svc.BookingsByEmail(context.Background(), "not-an-email")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestBookingsByEmail_NotFound(t *testing.T) {
	svc := newTestQueryService(t, &fakeCatalog{}, newFakeLedger(), nil)

	_, err := svc.BookingsByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, database.ErrNoBookings)
}

func TestBookingsByEmail_ReturnsBookings(t *testing.T) {
	ledger := newFakeLedger()
	ledger.bookings = []models.Booking{
		{ID: 1, ClassID: 3, ClassName: "HIIT", ClientName: "Priya Sharma", ClientEmail: "priya@example.com"},
		{ID: 2, ClassID: 1, ClassName: "Yoga", ClientName: "Rahul Verma", ClientEmail: "rahul@example.com"},
	}
	svc := newTestQueryService(t, &fakeCatalog{}, ledger, nil)

	bookings, err := svc.BookingsByEmail(context.Background(), "priya@example.com")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "HIIT", bookings[0].ClassName)
}
