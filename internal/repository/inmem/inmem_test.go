package inmem

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avionda/skybooking/internal/domain"
)

func newTestFlight(t *testing.T, totalSeats int32) *domain.Flight {
	t.Helper()
	dep := time.Date(2026, 9, 10, 9, 30, 0, 0, time.UTC)
	f, err := domain.NewFlight(domain.CreateFlightProps{
		AirlineCode:          "SK",
		FlightNumber:         "1422",
		OriginAirportID:      1,
		DestinationAirportID: 2,
		DepartureDate:        dep.Truncate(24 * time.Hour),
		DepartureTime:        dep,
		ArrivalTime:          dep.Add(2 * time.Hour),
		TotalSeats:           totalSeats,
	})
	require.NoError(t, err)
	return f
}

// Ten concurrent reservations against three seats: exactly three guarded
// decrements succeed, the rest fail with the seat-exhaustion conflict.
func TestFlightStore_ConcurrentSeatDecrements(t *testing.T) {
	ctx := context.Background()
	store := NewFlightStore()
	f := newTestFlight(t, 3)
	require.NoError(t, store.Create(ctx, f))

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.DecreaseAvailableSeats(ctx, f.ID, 1)
		}()
	}
	wg.Wait()
	close(results)

	succeeded, conflicted := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domain.ErrNoSeatsAvailable)
			conflicted++
		}
	}
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 7, conflicted)

	stored, err := store.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), stored.AvailableSeats)
}

func TestFlightStore_ReleaseBoundedByTotal(t *testing.T) {
	ctx := context.Background()
	store := NewFlightStore()
	f := newTestFlight(t, 5)
	require.NoError(t, store.Create(ctx, f))

	require.NoError(t, store.DecreaseAvailableSeats(ctx, f.ID, 2))
	require.NoError(t, store.IncreaseAvailableSeats(ctx, f.ID, 2))

	// A second release of the same seats would exceed total capacity.
	err := store.IncreaseAvailableSeats(ctx, f.ID, 2)
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	stored, err := store.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(5), stored.AvailableSeats)
}

// A versioned update never writes the seat counter; a decrement that lands
// between read and write survives the full-row update.
func TestFlightStore_UpdatePreservesSeatCounter(t *testing.T) {
	ctx := context.Background()
	store := NewFlightStore()
	f := newTestFlight(t, 10)
	require.NoError(t, store.Create(ctx, f))

	loaded, err := store.GetByID(ctx, f.ID)
	require.NoError(t, err)

	require.NoError(t, store.DecreaseAvailableSeats(ctx, f.ID, 4))

	require.NoError(t, loaded.ChangeStatus(domain.FlightStatusDelayed))
	require.NoError(t, store.Update(ctx, loaded, loaded.Version))

	stored, err := store.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FlightStatusDelayed, stored.Status)
	assert.Equal(t, int32(6), stored.AvailableSeats)
	assert.Equal(t, int32(2), stored.Version)
}

func TestFlightStore_StaleVersionRejected(t *testing.T) {
	ctx := context.Background()
	store := NewFlightStore()
	f := newTestFlight(t, 10)
	require.NoError(t, store.Create(ctx, f))

	first, err := store.GetByID(ctx, f.ID)
	require.NoError(t, err)
	second, err := store.GetByID(ctx, f.ID)
	require.NoError(t, err)

	require.NoError(t, first.ChangeStatus(domain.FlightStatusDelayed))
	require.NoError(t, store.Update(ctx, first, first.Version))

	require.NoError(t, second.ChangeStatus(domain.FlightStatusDelayed))
	err = store.Update(ctx, second, second.Version)
	assert.ErrorIs(t, err, domain.ErrOptimisticLock)
}

func newTestBooking(t *testing.T, code string) *domain.Booking {
	t.Helper()
	b, err := domain.NewBooking(domain.CreateBookingProps{
		BookingCode:     code,
		UserID:          1,
		FlightID:        1,
		Seats:           2,
		BaseAmount:      decimal.NewFromInt(100),
		TaxesAmount:     decimal.NewFromInt(20),
		Currency:        "EUR",
		ContactEmail:    "kai@example.com",
		ContactFullName: "Kai Larsen",
	})
	require.NoError(t, err)
	return b
}

func TestBookingStore_DuplicateCodeConflict(t *testing.T) {
	ctx := context.Background()
	store := NewBookingStore()

	require.NoError(t, store.Create(ctx, newTestBooking(t, "BK-20260828-A1B2")))

	err := store.Create(ctx, newTestBooking(t, "BK-20260828-A1B2"))
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.Contains(t, err.Error(), "booking_code")
}

func TestBookingStore_ExpireDraftBefore(t *testing.T) {
	ctx := context.Background()
	store := NewBookingStore()

	stale := newTestBooking(t, "BK-20260828-OLD1")
	require.NoError(t, store.Create(ctx, stale))

	confirmed := newTestBooking(t, "BK-20260828-CONF")
	require.NoError(t, confirmed.Confirm(time.Now()))
	require.NoError(t, store.Create(ctx, confirmed))

	expired, err := store.ExpireDraftBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)
	assert.Equal(t, domain.BookingStatusExpired, expired[0].Status)
	assert.Equal(t, int32(2), expired[0].SeatsReserved)

	// Confirmed bookings and already expired drafts are untouched.
	again, err := store.ExpireDraftBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, again)
}

// Only the first claim wins; a versioned update in between must not reopen
// the marker.
func TestBookingStore_MarkSeatsReleasedClaimsOnce(t *testing.T) {
	ctx := context.Background()
	store := NewBookingStore()

	b := newTestBooking(t, "BK-20260828-C3D4")
	require.NoError(t, store.Create(ctx, b))

	claimed, err := store.MarkSeatsReleased(ctx, b.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, claimed)

	loaded, err := store.GetByID(ctx, b.ID)
	require.NoError(t, err)
	require.NoError(t, loaded.Cancel("customer request", nil, time.Now()))
	require.NoError(t, store.Update(ctx, loaded, loaded.Version))

	again, err := store.MarkSeatsReleased(ctx, b.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, again)

	stored, err := store.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.SeatsReleasedAt)
}

// A stale checkin write loses, and a reload-reapply at the fresh version wins.
func TestCheckinStore_ConflictThenReloadSucceeds(t *testing.T) {
	ctx := context.Background()
	store := NewCheckinStore()

	c, err := domain.NewCheckin(domain.CreateCheckinProps{
		BookingID:   1,
		PassengerID: 2,
		SeatClass:   domain.SeatClassEconomy,
		Channel:     domain.CheckinChannelWeb,
	})
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, c))

	first, err := store.GetByID(ctx, c.ID)
	require.NoError(t, err)
	second, err := store.GetByID(ctx, c.ID)
	require.NoError(t, err)

	count := int32(1)
	require.NoError(t, first.UpdateFrom(domain.UpdateCheckinProps{BaggageCount: &count}))
	require.NoError(t, store.Update(ctx, first, first.Version))

	now := time.Now()
	require.NoError(t, second.CheckIn("12A", now))
	err = store.Update(ctx, second, second.Version)
	require.ErrorIs(t, err, domain.ErrOptimisticLock)

	reloaded, err := store.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.NoError(t, reloaded.CheckIn("12A", now))
	require.NoError(t, store.Update(ctx, reloaded, reloaded.Version))

	stored, err := store.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckinStatusCheckedIn, stored.Status)
	assert.Equal(t, int32(1), stored.BaggageCount)
	assert.Equal(t, "12A", stored.SeatNo)
	assert.Equal(t, int32(3), stored.Version)
}

func TestCheckinStore_DuplicatePassengerConflict(t *testing.T) {
	ctx := context.Background()
	store := NewCheckinStore()

	mk := func() *domain.Checkin {
		c, err := domain.NewCheckin(domain.CreateCheckinProps{
			BookingID: 1, PassengerID: 2,
			SeatClass: domain.SeatClassEconomy, Channel: domain.CheckinChannelWeb,
		})
		require.NoError(t, err)
		return c
	}
	require.NoError(t, store.Create(ctx, mk()))

	err := store.Create(ctx, mk())
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestUserStore_LookupAndTargetedUpdates(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()
	now := time.Now()

	u, err := domain.NewUserForRegistration(domain.RegisterUserProps{
		Email:    "kai@example.com",
		Password: "s3curePass",
		FullName: "Kai Larsen",
	}, now)
	require.NoError(t, err)
	u.StartVerification("token-1", now.Add(domain.VerificationTokenTTL))
	require.NoError(t, store.Create(ctx, u))

	byToken, err := store.GetByVerificationToken(ctx, "token-1")
	require.NoError(t, err)
	require.NotNil(t, byToken)
	assert.Equal(t, u.ID, byToken.ID)

	byToken.HandleFailedLogin(now)
	require.NoError(t, store.UpdateLoginSecurity(ctx, byToken))

	stored, err := store.GetByEmail(ctx, "kai@example.com")
	require.NoError(t, err)
	assert.Equal(t, int32(1), stored.FailedLoginAttempts)
	// The verification path is untouched by the login-security write.
	assert.Equal(t, "token-1", stored.VerificationToken)

	require.NoError(t, stored.VerifyEmail(now))
	require.NoError(t, store.UpdateVerification(ctx, stored))

	verified, err := store.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusActive, verified.Status)
	assert.Empty(t, verified.VerificationToken)
	assert.Equal(t, int32(1), verified.FailedLoginAttempts)
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()
	now := time.Now()

	mk := func(email string) *domain.User {
		u, err := domain.NewUserForRegistration(domain.RegisterUserProps{
			Email: email, Password: "s3curePass", FullName: "Kai Larsen",
		}, now)
		require.NoError(t, err)
		return u
	}
	require.NoError(t, store.Create(ctx, mk("kai@example.com")))

	err := store.Create(ctx, mk("kai@example.com"))
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}
