package analytics_test

import (
	"context"
	"testing"
	"time"

	"moviebooking/internal/analytics"
	"moviebooking/internal/bookings"
	"moviebooking/internal/movies"
	"moviebooking/internal/shared/apperr"
	"moviebooking/internal/shared/constants"
	"moviebooking/internal/storage/memory"
	"moviebooking/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   *memory.Store
	service analytics.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.NewDB()
	store := memory.NewStore(db)
	f := &fixture{
		store:   store,
		service: analytics.NewService(memory.NewAnalyticsRepository(db), store.Ledger(), 90*24*time.Hour),
	}

	ctx := context.Background()
	for _, m := range []movies.Movie{
		{MovieName: "Avengers", TheatreName: "PVR", TotalTickets: 100, AvailableTickets: 100},
		{MovieName: "Avengers", TheatreName: "INOX", TotalTickets: 50, AvailableTickets: 50},
		{MovieName: "Dune", TheatreName: "PVR", TotalTickets: 20, AvailableTickets: 0, Status: movies.StatusSoldOut},
	} {
		m := m
		if m.Status == "" {
			m.Status = movies.StatusBookable
		}
		require.NoError(t, store.Inventory().Create(ctx, &m))
	}
	return f
}

func (f *fixture) insert(t *testing.T, movie, theatre, owner string, tickets int, price float64, status bookings.Status) *bookings.Booking {
	t.Helper()
	b := &bookings.Booking{
		ID:               uuid.New(),
		BookingReference: "MB" + uuid.NewString()[:12],
		MovieName:        movie,
		TheatreName:      theatre,
		NumberOfTickets:  tickets,
		OwnerLoginName:   owner,
		Status:           status,
		TotalPrice:       price,
	}
	require.NoError(t, f.store.Ledger().Insert(context.Background(), b))
	return b
}

func (f *fixture) seed(t *testing.T) {
	f.insert(t, "Avengers", "PVR", "alice", 2, 300, bookings.StatusConfirmed)
	f.insert(t, "Avengers", "INOX", "alice", 4, 400, bookings.StatusConfirmed)
	f.insert(t, "Dune", "PVR", "bob", 3, 450, bookings.StatusConfirmed)
	f.insert(t, "Dune", "PVR", "bob", 5, 750, bookings.StatusCancelled)
}

func TestStatsBy_GroupsConfirmedBookings(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	byMovie, err := f.service.StatsBy(context.Background(), analytics.ByMovie)
	require.NoError(t, err)
	require.Len(t, byMovie, 2)
	assert.Equal(t, "Avengers", byMovie[0].Key)
	assert.Equal(t, int64(2), byMovie[0].Bookings)
	assert.Equal(t, int64(6), byMovie[0].Tickets)
	assert.Equal(t, 700.0, byMovie[0].Revenue)
	assert.InDelta(t, 3.0, byMovie[0].AvgTicketsPerBooking, 0.001)
	assert.InDelta(t, 350.0, byMovie[0].AvgBookingValue, 0.001)
	assert.Equal(t, "Dune", byMovie[1].Key)
	assert.Equal(t, int64(3), byMovie[1].Tickets)

	byTheatre, err := f.service.StatsBy(context.Background(), analytics.ByTheatre)
	require.NoError(t, err)
	require.Len(t, byTheatre, 2)
	assert.Equal(t, "PVR", byTheatre[0].Key)
	assert.Equal(t, int64(5), byTheatre[0].Tickets)

	byUser, err := f.service.StatsBy(context.Background(), analytics.ByUser)
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	assert.Equal(t, "alice", byUser[0].Key)
}

func TestStatsBy_Empty(t *testing.T) {
	f := newFixture(t)

	stats, err := f.service.StatsBy(context.Background(), analytics.ByMovie)
	require.NoError(t, err)
	assert.NotNil(t, stats)
	assert.Empty(t, stats)

	_, err = f.service.StatsBy(context.Background(), analytics.Dimension("genre"))
	assert.Equal(t, apperr.KindValidationFailed, apperr.KindOf(err))
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	dashboard, err := f.service.Dashboard(context.Background())
	require.NoError(t, err)

	o := dashboard.Overview
	assert.Equal(t, int64(4), o.TotalBookings)
	assert.Equal(t, int64(3), o.ConfirmedBookings)
	assert.Equal(t, int64(1), o.CancelledBookings)
	assert.Equal(t, int64(9), o.TicketsSold)
	assert.Equal(t, 1150.0, o.Revenue)
	assert.InDelta(t, 25.0, o.CancellationRate, 0.001)
	assert.Equal(t, int64(3), o.Screenings)
	assert.Equal(t, int64(1), o.SoldOutScreenings)
	assert.Equal(t, int64(170), o.TotalCapacity)
	assert.Equal(t, int64(150), o.AvailableTickets)

	assert.Len(t, dashboard.TopMovies, 2)
	assert.Len(t, dashboard.TopTheatres, 2)
	assert.Len(t, dashboard.TopUsers, 2)
	assert.False(t, dashboard.GeneratedAt.IsZero())
}

func TestStatsBy_CachedUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	cacheService := cache.NewService(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	f := newFixture(t)
	f.service.SetCacheService(cacheService)
	f.seed(t)

	first, err := f.service.StatsBy(context.Background(), analytics.ByMovie)
	require.NoError(t, err)
	assert.True(t, mr.Exists(constants.CACHE_KEY_STATS_MOVIES))

	// served from cache, so a new booking is not visible yet
	f.insert(t, "Dune", "PVR", "carol", 10, 1500, bookings.StatusConfirmed)
	cached, err := f.service.StatsBy(context.Background(), analytics.ByMovie)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	require.NoError(t, bookings.InvalidateCaches(context.Background(), cacheService, movies.Pair{Movie: "Dune", Theatre: "PVR"}))
	assert.False(t, mr.Exists(constants.CACHE_KEY_STATS_MOVIES))

	fresh, err := f.service.StatsBy(context.Background(), analytics.ByMovie)
	require.NoError(t, err)
	assert.Equal(t, "Dune", fresh[0].Key)
	assert.Equal(t, int64(13), fresh[0].Tickets)
}

func TestPurgeCancelled(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	kept := f.insert(t, "Avengers", "PVR", "carol", 1, 150, bookings.StatusConfirmed)

	// nothing is old enough yet
	result, err := f.service.PurgeCancelled(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Purged)

	result, err = f.service.PurgeCancelled(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Purged)

	all, err := f.store.Ledger().ListByPair(context.Background(), movies.Pair{Movie: "Dune", Theatre: "PVR"}, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, bookings.StatusConfirmed, all[0].Status)

	_, err = f.store.Ledger().GetByID(context.Background(), kept.ID)
	assert.NoError(t, err)

	_, err = f.service.PurgeCancelled(context.Background(), -time.Second)
	assert.Equal(t, apperr.KindValidationFailed, apperr.KindOf(err))
	assert.Equal(t, 90*24*time.Hour, f.service.RetentionAge())
}
