package bookings_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"moviebooking/internal/auth"
	"moviebooking/internal/bookings"
	"moviebooking/internal/cancellation"
	"moviebooking/internal/movies"
	"moviebooking/internal/shared/apperr"
	"moviebooking/internal/storage/memory"
	"moviebooking/internal/users"
	"moviebooking/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var avengers = movies.Pair{Movie: "Avengers", Theatre: "PVR"}

type fixture struct {
	db      *memory.DB
	store   *memory.Store
	users   auth.Repository
	service bookings.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := memory.NewDB()
	f := &fixture{
		db:    db,
		store: memory.NewStore(db),
		users: memory.NewUserRepository(db),
	}
	f.service = bookings.NewService(f.store, auth.NewIdentityResolver(f.users), bookings.DefaultOptions())

	f.addUser(t, "alice", users.RoleUser)
	f.addUser(t, "bob", users.RoleUser)
	f.addUser(t, "admin", users.RoleAdmin)
	return f
}

func (f *fixture) addUser(t *testing.T, login string, role users.Role) *users.User {
	t.Helper()
	u := &users.User{
		ID:        uuid.New(),
		LoginName: login,
		FirstName: login,
		LastName:  "Test",
		Email:     login + "@example.com",
		Password:  "x",
		Role:      role,
	}
	require.NoError(t, f.users.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) addMovie(t *testing.T, key movies.Pair, total, available int) {
	t.Helper()
	require.NoError(t, f.store.Inventory().Create(context.Background(), &movies.Movie{
		MovieName:        key.Movie,
		TheatreName:      key.Theatre,
		TotalTickets:     total,
		AvailableTickets: available,
		Status:           movies.StatusFor(available),
		TicketPrice:      150,
	}))
}

// seedConfirmed writes CONFIRMED bookings straight into the ledger so that the
// ledger agrees with a counter that starts below total.
func (f *fixture) seedConfirmed(t *testing.T, key movies.Pair, owner string, tickets int) {
	t.Helper()
	for i := 0; tickets > 0; i++ {
		n := tickets
		if n > 10 {
			n = 10
		}
		seats := make([]string, n)
		for j := range seats {
			seats[j] = fmt.Sprintf("Z%d-%d", i, j)
		}
		require.NoError(t, f.store.Ledger().Insert(context.Background(), &bookings.Booking{
			ID:               uuid.New(),
			BookingReference: fmt.Sprintf("SEED%d-%s", i, uuid.NewString()[:8]),
			MovieName:        key.Movie,
			TheatreName:      key.Theatre,
			NumberOfTickets:  n,
			SeatNumbers:      seats,
			OwnerLoginName:   owner,
			Status:           bookings.StatusConfirmed,
		}))
		tickets -= n
	}
}

func (f *fixture) available(t *testing.T, key movies.Pair) int {
	t.Helper()
	movie, err := f.store.Inventory().GetByPair(context.Background(), key)
	require.NoError(t, err)
	return movie.AvailableTickets
}

func TestBookTickets_Success(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, avengers, 100, 50)
	f.seedConfirmed(t, avengers, "bob", 50)

	booking, err := f.service.BookTickets(context.Background(), avengers, 2, []string{"A1", "a2 "}, "alice")
	require.NoError(t, err)

	assert.Equal(t, bookings.StatusConfirmed, booking.Status)
	assert.Equal(t, []string{"A1", "A2"}, booking.SeatNumbers)
	assert.Equal(t, "alice", booking.OwnerLoginName)
	assert.Equal(t, 300.0, booking.TotalPrice)
	assert.True(t, len(booking.BookingReference) > len(bookings.DefaultOptions().ReferencePrefix))
	assert.Equal(t, 48, f.available(t, avengers))

	stored, err := f.store.Ledger().GetByReference(context.Background(), booking.BookingReference)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, stored.ID)
}

func TestBookTickets_SeatAlreadyTaken(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, avengers, 100, 50)
	f.seedConfirmed(t, avengers, "bob", 50)

	_, err := f.service.BookTickets(context.Background(), avengers, 2, []string{"A1", "A2"}, "alice")
	require.NoError(t, err)

	_, err = f.service.BookTickets(context.Background(), avengers, 1, []string{"A1"}, "bob")
	require.Error(t, err)
	assert.Equal(t, apperr.KindBookingRejected, apperr.KindOf(err))
	assert.Contains(t, apperr.ReasonOf(err), "A1")
	assert.Equal(t, 48, f.available(t, avengers))

	confirmed, err := f.store.Ledger().ListByPair(context.Background(), avengers, bookings.StatusConfirmed)
	require.NoError(t, err)
	assert.Len(t, confirmed, 6) // five seeded plus alice
}

func TestBookTickets_InsufficientCapacity(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, avengers, 10, 1)
	f.seedConfirmed(t, avengers, "bob", 9)

	_, err := f.service.BookTickets(context.Background(), avengers, 2, []string{"B1", "B2"}, "alice")
	require.Error(t, err)
	assert.Equal(t, apperr.KindBookingRejected, apperr.KindOf(err))
	assert.Contains(t, apperr.ReasonOf(err), "insufficient capacity")
	assert.Equal(t, 1, f.available(t, avengers))
}

func TestBookTickets_SoldOut(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, avengers, 10, 0)

	_, err := f.service.BookTickets(context.Background(), avengers, 1, []string{"B1"}, "alice")
	assert.Equal(t, apperr.KindBookingRejected, apperr.KindOf(err))
	assert.Contains(t, apperr.ReasonOf(err), "sold out")
}

func TestBookTickets_LastTicketsFlipStatus(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, avengers, 2, 2)

	_, err := f.service.BookTickets(context.Background(), avengers, 2, []string{"C1", "C2"}, "alice")
	require.NoError(t, err)

	movie, err := f.store.Inventory().GetByPair(context.Background(), avengers)
	require.NoError(t, err)
	assert.Equal(t, 0, movie.AvailableTickets)
	assert.Equal(t, movies.StatusSoldOut, movie.Status)
}

func TestBookTickets_Validation(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, avengers, 100, 100)

	tests := []struct {
		name    string
		key     movies.Pair
		tickets int
		seats   []string
		user    string
		kind    apperr.Kind
	}{
		{"blank movie", movies.Pair{Theatre: "PVR"}, 1, []string{"A1"}, "alice", apperr.KindValidationFailed},
		{"zero tickets", avengers, 0, nil, "alice", apperr.KindValidationFailed},
		{"over the limit", avengers, 11, make([]string, 11), "alice", apperr.KindValidationFailed},
		{"seat count mismatch", avengers, 2, []string{"A1"}, "alice", apperr.KindValidationFailed},
		{"duplicate seat", avengers, 2, []string{"A1", "a1"}, "alice", apperr.KindValidationFailed},
		{"blank seat", avengers, 1, []string{"  "}, "alice", apperr.KindValidationFailed},
		{"seat too long", avengers, 1, []string{strings.Repeat("A", bookings.MaxSeatNumberLength+1)}, "alice", apperr.KindValidationFailed},
		{"blank user", avengers, 1, []string{"A1"}, "", apperr.KindValidationFailed},
		{"unknown user", avengers, 1, []string{"A1"}, "mallory", apperr.KindNotFound},
		{"unknown pair", movies.Pair{Movie: "Avengers", Theatre: "INOX"}, 1, []string{"A1"}, "alice", apperr.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.BookTickets(context.Background(), tt.key, tt.tickets, tt.seats, tt.user)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
	assert.Equal(t, 100, f.available(t, avengers))
}

func TestBookTickets_ResolvesUserByID(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, avengers, 10, 10)
	carol := f.addUser(t, "carol", users.RoleUser)

	booking, err := f.service.BookTickets(context.Background(), avengers, 1, []string{"D4"}, carol.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "carol", booking.OwnerLoginName)
	assert.Equal(t, carol.ID, booking.OwnerID)
}

// failingInventory refuses every decrement
type failingInventory struct {
	movies.Repository
}

func (failingInventory) DecrementAvailable(context.Context, movies.Pair, int) error {
	return errors.New("storage unavailable")
}

type failingStore struct {
	*memory.Store
}

func (s failingStore) InPair(ctx context.Context, key movies.Pair, fn bookings.UnitOfWork) error {
	return s.Store.InPair(ctx, key, func(ctx context.Context, inventory movies.Repository, ledger bookings.Repository) error {
		return fn(ctx, failingInventory{inventory}, ledger)
	})
}

func TestBookTickets_CompensatesWhenDecrementFails(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, avengers, 10, 10)
	service := bookings.NewService(failingStore{f.store}, auth.NewIdentityResolver(f.users), bookings.DefaultOptions())

	_, err := service.BookTickets(context.Background(), avengers, 2, []string{"E1", "E2"}, "alice")
	require.Error(t, err)
	assert.Equal(t, apperr.KindBookingRejected, apperr.KindOf(err))
	assert.Contains(t, apperr.ReasonOf(err), "rolled back")

	all, err := f.store.Ledger().ListByPair(context.Background(), avengers, "")
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, 10, f.available(t, avengers))

	// the seats are free again
	_, err = f.service.BookTickets(context.Background(), avengers, 2, []string{"E1", "E2"}, "bob")
	assert.NoError(t, err)
}

func TestBookTickets_ConcurrentCapacity(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, avengers, 10, 10)

	const attempts = 25
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		rejected int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.service.BookTickets(context.Background(), avengers, 1, []string{fmt.Sprintf("R%d", i)}, "alice")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
			} else if apperr.KindOf(err) == apperr.KindBookingRejected {
				rejected++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, success)
	assert.Equal(t, attempts-10, rejected)
	assert.Equal(t, 0, f.available(t, avengers))

	sum, err := f.store.Ledger().SumConfirmed(context.Background(), avengers)
	require.NoError(t, err)
	assert.Equal(t, 10, sum)
}

func TestBookTickets_ConcurrentSameSeat(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, avengers, 100, 100)

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.BookTickets(context.Background(), avengers, 1, []string{"A1"}, "bob")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		if err == nil {
			success++
			continue
		}
		assert.Equal(t, apperr.KindBookingRejected, apperr.KindOf(err))
	}
	assert.Equal(t, 1, success)
	assert.Equal(t, 99, f.available(t, avengers))
}

func TestBookTickets_PairsDoNotBlockEachOther(t *testing.T) {
	f := newFixture(t)
	other := movies.Pair{Movie: "Dune", Theatre: "INOX"}
	f.addMovie(t, avengers, 10, 10)
	f.addMovie(t, other, 10, 10)

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = f.store.InPair(context.Background(), avengers, func(context.Context, movies.Repository, bookings.Repository) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := f.service.BookTickets(ctx, other, 1, []string{"A1"}, "alice")
	require.NoError(t, err)

	// the held pair still waits, bounded by the caller's context
	short, cancelShort := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelShort()
	_, err = f.service.BookTickets(short, avengers, 1, []string{"A1"}, "alice")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 10, f.available(t, avengers))
}

func TestRecalculate_RepairsDrift(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, avengers, 100, 3) // drifted counter
	f.seedConfirmed(t, avengers, "bob", 20)

	movie, err := f.service.Recalculate(context.Background(), avengers)
	require.NoError(t, err)
	assert.Equal(t, 80, movie.AvailableTickets)
	assert.Equal(t, movies.StatusBookable, movie.Status)
	assert.Equal(t, 80, f.available(t, avengers))

	_, err = f.service.Recalculate(context.Background(), movies.Pair{Movie: "Nope", Theatre: "PVR"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestReconcileAll_CountsChangedPairs(t *testing.T) {
	f := newFixture(t)
	other := movies.Pair{Movie: "Dune", Theatre: "INOX"}
	f.addMovie(t, avengers, 100, 100)
	f.addMovie(t, other, 10, 10)
	f.seedConfirmed(t, avengers, "bob", 15)

	changed, err := f.service.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Equal(t, 85, f.available(t, avengers))
	assert.Equal(t, 10, f.available(t, other))
}

func TestRemoveIfUnbooked(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, avengers, 10, 10)

	booking, err := f.service.BookTickets(context.Background(), avengers, 1, []string{"A1"}, "alice")
	require.NoError(t, err)

	err = f.service.RemoveIfUnbooked(context.Background(), avengers)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))

	require.NoError(t, f.store.Ledger().UpdateStatus(context.Background(), booking.ID, bookings.StatusCancelled))
	require.NoError(t, f.service.RemoveIfUnbooked(context.Background(), avengers))

	_, err = f.store.Inventory().GetByPair(context.Background(), avengers)
	assert.ErrorIs(t, err, movies.ErrMovieNotFound)
}

func TestSeatMap(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, avengers, 10, 10)

	_, err := f.service.BookTickets(context.Background(), avengers, 2, []string{"B2", "A1"}, "alice")
	require.NoError(t, err)

	seatMap, err := f.service.SeatMap(context.Background(), avengers)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B2"}, seatMap.BookedSeats)
	assert.Equal(t, 8, seatMap.AvailableTickets)
}

func TestSeatMap_SimilarNamesKeepSeparateCacheEntries(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	f.service.SetCacheService(cache.NewService(redis.NewClient(&redis.Options{Addr: mr.Addr()})))

	dashed := movies.Pair{Movie: "Spider-Man", Theatre: "PVR"}
	spaced := movies.Pair{Movie: "Spider Man", Theatre: "PVR"}
	lower := movies.Pair{Movie: "spider-man", Theatre: "pvr"}
	f.addMovie(t, dashed, 100, 100)
	f.addMovie(t, spaced, 5, 5)
	f.addMovie(t, lower, 7, 7)

	_, err := f.service.BookTickets(context.Background(), dashed, 2, []string{"A1", "A2"}, "alice")
	require.NoError(t, err)

	first, err := f.service.SeatMap(context.Background(), dashed)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, first.BookedSeats)

	for _, tt := range []struct {
		key   movies.Pair
		total int
	}{
		{spaced, 5},
		{lower, 7},
	} {
		seatMap, err := f.service.SeatMap(context.Background(), tt.key)
		require.NoError(t, err)
		assert.Equal(t, tt.key, seatMap.Pair)
		assert.Equal(t, tt.total, seatMap.TotalTickets)
		assert.Empty(t, seatMap.BookedSeats)
	}
}

func TestNewService_CapsMaxTickets(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, avengers, 100, 100)
	service := bookings.NewService(f.store, auth.NewIdentityResolver(f.users),
		bookings.Options{MaxTicketsPerBooking: 50, ReferencePrefix: "MB"})

	seats := make([]string, bookings.MaxTicketsLimit+1)
	for i := range seats {
		seats[i] = fmt.Sprintf("C%d", i)
	}
	_, err := service.BookTickets(context.Background(), avengers, len(seats), seats, "alice")
	assert.Equal(t, apperr.KindValidationFailed, apperr.KindOf(err))

	_, err = service.BookTickets(context.Background(), avengers, bookings.MaxTicketsLimit, seats[:bookings.MaxTicketsLimit], "alice")
	assert.NoError(t, err)
}

func TestMarkSoldOut(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, avengers, 2, 2)

	_, err := f.service.MarkSoldOut(context.Background(), avengers)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))

	_, err = f.service.BookTickets(context.Background(), avengers, 2, []string{"A1", "A2"}, "alice")
	require.NoError(t, err)

	movie, err := f.service.MarkSoldOut(context.Background(), avengers)
	require.NoError(t, err)
	assert.Equal(t, movies.StatusSoldOut, movie.Status)

	_, err = f.service.MarkSoldOut(context.Background(), movies.Pair{Movie: "Dune", Theatre: "PVR"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

// beforeUnitStore runs hook once inside the pair lock, before the unit of work
type beforeUnitStore struct {
	*memory.Store
	once *sync.Once
	hook func()
}

func (s beforeUnitStore) InPair(ctx context.Context, key movies.Pair, fn bookings.UnitOfWork) error {
	return s.Store.InPair(ctx, key, func(ctx context.Context, inventory movies.Repository, ledger bookings.Repository) error {
		s.once.Do(s.hook)
		return fn(ctx, inventory, ledger)
	})
}

func TestMarkSoldOut_SerializedWithCancellation(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, avengers, 2, 2)

	booking, err := f.service.BookTickets(context.Background(), avengers, 2, []string{"A1", "A2"}, "alice")
	require.NoError(t, err)

	canceller := cancellation.NewService(f.store, auth.NewIdentityResolver(f.users))
	cancelled := make(chan error, 1)
	store := beforeUnitStore{Store: f.store, once: &sync.Once{}, hook: func() {
		go func() {
			_, err := canceller.CancelBooking(context.Background(), booking.BookingReference, "alice")
			cancelled <- err
		}()
		// give the cancellation time to reach the pair lock
		time.Sleep(30 * time.Millisecond)
	}}
	guarded := bookings.NewService(store, auth.NewIdentityResolver(f.users), bookings.DefaultOptions())

	_, err = guarded.MarkSoldOut(context.Background(), avengers)
	require.NoError(t, err)
	require.NoError(t, <-cancelled)

	movie, err := f.store.Inventory().GetByPair(context.Background(), avengers)
	require.NoError(t, err)
	assert.Equal(t, 2, movie.AvailableTickets)
	assert.Equal(t, movies.StatusBookable, movie.Status)

	_, err = f.service.BookTickets(context.Background(), avengers, 1, []string{"A1"}, "bob")
	assert.NoError(t, err)
}

func TestGetByReference_Authorization(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, avengers, 10, 10)

	booking, err := f.service.BookTickets(context.Background(), avengers, 1, []string{"A1"}, "alice")
	require.NoError(t, err)

	_, err = f.service.GetByReference(context.Background(), booking.BookingReference, "bob")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	got, err := f.service.GetByReference(context.Background(), booking.BookingReference, "admin")
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)

	_, err = f.service.GetByReference(context.Background(), "MBNOPE", "alice")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListForUser_Paginates(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, avengers, 50, 50)

	for i := 0; i < 5; i++ {
		_, err := f.service.BookTickets(context.Background(), avengers, 1, []string{fmt.Sprintf("P%d", i)}, "alice")
		require.NoError(t, err)
	}
	_, err := f.service.BookTickets(context.Background(), avengers, 1, []string{"Q1"}, "bob")
	require.NoError(t, err)

	page, err := f.service.ListForUser(context.Background(), "alice", bookings.ListQuery{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Bookings, 2)

	count, err := f.service.CountForMovie(context.Background(), "Avengers")
	require.NoError(t, err)
	assert.Equal(t, int64(6), count.BookedTickets)
}

func TestConflictingSeats(t *testing.T) {
	assert.Equal(t, []string{"A1", "C3"}, bookings.ConflictingSeats([]string{"C3", "A1", "B2"}, []string{"C3", "D4", "A1"}))
	assert.Empty(t, bookings.ConflictingSeats(nil, []string{"A1"}))
}

func TestNewReference_Unique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		ref, err := bookings.NewReference("MB", now)
		require.NoError(t, err)
		assert.Regexp(t, `^MB[0-9A-Z]+$`, ref)
		_, dup := seen[ref]
		require.False(t, dup, "duplicate reference %s", ref)
		seen[ref] = struct{}{}
	}
}
