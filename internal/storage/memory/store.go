// Package memory is a process-local storage backend. It serializes pair work with
// one lock per (movie, theatre) and offers no rollback, so the booking engine's
// compensating delete is what keeps it consistent.
package memory

import (
	"context"
	"sync"

	"moviebooking/internal/bookings"
	"moviebooking/internal/movies"
	"moviebooking/internal/users"

	"github.com/google/uuid"
)

type seatKey struct {
	pair movies.Pair
	seat string
}

// DB holds every table of the memory backend
type DB struct {
	mu sync.RWMutex

	movies   map[movies.Pair]*movies.Movie
	bookings map[uuid.UUID]*bookings.Booking
	byRef    map[string]uuid.UUID
	claims   map[seatKey]uuid.UUID

	users       map[uuid.UUID]*users.User
	resetTokens map[string]*users.PasswordResetToken

	locks *pairLocks
}

func NewDB() *DB {
	return &DB{
		movies:      make(map[movies.Pair]*movies.Movie),
		bookings:    make(map[uuid.UUID]*bookings.Booking),
		byRef:       make(map[string]uuid.UUID),
		claims:      make(map[seatKey]uuid.UUID),
		users:       make(map[uuid.UUID]*users.User),
		resetTokens: make(map[string]*users.PasswordResetToken),
		locks:       newPairLocks(),
	}
}

// Store implements bookings.Store on a DB
type Store struct {
	db        *DB
	inventory movies.Repository
	ledger    bookings.Repository
}

func NewStore(db *DB) *Store {
	return &Store{
		db:        db,
		inventory: NewMovieRepository(db),
		ledger:    NewLedgerRepository(db),
	}
}

func (s *Store) Inventory() movies.Repository { return s.inventory }
func (s *Store) Ledger() bookings.Repository  { return s.ledger }

func (s *Store) InPair(ctx context.Context, key movies.Pair, fn bookings.UnitOfWork) error {
	release, err := s.db.locks.acquire(ctx, key)
	if err != nil {
		return err
	}
	defer release()

	s.db.mu.RLock()
	_, ok := s.db.movies[key]
	s.db.mu.RUnlock()
	if !ok {
		return movies.ErrMovieNotFound
	}

	return fn(ctx, s.inventory, s.ledger)
}

// pairLocks hands out one mutex per pair. Acquisition gives up when ctx ends.
type pairLocks struct {
	mu    sync.Mutex
	locks map[movies.Pair]chan struct{}
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[movies.Pair]chan struct{})}
}

func (l *pairLocks) acquire(ctx context.Context, key movies.Pair) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
