package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moviebooking/internal/movies"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UnitOfWork runs with exclusive access to one pair's inventory record and ledger slice
type UnitOfWork func(ctx context.Context, inventory movies.Repository, ledger Repository) error

// Store hands out repositories and the per-pair serialization point.
// Work on different pairs never waits on each other.
type Store interface {
	Inventory() movies.Repository
	Ledger() Repository
	// InPair runs fn while holding the pair. It fails with movies.ErrMovieNotFound
	// when the pair does not exist.
	InPair(ctx context.Context, key movies.Pair, fn UnitOfWork) error
}

type gormStore struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormStore serializes pair work with a row lock on the movies row inside a transaction
func NewGormStore(db *gorm.DB, lockTimeout time.Duration) Store {
	return &gormStore{db: db, lockTimeout: lockTimeout}
}

func (s *gormStore) Inventory() movies.Repository {
	return movies.NewRepository(s.db)
}

func (s *gormStore) Ledger() Repository {
	return NewRepository(s.db)
}

func (s *gormStore) InPair(ctx context.Context, key movies.Pair, fn UnitOfWork) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to set lock timeout: %w", err)
			}
		}

		var locked movies.Movie
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("movie_name", "theatre_name").
			Where("movie_name = ? AND theatre_name = ?", key.Movie, key.Theatre).
			First(&locked).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return movies.ErrMovieNotFound
			}
			return fmt.Errorf("failed to lock inventory pair %s: %w", key, err)
		}

		return fn(ctx, movies.NewRepository(tx), NewRepository(tx))
	})
}
