package movies

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	ErrMovieNotFound       = errors.New("movie not found")
	ErrMovieAlreadyExists  = errors.New("movie already exists for this theatre")
	ErrInsufficientTickets = errors.New("insufficient tickets for conditional decrement")
)

// Repository persists inventory records
type Repository interface {
	Create(ctx context.Context, movie *Movie) error
	GetByPair(ctx context.Context, key Pair) (*Movie, error)
	List(ctx context.Context) ([]Movie, error)
	ListPairs(ctx context.Context) ([]Pair, error)
	SearchByName(ctx context.Context, name string) ([]Movie, error)
	ListAvailable(ctx context.Context) ([]Movie, error)
	Search(ctx context.Context, keyword string) ([]Movie, error)

	// DecrementAvailable subtracts n only if at least n tickets remain, in one statement.
	// It returns ErrInsufficientTickets when the condition does not hold.
	DecrementAvailable(ctx context.Context, key Pair, n int) error
	// SetAvailable overwrites the counter and derives the status from it
	SetAvailable(ctx context.Context, key Pair, available int) error
	SetStatus(ctx context.Context, key Pair, status Status) error
	Delete(ctx context.Context, key Pair) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, movie *Movie) error {
	var count int64
	err := r.db.WithContext(ctx).Model(&Movie{}).
		Where("movie_name = ? AND theatre_name = ?", movie.MovieName, movie.TheatreName).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check existing movie: %w", err)
	}
	if count > 0 {
		return ErrMovieAlreadyExists
	}

	if err := r.db.WithContext(ctx).Create(movie).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrMovieAlreadyExists
		}
		return fmt.Errorf("failed to create movie: %w", err)
	}
	return nil
}

func (r *repository) GetByPair(ctx context.Context, key Pair) (*Movie, error) {
	var movie Movie
	err := r.db.WithContext(ctx).
		Where("movie_name = ? AND theatre_name = ?", key.Movie, key.Theatre).
		First(&movie).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMovieNotFound
		}
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}
	return &movie, nil
}

func (r *repository) List(ctx context.Context) ([]Movie, error) {
	var movies []Movie
	err := r.db.WithContext(ctx).
		Order("movie_name ASC, theatre_name ASC").
		Find(&movies).Error
	return movies, err
}

func (r *repository) ListPairs(ctx context.Context) ([]Pair, error) {
	var pairs []Pair
	err := r.db.WithContext(ctx).
		Model(&Movie{}).
		Select("movie_name AS movie, theatre_name AS theatre").
		Order("movie_name ASC, theatre_name ASC").
		Scan(&pairs).Error
	return pairs, err
}

func (r *repository) SearchByName(ctx context.Context, name string) ([]Movie, error) {
	var movies []Movie
	err := r.db.WithContext(ctx).
		Where("LOWER(movie_name) LIKE ?", "%"+strings.ToLower(name)+"%").
		Order("movie_name ASC, theatre_name ASC").
		Find(&movies).Error
	return movies, err
}

func (r *repository) ListAvailable(ctx context.Context) ([]Movie, error) {
	var movies []Movie
	err := r.db.WithContext(ctx).
		Where("available_tickets > 0 AND status = ?", StatusBookable).
		Order("movie_name ASC, theatre_name ASC").
		Find(&movies).Error
	return movies, err
}

func (r *repository) Search(ctx context.Context, keyword string) ([]Movie, error) {
	var movies []Movie
	pattern := "%" + strings.ToLower(keyword) + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(movie_name) LIKE ? OR LOWER(genre) LIKE ? OR LOWER(language) LIKE ? OR LOWER(description) LIKE ?",
			pattern, pattern, pattern, pattern).
		Order("movie_name ASC, theatre_name ASC").
		Find(&movies).Error
	return movies, err
}

func (r *repository) DecrementAvailable(ctx context.Context, key Pair, n int) error {
	result := r.db.WithContext(ctx).
		Model(&Movie{}).
		Where("movie_name = ? AND theatre_name = ? AND available_tickets >= ?", key.Movie, key.Theatre, n).
		Updates(map[string]interface{}{
			"available_tickets": gorm.Expr("available_tickets - ?", n),
			"status": gorm.Expr("CASE WHEN available_tickets - ? > 0 THEN ? ELSE ? END",
				n, StatusBookable, StatusSoldOut),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to decrement available tickets: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientTickets
	}
	return nil
}

func (r *repository) SetAvailable(ctx context.Context, key Pair, available int) error {
	result := r.db.WithContext(ctx).
		Model(&Movie{}).
		Where("movie_name = ? AND theatre_name = ?", key.Movie, key.Theatre).
		Updates(map[string]interface{}{
			"available_tickets": available,
			"status":            StatusFor(available),
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to set available tickets: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMovieNotFound
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, key Pair, status Status) error {
	result := r.db.WithContext(ctx).
		Model(&Movie{}).
		Where("movie_name = ? AND theatre_name = ?", key.Movie, key.Theatre).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to set movie status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMovieNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, key Pair) error {
	result := r.db.WithContext(ctx).
		Where("movie_name = ? AND theatre_name = ?", key.Movie, key.Theatre).
		Delete(&Movie{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete movie: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMovieNotFound
	}
	return nil
}
