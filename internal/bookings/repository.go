package bookings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"moviebooking/internal/movies"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrSeatTaken       = errors.New("seat already taken")
)

// Repository is the booking ledger
type Repository interface {
	// Insert stores the booking and, when CONFIRMED, its seat claims.
	// A claim that collides with another CONFIRMED booking yields ErrSeatTaken.
	Insert(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetByReference(ctx context.Context, reference string) (*Booking, error)
	ListByPair(ctx context.Context, key movies.Pair, status Status) ([]Booking, error)
	// SeatsForPair returns every seat held by a CONFIRMED booking of the pair
	SeatsForPair(ctx context.Context, key movies.Pair) ([]string, error)
	// Delete removes a booking outright. Only the compensating path uses it;
	// deleting a missing booking is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
	// UpdateStatus moves a booking to status. Leaving CONFIRMED releases its seat claims.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	// SumConfirmed is the number of tickets held by CONFIRMED bookings of the pair
	SumConfirmed(ctx context.Context, key movies.Pair) (int, error)

	ListByUser(ctx context.Context, loginName string, query ListQuery) ([]Booking, int64, error)
	ListAll(ctx context.Context, query ListQuery) ([]Booking, int64, error)
	ListByMovie(ctx context.Context, movieName string) ([]Booking, error)
	CountConfirmedForMovie(ctx context.Context, movieName string) (int64, error)

	// PurgeCancelledBefore deletes CANCELLED bookings last changed before cutoff
	PurgeCancelledBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, booking *Booking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(booking).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("booking reference %s already used: %w", booking.BookingReference, err)
			}
			return fmt.Errorf("failed to insert booking: %w", err)
		}

		if !booking.Status.HoldsSeats() || len(booking.SeatNumbers) == 0 {
			return nil
		}

		claims := booking.Claims()
		if err := tx.Create(&claims).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSeatTaken
			}
			return fmt.Errorf("failed to claim seats: %w", err)
		}
		return nil
	})
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (r *repository) GetByReference(ctx context.Context, reference string) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).Where("booking_reference = ?", reference).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking by reference: %w", err)
	}
	return &booking, nil
}

func (r *repository) ListByPair(ctx context.Context, key movies.Pair, status Status) ([]Booking, error) {
	var bookings []Booking
	query := r.db.WithContext(ctx).
		Where("movie_name = ? AND theatre_name = ?", key.Movie, key.Theatre)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("booked_at ASC").Find(&bookings).Error
	return bookings, err
}

func (r *repository) SeatsForPair(ctx context.Context, key movies.Pair) ([]string, error) {
	var seats []string
	err := r.db.WithContext(ctx).
		Model(&BookedSeat{}).
		Where("movie_name = ? AND theatre_name = ?", key.Movie, key.Theatre).
		Order("seat_number ASC").
		Pluck("seat_number", &seats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load booked seats: %w", err)
	}
	return seats, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("booking_id = ?", id).Delete(&BookedSeat{}).Error; err != nil {
			return fmt.Errorf("failed to release seat claims: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&Booking{}).Error; err != nil {
			return fmt.Errorf("failed to delete booking: %w", err)
		}
		return nil
	})
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		updates := map[string]interface{}{
			"status":     status,
			"updated_at": now,
		}
		if status == StatusCancelled {
			updates["cancelled_at"] = now
		}

		result := tx.Model(&Booking{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update booking status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrBookingNotFound
		}

		if !status.HoldsSeats() {
			if err := tx.Where("booking_id = ?", id).Delete(&BookedSeat{}).Error; err != nil {
				return fmt.Errorf("failed to release seat claims: %w", err)
			}
		}
		return nil
	})
}

func (r *repository) SumConfirmed(ctx context.Context, key movies.Pair) (int, error) {
	var total int
	err := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("movie_name = ? AND theatre_name = ? AND status = ?", key.Movie, key.Theatre, StatusConfirmed).
		Select("COALESCE(SUM(number_of_tickets), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum confirmed tickets: %w", err)
	}
	return total, nil
}

func (r *repository) ListByUser(ctx context.Context, loginName string, query ListQuery) ([]Booking, int64, error) {
	return r.paginate(r.db.WithContext(ctx).Model(&Booking{}).Where("owner_login_name = ?", loginName), query)
}

func (r *repository) ListAll(ctx context.Context, query ListQuery) ([]Booking, int64, error) {
	return r.paginate(r.db.WithContext(ctx).Model(&Booking{}), query)
}

func (r *repository) ListByMovie(ctx context.Context, movieName string) ([]Booking, error) {
	var bookings []Booking
	err := r.db.WithContext(ctx).
		Where("movie_name = ?", movieName).
		Where("status = ?", StatusConfirmed). // Only confirmed bookings
		Order("booked_at DESC").
		Find(&bookings).Error
	return bookings, err
}

func (r *repository) CountConfirmedForMovie(ctx context.Context, movieName string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("movie_name = ? AND status = ?", movieName, StatusConfirmed).
		Select("COALESCE(SUM(number_of_tickets), 0)").
		Scan(&count).Error
	return count, err
}

func (r *repository) PurgeCancelledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND COALESCE(cancelled_at, updated_at) < ?", StatusCancelled, cutoff).
		Delete(&Booking{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge cancelled bookings: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *repository) paginate(base *gorm.DB, query ListQuery) ([]Booking, int64, error) {
	var bookings []Booking
	var totalCount int64

	query.Normalize()
	base = r.applyFilters(base, query)

	if err := base.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	offset := (query.Page - 1) * query.Limit
	err := base.
		Order("booked_at DESC").
		Offset(offset).
		Limit(query.Limit).
		Find(&bookings).Error

	return bookings, totalCount, err
}

// applyFilters applies query filters to the GORM query
func (r *repository) applyFilters(query *gorm.DB, filters ListQuery) *gorm.DB {
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Movie != "" {
		query = query.Where("movie_name = ?", filters.Movie)
	}
	if filters.Theatre != "" {
		query = query.Where("theatre_name = ?", filters.Theatre)
	}

	if filters.DateFrom != "" {
		if dateFrom, err := time.Parse("2006-01-02", filters.DateFrom); err == nil {
			query = query.Where("booked_at >= ?", dateFrom)
		}
	}
	if filters.DateTo != "" {
		if dateTo, err := time.Parse("2006-01-02", filters.DateTo); err == nil {
			// include the entire day
			dateTo = dateTo.Add(24*time.Hour - time.Nanosecond)
			query = query.Where("booked_at <= ?", dateTo)
		}
	}

	return query
}

// CalculateTotalPages is the page count for totalCount rows of limit size
func CalculateTotalPages(totalCount int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(totalCount) / float64(limit)))
}
