package analytics

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Repository defines the analytics repository interface
type Repository interface {
	// GroupConfirmed aggregates CONFIRMED bookings by dim, most tickets first
	GroupConfirmed(ctx context.Context, dim Dimension) ([]GroupStats, error)
	Overview(ctx context.Context) (*Overview, error)
}

// repository implements the Repository interface
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new analytics repository instance
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GroupConfirmed(ctx context.Context, dim Dimension) ([]GroupStats, error) {
	var stats []GroupStats
	column := dim.Column()

	err := r.db.WithContext(ctx).Raw(fmt.Sprintf(`
		SELECT
			%[1]s AS group_key,
			COUNT(*) AS bookings,
			COALESCE(SUM(number_of_tickets), 0) AS tickets,
			COALESCE(SUM(total_price), 0) AS revenue,
			COALESCE(AVG(number_of_tickets), 0) AS avg_tickets_per_booking,
			COALESCE(AVG(total_price), 0) AS avg_booking_value
		FROM bookings
		WHERE status = ?
		GROUP BY %[1]s
		ORDER BY tickets DESC, group_key ASC
	`, column), "CONFIRMED").Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate bookings by %s: %w", dim, err)
	}
	return stats, nil
}

func (r *repository) Overview(ctx context.Context) (*Overview, error) {
	var overview Overview
	db := r.db.WithContext(ctx)

	err := db.Raw(`
		SELECT
			COUNT(*) AS total_bookings,
			COUNT(*) FILTER (WHERE status = 'CONFIRMED') AS confirmed_bookings,
			COUNT(*) FILTER (WHERE status = 'CANCELLED') AS cancelled_bookings,
			COALESCE(SUM(number_of_tickets) FILTER (WHERE status = 'CONFIRMED'), 0) AS tickets_sold,
			COALESCE(SUM(total_price) FILTER (WHERE status = 'CONFIRMED'), 0) AS revenue
		FROM bookings
	`).Scan(&overview).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get booking overview: %w", err)
	}

	var inventory struct {
		Screenings        int64
		SoldOutScreenings int64
		TotalCapacity     int64
		AvailableTickets  int64
	}
	err = db.Raw(`
		SELECT
			COUNT(*) AS screenings,
			COUNT(*) FILTER (WHERE status = 'SOLD_OUT') AS sold_out_screenings,
			COALESCE(SUM(total_tickets), 0) AS total_capacity,
			COALESCE(SUM(available_tickets), 0) AS available_tickets
		FROM movies
	`).Scan(&inventory).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory overview: %w", err)
	}

	overview.Screenings = inventory.Screenings
	overview.SoldOutScreenings = inventory.SoldOutScreenings
	overview.TotalCapacity = inventory.TotalCapacity
	overview.AvailableTickets = inventory.AvailableTickets
	overview.ComputeRatios()
	return &overview, nil
}
