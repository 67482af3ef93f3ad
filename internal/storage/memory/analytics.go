package memory

import (
	"context"
	"sort"

	"moviebooking/internal/analytics"
	"moviebooking/internal/bookings"
	"moviebooking/internal/movies"
)

type analyticsRepository struct {
	db *DB
}

func NewAnalyticsRepository(db *DB) analytics.Repository {
	return &analyticsRepository{db: db}
}

func groupKey(b *bookings.Booking, dim analytics.Dimension) string {
	switch dim {
	case analytics.ByTheatre:
		return b.TheatreName
	case analytics.ByUser:
		return b.OwnerLoginName
	default:
		return b.MovieName
	}
}

func (r *analyticsRepository) GroupConfirmed(ctx context.Context, dim analytics.Dimension) ([]analytics.GroupStats, error) {
	r.db.mu.RLock()
	groups := make(map[string]*analytics.GroupStats)
	for _, booking := range r.db.bookings {
		if booking.Status != bookings.StatusConfirmed {
			continue
		}
		key := groupKey(booking, dim)
		stats, ok := groups[key]
		if !ok {
			stats = &analytics.GroupStats{Key: key}
			groups[key] = stats
		}
		stats.Bookings++
		stats.Tickets += int64(booking.NumberOfTickets)
		stats.Revenue += booking.TotalPrice
	}
	r.db.mu.RUnlock()

	result := make([]analytics.GroupStats, 0, len(groups))
	for _, stats := range groups {
		stats.AvgTicketsPerBooking = float64(stats.Tickets) / float64(stats.Bookings)
		stats.AvgBookingValue = stats.Revenue / float64(stats.Bookings)
		result = append(result, *stats)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Tickets != result[j].Tickets {
			return result[i].Tickets > result[j].Tickets
		}
		return result[i].Key < result[j].Key
	})
	return result, nil
}

func (r *analyticsRepository) Overview(ctx context.Context) (*analytics.Overview, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var overview analytics.Overview
	for _, booking := range r.db.bookings {
		overview.TotalBookings++
		switch booking.Status {
		case bookings.StatusConfirmed:
			overview.ConfirmedBookings++
			overview.TicketsSold += int64(booking.NumberOfTickets)
			overview.Revenue += booking.TotalPrice
		case bookings.StatusCancelled:
			overview.CancelledBookings++
		}
	}
	for _, movie := range r.db.movies {
		overview.Screenings++
		if movie.Status == movies.StatusSoldOut {
			overview.SoldOutScreenings++
		}
		overview.TotalCapacity += int64(movie.TotalTickets)
		overview.AvailableTickets += int64(movie.AvailableTickets)
	}
	overview.ComputeRatios()
	return &overview, nil
}
