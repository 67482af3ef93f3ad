package analytics

import (
	"time"
)

// Dimension is the grouping key of a statistics query
type Dimension string

const (
	ByMovie   Dimension = "movie"
	ByTheatre Dimension = "theatre"
	ByUser    Dimension = "user"
)

func (d Dimension) IsValid() bool {
	switch d {
	case ByMovie, ByTheatre, ByUser:
		return true
	}
	return false
}

// Column is the bookings column the dimension groups on
func (d Dimension) Column() string {
	switch d {
	case ByTheatre:
		return "theatre_name"
	case ByUser:
		return "owner_login_name"
	default:
		return "movie_name"
	}
}

// GroupStats aggregates the CONFIRMED bookings sharing one key
type GroupStats struct {
	Key                  string  `json:"key" gorm:"column:group_key"`
	Bookings             int64   `json:"bookings"`
	Tickets              int64   `json:"tickets"`
	Revenue              float64 `json:"revenue"`
	AvgTicketsPerBooking float64 `json:"avg_tickets_per_booking"`
	AvgBookingValue      float64 `json:"avg_booking_value"`
}

type Overview struct {
	TotalBookings     int64   `json:"total_bookings"`
	ConfirmedBookings int64   `json:"confirmed_bookings"`
	CancelledBookings int64   `json:"cancelled_bookings"`
	TicketsSold       int64   `json:"tickets_sold"`
	Revenue           float64 `json:"revenue"`
	CancellationRate  float64 `json:"cancellation_rate"`
	Screenings        int64   `json:"screenings"`
	SoldOutScreenings int64   `json:"sold_out_screenings"`
	TotalCapacity     int64   `json:"total_capacity"`
	AvailableTickets  int64   `json:"available_tickets"`
	Utilization       float64 `json:"utilization"`
}

// ComputeRatios fills the derived ratios, both in percent
func (o *Overview) ComputeRatios() {
	if o.TotalBookings > 0 {
		o.CancellationRate = float64(o.CancelledBookings) / float64(o.TotalBookings) * 100
	}
	if o.TotalCapacity > 0 {
		o.Utilization = float64(o.TotalCapacity-o.AvailableTickets) / float64(o.TotalCapacity) * 100
	}
}

type DashboardAnalytics struct {
	Overview    Overview     `json:"overview"`
	TopMovies   []GroupStats `json:"top_movies"`
	TopTheatres []GroupStats `json:"top_theatres"`
	TopUsers    []GroupStats `json:"top_users"`
	GeneratedAt time.Time    `json:"generated_at"`
}

type PurgeResult struct {
	Cutoff time.Time `json:"cutoff"`
	Purged int64     `json:"purged"`
}

// PurgeRequest is the body of POST /admin/maintenance/purge; nil means the configured age
type PurgeRequest struct {
	OlderThanDays *int `json:"older_than_days" validate:"omitempty,min=0,max=3650"`
}
