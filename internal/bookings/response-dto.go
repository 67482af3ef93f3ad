package bookings

import "moviebooking/internal/movies"

// BookingListResponse is a page of ledger records
type BookingListResponse struct {
	Bookings   []Booking `json:"bookings"`
	TotalCount int64     `json:"total_count"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

// SeatMapResponse lists the seats held by CONFIRMED bookings for a pair
type SeatMapResponse struct {
	movies.Pair
	TotalTickets     int      `json:"total_tickets"`
	AvailableTickets int      `json:"available_tickets"`
	Status           string   `json:"status"`
	BookedSeats      []string `json:"booked_seats"`
}

// TicketCountResponse is the number of confirmed tickets for a movie
type TicketCountResponse struct {
	MovieName     string `json:"movie_name"`
	BookedTickets int64  `json:"booked_tickets"`
}
