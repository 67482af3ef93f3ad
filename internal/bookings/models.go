package bookings

import (
	"time"

	"moviebooking/internal/movies"

	"github.com/google/uuid"
)

// Booking is one reservation in the ledger
type Booking struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BookingReference string     `gorm:"type:varchar(40);uniqueIndex;not null" json:"booking_reference"`
	MovieName        string     `gorm:"type:varchar(200);not null;index:idx_bookings_pair" json:"movie_name"`
	TheatreName      string     `gorm:"type:varchar(200);not null;index:idx_bookings_pair" json:"theatre_name"`
	NumberOfTickets  int        `gorm:"not null;check:number_of_tickets BETWEEN 1 AND 10" json:"number_of_tickets"`
	SeatNumbers      []string   `gorm:"type:jsonb;serializer:json;not null" json:"seat_numbers"`
	OwnerID          uuid.UUID  `gorm:"type:uuid;index;not null" json:"owner_id"`
	OwnerLoginName   string     `gorm:"type:varchar(100);index;not null" json:"owner_login_name"`
	Status           Status     `gorm:"type:varchar(20);not null;default:'CONFIRMED';check:status IN ('CONFIRMED', 'CANCELLED', 'EXPIRED')" json:"status"`
	TotalPrice       float64    `gorm:"not null;default:0" json:"total_price"`
	BookedAt         time.Time  `gorm:"not null" json:"booked_at"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `gorm:"index" json:"updated_at"`
}

// BookedSeat is the seat claim of a CONFIRMED booking. The composite primary key
// makes a second claim on the same seat of a pair fail at insert time.
type BookedSeat struct {
	MovieName   string    `gorm:"primaryKey;type:varchar(200)" json:"movie_name"`
	TheatreName string    `gorm:"primaryKey;type:varchar(200)" json:"theatre_name"`
	SeatNumber  string    `gorm:"primaryKey;type:varchar(20)" json:"seat_number"`
	BookingID   uuid.UUID `gorm:"type:uuid;index;not null" json:"booking_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

// TableName sets the table name for BookedSeat
func (BookedSeat) TableName() string {
	return "booked_seats"
}

func (b *Booking) Key() movies.Pair {
	return movies.Pair{Movie: b.MovieName, Theatre: b.TheatreName}
}

// Helper methods for booking management
func (b *Booking) IsConfirmed() bool {
	return b.Status == StatusConfirmed
}

func (b *Booking) IsCancelled() bool {
	return b.Status == StatusCancelled
}

// IsOwnedBy reports whether loginName placed the booking
func (b *Booking) IsOwnedBy(loginName string) bool {
	return b.OwnerLoginName == loginName
}

// Claims returns the seat claims this booking holds while CONFIRMED
func (b *Booking) Claims() []BookedSeat {
	claims := make([]BookedSeat, 0, len(b.SeatNumbers))
	for _, seat := range b.SeatNumbers {
		claims = append(claims, BookedSeat{
			MovieName:   b.MovieName,
			TheatreName: b.TheatreName,
			SeatNumber:  seat,
			BookingID:   b.ID,
		})
	}
	return claims
}
