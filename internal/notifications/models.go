package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventBookingConfirmed EventType = "booking.confirmed"
	EventBookingCancelled EventType = "booking.cancelled"
)

// BookingEvent is published after a booking or cancellation commits
type BookingEvent struct {
	ID              uuid.UUID `json:"id"`
	Type            EventType `json:"type"`
	Reference       string    `json:"booking_reference"`
	MovieName       string    `json:"movie_name"`
	TheatreName     string    `json:"theatre_name"`
	Seats           []string  `json:"seats"`
	NumberOfTickets int       `json:"number_of_tickets"`
	OwnerID         uuid.UUID `json:"owner_id"`
	OwnerLoginName  string    `json:"owner_login_name"`
	OwnerEmail      string    `json:"owner_email,omitempty"`
	TotalPrice      float64   `json:"total_price"`
	Actor           string    `json:"actor,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewBookingEvent stamps a fresh id and time on an event
func NewBookingEvent(eventType EventType) *BookingEvent {
	return &BookingEvent{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
	}
}

// GetPartitionKey keeps events of one showing in order on a single partition
func (e *BookingEvent) GetPartitionKey() string {
	return e.MovieName + "@" + e.TheatreName
}

func (e *BookingEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ParseBookingEvent decodes a published event
func ParseBookingEvent(data []byte) (*BookingEvent, error) {
	var event BookingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
