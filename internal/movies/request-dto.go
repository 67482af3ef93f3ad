package movies

import "time"

// create movie request payload (admin)
type CreateMovieRequest struct {
	MovieName       string     `json:"movie_name" validate:"required,min=1,max=200"`
	TheatreName     string     `json:"theatre_name" validate:"required,min=1,max=200"`
	TotalTickets    int        `json:"total_tickets" validate:"required,min=1"`
	TicketPrice     float64    `json:"ticket_price" validate:"gte=0"`
	Description     string     `json:"description" validate:"max=2000"`
	Genre           string     `json:"genre" validate:"max=100"`
	Language        string     `json:"language" validate:"max=50"`
	DurationMinutes int        `json:"duration_minutes" validate:"gte=0"`
	Rating          float64    `json:"rating" validate:"gte=0,lte=10"`
	ReleaseDate     *time.Time `json:"release_date"`
	PosterURL       string     `json:"poster_url" validate:"omitempty,url"`
	ShowTimes       []ShowTime `json:"show_times" validate:"dive"`
}

// ticket status update payload (admin)
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=BOOKABLE SOLD_OUT"`
}
