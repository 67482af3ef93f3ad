package movies

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gosimple/slug"
)

type Status string

const (
	StatusBookable Status = "BOOKABLE"
	StatusSoldOut  Status = "SOLD_OUT"
)

// IsValid checks if the inventory status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusBookable, StatusSoldOut:
		return true
	}
	return false
}

// StatusFor derives the inventory status from the remaining ticket count
func StatusFor(available int) Status {
	if available > 0 {
		return StatusBookable
	}
	return StatusSoldOut
}

// Pair identifies one showing's seat pool
type Pair struct {
	Movie   string `json:"movie_name"`
	Theatre string `json:"theatre_name"`
}

func (p Pair) String() string {
	return fmt.Sprintf("%s@%s", p.Movie, p.Theatre)
}

// CacheKey is the readable slug of the pair followed by a digest of the exact
// names. Slugs fold case and punctuation, the digest does not.
func (p Pair) CacheKey() string {
	sum := sha256.Sum256([]byte(p.Movie + "\x00" + p.Theatre))
	return slug.Make(p.Movie) + ":" + slug.Make(p.Theatre) + ":" + hex.EncodeToString(sum[:6])
}

// ShowTime is informational only and carries no capacity
type ShowTime struct {
	Time   string `json:"time"`
	Date   string `json:"date"`
	Screen string `json:"screen,omitempty"`
}

// Movie is the inventory record for one (movie, theatre) pair
type Movie struct {
	MovieName        string     `gorm:"primaryKey;type:varchar(200)" json:"movie_name"`
	TheatreName      string     `gorm:"primaryKey;type:varchar(200)" json:"theatre_name"`
	TotalTickets     int        `gorm:"not null;check:total_tickets >= 1" json:"total_tickets"`
	AvailableTickets int        `gorm:"not null;check:available_tickets >= 0" json:"available_tickets"`
	Status           Status     `gorm:"type:varchar(20);not null;default:'BOOKABLE';check:status IN ('BOOKABLE', 'SOLD_OUT')" json:"status"`
	TicketPrice      float64    `gorm:"not null;default:0" json:"ticket_price"`
	Description      string     `gorm:"type:text" json:"description,omitempty"`
	Genre            string     `gorm:"type:varchar(100);index" json:"genre,omitempty"`
	Language         string     `gorm:"type:varchar(50)" json:"language,omitempty"`
	DurationMinutes  int        `json:"duration_minutes,omitempty"`
	Rating           float64    `json:"rating,omitempty"`
	ReleaseDate      *time.Time `json:"release_date,omitempty"`
	PosterURL        string     `json:"poster_url,omitempty"`
	ShowTimes        []ShowTime `gorm:"type:jsonb;serializer:json" json:"show_times"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName sets the table name for Movie
func (Movie) TableName() string {
	return "movies"
}

func (m *Movie) Key() Pair {
	return Pair{Movie: m.MovieName, Theatre: m.TheatreName}
}

func (m *Movie) IsBookable() bool {
	return m.Status == StatusBookable && m.AvailableTickets > 0
}
