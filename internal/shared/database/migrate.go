package database

import (
	"fmt"

	"moviebooking/internal/bookings"
	"moviebooking/internal/movies"
	"moviebooking/internal/users"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&users.User{},
		&users.PasswordResetToken{},
		&movies.Movie{},
		&bookings.Booking{},
		&bookings.BookedSeat{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return MigrateConstraints(db)
}
