package database

import (
	"fmt"

	"gorm.io/gorm"
)

// MigrateConstraints adds the constraints AutoMigrate cannot express.
// Seat uniqueness per pair is the booked_seats primary key.
func MigrateConstraints(db *gorm.DB) error {
	statements := []struct {
		name string
		sql  string
	}{
		{
			// claims disappear with their booking, including on retention purge
			name: "fk_booked_seats_booking",
			sql: `
				DO $$
				BEGIN
					IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_booked_seats_booking') THEN
						ALTER TABLE booked_seats
						ADD CONSTRAINT fk_booked_seats_booking
						FOREIGN KEY (booking_id) REFERENCES bookings (id) ON DELETE CASCADE;
					END IF;
				END
				$$;
			`,
		},
		{
			// recalculation sums confirmed tickets per pair
			name: "idx_bookings_pair_confirmed",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_bookings_pair_confirmed
				ON bookings (movie_name, theatre_name)
				WHERE status = 'CONFIRMED';
			`,
		},
		{
			name: "idx_bookings_cancelled_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_bookings_cancelled_at
				ON bookings (cancelled_at)
				WHERE status = 'CANCELLED';
			`,
		},
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt.sql).Error; err != nil {
			return fmt.Errorf("failed to apply %s: %w", stmt.name, err)
		}
	}
	return nil
}
