package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"moviebooking/internal/bookings"
	"moviebooking/internal/movies"

	"github.com/google/uuid"
)

type ledgerRepository struct {
	db *DB
}

func NewLedgerRepository(db *DB) bookings.Repository {
	return &ledgerRepository{db: db}
}

func copyBooking(b *bookings.Booking) *bookings.Booking {
	cp := *b
	cp.SeatNumbers = append([]string(nil), b.SeatNumbers...)
	if b.CancelledAt != nil {
		at := *b.CancelledAt
		cp.CancelledAt = &at
	}
	return &cp
}

func (r *ledgerRepository) Insert(ctx context.Context, booking *bookings.Booking) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.byRef[booking.BookingReference]; exists {
		return fmt.Errorf("booking reference %s already used", booking.BookingReference)
	}

	key := booking.Key()
	if booking.Status.HoldsSeats() {
		for _, seat := range booking.SeatNumbers {
			if _, taken := r.db.claims[seatKey{pair: key, seat: seat}]; taken {
				return bookings.ErrSeatTaken
			}
		}
	}

	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	if booking.BookedAt.IsZero() {
		booking.BookedAt = now
	}

	r.db.bookings[booking.ID] = copyBooking(booking)
	r.db.byRef[booking.BookingReference] = booking.ID
	if booking.Status.HoldsSeats() {
		for _, seat := range booking.SeatNumbers {
			r.db.claims[seatKey{pair: key, seat: seat}] = booking.ID
		}
	}
	return nil
}

func (r *ledgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*bookings.Booking, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	booking, ok := r.db.bookings[id]
	if !ok {
		return nil, bookings.ErrBookingNotFound
	}
	return copyBooking(booking), nil
}

func (r *ledgerRepository) GetByReference(ctx context.Context, reference string) (*bookings.Booking, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	id, ok := r.db.byRef[reference]
	if !ok {
		return nil, bookings.ErrBookingNotFound
	}
	return copyBooking(r.db.bookings[id]), nil
}

// collect returns copies of matching bookings, oldest first
func (r *ledgerRepository) collect(keep func(*bookings.Booking) bool) []bookings.Booking {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	result := make([]bookings.Booking, 0)
	for _, booking := range r.db.bookings {
		if keep(booking) {
			result = append(result, *copyBooking(booking))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].BookedAt.Equal(result[j].BookedAt) {
			return result[i].BookedAt.Before(result[j].BookedAt)
		}
		return result[i].BookingReference < result[j].BookingReference
	})
	return result
}

func (r *ledgerRepository) ListByPair(ctx context.Context, key movies.Pair, status bookings.Status) ([]bookings.Booking, error) {
	return r.collect(func(b *bookings.Booking) bool {
		return b.Key() == key && (status == "" || b.Status == status)
	}), nil
}

func (r *ledgerRepository) SeatsForPair(ctx context.Context, key movies.Pair) ([]string, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	seats := make([]string, 0)
	for claim := range r.db.claims {
		if claim.pair == key {
			seats = append(seats, claim.seat)
		}
	}
	sort.Strings(seats)
	return seats, nil
}

func (r *ledgerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	booking, ok := r.db.bookings[id]
	if !ok {
		return nil
	}
	r.releaseClaimsLocked(booking)
	delete(r.db.byRef, booking.BookingReference)
	delete(r.db.bookings, id)
	return nil
}

func (r *ledgerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status bookings.Status) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	booking, ok := r.db.bookings[id]
	if !ok {
		return bookings.ErrBookingNotFound
	}

	now := time.Now()
	booking.Status = status
	booking.UpdatedAt = now
	if status == bookings.StatusCancelled {
		booking.CancelledAt = &now
	}
	if !status.HoldsSeats() {
		r.releaseClaimsLocked(booking)
	}
	return nil
}

func (r *ledgerRepository) releaseClaimsLocked(booking *bookings.Booking) {
	key := booking.Key()
	for _, seat := range booking.SeatNumbers {
		claim := seatKey{pair: key, seat: seat}
		if r.db.claims[claim] == booking.ID {
			delete(r.db.claims, claim)
		}
	}
}

func (r *ledgerRepository) SumConfirmed(ctx context.Context, key movies.Pair) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	total := 0
	for _, booking := range r.db.bookings {
		if booking.Key() == key && booking.Status == bookings.StatusConfirmed {
			total += booking.NumberOfTickets
		}
	}
	return total, nil
}

func (r *ledgerRepository) ListByUser(ctx context.Context, loginName string, query bookings.ListQuery) ([]bookings.Booking, int64, error) {
	return r.paginate(func(b *bookings.Booking) bool { return b.OwnerLoginName == loginName }, query)
}

func (r *ledgerRepository) ListAll(ctx context.Context, query bookings.ListQuery) ([]bookings.Booking, int64, error) {
	return r.paginate(func(*bookings.Booking) bool { return true }, query)
}

func (r *ledgerRepository) ListByMovie(ctx context.Context, movieName string) ([]bookings.Booking, error) {
	result := r.collect(func(b *bookings.Booking) bool {
		return b.MovieName == movieName && b.Status == bookings.StatusConfirmed
	})
	reverse(result)
	return result, nil
}

func (r *ledgerRepository) CountConfirmedForMovie(ctx context.Context, movieName string) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var total int64
	for _, booking := range r.db.bookings {
		if booking.MovieName == movieName && booking.Status == bookings.StatusConfirmed {
			total += int64(booking.NumberOfTickets)
		}
	}
	return total, nil
}

func (r *ledgerRepository) PurgeCancelledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var purged int64
	for id, booking := range r.db.bookings {
		if booking.Status != bookings.StatusCancelled {
			continue
		}
		changed := booking.UpdatedAt
		if booking.CancelledAt != nil {
			changed = *booking.CancelledAt
		}
		if changed.Before(cutoff) {
			delete(r.db.byRef, booking.BookingReference)
			delete(r.db.bookings, id)
			purged++
		}
	}
	return purged, nil
}

func (r *ledgerRepository) paginate(keep func(*bookings.Booking) bool, query bookings.ListQuery) ([]bookings.Booking, int64, error) {
	query.Normalize()

	var from, to time.Time
	if query.DateFrom != "" {
		from, _ = time.Parse("2006-01-02", query.DateFrom)
	}
	if query.DateTo != "" {
		if parsed, err := time.Parse("2006-01-02", query.DateTo); err == nil {
			to = parsed.Add(24*time.Hour - time.Nanosecond)
		}
	}

	matched := r.collect(func(b *bookings.Booking) bool {
		if !keep(b) {
			return false
		}
		if query.Status != "" && string(b.Status) != query.Status {
			return false
		}
		if query.Movie != "" && b.MovieName != query.Movie {
			return false
		}
		if query.Theatre != "" && b.TheatreName != query.Theatre {
			return false
		}
		if !from.IsZero() && b.BookedAt.Before(from) {
			return false
		}
		if !to.IsZero() && b.BookedAt.After(to) {
			return false
		}
		return true
	})
	reverse(matched)

	total := int64(len(matched))
	start := (query.Page - 1) * query.Limit
	if start >= len(matched) {
		return []bookings.Booking{}, total, nil
	}
	end := start + query.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func reverse(list []bookings.Booking) {
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
}
