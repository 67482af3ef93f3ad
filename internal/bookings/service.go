package bookings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"moviebooking/internal/movies"
	"moviebooking/internal/notifications"
	"moviebooking/internal/shared/apperr"
	"moviebooking/internal/shared/constants"
	"moviebooking/pkg/cache"
	"moviebooking/pkg/logger"

	"github.com/google/uuid"
)

// Identity is a resolved caller or booking owner
type Identity struct {
	ID        uuid.UUID `json:"id"`
	LoginName string    `json:"login_name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
}

// IdentityResolver looks a user up by login name or id.
// Unknown identifiers fail with an apperr NOT_FOUND.
type IdentityResolver interface {
	Resolve(ctx context.Context, identifier string) (*Identity, error)
}

const (
	// MaxTicketsLimit is the hard ceiling on tickets per booking; Options can only lower it
	MaxTicketsLimit = 10
	// MaxSeatNumberLength matches the booked_seats.seat_number column
	MaxSeatNumberLength = 20
)

// Options are the engine limits
type Options struct {
	MaxTicketsPerBooking int
	ReferencePrefix      string
}

func DefaultOptions() Options {
	return Options{MaxTicketsPerBooking: MaxTicketsLimit, ReferencePrefix: "MB"}
}

// Service interface defines the contract for the booking engine and ledger queries
type Service interface {
	BookTickets(ctx context.Context, key movies.Pair, numberOfTickets int, seatNumbers []string, actingUser string) (*Booking, error)

	// Recalculate rebuilds the pair's counter from the ledger
	Recalculate(ctx context.Context, key movies.Pair) (*movies.Movie, error)
	// ReconcileAll recalculates every pair and returns how many counters changed
	ReconcileAll(ctx context.Context) (int, error)
	// RemoveIfUnbooked deletes a pair that no CONFIRMED booking references
	RemoveIfUnbooked(ctx context.Context, key movies.Pair) error
	// MarkSoldOut closes a pair whose counter is already at zero
	MarkSoldOut(ctx context.Context, key movies.Pair) (*movies.Movie, error)

	SeatMap(ctx context.Context, key movies.Pair) (*SeatMapResponse, error)
	GetByReference(ctx context.Context, reference, actingUser string) (*Booking, error)
	ListForUser(ctx context.Context, identifier string, query ListQuery) (*BookingListResponse, error)
	ListForMovie(ctx context.Context, movieName string) ([]Booking, error)
	ListAll(ctx context.Context, query ListQuery) (*BookingListResponse, error)
	CountForMovie(ctx context.Context, movieName string) (*TicketCountResponse, error)
	QRCode(ctx context.Context, reference, actingUser string, size int) ([]byte, error)

	SetCacheService(cacheService cache.Service)
	SetPublisher(publisher notifications.Publisher)
}

type service struct {
	store        Store
	identities   IdentityResolver
	opts         Options
	cacheService cache.Service
	publisher    notifications.Publisher
	logger       *logger.Logger
}

// NewService creates the booking engine
func NewService(store Store, identities IdentityResolver, opts Options) Service {
	if opts.MaxTicketsPerBooking <= 0 || opts.MaxTicketsPerBooking > MaxTicketsLimit {
		opts.MaxTicketsPerBooking = MaxTicketsLimit
	}
	return &service{
		store:      store,
		identities: identities,
		opts:       opts,
		publisher:  notifications.NoopPublisher{},
		logger:     logger.GetDefault(),
	}
}

// SetCacheService injects the cache service dependency
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

// SetPublisher injects the domain event publisher
func (s *service) SetPublisher(publisher notifications.Publisher) {
	if publisher == nil {
		publisher = notifications.NoopPublisher{}
	}
	s.publisher = publisher
}

func (s *service) BookTickets(ctx context.Context, key movies.Pair, numberOfTickets int, seatNumbers []string, actingUser string) (*Booking, error) {
	seats, err := ValidateRequest(key, numberOfTickets, seatNumbers, actingUser, s.opts.MaxTicketsPerBooking)
	if err != nil {
		return nil, err
	}

	identity, err := s.resolve(ctx, actingUser)
	if err != nil {
		return nil, err
	}

	reference, err := NewReference(s.opts.ReferencePrefix, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to generate booking reference: %w", err)
	}

	var booking *Booking
	err = s.store.InPair(ctx, key, func(ctx context.Context, inventory movies.Repository, ledger Repository) error {
		movie, err := inventory.GetByPair(ctx, key)
		if err != nil {
			return err
		}

		if movie.Status == movies.StatusSoldOut || movie.AvailableTickets <= 0 {
			return apperr.Rejected("%s at %s is sold out", key.Movie, key.Theatre)
		}
		if movie.AvailableTickets < numberOfTickets {
			return apperr.Rejected("insufficient capacity: only %d tickets available, requested %d",
				movie.AvailableTickets, numberOfTickets)
		}

		held, err := ledger.SeatsForPair(ctx, key)
		if err != nil {
			return err
		}
		if conflicts := ConflictingSeats(held, seats); len(conflicts) > 0 {
			return apperr.Rejected("seat already taken: %s", strings.Join(conflicts, ", "))
		}

		now := time.Now()
		candidate := &Booking{
			ID:               uuid.New(),
			BookingReference: reference,
			MovieName:        key.Movie,
			TheatreName:      key.Theatre,
			NumberOfTickets:  numberOfTickets,
			SeatNumbers:      seats,
			OwnerID:          identity.ID,
			OwnerLoginName:   identity.LoginName,
			Status:           StatusConfirmed,
			TotalPrice:       float64(numberOfTickets) * movie.TicketPrice,
			BookedAt:         now,
		}
		if err := ledger.Insert(ctx, candidate); err != nil {
			if errors.Is(err, ErrSeatTaken) {
				return apperr.Wrap(apperr.KindBookingRejected, err, "seat already taken")
			}
			return fmt.Errorf("failed to persist booking: %w", err)
		}

		if err := inventory.DecrementAvailable(ctx, key, numberOfTickets); err != nil {
			compensateErr := ledger.Delete(ctx, candidate.ID)
			s.logger.LogBookingCompensated(ctx, reference, key.Movie, key.Theatre, err, compensateErr)
			return apperr.Wrap(apperr.KindBookingRejected, err, "inventory update failed, booking %s rolled back", reference)
		}

		booking = candidate
		return nil
	})
	if err != nil {
		return nil, translate(err, key)
	}

	s.logger.LogBookingCreated(ctx, booking.BookingReference, key.Movie, key.Theatre, identity.LoginName, numberOfTickets)
	s.publish(ctx, NewEvent(notifications.EventBookingConfirmed, booking, identity.Email, identity.LoginName))
	s.invalidate(ctx, key)

	return booking, nil
}

func (s *service) Recalculate(ctx context.Context, key movies.Pair) (*movies.Movie, error) {
	var (
		movie  *movies.Movie
		before int
	)
	err := s.store.InPair(ctx, key, func(ctx context.Context, inventory movies.Repository, ledger Repository) error {
		var err error
		movie, before, err = Recount(ctx, inventory, ledger, key)
		return err
	})
	if err != nil {
		return nil, translate(err, key)
	}

	s.logger.LogInventoryRecalculated(ctx, key.Movie, key.Theatre, before, movie.AvailableTickets)
	if before != movie.AvailableTickets {
		s.invalidate(ctx, key)
	}
	return movie, nil
}

func (s *service) ReconcileAll(ctx context.Context) (int, error) {
	pairs, err := s.store.Inventory().ListPairs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list inventory pairs: %w", err)
	}

	changed := 0
	var errs []error
	for _, key := range pairs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		var before, after int
		err := s.store.InPair(ctx, key, func(ctx context.Context, inventory movies.Repository, ledger Repository) error {
			movie, prev, err := Recount(ctx, inventory, ledger, key)
			if err != nil {
				return err
			}
			before, after = prev, movie.AvailableTickets
			return nil
		})
		if err != nil {
			if errors.Is(err, movies.ErrMovieNotFound) {
				continue // deleted meanwhile
			}
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}

		if before != after {
			changed++
			s.logger.LogInventoryRecalculated(ctx, key.Movie, key.Theatre, before, after)
			s.invalidate(ctx, key)
		}
	}

	return changed, errors.Join(errs...)
}

func (s *service) RemoveIfUnbooked(ctx context.Context, key movies.Pair) error {
	err := s.store.InPair(ctx, key, func(ctx context.Context, inventory movies.Repository, ledger Repository) error {
		booked, err := ledger.SumConfirmed(ctx, key)
		if err != nil {
			return err
		}
		if booked > 0 {
			return apperr.InvalidState("%d tickets are still booked for %s at %s", booked, key.Movie, key.Theatre)
		}
		return inventory.Delete(ctx, key)
	})
	if err != nil {
		return translate(err, key)
	}
	s.invalidate(ctx, key)
	return nil
}

func (s *service) MarkSoldOut(ctx context.Context, key movies.Pair) (*movies.Movie, error) {
	var movie *movies.Movie
	err := s.store.InPair(ctx, key, func(ctx context.Context, inventory movies.Repository, _ Repository) error {
		current, err := inventory.GetByPair(ctx, key)
		if err != nil {
			return err
		}
		if current.AvailableTickets > 0 {
			return apperr.InvalidState("cannot mark sold out while %d tickets remain", current.AvailableTickets)
		}
		if err := inventory.SetStatus(ctx, key, movies.StatusSoldOut); err != nil {
			return err
		}
		current.Status = movies.StatusSoldOut
		movie = current
		return nil
	})
	if err != nil {
		return nil, translate(err, key)
	}

	s.invalidate(ctx, key)
	return movie, nil
}

// SeatMap answers the seat-conflict query from committed state only
func (s *service) SeatMap(ctx context.Context, key movies.Pair) (*SeatMapResponse, error) {
	cacheKey := constants.BuildSeatMapKey(key.CacheKey())
	if s.cacheService != nil {
		var cached SeatMapResponse
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	movie, err := s.store.Inventory().GetByPair(ctx, key)
	if err != nil {
		return nil, translate(err, key)
	}
	seats, err := s.store.Ledger().SeatsForPair(ctx, key)
	if err != nil {
		return nil, err
	}
	if seats == nil {
		seats = []string{}
	}

	seatMap := &SeatMapResponse{
		Pair:             key,
		TotalTickets:     movie.TotalTickets,
		AvailableTickets: movie.AvailableTickets,
		Status:           string(movie.Status),
		BookedSeats:      seats,
	}

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, cacheKey, seatMap, constants.TTL_SEAT_MAP); err != nil {
			s.logger.Warn("failed to cache seat map", "pair", key.String(), "error", err)
		}
	}
	return seatMap, nil
}

func (s *service) GetByReference(ctx context.Context, reference, actingUser string) (*Booking, error) {
	identity, err := s.resolve(ctx, actingUser)
	if err != nil {
		return nil, err
	}

	booking, err := s.store.Ledger().GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, apperr.NotFound("booking %q not found", reference)
		}
		return nil, err
	}

	if err := Authorize(identity, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *service) ListForUser(ctx context.Context, identifier string, query ListQuery) (*BookingListResponse, error) {
	identity, err := s.resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	query.Normalize()
	bookings, total, err := s.store.Ledger().ListByUser(ctx, identity.LoginName, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return newListResponse(bookings, total, query), nil
}

func (s *service) ListForMovie(ctx context.Context, movieName string) ([]Booking, error) {
	if strings.TrimSpace(movieName) == "" {
		return nil, apperr.Validation("movie name is required")
	}
	return s.store.Ledger().ListByMovie(ctx, movieName)
}

func (s *service) ListAll(ctx context.Context, query ListQuery) (*BookingListResponse, error) {
	query.Normalize()
	bookings, total, err := s.store.Ledger().ListAll(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return newListResponse(bookings, total, query), nil
}

func (s *service) CountForMovie(ctx context.Context, movieName string) (*TicketCountResponse, error) {
	if strings.TrimSpace(movieName) == "" {
		return nil, apperr.Validation("movie name is required")
	}
	count, err := s.store.Ledger().CountConfirmedForMovie(ctx, movieName)
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}
	return &TicketCountResponse{MovieName: movieName, BookedTickets: count}, nil
}

func (s *service) QRCode(ctx context.Context, reference, actingUser string, size int) ([]byte, error) {
	booking, err := s.GetByReference(ctx, reference, actingUser)
	if err != nil {
		return nil, err
	}
	if !booking.IsConfirmed() {
		return nil, apperr.InvalidState("booking %s is %s", booking.BookingReference, booking.Status)
	}
	return notifications.TicketQRCode(booking.BookingReference, size)
}

func (s *service) resolve(ctx context.Context, identifier string) (*Identity, error) {
	return ResolveIdentity(ctx, s.identities, identifier)
}

func (s *service) publish(ctx context.Context, event *notifications.BookingEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish booking event",
			"type", event.Type,
			"reference", event.Reference,
			"error", err,
		)
	}
}

func (s *service) invalidate(ctx context.Context, key movies.Pair) {
	if s.cacheService == nil {
		return
	}
	if err := InvalidateCaches(ctx, s.cacheService, key); err != nil {
		s.logger.Warn("failed to invalidate caches", "pair", key.String(), "error", err)
	}
}

// ValidateRequest checks a booking request before any state is touched and returns
// the normalized seat identifiers (trimmed, upper-cased).
func ValidateRequest(key movies.Pair, numberOfTickets int, seatNumbers []string, actingUser string, maxTickets int) ([]string, error) {
	if strings.TrimSpace(key.Movie) == "" || strings.TrimSpace(key.Theatre) == "" {
		return nil, apperr.Validation("movie name and theatre name are required")
	}
	if strings.TrimSpace(actingUser) == "" {
		return nil, apperr.Validation("acting user is required")
	}
	if numberOfTickets < 1 || numberOfTickets > maxTickets {
		return nil, apperr.Validation("number of tickets must be between 1 and %d, got %d", maxTickets, numberOfTickets)
	}
	if len(seatNumbers) != numberOfTickets {
		return nil, apperr.Validation("expected %d seat numbers, got %d", numberOfTickets, len(seatNumbers))
	}

	seats := make([]string, 0, len(seatNumbers))
	seen := make(map[string]struct{}, len(seatNumbers))
	for _, raw := range seatNumbers {
		seat := strings.ToUpper(strings.TrimSpace(raw))
		if seat == "" {
			return nil, apperr.Validation("seat numbers must not be blank")
		}
		if len(seat) > MaxSeatNumberLength {
			return nil, apperr.Validation("seat number %q exceeds %d characters", seat, MaxSeatNumberLength)
		}
		if _, dup := seen[seat]; dup {
			return nil, apperr.Validation("duplicate seat %s in request", seat)
		}
		seen[seat] = struct{}{}
		seats = append(seats, seat)
	}
	return seats, nil
}

// ConflictingSeats returns the requested seats that are already held, sorted
func ConflictingSeats(held, requested []string) []string {
	taken := make(map[string]struct{}, len(held))
	for _, seat := range held {
		taken[seat] = struct{}{}
	}

	var conflicts []string
	for _, seat := range requested {
		if _, ok := taken[seat]; ok {
			conflicts = append(conflicts, seat)
		}
	}
	sort.Strings(conflicts)
	return conflicts
}

// Recount sets the pair's counter to total minus the CONFIRMED tickets in the ledger.
// It must run inside Store.InPair. It returns the updated record and the previous count.
func Recount(ctx context.Context, inventory movies.Repository, ledger Repository, key movies.Pair) (*movies.Movie, int, error) {
	movie, err := inventory.GetByPair(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	booked, err := ledger.SumConfirmed(ctx, key)
	if err != nil {
		return nil, 0, err
	}

	available := movie.TotalTickets - booked
	if available < 0 {
		available = 0
	}
	if err := inventory.SetAvailable(ctx, key, available); err != nil {
		return nil, 0, err
	}

	before := movie.AvailableTickets
	movie.AvailableTickets = available
	movie.Status = movies.StatusFor(available)
	return movie, before, nil
}

// Authorize allows the booking owner and administrators
func Authorize(identity *Identity, booking *Booking) error {
	if identity.IsAdmin || booking.IsOwnedBy(identity.LoginName) {
		return nil
	}
	return apperr.Forbidden("booking %s belongs to another user", booking.BookingReference)
}

// ResolveIdentity resolves identifier and guarantees a NOT_FOUND kind for unknown users
func ResolveIdentity(ctx context.Context, resolver IdentityResolver, identifier string) (*Identity, error) {
	if strings.TrimSpace(identifier) == "" {
		return nil, apperr.Validation("user identifier is required")
	}
	identity, err := resolver.Resolve(ctx, identifier)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			return nil, fmt.Errorf("failed to resolve user %q: %w", identifier, err)
		}
		return nil, err
	}
	if identity == nil {
		return nil, apperr.NotFound("user %q not found", identifier)
	}
	return identity, nil
}

// NewEvent builds the domain event for a committed booking change
func NewEvent(eventType notifications.EventType, booking *Booking, ownerEmail, actor string) *notifications.BookingEvent {
	event := notifications.NewBookingEvent(eventType)
	event.Reference = booking.BookingReference
	event.MovieName = booking.MovieName
	event.TheatreName = booking.TheatreName
	event.Seats = booking.SeatNumbers
	event.NumberOfTickets = booking.NumberOfTickets
	event.OwnerID = booking.OwnerID
	event.OwnerLoginName = booking.OwnerLoginName
	event.OwnerEmail = ownerEmail
	event.TotalPrice = booking.TotalPrice
	event.Actor = actor
	return event
}

// InvalidateCaches drops the pair's catalog entries and every statistics entry
func InvalidateCaches(ctx context.Context, cacheService cache.Service, key movies.Pair) error {
	if err := movies.InvalidateCache(ctx, cacheService, key); err != nil {
		return err
	}
	return cacheService.DeletePattern(ctx, constants.PATTERN_INVALIDATE_ANALYTICS)
}

// translate maps storage sentinels to error kinds; kinded errors pass through
func translate(err error, key movies.Pair) error {
	switch {
	case apperr.KindOf(err) != apperr.KindInternal:
		return err
	case errors.Is(err, movies.ErrMovieNotFound):
		return apperr.NotFound("movie %q not found at theatre %q", key.Movie, key.Theatre)
	case errors.Is(err, ErrBookingNotFound):
		return apperr.NotFound("booking not found")
	default:
		return err
	}
}

func newListResponse(bookings []Booking, total int64, query ListQuery) *BookingListResponse {
	if bookings == nil {
		bookings = []Booking{}
	}
	return &BookingListResponse{
		Bookings:   bookings,
		TotalCount: total,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: CalculateTotalPages(total, query.Limit),
	}
}
