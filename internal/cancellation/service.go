package cancellation

import (
	"context"
	"errors"
	"strings"

	"moviebooking/internal/bookings"
	"moviebooking/internal/movies"
	"moviebooking/internal/notifications"
	"moviebooking/internal/shared/apperr"
	"moviebooking/pkg/cache"
	"moviebooking/pkg/logger"
)

// Service interface defines the contract for cancellation business logic
type Service interface {
	// CancelBooking cancels a CONFIRMED booking on behalf of its owner or an admin
	// and rebuilds the pair's counter from the ledger.
	CancelBooking(ctx context.Context, reference, actingUser string) (*bookings.Booking, error)

	SetCacheService(cacheService cache.Service)
	SetPublisher(publisher notifications.Publisher)
}

type service struct {
	store        bookings.Store
	identities   bookings.IdentityResolver
	cacheService cache.Service
	publisher    notifications.Publisher
	logger       *logger.Logger
}

// NewService creates a new cancellation service instance
func NewService(store bookings.Store, identities bookings.IdentityResolver) Service {
	return &service{
		store:      store,
		identities: identities,
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

func (s *service) CancelBooking(ctx context.Context, reference, actingUser string) (*bookings.Booking, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, apperr.Validation("booking reference is required")
	}

	identity, err := bookings.ResolveIdentity(ctx, s.identities, actingUser)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.load(ctx, s.store.Ledger(), reference)
	if err != nil {
		return nil, err
	}
	// fail fast on the snapshot; the checks are repeated under the pair
	if err := checkCancellable(identity, snapshot); err != nil {
		return nil, err
	}

	key := snapshot.Key()
	var (
		cancelled *bookings.Booking
		before    int
		after     int
	)
	err = s.store.InPair(ctx, key, func(ctx context.Context, inventory movies.Repository, ledger bookings.Repository) error {
		booking, err := s.load(ctx, ledger, reference)
		if err != nil {
			return err
		}
		if err := checkCancellable(identity, booking); err != nil {
			return err
		}

		if err := ledger.UpdateStatus(ctx, booking.ID, bookings.StatusCancelled); err != nil {
			return err
		}

		movie, prev, err := bookings.Recount(ctx, inventory, ledger, key)
		if err != nil {
			return err
		}
		before, after = prev, movie.AvailableTickets

		cancelled, err = ledger.GetByID(ctx, booking.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, movies.ErrMovieNotFound) {
			return nil, apperr.NotFound("movie %q not found at theatre %q", key.Movie, key.Theatre)
		}
		return nil, err
	}

	s.logger.LogBookingCancelled(ctx, cancelled.BookingReference, key.Movie, key.Theatre, identity.LoginName)
	s.logger.LogInventoryRecalculated(ctx, key.Movie, key.Theatre, before, after)

	s.publish(ctx, cancelled, identity)
	s.invalidate(ctx, key)

	return cancelled, nil
}

func (s *service) load(ctx context.Context, ledger bookings.Repository, reference string) (*bookings.Booking, error) {
	booking, err := ledger.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, bookings.ErrBookingNotFound) {
			return nil, apperr.NotFound("booking %q not found", reference)
		}
		return nil, err
	}
	return booking, nil
}

// checkCancellable runs authorization before the state check, so strangers
// learn nothing about a booking's state
func checkCancellable(identity *bookings.Identity, booking *bookings.Booking) error {
	if err := bookings.Authorize(identity, booking); err != nil {
		return err
	}
	if booking.IsCancelled() {
		return apperr.InvalidState("booking %s is already cancelled", booking.BookingReference)
	}
	if !booking.Status.CanBeCancelled() {
		return apperr.InvalidState("booking %s is %s and cannot be cancelled", booking.BookingReference, booking.Status)
	}
	return nil
}

func (s *service) publish(ctx context.Context, booking *bookings.Booking, actor *bookings.Identity) {
	ownerEmail := actor.Email
	if !booking.IsOwnedBy(actor.LoginName) {
		ownerEmail = ""
		if owner, err := s.identities.Resolve(ctx, booking.OwnerLoginName); err == nil {
			ownerEmail = owner.Email
		}
	}

	event := bookings.NewEvent(notifications.EventBookingCancelled, booking, ownerEmail, actor.LoginName)
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
	if err := bookings.InvalidateCaches(ctx, s.cacheService, key); err != nil {
		s.logger.Warn("failed to invalidate caches", "pair", key.String(), "error", err)
	}
}
