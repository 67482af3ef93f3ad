// Package app assembles storage backends and services. The HTTP server and
// ticketctl both build their object graph here.
package app

import (
	"context"
	"fmt"

	"moviebooking/internal/analytics"
	"moviebooking/internal/auth"
	"moviebooking/internal/bookings"
	"moviebooking/internal/cancellation"
	"moviebooking/internal/movies"
	"moviebooking/internal/notifications"
	"moviebooking/internal/shared/config"
	"moviebooking/internal/shared/database"
	"moviebooking/internal/storage/memory"
	"moviebooking/pkg/cache"

	"github.com/redis/go-redis/v9"
)

// Backend is one storage driver's repositories
type Backend struct {
	Store     bookings.Store
	Users     auth.Repository
	Analytics analytics.Repository
	Redis     *redis.Client

	health func(ctx context.Context) error
	close  func() error
}

// Open connects the backend selected by DB_DRIVER
func Open(cfg *config.Config) (*Backend, error) {
	if cfg.UsesMemoryStore() {
		var rdb *redis.Client
		if cfg.Redis.Enabled {
			client, err := database.InitRedis(cfg)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize Redis: %w", err)
			}
			rdb = client
		}
		return NewMemoryBackend(memory.NewDB(), rdb), nil
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	return NewPostgresBackend(db, cfg), nil
}

// NewMemoryBackend wraps a memory DB. rdb may be nil.
func NewMemoryBackend(db *memory.DB, rdb *redis.Client) *Backend {
	return &Backend{
		Store:     memory.NewStore(db),
		Users:     memory.NewUserRepository(db),
		Analytics: memory.NewAnalyticsRepository(db),
		Redis:     rdb,
		health: func(ctx context.Context) error {
			if rdb == nil {
				return nil
			}
			return rdb.Ping(ctx).Err()
		},
		close: func() error {
			if rdb == nil {
				return nil
			}
			return rdb.Close()
		},
	}
}

func NewPostgresBackend(db *database.DB, cfg *config.Config) *Backend {
	return &Backend{
		Store:     bookings.NewGormStore(db.PostgreSQL, cfg.Database.LockTimeout),
		Users:     auth.NewRepository(db.PostgreSQL),
		Analytics: analytics.NewRepository(db.PostgreSQL),
		Redis:     db.Redis,
		health:    db.HealthCheck,
		close:     db.Close,
	}
}

func (b *Backend) HealthCheck(ctx context.Context) error {
	if b.health == nil {
		return nil
	}
	return b.health(ctx)
}

func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Services is the wired service layer
type Services struct {
	Movies       movies.Service
	Bookings     bookings.Service
	Cancellation cancellation.Service
	Auth         auth.Service
	Identities   *auth.IdentityResolver
	Analytics    analytics.Service
	Cache        cache.Service
}

// NewServices wires every service over backend. A nil publisher drops events.
func NewServices(cfg *config.Config, backend *Backend, publisher notifications.Publisher) *Services {
	if publisher == nil {
		publisher = notifications.NoopPublisher{}
	}

	identities := auth.NewIdentityResolver(backend.Users)

	bookingService := bookings.NewService(backend.Store, identities, bookings.Options{
		MaxTicketsPerBooking: cfg.Booking.MaxTicketsPerBooking,
		ReferencePrefix:      cfg.Booking.ReferencePrefix,
	})
	bookingService.SetPublisher(publisher)

	movieService := movies.NewService(backend.Store.Inventory())
	movieService.SetInventoryGuard(bookingService)

	cancellationService := cancellation.NewService(backend.Store, identities)
	cancellationService.SetPublisher(publisher)

	svc := &Services{
		Movies:       movieService,
		Bookings:     bookingService,
		Cancellation: cancellationService,
		Auth:         auth.NewService(backend.Users, cfg),
		Identities:   identities,
		Analytics:    analytics.NewService(backend.Analytics, backend.Store.Ledger(), cfg.Jobs.RetentionAge),
	}

	if backend.Redis != nil {
		svc.Cache = cache.NewService(backend.Redis)
		svc.Movies.SetCacheService(svc.Cache)
		svc.Bookings.SetCacheService(svc.Cache)
		svc.Cancellation.SetCacheService(svc.Cache)
		svc.Auth.SetCacheService(svc.Cache)
		svc.Identities.SetCacheService(svc.Cache)
		svc.Analytics.SetCacheService(svc.Cache)
	}
	return svc
}
