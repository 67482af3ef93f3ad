package analytics

import (
	"context"
	"fmt"
	"time"

	"moviebooking/internal/bookings"
	"moviebooking/internal/shared/apperr"
	"moviebooking/internal/shared/constants"
	"moviebooking/pkg/cache"
	"moviebooking/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const dashboardTopN = 5

// Service defines the analytics service interface
type Service interface {
	StatsBy(ctx context.Context, dim Dimension) ([]GroupStats, error)
	Dashboard(ctx context.Context) (*DashboardAnalytics, error)
	// PurgeCancelled deletes CANCELLED bookings last changed more than olderThan ago
	PurgeCancelled(ctx context.Context, olderThan time.Duration) (*PurgeResult, error)
	// RetentionAge is the purge age used when the caller gives none
	RetentionAge() time.Duration

	SetCacheService(cacheService cache.Service)
}

// service implements the Service interface
type service struct {
	repo         Repository
	ledger       bookings.Repository
	retention    time.Duration
	cacheService cache.Service
	logger       *logger.Logger
	now          func() time.Time
}

// NewService creates a new analytics service instance
func NewService(repo Repository, ledger bookings.Repository, retention time.Duration) Service {
	return &service{
		repo:      repo,
		ledger:    ledger,
		retention: retention,
		logger:    logger.GetDefault(),
		now:       time.Now,
	}
}

// SetCacheService injects the cache service dependency
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

func (s *service) RetentionAge() time.Duration {
	return s.retention
}

func (s *service) StatsBy(ctx context.Context, dim Dimension) ([]GroupStats, error) {
	if !dim.IsValid() {
		return nil, apperr.Validation("unknown statistics dimension %q", dim)
	}

	var stats []GroupStats
	err := s.cached(ctx, statsCacheKey(dim), constants.TTL_STATS_GROUPED, &stats, func() (interface{}, error) {
		found, err := s.repo.GroupConfirmed(ctx, dim)
		if err != nil {
			return nil, err
		}
		if found == nil {
			found = []GroupStats{}
		}
		return found, nil
	})
	return stats, err
}

func (s *service) Dashboard(ctx context.Context) (*DashboardAnalytics, error) {
	var dashboard DashboardAnalytics
	err := s.cached(ctx, constants.CACHE_KEY_STATS_DASHBOARD, constants.TTL_STATS_DASHBOARD, &dashboard, func() (interface{}, error) {
		return s.buildDashboard(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &dashboard, nil
}

func (s *service) buildDashboard(ctx context.Context) (*DashboardAnalytics, error) {
	dashboard := &DashboardAnalytics{GeneratedAt: s.now()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		overview, err := s.repo.Overview(gctx)
		if err != nil {
			return err
		}
		dashboard.Overview = *overview
		return nil
	})
	for dim, dest := range map[Dimension]*[]GroupStats{
		ByMovie:   &dashboard.TopMovies,
		ByTheatre: &dashboard.TopTheatres,
		ByUser:    &dashboard.TopUsers,
	} {
		dim, dest := dim, dest
		g.Go(func() error {
			stats, err := s.repo.GroupConfirmed(gctx, dim)
			if err != nil {
				return err
			}
			*dest = top(stats, dashboardTopN)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}
	return dashboard, nil
}

func (s *service) PurgeCancelled(ctx context.Context, olderThan time.Duration) (*PurgeResult, error) {
	if olderThan < 0 {
		return nil, apperr.Validation("retention age must not be negative")
	}

	cutoff := s.now().Add(-olderThan)
	purged, err := s.ledger.PurgeCancelledBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	s.logger.LogRetentionSweep(ctx, cutoff, purged)

	if purged > 0 && s.cacheService != nil {
		if err := s.cacheService.DeletePattern(ctx, constants.PATTERN_INVALIDATE_ANALYTICS); err != nil {
			s.logger.Warn("failed to invalidate statistics cache", "error", err)
		}
	}
	return &PurgeResult{Cutoff: cutoff, Purged: purged}, nil
}

// cached is cache-aside over dest; without a cache it fetches every time
func (s *service) cached(ctx context.Context, key string, ttl time.Duration, dest interface{}, fetch func() (interface{}, error)) error {
	if s.cacheService != nil {
		return s.cacheService.GetOrSet(ctx, key, ttl, fetch, dest)
	}

	value, err := fetch()
	if err != nil {
		return err
	}
	return assign(dest, value)
}

func assign(dest, value interface{}) error {
	switch d := dest.(type) {
	case *[]GroupStats:
		*d = value.([]GroupStats)
	case *DashboardAnalytics:
		*d = *value.(*DashboardAnalytics)
	default:
		return fmt.Errorf("unsupported statistics type %T", dest)
	}
	return nil
}

func statsCacheKey(dim Dimension) string {
	switch dim {
	case ByTheatre:
		return constants.CACHE_KEY_STATS_THEATRES
	case ByUser:
		return constants.CACHE_KEY_STATS_USERS
	default:
		return constants.CACHE_KEY_STATS_MOVIES
	}
}

func top(stats []GroupStats, n int) []GroupStats {
	if len(stats) > n {
		stats = stats[:n]
	}
	if stats == nil {
		return []GroupStats{}
	}
	return stats
}
