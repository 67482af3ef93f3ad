package movies

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"moviebooking/internal/shared/apperr"
	"moviebooking/internal/shared/constants"
	"moviebooking/pkg/cache"
	"moviebooking/pkg/logger"

	"github.com/jinzhu/copier"
)

// InventoryGuard runs catalog edits that have to agree with the booking ledger
// (implemented by the booking engine, injected to avoid an import cycle)
type InventoryGuard interface {
	Recalculate(ctx context.Context, key Pair) (*Movie, error)
	RemoveIfUnbooked(ctx context.Context, key Pair) error
	MarkSoldOut(ctx context.Context, key Pair) (*Movie, error)
}

// Service interface defines the contract for catalog business logic
type Service interface {
	AddMovie(ctx context.Context, req *CreateMovieRequest) (*Movie, error)
	GetMovie(ctx context.Context, key Pair) (*Movie, error)
	ListMovies(ctx context.Context) ([]Movie, error)
	SearchByName(ctx context.Context, name string) ([]Movie, error)
	ListAvailable(ctx context.Context) ([]Movie, error)
	Search(ctx context.Context, keyword string) ([]Movie, error)

	DeleteMovie(ctx context.Context, key Pair) error
	UpdateTicketStatus(ctx context.Context, key Pair, status Status) (*Movie, error)

	SetCacheService(cacheService cache.Service)
	SetInventoryGuard(guard InventoryGuard)
}

type service struct {
	repo         Repository
	guard        InventoryGuard
	cacheService cache.Service
	logger       *logger.Logger
}

// NewService creates a new catalog service instance
func NewService(repo Repository) Service {
	return &service{
		repo:   repo,
		logger: logger.GetDefault(),
	}
}

// SetCacheService injects the cache service dependency
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

// SetInventoryGuard injects the ledger-aware guard
func (s *service) SetInventoryGuard(guard InventoryGuard) {
	s.guard = guard
}

func (s *service) AddMovie(ctx context.Context, req *CreateMovieRequest) (*Movie, error) {
	movie := &Movie{}
	if err := copier.Copy(movie, req); err != nil {
		return nil, fmt.Errorf("failed to map movie request: %w", err)
	}
	movie.MovieName = strings.TrimSpace(movie.MovieName)
	movie.TheatreName = strings.TrimSpace(movie.TheatreName)
	if movie.MovieName == "" || movie.TheatreName == "" {
		return nil, apperr.Validation("movie name and theatre name are required")
	}
	if movie.TotalTickets < 1 {
		return nil, apperr.Validation("total tickets must be at least 1")
	}
	movie.AvailableTickets = movie.TotalTickets
	movie.Status = StatusBookable
	if movie.ShowTimes == nil {
		movie.ShowTimes = []ShowTime{}
	}

	if err := s.repo.Create(ctx, movie); err != nil {
		if errors.Is(err, ErrMovieAlreadyExists) {
			return nil, apperr.Conflict("movie %q already exists at theatre %q", movie.MovieName, movie.TheatreName)
		}
		return nil, err
	}

	s.invalidate(ctx, movie.Key())
	return movie, nil
}

func (s *service) GetMovie(ctx context.Context, key Pair) (*Movie, error) {
	cacheKey := constants.BuildMovieDetailKey(key.CacheKey())

	if s.cacheService != nil {
		var cached Movie
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	movie, err := s.repo.GetByPair(ctx, key)
	if err != nil {
		if errors.Is(err, ErrMovieNotFound) {
			return nil, apperr.NotFound("movie %q not found at theatre %q", key.Movie, key.Theatre)
		}
		return nil, err
	}

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, cacheKey, movie, constants.TTL_MOVIE_DETAIL); err != nil {
			s.logger.Warn("failed to cache movie", "pair", key.String(), "error", err)
		}
	}

	return movie, nil
}

func (s *service) ListMovies(ctx context.Context) ([]Movie, error) {
	return s.cachedList(ctx, constants.CACHE_KEY_MOVIES_LIST, constants.TTL_MOVIES_LIST, s.repo.List)
}

func (s *service) ListAvailable(ctx context.Context) ([]Movie, error) {
	return s.cachedList(ctx, constants.CACHE_KEY_MOVIES_AVAILABLE, constants.TTL_MOVIES_AVAILABLE, s.repo.ListAvailable)
}

func (s *service) SearchByName(ctx context.Context, name string) ([]Movie, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("search name is required")
	}
	return s.cachedList(ctx, constants.BuildMovieSearchKey("name", name), constants.TTL_SEMI_STATIC_QUICK,
		func(ctx context.Context) ([]Movie, error) { return s.repo.SearchByName(ctx, name) })
}

func (s *service) Search(ctx context.Context, keyword string) ([]Movie, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, apperr.Validation("search keyword is required")
	}
	return s.cachedList(ctx, constants.BuildMovieSearchKey("keyword", keyword), constants.TTL_SEMI_STATIC_QUICK,
		func(ctx context.Context) ([]Movie, error) { return s.repo.Search(ctx, keyword) })
}

func (s *service) DeleteMovie(ctx context.Context, key Pair) error {
	if s.guard == nil {
		return fmt.Errorf("inventory guard not configured")
	}
	if err := s.guard.RemoveIfUnbooked(ctx, key); err != nil {
		return err
	}
	s.invalidate(ctx, key)
	return nil
}

// UpdateTicketStatus is the admin override. SOLD_OUT is only accepted when nothing
// is left, and BOOKABLE recomputes the counter from the ledger. Both run under
// the pair lock.
func (s *service) UpdateTicketStatus(ctx context.Context, key Pair, status Status) (*Movie, error) {
	if !status.IsValid() {
		return nil, apperr.Validation("invalid ticket status %q", status)
	}
	if s.guard == nil {
		return nil, fmt.Errorf("inventory guard not configured")
	}

	var (
		movie *Movie
		err   error
	)
	if status == StatusBookable {
		movie, err = s.guard.Recalculate(ctx, key)
	} else {
		movie, err = s.guard.MarkSoldOut(ctx, key)
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, key)
	return movie, nil
}

func (s *service) cachedList(ctx context.Context, cacheKey string, ttl time.Duration, fetch func(context.Context) ([]Movie, error)) ([]Movie, error) {
	if s.cacheService != nil {
		var cached []Movie
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	movies, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, cacheKey, movies, ttl); err != nil {
			s.logger.Warn("failed to cache movie list", "key", cacheKey, "error", err)
		}
	}

	return movies, nil
}

// invalidate drops every cached view of the pair. Errors are logged only.
func (s *service) invalidate(ctx context.Context, key Pair) {
	if s.cacheService == nil {
		return
	}
	if err := InvalidateCache(ctx, s.cacheService, key); err != nil {
		s.logger.Warn("failed to invalidate movie cache", "pair", key.String(), "error", err)
	}
}

// InvalidateCache removes the detail, seat-map and list entries for a pair
func InvalidateCache(ctx context.Context, cacheService cache.Service, key Pair) error {
	if err := cacheService.Delete(ctx, constants.BuildMovieDetailKey(key.CacheKey())); err != nil {
		return err
	}
	if err := cacheService.Delete(ctx, constants.BuildSeatMapKey(key.CacheKey())); err != nil {
		return err
	}
	return cacheService.DeletePattern(ctx, constants.PATTERN_INVALIDATE_MOVIE_LISTS)
}
