package auth

import (
	"context"
	"errors"
	"strings"

	"moviebooking/internal/bookings"
	"moviebooking/internal/shared/apperr"
	"moviebooking/internal/shared/constants"
	"moviebooking/internal/users"
	"moviebooking/pkg/cache"
	"moviebooking/pkg/logger"

	"github.com/google/uuid"
)

// IdentityResolver implements bookings.IdentityResolver using the auth repository.
// The booking engine resolves callers before it takes a pair, so cached entries
// never reach the inventory update.
type IdentityResolver struct {
	repo         Repository
	cacheService cache.Service
	logger       *logger.Logger
}

func NewIdentityResolver(repo Repository) *IdentityResolver {
	return &IdentityResolver{
		repo:   repo,
		logger: logger.GetDefault(),
	}
}

func (r *IdentityResolver) SetCacheService(cacheService cache.Service) {
	r.cacheService = cacheService
}

// Resolve accepts a login name or a user id
func (r *IdentityResolver) Resolve(ctx context.Context, identifier string) (*bookings.Identity, error) {
	identifier = strings.TrimSpace(identifier)

	id, parseErr := uuid.Parse(identifier)
	cacheKey := constants.BuildIdentityByLoginKey(identifier)
	if parseErr == nil {
		cacheKey = constants.BuildIdentityByIDKey(id.String())
	}

	if r.cacheService != nil {
		var cached bookings.Identity
		if err := r.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	var (
		user *users.User
		err  error
	)
	if parseErr == nil {
		user, err = r.repo.GetUserByID(ctx, id)
	} else {
		user, err = r.repo.GetUserByLoginName(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.NotFound("user %q not found", identifier)
		}
		return nil, err
	}

	identity := &bookings.Identity{
		ID:        user.ID,
		LoginName: user.LoginName,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin(),
	}

	if r.cacheService != nil {
		if err := r.cacheService.Set(ctx, cacheKey, identity, constants.TTL_IDENTITY); err != nil {
			r.logger.Warn("failed to cache identity", "identifier", identifier, "error", err)
		}
	}
	return identity, nil
}

// InvalidateIdentity drops both cached forms of user's identity
func InvalidateIdentity(ctx context.Context, cacheService cache.Service, user *users.User) error {
	if err := cacheService.Delete(ctx, constants.BuildIdentityByLoginKey(user.LoginName)); err != nil {
		return err
	}
	return cacheService.Delete(ctx, constants.BuildIdentityByIDKey(user.ID.String()))
}
