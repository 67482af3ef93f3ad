package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"moviebooking/internal/shared/apperr"
	"moviebooking/internal/shared/config"
	"moviebooking/internal/users"
	"moviebooking/pkg/cache"
	"moviebooking/pkg/logger"
)

var (
	ErrInvalidCredentials = apperr.Unauthorized("invalid login or password")
	ErrInvalidToken       = apperr.Unauthorized("invalid or expired token")
)

// ResetNotifier delivers password reset tokens
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, to, name, token string, ttl time.Duration) error
}

type Service interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	Me(ctx context.Context, userID string) (*UserResponse, error)
	ChangePassword(ctx context.Context, userID string, req *ChangePasswordRequest) error
	// ForgotPassword issues a reset token. Unknown emails succeed silently.
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req *ResetPasswordRequest) error
	ValidateToken(tokenString string) (*JWTClaims, error)

	SetCacheService(cacheService cache.Service)
	SetResetNotifier(notifier ResetNotifier)
}

type service struct {
	repo         Repository
	config       *config.Config
	cacheService cache.Service
	notifier     ResetNotifier
	logger       *logger.Logger
	now          func() time.Time
}

func NewService(repo Repository, cfg *config.Config) Service {
	return &service{
		repo:   repo,
		config: cfg,
		logger: logger.GetDefault(),
		now:    time.Now,
	}
}

// SetCacheService injects the cache holding resolved identities
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

func (s *service) SetResetNotifier(notifier ResetNotifier) {
	s.notifier = notifier
}

func (s *service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	loginName := strings.TrimSpace(req.LoginName)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.repo.LoginNameExists(ctx, loginName)
	if err != nil {
		return nil, fmt.Errorf("failed to check login name: %w", err)
	}
	if exists {
		return nil, apperr.Conflict("login name %q is already taken", loginName)
	}

	exists, err = s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, apperr.Conflict("user with this email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// self-registration always yields USER; admins are provisioned out of band
	user := &users.User{
		ID:        uuid.New(),
		LoginName: loginName,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     email,
		Contact:   req.Contact,
		Password:  string(hashedPassword),
		Role:      users.RoleUser,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.invalidateIdentity(ctx, user)

	return s.authResponse(user)
}

func (s *service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	identifier := strings.TrimSpace(req.Identifier)

	var (
		user *users.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.repo.GetUserByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = s.repo.GetUserByLoginName(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.LogAuthFailure(ctx, "unknown user", "")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		s.logger.LogAuthFailure(ctx, "wrong password", "")
		return nil, ErrInvalidCredentials
	}

	s.logger.LogAuthSuccess(ctx, user.ID.String(), "password")
	return s.authResponse(user)
}

func (s *service) Me(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := newUserResponse(user)
	return &resp, nil
}

func (s *service) ChangePassword(ctx context.Context, userID string, req *ChangePasswordRequest) error {
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return apperr.Unauthorized("current password is incorrect")
	}

	return s.setPassword(ctx, user, req.NewPassword)
}

func (s *service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	ttl := s.config.JWT.ResetTokenTTL
	token := &users.PasswordResetToken{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(ttl),
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateResetToken(ctx, token); err != nil {
		return err
	}

	if s.notifier == nil {
		s.logger.Warn("no reset notifier configured, token not delivered", "user_id", user.ID.String())
		return nil
	}
	if err := s.notifier.SendPasswordReset(ctx, user.Email, user.FirstName, token.Token, ttl); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	token, err := s.repo.ConsumeResetToken(ctx, req.Token, s.now())
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return apperr.InvalidState("reset token is invalid, expired or already used")
		}
		return err
	}

	user, err := s.repo.GetUserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return apperr.NotFound("user not found")
		}
		return err
	}
	return s.setPassword(ctx, user, req.NewPassword)
}

func (s *service) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.config.JWT.Secret), nil
	})

	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid && claims.Type == tokenTypeAccess {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

func (s *service) userByID(ctx context.Context, userID string) (*users.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperr.Validation("invalid user id")
	}
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *service) setPassword(ctx context.Context, user *users.User, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.UpdateUserPassword(ctx, user.ID, string(hashedPassword)); err != nil {
		return err
	}
	s.invalidateIdentity(ctx, user)
	return nil
}

func (s *service) invalidateIdentity(ctx context.Context, user *users.User) {
	if s.cacheService == nil {
		return
	}
	if err := InvalidateIdentity(ctx, s.cacheService, user); err != nil {
		s.logger.Warn("failed to invalidate identity cache", "user_id", user.ID.String(), "error", err)
	}
}

func (s *service) authResponse(user *users.User) (*AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		User:        newUserResponse(user),
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.JWT.JWTExpiresIn.Seconds()),
	}, nil
}

func (s *service) generateAccessToken(user *users.User) (string, error) {
	now := s.now()
	claims := JWTClaims{
		UserID:    user.ID.String(),
		LoginName: user.LoginName,
		Role:      string(user.Role),
		Type:      tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.JWT.JWTExpiresIn)),
			Issuer:    "moviebooking",
			Subject:   user.ID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWT.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}
