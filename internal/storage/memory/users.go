package memory

import (
	"context"
	"fmt"
	"time"

	"moviebooking/internal/auth"
	"moviebooking/internal/users"

	"github.com/google/uuid"
)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) auth.Repository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *users.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.users {
		if existing.LoginName == user.LoginName || existing.Email == user.Email {
			return fmt.Errorf("failed to create user: login name or email already used")
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	cp := *user
	r.db.users[user.ID] = &cp
	return nil
}

func (r *userRepository) find(keep func(*users.User) bool) (*users.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, user := range r.db.users {
		if keep(user) {
			cp := *user
			return &cp, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.find(func(u *users.User) bool { return u.Email == email })
}

func (r *userRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	return r.find(func(u *users.User) bool { return u.ID == id })
}

func (r *userRepository) GetUserByLoginName(ctx context.Context, loginName string) (*users.User, error) {
	return r.find(func(u *users.User) bool { return u.LoginName == loginName })
}

func (r *userRepository) UpdateUserPassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	user.Password = hashedPassword
	user.UpdatedAt = time.Now()
	return nil
}

func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetUserByEmail(ctx, email)
	return err == nil, nil
}

func (r *userRepository) LoginNameExists(ctx context.Context, loginName string) (bool, error) {
	_, err := r.GetUserByLoginName(ctx, loginName)
	return err == nil, nil
}

func (r *userRepository) CreateResetToken(ctx context.Context, token *users.PasswordResetToken) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.resetTokens[token.Token]; exists {
		return fmt.Errorf("failed to store reset token: duplicate token")
	}
	cp := *token
	r.db.resetTokens[token.Token] = &cp
	return nil
}

func (r *userRepository) ConsumeResetToken(ctx context.Context, token string, now time.Time) (*users.PasswordResetToken, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored, ok := r.db.resetTokens[token]
	if !ok || !stored.IsUsable(now) {
		return nil, auth.ErrTokenNotFound
	}
	stored.Used = true
	cp := *stored
	return &cp, nil
}
