package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Tyrowin/gochat-relay/internal/relay"
)

// ErrUserNotFound is returned when no user has the requested username.
var ErrUserNotFound = errors.New("user not found")

// UserRepository stores accounts and verifies credentials.
type UserRepository struct {
	db     *gorm.DB
	hasher *PasswordHasher
}

var _ relay.Authenticator = (*UserRepository)(nil)

// NewUserRepository creates a UserRepository. A nil hasher uses the default
// bcrypt cost.
func NewUserRepository(db *gorm.DB, hasher *PasswordHasher) *UserRepository {
	if hasher == nil {
		hasher = NewPasswordHasher()
	}
	return &UserRepository{db: db, hasher: hasher}
}

// FindByUsername returns the user with the given name.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// UsernameExists reports whether username is registered.
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return count > 0, nil
}

// Authenticate implements relay.Authenticator. Unknown users and wrong
// passwords both yield relay.ErrInvalidCredentials.
func (r *UserRepository) Authenticate(ctx context.Context, username, password string) (relay.Identity, error) {
	user, err := r.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return relay.Identity{}, relay.ErrInvalidCredentials
		}
		return relay.Identity{}, err
	}
	if !r.hasher.Verify(password, user.PasswordHash) {
		return relay.Identity{}, relay.ErrInvalidCredentials
	}
	return identityOf(user), nil
}

// Register implements relay.Authenticator. An empty fullName defaults to the
// username.
func (r *UserRepository) Register(ctx context.Context, username, fullName, password string) (relay.Identity, error) {
	exists, err := r.UsernameExists(ctx, username)
	if err != nil {
		return relay.Identity{}, err
	}
	if exists {
		return relay.Identity{}, relay.ErrUsernameTaken
	}

	hash, err := r.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, relay.ErrPasswordTooLong) {
			return relay.Identity{}, err
		}
		return relay.Identity{}, fmt.Errorf("failed to hash password: %w", err)
	}
	if fullName == "" {
		fullName = username
	}

	user := &User{Username: username, FullName: fullName, PasswordHash: hash}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return relay.Identity{}, relay.ErrUsernameTaken
		}
		return relay.Identity{}, fmt.Errorf("failed to create user: %w", err)
	}
	return identityOf(user), nil
}

func identityOf(u *User) relay.Identity {
	return relay.Identity{ID: int64(u.ID), Username: u.Username, FullName: u.FullName}
}
