package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	users store.Users
	now   func() time.Time
}

func NewService(users store.Users) *Service {
	return &Service{users: users, now: time.Now}
}

// Authenticate checks username and password and records the login time.
// Unknown users and wrong passwords both give ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("touch last login: %w", err)
	}
	user.LastLoginAt = &now
	return user, nil
}

func (s *Service) User(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// SeedUser is a user created at startup when it does not exist yet.
type SeedUser struct {
	Username string
	FullName string
	Role     models.UserRole
	Password string
}

// DefaultSeeds returns the admin and accountant accounts. An entry with an
// empty password is skipped by SeedUsers.
func DefaultSeeds(adminPassword, accountantPassword string) []SeedUser {
	return []SeedUser{
		{Username: "admin", FullName: "Administrator", Role: models.RoleAdmin, Password: adminPassword},
		{Username: "accountant", FullName: "Accountant", Role: models.RoleAccountant, Password: accountantPassword},
	}
}

// SeedUsers creates the missing seed accounts. Existing users are left
// untouched, so changed passwords survive restarts.
func SeedUsers(ctx context.Context, users store.Users, seeds []SeedUser, log zerolog.Logger) error {
	for _, seed := range seeds {
		if seed.Password == "" {
			log.Warn().Str("username", seed.Username).Msg("seed password not set, user not created")
			continue
		}

		_, err := users.GetUserByUsername(ctx, seed.Username)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("lookup seed user %s: %w", seed.Username, err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		u := &models.User{
			Username:     seed.Username,
			PasswordHash: string(hash),
			FullName:     seed.FullName,
			Role:         seed.Role,
		}
		if err := users.CreateUser(ctx, u); err != nil && !errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("create seed user %s: %w", seed.Username, err)
		}
		log.Info().Str("username", seed.Username).Str("role", string(seed.Role)).Msg("seed user created")
	}
	return nil
}
