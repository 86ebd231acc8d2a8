package store

import (
	"context"
	"log/slog"
	"time"

	"Divelog/internal/auth"
	"Divelog/models"
)

// EnsureAdmin creates an admin account when the store has no users at all.
// It does nothing when username is empty or users already exist.
func EnsureAdmin(ctx context.Context, s Store, username, name, password string, logger *slog.Logger) error {
	if username == "" {
		return nil
	}

	users, err := s.Users(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}

	salt, hash, err := auth.Credentials(password)
	if err != nil {
		return err
	}
	if name == "" {
		name = username
	}

	err = s.CreateUser(ctx, models.User{
		Username:     username,
		Name:         name,
		Role:         models.RoleAdmin,
		Salt:         salt,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	logger.Warn("created initial admin account", slog.String("username", username))
	return nil
}
