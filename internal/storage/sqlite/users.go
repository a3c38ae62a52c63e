package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/tiger/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Register hashes the password and creates the user.
func (db *DB) Register(ctx context.Context, username, password string) (domain.Identity, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return domain.Identity{}, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Identity{}, err
	}

	now := time.Now().UTC().Format(timeLayout)
	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (username, password, created_at) VALUES (?, ?, ?)",
		username, string(hashed), now,
	)
	if isUniqueViolation(err) {
		return domain.Identity{}, fmt.Errorf("user %q: %w", username, domain.ErrAlreadyExists)
	}
	if err != nil {
		return domain.Identity{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Identity{}, err
	}
	log.Info().Str("module", "storage.sqlite").Str("user", username).Msg("user registered")
	return domain.Identity{UserID: domain.UserID(id), Username: username}, nil
}

// Authenticate does not distinguish an unknown user from a wrong password.
func (db *DB) Authenticate(ctx context.Context, username, password string) (domain.Identity, error) {
	u, err := db.UserByName(ctx, username)
	if err != nil {
		return domain.Identity{}, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.Identity{}, domain.ErrInvalidCredentials
	}
	return u.Identity(), nil
}

func (db *DB) UserByName(ctx context.Context, username string) (domain.User, error) {
	var (
		u       domain.User
		created string
	)
	err := db.conn.QueryRowContext(ctx,
		"SELECT id, username, password, created_at FROM users WHERE username = ?", username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &created)
	if err != nil {
		return domain.User{}, notFound(err, "user "+username)
	}
	u.CreatedAt = parseTime(created)
	return u, nil
}
