package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"smiledent/internal/models"
)

// ErrUserNotFound is returned by GetCredential for an unknown username.
var ErrUserNotFound = errors.New("user not found")

// SeedUser inserts a credential unless the username already exists.
// It reports whether a row was created.
func (db *DB) SeedUser(ctx context.Context, username, passwordHash string) (bool, error) {
	query := `INSERT INTO users (username, password, created_at) VALUES (?, ?, ?)
              ON CONFLICT(username) DO NOTHING`
	result, err := db.ExecContext(ctx, query, username, passwordHash, time.Now())
	if err != nil {
		return false, storageErr("seed user", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("seed user", err)
	}
	return affected > 0, nil
}

func (db *DB) GetCredential(ctx context.Context, username string) (*models.Credential, error) {
	query := `SELECT id, username, password, created_at FROM users WHERE username = ?`

	var (
		c         models.Credential
		createdAt sql.NullTime
	)
	err := db.QueryRowContext(ctx, query, username).Scan(&c.ID, &c.Username, &c.Password, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, storageErr("get credential", err)
	}
	c.CreatedAt = createdAt.Time
	return &c, nil
}
