// Package users is the auth/user collaborator boundary: it resolves an
// email to the display name used to default the order's username and to
// the device token the push channel targets.
package users

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"canteen-backend/internal/order/adapter/db"
	"canteen-backend/internal/order/app/core"
	"canteen-backend/internal/order/domain/models"
)

// Directory is the Postgres-backed user lookup.
type Directory struct {
	db *db.DB
}

func NewDirectory(database *db.DB) *Directory {
	return &Directory{db: database}
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (models.UserProfile, error) {
	var u models.UserProfile
	err := d.db.Pool.QueryRow(ctx,
		`SELECT email, name, device_token FROM users WHERE email = $1`, email).
		Scan(&u.Email, &u.Name, &u.DeviceToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.UserProfile{}, core.ErrUserNotFound
		}
		return models.UserProfile{}, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

func (d *Directory) SaveDeviceToken(ctx context.Context, email, deviceToken string) error {
	_, err := d.db.Pool.Exec(ctx, `
		INSERT INTO users (email, device_token) VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET device_token = $2
	`, email, deviceToken)
	if err != nil {
		return fmt.Errorf("failed to save device token: %w", err)
	}
	return nil
}

// DeviceToken satisfies the push sink's resolver interface.
func (d *Directory) DeviceToken(ctx context.Context, email string) (string, error) {
	u, err := d.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return u.DeviceToken, nil
}

// MemoryDirectory is the in-memory variant used by tests.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]models.UserProfile
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[string]models.UserProfile)}
}

func (d *MemoryDirectory) Put(u models.UserProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.Email] = u
}

func (d *MemoryDirectory) FindByEmail(_ context.Context, email string) (models.UserProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[email]
	if !ok {
		return models.UserProfile{}, core.ErrUserNotFound
	}
	return u, nil
}

func (d *MemoryDirectory) SaveDeviceToken(_ context.Context, email, deviceToken string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := d.users[email]
	u.Email = email
	u.DeviceToken = deviceToken
	d.users[email] = u
	return nil
}

func (d *MemoryDirectory) DeviceToken(ctx context.Context, email string) (string, error) {
	u, err := d.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return u.DeviceToken, nil
}
