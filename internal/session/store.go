// Package session keeps the ephemeral per-customer conversation state.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/Ananth-NQI/dinepe-backend/internal/models"
)

// ErrNotFound is returned for absent and expired sessions alike.
var ErrNotFound = errors.New("session not found")

// Store persists sessions with a sliding TTL. Put overwrites the whole
// session atomically and resets its expiry.
type Store interface {
	Get(ctx context.Context, key string) (*models.Session, error)
	Put(ctx context.Context, sess *models.Session, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Active(ctx context.Context) (int, error)
	Cleanup(ctx context.Context) (int, error)
	Close() error
}
