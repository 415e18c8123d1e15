package store

import (
	"context"
	"errors"

	"github.com/farmville-istec/farmville/internal/models"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint (username, email) is violated.
var ErrDuplicate = errors.New("already exists")

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	ByUsername(ctx context.Context, username string) (models.User, error)
	ByID(ctx context.Context, id int64) (models.User, error)
}

// TerrainStore persists farm terrains.
type TerrainStore interface {
	Create(ctx context.Context, terrain models.Terrain) (models.Terrain, error)
	ByID(ctx context.Context, id int64) (models.Terrain, error)
	ByUser(ctx context.Context, userID int64) ([]models.Terrain, error)
	Update(ctx context.Context, terrain models.Terrain) error
	Delete(ctx context.Context, id int64) error
}
