package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/farmville-istec/farmville/internal/models"
)

// MemoryUserStore is an in-memory UserStore for tests and DB-less dev mode.
type MemoryUserStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]models.User
}

// NewMemoryUserStore creates an empty MemoryUserStore.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{nextID: 1, byID: make(map[int64]models.User)}
}

// Create implements UserStore.
func (s *MemoryUserStore) Create(ctx context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.Username == user.Username || existing.Email == user.Email {
			return models.User{}, fmt.Errorf("user %s: %w", user.Username, ErrDuplicate)
		}
	}
	user.ID = s.nextID
	s.nextID++
	user.CreatedAt = time.Now()
	s.byID[user.ID] = user
	return user, nil
}

// ByUsername implements UserStore.
func (s *MemoryUserStore) ByUsername(ctx context.Context, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.byID {
		if user.Username == username {
			return user, nil
		}
	}
	return models.User{}, ErrNotFound
}

// ByID implements UserStore.
func (s *MemoryUserStore) ByID(ctx context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

// MemoryTerrainStore is an in-memory TerrainStore for tests and DB-less dev mode.
type MemoryTerrainStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]models.Terrain
}

// NewMemoryTerrainStore creates an empty MemoryTerrainStore.
func NewMemoryTerrainStore() *MemoryTerrainStore {
	return &MemoryTerrainStore{nextID: 1, byID: make(map[int64]models.Terrain)}
}

// Create implements TerrainStore.
func (s *MemoryTerrainStore) Create(ctx context.Context, terrain models.Terrain) (models.Terrain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	terrain.ID = s.nextID
	s.nextID++
	now := time.Now()
	terrain.CreatedAt = now
	terrain.UpdatedAt = now
	s.byID[terrain.ID] = terrain
	return terrain, nil
}

// ByID implements TerrainStore.
func (s *MemoryTerrainStore) ByID(ctx context.Context, id int64) (models.Terrain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	terrain, ok := s.byID[id]
	if !ok {
		return models.Terrain{}, ErrNotFound
	}
	return terrain, nil
}

// ByUser implements TerrainStore. Results are newest first.
func (s *MemoryTerrainStore) ByUser(ctx context.Context, userID int64) ([]models.Terrain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var terrains []models.Terrain
	for _, t := range s.byID {
		if t.UserID == userID {
			terrains = append(terrains, t)
		}
	}
	sort.Slice(terrains, func(i, j int) bool {
		return terrains[i].CreatedAt.After(terrains[j].CreatedAt)
	})
	return terrains, nil
}

// Update implements TerrainStore.
func (s *MemoryTerrainStore) Update(ctx context.Context, terrain models.Terrain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[terrain.ID]
	if !ok {
		return ErrNotFound
	}
	terrain.UserID = existing.UserID
	terrain.CreatedAt = existing.CreatedAt
	terrain.UpdatedAt = time.Now()
	s.byID[terrain.ID] = terrain
	return nil
}

// Delete implements TerrainStore.
func (s *MemoryTerrainStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	return nil
}
