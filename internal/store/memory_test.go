package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/farmville-istec/farmville/internal/models"
)

func TestMemoryUserStore_CreateAndLookup(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()

	created, err := s.Create(ctx, models.User{Username: "farmer_joe", Email: "joe@farm.test", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == 0 {
		t.Error("Create() did not assign an ID")
	}
	if created.CreatedAt.IsZero() {
		t.Error("Create() did not set CreatedAt")
	}

	byName, err := s.ByUsername(ctx, "farmer_joe")
	if err != nil {
		t.Fatalf("ByUsername() error = %v", err)
	}
	if byName.ID != created.ID {
		t.Errorf("ByUsername() ID = %d, want %d", byName.ID, created.ID)
	}

	byID, err := s.ByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if byID.Username != "farmer_joe" {
		t.Errorf("ByID() Username = %q", byID.Username)
	}
}

func TestMemoryUserStore_DuplicateRejected(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()

	if _, err := s.Create(ctx, models.User{Username: "farmer_joe", Email: "joe@farm.test"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name string
		user models.User
	}{
		{name: "same username", user: models.User{Username: "farmer_joe", Email: "other@farm.test"}},
		{name: "same email", user: models.User{Username: "other", Email: "joe@farm.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Create(ctx, tt.user); !errors.Is(err, ErrDuplicate) {
				t.Errorf("Create() error = %v, want %v", err, ErrDuplicate)
			}
		})
	}
}

func TestMemoryUserStore_NotFound(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()

	if _, err := s.ByUsername(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ByUsername() error = %v, want %v", err, ErrNotFound)
	}
	if _, err := s.ByID(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("ByID() error = %v, want %v", err, ErrNotFound)
	}
}

func TestMemoryTerrainStore_CRUD(t *testing.T) {
	s := NewMemoryTerrainStore()
	ctx := context.Background()

	created, err := s.Create(ctx, models.Terrain{
		UserID:    1,
		Name:      "North Field",
		Latitude:  41.1579,
		Longitude: -8.6291,
		CropType:  "corn",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == 0 {
		t.Error("Create() did not assign an ID")
	}

	got, err := s.ByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if got.Name != "North Field" {
		t.Errorf("Name = %q", got.Name)
	}

	got.Name = "South Field"
	got.CropType = "wheat"
	if err := s.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	updated, err := s.ByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("ByID() after update error = %v", err)
	}
	if updated.Name != "South Field" || updated.CropType != "wheat" {
		t.Errorf("updated terrain = %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("Update() must preserve CreatedAt")
	}

	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.ByID(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("ByID() after delete error = %v, want %v", err, ErrNotFound)
	}
}

func TestMemoryTerrainStore_UpdatePreservesOwner(t *testing.T) {
	s := NewMemoryTerrainStore()
	ctx := context.Background()

	created, err := s.Create(ctx, models.Terrain{UserID: 1, Name: "Field", Latitude: 1, Longitude: 1})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	created.UserID = 7
	if err := s.Update(ctx, created); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ := s.ByID(ctx, created.ID)
	if got.UserID != 1 {
		t.Errorf("UserID = %d, want owner unchanged", got.UserID)
	}
}

func TestMemoryTerrainStore_ByUser_NewestFirst(t *testing.T) {
	s := NewMemoryTerrainStore()
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		if _, err := s.Create(ctx, models.Terrain{UserID: 1, Name: name, Latitude: 1, Longitude: 1}); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if _, err := s.Create(ctx, models.Terrain{UserID: 2, Name: "other user", Latitude: 1, Longitude: 1}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	terrains, err := s.ByUser(ctx, 1)
	if err != nil {
		t.Fatalf("ByUser() error = %v", err)
	}
	if len(terrains) != 3 {
		t.Fatalf("terrains = %d, want 3", len(terrains))
	}
	if terrains[0].Name != "third" || terrains[2].Name != "first" {
		t.Errorf("order = [%s %s %s], want newest first", terrains[0].Name, terrains[1].Name, terrains[2].Name)
	}
}

func TestMemoryTerrainStore_UpdateDeleteMissing(t *testing.T) {
	s := NewMemoryTerrainStore()
	ctx := context.Background()

	if err := s.Update(ctx, models.Terrain{ID: 5, Name: "ghost"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want %v", err, ErrNotFound)
	}
	if err := s.Delete(ctx, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want %v", err, ErrNotFound)
	}
}
