package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/farmville-istec/farmville/internal/models"
)

// TestInMemory_GetSet verifies that Set stores values and Get retrieves them
// within the TTL window.
func TestInMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory[models.WeatherRecord]()

	val := models.WeatherRecord{Location: "porto", Temperature: 18.5}
	if err := c.Set(ctx, "porto", val, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := c.Get(ctx, "porto")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got.Location != val.Location || got.Temperature != val.Temperature {
		t.Errorf("Get() = %+v, want %+v", got, val)
	}
}

// TestInMemory_Get_Miss verifies that Get returns ok=false when the key was
// never set.
func TestInMemory_Get_Miss(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory[models.WeatherRecord]()

	_, ok, err := c.Get(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}

// TestInMemory_Get_Expired verifies that an expired entry reads as absent and
// is evicted on access.
func TestInMemory_Get_Expired(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory[models.WeatherRecord]()

	val := models.WeatherRecord{Location: "porto"}
	if err := c.Set(ctx, "porto", val, 1*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	_, ok, err := c.Get(ctx, "porto")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for expired entry")
	}

	count, _ := c.Stats()
	if count != 0 {
		t.Errorf("Stats() count = %d, want 0 after lazy eviction", count)
	}
}

// TestInMemory_Set_Overwrite verifies that Set replaces an existing entry and
// refreshes its expiry.
func TestInMemory_Set_Overwrite(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory[models.WeatherRecord]()

	if err := c.Set(ctx, "porto", models.WeatherRecord{Temperature: 10}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Set(ctx, "porto", models.WeatherRecord{Temperature: 20}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, _ := c.Get(ctx, "porto")
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got.Temperature != 20 {
		t.Errorf("Get() temperature = %v, want 20 after overwrite", got.Temperature)
	}
}

func TestInMemory_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory[models.WeatherRecord]()

	_ = c.Set(ctx, "porto", models.WeatherRecord{}, time.Minute)
	if err := c.Delete(ctx, "porto"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, ok, _ := c.Get(ctx, "porto")
	if ok {
		t.Error("Get() ok = true, want false after Delete")
	}
}

func TestInMemory_Clear(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory[models.WeatherRecord]()

	_ = c.Set(ctx, "porto", models.WeatherRecord{}, time.Minute)
	_ = c.Set(ctx, "lisboa", models.WeatherRecord{}, time.Minute)

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	count, _ := c.Stats()
	if count != 0 {
		t.Errorf("Stats() count = %d, want 0 after Clear", count)
	}
}

// TestInMemory_ConcurrentAccess exercises concurrent readers and writers on
// overlapping keys. Run with -race.
func TestInMemory_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory[models.WeatherRecord]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		key := fmt.Sprintf("loc-%d", i%5)
		go func(key string, temp float64) {
			defer wg.Done()
			_ = c.Set(ctx, key, models.WeatherRecord{Temperature: temp}, time.Minute)
		}(key, float64(i))
		go func(key string) {
			defer wg.Done()
			_, _, _ = c.Get(ctx, key)
		}(key)
	}
	wg.Wait()

	count, _ := c.Stats()
	if count != 5 {
		t.Errorf("Stats() count = %d, want 5", count)
	}
}
