package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestSQLiteConcurrentWriteSafety(t *testing.T) {
	store, err := NewSQLite(context.Background(), SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to create SQLite storage: %v", err)
	}
	defer store.Close()

	const goroutines = 10
	const writesPerGoroutine = 50

	var wg sync.WaitGroup
	errs := make(chan error, goroutines*writesPerGoroutine)

	// Half the goroutines write product keys, half category keys, mirroring the
	// two catalog domains refreshing at the same time.
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			domain := "products"
			if id%2 == 1 {
				domain = "categories"
			}
			for j := 0; j < writesPerGoroutine; j++ {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				err := store.Set(ctx, fmt.Sprintf("roastery_%s_%d_%d", domain, id, j), []byte("payload"))
				cancel()
				if err != nil {
					errs <- fmt.Errorf("goroutine %d write %d for %s: %w", id, j, domain, err)
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent write error: %v", err)
	}

	ctx := context.Background()
	productKeys, err := store.Keys(ctx, "roastery_products_")
	if err != nil {
		t.Fatalf("failed to list product keys: %v", err)
	}
	categoryKeys, err := store.Keys(ctx, "roastery_categories_")
	if err != nil {
		t.Fatalf("failed to list category keys: %v", err)
	}

	expectedPerDomain := (goroutines / 2) * writesPerGoroutine
	if len(productKeys) != expectedPerDomain {
		t.Errorf("products: got %d keys, want %d", len(productKeys), expectedPerDomain)
	}
	if len(categoryKeys) != expectedPerDomain {
		t.Errorf("categories: got %d keys, want %d", len(categoryKeys), expectedPerDomain)
	}
}
