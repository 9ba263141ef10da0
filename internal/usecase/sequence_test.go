package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/atelierhq/atelier/internal/domain"
	"github.com/atelierhq/atelier/internal/domain/mocks"
)

func fixedClock(year int) func() time.Time {
	return func() time.Time {
		return time.Date(year, time.March, 14, 12, 0, 0, 0, time.UTC)
	}
}

func TestSequencesNext(t *testing.T) {
	ctx := context.Background()

	t.Run("Formats Zero-Padded Identifier", func(t *testing.T) {
		s := NewSequences(mocks.NewMockStore(), testLogger(), testMetrics())
		s.now = fixedClock(2026)

		id, err := s.Next(ctx, "agency-a", "kn")
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if id != "KN-2026-0001" {
			t.Errorf("id = %q, want KN-2026-0001", id)
		}
	})

	t.Run("Counts Per Tenant Per Category Per Period", func(t *testing.T) {
		store := mocks.NewMockStore()
		s := NewSequences(store, testLogger(), testMetrics())
		s.now = fixedClock(2026)

		for i, want := range []string{"KN-2026-0001", "KN-2026-0002", "KN-2026-0003"} {
			id, err := s.Next(ctx, "agency-a", "kn")
			if err != nil {
				t.Fatalf("next %d: %v", i, err)
			}
			if id != want {
				t.Errorf("id %d = %q, want %q", i, id, want)
			}
		}

		// A different tenant and a different category each start fresh.
		if id, _ := s.Next(ctx, "agency-b", "kn"); id != "KN-2026-0001" {
			t.Errorf("tenant b id = %q, want KN-2026-0001", id)
		}
		if id, _ := s.Next(ctx, "agency-a", "wd"); id != "WD-2026-0001" {
			t.Errorf("category wd id = %q, want WD-2026-0001", id)
		}
	})

	t.Run("Counter Documents Are Tenant-Stamped", func(t *testing.T) {
		store := mocks.NewMockStore()
		s := NewSequences(store, testLogger(), testMetrics())
		s.now = fixedClock(2026)

		if _, err := s.Next(ctx, "agency-a", "kn"); err != nil {
			t.Fatalf("next: %v", err)
		}
		docs := store.Docs(domain.CollSequenceCounters)
		if len(docs) != 1 {
			t.Fatalf("expected 1 counter document, got %d", len(docs))
		}
		if got := docs[0]["agency_id"]; got != "agency-a" {
			t.Errorf("agency_id = %v, want agency-a", got)
		}
	})
}

func TestSequencesConcurrency(t *testing.T) {
	ctx := context.Background()
	s := NewSequences(mocks.NewMockStore(), testLogger(), testMetrics())
	s.now = fixedClock(2026)

	const n = 50
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.Next(ctx, "agency-a", "kn")
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, n)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate identifier issued: %s", id)
		}
		seen[id] = true
	}
	// Distinct and gap-free: exactly 0001..n must have been issued.
	for i := 1; i <= n; i++ {
		want := fmt.Sprintf("KN-2026-%04d", i)
		if !seen[want] {
			t.Errorf("missing identifier %s", want)
		}
	}
}

func TestSequencesNextUnique(t *testing.T) {
	ctx := context.Background()

	t.Run("Untaken Identifier Is Returned Directly", func(t *testing.T) {
		s := NewSequences(mocks.NewMockStore(), testLogger(), testMetrics())
		s.now = fixedClock(2026)

		id, err := s.NextUnique(ctx, "agency-a", "kn", func(ctx context.Context, id string) (bool, error) {
			return false, nil
		})
		if err != nil {
			t.Fatalf("next unique: %v", err)
		}
		if id != "KN-2026-0001" {
			t.Errorf("id = %q, want KN-2026-0001", id)
		}
	})

	t.Run("Taken Identifier Triggers One Retry", func(t *testing.T) {
		s := NewSequences(mocks.NewMockStore(), testLogger(), testMetrics())
		s.now = fixedClock(2026)

		// 0001 belongs to a record migrated in from outside the
		// generator; the retry must land on 0002.
		id, err := s.NextUnique(ctx, "agency-a", "kn", func(ctx context.Context, id string) (bool, error) {
			return id == "KN-2026-0001", nil
		})
		if err != nil {
			t.Fatalf("next unique: %v", err)
		}
		if id != "KN-2026-0002" {
			t.Errorf("id = %q, want KN-2026-0002", id)
		}
	})

	t.Run("Persistent Collision Is Fatal", func(t *testing.T) {
		s := NewSequences(mocks.NewMockStore(), testLogger(), testMetrics())
		s.now = fixedClock(2026)

		calls := 0
		_, err := s.NextUnique(ctx, "agency-a", "kn", func(ctx context.Context, id string) (bool, error) {
			calls++
			return true, nil
		})
		if !errors.Is(err, domain.ErrIdentifierCollision) {
			t.Fatalf("expected ErrIdentifierCollision, got %v", err)
		}
		if calls != 2 {
			t.Errorf("existence checked %d times, want 2 (single retry)", calls)
		}
	})

	t.Run("Existence Check Errors Propagate", func(t *testing.T) {
		s := NewSequences(mocks.NewMockStore(), testLogger(), testMetrics())
		s.now = fixedClock(2026)

		storeErr := errors.New("store unavailable")
		_, err := s.NextUnique(ctx, "agency-a", "kn", func(ctx context.Context, id string) (bool, error) {
			return false, storeErr
		})
		if !errors.Is(err, storeErr) {
			t.Fatalf("expected store error, got %v", err)
		}
	})
}
