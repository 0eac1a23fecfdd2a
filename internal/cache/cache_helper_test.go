package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type cachedAssessment struct {
	ID   uint   `json:"id"`
	Slug string `json:"slug"`
}

func newTestManager(t *testing.T) (*CacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheManager(client), mr
}

func TestCacheHelper_NilClient(t *testing.T) {
	cm := NewCacheManager(nil)
	ctx := context.Background()

	if cm.Enabled() {
		t.Error("manager without client must report disabled")
	}

	var dest cachedAssessment
	if err := cm.Assessment.Get(ctx, "slug:go-basics", &dest); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("expected ErrCacheNotAvailable, got %v", err)
	}
	if err := cm.Assessment.Set(ctx, "slug:go-basics", dest, time.Minute); err != nil {
		t.Errorf("set without client should be a no-op, got %v", err)
	}
	if _, err := cm.RateLimit.IncrWindow(ctx, "user-1", time.Minute); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("expected ErrCacheNotAvailable, got %v", err)
	}

	calls := 0
	err := cm.Assessment.CacheOrExecute(ctx, "slug:go-basics", &dest, time.Minute, func() (interface{}, error) {
		calls++
		return &cachedAssessment{ID: 1, Slug: "go-basics"}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 || dest.ID != 1 {
		t.Errorf("fetch not used: calls=%d dest=%+v", calls, dest)
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	fetch := func() (interface{}, error) {
		return &cachedAssessment{ID: 7, Slug: "sql-joins"}, nil
	}

	var first cachedAssessment
	if err := cm.Assessment.CacheOrExecute(ctx, "slug:sql-joins", &first, time.Minute, fetch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID != 7 {
		t.Fatalf("unexpected value: %+v", first)
	}

	// the write-back is asynchronous
	deadline := time.Now().Add(2 * time.Second)
	for !mr.Exists("assessment:slug:sql-joins") {
		if time.Now().After(deadline) {
			t.Fatal("value was never written to cache")
		}
		time.Sleep(10 * time.Millisecond)
	}

	var second cachedAssessment
	err := cm.Assessment.CacheOrExecute(ctx, "slug:sql-joins", &second, time.Minute, func() (interface{}, error) {
		t.Error("fetch must not run on cache hit")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Slug != "sql-joins" {
		t.Errorf("unexpected cached value: %+v", second)
	}
}

func TestCacheHelper_CacheOrExecuteFetchError(t *testing.T) {
	cm, _ := newTestManager(t)
	boom := errors.New("boom")

	var dest cachedAssessment
	err := cm.Assessment.CacheOrExecute(context.Background(), "slug:x", &dest, time.Minute, func() (interface{}, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped fetch error, got %v", err)
	}
}

func TestCacheHelper_IncrWindow(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, err := cm.RateLimit.IncrWindow(ctx, "user-1:submit", time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != i {
			t.Errorf("count = %d, want %d", count, i)
		}
	}

	if ttl := mr.TTL("ratelimit:user-1:submit"); ttl <= 0 || ttl > time.Minute {
		t.Errorf("unexpected ttl %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)

	count, err := cm.RateLimit.IncrWindow(ctx, "user-1:submit", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("window should reset, got %d", count)
	}
}

func TestSafeSet(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	SafeSet(ctx, cm.User, "id:u-1", cachedAssessment{ID: 1}, time.Minute)
	if !mr.Exists("user:id:u-1") {
		t.Fatal("value should be cached")
	}

	mr.Close()
	// Failures are logged, not surfaced
	SafeSet(ctx, cm.User, "id:u-2", cachedAssessment{ID: 2}, time.Minute)
}
