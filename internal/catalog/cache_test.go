package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/simp-lee/gamelib/internal/domain"
)

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	setKeys []string
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setKeys = append(m.setKeys, key)
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

type countingClient struct {
	calls atomic.Int32
	gate  chan struct{}
	err   error
}

func (c *countingClient) Search(_ context.Context, term string, page int) (*domain.SearchPage, error) {
	c.calls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	if c.err != nil {
		return nil, c.err
	}
	return &domain.SearchPage{
		Results:    []domain.SearchResultItem{{ID: page, Name: term, Platforms: []domain.Platform{{ID: 1, Name: "PC"}}}},
		TotalCount: 45,
	}, nil
}

func TestCachedClient_HitAvoidsBackend(t *testing.T) {
	backend := &countingClient{}
	cache := newMemCache()
	c := NewCachedClient(backend, cache, CacheConfig{TTL: time.Minute, Prefix: "gamelib"}, nil)

	for i := 0; i < 3; i++ {
		page, err := c.Search(context.Background(), "Zelda", 2)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if page.TotalCount != 45 || page.Results[0].Platforms[0].Name != "PC" {
			t.Fatalf("unexpected page %+v", page)
		}
	}
	if n := backend.calls.Load(); n != 1 {
		t.Errorf("backend calls = %d, want 1", n)
	}
	if ttl := cache.ttls["gamelib:search:zelda:2"]; ttl != time.Minute {
		t.Errorf("ttl for key = %v, want 1m (keys %v)", ttl, cache.setKeys)
	}
}

func TestCachedClient_KeyNormalization(t *testing.T) {
	backend := &countingClient{}
	c := NewCachedClient(backend, newMemCache(), CacheConfig{Prefix: "p"}, nil)

	_, _ = c.Search(context.Background(), "ZELDA", 1)
	_, _ = c.Search(context.Background(), " zelda ", 1)
	_, _ = c.Search(context.Background(), "zelda", 0)
	_, _ = c.Search(context.Background(), "zelda", 2)

	if n := backend.calls.Load(); n != 2 {
		t.Errorf("backend calls = %d, want 2 (page 1 and page 2)", n)
	}
}

func TestCachedClient_CacheFailuresFallThrough(t *testing.T) {
	backend := &countingClient{}
	cache := newMemCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	c := NewCachedClient(backend, cache, CacheConfig{TTL: time.Minute, Prefix: "p"}, nil)

	for i := 0; i < 2; i++ {
		if _, err := c.Search(context.Background(), "zelda", 1); err != nil {
			t.Fatalf("Search: %v", err)
		}
	}
	if n := backend.calls.Load(); n != 2 {
		t.Errorf("backend calls = %d, want 2", n)
	}
}

func TestCachedClient_CorruptEntryIsRefetched(t *testing.T) {
	backend := &countingClient{}
	cache := newMemCache()
	cache.data["p:search:zelda:1"] = []byte("{not json")
	c := NewCachedClient(backend, cache, CacheConfig{TTL: time.Minute, Prefix: "p"}, nil)

	page, err := c.Search(context.Background(), "zelda", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.TotalCount != 45 || backend.calls.Load() != 1 {
		t.Errorf("expected refetch, got page %+v after %d calls", page, backend.calls.Load())
	}
}

func TestCachedClient_ErrorsAreNotCached(t *testing.T) {
	backend := &countingClient{err: domain.NewAppError(domain.CodeUnavailable, unavailableMessage, nil)}
	cache := newMemCache()
	c := NewCachedClient(backend, cache, CacheConfig{TTL: time.Minute, Prefix: "p"}, nil)

	if _, err := c.Search(context.Background(), "zelda", 1); !domain.IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if len(cache.setKeys) != 0 {
		t.Errorf("errors must not be cached, got writes %v", cache.setKeys)
	}
}

func TestCachedClient_CollapsesConcurrentLookups(t *testing.T) {
	backend := &countingClient{gate: make(chan struct{})}
	c := NewCachedClient(backend, newMemCache(), CacheConfig{TTL: time.Minute, Prefix: "p"}, nil)

	const n = 8
	var wg sync.WaitGroup
	pages := make([]*domain.SearchPage, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pages[i], _ = c.Search(context.Background(), "zelda", 1)
		}(i)
	}

	// Give all goroutines time to join the in-flight lookup.
	time.Sleep(50 * time.Millisecond)
	close(backend.gate)
	wg.Wait()

	if calls := backend.calls.Load(); calls != 1 {
		t.Errorf("backend calls = %d, want 1", calls)
	}
	pages[0].Results[0].Platforms[0].Name = "mutated"
	for i := 1; i < n; i++ {
		if pages[i] == nil || pages[i].Results[0].Platforms[0].Name != "PC" {
			t.Fatalf("waiter %d shares state with another caller: %+v", i, pages[i])
		}
	}
}

// ctxClient blocks until released and reports whether its context was cancelled meanwhile.
type ctxClient struct {
	started chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func (c *ctxClient) Search(ctx context.Context, term string, page int) (*domain.SearchPage, error) {
	close(c.started)
	<-c.release
	c.ctxErr <- ctx.Err()
	return &domain.SearchPage{Results: []domain.SearchResultItem{{ID: 1, Name: term}}, TotalCount: 1}, nil
}

func TestCachedClient_CancelledLeaderDoesNotFailWaiters(t *testing.T) {
	backend := &ctxClient{started: make(chan struct{}), release: make(chan struct{}), ctxErr: make(chan error, 1)}
	cache := newMemCache()
	c := NewCachedClient(backend, cache, CacheConfig{TTL: time.Minute, Prefix: "p"}, nil)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.Search(leaderCtx, "zelda", 1)
		leaderErr <- err
	}()
	<-backend.started

	waiter := make(chan *domain.SearchPage, 1)
	go func() {
		page, err := c.Search(context.Background(), "zelda", 1)
		if err != nil {
			t.Errorf("waiter Search: %v", err)
		}
		waiter <- page
	}()
	// Give the waiter time to join the in-flight lookup.
	time.Sleep(50 * time.Millisecond)

	cancelLeader()
	if err := <-leaderErr; !domain.IsUnavailable(err) || !errors.Is(err, context.Canceled) {
		t.Errorf("leader error = %v, want unavailable wrapping context.Canceled", err)
	}
	close(backend.release)

	if err := <-backend.ctxErr; err != nil {
		t.Errorf("backend context error = %v, want nil", err)
	}
	if page := <-waiter; page == nil || page.TotalCount != 1 {
		t.Errorf("waiter page = %+v", page)
	}
	if _, ok, _ := cache.Get(context.Background(), "p:search:zelda:1"); !ok {
		t.Error("shared result should still be cached")
	}
}

func TestCachedClient_EmptyTermBypassesCache(t *testing.T) {
	backend := &countingClient{}
	cache := newMemCache()
	c := NewCachedClient(backend, cache, CacheConfig{TTL: time.Minute, Prefix: "p"}, nil)

	_, _ = c.Search(context.Background(), "  ", 1)
	if len(cache.setKeys) != 0 || backend.calls.Load() != 1 {
		t.Errorf("empty term should go straight to the backend")
	}
}
