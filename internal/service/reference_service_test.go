package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

type stubReferenceCache struct {
	mu       sync.Mutex
	snapshot *domain.ReferenceSnapshot
	loadErr  error
	stores   int
}

func (c *stubReferenceCache) Load(context.Context) (*domain.ReferenceSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot, c.loadErr
}

func (c *stubReferenceCache) Store(_ context.Context, snapshot *domain.ReferenceSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = snapshot
	c.stores++
	return nil
}

func TestReferenceService_LazyLoadFromDatabase(t *testing.T) {
	repo := newFakeReferenceRepo()
	cache := &stubReferenceCache{}
	svc := NewReferenceService(ReferenceDependencies{ReferenceRepo: repo, CategoryRepo: fakeCategoryRepo{}, Cache: cache})

	assert.Zero(t, repo.calls)

	role, ok, err := svc.Role(context.Background(), 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.RoleManager, role.Name)

	_, ok, err = svc.Department(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, ok)

	roles, err := svc.Roles(context.Background())
	require.NoError(t, err)
	assert.Len(t, roles, 3)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, 1, cache.stores)
}

func TestReferenceService_UsesCachedSnapshot(t *testing.T) {
	repo := newFakeReferenceRepo()
	cache := &stubReferenceCache{snapshot: &domain.ReferenceSnapshot{
		Roles:       []domain.Role{{ID: 1, Name: domain.RoleAdmin}},
		Departments: []domain.Department{{ID: 8, Name: "Cached"}},
	}}
	svc := NewReferenceService(ReferenceDependencies{ReferenceRepo: repo, Cache: cache})

	departments, err := svc.Departments(context.Background())
	require.NoError(t, err)
	require.Len(t, departments, 1)
	assert.Equal(t, "Cached", departments[0].Name)
	assert.Zero(t, repo.calls)
}

func TestReferenceService_CacheFailureFallsBack(t *testing.T) {
	repo := newFakeReferenceRepo()
	cache := &stubReferenceCache{loadErr: errors.New("connection refused")}
	svc := NewReferenceService(ReferenceDependencies{ReferenceRepo: repo, Cache: cache})

	roles, err := svc.Roles(context.Background())
	require.NoError(t, err)
	assert.Len(t, roles, 3)
	assert.Equal(t, 1, repo.calls)
}

func TestReferenceService_ReloadReplacesTables(t *testing.T) {
	repo := newFakeReferenceRepo()
	cache := &stubReferenceCache{}
	dispatcher := events.NewInMemoryDispatcher()
	recorder := &eventRecorder{}
	recorder.attach(dispatcher, events.EventReferenceReloaded)
	svc := NewReferenceService(ReferenceDependencies{ReferenceRepo: repo, Cache: cache, Dispatcher: dispatcher})

	_, err := svc.Departments(context.Background())
	require.NoError(t, err)

	repo.departments = append(repo.departments, domain.Department{ID: 5, Name: "HR"})
	snapshot, err := svc.Reload(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, snapshot.Departments, 3)

	dept, ok, err := svc.Department(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "HR", dept.Name)
	assert.Len(t, cache.snapshot.Departments, 3)

	require.Len(t, recorder.events, 1)
	assert.Equal(t, events.ReferenceReloadedPayload{Roles: 3, Departments: 3}, recorder.events[0].Payload)
}

func TestReferenceService_PicksUpReloadFromAnotherInstance(t *testing.T) {
	ctx := context.Background()
	repo := newFakeReferenceRepo()
	shared := &stubReferenceCache{}

	clock := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	newInstance := func() *ReferenceService {
		svc := NewReferenceService(ReferenceDependencies{ReferenceRepo: repo, Cache: shared, SyncInterval: 30 * time.Second})
		svc.now = func() time.Time { return clock }
		return svc
	}
	first, second := newInstance(), newInstance()

	_, err := first.Roles(ctx)
	require.NoError(t, err)
	_, err = second.Roles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls, "second instance starts from the shared snapshot")

	repo.departments = append(repo.departments, domain.Department{ID: 5, Name: "HR"})
	_, err = first.Reload(ctx, 1)
	require.NoError(t, err)

	clock = clock.Add(10 * time.Second)
	_, ok, err := second.Department(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok, "no recheck before the interval elapses")

	clock = clock.Add(30 * time.Second)
	dept, ok, err := second.Department(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "HR", dept.Name)
	assert.Equal(t, 2, repo.calls)
}

func TestReferenceService_SyncKeepsTablesWhenCacheFails(t *testing.T) {
	ctx := context.Background()
	cache := &stubReferenceCache{}
	clock := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	svc := NewReferenceService(ReferenceDependencies{ReferenceRepo: newFakeReferenceRepo(), Cache: cache, SyncInterval: time.Second})
	svc.now = func() time.Time { return clock }

	_, err := svc.Roles(ctx)
	require.NoError(t, err)

	cache.loadErr = errors.New("connection refused")
	clock = clock.Add(time.Minute)
	roles, err := svc.Roles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 3)
}

func TestReferenceService_ConcurrentFirstUse(t *testing.T) {
	svc := NewReferenceService(ReferenceDependencies{ReferenceRepo: newFakeReferenceRepo()})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := svc.Role(context.Background(), 3)
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()
}

func TestReferenceService_ActiveCategories(t *testing.T) {
	svc := NewReferenceService(ReferenceDependencies{
		ReferenceRepo: newFakeReferenceRepo(),
		CategoryRepo: fakeCategoryRepo{
			1: {ID: 1, Name: "Software", IsActive: true},
			2: {ID: 2, Name: "Archived", IsActive: false},
			3: {ID: 3, Name: "Hardware", IsActive: true},
		},
	})

	categories, err := svc.ActiveCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Hardware", categories[0].Name)
}
