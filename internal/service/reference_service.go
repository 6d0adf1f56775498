package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// ReferenceCache is a shared snapshot store. Load returns nil on a miss.
type ReferenceCache interface {
	Load(ctx context.Context) (*domain.ReferenceSnapshot, error)
	Store(ctx context.Context, snapshot *domain.ReferenceSnapshot) error
}

// ReferenceService serves roles, departments and categories. Roles and
// departments are held in process-wide lookup tables that change on Reload.
// With a shared cache and a sync interval, a reload made by another instance
// is picked up on the first lookup after the interval elapses.
type ReferenceService struct {
	repo         repository.ReferenceRepository
	categories   repository.CategoryRepository
	cache        ReferenceCache
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	syncInterval time.Duration
	now          func() time.Time

	group       singleflight.Group
	mu          sync.RWMutex
	loaded      bool
	version     string
	syncedAt    time.Time
	roles       []domain.Role
	departments []domain.Department
	roleByID    map[int64]domain.Role
	deptByID    map[int64]domain.Department
}

// ReferenceDependencies bundles collaborators for the reference service.
type ReferenceDependencies struct {
	ReferenceRepo repository.ReferenceRepository
	CategoryRepo  repository.CategoryRepository
	Cache         ReferenceCache
	SyncInterval  time.Duration
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// NewReferenceService constructs the service. Cache and Dispatcher may be nil.
func NewReferenceService(deps ReferenceDependencies) *ReferenceService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceService{
		repo:         deps.ReferenceRepo,
		categories:   deps.CategoryRepo,
		cache:        deps.Cache,
		dispatcher:   deps.Dispatcher,
		logger:       logger,
		syncInterval: deps.SyncInterval,
		now:          time.Now,
	}
}

// Roles lists roles ordered by id.
func (s *ReferenceService) Roles(ctx context.Context) ([]domain.Role, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Role(nil), s.roles...), nil
}

// Departments lists departments ordered by name.
func (s *ReferenceService) Departments(ctx context.Context) ([]domain.Department, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Department(nil), s.departments...), nil
}

// Role looks a role up by id.
func (s *ReferenceService) Role(ctx context.Context, id int64) (domain.Role, bool, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return domain.Role{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.roleByID[id]
	return role, ok, nil
}

// Department looks a department up by id.
func (s *ReferenceService) Department(ctx context.Context, id int64) (domain.Department, bool, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return domain.Department{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	dept, ok := s.deptByID[id]
	return dept, ok, nil
}

// ActiveCategories reads categories straight from storage; activation flips must show immediately.
func (s *ReferenceService) ActiveCategories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.ListActive(ctx)
}

// Reload refreshes the tables from the database and overwrites the shared snapshot.
func (s *ReferenceService) Reload(ctx context.Context, actorID int64) (*domain.ReferenceSnapshot, error) {
	snapshot, err := s.reloadFromDB(ctx)
	if err != nil {
		return nil, err
	}
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:    events.EventReferenceReloaded,
			ActorID: actorID,
			Payload: events.ReferenceReloadedPayload{
				Roles:       len(snapshot.Roles),
				Departments: len(snapshot.Departments),
			},
		})
	}
	return snapshot, nil
}

func (s *ReferenceService) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	syncedAt := s.syncedAt
	s.mu.RUnlock()
	if loaded {
		if s.cache != nil && s.syncInterval > 0 && s.now().Sub(syncedAt) >= s.syncInterval {
			s.syncFromCache(ctx)
		}
		return nil
	}

	if s.cache != nil {
		snapshot, err := s.cache.Load(ctx)
		if err != nil {
			s.logger.Warn("reference cache unavailable", zap.Error(err))
		}
		if snapshot != nil {
			s.install(snapshot)
			return nil
		}
	}
	_, err := s.reloadFromDB(ctx)
	return err
}

// syncFromCache installs the shared snapshot when its version differs from the
// local one. Failures keep the current tables; they are still valid data.
func (s *ReferenceService) syncFromCache(ctx context.Context) {
	_, _, _ = s.group.Do("sync", func() (interface{}, error) {
		snapshot, err := s.cache.Load(ctx)
		if err != nil {
			s.logger.Warn("reference cache unavailable", zap.Error(err))
		}

		s.mu.Lock()
		current := s.version
		s.syncedAt = s.now()
		s.mu.Unlock()

		if snapshot != nil && snapshot.Version != current {
			s.install(snapshot)
			s.logger.Info("reference data synced",
				zap.String("version", snapshot.Version),
				zap.String("previous_version", current))
		}
		return nil, nil
	})
}

// reloadFromDB collapses concurrent callers into one pair of queries.
func (s *ReferenceService) reloadFromDB(ctx context.Context) (*domain.ReferenceSnapshot, error) {
	result, err, _ := s.group.Do("reference", func() (interface{}, error) {
		roles, err := s.repo.ListRoles(ctx)
		if err != nil {
			return nil, err
		}
		departments, err := s.repo.ListDepartments(ctx)
		if err != nil {
			return nil, err
		}
		snapshot := &domain.ReferenceSnapshot{
			Version:     uuid.NewString(),
			Roles:       roles,
			Departments: departments,
		}
		s.install(snapshot)

		if s.cache != nil {
			if err := s.cache.Store(ctx, snapshot); err != nil {
				s.logger.Warn("failed to store reference snapshot", zap.Error(err))
			}
		}
		s.logger.Info("reference data loaded",
			zap.String("version", snapshot.Version),
			zap.Int("roles", len(roles)),
			zap.Int("departments", len(departments)))
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.ReferenceSnapshot), nil
}

func (s *ReferenceService) install(snapshot *domain.ReferenceSnapshot) {
	roleByID := make(map[int64]domain.Role, len(snapshot.Roles))
	for _, role := range snapshot.Roles {
		roleByID[role.ID] = role
	}
	deptByID := make(map[int64]domain.Department, len(snapshot.Departments))
	for _, dept := range snapshot.Departments {
		deptByID[dept.ID] = dept
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles = snapshot.Roles
	s.departments = snapshot.Departments
	s.roleByID = roleByID
	s.deptByID = deptByID
	s.version = snapshot.Version
	s.syncedAt = s.now()
	s.loaded = true
}
