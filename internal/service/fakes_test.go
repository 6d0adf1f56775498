package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

func ptr[T any](v T) *T { return &v }

type passThroughTx struct {
	calls int
}

func (p *passThroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

type fakeTicketRepo struct {
	tickets    map[int64]domain.Ticket
	nextID     int64
	updates    int
	locked     []int64
	lastFilter repository.TicketFilter
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[int64]domain.Ticket{}, nextID: 100}
}

func (f *fakeTicketRepo) put(t domain.Ticket) {
	f.tickets[t.ID] = t
}

func (f *fakeTicketRepo) Create(_ context.Context, nt domain.NewTicket) (int64, error) {
	f.nextID++
	now := time.Now()
	f.tickets[f.nextID] = domain.Ticket{
		ID:          f.nextID,
		Title:       nt.Title,
		Description: nt.Description,
		Priority:    nt.Priority,
		Status:      domain.TicketStatusOpen,
		Category:    domain.NamedRef{ID: nt.CategoryID},
		Department:  domain.NamedRef{ID: nt.DepartmentID},
		CreatedBy:   domain.UserRef{ID: nt.CreatedBy},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return f.nextID, nil
}

func (f *fakeTicketRepo) Update(_ context.Context, id int64, p domain.TicketPatch) error {
	t, ok := f.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	f.updates++
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description.Set {
		t.Description = p.Description.Value
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.CategoryID != nil {
		t.Category = domain.NamedRef{ID: *p.CategoryID}
	}
	if p.DepartmentID != nil {
		t.Department = domain.NamedRef{ID: *p.DepartmentID}
	}
	if p.AssignedTo.Set {
		if p.AssignedTo.Value == nil {
			t.AssignedTo = nil
		} else {
			t.AssignedTo = &domain.UserRef{ID: *p.AssignedTo.Value}
		}
	}
	t.UpdatedAt = time.Now()
	f.tickets[id] = t
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (f *fakeTicketRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	f.locked = append(f.locked, id)
	return f.GetByID(ctx, id)
}

func (f *fakeTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.lastFilter = filter
	var out []domain.Ticket
	for _, t := range f.tickets {
		if filter.DepartmentID != nil && t.Department.ID != *filter.DepartmentID {
			continue
		}
		if filter.ParticipantID != nil {
			assignee := t.AssigneeID()
			if t.CreatedBy.ID != *filter.ParticipantID && (assignee == nil || *assignee != *filter.ParticipantID) {
				continue
			}
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type fakeHistoryRepo struct {
	entries []domain.TicketHistoryEntry
}

func (f *fakeHistoryRepo) Create(_ context.Context, e *domain.TicketHistoryEntry) error {
	e.ID = int64(len(f.entries) + 1)
	e.CreatedAt = time.Now()
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketHistoryEntry, error) {
	out := []domain.TicketHistoryEntry{}
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].TicketID == ticketID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

type fakeCategoryRepo map[int64]domain.Category

func (f fakeCategoryRepo) GetByID(_ context.Context, id int64) (*domain.Category, error) {
	c, ok := f[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (f fakeCategoryRepo) ListActive(_ context.Context) ([]domain.Category, error) {
	var out []domain.Category
	for _, c := range f {
		if c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeUserRepo struct {
	users       map[int64]domain.User
	roles       map[int64]domain.RoleName
	nextID      int64
	adminLocks  int
	lockedUsers []int64
	updates     int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  map[int64]domain.User{},
		roles:  map[int64]domain.RoleName{1: domain.RoleAdmin, 2: domain.RoleManager, 3: domain.RoleWorker},
		nextID: 50,
	}
}

func (f *fakeUserRepo) put(u domain.User) {
	for id, name := range f.roles {
		if name == u.Role {
			u.RoleID = id
		}
	}
	f.users[u.ID] = u
}

func (f *fakeUserRepo) emailTaken(email string, excludeID int64) bool {
	for id, u := range f.users {
		if id != excludeID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (f *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	if f.emailTaken(u.Email, 0) {
		return repository.ErrDuplicateEmail
	}
	f.nextID++
	u.ID = f.nextID
	u.IsActive = true
	u.Role = f.roles[u.RoleID]
	f.users[u.ID] = *u
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, id int64, p domain.UserPatch) error {
	u, ok := f.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if p.Email != nil {
		if f.emailTaken(*p.Email, id) {
			return repository.ErrDuplicateEmail
		}
		u.Email = *p.Email
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.RoleID != nil {
		u.RoleID = *p.RoleID
		u.Role = f.roles[*p.RoleID]
	}
	if p.DepartmentID.Set {
		u.DepartmentID = p.DepartmentID.Value
	}
	f.updates++
	f.users[id] = u
	return nil
}

func (f *fakeUserRepo) SetActive(_ context.Context, id int64, active bool) error {
	u, ok := f.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.IsActive = active
	f.users[id] = u
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (f *fakeUserRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	f.lockedUsers = append(f.lockedUsers, id)
	return f.GetByID(ctx, id)
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) ExistsByEmail(_ context.Context, email string, excludeID int64) (bool, error) {
	return f.emailTaken(email, excludeID), nil
}

func (f *fakeUserRepo) List(_ context.Context, departmentID *int64) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.users {
		if departmentID != nil && (u.DepartmentID == nil || *u.DepartmentID != *departmentID) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUserRepo) LockActiveAdmins(_ context.Context) (int, error) {
	f.adminLocks++
	count := 0
	for _, u := range f.users {
		if u.Role == domain.RoleAdmin && u.IsActive {
			count++
		}
	}
	return count, nil
}

type fakeReferenceRepo struct {
	roles       []domain.Role
	departments []domain.Department
	calls       int
}

func newFakeReferenceRepo() *fakeReferenceRepo {
	return &fakeReferenceRepo{
		roles: []domain.Role{
			{ID: 1, Name: domain.RoleAdmin},
			{ID: 2, Name: domain.RoleManager},
			{ID: 3, Name: domain.RoleWorker},
		},
		departments: []domain.Department{
			{ID: 3, Name: "IT"},
			{ID: 4, Name: "Facilities"},
		},
	}
}

func (f *fakeReferenceRepo) ListRoles(_ context.Context) ([]domain.Role, error) {
	f.calls++
	return append([]domain.Role(nil), f.roles...), nil
}

func (f *fakeReferenceRepo) ListDepartments(_ context.Context) ([]domain.Department, error) {
	return append([]domain.Department(nil), f.departments...), nil
}

type eventRecorder struct {
	events []events.Event
}

func (r *eventRecorder) attach(d events.Dispatcher, types ...events.EventType) {
	for _, t := range types {
		d.Subscribe(t, func(_ context.Context, e events.Event) error {
			r.events = append(r.events, e)
			return nil
		})
	}
}
