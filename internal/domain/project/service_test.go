package project

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRepository struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*Project
	members  []ProjectMember
}

func newMockRepository() *mockRepository {
	return &mockRepository{projects: make(map[uuid.UUID]*Project)}
}

func (m *mockRepository) Create(ctx context.Context, p *Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Status == "" {
		p.Status = ProjectStatusPlanned
	}
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *mockRepository) FindByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepository) FindAll(ctx context.Context, filter ProjectFilter) ([]Project, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := make(map[uuid.UUID]bool)
	for _, id := range filter.ProjectIDs {
		allowed[id] = true
	}
	var out []Project
	for _, p := range m.projects {
		if filter.Scoped && !allowed[p.ID] {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (m *mockRepository) Update(ctx context.Context, p *Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; !ok {
		return ErrProjectNotFound
	}
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return ErrProjectNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *mockRepository) AddMember(ctx context.Context, member *ProjectMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.members {
		if existing.ProjectID == member.ProjectID && existing.UserID == member.UserID {
			return ErrAlreadyMember
		}
	}
	m.members = append(m.members, *member)
	return nil
}

func (m *mockRepository) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.members {
		if existing.ProjectID == projectID && existing.UserID == userID {
			m.members = append(m.members[:i], m.members[i+1:]...)
			return nil
		}
	}
	return ErrMemberNotFound
}

func (m *mockRepository) ListMembers(ctx context.Context, projectID uuid.UUID) ([]ProjectMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ProjectMember
	for _, member := range m.members {
		if member.ProjectID == projectID {
			out = append(out, member)
		}
	}
	return out, nil
}

func (m *mockRepository) CountTasks(ctx context.Context, projectID uuid.UUID) (int64, error) {
	return 0, nil
}

func (m *mockRepository) Memberships(ctx context.Context, userID uuid.UUID) (Memberships, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms := Memberships{UserID: userID, Managed: map[uuid.UUID]bool{}, Joined: map[uuid.UUID]bool{}}
	for _, p := range m.projects {
		if p.ManagerID != nil && *p.ManagerID == userID {
			ms.Managed[p.ID] = true
		}
	}
	for _, member := range m.members {
		if member.UserID == userID {
			ms.Joined[member.ProjectID] = true
		}
	}
	return ms, nil
}

func newCaller(role authz.Role) authz.Caller {
	return authz.Caller{ID: uuid.New(), Role: role, Status: authz.StatusActive}
}

func newTestService(repo Repository) Service {
	return NewService(repo, authz.NewEvaluator(), nil, zap.NewNop())
}

func TestCreateProjectWithNullOptionalFieldsRoundTrips(t *testing.T) {
	svc := newTestService(newMockRepository())
	admin := newCaller(authz.RoleAdmin)
	ctx := context.Background()

	created, err := svc.CreateProject(ctx, admin, CreateProjectInput{Name: "Bare"})
	require.NoError(t, err)

	fetched, err := svc.GetProject(ctx, admin, created.ID)
	require.NoError(t, err)
	assert.Nil(t, fetched.Description)
	assert.Nil(t, fetched.ManagerID)
	assert.Nil(t, fetched.StartDate)
	assert.Nil(t, fetched.EndDate)
	assert.Equal(t, ProjectStatusPlanned, fetched.Status)
	assert.Equal(t, admin.ID, fetched.CreatedBy)
}

func TestCreateProject(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	before := start.AddDate(0, 0, -1)
	bad := ProjectStatus("archived")

	tests := []struct {
		name   string
		caller authz.Caller
		input  CreateProjectInput
		err    error
	}{
		{"admin creates", newCaller(authz.RoleAdmin), CreateProjectInput{Name: "Apollo"}, nil},
		{"manager cannot create", newCaller(authz.RoleProjectManager), CreateProjectInput{Name: "Apollo"}, authz.ErrForbidden},
		{"employee cannot create", newCaller(authz.RoleEmployee), CreateProjectInput{Name: "Apollo"}, authz.ErrForbidden},
		{"blank name", newCaller(authz.RoleAdmin), CreateProjectInput{Name: "  "}, ErrInvalidInput},
		{"invalid status", newCaller(authz.RoleAdmin), CreateProjectInput{Name: "Apollo", Status: &bad}, ErrInvalidInput},
		{"end before start", newCaller(authz.RoleAdmin), CreateProjectInput{Name: "Apollo", StartDate: &start, EndDate: &before}, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newMockRepository())
			_, err := svc.CreateProject(context.Background(), tt.caller, tt.input)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestManagerUpdatesOwnProjectOnly(t *testing.T) {
	svc := newTestService(newMockRepository())
	admin := newCaller(authz.RoleAdmin)
	manager := newCaller(authz.RoleProjectManager)
	ctx := context.Background()

	owned, err := svc.CreateProject(ctx, admin, CreateProjectInput{Name: "Owned", ManagerID: &manager.ID})
	require.NoError(t, err)
	other, err := svc.CreateProject(ctx, admin, CreateProjectInput{Name: "Other"})
	require.NoError(t, err)

	status := ProjectStatusInProgress
	updated, err := svc.UpdateProject(ctx, manager, owned.ID, UpdateProjectInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, ProjectStatusInProgress, updated.Status)

	_, err = svc.UpdateProject(ctx, manager, other.ID, UpdateProjectInput{Status: &status})
	assert.ErrorIs(t, err, authz.ErrForbidden)

	stranger := uuid.New()
	_, err = svc.UpdateProject(ctx, manager, owned.ID, UpdateProjectInput{ManagerID: &stranger})
	assert.ErrorIs(t, err, authz.ErrForbidden, "only admins reassign the manager")

	err = svc.DeleteProject(ctx, manager, owned.ID)
	assert.ErrorIs(t, err, authz.ErrForbidden)
	assert.NoError(t, svc.DeleteProject(ctx, admin, owned.ID))
}

func TestListProjectsIsScopedToMemberships(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	admin := newCaller(authz.RoleAdmin)
	employee := newCaller(authz.RoleEmployee)
	ctx := context.Background()

	joined, err := svc.CreateProject(ctx, admin, CreateProjectInput{Name: "Joined"})
	require.NoError(t, err)
	_, err = svc.CreateProject(ctx, admin, CreateProjectInput{Name: "Hidden"})
	require.NoError(t, err)

	_, err = svc.AddProjectMember(ctx, admin, joined.ID, employee.ID)
	require.NoError(t, err)

	projects, _, err := svc.ListProjects(ctx, employee, ProjectFilter{})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, joined.ID, projects[0].ID)

	all, _, err := svc.ListProjects(ctx, admin, ProjectFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	inactive := employee
	inactive.Status = authz.StatusInactive
	_, _, err = svc.ListProjects(ctx, inactive, ProjectFilter{})
	assert.ErrorIs(t, err, authz.ErrInactive)
}

func TestProjectMembers(t *testing.T) {
	svc := newTestService(newMockRepository())
	admin := newCaller(authz.RoleAdmin)
	manager := newCaller(authz.RoleProjectManager)
	employee := newCaller(authz.RoleEmployee)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, admin, CreateProjectInput{Name: "Team", ManagerID: &manager.ID})
	require.NoError(t, err)

	_, err = svc.AddProjectMember(ctx, manager, p.ID, employee.ID)
	assert.ErrorIs(t, err, authz.ErrForbidden, "membership is admin-managed")

	_, err = svc.AddProjectMember(ctx, admin, p.ID, employee.ID)
	require.NoError(t, err)
	_, err = svc.AddProjectMember(ctx, admin, p.ID, employee.ID)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	members, err := svc.ListProjectMembers(ctx, manager, p.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	details, err := svc.GetProjectDetails(ctx, employee, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), details.MembersCount)

	require.NoError(t, svc.RemoveProjectMember(ctx, admin, p.ID, employee.ID))
	_, err = svc.GetProject(ctx, employee, p.ID)
	assert.ErrorIs(t, err, authz.ErrForbidden)
	assert.ErrorIs(t, svc.RemoveProjectMember(ctx, admin, p.ID, employee.ID), ErrMemberNotFound)
}

func TestMembershipsScope(t *testing.T) {
	userID := uuid.New()
	managed := uuid.New()
	joined := uuid.New()
	m := Memberships{
		UserID:  userID,
		Managed: map[uuid.UUID]bool{managed: true},
		Joined:  map[uuid.UUID]bool{joined: true},
	}

	s := m.Scope(authz.Subject{ProjectID: &managed})
	require.NotNil(t, s.ManagerID)
	assert.Equal(t, userID, *s.ManagerID)
	assert.False(t, s.Member)

	s = m.Scope(authz.Subject{ProjectID: &joined})
	assert.Nil(t, s.ManagerID)
	assert.True(t, s.Member)

	// personal rows carry no project context
	s = m.Scope(authz.Subject{})
	assert.Nil(t, s.ProjectID)
	assert.False(t, s.Member)

	assert.ElementsMatch(t, []uuid.UUID{managed, joined}, m.ProjectIDs())
}
