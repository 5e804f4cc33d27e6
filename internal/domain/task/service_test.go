package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/notification"
	"github.com/ahmedelhadi17776/worklog/internal/domain/project"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRepository struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*Task
}

func newMockRepository() *mockRepository {
	return &mockRepository{tasks: make(map[uuid.UUID]*Task)}
}

func (m *mockRepository) Create(ctx context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *mockRepository) FindByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockRepository) FindAll(ctx context.Context, filter TaskFilter) ([]Task, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inProjects := make(map[uuid.UUID]bool)
	for _, id := range filter.ProjectIDs {
		inProjects[id] = true
	}
	var out []Task
	for _, t := range m.tasks {
		if filter.VisibleTo != nil {
			mine := t.CreatedBy == *filter.VisibleTo ||
				(t.AssignedTo != nil && *t.AssignedTo == *filter.VisibleTo) ||
				(t.ProjectID != nil && inProjects[*t.ProjectID])
			if !mine {
				continue
			}
		}
		if filter.PersonalOnly && t.ProjectID != nil {
			continue
		}
		if filter.ProjectID != nil && (t.ProjectID == nil || *t.ProjectID != *filter.ProjectID) {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, *t)
	}
	return out, int64(len(out)), nil
}

func (m *mockRepository) Update(ctx context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return ErrTaskNotFound
	}
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

type stubProjects map[uuid.UUID]project.Memberships

func (s stubProjects) Memberships(ctx context.Context, userID uuid.UUID) (project.Memberships, error) {
	if m, ok := s[userID]; ok {
		return m, nil
	}
	return project.Memberships{UserID: userID}, nil
}

type sentNotification struct {
	userID uuid.UUID
	kind   notification.Type
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) NotifyUser(ctx context.Context, userID uuid.UUID, t notification.Type, title, message string, referenceID *uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{userID: userID, kind: t})
}

func (r *recordingNotifier) NotifyUsers(ctx context.Context, userIDs []uuid.UUID, t notification.Type, title, message string, referenceID *uuid.UUID) {
	for _, id := range userIDs {
		r.NotifyUser(ctx, id, t, title, message, referenceID)
	}
}

func newCaller(role authz.Role) authz.Caller {
	return authz.Caller{ID: uuid.New(), Role: role, Status: authz.StatusActive}
}

func ptr[T any](v T) *T {
	return &v
}

type fixture struct {
	repo     *mockRepository
	projects stubProjects
	notifier *recordingNotifier
	svc      Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newMockRepository(),
		projects: stubProjects{},
		notifier: &recordingNotifier{},
	}
	f.svc = NewService(f.repo, f.projects, authz.NewEvaluator(), f.notifier, nil, zap.NewNop())
	return f
}

func (f *fixture) join(c authz.Caller, projectID uuid.UUID, manages bool) {
	m, ok := f.projects[c.ID]
	if !ok {
		m = project.Memberships{UserID: c.ID, Managed: map[uuid.UUID]bool{}, Joined: map[uuid.UUID]bool{}}
	}
	if manages {
		m.Managed[projectID] = true
	} else {
		m.Joined[projectID] = true
	}
	f.projects[c.ID] = m
}

func TestPersonalTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	employee := newCaller(authz.RoleEmployee)

	created, err := f.svc.CreateTask(ctx, employee, CreateTaskInput{Name: "Renew passport"})
	require.NoError(t, err)
	assert.True(t, created.IsPersonal())
	assert.Equal(t, TaskStatusToDo, created.Status)
	assert.Equal(t, TaskPriorityMedium, created.Priority)
	assert.Equal(t, employee.ID, created.CreatedBy)

	fetched, err := f.svc.GetTask(ctx, employee, created.ID)
	require.NoError(t, err)
	assert.Nil(t, fetched.ProjectID)

	personal, _, err := f.svc.ListTasks(ctx, employee, TaskFilter{PersonalOnly: true})
	require.NoError(t, err)
	require.Len(t, personal, 1)
	assert.Equal(t, created.ID, personal[0].ID)

	_, err = f.svc.GetTask(ctx, newCaller(authz.RoleEmployee), created.ID)
	assert.ErrorIs(t, err, authz.ErrForbidden)
}

func TestCreateTaskInProject(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.New()

	tests := []struct {
		name   string
		role   authz.Role
		member bool
		err    error
	}{
		{name: "member creates project task", role: authz.RoleEmployee, member: true},
		{name: "outsider cannot create project task", role: authz.RoleEmployee, err: authz.ErrForbidden},
		{name: "admin creates anywhere", role: authz.RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			c := newCaller(tt.role)
			if tt.member {
				f.join(c, projectID, false)
			}
			_, err := f.svc.CreateTask(ctx, c, CreateTaskInput{Name: "Draft schema", ProjectID: &projectID})
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCreateTaskValidation(t *testing.T) {
	f := newFixture()
	c := newCaller(authz.RoleEmployee)
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	before := start.Add(-time.Hour)

	tests := []struct {
		name  string
		input CreateTaskInput
	}{
		{name: "blank name", input: CreateTaskInput{Name: "   "}},
		{name: "bad status", input: CreateTaskInput{Name: "x", Status: ptr(TaskStatus("blocked"))}},
		{name: "bad priority", input: CreateTaskInput{Name: "x", Priority: ptr(TaskPriority("urgent"))}},
		{name: "end before start", input: CreateTaskInput{Name: "x", StartDate: &start, EndDate: &before}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateTask(context.Background(), c, tt.input)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestListTasksVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	admin := newCaller(authz.RoleAdmin)
	member := newCaller(authz.RoleEmployee)
	stranger := newCaller(authz.RoleEmployee)
	projectID := uuid.New()
	f.join(member, projectID, false)

	_, err := f.svc.CreateTask(ctx, admin, CreateTaskInput{Name: "Project task", ProjectID: &projectID})
	require.NoError(t, err)
	_, err = f.svc.CreateTask(ctx, admin, CreateTaskInput{Name: "Assigned", AssignedTo: &stranger.ID})
	require.NoError(t, err)
	_, err = f.svc.CreateTask(ctx, admin, CreateTaskInput{Name: "Admin personal"})
	require.NoError(t, err)

	all, _, err := f.svc.ListTasks(ctx, admin, TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	memberTasks, _, err := f.svc.ListTasks(ctx, member, TaskFilter{})
	require.NoError(t, err)
	require.Len(t, memberTasks, 1)
	assert.Equal(t, "Project task", memberTasks[0].Name)

	strangerTasks, _, err := f.svc.ListTasks(ctx, stranger, TaskFilter{})
	require.NoError(t, err)
	require.Len(t, strangerTasks, 1)
	assert.Equal(t, "Assigned", strangerTasks[0].Name)
}

func TestAssignmentAndStatusNotifications(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	creator := newCaller(authz.RoleEmployee)
	assignee := newCaller(authz.RoleEmployee)

	created, err := f.svc.CreateTask(ctx, creator, CreateTaskInput{Name: "Write docs"})
	require.NoError(t, err)
	assert.Empty(t, f.notifier.sent)

	_, err = f.svc.AssignTask(ctx, creator, created.ID, assignee.ID)
	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, sentNotification{userID: assignee.ID, kind: notification.TypeTaskAssignment}, f.notifier.sent[0])

	// the creator changing their own task's status notifies nobody
	_, err = f.svc.UpdateTaskStatus(ctx, creator, created.ID, TaskStatusInProgress)
	require.NoError(t, err)
	assert.Len(t, f.notifier.sent, 1)

	_, err = f.svc.UpdateTaskStatus(ctx, assignee, created.ID, TaskStatusCompleted)
	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, sentNotification{userID: creator.ID, kind: notification.TypeStatusChange}, f.notifier.sent[1])
}

func TestUpdateTaskPermissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	admin := newCaller(authz.RoleAdmin)
	manager := newCaller(authz.RoleProjectManager)
	member := newCaller(authz.RoleEmployee)
	projectID := uuid.New()
	f.join(manager, projectID, true)
	f.join(member, projectID, false)

	created, err := f.svc.CreateTask(ctx, admin, CreateTaskInput{Name: "Deploy", ProjectID: &projectID})
	require.NoError(t, err)

	_, err = f.svc.UpdateTask(ctx, member, created.ID, UpdateTaskInput{Name: ptr("Deploy v2")})
	assert.ErrorIs(t, err, authz.ErrForbidden, "plain members only read project tasks")

	updated, err := f.svc.UpdateTask(ctx, manager, created.ID, UpdateTaskInput{Name: ptr("Deploy v2"), Unassign: true})
	require.NoError(t, err)
	assert.Equal(t, "Deploy v2", updated.Name)

	personal, err := f.svc.UpdateTask(ctx, admin, created.ID, UpdateTaskInput{MakePersonal: true})
	require.NoError(t, err)
	assert.Nil(t, personal.ProjectID)

	// the manager lost access once the task left the project
	_, err = f.svc.GetTask(ctx, manager, created.ID)
	assert.ErrorIs(t, err, authz.ErrForbidden)
}

func TestDeleteTaskIsAdminOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	creator := newCaller(authz.RoleEmployee)

	created, err := f.svc.CreateTask(ctx, creator, CreateTaskInput{Name: "Temp"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteTask(ctx, creator, created.ID), authz.ErrForbidden)
	assert.NoError(t, f.svc.DeleteTask(ctx, newCaller(authz.RoleAdmin), created.ID))
	assert.ErrorIs(t, f.svc.DeleteTask(ctx, newCaller(authz.RoleAdmin), created.ID), ErrTaskNotFound)
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	tests := []struct {
		name     string
		task     Task
		expected bool
	}{
		{name: "past due in progress", task: Task{Status: TaskStatusInProgress, EndDate: &yesterday}, expected: true},
		{name: "past due completed", task: Task{Status: TaskStatusCompleted, EndDate: &yesterday}, expected: false},
		{name: "due tomorrow", task: Task{Status: TaskStatusToDo, EndDate: &tomorrow}, expected: false},
		{name: "no end date", task: Task{Status: TaskStatusOnHold}, expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.task.IsOverdue(now))
		})
	}
}
