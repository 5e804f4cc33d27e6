package timelog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/notification"
	"github.com/ahmedelhadi17776/worklog/internal/domain/profile"
	"github.com/ahmedelhadi17776/worklog/internal/domain/project"
	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockRepository enforces the one-running-log-per-user rule the way the partial unique index does
type mockRepository struct {
	mu   sync.Mutex
	logs map[uuid.UUID]*TimeLog
}

func newMockRepository() *mockRepository {
	return &mockRepository{logs: make(map[uuid.UUID]*TimeLog)}
}

func (m *mockRepository) Create(ctx context.Context, l *TimeLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := l.Validate(); err != nil {
		return err
	}
	if l.IsRunning() {
		for _, existing := range m.logs {
			if existing.UserID == l.UserID && existing.IsRunning() {
				return ErrTimerAlreadyRunning
			}
		}
	}
	l.DurationMinutes = ComputeDurationMinutes(l.StartTime, l.EndTime)
	cp := *l
	m.logs[l.ID] = &cp
	return nil
}

func (m *mockRepository) FindByID(ctx context.Context, id uuid.UUID) (*TimeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.logs[id]
	if !ok {
		return nil, ErrTimeLogNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *mockRepository) FindActive(ctx context.Context, userID uuid.UUID) (*TimeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.logs {
		if l.UserID == userID && l.IsRunning() {
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrNoActiveTimer
}

func (m *mockRepository) FindAll(ctx context.Context, filter Filter) ([]TimeLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	managed := make(map[uuid.UUID]bool)
	for _, id := range filter.ManagedProjectIDs {
		managed[id] = true
	}
	var out []TimeLog
	for _, l := range m.logs {
		if filter.VisibleTo != nil && l.UserID != *filter.VisibleTo && (l.ProjectID == nil || !managed[*l.ProjectID]) {
			continue
		}
		if filter.ApprovalStatus != nil && l.ApprovalStatus != *filter.ApprovalStatus {
			continue
		}
		out = append(out, *l)
	}
	return out, int64(len(out)), nil
}

func (m *mockRepository) Update(ctx context.Context, l *TimeLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.logs[l.ID]; !ok {
		return ErrTimeLogNotFound
	}
	l.DurationMinutes = ComputeDurationMinutes(l.StartTime, l.EndTime)
	cp := *l
	m.logs[l.ID] = &cp
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.logs[id]; !ok {
		return ErrTimeLogNotFound
	}
	delete(m.logs, id)
	return nil
}

func (m *mockRepository) running(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.logs {
		if l.UserID == userID && l.IsRunning() {
			n++
		}
	}
	return n
}

type stubTasks map[uuid.UUID]*task.Task

func (s stubTasks) GetTask(ctx context.Context, caller authz.Caller, id uuid.UUID) (*task.Task, error) {
	t, ok := s[id]
	if !ok {
		return nil, task.ErrTaskNotFound
	}
	return t, nil
}

type stubProjects map[uuid.UUID]project.Memberships

func (s stubProjects) Memberships(ctx context.Context, userID uuid.UUID) (project.Memberships, error) {
	if m, ok := s[userID]; ok {
		return m, nil
	}
	return project.Memberships{UserID: userID}, nil
}

type stubAdmins []profile.Profile

func (s stubAdmins) ListActiveAdmins(ctx context.Context) ([]profile.Profile, error) {
	return s, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	kinds map[uuid.UUID][]notification.Type
}

func (r *recordingNotifier) NotifyUser(ctx context.Context, userID uuid.UUID, t notification.Type, title, message string, referenceID *uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[userID] = append(r.kinds[userID], t)
}

func (r *recordingNotifier) NotifyUsers(ctx context.Context, userIDs []uuid.UUID, t notification.Type, title, message string, referenceID *uuid.UUID) {
	for _, id := range userIDs {
		r.NotifyUser(ctx, id, t, title, message, referenceID)
	}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	repo     *mockRepository
	tasks    stubTasks
	projects stubProjects
	notifier *recordingNotifier
	clock    *clock
	admin    authz.Caller
	svc      Service
}

func newCaller(role authz.Role) authz.Caller {
	return authz.Caller{ID: uuid.New(), Email: string(role) + "@example.com", Role: role, Status: authz.StatusActive}
}

func newFixture() *fixture {
	admin := newCaller(authz.RoleAdmin)
	f := &fixture{
		repo:     newMockRepository(),
		tasks:    stubTasks{},
		projects: stubProjects{},
		notifier: &recordingNotifier{kinds: make(map[uuid.UUID][]notification.Type)},
		clock:    &clock{now: time.Date(2026, 4, 14, 9, 0, 0, 0, time.UTC)},
		admin:    admin,
	}
	f.svc = NewService(Dependencies{
		Repository: f.repo,
		Tasks:      f.tasks,
		Projects:   f.projects,
		Admins:     stubAdmins{{ID: admin.ID, Role: authz.RoleAdmin, Status: authz.StatusActive}},
		Policy:     authz.NewEvaluator(),
		Notifier:   f.notifier,
		Logger:     zap.NewNop(),
		Now:        f.clock.Now,
	})
	return f
}

func (f *fixture) addTask(projectID *uuid.UUID) *task.Task {
	t := &task.Task{ID: uuid.New(), Name: "Website redesign", ProjectID: projectID, Status: task.TaskStatusInProgress}
	f.tasks[t.ID] = t
	return t
}

func TestComputeDurationMinutes(t *testing.T) {
	base := time.Date(2026, 4, 14, 9, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := base.Add(d)
		return &v
	}

	tests := []struct {
		name     string
		start    time.Time
		end      *time.Time
		expected *int
	}{
		{name: "running", start: base, end: nil, expected: nil},
		{name: "ninety seconds truncates to one", start: base, end: at(90 * time.Second), expected: intPtr(1)},
		{name: "exact hour", start: base, end: at(time.Hour), expected: intPtr(60)},
		{name: "fifty nine seconds", start: base, end: at(59 * time.Second), expected: intPtr(0)},
		{name: "sub-second parts ignored", start: base.Add(900 * time.Millisecond), end: at(60*time.Second + 100*time.Millisecond), expected: intPtr(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ComputeDurationMinutes(tt.start, tt.end))
		})
	}
}

func intPtr(v int) *int {
	return &v
}

func TestStartStopTimer(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	employee := newCaller(authz.RoleEmployee)
	projectID := uuid.New()
	tk := f.addTask(&projectID)

	started, err := f.svc.Start(ctx, employee, tk.ID)
	require.NoError(t, err)
	assert.True(t, started.IsRunning())
	assert.Nil(t, started.DurationMinutes)
	assert.Equal(t, SourceTimer, started.Source)
	assert.Equal(t, ApprovalPending, started.ApprovalStatus)
	assert.Equal(t, &projectID, started.ProjectID)

	_, err = f.svc.Start(ctx, employee, tk.ID)
	assert.ErrorIs(t, err, ErrTimerAlreadyRunning)

	f.clock.Advance(90 * time.Second)
	active, err := f.svc.Active(ctx, employee)
	require.NoError(t, err)
	assert.Equal(t, int64(90), active.ElapsedSeconds)
	assert.Equal(t, "00:01:30", active.Elapsed)

	stopped, err := f.svc.Stop(ctx, employee)
	require.NoError(t, err)
	require.NotNil(t, stopped.EndTime)
	assert.Equal(t, 1, stopped.Minutes())

	_, err = f.svc.Stop(ctx, employee)
	assert.ErrorIs(t, err, ErrNoActiveTimer)

	_, err = f.svc.Active(ctx, employee)
	assert.ErrorIs(t, err, ErrNoActiveTimer)
}

func TestStartOnPersonalTask(t *testing.T) {
	f := newFixture()
	employee := newCaller(authz.RoleEmployee)
	tk := f.addTask(nil)

	log, err := f.svc.Start(context.Background(), employee, tk.ID)
	require.NoError(t, err)
	assert.Nil(t, log.ProjectID)
}

func TestStartUnknownTask(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Start(context.Background(), newCaller(authz.RoleEmployee), uuid.New())
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
}

func TestConcurrentStartsLeaveOneRunningLog(t *testing.T) {
	f := newFixture()
	employee := newCaller(authz.RoleEmployee)
	tk := f.addTask(nil)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Start(context.Background(), employee, tk.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrTimerAlreadyRunning)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.repo.running(employee.ID))
}

func TestManualEntryIsAlwaysPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tk := f.addTask(nil)
	start := time.Date(2026, 4, 13, 9, 0, 0, 0, time.UTC)
	approved := ApprovalApproved

	for _, role := range []authz.Role{authz.RoleEmployee, authz.RoleAdmin} {
		t.Run(string(role), func(t *testing.T) {
			c := newCaller(role)
			log, err := f.svc.ManualEntry(ctx, c, ManualEntryInput{
				TaskID:         tk.ID,
				StartTime:      start,
				EndTime:        start.Add(90 * time.Minute),
				ApprovalStatus: &approved,
			})
			require.NoError(t, err)
			assert.Equal(t, ApprovalPending, log.ApprovalStatus)
			assert.Equal(t, SourceManual, log.Source)
			assert.Equal(t, 90, log.Minutes())
			assert.Equal(t, time.Date(2026, 4, 13, 0, 0, 0, 0, time.UTC), log.Day())
		})
	}

	assert.Contains(t, f.notifier.kinds[f.admin.ID], notification.TypeApprovalRequest)
}

func TestManualEntryRunsAlongsideTimer(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	employee := newCaller(authz.RoleEmployee)
	tk := f.addTask(nil)

	_, err := f.svc.Start(ctx, employee, tk.ID)
	require.NoError(t, err)

	start := f.clock.Now().Add(-3 * time.Hour)
	_, err = f.svc.ManualEntry(ctx, employee, ManualEntryInput{TaskID: tk.ID, StartTime: start, EndTime: start.Add(time.Hour)})
	assert.NoError(t, err)
}

func TestManualEntryRejectsEmptyInterval(t *testing.T) {
	f := newFixture()
	tk := f.addTask(nil)
	start := time.Date(2026, 4, 13, 9, 0, 0, 0, time.UTC)

	_, err := f.svc.ManualEntry(context.Background(), newCaller(authz.RoleEmployee), ManualEntryInput{
		TaskID:    tk.ID,
		StartTime: start,
		EndTime:   start,
	})
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestApprovalWorkflow(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	employee := newCaller(authz.RoleEmployee)
	manager := newCaller(authz.RoleProjectManager)
	tk := f.addTask(nil)
	start := time.Date(2026, 4, 13, 9, 0, 0, 0, time.UTC)

	entry := func() *TimeLog {
		log, err := f.svc.ManualEntry(ctx, employee, ManualEntryInput{TaskID: tk.ID, StartTime: start, EndTime: start.Add(time.Hour)})
		require.NoError(t, err)
		return log
	}

	t.Run("owner cannot approve", func(t *testing.T) {
		_, err := f.svc.Approve(ctx, employee, entry().ID)
		assert.ErrorIs(t, err, authz.ErrForbidden)
	})

	t.Run("manager cannot approve", func(t *testing.T) {
		_, err := f.svc.Approve(ctx, manager, entry().ID)
		assert.ErrorIs(t, err, authz.ErrForbidden)
	})

	t.Run("admin approves once", func(t *testing.T) {
		log := entry()
		approved, err := f.svc.Approve(ctx, f.admin, log.ID)
		require.NoError(t, err)
		assert.Equal(t, ApprovalApproved, approved.ApprovalStatus)
		assert.Equal(t, &f.admin.ID, approved.ReviewedBy)
		assert.NotNil(t, approved.ReviewedAt)

		_, err = f.svc.Reject(ctx, f.admin, log.ID)
		assert.ErrorIs(t, err, ErrInvalidApprovalTransition)
		assert.Contains(t, f.notifier.kinds[employee.ID], notification.TypeStatusChange)
	})

	t.Run("admin rejects", func(t *testing.T) {
		rejected, err := f.svc.Reject(ctx, f.admin, entry().ID)
		require.NoError(t, err)
		assert.Equal(t, ApprovalRejected, rejected.ApprovalStatus)
	})

	t.Run("running log cannot be reviewed", func(t *testing.T) {
		running, err := f.svc.Start(ctx, employee, tk.ID)
		require.NoError(t, err)
		_, err = f.svc.Approve(ctx, f.admin, running.ID)
		assert.ErrorIs(t, err, ErrInvalidApprovalTransition)
	})
}

func TestDeleteRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	employee := newCaller(authz.RoleEmployee)
	tk := f.addTask(nil)
	start := time.Date(2026, 4, 13, 9, 0, 0, 0, time.UTC)

	newEntry := func() *TimeLog {
		log, err := f.svc.ManualEntry(ctx, employee, ManualEntryInput{TaskID: tk.ID, StartTime: start, EndTime: start.Add(time.Hour)})
		require.NoError(t, err)
		return log
	}

	pending := newEntry()
	assert.ErrorIs(t, f.svc.Delete(ctx, newCaller(authz.RoleEmployee), pending.ID), authz.ErrForbidden)
	assert.NoError(t, f.svc.Delete(ctx, employee, pending.ID))

	approved := newEntry()
	_, err := f.svc.Approve(ctx, f.admin, approved.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Delete(ctx, employee, approved.ID), authz.ErrForbidden)
	assert.NoError(t, f.svc.Delete(ctx, f.admin, approved.ID))
}

func TestUpdateRecomputesDuration(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	employee := newCaller(authz.RoleEmployee)
	tk := f.addTask(nil)
	start := time.Date(2026, 4, 13, 9, 0, 0, 0, time.UTC)

	log, err := f.svc.ManualEntry(ctx, employee, ManualEntryInput{TaskID: tk.ID, StartTime: start, EndTime: start.Add(time.Hour)})
	require.NoError(t, err)

	newEnd := start.Add(2*time.Hour + 45*time.Second)
	updated, err := f.svc.Update(ctx, employee, log.ID, UpdateInput{EndTime: &newEnd})
	require.NoError(t, err)
	assert.Equal(t, 120, updated.Minutes())

	before := start.Add(-time.Minute)
	_, err = f.svc.Update(ctx, employee, log.ID, UpdateInput{EndTime: &before})
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestListScopesToOwnAndManagedProjects(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	employee := newCaller(authz.RoleEmployee)
	manager := newCaller(authz.RoleProjectManager)
	projectID := uuid.New()
	f.projects[manager.ID] = project.Memberships{
		UserID:  manager.ID,
		Managed: map[uuid.UUID]bool{projectID: true},
		Joined:  map[uuid.UUID]bool{},
	}
	start := time.Date(2026, 4, 13, 9, 0, 0, 0, time.UTC)

	projectTask := f.addTask(&projectID)
	personalTask := f.addTask(nil)
	for _, tk := range []*task.Task{projectTask, personalTask} {
		_, err := f.svc.ManualEntry(ctx, employee, ManualEntryInput{TaskID: tk.ID, StartTime: start, EndTime: start.Add(time.Hour)})
		require.NoError(t, err)
	}

	own, _, err := f.svc.List(ctx, employee, Filter{})
	require.NoError(t, err)
	assert.Len(t, own, 2)

	managed, _, err := f.svc.List(ctx, manager, Filter{})
	require.NoError(t, err)
	require.Len(t, managed, 1)
	assert.Equal(t, projectTask.ID, managed[0].TaskID)

	all, _, err := f.svc.List(ctx, f.admin, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
