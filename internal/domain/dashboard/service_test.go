package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/ahmedelhadi17776/worklog/internal/domain/timelog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubTasks []task.Task

func (s stubTasks) ListTasks(ctx context.Context, caller authz.Caller, filter task.TaskFilter) ([]task.Task, int64, error) {
	return s, int64(len(s)), nil
}

type stubTimeLogs struct {
	logs   []timelog.TimeLog
	active *timelog.ActiveTimer
}

func (s stubTimeLogs) List(ctx context.Context, caller authz.Caller, filter timelog.Filter) ([]timelog.TimeLog, int64, error) {
	var out []timelog.TimeLog
	for _, l := range s.logs {
		if filter.ApprovalStatus != nil && l.ApprovalStatus != *filter.ApprovalStatus {
			continue
		}
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

func (s stubTimeLogs) Active(ctx context.Context, caller authz.Caller) (*timelog.ActiveTimer, error) {
	if s.active == nil {
		return nil, timelog.ErrNoActiveTimer
	}
	return s.active, nil
}

type stubUnread int

func (s stubUnread) CountUnread(ctx context.Context, caller authz.Caller) (int, error) {
	return int(s), nil
}

var now = time.Date(2026, 6, 3, 15, 0, 0, 0, time.UTC)

func at(t time.Time) *time.Time {
	return &t
}

func logOn(userID uuid.UUID, start time.Time, minutes int, status timelog.ApprovalStatus) timelog.TimeLog {
	end := start.Add(time.Duration(minutes) * time.Minute)
	return timelog.TimeLog{
		ID:              uuid.New(),
		UserID:          userID,
		TaskID:          uuid.New(),
		StartTime:       start,
		EndTime:         &end,
		DurationMinutes: timelog.ComputeDurationMinutes(start, &end),
		Date:            timelog.DateOf(start),
		ApprovalStatus:  status,
	}
}

func TestCountOverdue(t *testing.T) {
	yesterday := now.AddDate(0, 0, -1)

	tests := []struct {
		name     string
		status   task.TaskStatus
		expected int
	}{
		{name: "in progress yesterday is overdue", status: task.TaskStatusInProgress, expected: 1},
		{name: "completed yesterday is not overdue", status: task.TaskStatusCompleted, expected: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := []task.Task{{ID: uuid.New(), Status: tt.status, EndDate: &yesterday}}
			assert.Equal(t, tt.expected, CountOverdue(tasks, now))
		})
	}
}

func TestCountByStatusIncludesEveryStatus(t *testing.T) {
	counts := CountByStatus([]task.Task{
		{Status: task.TaskStatusToDo},
		{Status: task.TaskStatusToDo},
		{Status: task.TaskStatusCompleted},
	})
	assert.Equal(t, map[task.TaskStatus]int{
		task.TaskStatusToDo:       2,
		task.TaskStatusInProgress: 0,
		task.TaskStatusCompleted:  1,
		task.TaskStatusOnHold:     0,
	}, counts)
}

func TestTodayMinutes(t *testing.T) {
	me := uuid.New()
	other := uuid.New()
	morning := time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC)
	running := timelog.TimeLog{UserID: me, StartTime: now, Date: timelog.DateOf(now), ApprovalStatus: timelog.ApprovalPending}

	logs := []timelog.TimeLog{
		logOn(me, morning, 45, timelog.ApprovalPending),
		logOn(me, morning.AddDate(0, 0, -1), 300, timelog.ApprovalApproved),
		logOn(other, morning, 30, timelog.ApprovalApproved),
		running,
	}

	assert.Equal(t, 45, TodayMinutes(logs, now, &me))
	assert.Equal(t, 75, TodayMinutes(logs, now, nil))
}

func TestUpcomingDeadlines(t *testing.T) {
	tasks := []task.Task{
		{Name: "later", Status: task.TaskStatusToDo, EndDate: at(now.Add(72 * time.Hour))},
		{Name: "soon", Status: task.TaskStatusInProgress, EndDate: at(now.Add(2 * time.Hour))},
		{Name: "done", Status: task.TaskStatusCompleted, EndDate: at(now.Add(time.Hour))},
		{Name: "past", Status: task.TaskStatusToDo, EndDate: at(now.Add(-time.Hour))},
		{Name: "undated", Status: task.TaskStatusToDo},
	}

	upcoming := UpcomingDeadlines(tasks, now, 5)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "soon", upcoming[0].Name)
	assert.Equal(t, "later", upcoming[1].Name)

	assert.Len(t, UpcomingDeadlines(tasks, now, 1), 1)
}

func TestGetSummary(t *testing.T) {
	employee := authz.Caller{ID: uuid.New(), Role: authz.RoleEmployee, Status: authz.StatusActive}
	admin := authz.Caller{ID: uuid.New(), Role: authz.RoleAdmin, Status: authz.StatusActive}
	yesterday := now.AddDate(0, 0, -1)
	morning := time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC)

	tasks := stubTasks{
		{ID: uuid.New(), Status: task.TaskStatusInProgress, EndDate: &yesterday},
		{ID: uuid.New(), Status: task.TaskStatusCompleted, EndDate: &yesterday},
		{ID: uuid.New(), Status: task.TaskStatusToDo},
	}
	logs := stubTimeLogs{
		logs: []timelog.TimeLog{
			logOn(employee.ID, morning, 60, timelog.ApprovalPending),
			logOn(uuid.New(), morning, 20, timelog.ApprovalApproved),
		},
		active: &timelog.ActiveTimer{ElapsedSeconds: 42},
	}

	svc := NewService(tasks, logs, stubUnread(3), nil, zap.NewNop()).(*service)
	svc.now = func() time.Time { return now }

	t.Run("employee", func(t *testing.T) {
		summary, err := svc.GetSummary(context.Background(), employee)
		require.NoError(t, err)
		assert.Equal(t, "own", summary.Scope)
		assert.Equal(t, 3, summary.TotalTasks)
		assert.Equal(t, 1, summary.Overdue)
		assert.Equal(t, 60, summary.TodayMinutes)
		assert.Nil(t, summary.PendingApprovals)
		assert.Equal(t, 3, summary.UnreadNotifications)
		require.NotNil(t, summary.ActiveTimer)
		assert.Equal(t, int64(42), summary.ActiveTimer.ElapsedSeconds)
	})

	t.Run("admin", func(t *testing.T) {
		summary, err := svc.GetSummary(context.Background(), admin)
		require.NoError(t, err)
		assert.Equal(t, "all", summary.Scope)
		assert.Equal(t, 80, summary.TodayMinutes)
		require.NotNil(t, summary.PendingApprovals)
		assert.Equal(t, 1, *summary.PendingApprovals)
	})

	t.Run("inactive", func(t *testing.T) {
		inactive := employee
		inactive.Status = authz.StatusInactive
		_, err := svc.GetSummary(context.Background(), inactive)
		assert.ErrorIs(t, err, authz.ErrInactive)
	})
}
