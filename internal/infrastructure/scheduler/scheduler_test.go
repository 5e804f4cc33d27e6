package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/notification"
	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/ahmedelhadi17776/worklog/pkg/config"
	"github.com/ahmedelhadi17776/worklog/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type windowTasks struct {
	tasks  []task.Task
	caller authz.Caller
}

func (w *windowTasks) ListTasks(ctx context.Context, caller authz.Caller, f task.TaskFilter) ([]task.Task, int64, error) {
	w.caller = caller
	var out []task.Task
	for _, t := range w.tasks {
		if t.EndDate == nil || t.EndDate.Before(*f.DueAfter) || !t.EndDate.Before(*f.DueBefore) {
			continue
		}
		if f.ExcludeStatus != nil && t.Status == *f.ExcludeStatus {
			continue
		}
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

type sentReminder struct {
	userID uuid.UUID
	taskID uuid.UUID
	at     time.Time
}

// reminderBook records reminders and answers ExistsForReference from them
type reminderBook struct {
	mu   sync.Mutex
	now  func() time.Time
	sent []sentReminder
}

func (b *reminderBook) NotifyUser(ctx context.Context, userID uuid.UUID, t notification.Type, title, message string, referenceID *uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sentReminder{userID: userID, taskID: *referenceID, at: b.now()})
}

func (b *reminderBook) NotifyUsers(ctx context.Context, userIDs []uuid.UUID, t notification.Type, title, message string, referenceID *uuid.UUID) {
	for _, id := range userIDs {
		b.NotifyUser(ctx, id, t, title, message, referenceID)
	}
}

func (b *reminderBook) ExistsForReference(ctx context.Context, userID uuid.UUID, t notification.Type, referenceID uuid.UUID, since time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.sent {
		if r.userID == userID && r.taskID == referenceID && !r.at.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func TestSendDeadlineReminders(t *testing.T) {
	clock := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	at := func(d time.Duration) *time.Time {
		t := clock.Add(d)
		return &t
	}

	creator := uuid.New()
	assignee := uuid.New()
	assigned := task.Task{ID: uuid.New(), Name: "assigned", CreatedBy: creator, AssignedTo: &assignee, Status: task.TaskStatusInProgress, EndDate: at(3 * time.Hour)}
	unassigned := task.Task{ID: uuid.New(), Name: "unassigned", CreatedBy: creator, Status: task.TaskStatusToDo, EndDate: at(20 * time.Hour)}
	tasks := &windowTasks{tasks: []task.Task{
		assigned,
		unassigned,
		{ID: uuid.New(), Name: "done", CreatedBy: creator, Status: task.TaskStatusCompleted, EndDate: at(time.Hour)},
		{ID: uuid.New(), Name: "far", CreatedBy: creator, Status: task.TaskStatusToDo, EndDate: at(72 * time.Hour)},
		{ID: uuid.New(), Name: "past", CreatedBy: creator, Status: task.TaskStatusToDo, EndDate: at(-time.Hour)},
	}}
	book := &reminderBook{now: now}

	s := NewScheduler(tasks, book, book, nil, config.SchedulerConfig{DeadlineWindow: 24 * time.Hour}, logger.NewNop())
	s.now = now

	sent, err := s.SendDeadlineReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.True(t, tasks.caller.IsSystem())
	assert.Equal(t, assignee, book.sent[0].userID)
	assert.Equal(t, creator, book.sent[1].userID)

	// same day: no duplicates
	clock = clock.Add(2 * time.Hour)
	sent, err = s.SendDeadlineReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	// next day the unassigned task is still due within the window
	clock = time.Date(2026, 9, 2, 0, 30, 0, 0, time.UTC)
	sent, err = s.SendDeadlineReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, unassigned.ID, book.sent[2].taskID)
}

type countingCleaner struct {
	mu    sync.Mutex
	calls int
}

func (c *countingCleaner) CleanupExpiredSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 0
}

func TestStartRunsJobsUntilStopped(t *testing.T) {
	book := &reminderBook{now: time.Now}
	cleaner := &countingCleaner{}
	s := NewScheduler(&windowTasks{}, book, book, cleaner, config.SchedulerConfig{
		DeadlineCheckInterval: time.Hour,
		DeadlineWindow:        time.Hour,
		SessionCleanup:        10 * time.Millisecond,
	}, logger.NewNop())

	s.Start(context.Background())
	assert.Eventually(t, func() bool {
		cleaner.mu.Lock()
		defer cleaner.mu.Unlock()
		return cleaner.calls >= 2
	}, time.Second, 5*time.Millisecond)
	s.Stop()
}
