package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func due(name string, t time.Time) task.Task {
	return task.Task{ID: uuid.New(), Name: name, Status: task.TaskStatusToDo, EndDate: &t}
}

// filteringTasks applies the due-date window like the repository does
type filteringTasks struct {
	tasks []task.Task
	calls int
}

func (f *filteringTasks) ListTasks(ctx context.Context, caller authz.Caller, filter task.TaskFilter) ([]task.Task, int64, error) {
	f.calls++
	var out []task.Task
	for _, t := range f.tasks {
		if t.EndDate == nil {
			continue
		}
		if filter.DueAfter != nil && t.EndDate.Before(*filter.DueAfter) {
			continue
		}
		if filter.DueBefore != nil && !t.EndDate.Before(*filter.DueBefore) {
			continue
		}
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

func TestBucketByEndDate(t *testing.T) {
	tasks := []task.Task{
		due("late", time.Date(2026, 5, 4, 17, 0, 0, 0, time.UTC)),
		due("early", time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)),
		due("next", time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)),
		{ID: uuid.New(), Name: "undated", Status: task.TaskStatusToDo},
	}

	buckets := BucketByEndDate(tasks)
	require.Len(t, buckets, 2)
	assert.Len(t, buckets["2026-05-04"], 2)
	assert.Len(t, buckets["2026-05-05"], 1)

	days := Days(buckets)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-05-04", days[0].Date)
	assert.Equal(t, "early", days[0].Tasks[0].Name)
	assert.Equal(t, "late", days[0].Tasks[1].Name)
}

func TestBucketUsesUTCDay(t *testing.T) {
	tz := time.FixedZone("UTC+3", 3*3600)
	// 01:30 local on the 10th is 22:30 UTC on the 9th
	buckets := BucketByEndDate([]task.Task{due("edge", time.Date(2026, 7, 10, 1, 30, 0, 0, tz))})
	assert.Contains(t, buckets, "2026-07-09")
}

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month int
		start string
		end   string
		err   bool
	}{
		{name: "february leap year", year: 2028, month: 2, start: "2028-02-01", end: "2028-03-01"},
		{name: "december rolls over", year: 2026, month: 12, start: "2026-12-01", end: "2027-01-01"},
		{name: "month zero", year: 2026, month: 0, err: true},
		{name: "month thirteen", year: 2026, month: 13, err: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := MonthBounds(tt.year, tt.month)
			if tt.err {
				assert.ErrorIs(t, err, ErrInvalidRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.start, DayKey(start))
			assert.Equal(t, tt.end, DayKey(end))
		})
	}
}

func TestMonthAndDay(t *testing.T) {
	lister := &filteringTasks{tasks: []task.Task{
		due("april", time.Date(2026, 4, 30, 23, 59, 0, 0, time.UTC)),
		due("first", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)),
		due("mid", time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)),
		due("mid2", time.Date(2026, 5, 15, 9, 0, 0, 0, time.UTC)),
		due("june", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)),
	}}
	svc := NewService(lister, nil, zap.NewNop())
	caller := authz.Caller{ID: uuid.New(), Role: authz.RoleEmployee, Status: authz.StatusActive}

	month, err := svc.Month(context.Background(), caller, 2026, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, month.Total)
	require.Len(t, month.Days, 2)
	assert.Equal(t, "2026-05-01", month.Days[0].Date)
	assert.Equal(t, "2026-05-15", month.Days[1].Date)
	assert.Equal(t, "mid2", month.Days[1].Tasks[0].Name)

	day, err := svc.Day(context.Background(), caller, "2026-05-15")
	require.NoError(t, err)
	assert.Len(t, day.Tasks, 2)

	empty, err := svc.Day(context.Background(), caller, "2026-05-16")
	require.NoError(t, err)
	assert.NotNil(t, empty.Tasks)
	assert.Empty(t, empty.Tasks)

	_, err = svc.Day(context.Background(), caller, "15/05/2026")
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestCalendarRefusesInactiveCaller(t *testing.T) {
	lister := &filteringTasks{}
	svc := NewService(lister, nil, zap.NewNop())
	caller := authz.Caller{ID: uuid.New(), Role: authz.RoleAdmin, Status: authz.StatusInactive}

	_, err := svc.Month(context.Background(), caller, 2026, 5)
	assert.ErrorIs(t, err, authz.ErrInactive)
	assert.Zero(t, lister.calls)
}
