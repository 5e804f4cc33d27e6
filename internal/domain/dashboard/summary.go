package dashboard

import (
	"sort"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/ahmedelhadi17776/worklog/internal/domain/timelog"
	"github.com/google/uuid"
)

// Summary is the landing view of a user
type Summary struct {
	Scope               string                  `json:"scope"`
	TotalTasks          int                     `json:"total_tasks"`
	StatusCounts        map[task.TaskStatus]int `json:"status_counts"`
	Overdue             int                     `json:"overdue"`
	TodayMinutes        int                     `json:"today_minutes"`
	PendingApprovals    *int                    `json:"pending_approvals,omitempty"`
	UnreadNotifications int                     `json:"unread_notifications"`
	UpcomingDeadlines   []task.Task             `json:"upcoming_deadlines"`
	ActiveTimer         *timelog.ActiveTimer    `json:"active_timer,omitempty"`
	GeneratedAt         time.Time               `json:"generated_at"`
}

// CountByStatus partitions tasks by status. Every status is present, zero or not.
func CountByStatus(tasks []task.Task) map[task.TaskStatus]int {
	counts := make(map[task.TaskStatus]int, len(task.Statuses))
	for _, s := range task.Statuses {
		counts[s] = 0
	}
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}

// CountOverdue counts tasks whose end date passed without completion
func CountOverdue(tasks []task.Task, now time.Time) int {
	n := 0
	for i := range tasks {
		if tasks[i].IsOverdue(now) {
			n++
		}
	}
	return n
}

// TodayMinutes sums the durations of logs booked on today's date. A non-nil
// userID keeps only that user's logs. Running logs count as zero.
func TodayMinutes(logs []timelog.TimeLog, today time.Time, userID *uuid.UUID) int {
	day := time.Time(timelog.DateOf(today))
	total := 0
	for i := range logs {
		l := &logs[i]
		if userID != nil && l.UserID != *userID {
			continue
		}
		if !l.Day().Equal(day) {
			continue
		}
		total += l.Minutes()
	}
	return total
}

// UpcomingDeadlines returns up to limit open tasks due from now on, soonest first
func UpcomingDeadlines(tasks []task.Task, now time.Time, limit int) []task.Task {
	upcoming := []task.Task{}
	for _, t := range tasks {
		if t.EndDate == nil || t.EndDate.Before(now) || t.Status == task.TaskStatusCompleted {
			continue
		}
		upcoming = append(upcoming, t)
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].EndDate.Before(*upcoming[j].EndDate)
	})
	if len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return upcoming
}
