package calendar

import (
	"errors"
	"sort"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
)

const dayLayout = "2006-01-02"

var ErrInvalidRange = errors.New("invalid calendar range")

// Day holds the tasks due on one UTC calendar day
type Day struct {
	Date  string      `json:"date"`
	Tasks []task.Task `json:"tasks"`
}

// Month is a calendar page. Days without deadlines are omitted.
type Month struct {
	Year  int   `json:"year"`
	Month int   `json:"month"`
	Days  []Day `json:"days"`
	Total int   `json:"total"`
}

// DayKey formats t as its UTC calendar day
func DayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// MonthBounds returns [first day, first day of next month) in UTC
func MonthBounds(year, month int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 || year < 1 {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// ParseDay parses a YYYY-MM-DD date as UTC midnight
func ParseDay(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidRange
	}
	return d, nil
}

// BucketByEndDate groups tasks under the UTC day of their end date.
// Tasks without an end date are left out.
func BucketByEndDate(tasks []task.Task) map[string][]task.Task {
	buckets := make(map[string][]task.Task)
	for _, t := range tasks {
		if t.EndDate == nil {
			continue
		}
		key := DayKey(*t.EndDate)
		buckets[key] = append(buckets[key], t)
	}
	return buckets
}

// Days flattens buckets into a list sorted by date, tasks in deadline order
func Days(buckets map[string][]task.Task) []Day {
	days := make([]Day, 0, len(buckets))
	for date, tasks := range buckets {
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].EndDate.Before(*tasks[j].EndDate)
		})
		days = append(days, Day{Date: date, Tasks: tasks})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}
