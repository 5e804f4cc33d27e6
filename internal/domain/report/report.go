package report

import (
	"sort"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/ahmedelhadi17776/worklog/internal/domain/timelog"
	"github.com/google/uuid"
)

// PersonalBucket is the report name of tasks without a project
const PersonalBucket = "Personal"

// Report aggregates tasks and time logs visible to the caller
type Report struct {
	From               *time.Time              `json:"from,omitempty"`
	To                 *time.Time              `json:"to,omitempty"`
	StatusDistribution map[task.TaskStatus]int `json:"status_distribution"`
	Projects           []ProjectProgress       `json:"projects"`
	Users              []UserProductivity      `json:"users"`
	GeneratedAt        time.Time               `json:"generated_at"`
}

// ProjectProgress is the completion ratio of one project. A nil ProjectID is the personal bucket.
type ProjectProgress struct {
	ProjectID       *uuid.UUID `json:"project_id"`
	Name            string     `json:"name"`
	Total           int        `json:"total"`
	Completed       int        `json:"completed"`
	CompletionRatio float64    `json:"completion_ratio"`
}

// UserProductivity sums the logged minutes and distinct tasks of one user
type UserProductivity struct {
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	Minutes  int       `json:"minutes"`
	Tasks    int       `json:"tasks"`
	LogCount int       `json:"log_count"`
}

// Filter bounds the time logs of a report. ProjectID narrows both tasks and logs.
type Filter struct {
	From         *time.Time
	To           *time.Time
	ProjectID    *uuid.UUID
	ApprovedOnly bool
}

// StatusDistribution counts tasks per status, every status included
func StatusDistribution(tasks []task.Task) map[task.TaskStatus]int {
	dist := make(map[task.TaskStatus]int, len(task.Statuses))
	for _, s := range task.Statuses {
		dist[s] = 0
	}
	for _, t := range tasks {
		dist[t.Status]++
	}
	return dist
}

// ProjectCompletion computes completed/total per project, 0 for a project without tasks.
// Every project in names appears; personal tasks form their own bucket when present.
func ProjectCompletion(tasks []task.Task, names map[uuid.UUID]string) []ProjectProgress {
	byProject := make(map[uuid.UUID]*ProjectProgress, len(names))
	for id, name := range names {
		projectID := id
		byProject[id] = &ProjectProgress{ProjectID: &projectID, Name: name}
	}
	var personal *ProjectProgress

	for _, t := range tasks {
		var p *ProjectProgress
		if t.ProjectID == nil {
			if personal == nil {
				personal = &ProjectProgress{Name: PersonalBucket}
			}
			p = personal
		} else {
			p = byProject[*t.ProjectID]
			if p == nil {
				projectID := *t.ProjectID
				p = &ProjectProgress{ProjectID: &projectID, Name: projectID.String()}
				byProject[projectID] = p
			}
		}
		p.Total++
		if t.Status == task.TaskStatusCompleted {
			p.Completed++
		}
	}

	out := make([]ProjectProgress, 0, len(byProject)+1)
	for _, p := range byProject {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ProjectID.String() < out[j].ProjectID.String()
	})
	if personal != nil {
		out = append(out, *personal)
	}
	for i := range out {
		if out[i].Total > 0 {
			out[i].CompletionRatio = float64(out[i].Completed) / float64(out[i].Total)
		}
	}
	return out
}

// Productivity sums minutes and distinct tasks per user, most minutes first.
// Running logs contribute their task but no minutes.
func Productivity(logs []timelog.TimeLog, names map[uuid.UUID]string) []UserProductivity {
	type acc struct {
		minutes int
		logs    int
		tasks   map[uuid.UUID]struct{}
	}
	byUser := make(map[uuid.UUID]*acc)
	for _, l := range logs {
		a := byUser[l.UserID]
		if a == nil {
			a = &acc{tasks: make(map[uuid.UUID]struct{})}
			byUser[l.UserID] = a
		}
		a.minutes += l.Minutes()
		a.logs++
		a.tasks[l.TaskID] = struct{}{}
	}

	out := make([]UserProductivity, 0, len(byUser))
	for id, a := range byUser {
		name, ok := names[id]
		if !ok {
			name = id.String()
		}
		out = append(out, UserProductivity{
			UserID:   id,
			Name:     name,
			Minutes:  a.minutes,
			Tasks:    len(a.tasks),
			LogCount: a.logs,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Minutes != out[j].Minutes {
			return out[i].Minutes > out[j].Minutes
		}
		return out[i].Name < out[j].Name
	})
	return out
}
