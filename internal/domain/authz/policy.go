package authz

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("authentication required")
	ErrInactive        = errors.New("account is inactive")
)

type Table string

const (
	TableProfiles       Table = "profiles"
	TableProjects       Table = "projects"
	TableProjectMembers Table = "project_members"
	TableTasks          Table = "tasks"
	TableTimeLogs       Table = "time_logs"
	TableNotifications  Table = "notifications"
)

type Action string

const (
	ActionSelect Action = "select"
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Subject is the row view a predicate is evaluated against. Callers fill
// only the fields meaningful for the table being checked.
type Subject struct {
	// OwnerID is the row owner: the profile itself, time_logs.user_id,
	// notifications.user_id or project_members.user_id.
	OwnerID uuid.UUID
	// CreatorID is tasks.created_by.
	CreatorID uuid.UUID
	// AssigneeID is tasks.assigned_to.
	AssigneeID *uuid.UUID
	// ProjectID is the project the row belongs to, nil for personal tasks.
	ProjectID *uuid.UUID
	// ManagerID is the manager of the row's project (or of the project row itself).
	ManagerID *uuid.UUID
	// Member is true when the caller belongs to the row's project.
	Member bool
	// Pending is true when a time log is still awaiting approval.
	Pending bool
	// ChangesApproval is true when an update touches approval_status.
	ChangesApproval bool
	// ChangesRoleOrStatus is true when a profile update alters role or status.
	ChangesRoleOrStatus bool
}

// Predicate decides whether the caller may act on the subject
type Predicate func(c Caller, s Subject) bool

// Denial describes a rejected check. It matches ErrForbidden with errors.Is.
type Denial struct {
	Table  Table
	Action Action
	Reason error
}

func (d *Denial) Error() string {
	return fmt.Sprintf("%s on %s: %v", d.Action, d.Table, d.Reason)
}

func (d *Denial) Unwrap() error {
	return d.Reason
}

// Evaluator holds the per-table, per-action predicates
type Evaluator struct {
	rules map[Table]map[Action]Predicate
}

// NewEvaluator returns an evaluator loaded with the default policy set
func NewEvaluator() *Evaluator {
	e := &Evaluator{rules: make(map[Table]map[Action]Predicate)}
	for table, actions := range defaultPolicies() {
		for action, p := range actions {
			e.Register(table, action, p)
		}
	}
	return e
}

// Register installs or replaces the predicate for a table and action
func (e *Evaluator) Register(table Table, action Action, p Predicate) {
	if e.rules[table] == nil {
		e.rules[table] = make(map[Action]Predicate)
	}
	e.rules[table][action] = p
}

// Allowed evaluates the predicate. Missing rules deny.
func (e *Evaluator) Allowed(c Caller, table Table, action Action, s Subject) bool {
	return e.Check(c, table, action, s) == nil
}

// Check evaluates the predicate and explains a refusal
func (e *Evaluator) Check(c Caller, table Table, action Action, s Subject) error {
	if c.IsSystem() {
		return nil
	}
	if !c.IsAuthenticated() {
		return &Denial{Table: table, Action: action, Reason: ErrUnauthenticated}
	}
	if !c.IsActive() {
		return &Denial{Table: table, Action: action, Reason: ErrInactive}
	}
	p, ok := e.rules[table][action]
	if !ok || !p(c, s) {
		return &Denial{Table: table, Action: action, Reason: ErrForbidden}
	}
	return nil
}

// Admit checks only that the caller may use the table at all. List operations
// call it before a scoped query whose rows then go through Filter.
func (e *Evaluator) Admit(c Caller, table Table) error {
	if c.IsSystem() {
		return nil
	}
	if !c.IsAuthenticated() {
		return &Denial{Table: table, Action: ActionSelect, Reason: ErrUnauthenticated}
	}
	if !c.IsActive() {
		return &Denial{Table: table, Action: ActionSelect, Reason: ErrInactive}
	}
	return nil
}

// Filter keeps the rows the caller may select
func Filter[T any](e *Evaluator, c Caller, table Table, rows []T, subject func(T) Subject) []T {
	visible := make([]T, 0, len(rows))
	for _, row := range rows {
		if e.Allowed(c, table, ActionSelect, subject(row)) {
			visible = append(visible, row)
		}
	}
	return visible
}

// IsDenied reports whether err is a policy refusal of any kind
func IsDenied(err error) bool {
	var d *Denial
	return errors.As(err, &d)
}

func managesProject(c Caller, s Subject) bool {
	return c.IsPtr(s.ManagerID)
}

func inProject(c Caller, s Subject) bool {
	return managesProject(c, s) || s.Member
}

func admin(c Caller, _ Subject) bool {
	return c.IsAdmin()
}

func defaultPolicies() map[Table]map[Action]Predicate {
	return map[Table]map[Action]Predicate{
		TableProfiles: {
			ActionSelect: func(c Caller, s Subject) bool {
				return c.Is(s.OwnerID) || c.IsAdmin() || c.IsProjectManager()
			},
			ActionInsert: func(c Caller, s Subject) bool {
				return c.Is(s.OwnerID) || c.IsAdmin()
			},
			// role and status only change through an admin
			ActionUpdate: func(c Caller, s Subject) bool {
				if c.IsAdmin() {
					return true
				}
				return c.Is(s.OwnerID) && !s.ChangesRoleOrStatus
			},
			ActionDelete: admin,
		},
		TableProjects: {
			ActionSelect: func(c Caller, s Subject) bool {
				return c.IsAdmin() || inProject(c, s)
			},
			ActionInsert: admin,
			ActionUpdate: func(c Caller, s Subject) bool {
				return c.IsAdmin() || managesProject(c, s)
			},
			ActionDelete: admin,
		},
		TableProjectMembers: {
			ActionSelect: func(c Caller, s Subject) bool {
				return c.IsAdmin() || c.Is(s.OwnerID) || managesProject(c, s)
			},
			ActionInsert: admin,
			ActionDelete: admin,
		},
		TableTasks: {
			ActionSelect: func(c Caller, s Subject) bool {
				return c.IsAdmin() ||
					c.IsPtr(s.AssigneeID) ||
					c.Is(s.CreatorID) ||
					(s.ProjectID != nil && inProject(c, s))
			},
			// personal tasks are open to everyone; project tasks need project access
			ActionInsert: func(c Caller, s Subject) bool {
				if !c.Is(s.CreatorID) {
					return false
				}
				return s.ProjectID == nil || c.IsAdmin() || inProject(c, s)
			},
			ActionUpdate: func(c Caller, s Subject) bool {
				return c.IsAdmin() ||
					c.Is(s.CreatorID) ||
					c.IsPtr(s.AssigneeID) ||
					(s.ProjectID != nil && managesProject(c, s))
			},
			ActionDelete: admin,
		},
		TableTimeLogs: {
			ActionSelect: func(c Caller, s Subject) bool {
				return c.IsAdmin() || c.Is(s.OwnerID) || (s.ProjectID != nil && managesProject(c, s))
			},
			ActionInsert: func(c Caller, s Subject) bool {
				return c.Is(s.OwnerID)
			},
			ActionUpdate: func(c Caller, s Subject) bool {
				if c.IsAdmin() {
					return true
				}
				return c.Is(s.OwnerID) && s.Pending && !s.ChangesApproval
			},
			ActionDelete: func(c Caller, s Subject) bool {
				return c.IsAdmin() || (c.Is(s.OwnerID) && s.Pending)
			},
		},
		TableNotifications: {
			ActionSelect: func(c Caller, s Subject) bool {
				return c.Is(s.OwnerID)
			},
			ActionInsert: func(c Caller, s Subject) bool {
				return c.IsAdmin() || c.Is(s.OwnerID)
			},
			ActionUpdate: func(c Caller, s Subject) bool {
				return c.Is(s.OwnerID)
			},
			ActionDelete: func(c Caller, s Subject) bool {
				return c.Is(s.OwnerID) || c.IsAdmin()
			},
		},
	}
}
