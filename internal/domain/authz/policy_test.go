package authz

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func caller(role Role) Caller {
	return Caller{ID: uuid.New(), Role: role, Status: StatusActive}
}

func ptr(id uuid.UUID) *uuid.UUID {
	return &id
}

func TestTaskSelectPolicy(t *testing.T) {
	e := NewEvaluator()
	employee := caller(RoleEmployee)
	manager := caller(RoleProjectManager)
	projectID := uuid.New()

	tests := []struct {
		name     string
		caller   Caller
		subject  Subject
		expected bool
	}{
		{
			name:     "assignee sees task",
			caller:   employee,
			subject:  Subject{CreatorID: uuid.New(), AssigneeID: ptr(employee.ID)},
			expected: true,
		},
		{
			name:     "creator sees personal task",
			caller:   employee,
			subject:  Subject{CreatorID: employee.ID},
			expected: true,
		},
		{
			name:     "stranger does not see personal task",
			caller:   employee,
			subject:  Subject{CreatorID: uuid.New()},
			expected: false,
		},
		{
			name:     "project member sees project task",
			caller:   employee,
			subject:  Subject{CreatorID: uuid.New(), ProjectID: &projectID, Member: true},
			expected: true,
		},
		{
			name:     "project manager sees project task",
			caller:   manager,
			subject:  Subject{CreatorID: uuid.New(), ProjectID: &projectID, ManagerID: ptr(manager.ID)},
			expected: true,
		},
		{
			name:     "manager of another project does not see task",
			caller:   manager,
			subject:  Subject{CreatorID: uuid.New(), ProjectID: &projectID, ManagerID: ptr(uuid.New())},
			expected: false,
		},
		{
			name:     "membership flag ignored for personal task",
			caller:   employee,
			subject:  Subject{CreatorID: uuid.New(), Member: true},
			expected: false,
		},
		{
			name:     "admin sees everything",
			caller:   caller(RoleAdmin),
			subject:  Subject{CreatorID: uuid.New()},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.Allowed(tt.caller, TableTasks, ActionSelect, tt.subject))
		})
	}
}

func TestTaskInsertPolicy(t *testing.T) {
	e := NewEvaluator()
	employee := caller(RoleEmployee)
	projectID := uuid.New()

	assert.True(t, e.Allowed(employee, TableTasks, ActionInsert, Subject{CreatorID: employee.ID}))
	assert.False(t, e.Allowed(employee, TableTasks, ActionInsert, Subject{CreatorID: uuid.New()}),
		"cannot create on behalf of someone else")
	assert.False(t, e.Allowed(employee, TableTasks, ActionInsert, Subject{CreatorID: employee.ID, ProjectID: &projectID}),
		"project task needs project access")
	assert.True(t, e.Allowed(employee, TableTasks, ActionInsert, Subject{CreatorID: employee.ID, ProjectID: &projectID, Member: true}))
}

func TestTaskDeleteIsAdminOnly(t *testing.T) {
	e := NewEvaluator()
	employee := caller(RoleEmployee)

	err := e.Check(employee, TableTasks, ActionDelete, Subject{CreatorID: employee.ID})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, e.Check(caller(RoleAdmin), TableTasks, ActionDelete, Subject{CreatorID: employee.ID}))
}

func TestTimeLogPolicies(t *testing.T) {
	e := NewEvaluator()
	owner := caller(RoleEmployee)
	other := caller(RoleEmployee)
	admin := caller(RoleAdmin)

	tests := []struct {
		name     string
		caller   Caller
		action   Action
		subject  Subject
		expected bool
	}{
		{"owner deletes pending log", owner, ActionDelete, Subject{OwnerID: owner.ID, Pending: true}, true},
		{"owner cannot delete approved log", owner, ActionDelete, Subject{OwnerID: owner.ID}, false},
		{"admin deletes approved log", admin, ActionDelete, Subject{OwnerID: owner.ID}, true},
		{"other user cannot delete pending log", other, ActionDelete, Subject{OwnerID: owner.ID, Pending: true}, false},
		{"owner stops pending log", owner, ActionUpdate, Subject{OwnerID: owner.ID, Pending: true}, true},
		{"owner cannot approve own log", owner, ActionUpdate, Subject{OwnerID: owner.ID, Pending: true, ChangesApproval: true}, false},
		{"admin approves", admin, ActionUpdate, Subject{OwnerID: owner.ID, Pending: true, ChangesApproval: true}, true},
		{"owner inserts own log", owner, ActionInsert, Subject{OwnerID: owner.ID}, true},
		{"cannot insert for someone else", owner, ActionInsert, Subject{OwnerID: other.ID}, false},
		{"other user cannot read log", other, ActionSelect, Subject{OwnerID: owner.ID}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.Allowed(tt.caller, TableTimeLogs, tt.action, tt.subject))
		})
	}
}

func TestProfileUpdateCannotChangeOwnRole(t *testing.T) {
	e := NewEvaluator()
	employee := caller(RoleEmployee)

	assert.True(t, e.Allowed(employee, TableProfiles, ActionUpdate, Subject{OwnerID: employee.ID}))
	assert.False(t, e.Allowed(employee, TableProfiles, ActionUpdate, Subject{OwnerID: employee.ID, ChangesRoleOrStatus: true}))
	assert.False(t, e.Allowed(employee, TableProfiles, ActionUpdate, Subject{OwnerID: uuid.New()}))
	assert.True(t, e.Allowed(caller(RoleAdmin), TableProfiles, ActionUpdate, Subject{OwnerID: employee.ID, ChangesRoleOrStatus: true}))
}

func TestNotificationOwnerOnly(t *testing.T) {
	e := NewEvaluator()
	owner := caller(RoleEmployee)
	admin := caller(RoleAdmin)
	s := Subject{OwnerID: owner.ID}

	assert.True(t, e.Allowed(owner, TableNotifications, ActionUpdate, s))
	assert.False(t, e.Allowed(admin, TableNotifications, ActionUpdate, s), "only the owner marks read")
	assert.False(t, e.Allowed(admin, TableNotifications, ActionSelect, s))
	assert.True(t, e.Allowed(admin, TableNotifications, ActionInsert, s))
	assert.False(t, e.Allowed(caller(RoleEmployee), TableNotifications, ActionInsert, s))
}

func TestCheckRejectsInactiveAndAnonymous(t *testing.T) {
	e := NewEvaluator()
	inactive := caller(RoleAdmin)
	inactive.Status = StatusInactive

	err := e.Check(inactive, TableTasks, ActionSelect, Subject{})
	assert.ErrorIs(t, err, ErrInactive)
	assert.True(t, IsDenied(err))

	err = e.Check(Caller{}, TableTasks, ActionSelect, Subject{})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	assert.NoError(t, e.Check(System, TableNotifications, ActionInsert, Subject{OwnerID: uuid.New()}))
}

func TestMissingRuleDenies(t *testing.T) {
	e := NewEvaluator()
	err := e.Check(caller(RoleAdmin), TableProjectMembers, ActionUpdate, Subject{})

	var denial *Denial
	assert.True(t, errors.As(err, &denial))
	assert.Equal(t, TableProjectMembers, denial.Table)
	assert.Equal(t, ActionUpdate, denial.Action)
}

func TestFilter(t *testing.T) {
	e := NewEvaluator()
	employee := caller(RoleEmployee)
	rows := []Subject{
		{CreatorID: employee.ID},
		{CreatorID: uuid.New()},
		{CreatorID: uuid.New(), AssigneeID: ptr(employee.ID)},
	}

	visible := Filter(e, employee, TableTasks, rows, func(s Subject) Subject { return s })
	assert.Len(t, visible, 2)
}

func TestNavigationByRole(t *testing.T) {
	tests := []struct {
		role    Role
		reports bool
		users   bool
	}{
		{RoleAdmin, true, true},
		{RoleProjectManager, true, true},
		{RoleEmployee, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			c := caller(tt.role)
			views := Navigation(c)
			assert.Equal(t, tt.reports, CanOpen(c, ViewReports))
			assert.Equal(t, tt.users, CanOpen(c, ViewUsers))
			assert.Equal(t, tt.reports, contains(views, ViewReports))
			assert.Contains(t, views, ViewDashboard)
		})
	}

	assert.ErrorIs(t, RequireView(caller(RoleEmployee), ViewReports), ErrForbidden)
}

func contains(views []View, v View) bool {
	for _, x := range views {
		if x == v {
			return true
		}
	}
	return false
}
