package authz

// View is a screen of the client application gated by role
type View string

const (
	ViewDashboard     View = "dashboard"
	ViewProjects      View = "projects"
	ViewTasks         View = "tasks"
	ViewTimeTracking  View = "time_tracking"
	ViewCalendar      View = "calendar"
	ViewNotifications View = "notifications"
	ViewReports       View = "reports"
	ViewUsers         View = "users"
	ViewApprovals     View = "approvals"
)

var viewOrder = []View{
	ViewDashboard,
	ViewProjects,
	ViewTasks,
	ViewTimeTracking,
	ViewCalendar,
	ViewNotifications,
	ViewReports,
	ViewUsers,
	ViewApprovals,
}

var viewRoles = map[View][]Role{
	ViewReports:   {RoleAdmin, RoleProjectManager},
	ViewUsers:     {RoleAdmin, RoleProjectManager},
	ViewApprovals: {RoleAdmin},
}

// CanOpen reports whether the caller may open a view. Views without a role list are open to every active user.
func CanOpen(c Caller, v View) bool {
	if c.IsSystem() {
		return true
	}
	if !c.IsAuthenticated() || !c.IsActive() {
		return false
	}
	roles, gated := viewRoles[v]
	if !gated {
		return true
	}
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

// RequireView returns a denial when the caller may not open the view
func RequireView(c Caller, v View) error {
	if CanOpen(c, v) {
		return nil
	}
	reason := ErrForbidden
	if !c.IsAuthenticated() {
		reason = ErrUnauthenticated
	} else if !c.IsActive() {
		reason = ErrInactive
	}
	return &Denial{Table: Table(v), Action: ActionSelect, Reason: reason}
}

// Navigation lists the views the caller may open, in menu order
func Navigation(c Caller) []View {
	views := make([]View, 0, len(viewOrder))
	for _, v := range viewOrder {
		if CanOpen(c, v) {
			views = append(views, v)
		}
	}
	return views
}
