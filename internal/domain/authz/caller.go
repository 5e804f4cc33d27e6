package authz

import (
	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin          Role = "admin"
	RoleProjectManager Role = "project_manager"
	RoleEmployee       Role = "employee"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleProjectManager, RoleEmployee:
		return true
	}
	return false
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// Caller is the session object handed to every service call.
// It carries the identity and the role as currently stored on the profile.
type Caller struct {
	ID     uuid.UUID `json:"id"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
	Status Status    `json:"status"`
}

// System is the caller used by background jobs. It bypasses row predicates.
var System = Caller{Role: RoleAdmin, Status: StatusActive}

func (c Caller) IsSystem() bool {
	return c.ID == uuid.Nil && c.Role == RoleAdmin
}

func (c Caller) IsAuthenticated() bool {
	return c.ID != uuid.Nil
}

func (c Caller) IsActive() bool {
	return c.Status == StatusActive
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

func (c Caller) IsProjectManager() bool {
	return c.Role == RoleProjectManager
}

// Is reports whether id identifies the caller
func (c Caller) Is(id uuid.UUID) bool {
	return c.ID != uuid.Nil && c.ID == id
}

// IsPtr is Is for nullable columns
func (c Caller) IsPtr(id *uuid.UUID) bool {
	return id != nil && c.Is(*id)
}
