package identity

import "context"

// Actor is the authenticated identity performing an operation.
// It is built once per request and never mutated.
type Actor struct {
	ID           int64  `json:"id"`
	Role         Role   `json:"role"`
	DepartmentID *int64 `json:"departmentId,omitempty"`
	Year         *int   `json:"year,omitempty"`
}

// NewActor builds an Actor from stored identity fields. The raw role goes
// through ParseRole; year is only kept for students.
func NewActor(id int64, rawRole string, departmentID *int64, year *int) Actor {
	role := ParseRole(rawRole)
	a := Actor{ID: id, Role: role, DepartmentID: departmentID}
	if role == RoleStudent {
		a.Year = year
	}
	return a
}

// Recipient is a user addressed by a notification.
type Recipient struct {
	ID    int64
	Email string
	Name  string
}

// Scope selects users by department, audience and year.
type Scope struct {
	DepartmentID int64
	Audience     Audience
	Year         *int
}

// Matches reports whether a falls in the scope. A scope without an audience
// takes everyone in the department; a year only narrows students.
func (s Scope) Matches(a Actor) bool {
	if a.DepartmentID == nil || *a.DepartmentID != s.DepartmentID {
		return false
	}
	if s.Audience == AudienceAny {
		return true
	}
	if !s.Audience.Includes(AudienceOf(a.Role)) {
		return false
	}
	if a.Role == RoleStudent && s.Year != nil {
		return a.Year != nil && *a.Year == *s.Year
	}
	return true
}

// Directory is the read-only user and department collaborator.
type Directory interface {
	LookupActor(ctx context.Context, userID int64) (Actor, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
	DepartmentExists(ctx context.Context, departmentID int64) (bool, error)
	DepartmentName(ctx context.Context, departmentID int64) (string, error)
	Recipients(ctx context.Context, scope Scope) ([]Recipient, error)
}
