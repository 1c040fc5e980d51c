package policy

import "portal/internal/identity"

// MeetingTarget is the part of a meeting the visibility rules look at.
type MeetingTarget struct {
	DepartmentID int64
	Audience     identity.Audience
	Year         *int
}

// MeetingFilter is a conjunction of constraints over MeetingTarget.
// The zero value matches every meeting.
type MeetingFilter struct {
	None         bool
	DepartmentID *int64
	Audience     identity.Audience
	Year         *int
	// YearOptional lets meetings without a year pass a Year constraint.
	YearOptional bool
}

// Unrestricted reports whether f matches every meeting.
func (f MeetingFilter) Unrestricted() bool {
	return !f.None && f.DepartmentID == nil && f.Audience == identity.AudienceAny && f.Year == nil
}

// Matches evaluates f against a single meeting.
func (f MeetingFilter) Matches(t MeetingTarget) bool {
	if f.None {
		return false
	}
	if f.DepartmentID != nil && t.DepartmentID != *f.DepartmentID {
		return false
	}
	if f.Audience != identity.AudienceAny && t.Audience != f.Audience {
		return false
	}
	if f.Year != nil {
		if t.Year == nil {
			return f.YearOptional
		}
		if *t.Year != *f.Year {
			return false
		}
	}
	return true
}

// WithinDepartment narrows f to one department and, when year is given, to
// meetings of that year or without a year. Contradictory constraints yield a
// filter that matches nothing.
func (f MeetingFilter) WithinDepartment(departmentID int64, year *int) MeetingFilter {
	if f.None {
		return f
	}
	if f.DepartmentID != nil && *f.DepartmentID != departmentID {
		return MeetingFilter{None: true}
	}
	f.DepartmentID = &departmentID
	if year != nil {
		switch {
		case f.Year == nil:
			f.Year = year
			f.YearOptional = true
		case *f.Year != *year:
			return MeetingFilter{None: true}
		}
	}
	return f
}

// MeetingListFilter returns the meetings an actor may list.
//
// Directors see everything. Students see student meetings of their department
// and, when their year is known, of their year. Staff see staff meetings of
// their department. Any other role falls back to department scoping without
// a role restriction. An actor without a department who needs department
// scoping sees nothing.
func MeetingListFilter(a identity.Actor) MeetingFilter {
	if a.Role.IsDirector() {
		return MeetingFilter{}
	}
	if a.DepartmentID == nil {
		return MeetingFilter{None: true}
	}
	dept := *a.DepartmentID

	switch a.Role {
	case identity.RoleStudent:
		return MeetingFilter{DepartmentID: &dept, Audience: identity.AudienceStudent, Year: a.Year}
	case identity.RoleStaff:
		return MeetingFilter{DepartmentID: &dept, Audience: identity.AudienceStaff}
	default:
		return MeetingFilter{DepartmentID: &dept}
	}
}

// CanViewMeeting reports whether a may read a single meeting. Registered
// attendees can always read their meeting.
func CanViewMeeting(a identity.Actor, t MeetingTarget, isAttendee bool) bool {
	return isAttendee || MeetingListFilter(a).Matches(t)
}
