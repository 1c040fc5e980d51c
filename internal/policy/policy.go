// Package policy holds the visibility and authorization rules shared by every
// meeting, attendee, question and feedback operation. Listing endpoints must
// obtain their filters here instead of building them locally.
package policy

import (
	"portal/internal/apperr"
	"portal/internal/identity"
)

// CanCreateMeeting allows academic directors only.
func CanCreateMeeting(a identity.Actor) error {
	if a.Role != identity.RoleAcademicDirector {
		return apperr.Forbidden("create meetings")
	}
	return nil
}

// CanMutateMeeting allows any academic director to update or delete any
// meeting. There is no creator ownership check.
func CanMutateMeeting(a identity.Actor) error {
	if a.Role != identity.RoleAcademicDirector {
		return apperr.Forbidden("modify meetings")
	}
	return nil
}

// CanManageAttendees allows both director roles.
func CanManageAttendees(a identity.Actor) error {
	if !a.Role.IsDirector() {
		return apperr.Forbidden("manage meeting attendees")
	}
	return nil
}

// CanAuthorQuestions allows both director roles.
func CanAuthorQuestions(a identity.Actor) error {
	if !a.Role.IsDirector() {
		return apperr.Forbidden("manage feedback questions")
	}
	return nil
}

// CanRecordMinutes allows both director roles.
func CanRecordMinutes(a identity.Actor) error {
	if !a.Role.IsDirector() {
		return apperr.Forbidden("record meeting minutes")
	}
	return nil
}

// CanViewAnalytics allows both director roles.
func CanViewAnalytics(a identity.Actor) error {
	if !a.Role.IsDirector() {
		return apperr.Forbidden("view feedback analytics")
	}
	return nil
}
