package policy

import "portal/internal/identity"

// QuestionTarget is the part of a question the targeting rules look at.
type QuestionTarget struct {
	DepartmentID int64
	Audience     identity.Audience
	Year         *int
	Active       bool
}

// QuestionFilter is a conjunction of constraints over QuestionTarget.
type QuestionFilter struct {
	None         bool
	Audiences    []identity.Audience // empty means any audience
	DepartmentID *int64
	Year         *int
	ActiveOnly   bool
}

// Matches evaluates f against a single question.
func (f QuestionFilter) Matches(t QuestionTarget) bool {
	if f.None {
		return false
	}
	if f.ActiveOnly && !t.Active {
		return false
	}
	if len(f.Audiences) > 0 && !containsAudience(f.Audiences, t.Audience) {
		return false
	}
	if f.DepartmentID != nil && t.DepartmentID != *f.DepartmentID {
		return false
	}
	if f.Year != nil && (t.Year == nil || *t.Year != *f.Year) {
		return false
	}
	return true
}

func containsAudience(list []identity.Audience, a identity.Audience) bool {
	for _, v := range list {
		if v == a {
			return true
		}
	}
	return false
}

func audiencesFor(a identity.Audience) []identity.Audience {
	return []identity.Audience{a, identity.AudienceBoth}
}

// QuestionListFilter returns the questions an actor may list.
func QuestionListFilter(a identity.Actor) QuestionFilter {
	switch a.Role {
	case identity.RoleAcademicDirector, identity.RoleExecutiveDirector:
		return QuestionFilter{ActiveOnly: true}

	case identity.RoleStaff:
		f := QuestionFilter{Audiences: audiencesFor(identity.AudienceStaff), ActiveOnly: true}
		if a.DepartmentID != nil {
			dept := *a.DepartmentID
			f.DepartmentID = &dept
		}
		return f

	case identity.RoleStudent:
		f := QuestionFilter{Audiences: audiencesFor(identity.AudienceStudent), ActiveOnly: true}
		// Narrowing needs both facts; with either missing only role and
		// active apply.
		if a.DepartmentID != nil && a.Year != nil {
			dept, year := *a.DepartmentID, *a.Year
			f.DepartmentID = &dept
			f.Year = &year
		}
		return f

	default:
		f := QuestionFilter{ActiveOnly: true}
		if a.DepartmentID != nil {
			dept := *a.DepartmentID
			f.DepartmentID = &dept
		}
		return f
	}
}

// QuestionBrowseFilter is the actor-independent department view used by
// directors. role "staff" matches staff and both; role "student" matches
// student and both and the year when given; without a role a given year
// implies the student view.
func QuestionBrowseFilter(departmentID int64, year *int, role identity.Audience) QuestionFilter {
	f := QuestionFilter{DepartmentID: &departmentID, ActiveOnly: true}
	switch role {
	case identity.AudienceStaff:
		f.Audiences = audiencesFor(identity.AudienceStaff)
	case identity.AudienceStudent:
		f.Audiences = audiencesFor(identity.AudienceStudent)
		f.Year = year
	case identity.AudienceAny:
		if year != nil {
			f.Audiences = audiencesFor(identity.AudienceStudent)
			f.Year = year
		}
	}
	return f
}
