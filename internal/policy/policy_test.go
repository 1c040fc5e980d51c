package policy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"portal/internal/apperr"
	"portal/internal/identity"
	"portal/internal/policy"
)

func ptr[T any](v T) *T { return &v }

var (
	academic  = identity.Actor{ID: 1, Role: identity.RoleAcademicDirector}
	executive = identity.Actor{ID: 2, Role: identity.RoleExecutiveDirector}
	student   = identity.Actor{ID: 3, Role: identity.RoleStudent, DepartmentID: ptr(int64(3)), Year: ptr(2)}
	staff     = identity.Actor{ID: 4, Role: identity.RoleStaff, DepartmentID: ptr(int64(3))}
	unknown   = identity.Actor{ID: 5, Role: identity.RoleUnknown, DepartmentID: ptr(int64(3))}
)

func TestCapabilities(t *testing.T) {
	require.NoError(t, policy.CanCreateMeeting(academic))
	require.ErrorIs(t, policy.CanCreateMeeting(executive), apperr.ErrForbidden)
	require.ErrorIs(t, policy.CanCreateMeeting(student), apperr.ErrForbidden)

	require.NoError(t, policy.CanMutateMeeting(academic))
	require.ErrorIs(t, policy.CanMutateMeeting(executive), apperr.ErrForbidden)

	for _, a := range []identity.Actor{academic, executive} {
		require.NoError(t, policy.CanManageAttendees(a))
		require.NoError(t, policy.CanAuthorQuestions(a))
		require.NoError(t, policy.CanRecordMinutes(a))
		require.NoError(t, policy.CanViewAnalytics(a))
	}
	for _, a := range []identity.Actor{student, staff, unknown} {
		require.ErrorIs(t, policy.CanManageAttendees(a), apperr.ErrForbidden)
		require.ErrorIs(t, policy.CanAuthorQuestions(a), apperr.ErrForbidden)
		require.ErrorIs(t, policy.CanViewAnalytics(a), apperr.ErrForbidden)
	}
}

func TestMeetingListFilter(t *testing.T) {
	studentMeeting := policy.MeetingTarget{DepartmentID: 3, Audience: identity.AudienceStudent, Year: ptr(2)}
	otherYear := policy.MeetingTarget{DepartmentID: 3, Audience: identity.AudienceStudent, Year: ptr(3)}
	staffMeeting := policy.MeetingTarget{DepartmentID: 3, Audience: identity.AudienceStaff}
	otherDept := policy.MeetingTarget{DepartmentID: 9, Audience: identity.AudienceStaff}

	t.Run("directors are unrestricted", func(t *testing.T) {
		for _, a := range []identity.Actor{academic, executive} {
			f := policy.MeetingListFilter(a)
			require.True(t, f.Unrestricted())
			require.True(t, f.Matches(otherDept))
		}
	})

	t.Run("student sees own department and year only", func(t *testing.T) {
		f := policy.MeetingListFilter(student)
		require.True(t, f.Matches(studentMeeting))
		require.False(t, f.Matches(otherYear))
		require.False(t, f.Matches(staffMeeting))
	})

	t.Run("student without year sees every student meeting of the department", func(t *testing.T) {
		s := student
		s.Year = nil
		f := policy.MeetingListFilter(s)
		require.True(t, f.Matches(studentMeeting))
		require.True(t, f.Matches(otherYear))
	})

	t.Run("staff sees staff meetings of the department", func(t *testing.T) {
		f := policy.MeetingListFilter(staff)
		require.True(t, f.Matches(staffMeeting))
		require.False(t, f.Matches(studentMeeting))
		require.False(t, f.Matches(otherDept))
	})

	t.Run("unknown role falls back to department scoping", func(t *testing.T) {
		f := policy.MeetingListFilter(unknown)
		require.True(t, f.Matches(staffMeeting))
		require.True(t, f.Matches(studentMeeting))
		require.False(t, f.Matches(otherDept))
	})

	t.Run("no department means nothing for scoped roles", func(t *testing.T) {
		f := policy.MeetingListFilter(identity.Actor{Role: identity.RoleStaff})
		require.True(t, f.None)
		require.False(t, f.Matches(staffMeeting))
	})
}

func TestWithinDepartment(t *testing.T) {
	studentMeeting := policy.MeetingTarget{DepartmentID: 3, Audience: identity.AudienceStudent, Year: ptr(2)}
	staffMeeting := policy.MeetingTarget{DepartmentID: 3, Audience: identity.AudienceStaff}

	t.Run("director narrowed to department and year keeps yearless meetings", func(t *testing.T) {
		f := policy.MeetingListFilter(academic).WithinDepartment(3, ptr(2))
		require.True(t, f.Matches(studentMeeting))
		require.True(t, f.Matches(staffMeeting))
		require.False(t, f.Matches(policy.MeetingTarget{DepartmentID: 3, Audience: identity.AudienceStudent, Year: ptr(1)}))
		require.False(t, f.Matches(policy.MeetingTarget{DepartmentID: 4, Audience: identity.AudienceStaff}))
	})

	t.Run("student asking for another department gets nothing", func(t *testing.T) {
		f := policy.MeetingListFilter(student).WithinDepartment(4, nil)
		require.True(t, f.None)
	})

	t.Run("student asking for another year gets nothing", func(t *testing.T) {
		f := policy.MeetingListFilter(student).WithinDepartment(3, ptr(1))
		require.True(t, f.None)
	})

	t.Run("student asking for own scope keeps strict year", func(t *testing.T) {
		f := policy.MeetingListFilter(student).WithinDepartment(3, ptr(2))
		require.True(t, f.Matches(studentMeeting))
		require.False(t, f.YearOptional)
	})
}

func TestCanViewMeeting(t *testing.T) {
	foreign := policy.MeetingTarget{DepartmentID: 9, Audience: identity.AudienceStaff}
	require.False(t, policy.CanViewMeeting(student, foreign, false))
	require.True(t, policy.CanViewMeeting(student, foreign, true))
	require.True(t, policy.CanViewMeeting(executive, foreign, false))
}

func TestQuestionListFilter(t *testing.T) {
	q := func(a identity.Audience, dept int64, year *int, active bool) policy.QuestionTarget {
		return policy.QuestionTarget{DepartmentID: dept, Audience: a, Year: year, Active: active}
	}

	t.Run("student with department 3 and year 2", func(t *testing.T) {
		f := policy.QuestionListFilter(student)
		require.True(t, f.Matches(q(identity.AudienceStudent, 3, ptr(2), true)))
		require.False(t, f.Matches(q(identity.AudienceStudent, 3, ptr(1), true)))
		require.False(t, f.Matches(q(identity.AudienceStudent, 4, ptr(2), true)))
		require.False(t, f.Matches(q(identity.AudienceStudent, 3, ptr(2), false)))
		require.False(t, f.Matches(q(identity.AudienceStaff, 3, ptr(2), true)))
		require.False(t, f.Matches(q(identity.AudienceStaff, 3, nil, true)))
	})

	t.Run("student missing year skips narrowing", func(t *testing.T) {
		s := student
		s.Year = nil
		f := policy.QuestionListFilter(s)
		require.Nil(t, f.DepartmentID)
		require.True(t, f.Matches(q(identity.AudienceBoth, 7, nil, true)))
		require.True(t, f.Matches(q(identity.AudienceStudent, 7, ptr(4), true)))
		require.False(t, f.Matches(q(identity.AudienceStaff, 7, nil, true)))
	})

	t.Run("staff sees staff and both in department", func(t *testing.T) {
		f := policy.QuestionListFilter(staff)
		require.True(t, f.Matches(q(identity.AudienceStaff, 3, nil, true)))
		require.True(t, f.Matches(q(identity.AudienceBoth, 3, nil, true)))
		require.False(t, f.Matches(q(identity.AudienceBoth, 4, nil, true)))
		require.False(t, f.Matches(q(identity.AudienceStudent, 3, ptr(2), true)))
	})

	t.Run("directors see every active question", func(t *testing.T) {
		f := policy.QuestionListFilter(executive)
		require.True(t, f.Matches(q(identity.AudienceStudent, 8, ptr(4), true)))
		require.False(t, f.Matches(q(identity.AudienceStudent, 8, ptr(4), false)))
	})
}

func TestQuestionBrowseFilter(t *testing.T) {
	both := policy.QuestionTarget{DepartmentID: 3, Audience: identity.AudienceBoth, Active: true}
	staffQ := policy.QuestionTarget{DepartmentID: 3, Audience: identity.AudienceStaff, Active: true}
	y2 := policy.QuestionTarget{DepartmentID: 3, Audience: identity.AudienceStudent, Year: ptr(2), Active: true}

	f := policy.QuestionBrowseFilter(3, nil, identity.AudienceStaff)
	require.True(t, f.Matches(staffQ))
	require.True(t, f.Matches(both))
	require.False(t, f.Matches(y2))

	f = policy.QuestionBrowseFilter(3, ptr(2), identity.AudienceStudent)
	require.True(t, f.Matches(y2))
	require.False(t, f.Matches(staffQ))

	f = policy.QuestionBrowseFilter(3, ptr(2), identity.AudienceAny)
	require.Equal(t, []identity.Audience{identity.AudienceStudent, identity.AudienceBoth}, f.Audiences)
	require.True(t, f.Matches(y2))

	f = policy.QuestionBrowseFilter(3, nil, identity.AudienceAny)
	require.True(t, f.Matches(staffQ))
	require.True(t, f.Matches(y2))
}
