package identity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"portal/internal/identity"
)

func TestParseRoleNormalizesVariants(t *testing.T) {
	cases := map[string]identity.Role{
		"student":            identity.RoleStudent,
		"STUDENT":            identity.RoleStudent,
		"staff":              identity.RoleStaff,
		"academic_director":  identity.RoleAcademicDirector,
		"academic-director":  identity.RoleAcademicDirector,
		"ACADEMICDIRECTOR":   identity.RoleAcademicDirector,
		"Academic Director":  identity.RoleAcademicDirector,
		"executive_director": identity.RoleExecutiveDirector,
		"Executive-Director": identity.RoleExecutiveDirector,
		"":                   identity.RoleUnknown,
		"janitor":            identity.RoleUnknown,
		"executive":          identity.RoleUnknown,
	}
	for raw, want := range cases {
		require.Equal(t, want, identity.ParseRole(raw), raw)
	}
}

func TestParseAudience(t *testing.T) {
	t.Run("textual tags are case-insensitive", func(t *testing.T) {
		a, err := identity.ParseAudience("Student")
		require.NoError(t, err)
		require.Equal(t, identity.AudienceStudent, a)

		a, err = identity.ParseAudience(" BOTH ")
		require.NoError(t, err)
		require.Equal(t, identity.AudienceBoth, a)
	})

	t.Run("legacy numeric ids", func(t *testing.T) {
		a, err := identity.ParseAudience("2")
		require.NoError(t, err)
		require.Equal(t, identity.AudienceStaff, a)
		require.Equal(t, 2, a.RoleID())
	})

	t.Run("rejects unknown", func(t *testing.T) {
		_, err := identity.ParseAudience("director")
		require.Error(t, err)
		_, err = identity.ParseAudience("7")
		require.Error(t, err)
	})
}

func TestAudienceIncludes(t *testing.T) {
	require.True(t, identity.AudienceBoth.Includes(identity.AudienceStudent))
	require.True(t, identity.AudienceBoth.Includes(identity.AudienceStaff))
	require.True(t, identity.AudienceStaff.Includes(identity.AudienceStaff))
	require.False(t, identity.AudienceStaff.Includes(identity.AudienceStudent))
	require.False(t, identity.AudienceStudent.Includes(identity.AudienceBoth))
}

func TestNewActorDropsYearForNonStudents(t *testing.T) {
	dept := int64(3)
	year := 2

	s := identity.NewActor(1, "student", &dept, &year)
	require.Equal(t, identity.RoleStudent, s.Role)
	require.NotNil(t, s.Year)

	st := identity.NewActor(2, "Staff", &dept, &year)
	require.Equal(t, identity.RoleStaff, st.Role)
	require.Nil(t, st.Year)
}

func TestScopeMatches(t *testing.T) {
	dept := int64(3)
	other := int64(4)
	y2, y3 := 2, 3
	scope := identity.Scope{DepartmentID: 3, Audience: identity.AudienceStudent, Year: &y2}

	require.True(t, scope.Matches(identity.NewActor(1, "student", &dept, &y2)))
	require.False(t, scope.Matches(identity.NewActor(2, "student", &dept, &y3)))
	require.False(t, scope.Matches(identity.NewActor(3, "student", &dept, nil)))
	require.False(t, scope.Matches(identity.NewActor(4, "staff", &dept, nil)))
	require.False(t, scope.Matches(identity.NewActor(5, "student", &other, &y2)))

	staff := identity.Scope{DepartmentID: 3, Audience: identity.AudienceStaff}
	require.True(t, staff.Matches(identity.NewActor(6, "Staff", &dept, nil)))
	require.False(t, staff.Matches(identity.NewActor(7, "academic_director", &dept, nil)))

	everyone := identity.Scope{DepartmentID: 3}
	require.True(t, everyone.Matches(identity.NewActor(8, "academic_director", &dept, nil)))
}
