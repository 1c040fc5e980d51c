package identity

import (
	"fmt"
	"strconv"
	"strings"
)

// Role is the single primary role used for every authorization decision.
type Role int

const (
	RoleUnknown Role = iota
	RoleStudent
	RoleStaff
	RoleAcademicDirector
	RoleExecutiveDirector
)

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "student"
	case RoleStaff:
		return "staff"
	case RoleAcademicDirector:
		return "academic_director"
	case RoleExecutiveDirector:
		return "executive_director"
	default:
		return "unknown"
	}
}

// IsDirector reports whether r is one of the two director roles.
func (r Role) IsDirector() bool {
	return r == RoleAcademicDirector || r == RoleExecutiveDirector
}

// MarshalText encodes the canonical role name.
func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// ParseRole normalizes a stored or token role name into the canonical enum.
// Separators and case are ignored, so "academic_director", "Academic-Director"
// and "ACADEMICDIRECTOR" all resolve to RoleAcademicDirector. Unmatched names
// resolve to RoleUnknown.
func ParseRole(raw string) Role {
	key := squash(raw)
	switch key {
	case "student", "students":
		return RoleStudent
	case "staff", "faculty", "teacher":
		return RoleStaff
	case "academicdirector", "ad":
		return RoleAcademicDirector
	case "executivedirector", "ed":
		return RoleExecutiveDirector
	}
	return RoleUnknown
}

func squash(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch r {
		case '_', '-', ' ', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Audience is the targeting tag carried by meetings and questions.
// The zero value means no restriction.
type Audience string

const (
	AudienceAny     Audience = ""
	AudienceStudent Audience = "student"
	AudienceStaff   Audience = "staff"
	AudienceBoth    Audience = "both"
)

// ParseAudience accepts the textual tags case-insensitively. The legacy
// numeric encoding (1 student, 2 staff, 3 both) is accepted here so request
// payloads from older clients keep working; it never travels further.
func ParseAudience(raw string) (Audience, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "student", "students":
		return AudienceStudent, nil
	case "staff":
		return AudienceStaff, nil
	case "both":
		return AudienceBoth, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return AudienceFromRoleID(n)
	}
	return AudienceAny, fmt.Errorf("unknown audience %q", raw)
}

// RoleID is the numeric column encoding used by the persistence schema.
func (a Audience) RoleID() int {
	switch a {
	case AudienceStudent:
		return 1
	case AudienceStaff:
		return 2
	case AudienceBoth:
		return 3
	default:
		return 0
	}
}

// AudienceFromRoleID decodes the numeric column encoding. Zero is AudienceAny.
func AudienceFromRoleID(id int) (Audience, error) {
	switch id {
	case 0:
		return AudienceAny, nil
	case 1:
		return AudienceStudent, nil
	case 2:
		return AudienceStaff, nil
	case 3:
		return AudienceBoth, nil
	}
	return AudienceAny, fmt.Errorf("unknown role id %d", id)
}

// Includes reports whether a listing for want should see an item tagged a.
// "both" matches student and staff listings.
func (a Audience) Includes(want Audience) bool {
	if a == want {
		return true
	}
	return a == AudienceBoth && (want == AudienceStudent || want == AudienceStaff)
}

// AudienceOf maps a primary role onto the audience it belongs to.
func AudienceOf(r Role) Audience {
	switch r {
	case RoleStudent:
		return AudienceStudent
	case RoleStaff:
		return AudienceStaff
	}
	return AudienceAny
}
