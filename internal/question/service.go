package question

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"portal/internal/apperr"
	"portal/internal/identity"
	"portal/internal/logger"
	"portal/internal/policy"
	"portal/internal/validate"
)

// Service validates question authoring and resolves question targeting.
type Service struct {
	store Store
	dir   identity.Directory
	log   zerolog.Logger
}

// NewService creates a service backed by a store.
func NewService(store Store, dir identity.Directory) *Service {
	return &Service{store: store, dir: dir, log: logger.With("question")}
}

// CreateInput is the payload of Create. Role defaults to "both" and also
// accepts the legacy numeric roleId.
type CreateInput struct {
	Text         string `json:"text" validate:"notblank"`
	DepartmentID *int64 `json:"departmentId" validate:"required"`
	Role         string `json:"role"`
	RoleID       *int   `json:"roleId,omitempty"`
	Year         *int   `json:"year"`
	Active       *bool  `json:"active"`
}

// Create stores a question authored by a director.
func (s *Service) Create(ctx context.Context, actor identity.Actor, in CreateInput) (Question, error) {
	if err := policy.CanAuthorQuestions(actor); err != nil {
		return Question{}, err
	}
	if err := validate.Struct(in); err != nil {
		return Question{}, err
	}
	raw := in.Role
	if strings.TrimSpace(raw) == "" && in.RoleID != nil {
		raw = strconv.Itoa(*in.RoleID)
	}
	audience, err := parseAudience(raw)
	if err != nil {
		return Question{}, err
	}
	q := Question{
		Text:         strings.TrimSpace(in.Text),
		Audience:     audience,
		DepartmentID: *in.DepartmentID,
		Active:       true,
		CreatedBy:    actor.ID,
	}
	if in.Active != nil {
		q.Active = *in.Active
	}
	// A year on a non-student question is dropped rather than rejected.
	if audience == identity.AudienceStudent {
		q.Year = in.Year
	}
	if err := checkYear(q); err != nil {
		return Question{}, err
	}
	if err := s.requireDepartment(ctx, q.DepartmentID); err != nil {
		return Question{}, err
	}

	created, err := s.store.CreateQuestion(ctx, q)
	if err != nil {
		return Question{}, err
	}
	s.log.Info().Int64("question_id", created.ID).Int64("actor", actor.ID).Msg("question created")
	return created, nil
}

// UpdateInput carries the fields to change. Nil fields are left alone.
type UpdateInput struct {
	Text         *string `json:"text"`
	DepartmentID *int64  `json:"departmentId"`
	Role         *string `json:"role"`
	Year         *int    `json:"year"`
	Active       *bool   `json:"active"`
}

// Update applies a partial change and re-checks the year/role pairing.
func (s *Service) Update(ctx context.Context, actor identity.Actor, id int64, in UpdateInput) (Question, error) {
	if err := policy.CanAuthorQuestions(actor); err != nil {
		return Question{}, err
	}
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return Question{}, err
	}
	if in.Text != nil {
		if strings.TrimSpace(*in.Text) == "" {
			return Question{}, apperr.Missing("text")
		}
		q.Text = strings.TrimSpace(*in.Text)
	}
	if in.DepartmentID != nil && *in.DepartmentID != q.DepartmentID {
		if err := s.requireDepartment(ctx, *in.DepartmentID); err != nil {
			return Question{}, err
		}
		q.DepartmentID = *in.DepartmentID
	}
	if in.Role != nil {
		if q.Audience, err = parseAudience(*in.Role); err != nil {
			return Question{}, err
		}
	}
	if in.Year != nil {
		q.Year = in.Year
	}
	if q.Audience != identity.AudienceStudent {
		q.Year = nil
	}
	if in.Active != nil {
		q.Active = *in.Active
	}
	if err := checkYear(q); err != nil {
		return Question{}, err
	}
	return s.store.UpdateQuestion(ctx, q)
}

// Delete removes a question and its feedback.
func (s *Service) Delete(ctx context.Context, actor identity.Actor, id int64) error {
	if err := policy.CanAuthorQuestions(actor); err != nil {
		return err
	}
	if _, err := s.store.GetQuestion(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteQuestion(ctx, id)
}

// List returns the active questions that apply to the actor.
func (s *Service) List(ctx context.Context, actor identity.Actor) ([]Question, error) {
	return s.store.ListQuestions(ctx, policy.QuestionListFilter(actor))
}

// Visible returns one question if it applies to the actor.
func (s *Service) Visible(ctx context.Context, actor identity.Actor, id int64) (Question, error) {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return Question{}, err
	}
	if !policy.QuestionListFilter(actor).Matches(q.Target()) {
		return Question{}, apperr.NotFound("question", id)
	}
	return q, nil
}

// Get returns a question regardless of targeting.
func (s *Service) Get(ctx context.Context, id int64) (Question, error) {
	return s.store.GetQuestion(ctx, id)
}

// ByDepartment is the department browse view. It does not depend on who
// asks. role may be empty, "student" or "staff".
func (s *Service) ByDepartment(ctx context.Context, departmentID int64, year *int, role string) ([]Question, error) {
	audience := identity.AudienceAny
	if strings.TrimSpace(role) != "" {
		a, err := identity.ParseAudience(role)
		if err != nil {
			return nil, apperr.Validation("role", err.Error())
		}
		audience = a
	}
	return s.store.ListQuestions(ctx, policy.QuestionBrowseFilter(departmentID, year, audience))
}

// ListByCreator returns every question a user authored, active or not.
func (s *Service) ListByCreator(ctx context.Context, actor identity.Actor, creatorID int64) ([]Question, error) {
	if actor.ID != creatorID {
		if err := policy.CanAuthorQuestions(actor); err != nil {
			return nil, err
		}
	}
	return s.store.ListByCreator(ctx, creatorID)
}

func (s *Service) requireDepartment(ctx context.Context, id int64) error {
	ok, err := s.dir.DepartmentExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("department", id)
	}
	return nil
}

func parseAudience(raw string) (identity.Audience, error) {
	if strings.TrimSpace(raw) == "" {
		return identity.AudienceBoth, nil
	}
	a, err := identity.ParseAudience(raw)
	if err != nil || a == identity.AudienceAny {
		return identity.AudienceAny, apperr.Validation("role", "role must be one of student, staff, both")
	}
	return a, nil
}

func checkYear(q Question) error {
	if q.Audience != identity.AudienceStudent {
		return nil
	}
	if q.Year == nil {
		return apperr.Missing("year")
	}
	if *q.Year < 1 {
		return apperr.Validation("year", "year must be positive")
	}
	return nil
}
