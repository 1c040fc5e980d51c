package question

import (
	"context"
	"time"

	"portal/internal/identity"
	"portal/internal/policy"
)

// Question is a rating prompt targeted at a department audience.
type Question struct {
	ID           int64             `json:"id"`
	Text         string            `json:"text"`
	Audience     identity.Audience `json:"role"`
	DepartmentID int64             `json:"departmentId"`
	Year         *int              `json:"year,omitempty"`
	Active       bool              `json:"active"`
	CreatedBy    int64             `json:"createdBy"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Target is the projection the targeting rules evaluate.
func (q Question) Target() policy.QuestionTarget {
	return policy.QuestionTarget{DepartmentID: q.DepartmentID, Audience: q.Audience, Year: q.Year, Active: q.Active}
}

// Store persists questions. Lookups of absent rows return apperr not-found
// errors.
type Store interface {
	CreateQuestion(ctx context.Context, q Question) (Question, error)
	GetQuestion(ctx context.Context, id int64) (Question, error)
	UpdateQuestion(ctx context.Context, q Question) (Question, error)
	DeleteQuestion(ctx context.Context, id int64) error
	ListQuestions(ctx context.Context, f policy.QuestionFilter) ([]Question, error)
	ListByCreator(ctx context.Context, creatorID int64) ([]Question, error)
}
