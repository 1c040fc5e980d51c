package feedback

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"portal/internal/identity"
	"portal/internal/logger"
	"portal/internal/meeting"
	"portal/internal/metrics"
	"portal/internal/policy"
	"portal/internal/question"
	"portal/internal/validate"
)

// Questions resolves the questions an actor may answer.
type Questions interface {
	Visible(ctx context.Context, actor identity.Actor, id int64) (question.Question, error)
	Get(ctx context.Context, id int64) (question.Question, error)
}

// Attendance advances the attendee state machine.
type Attendance interface {
	MarkFeedbackSubmitted(ctx context.Context, actor identity.Actor, meetingID int64) (meeting.Attendee, error)
}

// Service records and aggregates feedback.
type Service struct {
	store      Store
	questions  Questions
	attendance Attendance
	log        zerolog.Logger
}

// NewService wires the feedback service.
func NewService(store Store, questions Questions, attendance Attendance) *Service {
	return &Service{store: store, questions: questions, attendance: attendance, log: logger.With("feedback")}
}

// SubmitInput is one rating.
type SubmitInput struct {
	QuestionID *int64  `json:"questionId" validate:"required"`
	MeetingID  *int64  `json:"meetingId"`
	Rating     int     `json:"rating" validate:"required,gte=1,lte=5"`
	Notes      *string `json:"notes"`
}

// Submit stores a rating for a question that applies to the actor. When the
// rating is tied to a meeting, the actor's registration must already be
// marked attended and is flagged as having submitted feedback.
func (s *Service) Submit(ctx context.Context, actor identity.Actor, in SubmitInput) (Feedback, error) {
	if err := validate.Struct(in); err != nil {
		return Feedback{}, err
	}
	if _, err := s.questions.Visible(ctx, actor, *in.QuestionID); err != nil {
		return Feedback{}, err
	}
	if in.MeetingID != nil {
		if _, err := s.attendance.MarkFeedbackSubmitted(ctx, actor, *in.MeetingID); err != nil {
			return Feedback{}, err
		}
	}
	f, err := s.store.CreateFeedback(ctx, Feedback{
		QuestionID: *in.QuestionID,
		MeetingID:  in.MeetingID,
		UserID:     actor.ID,
		Rating:     in.Rating,
		Notes:      in.Notes,
	})
	if err != nil {
		return Feedback{}, err
	}
	metrics.FeedbackSubmitted.Inc()
	s.log.Debug().Int64("feedback_id", f.ID).Int64("question_id", f.QuestionID).Int64("actor", actor.ID).Msg("feedback stored")
	return f, nil
}

// MyFeedback lists the actor's own submissions.
func (s *Service) MyFeedback(ctx context.Context, actor identity.Actor) ([]Entry, error) {
	return s.store.ListByUser(ctx, actor.ID)
}

// ByQuestion lists every rating of a question for directors.
func (s *Service) ByQuestion(ctx context.Context, actor identity.Actor, questionID int64) ([]Feedback, error) {
	if err := policy.CanViewAnalytics(actor); err != nil {
		return nil, err
	}
	if _, err := s.questions.Get(ctx, questionID); err != nil {
		return nil, err
	}
	return s.store.ListByQuestion(ctx, questionID)
}

// Stats aggregates ratings per question and overall for directors.
func (s *Service) Stats(ctx context.Context, actor identity.Actor, departmentID *int64) (Stats, error) {
	if err := policy.CanViewAnalytics(actor); err != nil {
		return Stats{}, err
	}
	qs, err := s.store.QuestionStats(ctx, departmentID)
	if err != nil {
		return Stats{}, err
	}
	out := Stats{Questions: qs}
	var sum float64
	for _, q := range qs {
		out.TotalResponses += q.Responses
		sum += q.Average * float64(q.Responses)
	}
	if out.TotalResponses > 0 {
		out.AverageRating = round2(sum / float64(out.TotalResponses))
	}
	return out, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
