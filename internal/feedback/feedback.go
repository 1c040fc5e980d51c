package feedback

import (
	"context"
	"time"
)

// Feedback is one rating given to a question.
type Feedback struct {
	ID          int64     `json:"id"`
	QuestionID  int64     `json:"questionId"`
	MeetingID   *int64    `json:"meetingId,omitempty"`
	UserID      int64     `json:"userId"`
	Rating      int       `json:"rating"`
	Notes       *string   `json:"notes,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Entry is a feedback row with its question text.
type Entry struct {
	Feedback
	QuestionText string `json:"questionText"`
}

// QuestionStats aggregates the ratings of one question.
type QuestionStats struct {
	QuestionID   int64       `json:"questionId"`
	QuestionText string      `json:"questionText"`
	DepartmentID int64       `json:"departmentId"`
	Responses    int         `json:"responses"`
	Average      float64     `json:"averageRating"`
	Distribution map[int]int `json:"distribution"`
}

// Stats is the analytics overview.
type Stats struct {
	TotalResponses int             `json:"totalResponses"`
	AverageRating  float64         `json:"averageRating"`
	Questions      []QuestionStats `json:"questions"`
}

// Store persists feedback.
type Store interface {
	CreateFeedback(ctx context.Context, f Feedback) (Feedback, error)
	ListByUser(ctx context.Context, userID int64) ([]Entry, error)
	ListByQuestion(ctx context.Context, questionID int64) ([]Feedback, error)
	// QuestionStats groups ratings per question, optionally for one
	// department. Distribution holds counts for ratings 1 through 5.
	QuestionStats(ctx context.Context, departmentID *int64) ([]QuestionStats, error)
}
