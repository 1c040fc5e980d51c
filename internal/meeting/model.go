package meeting

import (
	"fmt"
	"strings"
	"time"

	"portal/internal/identity"
	"portal/internal/policy"
	"portal/internal/schedule"
)

// Status is the meeting lifecycle state.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// ParseStatus accepts "in-progress", "in_progress" and "In Progress".
func ParseStatus(raw string) (Status, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("_", "-", " ", "-").Replace(s)
	switch Status(s) {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

// CanTransition reports whether s may move to next. Staying put is allowed.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Meeting is a scheduled gathering targeted at a department audience.
type Meeting struct {
	ID           int64             `json:"id"`
	Title        string            `json:"title"`
	Description  *string           `json:"description,omitempty"`
	MeetingDate  schedule.Date     `json:"meetingDate"`
	StartTime    string            `json:"startTime"`
	EndTime      string            `json:"endTime"`
	Location     *string           `json:"location,omitempty"`
	Status       Status            `json:"status"`
	DepartmentID int64             `json:"departmentId"`
	Audience     identity.Audience `json:"role,omitempty"`
	Year         *int              `json:"year,omitempty"`
	CreatedBy    int64             `json:"createdBy"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Target is the projection the visibility rules evaluate.
func (m Meeting) Target() policy.MeetingTarget {
	return policy.MeetingTarget{DepartmentID: m.DepartmentID, Audience: m.Audience, Year: m.Year}
}

// Attendee is one user's registration for a meeting.
type Attendee struct {
	ID                int64      `json:"id"`
	MeetingID         int64      `json:"meetingId"`
	UserID            int64      `json:"userId"`
	Role              string     `json:"role"`
	Attended          bool       `json:"attended"`
	AttendanceTime    *time.Time `json:"attendanceTime,omitempty"`
	FeedbackSubmitted bool       `json:"feedbackSubmitted"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// Registration is a meeting seen through the caller's attendee row.
type Registration struct {
	Meeting
	Attended          bool       `json:"attended"`
	AttendanceTime    *time.Time `json:"attendanceTime,omitempty"`
	FeedbackSubmitted bool       `json:"feedbackSubmitted"`
	AttendeeRole      string     `json:"attendeeRole"`
}

// Attachment describes a file stored alongside meeting minutes.
type Attachment struct {
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	PublicID    string    `json:"publicId,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Minutes records what was discussed in a meeting.
type Minutes struct {
	ID          int64        `json:"id"`
	MeetingID   int64        `json:"meetingId"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
	CreatedBy   int64        `json:"createdBy"`
	UpdatedBy   *int64       `json:"updatedBy,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
