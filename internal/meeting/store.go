package meeting

import (
	"context"
	"io"
	"time"

	"portal/internal/notify"
	"portal/internal/policy"
)

// Store persists meetings, attendees and minutes. Lookups of absent rows
// return apperr not-found errors.
type Store interface {
	CreateMeeting(ctx context.Context, m Meeting) (Meeting, error)
	GetMeeting(ctx context.Context, id int64) (Meeting, error)
	UpdateMeeting(ctx context.Context, m Meeting) (Meeting, error)
	DeleteMeeting(ctx context.Context, id int64) error
	ListMeetings(ctx context.Context, f policy.MeetingFilter) ([]Meeting, error)

	// AddAttendee inserts the row unless the user is unknown or already
	// registered. The check and insert are one atomic step; created is false
	// when the row was skipped.
	AddAttendee(ctx context.Context, a Attendee) (added Attendee, created bool, err error)
	GetAttendee(ctx context.Context, meetingID, userID int64) (Attendee, error)
	MarkAttended(ctx context.Context, meetingID, userID int64, at time.Time) (Attendee, error)
	// MarkFeedbackSubmitted only succeeds on rows already marked attended.
	MarkFeedbackSubmitted(ctx context.Context, meetingID, userID int64) (Attendee, error)
	ListAttendees(ctx context.Context, meetingID int64) ([]Attendee, error)
	ListRegistrations(ctx context.Context, userID int64) ([]Registration, error)

	CreateMinutes(ctx context.Context, m Minutes) (Minutes, error)
	GetMinutes(ctx context.Context, id int64) (Minutes, error)
	UpdateMinutes(ctx context.Context, m Minutes) (Minutes, error)
	DeleteMinutes(ctx context.Context, id int64) error
	ListMinutes(ctx context.Context, meetingID int64) ([]Minutes, error)
}

// Notifier hands an announcement to the delivery pipeline.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notification) error
}

// Upload is a file to be attached to minutes.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AttachmentStore keeps minutes attachments outside the database.
type AttachmentStore interface {
	Upload(ctx context.Context, u Upload) (Attachment, error)
}
