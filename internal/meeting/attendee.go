package meeting

import (
	"context"
	"errors"
	"strings"
	"time"

	"portal/internal/apperr"
	"portal/internal/identity"
	"portal/internal/metrics"
	"portal/internal/policy"
	"portal/internal/schedule"
	"portal/internal/validate"
)

// AddAttendeesInput registers users for a meeting under one role.
type AddAttendeesInput struct {
	MeetingID *int64  `json:"meetingId" validate:"required"`
	UserIDs   []int64 `json:"userIds" validate:"required,min=1"`
	Role      string  `json:"role" validate:"notblank"`
}

// AddAttendees registers each user once. Unknown users and existing
// registrations are skipped; only the rows created by this call are returned.
func (s *Service) AddAttendees(ctx context.Context, actor identity.Actor, in AddAttendeesInput) ([]Attendee, error) {
	if err := policy.CanManageAttendees(actor); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	role, err := identity.ParseAudience(in.Role)
	if err != nil || (role != identity.AudienceStudent && role != identity.AudienceStaff) {
		return nil, apperr.Validation("role", "role must be student or staff")
	}
	meetingID := *in.MeetingID
	if _, err := s.store.GetMeeting(ctx, meetingID); err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(in.UserIDs))
	added := make([]Attendee, 0, len(in.UserIDs))
	for _, uid := range in.UserIDs {
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}

		a, created, err := s.store.AddAttendee(ctx, Attendee{
			MeetingID: meetingID,
			UserID:    uid,
			Role:      strings.ToLower(string(role)),
		})
		if err != nil {
			return nil, err
		}
		if created {
			added = append(added, a)
		}
	}
	metrics.AttendeesAdded.Add(float64(len(added)))
	s.log.Info().Int64("meeting_id", meetingID).Int("requested", len(in.UserIDs)).Int("added", len(added)).Msg("attendees added")
	return added, nil
}

// ListAttendees returns a meeting's registrations to directors.
func (s *Service) ListAttendees(ctx context.Context, actor identity.Actor, meetingID int64) ([]Attendee, error) {
	if err := policy.CanManageAttendees(actor); err != nil {
		return nil, err
	}
	if _, err := s.store.GetMeeting(ctx, meetingID); err != nil {
		return nil, err
	}
	return s.store.ListAttendees(ctx, meetingID)
}

// MarkAttendance records that the actor attended. Repeating it refreshes the
// attendance time.
func (s *Service) MarkAttendance(ctx context.Context, actor identity.Actor, meetingID int64) (Attendee, error) {
	if _, err := s.store.GetMeeting(ctx, meetingID); err != nil {
		return Attendee{}, err
	}
	a, err := s.store.MarkAttended(ctx, meetingID, actor.ID, s.now().UTC())
	if err != nil {
		return Attendee{}, notRegistered(err, meetingID)
	}
	metrics.AttendanceMarked.Inc()
	return a, nil
}

// MarkFeedbackSubmitted flags the actor's registration once they attended.
func (s *Service) MarkFeedbackSubmitted(ctx context.Context, actor identity.Actor, meetingID int64) (Attendee, error) {
	a, err := s.store.GetAttendee(ctx, meetingID, actor.ID)
	if err != nil {
		return Attendee{}, notRegistered(err, meetingID)
	}
	if !a.Attended {
		return Attendee{}, apperr.InvalidState("must attend the meeting before submitting feedback")
	}
	return s.store.MarkFeedbackSubmitted(ctx, meetingID, actor.ID)
}

// ListMyAttendance returns the actor's registrations split by calendar day.
func (s *Service) ListMyAttendance(ctx context.Context, actor identity.Actor) (schedule.Buckets[Registration], error) {
	regs, err := s.store.ListRegistrations(ctx, actor.ID)
	if err != nil {
		return schedule.Buckets[Registration]{}, err
	}
	return schedule.Categorize(regs, func(r Registration) time.Time { return r.MeetingDate.In(s.loc) }, s.now(), s.loc), nil
}

func notRegistered(err error, meetingID int64) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NotFoundMsg("attendee", meetingID, "not registered for this meeting")
	}
	return err
}
