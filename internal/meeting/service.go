package meeting

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"portal/internal/apperr"
	"portal/internal/identity"
	"portal/internal/logger"
	"portal/internal/metrics"
	"portal/internal/notify"
	"portal/internal/policy"
	"portal/internal/schedule"
	"portal/internal/validate"
)

// Options tune a Service. Zero values pick defaults.
type Options struct {
	Location      *time.Location
	Now           func() time.Time
	NotifyTimeout time.Duration
	Attachments   AttachmentStore
	Logger        *zerolog.Logger
}

// Service runs the meeting lifecycle, attendee state machine and minutes.
type Service struct {
	store         Store
	dir           identity.Directory
	notifier      Notifier
	files         AttachmentStore
	loc           *time.Location
	now           func() time.Time
	notifyTimeout time.Duration
	log           zerolog.Logger

	pending sync.WaitGroup
}

// NewService wires a meeting service. notifier may be nil.
func NewService(store Store, dir identity.Directory, notifier Notifier, opts Options) *Service {
	s := &Service{
		store:         store,
		dir:           dir,
		notifier:      notifier,
		files:         opts.Attachments,
		loc:           opts.Location,
		now:           opts.Now,
		notifyTimeout: opts.NotifyTimeout,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.notifyTimeout <= 0 {
		s.notifyTimeout = 30 * time.Second
	}
	if opts.Logger != nil {
		s.log = *opts.Logger
	} else {
		s.log = logger.With("meeting")
	}
	return s
}

// Wait blocks until every in-flight announcement has been handed off.
func (s *Service) Wait() { s.pending.Wait() }

// CreateInput is the payload of CreateMeeting. Role also accepts the legacy
// numeric roleId.
type CreateInput struct {
	Title        string  `json:"title" validate:"notblank"`
	Description  *string `json:"description"`
	MeetingDate  string  `json:"meetingDate" validate:"notblank"`
	StartTime    string  `json:"startTime" validate:"notblank"`
	EndTime      string  `json:"endTime" validate:"notblank"`
	Location     *string `json:"location"`
	DepartmentID *int64  `json:"departmentId" validate:"required"`
	Role         string  `json:"role" validate:"notblank"`
	RoleID       *int    `json:"roleId,omitempty" validate:"-"`
	Year         *int    `json:"year"`
}

// CreateMeeting persists a scheduled meeting and announces it in the
// background. The announcement never affects the result.
func (s *Service) CreateMeeting(ctx context.Context, actor identity.Actor, in CreateInput) (Meeting, error) {
	if err := policy.CanCreateMeeting(actor); err != nil {
		return Meeting{}, err
	}
	if strings.TrimSpace(in.Role) == "" && in.RoleID != nil {
		in.Role = strconv.Itoa(*in.RoleID)
	}
	if err := validate.Struct(in); err != nil {
		return Meeting{}, err
	}

	m := Meeting{
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Location:     in.Location,
		Status:       StatusScheduled,
		DepartmentID: *in.DepartmentID,
		Year:         in.Year,
		CreatedBy:    actor.ID,
	}
	var err error
	if m.MeetingDate, err = schedule.ParseDate(in.MeetingDate); err != nil {
		return Meeting{}, apperr.Validation("meetingDate", err.Error())
	}
	if m.StartTime, m.EndTime, err = parseTimes(in.StartTime, in.EndTime); err != nil {
		return Meeting{}, err
	}
	if m.Audience, err = parseMeetingAudience(in.Role); err != nil {
		return Meeting{}, err
	}
	if err := checkYear(m.Audience, m.Year); err != nil {
		return Meeting{}, err
	}
	if err := s.requireDepartment(ctx, m.DepartmentID); err != nil {
		return Meeting{}, err
	}

	created, err := s.store.CreateMeeting(ctx, m)
	if err != nil {
		return Meeting{}, err
	}
	metrics.MeetingsCreated.Inc()
	s.log.Info().Int64("meeting_id", created.ID).Int64("actor", actor.ID).Msg("meeting created")

	s.announce(created)
	return created, nil
}

// announce notifies everyone the new meeting is visible to. It runs detached
// from the request so a slow or failing mail path cannot delay or fail it.
func (s *Service) announce(m Meeting) {
	if s.notifier == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		log := s.log.With().Int64("meeting_id", m.ID).Logger()
		n, err := s.buildAnnouncement(ctx, m)
		if err != nil {
			log.Error().Err(err).Msg("prepare meeting announcement")
			return
		}
		if len(n.Recipients) == 0 {
			log.Debug().Msg("no recipients for meeting announcement")
			return
		}
		if err := s.notifier.Notify(ctx, n); err != nil {
			metrics.Notifications.WithLabelValues("failed").Inc()
			log.Error().Err(err).Msg("dispatch meeting announcement")
			return
		}
		log.Info().Int("recipients", len(n.Recipients)).Msg("meeting announcement queued")
	}()
}

func (s *Service) buildAnnouncement(ctx context.Context, m Meeting) (notify.Notification, error) {
	users, err := s.dir.Recipients(ctx, identity.Scope{DepartmentID: m.DepartmentID, Audience: m.Audience, Year: m.Year})
	if err != nil {
		return notify.Notification{}, err
	}
	to := make([]notify.Recipient, 0, len(users))
	for _, u := range users {
		if u.Email == "" {
			continue
		}
		to = append(to, notify.Recipient{Email: u.Email, Name: u.Name})
	}
	if len(to) == 0 {
		return notify.Notification{}, nil
	}

	dept, err := s.dir.DepartmentName(ctx, m.DepartmentID)
	if err != nil {
		s.log.Warn().Err(err).Int64("department_id", m.DepartmentID).Msg("department name lookup failed")
	}
	return notify.RenderMeetingAnnouncement(notify.MeetingAnnouncement{
		Title:       m.Title,
		Description: deref(m.Description),
		Date:        m.MeetingDate.String(),
		StartTime:   m.StartTime,
		EndTime:     m.EndTime,
		Location:    deref(m.Location),
		Department:  dept,
	}, to)
}

// UpdateInput carries the fields to change. Nil fields are left alone.
type UpdateInput struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	MeetingDate  *string `json:"meetingDate"`
	StartTime    *string `json:"startTime"`
	EndTime      *string `json:"endTime"`
	Location     *string `json:"location"`
	Status       *string `json:"status"`
	DepartmentID *int64  `json:"departmentId"`
	Role         *string `json:"role"`
	Year         *int    `json:"year"`
}

// UpdateMeeting applies a partial update. The year/role pairing is checked
// against the resulting meeting; moving a meeting away from students without
// naming a year drops the stale year.
func (s *Service) UpdateMeeting(ctx context.Context, actor identity.Actor, id int64, in UpdateInput) (Meeting, error) {
	if err := policy.CanMutateMeeting(actor); err != nil {
		return Meeting{}, err
	}
	m, err := s.store.GetMeeting(ctx, id)
	if err != nil {
		return Meeting{}, err
	}

	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return Meeting{}, apperr.Missing("title")
		}
		m.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		m.Description = in.Description
	}
	if in.Location != nil {
		m.Location = in.Location
	}
	if in.MeetingDate != nil {
		if m.MeetingDate, err = schedule.ParseDate(*in.MeetingDate); err != nil {
			return Meeting{}, apperr.Validation("meetingDate", err.Error())
		}
	}
	if in.StartTime != nil || in.EndTime != nil {
		start, end := m.StartTime, m.EndTime
		if in.StartTime != nil {
			start = *in.StartTime
		}
		if in.EndTime != nil {
			end = *in.EndTime
		}
		if m.StartTime, m.EndTime, err = parseTimes(start, end); err != nil {
			return Meeting{}, err
		}
	}
	if in.Status != nil {
		next, err := ParseStatus(*in.Status)
		if err != nil {
			return Meeting{}, apperr.Validation("status", err.Error())
		}
		if !m.Status.CanTransition(next) {
			return Meeting{}, apperr.InvalidState("cannot move meeting from " + string(m.Status) + " to " + string(next))
		}
		m.Status = next
	}
	if in.DepartmentID != nil && *in.DepartmentID != m.DepartmentID {
		if err := s.requireDepartment(ctx, *in.DepartmentID); err != nil {
			return Meeting{}, err
		}
		m.DepartmentID = *in.DepartmentID
	}
	if in.Role != nil {
		if m.Audience, err = parseMeetingAudience(*in.Role); err != nil {
			return Meeting{}, err
		}
		if m.Audience != identity.AudienceStudent && in.Year == nil {
			m.Year = nil
		}
	}
	if in.Year != nil {
		m.Year = in.Year
	}
	if err := checkYear(m.Audience, m.Year); err != nil {
		return Meeting{}, err
	}

	updated, err := s.store.UpdateMeeting(ctx, m)
	if err != nil {
		return Meeting{}, err
	}
	s.log.Info().Int64("meeting_id", id).Int64("actor", actor.ID).Msg("meeting updated")
	return updated, nil
}

// DeleteMeeting removes a meeting with its attendees and minutes.
func (s *Service) DeleteMeeting(ctx context.Context, actor identity.Actor, id int64) error {
	if err := policy.CanMutateMeeting(actor); err != nil {
		return err
	}
	if _, err := s.store.GetMeeting(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteMeeting(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("meeting_id", id).Int64("actor", actor.ID).Msg("meeting deleted")
	return nil
}

// GetMeeting returns a meeting the actor may see. Meetings outside the
// actor's visibility are reported as absent.
func (s *Service) GetMeeting(ctx context.Context, actor identity.Actor, id int64) (Meeting, error) {
	m, err := s.store.GetMeeting(ctx, id)
	if err != nil {
		return Meeting{}, err
	}
	if policy.MeetingListFilter(actor).Matches(m.Target()) {
		return m, nil
	}
	registered, err := s.isRegistered(ctx, id, actor.ID)
	if err != nil {
		return Meeting{}, err
	}
	if !policy.CanViewMeeting(actor, m.Target(), registered) {
		return Meeting{}, apperr.NotFound("meeting", id)
	}
	return m, nil
}

func (s *Service) isRegistered(ctx context.Context, meetingID, userID int64) (bool, error) {
	_, err := s.store.GetAttendee(ctx, meetingID, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperr.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// ListAll returns every meeting visible to the actor as one flat list.
func (s *Service) ListAll(ctx context.Context, actor identity.Actor) ([]Meeting, error) {
	return s.store.ListMeetings(ctx, policy.MeetingListFilter(actor))
}

// ListForActor returns the actor's visible meetings split by calendar day.
func (s *Service) ListForActor(ctx context.Context, actor identity.Actor) (schedule.Buckets[Meeting], error) {
	ms, err := s.store.ListMeetings(ctx, policy.MeetingListFilter(actor))
	if err != nil {
		return schedule.Buckets[Meeting]{}, err
	}
	return s.categorize(ms), nil
}

// ListByDepartment narrows the actor's view to one department and optionally
// one year. Meetings without a year stay visible in a year view.
func (s *Service) ListByDepartment(ctx context.Context, actor identity.Actor, departmentID int64, year *int) (schedule.Buckets[Meeting], error) {
	f := policy.MeetingListFilter(actor).WithinDepartment(departmentID, year)
	ms, err := s.store.ListMeetings(ctx, f)
	if err != nil {
		return schedule.Buckets[Meeting]{}, err
	}
	return s.categorize(ms), nil
}

func (s *Service) categorize(ms []Meeting) schedule.Buckets[Meeting] {
	return schedule.Categorize(ms, func(m Meeting) time.Time { return m.MeetingDate.In(s.loc) }, s.now(), s.loc)
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

// parseMeetingAudience accepts only the two meeting audiences.
func parseMeetingAudience(raw string) (identity.Audience, error) {
	a, err := identity.ParseAudience(raw)
	if err != nil {
		return identity.AudienceAny, apperr.Validation("role", err.Error())
	}
	if a != identity.AudienceStudent && a != identity.AudienceStaff {
		return identity.AudienceAny, apperr.Validation("role", "role must be student or staff")
	}
	return a, nil
}

// checkYear enforces that year is set exactly for student meetings.
func checkYear(a identity.Audience, year *int) error {
	if a == identity.AudienceStudent {
		if year == nil {
			return apperr.Missing("year")
		}
		if *year < 1 {
			return apperr.Validation("year", "year must be positive")
		}
		return nil
	}
	if year != nil {
		return apperr.Validation("year", "year is only allowed for student meetings")
	}
	return nil
}

func parseTimes(start, end string) (string, string, error) {
	s, err := schedule.ParseClock(start)
	if err != nil {
		return "", "", apperr.Validation("startTime", err.Error())
	}
	e, err := schedule.ParseClock(end)
	if err != nil {
		return "", "", apperr.Validation("endTime", err.Error())
	}
	if e < s {
		return "", "", apperr.Validation("endTime", "endTime must not be before startTime")
	}
	return s, e, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
