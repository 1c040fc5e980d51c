// Package memstore keeps every store in process memory. It backs the
// memory store backend and the service tests.
package memstore

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"portal/internal/apperr"
	"portal/internal/feedback"
	"portal/internal/identity"
	"portal/internal/meeting"
	"portal/internal/policy"
	"portal/internal/question"
)

// User is a seeded directory entry.
type User struct {
	ID           int64
	Name         string
	Email        string
	Role         string
	DepartmentID *int64
	Year         *int
}

type attendeeKey struct{ meetingID, userID int64 }

// Store implements the meeting, question and feedback stores plus the
// identity directory.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time
	seq int64

	departments map[int64]string
	users       map[int64]User
	meetings    map[int64]meeting.Meeting
	attendees   map[attendeeKey]meeting.Attendee
	minutes     map[int64]meeting.Minutes
	questions   map[int64]question.Question
	feedback    map[int64]feedback.Feedback
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:         func() time.Time { return time.Now().UTC() },
		departments: map[int64]string{},
		users:       map[int64]User{},
		meetings:    map[int64]meeting.Meeting{},
		attendees:   map[attendeeKey]meeting.Attendee{},
		minutes:     map[int64]meeting.Minutes{},
		questions:   map[int64]question.Question{},
		feedback:    map[int64]feedback.Feedback{},
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// AddDepartment seeds a department and returns its id.
func (s *Store) AddDepartment(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID()
	s.departments[id] = name
	return id
}

// AddUser seeds a user and returns its id. A zero ID is assigned.
func (s *Store) AddUser(u User) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.nextID()
	} else if u.ID > s.seq {
		s.seq = u.ID
	}
	s.users[u.ID] = u
	return u.ID
}

// Directory

func (s *Store) LookupActor(_ context.Context, userID int64) (identity.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return identity.Actor{}, apperr.NotFound("user", userID)
	}
	return identity.NewActor(u.ID, u.Role, u.DepartmentID, u.Year), nil
}

func (s *Store) UserExists(_ context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok, nil
}

func (s *Store) DepartmentExists(_ context.Context, departmentID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.departments[departmentID]
	return ok, nil
}

func (s *Store) DepartmentName(_ context.Context, departmentID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.departments[departmentID]
	if !ok {
		return "", apperr.NotFound("department", departmentID)
	}
	return name, nil
}

func (s *Store) Recipients(_ context.Context, scope identity.Scope) ([]identity.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []identity.Recipient
	for _, u := range s.users {
		if scope.Matches(identity.NewActor(u.ID, u.Role, u.DepartmentID, u.Year)) {
			res = append(res, identity.Recipient{ID: u.ID, Email: u.Email, Name: u.Name})
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// Meetings

func (s *Store) CreateMeeting(_ context.Context, m meeting.Meeting) (meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.departments[m.DepartmentID]; !ok {
		return meeting.Meeting{}, apperr.NotFound("department", m.DepartmentID)
	}
	m.ID = s.nextID()
	m.CreatedAt = s.now()
	m.UpdatedAt = m.CreatedAt
	s.meetings[m.ID] = m
	return m, nil
}

func (s *Store) GetMeeting(_ context.Context, id int64) (meeting.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meetings[id]
	if !ok {
		return meeting.Meeting{}, apperr.NotFound("meeting", id)
	}
	return m, nil
}

func (s *Store) UpdateMeeting(_ context.Context, m meeting.Meeting) (meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.meetings[m.ID]
	if !ok {
		return meeting.Meeting{}, apperr.NotFound("meeting", m.ID)
	}
	m.CreatedAt = prev.CreatedAt
	m.CreatedBy = prev.CreatedBy
	m.UpdatedAt = s.now()
	s.meetings[m.ID] = m
	return m, nil
}

func (s *Store) DeleteMeeting(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[id]; !ok {
		return apperr.NotFound("meeting", id)
	}
	delete(s.meetings, id)
	for k := range s.attendees {
		if k.meetingID == id {
			delete(s.attendees, k)
		}
	}
	for mid, m := range s.minutes {
		if m.MeetingID == id {
			delete(s.minutes, mid)
		}
	}
	for fid, f := range s.feedback {
		if f.MeetingID != nil && *f.MeetingID == id {
			f.MeetingID = nil
			s.feedback[fid] = f
		}
	}
	return nil
}

func (s *Store) ListMeetings(_ context.Context, f policy.MeetingFilter) ([]meeting.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []meeting.Meeting{}
	for _, m := range s.meetings {
		if f.Matches(m.Target()) {
			res = append(res, m)
		}
	}
	sort.Slice(res, func(i, j int) bool { return lessMeeting(res[i], res[j]) })
	return res, nil
}

func lessMeeting(a, b meeting.Meeting) bool {
	if !a.MeetingDate.Equal(b.MeetingDate) {
		return a.MeetingDate.Before(b.MeetingDate)
	}
	if a.StartTime != b.StartTime {
		return a.StartTime < b.StartTime
	}
	return a.ID < b.ID
}

// Attendees

func (s *Store) AddAttendee(_ context.Context, a meeting.Attendee) (meeting.Attendee, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[a.MeetingID]; !ok {
		return meeting.Attendee{}, false, apperr.NotFound("meeting", a.MeetingID)
	}
	if _, ok := s.users[a.UserID]; !ok {
		return meeting.Attendee{}, false, nil
	}
	key := attendeeKey{a.MeetingID, a.UserID}
	if _, ok := s.attendees[key]; ok {
		return meeting.Attendee{}, false, nil
	}
	a.ID = s.nextID()
	a.Attended = false
	a.AttendanceTime = nil
	a.FeedbackSubmitted = false
	a.CreatedAt = s.now()
	s.attendees[key] = a
	return a, true, nil
}

func (s *Store) GetAttendee(_ context.Context, meetingID, userID int64) (meeting.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attendees[attendeeKey{meetingID, userID}]
	if !ok {
		return meeting.Attendee{}, apperr.NotFound("attendee", meetingID)
	}
	return a, nil
}

func (s *Store) MarkAttended(_ context.Context, meetingID, userID int64, at time.Time) (meeting.Attendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attendeeKey{meetingID, userID}
	a, ok := s.attendees[key]
	if !ok {
		return meeting.Attendee{}, apperr.NotFound("attendee", meetingID)
	}
	a.Attended = true
	a.AttendanceTime = &at
	s.attendees[key] = a
	return a, nil
}

func (s *Store) MarkFeedbackSubmitted(_ context.Context, meetingID, userID int64) (meeting.Attendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attendeeKey{meetingID, userID}
	a, ok := s.attendees[key]
	if !ok {
		return meeting.Attendee{}, apperr.NotFound("attendee", meetingID)
	}
	if !a.Attended {
		return meeting.Attendee{}, apperr.InvalidState("must attend the meeting before submitting feedback")
	}
	a.FeedbackSubmitted = true
	s.attendees[key] = a
	return a, nil
}

func (s *Store) ListAttendees(_ context.Context, meetingID int64) ([]meeting.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []meeting.Attendee{}
	for k, a := range s.attendees {
		if k.meetingID == meetingID {
			res = append(res, a)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *Store) ListRegistrations(_ context.Context, userID int64) ([]meeting.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []meeting.Registration{}
	for k, a := range s.attendees {
		if k.userID != userID {
			continue
		}
		m, ok := s.meetings[k.meetingID]
		if !ok {
			continue
		}
		res = append(res, meeting.Registration{
			Meeting:           m,
			Attended:          a.Attended,
			AttendanceTime:    a.AttendanceTime,
			FeedbackSubmitted: a.FeedbackSubmitted,
			AttendeeRole:      a.Role,
		})
	}
	sort.Slice(res, func(i, j int) bool { return lessMeeting(res[i].Meeting, res[j].Meeting) })
	return res, nil
}

// Minutes

func cloneMinutes(m meeting.Minutes) meeting.Minutes {
	m.Attachments = append([]meeting.Attachment{}, m.Attachments...)
	return m
}

func (s *Store) CreateMinutes(_ context.Context, m meeting.Minutes) (meeting.Minutes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[m.MeetingID]; !ok {
		return meeting.Minutes{}, apperr.NotFound("meeting", m.MeetingID)
	}
	m.ID = s.nextID()
	m.CreatedAt = s.now()
	m.UpdatedAt = m.CreatedAt
	m = cloneMinutes(m)
	s.minutes[m.ID] = m
	return cloneMinutes(m), nil
}

func (s *Store) GetMinutes(_ context.Context, id int64) (meeting.Minutes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.minutes[id]
	if !ok {
		return meeting.Minutes{}, apperr.NotFound("minutes", id)
	}
	return cloneMinutes(m), nil
}

func (s *Store) UpdateMinutes(_ context.Context, m meeting.Minutes) (meeting.Minutes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.minutes[m.ID]
	if !ok {
		return meeting.Minutes{}, apperr.NotFound("minutes", m.ID)
	}
	prev.Content = m.Content
	prev.Attachments = m.Attachments
	prev.UpdatedBy = m.UpdatedBy
	prev.UpdatedAt = s.now()
	prev = cloneMinutes(prev)
	s.minutes[m.ID] = prev
	return cloneMinutes(prev), nil
}

func (s *Store) DeleteMinutes(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.minutes[id]; !ok {
		return apperr.NotFound("minutes", id)
	}
	delete(s.minutes, id)
	return nil
}

func (s *Store) ListMinutes(_ context.Context, meetingID int64) ([]meeting.Minutes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []meeting.Minutes{}
	for _, m := range s.minutes {
		if m.MeetingID == meetingID {
			res = append(res, cloneMinutes(m))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

// Questions

func (s *Store) CreateQuestion(_ context.Context, q question.Question) (question.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.departments[q.DepartmentID]; !ok {
		return question.Question{}, apperr.NotFound("department", q.DepartmentID)
	}
	q.ID = s.nextID()
	q.CreatedAt = s.now()
	q.UpdatedAt = q.CreatedAt
	s.questions[q.ID] = q
	return q, nil
}

func (s *Store) GetQuestion(_ context.Context, id int64) (question.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return question.Question{}, apperr.NotFound("question", id)
	}
	return q, nil
}

func (s *Store) UpdateQuestion(_ context.Context, q question.Question) (question.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.questions[q.ID]
	if !ok {
		return question.Question{}, apperr.NotFound("question", q.ID)
	}
	q.CreatedAt = prev.CreatedAt
	q.CreatedBy = prev.CreatedBy
	q.UpdatedAt = s.now()
	s.questions[q.ID] = q
	return q, nil
}

func (s *Store) DeleteQuestion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return apperr.NotFound("question", id)
	}
	delete(s.questions, id)
	for fid, f := range s.feedback {
		if f.QuestionID == id {
			delete(s.feedback, fid)
		}
	}
	return nil
}

func (s *Store) ListQuestions(_ context.Context, f policy.QuestionFilter) ([]question.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []question.Question{}
	for _, q := range s.questions {
		if f.Matches(q.Target()) {
			res = append(res, q)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *Store) ListByCreator(_ context.Context, creatorID int64) ([]question.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []question.Question{}
	for _, q := range s.questions {
		if q.CreatedBy == creatorID {
			res = append(res, q)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

// Feedback

func (s *Store) CreateFeedback(_ context.Context, f feedback.Feedback) (feedback.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[f.QuestionID]; !ok {
		return feedback.Feedback{}, apperr.NotFound("question", f.QuestionID)
	}
	if f.Rating < 1 || f.Rating > 5 {
		return feedback.Feedback{}, apperr.Validation("rating", "rating must be between 1 and 5")
	}
	f.ID = s.nextID()
	f.SubmittedAt = s.now()
	s.feedback[f.ID] = f
	return f, nil
}

func (s *Store) ListByUser(_ context.Context, userID int64) ([]feedback.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []feedback.Entry{}
	for _, f := range s.feedback {
		if f.UserID == userID {
			res = append(res, feedback.Entry{Feedback: f, QuestionText: s.questions[f.QuestionID].Text})
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

func (s *Store) ListByQuestion(_ context.Context, questionID int64) ([]feedback.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []feedback.Feedback{}
	for _, f := range s.feedback {
		if f.QuestionID == questionID {
			res = append(res, f)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

func (s *Store) QuestionStats(_ context.Context, departmentID *int64) ([]feedback.QuestionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byQuestion := map[int64]*feedback.QuestionStats{}
	sums := map[int64]int{}
	for _, q := range s.questions {
		if departmentID != nil && q.DepartmentID != *departmentID {
			continue
		}
		byQuestion[q.ID] = &feedback.QuestionStats{
			QuestionID:   q.ID,
			QuestionText: q.Text,
			DepartmentID: q.DepartmentID,
			Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		}
	}
	for _, f := range s.feedback {
		qs, ok := byQuestion[f.QuestionID]
		if !ok {
			continue
		}
		qs.Responses++
		qs.Distribution[f.Rating]++
		sums[f.QuestionID] += f.Rating
	}
	res := make([]feedback.QuestionStats, 0, len(byQuestion))
	for id, qs := range byQuestion {
		if qs.Responses > 0 {
			qs.Average = math.Round(float64(sums[id])/float64(qs.Responses)*100) / 100
		}
		res = append(res, *qs)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].QuestionID < res[j].QuestionID })
	return res, nil
}

var (
	_ identity.Directory = (*Store)(nil)
	_ meeting.Store      = (*Store)(nil)
	_ question.Store     = (*Store)(nil)
	_ feedback.Store     = (*Store)(nil)
)
