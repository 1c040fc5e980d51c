package meeting

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"portal/internal/apperr"
	"portal/internal/identity"
	"portal/internal/policy"
	"portal/internal/store"
)

// Repository persists meetings, attendees and minutes in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const meetingColumns = `m.id, m.title, m.description, m.meeting_date, m.start_time, m.end_time, m.location,
	m.status, m.department_id, m.role_id, m.year, m.created_by, m.created_at, m.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner, extra ...any) (Meeting, error) {
	var (
		m      Meeting
		roleID *int
	)
	dest := append([]any{
		&m.ID, &m.Title, &m.Description, &m.MeetingDate, &m.StartTime, &m.EndTime, &m.Location,
		&m.Status, &m.DepartmentID, &roleID, &m.Year, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Meeting{}, err
	}
	if roleID != nil {
		a, err := identity.AudienceFromRoleID(*roleID)
		if err != nil {
			return Meeting{}, fmt.Errorf("meeting %d: %w", m.ID, err)
		}
		m.Audience = a
	}
	return m, nil
}

func roleIDArg(a identity.Audience) any {
	if id := a.RoleID(); id != 0 {
		return id
	}
	return nil
}

// CreateMeeting inserts m and returns the stored row.
func (r *Repository) CreateMeeting(ctx context.Context, m Meeting) (Meeting, error) {
	row := r.db.QueryRowContext(ctx, `
		WITH m AS (
			INSERT INTO meetings (title, description, meeting_date, start_time, end_time, location,
				status, department_id, role_id, year, created_by)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			RETURNING *
		)
		SELECT `+meetingColumns+` FROM m
	`, m.Title, m.Description, m.MeetingDate, m.StartTime, m.EndTime, m.Location,
		m.Status, m.DepartmentID, roleIDArg(m.Audience), m.Year, m.CreatedBy)
	out, err := scanMeeting(row)
	if err != nil {
		return Meeting{}, store.Translate(err)
	}
	return out, nil
}

// GetMeeting returns a single meeting by id.
func (r *Repository) GetMeeting(ctx context.Context, id int64) (Meeting, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings m WHERE m.id = $1`, id)
	m, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Meeting{}, apperr.NotFound("meeting", id)
	}
	return m, err
}

// UpdateMeeting overwrites every mutable column of m.
func (r *Repository) UpdateMeeting(ctx context.Context, m Meeting) (Meeting, error) {
	row := r.db.QueryRowContext(ctx, `
		WITH m AS (
			UPDATE meetings SET
				title = $2, description = $3, meeting_date = $4, start_time = $5, end_time = $6,
				location = $7, status = $8, department_id = $9, role_id = $10, year = $11,
				updated_at = NOW()
			WHERE id = $1
			RETURNING *
		)
		SELECT `+meetingColumns+` FROM m
	`, m.ID, m.Title, m.Description, m.MeetingDate, m.StartTime, m.EndTime,
		m.Location, m.Status, m.DepartmentID, roleIDArg(m.Audience), m.Year)
	out, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Meeting{}, apperr.NotFound("meeting", m.ID)
	}
	if err != nil {
		return Meeting{}, store.Translate(err)
	}
	return out, nil
}

// DeleteMeeting removes a meeting; attendees and minutes cascade.
func (r *Repository) DeleteMeeting(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("meeting", id)
	}
	return nil
}

func meetingWhere(f policy.MeetingFilter) store.Where {
	var w store.Where
	if f.DepartmentID != nil {
		w.Add("m.department_id = ?", *f.DepartmentID)
	}
	if id := f.Audience.RoleID(); id != 0 {
		w.Add("m.role_id = ?", id)
	}
	if f.Year != nil {
		if f.YearOptional {
			w.Add("(m.year IS NULL OR m.year = ?)", *f.Year)
		} else {
			w.Add("m.year = ?", *f.Year)
		}
	}
	return w
}

// ListMeetings returns the meetings matching f ordered by date.
func (r *Repository) ListMeetings(ctx context.Context, f policy.MeetingFilter) ([]Meeting, error) {
	if f.None {
		return []Meeting{}, nil
	}
	w := meetingWhere(f)
	rows, err := r.db.QueryContext(ctx, `SELECT `+meetingColumns+` FROM meetings m`+w.SQL()+
		` ORDER BY m.meeting_date, m.start_time, m.id`, w.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Meeting{}
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

const attendeeColumns = `id, meeting_id, user_id, role, attended, attendance_time, feedback_submitted, created_at`

func scanAttendee(row rowScanner) (Attendee, error) {
	var a Attendee
	err := row.Scan(&a.ID, &a.MeetingID, &a.UserID, &a.Role, &a.Attended, &a.AttendanceTime, &a.FeedbackSubmitted, &a.CreatedAt)
	return a, err
}

// AddAttendee inserts the registration in one statement: unknown users and
// existing registrations produce no row.
func (r *Repository) AddAttendee(ctx context.Context, a Attendee) (Attendee, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO meeting_attendees (meeting_id, user_id, role)
		SELECT $1::bigint, $2::bigint, $3::text
		WHERE EXISTS (SELECT 1 FROM users WHERE id = $2::bigint)
		ON CONFLICT (meeting_id, user_id) DO NOTHING
		RETURNING `+attendeeColumns, a.MeetingID, a.UserID, a.Role)
	out, err := scanAttendee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attendee{}, false, nil
	}
	if err != nil {
		return Attendee{}, false, store.Translate(err)
	}
	return out, true, nil
}

// GetAttendee returns the registration of userID for meetingID.
func (r *Repository) GetAttendee(ctx context.Context, meetingID, userID int64) (Attendee, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+attendeeColumns+` FROM meeting_attendees WHERE meeting_id = $1 AND user_id = $2`, meetingID, userID)
	a, err := scanAttendee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attendee{}, apperr.NotFound("attendee", meetingID)
	}
	return a, err
}

// MarkAttended sets attended and overwrites the attendance time.
func (r *Repository) MarkAttended(ctx context.Context, meetingID, userID int64, at time.Time) (Attendee, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE meeting_attendees SET attended = TRUE, attendance_time = $3
		WHERE meeting_id = $1 AND user_id = $2
		RETURNING `+attendeeColumns, meetingID, userID, at)
	a, err := scanAttendee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attendee{}, apperr.NotFound("attendee", meetingID)
	}
	return a, err
}

// MarkFeedbackSubmitted flags an attended registration.
func (r *Repository) MarkFeedbackSubmitted(ctx context.Context, meetingID, userID int64) (Attendee, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE meeting_attendees SET feedback_submitted = TRUE
		WHERE meeting_id = $1 AND user_id = $2 AND attended
		RETURNING `+attendeeColumns, meetingID, userID)
	a, err := scanAttendee(row)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetAttendee(ctx, meetingID, userID); getErr != nil {
			return Attendee{}, getErr
		}
		return Attendee{}, apperr.InvalidState("must attend the meeting before submitting feedback")
	}
	return a, err
}

// ListAttendees returns every registration of a meeting.
func (r *Repository) ListAttendees(ctx context.Context, meetingID int64) ([]Attendee, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+attendeeColumns+` FROM meeting_attendees WHERE meeting_id = $1 ORDER BY id`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Attendee{}
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// ListRegistrations returns the meetings userID is registered for.
func (r *Repository) ListRegistrations(ctx context.Context, userID int64) ([]Registration, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+meetingColumns+`, a.attended, a.attendance_time, a.feedback_submitted, a.role
		FROM meeting_attendees a
		JOIN meetings m ON m.id = a.meeting_id
		WHERE a.user_id = $1
		ORDER BY m.meeting_date, m.start_time, m.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Registration{}
	for rows.Next() {
		var reg Registration
		m, err := scanMeeting(rows, &reg.Attended, &reg.AttendanceTime, &reg.FeedbackSubmitted, &reg.AttendeeRole)
		if err != nil {
			return nil, err
		}
		reg.Meeting = m
		res = append(res, reg)
	}
	return res, rows.Err()
}

const minutesColumns = `id, meeting_id, content, attachments, created_by, updated_by, created_at, updated_at`

func scanMinutes(row rowScanner) (Minutes, error) {
	var (
		m   Minutes
		raw []byte
	)
	if err := row.Scan(&m.ID, &m.MeetingID, &m.Content, &raw, &m.CreatedBy, &m.UpdatedBy, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return Minutes{}, err
	}
	m.Attachments = []Attachment{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m.Attachments); err != nil {
			return Minutes{}, fmt.Errorf("minutes %d attachments: %w", m.ID, err)
		}
	}
	return m, nil
}

func attachmentsArg(atts []Attachment) ([]byte, error) {
	if atts == nil {
		atts = []Attachment{}
	}
	return json.Marshal(atts)
}

// CreateMinutes inserts a minutes record.
func (r *Repository) CreateMinutes(ctx context.Context, m Minutes) (Minutes, error) {
	atts, err := attachmentsArg(m.Attachments)
	if err != nil {
		return Minutes{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO meeting_minutes (meeting_id, content, attachments, created_by)
		VALUES ($1, $2, $3::jsonb, $4)
		RETURNING `+minutesColumns, m.MeetingID, m.Content, string(atts), m.CreatedBy)
	out, err := scanMinutes(row)
	if err != nil {
		return Minutes{}, store.Translate(err)
	}
	return out, nil
}

// GetMinutes returns one minutes record.
func (r *Repository) GetMinutes(ctx context.Context, id int64) (Minutes, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+minutesColumns+` FROM meeting_minutes WHERE id = $1`, id)
	m, err := scanMinutes(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Minutes{}, apperr.NotFound("minutes", id)
	}
	return m, err
}

// UpdateMinutes overwrites content, attachments and editor.
func (r *Repository) UpdateMinutes(ctx context.Context, m Minutes) (Minutes, error) {
	atts, err := attachmentsArg(m.Attachments)
	if err != nil {
		return Minutes{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE meeting_minutes
		SET content = $2, attachments = $3::jsonb, updated_by = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+minutesColumns, m.ID, m.Content, string(atts), m.UpdatedBy)
	out, err := scanMinutes(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Minutes{}, apperr.NotFound("minutes", m.ID)
	}
	if err != nil {
		return Minutes{}, store.Translate(err)
	}
	return out, nil
}

// DeleteMinutes removes a minutes record.
func (r *Repository) DeleteMinutes(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM meeting_minutes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("minutes", id)
	}
	return nil
}

// ListMinutes returns the minutes of one meeting, newest first.
func (r *Repository) ListMinutes(ctx context.Context, meetingID int64) ([]Minutes, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+minutesColumns+` FROM meeting_minutes WHERE meeting_id = $1 ORDER BY created_at DESC, id DESC`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Minutes{}
	for rows.Next() {
		m, err := scanMinutes(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

var _ Store = (*Repository)(nil)
