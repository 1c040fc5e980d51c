package feedback

import (
	"context"
	"database/sql"
	"math"

	"portal/internal/store"
)

// Repository persists feedback in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const columns = `f.id, f.question_id, f.meeting_id, f.user_id, f.rating, f.notes, f.submitted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeedback(row rowScanner, extra ...any) (Feedback, error) {
	var f Feedback
	dest := append([]any{&f.ID, &f.QuestionID, &f.MeetingID, &f.UserID, &f.Rating, &f.Notes, &f.SubmittedAt}, extra...)
	err := row.Scan(dest...)
	return f, err
}

// CreateFeedback inserts f.
func (r *Repository) CreateFeedback(ctx context.Context, f Feedback) (Feedback, error) {
	row := r.db.QueryRowContext(ctx, `
		WITH f AS (
			INSERT INTO feedback (question_id, meeting_id, user_id, rating, notes)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING *
		)
		SELECT `+columns+` FROM f
	`, f.QuestionID, f.MeetingID, f.UserID, f.Rating, f.Notes)
	out, err := scanFeedback(row)
	if err != nil {
		return Feedback{}, store.Translate(err)
	}
	return out, nil
}

// ListByUser returns a user's feedback with question text, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+columns+`, q.text
		FROM feedback f JOIN questions q ON q.id = f.question_id
		WHERE f.user_id = $1
		ORDER BY f.submitted_at DESC, f.id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Entry{}
	for rows.Next() {
		var e Entry
		f, err := scanFeedback(rows, &e.QuestionText)
		if err != nil {
			return nil, err
		}
		e.Feedback = f
		res = append(res, e)
	}
	return res, rows.Err()
}

// ListByQuestion returns every rating of one question, newest first.
func (r *Repository) ListByQuestion(ctx context.Context, questionID int64) ([]Feedback, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+columns+` FROM feedback f
		WHERE f.question_id = $1
		ORDER BY f.submitted_at DESC, f.id DESC
	`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

// QuestionStats aggregates ratings per question.
func (r *Repository) QuestionStats(ctx context.Context, departmentID *int64) ([]QuestionStats, error) {
	var w store.Where
	if departmentID != nil {
		w.Add("q.department_id = ?", *departmentID)
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT q.id, q.text, q.department_id, COUNT(f.id), COALESCE(AVG(f.rating), 0)::float8,
			COUNT(*) FILTER (WHERE f.rating = 1),
			COUNT(*) FILTER (WHERE f.rating = 2),
			COUNT(*) FILTER (WHERE f.rating = 3),
			COUNT(*) FILTER (WHERE f.rating = 4),
			COUNT(*) FILTER (WHERE f.rating = 5)
		FROM questions q
		LEFT JOIN feedback f ON f.question_id = q.id`+w.SQL()+`
		GROUP BY q.id, q.text, q.department_id
		ORDER BY q.id
	`, w.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []QuestionStats{}
	for rows.Next() {
		var (
			qs   QuestionStats
			dist [5]int
		)
		if err := rows.Scan(&qs.QuestionID, &qs.QuestionText, &qs.DepartmentID, &qs.Responses, &qs.Average,
			&dist[0], &dist[1], &dist[2], &dist[3], &dist[4]); err != nil {
			return nil, err
		}
		qs.Average = math.Round(qs.Average*100) / 100
		qs.Distribution = make(map[int]int, len(dist))
		for i, n := range dist {
			qs.Distribution[i+1] = n
		}
		res = append(res, qs)
	}
	return res, rows.Err()
}

var _ Store = (*Repository)(nil)
