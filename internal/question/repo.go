package question

import (
	"context"
	"database/sql"
	"errors"

	"portal/internal/apperr"
	"portal/internal/identity"
	"portal/internal/policy"
	"portal/internal/store"
)

// Repository persists questions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const columns = `id, text, role, department_id, year, active, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (Question, error) {
	var (
		q    Question
		role string
	)
	if err := row.Scan(&q.ID, &q.Text, &role, &q.DepartmentID, &q.Year, &q.Active, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return Question{}, err
	}
	a, err := identity.ParseAudience(role)
	if err != nil {
		return Question{}, err
	}
	q.Audience = a
	return q, nil
}

// CreateQuestion inserts q.
func (r *Repository) CreateQuestion(ctx context.Context, q Question) (Question, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO questions (text, role, department_id, year, active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+columns, q.Text, string(q.Audience), q.DepartmentID, q.Year, q.Active, q.CreatedBy)
	out, err := scanQuestion(row)
	if err != nil {
		return Question{}, store.Translate(err)
	}
	return out, nil
}

// GetQuestion returns a single question by id.
func (r *Repository) GetQuestion(ctx context.Context, id int64) (Question, error) {
	q, err := scanQuestion(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM questions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, apperr.NotFound("question", id)
	}
	return q, err
}

// UpdateQuestion overwrites every mutable column of q.
func (r *Repository) UpdateQuestion(ctx context.Context, q Question) (Question, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE questions
		SET text = $2, role = $3, department_id = $4, year = $5, active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING `+columns, q.ID, q.Text, string(q.Audience), q.DepartmentID, q.Year, q.Active)
	out, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, apperr.NotFound("question", q.ID)
	}
	if err != nil {
		return Question{}, store.Translate(err)
	}
	return out, nil
}

// DeleteQuestion removes a question; its feedback cascades.
func (r *Repository) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("question", id)
	}
	return nil
}

func questionWhere(f policy.QuestionFilter) store.Where {
	var w store.Where
	if f.ActiveOnly {
		w.Add("active")
	}
	if len(f.Audiences) > 0 {
		roles := make([]string, 0, len(f.Audiences))
		for _, a := range f.Audiences {
			roles = append(roles, string(a))
		}
		w.Add("role = ANY(?)", roles)
	}
	if f.DepartmentID != nil {
		w.Add("department_id = ?", *f.DepartmentID)
	}
	if f.Year != nil {
		w.Add("year = ?", *f.Year)
	}
	return w
}

// ListQuestions returns the questions matching f.
func (r *Repository) ListQuestions(ctx context.Context, f policy.QuestionFilter) ([]Question, error) {
	if f.None {
		return []Question{}, nil
	}
	w := questionWhere(f)
	return r.list(ctx, `SELECT `+columns+` FROM questions`+w.SQL()+` ORDER BY id`, w.Args...)
}

// ListByCreator returns every question authored by creatorID.
func (r *Repository) ListByCreator(ctx context.Context, creatorID int64) ([]Question, error) {
	return r.list(ctx, `SELECT `+columns+` FROM questions WHERE created_by = $1 ORDER BY created_at DESC, id DESC`, creatorID)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Question, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, q)
	}
	return res, rows.Err()
}

var _ Store = (*Repository)(nil)
