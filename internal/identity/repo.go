package identity

import (
	"context"
	"database/sql"
	"errors"

	"portal/internal/apperr"
)

// Repository reads users and departments from Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// LookupActor loads the stored identity of a user and normalizes its role.
func (r *Repository) LookupActor(ctx context.Context, userID int64) (Actor, error) {
	var (
		role string
		dept *int64
		year *int
	)
	err := r.db.QueryRowContext(ctx, `SELECT role, department_id, year FROM users WHERE id = $1`, userID).
		Scan(&role, &dept, &year)
	if errors.Is(err, sql.ErrNoRows) {
		return Actor{}, apperr.NotFound("user", userID)
	}
	if err != nil {
		return Actor{}, err
	}
	return NewActor(userID, role, dept, year), nil
}

// UserExists reports whether a user row exists.
func (r *Repository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&ok)
	return ok, err
}

// DepartmentExists reports whether a department row exists.
func (r *Repository) DepartmentExists(ctx context.Context, departmentID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM departments WHERE id = $1)`, departmentID).Scan(&ok)
	return ok, err
}

// DepartmentName returns a department's display name.
func (r *Repository) DepartmentName(ctx context.Context, departmentID int64) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx, `SELECT name FROM departments WHERE id = $1`, departmentID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFound("department", departmentID)
	}
	return name, err
}

// Recipients returns the users of a department that fall in scope. Stored
// role names vary, so roles are matched after normalization.
func (r *Repository) Recipients(ctx context.Context, scope Scope) ([]Recipient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, role, year FROM users
		WHERE department_id = $1
		ORDER BY id
	`, scope.DepartmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Recipient
	for rows.Next() {
		var (
			rcpt Recipient
			role string
			year *int
		)
		if err := rows.Scan(&rcpt.ID, &rcpt.Name, &rcpt.Email, &role, &year); err != nil {
			return nil, err
		}
		dept := scope.DepartmentID
		if scope.Matches(NewActor(rcpt.ID, role, &dept, year)) {
			res = append(res, rcpt)
		}
	}
	return res, rows.Err()
}

var _ Directory = (*Repository)(nil)
