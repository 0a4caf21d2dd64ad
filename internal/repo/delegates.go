package repo

import (
	"context"
	"database/sql"

	"onboardline/internal/domain"
)

const delegateColumns = `id,employee_checklist_id,email,username,first_name,last_name,created_at`

func scanDelegate(row interface{ Scan(dest ...any) error }) (domain.Delegate, error) {
	var d domain.Delegate
	var username, firstName, lastName sql.NullString
	err := row.Scan(&d.ID, &d.EmployeeChecklistID, &d.Email, &username, &firstName, &lastName, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	d.Username = username.String
	d.FirstName = firstName.String
	d.LastName = lastName.String
	return d, err
}

func (r Repo) InsertDelegate(ctx context.Context, tx *sql.Tx, d domain.Delegate) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO delegates(`+delegateColumns+`) VALUES (?,?,?,?,?,?,?)`,
		d.ID, d.EmployeeChecklistID, d.Email, nullable(d.Username), nullable(d.FirstName), nullable(d.LastName), d.CreatedAt)
	return err
}

func (r Repo) GetDelegateByEmail(ctx context.Context, tx *sql.Tx, employeeChecklistID, email string) (domain.Delegate, error) {
	return scanDelegate(r.q(tx).QueryRowContext(ctx,
		`SELECT `+delegateColumns+` FROM delegates WHERE employee_checklist_id=? AND email=?`, employeeChecklistID, email))
}

func (r Repo) ListDelegates(ctx context.Context, tx *sql.Tx, employeeChecklistID string) ([]domain.Delegate, error) {
	rows, err := r.q(tx).QueryContext(ctx,
		`SELECT `+delegateColumns+` FROM delegates WHERE employee_checklist_id=? ORDER BY created_at`, employeeChecklistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Delegate
	for rows.Next() {
		d, err := scanDelegate(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (r Repo) DeleteDelegate(ctx context.Context, tx *sql.Tx, employeeChecklistID, email string) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM delegates WHERE employee_checklist_id=? AND email=?`, employeeChecklistID, email)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}
