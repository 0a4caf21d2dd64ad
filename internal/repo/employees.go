package repo

import (
	"context"
	"database/sql"

	"onboardline/internal/domain"
)

const employeeColumns = `id,municipality_id,username,first_name,last_name,email,title,company_id,department_id,manager_id,start_date,created_at,updated_at`

func scanEmployee(row interface{ Scan(dest ...any) error }) (domain.Employee, error) {
	var e domain.Employee
	var email, title, departmentID, managerID sql.NullString
	err := row.Scan(&e.ID, &e.MunicipalityID, &e.Username, &e.FirstName, &e.LastName, &email, &title,
		&e.CompanyID, &departmentID, &managerID, &e.StartDate, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	if email.Valid {
		e.Email = email.String
	}
	if title.Valid {
		e.Title = title.String
	}
	if departmentID.Valid {
		e.DepartmentID = departmentID.String
	}
	if managerID.Valid {
		e.ManagerID = managerID.String
	}
	return e, err
}

func (r Repo) UpsertEmployee(ctx context.Context, tx *sql.Tx, e domain.Employee) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO employees(`+employeeColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(municipality_id,username) DO UPDATE SET
first_name=excluded.first_name, last_name=excluded.last_name, email=excluded.email, title=excluded.title,
company_id=excluded.company_id, department_id=excluded.department_id, manager_id=excluded.manager_id,
start_date=excluded.start_date, updated_at=excluded.updated_at`,
		e.ID, e.MunicipalityID, e.Username, e.FirstName, e.LastName, nullable(e.Email), nullable(e.Title),
		e.CompanyID, nullable(e.DepartmentID), nullable(e.ManagerID), e.StartDate, e.CreatedAt, e.UpdatedAt)
	return err
}

func (r Repo) GetEmployee(ctx context.Context, tx *sql.Tx, id string) (domain.Employee, error) {
	return scanEmployee(r.q(tx).QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id=?`, id))
}

func (r Repo) GetEmployeeByUsername(ctx context.Context, tx *sql.Tx, municipalityID, username string) (domain.Employee, error) {
	return scanEmployee(r.q(tx).QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE municipality_id=? AND username=?`, municipalityID, username))
}

func (r Repo) DeleteEmployee(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM employees WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureManager inserts a manager stub if the username is unknown and returns
// the stored row either way.
func (r Repo) EnsureManager(ctx context.Context, tx *sql.Tx, m domain.Manager) (domain.Manager, error) {
	if _, err := r.q(tx).ExecContext(ctx, `INSERT OR IGNORE INTO managers(id,username,first_name,last_name,email) VALUES (?,?,?,?,?)`,
		m.ID, m.Username, nullable(m.FirstName), nullable(m.LastName), nullable(m.Email)); err != nil {
		return domain.Manager{}, err
	}
	var out domain.Manager
	var firstName, lastName, email sql.NullString
	err := r.q(tx).QueryRowContext(ctx, `SELECT id,username,first_name,last_name,email FROM managers WHERE username=?`, m.Username).
		Scan(&out.ID, &out.Username, &firstName, &lastName, &email)
	if err == sql.ErrNoRows {
		return out, ErrNotFound
	}
	if firstName.Valid {
		out.FirstName = firstName.String
	}
	if lastName.Valid {
		out.LastName = lastName.String
	}
	if email.Valid {
		out.Email = email.String
	}
	return out, err
}
