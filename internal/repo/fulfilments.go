package repo

import (
	"context"
	"database/sql"

	"onboardline/internal/domain"
)

const fulfilmentColumns = `id,employee_checklist_id,task_id,completed,response_text,last_saved_by,updated_at`

func scanFulfilment(row interface{ Scan(dest ...any) error }) (domain.Fulfilment, error) {
	var f domain.Fulfilment
	var responseText sql.NullString
	err := row.Scan(&f.ID, &f.EmployeeChecklistID, &f.TaskID, &f.Completed, &responseText, &f.LastSavedBy, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return f, ErrNotFound
	}
	if responseText.Valid {
		f.ResponseText = responseText.String
	}
	return f, err
}

func (r Repo) UpsertFulfilment(ctx context.Context, tx *sql.Tx, f domain.Fulfilment) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO fulfilments(`+fulfilmentColumns+`) VALUES (?,?,?,?,?,?,?)
ON CONFLICT(employee_checklist_id,task_id) DO UPDATE SET
completed=excluded.completed, response_text=excluded.response_text, last_saved_by=excluded.last_saved_by, updated_at=excluded.updated_at`,
		f.ID, f.EmployeeChecklistID, f.TaskID, f.Completed, nullable(f.ResponseText), f.LastSavedBy, f.UpdatedAt)
	return err
}

func (r Repo) GetFulfilment(ctx context.Context, tx *sql.Tx, employeeChecklistID, taskID string) (domain.Fulfilment, error) {
	return scanFulfilment(r.q(tx).QueryRowContext(ctx,
		`SELECT `+fulfilmentColumns+` FROM fulfilments WHERE employee_checklist_id=? AND task_id=?`, employeeChecklistID, taskID))
}

func (r Repo) ListFulfilments(ctx context.Context, tx *sql.Tx, employeeChecklistID string) ([]domain.Fulfilment, error) {
	rows, err := r.q(tx).QueryContext(ctx,
		`SELECT `+fulfilmentColumns+` FROM fulfilments WHERE employee_checklist_id=?`, employeeChecklistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Fulfilment
	for rows.Next() {
		f, err := scanFulfilment(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

const customFulfilmentColumns = `id,employee_checklist_id,custom_task_id,completed,response_text,last_saved_by,updated_at`

func scanCustomFulfilment(row interface{ Scan(dest ...any) error }) (domain.CustomFulfilment, error) {
	var f domain.CustomFulfilment
	var responseText sql.NullString
	err := row.Scan(&f.ID, &f.EmployeeChecklistID, &f.CustomTaskID, &f.Completed, &responseText, &f.LastSavedBy, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return f, ErrNotFound
	}
	if responseText.Valid {
		f.ResponseText = responseText.String
	}
	return f, err
}

func (r Repo) UpsertCustomFulfilment(ctx context.Context, tx *sql.Tx, f domain.CustomFulfilment) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO custom_fulfilments(`+customFulfilmentColumns+`) VALUES (?,?,?,?,?,?,?)
ON CONFLICT(employee_checklist_id,custom_task_id) DO UPDATE SET
completed=excluded.completed, response_text=excluded.response_text, last_saved_by=excluded.last_saved_by, updated_at=excluded.updated_at`,
		f.ID, f.EmployeeChecklistID, f.CustomTaskID, f.Completed, nullable(f.ResponseText), f.LastSavedBy, f.UpdatedAt)
	return err
}

func (r Repo) GetCustomFulfilment(ctx context.Context, tx *sql.Tx, employeeChecklistID, customTaskID string) (domain.CustomFulfilment, error) {
	return scanCustomFulfilment(r.q(tx).QueryRowContext(ctx,
		`SELECT `+customFulfilmentColumns+` FROM custom_fulfilments WHERE employee_checklist_id=? AND custom_task_id=?`, employeeChecklistID, customTaskID))
}

func (r Repo) ListCustomFulfilments(ctx context.Context, tx *sql.Tx, employeeChecklistID string) ([]domain.CustomFulfilment, error) {
	rows, err := r.q(tx).QueryContext(ctx,
		`SELECT `+customFulfilmentColumns+` FROM custom_fulfilments WHERE employee_checklist_id=?`, employeeChecklistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CustomFulfilment
	for rows.Next() {
		f, err := scanCustomFulfilment(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

func (r Repo) DeleteCustomFulfilment(ctx context.Context, tx *sql.Tx, customTaskID string) error {
	_, err := r.q(tx).ExecContext(ctx, `DELETE FROM custom_fulfilments WHERE custom_task_id=?`, customTaskID)
	return err
}
