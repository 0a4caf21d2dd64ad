package repo

import (
	"context"
	"database/sql"

	"onboardline/internal/domain"
)

const employeeChecklistColumns = `id,municipality_id,employee_id,start_date,end_date,expiration_date,locked,completed,mentor_user_id,mentor_name,created_at,updated_at`

func scanEmployeeChecklist(row interface{ Scan(dest ...any) error }) (domain.EmployeeChecklist, error) {
	var ec domain.EmployeeChecklist
	var locked, completed int
	var mentorUserID, mentorName sql.NullString
	err := row.Scan(&ec.ID, &ec.MunicipalityID, &ec.EmployeeID, &ec.StartDate, &ec.EndDate, &ec.ExpirationDate,
		&locked, &completed, &mentorUserID, &mentorName, &ec.CreatedAt, &ec.UpdatedAt)
	if err == sql.ErrNoRows {
		return ec, ErrNotFound
	}
	ec.Locked = locked != 0
	ec.Completed = completed != 0
	if mentorUserID.Valid {
		ec.MentorUserID = mentorUserID.String
	}
	if mentorName.Valid {
		ec.MentorName = mentorName.String
	}
	return ec, err
}

func (r Repo) InsertEmployeeChecklist(ctx context.Context, tx *sql.Tx, ec domain.EmployeeChecklist) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO employee_checklists(`+employeeChecklistColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		ec.ID, ec.MunicipalityID, ec.EmployeeID, ec.StartDate, ec.EndDate, ec.ExpirationDate,
		boolToInt(ec.Locked), boolToInt(ec.Completed), nullable(ec.MentorUserID), nullable(ec.MentorName), ec.CreatedAt, ec.UpdatedAt)
	if err != nil {
		return err
	}
	for i, checklistID := range ec.ChecklistIDs {
		if _, err := r.q(tx).ExecContext(ctx,
			`INSERT INTO employee_checklist_checklists(employee_checklist_id,checklist_id,sort_order) VALUES (?,?,?)`,
			ec.ID, checklistID, i); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) GetEmployeeChecklist(ctx context.Context, tx *sql.Tx, municipalityID, id string) (domain.EmployeeChecklist, error) {
	ec, err := scanEmployeeChecklist(r.q(tx).QueryRowContext(ctx,
		`SELECT `+employeeChecklistColumns+` FROM employee_checklists WHERE municipality_id=? AND id=?`, municipalityID, id))
	if err != nil {
		return ec, err
	}
	ec.ChecklistIDs, err = r.employeeChecklistTemplates(ctx, tx, ec.ID)
	return ec, err
}

func (r Repo) GetEmployeeChecklistByEmployee(ctx context.Context, tx *sql.Tx, employeeID string) (domain.EmployeeChecklist, error) {
	ec, err := scanEmployeeChecklist(r.q(tx).QueryRowContext(ctx,
		`SELECT `+employeeChecklistColumns+` FROM employee_checklists WHERE employee_id=?`, employeeID))
	if err != nil {
		return ec, err
	}
	ec.ChecklistIDs, err = r.employeeChecklistTemplates(ctx, tx, ec.ID)
	return ec, err
}

func (r Repo) ListEmployeeChecklists(ctx context.Context, municipalityID string) ([]domain.EmployeeChecklist, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+employeeChecklistColumns+` FROM employee_checklists WHERE municipality_id=? ORDER BY created_at DESC, id DESC`, municipalityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.EmployeeChecklist
	for rows.Next() {
		ec, err := scanEmployeeChecklist(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, ec)
	}
	return res, rows.Err()
}

func (r Repo) UpdateEmployeeChecklist(ctx context.Context, tx *sql.Tx, ec domain.EmployeeChecklist) error {
	res, err := r.q(tx).ExecContext(ctx,
		`UPDATE employee_checklists SET end_date=?, expiration_date=?, locked=?, completed=?, mentor_user_id=?, mentor_name=?, updated_at=? WHERE id=?`,
		ec.EndDate, ec.ExpirationDate, boolToInt(ec.Locked), boolToInt(ec.Completed),
		nullable(ec.MentorUserID), nullable(ec.MentorName), ec.UpdatedAt, ec.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteEmployeeChecklist(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM employee_checklists WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// LockExpired flips locked on every unlocked aggregate past its expiration
// date and returns how many rows changed.
func (r Repo) LockExpired(ctx context.Context, tx *sql.Tx, cutoff, updatedAt string) (int64, error) {
	res, err := r.q(tx).ExecContext(ctx,
		`UPDATE employee_checklists SET locked=1, updated_at=? WHERE locked=0 AND expiration_date < ?`, updatedAt, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r Repo) employeeChecklistTemplates(ctx context.Context, tx *sql.Tx, employeeChecklistID string) ([]string, error) {
	rows, err := r.q(tx).QueryContext(ctx,
		`SELECT checklist_id FROM employee_checklist_checklists WHERE employee_checklist_id=? ORDER BY sort_order ASC`, employeeChecklistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListEmployeeChecklistTasks returns every common task across the aggregate's
// assigned templates.
func (r Repo) ListEmployeeChecklistTasks(ctx context.Context, tx *sql.Tx, employeeChecklistID string) ([]domain.Task, error) {
	rows, err := r.q(tx).QueryContext(ctx, `SELECT `+taskColumnsPrefixed+` FROM tasks t
JOIN employee_checklist_checklists ecc ON ecc.checklist_id = t.checklist_id
WHERE ecc.employee_checklist_id=? ORDER BY t.sort_order ASC, t.heading ASC`, employeeChecklistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

const taskColumnsPrefixed = `t.id,t.checklist_id,t.phase_id,t.heading,t.text,t.sort_order,t.role_type,t.question_type,t.permission,t.last_saved_by,t.created_at,t.updated_at`

// --- custom tasks ---

const customTaskColumns = `id,employee_checklist_id,phase_id,heading,text,question_type,role_type,sort_order,last_saved_by,created_at,updated_at`

func scanCustomTask(row interface{ Scan(dest ...any) error }) (domain.CustomTask, error) {
	var t domain.CustomTask
	var text sql.NullString
	err := row.Scan(&t.ID, &t.EmployeeChecklistID, &t.PhaseID, &t.Heading, &text, &t.QuestionType,
		&t.RoleType, &t.SortOrder, &t.LastSavedBy, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if text.Valid {
		t.Text = text.String
	}
	return t, err
}

func (r Repo) InsertCustomTask(ctx context.Context, tx *sql.Tx, t domain.CustomTask) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO custom_tasks(`+customTaskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.EmployeeChecklistID, t.PhaseID, t.Heading, nullable(t.Text), t.QuestionType, t.RoleType,
		t.SortOrder, t.LastSavedBy, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) GetCustomTask(ctx context.Context, tx *sql.Tx, id string) (domain.CustomTask, error) {
	return scanCustomTask(r.q(tx).QueryRowContext(ctx, `SELECT `+customTaskColumns+` FROM custom_tasks WHERE id=?`, id))
}

func (r Repo) ListCustomTasks(ctx context.Context, tx *sql.Tx, employeeChecklistID string) ([]domain.CustomTask, error) {
	rows, err := r.q(tx).QueryContext(ctx,
		`SELECT `+customTaskColumns+` FROM custom_tasks WHERE employee_checklist_id=? ORDER BY sort_order ASC, heading ASC`, employeeChecklistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CustomTask
	for rows.Next() {
		t, err := scanCustomTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) UpdateCustomTask(ctx context.Context, tx *sql.Tx, t domain.CustomTask) error {
	res, err := r.q(tx).ExecContext(ctx,
		`UPDATE custom_tasks SET phase_id=?, heading=?, text=?, question_type=?, role_type=?, sort_order=?, last_saved_by=?, updated_at=? WHERE id=?`,
		t.PhaseID, t.Heading, nullable(t.Text), t.QuestionType, t.RoleType, t.SortOrder, t.LastSavedBy, t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteCustomTask(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM custom_tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
