package repo

import (
	"context"
	"database/sql"

	"onboardline/internal/domain"
)

const checklistColumns = `id,organization_id,municipality_id,name,display_name,version,life_cycle,role_type,last_saved_by,created_at,updated_at`

func scanChecklist(row interface{ Scan(dest ...any) error }) (domain.Checklist, error) {
	var c domain.Checklist
	err := row.Scan(&c.ID, &c.OrganizationID, &c.MunicipalityID, &c.Name, &c.DisplayName, &c.Version,
		&c.LifeCycle, &c.RoleType, &c.LastSavedBy, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) InsertChecklist(ctx context.Context, tx *sql.Tx, c domain.Checklist) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO checklists(`+checklistColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.OrganizationID, c.MunicipalityID, c.Name, c.DisplayName, c.Version, c.LifeCycle, c.RoleType, c.LastSavedBy, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r Repo) GetChecklist(ctx context.Context, tx *sql.Tx, municipalityID, id string) (domain.Checklist, error) {
	c, err := scanChecklist(r.q(tx).QueryRowContext(ctx,
		`SELECT `+checklistColumns+` FROM checklists WHERE municipality_id=? AND id=?`, municipalityID, id))
	if err != nil {
		return c, err
	}
	c.Tasks, err = r.ListTasks(ctx, tx, c.ID)
	return c, err
}

// GetChecklistByName returns the version of the named series holding the given
// lifecycle state, if any.
func (r Repo) GetChecklistByName(ctx context.Context, tx *sql.Tx, municipalityID, name string, lifeCycle domain.LifeCycle) (domain.Checklist, error) {
	return scanChecklist(r.q(tx).QueryRowContext(ctx,
		`SELECT `+checklistColumns+` FROM checklists WHERE municipality_id=? AND name=? AND life_cycle=?`, municipalityID, name, lifeCycle))
}

func (r Repo) ChecklistNameExists(ctx context.Context, tx *sql.Tx, municipalityID, name string) (bool, error) {
	var n int
	err := r.q(tx).QueryRowContext(ctx, `SELECT 1 FROM checklists WHERE municipality_id=? AND name=? LIMIT 1`, municipalityID, name).Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (r Repo) MaxChecklistVersion(ctx context.Context, tx *sql.Tx, municipalityID, name string) (int, error) {
	var v int
	err := r.q(tx).QueryRowContext(ctx, `SELECT COALESCE(MAX(version),0) FROM checklists WHERE municipality_id=? AND name=?`, municipalityID, name).Scan(&v)
	return v, err
}

// ListOrganizationChecklists returns the organization's templates sorted by
// version descending, optionally filtered to one lifecycle state.
func (r Repo) ListOrganizationChecklists(ctx context.Context, tx *sql.Tx, organizationID string, lifeCycle domain.LifeCycle) ([]domain.Checklist, error) {
	query := `SELECT ` + checklistColumns + ` FROM checklists WHERE organization_id=?`
	args := []any{organizationID}
	if lifeCycle != "" {
		query += ` AND life_cycle=?`
		args = append(args, lifeCycle)
	}
	query += ` ORDER BY version DESC`
	rows, err := r.q(tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Checklist
	for rows.Next() {
		c, err := scanChecklist(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) ListChecklists(ctx context.Context, municipalityID string) ([]domain.Checklist, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+checklistColumns+` FROM checklists WHERE municipality_id=? ORDER BY name ASC, version DESC`, municipalityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Checklist
	for rows.Next() {
		c, err := scanChecklist(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) UpdateChecklist(ctx context.Context, tx *sql.Tx, c domain.Checklist) error {
	res, err := r.q(tx).ExecContext(ctx,
		`UPDATE checklists SET display_name=?, role_type=?, life_cycle=?, last_saved_by=?, updated_at=? WHERE id=?`,
		c.DisplayName, c.RoleType, c.LifeCycle, c.LastSavedBy, c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteChecklist(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM checklists WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- tasks ---

const taskColumns = `id,checklist_id,phase_id,heading,text,sort_order,role_type,question_type,permission,last_saved_by,created_at,updated_at`

func scanTask(row interface{ Scan(dest ...any) error }) (domain.Task, error) {
	var t domain.Task
	var text, permission sql.NullString
	err := row.Scan(&t.ID, &t.ChecklistID, &t.PhaseID, &t.Heading, &text, &t.SortOrder,
		&t.RoleType, &t.QuestionType, &permission, &t.LastSavedBy, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if text.Valid {
		t.Text = text.String
	}
	if permission.Valid {
		t.Permission = permission.String
	}
	return t, err
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.ChecklistID, t.PhaseID, t.Heading, nullable(t.Text), t.SortOrder, t.RoleType, t.QuestionType,
		nullable(t.Permission), t.LastSavedBy, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) GetTask(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	return scanTask(r.q(tx).QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

func (r Repo) ListTasks(ctx context.Context, tx *sql.Tx, checklistID string) ([]domain.Task, error) {
	rows, err := r.q(tx).QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE checklist_id=? ORDER BY sort_order ASC, heading ASC`, checklistID)
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

func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	res, err := r.q(tx).ExecContext(ctx,
		`UPDATE tasks SET phase_id=?, heading=?, text=?, sort_order=?, role_type=?, question_type=?, permission=?, last_saved_by=?, updated_at=? WHERE id=?`,
		t.PhaseID, t.Heading, nullable(t.Text), t.SortOrder, t.RoleType, t.QuestionType, nullable(t.Permission), t.LastSavedBy, t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteChecklistTasks(ctx context.Context, tx *sql.Tx, checklistID string) error {
	_, err := r.q(tx).ExecContext(ctx, `DELETE FROM tasks WHERE checklist_id=?`, checklistID)
	return err
}
