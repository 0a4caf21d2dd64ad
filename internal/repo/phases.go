package repo

import (
	"context"
	"database/sql"

	"onboardline/internal/domain"
)

const phaseColumns = `id,municipality_id,name,body_text,sort_order,time_to_complete,permission,last_saved_by,created_at,updated_at`

func scanPhase(row interface{ Scan(dest ...any) error }) (domain.Phase, error) {
	var p domain.Phase
	var bodyText, timeToComplete, permission sql.NullString
	err := row.Scan(&p.ID, &p.MunicipalityID, &p.Name, &bodyText, &p.SortOrder, &timeToComplete,
		&permission, &p.LastSavedBy, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if bodyText.Valid {
		p.BodyText = bodyText.String
	}
	if timeToComplete.Valid {
		p.TimeToComplete = timeToComplete.String
	}
	if permission.Valid {
		p.Permission = permission.String
	}
	return p, err
}

func (r Repo) InsertPhase(ctx context.Context, tx *sql.Tx, p domain.Phase) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO phases(`+phaseColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.MunicipalityID, p.Name, nullable(p.BodyText), p.SortOrder, nullable(p.TimeToComplete),
		nullable(p.Permission), p.LastSavedBy, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) GetPhase(ctx context.Context, tx *sql.Tx, municipalityID, id string) (domain.Phase, error) {
	return scanPhase(r.q(tx).QueryRowContext(ctx,
		`SELECT `+phaseColumns+` FROM phases WHERE municipality_id=? AND id=?`, municipalityID, id))
}

func (r Repo) ListPhases(ctx context.Context, municipalityID string) ([]domain.Phase, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+phaseColumns+` FROM phases WHERE municipality_id=? ORDER BY sort_order ASC, name ASC`, municipalityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Phase
	for rows.Next() {
		p, err := scanPhase(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) UpdatePhase(ctx context.Context, tx *sql.Tx, p domain.Phase) error {
	res, err := r.q(tx).ExecContext(ctx,
		`UPDATE phases SET name=?, body_text=?, sort_order=?, time_to_complete=?, permission=?, last_saved_by=?, updated_at=? WHERE id=?`,
		p.Name, nullable(p.BodyText), p.SortOrder, nullable(p.TimeToComplete), nullable(p.Permission), p.LastSavedBy, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeletePhase(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM phases WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PhaseReferenced reports whether any task or custom task points at the phase.
func (r Repo) PhaseReferenced(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var n int
	err := r.q(tx).QueryRowContext(ctx,
		`SELECT 1 FROM (SELECT phase_id FROM tasks UNION ALL SELECT phase_id FROM custom_tasks) WHERE phase_id=? LIMIT 1`, id).Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
