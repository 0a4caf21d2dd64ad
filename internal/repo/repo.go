package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"onboardline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// querier lets the same scan/exec helpers run against *sql.DB or *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r Repo) q(tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.DB
}

// --- organizations ---

func scanOrganization(row interface{ Scan(dest ...any) error }) (domain.Organization, error) {
	var o domain.Organization
	err := row.Scan(&o.ID, &o.MunicipalityID, &o.OrganizationNumber, &o.OrganizationName, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	return o, err
}

func (r Repo) InsertOrganization(ctx context.Context, tx *sql.Tx, o domain.Organization) error {
	if _, err := r.q(tx).ExecContext(ctx, `INSERT INTO organizations(id,municipality_id,organization_number,organization_name,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		o.ID, o.MunicipalityID, o.OrganizationNumber, o.OrganizationName, o.CreatedAt, o.UpdatedAt); err != nil {
		return err
	}
	for _, ch := range o.CommunicationChannels {
		if _, err := r.q(tx).ExecContext(ctx, `INSERT OR IGNORE INTO organization_communication_channels(organization_id,channel) VALUES (?,?)`, o.ID, ch); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) GetOrganization(ctx context.Context, tx *sql.Tx, id string) (domain.Organization, error) {
	o, err := scanOrganization(r.q(tx).QueryRowContext(ctx,
		`SELECT id,municipality_id,organization_number,organization_name,created_at,updated_at FROM organizations WHERE id=?`, id))
	if err != nil {
		return o, err
	}
	o.CommunicationChannels, err = r.organizationChannels(ctx, tx, o.ID)
	return o, err
}

func (r Repo) GetOrganizationByNumber(ctx context.Context, tx *sql.Tx, municipalityID string, number int) (domain.Organization, error) {
	o, err := scanOrganization(r.q(tx).QueryRowContext(ctx,
		`SELECT id,municipality_id,organization_number,organization_name,created_at,updated_at FROM organizations WHERE municipality_id=? AND organization_number=?`,
		municipalityID, number))
	if err != nil {
		return o, err
	}
	o.CommunicationChannels, err = r.organizationChannels(ctx, tx, o.ID)
	return o, err
}

func (r Repo) ListOrganizations(ctx context.Context, municipalityID string) ([]domain.Organization, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,municipality_id,organization_number,organization_name,created_at,updated_at FROM organizations WHERE municipality_id=? ORDER BY organization_number ASC`,
		municipalityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Organization
	for rows.Next() {
		var o domain.Organization
		if err := rows.Scan(&o.ID, &o.MunicipalityID, &o.OrganizationNumber, &o.OrganizationName, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

func (r Repo) UpdateOrganization(ctx context.Context, tx *sql.Tx, id string, name *string, channels []string, updatedAt string) error {
	if name != nil {
		res, err := r.q(tx).ExecContext(ctx, `UPDATE organizations SET organization_name=?, updated_at=? WHERE id=?`, *name, updatedAt, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
	}
	if channels != nil {
		if _, err := r.q(tx).ExecContext(ctx, `DELETE FROM organization_communication_channels WHERE organization_id=?`, id); err != nil {
			return err
		}
		for _, ch := range channels {
			if _, err := r.q(tx).ExecContext(ctx, `INSERT INTO organization_communication_channels(organization_id,channel) VALUES (?,?)`, id, ch); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r Repo) DeleteOrganization(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM organizations WHERE id=?`, id)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return errors.New("organization has checklists attached")
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) organizationChannels(ctx context.Context, tx *sql.Tx, orgID string) ([]string, error) {
	rows, err := r.q(tx).QueryContext(ctx, `SELECT channel FROM organization_communication_channels WHERE organization_id=? ORDER BY channel`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var channels []string
	for rows.Next() {
		var ch string
		if err := rows.Scan(&ch); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}
