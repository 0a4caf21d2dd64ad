package repo

import (
	"context"
	"database/sql"

	"onboardline/internal/domain"
)

// AcquireRunLock takes the named lock if it is free or its previous holder's
// lease has expired. Returns false when another live holder owns it.
func (r Repo) AcquireRunLock(ctx context.Context, tx *sql.Tx, lock domain.RunLock) (bool, error) {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO run_locks(name,owner_id,acquired_at,expires_at) VALUES (?,?,?,?)
ON CONFLICT(name) DO UPDATE SET owner_id=excluded.owner_id, acquired_at=excluded.acquired_at, expires_at=excluded.expires_at
WHERE run_locks.expires_at < excluded.acquired_at OR run_locks.owner_id = excluded.owner_id`,
		lock.Name, lock.OwnerID, lock.AcquiredAt, lock.ExpiresAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ReleaseRunLock frees the named lock when held by ownerID.
func (r Repo) ReleaseRunLock(ctx context.Context, tx *sql.Tx, name, ownerID string) error {
	_, err := r.q(tx).ExecContext(ctx, `DELETE FROM run_locks WHERE name=? AND owner_id=?`, name, ownerID)
	return err
}

// GetRunLock returns the current holder of the named lock.
func (r Repo) GetRunLock(ctx context.Context, tx *sql.Tx, name string) (domain.RunLock, error) {
	var l domain.RunLock
	err := r.q(tx).QueryRowContext(ctx, `SELECT name,owner_id,acquired_at,expires_at FROM run_locks WHERE name=?`, name).
		Scan(&l.Name, &l.OwnerID, &l.AcquiredAt, &l.ExpiresAt)
	if err == sql.ErrNoRows {
		return l, ErrNotFound
	}
	return l, err
}
