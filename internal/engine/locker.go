package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"onboardline/internal/domain"
	"onboardline/internal/events"
)

// sweepLockName guards the expiration sweep so only one runner executes it at
// a time across service instances sharing the database.
const sweepLockName = "expiration-sweep"

// LockExpiredEmployeeChecklists locks every unlocked aggregate whose
// expiration date has passed. Re-running when nothing qualifies is a no-op.
func (e Engine) LockExpiredEmployeeChecklists(ctx context.Context, actorID string) (int64, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	locked, err := e.Repo.LockExpired(ctx, tx, e.date(), e.timestamp())
	if err != nil {
		return 0, err
	}
	if locked > 0 {
		if err := e.Events.Append(ctx, tx, "employee_checklist.locked", e.Config.Municipality.ID, "employee_checklist", "", actorID, events.EventPayload{
			"count": locked,
		}); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return locked, nil
}

// SweepOnce runs one guarded sweep: acquire the run lock, lock expired
// aggregates, release. Returns -1 when another runner holds the lock.
func (e Engine) SweepOnce(ctx context.Context, ownerID, actorID string) (int64, error) {
	now := e.now().UTC()
	acquired, err := e.Repo.AcquireRunLock(ctx, nil, domain.RunLock{
		Name:       sweepLockName,
		OwnerID:    ownerID,
		AcquiredAt: now.Format(time.RFC3339),
		ExpiresAt:  now.Add(5 * time.Minute).Format(time.RFC3339),
	})
	if err != nil {
		return 0, err
	}
	if !acquired {
		return -1, nil
	}
	defer func() {
		_ = e.Repo.ReleaseRunLock(context.WithoutCancel(ctx), nil, sweepLockName, ownerID)
	}()
	return e.LockExpiredEmployeeChecklists(ctx, actorID)
}

// RunSweeper drives the periodic expiration sweep until ctx is canceled.
func (e Engine) RunSweeper(ctx context.Context, logger *zap.Logger, interval time.Duration) {
	ownerID := newID()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		locked, err := e.SweepOnce(ctx, ownerID, "system-sweep")
		switch {
		case err != nil:
			logger.Error("expiration sweep failed", zap.Error(err))
		case locked < 0:
			logger.Debug("expiration sweep skipped, lock held elsewhere")
		case locked > 0:
			logger.Info("expiration sweep locked checklists", zap.Int64("count", locked))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
