package engine_test

import (
	"testing"
	"time"

	"onboardline/internal/domain"
)

func expireChecklist(t *testing.T, env testEnv, ecID string) {
	t.Helper()
	if _, err := env.Engine.DB.ExecContext(env.Ctx,
		`UPDATE employee_checklists SET expiration_date = '2023-06-01' WHERE id = ?`, ecID); err != nil {
		t.Fatal(err)
	}
}

func TestLockExpiredLocksPastExpiration(t *testing.T) {
	env := newTestEnv(t)
	ecID, _, _ := setupInitiated(t, env)
	expireChecklist(t, env, ecID)

	n, err := env.Engine.LockExpiredEmployeeChecklists(env.Ctx, "sweeper")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 locked aggregate, got %d", n)
	}
	ec, err := env.Engine.Repo.GetEmployeeChecklist(env.Ctx, nil, muni, ecID)
	if err != nil {
		t.Fatal(err)
	}
	if !ec.Locked {
		t.Fatalf("aggregate past its expiration date must be locked")
	}
}

func TestLockExpiredIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ecID, _, _ := setupInitiated(t, env)
	expireChecklist(t, env, ecID)

	if _, err := env.Engine.LockExpiredEmployeeChecklists(env.Ctx, "sweeper"); err != nil {
		t.Fatal(err)
	}
	n, err := env.Engine.LockExpiredEmployeeChecklists(env.Ctx, "sweeper")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("second sweep must be a no-op, got %d", n)
	}
}

func TestLockExpiredLeavesCurrentChecklistsAlone(t *testing.T) {
	env := newTestEnv(t)
	ecID, _, _ := setupInitiated(t, env)

	n, err := env.Engine.LockExpiredEmployeeChecklists(env.Ctx, "sweeper")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("nothing is expired yet, got %d locked", n)
	}
	ec, err := env.Engine.Repo.GetEmployeeChecklist(env.Ctx, nil, muni, ecID)
	if err != nil {
		t.Fatal(err)
	}
	if ec.Locked {
		t.Fatalf("unexpired aggregate must stay unlocked")
	}
}

func TestSweepOnceSkipsWhenLockHeldElsewhere(t *testing.T) {
	env := newTestEnv(t)
	ecID, _, _ := setupInitiated(t, env)
	expireChecklist(t, env, ecID)

	future := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC).Format(time.RFC3339)
	acquired, err := env.Engine.Repo.AcquireRunLock(env.Ctx, nil, domain.RunLock{
		Name:       "expiration-sweep",
		OwnerID:    "other-node",
		AcquiredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		ExpiresAt:  future,
	})
	if err != nil || !acquired {
		t.Fatalf("seed lock: acquired=%v err=%v", acquired, err)
	}

	n, err := env.Engine.SweepOnce(env.Ctx, "this-node", "sweeper")
	if err != nil {
		t.Fatal(err)
	}
	if n != -1 {
		t.Fatalf("expected sweep to stand down while the lock is held, got %d", n)
	}
	ec, err := env.Engine.Repo.GetEmployeeChecklist(env.Ctx, nil, muni, ecID)
	if err != nil {
		t.Fatal(err)
	}
	if ec.Locked {
		t.Fatalf("skipped sweep must not lock anything")
	}
}

func TestSweepOnceAcquiresAndReleases(t *testing.T) {
	env := newTestEnv(t)
	ecID, _, _ := setupInitiated(t, env)
	expireChecklist(t, env, ecID)

	n, err := env.Engine.SweepOnce(env.Ctx, "this-node", "sweeper")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 locked aggregate, got %d", n)
	}
	// released lock means a second node can sweep immediately
	n, err = env.Engine.SweepOnce(env.Ctx, "second-node", "sweeper")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("follow-up sweep should find nothing, got %d", n)
	}
}
