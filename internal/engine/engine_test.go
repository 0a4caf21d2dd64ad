package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"onboardline/internal/config"
	"onboardline/internal/db"
	"onboardline/internal/domain"
	"onboardline/internal/engine"
	"onboardline/internal/migrate"
	"onboardline/internal/repo"
)

const muni = "2281"

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default(muni))
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func (env testEnv) mustOrg(t *testing.T, number int, name string) domain.Organization {
	t.Helper()
	org, err := env.Engine.CreateOrganization(env.Ctx, muni, number, name, nil, "tester")
	if err != nil {
		t.Fatalf("create organization %d: %v", number, err)
	}
	return org
}

func (env testEnv) mustPhase(t *testing.T, name string) domain.Phase {
	t.Helper()
	p, err := env.Engine.CreatePhase(env.Ctx, domain.Phase{MunicipalityID: muni, Name: name}, "tester")
	if err != nil {
		t.Fatalf("create phase %s: %v", name, err)
	}
	return p
}

func (env testEnv) mustChecklist(t *testing.T, orgNumber int, name string) domain.Checklist {
	t.Helper()
	c, err := env.Engine.CreateChecklist(env.Ctx, engine.ChecklistCreateOptions{
		MunicipalityID:     muni,
		OrganizationNumber: orgNumber,
		Name:               name,
		DisplayName:        name,
		RoleType:           "EMPLOYEE",
		ActorID:            "tester",
	})
	if err != nil {
		t.Fatalf("create checklist %s: %v", name, err)
	}
	return c
}

func (env testEnv) mustTask(t *testing.T, checklistID, phaseID, heading string) domain.Task {
	t.Helper()
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		MunicipalityID: muni,
		ChecklistID:    checklistID,
		PhaseID:        phaseID,
		Heading:        heading,
		QuestionType:   "YES_OR_NO",
		RoleType:       "EMPLOYEE",
		ActorID:        "tester",
	})
	if err != nil {
		t.Fatalf("create task %s: %v", heading, err)
	}
	return task
}

func (env testEnv) mustActivate(t *testing.T, checklistID string) domain.Checklist {
	t.Helper()
	c, err := env.Engine.ActivateChecklist(env.Ctx, muni, checklistID, "tester")
	if err != nil {
		t.Fatalf("activate checklist %s: %v", checklistID, err)
	}
	return c
}

func kindOf(t *testing.T, err error) engine.Kind {
	t.Helper()
	var ee engine.Error
	if !errors.As(err, &ee) {
		t.Fatalf("expected typed engine error, got %v", err)
	}
	return ee.Kind
}

func TestCreateChecklistRejectsDuplicateName(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	env.mustChecklist(t, 7, "onboarding")
	_, err := env.Engine.CreateChecklist(env.Ctx, engine.ChecklistCreateOptions{
		MunicipalityID:     muni,
		OrganizationNumber: 7,
		Name:               "onboarding",
		ActorID:            "tester",
	})
	if err == nil || kindOf(t, err) != engine.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateChecklistRequiresOrganization(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateChecklist(env.Ctx, engine.ChecklistCreateOptions{
		MunicipalityID:     muni,
		OrganizationNumber: 99,
		Name:               "onboarding",
		ActorID:            "tester",
	})
	if err == nil || kindOf(t, err) != engine.KindBadRequest {
		t.Fatalf("expected bad_request, got %v", err)
	}
}

func TestDeletePhaseRejectedWhileReferenced(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	phase := env.mustPhase(t, "Before first day")
	c := env.mustChecklist(t, 7, "onboarding")
	env.mustTask(t, c.ID, phase.ID, "Order laptop")

	err := env.Engine.DeletePhase(env.Ctx, muni, phase.ID, "tester")
	if err == nil || kindOf(t, err) != engine.KindBadRequest {
		t.Fatalf("expected bad_request deleting referenced phase, got %v", err)
	}
	if _, err := env.Engine.Repo.GetPhase(env.Ctx, nil, muni, phase.ID); err != nil {
		t.Fatalf("phase must survive the rejected delete: %v", err)
	}
}

func TestDeletePhaseRemovesUnreferenced(t *testing.T) {
	env := newTestEnv(t)
	phase := env.mustPhase(t, "First week")

	if err := env.Engine.DeletePhase(env.Ctx, muni, phase.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Repo.GetPhase(env.Ctx, nil, muni, phase.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected phase gone, got %v", err)
	}
}

func TestActivateDemotesPreviousActive(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	v1 := env.mustChecklist(t, 7, "onboarding")
	env.mustActivate(t, v1.ID)

	v2, err := env.Engine.CreateNewVersion(env.Ctx, muni, v1.ID, "tester")
	if err != nil {
		t.Fatalf("new version: %v", err)
	}
	if v2.Version != 2 || v2.LifeCycle != domain.LifeCycleCreated {
		t.Fatalf("unexpected clone: version=%d life_cycle=%s", v2.Version, v2.LifeCycle)
	}
	env.mustActivate(t, v2.ID)

	old, err := env.Engine.Repo.GetChecklist(env.Ctx, nil, muni, v1.ID)
	if err != nil {
		t.Fatalf("reload v1: %v", err)
	}
	if old.LifeCycle != domain.LifeCycleDeprecated {
		t.Fatalf("expected v1 deprecated, got %s", old.LifeCycle)
	}
}

func TestActivateRejectsDeprecated(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	v1 := env.mustChecklist(t, 7, "onboarding")
	env.mustActivate(t, v1.ID)
	v2, err := env.Engine.CreateNewVersion(env.Ctx, muni, v1.ID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	env.mustActivate(t, v2.ID)

	_, err = env.Engine.ActivateChecklist(env.Ctx, muni, v1.ID, "tester")
	if err == nil || kindOf(t, err) != engine.KindBadRequest {
		t.Fatalf("expected bad_request reactivating deprecated, got %v", err)
	}
}

func TestCreateNewVersionRejectsSecondDraft(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	v1 := env.mustChecklist(t, 7, "onboarding")
	env.mustActivate(t, v1.ID)
	if _, err := env.Engine.CreateNewVersion(env.Ctx, muni, v1.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.CreateNewVersion(env.Ctx, muni, v1.ID, "tester")
	if err == nil || kindOf(t, err) != engine.KindConflict {
		t.Fatalf("expected conflict on second draft, got %v", err)
	}
}

func TestCreateNewVersionDeepCopiesTasks(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	phase := env.mustPhase(t, "First week")
	v1 := env.mustChecklist(t, 7, "onboarding")
	srcTask := env.mustTask(t, v1.ID, phase.ID, "Get badge")
	env.mustActivate(t, v1.ID)

	v2, err := env.Engine.CreateNewVersion(env.Ctx, muni, v1.ID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if len(v2.Tasks) != 1 {
		t.Fatalf("expected 1 cloned task, got %d", len(v2.Tasks))
	}
	clone := v2.Tasks[0]
	if clone.ID == srcTask.ID || clone.ChecklistID != v2.ID {
		t.Fatalf("clone shares identity with source")
	}
	// mutating the clone must not touch the source
	heading := "Changed"
	if _, err := env.Engine.UpdateTask(env.Ctx, muni, v2.ID, clone.ID, engine.TaskUpdateOptions{Heading: &heading}, "tester"); err != nil {
		t.Fatalf("update clone task: %v", err)
	}
	src, err := env.Engine.Repo.GetTask(env.Ctx, nil, srcTask.ID)
	if err != nil {
		t.Fatal(err)
	}
	if src.Heading != "Get badge" {
		t.Fatalf("source task mutated: %s", src.Heading)
	}
}

func TestDeleteChecklistDraftOnly(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	v1 := env.mustChecklist(t, 7, "onboarding")
	env.mustActivate(t, v1.ID)

	err := env.Engine.DeleteChecklist(env.Ctx, muni, v1.ID, "tester")
	if err == nil || kindOf(t, err) != engine.KindBadRequest {
		t.Fatalf("expected bad_request deleting active, got %v", err)
	}
	// still there
	if _, err := env.Engine.Repo.GetChecklist(env.Ctx, nil, muni, v1.ID); err != nil {
		t.Fatalf("active checklist was mutated by failed delete: %v", err)
	}

	v2, err := env.Engine.CreateNewVersion(env.Ctx, muni, v1.ID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteChecklist(env.Ctx, muni, v2.ID, "tester"); err != nil {
		t.Fatalf("delete draft: %v", err)
	}
}

func TestOneDraftOneActiveInvariant(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	v1 := env.mustChecklist(t, 7, "onboarding")
	env.mustActivate(t, v1.ID)
	v2, err := env.Engine.CreateNewVersion(env.Ctx, muni, v1.ID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	env.mustActivate(t, v2.ID)
	if _, err := env.Engine.CreateNewVersion(env.Ctx, muni, v2.ID, "tester"); err != nil {
		t.Fatal(err)
	}

	var created, active int
	row := env.Engine.DB.QueryRowContext(env.Ctx,
		`SELECT
			SUM(CASE WHEN life_cycle='CREATED' THEN 1 ELSE 0 END),
			SUM(CASE WHEN life_cycle='ACTIVE' THEN 1 ELSE 0 END)
		FROM checklists WHERE municipality_id=? AND name=?`, muni, "onboarding")
	if err := row.Scan(&created, &active); err != nil {
		t.Fatal(err)
	}
	if created != 1 || active != 1 {
		t.Fatalf("invariant violated: created=%d active=%d", created, active)
	}
}

func TestChecklistEventsLogged(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	v1 := env.mustChecklist(t, 7, "onboarding")
	env.mustActivate(t, v1.ID)

	events, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, muni, "", "checklist", "")
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	if len(events) < 2 {
		t.Fatalf("expected created+activated events, got %d", len(events))
	}
}
