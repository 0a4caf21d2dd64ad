package engine_test

import (
	"testing"

	"onboardline/internal/domain"
	"onboardline/internal/engine"
)

func TestExportStripsIdentity(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	phase := env.mustPhase(t, "First week")
	c := env.mustChecklist(t, 7, "onboarding")
	env.mustTask(t, c.ID, phase.ID, "Get badge")

	doc, err := env.Engine.ExportChecklist(env.Ctx, muni, 7, 0)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if doc.Name != "onboarding" || doc.Version != 1 {
		t.Fatalf("unexpected document header: %+v", doc)
	}
	if len(doc.Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(doc.Tasks))
	}
	if doc.Tasks[0].Phase.ID != phase.ID {
		t.Fatalf("phase reference must keep the catalog id")
	}
}

func TestExportNoMatchingVersion(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	env.mustChecklist(t, 7, "onboarding")
	_, err := env.Engine.ExportChecklist(env.Ctx, muni, 7, 4)
	if err == nil || kindOf(t, err) != engine.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	phase := env.mustPhase(t, "First week")
	c := env.mustChecklist(t, 7, "onboarding")
	env.mustTask(t, c.ID, phase.ID, "Get badge")
	env.mustTask(t, c.ID, phase.ID, "Meet the team")
	env.mustActivate(t, c.ID)

	doc, err := env.Engine.ExportChecklist(env.Ctx, muni, 7, 0)
	if err != nil {
		t.Fatal(err)
	}
	imported, err := env.Engine.ImportChecklist(env.Ctx, engine.ImportOptions{
		MunicipalityID:     muni,
		OrganizationNumber: 7,
		OrganizationName:   "Company",
		Document:           doc,
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported.Version != 2 || imported.LifeCycle != domain.LifeCycleCreated {
		t.Fatalf("expected fresh draft v2, got v%d %s", imported.Version, imported.LifeCycle)
	}
	tasks, err := env.Engine.Repo.ListTasks(env.Ctx, nil, imported.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 imported tasks, got %d", len(tasks))
	}
	for _, task := range tasks {
		if task.LastSavedBy != engine.ImportActor {
			t.Fatalf("imported task actor = %s", task.LastSavedBy)
		}
	}
}

func TestImportReusesSeriesName(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	c := env.mustChecklist(t, 7, "existing")
	env.mustActivate(t, c.ID)

	imported, err := env.Engine.ImportChecklist(env.Ctx, engine.ImportOptions{
		MunicipalityID:     muni,
		OrganizationNumber: 7,
		Document:           engine.PortableChecklist{Name: "n", DisplayName: "d"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if imported.Name != "existing" {
		t.Fatalf("import renamed the series to %s", imported.Name)
	}
	if imported.Version != 2 {
		t.Fatalf("expected version active+1, got %d", imported.Version)
	}
}

func TestImportConflictsOnExistingDraft(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	env.mustChecklist(t, 7, "onboarding")

	_, err := env.Engine.ImportChecklist(env.Ctx, engine.ImportOptions{
		MunicipalityID:     muni,
		OrganizationNumber: 7,
		Document:           engine.PortableChecklist{Name: "onboarding"},
	})
	if err == nil || kindOf(t, err) != engine.KindConflict {
		t.Fatalf("expected conflict on existing draft, got %v", err)
	}
}

func TestImportReplaceOverwritesDraftInPlace(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	phase := env.mustPhase(t, "First week")
	draft := env.mustChecklist(t, 7, "onboarding")
	env.mustTask(t, draft.ID, phase.ID, "Old task")

	imported, err := env.Engine.ImportChecklist(env.Ctx, engine.ImportOptions{
		MunicipalityID:     muni,
		OrganizationNumber: 7,
		Document: engine.PortableChecklist{
			Name:        "onboarding",
			DisplayName: "Fresh",
			Tasks: []engine.PortableTask{
				{Heading: "New task", Phase: engine.PortablePhase{ID: phase.ID}},
			},
		},
		ReplaceExisting: true,
	})
	if err != nil {
		t.Fatalf("replace import: %v", err)
	}
	if imported.ID != draft.ID || imported.Version != draft.Version || imported.LifeCycle != domain.LifeCycleCreated {
		t.Fatalf("identity not preserved: %+v", imported)
	}
	tasks, err := env.Engine.Repo.ListTasks(env.Ctx, nil, draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Heading != "New task" {
		t.Fatalf("draft content not replaced: %+v", tasks)
	}
}

func TestImportReplaceOverwritesActiveWhenNoDraft(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	c := env.mustChecklist(t, 7, "onboarding")
	env.mustActivate(t, c.ID)

	imported, err := env.Engine.ImportChecklist(env.Ctx, engine.ImportOptions{
		MunicipalityID:     muni,
		OrganizationNumber: 7,
		Document:           engine.PortableChecklist{Name: "onboarding", DisplayName: "Mutated"},
		ReplaceExisting:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if imported.ID != c.ID || imported.LifeCycle != domain.LifeCycleActive {
		t.Fatalf("expected the active template overwritten in place, got %+v", imported)
	}
	if imported.DisplayName != "Mutated" {
		t.Fatalf("display name not overwritten")
	}
}

func TestImportUnresolvedPhaseFails(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	_, err := env.Engine.ImportChecklist(env.Ctx, engine.ImportOptions{
		MunicipalityID:     muni,
		OrganizationNumber: 7,
		Document: engine.PortableChecklist{
			Name:  "onboarding",
			Tasks: []engine.PortableTask{{Heading: "x", Phase: engine.PortablePhase{ID: "missing-phase"}}},
		},
	})
	if err == nil || kindOf(t, err) != engine.KindNotFound {
		t.Fatalf("expected not_found for unresolved phase, got %v", err)
	}
}

func TestImportCreatesOrganization(t *testing.T) {
	env := newTestEnv(t)
	imported, err := env.Engine.ImportChecklist(env.Ctx, engine.ImportOptions{
		MunicipalityID:     muni,
		OrganizationNumber: 42,
		OrganizationName:   "New Dept",
		Document:           engine.PortableChecklist{Name: "dept-onboarding"},
	})
	if err != nil {
		t.Fatal(err)
	}
	org, err := env.Engine.Repo.GetOrganizationByNumber(env.Ctx, nil, muni, 42)
	if err != nil {
		t.Fatalf("organization was not created: %v", err)
	}
	if imported.OrganizationID != org.ID || imported.Version != 1 {
		t.Fatalf("unexpected import result: %+v", imported)
	}
}
