package engine_test

import (
	"errors"
	"testing"

	"onboardline/internal/domain"
	"onboardline/internal/engine"
	"onboardline/internal/repo"
)

func fstatus(s domain.FulfilmentStatus) *domain.FulfilmentStatus { return &s }

func strptr(s string) *string { return &s }

// setupInitiated builds one active template with a single task and initiates
// an employee against it.
func setupInitiated(t *testing.T, env testEnv) (string, domain.Task, domain.Phase) {
	t.Helper()
	env.mustOrg(t, 7, "Company")
	phase := env.mustPhase(t, "Before first day")
	cl := env.mustChecklist(t, 7, "company-onboarding")
	task := env.mustTask(t, cl.ID, phase.ID, "Order laptop")
	env.mustActivate(t, cl.ID)
	detail, err := env.Engine.InitiateEmployee(env.Ctx, muni, newHire("emp1", 7, 21))
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	return detail.EmployeeChecklistID, task, phase
}

func lockChecklist(t *testing.T, env testEnv, ecID string) {
	t.Helper()
	if _, err := env.Engine.DB.ExecContext(env.Ctx,
		`UPDATE employee_checklists SET locked = 1 WHERE id = ?`, ecID); err != nil {
		t.Fatal(err)
	}
}

func TestFulfilmentDrivesCompletion(t *testing.T) {
	env := newTestEnv(t)
	ecID, task, _ := setupInitiated(t, env)

	ec, err := env.Engine.UpdateTaskFulfilment(env.Ctx, muni, ecID, task.ID,
		fstatus(domain.FulfilmentTrue), nil, "manager1")
	if err != nil {
		t.Fatal(err)
	}
	if !ec.Completed {
		t.Fatalf("all tasks fulfilled, expected completed aggregate")
	}

	ec, err = env.Engine.UpdateTaskFulfilment(env.Ctx, muni, ecID, task.ID,
		fstatus(domain.FulfilmentFalse), nil, "manager1")
	if err != nil {
		t.Fatal(err)
	}
	if ec.Completed {
		t.Fatalf("completion must be withdrawn when a task is no longer fulfilled")
	}
}

func TestUpdateTaskFulfilmentPreservesUnsetFields(t *testing.T) {
	env := newTestEnv(t)
	ecID, task, _ := setupInitiated(t, env)

	if _, err := env.Engine.UpdateTaskFulfilment(env.Ctx, muni, ecID, task.ID,
		fstatus(domain.FulfilmentTrue), strptr("done on monday"), "manager1"); err != nil {
		t.Fatal(err)
	}
	// status-only update keeps the stored response text
	if _, err := env.Engine.UpdateTaskFulfilment(env.Ctx, muni, ecID, task.ID,
		fstatus(domain.FulfilmentFalse), nil, "manager1"); err != nil {
		t.Fatal(err)
	}
	f, err := env.Engine.Repo.GetFulfilment(env.Ctx, nil, ecID, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if f.Completed != domain.FulfilmentFalse || f.ResponseText != "done on monday" {
		t.Fatalf("unexpected fulfilment after partial update: %+v", f)
	}
	// text-only update keeps the status
	if _, err := env.Engine.UpdateTaskFulfilment(env.Ctx, muni, ecID, task.ID,
		nil, strptr("rescheduled"), "manager1"); err != nil {
		t.Fatal(err)
	}
	f, err = env.Engine.Repo.GetFulfilment(env.Ctx, nil, ecID, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if f.Completed != domain.FulfilmentFalse || f.ResponseText != "rescheduled" {
		t.Fatalf("unexpected fulfilment after text update: %+v", f)
	}
}

func TestLockedChecklistRejectsChanges(t *testing.T) {
	env := newTestEnv(t)
	ecID, task, phase := setupInitiated(t, env)
	lockChecklist(t, env, ecID)

	_, err := env.Engine.UpdateTaskFulfilment(env.Ctx, muni, ecID, task.ID,
		fstatus(domain.FulfilmentTrue), nil, "manager1")
	if kindOf(t, err) != engine.KindBadRequest {
		t.Fatalf("expected bad_request on locked aggregate, got %v", err)
	}
	if _, err := env.Engine.Repo.GetFulfilment(env.Ctx, nil, ecID, task.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("rejected update must not persist anything, got %v", err)
	}

	_, err = env.Engine.UpdateAllTasksInPhase(env.Ctx, muni, ecID, phase.ID,
		fstatus(domain.FulfilmentTrue), "manager1")
	if kindOf(t, err) != engine.KindBadRequest {
		t.Fatalf("expected bad_request on locked phase update, got %v", err)
	}
	_, err = env.Engine.CreateCustomTask(env.Ctx, engine.CustomTaskCreateOptions{
		MunicipalityID:      muni,
		EmployeeChecklistID: ecID,
		PhaseID:             phase.ID,
		Heading:             "Extra",
		QuestionType:        "YES_OR_NO",
		RoleType:            "NEW_EMPLOYEE",
		ActorID:             "manager1",
	})
	if kindOf(t, err) != engine.KindBadRequest {
		t.Fatalf("expected bad_request creating custom task on locked aggregate, got %v", err)
	}
}

func TestPhaseBulkUpdateOverwritesResponseText(t *testing.T) {
	env := newTestEnv(t)
	ecID, task, phase := setupInitiated(t, env)

	if _, err := env.Engine.UpdateTaskFulfilment(env.Ctx, muni, ecID, task.ID,
		fstatus(domain.FulfilmentFalse), strptr("waiting on it"), "manager1"); err != nil {
		t.Fatal(err)
	}
	ec, err := env.Engine.UpdateAllTasksInPhase(env.Ctx, muni, ecID, phase.ID,
		fstatus(domain.FulfilmentTrue), "manager1")
	if err != nil {
		t.Fatal(err)
	}
	if !ec.Completed {
		t.Fatalf("bulk TRUE over the only phase should complete the aggregate")
	}
	f, err := env.Engine.Repo.GetFulfilment(env.Ctx, nil, ecID, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if f.Completed != domain.FulfilmentTrue || f.ResponseText != "" {
		t.Fatalf("bulk update must overwrite status and clear text, got %+v", f)
	}
}

func TestPhaseBulkUpdateNilStatusIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	ecID, task, phase := setupInitiated(t, env)

	if _, err := env.Engine.UpdateTaskFulfilment(env.Ctx, muni, ecID, task.ID,
		fstatus(domain.FulfilmentTrue), strptr("done"), "manager1"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.UpdateAllTasksInPhase(env.Ctx, muni, ecID, phase.ID, nil, "manager1"); err != nil {
		t.Fatal(err)
	}
	f, err := env.Engine.Repo.GetFulfilment(env.Ctx, nil, ecID, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if f.Completed != domain.FulfilmentTrue || f.ResponseText != "done" {
		t.Fatalf("nil status must leave fulfilments untouched, got %+v", f)
	}
}

func TestCustomTaskCountsTowardsCompletion(t *testing.T) {
	env := newTestEnv(t)
	ecID, task, phase := setupInitiated(t, env)

	ec, err := env.Engine.UpdateTaskFulfilment(env.Ctx, muni, ecID, task.ID,
		fstatus(domain.FulfilmentTrue), nil, "manager1")
	if err != nil {
		t.Fatal(err)
	}
	if !ec.Completed {
		t.Fatal("precondition: aggregate complete before adding a custom task")
	}

	ct, err := env.Engine.CreateCustomTask(env.Ctx, engine.CustomTaskCreateOptions{
		MunicipalityID:      muni,
		EmployeeChecklistID: ecID,
		PhaseID:             phase.ID,
		Heading:             "Badge photo",
		QuestionType:        "YES_OR_NO",
		RoleType:            "NEW_EMPLOYEE",
		ActorID:             "manager1",
	})
	if err != nil {
		t.Fatal(err)
	}
	detail, err := env.Engine.GetEmployeeChecklistDetail(env.Ctx, muni, ecID)
	if err != nil {
		t.Fatal(err)
	}
	if detail.Completed {
		t.Fatalf("new unfulfilled custom task must break completion")
	}

	ec, err = env.Engine.UpdateTaskFulfilment(env.Ctx, muni, ecID, ct.ID,
		fstatus(domain.FulfilmentTrue), nil, "emp1")
	if err != nil {
		t.Fatal(err)
	}
	if !ec.Completed {
		t.Fatalf("fulfilling the custom task should restore completion")
	}
}

func TestDeleteCustomTaskRemovesFulfilment(t *testing.T) {
	env := newTestEnv(t)
	ecID, task, phase := setupInitiated(t, env)

	if _, err := env.Engine.UpdateTaskFulfilment(env.Ctx, muni, ecID, task.ID,
		fstatus(domain.FulfilmentTrue), nil, "manager1"); err != nil {
		t.Fatal(err)
	}
	ct, err := env.Engine.CreateCustomTask(env.Ctx, engine.CustomTaskCreateOptions{
		MunicipalityID:      muni,
		EmployeeChecklistID: ecID,
		PhaseID:             phase.ID,
		Heading:             "Badge photo",
		QuestionType:        "YES_OR_NO",
		RoleType:            "NEW_EMPLOYEE",
		ActorID:             "manager1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteCustomTask(env.Ctx, muni, ecID, ct.ID, "manager1"); err != nil {
		t.Fatal(err)
	}
	detail, err := env.Engine.GetEmployeeChecklistDetail(env.Ctx, muni, ecID)
	if err != nil {
		t.Fatal(err)
	}
	if len(detail.CustomTasks) != 0 || len(detail.CustomFulfilments) != 0 {
		t.Fatalf("custom task and its fulfilment must be gone, got %d/%d",
			len(detail.CustomTasks), len(detail.CustomFulfilments))
	}
	if !detail.Completed {
		t.Fatalf("removing the only unfulfilled task should restore completion")
	}
}

func TestUpdateCustomTaskPartialFields(t *testing.T) {
	env := newTestEnv(t)
	ecID, _, phase := setupInitiated(t, env)

	ct, err := env.Engine.CreateCustomTask(env.Ctx, engine.CustomTaskCreateOptions{
		MunicipalityID:      muni,
		EmployeeChecklistID: ecID,
		PhaseID:             phase.ID,
		Heading:             "Badge photo",
		Text:                "bring a photo",
		QuestionType:        "YES_OR_NO",
		RoleType:            "NEW_EMPLOYEE",
		ActorID:             "manager1",
	})
	if err != nil {
		t.Fatal(err)
	}
	updated, err := env.Engine.UpdateCustomTask(env.Ctx, muni, ecID, ct.ID,
		engine.CustomTaskUpdateOptions{Heading: strptr("Badge portrait")}, "manager1")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Heading != "Badge portrait" || updated.Text != "bring a photo" {
		t.Fatalf("partial update changed unset fields: %+v", updated)
	}
}

func TestDelegates(t *testing.T) {
	env := newTestEnv(t)
	ecID, _, _ := setupInitiated(t, env)

	d := domain.Delegate{Email: "deputy@example.com", Username: "deputy", FirstName: "Dep", LastName: "Uty"}
	if _, err := env.Engine.AddDelegate(env.Ctx, muni, ecID, d, "manager1"); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.AddDelegate(env.Ctx, muni, ecID, d, "manager1")
	if kindOf(t, err) != engine.KindConflict {
		t.Fatalf("expected conflict on duplicate delegate, got %v", err)
	}
	if err := env.Engine.RemoveDelegate(env.Ctx, muni, ecID, "deputy@example.com", "manager1"); err != nil {
		t.Fatal(err)
	}
	err = env.Engine.RemoveDelegate(env.Ctx, muni, ecID, "deputy@example.com", "manager1")
	if kindOf(t, err) != engine.KindNotFound {
		t.Fatalf("expected not_found removing absent delegate, got %v", err)
	}
}

func TestMentorAssignment(t *testing.T) {
	env := newTestEnv(t)
	ecID, _, _ := setupInitiated(t, env)

	ec, err := env.Engine.SetMentor(env.Ctx, muni, ecID, "mentor1", "Maria Mentor", "manager1")
	if err != nil {
		t.Fatal(err)
	}
	if ec.MentorUserID != "mentor1" || ec.MentorName != "Maria Mentor" {
		t.Fatalf("mentor not stored: %+v", ec)
	}
	ec, err = env.Engine.RemoveMentor(env.Ctx, muni, ecID, "manager1")
	if err != nil {
		t.Fatal(err)
	}
	if ec.MentorUserID != "" || ec.MentorName != "" {
		t.Fatalf("mentor not cleared: %+v", ec)
	}
}

func TestLockedChecklistKeepsDelegateAndMentor(t *testing.T) {
	env := newTestEnv(t)
	ecID, _, _ := setupInitiated(t, env)
	d := domain.Delegate{Email: "deputy@example.com", Username: "deputy"}
	if _, err := env.Engine.AddDelegate(env.Ctx, muni, ecID, d, "manager1"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SetMentor(env.Ctx, muni, ecID, "mentor1", "Maria Mentor", "manager1"); err != nil {
		t.Fatal(err)
	}
	lockChecklist(t, env, ecID)

	err := env.Engine.RemoveDelegate(env.Ctx, muni, ecID, "deputy@example.com", "manager1")
	if kindOf(t, err) != engine.KindBadRequest {
		t.Fatalf("expected bad_request removing delegate from locked aggregate, got %v", err)
	}
	if _, err := env.Engine.Repo.GetDelegateByEmail(env.Ctx, nil, ecID, "deputy@example.com"); err != nil {
		t.Fatalf("delegate must survive the rejected removal: %v", err)
	}

	_, err = env.Engine.RemoveMentor(env.Ctx, muni, ecID, "manager1")
	if kindOf(t, err) != engine.KindBadRequest {
		t.Fatalf("expected bad_request removing mentor from locked aggregate, got %v", err)
	}
	ec, err := env.Engine.Repo.GetEmployeeChecklist(env.Ctx, nil, muni, ecID)
	if err != nil {
		t.Fatal(err)
	}
	if ec.MentorUserID != "mentor1" {
		t.Fatalf("mentor must survive the rejected removal: %+v", ec)
	}
}

func TestDeleteEmployeeChecklistRemovesEmployee(t *testing.T) {
	env := newTestEnv(t)
	ecID, _, _ := setupInitiated(t, env)

	if err := env.Engine.DeleteEmployeeChecklist(env.Ctx, muni, ecID, "admin1"); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.GetEmployeeChecklistDetail(env.Ctx, muni, ecID)
	if kindOf(t, err) != engine.KindNotFound {
		t.Fatalf("expected not_found after delete, got %v", err)
	}
	var employees int
	row := env.Engine.DB.QueryRowContext(env.Ctx, `SELECT COUNT(*) FROM employees`)
	if err := row.Scan(&employees); err != nil {
		t.Fatal(err)
	}
	if employees != 0 {
		t.Fatalf("employee record should be removed with the aggregate, got %d", employees)
	}
}
