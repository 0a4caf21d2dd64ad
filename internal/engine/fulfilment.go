package engine

import (
	"context"
	"database/sql"
	"errors"

	"onboardline/internal/domain"
	"onboardline/internal/events"
	"onboardline/internal/repo"
)

// EmployeeChecklistDetail is the full aggregate view: the stored row plus its
// tasks, custom tasks, fulfilment records, and delegates.
type EmployeeChecklistDetail struct {
	domain.EmployeeChecklist
	Tasks             []domain.Task             `json:"tasks,omitempty"`
	CustomTasks       []domain.CustomTask       `json:"custom_tasks,omitempty"`
	Fulfilments       []domain.Fulfilment       `json:"fulfilments,omitempty"`
	CustomFulfilments []domain.CustomFulfilment `json:"custom_fulfilments,omitempty"`
	Delegates         []domain.Delegate         `json:"delegates,omitempty"`
}

// GetEmployeeChecklistDetail loads the aggregate with all satellite records.
func (e Engine) GetEmployeeChecklistDetail(ctx context.Context, municipalityID, id string) (EmployeeChecklistDetail, error) {
	ec, err := e.Repo.GetEmployeeChecklist(ctx, nil, municipalityID, id)
	if err != nil {
		return EmployeeChecklistDetail{}, wrapNotFound(err, map[string]any{"employee_checklist_id": id}, "employee checklist %s not found", id)
	}
	detail := EmployeeChecklistDetail{EmployeeChecklist: ec}
	if detail.Tasks, err = e.Repo.ListEmployeeChecklistTasks(ctx, nil, ec.ID); err != nil {
		return detail, err
	}
	if detail.CustomTasks, err = e.Repo.ListCustomTasks(ctx, nil, ec.ID); err != nil {
		return detail, err
	}
	if detail.Fulfilments, err = e.Repo.ListFulfilments(ctx, nil, ec.ID); err != nil {
		return detail, err
	}
	if detail.CustomFulfilments, err = e.Repo.ListCustomFulfilments(ctx, nil, ec.ID); err != nil {
		return detail, err
	}
	if detail.Delegates, err = e.Repo.ListDelegates(ctx, nil, ec.ID); err != nil {
		return detail, err
	}
	return detail, nil
}

// lockedGate fails before any write when the aggregate is locked.
func lockedGate(ec domain.EmployeeChecklist) error {
	if ec.Locked {
		return badRequest(map[string]any{"employee_checklist_id": ec.ID}, "employee checklist %s is locked", ec.ID)
	}
	return nil
}

// UpdateTaskFulfilment updates the completion record for one task, common or
// custom. Fields left nil keep their prior value; a missing record is created.
// The aggregate completed flag is recomputed over the whole checklist in the
// same transaction.
func (e Engine) UpdateTaskFulfilment(ctx context.Context, municipalityID, employeeChecklistID, taskID string, status *domain.FulfilmentStatus, responseText *string, actorID string) (domain.EmployeeChecklist, error) {
	ec, err := e.Repo.GetEmployeeChecklist(ctx, nil, municipalityID, employeeChecklistID)
	if err != nil {
		return ec, wrapNotFound(err, map[string]any{"employee_checklist_id": employeeChecklistID}, "employee checklist %s not found", employeeChecklistID)
	}
	if err := lockedGate(ec); err != nil {
		return ec, err
	}
	common, custom, err := e.resolveTask(ctx, ec, taskID)
	if err != nil {
		return ec, err
	}

	now := e.timestamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return ec, err
	}
	defer tx.Rollback()

	switch {
	case common:
		f, err := e.Repo.GetFulfilment(ctx, tx, ec.ID, taskID)
		if errors.Is(err, repo.ErrNotFound) {
			f = domain.Fulfilment{
				ID:                  newID(),
				EmployeeChecklistID: ec.ID,
				TaskID:              taskID,
				Completed:           domain.FulfilmentEmpty,
			}
		} else if err != nil {
			return ec, err
		}
		if status != nil {
			f.Completed = *status
		}
		if responseText != nil {
			f.ResponseText = *responseText
		}
		f.LastSavedBy = actorID
		f.UpdatedAt = now
		if err := e.Repo.UpsertFulfilment(ctx, tx, f); err != nil {
			return ec, err
		}
	case custom:
		f, err := e.Repo.GetCustomFulfilment(ctx, tx, ec.ID, taskID)
		if errors.Is(err, repo.ErrNotFound) {
			f = domain.CustomFulfilment{
				ID:                  newID(),
				EmployeeChecklistID: ec.ID,
				CustomTaskID:        taskID,
				Completed:           domain.FulfilmentEmpty,
			}
		} else if err != nil {
			return ec, err
		}
		if status != nil {
			f.Completed = *status
		}
		if responseText != nil {
			f.ResponseText = *responseText
		}
		f.LastSavedBy = actorID
		f.UpdatedAt = now
		if err := e.Repo.UpsertCustomFulfilment(ctx, tx, f); err != nil {
			return ec, err
		}
	}

	if err := e.recomputeCompleted(ctx, tx, &ec); err != nil {
		return ec, err
	}
	if err := e.Events.Append(ctx, tx, "fulfilment.updated", municipalityID, "employee_checklist", ec.ID, actorID, events.EventPayload{
		"task_id": taskID,
	}); err != nil {
		return ec, err
	}
	if err := tx.Commit(); err != nil {
		return ec, err
	}
	return ec, nil
}

// UpdateAllTasksInPhase overwrites the fulfilment of every task in one phase.
// A nil status is a deliberate no-op, not an error. Unlike the single-task
// update, the bulk overwrite clears prior response text.
func (e Engine) UpdateAllTasksInPhase(ctx context.Context, municipalityID, employeeChecklistID, phaseID string, status *domain.FulfilmentStatus, actorID string) (domain.EmployeeChecklist, error) {
	ec, err := e.Repo.GetEmployeeChecklist(ctx, nil, municipalityID, employeeChecklistID)
	if err != nil {
		return ec, wrapNotFound(err, map[string]any{"employee_checklist_id": employeeChecklistID}, "employee checklist %s not found", employeeChecklistID)
	}
	if err := lockedGate(ec); err != nil {
		return ec, err
	}
	if _, err := e.Repo.GetPhase(ctx, nil, municipalityID, phaseID); err != nil {
		return ec, wrapNotFound(err, map[string]any{"phase_id": phaseID}, "phase %s not found", phaseID)
	}
	if status == nil {
		return ec, nil
	}

	tasks, err := e.Repo.ListEmployeeChecklistTasks(ctx, nil, ec.ID)
	if err != nil {
		return ec, err
	}
	customTasks, err := e.Repo.ListCustomTasks(ctx, nil, ec.ID)
	if err != nil {
		return ec, err
	}

	now := e.timestamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return ec, err
	}
	defer tx.Rollback()

	for _, t := range tasks {
		if t.PhaseID != phaseID {
			continue
		}
		f := domain.Fulfilment{
			ID:                  newID(),
			EmployeeChecklistID: ec.ID,
			TaskID:              t.ID,
			Completed:           *status,
			LastSavedBy:         actorID,
			UpdatedAt:           now,
		}
		if err := e.Repo.UpsertFulfilment(ctx, tx, f); err != nil {
			return ec, err
		}
	}
	for _, t := range customTasks {
		if t.PhaseID != phaseID {
			continue
		}
		f := domain.CustomFulfilment{
			ID:                  newID(),
			EmployeeChecklistID: ec.ID,
			CustomTaskID:        t.ID,
			Completed:           *status,
			LastSavedBy:         actorID,
			UpdatedAt:           now,
		}
		if err := e.Repo.UpsertCustomFulfilment(ctx, tx, f); err != nil {
			return ec, err
		}
	}

	if err := e.recomputeCompleted(ctx, tx, &ec); err != nil {
		return ec, err
	}
	if err := e.Events.Append(ctx, tx, "fulfilment.phase.updated", municipalityID, "employee_checklist", ec.ID, actorID, events.EventPayload{
		"phase_id": phaseID,
		"status":   *status,
	}); err != nil {
		return ec, err
	}
	if err := tx.Commit(); err != nil {
		return ec, err
	}
	return ec, nil
}

// resolveTask reports whether taskID is a common or a custom task of this
// aggregate; not_found when it is neither.
func (e Engine) resolveTask(ctx context.Context, ec domain.EmployeeChecklist, taskID string) (common, custom bool, err error) {
	tasks, err := e.Repo.ListEmployeeChecklistTasks(ctx, nil, ec.ID)
	if err != nil {
		return false, false, err
	}
	for _, t := range tasks {
		if t.ID == taskID {
			return true, false, nil
		}
	}
	ct, err := e.Repo.GetCustomTask(ctx, nil, taskID)
	if err == nil && ct.EmployeeChecklistID == ec.ID {
		return false, true, nil
	}
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return false, false, err
	}
	return false, false, notFound(map[string]any{"task_id": taskID}, "task %s not found in employee checklist %s", taskID, ec.ID)
}

// recomputeCompleted derives the aggregate completed flag over the entire
// checklist: every common and custom task must have a TRUE fulfilment.
func (e Engine) recomputeCompleted(ctx context.Context, tx *sql.Tx, ec *domain.EmployeeChecklist) error {
	tasks, err := e.Repo.ListEmployeeChecklistTasks(ctx, tx, ec.ID)
	if err != nil {
		return err
	}
	customTasks, err := e.Repo.ListCustomTasks(ctx, tx, ec.ID)
	if err != nil {
		return err
	}
	fulfilments, err := e.Repo.ListFulfilments(ctx, tx, ec.ID)
	if err != nil {
		return err
	}
	customFulfilments, err := e.Repo.ListCustomFulfilments(ctx, tx, ec.ID)
	if err != nil {
		return err
	}
	byTask := make(map[string]domain.FulfilmentStatus, len(fulfilments))
	for _, f := range fulfilments {
		byTask[f.TaskID] = f.Completed
	}
	byCustomTask := make(map[string]domain.FulfilmentStatus, len(customFulfilments))
	for _, f := range customFulfilments {
		byCustomTask[f.CustomTaskID] = f.Completed
	}
	completed := true
	for _, t := range tasks {
		if byTask[t.ID] != domain.FulfilmentTrue {
			completed = false
			break
		}
	}
	if completed {
		for _, t := range customTasks {
			if byCustomTask[t.ID] != domain.FulfilmentTrue {
				completed = false
				break
			}
		}
	}
	ec.Completed = completed
	ec.UpdatedAt = e.timestamp()
	return e.Repo.UpdateEmployeeChecklist(ctx, tx, *ec)
}

// CustomTaskCreateOptions are parameters for an ad hoc task on one aggregate.
type CustomTaskCreateOptions struct {
	MunicipalityID      string
	EmployeeChecklistID string
	PhaseID             string
	Heading             string
	Text                string
	QuestionType        string
	RoleType            string
	SortOrder           int
	ActorID             string
}

func (e Engine) CreateCustomTask(ctx context.Context, opts CustomTaskCreateOptions) (domain.CustomTask, error) {
	if opts.Heading == "" {
		return domain.CustomTask{}, badRequest(nil, "heading is required")
	}
	ec, err := e.Repo.GetEmployeeChecklist(ctx, nil, opts.MunicipalityID, opts.EmployeeChecklistID)
	if err != nil {
		return domain.CustomTask{}, wrapNotFound(err, map[string]any{"employee_checklist_id": opts.EmployeeChecklistID}, "employee checklist %s not found", opts.EmployeeChecklistID)
	}
	if err := lockedGate(ec); err != nil {
		return domain.CustomTask{}, err
	}
	if _, err := e.Repo.GetPhase(ctx, nil, opts.MunicipalityID, opts.PhaseID); err != nil {
		return domain.CustomTask{}, wrapNotFound(err, map[string]any{"phase_id": opts.PhaseID}, "phase %s not found", opts.PhaseID)
	}
	now := e.timestamp()
	t := domain.CustomTask{
		ID:                  newID(),
		EmployeeChecklistID: ec.ID,
		PhaseID:             opts.PhaseID,
		Heading:             opts.Heading,
		Text:                opts.Text,
		QuestionType:        opts.QuestionType,
		RoleType:            opts.RoleType,
		SortOrder:           opts.SortOrder,
		LastSavedBy:         opts.ActorID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return t, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertCustomTask(ctx, tx, t); err != nil {
		return t, err
	}
	// A fresh custom task has no TRUE fulfilment, so the aggregate can no
	// longer be complete.
	if err := e.recomputeCompleted(ctx, tx, &ec); err != nil {
		return t, err
	}
	if err := e.Events.Append(ctx, tx, "custom_task.created", opts.MunicipalityID, "custom_task", t.ID, opts.ActorID, events.EventPayload{
		"employee_checklist_id": ec.ID,
		"heading":               t.Heading,
	}); err != nil {
		return t, err
	}
	return t, tx.Commit()
}

// CustomTaskUpdateOptions is a partial custom-task update.
type CustomTaskUpdateOptions struct {
	Heading      *string
	Text         *string
	QuestionType *string
	SortOrder    *int
}

func (e Engine) UpdateCustomTask(ctx context.Context, municipalityID, employeeChecklistID, customTaskID string, opts CustomTaskUpdateOptions, actorID string) (domain.CustomTask, error) {
	ec, err := e.Repo.GetEmployeeChecklist(ctx, nil, municipalityID, employeeChecklistID)
	if err != nil {
		return domain.CustomTask{}, wrapNotFound(err, map[string]any{"employee_checklist_id": employeeChecklistID}, "employee checklist %s not found", employeeChecklistID)
	}
	if err := lockedGate(ec); err != nil {
		return domain.CustomTask{}, err
	}
	t, err := e.Repo.GetCustomTask(ctx, nil, customTaskID)
	if err != nil {
		return t, wrapNotFound(err, map[string]any{"custom_task_id": customTaskID}, "custom task %s not found", customTaskID)
	}
	if t.EmployeeChecklistID != ec.ID {
		return t, notFound(map[string]any{"custom_task_id": customTaskID}, "custom task %s not found", customTaskID)
	}
	if opts.Heading != nil {
		t.Heading = *opts.Heading
	}
	if opts.Text != nil {
		t.Text = *opts.Text
	}
	if opts.QuestionType != nil {
		t.QuestionType = *opts.QuestionType
	}
	if opts.SortOrder != nil {
		t.SortOrder = *opts.SortOrder
	}
	t.LastSavedBy = actorID
	t.UpdatedAt = e.timestamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return t, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateCustomTask(ctx, tx, t); err != nil {
		return t, err
	}
	if err := e.Events.Append(ctx, tx, "custom_task.updated", municipalityID, "custom_task", t.ID, actorID, events.EventPayload{}); err != nil {
		return t, err
	}
	return t, tx.Commit()
}

// DeleteCustomTask removes a custom task and its fulfilment record, then
// recomputes the aggregate completed flag.
func (e Engine) DeleteCustomTask(ctx context.Context, municipalityID, employeeChecklistID, customTaskID, actorID string) error {
	ec, err := e.Repo.GetEmployeeChecklist(ctx, nil, municipalityID, employeeChecklistID)
	if err != nil {
		return wrapNotFound(err, map[string]any{"employee_checklist_id": employeeChecklistID}, "employee checklist %s not found", employeeChecklistID)
	}
	if err := lockedGate(ec); err != nil {
		return err
	}
	t, err := e.Repo.GetCustomTask(ctx, nil, customTaskID)
	if err != nil {
		return wrapNotFound(err, map[string]any{"custom_task_id": customTaskID}, "custom task %s not found", customTaskID)
	}
	if t.EmployeeChecklistID != ec.ID {
		return notFound(map[string]any{"custom_task_id": customTaskID}, "custom task %s not found", customTaskID)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteCustomFulfilment(ctx, tx, customTaskID); err != nil {
		return err
	}
	if err := e.Repo.DeleteCustomTask(ctx, tx, customTaskID); err != nil {
		return err
	}
	if err := e.recomputeCompleted(ctx, tx, &ec); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "custom_task.deleted", municipalityID, "custom_task", customTaskID, actorID, events.EventPayload{
		"employee_checklist_id": ec.ID,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// AddDelegate delegates checklist access to an email address; at most one
// delegation per address per aggregate.
func (e Engine) AddDelegate(ctx context.Context, municipalityID, employeeChecklistID string, d domain.Delegate, actorID string) (domain.Delegate, error) {
	if d.Email == "" {
		return d, badRequest(nil, "email is required")
	}
	ec, err := e.Repo.GetEmployeeChecklist(ctx, nil, municipalityID, employeeChecklistID)
	if err != nil {
		return d, wrapNotFound(err, map[string]any{"employee_checklist_id": employeeChecklistID}, "employee checklist %s not found", employeeChecklistID)
	}
	if err := lockedGate(ec); err != nil {
		return d, err
	}
	if _, err := e.Repo.GetDelegateByEmail(ctx, nil, ec.ID, d.Email); err == nil {
		return d, conflict(map[string]any{"email": d.Email}, "delegate %s already exists", d.Email)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return d, err
	}
	d.ID = newID()
	d.EmployeeChecklistID = ec.ID
	d.CreatedAt = e.timestamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return d, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertDelegate(ctx, tx, d); err != nil {
		return d, err
	}
	if err := e.Events.Append(ctx, tx, "delegate.added", municipalityID, "employee_checklist", ec.ID, actorID, events.EventPayload{
		"email": d.Email,
	}); err != nil {
		return d, err
	}
	return d, tx.Commit()
}

func (e Engine) RemoveDelegate(ctx context.Context, municipalityID, employeeChecklistID, email, actorID string) error {
	ec, err := e.Repo.GetEmployeeChecklist(ctx, nil, municipalityID, employeeChecklistID)
	if err != nil {
		return wrapNotFound(err, map[string]any{"employee_checklist_id": employeeChecklistID}, "employee checklist %s not found", employeeChecklistID)
	}
	if err := lockedGate(ec); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteDelegate(ctx, tx, ec.ID, email); err != nil {
		return wrapNotFound(err, map[string]any{"email": email}, "delegate %s not found", email)
	}
	if err := e.Events.Append(ctx, tx, "delegate.removed", municipalityID, "employee_checklist", ec.ID, actorID, events.EventPayload{
		"email": email,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// SetMentor assigns a mentor to the aggregate, replacing any previous one.
func (e Engine) SetMentor(ctx context.Context, municipalityID, employeeChecklistID, mentorUserID, mentorName, actorID string) (domain.EmployeeChecklist, error) {
	if mentorUserID == "" {
		return domain.EmployeeChecklist{}, badRequest(nil, "mentor user id is required")
	}
	ec, err := e.Repo.GetEmployeeChecklist(ctx, nil, municipalityID, employeeChecklistID)
	if err != nil {
		return ec, wrapNotFound(err, map[string]any{"employee_checklist_id": employeeChecklistID}, "employee checklist %s not found", employeeChecklistID)
	}
	if err := lockedGate(ec); err != nil {
		return ec, err
	}
	ec.MentorUserID = mentorUserID
	ec.MentorName = mentorName
	ec.UpdatedAt = e.timestamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return ec, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateEmployeeChecklist(ctx, tx, ec); err != nil {
		return ec, err
	}
	if err := e.Events.Append(ctx, tx, "mentor.assigned", municipalityID, "employee_checklist", ec.ID, actorID, events.EventPayload{
		"mentor_user_id": mentorUserID,
	}); err != nil {
		return ec, err
	}
	return ec, tx.Commit()
}

func (e Engine) RemoveMentor(ctx context.Context, municipalityID, employeeChecklistID, actorID string) (domain.EmployeeChecklist, error) {
	ec, err := e.Repo.GetEmployeeChecklist(ctx, nil, municipalityID, employeeChecklistID)
	if err != nil {
		return ec, wrapNotFound(err, map[string]any{"employee_checklist_id": employeeChecklistID}, "employee checklist %s not found", employeeChecklistID)
	}
	if err := lockedGate(ec); err != nil {
		return ec, err
	}
	ec.MentorUserID = ""
	ec.MentorName = ""
	ec.UpdatedAt = e.timestamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return ec, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateEmployeeChecklist(ctx, tx, ec); err != nil {
		return ec, err
	}
	if err := e.Events.Append(ctx, tx, "mentor.removed", municipalityID, "employee_checklist", ec.ID, actorID, events.EventPayload{}); err != nil {
		return ec, err
	}
	return ec, tx.Commit()
}

// DeleteEmployeeChecklist removes the aggregate and its owning employee
// record; satellite rows go with it via the schema's cascades.
func (e Engine) DeleteEmployeeChecklist(ctx context.Context, municipalityID, id, actorID string) error {
	ec, err := e.Repo.GetEmployeeChecklist(ctx, nil, municipalityID, id)
	if err != nil {
		return wrapNotFound(err, map[string]any{"employee_checklist_id": id}, "employee checklist %s not found", id)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteEmployeeChecklist(ctx, tx, ec.ID); err != nil {
		return err
	}
	if err := e.Repo.DeleteEmployee(ctx, tx, ec.EmployeeID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	if err := e.Events.Append(ctx, tx, "employee_checklist.deleted", municipalityID, "employee_checklist", ec.ID, actorID, events.EventPayload{
		"employee_id": ec.EmployeeID,
	}); err != nil {
		return err
	}
	return tx.Commit()
}
