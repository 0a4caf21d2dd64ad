package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"onboardline/internal/domain"
	"onboardline/internal/events"
	"onboardline/internal/repo"
)

func newID() string { return uuid.New().String() }

// lifecycleAction is an operation attempted against a checklist version.
type lifecycleAction string

const (
	actionActivate  lifecycleAction = "activate"
	actionDeprecate lifecycleAction = "deprecate"
	actionDelete    lifecycleAction = "delete"
	actionModify    lifecycleAction = "modify"
)

// transition is the single guard for the checklist lifecycle. It returns the
// resulting state for state-changing actions; for delete and modify the input
// state is returned unchanged on success.
func transition(from domain.LifeCycle, action lifecycleAction) (domain.LifeCycle, error) {
	switch action {
	case actionActivate:
		if from == domain.LifeCycleCreated {
			return domain.LifeCycleActive, nil
		}
	case actionDeprecate:
		if from == domain.LifeCycleActive {
			return domain.LifeCycleDeprecated, nil
		}
	case actionDelete:
		if from == domain.LifeCycleCreated {
			return from, nil
		}
	case actionModify:
		if from == domain.LifeCycleCreated || from == domain.LifeCycleActive {
			return from, nil
		}
	}
	return from, badRequest(map[string]any{"life_cycle": from}, "cannot %s checklist in state %s", action, from)
}

// ChecklistCreateOptions are parameters for creating a template series.
type ChecklistCreateOptions struct {
	MunicipalityID     string
	OrganizationNumber int
	Name               string
	DisplayName        string
	RoleType           string
	ActorID            string
}

// CreateChecklist creates version 1 of a new template series in CREATED state
// and attaches it to the owning organization.
func (e Engine) CreateChecklist(ctx context.Context, opts ChecklistCreateOptions) (domain.Checklist, error) {
	if opts.Name == "" {
		return domain.Checklist{}, badRequest(nil, "name is required")
	}
	org, err := e.Repo.GetOrganizationByNumber(ctx, nil, opts.MunicipalityID, opts.OrganizationNumber)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Checklist{}, badRequest(
			map[string]any{"organization_number": opts.OrganizationNumber},
			"organization %d does not exist", opts.OrganizationNumber)
	}
	if err != nil {
		return domain.Checklist{}, err
	}
	exists, err := e.Repo.ChecklistNameExists(ctx, nil, opts.MunicipalityID, opts.Name)
	if err != nil {
		return domain.Checklist{}, err
	}
	if exists {
		return domain.Checklist{}, conflict(map[string]any{"name": opts.Name}, "checklist %s already exists", opts.Name)
	}
	now := e.timestamp()
	c := domain.Checklist{
		ID:             newID(),
		OrganizationID: org.ID,
		MunicipalityID: opts.MunicipalityID,
		Name:           opts.Name,
		DisplayName:    opts.DisplayName,
		Version:        1,
		LifeCycle:      domain.LifeCycleCreated,
		RoleType:       opts.RoleType,
		LastSavedBy:    opts.ActorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if c.DisplayName == "" {
		c.DisplayName = c.Name
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Checklist{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertChecklist(ctx, tx, c); err != nil {
		return domain.Checklist{}, err
	}
	if err := e.Events.Append(ctx, tx, "checklist.created", c.MunicipalityID, "checklist", c.ID, opts.ActorID, events.EventPayload{
		"name":    c.Name,
		"version": c.Version,
	}); err != nil {
		return domain.Checklist{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Checklist{}, err
	}
	return c, nil
}

// CreateNewVersion produces a structural deep copy of an existing version with
// a fresh identity, version source+1, in CREATED state. The task subtree is
// cloned value by value so the copy shares nothing with the source.
func (e Engine) CreateNewVersion(ctx context.Context, municipalityID, id, actorID string) (domain.Checklist, error) {
	src, err := e.Repo.GetChecklist(ctx, nil, municipalityID, id)
	if err != nil {
		return src, wrapNotFound(err, map[string]any{"checklist_id": id}, "checklist %s not found", id)
	}
	if _, err := e.Repo.GetChecklistByName(ctx, nil, municipalityID, src.Name, domain.LifeCycleCreated); err == nil {
		return domain.Checklist{}, conflict(map[string]any{"name": src.Name}, "a draft of %s already exists", src.Name)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Checklist{}, err
	}
	now := e.timestamp()
	clone := cloneChecklist(src)
	clone.Version = src.Version + 1
	clone.LifeCycle = domain.LifeCycleCreated
	clone.LastSavedBy = actorID
	clone.CreatedAt = now
	clone.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return clone, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertChecklist(ctx, tx, clone); err != nil {
		return clone, err
	}
	for _, t := range clone.Tasks {
		t.LastSavedBy = actorID
		t.CreatedAt = now
		t.UpdatedAt = now
		if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
			return clone, err
		}
	}
	if err := e.Events.Append(ctx, tx, "checklist.version.created", municipalityID, "checklist", clone.ID, actorID, events.EventPayload{
		"name":           clone.Name,
		"version":        clone.Version,
		"source_id":      src.ID,
		"source_version": src.Version,
	}); err != nil {
		return clone, err
	}
	if err := tx.Commit(); err != nil {
		return clone, err
	}
	return clone, nil
}

// cloneChecklist rebuilds the checklist and its task subtree as fresh owned
// values with new identities. Mutating the clone never touches the source.
func cloneChecklist(src domain.Checklist) domain.Checklist {
	clone := src
	clone.ID = newID()
	clone.Tasks = make([]domain.Task, len(src.Tasks))
	for i, t := range src.Tasks {
		ct := t
		ct.ID = newID()
		ct.ChecklistID = clone.ID
		clone.Tasks[i] = ct
	}
	return clone
}

// ActivateChecklist promotes a draft to ACTIVE, demoting any previously
// ACTIVE version of the same name to DEPRECATED.
func (e Engine) ActivateChecklist(ctx context.Context, municipalityID, id, actorID string) (domain.Checklist, error) {
	c, err := e.Repo.GetChecklist(ctx, nil, municipalityID, id)
	if err != nil {
		return c, wrapNotFound(err, map[string]any{"checklist_id": id}, "checklist %s not found", id)
	}
	next, err := transition(c.LifeCycle, actionActivate)
	if err != nil {
		return c, err
	}
	now := e.timestamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()

	prev, err := e.Repo.GetChecklistByName(ctx, tx, municipalityID, c.Name, domain.LifeCycleActive)
	switch {
	case err == nil:
		demoted, err := transition(prev.LifeCycle, actionDeprecate)
		if err != nil {
			return c, err
		}
		prev.LifeCycle = demoted
		prev.LastSavedBy = actorID
		prev.UpdatedAt = now
		if err := e.Repo.UpdateChecklist(ctx, tx, prev); err != nil {
			return c, err
		}
		if err := e.Events.Append(ctx, tx, "checklist.deprecated", municipalityID, "checklist", prev.ID, actorID, events.EventPayload{
			"name":    prev.Name,
			"version": prev.Version,
		}); err != nil {
			return c, err
		}
	case !errors.Is(err, repo.ErrNotFound):
		return c, err
	}

	c.LifeCycle = next
	c.LastSavedBy = actorID
	c.UpdatedAt = now
	if err := e.Repo.UpdateChecklist(ctx, tx, c); err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "checklist.activated", municipalityID, "checklist", c.ID, actorID, events.EventPayload{
		"name":    c.Name,
		"version": c.Version,
	}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}

// ChecklistUpdateOptions is a partial update; lifecycle is never touched here.
type ChecklistUpdateOptions struct {
	DisplayName *string
	RoleType    *string
}

func (e Engine) UpdateChecklist(ctx context.Context, municipalityID, id string, opts ChecklistUpdateOptions, actorID string) (domain.Checklist, error) {
	c, err := e.Repo.GetChecklist(ctx, nil, municipalityID, id)
	if err != nil {
		return c, wrapNotFound(err, map[string]any{"checklist_id": id}, "checklist %s not found", id)
	}
	if _, err := transition(c.LifeCycle, actionModify); err != nil {
		return c, err
	}
	if opts.DisplayName != nil {
		c.DisplayName = *opts.DisplayName
	}
	if opts.RoleType != nil {
		c.RoleType = *opts.RoleType
	}
	c.LastSavedBy = actorID
	c.UpdatedAt = e.timestamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateChecklist(ctx, tx, c); err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "checklist.updated", municipalityID, "checklist", c.ID, actorID, events.EventPayload{}); err != nil {
		return c, err
	}
	return c, tx.Commit()
}

// DeleteChecklist removes a draft version and its tasks. Only CREATED drafts
// may be deleted.
func (e Engine) DeleteChecklist(ctx context.Context, municipalityID, id, actorID string) error {
	c, err := e.Repo.GetChecklist(ctx, nil, municipalityID, id)
	if err != nil {
		return wrapNotFound(err, map[string]any{"checklist_id": id}, "checklist %s not found", id)
	}
	if _, err := transition(c.LifeCycle, actionDelete); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteChecklistTasks(ctx, tx, c.ID); err != nil {
		return err
	}
	if err := e.Repo.DeleteChecklist(ctx, tx, c.ID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "checklist.deleted", municipalityID, "checklist", c.ID, actorID, events.EventPayload{
		"name":    c.Name,
		"version": c.Version,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// TaskCreateOptions are parameters for adding a task to a checklist version.
type TaskCreateOptions struct {
	MunicipalityID string
	ChecklistID    string
	PhaseID        string
	Heading        string
	Text           string
	SortOrder      int
	RoleType       string
	QuestionType   string
	Permission     string
	ActorID        string
}

// CreateTask adds a task to a checklist version that is still mutable.
func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.Heading == "" {
		return domain.Task{}, badRequest(nil, "heading is required")
	}
	c, err := e.Repo.GetChecklist(ctx, nil, opts.MunicipalityID, opts.ChecklistID)
	if err != nil {
		return domain.Task{}, wrapNotFound(err, map[string]any{"checklist_id": opts.ChecklistID}, "checklist %s not found", opts.ChecklistID)
	}
	if _, err := transition(c.LifeCycle, actionModify); err != nil {
		return domain.Task{}, err
	}
	if _, err := e.Repo.GetPhase(ctx, nil, opts.MunicipalityID, opts.PhaseID); err != nil {
		return domain.Task{}, wrapNotFound(err, map[string]any{"phase_id": opts.PhaseID}, "phase %s not found", opts.PhaseID)
	}
	now := e.timestamp()
	t := domain.Task{
		ID:           newID(),
		ChecklistID:  c.ID,
		PhaseID:      opts.PhaseID,
		Heading:      opts.Heading,
		Text:         opts.Text,
		SortOrder:    opts.SortOrder,
		RoleType:     opts.RoleType,
		QuestionType: opts.QuestionType,
		Permission:   opts.Permission,
		LastSavedBy:  opts.ActorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return t, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return t, err
	}
	if err := e.Events.Append(ctx, tx, "task.created", opts.MunicipalityID, "task", t.ID, opts.ActorID, events.EventPayload{
		"checklist_id": c.ID,
		"heading":      t.Heading,
	}); err != nil {
		return t, err
	}
	return t, tx.Commit()
}

// TaskUpdateOptions is a partial task update.
type TaskUpdateOptions struct {
	Heading      *string
	Text         *string
	SortOrder    *int
	RoleType     *string
	QuestionType *string
	Permission   *string
}

func (e Engine) UpdateTask(ctx context.Context, municipalityID, checklistID, taskID string, opts TaskUpdateOptions, actorID string) (domain.Task, error) {
	c, err := e.Repo.GetChecklist(ctx, nil, municipalityID, checklistID)
	if err != nil {
		return domain.Task{}, wrapNotFound(err, map[string]any{"checklist_id": checklistID}, "checklist %s not found", checklistID)
	}
	if _, err := transition(c.LifeCycle, actionModify); err != nil {
		return domain.Task{}, err
	}
	t, err := e.Repo.GetTask(ctx, nil, taskID)
	if err != nil {
		return t, wrapNotFound(err, map[string]any{"task_id": taskID}, "task %s not found", taskID)
	}
	if t.ChecklistID != c.ID {
		return t, notFound(map[string]any{"task_id": taskID}, "task %s not found", taskID)
	}
	if opts.Heading != nil {
		t.Heading = *opts.Heading
	}
	if opts.Text != nil {
		t.Text = *opts.Text
	}
	if opts.SortOrder != nil {
		t.SortOrder = *opts.SortOrder
	}
	if opts.RoleType != nil {
		t.RoleType = *opts.RoleType
	}
	if opts.QuestionType != nil {
		t.QuestionType = *opts.QuestionType
	}
	if opts.Permission != nil {
		t.Permission = *opts.Permission
	}
	t.LastSavedBy = actorID
	t.UpdatedAt = e.timestamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return t, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return t, err
	}
	if err := e.Events.Append(ctx, tx, "task.updated", municipalityID, "task", t.ID, actorID, events.EventPayload{}); err != nil {
		return t, err
	}
	return t, tx.Commit()
}

func (e Engine) DeleteTask(ctx context.Context, municipalityID, checklistID, taskID, actorID string) error {
	c, err := e.Repo.GetChecklist(ctx, nil, municipalityID, checklistID)
	if err != nil {
		return wrapNotFound(err, map[string]any{"checklist_id": checklistID}, "checklist %s not found", checklistID)
	}
	if _, err := transition(c.LifeCycle, actionModify); err != nil {
		return err
	}
	t, err := e.Repo.GetTask(ctx, nil, taskID)
	if err != nil {
		return wrapNotFound(err, map[string]any{"task_id": taskID}, "task %s not found", taskID)
	}
	if t.ChecklistID != c.ID {
		return notFound(map[string]any{"task_id": taskID}, "task %s not found", taskID)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteTask(ctx, tx, taskID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "task.deleted", municipalityID, "task", taskID, actorID, events.EventPayload{"checklist_id": c.ID}); err != nil {
		return err
	}
	return tx.Commit()
}
