package engine

import (
	"context"
	"database/sql"
	"errors"

	"onboardline/internal/domain"
	"onboardline/internal/events"
	"onboardline/internal/repo"
)

// PortablePhase is a task's phase reference inside a portable document,
// reduced to identity and ordering. The phase itself is a shared municipal
// catalog entry and never travels with the document.
type PortablePhase struct {
	ID        string `json:"id"`
	SortOrder int    `json:"sortOrder"`
}

// PortableTask is a task stripped of identity and volatile fields.
type PortableTask struct {
	Heading      string        `json:"heading"`
	Text         string        `json:"text,omitempty"`
	SortOrder    int           `json:"sortOrder"`
	RoleType     string        `json:"roleType"`
	QuestionType string        `json:"questionType"`
	Permission   string        `json:"permission,omitempty"`
	Phase        PortablePhase `json:"phase"`
}

// PortableChecklist is the export/import payload: no ids, no timestamps, no
// municipality, no lifecycle.
type PortableChecklist struct {
	Name        string         `json:"name"`
	DisplayName string         `json:"displayName"`
	Version     int            `json:"version"`
	RoleType    string         `json:"roleType"`
	Tasks       []PortableTask `json:"tasks"`
}

// ImportActor is the default actor stamped on imported templates when the
// caller does not supply one.
const ImportActor = "system-import"

// ExportChecklist serializes an organization's template to a portable
// document. With version 0 the latest version is exported.
func (e Engine) ExportChecklist(ctx context.Context, municipalityID string, orgNumber, version int) (PortableChecklist, error) {
	org, err := e.Repo.GetOrganizationByNumber(ctx, nil, municipalityID, orgNumber)
	if err != nil {
		return PortableChecklist{}, wrapNotFound(err,
			map[string]any{"organization_number": orgNumber}, "organization %d not found", orgNumber)
	}
	versions, err := e.Repo.ListOrganizationChecklists(ctx, nil, org.ID, "")
	if err != nil {
		return PortableChecklist{}, err
	}
	var target *domain.Checklist
	for i := range versions {
		if version == 0 || versions[i].Version == version {
			target = &versions[i]
			break
		}
	}
	if target == nil {
		return PortableChecklist{}, notFound(map[string]any{
			"organization_number": orgNumber,
			"version":             version,
		}, "no checklist version found for organization %d", orgNumber)
	}
	tasks, err := e.Repo.ListTasks(ctx, nil, target.ID)
	if err != nil {
		return PortableChecklist{}, err
	}
	doc := PortableChecklist{
		Name:        target.Name,
		DisplayName: target.DisplayName,
		Version:     target.Version,
		RoleType:    target.RoleType,
		Tasks:       make([]PortableTask, 0, len(tasks)),
	}
	for _, t := range tasks {
		phase, err := e.Repo.GetPhase(ctx, nil, municipalityID, t.PhaseID)
		if err != nil {
			return PortableChecklist{}, wrapNotFound(err, map[string]any{"phase_id": t.PhaseID}, "phase %s not found", t.PhaseID)
		}
		doc.Tasks = append(doc.Tasks, PortableTask{
			Heading:      t.Heading,
			Text:         t.Text,
			SortOrder:    t.SortOrder,
			RoleType:     t.RoleType,
			QuestionType: t.QuestionType,
			Permission:   t.Permission,
			Phase:        PortablePhase{ID: phase.ID, SortOrder: phase.SortOrder},
		})
	}
	return doc, nil
}

// ImportOptions are parameters for importing a portable document.
type ImportOptions struct {
	MunicipalityID     string
	OrganizationNumber int
	OrganizationName   string
	Document           PortableChecklist
	ReplaceExisting    bool
	ActorID            string
}

// ImportChecklist materializes a portable document against an organization.
//
// With ReplaceExisting=false a new CREATED version is appended to the
// organization's series (conflict when a draft already exists). With
// ReplaceExisting=true an existing draft, or failing that the ACTIVE version,
// is overwritten in place; overwriting ACTIVE is the unsafe path since
// in-progress employee checklists share that template by reference.
func (e Engine) ImportChecklist(ctx context.Context, opts ImportOptions) (domain.Checklist, error) {
	if opts.ActorID == "" {
		opts.ActorID = ImportActor
	}
	doc := opts.Document
	if doc.Name == "" {
		return domain.Checklist{}, badRequest(nil, "document name is required")
	}

	// Phases are a shared municipal catalog; every reference must resolve
	// before anything is written.
	for _, t := range doc.Tasks {
		if _, err := e.Repo.GetPhase(ctx, nil, opts.MunicipalityID, t.Phase.ID); err != nil {
			return domain.Checklist{}, wrapNotFound(err,
				map[string]any{"phase_id": t.Phase.ID}, "phase %s not found", t.Phase.ID)
		}
	}

	now := e.timestamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Checklist{}, err
	}
	defer tx.Rollback()

	org, err := e.Repo.GetOrganizationByNumber(ctx, tx, opts.MunicipalityID, opts.OrganizationNumber)
	if errors.Is(err, repo.ErrNotFound) {
		org = domain.Organization{
			ID:                 newID(),
			MunicipalityID:     opts.MunicipalityID,
			OrganizationNumber: opts.OrganizationNumber,
			OrganizationName:   opts.OrganizationName,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := e.Repo.InsertOrganization(ctx, tx, org); err != nil {
			return domain.Checklist{}, err
		}
	} else if err != nil {
		return domain.Checklist{}, err
	}

	// Reuse the organization's existing series name so importing a renamed
	// document never forks the version series.
	name := doc.Name
	existing, err := e.Repo.ListOrganizationChecklists(ctx, tx, org.ID, "")
	if err != nil {
		return domain.Checklist{}, err
	}
	if len(existing) > 0 {
		name = existing[0].Name
	}

	draft, draftErr := e.Repo.GetChecklistByName(ctx, tx, opts.MunicipalityID, name, domain.LifeCycleCreated)
	if draftErr != nil && !errors.Is(draftErr, repo.ErrNotFound) {
		return domain.Checklist{}, draftErr
	}
	hasDraft := draftErr == nil

	if opts.ReplaceExisting {
		if hasDraft {
			return e.overwriteChecklist(ctx, tx, draft, doc, opts.ActorID, now)
		}
		active, err := e.Repo.GetChecklistByName(ctx, tx, opts.MunicipalityID, name, domain.LifeCycleActive)
		if err == nil {
			return e.overwriteChecklist(ctx, tx, active, doc, opts.ActorID, now)
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return domain.Checklist{}, err
		}
	} else if hasDraft {
		return domain.Checklist{}, conflict(map[string]any{"name": name}, "a draft of %s already exists", name)
	}

	maxVersion, err := e.Repo.MaxChecklistVersion(ctx, tx, opts.MunicipalityID, name)
	if err != nil {
		return domain.Checklist{}, err
	}
	c := domain.Checklist{
		ID:             newID(),
		OrganizationID: org.ID,
		MunicipalityID: opts.MunicipalityID,
		Name:           name,
		DisplayName:    doc.DisplayName,
		Version:        maxVersion + 1,
		LifeCycle:      domain.LifeCycleCreated,
		RoleType:       doc.RoleType,
		LastSavedBy:    opts.ActorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if c.DisplayName == "" {
		c.DisplayName = name
	}
	if err := e.Repo.InsertChecklist(ctx, tx, c); err != nil {
		return c, err
	}
	if err := e.insertPortableTasks(ctx, tx, c.ID, doc.Tasks, opts.ActorID, now); err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "checklist.imported", opts.MunicipalityID, "checklist", c.ID, opts.ActorID, events.EventPayload{
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

// overwriteChecklist replaces a template's content in place; identity,
// version, and lifecycle are preserved.
func (e Engine) overwriteChecklist(ctx context.Context, tx *sql.Tx, target domain.Checklist, doc PortableChecklist, actorID, now string) (domain.Checklist, error) {
	if doc.DisplayName != "" {
		target.DisplayName = doc.DisplayName
	}
	if doc.RoleType != "" {
		target.RoleType = doc.RoleType
	}
	target.LastSavedBy = actorID
	target.UpdatedAt = now
	if err := e.Repo.UpdateChecklist(ctx, tx, target); err != nil {
		return target, err
	}
	if err := e.Repo.DeleteChecklistTasks(ctx, tx, target.ID); err != nil {
		return target, err
	}
	if err := e.insertPortableTasks(ctx, tx, target.ID, doc.Tasks, actorID, now); err != nil {
		return target, err
	}
	if err := e.Events.Append(ctx, tx, "checklist.imported", target.MunicipalityID, "checklist", target.ID, actorID, events.EventPayload{
		"name":       target.Name,
		"version":    target.Version,
		"overwrite":  true,
		"life_cycle": target.LifeCycle,
	}); err != nil {
		return target, err
	}
	return target, tx.Commit()
}

func (e Engine) insertPortableTasks(ctx context.Context, tx *sql.Tx, checklistID string, tasks []PortableTask, actorID, now string) error {
	for _, pt := range tasks {
		t := domain.Task{
			ID:           newID(),
			ChecklistID:  checklistID,
			PhaseID:      pt.Phase.ID,
			Heading:      pt.Heading,
			Text:         pt.Text,
			SortOrder:    pt.SortOrder,
			RoleType:     pt.RoleType,
			QuestionType: pt.QuestionType,
			Permission:   pt.Permission,
			LastSavedBy:  actorID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
			return err
		}
	}
	return nil
}
