package engine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"onboardline/internal/config"
	"onboardline/internal/directory"
	"onboardline/internal/domain"
	"onboardline/internal/events"
	"onboardline/internal/repo"
)

type Engine struct {
	DB        *sql.DB
	Repo      repo.Repo
	Events    events.Writer
	Config    *config.Config
	Directory directory.Client
	Now       func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) date() string {
	return e.now().UTC().Format("2006-01-02")
}

// wrapNotFound turns a repo.ErrNotFound into a typed not_found error with the
// given context; other errors pass through unchanged.
func wrapNotFound(err error, details map[string]any, format string, args ...any) error {
	if errors.Is(err, repo.ErrNotFound) {
		return notFound(details, format, args...)
	}
	return err
}

// CreateOrganization registers an organization in the municipality.
func (e Engine) CreateOrganization(ctx context.Context, municipalityID string, number int, name string, channels []string, actorID string) (domain.Organization, error) {
	if name == "" {
		return domain.Organization{}, badRequest(nil, "organization_name is required")
	}
	if _, err := e.Repo.GetOrganizationByNumber(ctx, nil, municipalityID, number); err == nil {
		return domain.Organization{}, conflict(map[string]any{"organization_number": number}, "organization %d already exists", number)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Organization{}, err
	}
	now := e.timestamp()
	o := domain.Organization{
		ID:                    newID(),
		MunicipalityID:        municipalityID,
		OrganizationNumber:    number,
		OrganizationName:      name,
		CommunicationChannels: channels,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Organization{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertOrganization(ctx, tx, o); err != nil {
		return domain.Organization{}, err
	}
	if err := e.Events.Append(ctx, tx, "organization.created", municipalityID, "organization", o.ID, actorID, events.EventPayload{
		"organization_number": number,
		"organization_name":   name,
	}); err != nil {
		return domain.Organization{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Organization{}, err
	}
	return o, nil
}

// UpdateOrganization applies a partial update to name and channels.
func (e Engine) UpdateOrganization(ctx context.Context, municipalityID, id string, name *string, channels []string, actorID string) (domain.Organization, error) {
	o, err := e.Repo.GetOrganization(ctx, nil, id)
	if err != nil {
		return o, wrapNotFound(err, map[string]any{"organization_id": id}, "organization %s not found", id)
	}
	if o.MunicipalityID != municipalityID {
		return o, notFound(map[string]any{"organization_id": id}, "organization %s not found", id)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return o, err
	}
	defer tx.Rollback()
	o.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdateOrganization(ctx, tx, id, name, channels, o.UpdatedAt); err != nil {
		return o, err
	}
	if err := e.Events.Append(ctx, tx, "organization.updated", municipalityID, "organization", id, actorID, events.EventPayload{}); err != nil {
		return o, err
	}
	if err := tx.Commit(); err != nil {
		return o, err
	}
	if name != nil {
		o.OrganizationName = *name
	}
	if channels != nil {
		o.CommunicationChannels = channels
	}
	return o, nil
}

// CreatePhase adds a phase to the municipality catalog.
func (e Engine) CreatePhase(ctx context.Context, p domain.Phase, actorID string) (domain.Phase, error) {
	if p.Name == "" {
		return p, badRequest(nil, "phase name is required")
	}
	p.ID = newID()
	now := e.timestamp()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.LastSavedBy = actorID
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertPhase(ctx, tx, p); err != nil {
		return p, err
	}
	if err := e.Events.Append(ctx, tx, "phase.created", p.MunicipalityID, "phase", p.ID, actorID, events.EventPayload{"name": p.Name}); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}

// UpdatePhase applies a partial update to a catalog phase.
func (e Engine) UpdatePhase(ctx context.Context, municipalityID, id string, name, bodyText, timeToComplete *string, sortOrder *int, actorID string) (domain.Phase, error) {
	p, err := e.Repo.GetPhase(ctx, nil, municipalityID, id)
	if err != nil {
		return p, wrapNotFound(err, map[string]any{"phase_id": id}, "phase %s not found", id)
	}
	if name != nil {
		p.Name = *name
	}
	if bodyText != nil {
		p.BodyText = *bodyText
	}
	if timeToComplete != nil {
		p.TimeToComplete = *timeToComplete
	}
	if sortOrder != nil {
		p.SortOrder = *sortOrder
	}
	p.LastSavedBy = actorID
	p.UpdatedAt = e.timestamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdatePhase(ctx, tx, p); err != nil {
		return p, err
	}
	if err := e.Events.Append(ctx, tx, "phase.updated", municipalityID, "phase", id, actorID, events.EventPayload{}); err != nil {
		return p, err
	}
	return p, tx.Commit()
}

// DeletePhase removes a catalog phase unless any task still references it.
func (e Engine) DeletePhase(ctx context.Context, municipalityID, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := e.Repo.GetPhase(ctx, tx, municipalityID, id); err != nil {
		return wrapNotFound(err, map[string]any{"phase_id": id}, "phase %s not found", id)
	}
	referenced, err := e.Repo.PhaseReferenced(ctx, tx, id)
	if err != nil {
		return err
	}
	if referenced {
		return badRequest(map[string]any{"phase_id": id}, "phase %s is referenced by tasks", id)
	}
	if err := e.Repo.DeletePhase(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "phase.deleted", municipalityID, "phase", id, actorID, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}
