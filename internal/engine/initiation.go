package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"onboardline/internal/directory"
	"onboardline/internal/domain"
	"onboardline/internal/events"
	"onboardline/internal/orgtree"
	"onboardline/internal/repo"
)

// InitiationStatus classifies the outcome for one employee in a batch.
type InitiationStatus string

const (
	InitiationOK               InitiationStatus = "OK"
	InitiationAlreadyInitiated InitiationStatus = "ALREADY_INITIATED"
	InitiationFailed           InitiationStatus = "FAILED"
)

// InitiationDetail is the per-employee outcome record.
type InitiationDetail struct {
	Username            string           `json:"username"`
	EmployeeChecklistID string           `json:"employee_checklist_id,omitempty"`
	Status              InitiationStatus `json:"status"`
	Information         string           `json:"information"`
}

// InitiationResult aggregates a batch run.
type InitiationResult struct {
	Summary string             `json:"summary"`
	Details []InitiationDetail `json:"details"`
}

// InitiateEmployee creates the employee checklist aggregate for one directory
// person. Repeat calls for an already initiated employee are a no-op.
func (e Engine) InitiateEmployee(ctx context.Context, municipalityID string, person directory.NewEmployee) (InitiationDetail, error) {
	detail := InitiationDetail{Username: person.Username}
	if person.Username == "" {
		return detail, badRequest(nil, "username is required")
	}

	existing, err := e.Repo.GetEmployeeByUsername(ctx, nil, municipalityID, person.Username)
	if err == nil {
		ec, ecErr := e.Repo.GetEmployeeChecklistByEmployee(ctx, nil, existing.ID)
		if ecErr == nil {
			detail.Status = InitiationAlreadyInitiated
			detail.EmployeeChecklistID = ec.ID
			detail.Information = fmt.Sprintf("employee %s is already initiated", person.Username)
			return detail, nil
		}
		if !errors.Is(ecErr, repo.ErrNotFound) {
			return detail, ecErr
		}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return detail, err
	}

	employment, ok := person.MainEmployment()
	if !ok {
		return detail, notFound(map[string]any{"username": person.Username},
			"no main employment found for %s", person.Username)
	}

	tree := orgtree.Parse(person.OrgTree)
	checklists, searched, err := e.collectAssignableChecklists(ctx, municipalityID, tree, employment)
	if err != nil {
		return detail, err
	}
	if len(checklists) == 0 {
		return detail, notFound(map[string]any{"organization_numbers": searched},
			"no active checklist found for any of organizations %v", searched)
	}

	now := e.timestamp()
	startDate := employment.StartDate
	if startDate == "" {
		startDate = e.date()
	}
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return detail, badRequest(map[string]any{"start_date": startDate}, "invalid start date %s", startDate)
	}
	endDate := start.AddDate(0, e.Config.Onboarding.EndWindowMonths, 0).Format("2006-01-02")
	expirationDate := start.AddDate(0, e.Config.Onboarding.ExpirationMonths, 0).Format("2006-01-02")

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return detail, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetOrganizationByNumber(ctx, tx, municipalityID, employment.CompanyID); errors.Is(err, repo.ErrNotFound) {
		companyName := employment.OrgName
		if root, ok := tree.Root(); ok {
			companyName = root.OrgName
		}
		stub := domain.Organization{
			ID:                 newID(),
			MunicipalityID:     municipalityID,
			OrganizationNumber: employment.CompanyID,
			OrganizationName:   companyName,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := e.Repo.InsertOrganization(ctx, tx, stub); err != nil {
			return detail, err
		}
	} else if err != nil {
		return detail, err
	}

	var managerID string
	if employment.ManagerID != "" {
		m, err := e.Repo.EnsureManager(ctx, tx, domain.Manager{
			ID:       newID(),
			Username: employment.ManagerID,
		})
		if err != nil {
			return detail, err
		}
		managerID = m.ID
	}

	emp := domain.Employee{
		ID:             newID(),
		MunicipalityID: municipalityID,
		Username:       person.Username,
		FirstName:      person.FirstName,
		LastName:       person.LastName,
		Email:          person.Email,
		Title:          employment.Title,
		CompanyID:      employment.CompanyID,
		DepartmentID:   strconv.Itoa(employment.OrgID),
		ManagerID:      managerID,
		StartDate:      startDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if existing.ID != "" {
		emp.ID = existing.ID
		emp.CreatedAt = existing.CreatedAt
	}
	if err := e.Repo.UpsertEmployee(ctx, tx, emp); err != nil {
		return detail, err
	}

	ids := make([]string, len(checklists))
	for i, c := range checklists {
		ids[i] = c.ID
	}
	ec := domain.EmployeeChecklist{
		ID:             newID(),
		MunicipalityID: municipalityID,
		EmployeeID:     emp.ID,
		ChecklistIDs:   ids,
		StartDate:      startDate,
		EndDate:        endDate,
		ExpirationDate: expirationDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.Repo.InsertEmployeeChecklist(ctx, tx, ec); err != nil {
		return detail, err
	}
	if err := e.Events.Append(ctx, tx, "employee_checklist.initiated", municipalityID, "employee_checklist", ec.ID, "system", events.EventPayload{
		"username":      person.Username,
		"checklist_ids": ids,
	}); err != nil {
		return detail, err
	}
	if err := tx.Commit(); err != nil {
		return detail, err
	}

	detail.Status = InitiationOK
	detail.EmployeeChecklistID = ec.ID
	detail.Information = fmt.Sprintf("initiated employee %s with %d checklist(s)", person.Username, len(ids))
	return detail, nil
}

// collectAssignableChecklists walks the org tree root to leaf and accumulates
// the ACTIVE templates of every level whose organization is stored in this
// municipality. Matches accumulate across all levels, so an employee can
// receive both a company-wide and a department checklist.
func (e Engine) collectAssignableChecklists(ctx context.Context, municipalityID string, tree orgtree.Tree, employment directory.Employment) ([]domain.Checklist, []int, error) {
	numbers := make([]int, 0, tree.Size()+1)
	if tree.Size() == 0 {
		// Directory data was unusable; fall back to the employment's own
		// company and org placement.
		numbers = append(numbers, employment.CompanyID)
		if employment.OrgID != employment.CompanyID {
			numbers = append(numbers, employment.OrgID)
		}
	}
	for _, node := range tree.Levels() {
		number, err := strconv.Atoi(node.OrgID)
		if err != nil {
			continue
		}
		numbers = append(numbers, number)
	}

	var out []domain.Checklist
	for _, number := range numbers {
		org, err := e.Repo.GetOrganizationByNumber(ctx, nil, municipalityID, number)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, numbers, err
		}
		active, err := e.Repo.ListOrganizationChecklists(ctx, nil, org.ID, domain.LifeCycleActive)
		if err != nil {
			return nil, numbers, err
		}
		out = append(out, active...)
	}
	return out, numbers, nil
}

// InitiateNewEmployees pulls the directory's new employees and initiates each
// in isolation: one failure, typed or panic, never aborts the batch.
func (e Engine) InitiateNewEmployees(ctx context.Context, municipalityID string) (InitiationResult, error) {
	if e.Directory == nil {
		return InitiationResult{}, internal(nil, "no directory client configured")
	}
	people, err := e.Directory.NewEmployees(ctx, municipalityID)
	if err != nil {
		return InitiationResult{}, fmt.Errorf("fetch new employees: %w", err)
	}
	return e.initiateAll(ctx, municipalityID, people), nil
}

// InitiateByUsername fetches one person from the directory and initiates them.
func (e Engine) InitiateByUsername(ctx context.Context, municipalityID, username string) (InitiationDetail, error) {
	if e.Directory == nil {
		return InitiationDetail{}, internal(nil, "no directory client configured")
	}
	person, err := e.Directory.Employee(ctx, municipalityID, username)
	if err != nil {
		var apiErr *directory.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return InitiationDetail{}, notFound(map[string]any{"username": username}, "employee %s not found in directory", username)
		}
		return InitiationDetail{}, fmt.Errorf("fetch employee %s: %w", username, err)
	}
	return e.InitiateEmployee(ctx, municipalityID, person)
}

func (e Engine) initiateAll(ctx context.Context, municipalityID string, people []directory.NewEmployee) InitiationResult {
	result := InitiationResult{Details: make([]InitiationDetail, 0, len(people))}
	problems := 0
	for _, person := range people {
		detail := e.initiateOne(ctx, municipalityID, person)
		if detail.Status == InitiationFailed {
			problems++
		}
		result.Details = append(result.Details, detail)
	}
	if problems > 0 {
		result.Summary = fmt.Sprintf("%d problems occurred importing %d employees", problems, len(people))
	} else {
		result.Summary = fmt.Sprintf("Successful import of %d employees", len(people))
	}
	return result
}

// initiateOne isolates a single employee's initiation, converting panics and
// errors into a FAILED detail record.
func (e Engine) initiateOne(ctx context.Context, municipalityID string, person directory.NewEmployee) (detail InitiationDetail) {
	defer func() {
		if r := recover(); r != nil {
			detail = InitiationDetail{
				Username:    person.Username,
				Status:      InitiationFailed,
				Information: fmt.Sprintf("unexpected failure: %v", r),
			}
		}
	}()
	detail, err := e.InitiateEmployee(ctx, municipalityID, person)
	if err != nil {
		detail.Status = InitiationFailed
		detail.Information = err.Error()
	}
	return detail
}
