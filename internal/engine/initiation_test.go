package engine_test

import (
	"context"
	"strings"
	"testing"

	"onboardline/internal/directory"
	"onboardline/internal/engine"
)

// fakeDirectory serves canned directory data and can be told to panic for a
// given username to exercise batch isolation.
type fakeDirectory struct {
	people  []directory.NewEmployee
	panicOn string
}

func (f *fakeDirectory) NewEmployees(ctx context.Context, municipalityID string) ([]directory.NewEmployee, error) {
	return f.people, nil
}

func (f *fakeDirectory) Employee(ctx context.Context, municipalityID, username string) (directory.NewEmployee, error) {
	for _, p := range f.people {
		if p.Username == username {
			return p, nil
		}
	}
	return directory.NewEmployee{}, &directory.APIError{StatusCode: 404, Body: "no such person"}
}

func newHire(username string, companyID, orgID int) directory.NewEmployee {
	return directory.NewEmployee{
		PersonID:  "p-" + username,
		Username:  username,
		FirstName: "Test",
		LastName:  "Person",
		OrgTree:   "1|7|Company¤2|21|Dept",
		Employments: []directory.Employment{{
			CompanyID:      companyID,
			OrgID:          orgID,
			OrgName:        "Dept",
			ManagerID:      "boss1",
			StartDate:      "2024-01-01",
			MainEmployment: true,
		}},
	}
}

func TestInitiateAssignsAcrossAllMatchingLevels(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	env.mustOrg(t, 21, "Dept")
	company := env.mustChecklist(t, 7, "company-onboarding")
	env.mustActivate(t, company.ID)
	dept := env.mustChecklist(t, 21, "dept-onboarding")
	env.mustActivate(t, dept.ID)

	detail, err := env.Engine.InitiateEmployee(env.Ctx, muni, newHire("emp1", 7, 21))
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if detail.Status != engine.InitiationOK {
		t.Fatalf("unexpected status %s: %s", detail.Status, detail.Information)
	}
	ec, err := env.Engine.GetEmployeeChecklistDetail(env.Ctx, muni, detail.EmployeeChecklistID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ec.ChecklistIDs) != 2 {
		t.Fatalf("expected both company and dept templates, got %v", ec.ChecklistIDs)
	}
}

func TestInitiateSkipsDrafts(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	env.mustOrg(t, 21, "Dept")
	company := env.mustChecklist(t, 7, "company-onboarding")
	env.mustActivate(t, company.ID)
	// dept template stays a CREATED draft and must not be handed out
	env.mustChecklist(t, 21, "dept-onboarding")

	detail, err := env.Engine.InitiateEmployee(env.Ctx, muni, newHire("emp1", 7, 21))
	if err != nil {
		t.Fatal(err)
	}
	ec, err := env.Engine.GetEmployeeChecklistDetail(env.Ctx, muni, detail.EmployeeChecklistID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ec.ChecklistIDs) != 1 || ec.ChecklistIDs[0] != company.ID {
		t.Fatalf("expected only the active company template, got %v", ec.ChecklistIDs)
	}
}

func TestInitiateIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	c := env.mustChecklist(t, 7, "company-onboarding")
	env.mustActivate(t, c.ID)

	first, err := env.Engine.InitiateEmployee(env.Ctx, muni, newHire("emp1", 7, 21))
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.Engine.InitiateEmployee(env.Ctx, muni, newHire("emp1", 7, 21))
	if err != nil {
		t.Fatal(err)
	}
	if second.Status != engine.InitiationAlreadyInitiated {
		t.Fatalf("expected already initiated, got %s", second.Status)
	}
	if second.EmployeeChecklistID != first.EmployeeChecklistID {
		t.Fatalf("repeat initiation produced a second aggregate")
	}
	var count int
	row := env.Engine.DB.QueryRowContext(env.Ctx, `SELECT COUNT(*) FROM employee_checklists`)
	if err := row.Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one aggregate, got %d", count)
	}
}

func TestInitiateFailsWithoutMainEmployment(t *testing.T) {
	env := newTestEnv(t)
	person := newHire("emp1", 7, 21)
	person.Employments[0].MainEmployment = false
	_, err := env.Engine.InitiateEmployee(env.Ctx, muni, person)
	if err == nil || kindOf(t, err) != engine.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestInitiateListsSearchedOrganizations(t *testing.T) {
	env := newTestEnv(t)
	// no organizations stored at all
	_, err := env.Engine.InitiateEmployee(env.Ctx, muni, newHire("emp1", 7, 21))
	if err == nil || kindOf(t, err) != engine.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
	if !strings.Contains(err.Error(), "7") || !strings.Contains(err.Error(), "21") {
		t.Fatalf("error should list searched org numbers: %v", err)
	}
}

func TestBatchInitiationIsolatesFailures(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	c := env.mustChecklist(t, 7, "company-onboarding")
	env.mustActivate(t, c.ID)

	broken := newHire("broken", 7, 21)
	broken.Employments = nil // no main employment
	env.Engine.Directory = &fakeDirectory{people: []directory.NewEmployee{
		newHire("emp1", 7, 21),
		broken,
		newHire("emp2", 7, 21),
	}}

	result, err := env.Engine.InitiateNewEmployees(env.Ctx, muni)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if result.Summary != "1 problems occurred importing 3 employees" {
		t.Fatalf("unexpected summary: %q", result.Summary)
	}
	ok := 0
	for _, d := range result.Details {
		if d.Status == engine.InitiationOK {
			ok++
		}
	}
	if ok != 2 {
		t.Fatalf("expected 2 successful initiations, got %d", ok)
	}
}

func TestBatchInitiationAllSuccessful(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	c := env.mustChecklist(t, 7, "company-onboarding")
	env.mustActivate(t, c.ID)
	env.Engine.Directory = &fakeDirectory{people: []directory.NewEmployee{
		newHire("emp1", 7, 21),
		newHire("emp2", 7, 21),
	}}

	result, err := env.Engine.InitiateNewEmployees(env.Ctx, muni)
	if err != nil {
		t.Fatal(err)
	}
	if result.Summary != "Successful import of 2 employees" {
		t.Fatalf("unexpected summary: %q", result.Summary)
	}
}

func TestInitiateByUsernameNotInDirectory(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Directory = &fakeDirectory{}
	_, err := env.Engine.InitiateByUsername(env.Ctx, muni, "ghost")
	if err == nil || kindOf(t, err) != engine.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestInitiateSetsDatesFromConfigWindows(t *testing.T) {
	env := newTestEnv(t)
	env.mustOrg(t, 7, "Company")
	c := env.mustChecklist(t, 7, "company-onboarding")
	env.mustActivate(t, c.ID)

	detail, err := env.Engine.InitiateEmployee(env.Ctx, muni, newHire("emp1", 7, 21))
	if err != nil {
		t.Fatal(err)
	}
	ec, err := env.Engine.Repo.GetEmployeeChecklist(env.Ctx, nil, muni, detail.EmployeeChecklistID)
	if err != nil {
		t.Fatal(err)
	}
	if ec.StartDate != "2024-01-01" || ec.EndDate != "2024-07-01" || ec.ExpirationDate != "2024-10-01" {
		t.Fatalf("unexpected dates: start=%s end=%s expiration=%s", ec.StartDate, ec.EndDate, ec.ExpirationDate)
	}
	if ec.Locked || ec.Completed {
		t.Fatalf("fresh aggregate must be unlocked and incomplete")
	}
}
