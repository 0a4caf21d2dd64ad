package onboardlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Onboardline HTTP API client.
type Client struct {
	BaseURL        string
	MunicipalityID string
	APIKey         string
	BearerToken    string
	HTTPClient     *http.Client
	Timeout        time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, municipalityID string) *Client {
	return &Client{
		BaseURL:        baseURL,
		MunicipalityID: municipalityID,
		Timeout:        10 * time.Second,
	}
}

// Checklist represents one version of a checklist template (partial).
type Checklist struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	DisplayName    string `json:"display_name"`
	Version        int    `json:"version"`
	LifeCycle      string `json:"life_cycle"`
	Tasks          []Task `json:"tasks,omitempty"`
}

// Task represents a checklist task (partial).
type Task struct {
	ID           string `json:"id"`
	ChecklistID  string `json:"checklist_id"`
	PhaseID      string `json:"phase_id"`
	Heading      string `json:"heading"`
	Text         string `json:"text,omitempty"`
	SortOrder    int    `json:"sort_order"`
	QuestionType string `json:"question_type,omitempty"`
}

// EmployeeChecklist represents the per-employee checklist copy.
type EmployeeChecklist struct {
	ID             string   `json:"id"`
	EmployeeID     string   `json:"employee_id"`
	ChecklistIDs   []string `json:"checklist_ids"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	ExpirationDate string   `json:"expiration_date"`
	Locked         bool     `json:"locked"`
	Completed      bool     `json:"completed"`
	MentorUserID   string   `json:"mentor_user_id,omitempty"`
	MentorName     string   `json:"mentor_name,omitempty"`
}

// InitiationDetail reports the outcome of initiating one employee.
type InitiationDetail struct {
	Username            string `json:"username"`
	Status              string `json:"status"`
	Information         string `json:"information,omitempty"`
	EmployeeChecklistID string `json:"employee_checklist_id,omitempty"`
}

// InitiationResult is the batch initiation report.
type InitiationResult struct {
	Summary string             `json:"summary"`
	Details []InitiationDetail `json:"details"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Checklists lists checklist templates.
func (c *Client) Checklists(ctx context.Context) ([]Checklist, error) {
	var resp []Checklist
	err := c.do(ctx, http.MethodGet, c.municipalityPath("checklists"), nil, &resp)
	return resp, err
}

// Checklist fetches a checklist with its tasks.
func (c *Client) Checklist(ctx context.Context, id string) (Checklist, error) {
	var resp Checklist
	endpoint := c.municipalityPath(fmt.Sprintf("checklists/%s", url.PathEscape(id)))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// ActivateChecklist activates a draft version.
func (c *Client) ActivateChecklist(ctx context.Context, id string) (Checklist, error) {
	var resp Checklist
	endpoint := c.municipalityPath(fmt.Sprintf("checklists/%s/activate", url.PathEscape(id)))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// InitiateNewEmployees runs batch initiation for every new directory employee.
func (c *Client) InitiateNewEmployees(ctx context.Context) (InitiationResult, error) {
	var resp InitiationResult
	err := c.do(ctx, http.MethodPost, c.municipalityPath("employee-checklists/initiate"), nil, &resp)
	return resp, err
}

// InitiateEmployee initiates onboarding for a single username.
func (c *Client) InitiateEmployee(ctx context.Context, username string) (InitiationDetail, error) {
	var resp InitiationDetail
	endpoint := c.municipalityPath(fmt.Sprintf("employee-checklists/initiate/%s", url.PathEscape(username)))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// EmployeeChecklists lists employee checklists.
func (c *Client) EmployeeChecklists(ctx context.Context) ([]EmployeeChecklist, error) {
	var resp []EmployeeChecklist
	err := c.do(ctx, http.MethodGet, c.municipalityPath("employee-checklists"), nil, &resp)
	return resp, err
}

// UpdateFulfilment sets the fulfilment status of one task.
func (c *Client) UpdateFulfilment(ctx context.Context, employeeChecklistID, taskID, status, responseText string) (EmployeeChecklist, error) {
	body := map[string]any{}
	if status != "" {
		body["status"] = status
	}
	if responseText != "" {
		body["response_text"] = responseText
	}
	var resp EmployeeChecklist
	endpoint := c.municipalityPath(fmt.Sprintf("employee-checklists/%s/tasks/%s/fulfilment",
		url.PathEscape(employeeChecklistID), url.PathEscape(taskID)))
	err := c.do(ctx, http.MethodPatch, endpoint, body, &resp)
	return resp, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := c.municipalityPath("events")
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) municipalityPath(p string) string {
	municipality := url.PathEscape(c.MunicipalityID)
	return fmt.Sprintf("v1/municipalities/%s/%s", municipality, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
