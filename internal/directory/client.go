// Package directory talks to the municipal employee directory, the upstream
// system of record for employments and organizational placement.
package directory

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

// Employment is one employment record for a person. MainEmployment marks the
// employment that drives checklist assignment.
type Employment struct {
	CompanyID      int    `json:"company_id"`
	OrgID          int    `json:"org_id"`
	OrgName        string `json:"org_name"`
	Title          string `json:"title,omitempty"`
	ManagerID      string `json:"manager_id,omitempty"`
	ManagerName    string `json:"manager_name,omitempty"`
	StartDate      string `json:"start_date"`
	MainEmployment bool   `json:"main_employment"`
}

// NewEmployee is a directory person due for onboarding. OrgTree is the raw
// hierarchy string the directory exports; see the orgtree package for its
// format.
type NewEmployee struct {
	PersonID    string       `json:"person_id"`
	Username    string       `json:"username"`
	FirstName   string       `json:"first_name"`
	LastName    string       `json:"last_name"`
	Email       string       `json:"email,omitempty"`
	OrgTree     string       `json:"org_tree"`
	Employments []Employment `json:"employments"`
}

// MainEmployment returns the driving employment, or false when none is marked.
func (e NewEmployee) MainEmployment() (Employment, bool) {
	for _, emp := range e.Employments {
		if emp.MainEmployment {
			return emp, true
		}
	}
	return Employment{}, false
}

// Client supplies employment and org-hierarchy facts.
type Client interface {
	NewEmployees(ctx context.Context, municipalityID string) ([]NewEmployee, error)
	Employee(ctx context.Context, municipalityID, username string) (NewEmployee, error)
}

// APIError wraps non-2xx directory responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("directory error: status=%d body=%s", e.StatusCode, e.Body)
}

// HTTPClient is the production directory client.
type HTTPClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewHTTPClient creates a client with sane defaults.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Timeout: 10 * time.Second,
	}
}

func (c *HTTPClient) NewEmployees(ctx context.Context, municipalityID string) ([]NewEmployee, error) {
	var resp []NewEmployee
	endpoint := fmt.Sprintf("municipalities/%s/new-employees", url.PathEscape(municipalityID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *HTTPClient) Employee(ctx context.Context, municipalityID, username string) (NewEmployee, error) {
	var resp NewEmployee
	endpoint := fmt.Sprintf("municipalities/%s/employees/%s", url.PathEscape(municipalityID), url.PathEscape(username))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
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
	if c.APIKey != "" {
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
