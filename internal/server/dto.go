package server

import (
	"onboardline/internal/domain"
	"onboardline/internal/engine"
)

// Request payloads

type CreateOrganizationRequest struct {
	OrganizationNumber    int      `json:"organization_number"`
	OrganizationName      string   `json:"organization_name"`
	CommunicationChannels []string `json:"communication_channels,omitempty"`
}

type UpdateOrganizationRequest struct {
	OrganizationName      *string  `json:"organization_name,omitempty"`
	CommunicationChannels []string `json:"communication_channels,omitempty"`
}

type CreatePhaseRequest struct {
	Name           string `json:"name"`
	BodyText       string `json:"body_text,omitempty"`
	SortOrder      int    `json:"sort_order,omitempty"`
	TimeToComplete string `json:"time_to_complete,omitempty"`
	Permission     string `json:"permission,omitempty"`
}

type UpdatePhaseRequest struct {
	Name           *string `json:"name,omitempty"`
	BodyText       *string `json:"body_text,omitempty"`
	SortOrder      *int    `json:"sort_order,omitempty"`
	TimeToComplete *string `json:"time_to_complete,omitempty"`
}

type CreateChecklistRequest struct {
	OrganizationNumber int    `json:"organization_number"`
	Name               string `json:"name"`
	DisplayName        string `json:"display_name,omitempty"`
	RoleType           string `json:"role_type,omitempty"`
}

type UpdateChecklistRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	RoleType    *string `json:"role_type,omitempty"`
}

type CreateTaskRequest struct {
	PhaseID      string `json:"phase_id"`
	Heading      string `json:"heading"`
	Text         string `json:"text,omitempty"`
	SortOrder    int    `json:"sort_order,omitempty"`
	RoleType     string `json:"role_type,omitempty"`
	QuestionType string `json:"question_type,omitempty"`
	Permission   string `json:"permission,omitempty"`
}

type UpdateTaskRequest struct {
	Heading      *string `json:"heading,omitempty"`
	Text         *string `json:"text,omitempty"`
	SortOrder    *int    `json:"sort_order,omitempty"`
	RoleType     *string `json:"role_type,omitempty"`
	QuestionType *string `json:"question_type,omitempty"`
	Permission   *string `json:"permission,omitempty"`
}

type ImportChecklistRequest struct {
	OrganizationName string                   `json:"organization_name,omitempty"`
	ReplaceExisting  bool                     `json:"replace_existing,omitempty"`
	Document         engine.PortableChecklist `json:"document"`
}

type UpdateFulfilmentRequest struct {
	Status       *domain.FulfilmentStatus `json:"status,omitempty" enum:"EMPTY,TRUE,FALSE"`
	ResponseText *string                  `json:"response_text,omitempty"`
}

type UpdatePhaseFulfilmentRequest struct {
	Status *domain.FulfilmentStatus `json:"status,omitempty" enum:"EMPTY,TRUE,FALSE"`
}

type CreateCustomTaskRequest struct {
	PhaseID      string `json:"phase_id"`
	Heading      string `json:"heading"`
	Text         string `json:"text,omitempty"`
	QuestionType string `json:"question_type,omitempty"`
	RoleType     string `json:"role_type,omitempty"`
	SortOrder    int    `json:"sort_order,omitempty"`
}

type UpdateCustomTaskRequest struct {
	Heading      *string `json:"heading,omitempty"`
	Text         *string `json:"text,omitempty"`
	QuestionType *string `json:"question_type,omitempty"`
	SortOrder    *int    `json:"sort_order,omitempty"`
}

type AddDelegateRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type SetMentorRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}
