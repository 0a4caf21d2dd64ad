package domain

// LifeCycle is the checklist template lifecycle state.
type LifeCycle string

const (
	LifeCycleCreated    LifeCycle = "CREATED"
	LifeCycleActive     LifeCycle = "ACTIVE"
	LifeCycleDeprecated LifeCycle = "DEPRECATED"
	// LifeCycleRetired is guarded against in transitions but has no producing
	// operation in this service; it only enters via externally written data.
	LifeCycleRetired LifeCycle = "RETIRED"
)

// FulfilmentStatus is the completion state of one fulfilment record.
type FulfilmentStatus string

const (
	FulfilmentEmpty FulfilmentStatus = "EMPTY"
	FulfilmentTrue  FulfilmentStatus = "TRUE"
	FulfilmentFalse FulfilmentStatus = "FALSE"
)

type Organization struct {
	ID                    string   `json:"id"`
	MunicipalityID        string   `json:"municipality_id"`
	OrganizationNumber    int      `json:"organization_number"`
	OrganizationName      string   `json:"organization_name"`
	CommunicationChannels []string `json:"communication_channels,omitempty"`
	CreatedAt             string   `json:"created_at" format:"date-time"`
	UpdatedAt             string   `json:"updated_at" format:"date-time"`
}

// Checklist is one version of a named template series owned by an Organization.
// Name is stable across versions; Version is monotonic per name.
type Checklist struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	MunicipalityID string    `json:"municipality_id"`
	Name           string    `json:"name"`
	DisplayName    string    `json:"display_name"`
	Version        int       `json:"version"`
	LifeCycle      LifeCycle `json:"life_cycle" enum:"CREATED,ACTIVE,DEPRECATED,RETIRED"`
	RoleType       string    `json:"role_type"`
	LastSavedBy    string    `json:"last_saved_by"`
	Tasks          []Task    `json:"tasks,omitempty"`
	CreatedAt      string    `json:"created_at" format:"date-time"`
	UpdatedAt      string    `json:"updated_at" format:"date-time"`
}

// Phase is a municipality-shared catalog entry referenced by tasks, never owned
// per checklist version.
type Phase struct {
	ID             string `json:"id"`
	MunicipalityID string `json:"municipality_id"`
	Name           string `json:"name"`
	BodyText       string `json:"body_text,omitempty"`
	SortOrder      int    `json:"sort_order"`
	TimeToComplete string `json:"time_to_complete,omitempty"`
	Permission     string `json:"permission,omitempty"`
	LastSavedBy    string `json:"last_saved_by"`
	CreatedAt      string `json:"created_at" format:"date-time"`
	UpdatedAt      string `json:"updated_at" format:"date-time"`
}

type Task struct {
	ID           string `json:"id"`
	ChecklistID  string `json:"checklist_id"`
	PhaseID      string `json:"phase_id"`
	Heading      string `json:"heading"`
	Text         string `json:"text,omitempty"`
	SortOrder    int    `json:"sort_order"`
	RoleType     string `json:"role_type"`
	QuestionType string `json:"question_type"`
	Permission   string `json:"permission,omitempty"`
	LastSavedBy  string `json:"last_saved_by"`
	CreatedAt    string `json:"created_at" format:"date-time"`
	UpdatedAt    string `json:"updated_at" format:"date-time"`
}

// CustomTask has the shape of a Task but is scoped to one EmployeeChecklist
// and is not part of any template version.
type CustomTask struct {
	ID                  string `json:"id"`
	EmployeeChecklistID string `json:"employee_checklist_id"`
	PhaseID             string `json:"phase_id"`
	Heading             string `json:"heading"`
	Text                string `json:"text,omitempty"`
	QuestionType        string `json:"question_type"`
	RoleType            string `json:"role_type"`
	SortOrder           int    `json:"sort_order"`
	LastSavedBy         string `json:"last_saved_by"`
	CreatedAt           string `json:"created_at" format:"date-time"`
	UpdatedAt           string `json:"updated_at" format:"date-time"`
}

type Employee struct {
	ID             string `json:"id"`
	MunicipalityID string `json:"municipality_id"`
	Username       string `json:"username"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email,omitempty"`
	Title          string `json:"title,omitempty"`
	CompanyID      int    `json:"company_id"`
	DepartmentID   string `json:"department_id,omitempty"`
	ManagerID      string `json:"manager_id,omitempty"`
	StartDate      string `json:"start_date" format:"date"`
	CreatedAt      string `json:"created_at" format:"date-time"`
	UpdatedAt      string `json:"updated_at" format:"date-time"`
}

type Manager struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// EmployeeChecklist is the per-employee aggregate. The checklist set in
// ChecklistIDs is fixed at initiation time and never rebound afterwards.
type EmployeeChecklist struct {
	ID             string   `json:"id"`
	MunicipalityID string   `json:"municipality_id"`
	EmployeeID     string   `json:"employee_id"`
	ChecklistIDs   []string `json:"checklist_ids"`
	StartDate      string   `json:"start_date" format:"date"`
	EndDate        string   `json:"end_date" format:"date"`
	ExpirationDate string   `json:"expiration_date" format:"date"`
	Locked         bool     `json:"locked"`
	Completed      bool     `json:"completed"`
	MentorUserID   string   `json:"mentor_user_id,omitempty"`
	MentorName     string   `json:"mentor_name,omitempty"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
	UpdatedAt      string   `json:"updated_at" format:"date-time"`
}

type Fulfilment struct {
	ID                  string           `json:"id"`
	EmployeeChecklistID string           `json:"employee_checklist_id"`
	TaskID              string           `json:"task_id"`
	Completed           FulfilmentStatus `json:"completed" enum:"EMPTY,TRUE,FALSE"`
	ResponseText        string           `json:"response_text,omitempty"`
	LastSavedBy         string           `json:"last_saved_by"`
	UpdatedAt           string           `json:"updated_at" format:"date-time"`
}

type CustomFulfilment struct {
	ID                  string           `json:"id"`
	EmployeeChecklistID string           `json:"employee_checklist_id"`
	CustomTaskID        string           `json:"custom_task_id"`
	Completed           FulfilmentStatus `json:"completed" enum:"EMPTY,TRUE,FALSE"`
	ResponseText        string           `json:"response_text,omitempty"`
	LastSavedBy         string           `json:"last_saved_by"`
	UpdatedAt           string           `json:"updated_at" format:"date-time"`
}

type Delegate struct {
	ID                  string `json:"id"`
	EmployeeChecklistID string `json:"employee_checklist_id"`
	Email               string `json:"email"`
	Username            string `json:"username,omitempty"`
	FirstName           string `json:"first_name,omitempty"`
	LastName            string `json:"last_name,omitempty"`
	CreatedAt           string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID             int64  `json:"id"`
	TS             string `json:"ts" format:"date-time"`
	Type           string `json:"type"`
	MunicipalityID string `json:"municipality_id,omitempty"`
	EntityKind     string `json:"entity_kind"`
	EntityID       string `json:"entity_id,omitempty"`
	ActorID        string `json:"actor_id"`
	Payload        string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// RunLock is a named single-runner lock consumed by the expiration sweep.
type RunLock struct {
	Name       string `json:"name"`
	OwnerID    string `json:"owner_id"`
	AcquiredAt string `json:"acquired_at" format:"date-time"`
	ExpiresAt  string `json:"expires_at" format:"date-time"`
}
