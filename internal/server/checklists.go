package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"onboardline/internal/domain"
	"onboardline/internal/engine"
)

var mutationErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusInternalServerError,
}

func registerOrganizations(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-organization",
		Method:        http.MethodPost,
		Path:          "/municipalities/{municipality_id}/organizations",
		Summary:       "Create organization",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string                    `path:"municipality_id"`
		Body           CreateOrganizationRequest `json:"body"`
	}) (*struct {
		Body domain.Organization `json:"body"`
	}, error) {
		if input.Body.OrganizationNumber == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "organization_number is required", nil)
		}
		if input.Body.OrganizationName == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "organization_name is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		org, err := e.CreateOrganization(ctx, input.MunicipalityID, input.Body.OrganizationNumber,
			input.Body.OrganizationName, input.Body.CommunicationChannels, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Organization `json:"body"`
		}{Body: org}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-organizations",
		Method:      http.MethodGet,
		Path:        "/municipalities/{municipality_id}/organizations",
		Summary:     "List organizations",
	}, func(ctx context.Context, input *struct {
		MunicipalityID string `path:"municipality_id"`
	}) (*struct {
		Body []domain.Organization `json:"body"`
	}, error) {
		items, err := e.Repo.ListOrganizations(ctx, input.MunicipalityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Organization `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-organization",
		Method:      http.MethodPatch,
		Path:        "/municipalities/{municipality_id}/organizations/{id}",
		Summary:     "Update organization",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string                    `path:"municipality_id"`
		ID             string                    `path:"id"`
		Body           UpdateOrganizationRequest `json:"body"`
	}) (*struct {
		Body domain.Organization `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		org, err := e.UpdateOrganization(ctx, input.MunicipalityID, input.ID,
			input.Body.OrganizationName, input.Body.CommunicationChannels, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Organization `json:"body"`
		}{Body: org}, nil
	})
}

func registerPhases(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-phase",
		Method:        http.MethodPost,
		Path:          "/municipalities/{municipality_id}/phases",
		Summary:       "Create phase",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string             `path:"municipality_id"`
		Body           CreatePhaseRequest `json:"body"`
	}) (*struct {
		Body domain.Phase `json:"body"`
	}, error) {
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		phase, err := e.CreatePhase(ctx, domain.Phase{
			MunicipalityID: input.MunicipalityID,
			Name:           input.Body.Name,
			BodyText:       input.Body.BodyText,
			SortOrder:      input.Body.SortOrder,
			TimeToComplete: input.Body.TimeToComplete,
			Permission:     input.Body.Permission,
		}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Phase `json:"body"`
		}{Body: phase}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-phases",
		Method:      http.MethodGet,
		Path:        "/municipalities/{municipality_id}/phases",
		Summary:     "List phases",
	}, func(ctx context.Context, input *struct {
		MunicipalityID string `path:"municipality_id"`
	}) (*struct {
		Body []domain.Phase `json:"body"`
	}, error) {
		items, err := e.Repo.ListPhases(ctx, input.MunicipalityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Phase `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-phase",
		Method:      http.MethodPatch,
		Path:        "/municipalities/{municipality_id}/phases/{id}",
		Summary:     "Update phase",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string             `path:"municipality_id"`
		ID             string             `path:"id"`
		Body           UpdatePhaseRequest `json:"body"`
	}) (*struct {
		Body domain.Phase `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		phase, err := e.UpdatePhase(ctx, input.MunicipalityID, input.ID,
			input.Body.Name, input.Body.BodyText, input.Body.TimeToComplete, input.Body.SortOrder, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Phase `json:"body"`
		}{Body: phase}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-phase",
		Method:      http.MethodDelete,
		Path:        "/municipalities/{municipality_id}/phases/{id}",
		Summary:     "Delete phase",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string `path:"municipality_id"`
		ID             string `path:"id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeletePhase(ctx, input.MunicipalityID, input.ID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerChecklists(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-checklist",
		Method:        http.MethodPost,
		Path:          "/municipalities/{municipality_id}/checklists",
		Summary:       "Create checklist",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string                 `path:"municipality_id"`
		Body           CreateChecklistRequest `json:"body"`
	}) (*struct {
		Body domain.Checklist `json:"body"`
	}, error) {
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		if input.Body.OrganizationNumber == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "organization_number is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateChecklist(ctx, engine.ChecklistCreateOptions{
			MunicipalityID:     input.MunicipalityID,
			OrganizationNumber: input.Body.OrganizationNumber,
			Name:               input.Body.Name,
			DisplayName:        input.Body.DisplayName,
			RoleType:           input.Body.RoleType,
			ActorID:            actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Checklist `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-checklists",
		Method:      http.MethodGet,
		Path:        "/municipalities/{municipality_id}/checklists",
		Summary:     "List checklists",
	}, func(ctx context.Context, input *struct {
		MunicipalityID string `path:"municipality_id"`
	}) (*struct {
		Body []domain.Checklist `json:"body"`
	}, error) {
		items, err := e.Repo.ListChecklists(ctx, input.MunicipalityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Checklist `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-checklist",
		Method:      http.MethodGet,
		Path:        "/municipalities/{municipality_id}/checklists/{id}",
		Summary:     "Get checklist",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MunicipalityID string `path:"municipality_id"`
		ID             string `path:"id"`
	}) (*struct {
		Body domain.Checklist `json:"body"`
	}, error) {
		c, err := e.Repo.GetChecklist(ctx, nil, input.MunicipalityID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		c.Tasks, err = e.Repo.ListTasks(ctx, nil, c.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Checklist `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-checklist",
		Method:      http.MethodPatch,
		Path:        "/municipalities/{municipality_id}/checklists/{id}",
		Summary:     "Update checklist",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string                 `path:"municipality_id"`
		ID             string                 `path:"id"`
		Body           UpdateChecklistRequest `json:"body"`
	}) (*struct {
		Body domain.Checklist `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.UpdateChecklist(ctx, input.MunicipalityID, input.ID, engine.ChecklistUpdateOptions{
			DisplayName: input.Body.DisplayName,
			RoleType:    input.Body.RoleType,
		}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Checklist `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-checklist",
		Method:      http.MethodDelete,
		Path:        "/municipalities/{municipality_id}/checklists/{id}",
		Summary:     "Delete checklist",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string `path:"municipality_id"`
		ID             string `path:"id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteChecklist(ctx, input.MunicipalityID, input.ID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-checklist-version",
		Method:        http.MethodPost,
		Path:          "/municipalities/{municipality_id}/checklists/{id}/version",
		Summary:       "Create new checklist version",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string `path:"municipality_id"`
		ID             string `path:"id"`
	}) (*struct {
		Body domain.Checklist `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateNewVersion(ctx, input.MunicipalityID, input.ID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Checklist `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "activate-checklist",
		Method:      http.MethodPost,
		Path:        "/municipalities/{municipality_id}/checklists/{id}/activate",
		Summary:     "Activate checklist version",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string `path:"municipality_id"`
		ID             string `path:"id"`
	}) (*struct {
		Body domain.Checklist `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.ActivateChecklist(ctx, input.MunicipalityID, input.ID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Checklist `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/municipalities/{municipality_id}/checklists/{id}/tasks",
		Summary:       "Add task to checklist",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string            `path:"municipality_id"`
		ID             string            `path:"id"`
		Body           CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if input.Body.Heading == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "heading is required", nil)
		}
		if input.Body.PhaseID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "phase_id is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
			MunicipalityID: input.MunicipalityID,
			ChecklistID:    input.ID,
			PhaseID:        input.Body.PhaseID,
			Heading:        input.Body.Heading,
			Text:           input.Body.Text,
			SortOrder:      input.Body.SortOrder,
			RoleType:       input.Body.RoleType,
			QuestionType:   input.Body.QuestionType,
			Permission:     input.Body.Permission,
			ActorID:        actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/municipalities/{municipality_id}/checklists/{id}/tasks/{task_id}",
		Summary:     "Update task",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string            `path:"municipality_id"`
		ID             string            `path:"id"`
		TaskID         string            `path:"task_id"`
		Body           UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.UpdateTask(ctx, input.MunicipalityID, input.ID, input.TaskID, engine.TaskUpdateOptions{
			Heading:      input.Body.Heading,
			Text:         input.Body.Text,
			SortOrder:    input.Body.SortOrder,
			RoleType:     input.Body.RoleType,
			QuestionType: input.Body.QuestionType,
			Permission:   input.Body.Permission,
		}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/municipalities/{municipality_id}/checklists/{id}/tasks/{task_id}",
		Summary:     "Delete task",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string `path:"municipality_id"`
		ID             string `path:"id"`
		TaskID         string `path:"task_id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteTask(ctx, input.MunicipalityID, input.ID, input.TaskID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerPorting(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "export-checklist",
		Method:      http.MethodGet,
		Path:        "/municipalities/{municipality_id}/organizations/{org_number}/checklists/export",
		Summary:     "Export checklist document",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MunicipalityID string `path:"municipality_id"`
		OrgNumber      int    `path:"org_number"`
		Version        int    `query:"version"`
	}) (*struct {
		Body engine.PortableChecklist `json:"body"`
	}, error) {
		doc, err := e.ExportChecklist(ctx, input.MunicipalityID, input.OrgNumber, input.Version)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.PortableChecklist `json:"body"`
		}{Body: doc}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "import-checklist",
		Method:        http.MethodPost,
		Path:          "/municipalities/{municipality_id}/organizations/{org_number}/checklists/import",
		Summary:       "Import checklist document",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string                 `path:"municipality_id"`
		OrgNumber      int                    `path:"org_number"`
		Body           ImportChecklistRequest `json:"body"`
	}) (*struct {
		Body domain.Checklist `json:"body"`
	}, error) {
		if input.Body.Document.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "document.name is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.ImportChecklist(ctx, engine.ImportOptions{
			MunicipalityID:     input.MunicipalityID,
			OrganizationNumber: input.OrgNumber,
			OrganizationName:   input.Body.OrganizationName,
			Document:           input.Body.Document,
			ReplaceExisting:    input.Body.ReplaceExisting,
			ActorID:            actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Checklist `json:"body"`
		}{Body: c}, nil
	})
}
