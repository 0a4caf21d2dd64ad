package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"onboardline/internal/domain"
	"onboardline/internal/engine"
)

func registerInitiation(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "initiate-new-employees",
		Method:      http.MethodPost,
		Path:        "/municipalities/{municipality_id}/employee-checklists/initiate",
		Summary:     "Initiate checklists for all new employees",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string `path:"municipality_id"`
	}) (*struct {
		Body engine.InitiationResult `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		result, err := e.InitiateNewEmployees(ctx, input.MunicipalityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.InitiationResult `json:"body"`
		}{Body: result}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "initiate-employee",
		Method:      http.MethodPost,
		Path:        "/municipalities/{municipality_id}/employee-checklists/initiate/{username}",
		Summary:     "Initiate checklist for one employee",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string `path:"municipality_id"`
		Username       string `path:"username"`
	}) (*struct {
		Body engine.InitiationDetail `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		detail, err := e.InitiateByUsername(ctx, input.MunicipalityID, input.Username)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.InitiationDetail `json:"body"`
		}{Body: detail}, nil
	})
}

func registerEmployeeChecklists(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-employee-checklists",
		Method:      http.MethodGet,
		Path:        "/municipalities/{municipality_id}/employee-checklists",
		Summary:     "List employee checklists",
	}, func(ctx context.Context, input *struct {
		MunicipalityID string `path:"municipality_id"`
	}) (*struct {
		Body []domain.EmployeeChecklist `json:"body"`
	}, error) {
		items, err := e.Repo.ListEmployeeChecklists(ctx, input.MunicipalityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.EmployeeChecklist `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-employee-checklist",
		Method:      http.MethodGet,
		Path:        "/municipalities/{municipality_id}/employee-checklists/{id}",
		Summary:     "Get employee checklist with tasks and fulfilment",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MunicipalityID string `path:"municipality_id"`
		ID             string `path:"id"`
	}) (*struct {
		Body engine.EmployeeChecklistDetail `json:"body"`
	}, error) {
		detail, err := e.GetEmployeeChecklistDetail(ctx, input.MunicipalityID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.EmployeeChecklistDetail `json:"body"`
		}{Body: detail}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-employee-checklist",
		Method:      http.MethodDelete,
		Path:        "/municipalities/{municipality_id}/employee-checklists/{id}",
		Summary:     "Delete employee checklist",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string `path:"municipality_id"`
		ID             string `path:"id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteEmployeeChecklist(ctx, input.MunicipalityID, input.ID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task-fulfilment",
		Method:      http.MethodPatch,
		Path:        "/municipalities/{municipality_id}/employee-checklists/{id}/tasks/{task_id}/fulfilment",
		Summary:     "Update fulfilment of one task",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string                  `path:"municipality_id"`
		ID             string                  `path:"id"`
		TaskID         string                  `path:"task_id"`
		Body           UpdateFulfilmentRequest `json:"body"`
	}) (*struct {
		Body domain.EmployeeChecklist `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ec, err := e.UpdateTaskFulfilment(ctx, input.MunicipalityID, input.ID, input.TaskID,
			input.Body.Status, input.Body.ResponseText, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.EmployeeChecklist `json:"body"`
		}{Body: ec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-phase-fulfilment",
		Method:      http.MethodPatch,
		Path:        "/municipalities/{municipality_id}/employee-checklists/{id}/phases/{phase_id}/fulfilment",
		Summary:     "Update fulfilment of every task in a phase",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string                       `path:"municipality_id"`
		ID             string                       `path:"id"`
		PhaseID        string                       `path:"phase_id"`
		Body           UpdatePhaseFulfilmentRequest `json:"body"`
	}) (*struct {
		Body domain.EmployeeChecklist `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ec, err := e.UpdateAllTasksInPhase(ctx, input.MunicipalityID, input.ID, input.PhaseID,
			input.Body.Status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.EmployeeChecklist `json:"body"`
		}{Body: ec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-custom-task",
		Method:        http.MethodPost,
		Path:          "/municipalities/{municipality_id}/employee-checklists/{id}/custom-tasks",
		Summary:       "Add custom task",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string                  `path:"municipality_id"`
		ID             string                  `path:"id"`
		Body           CreateCustomTaskRequest `json:"body"`
	}) (*struct {
		Body domain.CustomTask `json:"body"`
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
		ct, err := e.CreateCustomTask(ctx, engine.CustomTaskCreateOptions{
			MunicipalityID:      input.MunicipalityID,
			EmployeeChecklistID: input.ID,
			PhaseID:             input.Body.PhaseID,
			Heading:             input.Body.Heading,
			Text:                input.Body.Text,
			QuestionType:        input.Body.QuestionType,
			RoleType:            input.Body.RoleType,
			SortOrder:           input.Body.SortOrder,
			ActorID:             actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CustomTask `json:"body"`
		}{Body: ct}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-custom-task",
		Method:      http.MethodPatch,
		Path:        "/municipalities/{municipality_id}/employee-checklists/{id}/custom-tasks/{custom_task_id}",
		Summary:     "Update custom task",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string                  `path:"municipality_id"`
		ID             string                  `path:"id"`
		CustomTaskID   string                  `path:"custom_task_id"`
		Body           UpdateCustomTaskRequest `json:"body"`
	}) (*struct {
		Body domain.CustomTask `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ct, err := e.UpdateCustomTask(ctx, input.MunicipalityID, input.ID, input.CustomTaskID,
			engine.CustomTaskUpdateOptions{
				Heading:      input.Body.Heading,
				Text:         input.Body.Text,
				QuestionType: input.Body.QuestionType,
				SortOrder:    input.Body.SortOrder,
			}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CustomTask `json:"body"`
		}{Body: ct}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-custom-task",
		Method:      http.MethodDelete,
		Path:        "/municipalities/{municipality_id}/employee-checklists/{id}/custom-tasks/{custom_task_id}",
		Summary:     "Delete custom task",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string `path:"municipality_id"`
		ID             string `path:"id"`
		CustomTaskID   string `path:"custom_task_id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteCustomTask(ctx, input.MunicipalityID, input.ID, input.CustomTaskID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-delegate",
		Method:        http.MethodPost,
		Path:          "/municipalities/{municipality_id}/employee-checklists/{id}/delegates",
		Summary:       "Delegate checklist access",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string             `path:"municipality_id"`
		ID             string             `path:"id"`
		Body           AddDelegateRequest `json:"body"`
	}) (*struct {
		Body domain.Delegate `json:"body"`
	}, error) {
		if input.Body.Email == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "email is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.AddDelegate(ctx, input.MunicipalityID, input.ID, domain.Delegate{
			Email:     input.Body.Email,
			Username:  input.Body.Username,
			FirstName: input.Body.FirstName,
			LastName:  input.Body.LastName,
		}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Delegate `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-delegate",
		Method:      http.MethodDelete,
		Path:        "/municipalities/{municipality_id}/employee-checklists/{id}/delegates/{email}",
		Summary:     "Remove delegated access",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string `path:"municipality_id"`
		ID             string `path:"id"`
		Email          string `path:"email"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.RemoveDelegate(ctx, input.MunicipalityID, input.ID, input.Email, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-mentor",
		Method:      http.MethodPut,
		Path:        "/municipalities/{municipality_id}/employee-checklists/{id}/mentor",
		Summary:     "Assign mentor",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string           `path:"municipality_id"`
		ID             string           `path:"id"`
		Body           SetMentorRequest `json:"body"`
	}) (*struct {
		Body domain.EmployeeChecklist `json:"body"`
	}, error) {
		if input.Body.UserID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "user_id is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ec, err := e.SetMentor(ctx, input.MunicipalityID, input.ID, input.Body.UserID, input.Body.Name, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.EmployeeChecklist `json:"body"`
		}{Body: ec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-mentor",
		Method:      http.MethodDelete,
		Path:        "/municipalities/{municipality_id}/employee-checklists/{id}/mentor",
		Summary:     "Remove mentor",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MunicipalityID string `path:"municipality_id"`
		ID             string `path:"id"`
	}) (*struct {
		Body domain.EmployeeChecklist `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ec, err := e.RemoveMentor(ctx, input.MunicipalityID, input.ID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.EmployeeChecklist `json:"body"`
		}{Body: ec}, nil
	})
}
