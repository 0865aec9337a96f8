package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gatherhub/server/internal/api/middleware"
	"github.com/gatherhub/server/internal/api/pagination"
	"github.com/gatherhub/server/internal/api/problem"
	"github.com/gatherhub/server/internal/domain/events"
)

type EventsHandler struct {
	Service *events.Service
	Env     string
	BaseURL string
}

func NewEventsHandler(service *events.Service, env string, baseURL string) *EventsHandler {
	return &EventsHandler{Service: service, Env: env, BaseURL: baseURL}
}

type listResponse struct {
	Count    int            `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []eventPayload `json:"results"`
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, page, err := events.ParseFilters(r.URL.Query())
	if err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	result, err := h.Service.List(r.Context(), filters, page)
	if err != nil {
		if errors.Is(err, pagination.ErrPageOutOfRange) {
			problem.NotFound(w, r, err, h.Env)
			return
		}
		problem.ServerError(w, r, err, h.Env)
		return
	}

	results := make([]eventPayload, 0, len(result.Events))
	for i := range result.Events {
		results = append(results, renderEvent(&result.Events[i]))
	}

	next, previous := pagination.Links(h.BaseURL, r.URL.Path, r.URL.Query(), page, result.TotalCount)
	writeJSON(w, http.StatusOK, listResponse{
		Count:    result.TotalCount,
		Next:     next,
		Previous: previous,
		Results:  results,
	})
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	if caller == nil {
		problem.Unauthorized(w, r, errors.New("authentication credentials were not provided"), h.Env)
		return
	}

	var input events.EventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	event, err := h.Service.Create(r.Context(), caller, input)
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, renderEvent(event))
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	eventULID := strings.TrimSpace(pathParam(r, "id"))
	if eventULID == "" {
		problem.Validation(w, r, events.FilterError{Field: "id", Message: "missing"}, h.Env)
		return
	}

	event, err := h.Service.GetByULID(r.Context(), eventULID)
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderEvent(event))
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	if caller == nil {
		problem.Unauthorized(w, r, errors.New("authentication credentials were not provided"), h.Env)
		return
	}

	eventULID := strings.TrimSpace(pathParam(r, "id"))
	var input events.EventUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	event, err := h.Service.Update(r.Context(), caller, eventULID, input)
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderEvent(event))
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	if caller == nil {
		problem.Unauthorized(w, r, errors.New("authentication credentials were not provided"), h.Env)
		return
	}

	eventULID := strings.TrimSpace(pathParam(r, "id"))
	if err := h.Service.Delete(r.Context(), caller, eventULID); err != nil {
		h.writeEventError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventsHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.ListCategories(r.Context())
	if err != nil {
		problem.ServerError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, renderCategories(categories))
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (h *EventsHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	if caller == nil {
		problem.Unauthorized(w, r, errors.New("authentication credentials were not provided"), h.Env)
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	category, err := h.Service.CreateCategory(r.Context(), caller, req.Name)
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoryPayload{ID: category.ID, Name: category.Name})
}

func (h *EventsHandler) writeEventError(w http.ResponseWriter, r *http.Request, err error) {
	var ferr events.FilterError
	switch {
	case errors.Is(err, events.ErrNotFound):
		problem.NotFound(w, r, err, h.Env)
	case errors.Is(err, events.ErrForbidden):
		problem.Forbidden(w, r, err, h.Env)
	case errors.Is(err, events.ErrUnknownCategory):
		problem.Validation(w, r, err, h.Env, problem.WithErrors(map[string]interface{}{"categories": "unknown category id"}))
	case errors.Is(err, events.ErrCategoryTaken):
		problem.Validation(w, r, err, h.Env, problem.WithErrors(map[string]interface{}{"name": "a category with this name already exists"}))
	case errors.As(err, &ferr):
		problem.Validation(w, r, err, h.Env)
	default:
		problem.ServerError(w, r, err, h.Env)
	}
}
