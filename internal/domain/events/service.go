package events

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"

	"github.com/gatherhub/server/internal/api/pagination"
	"github.com/gatherhub/server/internal/domain/users"
	"github.com/gatherhub/server/internal/sanitize"
)

type FilterError struct {
	Field   string
	Message string
}

func (e FilterError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ParseFilters reads the list query parameters. The categories__name
// parameter keeps its historical spelling.
func ParseFilters(values url.Values) (Filters, pagination.Page, error) {
	filters := Filters{
		Location:     strings.TrimSpace(values.Get("location")),
		CategoryName: strings.TrimSpace(values.Get("categories__name")),
		Search:       strings.TrimSpace(values.Get("search")),
	}

	page, err := pagination.ParsePage(values)
	if err != nil {
		return filters, page, FilterError{Field: "page", Message: "must be a positive integer"}
	}
	return filters, page, nil
}

// EventInput is the create payload. Organizer is never accepted from the
// client; the service forces it to the caller.
type EventInput struct {
	Name        string     `json:"name" validate:"required,max=200"`
	Date        *time.Time `json:"date" validate:"required"`
	Location    string     `json:"location" validate:"required,max=200"`
	Description string     `json:"description"`
	Image       string     `json:"image" validate:"omitempty,url"`
	Categories  []int32    `json:"categories"`
}

// EventUpdateInput is the full-or-partial update payload.
type EventUpdateInput struct {
	Name        *string    `json:"name"`
	Date        *time.Time `json:"date"`
	Location    *string    `json:"location"`
	Description *string    `json:"description"`
	Image       *string    `json:"image"`
	Categories  *[]int32   `json:"categories"`
}

type Service struct {
	repo     Repository
	policy   AuthorizationPolicy
	validate *validator.Validate
}

func NewService(repo Repository, policy AuthorizationPolicy) *Service {
	return &Service{
		repo:     repo,
		policy:   policy,
		validate: validator.New(),
	}
}

// List returns one page of the filtered, searched event collection. A page
// past the end of the collection is out of range.
func (s *Service) List(ctx context.Context, filters Filters, page pagination.Page) (ListResult, error) {
	result, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return ListResult{}, err
	}
	if page.Number > pagination.LastPage(result.TotalCount, page.Size) {
		return ListResult{}, pagination.ErrPageOutOfRange
	}
	return result, nil
}

func (s *Service) GetByULID(ctx context.Context, eventULID string) (*Event, error) {
	return s.repo.GetByULID(ctx, eventULID)
}

// Create validates and sanitizes the payload and stores the event with the
// caller as organizer.
func (s *Service) Create(ctx context.Context, caller *users.User, input EventInput) (*Event, error) {
	input.Name = strings.TrimSpace(sanitize.Text(input.Name))
	input.Location = strings.TrimSpace(sanitize.Text(input.Location))
	input.Description = sanitize.HTML(input.Description)

	if err := s.validate.Struct(input); err != nil {
		return nil, FilterError{Message: validationMessage(err)}
	}

	return s.repo.Create(ctx, CreateEventParams{
		ULID:        ulid.Make().String(),
		OrganizerID: caller.ID,
		Name:        input.Name,
		Date:        input.Date.UTC(),
		Location:    input.Location,
		Description: input.Description,
		ImageURL:    input.Image,
		CategoryIDs: input.Categories,
	})
}

// Update applies a partial or full update. Check order: existence, then
// ownership, then field validity.
func (s *Service) Update(ctx context.Context, caller *users.User, eventULID string, input EventUpdateInput) (*Event, error) {
	event, err := s.repo.GetByULID(ctx, eventULID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanModify(caller, event); err != nil {
		return nil, err
	}

	params, err := s.buildUpdateParams(input)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, event.ID, params)
}

// Delete removes the event and its category associations permanently.
func (s *Service) Delete(ctx context.Context, caller *users.User, eventULID string) error {
	event, err := s.repo.GetByULID(ctx, eventULID)
	if err != nil {
		return err
	}
	if err := s.policy.CanModify(caller, event); err != nil {
		return err
	}
	return s.repo.Delete(ctx, event.ID)
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory is restricted to staff accounts.
func (s *Service) CreateCategory(ctx context.Context, caller *users.User, name string) (*Category, error) {
	if caller == nil || !caller.IsStaff {
		return nil, ErrForbidden
	}
	name = strings.TrimSpace(sanitize.Text(name))
	if name == "" || len(name) > 100 {
		return nil, FilterError{Field: "name", Message: "must be 1-100 characters"}
	}
	return s.repo.CreateCategory(ctx, name)
}

func (s *Service) buildUpdateParams(input EventUpdateInput) (UpdateEventParams, error) {
	params := UpdateEventParams{CategoryIDs: input.Categories}
	if input.Date != nil {
		utc := input.Date.UTC()
		params.Date = &utc
	}

	if input.Name != nil {
		name := strings.TrimSpace(sanitize.Text(*input.Name))
		if name == "" || len(name) > 200 {
			return UpdateEventParams{}, FilterError{Field: "name", Message: "must be 1-200 characters"}
		}
		params.Name = &name
	}
	if input.Location != nil {
		location := strings.TrimSpace(sanitize.Text(*input.Location))
		if location == "" || len(location) > 200 {
			return UpdateEventParams{}, FilterError{Field: "location", Message: "must be 1-200 characters"}
		}
		params.Location = &location
	}
	if input.Description != nil {
		description := sanitize.HTML(*input.Description)
		params.Description = &description
	}
	if input.Image != nil {
		if *input.Image != "" {
			if err := s.validate.Var(*input.Image, "url"); err != nil {
				return UpdateEventParams{}, FilterError{Field: "image", Message: "must be a valid URL"}
			}
		}
		params.ImageURL = input.Image
	}
	return params, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if ok := errors.As(err, &verrs); ok && len(verrs) > 0 {
		field := strings.ToLower(verrs[0].Field())
		switch verrs[0].Tag() {
		case "required":
			return field + " is required"
		case "url":
			return field + " must be a valid URL"
		case "max":
			return field + " is too long"
		}
		return field + " is invalid"
	}
	return "invalid payload"
}
