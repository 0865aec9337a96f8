package events

import (
	"context"
	"errors"
	"time"

	"github.com/gatherhub/server/internal/api/pagination"
)

var (
	ErrNotFound = errors.New("event not found")
	// ErrForbidden reveals existence: the caller found the event but may
	// not mutate it.
	ErrForbidden       = errors.New("only the organizer may modify this event")
	ErrUnknownCategory = errors.New("unknown category id")
	ErrCategoryTaken   = errors.New("category name is already taken")
)

// Event is an event record. ULID is the public id; ID is the internal key.
// Organizer fields are set at creation and immutable afterwards.
type Event struct {
	ID             string
	ULID           string
	Name           string
	Date           time.Time
	Location       string
	Description    string
	ImageURL       string
	OrganizerID    string
	OrganizerEmail string
	CategoryIDs    []int32
	CategoryNames  []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Category struct {
	ID   int32
	Name string
}

// Filters narrow the event list. Distinct fields combine with AND; Search
// union-matches name (prefix), description and location (substring),
// case-insensitively.
type Filters struct {
	Location     string
	CategoryName string
	Search       string
}

type ListResult struct {
	Events     []Event
	TotalCount int
}

type CreateEventParams struct {
	ULID        string
	OrganizerID string
	Name        string
	Date        time.Time
	Location    string
	Description string
	ImageURL    string
	CategoryIDs []int32
}

// UpdateEventParams applies a partial update; nil fields are left unchanged.
// A non-nil CategoryIDs replaces the whole category set.
type UpdateEventParams struct {
	Name        *string
	Date        *time.Time
	Location    *string
	Description *string
	ImageURL    *string
	CategoryIDs *[]int32
}

type Repository interface {
	List(ctx context.Context, filters Filters, page pagination.Page) (ListResult, error)
	GetByULID(ctx context.Context, ulid string) (*Event, error)
	Create(ctx context.Context, params CreateEventParams) (*Event, error)
	Update(ctx context.Context, id string, params UpdateEventParams) (*Event, error)
	Delete(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name string) (*Category, error)
}
