package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gatherhub/server/internal/domain/events"
	"github.com/gatherhub/server/internal/domain/users"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return r.PathValue(key)
}

type userPayload struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

func renderUser(user *users.User) userPayload {
	return userPayload{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
	}
}

type eventPayload struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Date          time.Time `json:"date"`
	Location      string    `json:"location"`
	Description   string    `json:"description"`
	Image         string    `json:"image,omitempty"`
	Organizer     string    `json:"organizer"`
	Categories    []int32   `json:"categories"`
	CategoryNames []string  `json:"category_names"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func renderEvent(event *events.Event) eventPayload {
	categories := event.CategoryIDs
	if categories == nil {
		categories = []int32{}
	}
	names := event.CategoryNames
	if names == nil {
		names = []string{}
	}
	return eventPayload{
		ID:            event.ULID,
		Name:          event.Name,
		Date:          event.Date,
		Location:      event.Location,
		Description:   event.Description,
		Image:         event.ImageURL,
		Organizer:     event.OrganizerEmail,
		Categories:    categories,
		CategoryNames: names,
		CreatedAt:     event.CreatedAt,
		UpdatedAt:     event.UpdatedAt,
	}
}

type categoryPayload struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

func renderCategories(categories []events.Category) []categoryPayload {
	out := make([]categoryPayload, 0, len(categories))
	for _, category := range categories {
		out = append(out, categoryPayload{ID: category.ID, Name: category.Name})
	}
	return out
}
