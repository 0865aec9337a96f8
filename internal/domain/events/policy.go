package events

import (
	"github.com/gatherhub/server/internal/domain/users"
)

// AuthorizationPolicy decides whether a caller may mutate an event. Reads
// never consult the policy; any authenticated user may list and retrieve.
type AuthorizationPolicy interface {
	CanModify(caller *users.User, event *Event) error
}

// OrganizerOnly grants write access exclusively to the event's organizer.
type OrganizerOnly struct{}

func (OrganizerOnly) CanModify(caller *users.User, event *Event) error {
	if caller == nil || event == nil {
		return ErrForbidden
	}
	if caller.ID != event.OrganizerID {
		return ErrForbidden
	}
	return nil
}
