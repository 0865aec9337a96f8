package events

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatherhub/server/internal/domain/users"
)

func TestOrganizerOnlyAllowsOrganizer(t *testing.T) {
	policy := OrganizerOnly{}
	owner := &users.User{ID: "user-1"}
	event := &Event{OrganizerID: "user-1"}

	require.NoError(t, policy.CanModify(owner, event))
}

func TestOrganizerOnlyRejectsOthers(t *testing.T) {
	policy := OrganizerOnly{}
	stranger := &users.User{ID: "user-2"}
	event := &Event{OrganizerID: "user-1"}

	require.ErrorIs(t, policy.CanModify(stranger, event), ErrForbidden)
}

func TestOrganizerOnlyRejectsStaffWhoAreNotOrganizer(t *testing.T) {
	// Staff flags grant no event mutation rights; only ownership does.
	policy := OrganizerOnly{}
	staff := &users.User{ID: "user-2", IsStaff: true, IsSuperuser: true}
	event := &Event{OrganizerID: "user-1"}

	require.ErrorIs(t, policy.CanModify(staff, event), ErrForbidden)
}

func TestOrganizerOnlyRejectsNil(t *testing.T) {
	policy := OrganizerOnly{}
	require.ErrorIs(t, policy.CanModify(nil, &Event{}), ErrForbidden)
	require.ErrorIs(t, policy.CanModify(&users.User{ID: "user-1"}, nil), ErrForbidden)
}
