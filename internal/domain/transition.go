package domain

// AutoAction tags a follow-up action attached to a status transition.
type AutoAction string

const (
	ActionNotifyCreator  AutoAction = "notify_creator"
	ActionNotifyAssignee AutoAction = "notify_assignee"
)

// StatusTransition is one row of the workflow transition table.
type StatusTransition struct {
	From               TicketStatus
	To                 TicketStatus
	AllowedRoles       []Role
	RequiresAssignment bool
	RequiresComment    bool
	AutoActions        []AutoAction
}

// RoleAllowed reports whether role appears in the row's allowed set.
func (t StatusTransition) RoleAllowed(role Role) bool {
	for _, r := range t.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}
