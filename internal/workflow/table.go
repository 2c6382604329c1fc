package workflow

import (
	"fmt"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// transitionTable is the fixed set of legal status transitions. Rows are
// data only; the engine interprets them. The USER role appears in no row,
// so end-users can never change ticket status.
var transitionTable = []domain.StatusTransition{
	{
		From:               domain.TicketStatusOpen,
		To:                 domain.TicketStatusInProgress,
		AllowedRoles:       []domain.Role{domain.RoleAgent, domain.RoleAdmin},
		RequiresAssignment: true,
		AutoActions:        []domain.AutoAction{domain.ActionNotifyCreator, domain.ActionNotifyAssignee},
	},
	{
		From:            domain.TicketStatusOpen,
		To:              domain.TicketStatusClosed,
		AllowedRoles:    []domain.Role{domain.RoleAgent, domain.RoleAdmin},
		RequiresComment: true,
		AutoActions:     []domain.AutoAction{domain.ActionNotifyCreator, domain.ActionNotifyAssignee},
	},
	{
		From:            domain.TicketStatusInProgress,
		To:              domain.TicketStatusOpen,
		AllowedRoles:    []domain.Role{domain.RoleAgent, domain.RoleAdmin},
		RequiresComment: true,
		AutoActions:     []domain.AutoAction{domain.ActionNotifyCreator, domain.ActionNotifyAssignee},
	},
	{
		From:            domain.TicketStatusInProgress,
		To:              domain.TicketStatusClosed,
		AllowedRoles:    []domain.Role{domain.RoleAgent, domain.RoleAdmin},
		RequiresComment: true,
		AutoActions:     []domain.AutoAction{domain.ActionNotifyCreator, domain.ActionNotifyAssignee},
	},
	{
		From:            domain.TicketStatusClosed,
		To:              domain.TicketStatusOpen,
		AllowedRoles:    []domain.Role{domain.RoleAgent, domain.RoleAdmin},
		RequiresComment: true,
		AutoActions:     []domain.AutoAction{domain.ActionNotifyCreator, domain.ActionNotifyAssignee},
	},
	{
		From:               domain.TicketStatusClosed,
		To:                 domain.TicketStatusInProgress,
		AllowedRoles:       []domain.Role{domain.RoleAgent, domain.RoleAdmin},
		RequiresAssignment: true,
		RequiresComment:    true,
		AutoActions:        []domain.AutoAction{domain.ActionNotifyCreator, domain.ActionNotifyAssignee},
	},
}

// ValidateTable checks the transition table for duplicate (from,to) pairs
// and self-transitions. Called once at startup; a broken table is a
// programming error, not a runtime condition.
func ValidateTable() error {
	seen := make(map[[2]domain.TicketStatus]struct{}, len(transitionTable))
	for _, row := range transitionTable {
		if row.From == row.To {
			return fmt.Errorf("transition table: self transition %s", row.From)
		}
		key := [2]domain.TicketStatus{row.From, row.To}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("transition table: duplicate row %s -> %s", row.From, row.To)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// findTransition returns the table row for (from,to), or nil.
func findTransition(from, to domain.TicketStatus) *domain.StatusTransition {
	for i := range transitionTable {
		if transitionTable[i].From == from && transitionTable[i].To == to {
			row := transitionTable[i]
			return &row
		}
	}
	return nil
}
