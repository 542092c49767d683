package service

import (
	"github.com/spec-kit/hubops-service/internal/domain"
	apperrors "github.com/spec-kit/hubops-service/pkg/util/errorutil"
)

// actionSources lists the ticket statuses each action may start from.
var actionSources = map[domain.TicketAction][]domain.TicketStatus{
	domain.ActionAssign:          {domain.TicketStatusPendingApproval, domain.TicketStatusAssigned, domain.TicketStatusRejected},
	domain.ActionAccept:          {domain.TicketStatusAssigned},
	domain.ActionResolve:         {domain.TicketStatusInProgress},
	domain.ActionDeptReject:      {domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusRejected},
	domain.ActionAssignStaff:     {domain.TicketStatusAssigned, domain.TicketStatusInProgress},
	domain.ActionStaffAccept:     {domain.TicketStatusAssigned, domain.TicketStatusInProgress},
	domain.ActionStaffReject:     {domain.TicketStatusAssigned, domain.TicketStatusInProgress},
	domain.ActionStaffSubmitWork: {domain.TicketStatusAssigned, domain.TicketStatusInProgress},
}

// allowedTransitions is the full status graph. Self edges exist for
// actions that leave the status alone. Rejected -> Rejected lets a second
// dept_reject append another reason.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusPendingApproval: {domain.TicketStatusAssigned},
	domain.TicketStatusAssigned:        {domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusRejected},
	domain.TicketStatusInProgress:      {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusRejected},
	domain.TicketStatusRejected:        {domain.TicketStatusAssigned, domain.TicketStatusRejected},
	domain.TicketStatusResolved:        {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

func checkActionSource(action domain.TicketAction, ticket *domain.Ticket) error {
	for _, status := range actionSources[action] {
		if status == ticket.Status {
			return nil
		}
	}
	return apperrors.NewConflict("action not allowed in current status", map[string]any{
		"action": string(action),
		"status": string(ticket.Status),
	})
}

func checkTransition(action domain.TicketAction, from, to domain.TicketStatus) error {
	if isValidTransition(from, to) {
		return nil
	}
	return apperrors.NewConflict("invalid status transition", map[string]any{
		"action": string(action),
		"from":   string(from),
		"to":     string(to),
	})
}
