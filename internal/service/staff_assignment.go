package service

import (
	"context"
	"strconv"

	"github.com/spec-kit/hubops-service/internal/domain"
	"github.com/spec-kit/hubops-service/internal/repository"
	apperrors "github.com/spec-kit/hubops-service/pkg/util/errorutil"
)

// The staff sub-state runs beside the ticket status:
//
//	None -> Pending -> Accepted -> Submitted
//	Pending|Accepted -> None (staff_reject)
//
// The coupling is one way. staff_accept always forces the ticket to In
// Progress, but staff_reject never rolls the ticket status back.

var staffSources = map[domain.TicketAction][]domain.StaffStatus{
	domain.ActionAssignStaff:     {domain.StaffStatusNone, domain.StaffStatusPending},
	domain.ActionStaffAccept:     {domain.StaffStatusPending},
	domain.ActionStaffReject:     {domain.StaffStatusPending, domain.StaffStatusAccepted},
	domain.ActionStaffSubmitWork: {domain.StaffStatusAccepted},
}

func checkStaffSource(action domain.TicketAction, ticket *domain.Ticket) error {
	for _, status := range staffSources[action] {
		if status == ticket.StaffStatus {
			return nil
		}
	}
	return apperrors.NewConflict("action not allowed in current staff status", map[string]any{
		"action":       string(action),
		"staff_status": string(ticket.StaffStatus),
	})
}

func (s *TicketService) assignStaff(ctx context.Context, repos repository.Repositories, caller domain.Caller, ticket *domain.Ticket, staffID *int64) (string, error) {
	if staffID == nil {
		return "", apperrors.NewValidationError("staff_id is required", map[string]any{"field": "staff_id"})
	}
	if ticket.AssignedDeptID == nil {
		return "", apperrors.NewConflict("ticket has no department to delegate from", nil)
	}
	if err := checkStaffSource(domain.ActionAssignStaff, ticket); err != nil {
		return "", err
	}

	user, err := repos.Users.GetByID(ctx, *staffID)
	if err != nil {
		return "", notFound(err, "staff member", map[string]any{"staff_id": *staffID})
	}
	if user.Role != domain.RoleStaff {
		return "", apperrors.NewNotFound("staff member", map[string]any{"staff_id": *staffID})
	}
	if s.strictScope && !caller.InDepartment(user.DepartmentID) {
		return "", apperrors.NewForbidden("staff member belongs to another department")
	}

	ticket.AssignedStaffID = &user.ID
	ticket.StaffStatus = domain.StaffStatusPending
	return user.Username + " (#" + strconv.FormatInt(user.ID, 10) + ")", nil
}

func (s *TicketService) staffAccept(ticket *domain.Ticket, input TicketActionInput) (string, error) {
	if err := checkStaffSource(domain.ActionStaffAccept, ticket); err != nil {
		return "", err
	}
	ticket.StaffStatus = domain.StaffStatusAccepted
	// Forced even when the ticket is already In Progress.
	ticket.Status = domain.TicketStatusInProgress
	if ticket.AcceptedAt == nil {
		now := s.clock.Now()
		ticket.AcceptedAt = &now
	}
	if estimate := trimmedPtr(input.EstimatedFixTime); estimate != nil {
		ticket.EstimatedFixTime = estimate
	}
	if input.DurationMinutes != nil {
		ticket.AssignedDurationMinutes = input.DurationMinutes
	}
	return estimateNote(ticket), nil
}

// staffReject hands the ticket back to the department. The ticket status
// is left exactly as it was.
func staffReject(ticket *domain.Ticket) (string, error) {
	if err := checkStaffSource(domain.ActionStaffReject, ticket); err != nil {
		return "", err
	}
	clearStaff(ticket)
	return "", nil
}

func staffSubmitWork(ticket *domain.Ticket, input TicketActionInput) (string, error) {
	if err := checkStaffSource(domain.ActionStaffSubmitWork, ticket); err != nil {
		return "", err
	}
	if proof := trimmedPtr(input.ProofURL); proof != nil {
		ticket.ProofURL = proof
	}
	ticket.StaffStatus = domain.StaffStatusSubmitted
	return "", nil
}

func clearStaff(ticket *domain.Ticket) {
	ticket.AssignedStaffID = nil
	ticket.StaffStatus = domain.StaffStatusNone
}
