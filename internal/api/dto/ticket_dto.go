package dto

import (
	"time"

	"github.com/spec-kit/hubops-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Anonymous   bool    `json:"anonymous"`
	Type        string  `json:"type"`
	Priority    string  `json:"priority"`
	Description string  `json:"description"`
	PhotoURL    *string `json:"photo_url"`
}

// TicketActionRequest is the body of PUT /tickets/:id/action. Only the
// fields relevant to the named action are read.
type TicketActionRequest struct {
	Action                  string  `json:"action"`
	Department              string  `json:"department"`
	EstimatedFixTime        *string `json:"estimated_fix_time"`
	AssignedDurationMinutes *int    `json:"assigned_duration_minutes"`
	ProofURL                *string `json:"proof_url"`
	StaffID                 *int64  `json:"staff_id"`
	Reason                  string  `json:"reason"`
}

// TicketResponse is the public ticket representation. TenantName is
// redacted for anonymous tickets.
type TicketResponse struct {
	ID                      int64               `json:"id"`
	TenantName              string              `json:"tenant_name"`
	Anonymous               bool                `json:"anonymous"`
	Type                    string              `json:"type"`
	Priority                string              `json:"priority"`
	PhotoURL                *string             `json:"photo_url"`
	Description             string              `json:"description"`
	Status                  domain.TicketStatus `json:"status"`
	AssignedDept            *string             `json:"assigned_dept"`
	AssignedDeptID          *int64              `json:"assigned_dept_id"`
	EstimatedFixTime        *string             `json:"estimated_fix_time"`
	FeedbackRating          *int                `json:"feedback_rating"`
	CreatedAt               time.Time           `json:"created_at"`
	ResolvedAt              *time.Time          `json:"resolved_at"`
	ProofURL                *string             `json:"proof_url"`
	AssignedStaffID         *int64              `json:"assigned_staff_id"`
	AssignedStaffName       *string             `json:"assigned_staff_name"`
	StaffStatus             *domain.StaffStatus `json:"staff_status"`
	AcceptedAt              *time.Time          `json:"accepted_at"`
	AssignedDurationMinutes *int                `json:"assigned_duration_minutes"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID          int64                `json:"id"`
	ActorUserID *int64               `json:"actor_user_id"`
	ActorRole   string               `json:"actor_role"`
	Action      string               `json:"action"`
	OldStatus   *domain.TicketStatus `json:"old_status"`
	NewStatus   domain.TicketStatus  `json:"new_status"`
	Note        string               `json:"note,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// NewTicketResponse maps a resolved ticket.
func NewTicketResponse(view *domain.TicketView) TicketResponse {
	resp := TicketResponse{
		ID:                      view.ID,
		TenantName:              view.DisplayTenantName(),
		Anonymous:               view.Anonymous,
		Type:                    view.Type,
		Priority:                view.Priority,
		PhotoURL:                view.PhotoURL,
		Description:             view.Description,
		Status:                  view.Status,
		AssignedDept:            view.AssignedDeptName,
		AssignedDeptID:          view.AssignedDeptID,
		EstimatedFixTime:        view.EstimatedFixTime,
		FeedbackRating:          view.FeedbackRating,
		CreatedAt:               view.CreatedAt,
		ResolvedAt:              view.ResolvedAt,
		ProofURL:                view.ProofURL,
		AssignedStaffID:         view.AssignedStaffID,
		AssignedStaffName:       view.AssignedStaffName,
		AcceptedAt:              view.AcceptedAt,
		AssignedDurationMinutes: view.AssignedDurationMinutes,
	}
	if view.StaffStatus != domain.StaffStatusNone {
		status := view.StaffStatus
		resp.StaffStatus = &status
	}
	return resp
}

// NewTicketResponses maps a list, never returning nil.
func NewTicketResponses(views []domain.TicketView) []TicketResponse {
	out := make([]TicketResponse, 0, len(views))
	for i := range views {
		out = append(out, NewTicketResponse(&views[i]))
	}
	return out
}

// NewTicketHistoryResponses maps audit entries.
func NewTicketHistoryResponses(entries []domain.TicketHistory) []TicketHistoryResponse {
	out := make([]TicketHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, TicketHistoryResponse{
			ID:          e.ID,
			ActorUserID: e.ActorUserID,
			ActorRole:   e.ActorRole,
			Action:      e.Action,
			OldStatus:   e.OldStatus,
			NewStatus:   e.NewStatus,
			Note:        e.Note,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}
