package events

import (
	"time"

	"github.com/spec-kit/hubops-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketStaffChanged  EventType = "ticket_staff_changed"
	EventSweepCompleted      EventType = "scheduler_sweep_completed"
)

// Actor encapsulates actor metadata for an event. The scheduler publishes
// with RoleSystem and no user.
type Actor struct {
	Role   string `json:"role"`
	UserID *int64 `json:"user_id,omitempty"`
}

// RoleSystem marks events raised without a caller.
const RoleSystem = "system"

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  int64     `json:"ticket_id,omitempty"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Type           string              `json:"type"`
	Priority       string              `json:"priority"`
	Status         domain.TicketStatus `json:"status"`
	AssignedDeptID *int64              `json:"assigned_dept_id,omitempty"`
	RecurringTask  *int64              `json:"recurring_task_id,omitempty"`
}

// TicketStatusChangedPayload payload. OldStatus equals NewStatus for
// actions that only touch the staff sub-state.
type TicketStatusChangedPayload struct {
	Action    domain.TicketAction `json:"action"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketStaffChangedPayload payload.
type TicketStaffChangedPayload struct {
	Action          domain.TicketAction `json:"action"`
	AssignedStaffID *int64              `json:"assigned_staff_id,omitempty"`
	StaffStatus     domain.StaffStatus  `json:"staff_status"`
}

// SweepCompletedPayload payload.
type SweepCompletedPayload struct {
	Today     string  `json:"today"`
	Processed int     `json:"processed"`
	TicketIDs []int64 `json:"ticket_ids"`
}
