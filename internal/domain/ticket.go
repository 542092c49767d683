package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPendingApproval TicketStatus = "Pending Approval"
	TicketStatusAssigned        TicketStatus = "Assigned"
	TicketStatusInProgress      TicketStatus = "In Progress"
	TicketStatusResolved        TicketStatus = "Resolved"
	TicketStatusRejected        TicketStatus = "Rejected"
)

// ParseTicketStatus validates a status name.
func ParseTicketStatus(value string) (TicketStatus, error) {
	switch status := TicketStatus(strings.TrimSpace(value)); status {
	case TicketStatusPendingApproval, TicketStatusAssigned, TicketStatusInProgress,
		TicketStatusResolved, TicketStatusRejected:
		return status, nil
	default:
		return "", fmt.Errorf("unknown ticket status %q", value)
	}
}

// StaffStatus is the delegation sub-state. The empty value means no staff
// member is attached.
type StaffStatus string

const (
	StaffStatusNone      StaffStatus = ""
	StaffStatusPending   StaffStatus = "Pending"
	StaffStatusAccepted  StaffStatus = "Accepted"
	StaffStatusSubmitted StaffStatus = "Submitted"
)

// Fixed values used for scheduler generated tickets.
const (
	SchedulerTenantName      = "System Scheduler"
	SchedulerTicketType      = "Maintenance"
	SchedulerTicketPriority  = "Medium"
	AnonymousDisplayName     = "Anonymous"
	DefaultRejectionReason   = "No reason provided"
	RejectionMarkerSeparator = "\n\n[REJECTED]: "
)

// Ticket is the aggregate for maintenance requests.
type Ticket struct {
	ID                      int64
	TenantName              string
	Anonymous               bool
	Type                    string
	Priority                string
	Description             string
	PhotoURL                *string
	Status                  TicketStatus
	AssignedDeptID          *int64
	EstimatedFixTime        *string
	AssignedDurationMinutes *int
	AcceptedAt              *time.Time
	ResolvedAt              *time.Time
	ProofURL                *string
	FeedbackRating          *int
	AssignedStaffID         *int64
	StaffStatus             StaffStatus
	CreatedAt               time.Time
	Version                 int64
}

// DisplayTenantName applies anonymous redaction. The stored name is unchanged.
func (t *Ticket) DisplayTenantName() string {
	if t.Anonymous {
		return AnonymousDisplayName
	}
	return t.TenantName
}

// TicketView is a ticket with its references resolved to display names.
type TicketView struct {
	Ticket
	AssignedDeptName  *string
	AssignedStaffName *string
}
