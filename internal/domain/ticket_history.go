package domain

import "time"

// HistoryActionCreated marks the creation entry of a ticket.
const HistoryActionCreated = "create"

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID          int64
	TicketID    int64
	ActorUserID *int64
	ActorRole   string
	Action      string
	OldStatus   *TicketStatus
	NewStatus   TicketStatus
	Note        string
	CreatedAt   time.Time
}
