package domain

import "time"

// Department is a maintenance unit tickets and recurring tasks are routed to.
type Department struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}
