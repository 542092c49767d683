package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// RecurringTask periodically materializes maintenance tickets.
type RecurringTask struct {
	ID             int64
	Title          string
	Description    string
	FrequencyDays  int
	NextRunDate    time.Time
	AssignedDeptID *int64
	CreatedAt      time.Time
	Version        int64
}

// RecurringTaskView is a task with its department name resolved.
type RecurringTaskView struct {
	RecurringTask
	AssignedDeptName *string
}

// IsDue reports whether the task should run on the given date.
func (t *RecurringTask) IsDue(today time.Time) bool {
	return !t.NextRunDate.After(today)
}

// Advance moves the schedule forward by exactly one period.
func (t *RecurringTask) Advance() {
	t.NextRunDate = t.NextRunDate.AddDate(0, 0, t.FrequencyDays)
}

// TicketDescription is the description of tickets materialized from the task.
func (t *RecurringTask) TicketDescription() string {
	title := strings.TrimSpace(t.Title)
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return title
	}
	return title + "\n\n" + desc
}

// ParseDate parses a YYYY-MM-DD calendar date into midnight UTC.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return parsed, nil
}
