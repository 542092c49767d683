package domain

import (
	"fmt"
	"strings"
)

// TicketAction names a lifecycle transition requested on an existing ticket.
type TicketAction string

const (
	ActionAssign          TicketAction = "assign"
	ActionAccept          TicketAction = "accept"
	ActionResolve         TicketAction = "resolve"
	ActionAssignStaff     TicketAction = "assign_staff"
	ActionStaffAccept     TicketAction = "staff_accept"
	ActionStaffReject     TicketAction = "staff_reject"
	ActionStaffSubmitWork TicketAction = "staff_submit_work"
	ActionDeptReject      TicketAction = "dept_reject"
)

// ParseTicketAction validates an action name.
func ParseTicketAction(value string) (TicketAction, error) {
	action := TicketAction(strings.ToLower(strings.TrimSpace(value)))
	if _, err := action.RequiredRole(); err != nil {
		return "", err
	}
	return action, nil
}

// RequiredRole returns the only role allowed to perform the action.
func (a TicketAction) RequiredRole() (Role, error) {
	switch a {
	case ActionAssign:
		return RoleGM, nil
	case ActionAccept, ActionResolve, ActionAssignStaff, ActionDeptReject:
		return RoleDept, nil
	case ActionStaffAccept, ActionStaffReject, ActionStaffSubmitWork:
		return RoleStaff, nil
	default:
		return "", fmt.Errorf("unknown ticket action %q", string(a))
	}
}

// AllTicketActions lists every action in a stable order.
func AllTicketActions() []TicketAction {
	return []TicketAction{
		ActionAssign,
		ActionAccept,
		ActionResolve,
		ActionAssignStaff,
		ActionStaffAccept,
		ActionStaffReject,
		ActionStaffSubmitWork,
		ActionDeptReject,
	}
}
