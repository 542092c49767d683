package service_test

import (
	"testing"
	"time"

	"github.com/spec-kit/hubops-service/internal/domain"
	"github.com/spec-kit/hubops-service/internal/events"
	"github.com/spec-kit/hubops-service/internal/service"
	apperrors "github.com/spec-kit/hubops-service/pkg/util/errorutil"
)

func delegatedTicket(t *testing.T, env *testEnv) (*domain.TicketView, *domain.User) {
	t.Helper()
	env.addUser(t, "head", domain.RoleDept, "Maintenance")
	felix := env.addUser(t, "felix", domain.RoleStaff, "Maintenance")
	tk := env.createTicket(t, "Leak")
	env.act(t, "gm", tk.ID, service.TicketActionInput{Action: "assign", Department: "Maintenance"})
	view := env.act(t, "head", tk.ID, service.TicketActionInput{Action: "assign_staff", StaffID: &felix.ID})
	return view, felix
}

func TestAssignStaffKeepsStatus(t *testing.T) {
	env := newTestEnv(t, []string{"Maintenance"})
	view, felix := delegatedTicket(t, env)

	if view.Status != domain.TicketStatusAssigned {
		t.Fatalf("status = %s", view.Status)
	}
	if view.StaffStatus != domain.StaffStatusPending || *view.AssignedStaffID != felix.ID {
		t.Fatalf("staff = %+v", view.Ticket)
	}
	if view.AssignedStaffName == nil || *view.AssignedStaffName != "felix" {
		t.Fatalf("staff name = %v", view.AssignedStaffName)
	}
	if len(env.Events.ofType(events.EventTicketStaffChanged)) != 1 {
		t.Fatal("expected a staff change event")
	}
}

func TestStaffAcceptForcesInProgress(t *testing.T) {
	env := newTestEnv(t, []string{"Maintenance"})
	view, _ := delegatedTicket(t, env)

	view = env.act(t, "felix", view.ID, service.TicketActionInput{
		Action: "staff_accept", EstimatedFixTime: strPtr("30 minutes"), DurationMinutes: intPtr(30),
	})
	if view.Status != domain.TicketStatusInProgress || view.StaffStatus != domain.StaffStatusAccepted {
		t.Fatalf("after staff_accept: %+v", view.Ticket)
	}
	if view.AcceptedAt == nil || *view.EstimatedFixTime != "30 minutes" || *view.AssignedDurationMinutes != 30 {
		t.Fatalf("estimate not recorded: %+v", view.Ticket)
	}
}

func TestStaffAcceptWhenAlreadyInProgress(t *testing.T) {
	env := newTestEnv(t, []string{"Maintenance"})
	env.addUser(t, "head", domain.RoleDept, "Maintenance")
	felix := env.addUser(t, "felix", domain.RoleStaff, "Maintenance")
	tk := env.createTicket(t, "Leak")
	env.act(t, "gm", tk.ID, service.TicketActionInput{Action: "assign", Department: "Maintenance"})
	accepted := env.act(t, "head", tk.ID, service.TicketActionInput{Action: "accept"})
	env.act(t, "head", tk.ID, service.TicketActionInput{Action: "assign_staff", StaffID: &felix.ID})

	env.Clock.Advance(30 * time.Minute)
	view := env.act(t, "felix", tk.ID, service.TicketActionInput{Action: "staff_accept"})
	if view.Status != domain.TicketStatusInProgress {
		t.Fatalf("status = %s", view.Status)
	}
	if !view.AcceptedAt.Equal(*accepted.AcceptedAt) {
		t.Fatal("accepted_at must keep the department's acceptance time")
	}
}

// staff_reject must leave the ticket status alone, even after the staff
// member had already pushed the ticket to In Progress.
func TestStaffRejectNeverChangesStatus(t *testing.T) {
	for _, acceptFirst := range []bool{false, true} {
		env := newTestEnv(t, []string{"Maintenance"})
		view, _ := delegatedTicket(t, env)
		wantStatus := domain.TicketStatusAssigned
		if acceptFirst {
			env.act(t, "felix", view.ID, service.TicketActionInput{Action: "staff_accept"})
			wantStatus = domain.TicketStatusInProgress
		}

		view = env.act(t, "felix", view.ID, service.TicketActionInput{Action: "staff_reject"})
		if view.Status != wantStatus {
			t.Fatalf("acceptFirst=%v: status = %s, want %s", acceptFirst, view.Status, wantStatus)
		}
		if view.AssignedStaffID != nil || view.StaffStatus != domain.StaffStatusNone || view.AssignedStaffName != nil {
			t.Fatalf("acceptFirst=%v: staff not cleared: %+v", acceptFirst, view.Ticket)
		}
		if view.AssignedDeptID == nil {
			t.Fatal("department must stay attached")
		}
	}
}

func TestStaffSubmitWorkThenResolve(t *testing.T) {
	env := newTestEnv(t, []string{"Maintenance"})
	view, _ := delegatedTicket(t, env)

	_, err := env.Tickets.ApplyAction(env.Ctx, env.caller("felix"), view.ID, service.TicketActionInput{Action: "staff_submit_work"})
	if !apperrors.IsConflict(err) {
		t.Fatalf("submit before accept err = %v", err)
	}

	env.act(t, "felix", view.ID, service.TicketActionInput{Action: "staff_accept"})
	view = env.act(t, "felix", view.ID, service.TicketActionInput{Action: "staff_submit_work", ProofURL: strPtr("https://proof/fix.jpg")})
	if view.StaffStatus != domain.StaffStatusSubmitted || view.Status != domain.TicketStatusInProgress {
		t.Fatalf("after submit: %+v", view.Ticket)
	}
	if *view.ProofURL != "https://proof/fix.jpg" {
		t.Fatalf("proof = %v", view.ProofURL)
	}

	_, err = env.Tickets.ApplyAction(env.Ctx, env.caller("felix"), view.ID, service.TicketActionInput{Action: "staff_reject"})
	if !apperrors.IsConflict(err) {
		t.Fatalf("reject after submit err = %v", err)
	}

	view = env.act(t, "head", view.ID, service.TicketActionInput{Action: "resolve", ProofURL: view.ProofURL})
	if view.Status != domain.TicketStatusResolved {
		t.Fatalf("status = %s", view.Status)
	}
}

func TestAssignStaffPreconditions(t *testing.T) {
	env := newTestEnv(t, []string{"Maintenance"})
	env.addUser(t, "head", domain.RoleDept, "Maintenance")
	felix := env.addUser(t, "felix", domain.RoleStaff, "Maintenance")
	other := env.addUser(t, "other-head", domain.RoleDept, "Maintenance")

	pending := env.createTicket(t, "no department yet")
	assigned := env.createTicket(t, "assigned")
	env.act(t, "gm", assigned.ID, service.TicketActionInput{Action: "assign", Department: "Maintenance"})

	cases := []struct {
		name   string
		ticket int64
		staff  *int64
		check  func(error) bool
	}{
		{"missing staff id", assigned.ID, nil, apperrors.IsValidation},
		{"unknown user", assigned.ID, i64Ptr(999), apperrors.IsNotFound},
		{"user is not staff", assigned.ID, &other.ID, apperrors.IsNotFound},
		{"pending approval ticket", pending.ID, &felix.ID, apperrors.IsConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.Tickets.ApplyAction(env.Ctx, env.caller("head"), tc.ticket, service.TicketActionInput{
				Action: "assign_staff", StaffID: tc.staff,
			})
			if !tc.check(err) {
				t.Fatalf("err = %v", err)
			}
		})
	}

	// Once accepted, the delegation cannot be replaced.
	env.act(t, "head", assigned.ID, service.TicketActionInput{Action: "assign_staff", StaffID: &felix.ID})
	env.act(t, "felix", assigned.ID, service.TicketActionInput{Action: "staff_accept"})
	_, err := env.Tickets.ApplyAction(env.Ctx, env.caller("head"), assigned.ID, service.TicketActionInput{
		Action: "assign_staff", StaffID: &felix.ID,
	})
	if !apperrors.IsConflict(err) {
		t.Fatalf("reassign accepted err = %v", err)
	}
}

func TestDeptRejectClearsDelegation(t *testing.T) {
	env := newTestEnv(t, []string{"Maintenance"})
	view, _ := delegatedTicket(t, env)

	view = env.act(t, "head", view.ID, service.TicketActionInput{Action: "dept_reject", Reason: "duplicate"})
	if view.AssignedStaffID != nil || view.StaffStatus != domain.StaffStatusNone {
		t.Fatalf("staff survived rejection: %+v", view.Ticket)
	}
}

func TestStaffRoleRequired(t *testing.T) {
	env := newTestEnv(t, []string{"Maintenance"})
	view, _ := delegatedTicket(t, env)
	for _, who := range []string{"head", "gm", "tenant"} {
		_, err := env.Tickets.ApplyAction(env.Ctx, env.caller(who), view.ID, service.TicketActionInput{Action: "staff_accept"})
		if !apperrors.IsForbidden(err) {
			t.Fatalf("%s: err = %v", who, err)
		}
	}
}

func TestStaffAcceptNeedsDelegation(t *testing.T) {
	env := newTestEnv(t, []string{"Maintenance"})
	env.addUser(t, "felix", domain.RoleStaff, "Maintenance")
	tk := env.createTicket(t, "Leak")
	env.act(t, "gm", tk.ID, service.TicketActionInput{Action: "assign", Department: "Maintenance"})

	_, err := env.Tickets.ApplyAction(env.Ctx, env.caller("felix"), tk.ID, service.TicketActionInput{Action: "staff_accept"})
	if !apperrors.IsConflict(err) {
		t.Fatalf("err = %v", err)
	}
	if got := env.reload(t, tk.ID); got.Status != domain.TicketStatusAssigned || got.StaffStatus != domain.StaffStatusNone {
		t.Fatalf("ticket changed: %+v", got)
	}
}
