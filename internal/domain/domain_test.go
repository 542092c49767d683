package domain

import (
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	for _, in := range []string{"tenant", "GM", " dept ", "staff"} {
		if _, err := ParseRole(in); err != nil {
			t.Fatalf("ParseRole(%q): %v", in, err)
		}
	}
	if _, err := ParseRole("admin"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestRoleRequiresDepartment(t *testing.T) {
	cases := map[Role]bool{RoleTenant: false, RoleGM: false, RoleDept: true, RoleStaff: true}
	for role, want := range cases {
		if got := role.RequiresDepartment(); got != want {
			t.Fatalf("%s.RequiresDepartment() = %v", role, got)
		}
	}
}

func TestActionRequiredRole(t *testing.T) {
	want := map[TicketAction]Role{
		ActionAssign:          RoleGM,
		ActionAccept:          RoleDept,
		ActionResolve:         RoleDept,
		ActionAssignStaff:     RoleDept,
		ActionDeptReject:      RoleDept,
		ActionStaffAccept:     RoleStaff,
		ActionStaffReject:     RoleStaff,
		ActionStaffSubmitWork: RoleStaff,
	}
	for _, action := range AllTicketActions() {
		role, err := action.RequiredRole()
		if err != nil {
			t.Fatalf("%s: %v", action, err)
		}
		if role != want[action] {
			t.Fatalf("%s requires %s, want %s", action, role, want[action])
		}
	}
	if len(want) != len(AllTicketActions()) {
		t.Fatalf("action table out of sync")
	}
}

func TestParseTicketAction(t *testing.T) {
	if a, err := ParseTicketAction("Staff_Accept"); err != nil || a != ActionStaffAccept {
		t.Fatalf("got %q, %v", a, err)
	}
	if _, err := ParseTicketAction("close"); err == nil {
		t.Fatal("expected unknown action error")
	}
}

func TestParseTicketStatus(t *testing.T) {
	if s, err := ParseTicketStatus("In Progress"); err != nil || s != TicketStatusInProgress {
		t.Fatalf("got %q, %v", s, err)
	}
	if _, err := ParseTicketStatus("Closed"); err == nil {
		t.Fatal("expected error")
	}
}

func TestDisplayTenantName(t *testing.T) {
	tk := &Ticket{TenantName: "Tenant User", Anonymous: true}
	if tk.DisplayTenantName() != AnonymousDisplayName {
		t.Fatalf("got %q", tk.DisplayTenantName())
	}
	if tk.TenantName != "Tenant User" {
		t.Fatal("stored name must not change")
	}
	tk.Anonymous = false
	if tk.DisplayTenantName() != "Tenant User" {
		t.Fatalf("got %q", tk.DisplayTenantName())
	}
}

func TestRecurringTaskSchedule(t *testing.T) {
	today := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	task := &RecurringTask{Title: "Check HVAC", FrequencyDays: 7, NextRunDate: today.AddDate(0, 0, -20)}
	if !task.IsDue(today) {
		t.Fatal("overdue task must be due")
	}
	task.Advance()
	if want := today.AddDate(0, 0, -13); !task.NextRunDate.Equal(want) {
		t.Fatalf("NextRunDate = %v, want %v", task.NextRunDate, want)
	}
	task.NextRunDate = today
	if !task.IsDue(today) {
		t.Fatal("task due today must be due")
	}
	task.NextRunDate = today.AddDate(0, 0, 1)
	if task.IsDue(today) {
		t.Fatal("future task must not be due")
	}
}

func TestRecurringTaskTicketDescription(t *testing.T) {
	task := &RecurringTask{Title: "Fire drill", Description: "Ring all alarms"}
	if got := task.TicketDescription(); got != "Fire drill\n\nRing all alarms" {
		t.Fatalf("got %q", got)
	}
	task.Description = "  "
	if got := task.TicketDescription(); got != "Fire drill" {
		t.Fatalf("got %q", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2023-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("got %v", d)
	}
	if _, err := ParseDate("01/02/2023"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCallerInDepartment(t *testing.T) {
	three, four := int64(3), int64(4)
	c := Caller{Role: RoleDept, DepartmentID: &three}
	if !c.InDepartment(&three) || c.InDepartment(&four) || c.InDepartment(nil) {
		t.Fatal("InDepartment mismatch")
	}
}
