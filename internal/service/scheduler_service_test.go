package service_test

import (
	"testing"
	"time"

	"github.com/spec-kit/hubops-service/internal/domain"
	"github.com/spec-kit/hubops-service/internal/events"
	"github.com/spec-kit/hubops-service/internal/service"
	apperrors "github.com/spec-kit/hubops-service/pkg/util/errorutil"
)

func (env *testEnv) newTask(t *testing.T, input service.RecurringTaskInput) *domain.RecurringTaskView {
	t.Helper()
	task, err := env.Tasks.Create(env.Ctx, env.caller("gm"), input)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func (env *testEnv) task(t *testing.T, id int64) *domain.RecurringTask {
	t.Helper()
	task, err := env.Store.Repos().RecurringTasks.GetByID(env.Ctx, id)
	if err != nil {
		t.Fatalf("load task: %v", err)
	}
	return task
}

func TestSweepMaterializesDueTask(t *testing.T) {
	env := newTestEnv(t, []string{"Maintenance"})
	today := env.Clock.Today()
	yesterday := today.AddDate(0, 0, -1)

	task := env.newTask(t, service.RecurringTaskInput{
		Title: "Check HVAC", Description: "Replace filters", FrequencyDays: 1,
		NextRunDate: yesterday.Format(domain.DateLayout), Department: "Maintenance",
	})

	result, err := env.Scheduler.Sweep(env.Ctx, today)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.Processed != 1 || len(result.TicketIDs) != 1 {
		t.Fatalf("result = %+v", result)
	}

	ticket := env.reload(t, result.TicketIDs[0])
	if ticket.Status != domain.TicketStatusAssigned || ticket.AssignedDeptID == nil ||
		*ticket.AssignedDeptID != env.Depts["Maintenance"].ID {
		t.Fatalf("ticket = %+v", ticket)
	}
	if ticket.TenantName != domain.SchedulerTenantName || ticket.Anonymous ||
		ticket.Type != "Maintenance" || ticket.Priority != "Medium" {
		t.Fatalf("scheduler fields = %+v", ticket)
	}
	if ticket.Description != "Check HVAC\n\nReplace filters" {
		t.Fatalf("description = %q", ticket.Description)
	}

	next := env.task(t, task.ID).NextRunDate
	if !next.Equal(yesterday.AddDate(0, 0, 1)) || next.After(today) {
		t.Fatalf("next_run_date = %v", next)
	}

	if len(env.Events.ofType(events.EventSweepCompleted)) != 1 {
		t.Fatal("expected sweep completed event")
	}
	if env.Recorder.sweeps != 1 {
		t.Fatalf("sweeps recorded = %d", env.Recorder.sweeps)
	}
}

func TestSweepCatchesUpOnePeriodAtATime(t *testing.T) {
	env := newTestEnv(t, nil)
	today := env.Clock.Today()
	task := env.newTask(t, service.RecurringTaskInput{
		Title: "Fire drill", FrequencyDays: 7, NextRunDate: today.AddDate(0, 0, -20).Format(domain.DateLayout),
	})

	for i, wantNext := range []time.Time{today.AddDate(0, 0, -13), today.AddDate(0, 0, -6), today.AddDate(0, 0, 1)} {
		result, err := env.Scheduler.Sweep(env.Ctx, today)
		if err != nil {
			t.Fatal(err)
		}
		if result.Processed != 1 {
			t.Fatalf("sweep %d processed %d", i, result.Processed)
		}
		if got := env.task(t, task.ID).NextRunDate; !got.Equal(wantNext) {
			t.Fatalf("sweep %d: next_run_date = %v, want %v", i, got, wantNext)
		}
	}

	result, err := env.Scheduler.Sweep(env.Ctx, today)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 0 || len(result.TicketIDs) != 0 {
		t.Fatalf("caught-up task swept again: %+v", result)
	}
}

func TestSweepTwiceSameDayIsIdempotent(t *testing.T) {
	env := newTestEnv(t, []string{"Maintenance"})
	today := env.Clock.Today()
	for _, title := range []string{"A", "B", "C"} {
		env.newTask(t, service.RecurringTaskInput{Title: title, FrequencyDays: 3, NextRunDate: today.Format(domain.DateLayout)})
	}
	env.newTask(t, service.RecurringTaskInput{Title: "later", FrequencyDays: 3, NextRunDate: today.AddDate(0, 0, 1).Format(domain.DateLayout)})

	first, err := env.Scheduler.Sweep(env.Ctx, today)
	if err != nil {
		t.Fatal(err)
	}
	if first.Processed != 3 {
		t.Fatalf("first sweep processed %d", first.Processed)
	}
	second, err := env.Scheduler.Sweep(env.Ctx, today)
	if err != nil {
		t.Fatal(err)
	}
	if second.Processed != 0 {
		t.Fatalf("second sweep processed %d", second.Processed)
	}

	tickets, _ := env.Tickets.List(env.Ctx, env.caller("gm"), service.TicketListFilter{})
	if len(tickets) != 3 {
		t.Fatalf("tickets = %d", len(tickets))
	}
	for _, tk := range tickets {
		if tk.Status != domain.TicketStatusPendingApproval {
			t.Fatalf("unassigned task produced status %s", tk.Status)
		}
	}
}

func TestSweepSurvivesDeletedDepartment(t *testing.T) {
	env := newTestEnv(t, []string{"Maintenance", "Security"})
	today := env.Clock.Today()
	env.newTask(t, service.RecurringTaskInput{Title: "Patrol", FrequencyDays: 1, NextRunDate: today.Format(domain.DateLayout), Department: "Security"})
	env.newTask(t, service.RecurringTaskInput{Title: "Boiler", FrequencyDays: 1, NextRunDate: today.Format(domain.DateLayout), Department: "Maintenance"})

	if _, err := env.Store.DB().ExecContext(env.Ctx, `DELETE FROM departments WHERE name = 'Security'`); err != nil {
		t.Fatal(err)
	}

	result, err := env.Scheduler.Sweep(env.Ctx, today)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.Processed != 2 {
		t.Fatalf("processed = %d", result.Processed)
	}
	patrol := env.reload(t, result.TicketIDs[0])
	if patrol.Status != domain.TicketStatusPendingApproval || patrol.AssignedDeptID != nil {
		t.Fatalf("stale department ticket = %+v", patrol)
	}
	boiler := env.reload(t, result.TicketIDs[1])
	if boiler.Status != domain.TicketStatusAssigned {
		t.Fatalf("boiler status = %s", boiler.Status)
	}
}

func TestSweepAsRequiresGM(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, err := env.Scheduler.SweepAs(env.Ctx, env.caller("tenant")); !apperrors.IsForbidden(err) {
		t.Fatalf("err = %v", err)
	}
	env.newTask(t, service.RecurringTaskInput{Title: "x", FrequencyDays: 1, NextRunDate: env.Clock.Today().Format(domain.DateLayout)})
	result, err := env.Scheduler.SweepAs(env.Ctx, env.caller("gm"))
	if err != nil || result.Processed != 1 {
		t.Fatalf("result = %+v, %v", result, err)
	}
}

func TestSchedulerTicketsFollowLifecycle(t *testing.T) {
	env := newTestEnv(t, []string{"Maintenance"})
	env.addUser(t, "head", domain.RoleDept, "Maintenance")
	env.newTask(t, service.RecurringTaskInput{Title: "Lift inspection", FrequencyDays: 30,
		NextRunDate: env.Clock.Today().Format(domain.DateLayout), Department: "Maintenance"})

	result, err := env.Scheduler.Sweep(env.Ctx, env.Clock.Today())
	if err != nil {
		t.Fatal(err)
	}
	view := env.act(t, "head", result.TicketIDs[0], service.TicketActionInput{Action: "accept"})
	if view.Status != domain.TicketStatusInProgress {
		t.Fatalf("status = %s", view.Status)
	}
	history, _ := env.Tickets.History(env.Ctx, env.caller("gm"), view.ID)
	if len(history) != 2 || history[0].ActorRole != events.RoleSystem || history[0].ActorUserID != nil {
		t.Fatalf("history = %+v", history)
	}
}
