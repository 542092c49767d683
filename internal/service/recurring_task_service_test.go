package service_test

import (
	"testing"

	"github.com/spec-kit/hubops-service/internal/domain"
	"github.com/spec-kit/hubops-service/internal/service"
	apperrors "github.com/spec-kit/hubops-service/pkg/util/errorutil"
)

func TestRecurringTaskCreateAndList(t *testing.T) {
	env := newTestEnv(t, []string{"Maintenance", "Security"})
	gm := env.caller("gm")

	late, err := env.Tasks.Create(env.Ctx, gm, service.RecurringTaskInput{
		Title: " Fire drill ", FrequencyDays: 90, NextRunDate: "2026-12-01", Department: "Security",
	})
	if err != nil {
		t.Fatal(err)
	}
	if late.Title != "Fire drill" || late.AssignedDeptName == nil || *late.AssignedDeptName != "Security" {
		t.Fatalf("created = %+v", late)
	}
	early, err := env.Tasks.Create(env.Ctx, gm, service.RecurringTaskInput{
		Title: "Check HVAC", FrequencyDays: 30, NextRunDate: "2026-11-01", Department: "Gardening",
	})
	if err != nil {
		t.Fatal(err)
	}
	if early.AssignedDeptID != nil {
		t.Fatal("unknown department must leave the task unassigned")
	}

	tasks, err := env.Tasks.List(env.Ctx, gm)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 || tasks[0].ID != early.ID || tasks[1].ID != late.ID {
		t.Fatalf("tasks not ordered by next run date: %+v", tasks)
	}
	if tasks[1].AssignedDeptName == nil || *tasks[1].AssignedDeptName != "Security" {
		t.Fatalf("department name = %v", tasks[1].AssignedDeptName)
	}
}

func TestRecurringTaskValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	cases := map[string]service.RecurringTaskInput{
		"blank title":    {Title: " ", FrequencyDays: 1, NextRunDate: "2026-11-01"},
		"zero frequency": {Title: "x", FrequencyDays: 0, NextRunDate: "2026-11-01"},
		"negative":       {Title: "x", FrequencyDays: -3, NextRunDate: "2026-11-01"},
		"missing date":   {Title: "x", FrequencyDays: 1},
		"bad date":       {Title: "x", FrequencyDays: 1, NextRunDate: "11/01/2026"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := env.Tasks.Create(env.Ctx, env.caller("gm"), input); !apperrors.IsValidation(err) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestRecurringTaskRequiresGM(t *testing.T) {
	env := newTestEnv(t, []string{"Maintenance"})
	env.addUser(t, "head", domain.RoleDept, "Maintenance")
	task := env.newTask(t, service.RecurringTaskInput{Title: "x", FrequencyDays: 1, NextRunDate: "2026-11-01"})

	for _, who := range []string{"tenant", "head"} {
		caller := env.caller(who)
		if _, err := env.Tasks.List(env.Ctx, caller); !apperrors.IsForbidden(err) {
			t.Fatalf("%s list: %v", who, err)
		}
		if _, err := env.Tasks.Create(env.Ctx, caller, service.RecurringTaskInput{Title: "y", FrequencyDays: 1, NextRunDate: "2026-11-01"}); !apperrors.IsForbidden(err) {
			t.Fatalf("%s create: %v", who, err)
		}
		if _, err := env.Tasks.Update(env.Ctx, caller, task.ID, service.RecurringTaskPatch{}); !apperrors.IsForbidden(err) {
			t.Fatalf("%s update: %v", who, err)
		}
		if err := env.Tasks.Delete(env.Ctx, caller, task.ID); !apperrors.IsForbidden(err) {
			t.Fatalf("%s delete: %v", who, err)
		}
	}
}

func TestRecurringTaskUpdateMerges(t *testing.T) {
	env := newTestEnv(t, []string{"Maintenance", "Security"})
	gm := env.caller("gm")
	task := env.newTask(t, service.RecurringTaskInput{
		Title: "Check HVAC", Description: "filters", FrequencyDays: 7, NextRunDate: "2026-11-01", Department: "Maintenance",
	})

	updated, err := env.Tasks.Update(env.Ctx, gm, task.ID, service.RecurringTaskPatch{FrequencyDays: intPtr(14)})
	if err != nil {
		t.Fatal(err)
	}
	if updated.FrequencyDays != 14 || updated.Title != "Check HVAC" || updated.Description != "filters" ||
		updated.NextRunDate.Format("2006-01-02") != "2026-11-01" || *updated.AssignedDeptName != "Maintenance" {
		t.Fatalf("merge lost fields: %+v", updated)
	}

	updated, err = env.Tasks.Update(env.Ctx, gm, task.ID, service.RecurringTaskPatch{Department: strPtr("Nowhere")})
	if err != nil {
		t.Fatal(err)
	}
	if updated.AssignedDeptID == nil || *updated.AssignedDeptID != env.Depts["Maintenance"].ID {
		t.Fatal("unknown department must keep the previous assignment")
	}

	updated, err = env.Tasks.Update(env.Ctx, gm, task.ID, service.RecurringTaskPatch{Department: strPtr("Security")})
	if err != nil {
		t.Fatal(err)
	}
	if *updated.AssignedDeptName != "Security" {
		t.Fatalf("department = %v", updated.AssignedDeptName)
	}

	updated, err = env.Tasks.Update(env.Ctx, gm, task.ID, service.RecurringTaskPatch{Department: strPtr("")})
	if err != nil {
		t.Fatal(err)
	}
	if updated.AssignedDeptID != nil || updated.AssignedDeptName != nil {
		t.Fatal("empty department must clear the assignment")
	}

	if _, err := env.Tasks.Update(env.Ctx, gm, task.ID, service.RecurringTaskPatch{FrequencyDays: intPtr(0)}); !apperrors.IsValidation(err) {
		t.Fatalf("zero frequency err = %v", err)
	}
	if _, err := env.Tasks.Update(env.Ctx, gm, task.ID, service.RecurringTaskPatch{NextRunDate: strPtr("soon")}); !apperrors.IsValidation(err) {
		t.Fatalf("bad date err = %v", err)
	}
	if got := env.task(t, task.ID); got.FrequencyDays != 14 {
		t.Fatalf("rejected patch was applied: %+v", got)
	}
	if _, err := env.Tasks.Update(env.Ctx, gm, 999, service.RecurringTaskPatch{}); !apperrors.IsNotFound(err) {
		t.Fatalf("missing task err = %v", err)
	}
}

func TestRecurringTaskDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	gm := env.caller("gm")
	task := env.newTask(t, service.RecurringTaskInput{Title: "x", FrequencyDays: 1, NextRunDate: "2026-11-01"})

	if err := env.Tasks.Delete(env.Ctx, gm, task.ID); err != nil {
		t.Fatal(err)
	}
	if err := env.Tasks.Delete(env.Ctx, gm, task.ID); !apperrors.IsNotFound(err) {
		t.Fatalf("second delete err = %v", err)
	}
	tasks, _ := env.Tasks.List(env.Ctx, gm)
	if len(tasks) != 0 {
		t.Fatalf("tasks = %+v", tasks)
	}
}
