package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hubops-service/internal/clock"
	"github.com/spec-kit/hubops-service/internal/domain"
	"github.com/spec-kit/hubops-service/internal/events"
	"github.com/spec-kit/hubops-service/internal/repository"
)

// SchedulerService materializes tickets from due recurring tasks.
type SchedulerService struct {
	store      *repository.Store
	clock      clock.Clock
	dispatcher events.Dispatcher
	recorder   Recorder
	logger     *zap.Logger
}

// SchedulerDependencies bundles collaborators.
type SchedulerDependencies struct {
	Store      *repository.Store
	Clock      clock.Clock
	Dispatcher events.Dispatcher
	Recorder   Recorder
	Logger     *zap.Logger
}

// SweepResult reports what one sweep did.
type SweepResult struct {
	Processed int     `json:"processed"`
	TicketIDs []int64 `json:"ticket_ids"`
}

type sweptTicket struct {
	ticket *domain.Ticket
	taskID int64
}

// NewSchedulerService constructs the service.
func NewSchedulerService(deps SchedulerDependencies) *SchedulerService {
	c := deps.Clock
	if c == nil {
		c = clock.Real()
	}
	return &SchedulerService{
		store:      deps.Store,
		clock:      c,
		dispatcher: deps.Dispatcher,
		recorder:   recorderOrNoop(deps.Recorder),
		logger:     loggerOrNop(deps.Logger),
	}
}

// Today exposes the service's notion of the current date.
func (s *SchedulerService) Today() time.Time {
	return s.clock.Today()
}

// SweepAs runs a sweep for today on behalf of caller, who must be the GM.
func (s *SchedulerService) SweepAs(ctx context.Context, caller domain.Caller) (*SweepResult, error) {
	if err := requireRole(caller, domain.RoleGM); err != nil {
		return nil, err
	}
	return s.Sweep(ctx, s.clock.Today())
}

// Sweep creates one ticket per task whose next run date is on or before
// today and moves each task forward by a single period. A task overdue by
// several periods catches up one period per sweep, so a late sweep never
// produces a burst of duplicates. Everything commits in one transaction.
func (s *SchedulerService) Sweep(ctx context.Context, today time.Time) (*SweepResult, error) {
	today = clock.DateOf(today)
	result := &SweepResult{TicketIDs: []int64{}}
	var created []sweptTicket

	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		due, err := repos.RecurringTasks.ListDue(ctx, today)
		if err != nil {
			return err
		}
		for i := range due {
			task := &due[i]
			ticket, err := s.materialize(ctx, repos, task)
			if err != nil {
				return err
			}
			task.Advance()
			if err := repos.RecurringTasks.Update(ctx, task); err != nil {
				return err
			}
			created = append(created, sweptTicket{ticket: ticket, taskID: task.ID})
			result.TicketIDs = append(result.TicketIDs, ticket.ID)
			result.Processed++
		}
		return nil
	})
	if err != nil {
		err = mapStoreError(err)
		s.recorder.SweepCompleted(0, err)
		s.logger.Error("scheduler sweep failed", zap.String("today", today.Format(domain.DateLayout)), zap.Error(err))
		return nil, err
	}

	s.recorder.SweepCompleted(result.Processed, nil)
	s.logger.Info("scheduler sweep completed",
		zap.String("today", today.Format(domain.DateLayout)),
		zap.Int("processed", result.Processed),
		zap.Int64s("ticket_ids", result.TicketIDs))
	s.publishSweep(ctx, today, result, created)
	return result, nil
}

// materialize creates the ticket for one due task. A department that no
// longer exists degrades the ticket to Pending Approval instead of failing
// the sweep.
func (s *SchedulerService) materialize(ctx context.Context, repos repository.Repositories, task *domain.RecurringTask) (*domain.Ticket, error) {
	now := s.clock.Now()
	ticket := &domain.Ticket{
		TenantName:  domain.SchedulerTenantName,
		Anonymous:   false,
		Type:        domain.SchedulerTicketType,
		Priority:    domain.SchedulerTicketPriority,
		Description: task.TicketDescription(),
		Status:      domain.TicketStatusPendingApproval,
		CreatedAt:   now,
	}
	if task.AssignedDeptID != nil {
		dept, err := repos.Departments.GetByID(ctx, *task.AssignedDeptID)
		switch {
		case err == nil:
			ticket.AssignedDeptID = &dept.ID
			ticket.Status = domain.TicketStatusAssigned
		case errors.Is(err, sql.ErrNoRows):
			s.logger.Warn("recurring task references a missing department",
				zap.Int64("task_id", task.ID),
				zap.Int64("department_id", *task.AssignedDeptID))
		default:
			return nil, err
		}
	}

	if err := repos.Tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	if err := repos.History.Create(ctx, &domain.TicketHistory{
		TicketID:  ticket.ID,
		ActorRole: events.RoleSystem,
		Action:    domain.HistoryActionCreated,
		NewStatus: ticket.Status,
		Note:      "recurring task " + task.Title,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *SchedulerService) publishSweep(ctx context.Context, today time.Time, result *SweepResult, created []sweptTicket) {
	now := s.clock.Now()
	system := events.Actor{Role: events.RoleSystem}
	for _, c := range created {
		taskID := c.taskID
		publish(ctx, s.dispatcher, events.Event{
			Type:     events.EventTicketCreated,
			TicketID: c.ticket.ID,
			Actor:    system,
			Payload: events.TicketCreatedPayload{
				Type:           c.ticket.Type,
				Priority:       c.ticket.Priority,
				Status:         c.ticket.Status,
				AssignedDeptID: c.ticket.AssignedDeptID,
				RecurringTask:  &taskID,
			},
		}, now)
	}
	publish(ctx, s.dispatcher, events.Event{
		Type:  events.EventSweepCompleted,
		Actor: system,
		Payload: events.SweepCompletedPayload{
			Today:     today.Format(domain.DateLayout),
			Processed: result.Processed,
			TicketIDs: result.TicketIDs,
		},
	}, now)
}
