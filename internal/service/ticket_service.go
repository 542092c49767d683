package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/hubops-service/internal/clock"
	"github.com/spec-kit/hubops-service/internal/domain"
	"github.com/spec-kit/hubops-service/internal/events"
	"github.com/spec-kit/hubops-service/internal/repository"
	apperrors "github.com/spec-kit/hubops-service/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	store       *repository.Store
	clock       clock.Clock
	dispatcher  events.Dispatcher
	recorder    Recorder
	logger      *zap.Logger
	strictScope bool
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      *repository.Store
	Clock      clock.Clock
	Dispatcher events.Dispatcher
	Recorder   Recorder
	Logger     *zap.Logger
	// StrictScope limits dept callers to their department's tickets and
	// staff callers to tickets delegated to them.
	StrictScope bool
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Anonymous   bool
	Type        string
	Priority    string
	Description string
	PhotoURL    *string
}

// TicketActionInput carries an action name and its optional payload.
// Fields irrelevant to the action are ignored.
type TicketActionInput struct {
	Action           string
	Department       string
	EstimatedFixTime *string
	DurationMinutes  *int
	ProofURL         *string
	StaffID          *int64
	Reason           string
}

// TicketListFilter narrows a listing beyond the caller's visibility.
type TicketListFilter struct {
	Status *domain.TicketStatus
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	c := deps.Clock
	if c == nil {
		c = clock.Real()
	}
	return &TicketService{
		store:       deps.Store,
		clock:       c,
		dispatcher:  deps.Dispatcher,
		recorder:    recorderOrNoop(deps.Recorder),
		logger:      loggerOrNop(deps.Logger),
		strictScope: deps.StrictScope,
	}
}

// Create opens a ticket in Pending Approval on behalf of caller. The
// caller's username is stored even for anonymous tickets.
func (s *TicketService) Create(ctx context.Context, caller domain.Caller, input TicketCreateInput) (*domain.TicketView, error) {
	ticket := &domain.Ticket{
		TenantName:  caller.Username,
		Anonymous:   input.Anonymous,
		Type:        strings.TrimSpace(input.Type),
		Priority:    strings.TrimSpace(input.Priority),
		Description: strings.TrimSpace(input.Description),
		PhotoURL:    trimmedPtr(input.PhotoURL),
		Status:      domain.TicketStatusPendingApproval,
		CreatedAt:   s.clock.Now(),
	}
	if err := validateNewTicket(ticket); err != nil {
		return nil, err
	}

	var view *domain.TicketView
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		if err := repos.History.Create(ctx, &domain.TicketHistory{
			TicketID:    ticket.ID,
			ActorUserID: &caller.UserID,
			ActorRole:   string(caller.Role),
			Action:      domain.HistoryActionCreated,
			NewStatus:   ticket.Status,
			CreatedAt:   ticket.CreatedAt,
		}); err != nil {
			return err
		}
		var err error
		view, err = repos.Tickets.GetView(ctx, ticket.ID)
		return err
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	s.logger.Info("ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("type", ticket.Type),
		zap.String("priority", ticket.Priority))
	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    callerActor(caller),
		Payload: events.TicketCreatedPayload{
			Type:     ticket.Type,
			Priority: ticket.Priority,
			Status:   ticket.Status,
		},
	}, s.clock.Now())
	return view, nil
}

func validateNewTicket(ticket *domain.Ticket) error {
	missing := []string{}
	if ticket.Type == "" {
		missing = append(missing, "type")
	}
	if ticket.Priority == "" {
		missing = append(missing, "priority")
	}
	if ticket.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	return nil
}

// List returns the tickets visible to caller, newest first. Tenants and
// the GM see every ticket; dept and staff callers see their department's.
func (s *TicketService) List(ctx context.Context, caller domain.Caller, filter TicketListFilter) ([]domain.TicketView, error) {
	repoFilter := repository.TicketFilter{Status: filter.Status}
	switch caller.Role {
	case domain.RoleTenant, domain.RoleGM:
	case domain.RoleDept, domain.RoleStaff:
		if caller.DepartmentID == nil {
			return []domain.TicketView{}, nil
		}
		repoFilter.DepartmentID = caller.DepartmentID
	default:
		return nil, apperrors.NewForbidden("unknown role")
	}

	views, err := s.store.Repos().Tickets.ListViews(ctx, repoFilter)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return views, nil
}

// Get returns one ticket under the same visibility rule as List.
func (s *TicketService) Get(ctx context.Context, caller domain.Caller, ticketID int64) (*domain.TicketView, error) {
	view, err := s.store.Repos().Tickets.GetView(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if !canSee(caller, &view.Ticket) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return view, nil
}

// History lists the audit trail of a visible ticket, oldest first.
func (s *TicketService) History(ctx context.Context, caller domain.Caller, ticketID int64) ([]domain.TicketHistory, error) {
	if _, err := s.Get(ctx, caller, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.store.Repos().History.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return entries, nil
}

func canSee(caller domain.Caller, ticket *domain.Ticket) bool {
	switch caller.Role {
	case domain.RoleTenant, domain.RoleGM:
		return true
	case domain.RoleDept, domain.RoleStaff:
		return caller.InDepartment(ticket.AssignedDeptID)
	default:
		return false
	}
}

// ApplyAction performs one lifecycle action. The action name is validated
// first, then the caller's role, and only then is the ticket loaded. All
// field changes and the history entry commit together or not at all.
func (s *TicketService) ApplyAction(ctx context.Context, caller domain.Caller, ticketID int64, input TicketActionInput) (*domain.TicketView, error) {
	action, err := domain.ParseTicketAction(input.Action)
	if err != nil {
		s.recorder.TicketAction("unknown", outcomeRejected)
		return nil, apperrors.NewValidationError("unknown action", map[string]any{"action": input.Action})
	}

	view, change, err := s.applyAction(ctx, caller, ticketID, action, input)
	s.recorder.TicketAction(string(action), outcomeOf(err))
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket action applied",
		zap.Int64("ticket_id", ticketID),
		zap.String("action", string(action)),
		zap.String("role", string(caller.Role)),
		zap.String("old_status", string(change.oldStatus)),
		zap.String("new_status", string(view.Status)))
	s.publishChange(ctx, caller, action, view, change)
	return view, nil
}

type ticketChange struct {
	oldStatus      domain.TicketStatus
	oldStaffID     *int64
	oldStaffStatus domain.StaffStatus
}

func (s *TicketService) applyAction(ctx context.Context, caller domain.Caller, ticketID int64, action domain.TicketAction, input TicketActionInput) (*domain.TicketView, ticketChange, error) {
	required, err := action.RequiredRole()
	if err != nil {
		return nil, ticketChange{}, apperrors.NewValidationError(err.Error(), nil)
	}
	if err := requireRole(caller, required); err != nil {
		return nil, ticketChange{}, err
	}

	var (
		view   *domain.TicketView
		change ticketChange
	)
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			return notFound(err, "ticket", map[string]any{"ticket_id": ticketID})
		}
		if err := s.checkScope(caller, action, ticket); err != nil {
			return err
		}
		if err := checkActionSource(action, ticket); err != nil {
			return err
		}

		change = ticketChange{
			oldStatus:      ticket.Status,
			oldStaffID:     ticket.AssignedStaffID,
			oldStaffStatus: ticket.StaffStatus,
		}
		note, err := s.mutate(ctx, repos, caller, action, ticket, input)
		if err != nil {
			return err
		}
		if err := checkTransition(action, change.oldStatus, ticket.Status); err != nil {
			return err
		}

		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		oldStatus := change.oldStatus
		if err := repos.History.Create(ctx, &domain.TicketHistory{
			TicketID:    ticket.ID,
			ActorUserID: &caller.UserID,
			ActorRole:   string(caller.Role),
			Action:      string(action),
			OldStatus:   &oldStatus,
			NewStatus:   ticket.Status,
			Note:        note,
			CreatedAt:   s.clock.Now(),
		}); err != nil {
			return err
		}
		view, err = repos.Tickets.GetView(ctx, ticket.ID)
		return err
	})
	if err != nil {
		return nil, change, mapStoreError(err)
	}
	return view, change, nil
}

// mutate applies the field changes of action to ticket and returns the
// history note.
func (s *TicketService) mutate(ctx context.Context, repos repository.Repositories, caller domain.Caller, action domain.TicketAction, ticket *domain.Ticket, input TicketActionInput) (string, error) {
	switch action {
	case domain.ActionAssign:
		return s.assign(ctx, repos, ticket, input.Department)
	case domain.ActionAccept:
		now := s.clock.Now()
		ticket.EstimatedFixTime = trimmedPtr(input.EstimatedFixTime)
		ticket.AssignedDurationMinutes = input.DurationMinutes
		ticket.AcceptedAt = &now
		ticket.Status = domain.TicketStatusInProgress
		return estimateNote(ticket), nil
	case domain.ActionResolve:
		now := s.clock.Now()
		ticket.ProofURL = trimmedPtr(input.ProofURL)
		ticket.ResolvedAt = &now
		ticket.Status = domain.TicketStatusResolved
		return "", nil
	case domain.ActionDeptReject:
		reason := strings.TrimSpace(input.Reason)
		if reason == "" {
			reason = domain.DefaultRejectionReason
		}
		ticket.Description += domain.RejectionMarkerSeparator + reason
		ticket.Status = domain.TicketStatusRejected
		ticket.AssignedDeptID = nil
		// Staff delegation cannot outlive the department it belongs to.
		clearStaff(ticket)
		return reason, nil
	case domain.ActionAssignStaff:
		return s.assignStaff(ctx, repos, caller, ticket, input.StaffID)
	case domain.ActionStaffAccept:
		return s.staffAccept(ticket, input)
	case domain.ActionStaffReject:
		return staffReject(ticket)
	case domain.ActionStaffSubmitWork:
		return staffSubmitWork(ticket, input)
	default:
		return "", apperrors.NewValidationError("unknown action", map[string]any{"action": string(action)})
	}
}

func (s *TicketService) assign(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.NewValidationError("department is required", map[string]any{"field": "department"})
	}
	dept, err := repos.Departments.GetByName(ctx, name)
	if err != nil {
		return "", notFound(err, "department", map[string]any{"name": name})
	}
	if ticket.AssignedDeptID == nil || *ticket.AssignedDeptID != dept.ID {
		// Moving the ticket drops any delegation to the previous department.
		clearStaff(ticket)
	}
	ticket.AssignedDeptID = &dept.ID
	ticket.Status = domain.TicketStatusAssigned
	return dept.Name, nil
}

func (s *TicketService) checkScope(caller domain.Caller, action domain.TicketAction, ticket *domain.Ticket) error {
	if !s.strictScope {
		return nil
	}
	switch caller.Role {
	case domain.RoleDept:
		if !caller.InDepartment(ticket.AssignedDeptID) {
			return apperrors.NewForbidden("ticket belongs to another department")
		}
	case domain.RoleStaff:
		if ticket.AssignedStaffID == nil || *ticket.AssignedStaffID != caller.UserID {
			return apperrors.NewForbidden("ticket is not delegated to you")
		}
	case domain.RoleGM, domain.RoleTenant:
	}
	return nil
}

func (s *TicketService) publishChange(ctx context.Context, caller domain.Caller, action domain.TicketAction, view *domain.TicketView, change ticketChange) {
	now := s.clock.Now()
	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: view.ID,
		Actor:    callerActor(caller),
		Payload: events.TicketStatusChangedPayload{
			Action:    action,
			OldStatus: change.oldStatus,
			NewStatus: view.Status,
		},
	}, now)
	if change.oldStaffStatus != view.StaffStatus || !sameID(change.oldStaffID, view.AssignedStaffID) {
		publish(ctx, s.dispatcher, events.Event{
			Type:     events.EventTicketStaffChanged,
			TicketID: view.ID,
			Actor:    callerActor(caller),
			Payload: events.TicketStaffChangedPayload{
				Action:          action,
				AssignedStaffID: view.AssignedStaffID,
				StaffStatus:     view.StaffStatus,
			},
		}, now)
	}
}

func estimateNote(ticket *domain.Ticket) string {
	if ticket.EstimatedFixTime == nil {
		return ""
	}
	return "estimate: " + *ticket.EstimatedFixTime
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
