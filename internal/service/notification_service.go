package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/hubops-service/internal/config"
	"github.com/spec-kit/hubops-service/internal/domain"
	"github.com/spec-kit/hubops-service/internal/events"
)

// NotificationService turns domain events into notices for the people who
// have to act next.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// Notice is one rendered notification.
type Notice struct {
	Audience string
	Subject  string
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     loggerOrNop(logger),
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketStaffChanged, n.handleTicketStaffChanged)
	n.dispatcher.Subscribe(events.EventSweepCompleted, n.handleSweepCompleted)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.deliver(ctx, event, NoticeFor(event))
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.deliver(ctx, event, NoticeFor(event))
	return nil
}

func (n *NotificationService) handleTicketStaffChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStaffChanged", zap.Int64("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.deliver(ctx, event, NoticeFor(event))
	return nil
}

func (n *NotificationService) handleSweepCompleted(ctx context.Context, event events.Event) error {
	n.logger.Info("SchedulerSweepCompleted", zap.Any("payload", event.Payload))
	n.deliver(ctx, event, NoticeFor(event))
	return nil
}

// NoticeFor decides who hears about event and what they are told. A zero
// Notice means nobody needs to act.
func NoticeFor(event events.Event) Notice {
	switch p := event.Payload.(type) {
	case events.TicketCreatedPayload:
		if p.AssignedDeptID != nil {
			return Notice{
				Audience: fmt.Sprintf("dept:%d", *p.AssignedDeptID),
				Subject:  fmt.Sprintf("Ticket #%d (%s, %s) is waiting for your department", event.TicketID, p.Type, p.Priority),
			}
		}
		return Notice{Audience: "gm", Subject: fmt.Sprintf("Ticket #%d (%s, %s) needs approval", event.TicketID, p.Type, p.Priority)}
	case events.TicketStatusChangedPayload:
		if p.Action == domain.ActionDeptReject {
			return Notice{Audience: "gm", Subject: fmt.Sprintf("Ticket #%d was rejected and needs reassignment", event.TicketID)}
		}
		if p.OldStatus == p.NewStatus {
			return Notice{}
		}
		switch p.NewStatus {
		case domain.TicketStatusAssigned:
			return Notice{Audience: "dept", Subject: fmt.Sprintf("Ticket #%d was assigned to your department", event.TicketID)}
		case domain.TicketStatusResolved:
			return Notice{Audience: "tenant", Subject: fmt.Sprintf("Ticket #%d is %s", event.TicketID, strings.ToLower(string(p.NewStatus)))}
		default:
			return Notice{Audience: "tenant", Subject: fmt.Sprintf("Work on ticket #%d has started", event.TicketID)}
		}
	case events.TicketStaffChangedPayload:
		switch p.Action {
		case domain.ActionAssignStaff:
			if p.AssignedStaffID == nil {
				return Notice{}
			}
			return Notice{Audience: fmt.Sprintf("staff:%d", *p.AssignedStaffID), Subject: fmt.Sprintf("Ticket #%d was delegated to you", event.TicketID)}
		case domain.ActionStaffReject:
			return Notice{Audience: "dept", Subject: fmt.Sprintf("Staff declined ticket #%d", event.TicketID)}
		case domain.ActionStaffSubmitWork:
			return Notice{Audience: "dept", Subject: fmt.Sprintf("Work on ticket #%d is ready for review", event.TicketID)}
		}
		return Notice{}
	case events.SweepCompletedPayload:
		if p.Processed == 0 {
			return Notice{}
		}
		return Notice{Audience: "gm", Subject: fmt.Sprintf("Scheduler opened %d ticket(s) for %s", p.Processed, p.Today)}
	}
	return Notice{}
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event, notice Notice) {
	if notice.Audience == "" {
		return
	}
	n.sendEmailNotificationStub(ctx, event, notice)
	n.sendWebhookNotificationStub(ctx, event, notice)
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event, notice Notice) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", notice.Audience),
		zap.String("subject", notice.Subject),
		zap.Int64("ticket_id", event.TicketID))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event, notice Notice) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("audience", notice.Audience),
		zap.String("subject", notice.Subject),
		zap.String("event_type", string(event.Type)))
}
